// Package stashbox provides a small upload front end for an object-storage
// bucket: it validates inbound files, forwards them to a store and renders
// listings from store metadata.
//
// # Key Components
//
//   - Service: orchestrates uploads, listings, downloads, deletes and share links
//   - ObjectStore: interface over the backing store (S3, local filesystem)
//   - AcceptancePolicy: extension allow-list and request size limit
//   - FormatSize: human-readable byte counts for listings
//   - SanitizeFilename: turns an uploaded filename into a storage key
//   - LinkSigner: HMAC presigned links for stores without native presigning
//
// # Example Usage
//
//	policy, err := stashbox.NewAcceptancePolicy([]string{"pdf", "png"}, 16<<20)
//	if err != nil {
//	    log.Fatal(err)
//	}
//
//	service := stashbox.NewService(store, policy, stashbox.ServiceConfig{})
//
//	// Upload a file
//	result, err := service.Upload(ctx, stashbox.UploadRequest{
//	    Filename:    "report.pdf",
//	    ContentType: "application/pdf",
//	    Body:        f,
//	    Size:        size,
//	})
//
//	// Newest first
//	files, err := service.List(ctx)
//
// See the http package for the web front end and the s3store and filesystem
// packages for store implementations.
package stashbox
