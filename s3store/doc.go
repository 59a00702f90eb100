// Package s3store implements stashbox.ObjectStore on Amazon S3 (or any
// S3-compatible endpoint) using the AWS SDK for Go v2.
//
// # Usage
//
//	store, err := s3store.New(ctx, s3store.Config{
//	    Bucket: "uploads",
//	    Region: "eu-west-1",
//	})
//	if err != nil {
//	    log.Fatal(err)
//	}
//
// Credentials come from AccessKeyID/SecretAccessKey when both are set, and
// from the SDK's default chain (environment, shared config, instance role)
// otherwise. Endpoint and UsePathStyle point the client at MinIO or another
// S3-compatible server.
//
// Errors are returned as *stashbox.StoreError carrying the SDK message.
// Missing keys also match stashbox.ErrNotFound.
package s3store
