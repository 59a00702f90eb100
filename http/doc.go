// Package http serves the stashbox upload front end.
//
// It renders the upload and listing pages, accepts multipart uploads,
// streams downloads as attachments and answers the JavaScript delete and
// share calls with JSON.
//
// # Routes
//
//	GET    /                     upload form
//	POST   /upload               multipart field "file"; 303 to /uploads or /
//	GET    /uploads              listing, newest first
//	GET    /download/{filename}  attachment download
//	DELETE /delete/{filename}    {"success": bool, "error"?: string}
//	GET    /share/{filename}     {"key", "url", "expires_in"}
//	GET    /shared/{filename}    signed link download (only with a LinkVerifier)
//	GET    /static/*             embedded assets
//	GET    /healthz              {"status": "ok"}
//
// Page handlers report problems through a one-shot flash cookie and a 303
// redirect, the way a form-driven site does. Uploads larger than the
// policy's limit are refused before the multipart body is parsed.
//
// # Usage
//
//	policy, _ := stashbox.NewAcceptancePolicy([]string{"txt", "pdf"}, 16<<20)
//	service := stashbox.NewService(store, policy, stashbox.ServiceConfig{})
//
//	handler := http.NewHandler(&http.HandlerConfig{Policy: policy}, service)
//	router := handler.Router()
//	http.ListenAndServe(":5000", router)
//
// # Middleware
//
// Router installs chi's RequestID, RealIP and Recoverer together with
// RequestLogger. CrossOriginMiddleware refuses uploads and deletes sent from
// other origins. RateLimitRedirectMiddleware throttles POST /upload and
// SignedLinkMiddleware guards /shared/.
package http
