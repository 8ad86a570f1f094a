package httpdto

// UploadResponse is returned by POST /upload. The body is bare, without the
// Response envelope, because chat clients read url directly.
type UploadResponse struct {
	URL string `json:"url"`
}
