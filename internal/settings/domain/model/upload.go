package model

// UploadedAsset is the result of encoding an uploaded model file.
// Nothing about it is stored server-side.
type UploadedAsset struct {
	URL      string `json:"url"`
	MimeType string `json:"mimeType"`
	Size     int64  `json:"size"`
	Digest   string `json:"digest"`
}

// UploadReceipt describes an accepted upload without its payload
type UploadReceipt struct {
	FileName string
	MimeType string
	Size     int64
	Digest   string
}

// UploadCandidate is what an upload policy can see about an incoming file
type UploadCandidate struct {
	Name     string
	MimeType string
	Size     int64
}
