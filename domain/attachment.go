package domain

import "github.com/gabriel-vasile/mimetype"

// Attachment is a reference to an uploaded blob carried on a message.
// The bytes themselves live with the storage vendor; only the metadata is
// part of the session state.
type Attachment struct {
	Name string `json:"name"`
	Mime string `json:"mime"`
	Size int64  `json:"size"`
	Ref  string `json:"ref,omitempty"`
}

// NewAttachment builds attachment metadata for a local upload, sniffing the
// content type from the leading bytes rather than trusting the file name.
func NewAttachment(name string, data []byte) Attachment {
	return Attachment{
		Name: name,
		Mime: mimetype.Detect(data).String(),
		Size: int64(len(data)),
	}
}
