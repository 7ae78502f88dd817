package protocol

// Content type discriminators for the content tagged union.
const (
	ContentTypeText     = "text"
	ContentTypeImage    = "image"
	ContentTypeResource = "resource"
)

// Content is the tagged union of message content variants. Type selects
// which of the remaining fields are meaningful.
type Content struct {
	Type string `json:"type"`

	// Text is set when Type is ContentTypeText.
	Text string `json:"text,omitempty"`

	// Data carries base64-encoded bytes and MimeType its media type when
	// Type is ContentTypeImage.
	Data     string `json:"data,omitempty"`
	MimeType string `json:"mimeType,omitempty"`

	// Resource is set when Type is ContentTypeResource.
	Resource *ResourceContents `json:"resource,omitempty"`
}

// NewTextContent creates a text content item.
func NewTextContent(text string) Content {
	return Content{Type: ContentTypeText, Text: text}
}

// NewImageContent creates an image content item from base64 data and a mime
// type.
func NewImageContent(data, mimeType string) Content {
	return Content{Type: ContentTypeImage, Data: data, MimeType: mimeType}
}

// NewResourceContent embeds resource contents as a content item.
func NewResourceContent(resource ResourceContents) Content {
	return Content{Type: ContentTypeResource, Resource: &resource}
}

// ResourceContents is the contents of a resource: either Text or Blob is
// set, never both.
type ResourceContents struct {
	URI      string `json:"uri"`
	MimeType string `json:"mimeType,omitempty"`

	// Text holds textual contents.
	Text string `json:"text,omitempty"`

	// Blob holds base64-encoded binary contents.
	Blob string `json:"blob,omitempty"`
}

// Role identifies the author of a message in prompt and sampling exchanges.
type Role string

const (
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
)
