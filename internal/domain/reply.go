package domain

// ReplyKind discriminates the Reply variants.
type ReplyKind string

const (
	ReplyText  ReplyKind = "text"
	ReplyImage ReplyKind = "image"
)

// Reply is the outbound message sent once through a reply token.
type Reply struct {
	Kind        ReplyKind
	Text        string
	OriginalURL string
	PreviewURL  string
}

func TextReply(text string) Reply {
	return Reply{Kind: ReplyText, Text: text}
}

// ImageReply builds an image reply from a full-resolution and a preview URL.
func ImageReply(originalURL, previewURL string) Reply {
	return Reply{Kind: ReplyImage, OriginalURL: originalURL, PreviewURL: previewURL}
}
