package driven

import "context"

// Captioner produces a short description for an image.
//
// Describe never fails: absence of a model or an inference error yields a
// fixed placeholder string. Descriptions are capped at 60 characters.
type Captioner interface {
	// Describe returns a short description of the image bytes.
	Describe(ctx context.Context, data []byte) string
}
