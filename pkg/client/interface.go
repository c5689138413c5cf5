package client

import "context"

// VisionClient answers a text prompt about an image.
type VisionClient interface {
	Analyze(ctx context.Context, prompt string, imageData []byte, mimeType string) (string, error)
}

// Restorer produces a restored version of an image guided by a prompt.
type Restorer interface {
	Restore(ctx context.Context, prompt string, imageData []byte, mimeType string) ([]byte, error)
}

// VideoGenerator animates a still image into a short video clip.
type VideoGenerator interface {
	GenerateVideo(ctx context.Context, prompt string, imageData []byte, mimeType string) ([]byte, error)
}
