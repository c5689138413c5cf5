// Package restoration turns cropped vintage photographs into restored
// images and, optionally, short animated clips.
package restoration

import (
	"context"
	"fmt"
	"image"

	"github.com/darkroomhq/darkroom/pkg/client"
	"github.com/darkroomhq/darkroom/pkg/processing"
	"github.com/darkroomhq/darkroom/pkg/types"
)

// videoAspect is the aspect ratio the video model requires. Inputs are
// padded, never stretched, to reach it.
const videoAspect = 16.0 / 9.0

// Service orchestrates restoration and animation calls.
type Service struct {
	restorer  client.Restorer
	video     client.VideoGenerator
	processor *processing.Processor
}

// NewService creates a restoration service. The video generator may be
// nil when animation is not configured.
func NewService(restorer client.Restorer, video client.VideoGenerator, processor *processing.Processor) *Service {
	return &Service{restorer: restorer, video: video, processor: processor}
}

// RestorePhoto sends a cropped photograph to the image model and
// returns the restored image.
func (s *Service) RestorePhoto(ctx context.Context, img image.Image, metadata types.Metadata, colorize bool) (image.Image, error) {
	if s.restorer == nil {
		return nil, fmt.Errorf("restoration is not configured")
	}

	data, mime, err := s.processor.EncodeForModel(img, "jpg", 0, 95)
	if err != nil {
		return nil, fmt.Errorf("failed to encode image for restoration: %w", err)
	}

	restored, err := s.restorer.Restore(ctx, restorationPrompt(metadata, colorize), data, mime)
	if err != nil {
		return nil, fmt.Errorf("restoration failed: %w", err)
	}

	out, err := s.processor.DecodeBytes(restored)
	if err != nil {
		return nil, fmt.Errorf("failed to decode restored image: %w", err)
	}
	return out, nil
}

// AnimatePhoto generates a short clip from a restored photograph and
// returns the raw video bytes.
func (s *Service) AnimatePhoto(ctx context.Context, img image.Image, metadata types.Metadata) ([]byte, error) {
	if s.video == nil {
		return nil, fmt.Errorf("video generation is not configured")
	}

	padded := s.processor.PadToAspect(img, videoAspect)
	data, mime, err := s.processor.EncodeForModel(padded, "jpg", 0, 95)
	if err != nil {
		return nil, fmt.Errorf("failed to encode image for animation: %w", err)
	}

	clip, err := s.video.GenerateVideo(ctx, animationPrompt(metadata), data, mime)
	if err != nil {
		return nil, fmt.Errorf("video generation failed: %w", err)
	}
	return clip, nil
}
