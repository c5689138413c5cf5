// Package darkroom restores old photographs with vision models.
//
// A scan of a vintage photo rarely contains just the photo: there are
// album borders, scanner lids, table edges. The pipeline asks a vision
// model where the photograph is, interprets the model's bounding box,
// crops the photo out, and sends the crop to an image model for
// restoration. A restored photo can optionally be animated into a short
// clip.
//
// Basic usage:
//
//	package main
//
//	import (
//		"context"
//		"log"
//
//		"github.com/darkroomhq/darkroom"
//		"github.com/darkroomhq/darkroom/pkg/gemini"
//		"github.com/darkroomhq/darkroom/pkg/processing"
//		"github.com/darkroomhq/darkroom/pkg/types"
//	)
//
//	func main() {
//		client, err := gemini.NewClient("your-api-key")
//		if err != nil {
//			log.Fatal(err)
//		}
//
//		pipeline := darkroom.NewPipeline(client, client, client, nil)
//
//		processor := processing.NewProcessor()
//		img, err := processor.LoadImage("scan.jpg")
//		if err != nil {
//			log.Fatal(err)
//		}
//
//		result, err := pipeline.Process(context.Background(), img, types.ProcessOptions{
//			Location: "Shanghai",
//			Colorize: true,
//		})
//		if err != nil {
//			log.Fatal(err)
//		}
//
//		if err := processor.SaveImage(result.Restored, "restored.png", "png", 0, false); err != nil {
//			log.Fatal(err)
//		}
//	}
//
// The package consists of these main components:
//
// 1. Analysis (pkg/analysis): prompts a vision model for the photo's location and historical metadata
// 2. Bounding box (pkg/boundingbox): interprets the model's coordinates into a pixel rectangle
// 3. Cropper (pkg/cropper): extracts the photograph from the scan
// 4. Restoration (pkg/restoration): image restoration and video animation
//
// Both the Gemini API (pkg/gemini) and a local Ollama server (pkg/ollama)
// can serve as the vision backend; restoration and animation require Gemini.
package darkroom

import (
	"context"
	"fmt"
	"image"

	"github.com/darkroomhq/darkroom/pkg/analysis"
	"github.com/darkroomhq/darkroom/pkg/boundingbox"
	"github.com/darkroomhq/darkroom/pkg/client"
	"github.com/darkroomhq/darkroom/pkg/cropper"
	"github.com/darkroomhq/darkroom/pkg/processing"
	"github.com/darkroomhq/darkroom/pkg/restoration"
	"github.com/darkroomhq/darkroom/pkg/types"
	"github.com/darkroomhq/darkroom/pkg/wikipedia"
)

// Version of the darkroom library
const Version = "1.0.0"

// Pipeline wires the analysis, cropping and restoration stages into a
// single high-level interface.
type Pipeline struct {
	analyzer  *analysis.Analyzer
	restorer  *restoration.Service
	processor *processing.Processor
}

// NewPipeline creates a Pipeline. The restorer and video generator may
// be nil to run analysis-only pipelines; the wikipedia client may be
// nil to disable context enrichment.
func NewPipeline(vision client.VisionClient, restorer client.Restorer, video client.VideoGenerator, wiki *wikipedia.Client) *Pipeline {
	processor := processing.NewProcessor()
	return &Pipeline{
		analyzer:  analysis.NewAnalyzer(vision, wiki),
		restorer:  restoration.NewService(restorer, video, processor),
		processor: processor,
	}
}

// Result holds every artifact of a pipeline run.
type Result struct {
	// Rect is the photograph's location inside the scan, in pixels.
	Rect boundingbox.Rect
	// Cropped is the photograph extracted from the scan.
	Cropped image.Image
	// Restored is the model-restored photograph. Nil when the pipeline
	// has no restorer configured.
	Restored image.Image
	// Metadata is the model's historical analysis.
	Metadata types.Metadata
}

// Locate analyzes a scan and returns the photograph's rectangle along
// with the analysis result, without cropping or restoring.
func (p *Pipeline) Locate(ctx context.Context, img image.Image, opts types.ProcessOptions) (boundingbox.Rect, *types.AnalysisResult, error) {
	bounds := img.Bounds()
	width, height := bounds.Dx(), bounds.Dy()

	data, mimeType, err := p.processor.EncodeForModel(img, "jpg", 0, 90)
	if err != nil {
		return boundingbox.Rect{}, nil, fmt.Errorf("failed to encode image: %w", err)
	}

	result, err := p.analyzer.AnalyzePhoto(ctx, data, mimeType, width, height, opts)
	if err != nil {
		return boundingbox.Rect{}, nil, err
	}

	rect, err := boundingbox.Normalize(result.BoxText, width, height)
	if err != nil {
		return boundingbox.Rect{}, nil, err
	}
	return rect, result, nil
}

// Process runs the full pipeline on a scan: analyze, locate the
// photograph, crop it out and restore it.
func (p *Pipeline) Process(ctx context.Context, img image.Image, opts types.ProcessOptions) (*Result, error) {
	rect, analyzed, err := p.Locate(ctx, img, opts)
	if err != nil {
		return nil, err
	}

	cropped, err := cropper.Crop(img, rect)
	if err != nil {
		return nil, err
	}

	result := &Result{
		Rect:     rect,
		Cropped:  cropped,
		Metadata: analyzed.Metadata,
	}

	restored, err := p.restorer.RestorePhoto(ctx, cropped, analyzed.Metadata, opts.Colorize)
	if err != nil {
		return nil, err
	}
	result.Restored = restored

	return result, nil
}

// Animate generates a short clip from a restored photograph.
func (p *Pipeline) Animate(ctx context.Context, img image.Image, metadata types.Metadata) ([]byte, error) {
	return p.restorer.AnimatePhoto(ctx, img, metadata)
}
