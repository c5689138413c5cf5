package main

import (
	"context"
	"encoding/json"
	"flag"
	"image"
	"log"
	"os"
	"path/filepath"

	"github.com/darkroomhq/darkroom"
	"github.com/darkroomhq/darkroom/pkg/boundingbox"
	"github.com/darkroomhq/darkroom/pkg/client"
	"github.com/darkroomhq/darkroom/pkg/cropper"
	"github.com/darkroomhq/darkroom/pkg/gemini"
	"github.com/darkroomhq/darkroom/pkg/ollama"
	"github.com/darkroomhq/darkroom/pkg/processing"
	"github.com/darkroomhq/darkroom/pkg/types"
	"github.com/darkroomhq/darkroom/pkg/wikipedia"
)

func main() {
	var in, outDir, backend, model, location, userContext string
	var colorize, video, debug, noWiki bool
	var quality int

	flag.StringVar(&in, "in", "", "input scan path (jpg/png/webp)")
	flag.StringVar(&outDir, "out", "out", "output directory")
	flag.StringVar(&backend, "backend", "gemini", "vision backend: gemini or ollama")
	flag.StringVar(&model, "model", "", "analysis model name (default depends on backend)")
	flag.StringVar(&location, "location", "", "where the photo was taken, for historical context")
	flag.StringVar(&userContext, "context", "", "extra context about the photo")
	flag.BoolVar(&colorize, "colorize", false, "colorize the restored photo")
	flag.BoolVar(&video, "video", false, "also generate an animated clip (gemini only)")
	flag.BoolVar(&debug, "debug", false, "write a detection overlay image")
	flag.BoolVar(&noWiki, "nowiki", false, "disable Wikipedia context lookups")
	flag.IntVar(&quality, "quality", 95, "JPEG output quality (1-100)")

	flag.Parse()
	if in == "" {
		log.Fatalf("usage: %s -in scan.jpg [-out outdir] [-backend gemini|ollama] [-location city] [-colorize] [-video]", filepath.Base(os.Args[0]))
	}
	if err := os.MkdirAll(outDir, 0o755); err != nil {
		log.Fatal(err)
	}

	var vision client.VisionClient
	var restorer client.Restorer
	var videoGen client.VideoGenerator

	switch backend {
	case "gemini":
		g, err := gemini.NewClient(os.Getenv("GEMINI_API_KEY"), gemini.WithModels(model, "", ""))
		if err != nil {
			log.Fatalf("failed to create Gemini client: %v", err)
		}
		vision, restorer, videoGen = g, g, g
	case "ollama":
		url := os.Getenv("OLLAMA_URL")
		if url == "" {
			url = "http://localhost:11434"
		}
		o, err := ollama.NewClient(url, model)
		if err != nil {
			log.Fatalf("failed to create Ollama client: %v", err)
		}
		vision = o
		if video {
			log.Fatal("video generation requires the gemini backend")
		}
	default:
		log.Fatalf("unknown backend: %s (use 'gemini' or 'ollama')", backend)
	}

	var wiki *wikipedia.Client
	if !noWiki {
		wiki = wikipedia.NewClient()
	}

	pipeline := darkroom.NewPipeline(vision, restorer, videoGen, wiki)
	processor := processing.NewProcessor()

	img, err := processor.LoadImage(in)
	if err != nil {
		log.Fatal(err)
	}

	ctx := context.Background()
	opts := types.ProcessOptions{Location: location, UserContext: userContext, Colorize: colorize}

	if restorer == nil {
		// Analysis-only backends still locate the photo and report metadata.
		rect, analyzed, err := pipeline.Locate(ctx, img, opts)
		if err != nil {
			log.Fatal(err)
		}
		log.Printf("photo located at (%d,%d)-(%d,%d), %dx%d",
			rect.Left, rect.Top, rect.Right, rect.Bottom, rect.Width(), rect.Height())

		cropped, err := cropper.Crop(img, rect)
		if err != nil {
			log.Fatal(err)
		}
		writeOutputs(processor, outDir, cropped, nil, analyzed.Metadata, quality)
		if debug {
			writeOverlay(processor, outDir, img, rect)
		}
		return
	}

	result, err := pipeline.Process(ctx, img, opts)
	if err != nil {
		log.Fatal(err)
	}
	log.Printf("photo located at (%d,%d)-(%d,%d), %dx%d",
		result.Rect.Left, result.Rect.Top, result.Rect.Right, result.Rect.Bottom,
		result.Rect.Width(), result.Rect.Height())
	log.Printf("estimated year: %s", result.Metadata.EstimatedYear)

	writeOutputs(processor, outDir, result.Cropped, result.Restored, result.Metadata, quality)
	if debug {
		writeOverlay(processor, outDir, img, result.Rect)
	}

	if video {
		clip, err := pipeline.Animate(ctx, result.Restored, result.Metadata)
		if err != nil {
			log.Fatal(err)
		}
		clipPath := filepath.Join(outDir, "animated.mp4")
		if err := os.WriteFile(clipPath, clip, 0o644); err != nil {
			log.Fatal(err)
		}
		log.Printf("wrote %s", clipPath)
	}
}

func writeOutputs(processor *processing.Processor, outDir string, cropped, restored image.Image, metadata types.Metadata, quality int) {
	croppedPath := filepath.Join(outDir, "cropped.jpg")
	if err := processor.SaveImage(cropped, croppedPath, "jpg", quality, false); err != nil {
		log.Fatalf("failed to save crop: %v", err)
	}
	log.Printf("wrote %s", croppedPath)

	if restored != nil {
		restoredPath := filepath.Join(outDir, "restored.png")
		if err := processor.SaveImage(restored, restoredPath, "png", 0, false); err != nil {
			log.Fatalf("failed to save restored photo: %v", err)
		}
		log.Printf("wrote %s", restoredPath)
	}

	js, _ := json.MarshalIndent(metadata, "", "  ")
	metaPath := filepath.Join(outDir, "metadata.json")
	_ = os.WriteFile(metaPath, js, 0o644)
	log.Printf("wrote %s", metaPath)
}

func writeOverlay(processor *processing.Processor, outDir string, img image.Image, rect boundingbox.Rect) {
	overlay := cropper.Overlay(img, rect)
	overlayPath := filepath.Join(outDir, "000_original_with_box.png")
	if err := processor.SaveImage(overlay, overlayPath, "png", 0, false); err != nil {
		log.Printf("overlay save failed: %v", err)
		return
	}
	log.Printf("wrote %s", overlayPath)
}
