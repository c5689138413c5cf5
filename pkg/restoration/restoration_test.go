package restoration

import (
	"bytes"
	"context"
	"image"
	"image/color"
	"image/jpeg"
	"strings"
	"testing"
	"unicode/utf8"

	"github.com/darkroomhq/darkroom/pkg/processing"
	"github.com/darkroomhq/darkroom/pkg/types"
)

type fakeRestorer struct {
	lastPrompt string
	result     []byte
	err        error
}

func (f *fakeRestorer) Restore(ctx context.Context, prompt string, imageData []byte, mimeType string) ([]byte, error) {
	f.lastPrompt = prompt
	return f.result, f.err
}

type fakeVideoGenerator struct {
	lastPrompt string
	lastImage  []byte
	result     []byte
	err        error
}

func (f *fakeVideoGenerator) GenerateVideo(ctx context.Context, prompt string, imageData []byte, mimeType string) ([]byte, error) {
	f.lastPrompt = prompt
	f.lastImage = imageData
	return f.result, f.err
}

func testImage(width, height int) image.Image {
	img := image.NewRGBA(image.Rect(0, 0, width, height))
	for y := 0; y < height; y++ {
		for x := 0; x < width; x++ {
			img.Set(x, y, color.RGBA{200, 180, 160, 255})
		}
	}
	return img
}

func encodeJPEG(t *testing.T, img image.Image) []byte {
	t.Helper()
	var buf bytes.Buffer
	if err := jpeg.Encode(&buf, img, nil); err != nil {
		t.Fatal(err)
	}
	return buf.Bytes()
}

func TestRestorePhoto(t *testing.T) {
	restorer := &fakeRestorer{result: encodeJPEG(t, testImage(500, 240))}
	svc := NewService(restorer, nil, processing.NewProcessor())

	metadata := types.Metadata{
		EstimatedYear:   "1942",
		EstimatedPeriod: "Mid-20th century",
		Notes:           "Wartime family portrait.",
	}

	out, err := svc.RestorePhoto(context.Background(), testImage(500, 240), metadata, true)
	if err != nil {
		t.Fatalf("RestorePhoto failed: %v", err)
	}
	if out.Bounds().Dx() != 500 || out.Bounds().Dy() != 240 {
		t.Errorf("unexpected restored dimensions %dx%d", out.Bounds().Dx(), out.Bounds().Dy())
	}

	if !strings.Contains(restorer.lastPrompt, "1942") {
		t.Error("restoration prompt should include the estimated year")
	}
	if !strings.Contains(restorer.lastPrompt, "Colorize") {
		t.Error("restoration prompt should request colorization")
	}
	if !strings.Contains(restorer.lastPrompt, "Wartime family portrait.") {
		t.Error("restoration prompt should include metadata notes")
	}
}

func TestRestorePhotoNoColorize(t *testing.T) {
	restorer := &fakeRestorer{result: encodeJPEG(t, testImage(10, 10))}
	svc := NewService(restorer, nil, processing.NewProcessor())

	_, err := svc.RestorePhoto(context.Background(), testImage(10, 10), types.Metadata{}, false)
	if err != nil {
		t.Fatalf("RestorePhoto failed: %v", err)
	}
	if strings.Contains(restorer.lastPrompt, "Colorize") {
		t.Error("prompt should not request colorization when disabled")
	}
	if !strings.Contains(restorer.lastPrompt, "Keep the original color scheme") {
		t.Error("prompt should ask to keep the original colors")
	}
}

func TestRestorePhotoBadModelOutput(t *testing.T) {
	restorer := &fakeRestorer{result: []byte("not an image")}
	svc := NewService(restorer, nil, processing.NewProcessor())

	if _, err := svc.RestorePhoto(context.Background(), testImage(10, 10), types.Metadata{}, true); err == nil {
		t.Error("expected error when model returns undecodable bytes")
	}
}

func TestAnimatePhotoPadsTo16x9(t *testing.T) {
	video := &fakeVideoGenerator{result: []byte("mp4")}
	svc := NewService(&fakeRestorer{}, video, processing.NewProcessor())

	clip, err := svc.AnimatePhoto(context.Background(), testImage(900, 900), types.Metadata{EstimatedYear: "1950"})
	if err != nil {
		t.Fatalf("AnimatePhoto failed: %v", err)
	}
	if string(clip) != "mp4" {
		t.Errorf("unexpected clip bytes %q", clip)
	}

	sent, err := processing.NewProcessor().DecodeBytes(video.lastImage)
	if err != nil {
		t.Fatalf("failed to decode image sent to video model: %v", err)
	}
	if sent.Bounds().Dx() != 1600 || sent.Bounds().Dy() != 900 {
		t.Errorf("expected 1600x900 padded input, got %dx%d", sent.Bounds().Dx(), sent.Bounds().Dy())
	}
}

func TestAnimatePhotoUnconfigured(t *testing.T) {
	svc := NewService(&fakeRestorer{}, nil, processing.NewProcessor())

	if _, err := svc.AnimatePhoto(context.Background(), testImage(10, 10), types.Metadata{}); err == nil {
		t.Error("expected error when video generation is not configured")
	}
}

func TestAnimationPromptTruncatesNotesOnRuneBoundary(t *testing.T) {
	metadata := types.Metadata{
		EstimatedYear: "1940",
		Notes:         strings.Repeat("戦", 300),
	}

	prompt := animationPrompt(metadata)
	if !utf8.ValidString(prompt) {
		t.Error("prompt is not valid UTF-8")
	}
	if strings.Contains(prompt, strings.Repeat("戦", 201)) {
		t.Error("notes were not truncated")
	}
	if !strings.Contains(prompt, strings.Repeat("戦", 200)) {
		t.Error("truncated notes missing from prompt")
	}
}
