package api

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"image"
	"image/color"
	"image/jpeg"
	"image/png"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"net/textproto"
	"path/filepath"
	"testing"

	"github.com/darkroomhq/darkroom/internal/database"
	"github.com/darkroomhq/darkroom/internal/storage"
	"github.com/darkroomhq/darkroom/pkg/analysis"
	"github.com/darkroomhq/darkroom/pkg/processing"
	"github.com/darkroomhq/darkroom/pkg/restoration"
	"github.com/darkroomhq/darkroom/pkg/types"
)

type fakeVisionClient struct {
	response string
	err      error
}

func (f *fakeVisionClient) Analyze(ctx context.Context, prompt string, imageData []byte, mimeType string) (string, error) {
	return f.response, f.err
}

type fakeRestorer struct {
	output []byte
	err    error
}

func (f *fakeRestorer) Restore(ctx context.Context, prompt string, imageData []byte, mimeType string) ([]byte, error) {
	return f.output, f.err
}

type fakeVideoGenerator struct {
	output []byte
	err    error
}

func (f *fakeVideoGenerator) GenerateVideo(ctx context.Context, prompt string, imageData []byte, mimeType string) ([]byte, error) {
	return f.output, f.err
}

func sampleMetadata() types.Metadata {
	return types.Metadata{
		EstimatedYear:     "1942",
		EstimatedPeriod:   "Second Sino-Japanese War",
		HistoricalContext: "Wartime Shanghai",
	}
}

const analysisResponse = `{
	"bounding_box": {"x": 20, "y": 16, "width": 100, "height": 80},
	"metadata": {
		"estimated_year": "1942",
		"estimated_period": "Second Sino-Japanese War",
		"historical_context": "Wartime Shanghai",
		"notes": "Studio portrait"
	}
}`

func testJPEG(t *testing.T, width, height int) []byte {
	t.Helper()

	img := image.NewRGBA(image.Rect(0, 0, width, height))
	for y := 0; y < height; y++ {
		for x := 0; x < width; x++ {
			img.Set(x, y, color.RGBA{uint8(x % 256), uint8(y % 256), 128, 255})
		}
	}

	var buf bytes.Buffer
	if err := jpeg.Encode(&buf, img, &jpeg.Options{Quality: 90}); err != nil {
		t.Fatal(err)
	}
	return buf.Bytes()
}

func testPNG(t *testing.T, width, height int) []byte {
	t.Helper()

	img := image.NewRGBA(image.Rect(0, 0, width, height))
	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		t.Fatal(err)
	}
	return buf.Bytes()
}

func newTestApp(t *testing.T, vision *fakeVisionClient, restorer *fakeRestorer, video *fakeVideoGenerator) (*App, http.Handler) {
	t.Helper()

	uploadsDir := t.TempDir()
	outputsDir := t.TempDir()

	uploads, err := storage.NewLocalStorage(uploadsDir)
	if err != nil {
		t.Fatal(err)
	}
	outputs, err := storage.NewLocalStorage(outputsDir)
	if err != nil {
		t.Fatal(err)
	}

	db, err := database.NewDB(filepath.Join(t.TempDir(), "test.db"))
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { db.Close() })

	processor := processing.NewProcessor()
	app := &App{
		Uploads:       uploads,
		Outputs:       outputs,
		Repo:          database.NewRestorationRepository(db),
		Analyzer:      analysis.NewAnalyzer(vision, nil),
		Restorer:      restoration.NewService(restorer, video, processor),
		Processor:     processor,
		MaxUploadSize: 10 << 20,
		UploadsDir:    uploadsDir,
		OutputsDir:    outputsDir,
		StaticDir:     t.TempDir(),
	}
	return app, NewRouter(app)
}

func multipartUpload(t *testing.T, filename, contentType string, data []byte, fields map[string]string) (*bytes.Buffer, string) {
	t.Helper()

	var body bytes.Buffer
	mw := multipart.NewWriter(&body)

	h := make(textproto.MIMEHeader)
	h.Set("Content-Disposition", fmt.Sprintf(`form-data; name="file"; filename=%q`, filename))
	h.Set("Content-Type", contentType)
	part, err := mw.CreatePart(h)
	if err != nil {
		t.Fatal(err)
	}
	if _, err := part.Write(data); err != nil {
		t.Fatal(err)
	}

	for k, v := range fields {
		if err := mw.WriteField(k, v); err != nil {
			t.Fatal(err)
		}
	}
	if err := mw.Close(); err != nil {
		t.Fatal(err)
	}
	return &body, mw.FormDataContentType()
}

func TestProcessEndToEnd(t *testing.T) {
	vision := &fakeVisionClient{response: "```json\n" + analysisResponse + "\n```"}
	restorer := &fakeRestorer{output: testPNG(t, 100, 80)}
	_, router := newTestApp(t, vision, restorer, nil)

	body, contentType := multipartUpload(t, "scan.jpg", "image/jpeg", testJPEG(t, 200, 160), map[string]string{
		"colorize": "true",
	})

	req := httptest.NewRequest(http.MethodPost, "/api/process", body)
	req.Header.Set("Content-Type", contentType)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", rec.Code, rec.Body.String())
	}

	var resp processResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("invalid response JSON: %v", err)
	}
	if !resp.Success {
		t.Error("expected success")
	}
	if resp.Type != "image" {
		t.Errorf("expected type image, got %q", resp.Type)
	}
	if resp.ID == "" {
		t.Error("expected a restoration id")
	}
	if resp.Metadata.EstimatedYear != "1942" {
		t.Errorf("unexpected year: %s", resp.Metadata.EstimatedYear)
	}

	// The cropped artifact must match the model's box, 100x80 at (20,16).
	croppedReq := httptest.NewRequest(http.MethodGet, resp.Cropped, nil)
	croppedRec := httptest.NewRecorder()
	router.ServeHTTP(croppedRec, croppedReq)
	if croppedRec.Code != http.StatusOK {
		t.Fatalf("cropped file not served: %d", croppedRec.Code)
	}
	cropped, _, err := image.Decode(bytes.NewReader(croppedRec.Body.Bytes()))
	if err != nil {
		t.Fatalf("cropped file is not an image: %v", err)
	}
	if cropped.Bounds().Dx() != 100 || cropped.Bounds().Dy() != 80 {
		t.Errorf("unexpected crop size %dx%d", cropped.Bounds().Dx(), cropped.Bounds().Dy())
	}
}

func TestProcessVideoUpload(t *testing.T) {
	vision := &fakeVisionClient{response: `{
		"metadata": {"estimated_year": "1938", "notes": "Street scenes before the war."}
	}`}
	app, router := newTestApp(t, vision, &fakeRestorer{}, nil)

	body, contentType := multipartUpload(t, "footage.mp4", "video/mp4", []byte("not real mp4 data"), map[string]string{
		"context": "family film reel",
	})

	req := httptest.NewRequest(http.MethodPost, "/api/process", body)
	req.Header.Set("Content-Type", contentType)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", rec.Code, rec.Body.String())
	}

	var resp processResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("invalid response JSON: %v", err)
	}
	if resp.Type != "video" {
		t.Errorf("expected type video, got %q", resp.Type)
	}
	if resp.Metadata.EstimatedYear != "1938" {
		t.Errorf("unexpected year: %s", resp.Metadata.EstimatedYear)
	}
	if resp.Cropped != "" || resp.Restored != "" {
		t.Error("video analysis must not produce crop or restoration artifacts")
	}

	// The footage itself is stored and served like any upload.
	origReq := httptest.NewRequest(http.MethodGet, resp.Original, nil)
	origRec := httptest.NewRecorder()
	router.ServeHTTP(origRec, origReq)
	if origRec.Code != http.StatusOK {
		t.Errorf("uploaded footage not served: %d", origRec.Code)
	}

	// Metadata-only runs create no restoration record.
	restorations, err := app.Repo.List(10)
	if err != nil {
		t.Fatal(err)
	}
	if len(restorations) != 0 {
		t.Errorf("expected no restorations, found %d", len(restorations))
	}
}

func TestProcessRejectsNonImage(t *testing.T) {
	_, router := newTestApp(t, &fakeVisionClient{}, &fakeRestorer{}, nil)

	body, contentType := multipartUpload(t, "notes.txt", "text/plain", []byte("not an image"), nil)

	req := httptest.NewRequest(http.MethodPost, "/api/process", body)
	req.Header.Set("Content-Type", contentType)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	if rec.Code != http.StatusBadRequest {
		t.Errorf("expected 400, got %d", rec.Code)
	}
}

func TestProcessRejectsMissingFile(t *testing.T) {
	_, router := newTestApp(t, &fakeVisionClient{}, &fakeRestorer{}, nil)

	var body bytes.Buffer
	mw := multipart.NewWriter(&body)
	mw.WriteField("location", "Shanghai")
	mw.Close()

	req := httptest.NewRequest(http.MethodPost, "/api/process", &body)
	req.Header.Set("Content-Type", mw.FormDataContentType())
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	if rec.Code != http.StatusBadRequest {
		t.Errorf("expected 400, got %d", rec.Code)
	}
}

func TestProcessRejectsUnusableBoundingBox(t *testing.T) {
	vision := &fakeVisionClient{response: `{
		"bounding_box": {"x": 10, "y": 10, "width": 0, "height": 0},
		"metadata": {"estimated_year": "1950"}
	}`}
	app, router := newTestApp(t, vision, &fakeRestorer{}, nil)

	body, contentType := multipartUpload(t, "scan.jpg", "image/jpeg", testJPEG(t, 200, 160), nil)

	req := httptest.NewRequest(http.MethodPost, "/api/process", body)
	req.Header.Set("Content-Type", contentType)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	if rec.Code != http.StatusUnprocessableEntity {
		t.Fatalf("expected 422, got %d: %s", rec.Code, rec.Body.String())
	}

	// A rejected box must not leave a half-finished restoration behind.
	restorations, err := app.Repo.List(10)
	if err != nil {
		t.Fatal(err)
	}
	if len(restorations) != 0 {
		t.Errorf("expected no restorations, found %d", len(restorations))
	}
}

func TestGenerateVideo(t *testing.T) {
	video := &fakeVideoGenerator{output: []byte("mp4 bytes")}
	app, router := newTestApp(t, &fakeVisionClient{}, &fakeRestorer{}, video)

	restoredName, err := app.Outputs.SaveBytes(testPNG(t, 160, 90), ".png")
	if err != nil {
		t.Fatal(err)
	}
	rest := database.NewRestoration("scan.jpg", "up.jpg", "crop.jpg", restoredName, sampleMetadata())
	if err := app.Repo.Insert(rest); err != nil {
		t.Fatal(err)
	}

	req := httptest.NewRequest(http.MethodPost, "/api/generate-video/"+rest.ID, nil)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", rec.Code, rec.Body.String())
	}

	var resp videoResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatal(err)
	}
	if resp.Video == "" {
		t.Fatal("expected a video URL")
	}

	got, err := app.Repo.GetByID(rest.ID)
	if err != nil {
		t.Fatal(err)
	}
	if got.VideoFile == "" {
		t.Error("video file was not recorded")
	}
}

func TestGenerateVideoUnknownID(t *testing.T) {
	_, router := newTestApp(t, &fakeVisionClient{}, &fakeRestorer{}, &fakeVideoGenerator{})

	req := httptest.NewRequest(http.MethodPost, "/api/generate-video/missing", nil)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	if rec.Code != http.StatusNotFound {
		t.Errorf("expected 404, got %d", rec.Code)
	}
}

func TestListAndGetRestorations(t *testing.T) {
	app, router := newTestApp(t, &fakeVisionClient{}, &fakeRestorer{}, nil)

	rest := database.NewRestoration("scan.jpg", "up.jpg", "crop.jpg", "restored.png", sampleMetadata())
	if err := app.Repo.Insert(rest); err != nil {
		t.Fatal(err)
	}

	req := httptest.NewRequest(http.MethodGet, "/api/restorations", nil)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	var items []restorationItem
	if err := json.Unmarshal(rec.Body.Bytes(), &items); err != nil {
		t.Fatal(err)
	}
	if len(items) != 1 {
		t.Fatalf("expected 1 restoration, got %d", len(items))
	}
	if items[0].Restored != "/outputs/restored.png" {
		t.Errorf("unexpected restored URL: %s", items[0].Restored)
	}

	getReq := httptest.NewRequest(http.MethodGet, "/api/restorations/"+rest.ID, nil)
	getRec := httptest.NewRecorder()
	router.ServeHTTP(getRec, getReq)
	if getRec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", getRec.Code)
	}

	var item restorationItem
	if err := json.Unmarshal(getRec.Body.Bytes(), &item); err != nil {
		t.Fatal(err)
	}
	if item.Metadata.EstimatedYear != "1942" {
		t.Errorf("unexpected year: %s", item.Metadata.EstimatedYear)
	}
}
