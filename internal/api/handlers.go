// Package api exposes the restoration pipeline over HTTP as a JSON API.
package api

import (
	"encoding/json"
	"errors"
	"io"
	"log"
	"net/http"
	"path/filepath"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/darkroomhq/darkroom/internal/database"
	"github.com/darkroomhq/darkroom/internal/storage"
	"github.com/darkroomhq/darkroom/pkg/analysis"
	"github.com/darkroomhq/darkroom/pkg/boundingbox"
	"github.com/darkroomhq/darkroom/pkg/cropper"
	"github.com/darkroomhq/darkroom/pkg/processing"
	"github.com/darkroomhq/darkroom/pkg/restoration"
	"github.com/darkroomhq/darkroom/pkg/types"
)

// App holds the wired-up pipeline components the handlers use.
type App struct {
	Uploads   *storage.LocalStorage
	Outputs   *storage.LocalStorage
	Repo      *database.RestorationRepository
	Analyzer  *analysis.Analyzer
	Restorer  *restoration.Service
	Processor *processing.Processor

	MaxUploadSize int64
	UploadsDir    string
	OutputsDir    string
	StaticDir     string
}

// PingHandler answers health checks.
func PingHandler(w http.ResponseWriter, r *http.Request) {
	w.WriteHeader(http.StatusOK)
	w.Write([]byte("pong"))
}

type processResponse struct {
	Success  bool           `json:"success"`
	Type     string         `json:"type"`
	ID       string         `json:"id,omitempty"`
	Original string         `json:"original"`
	Cropped  string         `json:"cropped,omitempty"`
	Restored string         `json:"restored,omitempty"`
	Metadata types.Metadata `json:"metadata"`
}

// ProcessHandler runs the full pipeline on an uploaded scan: analyze,
// locate the photograph, crop it out and restore it. When the model's
// bounding box cannot be interpreted the request fails; the service
// never silently substitutes a full-frame crop.
//
// Video uploads get metadata-only analysis; restoring footage would
// require frame extraction, so no crop or restoration is produced.
func (app *App) ProcessHandler(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, app.MaxUploadSize)

	if err := r.ParseMultipartForm(app.MaxUploadSize); err != nil {
		app.writeError(w, http.StatusBadRequest, "upload too large")
		return
	}

	file, header, err := r.FormFile("file")
	if err != nil {
		app.writeError(w, http.StatusBadRequest, "missing file field")
		return
	}
	defer file.Close()

	contentType := header.Header.Get("Content-Type")
	isVideo := strings.HasPrefix(contentType, "video/")
	if !isVideo && !strings.HasPrefix(contentType, "image/") && contentType != "application/octet-stream" {
		app.writeError(w, http.StatusBadRequest, "file must be an image or video")
		return
	}

	data, err := io.ReadAll(file)
	if err != nil {
		app.writeError(w, http.StatusBadRequest, "failed to read upload")
		return
	}

	opts := types.ProcessOptions{
		Location:    r.FormValue("location"),
		UserContext: r.FormValue("context"),
		Colorize:    r.FormValue("colorize") == "true",
	}

	if isVideo {
		app.processVideo(w, r, header.Filename, contentType, data, opts)
		return
	}

	img, err := app.Processor.DecodeBytes(data)
	if err != nil {
		app.writeError(w, http.StatusBadRequest, "unsupported image format")
		return
	}

	ext := strings.ToLower(filepath.Ext(header.Filename))
	if ext == "" {
		ext = ".jpg"
	}
	uploadName, err := app.Uploads.SaveBytes(data, ext)
	if err != nil {
		app.serverError(w, "failed to store upload", err)
		return
	}

	bounds := img.Bounds()
	width, height := bounds.Dx(), bounds.Dy()

	// Re-encode without resizing so the coordinate space the model sees
	// matches the pixels we crop.
	modelData, mimeType, err := app.Processor.EncodeForModel(img, "jpg", 0, 90)
	if err != nil {
		app.serverError(w, "failed to encode image", err)
		return
	}

	result, err := app.Analyzer.AnalyzePhoto(r.Context(), modelData, mimeType, width, height, opts)
	if err != nil {
		app.writeError(w, http.StatusBadGateway, "photo analysis failed")
		log.Printf("analysis failed: %v", err)
		return
	}

	rect, err := boundingbox.Normalize(result.BoxText, width, height)
	if err != nil {
		app.writeError(w, http.StatusUnprocessableEntity, boxErrorMessage(err))
		log.Printf("bounding box rejected: %v", err)
		return
	}

	cropped, err := cropper.Crop(img, rect)
	if err != nil {
		app.serverError(w, "failed to crop photograph", err)
		return
	}

	croppedData, _, err := app.Processor.EncodeForModel(cropped, "jpg", 0, 95)
	if err != nil {
		app.serverError(w, "failed to encode cropped photograph", err)
		return
	}
	croppedName, err := app.Outputs.SaveBytes(croppedData, ".jpg")
	if err != nil {
		app.serverError(w, "failed to store cropped photograph", err)
		return
	}

	restored, err := app.Restorer.RestorePhoto(r.Context(), cropped, result.Metadata, opts.Colorize)
	if err != nil {
		app.writeError(w, http.StatusBadGateway, "restoration failed")
		log.Printf("restoration failed: %v", err)
		return
	}

	restoredData, _, err := app.Processor.EncodeForModel(restored, "png", 0, 0)
	if err != nil {
		app.serverError(w, "failed to encode restored photograph", err)
		return
	}
	restoredName, err := app.Outputs.SaveBytes(restoredData, ".png")
	if err != nil {
		app.serverError(w, "failed to store restored photograph", err)
		return
	}

	rest := database.NewRestoration(header.Filename, uploadName, croppedName, restoredName, result.Metadata)
	if err := app.Repo.Insert(rest); err != nil {
		app.serverError(w, "failed to save restoration", err)
		return
	}

	app.writeJSON(w, http.StatusOK, processResponse{
		Success:  true,
		Type:     "image",
		ID:       rest.ID,
		Original: "/uploads/" + uploadName,
		Cropped:  "/outputs/" + croppedName,
		Restored: "/outputs/" + restoredName,
		Metadata: result.Metadata,
	})
}

// processVideo handles a video upload: store it and return the model's
// historical metadata.
func (app *App) processVideo(w http.ResponseWriter, r *http.Request, filename, contentType string, data []byte, opts types.ProcessOptions) {
	ext := strings.ToLower(filepath.Ext(filename))
	if ext == "" {
		ext = ".mp4"
	}
	uploadName, err := app.Uploads.SaveBytes(data, ext)
	if err != nil {
		app.serverError(w, "failed to store upload", err)
		return
	}

	metadata, err := app.Analyzer.AnalyzeVideo(r.Context(), data, contentType, opts)
	if err != nil {
		app.writeError(w, http.StatusBadGateway, "video analysis failed")
		log.Printf("video analysis failed: %v", err)
		return
	}

	app.writeJSON(w, http.StatusOK, processResponse{
		Success:  true,
		Type:     "video",
		Original: "/uploads/" + uploadName,
		Metadata: metadata,
	})
}

type videoResponse struct {
	Success bool   `json:"success"`
	ID      string `json:"id"`
	Video   string `json:"video"`
}

// GenerateVideoHandler animates a previously restored photograph.
func (app *App) GenerateVideoHandler(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	rest, err := app.Repo.GetByID(id)
	if err != nil {
		app.writeError(w, http.StatusNotFound, "restoration not found")
		return
	}

	f, err := app.Outputs.OpenFile(rest.RestoredFile)
	if err != nil {
		app.serverError(w, "restored image missing", err)
		return
	}
	defer f.Close()

	img, err := app.Processor.Decode(f)
	if err != nil {
		app.serverError(w, "failed to decode restored image", err)
		return
	}

	clip, err := app.Restorer.AnimatePhoto(r.Context(), img, rest.Metadata)
	if err != nil {
		app.writeError(w, http.StatusBadGateway, "video generation failed")
		log.Printf("video generation failed: %v", err)
		return
	}

	videoName, err := app.Outputs.SaveBytes(clip, ".mp4")
	if err != nil {
		app.serverError(w, "failed to store video", err)
		return
	}

	if err := app.Repo.SetVideo(id, videoName); err != nil {
		app.serverError(w, "failed to save video reference", err)
		return
	}

	app.writeJSON(w, http.StatusOK, videoResponse{
		Success: true,
		ID:      id,
		Video:   "/outputs/" + videoName,
	})
}

type restorationItem struct {
	ID       string         `json:"id"`
	Original string         `json:"original"`
	Cropped  string         `json:"cropped"`
	Restored string         `json:"restored"`
	Video    string         `json:"video,omitempty"`
	Metadata types.Metadata `json:"metadata"`
	Created  string         `json:"created_at"`
}

// ListRestorationsHandler returns recent restorations, newest first.
func (app *App) ListRestorationsHandler(w http.ResponseWriter, r *http.Request) {
	restorations, err := app.Repo.List(50)
	if err != nil {
		app.serverError(w, "failed to list restorations", err)
		return
	}

	items := make([]restorationItem, 0, len(restorations))
	for _, rest := range restorations {
		items = append(items, toItem(rest))
	}
	app.writeJSON(w, http.StatusOK, items)
}

// GetRestorationHandler returns one restoration by id.
func (app *App) GetRestorationHandler(w http.ResponseWriter, r *http.Request) {
	rest, err := app.Repo.GetByID(chi.URLParam(r, "id"))
	if err != nil {
		app.writeError(w, http.StatusNotFound, "restoration not found")
		return
	}
	app.writeJSON(w, http.StatusOK, toItem(rest))
}

func toItem(rest *database.Restoration) restorationItem {
	item := restorationItem{
		ID:       rest.ID,
		Original: "/uploads/" + rest.UploadFile,
		Cropped:  "/outputs/" + rest.CroppedFile,
		Restored: "/outputs/" + rest.RestoredFile,
		Metadata: rest.Metadata,
		Created:  rest.CreatedAt.Format("2006-01-02T15:04:05Z07:00"),
	}
	if rest.VideoFile != "" {
		item.Video = "/outputs/" + rest.VideoFile
	}
	return item
}

// boxErrorMessage maps normalizer errors to client-facing text.
func boxErrorMessage(err error) string {
	switch {
	case errors.Is(err, boundingbox.ErrParse):
		return "model did not return valid JSON"
	case errors.Is(err, boundingbox.ErrSchema):
		return "model response has no bounding box"
	case errors.Is(err, boundingbox.ErrDegenerateBox):
		return "model returned an empty bounding box"
	default:
		return "could not locate the photograph"
	}
}

func (app *App) writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		log.Printf("failed to encode response: %v", err)
	}
}

func (app *App) writeError(w http.ResponseWriter, status int, message string) {
	app.writeJSON(w, status, map[string]string{"error": message})
}

func (app *App) serverError(w http.ResponseWriter, message string, err error) {
	log.Printf("%s: %v", message, err)
	app.writeError(w, http.StatusInternalServerError, message)
}
