package main

import (
	"log"
	"net/http"

	"github.com/darkroomhq/darkroom/internal/api"
	"github.com/darkroomhq/darkroom/internal/config"
	"github.com/darkroomhq/darkroom/internal/database"
	"github.com/darkroomhq/darkroom/internal/storage"
	"github.com/darkroomhq/darkroom/pkg/analysis"
	"github.com/darkroomhq/darkroom/pkg/client"
	"github.com/darkroomhq/darkroom/pkg/gemini"
	"github.com/darkroomhq/darkroom/pkg/ollama"
	"github.com/darkroomhq/darkroom/pkg/processing"
	"github.com/darkroomhq/darkroom/pkg/restoration"
	"github.com/darkroomhq/darkroom/pkg/wikipedia"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("configuration error: %v", err)
	}

	uploads, err := storage.NewLocalStorage(cfg.UploadsDir)
	if err != nil {
		log.Fatalf("failed to initialize upload storage: %v", err)
	}
	outputs, err := storage.NewLocalStorage(cfg.OutputsDir)
	if err != nil {
		log.Fatalf("failed to initialize output storage: %v", err)
	}

	db, err := database.NewDB(cfg.DBPath)
	if err != nil {
		log.Fatalf("failed to open database: %v", err)
	}
	defer db.Close()

	var vision client.VisionClient
	var restorer client.Restorer
	var video client.VideoGenerator

	switch cfg.Backend {
	case "gemini":
		g, err := gemini.NewClient(cfg.GeminiAPIKey,
			gemini.WithModels(cfg.AnalysisModel, cfg.RestorationModel, cfg.VideoModel))
		if err != nil {
			log.Fatalf("failed to create Gemini client: %v", err)
		}
		vision, restorer, video = g, g, g
	case "ollama":
		o, err := ollama.NewClient(cfg.OllamaURL, cfg.OllamaModel)
		if err != nil {
			log.Fatalf("failed to create Ollama client: %v", err)
		}
		vision = o
		log.Printf("ollama backend: restoration and video generation are disabled")
	}

	processor := processing.NewProcessor()
	app := &api.App{
		Uploads:       uploads,
		Outputs:       outputs,
		Repo:          database.NewRestorationRepository(db),
		Analyzer:      analysis.NewAnalyzer(vision, wikipedia.NewClient()),
		Restorer:      restoration.NewService(restorer, video, processor),
		Processor:     processor,
		MaxUploadSize: cfg.MaxUploadSize,
		UploadsDir:    cfg.UploadsDir,
		OutputsDir:    cfg.OutputsDir,
		StaticDir:     cfg.StaticDir,
	}

	addr := ":" + cfg.Port
	log.Printf("darkroom listening on %s (backend=%s)", addr, cfg.Backend)
	if err := http.ListenAndServe(addr, api.NewRouter(app)); err != nil {
		log.Fatalf("server error: %v", err)
	}
}
