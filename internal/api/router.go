package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
)

// NewRouter builds the HTTP routing table for the service.
func NewRouter(app *App) http.Handler {
	r := chi.NewRouter()

	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)

	r.Get("/ping", PingHandler)

	r.Route("/api", func(r chi.Router) {
		r.Post("/process", app.ProcessHandler)
		r.Post("/generate-video/{id}", app.GenerateVideoHandler)
		r.Get("/restorations", app.ListRestorationsHandler)
		r.Get("/restorations/{id}", app.GetRestorationHandler)
	})

	r.Handle("/uploads/*", http.StripPrefix("/uploads", http.FileServer(http.Dir(app.UploadsDir))))
	r.Handle("/outputs/*", http.StripPrefix("/outputs", http.FileServer(http.Dir(app.OutputsDir))))

	fileServer := http.FileServer(http.Dir(app.StaticDir))
	r.Handle("/*", fileServer)

	return r
}
