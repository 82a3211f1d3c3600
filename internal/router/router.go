package router

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"github.com/parisxmas/crowdtest/internal/handler"
	mw "github.com/parisxmas/crowdtest/internal/middleware"
)

// New wires the submission endpoint, a health probe and, when staticDir is
// set, the crowd-testing site itself.
func New(log *zap.Logger, subH *handler.SubmissionHandler, staticDir string) *chi.Mux {
	r := chi.NewRouter()

	// Global middleware
	r.Use(mw.Recovery(log))
	r.Use(mw.Logger(log))
	r.Use(mw.CORS)

	r.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"status":"ok"}`))
	})

	// The handler dispatches on method itself so that every non-POST
	// request gets the JSON 405 body.
	r.HandleFunc("/api/submit", subH.Submit)
	r.HandleFunc("/submit.php", subH.Submit)

	if staticDir != "" {
		r.Handle("/*", http.FileServer(http.Dir(staticDir)))
	}

	return r
}
