package transcriptserver

import (
	"bytes"
	"embed"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"time"

	"github.com/anatolykoptev/yt_transcript/internal/engine"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
)

const maxBodyBytes = 64 << 10

//go:embed web/index.html
var webFS embed.FS

// Handler serves the transcript API and the web form.
type Handler struct {
	svc *Service
}

func NewHandler(svc *Service) *Handler {
	return &Handler{svc: svc}
}

// Router builds the chi router with logging, panic recovery and CORS.
func (h *Handler) Router(allowedOrigins []string) http.Handler {
	if len(allowedOrigins) == 0 {
		allowedOrigins = []string{"*"}
	}

	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(requestLogger)
	r.Use(recoverJSON)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins: allowedOrigins,
		AllowedMethods: []string{"GET", "POST", "OPTIONS"},
		AllowedHeaders: []string{"Accept", "Content-Type"},
		MaxAge:         300,
	}))

	r.NotFound(func(w http.ResponseWriter, _ *http.Request) {
		writeJSON(w, http.StatusNotFound, engine.ErrorResponse{Error: "Not found"})
	})
	r.MethodNotAllowed(func(w http.ResponseWriter, _ *http.Request) {
		writeJSON(w, http.StatusMethodNotAllowed, engine.ErrorResponse{Error: "Method not allowed"})
	})

	r.Get("/", h.index)
	r.Get("/health", h.health)
	r.Get("/metrics", h.metrics)
	r.Route("/api", func(api chi.Router) {
		api.Post("/transcript", h.postTranscript)
	})
	return r
}

func (h *Handler) postTranscript(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, maxBodyBytes)

	var req engine.TranscriptRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		engine.IncrTranscriptRequests()
		engine.IncrInvalidRequests()
		var maxErr *http.MaxBytesError
		if errors.As(err, &maxErr) {
			writeJSON(w, http.StatusRequestEntityTooLarge, engine.ErrorResponse{Error: "Request body too large"})
			return
		}
		if errors.Is(err, io.EOF) {
			writeAPIError(w, errURLRequired)
			return
		}
		writeAPIError(w, errInvalidBody)
		return
	}

	res, err := h.svc.Transcript(r.Context(), req.VideoURL, "")
	if err != nil {
		var apiErr *APIError
		if !errors.As(err, &apiErr) {
			apiErr = errInternal
		}
		writeAPIError(w, apiErr)
		return
	}
	writeJSON(w, http.StatusOK, engine.TranscriptResponse{Transcript: res.Transcript})
}

func (h *Handler) index(w http.ResponseWriter, r *http.Request) {
	page, err := webFS.ReadFile("web/index.html")
	if err != nil {
		writeAPIError(w, errInternal)
		return
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	http.ServeContent(w, r, "index.html", time.Time{}, bytes.NewReader(page))
}

func (h *Handler) health(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (h *Handler) metrics(w http.ResponseWriter, _ *http.Request) {
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	_, _ = io.WriteString(w, engine.FormatMetrics())
}
