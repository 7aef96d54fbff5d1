// Package api is the HTTP facade over the fragments service: chi handlers
// that translate requests into entity operations and taxonomy errors into
// status codes. All routes require an authenticated owner in the request
// context (see the auth package).
package api

import (
	"errors"
	"io"
	"log/slog"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/render"

	"github.com/fragsvc/fragments/pkg/fragments"
	"github.com/fragsvc/fragments/pkg/fragments/auth"
)

// DefaultMaxBodyBytes caps request bodies when no limit is configured.
const DefaultMaxBodyBytes = 5 << 20

// Config options for the handler.
type Config struct {
	// BaseURL is used to build the Location header on create. When empty,
	// the request's Host header is used.
	BaseURL string

	// MaxBodyBytes caps POST/PUT bodies; DefaultMaxBodyBytes when zero.
	MaxBodyBytes int64
}

// Handler serves the /v1/fragments routes.
type Handler struct {
	svc          fragments.Service
	baseURL      string
	maxBodyBytes int64
}

// New creates a fragments HTTP handler.
func New(svc fragments.Service, cfg Config) *Handler {
	maxBody := cfg.MaxBodyBytes
	if maxBody <= 0 {
		maxBody = DefaultMaxBodyBytes
	}
	return &Handler{
		svc:          svc,
		baseURL:      strings.TrimSuffix(cfg.BaseURL, "/"),
		maxBodyBytes: maxBody,
	}
}

// Routes returns the fragment routes, relative to the mount point.
func (h *Handler) Routes() chi.Router {
	r := chi.NewRouter()

	r.Get("/", h.ListFragments)
	r.Post("/", h.CreateFragment)
	r.Get("/{id}", h.GetFragment)
	r.Get("/{id}/info", h.GetFragmentInfo)
	r.Put("/{id}", h.UpdateFragment)
	r.Delete("/{id}", h.DeleteFragment)

	return r
}

// ListFragments returns the caller's fragment ids, or full metadata
// records with ?expand=1.
func (h *Handler) ListFragments(w http.ResponseWriter, r *http.Request) {
	ownerID := auth.OwnerID(r.Context())

	var payload interface{}
	var err error
	if r.URL.Query().Get("expand") == "1" {
		payload, err = h.svc.ListFragments(r.Context(), ownerID)
	} else {
		payload, err = h.svc.ListFragmentIDs(r.Context(), ownerID)
	}
	if err != nil {
		slog.Error("listing fragments failed", "owner_id", ownerID, "error", err)
		respondServiceError(w, r, err)
		return
	}

	render.JSON(w, r, listEnvelope{Status: "ok", Fragments: payload})
}

// CreateFragment stores a new fragment from the raw request body and the
// Content-Type header.
func (h *Handler) CreateFragment(w http.ResponseWriter, r *http.Request) {
	ownerID := auth.OwnerID(r.Context())
	contentType := r.Header.Get("Content-Type")

	if !h.svc.IsSupportedType(contentType) {
		respondError(w, r, http.StatusUnsupportedMediaType, "Unsupported media type")
		return
	}

	data, ok := h.readBody(w, r)
	if !ok {
		return
	}

	fragment, err := h.svc.CreateFragment(r.Context(), fragments.CreateFragmentRequest{
		OwnerID:     ownerID,
		ContentType: contentType,
		Data:        data,
	})
	if err != nil {
		slog.Error("creating fragment failed", "owner_id", ownerID, "content_type", contentType, "error", err)
		respondServiceError(w, r, err)
		return
	}

	w.Header().Set("Location", h.locationFor(r, fragment.ID))
	respondFragment(w, r, http.StatusCreated, fragment)
}

// GetFragment returns the fragment's data, converted when the id carries
// an extension.
func (h *Handler) GetFragment(w http.ResponseWriter, r *http.Request) {
	ownerID := auth.OwnerID(r.Context())
	id, ext := splitExtension(chi.URLParam(r, "id"))

	mediaType, data, err := h.svc.GetConvertedData(r.Context(), ownerID, id, ext)
	if err != nil {
		slog.Error("retrieving fragment failed", "owner_id", ownerID, "fragment_id", id, "ext", ext, "error", err)
		respondServiceError(w, r, err)
		return
	}

	w.Header().Set("Content-Type", mediaType)
	w.WriteHeader(http.StatusOK)
	w.Write(data)
}

// GetFragmentInfo returns the fragment's metadata record.
func (h *Handler) GetFragmentInfo(w http.ResponseWriter, r *http.Request) {
	ownerID := auth.OwnerID(r.Context())
	id := chi.URLParam(r, "id")

	fragment, err := h.svc.GetFragment(r.Context(), ownerID, id)
	if err != nil {
		slog.Error("retrieving fragment info failed", "owner_id", ownerID, "fragment_id", id, "error", err)
		respondServiceError(w, r, err)
		return
	}

	respondFragment(w, r, http.StatusOK, fragment)
}

// UpdateFragment replaces the fragment's data. The declared Content-Type
// must match the fragment's immutable type.
func (h *Handler) UpdateFragment(w http.ResponseWriter, r *http.Request) {
	ownerID := auth.OwnerID(r.Context())
	id := chi.URLParam(r, "id")

	data, ok := h.readBody(w, r)
	if !ok {
		return
	}

	fragment, err := h.svc.SetData(r.Context(), fragments.SetDataRequest{
		OwnerID:     ownerID,
		FragmentID:  id,
		ContentType: r.Header.Get("Content-Type"),
		Data:        data,
	})
	if err != nil {
		slog.Error("updating fragment failed", "owner_id", ownerID, "fragment_id", id, "error", err)
		respondServiceError(w, r, err)
		return
	}

	respondFragment(w, r, http.StatusOK, fragment)
}

// DeleteFragment removes the fragment's data and metadata.
func (h *Handler) DeleteFragment(w http.ResponseWriter, r *http.Request) {
	ownerID := auth.OwnerID(r.Context())
	id := chi.URLParam(r, "id")

	deleted, err := h.svc.DeleteFragment(r.Context(), ownerID, id)
	if err != nil {
		slog.Error("deleting fragment failed", "owner_id", ownerID, "fragment_id", id, "error", err)
		respondServiceError(w, r, err)
		return
	}
	if !deleted {
		respondError(w, r, http.StatusNotFound, "Fragment not found")
		return
	}

	render.JSON(w, r, statusEnvelope{Status: "ok"})
}

// readBody captures the raw request body up to the configured limit. On
// failure it writes the error response and returns ok=false.
func (h *Handler) readBody(w http.ResponseWriter, r *http.Request) ([]byte, bool) {
	data, err := io.ReadAll(http.MaxBytesReader(w, r.Body, h.maxBodyBytes))
	if err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			respondError(w, r, http.StatusRequestEntityTooLarge, "Request body too large")
		} else {
			respondError(w, r, http.StatusBadRequest, "Unable to read request body")
		}
		return nil, false
	}
	return data, true
}

func (h *Handler) locationFor(r *http.Request, fragmentID string) string {
	base := h.baseURL
	if base == "" {
		scheme := "http"
		if r.TLS != nil {
			scheme = "https"
		}
		base = scheme + "://" + r.Host
	}
	return base + "/v1/fragments/" + fragmentID
}

// splitExtension separates an optional conversion extension from the id.
// Fragment ids are UUIDs and never contain dots.
func splitExtension(param string) (id, ext string) {
	if i := strings.IndexByte(param, '.'); i >= 0 {
		return param[:i], param[i+1:]
	}
	return param, ""
}
