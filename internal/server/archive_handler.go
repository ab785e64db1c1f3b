// Package server exposes a finished tonal art map over HTTP.
package server

import (
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"path"
	"strings"

	"github.com/AdamKhaddaj/ScribbleRendering/internal/archive"
	"github.com/AdamKhaddaj/ScribbleRendering/internal/output"
	"github.com/AdamKhaddaj/ScribbleRendering/internal/pack"
)

// ImagePrefix is the URL prefix images are served under.
const ImagePrefix = "/tam/"

// ArchiveHandler serves canvases and packed images from an archive database.
type ArchiveHandler struct {
	reader       *archive.Reader
	logger       *slog.Logger
	cacheControl string
}

// ArchiveConfig configures the archive handler.
type ArchiveConfig struct {
	ArchivePath  string
	CacheControl string
}

// NewArchiveHandler creates a new archive handler.
func NewArchiveHandler(cfg ArchiveConfig, logger *slog.Logger) (*ArchiveHandler, error) {
	reader, err := archive.OpenReader(cfg.ArchivePath)
	if err != nil {
		return nil, fmt.Errorf("failed to open archive: %w", err)
	}

	return &ArchiveHandler{
		reader:       reader,
		logger:       logger,
		cacheControl: cfg.CacheControl,
	}, nil
}

// Handler returns the HTTP handler function.
func (h *ArchiveHandler) Handler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == ImagePrefix+"metadata.json" {
			h.serveMetadata(w)
			return
		}
		h.serveImage(w, r)
	}
}

func (h *ArchiveHandler) serveImage(w http.ResponseWriter, r *http.Request) {
	ref, ok := parseImagePath(r.URL.Path)
	if !ok {
		http.NotFound(w, r)
		return
	}

	var (
		data []byte
		err  error
	)
	if ref.Packed {
		triplet, ok := pack.ParseTripletName(ref.Name)
		if !ok {
			http.NotFound(w, r)
			return
		}
		data, err = h.reader.ReadPackedPNG(triplet, ref.Mip)
	} else {
		data, err = h.reader.ReadCanvasPNG(ref.Tone, ref.Mip)
	}
	if errors.Is(err, archive.ErrNotFound) {
		http.NotFound(w, r)
		return
	}
	if err != nil {
		h.log().Error("Failed to read image", "path", r.URL.Path, "error", err)
		http.Error(w, "Failed to read image", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Cache-Control", h.cacheControl)
	w.Header().Set("Content-Type", "image/png")
	if _, err := w.Write(data); err != nil {
		h.log().Error("Failed to write response", "error", err)
	}
}

func (h *ArchiveHandler) serveMetadata(w http.ResponseWriter) {
	meta, err := h.reader.Metadata()
	if err != nil {
		h.log().Error("Failed to read metadata", "error", err)
		http.Error(w, "Failed to read metadata", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(meta); err != nil {
		h.log().Error("Failed to write response", "error", err)
	}
}

// Close closes the archive reader.
func (h *ArchiveHandler) Close() error {
	return h.reader.Close()
}

func (h *ArchiveHandler) log() *slog.Logger {
	if h.logger != nil {
		return h.logger
	}
	return slog.Default()
}

// parseImagePath parses a path like /tam/TAM_Tone2_Mip1.png or
// /tam/TAM_package_dark_mip0.png.
func parseImagePath(requestPath string) (output.FileRef, bool) {
	if !strings.HasPrefix(requestPath, ImagePrefix) {
		return output.FileRef{}, false
	}
	return output.ParseFileName(path.Base(requestPath))
}
