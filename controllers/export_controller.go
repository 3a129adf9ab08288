package controllers

import (
	"fmt"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"github.com/blogem/promptforge/models"
	"github.com/blogem/promptforge/services"
)

// ExportController handles export requests and signed downloads
type ExportController struct {
	services *services.Services
	logger   *zap.Logger
}

// NewExportController creates a new export controller
func NewExportController(services *services.Services, logger *zap.Logger) *ExportController {
	return &ExportController{
		services: services,
		logger:   logger,
	}
}

// Index handles GET /api/exports
func (c *ExportController) Index(w http.ResponseWriter, r *http.Request) {
	limit, err := queryInt(r, "limit")
	if err != nil {
		handleError(w, r, c.logger, err)
		return
	}

	exports, err := c.services.Exports.GetExportHistory(r.Context(), limit)
	if err != nil {
		handleError(w, r, c.logger, err)
		return
	}

	writeJSON(w, http.StatusOK, exports)
}

// Create handles POST /api/exports. The export runs in the background; the
// response carries the request to poll.
func (c *ExportController) Create(w http.ResponseWriter, r *http.Request) {
	var form models.ExportForm
	if err := decodeJSON(r, &form); err != nil {
		handleError(w, r, c.logger, err)
		return
	}

	req, err := c.services.Exports.CreateExport(r.Context(), &form)
	if err != nil {
		handleError(w, r, c.logger, err)
		return
	}

	w.Header().Set("Location", "/api/exports/"+req.ID)
	writeJSON(w, http.StatusAccepted, req)
}

// Show handles GET /api/exports/{id}
func (c *ExportController) Show(w http.ResponseWriter, r *http.Request) {
	req, err := c.services.Exports.GetExportStatus(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		handleError(w, r, c.logger, err)
		return
	}

	writeJSON(w, http.StatusOK, req)
}

// DownloadURL handles GET /api/exports/{id}/download-url
func (c *ExportController) DownloadURL(w http.ResponseWriter, r *http.Request) {
	link, err := c.services.Exports.GetDownloadURL(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		handleError(w, r, c.logger, err)
		return
	}

	writeJSON(w, http.StatusOK, link)
}

// Download handles GET /downloads/{id}; the signed query string is the only credential
func (c *ExportController) Download(w http.ResponseWriter, r *http.Request) {
	query := r.URL.Query()

	download, err := c.services.Exports.OpenDownload(r.Context(), chi.URLParam(r, "id"), query.Get("expires"), query.Get("sig"))
	if err != nil {
		handleError(w, r, c.logger, err)
		return
	}

	w.Header().Set("Content-Type", download.ContentType)
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", download.FileName))
	w.Header().Set("Content-Length", strconv.Itoa(len(download.Content)))
	w.Header().Set("Cache-Control", "no-store")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(download.Content)
}
