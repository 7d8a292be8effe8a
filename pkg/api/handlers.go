package api

import (
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"
	"path"
	"path/filepath"

	"github.com/gin-gonic/gin"

	"walrusweb/pkg/auth"
	"walrusweb/pkg/models"
	"walrusweb/pkg/rates"
	"walrusweb/pkg/services"
	"walrusweb/pkg/share"
)

// Handlers contains all HTTP handlers for the API
type Handlers struct {
	quoteService services.QuoteService
	renderer     *share.Renderer
	production   bool
	logger       *slog.Logger
}

type HandlersOptionFunc func(*Handlers)

// WithLogger specifies the logger object to use for logging messages
func WithLogger(logger *slog.Logger) HandlersOptionFunc {
	return func(h *Handlers) {
		h.logger = logger
	}
}

// WithProduction switches on production behavior: the frontend and share
// pages are served, and a missing operator secret is a server error
func WithProduction(production bool) HandlersOptionFunc {
	return func(h *Handlers) {
		h.production = production
	}
}

// WithRenderer specifies the share page renderer used in production
func WithRenderer(renderer *share.Renderer) HandlersOptionFunc {
	return func(h *Handlers) {
		h.renderer = renderer
	}
}

// NewHandlers creates a new Handlers instance
func NewHandlers(quoteService services.QuoteService, opts ...HandlersOptionFunc) *Handlers {
	h := &Handlers{
		quoteService: quoteService,
	}
	for _, opt := range opts {
		opt(h)
	}
	if h.logger == nil {
		h.logger = slog.New(slog.NewJSONHandler(io.Discard, nil))
	}
	return h
}

// HealthCheck handler for monitoring
func (h *Handlers) HealthCheck(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status": "ok",
	})
}

// SubmitContact stores a request from the public contact form
func (h *Handlers) SubmitContact(c *gin.Context) {
	var req models.ContactRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": msgInvalidSubmission})
		return
	}
	id, err := h.quoteService.SubmitContact(c.Request.Context(), req)
	if err != nil {
		h.respondError(c, err, msgInvalidSubmission)
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"id":      id,
	})
}

// CreatePitch stores a pitch and returns its share URL
func (h *Handlers) CreatePitch(c *gin.Context) {
	secret := c.GetHeader(auth.HeaderName)
	if err := h.quoteService.Authorize("create_pitch", secret); err != nil {
		h.respondError(c, err, msgInvalidPitch)
		return
	}
	var req models.PitchRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": msgInvalidPitch})
		return
	}
	link, err := h.quoteService.CreatePitch(c.Request.Context(), secret, req)
	if err != nil {
		h.respondError(c, err, msgInvalidPitch)
		return
	}
	c.JSON(http.StatusOK, link)
}

// GetPitch returns a single pitch. Anyone holding the id can read it.
func (h *Handlers) GetPitch(c *gin.Context) {
	pitch, err := h.quoteService.GetPitch(c.Request.Context(), c.Param("id"))
	if err != nil {
		h.respondError(c, err, msgInvalidPitch)
		return
	}
	c.JSON(http.StatusOK, pitch)
}

// ListPitches returns every pitch to the operator, newest first
func (h *Handlers) ListPitches(c *gin.Context) {
	pitches, err := h.quoteService.ListPitches(c.Request.Context(), c.GetHeader(auth.HeaderName))
	if err != nil {
		h.respondError(c, err, "")
		return
	}
	c.JSON(http.StatusOK, pitches)
}

// ListContacts returns every contact submission to the operator, newest first
func (h *Handlers) ListContacts(c *gin.Context) {
	contacts, err := h.quoteService.ListContacts(c.Request.Context(), c.GetHeader(auth.HeaderName))
	if err != nil {
		h.respondError(c, err, "")
		return
	}
	c.JSON(http.StatusOK, contacts)
}

// QuotePreview computes a quote for the operator console without storing it
func (h *Handlers) QuotePreview(c *gin.Context) {
	secret := c.GetHeader(auth.HeaderName)
	if err := h.quoteService.Authorize("quote_preview", secret); err != nil {
		h.respondError(c, err, msgInvalidQuote)
		return
	}
	var req models.QuoteRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": msgInvalidQuote})
		return
	}
	quote, err := h.quoteService.QuotePreview(c.Request.Context(), secret, req)
	if err != nil {
		h.respondError(c, err, msgInvalidQuote)
		return
	}
	c.JSON(http.StatusOK, quote)
}

// ListIndustries returns the industries with a dedicated base rate
func (h *Handlers) ListIndustries(c *gin.Context) {
	c.JSON(http.StatusOK, rates.Industries())
}

// PitchPage serves the frontend with the pitch's share tags filled in
func (h *Handlers) PitchPage(c *gin.Context) {
	pitch, err := h.quoteService.GetPitch(c.Request.Context(), c.Param("id"))
	if err != nil {
		if errors.Is(err, services.ErrPitchNotFound) {
			c.String(http.StatusNotFound, "Pitch not found")
			return
		}
		h.logger.Error(
			fmt.Sprintf("error loading pitch for share page: %s", err),
			"component", "api",
		)
		c.String(http.StatusInternalServerError, "Unable to load pitch")
		return
	}
	page, err := h.renderer.RenderPitch(pitch)
	if err != nil {
		h.logger.Error(
			fmt.Sprintf("error rendering share page for pitch %s: %s", pitch.ID, err),
			"component", "api",
		)
		c.String(http.StatusInternalServerError, "Unable to load pitch")
		return
	}
	c.Data(http.StatusOK, "text/html; charset=utf-8", page)
}

// Frontend serves files from the frontend build. Paths without a matching
// file get index.html so the client side router can handle them.
func (h *Handlers) Frontend(c *gin.Context) {
	if c.Request.Method != http.MethodGet && c.Request.Method != http.MethodHead {
		c.JSON(http.StatusNotFound, gin.H{"error": "Not found."})
		return
	}
	distDir := filepath.Dir(h.renderer.IndexPath())
	// Cleaning a rooted path keeps the result inside distDir
	filePath := filepath.Join(distDir, filepath.FromSlash(path.Clean("/"+c.Request.URL.Path)))
	if h.serveFile(c, filePath) {
		return
	}
	if !h.serveFile(c, h.renderer.IndexPath()) {
		c.String(http.StatusNotFound, "Not found")
	}
}

// serveFile writes the regular file at filePath and reports whether it did
func (h *Handlers) serveFile(c *gin.Context, filePath string) bool {
	f, err := os.Open(filePath)
	if err != nil {
		return false
	}
	defer f.Close()
	info, err := f.Stat()
	if err != nil || !info.Mode().IsRegular() {
		return false
	}
	http.ServeContent(c.Writer, c.Request, info.Name(), info.ModTime(), f)
	return true
}
