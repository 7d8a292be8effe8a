package api

import (
	"net/http"

	"github.com/gin-gonic/gin"
)

// RegisterRoutes adds every route to router. apiMiddleware runs for the
// /api routes only.
func (h *Handlers) RegisterRoutes(router *gin.Engine, apiMiddleware ...gin.HandlerFunc) {
	router.GET("/health", h.HealthCheck)

	apiGroup := router.Group("/api", apiMiddleware...)
	apiGroup.POST("/contact", h.SubmitContact)
	apiGroup.POST("/pitch", h.CreatePitch)
	apiGroup.GET("/pitch/:id", h.GetPitch)
	apiGroup.GET("/pitches", h.ListPitches)
	apiGroup.GET("/contacts", h.ListContacts)
	apiGroup.POST("/quote", h.QuotePreview)
	apiGroup.GET("/industries", h.ListIndustries)

	if h.production && h.renderer != nil {
		router.GET("/pitch/:id", h.PitchPage)
		router.NoRoute(h.Frontend)
		return
	}
	router.NoRoute(func(c *gin.Context) {
		c.JSON(http.StatusNotFound, gin.H{"error": "Not found."})
	})
}
