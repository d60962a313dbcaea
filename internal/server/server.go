// Package server exposes the directory, the title search and the draft over
// HTTP for the view layer.
package server

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/aryannaik/pick/internal/logger"
	"github.com/aryannaik/pick/internal/metrics"
)

// NewRouter registers every route on a fresh gin engine.
func NewRouter(h *Handlers, m *metrics.Metrics, log logger.Logger) *gin.Engine {
	r := gin.New()
	r.Use(requestID(), recovery(log), requestLogger(log))

	r.GET("/healthz", h.HandleHealth)
	r.GET("/metrics", gin.WrapH(m.Handler()))

	api := r.Group("/api")
	api.GET("/status", h.HandleStatus)
	api.GET("/events", h.HandleEvents)

	api.GET("/candidates", h.HandleListCandidates)
	api.POST("/candidates", h.HandleAddCandidate)
	api.GET("/candidates/:id", h.HandleGetCandidate)
	api.DELETE("/candidates/:id", h.HandleRemoveCandidate)
	api.PUT("/candidates/:id/rating", h.HandleRate)

	api.GET("/pick", h.HandleGetPick)
	api.PUT("/pick", h.HandleSetPick)
	api.DELETE("/pick", h.HandleClearPick)
	api.POST("/vote", h.HandleVote)
	api.GET("/standings", h.HandleStandings)

	d := api.Group("/draft")
	d.GET("", h.HandleGetDraft)
	d.PATCH("", h.HandlePatchDraft)
	d.DELETE("", h.HandleResetDraft)
	d.POST("/handles", h.HandleAddHandle)
	d.PUT("/handles/:index", h.HandleSetHandle)
	d.DELETE("/handles/:index", h.HandleRemoveHandle)
	d.POST("/query", h.HandleQuery)
	d.POST("/complete", h.HandleComplete)
	d.POST("/select", h.HandleSelect)
	d.POST("/autofill", h.HandleAutofill)
	d.POST("/submit", h.HandleSubmit)

	return r
}

func New(addr string, handler http.Handler, log logger.Logger) *http.Server {
	srv := &http.Server{
		Addr:              addr,
		Handler:           handler,
		ReadHeaderTimeout: 10 * time.Second,
	}

	log.Info("Server listening", logger.String("addr", addr))
	return srv
}
