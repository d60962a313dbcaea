package server

import (
	"io"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/aryannaik/pick/internal/logger"
)

const heartbeatInterval = 15 * time.Second

// HandleEvents streams directory changes as server-sent events. The first
// event carries the current size and pick so clients can render at once.
func (h *Handlers) HandleEvents(c *gin.Context) {
	events, cancel := h.store.Subscribe()
	defer cancel()

	c.Header("Content-Type", "text/event-stream")
	c.Header("Cache-Control", "no-cache")
	c.Header("Connection", "keep-alive")
	c.Header("X-Accel-Buffering", "no")

	c.SSEvent("ready", gin.H{"candidates": h.store.Len(), "pick": h.pickRef()})
	c.Writer.Flush()

	ticker := time.NewTicker(heartbeatInterval)
	defer ticker.Stop()

	h.log.Debug("Event stream opened", logger.String("client_ip", c.ClientIP()))
	c.Stream(func(w io.Writer) bool {
		select {
		case ev, ok := <-events:
			if !ok {
				return false
			}
			c.SSEvent(string(ev.Type), ev)
			return true
		case <-ticker.C:
			c.SSEvent("heartbeat", gin.H{"time": time.Now().UTC().Format(time.RFC3339)})
			return true
		case <-c.Request.Context().Done():
			return false
		}
	})
	h.log.Debug("Event stream closed", logger.String("client_ip", c.ClientIP()))
}
