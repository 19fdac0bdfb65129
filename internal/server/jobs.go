package server

import (
	"net/http"

	"github.com/gin-gonic/gin"
)

// RunDecay triggers the weekly decay batch. The caller owns the schedule;
// the engine only guarantees each run is a bounded, retryable batch.
func (s *Server) RunDecay(c *gin.Context) {
	if err := s.scheduler.RunOnce(c.Request.Context()); err != nil {
		AbortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}
