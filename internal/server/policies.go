package server

import (
	"net/http"

	"github.com/gin-gonic/gin"
)

func (s *Server) ListPolicies(c *gin.Context) {
	policies, err := s.policySvc.List(c.Request.Context())
	if err != nil {
		AbortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"policies": policies})
}
