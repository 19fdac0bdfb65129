package server

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
)

type createAppealRequest struct {
	LedgerID int64 `json:"ledger_id"`
	UserID   int64 `json:"user_id"`
}

func (s *Server) CreateAppeal(c *gin.Context) {
	var req createAppealRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		AbortWithError(c, ErrInvalidRequest)
		return
	}
	if req.LedgerID == 0 || req.UserID == 0 {
		AbortWithError(c, ErrInvalidRequest)
		return
	}

	appeal, err := s.appealSvc.Create(c.Request.Context(), req.LedgerID, req.UserID)
	if err != nil {
		AbortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, appeal)
}

type resolveAppealRequest struct {
	ModeratorID int64  `json:"moderator_id"`
	Approve     bool   `json:"approve"`
	Comment     string `json:"comment"`
}

func (s *Server) ResolveAppeal(c *gin.Context) {
	appealID, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil || appealID == 0 {
		AbortWithError(c, ErrInvalidRequest)
		return
	}

	var req resolveAppealRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		AbortWithError(c, ErrInvalidRequest)
		return
	}
	if req.ModeratorID == 0 {
		AbortWithError(c, ErrInvalidRequest)
		return
	}

	appeal, err := s.appealSvc.Resolve(c.Request.Context(), appealID, req.ModeratorID, req.Approve, req.Comment)
	if err != nil {
		AbortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, appeal)
}
