package server

import (
	"net/http"

	"github.com/gin-gonic/gin"

	eventdomain "github.com/fieldops/penaltyd/internal/event/domain"
	ledgerdomain "github.com/fieldops/penaltyd/internal/ledger/domain"
)

type ingestResponse struct {
	Event  *eventdomain.PenaltyEvent    `json:"event"`
	Ledger []ledgerdomain.PenaltyLedger `json:"ledger"`
}

// IngestEvent records a behavioral event and evaluates it synchronously.
func (s *Server) IngestEvent(c *gin.Context) {
	var req eventdomain.CreateEventRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		AbortWithError(c, ErrInvalidRequest)
		return
	}

	event, err := s.eventSvc.Record(c.Request.Context(), req)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	rows, err := s.evaluationSvc.Evaluate(c.Request.Context(), event)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, ingestResponse{Event: event, Ledger: rows})
}
