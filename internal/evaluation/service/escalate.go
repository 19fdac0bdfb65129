package service

import (
	"context"
	"fmt"
	"time"

	policydomain "github.com/fieldops/penaltyd/internal/policy/domain"
	"go.uber.org/zap"
)

const escalationTimeout = 5 * time.Second

// dispatchEscalations checks each policy whose rules just fired against its
// escalation thresholds. Calls run in the background after the ledger commit:
// a notification failure is logged and never rolls back or fails the
// evaluation.
func (s *Service) dispatchEscalations(userID int64, policies []*policydomain.CompiledPolicy, p *pass) {
	for _, policy := range policies {
		if p.points[policy.ID] == 0 {
			continue
		}
		esc := policy.Escalation
		if esc.WarnPoints == 0 && esc.ProbationPoints == 0 && esc.SuspendPoints == 0 {
			continue
		}
		go s.escalate(userID, policy)
	}
}

func (s *Service) escalate(userID int64, policy *policydomain.CompiledPolicy) {
	ctx, cancel := context.WithTimeout(context.Background(), escalationTimeout)
	defer cancel()

	outstanding, err := s.ledgerSvc.OutstandingPoints(ctx, userID, int64(policy.ID))
	if err != nil {
		s.log.Warn("escalation skipped: outstanding points unavailable",
			zap.Int64("user_id", userID),
			zap.Int64("policy_id", int64(policy.ID)),
			zap.Error(err),
		)
		return
	}

	esc := policy.Escalation
	switch {
	case esc.SuspendPoints > 0 && outstanding >= esc.SuspendPoints:
		summary := fmt.Sprintf("policy %q: %d outstanding points", policy.Name, outstanding)
		s.notify("suggest_suspension", func(ctx context.Context) error {
			return s.notifier.SuggestSuspension(ctx, userID, summary)
		})
		s.notify("notify_admins", func(ctx context.Context) error {
			return s.notifier.NotifyAdmins(ctx, fmt.Sprintf("user %d reached suspension threshold under %q", userID, policy.Name))
		})
	case esc.ProbationPoints > 0 && outstanding >= esc.ProbationPoints:
		reason := fmt.Sprintf("policy %q: %d outstanding points", policy.Name, outstanding)
		days := esc.ProbationDays
		if days <= 0 {
			days = 7
		}
		s.notify("start_probation", func(ctx context.Context) error {
			return s.notifier.StartProbation(ctx, userID, days, reason)
		})
	case esc.WarnPoints > 0 && outstanding >= esc.WarnPoints:
		reason := fmt.Sprintf("policy %q: %d outstanding points", policy.Name, outstanding)
		s.notify("warn", func(ctx context.Context) error {
			return s.notifier.Warn(ctx, userID, reason)
		})
	}
}

func (s *Service) notify(kind string, fn func(ctx context.Context) error) {
	ctx, cancel := context.WithTimeout(context.Background(), escalationTimeout)
	defer cancel()

	if err := fn(ctx); err != nil {
		s.log.Warn("escalation notification failed", zap.String("kind", kind), zap.Error(err))
		return
	}
	if s.metrics != nil {
		s.metrics.EscalationsFired.WithLabelValues(kind).Inc()
	}
}
