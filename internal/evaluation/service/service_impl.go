package service

import (
	"context"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/fieldops/penaltyd/internal/clock"
	escalationdomain "github.com/fieldops/penaltyd/internal/escalation/domain"
	evaluationdomain "github.com/fieldops/penaltyd/internal/evaluation/domain"
	eventdomain "github.com/fieldops/penaltyd/internal/event/domain"
	forgivenessdomain "github.com/fieldops/penaltyd/internal/forgiveness/domain"
	ledgerdomain "github.com/fieldops/penaltyd/internal/ledger/domain"
	"github.com/fieldops/penaltyd/internal/lock"
	"github.com/fieldops/penaltyd/internal/metrics"
	policydomain "github.com/fieldops/penaltyd/internal/policy/domain"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

const evalLockTTL = 15 * time.Second

var tracer = otel.Tracer("penaltyd/evaluation")

type Params struct {
	fx.In

	DB             *gorm.DB
	Log            *zap.Logger
	GenID          *snowflake.Node
	Clock          clock.Clock
	PolicySvc      policydomain.Service
	EventSvc       eventdomain.Service
	LedgerSvc      ledgerdomain.Service
	ForgivenessSvc forgivenessdomain.Service
	Notifier       escalationdomain.Notifier
	Locker         *lock.Locker     `optional:"true"`
	Metrics        *metrics.Metrics `optional:"true"`
}

type Service struct {
	db             *gorm.DB
	log            *zap.Logger
	genID          *snowflake.Node
	clock          clock.Clock
	policySvc      policydomain.Service
	eventSvc       eventdomain.Service
	ledgerSvc      ledgerdomain.Service
	forgivenessSvc forgivenessdomain.Service
	notifier       escalationdomain.Notifier
	locker         *lock.Locker
	metrics        *metrics.Metrics
}

func New(p Params) evaluationdomain.Service {
	return &Service{
		db:             p.DB,
		log:            p.Log.Named("evaluation.service"),
		genID:          p.GenID,
		clock:          p.Clock,
		policySvc:      p.PolicySvc,
		eventSvc:       p.EventSvc,
		ledgerSvc:      p.LedgerSvc,
		forgivenessSvc: p.ForgivenessSvc,
		notifier:       p.Notifier,
		locker:         p.Locker,
		metrics:        p.Metrics,
	}
}

// pass accumulates in-flight candidates during one per-event evaluation so
// cap math and cooldowns see rows that have not been inserted yet.
type pass struct {
	rows      []*ledgerdomain.PenaltyLedger
	points    map[snowflake.ID]int
	amounts   map[snowflake.ID]float64
	lastFired map[string]time.Time
}

func (e *pass) key(policyID snowflake.ID, source eventdomain.Source) string {
	return policyID.String() + "/" + string(source)
}

func (s *Service) Evaluate(ctx context.Context, event *eventdomain.PenaltyEvent) ([]ledgerdomain.PenaltyLedger, error) {
	if event == nil {
		return nil, evaluationdomain.ErrNilEvent
	}

	ctx, span := tracer.Start(ctx, "evaluation.Evaluate")
	span.SetAttributes(
		attribute.Int64("user_id", event.UserID),
		attribute.String("source", string(event.Source)),
	)
	defer span.End()

	start := time.Now()
	defer func() {
		if s.metrics != nil {
			s.metrics.EvalDuration.Observe(time.Since(start).Seconds())
		}
	}()

	// Single writer per user: concurrent evaluations must not both pass a
	// cap check against the same stale sum.
	if s.locker != nil {
		key := lock.UserKey(event.UserID)
		token, err := s.locker.Lock(ctx, key, evalLockTTL)
		if err != nil {
			return nil, err
		}
		defer func() {
			_ = s.locker.Release(context.WithoutCancel(ctx), key, token)
		}()
	}

	policies, err := s.policySvc.ActivePolicies(ctx)
	if err != nil {
		return nil, err
	}

	p := &pass{
		points:    make(map[snowflake.ID]int),
		amounts:   make(map[snowflake.ID]float64),
		lastFired: make(map[string]time.Time),
	}
	now := s.clock.Now()

	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if s.locker == nil {
			if stmt := txLockSQL(tx.Dialector.Name()); stmt != "" {
				if err := tx.Exec(stmt, event.UserID).Error; err != nil {
					return err
				}
			}
		}

		ledgerTx := s.ledgerSvc.WithTx(tx)

		for _, policy := range policies {
			if !policy.Scope.Matches(event.DirectionID, event.PointID) {
				continue
			}
			for i := range policy.Rules {
				if err := s.evaluateRule(ctx, ledgerTx, p, policy, &policy.Rules[i], event, now); err != nil {
					return err
				}
			}
		}

		return ledgerTx.CreateBatch(ctx, p.rows)
	})
	if err != nil {
		return nil, err
	}

	if s.metrics != nil {
		for range p.rows {
			s.metrics.LedgerWrites.WithLabelValues(string(event.Source)).Inc()
		}
	}

	created := make([]ledgerdomain.PenaltyLedger, 0, len(p.rows))
	for _, row := range p.rows {
		created = append(created, *row)
	}

	if len(created) > 0 {
		s.dispatchEscalations(event.UserID, policies, p)
	}

	return created, nil
}

func (s *Service) evaluateRule(
	ctx context.Context,
	ledgerTx ledgerdomain.Service,
	p *pass,
	policy *policydomain.CompiledPolicy,
	rule *policydomain.Rule,
	event *eventdomain.PenaltyEvent,
	now time.Time,
) error {
	if rule.When != event.Source {
		return nil
	}
	if !thresholdsPass(rule.Thresholds, event.Payload) {
		return nil
	}

	forgiven, err := s.graceApplies(ctx, rule, event)
	if err != nil {
		return err
	}
	if forgiven {
		s.log.Debug("occurrence within daily grace",
			zap.Int64("user_id", event.UserID),
			zap.String("source", string(event.Source)),
		)
		return nil
	}

	cooling, err := s.cooldownApplies(ctx, ledgerTx, p, policy.ID, rule, event, now)
	if err != nil {
		return err
	}
	if cooling {
		return nil
	}

	if event.DedupeKey != "" {
		duplicate, err := s.eventSvc.HasDuplicate(ctx, event.DedupeKey, int64(event.ID))
		if err != nil {
			return err
		}
		if duplicate {
			s.log.Debug("event is a re-delivery, penalty already considered",
				zap.String("dedupe_key", event.DedupeKey),
			)
			return nil
		}
	}

	points := rule.Points
	amount := copyAmount(rule.Amount)
	if cap := rule.PerOccurrenceCap; cap != nil {
		if cap.Points != nil && points > *cap.Points {
			points = *cap.Points
		}
		if cap.Amount != nil && amount != nil && *amount > *cap.Amount {
			amount = copyAmount(cap.Amount)
		}
	}

	points, amount, err = s.applyCaps(ctx, ledgerTx, p, policy, event.UserID, points, amount, now)
	if err != nil {
		return err
	}
	if points == 0 && amount == nil {
		// CapExhausted: a legitimate zero result, not an error.
		s.log.Info("candidate fully clamped by caps",
			zap.Int64("user_id", event.UserID),
			zap.Int64("policy_id", int64(policy.ID)),
			zap.String("source", string(event.Source)),
		)
		return nil
	}

	candidate := &ledgerdomain.PenaltyLedger{
		ID:        s.genID.Generate(),
		EventID:   event.ID,
		UserID:    event.UserID,
		PolicyID:  policy.ID,
		Source:    event.Source,
		AppliedAt: now,
		Points:    points,
		Amount:    amount,
		Reasons:   datatypes.NewJSONSlice([]string{string(event.Source)}),
		Status:    ledgerdomain.StatusApplied,
	}

	if err := s.forgivenessSvc.AdjustForStreak(ctx, ledgerTx, candidate, policy.Forgiveness); err != nil {
		return err
	}

	p.rows = append(p.rows, candidate)
	p.points[policy.ID] += candidate.Points
	if candidate.Amount != nil {
		p.amounts[policy.ID] += *candidate.Amount
	}
	p.lastFired[p.key(policy.ID, event.Source)] = now
	return nil
}

func (s *Service) graceApplies(ctx context.Context, rule *policydomain.Rule, event *eventdomain.PenaltyEvent) (bool, error) {
	if rule.Grace == nil {
		return false, nil
	}
	count, err := s.eventSvc.CountSameDay(ctx, event.UserID, event.Source, s.clock.Now())
	if err != nil {
		return false, err
	}
	// The count includes the current event, so with allowance N the Nth
	// same-day occurrence is still forgiven.
	return count <= int64(rule.Grace.CountPerDay), nil
}

func (s *Service) cooldownApplies(
	ctx context.Context,
	ledgerTx ledgerdomain.Service,
	p *pass,
	policyID snowflake.ID,
	rule *policydomain.Rule,
	event *eventdomain.PenaltyEvent,
	now time.Time,
) (bool, error) {
	if rule.CooldownMin <= 0 {
		return false, nil
	}
	window := time.Duration(rule.CooldownMin) * time.Minute

	if last, ok := p.lastFired[p.key(policyID, event.Source)]; ok && now.Sub(last) < window {
		return true, nil
	}

	last, err := ledgerTx.LastAppliedAt(ctx, event.UserID, int64(policyID), event.Source)
	if err != nil {
		return false, err
	}
	return last != nil && now.Sub(last.UTC()) < window, nil
}

// applyCaps clamps a candidate against the policy's daily point and monthly
// amount ceilings using ledger history plus rows pending in this pass. It
// runs inside the evaluation transaction so concurrent passes cannot both
// clamp against a stale sum.
func (s *Service) applyCaps(
	ctx context.Context,
	ledgerTx ledgerdomain.Service,
	p *pass,
	policy *policydomain.CompiledPolicy,
	userID int64,
	points int,
	amount *float64,
	now time.Time,
) (int, *float64, error) {
	if cap := policy.Caps.DailyPoints; cap != nil {
		dayStart := now.UTC().Truncate(24 * time.Hour)
		sum, err := ledgerTx.SumPointsSince(ctx, userID, int64(policy.ID), dayStart)
		if err != nil {
			return 0, nil, err
		}
		sum += p.points[policy.ID]
		if sum >= *cap {
			if s.metrics != nil {
				s.metrics.CapRejections.WithLabelValues("daily_points").Inc()
			}
			return 0, nil, nil
		}
		if remaining := *cap - sum; points > remaining {
			points = remaining
		}
		if points < 0 {
			points = 0
		}
	}

	if amount != nil {
		if cap := policy.Caps.MonthAmount; cap != nil {
			monthStart := time.Date(now.Year(), now.Month(), 1, 0, 0, 0, 0, time.UTC)
			sum, err := ledgerTx.SumAmountSince(ctx, userID, int64(policy.ID), monthStart)
			if err != nil {
				return 0, nil, err
			}
			sum += p.amounts[policy.ID]
			if sum >= *cap {
				if s.metrics != nil {
					s.metrics.CapRejections.WithLabelValues("month_amount").Inc()
				}
				amount = nil
			} else if remaining := *cap - sum; *amount > remaining {
				amount = &remaining
			}
		}
	}

	return points, amount, nil
}

// txLockSQL names the per-user lock taken inside the evaluation transaction
// when no redis locker serializes evaluations. Two concurrent passes must not
// both read the same cap sum and both insert. sqlite has a single writer;
// postgres needs the advisory lock, held until the transaction ends.
func txLockSQL(dialect string) string {
	if dialect == "postgres" {
		return "SELECT pg_advisory_xact_lock(?)"
	}
	return ""
}

func thresholdsPass(thresholds []policydomain.Threshold, payload map[string]any) bool {
	for _, t := range thresholds {
		metric, ok := numericMetric(payload, t.Metric)
		if !ok {
			// Missing metric fails the rule, not the evaluation.
			return false
		}
		switch t.Cmp {
		case policydomain.GreaterThan:
			if !(metric > t.Value) {
				return false
			}
		case policydomain.LessThan:
			if !(metric < t.Value) {
				return false
			}
		}
	}
	return true
}

func numericMetric(payload map[string]any, name string) (float64, bool) {
	if payload == nil {
		return 0, false
	}
	switch v := payload[name].(type) {
	case float64:
		return v, true
	case float32:
		return float64(v), true
	case int:
		return float64(v), true
	case int64:
		return float64(v), true
	default:
		return 0, false
	}
}

func copyAmount(amount *float64) *float64 {
	if amount == nil {
		return nil
	}
	v := *amount
	return &v
}
