package domain

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/bwmarrin/snowflake"
	eventdomain "github.com/fieldops/penaltyd/internal/event/domain"
)

// Comparator is the typed form of the document's "gt_<metric>" / "lt_<metric>"
// threshold keys.
type Comparator string

const (
	GreaterThan Comparator = "gt"
	LessThan    Comparator = "lt"
)

type Threshold struct {
	Metric string
	Cmp    Comparator
	Value  float64
}

type Grace struct {
	CountPerDay int
}

type PerOccurrenceCap struct {
	Points *int
	Amount *float64
}

type Rule struct {
	When             eventdomain.Source
	Thresholds       []Threshold
	Points           int
	Amount           *float64
	Grace            *Grace
	CooldownMin      int
	PerOccurrenceCap *PerOccurrenceCap
}

type Scope struct {
	DirectionIDs []int64
	PointIDs     []int64
}

// Matches reports whether an event's direction/point fall inside the scope.
// An empty list matches everything; an event without a direction or point
// fails a list that is present.
func (s Scope) Matches(directionID, pointID *int64) bool {
	if len(s.DirectionIDs) > 0 && !containsID(s.DirectionIDs, directionID) {
		return false
	}
	if len(s.PointIDs) > 0 && !containsID(s.PointIDs, pointID) {
		return false
	}
	return true
}

func containsID(ids []int64, id *int64) bool {
	if id == nil {
		return false
	}
	for _, v := range ids {
		if v == *id {
			return true
		}
	}
	return false
}

type Caps struct {
	DailyPoints *int
	MonthAmount *float64
}

type Forgiveness struct {
	StreakDaysToWaive int
	WaivePercent      int
}

func (f Forgiveness) Enabled() bool { return f.StreakDaysToWaive > 0 && f.WaivePercent > 0 }

type Escalation struct {
	WarnPoints      int
	ProbationPoints int
	ProbationDays   int
	SuspendPoints   int
}

// CompiledPolicy is the strongly typed in-memory form the evaluator consumes.
type CompiledPolicy struct {
	ID          snowflake.ID
	Name        string
	Strictness  Strictness
	Scope       Scope
	Rules       []Rule
	Caps        Caps
	Forgiveness Forgiveness
	Escalation  Escalation
}

// document shapes, matching the stored JSON.
type ruleDoc struct {
	When             string             `json:"when"`
	Thresholds       map[string]float64 `json:"thresholds"`
	Points           *int               `json:"points"`
	Amount           *float64           `json:"amount"`
	Grace            *graceDoc          `json:"grace"`
	CooldownMin      int                `json:"cooldown_min"`
	PerOccurrenceCap *perCapDoc         `json:"per_occurrence_cap"`
}

type graceDoc struct {
	CountPerDay int `json:"count_per_day"`
}

type perCapDoc struct {
	Points *int     `json:"points"`
	Amount *float64 `json:"amount"`
}

type scopeDoc struct {
	DirectionIDs []int64 `json:"direction_ids"`
	PointIDs     []int64 `json:"point_ids"`
}

type capsDoc struct {
	Daily struct {
		Points *int `json:"points"`
	} `json:"daily"`
	Month struct {
		Amount *float64 `json:"amount"`
	} `json:"month"`
}

type forgivenessDoc struct {
	StreakDaysToWaive int `json:"streak_days_to_waive"`
	WaivePercent      int `json:"waive_percent"`
}

// validate keeps a bad waive percentage from inverting a candidate's sign
// downstream; invalid configs are dropped whole, like malformed rules.
func (d forgivenessDoc) validate() error {
	if d.WaivePercent < 0 || d.WaivePercent > 100 {
		return fmt.Errorf("waive_percent %d outside [0,100]", d.WaivePercent)
	}
	if d.StreakDaysToWaive < 0 {
		return fmt.Errorf("streak_days_to_waive %d is negative", d.StreakDaysToWaive)
	}
	return nil
}

type escalationDoc struct {
	WarnPoints      int `json:"warn_points"`
	ProbationPoints int `json:"probation_points"`
	ProbationDays   int `json:"probation_days"`
	SuspendPoints   int `json:"suspend_points"`
}

func (d escalationDoc) validate() error {
	if d.WarnPoints < 0 || d.ProbationPoints < 0 || d.ProbationDays < 0 || d.SuspendPoints < 0 {
		return errors.New("thresholds must not be negative")
	}
	return nil
}

// Compile converts the JSON config columns into a CompiledPolicy. Malformed
// rules are dropped and reported in the returned problem list; the policy
// itself stays usable with its remaining rules.
func (p *Policy) Compile() (*CompiledPolicy, []error) {
	compiled := &CompiledPolicy{
		ID:         p.ID,
		Name:       p.Name,
		Strictness: p.Strictness,
	}
	var problems []error

	if len(p.Scope) > 0 {
		var doc scopeDoc
		if err := json.Unmarshal(p.Scope, &doc); err != nil {
			problems = append(problems, fmt.Errorf("scope: %w", err))
		} else {
			compiled.Scope = Scope{DirectionIDs: doc.DirectionIDs, PointIDs: doc.PointIDs}
		}
	}

	if len(p.Caps) > 0 {
		var doc capsDoc
		if err := json.Unmarshal(p.Caps, &doc); err != nil {
			problems = append(problems, fmt.Errorf("caps: %w", err))
		} else {
			compiled.Caps = Caps{DailyPoints: doc.Daily.Points, MonthAmount: doc.Month.Amount}
		}
	}

	if len(p.Forgiveness) > 0 {
		var doc forgivenessDoc
		if err := json.Unmarshal(p.Forgiveness, &doc); err != nil {
			problems = append(problems, fmt.Errorf("forgiveness: %w", err))
		} else if err := doc.validate(); err != nil {
			problems = append(problems, fmt.Errorf("forgiveness: %w", err))
		} else {
			compiled.Forgiveness = Forgiveness(doc)
		}
	}

	if len(p.Escalation) > 0 {
		var doc escalationDoc
		if err := json.Unmarshal(p.Escalation, &doc); err != nil {
			problems = append(problems, fmt.Errorf("escalation: %w", err))
		} else if err := doc.validate(); err != nil {
			problems = append(problems, fmt.Errorf("escalation: %w", err))
		} else {
			compiled.Escalation = Escalation(doc)
		}
	}

	var ruleDocs []ruleDoc
	if len(p.Rules) > 0 {
		if err := json.Unmarshal(p.Rules, &ruleDocs); err != nil {
			problems = append(problems, fmt.Errorf("rules: %w", err))
			ruleDocs = nil
		}
	}
	for i, doc := range ruleDocs {
		rule, err := compileRule(doc)
		if err != nil {
			problems = append(problems, fmt.Errorf("rule %d: %w", i, err))
			continue
		}
		compiled.Rules = append(compiled.Rules, rule)
	}

	return compiled, problems
}

func compileRule(doc ruleDoc) (Rule, error) {
	source, ok := eventdomain.ParseSource(strings.TrimSpace(doc.When))
	if !ok {
		return Rule{}, errors.New("missing or unknown source in when")
	}
	if doc.Points == nil {
		return Rule{}, errors.New("missing points")
	}

	rule := Rule{
		When:        source,
		Points:      *doc.Points,
		Amount:      doc.Amount,
		CooldownMin: doc.CooldownMin,
	}
	if doc.Grace != nil && doc.Grace.CountPerDay > 0 {
		rule.Grace = &Grace{CountPerDay: doc.Grace.CountPerDay}
	}
	if doc.PerOccurrenceCap != nil {
		rule.PerOccurrenceCap = &PerOccurrenceCap{
			Points: doc.PerOccurrenceCap.Points,
			Amount: doc.PerOccurrenceCap.Amount,
		}
	}

	for key, value := range doc.Thresholds {
		threshold, err := compileThreshold(key, value)
		if err != nil {
			return Rule{}, err
		}
		rule.Thresholds = append(rule.Thresholds, threshold)
	}
	return rule, nil
}

func compileThreshold(key string, value float64) (Threshold, error) {
	prefix, metric, found := strings.Cut(key, "_")
	if !found || metric == "" {
		return Threshold{}, fmt.Errorf("threshold %q: expected gt_<metric> or lt_<metric>", key)
	}
	switch Comparator(prefix) {
	case GreaterThan, LessThan:
		return Threshold{Metric: metric, Cmp: Comparator(prefix), Value: value}, nil
	default:
		return Threshold{}, fmt.Errorf("threshold %q: unknown comparator %q", key, prefix)
	}
}
