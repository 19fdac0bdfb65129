package domain

import (
	"testing"

	eventdomain "github.com/fieldops/penaltyd/internal/event/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/datatypes"
)

func TestCompileFullPolicy(t *testing.T) {
	p := &Policy{
		ID:         1,
		Name:       "standard",
		Strictness: StrictnessStandard,
		Scope:      datatypes.JSON(`{"direction_ids":[1,2],"point_ids":[10]}`),
		Rules: datatypes.JSON(`[
			{"when":"late","thresholds":{"gt_minutes":5},"points":5,"grace":{"count_per_day":1},"cooldown_min":30},
			{"when":"receiving_delay","thresholds":{"gt_hours":4,"lt_severity_score":3},"points":2,"amount":50,"per_occurrence_cap":{"points":5,"amount":100}}
		]`),
		Caps:        datatypes.JSON(`{"daily":{"points":10},"month":{"amount":500}}`),
		Forgiveness: datatypes.JSON(`{"streak_days_to_waive":7,"waive_percent":50}`),
		Escalation:  datatypes.JSON(`{"warn_points":5,"probation_points":10,"probation_days":14,"suspend_points":20}`),
	}

	compiled, problems := p.Compile()
	require.Empty(t, problems)

	assert.Equal(t, []int64{1, 2}, compiled.Scope.DirectionIDs)
	assert.Equal(t, []int64{10}, compiled.Scope.PointIDs)

	require.Len(t, compiled.Rules, 2)
	late := compiled.Rules[0]
	assert.Equal(t, eventdomain.SourceLate, late.When)
	assert.Equal(t, 5, late.Points)
	assert.Equal(t, 30, late.CooldownMin)
	require.NotNil(t, late.Grace)
	assert.Equal(t, 1, late.Grace.CountPerDay)
	require.Len(t, late.Thresholds, 1)
	assert.Equal(t, Threshold{Metric: "minutes", Cmp: GreaterThan, Value: 5}, late.Thresholds[0])

	delay := compiled.Rules[1]
	require.NotNil(t, delay.Amount)
	assert.InDelta(t, 50, *delay.Amount, 0.001)
	require.NotNil(t, delay.PerOccurrenceCap)
	assert.Equal(t, 5, *delay.PerOccurrenceCap.Points)
	assert.ElementsMatch(t, []Threshold{
		{Metric: "hours", Cmp: GreaterThan, Value: 4},
		{Metric: "severity_score", Cmp: LessThan, Value: 3},
	}, delay.Thresholds)

	require.NotNil(t, compiled.Caps.DailyPoints)
	assert.Equal(t, 10, *compiled.Caps.DailyPoints)
	require.NotNil(t, compiled.Caps.MonthAmount)
	assert.InDelta(t, 500, *compiled.Caps.MonthAmount, 0.001)

	assert.True(t, compiled.Forgiveness.Enabled())
	assert.Equal(t, Escalation{WarnPoints: 5, ProbationPoints: 10, ProbationDays: 14, SuspendPoints: 20}, compiled.Escalation)
}

func TestCompileDropsMalformedRules(t *testing.T) {
	p := &Policy{
		ID:   2,
		Name: "partial",
		Rules: datatypes.JSON(`[
			{"when":"sleeping","points":5},
			{"when":"late"},
			{"when":"late","thresholds":{"max_minutes":5},"points":3},
			{"when":"late","points":3}
		]`),
	}

	compiled, problems := p.Compile()
	assert.Len(t, problems, 3)
	require.Len(t, compiled.Rules, 1)
	assert.Equal(t, eventdomain.SourceLate, compiled.Rules[0].When)
	assert.Equal(t, 3, compiled.Rules[0].Points)
}

func TestCompileBadJSONKeepsPolicyUsable(t *testing.T) {
	p := &Policy{
		ID:    3,
		Name:  "broken-caps",
		Rules: datatypes.JSON(`[{"when":"late","points":1}]`),
		Caps:  datatypes.JSON(`{"daily":`),
	}

	compiled, problems := p.Compile()
	assert.Len(t, problems, 1)
	assert.Len(t, compiled.Rules, 1)
	assert.Nil(t, compiled.Caps.DailyPoints)
}

func TestCompileRejectsOutOfRangeForgiveness(t *testing.T) {
	p := &Policy{
		ID:          4,
		Name:        "over-waive",
		Rules:       datatypes.JSON(`[{"when":"late","points":10}]`),
		Forgiveness: datatypes.JSON(`{"streak_days_to_waive":7,"waive_percent":150}`),
	}

	compiled, problems := p.Compile()
	require.Len(t, problems, 1)
	// An out-of-range percentage disables forgiveness; rules stay usable.
	assert.False(t, compiled.Forgiveness.Enabled())
	assert.Len(t, compiled.Rules, 1)

	p.Forgiveness = datatypes.JSON(`{"streak_days_to_waive":-1,"waive_percent":50}`)
	_, problems = p.Compile()
	assert.Len(t, problems, 1)
}

func TestCompileRejectsNegativeEscalation(t *testing.T) {
	p := &Policy{
		ID:         5,
		Name:       "bad-escalation",
		Rules:      datatypes.JSON(`[{"when":"late","points":10}]`),
		Escalation: datatypes.JSON(`{"warn_points":-5}`),
	}

	compiled, problems := p.Compile()
	require.Len(t, problems, 1)
	assert.Equal(t, Escalation{}, compiled.Escalation)
	assert.Len(t, compiled.Rules, 1)
}

func TestCompileThreshold(t *testing.T) {
	got, err := compileThreshold("gt_minutes", 5)
	require.NoError(t, err)
	assert.Equal(t, Threshold{Metric: "minutes", Cmp: GreaterThan, Value: 5}, got)

	got, err = compileThreshold("lt_stock_ratio", 0.5)
	require.NoError(t, err)
	assert.Equal(t, "stock_ratio", got.Metric)
	assert.Equal(t, LessThan, got.Cmp)

	_, err = compileThreshold("max_minutes", 5)
	assert.Error(t, err)

	_, err = compileThreshold("gt_", 5)
	assert.Error(t, err)

	_, err = compileThreshold("minutes", 5)
	assert.Error(t, err)
}

func TestScopeMatches(t *testing.T) {
	d1, d2 := int64(1), int64(2)
	p10 := int64(10)

	cases := []struct {
		name      string
		scope     Scope
		direction *int64
		point     *int64
		want      bool
	}{
		{"empty scope matches all", Scope{}, nil, nil, true},
		{"direction in list", Scope{DirectionIDs: []int64{1}}, &d1, nil, true},
		{"direction not in list", Scope{DirectionIDs: []int64{1}}, &d2, nil, false},
		{"missing direction fails present list", Scope{DirectionIDs: []int64{1}}, nil, nil, false},
		{"both lists must match", Scope{DirectionIDs: []int64{1}, PointIDs: []int64{10}}, &d1, &p10, true},
		{"point mismatch", Scope{DirectionIDs: []int64{1}, PointIDs: []int64{11}}, &d1, &p10, false},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.want, tc.scope.Matches(tc.direction, tc.point))
		})
	}
}
