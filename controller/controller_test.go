package controller

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/lychee-technology/smaq"
	"github.com/lychee-technology/smaq/smastore"
)

type fakeBudget struct {
	budgets map[smaq.PredicateKey]float64
	avg     map[smaq.PredicateKey]float64
}

func newFakeBudget() *fakeBudget {
	return &fakeBudget{budgets: map[smaq.PredicateKey]float64{}, avg: map[smaq.PredicateKey]float64{}}
}

func (f *fakeBudget) GetBudget(key smaq.PredicateKey) float64 { return f.budgets[key] }

func (f *fakeBudget) AddBudget(key smaq.PredicateKey, amount float64) {
	b := f.budgets[key] + amount
	if b < 0 {
		b = 0
	}
	f.budgets[key] = b
}

func (f *fakeBudget) AvgScanTime(key smaq.PredicateKey) float64 { return f.avg[key] }

var factors = Factors{DepositFactor: 0.1, ReinvestFactor: 0.5, ProbePenaltyFactor: 0.5}

func TestDecideNoArtifactInsufficientBudgetScansOnly(t *testing.T) {
	b := newFakeBudget()
	b.avg["k"] = 10
	b.budgets["k"] = 0 // buildCost = 0.1*10 = 1, cannot afford

	d := Decide(b, factors, "k", smaq.Predicate{Op: smaq.OpGt, Literal: 1}, nil)
	assert.Equal(t, ActionScanOnly, d.Action)
	assert.Equal(t, 0.0, b.GetBudget("k"))
}

func TestDecideNoArtifactSufficientBudgetSchedulesBuild(t *testing.T) {
	b := newFakeBudget()
	b.avg["k"] = 10
	b.budgets["k"] = 5 // buildCost = 1, affordable

	d := Decide(b, factors, "k", smaq.Predicate{Op: smaq.OpGt, Literal: 1}, nil)
	assert.Equal(t, ActionScanAndBuild, d.Action)
	assert.Equal(t, 4.0, b.GetBudget("k")) // 5 - 1 debited immediately
}

func TestDecideSkipsWhenLiteralBeyondMax(t *testing.T) {
	b := newFakeBudget()
	artifact := &smastore.Artifact{Min: 0, Max: 100, LowerThreshold: -10, UpperThreshold: 110}
	d := Decide(b, factors, "k", smaq.Predicate{Op: smaq.OpGt, Literal: 200}, artifact)
	assert.Equal(t, ActionSkip, d.Action)
}

func TestDecideOutlierReadWhenLiteralBeyondFenceButWithinRange(t *testing.T) {
	b := newFakeBudget()
	artifact := &smastore.Artifact{Min: 0, Max: 1000, LowerThreshold: -10, UpperThreshold: 50}
	d := Decide(b, factors, "k", smaq.Predicate{Op: smaq.OpGt, Literal: 100}, artifact)
	assert.Equal(t, ActionOutlierRead, d.Action)
}

func TestDecideScanWithPenaltyWhenArtifactProvidesNoBenefit(t *testing.T) {
	b := newFakeBudget()
	b.avg["k"] = 10
	b.budgets["k"] = 5
	artifact := &smastore.Artifact{Min: 0, Max: 1000, LowerThreshold: -10, UpperThreshold: 900}
	d := Decide(b, factors, "k", smaq.Predicate{Op: smaq.OpGt, Literal: 500}, artifact)
	assert.Equal(t, ActionScanWithPenalty, d.Action)
	assert.Equal(t, 0.0, b.GetBudget("k")) // 5 - 0.5*10 = 0
}

func TestSettleSkipReinvestsHalfAverageScanTime(t *testing.T) {
	b := newFakeBudget()
	b.avg["k"] = 10
	require.Equal(t, 0.0, b.GetBudget("k"))
	Settle(b, factors, "k", Decision{Action: ActionSkip}, 0)
	assert.Equal(t, 5.0, b.GetBudget("k"))
}

func TestSettleScanOnlyDepositsFractionOfScanTime(t *testing.T) {
	b := newFakeBudget()
	Settle(b, factors, "k", Decision{Action: ActionScanOnly}, 2.0)
	assert.Equal(t, 0.2, b.GetBudget("k"))
}
