// Package controller implements the Economic Controller: the per-(file, predicate) decision
// of whether to skip, read outliers, scan, build an index, or scan-with-penalty, and the
// budget bookkeeping that decision implies. It is grounded on original_source/quackdb's
// read_parquet_sma decision table.
package controller

import (
	"github.com/lychee-technology/smaq"
	"github.com/lychee-technology/smaq/smastore"
)

// Action is the tagged decision the controller returns for one file under one predicate.
type Action int

const (
	// ActionScanOnly means no SMA exists and the budget cannot afford to build one; fall
	// back to a full scan; no build is scheduled.
	ActionScanOnly Action = iota
	// ActionScanAndBuild means no SMA exists and the budget affords building one; a
	// background build is scheduled and the file still falls back to a full scan this
	// query.
	ActionScanAndBuild
	// ActionSkip means the SMA proves no row in the file can satisfy the predicate.
	ActionSkip
	// ActionOutlierRead means the SMA's materialised outlier rows already contain every
	// row that could satisfy the predicate; no backend scan is needed.
	ActionOutlierRead
	// ActionScanWithPenalty means an SMA exists but is of no benefit for this predicate
	// (the literal falls inside the IQR fences); fall back to a full scan and debit a
	// probe penalty.
	ActionScanWithPenalty
)

func (a Action) String() string {
	switch a {
	case ActionScanOnly:
		return "scan"
	case ActionScanAndBuild:
		return "scan_and_build"
	case ActionSkip:
		return "skip"
	case ActionOutlierRead:
		return "outlier_read"
	case ActionScanWithPenalty:
		return "scan_with_penalty"
	default:
		return "unknown"
	}
}

// Budget is the narrow dependency the controller needs from the Stats Manager: reading and
// adjusting a predicate key's budget and average scan time.
type Budget interface {
	GetBudget(key smaq.PredicateKey) float64
	AddBudget(key smaq.PredicateKey, amount float64)
	AvgScanTime(key smaq.PredicateKey) float64
}

// Factors bundles the economic constants spec §4.5 names.
type Factors struct {
	DepositFactor      float64
	ReinvestFactor     float64
	ProbePenaltyFactor float64
}

// Decision is what Decide returns: the action to take, plus the artifact it consulted (set
// for Skip, OutlierRead and ScanWithPenalty; nil for ScanOnly and ScanAndBuild, where no
// artifact existed).
type Decision struct {
	Action   Action
	Artifact *smastore.Artifact
}

// Decide applies spec §4.5's five-branch decision table for one file against one predicate.
// artifact is the SMA currently stored for key, or nil if none has been built. When the
// decision is ScanAndBuild, the build's deposit cost is debited from key's budget
// immediately (matching the order of operations the decision table is grounded on), before
// Settle later applies the scan-time deposit.
func Decide(budget Budget, factors Factors, key smaq.PredicateKey, predicate smaq.Predicate, artifact *smastore.Artifact) Decision {
	if artifact == nil {
		buildCost := factors.DepositFactor * budget.AvgScanTime(key)
		if budget.GetBudget(key) >= buildCost {
			budget.AddBudget(key, -buildCost)
			return Decision{Action: ActionScanAndBuild}
		}
		return Decision{Action: ActionScanOnly}
	}

	if predicate.Op.SkipsFile(predicate.Literal, artifact.Min, artifact.Max) {
		return Decision{Action: ActionSkip, Artifact: artifact}
	}

	if predicate.Op.IsOutlierShortcut(predicate.Literal, artifact.LowerThreshold, artifact.UpperThreshold) {
		return Decision{Action: ActionOutlierRead, Artifact: artifact}
	}

	budget.AddBudget(key, -factors.ProbePenaltyFactor*budget.AvgScanTime(key))
	return Decision{Action: ActionScanWithPenalty, Artifact: artifact}
}

// Settle applies the budget consequence of a Decision, per spec §4.5's deposit/reinvest/
// penalty arithmetic. It must be called exactly once per file per query, after the scan (or
// lack of one) actually happened, with scanTime the measured duration of any backend scan
// performed for this decision (zero for Skip/OutlierRead).
func Settle(budget Budget, factors Factors, key smaq.PredicateKey, decision Decision, scanTime float64) {
	avg := budget.AvgScanTime(key)
	switch decision.Action {
	case ActionScanAndBuild:
		// build-cost debit already applied in Decide; only the post-scan deposit remains.
		budget.AddBudget(key, factors.DepositFactor*scanTime)
	case ActionScanOnly:
		budget.AddBudget(key, factors.DepositFactor*scanTime)
	case ActionSkip:
		budget.AddBudget(key, factors.ReinvestFactor*avg)
	case ActionOutlierRead:
		budget.AddBudget(key, factors.ReinvestFactor*avg)
	case ActionScanWithPenalty:
		// penalty debit already applied in Decide; only the post-scan deposit remains.
		budget.AddBudget(key, factors.DepositFactor*scanTime)
	}
}
