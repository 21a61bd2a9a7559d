// Package consistency runs a remote check before a local commit.
//
// The check happens first and outside any database transaction. Only a
// definite answer of the expected kind lets the commit run; an unavailable
// peer fails the operation before any local side effect.
package consistency

import (
	"context"
	"fmt"

	"github.com/eaglebank/platform/shared/apperr"
	"github.com/eaglebank/platform/shared/gate"
	"go.uber.org/zap"
)

// Probe performs one remote check.
type Probe func(ctx context.Context) (gate.Outcome, error)

// Guard describes a check-then-commit step.
type Guard struct {
	// Name identifies the guard in logs.
	Name  string
	Probe Probe
	// Proceed is the definite outcome that allows the commit: Present for
	// "customer must exist", Absent for "no active accounts may remain".
	Proceed gate.Outcome
	// Reject is returned for the opposite definite outcome.
	Reject *apperr.Error
	// UnavailableCode and UnavailableMessage describe the dependency error.
	UnavailableCode    string
	UnavailableMessage string
}

type Orchestrator struct {
	logger *zap.Logger
}

func NewOrchestrator(logger *zap.Logger) *Orchestrator {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Orchestrator{logger: logger}
}

// Run probes, then commits only when the probe returned g.Proceed. commit
// is never called on any other outcome.
func (o *Orchestrator) Run(ctx context.Context, g Guard, commit func(ctx context.Context) error) error {
	if g.Proceed != gate.Present && g.Proceed != gate.Absent {
		return apperr.Unexpected("INVALID_GUARD", "guard proceed outcome must be definite",
			fmt.Errorf("guard %s: proceed=%s", g.Name, g.Proceed))
	}

	outcome, err := g.Probe(ctx)
	switch {
	case outcome == gate.Unavailable:
		o.logger.Error("consistency check unavailable",
			zap.String("guard", g.Name), zap.Error(err))
		return apperr.Unavailable(g.UnavailableCode, g.UnavailableMessage, err)
	case outcome != g.Proceed:
		o.logger.Warn("consistency check rejected",
			zap.String("guard", g.Name), zap.Stringer("outcome", outcome))
		return g.Reject
	}

	return commit(ctx)
}
