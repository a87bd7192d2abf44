package sim

import (
	"fmt"
	"strings"
)

// Controller kind names accepted in configuration.
const (
	KindBaseline   = "etcs"
	KindFlow       = "dista"
	KindPredictive = "predictive"
	KindAssertive  = "assertive"
)

// Kinds lists the supported controller kinds.
func Kinds() []string {
	return []string{KindBaseline, KindFlow, KindPredictive, KindAssertive}
}

// DefaultParams returns the study defaults for a kind: the baseline is
// deliberately conservative, the advisory strategies progressively
// tighter.
func DefaultParams(kind string) Params {
	switch strings.ToLower(kind) {
	case KindFlow:
		return Params{ReactionS: 0.8, MarginM: 100}
	case KindPredictive:
		return Params{ReactionS: 0.8, MarginM: 80}
	case KindAssertive:
		return Params{ReactionS: 0.5, MarginM: 60}
	default:
		return Params{ReactionS: 2.0, MarginM: 150}
	}
}

// Stateful reports whether a kind accumulates per-train history and
// therefore needs one instance per train.
func Stateful(kind string) bool {
	return strings.ToLower(kind) == KindPredictive
}

// New builds a controller of the requested kind. An unknown kind is an
// unsupported configuration, never silently substituted by a default.
func New(kind string, p Params) (Controller, error) {
	switch strings.ToLower(kind) {
	case KindBaseline:
		return NewBaseline(p), nil
	case KindFlow:
		return NewFlow(p), nil
	case KindPredictive:
		return NewPredictive(p), nil
	case KindAssertive:
		return NewAssertive(p), nil
	}
	return nil, fmt.Errorf("unsupported controller type %q (valid: %s)", kind, strings.Join(Kinds(), ", "))
}
