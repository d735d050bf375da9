package session

import (
	"time"

	"github.com/goliatone/go-formbuilder/pkg/validation"
)

// Observer receives runtime events. Implementations must be safe for
// concurrent use when shared between runtimes.
type Observer interface {
	EditApplied(fieldID string, affected int, elapsed time.Duration)
	DerivationEvaluated(fieldID string, err error)
	ValidationFailed(failure *validation.Failure)
	Submitted(ok bool)
}

// NopObserver ignores every event.
type NopObserver struct{}

func (NopObserver) EditApplied(string, int, time.Duration) {}
func (NopObserver) DerivationEvaluated(string, error)      {}
func (NopObserver) ValidationFailed(*validation.Failure)   {}
func (NopObserver) Submitted(bool)                         {}

// Observers fans events out to several observers.
type Observers []Observer

func (o Observers) EditApplied(fieldID string, affected int, elapsed time.Duration) {
	for _, obs := range o {
		obs.EditApplied(fieldID, affected, elapsed)
	}
}

func (o Observers) DerivationEvaluated(fieldID string, err error) {
	for _, obs := range o {
		obs.DerivationEvaluated(fieldID, err)
	}
}

func (o Observers) ValidationFailed(failure *validation.Failure) {
	for _, obs := range o {
		obs.ValidationFailed(failure)
	}
}

func (o Observers) Submitted(ok bool) {
	for _, obs := range o {
		obs.Submitted(ok)
	}
}
