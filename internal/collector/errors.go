package collector

import (
	"context"
	"errors"

	"TopBolsas/internal/calculator"
	"TopBolsas/internal/model"
)

// Provider errors. Fetchers wrap one of these so failures can be classified.
var (
	ErrNetwork  = errors.New("network error")
	ErrUpstream = errors.New("upstream error")
	ErrParse    = errors.New("invalid response")
	ErrNoData   = errors.New("no data returned")
)

// Classify maps a fetch error to the reason recorded for the dropped symbol.
func Classify(err error) model.FailureReason {
	switch {
	case err == nil:
		return ""
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		return model.FailureCanceled
	case errors.Is(err, calculator.ErrInsufficientHistory):
		return model.FailureInsufficient
	case errors.Is(err, calculator.ErrInvalidPrice):
		return model.FailureInvalidData
	case errors.Is(err, ErrNoData):
		return model.FailureNoData
	case errors.Is(err, ErrParse):
		return model.FailureParse
	case errors.Is(err, ErrUpstream):
		return model.FailureUpstream
	case errors.Is(err, ErrNetwork):
		return model.FailureNetwork
	default:
		return model.FailureUnknown
	}
}
