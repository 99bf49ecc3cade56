package application

import "fxconvert-service/internal/domain"

// Observer receives pipeline outcomes for metrics.
type Observer interface {
	CacheLookup(hit bool)
	// ConversionDone receives "ok", an error kind, or "error" for unclassified failures.
	ConversionDone(outcome string)
}

type noopObserver struct{}

func (noopObserver) CacheLookup(bool)      {}
func (noopObserver) ConversionDone(string) {}

func outcomeOf(err error) string {
	if err == nil {
		return "ok"
	}
	if k := domain.KindOf(err); k != "" {
		return string(k)
	}
	return "error"
}
