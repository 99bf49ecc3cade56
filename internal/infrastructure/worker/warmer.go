package worker

import (
	"context"
	"time"

	"fxconvert-service/internal/application"
	"fxconvert-service/internal/domain"
	infraconfig "fxconvert-service/internal/infrastructure/config"

	"go.uber.org/zap"
)

var _ application.Worker = (*RateWarmer)(nil)

type rateWarmer interface {
	WarmRates(ctx context.Context, base domain.Code) (int, error)
}

type warmRecorder interface {
	RatesWarmed(base string, n int)
}

// RateWarmer refreshes today's cached rates for every base currency on a ticker, so
// conversions rarely pay for an upstream call.
type RateWarmer struct {
	Svc   rateWarmer
	Bases []domain.Code
	Every time.Duration
	// Timeout bounds one base's warm-up; zero means none.
	Timeout  time.Duration
	Recorder warmRecorder
	Log      *zap.Logger
}

func (w *RateWarmer) Start(ctx context.Context) {
	log := w.Log
	if log == nil {
		log = zap.NewNop()
	}
	if w.Every <= 0 {
		w.Every = infraconfig.DefaultWarmInterval
	}
	if len(w.Bases) == 0 {
		w.Bases = domain.SupportedCodes()
	}

	t := time.NewTicker(w.Every)
	defer t.Stop()

	log.Info("rate_warmer_started", zap.Duration("every", w.Every))
	w.tick(ctx, log)
	for {
		select {
		case <-ctx.Done():
			log.Info("rate_warmer_stopped")
			return
		case <-t.C:
			w.tick(ctx, log)
		}
	}
}

func (w *RateWarmer) tick(ctx context.Context, log *zap.Logger) {
	for _, base := range w.Bases {
		if ctx.Err() != nil {
			return
		}
		w.warmOne(ctx, log, base)
	}
}

func (w *RateWarmer) warmOne(ctx context.Context, log *zap.Logger, base domain.Code) {
	if w.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, w.Timeout)
		defer cancel()
	}
	n, err := w.Svc.WarmRates(ctx, base)
	if err != nil {
		log.Warn("rate_warm_failed", zap.String("base", string(base)), zap.String("type", string(domain.KindOf(err))), zap.Error(err))
		return
	}
	if w.Recorder != nil {
		w.Recorder.RatesWarmed(string(base), n)
	}
	log.Info("rate_warm_done", zap.String("base", string(base)), zap.Int("rates", n))
}
