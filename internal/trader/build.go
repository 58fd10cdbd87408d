package trader

import (
	"context"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/rxtech-lab/argo-autotrade/internal/advisory"
	"github.com/rxtech-lab/argo-autotrade/internal/annotation"
	"github.com/rxtech-lab/argo-autotrade/internal/config"
	"github.com/rxtech-lab/argo-autotrade/internal/logger"
	"github.com/rxtech-lab/argo-autotrade/internal/metrics"
	"github.com/rxtech-lab/argo-autotrade/internal/notify"
	"github.com/rxtech-lab/argo-autotrade/internal/trading/venue"
	"go.uber.org/zap"
)

// Build creates every component from cfg and registers metrics with reg.
// The advisory client is only created when a model is configured, and the
// Telegram notifier only when a token is set.
func Build(ctx context.Context, cfg config.Config, reg prometheus.Registerer, log *logger.Logger) (*Trader, error) {
	v, err := venue.New(cfg.Venue, log)
	if err != nil {
		return nil, err
	}

	store, err := annotation.New(ctx, cfg.Annotations, log)
	if err != nil {
		return nil, err
	}

	var advisor Advisor

	if cfg.Advisory.Model != "" {
		client, err := advisory.NewClient(cfg.Advisory, log)
		if err != nil {
			_ = store.Close()

			return nil, err
		}

		advisor = client
	}

	var notifier notify.Notifier = notify.Nop{}

	if cfg.Notify.TelegramToken != "" {
		telegram, err := notify.NewTelegram(cfg.Notify.TelegramToken, cfg.Notify.TelegramChatID, log)
		if err != nil {
			log.Warn("Telegram notifications disabled", zap.Error(err))
		} else {
			notifier = telegram
		}
	}

	log.Info("Trader built",
		zap.String("venue", v.Name()),
		zap.String("annotations", cfg.Annotations.Driver),
		zap.Bool("advisory", advisor != nil),
	)

	return New(cfg, v, store, advisor, notifier, metrics.New(reg), log), nil
}
