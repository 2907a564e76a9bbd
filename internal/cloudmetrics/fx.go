package cloudmetrics

import (
	"context"
	"time"

	"github.com/openpress/peerflow/internal/config"
	manuscriptdomain "github.com/openpress/peerflow/internal/manuscript/domain"
	"github.com/prometheus/client_golang/prometheus"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

var Module = fx.Module("cloud.metrics",
	fx.Provide(func() *prometheus.Registry {
		return prometheus.NewRegistry()
	}),
	fx.Provide(NewPusher),
	fx.Provide(func(cfg config.Config, registry *prometheus.Registry) Recorder {
		if !cfg.Metrics.Enabled {
			return NoopRecorder{}
		}
		return newRecorder(registry)
	}),
	fx.Invoke(func(lc fx.Lifecycle, cfg config.Config, rec Recorder, pusher Pusher, registry *prometheus.Registry, logger *zap.Logger, db *gorm.DB) {
		if pusher == nil {
			return
		}
		if logger == nil {
			logger = zap.NewNop()
		}

		interval := time.Duration(cfg.Metrics.Interval) * time.Second
		if interval <= 0 {
			interval = 30 * time.Minute
		}

		ctx, cancel := context.WithCancel(context.Background())
		lc.Append(fx.Hook{
			OnStart: func(context.Context) error {
				logger.Info("starting editorial metrics background worker")
				go func() {
					ticker := time.NewTicker(interval)
					defer ticker.Stop()

					updateUnderReviewGauge(ctx, rec, db)
					if err := pusher.Push(ctx, registry); err != nil {
						logger.Error("initial editorial metrics push failed", zap.Error(err))
					}

					for {
						select {
						case <-ticker.C:
							updateUnderReviewGauge(ctx, rec, db)
							if err := pusher.Push(ctx, registry); err != nil {
								logger.Error("periodic editorial metrics push failed", zap.Error(err))
							}
						case <-ctx.Done():
							logger.Info("stopping editorial metrics background worker")
							return
						}
					}
				}()
				return nil
			},
			OnStop: func(context.Context) error {
				cancel()
				return nil
			},
		})
	}),
)

func updateUnderReviewGauge(ctx context.Context, rec Recorder, db *gorm.DB) {
	if rec == nil || db == nil {
		return
	}
	var count int64
	err := db.WithContext(ctx).
		Model(&manuscriptdomain.Manuscript{}).
		Where("status = ?", manuscriptdomain.StatusUnderReview).
		Count(&count).Error
	if err != nil {
		return
	}
	rec.SetManuscriptsUnderReview(count)
}
