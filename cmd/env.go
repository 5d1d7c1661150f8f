package main

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/MartinezAgullo/copforge/internal/config"
	"github.com/MartinezAgullo/copforge/internal/cop"
	"github.com/MartinezAgullo/copforge/internal/copsync"
	"github.com/MartinezAgullo/copforge/internal/engine"
	"github.com/MartinezAgullo/copforge/internal/resilience"
	"github.com/MartinezAgullo/copforge/pkg/mapa"
)

// env bundles the wired-up engine for a command invocation.
type env struct {
	Store  *cop.Store
	Sync   *copsync.Manager
	Engine *engine.Engine
}

// initEngine constructs the store, mapa client, sync manager and engine
// from config. When cop.auto_load is set the store is seeded from the
// remote; a pull failure logs a warning and the engine starts empty.
func initEngine(ctx context.Context, cfg *config.Config) *env {
	client := mapa.NewClient(cfg.Mapa.BaseURL,
		mapa.WithTimeout(time.Duration(cfg.Mapa.TimeoutSecs)*time.Second),
		mapa.WithRateLimit(cfg.Mapa.RateLimitRPS, cfg.Mapa.RateBurst),
	)

	var syncOpts []copsync.Option
	syncOpts = append(syncOpts,
		copsync.WithAutoSync(cfg.COP.AutoSync),
		copsync.WithParallelism(cfg.COP.SyncParallelism),
	)
	if cfg.Mapa.BreakerFailureThreshold > 0 {
		breaker := resilience.NewCircuitBreaker(resilience.CircuitBreakerConfig{
			FailureThreshold: cfg.Mapa.BreakerFailureThreshold,
			ResetTimeout:     time.Duration(cfg.Mapa.BreakerResetSecs) * time.Second,
			ShouldTrip:       resilience.IsTransient,
			OnStateChange: func(from, to resilience.CircuitState) {
				zap.L().Warn("mapa circuit breaker state change",
					zap.String("from", from.String()),
					zap.String("to", to.String()),
				)
			},
		})
		syncOpts = append(syncOpts, copsync.WithCircuitBreaker(breaker))
	}

	store := cop.NewStore()
	syncMgr := copsync.NewManager(store, copsync.NewMapaRemote(client), syncOpts...)
	eng := engine.New(store, syncMgr,
		engine.WithDefaultThresholds(cfg.COP.DistanceThresholdM, cfg.COP.TimeWindowSecs),
	)

	if cfg.COP.AutoLoad {
		result := syncMgr.LoadFromMapa(ctx)
		zap.L().Info("startup reconciliation",
			zap.Int("pulled", result.Pulled),
			zap.Int("errors", len(result.Errors)),
		)
	}

	return &env{Store: store, Sync: syncMgr, Engine: eng}
}
