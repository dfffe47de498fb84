package app

import (
	"context"
	"time"

	"github.com/soundvine/rewards/internal/domain/model"
	"github.com/soundvine/rewards/internal/domain/trending"
	"github.com/soundvine/rewards/pkg/logger"
	"github.com/soundvine/rewards/pkg/metrics"
)

// runDrainLoop drains the durable queue on a fixed cadence. Each cycle
// try-acquires the advisory lock so at most one process drains at a time;
// losing the race is normal steady state, not an error.
func (s *Service) runDrainLoop(ctx context.Context) {
	defer s.wg.Done()

	ticker := time.NewTicker(s.drainInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-s.stopCh:
			return
		case <-ticker.C:
			s.drainOnce(ctx)
		}
	}
}

func (s *Service) drainOnce(ctx context.Context) {
	acquired, err := s.locker.TryAcquire(ctx, drainLockName, s.drainLockTTL)
	if err != nil {
		s.logger.Error(ctx, "drain lock error", logger.Error(err))
		return
	}
	if !acquired {
		metrics.RecordDrainSkipped()
		return
	}
	defer func() {
		if rerr := s.locker.Release(ctx, drainLockName); rerr != nil {
			s.logger.Error(ctx, "drain lock release failed", logger.Error(rerr))
		}
	}()

	processed, err := s.bus.ProcessEvents(ctx, s.drainBatchSize)
	if err != nil {
		s.logger.Error(ctx, "drain cycle failed", logger.Error(err))
		return
	}
	metrics.RecordDrainBatch()
	if processed > 0 {
		s.logger.Debug(ctx, "drained events", logger.Int("count", processed))
	}
}

// runTrendingLoop regenerates rankings on a fixed cadence and publishes the
// resulting ranks as events, which drive the trending challenges.
func (s *Service) runTrendingLoop(ctx context.Context) {
	defer s.wg.Done()

	ticker := time.NewTicker(s.trendingInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-s.stopCh:
			return
		case <-ticker.C:
			s.trendOnce(ctx)
		}
	}
}

func (s *Service) trendOnce(ctx context.Context) {
	start := time.Now()
	defer func() {
		metrics.ObserveTrendingDuration(time.Since(start).Seconds())
	}()

	at := time.Now().UTC()
	for _, typ := range []model.TrendingType{model.TrendingTracks, model.TrendingPlaylists} {
		rank, err := s.generator.Generate(ctx, trending.Request{
			Type:    typ,
			Version: s.trendingVersion,
			Range:   model.RangeWeek,
			Limit:   s.trendingLimit,
			At:      at,
		})
		if err != nil {
			s.logger.Error(ctx, "trending generation failed",
				logger.String("type", string(typ)),
				logger.Error(err),
			)
			continue
		}
		metrics.RecordTrendingRun(string(typ), string(model.RangeWeek))
		s.publishRanks(ctx, rank)
	}
}

// publishRanks dispatches one event per reward rank inside a bus scope so
// the batch flushes exactly once even if dispatching fails midway.
func (s *Service) publishRanks(ctx context.Context, rank model.TrendingRank) {
	err := s.bus.Scope(ctx, func(ctx context.Context) error {
		top := s.rewardRanks
		if top > len(rank.ItemIDs) {
			top = len(rank.ItemIDs)
		}
		for i := 0; i < top; i++ {
			s.bus.Dispatch(ctx, model.KindTrendingRank, 0, rank.OwnerIDs[i], model.TrendingRankExtra{
				Rank:   i + 1,
				ItemID: rank.ItemIDs[i],
				Type:   string(rank.Type),
				Period: rank.Period,
			})
		}
		return nil
	})
	if err != nil {
		s.logger.Error(ctx, "publishing trending ranks failed",
			logger.String("type", string(rank.Type)),
			logger.Error(err),
		)
	}
}
