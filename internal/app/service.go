// Package app wires the rewards subsystem: relational store, durable queue,
// event bus, challenge managers and the periodic jobs that drive them.
package app

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/soundvine/rewards/internal/adapters/mq/bus"
	"github.com/soundvine/rewards/internal/adapters/mq/queue"
	"github.com/soundvine/rewards/internal/adapters/repository"
	"github.com/soundvine/rewards/internal/domain/challenge"
	"github.com/soundvine/rewards/internal/domain/model"
	"github.com/soundvine/rewards/internal/domain/trending"
	"github.com/soundvine/rewards/pkg/logger"
)

// Default service configuration constants.
const (
	defaultDrainBatchSize   = 500
	defaultDrainInterval    = 30 * time.Second
	defaultDrainLockTTL     = 5 * time.Minute
	defaultTrendingInterval = 15 * time.Minute
	defaultTrendingVersion  = "v2"
	defaultTrendingLimit    = 100
	defaultRewardRanks      = 5
	defaultBufferCapacity   = 10_000

	drainLockName = "challenge-drain"
)

// Service owns the lifecycle of every component.
type Service struct {
	mu sync.Mutex

	// Configuration
	dsn              string
	bufferCapacity   int
	drainBatchSize   int
	drainInterval    time.Duration
	drainLockTTL     time.Duration
	trendingInterval time.Duration
	trendingVersion  string
	trendingLimit    int
	rewardRanks      int

	// Components
	bus       *bus.Bus
	ledger    repository.Ledger
	locker    repository.Locker
	generator *trending.Generator
	managers  []*challenge.Manager

	started bool
	stopCh  chan struct{}
	wg      sync.WaitGroup

	logger logger.Logger
}

// New constructs a Service with defaults; apply options to override.
func New(opts ...Option) *Service {
	s := &Service{
		dsn:              "rewards.db",
		bufferCapacity:   defaultBufferCapacity,
		drainBatchSize:   defaultDrainBatchSize,
		drainInterval:    defaultDrainInterval,
		drainLockTTL:     defaultDrainLockTTL,
		trendingInterval: defaultTrendingInterval,
		trendingVersion:  defaultTrendingVersion,
		trendingLimit:    defaultTrendingLimit,
		rewardRanks:      defaultRewardRanks,
		stopCh:           make(chan struct{}),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Start opens the store, wires every component, installs the challenge
// catalog and launches the periodic jobs. A catalog/updater mismatch is a
// configuration error and aborts startup.
func (s *Service) Start(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.started {
		return nil
	}
	if s.logger == nil {
		s.logger = logger.Get().Named("app")
	}

	db, err := repository.Open(s.dsn)
	if err != nil {
		return err
	}

	ledger, err := repository.NewGormLedger(db)
	if err != nil {
		return err
	}
	aggs, err := repository.NewGormAggregates(db)
	if err != nil {
		return err
	}
	locker, err := repository.NewGormLocker(db)
	if err != nil {
		return err
	}
	durable, err := queue.NewGormQueue(db)
	if err != nil {
		return err
	}

	s.ledger = ledger
	s.locker = locker
	s.bus = bus.New(durable, bus.WithBufferCapacity(s.bufferCapacity))
	s.generator = trending.NewGenerator(repository.NewGormTrendingSource(db))

	catalog := challenge.Catalog()
	if err := ledger.UpsertDefinitions(ctx, catalog); err != nil {
		return err
	}

	registry := challenge.DefaultRegistry(aggs, s.rewardRanks)
	s.managers = s.managers[:0]
	for _, def := range catalog {
		updater, err := registry.Lookup(def.ID)
		if err != nil {
			return fmt.Errorf("wire catalog: %w", err)
		}
		mgr, err := challenge.NewManager(def, updater, ledger)
		if err != nil {
			return fmt.Errorf("wire catalog: %w", err)
		}
		for _, kind := range mgr.Kinds() {
			s.bus.RegisterListener(kind, mgr)
		}
		s.managers = append(s.managers, mgr)
	}

	s.wg.Add(2)
	go s.runDrainLoop(ctx)
	go s.runTrendingLoop(ctx)

	s.started = true
	s.logger.Info(ctx, "rewards service started",
		logger.Int("challenges", len(s.managers)),
		logger.String("trending_version", s.trendingVersion),
	)
	return nil
}

// Stop shuts down the periodic jobs and flushes any buffered events.
func (s *Service) Stop() {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.started {
		return
	}
	close(s.stopCh)
	s.wg.Wait()

	ctx := context.Background()
	if err := s.bus.Flush(ctx); err != nil {
		s.logger.Error(ctx, "final flush failed", logger.Error(err))
	}
	s.started = false
	s.logger.Info(ctx, "rewards service stopped")
}

// Bus exposes the event bus to upstream producers (the dispatch
// integration boundary for indexing jobs).
func (s *Service) Bus() *bus.Bus { return s.bus }

// Ledger exposes the read surface polled by the attestation service.
func (s *Service) Ledger() repository.Ledger { return s.ledger }

// Generate runs one trending pass synchronously, for callers that serve
// ranks on demand.
func (s *Service) Generate(ctx context.Context, req trending.Request) (model.TrendingRank, error) {
	return s.generator.Generate(ctx, req)
}
