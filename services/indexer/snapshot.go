package indexer

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/robfig/cron/v3"
	"gorm.io/gorm"

	"unitfarm/native/farm"
)

// MarketSource reports the current market.
type MarketSource interface {
	FarmMarket(ctx context.Context) (*farm.MarketView, error)
}

// Snapshotter periodically records the market into the journal.
type Snapshotter struct {
	ix     *Indexer
	source MarketSource
	cron   *cron.Cron
	nowFn  func() time.Time

	exportMu     sync.Mutex
	lastExported uint64
}

// NewSnapshotter schedules snapshots on the given cron spec (standard five
// field syntax, descriptors such as "@every 1m" accepted).
func NewSnapshotter(ix *Indexer, source MarketSource, spec string) (*Snapshotter, error) {
	if ix == nil || source == nil {
		return nil, fmt.Errorf("indexer: snapshotter requires indexer and market source")
	}
	s := &Snapshotter{ix: ix, source: source, cron: cron.New(), nowFn: time.Now}
	spec = strings.TrimSpace(spec)
	if spec == "" {
		spec = "@every 1m"
	}
	if _, err := s.cron.AddFunc(spec, func() {
		if err := s.Snapshot(context.Background()); err != nil {
			s.ix.logger.Error("market snapshot failed", "error", err)
		}
	}); err != nil {
		return nil, fmt.Errorf("indexer: snapshot schedule: %w", err)
	}
	return s, nil
}

// ScheduleExport adds a periodic parquet export of journal rows recorded
// since the previous export. The first run after startup exports everything.
func (s *Snapshotter) ScheduleExport(spec, dir string) error {
	if strings.TrimSpace(dir) == "" {
		return fmt.Errorf("indexer: export directory required")
	}
	if _, err := s.cron.AddFunc(spec, func() {
		if _, err := s.Export(context.Background(), dir); err != nil {
			s.ix.logger.Error("event export failed", "error", err)
		}
	}); err != nil {
		return fmt.Errorf("indexer: export schedule: %w", err)
	}
	return nil
}

// Export writes journal rows recorded since the previous export.
func (s *Snapshotter) Export(ctx context.Context, dir string) (*ExportResult, error) {
	s.exportMu.Lock()
	defer s.exportMu.Unlock()
	res, err := s.ix.ExportParquet(ctx, dir, s.lastExported)
	if err != nil {
		return nil, err
	}
	s.lastExported = res.LastSeq
	return res, nil
}

func (s *Snapshotter) Start() { s.cron.Start() }

// Stop halts the schedule and waits for a running snapshot to finish.
func (s *Snapshotter) Stop() {
	<-s.cron.Stop().Done()
}

// Snapshot records the market once.
func (s *Snapshotter) Snapshot(ctx context.Context) error {
	view, err := s.source.FarmMarket(ctx)
	if err != nil {
		return fmt.Errorf("indexer: read market: %w", err)
	}
	row := MarketSnapshot{
		ID:          uuid.New(),
		Network:     s.ix.network,
		PoolUnits:   view.PoolUnits.String(),
		HeldValue:   view.HeldValue.String(),
		Initialized: view.Initialized,
		TakenAt:     s.nowFn().UTC(),
	}
	err = s.ix.write(ctx, "farm_market_snapshots", func(tx *gorm.DB) error {
		return tx.Create(&row).Error
	})
	if err == nil {
		s.ix.metrics.RecordSnapshot()
	}
	return err
}

// LatestSnapshots returns the most recent market snapshots, newest first.
func (ix *Indexer) LatestSnapshots(ctx context.Context, limit int) ([]MarketSnapshot, error) {
	if limit <= 0 {
		limit = 10
	}
	var rows []MarketSnapshot
	err := ix.db.WithContext(ctx).Order("taken_at DESC").Limit(limit).Find(&rows).Error
	return rows, err
}
