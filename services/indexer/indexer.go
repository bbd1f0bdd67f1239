package indexer

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/cenkalti/backoff/v5"
	"github.com/glebarez/sqlite"
	"github.com/google/uuid"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"unitfarm/core/events"
	"unitfarm/core/types"
	"unitfarm/observability"
)

const (
	defaultQueueSize = 1024
	defaultListLimit = 100
	maxListLimit     = 1000
	maxWriteTries    = 5
)

const zeroAddress = "0x0000000000000000000000000000000000000000"

// Config controls the journal database and write queue.
type Config struct {
	DSN       string
	Network   string
	QueueSize int
	Logger    *slog.Logger
}

// Filter selects journal rows. Empty fields match everything.
type Filter struct {
	Account string
	Type    string
	Limit   int
}

// Record is a journal row as returned to readers.
type Record struct {
	ID           string            `json:"id"`
	Seq          uint64            `json:"seq"`
	Network      string            `json:"network"`
	Type         string            `json:"type"`
	Account      string            `json:"account,omitempty"`
	Counterparty string            `json:"counterparty,omitempty"`
	Attributes   map[string]string `json:"attributes"`
	Timestamp    int64             `json:"timestamp"`
}

// Indexer journals committed events to sqlite. Emit never blocks the ledger:
// events are queued and written by Run.
type Indexer struct {
	db      *gorm.DB
	network string
	logger  *slog.Logger
	metrics *observability.IndexerMetrics
	queue   chan *types.Event

	mu     sync.Mutex
	seq    uint64
	closed bool
}

// Open connects to the journal database and migrates its tables. Postgres
// URLs select the postgres driver; anything else is a sqlite DSN.
func Open(cfg Config) (*Indexer, error) {
	dsn := strings.TrimSpace(cfg.DSN)
	if dsn == "" {
		return nil, errors.New("indexer: DSN required")
	}
	db, err := gorm.Open(dialector(dsn), &gorm.Config{Logger: logger.Default.LogMode(logger.Silent)})
	if err != nil {
		return nil, fmt.Errorf("indexer: open: %w", err)
	}
	return New(db, cfg)
}

func dialector(dsn string) gorm.Dialector {
	if strings.HasPrefix(dsn, "postgres://") || strings.HasPrefix(dsn, "postgresql://") {
		return postgres.Open(dsn)
	}
	return sqlite.Open(dsn)
}

// New wraps an existing gorm handle.
func New(db *gorm.DB, cfg Config) (*Indexer, error) {
	if db == nil {
		return nil, errors.New("indexer: database required")
	}
	if err := AutoMigrate(db); err != nil {
		return nil, fmt.Errorf("indexer: migrate: %w", err)
	}
	var last struct{ Seq uint64 }
	if err := db.Model(&EventRow{}).Select("COALESCE(MAX(seq), 0) AS seq").Scan(&last).Error; err != nil {
		return nil, fmt.Errorf("indexer: load sequence: %w", err)
	}
	size := cfg.QueueSize
	if size <= 0 {
		size = defaultQueueSize
	}
	log := cfg.Logger
	if log == nil {
		log = slog.Default()
	}
	return &Indexer{
		db:      db,
		network: strings.TrimSpace(cfg.Network),
		logger:  log.With("component", "indexer"),
		metrics: observability.Indexer(),
		queue:   make(chan *types.Event, size),
		seq:     last.Seq,
	}, nil
}

// DB exposes the underlying handle.
func (ix *Indexer) DB() *gorm.DB { return ix.db }

// Emit implements events.Emitter.
func (ix *Indexer) Emit(evt events.Event) {
	raw := events.Raw(evt)
	if ix == nil || raw == nil {
		return
	}
	ix.mu.Lock()
	defer ix.mu.Unlock()
	if ix.closed {
		return
	}
	select {
	case ix.queue <- raw.Clone():
		ix.metrics.SetQueueDepth(len(ix.queue))
	default:
		observability.Events().RecordDropped()
		ix.logger.Warn("indexer queue full, dropping event", "type", raw.Type)
	}
}

// Run drains the queue until ctx is cancelled or Close is called.
func (ix *Indexer) Run(ctx context.Context) error {
	for {
		select {
		case <-ctx.Done():
			ix.drain(context.Background())
			return ctx.Err()
		case evt, ok := <-ix.queue:
			if !ok {
				return nil
			}
			ix.metrics.SetQueueDepth(len(ix.queue))
			if err := ix.Record(ctx, evt); err != nil {
				ix.logger.Error("indexer write failed", "type", evt.Type, "error", err)
			}
		}
	}
}

func (ix *Indexer) drain(ctx context.Context) {
	for {
		select {
		case evt, ok := <-ix.queue:
			if !ok {
				return
			}
			if err := ix.Record(ctx, evt); err != nil {
				ix.logger.Error("indexer write failed", "type", evt.Type, "error", err)
			}
		default:
			return
		}
	}
}

// Close stops accepting events. Queued events are still drained by Run.
func (ix *Indexer) Close() {
	ix.mu.Lock()
	defer ix.mu.Unlock()
	if ix.closed {
		return
	}
	ix.closed = true
	close(ix.queue)
}

// Record writes evt synchronously, retrying transient failures with
// exponential backoff.
func (ix *Indexer) Record(ctx context.Context, evt *types.Event) error {
	if evt == nil {
		return nil
	}
	attrs, err := json.Marshal(evt.Attributes)
	if err != nil {
		return fmt.Errorf("indexer: encode attributes: %w", err)
	}
	ix.mu.Lock()
	ix.seq++
	seq := ix.seq
	ix.mu.Unlock()
	account, counterparty := subjects(evt)
	row := EventRow{
		ID:           uuid.New(),
		Seq:          seq,
		Network:      ix.network,
		Type:         evt.Type,
		Account:      account,
		Counterparty: counterparty,
		Attributes:   string(attrs),
		Timestamp:    evt.Timestamp(),
	}
	return ix.write(ctx, "farm_events", func(tx *gorm.DB) error {
		return tx.Create(&row).Error
	})
}

func (ix *Indexer) write(ctx context.Context, table string, fn func(tx *gorm.DB) error) error {
	policy := backoff.NewExponentialBackOff()
	policy.InitialInterval = 50 * time.Millisecond
	policy.MaxInterval = 2 * time.Second
	attempt := 0
	_, err := backoff.Retry(ctx, func() (struct{}, error) {
		attempt++
		if attempt > 1 {
			ix.metrics.RecordRetry()
		}
		return struct{}{}, fn(ix.db.WithContext(ctx))
	},
		backoff.WithBackOff(policy),
		backoff.WithMaxTries(maxWriteTries),
		backoff.WithNotify(func(err error, wait time.Duration) {
			ix.logger.Warn("indexer write retry", "table", table, "error", err, "backoff", wait)
		}))
	ix.metrics.RecordWrite(table, err)
	return err
}

// ListEvents returns journal rows newest first.
func (ix *Indexer) ListEvents(ctx context.Context, filter Filter) ([]Record, error) {
	limit := filter.Limit
	if limit <= 0 {
		limit = defaultListLimit
	}
	if limit > maxListLimit {
		limit = maxListLimit
	}
	query := ix.db.WithContext(ctx).Model(&EventRow{})
	if account := strings.ToLower(strings.TrimSpace(filter.Account)); account != "" {
		query = query.Where("account = ? OR counterparty = ?", account, account)
	}
	if typ := strings.TrimSpace(filter.Type); typ != "" {
		query = query.Where("type = ?", typ)
	}
	var rows []EventRow
	if err := query.Order("seq DESC").Limit(limit).Find(&rows).Error; err != nil {
		return nil, fmt.Errorf("indexer: list events: %w", err)
	}
	out := make([]Record, 0, len(rows))
	for _, row := range rows {
		attrs := map[string]string{}
		if row.Attributes != "" {
			if err := json.Unmarshal([]byte(row.Attributes), &attrs); err != nil {
				return nil, fmt.Errorf("indexer: decode attributes: %w", err)
			}
		}
		out = append(out, Record{
			ID:           row.ID.String(),
			Seq:          row.Seq,
			Network:      row.Network,
			Type:         row.Type,
			Account:      row.Account,
			Counterparty: row.Counterparty,
			Attributes:   attrs,
			Timestamp:    row.Timestamp,
		})
	}
	return out, nil
}

// subjects picks the acting account and the other party named by an event.
func subjects(evt *types.Event) (string, string) {
	account := firstAttr(evt, "account", "payee", "from", "admin")
	counterparty := firstAttr(evt, "referrer")
	if account == counterparty || counterparty == zeroAddress {
		counterparty = ""
	}
	return account, counterparty
}

func firstAttr(evt *types.Event, keys ...string) string {
	for _, key := range keys {
		if v := strings.ToLower(strings.TrimSpace(evt.Attr(key))); v != "" {
			return v
		}
	}
	return ""
}
