package indexer

import (
	"context"
	"fmt"
	"math/big"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/glebarez/sqlite"
	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
	"github.com/xitongsys/parquet-go-source/local"
	"github.com/xitongsys/parquet-go/reader"
	"gorm.io/gorm"

	"unitfarm/core/types"
	"unitfarm/native/farm"
)

func setupIndexer(t *testing.T) *Indexer {
	t.Helper()
	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", uuid.NewString())
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{})
	require.NoError(t, err)
	ix, err := New(db, Config{Network: "farm-test", QueueSize: 4})
	require.NoError(t, err)
	return ix
}

func event(typ string, attrs map[string]string) *types.Event {
	return &types.Event{Type: typ, Attributes: attrs}
}

func TestRecordAndListEvents(t *testing.T) {
	ix := setupIndexer(t)
	ctx := context.Background()
	alice := "0x00000000000000000000000000000000000000a1"
	bob := "0x00000000000000000000000000000000000000b2"

	require.NoError(t, ix.Record(ctx, event(farm.EventTypeBuy, map[string]string{
		"account": alice, "referrer": bob, "paid": "1000", "timestamp": "100",
	})))
	require.NoError(t, ix.Record(ctx, event(farm.EventTypeCompound, map[string]string{
		"account": bob, "units": "5", "timestamp": "101",
	})))
	require.NoError(t, ix.Record(ctx, event("payees.withdraw", map[string]string{
		"payee": "0x00000000000000000000000000000000000000fe", "amount": "3", "timestamp": "102",
	})))

	all, err := ix.ListEvents(ctx, Filter{})
	require.NoError(t, err)
	require.Len(t, all, 3)
	require.Equal(t, uint64(3), all[0].Seq)
	require.Equal(t, "farm-test", all[0].Network)

	forBob, err := ix.ListEvents(ctx, Filter{Account: bob})
	require.NoError(t, err)
	require.Len(t, forBob, 2)

	buys, err := ix.ListEvents(ctx, Filter{Type: farm.EventTypeBuy})
	require.NoError(t, err)
	require.Len(t, buys, 1)
	require.Equal(t, alice, buys[0].Account)
	require.Equal(t, bob, buys[0].Counterparty)
	require.Equal(t, "1000", buys[0].Attributes["paid"])
	require.Equal(t, int64(100), buys[0].Timestamp)

	limited, err := ix.ListEvents(ctx, Filter{Limit: 1})
	require.NoError(t, err)
	require.Len(t, limited, 1)
}

func TestSequenceResumesAfterReopen(t *testing.T) {
	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", uuid.NewString())
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{})
	require.NoError(t, err)
	ix, err := New(db, Config{})
	require.NoError(t, err)
	require.NoError(t, ix.Record(context.Background(), event(farm.EventTypeSell, map[string]string{"timestamp": "1"})))

	again, err := New(db, Config{})
	require.NoError(t, err)
	require.NoError(t, again.Record(context.Background(), event(farm.EventTypeSell, map[string]string{"timestamp": "2"})))
	rows, err := again.ListEvents(context.Background(), Filter{})
	require.NoError(t, err)
	require.Equal(t, uint64(2), rows[0].Seq)
}

func TestRunDrainsQueuedEvents(t *testing.T) {
	ix := setupIndexer(t)
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- ix.Run(ctx) }()

	ix.Emit(farm.WrapEvent(event(farm.EventTypeBootstrap, map[string]string{"admin": "0xaa", "timestamp": "7"})))
	require.Eventually(t, func() bool {
		rows, err := ix.ListEvents(context.Background(), Filter{Type: farm.EventTypeBootstrap})
		return err == nil && len(rows) == 1
	}, 2*time.Second, 10*time.Millisecond)

	cancel()
	require.ErrorIs(t, <-done, context.Canceled)
	ix.Close()
	ix.Emit(farm.WrapEvent(event(farm.EventTypeBootstrap, nil)))
}

type staticMarket struct{ view *farm.MarketView }

func (s staticMarket) FarmMarket(context.Context) (*farm.MarketView, error) { return s.view, nil }

func TestSnapshotRecordsMarket(t *testing.T) {
	ix := setupIndexer(t)
	snap, err := NewSnapshotter(ix, staticMarket{view: &farm.MarketView{
		PoolUnits: big.NewInt(108_000_000_000), HeldValue: big.NewInt(950), Initialized: true,
	}}, "@every 1h")
	require.NoError(t, err)
	snap.nowFn = func() time.Time { return time.Unix(1_700_000_000, 0) }
	require.NoError(t, snap.Snapshot(context.Background()))

	rows, err := ix.LatestSnapshots(context.Background(), 5)
	require.NoError(t, err)
	require.Len(t, rows, 1)
	require.Equal(t, "108000000000", rows[0].PoolUnits)
	require.Equal(t, "950", rows[0].HeldValue)
	require.True(t, rows[0].Initialized)

	_, err = NewSnapshotter(ix, staticMarket{}, "not a schedule")
	require.Error(t, err)
}

func TestExportParquetWritesNewRows(t *testing.T) {
	ix := setupIndexer(t)
	ctx := context.Background()
	dir := t.TempDir()

	empty, err := ix.ExportParquet(ctx, dir, 0)
	require.NoError(t, err)
	require.Zero(t, empty.Rows)
	require.Empty(t, empty.Path)

	for i := 0; i < 3; i++ {
		require.NoError(t, ix.Record(ctx, event(farm.EventTypeCompound, map[string]string{
			"account": "0x00000000000000000000000000000000000000a1", "timestamp": fmt.Sprint(100 + i),
		})))
	}
	res, err := ix.ExportParquet(ctx, dir, 1)
	require.NoError(t, err)
	require.Equal(t, 2, res.Rows)
	require.Equal(t, uint64(2), res.FirstSeq)
	require.Equal(t, uint64(3), res.LastSeq)
	info, err := os.Stat(res.Path)
	require.NoError(t, err)
	require.Positive(t, info.Size())
	require.Equal(t, filepath.Join(dir, "farm-test_events_2_3.parquet"), res.Path)

	fr, err := local.NewLocalFileReader(res.Path)
	require.NoError(t, err)
	defer fr.Close()
	pr, err := reader.NewParquetReader(fr, new(parquetEvent), 1)
	require.NoError(t, err)
	defer pr.ReadStop()
	require.Equal(t, int64(2), pr.GetNumRows())
	got := make([]parquetEvent, 2)
	require.NoError(t, pr.Read(&got))
	require.Equal(t, int64(2), got[0].Seq)
	require.Equal(t, "farm-test", got[0].Network)
	require.Equal(t, farm.EventTypeCompound, got[1].Type)
	require.Equal(t, "0x00000000000000000000000000000000000000a1", got[1].Account)
	require.Equal(t, int64(102), got[1].Timestamp)
}

func TestDialectorSelection(t *testing.T) {
	require.Equal(t, "postgres", dialector("postgres://farm@localhost/farm").Name())
	require.Equal(t, "sqlite", dialector("farm.sqlite").Name())
}

func TestScheduledExportAdvancesCursor(t *testing.T) {
	ix := setupIndexer(t)
	ctx := context.Background()
	snap, err := NewSnapshotter(ix, staticMarket{view: &farm.MarketView{PoolUnits: big.NewInt(1), HeldValue: big.NewInt(0)}}, "")
	require.NoError(t, err)
	dir := t.TempDir()
	require.NoError(t, snap.ScheduleExport("@daily", dir))
	require.Error(t, snap.ScheduleExport("@daily", " "))

	require.NoError(t, ix.Record(ctx, event(farm.EventTypeSell, map[string]string{"timestamp": "1"})))
	first, err := snap.Export(ctx, dir)
	require.NoError(t, err)
	require.Equal(t, 1, first.Rows)

	again, err := snap.Export(ctx, dir)
	require.NoError(t, err)
	require.Zero(t, again.Rows)
}
