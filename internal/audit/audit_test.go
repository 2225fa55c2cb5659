package audit

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/go-faster/errors"
	pgzip "github.com/klauspost/pgzip"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/xenking/healthybite/internal/domain/order"
	"github.com/xenking/healthybite/internal/orderapi"
)

// --- Mock implementations ---

type sliceSource struct {
	orders []order.Order
	err    error
}

func (s *sliceSource) Each(_ context.Context, fn func(order.Order) error) error {
	for _, o := range s.orders {
		if err := fn(o); err != nil {
			return err
		}
	}
	return s.err
}

// --- Helpers ---

var base = time.Date(2026, 5, 4, 18, 30, 10, 0, time.UTC)

func salad(qty int) order.Item {
	return order.Item{ProductID: "power-salad", Name: "Power Salad Bowl", Price: decimal.RequireFromString("1.9"), Qty: qty}
}

func juice() order.Item {
	return order.Item{ProductID: "detox-juice-large", Name: "Detox Juice", Price: decimal.RequireFromString("2.4"), Qty: 1}
}

func newOrder(id, user string, at time.Time, items ...order.Item) order.Order {
	total := decimal.Zero
	for _, it := range items {
		total = total.Add(it.Price.Mul(decimal.NewFromInt(int64(it.Qty))))
	}
	return order.Order{ID: id, UserID: user, Items: items, TotalAmount: total, CreatedAt: at, Status: order.StatusCompleted}
}

func record(o order.Order) *orderapi.Order {
	r := toRecord(o)
	return &r
}

// --- Tests ---

func TestFingerprint(t *testing.T) {
	a := record(newOrder("o1", "u1", base, salad(2), juice()))

	tests := []struct {
		name  string
		other *orderapi.Order
		same  bool
	}{
		{name: "item order ignored", other: record(newOrder("o2", "u1", base.Add(20*time.Second), juice(), salad(2))), same: true},
		{name: "creation time ignored", other: record(newOrder("o2", "u1", base.Add(time.Hour), salad(2), juice())), same: true},
		{name: "other user", other: record(newOrder("o2", "u2", base, salad(2), juice())), same: false},
		{name: "other quantity", other: record(newOrder("o2", "u1", base, salad(3), juice())), same: false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Fingerprint(a) == Fingerprint(tt.other)
			assert.Equal(t, tt.same, got)
		})
	}
}

func TestShardOf(t *testing.T) {
	for _, user := range []string{"u1", "u2", "665f1c2e9b1e8a3d4c5b6a79", ""} {
		s := ShardOf(user, 4)
		assert.GreaterOrEqual(t, s, 0)
		assert.Less(t, s, 4)
		assert.Equal(t, s, ShardOf(user, 4))
	}
	assert.Zero(t, ShardOf("u1", 1))
}

func TestExportAndScan(t *testing.T) {
	dir := t.TempDir()
	src := &sliceSource{orders: []order.Order{
		newOrder("o1", "u1", base, salad(2), juice()),
		newOrder("o2", "u1", base.Add(15*time.Second), juice(), salad(2)),
		newOrder("o3", "u1", base.Add(5*time.Minute), salad(2), juice()),
		newOrder("o4", "u2", base, salad(1)),
		newOrder("o5", "u3", base, juice()),
		newOrder("o6", "u3", base.Add(time.Second), juice()),
		newOrder("o7", "u3", base.Add(2*time.Second), juice()),
	}}

	stats, err := Export(context.Background(), src, dir, 3)
	require.NoError(t, err)
	assert.Equal(t, 7, stats.Orders)
	require.Len(t, stats.Files, 3)
	for i, f := range stats.Files {
		assert.Equal(t, ShardPath(dir, i), f)
		assert.FileExists(t, f)
	}

	report, err := Scan(context.Background(), dir, ScanOptions{Capacity: 1000})
	require.NoError(t, err)
	assert.Equal(t, 3, report.Shards)
	assert.Equal(t, 7, report.Orders)

	require.Len(t, report.Duplicates, 2)
	assert.Equal(t, "u3", report.Duplicates[0].UserID)
	assert.Equal(t, []string{"o5", "o6", "o7"}, report.Duplicates[0].OrderIDs)
	assert.Equal(t, "u1", report.Duplicates[1].UserID)
	assert.Equal(t, []string{"o1", "o2"}, report.Duplicates[1].OrderIDs)
}

func TestScan_WiderBucket(t *testing.T) {
	dir := t.TempDir()
	src := &sliceSource{orders: []order.Order{
		newOrder("o1", "u1", base, salad(1)),
		newOrder("o2", "u1", base.Add(3*time.Minute), salad(1)),
	}}
	_, err := Export(context.Background(), src, dir, 1)
	require.NoError(t, err)

	report, err := Scan(context.Background(), dir, ScanOptions{})
	require.NoError(t, err)
	assert.Empty(t, report.Duplicates)

	report, err = Scan(context.Background(), dir, ScanOptions{Bucket: time.Hour})
	require.NoError(t, err)
	require.Len(t, report.Duplicates, 1)
	assert.Equal(t, []string{"o1", "o2"}, report.Duplicates[0].OrderIDs)
}

func TestScan_TimeWindow(t *testing.T) {
	minute := time.Date(2026, 5, 4, 12, 0, 0, 0, time.UTC)

	tests := []struct {
		name   string
		offset []time.Duration
		want   [][]string
	}{
		{
			name:   "straddles a minute boundary",
			offset: []time.Duration{59 * time.Second, 61 * time.Second},
			want:   [][]string{{"o1", "o2"}},
		},
		{
			name:   "chained within the window",
			offset: []time.Duration{0, 50 * time.Second, 100 * time.Second},
			want:   [][]string{{"o1", "o2", "o3"}},
		},
		{
			name:   "gap equal to the window",
			offset: []time.Duration{0, time.Minute},
			want:   [][]string{{"o1", "o2"}},
		},
		{
			name:   "two separate runs",
			offset: []time.Duration{0, 10 * time.Second, 10 * time.Minute, 10*time.Minute + 5*time.Second},
			want:   [][]string{{"o1", "o2"}, {"o3", "o4"}},
		},
		{
			name:   "too far apart",
			offset: []time.Duration{0, 61 * time.Second},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			src := &sliceSource{}
			// Stored newest first, so the scan cannot rely on export order.
			for i := len(tt.offset) - 1; i >= 0; i-- {
				id := "o" + string(rune('1'+i))
				src.orders = append(src.orders, newOrder(id, "u1", minute.Add(tt.offset[i]), salad(1)))
			}
			dir := t.TempDir()
			_, err := Export(context.Background(), src, dir, 1)
			require.NoError(t, err)

			report, err := Scan(context.Background(), dir, ScanOptions{})
			require.NoError(t, err)

			var got [][]string
			for _, d := range report.Duplicates {
				assert.Equal(t, "u1", d.UserID)
				got = append(got, d.OrderIDs)
			}
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestExport_Errors(t *testing.T) {
	_, err := Export(context.Background(), &sliceSource{}, t.TempDir(), 0)
	require.Error(t, err)

	srcErr := errors.New("cursor closed")
	_, err = Export(context.Background(), &sliceSource{err: srcErr}, t.TempDir(), 2)
	require.ErrorIs(t, err, srcErr)
}

func TestScan_Errors(t *testing.T) {
	t.Run("no shards", func(t *testing.T) {
		_, err := Scan(context.Background(), t.TempDir(), ScanOptions{})
		require.Error(t, err)
	})

	t.Run("corrupt line", func(t *testing.T) {
		dir := t.TempDir()
		f, err := os.Create(filepath.Join(dir, "orders-0.ndjson.gz"))
		require.NoError(t, err)
		gz := pgzip.NewWriter(f)
		_, err = gz.Write([]byte("{\"_id\":\"o1\",\"user\":\"u1\"}\nnot json\n"))
		require.NoError(t, err)
		require.NoError(t, gz.Close())
		require.NoError(t, f.Close())

		_, err = Scan(context.Background(), dir, ScanOptions{})
		require.Error(t, err)
		assert.Contains(t, err.Error(), "line 2")
	})

	t.Run("canceled", func(t *testing.T) {
		dir := t.TempDir()
		_, err := Export(context.Background(), &sliceSource{orders: []order.Order{newOrder("o1", "u1", base, salad(1))}}, dir, 1)
		require.NoError(t, err)

		ctx, cancel := context.WithCancel(context.Background())
		cancel()
		_, err = Scan(ctx, dir, ScanOptions{})
		require.ErrorIs(t, err, context.Canceled)
	})
}
