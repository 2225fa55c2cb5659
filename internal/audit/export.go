package audit

import (
	"bufio"
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/go-faster/errors"
	pgzip "github.com/klauspost/pgzip"

	"github.com/xenking/healthybite/internal/domain/order"
	"github.com/xenking/healthybite/internal/orderapi"
)

// ShardPattern matches the files written by Export.
const ShardPattern = "orders-*.ndjson.gz"

const progressEvery = 100_000

// Source streams every stored order.
type Source interface {
	Each(ctx context.Context, fn func(order.Order) error) error
}

// ShardPath returns the path of shard i in dir.
func ShardPath(dir string, i int) string {
	return filepath.Join(dir, fmt.Sprintf("orders-%d.ndjson.gz", i))
}

type shardWriter struct {
	f  *os.File
	gz *pgzip.Writer
	bw *bufio.Writer
}

func createShard(path string) (*shardWriter, error) {
	f, err := os.Create(path)
	if err != nil {
		return nil, errors.Wrapf(err, "create %s", path)
	}
	gz := pgzip.NewWriter(f)
	return &shardWriter{f: f, gz: gz, bw: bufio.NewWriter(gz)}, nil
}

func (s *shardWriter) close() error {
	if err := s.bw.Flush(); err != nil {
		_ = s.f.Close()
		return errors.Wrap(err, "flush")
	}
	if err := s.gz.Close(); err != nil {
		_ = s.f.Close()
		return errors.Wrap(err, "close gzip")
	}
	if err := s.f.Close(); err != nil {
		return errors.Wrap(err, "close file")
	}
	return nil
}

// ExportStats summarizes an Export run.
type ExportStats struct {
	Orders int
	Files  []string
}

// Export streams all orders from src into shards gzip NDJSON files in dir,
// one order per line in the order API representation.
func Export(ctx context.Context, src Source, dir string, shards int) (*ExportStats, error) {
	if shards < 1 {
		return nil, errors.Errorf("shard count must be positive, got %d", shards)
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, errors.Wrapf(err, "create %s", dir)
	}

	stats := &ExportStats{Files: make([]string, shards)}
	writers := make([]*shardWriter, shards)
	for i := range shards {
		stats.Files[i] = ShardPath(dir, i)
		w, err := createShard(stats.Files[i])
		if err != nil {
			for _, open := range writers[:i] {
				_ = open.close()
			}
			return nil, err
		}
		writers[i] = w
	}

	err := src.Each(ctx, func(o order.Order) error {
		rec := toRecord(o)
		w := writers[ShardOf(rec.UserID, shards)]
		if _, err := w.bw.Write(orderapi.Marshal(&rec)); err != nil {
			return errors.Wrapf(err, "write order %s", rec.ID)
		}
		if err := w.bw.WriteByte('\n'); err != nil {
			return errors.Wrapf(err, "write order %s", rec.ID)
		}
		stats.Orders++
		if stats.Orders%progressEvery == 0 {
			slog.Info("export progress", slog.Int("orders", stats.Orders))
		}
		return nil
	})

	for i, w := range writers {
		if cerr := w.close(); cerr != nil && err == nil {
			err = errors.Wrapf(cerr, "shard %d", i)
		}
	}
	if err != nil {
		return nil, errors.Wrap(err, "export orders")
	}
	return stats, nil
}

func toRecord(o order.Order) orderapi.Order {
	items := make([]orderapi.OrderItem, len(o.Items))
	for i, it := range o.Items {
		items[i] = orderapi.OrderItem{
			ProductID: it.ProductID,
			Name:      it.Name,
			Price:     it.Price,
			Qty:       it.Qty,
			Image:     it.Image,
		}
	}
	return orderapi.Order{
		ID:          o.ID,
		UserID:      o.UserID,
		Items:       items,
		TotalAmount: o.TotalAmount,
		CreatedAt:   o.CreatedAt,
		Status:      o.Status,
	}
}
