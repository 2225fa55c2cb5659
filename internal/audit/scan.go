package audit

import (
	"bufio"
	"cmp"
	"context"
	"log/slog"
	"os"
	"path/filepath"
	"slices"
	"time"

	"github.com/bits-and-blooms/bloom/v3"
	"github.com/go-faster/errors"
	pgzip "github.com/klauspost/pgzip"
	"golang.org/x/sync/errgroup"

	"github.com/xenking/healthybite/internal/orderapi"
)

// maxLine bounds one NDJSON record.
const maxLine = 4 << 20

// ScanOptions tunes Scan.
type ScanOptions struct {
	// Bucket is the largest gap between consecutive equal orders of one
	// group; DefaultBucket when zero.
	Bucket time.Duration
	// Capacity is the expected number of orders per shard.
	Capacity uint
	// FalsePositiveRate of the per-shard bloom filters.
	FalsePositiveRate float64
}

func (o *ScanOptions) setDefaults() {
	if o.Bucket <= 0 {
		o.Bucket = DefaultBucket
	}
	if o.Capacity == 0 {
		o.Capacity = 1_000_000
	}
	if o.FalsePositiveRate <= 0 {
		o.FalsePositiveRate = 0.001
	}
}

// Duplicate is a group of orders sharing one fingerprint, each created
// within the bucket of the previous one. OrderIDs are in creation order.
type Duplicate struct {
	UserID      string
	Fingerprint string
	OrderIDs    []string
}

// Report is the result of Scan.
type Report struct {
	Shards     int
	Orders     int
	Duplicates []Duplicate
}

type shardResult struct {
	orders     int
	duplicates []Duplicate
}

// Scan checks every shard in dir for probable duplicate orders. Shards are
// scanned concurrently. Groups are sorted by size, largest first.
func Scan(ctx context.Context, dir string, opts ScanOptions) (*Report, error) {
	opts.setDefaults()

	files, err := filepath.Glob(filepath.Join(dir, ShardPattern))
	if err != nil {
		return nil, errors.Wrap(err, "list shards")
	}
	if len(files) == 0 {
		return nil, errors.Errorf("no %s files in %s", ShardPattern, dir)
	}
	slices.Sort(files)

	results := make([]shardResult, len(files))
	g, ctx := errgroup.WithContext(ctx)
	for i, path := range files {
		g.Go(func() error {
			res, err := scanShard(ctx, path, opts)
			if err != nil {
				return errors.Wrapf(err, "scan %s", filepath.Base(path))
			}
			results[i] = *res
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	report := &Report{Shards: len(files)}
	for _, r := range results {
		report.Orders += r.orders
		report.Duplicates = append(report.Duplicates, r.duplicates...)
	}
	slices.SortFunc(report.Duplicates, func(a, b Duplicate) int {
		if c := cmp.Compare(len(b.OrderIDs), len(a.OrderIDs)); c != 0 {
			return c
		}
		if c := cmp.Compare(a.Fingerprint, b.Fingerprint); c != 0 {
			return c
		}
		return cmp.Compare(a.OrderIDs[0], b.OrderIDs[0])
	})
	return report, nil
}

// scanShard runs both passes over one shard. Pass one adds every
// fingerprint to seen and those already present to repeated. Pass two
// collects the orders whose fingerprint may repeat and splits each
// fingerprint's orders into runs with gaps of at most opts.Bucket; runs of
// one, including bloom false positives, are dropped.
func scanShard(ctx context.Context, path string, opts ScanOptions) (*shardResult, error) {
	seen := bloom.NewWithEstimates(opts.Capacity, opts.FalsePositiveRate)
	repeated := bloom.NewWithEstimates(opts.Capacity, opts.FalsePositiveRate)

	var res shardResult
	if err := streamShard(ctx, path, func(o *orderapi.Order) {
		res.orders++
		if fp := Fingerprint(o); seen.TestAndAddString(fp) {
			repeated.AddString(fp)
		}
	}); err != nil {
		return nil, errors.Wrap(err, "pass 1")
	}
	slog.Debug("pass 1 complete", slog.String("shard", filepath.Base(path)), slog.Int("orders", res.orders))

	candidates := make(map[string][]placed)
	if err := streamShard(ctx, path, func(o *orderapi.Order) {
		fp := Fingerprint(o)
		if !repeated.TestString(fp) {
			return
		}
		candidates[fp] = append(candidates[fp], placed{id: o.ID, user: o.UserID, at: o.CreatedAt})
	}); err != nil {
		return nil, errors.Wrap(err, "pass 2")
	}

	for fp, orders := range candidates {
		res.duplicates = append(res.duplicates, runs(fp, orders, opts.Bucket)...)
	}
	slog.Debug("pass 2 complete",
		slog.String("shard", filepath.Base(path)),
		slog.Int("candidates", len(candidates)),
		slog.Int("duplicates", len(res.duplicates)),
	)
	return &res, nil
}

type placed struct {
	id   string
	user string
	at   time.Time
}

// runs sorts orders by creation time and returns every run of two or more
// orders in which each follows the previous one by at most gap.
func runs(fp string, orders []placed, gap time.Duration) []Duplicate {
	slices.SortFunc(orders, func(a, b placed) int {
		if c := a.at.Compare(b.at); c != 0 {
			return c
		}
		return cmp.Compare(a.id, b.id)
	})

	var out []Duplicate
	start := 0
	for i := 1; i <= len(orders); i++ {
		if i < len(orders) && orders[i].at.Sub(orders[i-1].at) <= gap {
			continue
		}
		if i-start >= 2 {
			d := Duplicate{UserID: orders[start].user, Fingerprint: fp}
			for _, o := range orders[start:i] {
				d.OrderIDs = append(d.OrderIDs, o.id)
			}
			out = append(out, d)
		}
		start = i
	}
	return out
}

// streamShard decodes every line of a gzip NDJSON shard.
func streamShard(ctx context.Context, path string, fn func(*orderapi.Order)) error {
	f, err := os.Open(path)
	if err != nil {
		return errors.Wrapf(err, "open %s", path)
	}
	defer func() { _ = f.Close() }()

	gz, err := pgzip.NewReader(f)
	if err != nil {
		return errors.Wrapf(err, "gzip reader for %s", path)
	}
	defer func() { _ = gz.Close() }()

	sc := bufio.NewScanner(gz)
	sc.Buffer(make([]byte, 0, 64<<10), maxLine)
	line := 0
	for sc.Scan() {
		line++
		if err := ctx.Err(); err != nil {
			return err
		}
		if len(sc.Bytes()) == 0 {
			continue
		}
		var o orderapi.Order
		if err := orderapi.Unmarshal(sc.Bytes(), &o); err != nil {
			return errors.Wrapf(err, "line %d", line)
		}
		fn(&o)
	}
	if err := sc.Err(); err != nil {
		return errors.Wrapf(err, "read %s", path)
	}
	return nil
}
