// Command order-audit exports stored orders to sharded gzip files and scans
// them for repeated submissions of the same cart.
package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"strings"
	"time"

	"github.com/go-faster/errors"

	"github.com/xenking/healthybite/internal/audit"
	"github.com/xenking/healthybite/internal/storage/mongo"
)

const usage = `usage: order-audit <command> [flags]

commands:
  export   dump all orders into sharded .ndjson.gz files
  scan     report orders repeated within a time bucket
`

func main() {
	if len(os.Args) < 2 {
		fmt.Fprint(os.Stderr, usage)
		os.Exit(2)
	}

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt)
	defer cancel()

	var err error
	switch cmd, args := os.Args[1], os.Args[2:]; cmd {
	case "export":
		err = runExport(ctx, args)
	case "scan":
		err = runScan(ctx, args)
	default:
		fmt.Fprint(os.Stderr, usage)
		os.Exit(2)
	}
	if err != nil {
		slog.Error("order audit failed", slog.String("error", err.Error()))
		os.Exit(1)
	}
}

func runExport(ctx context.Context, args []string) error {
	fs := flag.NewFlagSet("export", flag.ExitOnError)
	var (
		mongoURI = fs.String("mongo-uri", "", "MongoDB connection URI (or MONGODB_URI env)")
		database = fs.String("mongo-database", "healthybite", "MongoDB database name")
		outDir   = fs.String("out-dir", "audit", "directory for shard files")
		shards   = fs.Int("shards", 4, "number of shard files")
	)
	_ = fs.Parse(args)

	if *mongoURI == "" {
		*mongoURI = os.Getenv("MONGODB_URI")
	}
	if *mongoURI == "" {
		return errors.New("MongoDB URI is required: set --mongo-uri or MONGODB_URI")
	}

	db, err := mongo.Connect(ctx, *mongoURI, *database)
	if err != nil {
		return errors.Wrap(err, "connect")
	}
	defer func() {
		disconnectCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = db.Client().Disconnect(disconnectCtx)
	}()

	start := time.Now()
	stats, err := audit.Export(ctx, mongo.NewOrderRepository(db), *outDir, *shards)
	if err != nil {
		return err
	}
	slog.Info("export completed",
		slog.Int("orders", stats.Orders),
		slog.String("files", strings.Join(stats.Files, ",")),
		slog.Duration("elapsed", time.Since(start)),
	)
	return nil
}

func runScan(ctx context.Context, args []string) error {
	fs := flag.NewFlagSet("scan", flag.ExitOnError)
	var (
		dir      = fs.String("dir", "audit", "directory with shard files")
		bucket   = fs.Duration("bucket", audit.DefaultBucket, "largest gap between identical orders counted as repeats")
		capacity = fs.Uint("capacity", 0, "expected orders per shard for the bloom filter (0 uses the default)")
	)
	_ = fs.Parse(args)

	start := time.Now()
	report, err := audit.Scan(ctx, *dir, audit.ScanOptions{Bucket: *bucket, Capacity: *capacity})
	if err != nil {
		return err
	}

	for _, d := range report.Duplicates {
		slog.Warn("repeated order",
			slog.String("user", d.UserID),
			slog.Int("count", len(d.OrderIDs)),
			slog.String("orders", strings.Join(d.OrderIDs, ",")),
		)
	}
	slog.Info("scan completed",
		slog.Int("shards", report.Shards),
		slog.Int("orders", report.Orders),
		slog.Int("duplicate_groups", len(report.Duplicates)),
		slog.Duration("elapsed", time.Since(start)),
	)
	return nil
}
