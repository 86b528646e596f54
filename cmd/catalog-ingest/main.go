// Command catalog-ingest loads gzipped product feed files into the catalog.
//
// Feed files are JSON lines, one product per line, and the same SKU may
// reappear across files with an identical row. Files are streamed
// concurrently; a shared bloom filter skips SKUs that were already ingested
// in this run so repeated rows do not hit the database again.
package main

import (
	"bufio"
	"context"
	"encoding/json"
	"flag"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"sync"
	"time"

	"github.com/bits-and-blooms/bloom/v3"
	"github.com/go-faster/errors"
	pgzip "github.com/klauspost/pgzip"
	"github.com/shopspring/decimal"
	"golang.org/x/sync/errgroup"

	"github.com/mkoval/storefront/internal/domain/product"
	"github.com/mkoval/storefront/internal/postgres"
)

const (
	bloomCapacity = 10_000_000
	bloomFPR      = 0.001
	progressEvery = 100_000
)

type feedRow struct {
	SKU         string          `json:"sku"`
	Name        string          `json:"name"`
	Description string          `json:"description"`
	Price       decimal.Decimal `json:"price"`
	Stock       int             `json:"stock"`
	Category    string          `json:"category"`
	ImageURL    string          `json:"imageUrl"`
}

// seenFilter is a mutex-guarded bloom filter tracking SKUs ingested in this
// run. A false positive only skips an upsert of a row already present under
// the same SKU, so the low FPR is an acceptable trade for constant memory.
type seenFilter struct {
	mu     sync.Mutex
	filter *bloom.BloomFilter
}

func (s *seenFilter) testAndAdd(sku string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.filter.TestAndAddString(sku)
}

func main() {
	var (
		dataDir     string
		databaseURL string
	)

	flag.StringVar(&dataDir, "data-dir", "data", "directory containing products*.gz feed files")
	flag.StringVar(&databaseURL, "database-url", "", "PostgreSQL connection URL (or DATABASE_URL env)")
	flag.Parse()

	if databaseURL == "" {
		databaseURL = os.Getenv("DATABASE_URL")
	}
	if databaseURL == "" {
		slog.Error("database URL is required: set --database-url or DATABASE_URL")
		os.Exit(1)
	}

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt)
	defer cancel()

	if err := run(ctx, dataDir, databaseURL); err != nil {
		slog.Error("catalog ingest failed", slog.String("error", err.Error()))
		os.Exit(1)
	}

	slog.Info("catalog ingest completed successfully")
}

func run(ctx context.Context, dataDir, databaseURL string) error {
	files, err := filepath.Glob(filepath.Join(dataDir, "products*.gz"))
	if err != nil {
		return errors.Wrap(err, "glob feed files")
	}
	if len(files) == 0 {
		return errors.Errorf("no products*.gz files in %s", dataDir)
	}

	slog.Info("connecting to database")

	pool, err := postgres.NewPool(ctx, databaseURL)
	if err != nil {
		return errors.Wrap(err, "connect to database")
	}
	defer pool.Close()

	if err := postgres.RunMigrations(ctx, pool); err != nil {
		return errors.Wrap(err, "run migrations")
	}

	repo := postgres.NewProductRepository(pool)
	seen := &seenFilter{filter: bloom.NewWithEstimates(bloomCapacity, bloomFPR)}

	slog.Info("ingesting feed files", slog.Int("files", len(files)))

	g, ctx := errgroup.WithContext(ctx)
	for _, f := range files {
		g.Go(ingestFile(ctx, f, repo, seen))
	}
	return g.Wait()
}

func ingestFile(ctx context.Context, path string, repo *postgres.ProductRepository, seen *seenFilter) func() error {
	return func() error {
		var total, upserted, duplicates, malformed uint64

		err := streamGzFile(ctx, path, func(line []byte) error {
			total++
			if total%progressEvery == 0 {
				slog.Info("ingest progress", slog.String("file", path), slog.Uint64("rows", total))
			}

			var row feedRow
			if err := json.Unmarshal(line, &row); err != nil || row.SKU == "" {
				malformed++
				return nil
			}
			if seen.testAndAdd(row.SKU) {
				duplicates++
				return nil
			}

			if err := repo.Upsert(ctx, &product.Product{
				ID:          row.SKU,
				Name:        row.Name,
				Description: row.Description,
				Price:       row.Price,
				Stock:       row.Stock,
				Category:    row.Category,
				ImageURL:    row.ImageURL,
				CreatedAt:   time.Now().UTC(),
			}); err != nil {
				return errors.Wrapf(err, "upsert product %s", row.SKU)
			}
			upserted++
			return nil
		})
		if err != nil {
			return errors.Wrapf(err, "ingest %s", path)
		}

		slog.Info("ingest complete",
			slog.String("file", path),
			slog.Uint64("rows", total),
			slog.Uint64("upserted", upserted),
			slog.Uint64("duplicates", duplicates),
			slog.Uint64("malformed", malformed),
		)
		return nil
	}
}

// streamGzFile opens a gzip-compressed file and calls fn for each line.
func streamGzFile(ctx context.Context, path string, fn func(line []byte) error) error {
	f, err := os.Open(path)
	if err != nil {
		return errors.Wrapf(err, "open %s", path)
	}
	defer func() { _ = f.Close() }()

	gz, err := pgzip.NewReader(f)
	if err != nil {
		return errors.Wrapf(err, "create gzip reader for %s", path)
	}
	defer func() { _ = gz.Close() }()

	scanner := bufio.NewScanner(gz)
	scanner.Buffer(make([]byte, 0, 64*1024), 1<<20)
	for scanner.Scan() {
		if err := ctx.Err(); err != nil {
			return err
		}
		if err := fn(scanner.Bytes()); err != nil {
			return err
		}
	}

	if err := scanner.Err(); err != nil {
		return errors.Wrapf(err, "scan %s", path)
	}

	return nil
}
