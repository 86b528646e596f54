package main

import (
	"context"
	"encoding/json"
	"flag"
	"log/slog"
	"os"
	"os/signal"
	"time"

	"github.com/go-faster/errors"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"golang.org/x/crypto/bcrypt"

	"github.com/mkoval/storefront/internal/domain/auth"
	"github.com/mkoval/storefront/internal/domain/pricing"
	"github.com/mkoval/storefront/internal/domain/product"
	"github.com/mkoval/storefront/internal/postgres"
)

type productJSON struct {
	ID          string          `json:"id"`
	Name        string          `json:"name"`
	Description string          `json:"description"`
	Price       decimal.Decimal `json:"price"`
	Stock       int             `json:"stock"`
	Category    string          `json:"category"`
	ImageURL    string          `json:"imageUrl"`
}

func main() {
	var (
		databaseURL   string
		productsFile  string
		adminEmail    string
		adminPassword string
	)

	flag.StringVar(&databaseURL, "database-url", "", "PostgreSQL connection URL (or DATABASE_URL env)")
	flag.StringVar(&productsFile, "products-file", "db/seed/products.json", "path to products JSON file")
	flag.StringVar(&adminEmail, "admin-email", "", "admin user email (or STORE_SEED_ADMIN_EMAIL env)")
	flag.StringVar(&adminPassword, "admin-password", "", "admin user password (or STORE_SEED_ADMIN_PASSWORD env)")
	flag.Parse()

	if databaseURL == "" {
		databaseURL = os.Getenv("DATABASE_URL")
	}
	if databaseURL == "" {
		slog.Error("database URL is required: set --database-url or DATABASE_URL")
		os.Exit(1)
	}
	if adminEmail == "" {
		adminEmail = os.Getenv("STORE_SEED_ADMIN_EMAIL")
	}
	if adminPassword == "" {
		adminPassword = os.Getenv("STORE_SEED_ADMIN_PASSWORD")
	}
	if adminEmail == "" || adminPassword == "" {
		slog.Error("admin credentials are required: set --admin-email/--admin-password or the STORE_SEED_ADMIN_* envs")
		os.Exit(1)
	}

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt)
	defer cancel()

	if err := run(ctx, databaseURL, productsFile, adminEmail, adminPassword); err != nil {
		slog.Error("seed failed", slog.String("error", err.Error()))
		os.Exit(1)
	}

	slog.Info("seed completed successfully")
}

func run(ctx context.Context, databaseURL, productsFile, adminEmail, adminPassword string) error {
	slog.Info("connecting to database")

	pool, err := postgres.NewPool(ctx, databaseURL)
	if err != nil {
		return errors.Wrap(err, "connect to database")
	}
	defer pool.Close()

	slog.Info("running migrations")

	if err := postgres.RunMigrations(ctx, pool); err != nil {
		return errors.Wrap(err, "run migrations")
	}

	if err := seedProducts(ctx, postgres.NewProductRepository(pool), productsFile); err != nil {
		return errors.Wrap(err, "seed products")
	}

	if err := seedSettings(ctx, postgres.NewSettingsRepository(pool)); err != nil {
		return errors.Wrap(err, "seed settings")
	}

	if err := seedAdmin(ctx, postgres.NewUserRepository(pool), adminEmail, adminPassword); err != nil {
		return errors.Wrap(err, "seed admin user")
	}

	return nil
}

func seedProducts(ctx context.Context, repo *postgres.ProductRepository, productsFile string) error {
	slog.Info("reading products file", slog.String("path", productsFile))

	data, err := os.ReadFile(productsFile)
	if err != nil {
		return errors.Wrap(err, "read products file")
	}

	var products []productJSON
	if err := json.Unmarshal(data, &products); err != nil {
		return errors.Wrap(err, "parse products JSON")
	}

	slog.Info("upserting products", slog.Int("count", len(products)))

	for _, p := range products {
		if err := repo.Upsert(ctx, &product.Product{
			ID:          p.ID,
			Name:        p.Name,
			Description: p.Description,
			Price:       p.Price,
			Stock:       p.Stock,
			Category:    p.Category,
			ImageURL:    p.ImageURL,
			CreatedAt:   time.Now().UTC(),
		}); err != nil {
			return errors.Wrapf(err, "upsert product %s", p.ID)
		}

		slog.Info("upserted product", slog.String("id", p.ID), slog.String("name", p.Name))
	}

	return nil
}

func seedSettings(ctx context.Context, repo *postgres.SettingsRepository) error {
	slog.Info("seeding default pricing settings")

	if err := repo.Update(ctx, pricing.DefaultSettings()); err != nil {
		return errors.Wrap(err, "write default settings")
	}

	return nil
}

func seedAdmin(ctx context.Context, repo *postgres.UserRepository, email, password string) error {
	slog.Info("seeding admin user", slog.String("email", email))

	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return errors.Wrap(err, "hash admin password")
	}

	err = repo.Create(ctx, &auth.User{
		ID:           uuid.New().String(),
		Name:         "Administrator",
		Email:        email,
		PasswordHash: string(hash),
		Admin:        true,
		CreatedAt:    time.Now().UTC(),
	})
	if errors.Is(err, auth.ErrEmailTaken) {
		slog.Info("admin user already exists, skipping")
		return nil
	}
	return err
}
