package storage

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	_ "github.com/jackc/pgx/v5/stdlib"

	"github.com/Gokul0616/scrapi/config"
	"github.com/Gokul0616/scrapi/models"
)

// PostgresStore persists scrape runs, their listings, and the progress log.
type PostgresStore struct {
	db *sql.DB
}

// NewPostgresStore connects, pings, and ensures the schema exists.
func NewPostgresStore(cfg config.Config) (*PostgresStore, error) {
	dsn := fmt.Sprintf(
		"host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		cfg.DBHost,
		cfg.DBPort,
		cfg.DBUser,
		cfg.DBPassword,
		cfg.DBName,
		cfg.DBSSLMode,
	)

	db, err := sql.Open("pgx", dsn)
	if err != nil {
		return nil, fmt.Errorf("open postgres connection: %w", err)
	}

	db.SetConnMaxLifetime(5 * time.Minute)
	db.SetMaxOpenConns(10)
	db.SetMaxIdleConns(5)

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("ping postgres: %w", err)
	}

	store := &PostgresStore{db: db}
	schemaCtx, schemaCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer schemaCancel()
	if err := store.ensureSchema(schemaCtx); err != nil {
		_ = db.Close()
		return nil, err
	}

	return store, nil
}

func (s *PostgresStore) Close() error {
	return s.db.Close()
}

// CreateRun records the start of one scrape invocation and returns its id.
func (s *PostgresStore) CreateRun(ctx context.Context, req models.SearchRequest) (uuid.UUID, error) {
	id := uuid.New()
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO scrape_runs (id, search_terms, location, max_results, status)
		VALUES ($1, $2, $3, $4, $5)`,
		id,
		strings.Join(req.SearchTerms, ", "),
		req.Location,
		req.MaxResults,
		models.RunStatusRunning,
	)
	if err != nil {
		return uuid.Nil, fmt.Errorf("insert scrape run: %w", err)
	}
	return id, nil
}

// AppendProgress streams one progress message into the run's log.
func (s *PostgresStore) AppendProgress(ctx context.Context, runID uuid.UUID, message string) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO run_progress (run_id, message)
		VALUES ($1, $2)`,
		runID, message,
	)
	if err != nil {
		return fmt.Errorf("append progress: %w", err)
	}
	return nil
}

// FinishRun marks the run done with its final status and result count.
func (s *PostgresStore) FinishRun(ctx context.Context, runID uuid.UUID, status string, totalResults int) error {
	_, err := s.db.ExecContext(ctx, `
		UPDATE scrape_runs
		SET status = $2, total_results = $3, finished_at = NOW()
		WHERE id = $1`,
		runID, status, totalResults,
	)
	if err != nil {
		return fmt.Errorf("finish scrape run: %w", err)
	}
	return nil
}

// SaveListings upserts the run's listings keyed by url. Returns how many rows
// were written.
func (s *PostgresStore) SaveListings(ctx context.Context, runID uuid.UUID, listings []models.Listing) (int, error) {
	if len(listings) == 0 {
		return 0, nil
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, fmt.Errorf("begin transaction: %w", err)
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback()
		}
	}()

	stmt, err := tx.PrepareContext(ctx, `
		INSERT INTO listings (
			run_id, place_id, title, category, rating, reviews_count,
			address, city, state, phone, phone_verified, email, email_verified,
			website, social_media, opening_hours, price_level, images, reviews,
			total_score, url
		)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14,
			$15, $16, $17, $18, $19, $20, $21)
		ON CONFLICT (url) DO UPDATE
		SET
			run_id = EXCLUDED.run_id,
			place_id = EXCLUDED.place_id,
			title = EXCLUDED.title,
			category = EXCLUDED.category,
			rating = EXCLUDED.rating,
			reviews_count = EXCLUDED.reviews_count,
			address = EXCLUDED.address,
			city = EXCLUDED.city,
			state = EXCLUDED.state,
			phone = EXCLUDED.phone,
			phone_verified = EXCLUDED.phone_verified,
			email = EXCLUDED.email,
			email_verified = EXCLUDED.email_verified,
			website = EXCLUDED.website,
			social_media = EXCLUDED.social_media,
			opening_hours = EXCLUDED.opening_hours,
			price_level = EXCLUDED.price_level,
			images = EXCLUDED.images,
			reviews = EXCLUDED.reviews,
			total_score = EXCLUDED.total_score,
			updated_at = NOW()`)
	if err != nil {
		return 0, fmt.Errorf("prepare insert statement: %w", err)
	}
	defer stmt.Close()

	total := 0
	for _, listing := range listings {
		if listing.URL == "" {
			continue
		}
		if _, err = stmt.ExecContext(
			ctx,
			runID,
			listing.PlaceID,
			listing.Title,
			listing.Category,
			listing.Rating,
			listing.ReviewsCount,
			listing.Address,
			listing.City,
			listing.State,
			listing.Phone,
			listing.PhoneVerified,
			listing.Email,
			listing.EmailVerified,
			listing.Website,
			jsonOrNil(listing.SocialMedia),
			listing.OpeningHours,
			listing.PriceLevel,
			jsonOrNil(listing.Images),
			jsonOrNil(listing.Reviews),
			listing.TotalScore,
			listing.URL,
		); err != nil {
			return 0, fmt.Errorf("insert listing %q: %w", listing.URL, err)
		}
		total++
	}

	if err = tx.Commit(); err != nil {
		return 0, fmt.Errorf("commit transaction: %w", err)
	}

	return total, nil
}

// jsonOrNil encodes v for a JSONB column, or NULL when v holds nothing.
func jsonOrNil(v any) any {
	switch val := v.(type) {
	case map[string]string:
		if len(val) == 0 {
			return nil
		}
	case []string:
		if len(val) == 0 {
			return nil
		}
	case []models.Review:
		if len(val) == 0 {
			return nil
		}
	}
	raw, err := json.Marshal(v)
	if err != nil {
		return nil
	}
	return raw
}

func (s *PostgresStore) ensureSchema(ctx context.Context) error {
	_, err := s.db.ExecContext(ctx, `
		CREATE TABLE IF NOT EXISTS scrape_runs (
			id UUID PRIMARY KEY,
			search_terms TEXT NOT NULL,
			location TEXT NOT NULL DEFAULT '',
			max_results INT NOT NULL DEFAULT 0,
			status TEXT NOT NULL DEFAULT 'running',
			total_results INT NOT NULL DEFAULT 0,
			started_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
			finished_at TIMESTAMPTZ
		);
		CREATE TABLE IF NOT EXISTS listings (
			id BIGSERIAL PRIMARY KEY,
			run_id UUID REFERENCES scrape_runs(id),
			place_id TEXT,
			title TEXT NOT NULL,
			category TEXT,
			rating REAL,
			reviews_count INT,
			address TEXT,
			city TEXT,
			state TEXT,
			phone TEXT,
			phone_verified BOOLEAN NOT NULL DEFAULT FALSE,
			email TEXT,
			email_verified BOOLEAN NOT NULL DEFAULT FALSE,
			website TEXT,
			social_media JSONB,
			opening_hours TEXT,
			price_level TEXT,
			images JSONB,
			reviews JSONB,
			total_score REAL,
			url TEXT NOT NULL UNIQUE,
			created_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
			updated_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
		);
		CREATE INDEX IF NOT EXISTS idx_listings_run ON listings(run_id);
		CREATE INDEX IF NOT EXISTS idx_listings_city ON listings(city);
		CREATE TABLE IF NOT EXISTS run_progress (
			id BIGSERIAL PRIMARY KEY,
			run_id UUID REFERENCES scrape_runs(id),
			message TEXT NOT NULL,
			created_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
		);
	`)
	if err != nil {
		return fmt.Errorf("ensure schema: %w", err)
	}
	return nil
}
