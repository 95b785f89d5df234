package postgres

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	_ "github.com/jackc/pgx/v5/stdlib" // registers the "pgx" driver for sql.Open
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/kailas-cloud/shelfsearch/internal/domain"
	"github.com/kailas-cloud/shelfsearch/internal/metrics"
)

// Config holds relational store settings.
type Config struct {
	DSN          string
	MaxOpenConns int
}

// querier is the subset of *sql.DB used by Store.
type querier interface {
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
	PingContext(ctx context.Context) error
}

// Store executes free-tier searches.
type Store struct {
	db     querier
	closer func() error
	logger *zap.Logger
}

// Open connects to Postgres through the pgx driver.
func Open(ctx context.Context, cfg Config, logger *zap.Logger) (*Store, error) {
	db, err := sql.Open("pgx", cfg.DSN)
	if err != nil {
		return nil, fmt.Errorf("pgx connect to database: %w", err)
	}
	if cfg.MaxOpenConns > 0 {
		db.SetMaxOpenConns(cfg.MaxOpenConns)
		db.SetMaxIdleConns(cfg.MaxOpenConns)
	}
	db.SetConnMaxIdleTime(5 * time.Minute)

	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("ping postgres: %w", err)
	}
	return &Store{db: db, closer: db.Close, logger: logger}, nil
}

// Ping checks connectivity.
func (s *Store) Ping(ctx context.Context) error {
	if err := s.db.PingContext(ctx); err != nil {
		return fmt.Errorf("ping postgres: %w", err)
	}
	return nil
}

// Close releases the connection pool.
func (s *Store) Close() error {
	if s.closer == nil {
		return nil
	}
	return s.closer()
}

// Search runs the row and count statements of q concurrently.
func (s *Store) Search(ctx context.Context, q *Search) ([]domain.LibraryItem, int, error) {
	start := time.Now()

	var (
		items []domain.LibraryItem
		total int
	)
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		if err := s.db.QueryRowContext(gctx, q.Count.SQL, q.Count.Args...).Scan(&total); err != nil {
			return fmt.Errorf("count items: %w", err)
		}
		return nil
	})
	g.Go(func() error {
		var err error
		items, err = s.queryItems(gctx, q.Rows)
		return err
	})

	if err := g.Wait(); err != nil {
		metrics.RelationalQueryDuration.WithLabelValues("error").Observe(time.Since(start).Seconds())
		s.logger.Error("relational search failed",
			zap.String("query", q.Rows.SQL),
			zap.Error(err),
		)
		return nil, 0, fmt.Errorf("%w: %w", domain.ErrRelationalFailure, err)
	}
	metrics.RelationalQueryDuration.WithLabelValues("success").Observe(time.Since(start).Seconds())
	return items, total, nil
}

func (s *Store) queryItems(ctx context.Context, q Query) ([]domain.LibraryItem, error) {
	rows, err := s.db.QueryContext(ctx, q.SQL, q.Args...)
	if err != nil {
		return nil, fmt.Errorf("query items: %w", err)
	}
	defer rows.Close()

	var items []domain.LibraryItem
	for rows.Next() {
		item, err := scanItem(rows)
		if err != nil {
			return nil, err
		}
		items = append(items, item)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate items: %w", err)
	}
	return items, nil
}

type scanner interface {
	Scan(dest ...any) error
}

// scanItem reads one row in selectColumns order.
func scanItem(r scanner) (domain.LibraryItem, error) {
	var (
		item                  domain.LibraryItem
		givenURL, resolvedURL sql.NullString
		excerpt, contentType  sql.NullString
		status                int
		wordCount             sql.NullInt64
		publishedAt           sql.NullTime
	)
	err := r.Scan(
		&item.ItemID, &item.UserID, &item.Title, &givenURL, &resolvedURL, &excerpt,
		&status, &item.Favorite, &contentType, &wordCount, &item.DateAdded, &publishedAt,
	)
	if err != nil {
		return domain.LibraryItem{}, fmt.Errorf("scan item: %w", err)
	}

	item.URL = resolvedURL.String
	if item.URL == "" {
		item.URL = givenURL.String
	}
	item.Excerpt = excerpt.String
	item.ContentType = contentType.String
	item.WordCount = int(wordCount.Int64)
	item.Status = statusName(status)
	if publishedAt.Valid {
		t := publishedAt.Time
		item.DatePublished = &t
	}
	return item, nil
}

func statusName(code int) string {
	switch code {
	case statusArchived:
		return "archived"
	case statusUnread:
		return "unread"
	default:
		return "deleted"
	}
}
