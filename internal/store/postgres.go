package store

import (
	"context"
	_ "embed"
	"errors"
	"fmt"
	"strings"

	"github.com/jackc/pgerrcode"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/serroba/shortlink/internal/shortener"
)

//go:embed schema.sql
var schema string

// PostgresStore is a PostgreSQL implementation of shortener.Repository.
type PostgresStore struct {
	pool *pgxpool.Pool
}

// NewPostgresStore creates a new PostgreSQL-backed store.
func NewPostgresStore(pool *pgxpool.Pool) *PostgresStore {
	return &PostgresStore{pool: pool}
}

// EnsureSchema creates the tables and indexes if they do not exist.
func (p *PostgresStore) EnsureSchema(ctx context.Context) error {
	for _, stmt := range strings.Split(schema, ";") {
		if strings.TrimSpace(stmt) == "" {
			continue
		}

		if _, err := p.pool.Exec(ctx, stmt); err != nil {
			return fmt.Errorf("apply schema: %w", err)
		}
	}

	return nil
}

// Ping checks database connectivity.
func (p *PostgresStore) Ping(ctx context.Context) error {
	return p.pool.Ping(ctx)
}

const selectMapping = `
	SELECT id, original_url, short_code, created_at, expires_at
	FROM url_mappings
`

func (p *PostgresStore) FindByShortCode(ctx context.Context, code shortener.Code) (*shortener.Mapping, error) {
	return p.findOne(ctx, selectMapping+`WHERE short_code = $1`, string(code))
}

func (p *PostgresStore) FindByOriginalURL(ctx context.Context, url string) (*shortener.Mapping, error) {
	return p.findOne(ctx, selectMapping+`WHERE original_url = $1 ORDER BY id LIMIT 1`, url)
}

func (p *PostgresStore) ExistsByShortCode(ctx context.Context, code shortener.Code) (bool, error) {
	var exists bool

	err := p.pool.QueryRow(ctx,
		`SELECT EXISTS (SELECT 1 FROM url_mappings WHERE short_code = $1)`,
		string(code),
	).Scan(&exists)

	return exists, err
}

func (p *PostgresStore) Save(ctx context.Context, mapping *shortener.Mapping) error {
	query := `
		INSERT INTO url_mappings (original_url, short_code, created_at, expires_at)
		VALUES ($1, $2, $3, $4)
		RETURNING id
	`

	err := p.pool.QueryRow(ctx, query,
		mapping.OriginalURL,
		string(mapping.Code),
		mapping.CreatedAt,
		mapping.ExpiresAt,
	).Scan(&mapping.ID)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == pgerrcode.UniqueViolation {
			return fmt.Errorf("%w: %s", shortener.ErrDuplicateCode, mapping.Code)
		}

		return err
	}

	return nil
}

func (p *PostgresStore) InsertClick(ctx context.Context, click *shortener.ClickEvent) error {
	query := `
		INSERT INTO click_events (id, mapping_id, clicked_at, ip_address, user_agent, referrer)
		VALUES ($1, $2, $3, $4, $5, $6)
	`

	_, err := p.pool.Exec(ctx, query,
		click.ID,
		click.MappingID,
		click.ClickedAt,
		click.IPAddress,
		nullableString(click.UserAgent),
		nullableString(click.Referrer),
	)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == pgerrcode.ForeignKeyViolation {
			return fmt.Errorf("%w: mapping %d", shortener.ErrNotFound, click.MappingID)
		}

		return err
	}

	return nil
}

func (p *PostgresStore) CountClicks(ctx context.Context, mappingID int64) (int64, error) {
	var n int64

	err := p.pool.QueryRow(ctx,
		`SELECT COUNT(*) FROM click_events WHERE mapping_id = $1`,
		mappingID,
	).Scan(&n)

	return n, err
}

func (p *PostgresStore) ListMappings(ctx context.Context, limit int) ([]shortener.MappingSummary, error) {
	query := `
		SELECT m.id, m.original_url, m.short_code, m.created_at, m.expires_at, COUNT(c.id)
		FROM url_mappings m
		LEFT JOIN click_events c ON c.mapping_id = m.id
		GROUP BY m.id
		ORDER BY m.created_at DESC, m.id DESC
		LIMIT $1
	`

	rows, err := p.pool.Query(ctx, query, max(limit, 0))
	if err != nil {
		return nil, err
	}

	return pgx.CollectRows(rows, func(row pgx.CollectableRow) (shortener.MappingSummary, error) {
		var (
			s    shortener.MappingSummary
			code string
		)

		err := row.Scan(&s.ID, &s.OriginalURL, &code, &s.CreatedAt, &s.ExpiresAt, &s.TotalClicks)
		s.Code = shortener.Code(code)

		return s, err
	})
}

func (p *PostgresStore) RecentClicks(ctx context.Context, mappingID int64, limit int) ([]shortener.ClickEvent, error) {
	query := `
		SELECT c.id, c.mapping_id, m.short_code, c.clicked_at, c.ip_address, c.user_agent, c.referrer
		FROM click_events c
		JOIN url_mappings m ON m.id = c.mapping_id
		WHERE c.mapping_id = $1
		ORDER BY c.clicked_at DESC
		LIMIT $2
	`

	rows, err := p.pool.Query(ctx, query, mappingID, max(limit, 0))
	if err != nil {
		return nil, err
	}

	return pgx.CollectRows(rows, func(row pgx.CollectableRow) (shortener.ClickEvent, error) {
		var (
			click     shortener.ClickEvent
			code      string
			userAgent *string
			referrer  *string
		)

		err := row.Scan(&click.ID, &click.MappingID, &code, &click.ClickedAt, &click.IPAddress, &userAgent, &referrer)
		click.Code = shortener.Code(code)
		click.UserAgent = deref(userAgent)
		click.Referrer = deref(referrer)

		return click, err
	})
}

func (p *PostgresStore) findOne(ctx context.Context, query string, arg any) (*shortener.Mapping, error) {
	var (
		m    shortener.Mapping
		code string
	)

	err := p.pool.QueryRow(ctx, query, arg).Scan(
		&m.ID,
		&m.OriginalURL,
		&code,
		&m.CreatedAt,
		&m.ExpiresAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, shortener.ErrNotFound
		}

		return nil, err
	}

	m.Code = shortener.Code(code)

	return &m, nil
}

func nullableString(s string) *string {
	if s == "" {
		return nil
	}

	return &s
}

func deref(s *string) string {
	if s == nil {
		return ""
	}

	return *s
}

var _ shortener.Repository = (*PostgresStore)(nil)
