package storage

import (
	"context"
	"database/sql"
	"embed"
	"errors"
	"fmt"

	"github.com/fjod/rocket_cart/internal/domain"
	"github.com/golang-migrate/migrate/v4"
	"github.com/golang-migrate/migrate/v4/database/postgres"
	"github.com/golang-migrate/migrate/v4/source/iofs"
	_ "github.com/lib/pq"
)

//go:embed migrations/*.sql
var migrations embed.FS

type PostgresStorage struct {
	db  *sql.DB
	key string
}

func NewPostgresStorage(db *sql.DB, key string) *PostgresStorage {
	if key == "" {
		key = DefaultKey
	}
	return &PostgresStorage{db: db, key: key}
}

// OpenPostgres connects with lib/pq and verifies the connection.
func OpenPostgres(dsn string) (*sql.DB, error) {
	db, err := sql.Open("postgres", dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}
	return db, nil
}

func RunMigrations(db *sql.DB) error {
	source, err := iofs.New(migrations, "migrations")
	if err != nil {
		return fmt.Errorf("could not open migrations: %w", err)
	}

	driver, err := postgres.WithInstance(db, &postgres.Config{})
	if err != nil {
		return fmt.Errorf("could not create migration driver: %w", err)
	}

	m, err := migrate.NewWithInstance("iofs", source, "postgres", driver)
	if err != nil {
		return fmt.Errorf("could not create migrate instance: %w", err)
	}

	if err := m.Up(); err != nil && !errors.Is(err, migrate.ErrNoChange) {
		return fmt.Errorf("could not run migrations: %w", err)
	}
	return nil
}

func (p *PostgresStorage) Load(ctx context.Context) (domain.Cart, error) {
	var payload []byte

	err := p.db.QueryRowContext(ctx,
		`SELECT payload FROM cart_snapshots WHERE key = $1`, p.key,
	).Scan(&payload)
	if errors.Is(err, sql.ErrNoRows) {
		return domain.Cart{}, nil
	}
	if err != nil {
		return domain.Cart{}, fmt.Errorf("failed to query cart snapshot: %w", err)
	}

	return decode(payload)
}

func (p *PostgresStorage) Save(ctx context.Context, cart domain.Cart) error {
	data, err := encode(cart)
	if err != nil {
		return err
	}

	_, err = p.db.ExecContext(ctx, `
		INSERT INTO cart_snapshots (key, payload, updated_at)
		VALUES ($1, $2, NOW())
		ON CONFLICT (key) DO UPDATE
		SET payload = EXCLUDED.payload, updated_at = EXCLUDED.updated_at`,
		p.key, string(data),
	)
	if err != nil {
		return fmt.Errorf("failed to save cart snapshot: %w", err)
	}
	return nil
}
