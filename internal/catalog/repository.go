package catalog

import (
	"context"
	"database/sql"
	"embed"

	"github.com/fjod/rocket_cart/internal/domain"
	"github.com/golang-migrate/migrate/v4"
	"github.com/golang-migrate/migrate/v4/database/sqlite"
	"github.com/golang-migrate/migrate/v4/source/iofs"
	"github.com/pkg/errors"
	_ "modernc.org/sqlite"
)

//go:embed migrations/*.sql
var migrations embed.FS

var ErrProductNotFound = errors.New("product not found")

// Repository serves product metadata and stock levels from SQLite.
type Repository struct {
	db *sql.DB
}

func NewRepository(dbPath string) (*Repository, error) {
	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, errors.Wrap(err, "failed to open database")
	}
	// ":memory:" databases exist per connection
	db.SetMaxOpenConns(1)

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, errors.Wrap(err, "failed to ping database")
	}

	return &Repository{db: db}, nil
}

func (r *Repository) RunMigrations() error {
	source, err := iofs.New(migrations, "migrations")
	if err != nil {
		return errors.Wrap(err, "could not open migrations")
	}

	driver, err := sqlite.WithInstance(r.db, &sqlite.Config{})
	if err != nil {
		return errors.Wrap(err, "could not create migration driver")
	}

	m, err := migrate.NewWithInstance("iofs", source, "sqlite", driver)
	if err != nil {
		return errors.Wrap(err, "could not create migrate instance")
	}

	if err := m.Up(); err != nil && !errors.Is(err, migrate.ErrNoChange) {
		return errors.Wrap(err, "could not run migrations")
	}
	return nil
}

func (r *Repository) Close() error {
	return r.db.Close()
}

func (r *Repository) GetProducts(ctx context.Context) ([]domain.ProductBase, error) {
	rows, err := r.db.QueryContext(ctx, `SELECT id, title, price, image FROM products ORDER BY id`)
	if err != nil {
		return nil, errors.Wrap(err, "failed to query products")
	}
	defer rows.Close()

	products := make([]domain.ProductBase, 0)
	for rows.Next() {
		var p domain.ProductBase
		if err := rows.Scan(&p.ID, &p.Title, &p.Price, &p.Image); err != nil {
			return nil, errors.Wrap(err, "failed to scan product")
		}
		products = append(products, p)
	}
	if err := rows.Err(); err != nil {
		return nil, errors.Wrap(err, "failed to iterate products")
	}
	return products, nil
}

func (r *Repository) GetProduct(ctx context.Context, id int64) (domain.ProductBase, error) {
	var p domain.ProductBase

	err := r.db.QueryRowContext(ctx,
		`SELECT id, title, price, image FROM products WHERE id = ?`, id,
	).Scan(&p.ID, &p.Title, &p.Price, &p.Image)
	if errors.Is(err, sql.ErrNoRows) {
		return domain.ProductBase{}, ErrProductNotFound
	}
	if err != nil {
		return domain.ProductBase{}, errors.Wrapf(err, "failed to get product %d", id)
	}
	return p, nil
}

func (r *Repository) GetStock(ctx context.Context, id int64) (domain.Stock, error) {
	s := domain.Stock{ID: id}

	err := r.db.QueryRowContext(ctx,
		`SELECT amount FROM stock WHERE product_id = ?`, id,
	).Scan(&s.Amount)
	if errors.Is(err, sql.ErrNoRows) {
		return domain.Stock{}, ErrProductNotFound
	}
	if err != nil {
		return domain.Stock{}, errors.Wrapf(err, "failed to get stock %d", id)
	}
	return s, nil
}

// SetStock sets the stock level for an existing product.
func (r *Repository) SetStock(ctx context.Context, id int64, amount int) error {
	if amount < 0 {
		return errors.Errorf("stock cannot be negative: %d", amount)
	}
	if _, err := r.GetProduct(ctx, id); err != nil {
		return err
	}

	_, err := r.db.ExecContext(ctx, `
		INSERT INTO stock (product_id, amount) VALUES (?, ?)
		ON CONFLICT (product_id) DO UPDATE SET amount = excluded.amount`, id, amount)
	if err != nil {
		return errors.Wrapf(err, "failed to set stock %d", id)
	}
	return nil
}
