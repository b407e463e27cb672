package property

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shopspring/decimal"
)

// ErrPropertyNotFound is returned when no listing matches the id.
var ErrPropertyNotFound = errors.New("property not found")

var likeEscaper = strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)

// Repository persists listings.
type Repository interface {
	Create(ctx context.Context, p Property) (Property, error)
	Get(ctx context.Context, id int64) (Property, error)
	List(ctx context.Context, filter Filter) ([]Property, error)
	Update(ctx context.Context, p Property) (Property, error)
	Delete(ctx context.Context, id int64) error
	CountAvailable(ctx context.Context) (int, error)
}

// PostgresRepository stores listings in PostgreSQL.
type PostgresRepository struct {
	db *pgxpool.Pool
}

// NewPostgresRepository builds a repository backed by PostgreSQL.
func NewPostgresRepository(db *pgxpool.Pool) *PostgresRepository {
	return &PostgresRepository{db: db}
}

const selectProperty = `SELECT p.id, p.owner_id, u.phone_number, p.title, p.description, p.property_type,
        p.price::text, p.location, p.is_available, p.created_at, p.updated_at
        FROM properties p
        INNER JOIN users u ON u.id = p.owner_id`

// Create inserts a listing and returns it with id and owner phone populated.
func (r *PostgresRepository) Create(ctx context.Context, p Property) (Property, error) {
	var id int64
	err := r.db.QueryRow(ctx, `INSERT INTO properties (owner_id, title, description, property_type, price,
        location, is_available, created_at, updated_at)
        VALUES ($1, $2, $3, $4, $5::numeric, $6, $7, $8, $8)
        RETURNING id`,
		p.OwnerID, p.Title, p.Description, string(p.Type), p.Price.StringFixed(2), p.Location, p.IsAvailable,
		p.CreatedAt.UTC()).Scan(&id)
	if err != nil {
		return Property{}, err
	}
	return r.Get(ctx, id)
}

// Get fetches one listing.
func (r *PostgresRepository) Get(ctx context.Context, id int64) (Property, error) {
	return scanProperty(r.db.QueryRow(ctx, selectProperty+` WHERE p.id = $1`, id))
}

// List returns listings newest first.
func (r *PostgresRepository) List(ctx context.Context, filter Filter) ([]Property, error) {
	var (
		conds []string
		args  []any
	)
	arg := func(v any) string {
		args = append(args, v)
		return fmt.Sprintf("$%d", len(args))
	}
	if filter.OwnerID != 0 {
		conds = append(conds, "p.owner_id = "+arg(filter.OwnerID))
	}
	if filter.AvailableOnly {
		conds = append(conds, "p.is_available")
	}
	if filter.Available != nil {
		conds = append(conds, "p.is_available = "+arg(*filter.Available))
	}
	if filter.Type != "" {
		conds = append(conds, "p.property_type = "+arg(string(filter.Type)))
	}
	if filter.Search != "" {
		ph := arg("%" + likeEscaper.Replace(filter.Search) + "%")
		conds = append(conds, fmt.Sprintf("(p.title ILIKE %[1]s OR p.location ILIKE %[1]s OR u.phone_number ILIKE %[1]s)", ph))
	}
	if filter.MinPrice != nil {
		conds = append(conds, "p.price >= "+arg(filter.MinPrice.String())+"::numeric")
	}
	if filter.MaxPrice != nil {
		conds = append(conds, "p.price <= "+arg(filter.MaxPrice.String())+"::numeric")
	}

	query := selectProperty
	if len(conds) > 0 {
		query += " WHERE " + strings.Join(conds, " AND ")
	}
	query += " ORDER BY p.created_at DESC, p.id DESC"

	rows, err := r.db.Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := []Property{}
	for rows.Next() {
		p, err := scanProperty(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, p)
	}
	return out, rows.Err()
}

// Update writes the editable columns. The owner is never changed.
func (r *PostgresRepository) Update(ctx context.Context, p Property) (Property, error) {
	cmd, err := r.db.Exec(ctx, `UPDATE properties SET title = $2, description = $3, property_type = $4,
        price = $5::numeric, location = $6, is_available = $7, updated_at = $8
        WHERE id = $1`,
		p.ID, p.Title, p.Description, string(p.Type), p.Price.StringFixed(2), p.Location, p.IsAvailable, time.Now().UTC())
	if err != nil {
		return Property{}, err
	}
	if cmd.RowsAffected() == 0 {
		return Property{}, ErrPropertyNotFound
	}
	return r.Get(ctx, p.ID)
}

// Delete removes a listing.
func (r *PostgresRepository) Delete(ctx context.Context, id int64) error {
	cmd, err := r.db.Exec(ctx, `DELETE FROM properties WHERE id = $1`, id)
	if err != nil {
		return err
	}
	if cmd.RowsAffected() == 0 {
		return ErrPropertyNotFound
	}
	return nil
}

// CountAvailable returns the number of listings open for rent.
func (r *PostgresRepository) CountAvailable(ctx context.Context) (int, error) {
	var n int
	err := r.db.QueryRow(ctx, `SELECT COUNT(*) FROM properties WHERE is_available`).Scan(&n)
	return n, err
}

func scanProperty(row pgx.Row) (Property, error) {
	var (
		p     Property
		kind  string
		price string
	)
	err := row.Scan(&p.ID, &p.OwnerID, &p.OwnerPhone, &p.Title, &p.Description, &kind, &price, &p.Location,
		&p.IsAvailable, &p.CreatedAt, &p.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return Property{}, ErrPropertyNotFound
		}
		return Property{}, err
	}
	p.Type = Type(kind)
	p.Price, err = decimal.NewFromString(price)
	if err != nil {
		return Property{}, fmt.Errorf("decode price %q: %w", price, err)
	}
	p.CreatedAt = p.CreatedAt.UTC()
	p.UpdatedAt = p.UpdatedAt.UTC()
	return p, nil
}
