package identity

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
)

var (
	// ErrUserNotFound is returned when no user matches the lookup.
	ErrUserNotFound = errors.New("user not found")
	// ErrPhoneTaken is returned when the phone number is already registered.
	ErrPhoneTaken = errors.New("phone number already registered")
)

const uniqueViolation = "23505"

// Repository persists users.
type Repository interface {
	Create(ctx context.Context, user User) (User, error)
	FindByID(ctx context.Context, id int64) (User, error)
	FindByPhone(ctx context.Context, phone string) (User, error)
	List(ctx context.Context, filter Filter) ([]User, error)
	Update(ctx context.Context, user User) (User, error)
	TouchLastLogin(ctx context.Context, id int64, at time.Time) error
}

// PostgresRepository implements Repository using PostgreSQL.
type PostgresRepository struct {
	db *pgxpool.Pool
}

// NewPostgresRepository builds a Postgres-backed identity repository.
func NewPostgresRepository(db *pgxpool.Pool) *PostgresRepository {
	return &PostgresRepository{db: db}
}

const userColumns = `id, phone_number, full_name, COALESCE(email, ''), password_hash, role, is_verified,
        kyc_status, is_staff, is_active, date_joined, updated_at, last_login`

// Create inserts a new user and returns it with its assigned id.
func (r *PostgresRepository) Create(ctx context.Context, user User) (User, error) {
	row := r.db.QueryRow(ctx, `INSERT INTO users (phone_number, full_name, email, password_hash, role, is_verified,
        kyc_status, is_staff, is_active, date_joined, updated_at)
        VALUES ($1, $2, NULLIF($3, ''), $4, $5, $6, $7, $8, $9, $10, $10)
        RETURNING `+userColumns,
		user.PhoneNumber, user.FullName, user.Email, user.PasswordHash, string(user.Role), user.IsVerified,
		string(user.KYCStatus), user.IsStaff, user.IsActive, user.DateJoined.UTC())
	created, err := scanUser(row)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == uniqueViolation {
			return User{}, ErrPhoneTaken
		}
		return User{}, err
	}
	return created, nil
}

// FindByID fetches a user by primary key.
func (r *PostgresRepository) FindByID(ctx context.Context, id int64) (User, error) {
	return scanUser(r.db.QueryRow(ctx, `SELECT `+userColumns+` FROM users WHERE id = $1`, id))
}

// FindByPhone fetches a user by phone number.
func (r *PostgresRepository) FindByPhone(ctx context.Context, phone string) (User, error) {
	return scanUser(r.db.QueryRow(ctx, `SELECT `+userColumns+` FROM users WHERE phone_number = $1`, phone))
}

// List returns users newest first, optionally narrowed by role and KYC status.
func (r *PostgresRepository) List(ctx context.Context, filter Filter) ([]User, error) {
	var (
		conds []string
		args  []any
	)
	if filter.Role != "" {
		args = append(args, string(filter.Role))
		conds = append(conds, fmt.Sprintf("role = $%d", len(args)))
	}
	if filter.KYCStatus != "" {
		args = append(args, string(filter.KYCStatus))
		conds = append(conds, fmt.Sprintf("kyc_status = $%d", len(args)))
	}
	query := `SELECT ` + userColumns + ` FROM users`
	if len(conds) > 0 {
		query += " WHERE " + strings.Join(conds, " AND ")
	}
	query += " ORDER BY date_joined DESC, id DESC"

	rows, err := r.db.Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	users := []User{}
	for rows.Next() {
		user, err := scanUser(rows)
		if err != nil {
			return nil, err
		}
		users = append(users, user)
	}
	return users, rows.Err()
}

// Update writes the mutable columns of user and bumps updated_at.
func (r *PostgresRepository) Update(ctx context.Context, user User) (User, error) {
	row := r.db.QueryRow(ctx, `UPDATE users SET full_name = $2, email = NULLIF($3, ''), role = $4,
        is_verified = $5, kyc_status = $6, is_staff = $7, is_active = $8, updated_at = $9
        WHERE id = $1
        RETURNING `+userColumns,
		user.ID, user.FullName, user.Email, string(user.Role), user.IsVerified, string(user.KYCStatus),
		user.IsStaff, user.IsActive, time.Now().UTC())
	return scanUser(row)
}

// TouchLastLogin records a successful login.
func (r *PostgresRepository) TouchLastLogin(ctx context.Context, id int64, at time.Time) error {
	cmd, err := r.db.Exec(ctx, `UPDATE users SET last_login = $1 WHERE id = $2`, at.UTC(), id)
	if err != nil {
		return err
	}
	if cmd.RowsAffected() == 0 {
		return ErrUserNotFound
	}
	return nil
}

func scanUser(row pgx.Row) (User, error) {
	var (
		user      User
		role      string
		kyc       string
		lastLogin *time.Time
	)
	err := row.Scan(&user.ID, &user.PhoneNumber, &user.FullName, &user.Email, &user.PasswordHash, &role,
		&user.IsVerified, &kyc, &user.IsStaff, &user.IsActive, &user.DateJoined, &user.UpdatedAt, &lastLogin)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return User{}, ErrUserNotFound
		}
		return User{}, err
	}
	user.Role = Role(role)
	user.KYCStatus = KYCStatus(kyc)
	user.DateJoined = user.DateJoined.UTC()
	user.UpdatedAt = user.UpdatedAt.UTC()
	if lastLogin != nil {
		t := lastLogin.UTC()
		user.LastLogin = &t
	}
	return user, nil
}
