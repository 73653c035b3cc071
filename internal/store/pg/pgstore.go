package pg

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/jackc/pgx/v5/pgconn"
	_ "github.com/jackc/pgx/v5/stdlib"

	"sourzka.org/internal/auth"
	"sourzka.org/internal/marketplace"
)

const (
	pgErrUniqueViolation     = "23505"
	pgErrForeignKeyViolation = "23503"
)

// Store implements marketplace.Store on Postgres.
type Store struct {
	db *sql.DB
}

var _ marketplace.Store = (*Store)(nil)

func Open(dsn string) (*Store, error) {
	db, err := sql.Open("pgx", dsn)
	if err != nil {
		return nil, err
	}
	// Tuned pool defaults; adjust under load tests
	db.SetMaxOpenConns(50)
	db.SetMaxIdleConns(25)
	db.SetConnMaxLifetime(15 * time.Minute)
	db.SetConnMaxIdleTime(5 * time.Minute)
	return &Store{db: db}, nil
}

// New wraps an existing connection pool.
func New(db *sql.DB) *Store { return &Store{db: db} }

func (s *Store) Close() error { return s.db.Close() }

func (s *Store) DB() *sql.DB { return s.db }

// Ping checks connectivity.
func (s *Store) Ping(ctx context.Context) error { return s.db.PingContext(ctx) }

func (s *Store) CreateManufacturerAccount(ctx context.Context, user marketplace.User, m marketplace.Manufacturer) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer func() { _ = tx.Rollback() }()

	if err := insertUser(ctx, tx, user); err != nil {
		return err
	}
	keywords, certificates, gallery, err := encodeManufacturerLists(m)
	if err != nil {
		return err
	}
	if _, err := tx.ExecContext(ctx, `
		insert into manufacturers (id, user_id, company_name, factory_details, keywords, certificates, gallery,
			intro_video, is_verified, is_viewed_by_staff, created_at, updated_at)
		values ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)
	`, m.ID, m.UserID, m.CompanyName, m.FactoryDetails, keywords, certificates, gallery,
		m.IntroVideo, m.IsVerified, m.IsViewedByStaff, m.CreatedAt, m.UpdatedAt); err != nil {
		return mapWriteError(err)
	}
	return tx.Commit()
}

func (s *Store) CreateBuyerAccount(ctx context.Context, user marketplace.User, b marketplace.Buyer) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer func() { _ = tx.Rollback() }()

	if err := insertUser(ctx, tx, user); err != nil {
		return err
	}
	if _, err := tx.ExecContext(ctx, `
		insert into buyers (id, user_id, created_at, updated_at)
		values ($1, $2, $3, $4)
	`, b.ID, b.UserID, b.CreatedAt, b.UpdatedAt); err != nil {
		return mapWriteError(err)
	}
	return tx.Commit()
}

func insertUser(ctx context.Context, tx *sql.Tx, u marketplace.User) error {
	_, err := tx.ExecContext(ctx, `
		insert into users (id, email, name, password_hash, role, created_at, updated_at)
		values ($1, $2, $3, $4, $5, $6, $7)
	`, u.ID, u.Email, u.Name, u.PasswordHash, string(u.Role), u.CreatedAt, u.UpdatedAt)
	return mapWriteError(err)
}

const userColumns = `id, email, name, password_hash, role, created_at, updated_at`

func (s *Store) UserByID(ctx context.Context, id string) (marketplace.User, error) {
	return scanUser(s.db.QueryRowContext(ctx, `select `+userColumns+` from users where id = $1`, id))
}

func (s *Store) UserByEmail(ctx context.Context, email string) (marketplace.User, error) {
	return scanUser(s.db.QueryRowContext(ctx, `select `+userColumns+` from users where lower(email) = lower($1)`, strings.TrimSpace(email)))
}

func scanUser(row *sql.Row) (marketplace.User, error) {
	var (
		u    marketplace.User
		role string
	)
	err := row.Scan(&u.ID, &u.Email, &u.Name, &u.PasswordHash, &role, &u.CreatedAt, &u.UpdatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return marketplace.User{}, marketplace.ErrNotFound
	}
	if err != nil {
		return marketplace.User{}, err
	}
	u.Role = auth.Role(role)
	return u, nil
}

func (s *Store) CreateAdmin(ctx context.Context, a marketplace.Admin) error {
	_, err := s.db.ExecContext(ctx, `
		insert into admins (id, email, name, password_hash, role, created_at, updated_at)
		values ($1, $2, $3, $4, $5, $6, $7)
	`, a.ID, a.Email, a.Name, a.PasswordHash, string(a.Role), a.CreatedAt, a.UpdatedAt)
	return mapWriteError(err)
}

func (s *Store) AdminByEmail(ctx context.Context, email string) (marketplace.Admin, error) {
	var (
		a    marketplace.Admin
		role string
	)
	err := s.db.QueryRowContext(ctx, `
		select id, email, name, password_hash, role, created_at, updated_at
		from admins
		where lower(email) = lower($1)
	`, strings.TrimSpace(email)).Scan(&a.ID, &a.Email, &a.Name, &a.PasswordHash, &role, &a.CreatedAt, &a.UpdatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return marketplace.Admin{}, marketplace.ErrNotFound
	}
	if err != nil {
		return marketplace.Admin{}, err
	}
	a.Role = auth.Role(role)
	return a, nil
}

func (s *Store) AdminRole(ctx context.Context, adminID string) (auth.Role, bool, error) {
	var role string
	err := s.db.QueryRowContext(ctx, `select role from admins where id = $1`, adminID).Scan(&role)
	if errors.Is(err, sql.ErrNoRows) {
		return "", false, nil
	}
	if err != nil {
		return "", false, err
	}
	return auth.Role(role), true, nil
}

func (s *Store) ManufacturerExists(ctx context.Context, id string) (bool, error) {
	return s.exists(ctx, `select exists(select 1 from manufacturers where id = $1)`, id)
}

func (s *Store) BuyerExists(ctx context.Context, id string) (bool, error) {
	return s.exists(ctx, `select exists(select 1 from buyers where id = $1)`, id)
}

func (s *Store) exists(ctx context.Context, query, id string) (bool, error) {
	var ok bool
	if err := s.db.QueryRowContext(ctx, query, id).Scan(&ok); err != nil {
		return false, err
	}
	return ok, nil
}

func (s *Store) BuyerByUserID(ctx context.Context, userID string) (marketplace.Buyer, error) {
	var b marketplace.Buyer
	err := s.db.QueryRowContext(ctx, `
		select id, user_id, created_at, updated_at from buyers where user_id = $1
	`, userID).Scan(&b.ID, &b.UserID, &b.CreatedAt, &b.UpdatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return marketplace.Buyer{}, marketplace.ErrNotFound
	}
	if err != nil {
		return marketplace.Buyer{}, err
	}
	return b, nil
}

func maybePgError(err error) (*pgconn.PgError, bool) {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		return pgErr, true
	}
	return nil, false
}

// mapWriteError converts constraint violations into marketplace sentinels.
func mapWriteError(err error) error {
	if err == nil {
		return nil
	}
	if pgErr, ok := maybePgError(err); ok {
		switch pgErr.Code {
		case pgErrUniqueViolation:
			return marketplace.ErrConflict
		case pgErrForeignKeyViolation:
			return marketplace.ErrNotFound
		}
	}
	return err
}

func nullIfEmpty(s string) sql.NullString {
	s = strings.TrimSpace(s)
	if s == "" {
		return sql.NullString{}
	}
	return sql.NullString{String: s, Valid: true}
}

func encodeList(values []string) ([]byte, error) {
	if values == nil {
		values = []string{}
	}
	data, err := json.Marshal(values)
	if err != nil {
		return nil, fmt.Errorf("encode list: %w", err)
	}
	return data, nil
}

func decodeList(raw []byte) ([]string, error) {
	out := []string{}
	if len(raw) == 0 {
		return out, nil
	}
	if err := json.Unmarshal(raw, &out); err != nil {
		return nil, fmt.Errorf("decode list: %w", err)
	}
	return out, nil
}
