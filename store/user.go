package store

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"inkwell/domain"
)

const userColumns = `id, name, email, password_hash, role, created_at, updated_at`

// CreateUser inserts the user, stamping timestamps and lowercasing the
// email. A duplicate email maps to domain.ErrConflict.
func (d *DB) CreateUser(ctx context.Context, u *domain.User) error {
	now := time.Now().UTC()
	u.CreatedAt = now
	u.UpdatedAt = now
	u.Email = strings.ToLower(u.Email)
	if u.Role == "" {
		u.Role = domain.RoleUser
	}

	_, err := d.db.ExecContext(ctx,
		`INSERT INTO users (`+userColumns+`) VALUES (?,?,?,?,?,?,?)`,
		u.ID, u.Name, u.Email, u.PasswordHash, u.Role, u.CreatedAt, u.UpdatedAt)
	if err != nil {
		if isUniqueViolation(err) {
			return fmt.Errorf("insert user %q: %w", u.Email, domain.ErrConflict)
		}
		return fmt.Errorf("insert user: %w", err)
	}
	return nil
}

func (d *DB) UserByEmail(ctx context.Context, email string) (*domain.User, error) {
	row := d.db.QueryRowContext(ctx,
		`SELECT `+userColumns+` FROM users WHERE email = ?`, strings.ToLower(email))
	return scanUser(row)
}

func (d *DB) UserByID(ctx context.Context, id string) (*domain.User, error) {
	row := d.db.QueryRowContext(ctx, `SELECT `+userColumns+` FROM users WHERE id = ?`, id)
	return scanUser(row)
}

func scanUser(row *sql.Row) (*domain.User, error) {
	u := &domain.User{}
	err := row.Scan(&u.ID, &u.Name, &u.Email, &u.PasswordHash, &u.Role, &u.CreatedAt, &u.UpdatedAt)
	if err == sql.ErrNoRows {
		return nil, domain.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("scan user: %w", err)
	}
	return u, nil
}
