package postgres

import (
	"context"
	"database/sql"
	"time"

	"github.com/nexcart/commerce-core/internal/domain/user"
)

const userColumns = `id, COALESCE(google_id, ''), email, name, COALESCE(password_hash, ''), role, created_at, last_login`

func scanUser(row interface{ Scan(...interface{}) error }) (user.User, error) {
	var (
		u         user.User
		lastLogin sql.NullTime
	)
	if err := row.Scan(&u.ID, &u.GoogleID, &u.Email, &u.Name, &u.PasswordHash, &u.Role, &u.CreatedAt, &lastLogin); err != nil {
		return user.User{}, err
	}
	if lastLogin.Valid {
		t := lastLogin.Time
		u.LastLogin = &t
	}
	return u, nil
}

func (s *Store) Create(ctx context.Context, u user.User) (user.User, error) {
	row := s.db.QueryRowContext(ctx, `
		INSERT INTO users (email, name, password_hash, role)
		VALUES ($1, $2, NULLIF($3, ''), $4)
		RETURNING `+userColumns+`
	`, u.Email, u.Name, u.PasswordHash, u.Role)

	created, err := scanUser(row)
	if err != nil {
		return user.User{}, mapError(err)
	}
	return created, nil
}

func (s *Store) UpsertFederated(ctx context.Context, u user.User) (user.User, error) {
	// ON CONFLICT DO NOTHING keeps concurrent first logins of the same
	// identity from creating duplicate rows; the loser of the race falls
	// through to the re-read below.
	row := s.db.QueryRowContext(ctx, `
		INSERT INTO users (google_id, email, name, role)
		VALUES ($1, $2, $3, $4)
		ON CONFLICT (google_id) DO NOTHING
		RETURNING `+userColumns+`
	`, u.GoogleID, u.Email, u.Name, u.Role)

	created, err := scanUser(row)
	if err == nil {
		return created, nil
	}
	if err != sql.ErrNoRows {
		return user.User{}, mapError(err)
	}
	return s.GetByGoogleID(ctx, u.GoogleID)
}

func (s *Store) GetByID(ctx context.Context, id int64) (user.User, error) {
	u, err := scanUser(s.db.QueryRowContext(ctx, `SELECT `+userColumns+` FROM users WHERE id = $1`, id))
	if err != nil {
		return user.User{}, mapError(err)
	}
	return u, nil
}

func (s *Store) GetByEmail(ctx context.Context, email string) (user.User, error) {
	u, err := scanUser(s.db.QueryRowContext(ctx, `SELECT `+userColumns+` FROM users WHERE email = $1`, email))
	if err != nil {
		return user.User{}, mapError(err)
	}
	return u, nil
}

func (s *Store) GetByGoogleID(ctx context.Context, googleID string) (user.User, error) {
	u, err := scanUser(s.db.QueryRowContext(ctx, `SELECT `+userColumns+` FROM users WHERE google_id = $1`, googleID))
	if err != nil {
		return user.User{}, mapError(err)
	}
	return u, nil
}

func (s *Store) TouchLastLogin(ctx context.Context, id int64) error {
	result, err := s.db.ExecContext(ctx, `UPDATE users SET last_login = $2 WHERE id = $1`, id, time.Now().UTC())
	if err != nil {
		return mapError(err)
	}
	if rows, _ := result.RowsAffected(); rows == 0 {
		return mapError(sql.ErrNoRows)
	}
	return nil
}
