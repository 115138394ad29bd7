package postgres

import (
	"context"
	"database/sql"

	"github.com/nexcart/commerce-core/internal/domain/address"
)

const addressColumns = `id, user_id, address_line1, COALESCE(address_line2, ''), city, COALESCE(state, ''), postal_code, country, is_default, created_at`

func scanAddress(row interface{ Scan(...interface{}) error }) (address.Address, error) {
	var a address.Address
	if err := row.Scan(&a.ID, &a.UserID, &a.Line1, &a.Line2, &a.City, &a.State, &a.PostalCode, &a.Country, &a.IsDefault, &a.CreatedAt); err != nil {
		return address.Address{}, err
	}
	return a, nil
}

func (s *Store) CreateAddress(ctx context.Context, a address.Address) (address.Address, error) {
	var created address.Address
	err := s.inTx(ctx, func(tx *sql.Tx) error {
		if a.IsDefault {
			if err := clearDefault(ctx, tx, a.UserID); err != nil {
				return err
			}
		}

		var err error
		created, err = scanAddress(tx.QueryRowContext(ctx, `
			INSERT INTO addresses (user_id, address_line1, address_line2, city, state, postal_code, country, is_default)
			VALUES ($1, $2, NULLIF($3, ''), $4, NULLIF($5, ''), $6, $7, $8)
			RETURNING `+addressColumns+`
		`, a.UserID, a.Line1, a.Line2, a.City, a.State, a.PostalCode, a.Country, a.IsDefault))
		return err
	})
	if err != nil {
		return address.Address{}, err
	}
	return created, nil
}

func clearDefault(ctx context.Context, tx *sql.Tx, userID int64) error {
	_, err := tx.ExecContext(ctx, `UPDATE addresses SET is_default = FALSE WHERE user_id = $1 AND is_default`, userID)
	return err
}

func (s *Store) GetAddress(ctx context.Context, userID, id int64) (address.Address, error) {
	a, err := scanAddress(s.db.QueryRowContext(ctx, `
		SELECT `+addressColumns+` FROM addresses WHERE id = $1 AND user_id = $2
	`, id, userID))
	if err != nil {
		return address.Address{}, mapError(err)
	}
	return a, nil
}

func (s *Store) ListAddresses(ctx context.Context, userID int64) ([]address.Address, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT `+addressColumns+` FROM addresses WHERE user_id = $1 ORDER BY id
	`, userID)
	if err != nil {
		return nil, mapError(err)
	}
	defer rows.Close()

	var result []address.Address
	for rows.Next() {
		a, err := scanAddress(rows)
		if err != nil {
			return nil, mapError(err)
		}
		result = append(result, a)
	}
	return result, mapError(rows.Err())
}

func (s *Store) UpdateAddress(ctx context.Context, a address.Address) (address.Address, error) {
	var updated address.Address
	err := s.inTx(ctx, func(tx *sql.Tx) error {
		if a.IsDefault {
			if err := clearDefault(ctx, tx, a.UserID); err != nil {
				return err
			}
		}

		var err error
		updated, err = scanAddress(tx.QueryRowContext(ctx, `
			UPDATE addresses
			SET address_line1 = $3, address_line2 = NULLIF($4, ''), city = $5,
			    state = NULLIF($6, ''), postal_code = $7, country = $8, is_default = $9
			WHERE id = $1 AND user_id = $2
			RETURNING `+addressColumns+`
		`, a.ID, a.UserID, a.Line1, a.Line2, a.City, a.State, a.PostalCode, a.Country, a.IsDefault))
		return err
	})
	if err != nil {
		return address.Address{}, err
	}
	return updated, nil
}

func (s *Store) DeleteAddress(ctx context.Context, userID, id int64) error {
	result, err := s.db.ExecContext(ctx, `DELETE FROM addresses WHERE id = $1 AND user_id = $2`, id, userID)
	if err != nil {
		return mapError(err)
	}
	if rows, _ := result.RowsAffected(); rows == 0 {
		return mapError(sql.ErrNoRows)
	}
	return nil
}
