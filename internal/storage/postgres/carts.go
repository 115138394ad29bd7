package postgres

import (
	"context"
	"database/sql"

	"github.com/nexcart/commerce-core/internal/domain/cart"
)

const cartItemColumns = `ci.id, ci.cart_id, ci.product_id, ci.quantity, p.name, p.price`

func scanCartItem(row interface{ Scan(...interface{}) error }) (cart.Item, error) {
	var item cart.Item
	if err := row.Scan(&item.ID, &item.CartID, &item.ProductID, &item.Quantity, &item.ProductName, &item.UnitPrice); err != nil {
		return cart.Item{}, err
	}
	return item, nil
}

func (s *Store) GetOrCreate(ctx context.Context, userID int64) (cart.Cart, error) {
	var c cart.Cart
	err := s.inTx(ctx, func(tx *sql.Tx) error {
		if err := ensureCart(ctx, tx, userID, &c); err != nil {
			return err
		}

		rows, err := tx.QueryContext(ctx, `
			SELECT `+cartItemColumns+`
			FROM cart_items ci
			JOIN products p ON p.id = ci.product_id
			WHERE ci.cart_id = $1
			ORDER BY ci.id
		`, c.ID)
		if err != nil {
			return err
		}
		defer rows.Close()

		c.Items = []cart.Item{}
		for rows.Next() {
			item, err := scanCartItem(rows)
			if err != nil {
				return err
			}
			c.Items = append(c.Items, item)
		}
		return rows.Err()
	})
	if err != nil {
		return cart.Cart{}, err
	}
	return c, nil
}

// ensureCart resolves the user's cart, lazily creating one. The conflict
// clause folds concurrent first accesses onto the single existing row.
func ensureCart(ctx context.Context, tx *sql.Tx, userID int64, c *cart.Cart) error {
	return tx.QueryRowContext(ctx, `
		INSERT INTO carts (user_id)
		VALUES ($1)
		ON CONFLICT (user_id) DO UPDATE SET updated_at = carts.updated_at
		RETURNING id, user_id, created_at, updated_at
	`, userID).Scan(&c.ID, &c.UserID, &c.CreatedAt, &c.UpdatedAt)
}

func (s *Store) AddItem(ctx context.Context, userID, productID int64, quantity int) (cart.Item, error) {
	var item cart.Item
	err := s.inTx(ctx, func(tx *sql.Tx) error {
		var c cart.Cart
		if err := ensureCart(ctx, tx, userID, &c); err != nil {
			return err
		}

		// The product must currently be sellable; inactive products look the
		// same as missing ones to the caller.
		var active bool
		if err := tx.QueryRowContext(ctx, `SELECT active FROM products WHERE id = $1`, productID).Scan(&active); err != nil {
			return err
		}
		if !active {
			return sql.ErrNoRows
		}

		// Atomic upsert: concurrent adds of the same product both land as
		// quantity increments, never as duplicate rows or lost updates.
		var itemID int64
		if err := tx.QueryRowContext(ctx, `
			INSERT INTO cart_items (cart_id, product_id, quantity)
			VALUES ($1, $2, $3)
			ON CONFLICT (cart_id, product_id)
			DO UPDATE SET quantity = cart_items.quantity + EXCLUDED.quantity
			RETURNING id
		`, c.ID, productID, quantity).Scan(&itemID); err != nil {
			return err
		}

		if _, err := tx.ExecContext(ctx, `UPDATE carts SET updated_at = NOW() WHERE id = $1`, c.ID); err != nil {
			return err
		}

		var err error
		item, err = scanCartItem(tx.QueryRowContext(ctx, `
			SELECT `+cartItemColumns+`
			FROM cart_items ci
			JOIN products p ON p.id = ci.product_id
			WHERE ci.id = $1
		`, itemID))
		return err
	})
	if err != nil {
		return cart.Item{}, err
	}
	return item, nil
}

func (s *Store) UpdateItemQuantity(ctx context.Context, userID, itemID int64, quantity int) (cart.Item, error) {
	var item cart.Item
	err := s.inTx(ctx, func(tx *sql.Tx) error {
		var id int64
		if err := tx.QueryRowContext(ctx, `
			UPDATE cart_items
			SET quantity = $3
			WHERE id = $1
			  AND cart_id IN (SELECT id FROM carts WHERE user_id = $2)
			RETURNING id
		`, itemID, userID, quantity).Scan(&id); err != nil {
			return err
		}

		var err error
		item, err = scanCartItem(tx.QueryRowContext(ctx, `
			SELECT `+cartItemColumns+`
			FROM cart_items ci
			JOIN products p ON p.id = ci.product_id
			WHERE ci.id = $1
		`, id))
		return err
	})
	if err != nil {
		return cart.Item{}, err
	}
	return item, nil
}

func (s *Store) RemoveItem(ctx context.Context, userID, itemID int64) error {
	result, err := s.db.ExecContext(ctx, `
		DELETE FROM cart_items
		WHERE id = $1
		  AND cart_id IN (SELECT id FROM carts WHERE user_id = $2)
	`, itemID, userID)
	if err != nil {
		return mapError(err)
	}
	if rows, _ := result.RowsAffected(); rows == 0 {
		return mapError(sql.ErrNoRows)
	}
	return nil
}
