package postgres

import (
	"context"
	"database/sql"

	"github.com/shopspring/decimal"

	"github.com/nexcart/commerce-core/internal/domain/order"
	"github.com/nexcart/commerce-core/internal/storage"
)

const orderColumns = `id, user_id, total_amount, status, COALESCE(payment_ref, ''), COALESCE(refund_id, ''), created_at`

func scanOrder(row interface{ Scan(...interface{}) error }) (order.Order, error) {
	var o order.Order
	if err := row.Scan(&o.ID, &o.UserID, &o.TotalAmount, &o.Status, &o.PaymentRef, &o.RefundID, &o.CreatedAt); err != nil {
		return order.Order{}, err
	}
	return o, nil
}

func (s *Store) CreateOrder(ctx context.Context, userID int64, lines []order.Line) (order.Order, error) {
	var o order.Order
	err := s.inTx(ctx, func(tx *sql.Tx) error {
		// Header first, with a zero total; the real total lands in the same
		// transaction, so a mid-sequence failure leaves no visible header.
		var orderID int64
		if err := tx.QueryRowContext(ctx, `
			INSERT INTO orders (user_id, total_amount, status)
			VALUES ($1, 0, $2)
			RETURNING id
		`, userID, order.StatusPending).Scan(&orderID); err != nil {
			return err
		}

		total := decimal.Zero
		for _, line := range lines {
			// Unit price is read and snapshotted here; an unresolvable or
			// retired product aborts the whole order.
			var price decimal.Decimal
			if err := tx.QueryRowContext(ctx, `
				SELECT price FROM products WHERE id = $1 AND active
			`, line.ProductID).Scan(&price); err != nil {
				return err
			}

			total = total.Add(price.Mul(decimal.NewFromInt(int64(line.Quantity))))

			if _, err := tx.ExecContext(ctx, `
				INSERT INTO order_items (order_id, product_id, quantity, price)
				VALUES ($1, $2, $3, $4)
			`, orderID, line.ProductID, line.Quantity, price); err != nil {
				return err
			}
		}

		if _, err := tx.ExecContext(ctx, `
			UPDATE orders SET total_amount = $2 WHERE id = $1
		`, orderID, total); err != nil {
			return err
		}

		var err error
		o, err = readOrder(ctx, tx, userID, orderID)
		return err
	})
	if err != nil {
		return order.Order{}, err
	}
	return o, nil
}

type querier interface {
	QueryRowContext(ctx context.Context, query string, args ...interface{}) *sql.Row
	QueryContext(ctx context.Context, query string, args ...interface{}) (*sql.Rows, error)
}

func readOrder(ctx context.Context, q querier, userID, orderID int64) (order.Order, error) {
	o, err := scanOrder(q.QueryRowContext(ctx, `
		SELECT `+orderColumns+` FROM orders WHERE id = $1 AND user_id = $2
	`, orderID, userID))
	if err != nil {
		return order.Order{}, err
	}

	rows, err := q.QueryContext(ctx, `
		SELECT id, order_id, product_id, quantity, price
		FROM order_items
		WHERE order_id = $1
		ORDER BY id
	`, orderID)
	if err != nil {
		return order.Order{}, err
	}
	defer rows.Close()

	for rows.Next() {
		var item order.Item
		if err := rows.Scan(&item.ID, &item.OrderID, &item.ProductID, &item.Quantity, &item.UnitPrice); err != nil {
			return order.Order{}, err
		}
		o.Items = append(o.Items, item)
	}
	return o, rows.Err()
}

func (s *Store) GetOrder(ctx context.Context, userID, orderID int64) (order.Order, error) {
	o, err := readOrder(ctx, s.db, userID, orderID)
	if err != nil {
		return order.Order{}, mapError(err)
	}
	return o, nil
}

func (s *Store) ListOrders(ctx context.Context, userID int64) ([]order.Order, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT `+orderColumns+` FROM orders WHERE user_id = $1 ORDER BY created_at DESC
	`, userID)
	if err != nil {
		return nil, mapError(err)
	}
	defer rows.Close()

	var result []order.Order
	for rows.Next() {
		o, err := scanOrder(rows)
		if err != nil {
			return nil, mapError(err)
		}
		result = append(result, o)
	}
	return result, mapError(rows.Err())
}

func (s *Store) Transition(ctx context.Context, userID, orderID int64, next order.Status, allowedFrom ...order.Status) (order.Order, error) {
	var o order.Order
	err := s.inTx(ctx, func(tx *sql.Tx) error {
		// Row lock so two concurrent transitions serialize; the loser sees
		// the winner's status and fails the allowed-from check.
		var current order.Status
		if err := tx.QueryRowContext(ctx, `
			SELECT status FROM orders WHERE id = $1 AND user_id = $2 FOR UPDATE
		`, orderID, userID).Scan(&current); err != nil {
			return err
		}

		allowed := false
		for _, from := range allowedFrom {
			if current == from {
				allowed = true
				break
			}
		}
		if !allowed {
			return storage.ErrConflict
		}

		if _, err := tx.ExecContext(ctx, `
			UPDATE orders SET status = $3 WHERE id = $1 AND user_id = $2
		`, orderID, userID, next); err != nil {
			return err
		}

		var err error
		o, err = readOrder(ctx, tx, userID, orderID)
		return err
	})
	if err != nil {
		return order.Order{}, err
	}
	return o, nil
}

func (s *Store) SetRefunded(ctx context.Context, userID, orderID int64, refundID string) (order.Order, error) {
	var o order.Order
	err := s.inTx(ctx, func(tx *sql.Tx) error {
		result, err := tx.ExecContext(ctx, `
			UPDATE orders
			SET status = $3, refund_id = $4
			WHERE id = $1 AND user_id = $2 AND status = $5
		`, orderID, userID, order.StatusRefunded, refundID, order.StatusCompleted)
		if err != nil {
			return err
		}
		if rows, _ := result.RowsAffected(); rows == 0 {
			// Distinguish an absent/foreign order from one in the wrong state.
			var exists bool
			if err := tx.QueryRowContext(ctx, `
				SELECT TRUE FROM orders WHERE id = $1 AND user_id = $2
			`, orderID, userID).Scan(&exists); err != nil {
				return err
			}
			return storage.ErrConflict
		}

		o, err = readOrder(ctx, tx, userID, orderID)
		return err
	})
	if err != nil {
		return order.Order{}, err
	}
	return o, nil
}
