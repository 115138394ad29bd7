package postgres

import (
	"context"
	"database/sql"

	"github.com/nexcart/commerce-core/internal/domain/catalog"
)

const productColumns = `id, name, COALESCE(description, ''), price, category_id, active, created_at, updated_at`

func scanProduct(row interface{ Scan(...interface{}) error }) (catalog.Product, error) {
	var (
		p          catalog.Product
		categoryID sql.NullInt64
	)
	if err := row.Scan(&p.ID, &p.Name, &p.Description, &p.Price, &categoryID, &p.Active, &p.CreatedAt, &p.UpdatedAt); err != nil {
		return catalog.Product{}, err
	}
	if categoryID.Valid {
		id := categoryID.Int64
		p.CategoryID = &id
	}
	return p, nil
}

func (s *Store) CreateProduct(ctx context.Context, p catalog.Product) (catalog.Product, error) {
	row := s.db.QueryRowContext(ctx, `
		INSERT INTO products (name, description, price, category_id, active)
		VALUES ($1, NULLIF($2, ''), $3, $4, TRUE)
		RETURNING `+productColumns+`
	`, p.Name, p.Description, p.Price, p.CategoryID)

	created, err := scanProduct(row)
	if err != nil {
		return catalog.Product{}, mapError(err)
	}
	return created, nil
}

func (s *Store) GetProduct(ctx context.Context, id int64) (catalog.Product, error) {
	p, err := scanProduct(s.db.QueryRowContext(ctx, `SELECT `+productColumns+` FROM products WHERE id = $1`, id))
	if err != nil {
		return catalog.Product{}, mapError(err)
	}
	return p, nil
}

func (s *Store) ListProducts(ctx context.Context, includeInactive bool) ([]catalog.Product, error) {
	query := `SELECT ` + productColumns + ` FROM products WHERE active ORDER BY id`
	if includeInactive {
		query = `SELECT ` + productColumns + ` FROM products ORDER BY id`
	}

	rows, err := s.db.QueryContext(ctx, query)
	if err != nil {
		return nil, mapError(err)
	}
	defer rows.Close()

	var result []catalog.Product
	for rows.Next() {
		p, err := scanProduct(rows)
		if err != nil {
			return nil, mapError(err)
		}
		result = append(result, p)
	}
	return result, mapError(rows.Err())
}

func (s *Store) UpdateProduct(ctx context.Context, id int64, patch catalog.ProductPatch) (catalog.Product, error) {
	row := s.db.QueryRowContext(ctx, `
		UPDATE products
		SET name        = COALESCE($2, name),
		    description = COALESCE($3, description),
		    price       = COALESCE($4, price),
		    category_id = COALESCE($5, category_id),
		    updated_at  = NOW()
		WHERE id = $1
		RETURNING `+productColumns+`
	`, id, patch.Name, patch.Description, patch.Price, patch.CategoryID)

	updated, err := scanProduct(row)
	if err != nil {
		return catalog.Product{}, mapError(err)
	}
	return updated, nil
}

func (s *Store) DeactivateProduct(ctx context.Context, id int64) error {
	result, err := s.db.ExecContext(ctx, `UPDATE products SET active = FALSE, updated_at = NOW() WHERE id = $1`, id)
	if err != nil {
		return mapError(err)
	}
	if rows, _ := result.RowsAffected(); rows == 0 {
		return mapError(sql.ErrNoRows)
	}
	return nil
}

const categoryColumns = `id, name, COALESCE(description, ''), parent_id, created_at`

func scanCategory(row interface{ Scan(...interface{}) error }) (catalog.Category, error) {
	var (
		c        catalog.Category
		parentID sql.NullInt64
	)
	if err := row.Scan(&c.ID, &c.Name, &c.Description, &parentID, &c.CreatedAt); err != nil {
		return catalog.Category{}, err
	}
	if parentID.Valid {
		id := parentID.Int64
		c.ParentID = &id
	}
	return c, nil
}

func (s *Store) CreateCategory(ctx context.Context, c catalog.Category) (catalog.Category, error) {
	row := s.db.QueryRowContext(ctx, `
		INSERT INTO categories (name, description, parent_id)
		VALUES ($1, NULLIF($2, ''), $3)
		RETURNING `+categoryColumns+`
	`, c.Name, c.Description, c.ParentID)

	created, err := scanCategory(row)
	if err != nil {
		return catalog.Category{}, mapError(err)
	}
	return created, nil
}

func (s *Store) GetCategory(ctx context.Context, id int64) (catalog.Category, error) {
	c, err := scanCategory(s.db.QueryRowContext(ctx, `SELECT `+categoryColumns+` FROM categories WHERE id = $1`, id))
	if err != nil {
		return catalog.Category{}, mapError(err)
	}
	return c, nil
}

func (s *Store) ListCategories(ctx context.Context) ([]catalog.Category, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT `+categoryColumns+` FROM categories ORDER BY id`)
	if err != nil {
		return nil, mapError(err)
	}
	defer rows.Close()

	var result []catalog.Category
	for rows.Next() {
		c, err := scanCategory(rows)
		if err != nil {
			return nil, mapError(err)
		}
		result = append(result, c)
	}
	return result, mapError(rows.Err())
}

func (s *Store) UpdateCategory(ctx context.Context, c catalog.Category) (catalog.Category, error) {
	row := s.db.QueryRowContext(ctx, `
		UPDATE categories
		SET name = $2, description = NULLIF($3, ''), parent_id = $4
		WHERE id = $1
		RETURNING `+categoryColumns+`
	`, c.ID, c.Name, c.Description, c.ParentID)

	updated, err := scanCategory(row)
	if err != nil {
		return catalog.Category{}, mapError(err)
	}
	return updated, nil
}

func (s *Store) DeleteCategory(ctx context.Context, id int64) error {
	// Referencing products or child categories hold FK references; the
	// delete surfaces those as a conflict rather than cascading.
	result, err := s.db.ExecContext(ctx, `DELETE FROM categories WHERE id = $1`, id)
	if err != nil {
		return mapError(err)
	}
	if rows, _ := result.RowsAffected(); rows == 0 {
		return mapError(sql.ErrNoRows)
	}
	return nil
}
