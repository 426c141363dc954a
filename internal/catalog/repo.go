package catalog

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/ariefcatur/go-storefront/internal/postgres"
	"github.com/jackc/pgx/v5"
)

type Repo struct{ DB postgres.DB }

// Filter selects active products. Empty fields are not applied.
type Filter struct {
	CategoryID string
	Search     string
}

const productColumns = `p.id::text, p.name, p.description, p.price, COALESCE(p.category_id::text, ''),
	p.image_url, p.specs, p.stock, p.is_active, p.created_at, p.updated_at,
	COALESCE(c.id::text, ''), COALESCE(c.name, 'Unknown'), COALESCE(c.icon, '')`

func (r *Repo) ListCategories(ctx context.Context) ([]Category, error) {
	rows, err := r.DB.Query(ctx, `SELECT id::text, name, icon, created_at FROM categories ORDER BY name ASC`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := []Category{}
	for rows.Next() {
		var c Category
		if err := rows.Scan(&c.ID, &c.Name, &c.Icon, &c.CreatedAt); err != nil {
			return nil, err
		}
		out = append(out, c)
	}
	return out, rows.Err()
}

func (f Filter) where() (string, []any) {
	clauses := []string{"p.is_active = true"}
	var args []any
	if f.CategoryID != "" {
		args = append(args, f.CategoryID)
		clauses = append(clauses, fmt.Sprintf("p.category_id = $%d", len(args)))
	}
	if f.Search != "" {
		args = append(args, "%"+escapeLike(f.Search)+"%")
		clauses = append(clauses, fmt.Sprintf("p.name ILIKE $%d", len(args)))
	}
	return strings.Join(clauses, " AND "), args
}

// escapeLike makes s match literally inside an ILIKE pattern.
func escapeLike(s string) string {
	return strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`).Replace(s)
}

func (r *Repo) CountProducts(ctx context.Context, f Filter) (int, error) {
	where, args := f.where()
	var n int
	err := r.DB.QueryRow(ctx, `SELECT COUNT(*) FROM products p WHERE `+where, args...).Scan(&n)
	return n, err
}

func (r *Repo) FindProducts(ctx context.Context, f Filter, limit, offset int) ([]Product, error) {
	where, args := f.where()
	args = append(args, limit, offset)
	q := fmt.Sprintf(`SELECT %s
		FROM products p LEFT JOIN categories c ON c.id = p.category_id
		WHERE %s
		ORDER BY p.name, p.id
		LIMIT $%d OFFSET $%d`, productColumns, where, len(args)-1, len(args))

	rows, err := r.DB.Query(ctx, q, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := []Product{}
	for rows.Next() {
		p, err := scanProduct(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, *p)
	}
	return out, rows.Err()
}

// GetProduct returns nil, nil when no active product has the id.
func (r *Repo) GetProduct(ctx context.Context, id string) (*Product, error) {
	row := r.DB.QueryRow(ctx, `SELECT `+productColumns+`
		FROM products p LEFT JOIN categories c ON c.id = p.category_id
		WHERE p.id = $1 AND p.is_active = true`, id)
	p, err := scanProduct(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return p, nil
}

func scanProduct(row pgx.Row) (*Product, error) {
	var p Product
	err := row.Scan(&p.ID, &p.Name, &p.Description, &p.Price, &p.CategoryID,
		&p.ImageURL, &p.Specs, &p.Stock, &p.IsActive, &p.CreatedAt, &p.UpdatedAt,
		&p.Category.ID, &p.Category.Name, &p.Category.Icon)
	if err != nil {
		return nil, err
	}
	return &p, nil
}
