package catalog

import (
	"context"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/maternity/maternity/internal/platform/db"
)

type queryable interface {
	Query(ctx context.Context, sql string, args ...interface{}) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...interface{}) pgx.Row
	Exec(ctx context.Context, sql string, args ...interface{}) (pgconn.CommandTag, error)
}

type repoPG struct{ pool *pgxpool.Pool }

func NewRepoPG(pool *pgxpool.Pool) Repository {
	return &repoPG{pool: pool}
}

func (r *repoPG) conn(ctx context.Context) queryable {
	if tx := db.TxFromContext(ctx); tx != nil {
		return tx
	}
	if c := db.ConnFromContext(ctx); c != nil {
		return c
	}
	return r.pool
}

const itemCols = `id, kind, value, sort_order, active, created_at, updated_at`

func scanItem(row pgx.Row) (*Item, error) {
	var it Item
	err := row.Scan(&it.ID, &it.Kind, &it.Value, &it.Order, &it.Active, &it.CreatedAt, &it.UpdatedAt)
	return &it, err
}

func (r *repoPG) Create(ctx context.Context, it *Item) error {
	if it.ID == uuid.Nil {
		it.ID = uuid.New()
	}
	_, err := r.conn(ctx).Exec(ctx, `
		INSERT INTO catalog_item (id, kind, value, sort_order, active)
		VALUES ($1,$2,$3,$4,$5)`,
		it.ID, it.Kind, it.Value, it.Order, it.Active)
	return err
}

func (r *repoPG) GetByID(ctx context.Context, id uuid.UUID) (*Item, error) {
	return scanItem(r.conn(ctx).QueryRow(ctx,
		`SELECT `+itemCols+` FROM catalog_item WHERE id = $1`, id))
}

func (r *repoPG) GetByKindValue(ctx context.Context, kind Kind, value string) (*Item, error) {
	return scanItem(r.conn(ctx).QueryRow(ctx,
		`SELECT `+itemCols+` FROM catalog_item WHERE kind = $1 AND value = $2`, kind, value))
}

func (r *repoPG) Update(ctx context.Context, it *Item) error {
	_, err := r.conn(ctx).Exec(ctx, `
		UPDATE catalog_item
		SET value = $2, sort_order = $3, active = $4, updated_at = NOW()
		WHERE id = $1`,
		it.ID, it.Value, it.Order, it.Active)
	return err
}

func (r *repoPG) ListByKind(ctx context.Context, kind Kind, activeOnly bool) ([]*Item, error) {
	q := `SELECT ` + itemCols + ` FROM catalog_item WHERE kind = $1`
	if activeOnly {
		q += ` AND active`
	}
	q += ` ORDER BY sort_order, value`

	rows, err := r.conn(ctx).Query(ctx, q, kind)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var items []*Item
	for rows.Next() {
		it, err := scanItem(rows)
		if err != nil {
			return nil, err
		}
		items = append(items, it)
	}
	return items, nil
}
