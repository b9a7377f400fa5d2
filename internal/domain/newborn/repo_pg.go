package newborn

import (
	"context"
	"fmt"
	"strings"

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

func (r *repoPG) InTx(ctx context.Context, fn func(ctx context.Context) error) error {
	return db.InTx(ctx, r.pool, fn)
}

const newbornCols = `id, birth_id, sex, weight_grams, length_cm, head_circumference_cm,
	apgar1, apgar5, basic_resuscitation, advanced_resuscitation, delayed_cord_clamping,
	breastfed_within_60min, discharged, active, created_by, created_at, updated_at`

const newbornColsN = `n.id, n.birth_id, n.sex, n.weight_grams, n.length_cm, n.head_circumference_cm,
	n.apgar1, n.apgar5, n.basic_resuscitation, n.advanced_resuscitation, n.delayed_cord_clamping,
	n.breastfed_within_60min, n.discharged, n.active, n.created_by, n.created_at, n.updated_at`

func scanNewborn(row pgx.Row) (*Newborn, error) {
	var n Newborn
	err := row.Scan(&n.ID, &n.BirthID, &n.Sex, &n.WeightGrams, &n.LengthCM, &n.HeadCircumferenceCM,
		&n.Apgar1, &n.Apgar5, &n.BasicResuscitation, &n.AdvancedResus, &n.DelayedCordClamping,
		&n.BreastfedWithin60, &n.Discharged, &n.Active, &n.CreatedBy, &n.CreatedAt, &n.UpdatedAt)
	return &n, err
}

func (r *repoPG) Create(ctx context.Context, n *Newborn) error {
	if n.ID == uuid.Nil {
		n.ID = uuid.New()
	}
	_, err := r.conn(ctx).Exec(ctx, `
		INSERT INTO newborn (id, birth_id, sex, weight_grams, length_cm, head_circumference_cm,
			apgar1, apgar5, basic_resuscitation, advanced_resuscitation, delayed_cord_clamping,
			breastfed_within_60min, discharged, active, created_by)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,$13,$14,$15)`,
		n.ID, n.BirthID, n.Sex, n.WeightGrams, n.LengthCM, n.HeadCircumferenceCM,
		n.Apgar1, n.Apgar5, n.BasicResuscitation, n.AdvancedResus, n.DelayedCordClamping,
		n.BreastfedWithin60, n.Discharged, n.Active, n.CreatedBy)
	return err
}

func (r *repoPG) GetByID(ctx context.Context, id uuid.UUID) (*Newborn, error) {
	return scanNewborn(r.conn(ctx).QueryRow(ctx,
		`SELECT `+newbornCols+` FROM newborn WHERE id = $1`, id))
}

func (r *repoPG) Update(ctx context.Context, n *Newborn) error {
	_, err := r.conn(ctx).Exec(ctx, `
		UPDATE newborn
		SET sex = $2, weight_grams = $3, length_cm = $4, head_circumference_cm = $5,
			apgar1 = $6, apgar5 = $7, basic_resuscitation = $8, advanced_resuscitation = $9,
			delayed_cord_clamping = $10, breastfed_within_60min = $11, discharged = $12,
			active = $13, updated_at = NOW()
		WHERE id = $1`,
		n.ID, n.Sex, n.WeightGrams, n.LengthCM, n.HeadCircumferenceCM,
		n.Apgar1, n.Apgar5, n.BasicResuscitation, n.AdvancedResus,
		n.DelayedCordClamping, n.BreastfedWithin60, n.Discharged, n.Active)
	return err
}

func (r *repoPG) List(ctx context.Context, f Filter, limit, offset int) ([]*Newborn, int, error) {
	where := []string{}
	args := []interface{}{}
	idx := 1

	if !f.IncludeInactive {
		where = append(where, "n.active")
	}
	if f.PendingDischarge {
		where = append(where, "NOT n.discharged")
	}
	if f.BirthID != nil {
		where = append(where, fmt.Sprintf("n.birth_id = $%d", idx))
		args = append(args, *f.BirthID)
		idx++
	}
	join := ""
	if f.MotherID != nil {
		join = "JOIN birth b ON b.id = n.birth_id"
		where = append(where, fmt.Sprintf("b.mother_id = $%d", idx))
		args = append(args, *f.MotherID)
		idx++
	}

	whereClause := ""
	if len(where) > 0 {
		whereClause = "WHERE " + strings.Join(where, " AND ")
	}

	var total int
	countQ := fmt.Sprintf("SELECT COUNT(*) FROM newborn n %s %s", join, whereClause)
	if err := r.conn(ctx).QueryRow(ctx, countQ, args...).Scan(&total); err != nil {
		return nil, 0, err
	}

	q := fmt.Sprintf("SELECT %s FROM newborn n %s %s ORDER BY n.created_at DESC LIMIT $%d OFFSET $%d",
		newbornColsN, join, whereClause, idx, idx+1)
	args = append(args, limit, offset)

	rows, err := r.conn(ctx).Query(ctx, q, args...)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()

	var items []*Newborn
	for rows.Next() {
		n, err := scanNewborn(rows)
		if err != nil {
			return nil, 0, err
		}
		items = append(items, n)
	}
	return items, total, nil
}

func (r *repoPG) ActiveByBirth(ctx context.Context, birthID uuid.UUID) ([]*Newborn, error) {
	rows, err := r.conn(ctx).Query(ctx,
		`SELECT `+newbornCols+` FROM newborn WHERE birth_id = $1 AND active`, birthID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var items []*Newborn
	for rows.Next() {
		n, err := scanNewborn(rows)
		if err != nil {
			return nil, err
		}
		items = append(items, n)
	}
	return items, nil
}

func (r *repoPG) AddProphylaxis(ctx context.Context, p *Prophylaxis) error {
	if p.ID == uuid.Nil {
		p.ID = uuid.New()
	}
	_, err := r.conn(ctx).Exec(ctx, `
		INSERT INTO newborn_prophylaxis (id, newborn_id, kind_id, administered_at,
			professional, adverse_reaction, recorded_by)
		VALUES ($1,$2,$3,$4,$5,$6,$7)`,
		p.ID, p.NewbornID, p.KindID, p.AdministeredAt,
		p.Professional, p.AdverseReaction, p.RecordedBy)
	return err
}

func (r *repoPG) ListProphylaxis(ctx context.Context, newbornID uuid.UUID) ([]*Prophylaxis, error) {
	rows, err := r.conn(ctx).Query(ctx, `
		SELECT id, newborn_id, kind_id, administered_at, professional,
			adverse_reaction, recorded_by, recorded_at
		FROM newborn_prophylaxis WHERE newborn_id = $1
		ORDER BY administered_at`, newbornID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var items []*Prophylaxis
	for rows.Next() {
		var p Prophylaxis
		if err := rows.Scan(&p.ID, &p.NewbornID, &p.KindID, &p.AdministeredAt,
			&p.Professional, &p.AdverseReaction, &p.RecordedBy, &p.RecordedAt); err != nil {
			return nil, err
		}
		items = append(items, &p)
	}
	return items, nil
}

func (r *repoPG) AddObservation(ctx context.Context, o *Observation) error {
	if o.ID == uuid.Nil {
		o.ID = uuid.New()
	}
	_, err := r.conn(ctx).Exec(ctx, `
		INSERT INTO newborn_observation (id, newborn_id, author_id, author_name, text, signed)
		VALUES ($1,$2,$3,$4,$5,$6)`,
		o.ID, o.NewbornID, o.AuthorID, o.AuthorName, o.Text, o.Signed)
	return err
}

func (r *repoPG) ListObservations(ctx context.Context, newbornID uuid.UUID) ([]*Observation, error) {
	rows, err := r.conn(ctx).Query(ctx, `
		SELECT id, newborn_id, author_id, author_name, text, signed, recorded_at
		FROM newborn_observation WHERE newborn_id = $1
		ORDER BY recorded_at DESC`, newbornID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var items []*Observation
	for rows.Next() {
		var o Observation
		if err := rows.Scan(&o.ID, &o.NewbornID, &o.AuthorID, &o.AuthorName,
			&o.Text, &o.Signed, &o.RecordedAt); err != nil {
			return nil, err
		}
		items = append(items, &o)
	}
	return items, nil
}

func (r *repoPG) AddDeathRecord(ctx context.Context, d *DeathRecord) error {
	if d.ID == uuid.Nil {
		d.ID = uuid.New()
	}
	_, err := r.conn(ctx).Exec(ctx, `
		INSERT INTO newborn_death_record (id, newborn_id, reason, recorded_by)
		VALUES ($1,$2,$3,$4)`,
		d.ID, d.NewbornID, d.Reason, d.RecordedBy)
	return err
}

func (r *repoPG) ListDeathRecords(ctx context.Context, newbornID uuid.UUID) ([]*DeathRecord, error) {
	rows, err := r.conn(ctx).Query(ctx, `
		SELECT id, newborn_id, reason, recorded_by, recorded_at
		FROM newborn_death_record WHERE newborn_id = $1
		ORDER BY recorded_at DESC`, newbornID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var items []*DeathRecord
	for rows.Next() {
		var d DeathRecord
		if err := rows.Scan(&d.ID, &d.NewbornID, &d.Reason, &d.RecordedBy, &d.RecordedAt); err != nil {
			return nil, err
		}
		items = append(items, &d)
	}
	return items, nil
}
