package mother

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

const motherCols = `id, rut, full_name, birth_date, comuna_id, facility_id,
	migrant, indigenous, disability, active, created_at, updated_at`

func scanMother(row pgx.Row) (*Mother, error) {
	var m Mother
	err := row.Scan(&m.ID, &m.RUT, &m.FullName, &m.BirthDate, &m.ComunaID, &m.FacilityID,
		&m.Migrant, &m.Indigenous, &m.Disability, &m.Active, &m.CreatedAt, &m.UpdatedAt)
	return &m, err
}

func (r *repoPG) Create(ctx context.Context, m *Mother) error {
	if m.ID == uuid.Nil {
		m.ID = uuid.New()
	}
	_, err := r.conn(ctx).Exec(ctx, `
		INSERT INTO mother (id, rut, full_name, birth_date, comuna_id, facility_id,
			migrant, indigenous, disability, active)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10)`,
		m.ID, m.RUT, m.FullName, m.BirthDate, m.ComunaID, m.FacilityID,
		m.Migrant, m.Indigenous, m.Disability, m.Active)
	return err
}

func (r *repoPG) GetByID(ctx context.Context, id uuid.UUID) (*Mother, error) {
	return scanMother(r.conn(ctx).QueryRow(ctx,
		`SELECT `+motherCols+` FROM mother WHERE id = $1`, id))
}

func (r *repoPG) GetByRUT(ctx context.Context, rut string) (*Mother, error) {
	return scanMother(r.conn(ctx).QueryRow(ctx,
		`SELECT `+motherCols+` FROM mother WHERE rut = $1`, rut))
}

func (r *repoPG) Update(ctx context.Context, m *Mother) error {
	_, err := r.conn(ctx).Exec(ctx, `
		UPDATE mother
		SET full_name = $2, birth_date = $3, comuna_id = $4, facility_id = $5,
			migrant = $6, indigenous = $7, disability = $8, active = $9,
			updated_at = NOW()
		WHERE id = $1`,
		m.ID, m.FullName, m.BirthDate, m.ComunaID, m.FacilityID,
		m.Migrant, m.Indigenous, m.Disability, m.Active)
	return err
}

func (r *repoPG) List(ctx context.Context, f Filter, limit, offset int) ([]*Mother, int, error) {
	where := []string{}
	args := []interface{}{}
	idx := 1

	if !f.IncludeInactive {
		where = append(where, "active")
	}
	if f.RUT != "" {
		where = append(where, fmt.Sprintf("rut ILIKE $%d", idx))
		args = append(args, "%"+f.RUT+"%")
		idx++
	}
	if f.Name != "" {
		where = append(where, fmt.Sprintf("full_name ILIKE $%d", idx))
		args = append(args, "%"+f.Name+"%")
		idx++
	}
	if f.ComunaID != nil {
		where = append(where, fmt.Sprintf("comuna_id = $%d", idx))
		args = append(args, *f.ComunaID)
		idx++
	}

	whereClause := ""
	if len(where) > 0 {
		whereClause = "WHERE " + strings.Join(where, " AND ")
	}

	var total int
	countQ := fmt.Sprintf("SELECT COUNT(*) FROM mother %s", whereClause)
	if err := r.conn(ctx).QueryRow(ctx, countQ, args...).Scan(&total); err != nil {
		return nil, 0, err
	}

	q := fmt.Sprintf("SELECT %s FROM mother %s ORDER BY full_name LIMIT $%d OFFSET $%d",
		motherCols, whereClause, idx, idx+1)
	args = append(args, limit, offset)

	rows, err := r.conn(ctx).Query(ctx, q, args...)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()

	var items []*Mother
	for rows.Next() {
		m, err := scanMother(rows)
		if err != nil {
			return nil, 0, err
		}
		items = append(items, m)
	}
	return items, total, nil
}

func (r *repoPG) UpsertScreening(ctx context.Context, s *Screening) error {
	_, err := r.conn(ctx).Exec(ctx, `
		INSERT INTO maternal_screening (mother_id, vdrl_result, vdrl_treated,
			hiv_result, hepb_result, hepb_prophylaxis_done, chagas_result)
		VALUES ($1,$2,$3,$4,$5,$6,$7)
		ON CONFLICT (mother_id) DO UPDATE SET
			vdrl_result = EXCLUDED.vdrl_result,
			vdrl_treated = EXCLUDED.vdrl_treated,
			hiv_result = EXCLUDED.hiv_result,
			hepb_result = EXCLUDED.hepb_result,
			hepb_prophylaxis_done = EXCLUDED.hepb_prophylaxis_done,
			chagas_result = EXCLUDED.chagas_result,
			updated_at = NOW()`,
		s.MotherID, s.VDRLResult, s.VDRLTreated,
		s.HIVResult, s.HepBResult, s.HepBProphylaxis, s.ChagasResult)
	return err
}

func (r *repoPG) GetScreening(ctx context.Context, motherID uuid.UUID) (*Screening, error) {
	var s Screening
	err := r.conn(ctx).QueryRow(ctx, `
		SELECT mother_id, vdrl_result, vdrl_treated, hiv_result, hepb_result,
			hepb_prophylaxis_done, chagas_result, updated_at
		FROM maternal_screening WHERE mother_id = $1`, motherID).
		Scan(&s.MotherID, &s.VDRLResult, &s.VDRLTreated, &s.HIVResult, &s.HepBResult,
			&s.HepBProphylaxis, &s.ChagasResult, &s.UpdatedAt)
	return &s, err
}

func (r *repoPG) AddObservation(ctx context.Context, o *Observation) error {
	if o.ID == uuid.Nil {
		o.ID = uuid.New()
	}
	_, err := r.conn(ctx).Exec(ctx, `
		INSERT INTO mother_observation (id, mother_id, author_id, author_name, text, signed)
		VALUES ($1,$2,$3,$4,$5,$6)`,
		o.ID, o.MotherID, o.AuthorID, o.AuthorName, o.Text, o.Signed)
	return err
}

func (r *repoPG) ListObservations(ctx context.Context, motherID uuid.UUID) ([]*Observation, error) {
	rows, err := r.conn(ctx).Query(ctx, `
		SELECT id, mother_id, author_id, author_name, text, signed, recorded_at
		FROM mother_observation WHERE mother_id = $1
		ORDER BY recorded_at DESC`, motherID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var items []*Observation
	for rows.Next() {
		var o Observation
		if err := rows.Scan(&o.ID, &o.MotherID, &o.AuthorID, &o.AuthorName,
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
		INSERT INTO mother_death_record (id, mother_id, reason, recorded_by)
		VALUES ($1,$2,$3,$4)`,
		d.ID, d.MotherID, d.Reason, d.RecordedBy)
	return err
}

func (r *repoPG) ListDeathRecords(ctx context.Context, motherID uuid.UUID) ([]*DeathRecord, error) {
	rows, err := r.conn(ctx).Query(ctx, `
		SELECT id, mother_id, reason, recorded_by, recorded_at
		FROM mother_death_record WHERE mother_id = $1
		ORDER BY recorded_at DESC`, motherID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var items []*DeathRecord
	for rows.Next() {
		var d DeathRecord
		if err := rows.Scan(&d.ID, &d.MotherID, &d.Reason, &d.RecordedBy, &d.RecordedAt); err != nil {
			return nil, err
		}
		items = append(items, &d)
	}
	return items, nil
}
