package birth

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

const birthCols = `id, mother_id, date, time, delivery_type_id, gestational_age_weeks,
	facility_id, companion_labor, companion_expulsive, skin_to_skin_mother,
	skin_to_skin_companion, twins, active, created_at, updated_at`

func scanBirth(row pgx.Row) (*Birth, error) {
	var b Birth
	err := row.Scan(&b.ID, &b.MotherID, &b.Date, &b.Time, &b.DeliveryTypeID, &b.GestationalAgeWeeks,
		&b.FacilityID, &b.CompanionLabor, &b.CompanionExpulsive, &b.SkinToSkinMother,
		&b.SkinToSkinCompanion, &b.Twins, &b.Active, &b.CreatedAt, &b.UpdatedAt)
	return &b, err
}

func (r *repoPG) Create(ctx context.Context, b *Birth) error {
	if b.ID == uuid.Nil {
		b.ID = uuid.New()
	}
	_, err := r.conn(ctx).Exec(ctx, `
		INSERT INTO birth (id, mother_id, date, time, delivery_type_id, gestational_age_weeks,
			facility_id, companion_labor, companion_expulsive, skin_to_skin_mother,
			skin_to_skin_companion, twins, active)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,$13)`,
		b.ID, b.MotherID, b.Date, b.Time, b.DeliveryTypeID, b.GestationalAgeWeeks,
		b.FacilityID, b.CompanionLabor, b.CompanionExpulsive, b.SkinToSkinMother,
		b.SkinToSkinCompanion, b.Twins, b.Active)
	return err
}

func (r *repoPG) GetByID(ctx context.Context, id uuid.UUID) (*Birth, error) {
	return scanBirth(r.conn(ctx).QueryRow(ctx,
		`SELECT `+birthCols+` FROM birth WHERE id = $1`, id))
}

func (r *repoPG) Update(ctx context.Context, b *Birth) error {
	_, err := r.conn(ctx).Exec(ctx, `
		UPDATE birth
		SET date = $2, time = $3, delivery_type_id = $4, gestational_age_weeks = $5,
			facility_id = $6, companion_labor = $7, companion_expulsive = $8,
			skin_to_skin_mother = $9, skin_to_skin_companion = $10, twins = $11,
			active = $12, updated_at = NOW()
		WHERE id = $1`,
		b.ID, b.Date, b.Time, b.DeliveryTypeID, b.GestationalAgeWeeks,
		b.FacilityID, b.CompanionLabor, b.CompanionExpulsive,
		b.SkinToSkinMother, b.SkinToSkinCompanion, b.Twins, b.Active)
	return err
}

func (r *repoPG) List(ctx context.Context, f Filter, limit, offset int) ([]*Birth, int, error) {
	where := []string{}
	args := []interface{}{}
	idx := 1

	if !f.IncludeInactive {
		where = append(where, "active")
	}
	if f.MotherID != nil {
		where = append(where, fmt.Sprintf("mother_id = $%d", idx))
		args = append(args, *f.MotherID)
		idx++
	}
	if f.From != nil {
		where = append(where, fmt.Sprintf("date >= $%d", idx))
		args = append(args, *f.From)
		idx++
	}
	if f.To != nil {
		where = append(where, fmt.Sprintf("date <= $%d", idx))
		args = append(args, *f.To)
		idx++
	}

	whereClause := ""
	if len(where) > 0 {
		whereClause = "WHERE " + strings.Join(where, " AND ")
	}

	var total int
	countQ := fmt.Sprintf("SELECT COUNT(*) FROM birth %s", whereClause)
	if err := r.conn(ctx).QueryRow(ctx, countQ, args...).Scan(&total); err != nil {
		return nil, 0, err
	}

	q := fmt.Sprintf("SELECT %s FROM birth %s ORDER BY date DESC, time DESC LIMIT $%d OFFSET $%d",
		birthCols, whereClause, idx, idx+1)
	args = append(args, limit, offset)

	rows, err := r.conn(ctx).Query(ctx, q, args...)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()

	var items []*Birth
	for rows.Next() {
		b, err := scanBirth(rows)
		if err != nil {
			return nil, 0, err
		}
		items = append(items, b)
	}
	return items, total, nil
}

func (r *repoPG) ActiveBirthIDs(ctx context.Context, motherID uuid.UUID) ([]uuid.UUID, error) {
	rows, err := r.conn(ctx).Query(ctx,
		`SELECT id FROM birth WHERE mother_id = $1 AND active`, motherID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var ids []uuid.UUID
	for rows.Next() {
		var id uuid.UUID
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		ids = append(ids, id)
	}
	return ids, nil
}

func (r *repoPG) UpsertAttention(ctx context.Context, a *AttentionModel) error {
	_, err := r.conn(ctx).Exec(ctx, `
		INSERT INTO attention_model (birth_id, freedom_of_movement, liberal_fluids,
			pain_management, expulsive_position)
		VALUES ($1,$2,$3,$4,$5)
		ON CONFLICT (birth_id) DO UPDATE SET
			freedom_of_movement = EXCLUDED.freedom_of_movement,
			liberal_fluids = EXCLUDED.liberal_fluids,
			pain_management = EXCLUDED.pain_management,
			expulsive_position = EXCLUDED.expulsive_position,
			updated_at = NOW()`,
		a.BirthID, a.FreedomOfMovement, a.LiberalFluids, a.PainManagement, a.ExpulsivePosition)
	return err
}

func (r *repoPG) GetAttention(ctx context.Context, birthID uuid.UUID) (*AttentionModel, error) {
	var a AttentionModel
	err := r.conn(ctx).QueryRow(ctx, `
		SELECT birth_id, freedom_of_movement, liberal_fluids, pain_management,
			expulsive_position, updated_at
		FROM attention_model WHERE birth_id = $1`, birthID).
		Scan(&a.BirthID, &a.FreedomOfMovement, &a.LiberalFluids, &a.PainManagement,
			&a.ExpulsivePosition, &a.UpdatedAt)
	return &a, err
}

func (r *repoPG) UpsertRobson(ctx context.Context, rb *Robson) error {
	_, err := r.conn(ctx).Exec(ctx, `
		INSERT INTO robson_classification (birth_id, robson_group, elective_cesarean, emergency_cesarean)
		VALUES ($1,$2,$3,$4)
		ON CONFLICT (birth_id) DO UPDATE SET
			robson_group = EXCLUDED.robson_group,
			elective_cesarean = EXCLUDED.elective_cesarean,
			emergency_cesarean = EXCLUDED.emergency_cesarean,
			updated_at = NOW()`,
		rb.BirthID, rb.Group, rb.ElectiveCesarean, rb.EmergencyCesarean)
	return err
}

func (r *repoPG) GetRobson(ctx context.Context, birthID uuid.UUID) (*Robson, error) {
	var rb Robson
	err := r.conn(ctx).QueryRow(ctx, `
		SELECT birth_id, robson_group, elective_cesarean, emergency_cesarean, updated_at
		FROM robson_classification WHERE birth_id = $1`, birthID).
		Scan(&rb.BirthID, &rb.Group, &rb.ElectiveCesarean, &rb.EmergencyCesarean, &rb.UpdatedAt)
	return &rb, err
}

func (r *repoPG) AddObservation(ctx context.Context, o *Observation) error {
	if o.ID == uuid.Nil {
		o.ID = uuid.New()
	}
	_, err := r.conn(ctx).Exec(ctx, `
		INSERT INTO birth_observation (id, birth_id, author_id, author_name, text, signed)
		VALUES ($1,$2,$3,$4,$5,$6)`,
		o.ID, o.BirthID, o.AuthorID, o.AuthorName, o.Text, o.Signed)
	return err
}

func (r *repoPG) ListObservations(ctx context.Context, birthID uuid.UUID) ([]*Observation, error) {
	rows, err := r.conn(ctx).Query(ctx, `
		SELECT id, birth_id, author_id, author_name, text, signed, recorded_at
		FROM birth_observation WHERE birth_id = $1
		ORDER BY recorded_at DESC`, birthID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var items []*Observation
	for rows.Next() {
		var o Observation
		if err := rows.Scan(&o.ID, &o.BirthID, &o.AuthorID, &o.AuthorName,
			&o.Text, &o.Signed, &o.RecordedAt); err != nil {
			return nil, err
		}
		items = append(items, &o)
	}
	return items, nil
}
