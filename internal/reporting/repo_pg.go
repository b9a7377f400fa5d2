package reporting

import (
	"context"

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

const screeningPositive = "POSITIVO"

// periodBirths narrows to active births inside the period. Every aggregate
// hangs off this subquery so the sections of one report agree with each other.
const periodBirths = `
	SELECT id, mother_id, date, delivery_type_id,
	       companion_labor, companion_expulsive
	FROM birth
	WHERE active AND date >= $1 AND date < $2`

func (r *repoPG) ScreeningPositives(ctx context.Context, p Period) (REMA11, error) {
	var out REMA11
	err := r.conn(ctx).QueryRow(ctx, `
		WITH pb AS (`+periodBirths+`)
		SELECT
			COUNT(*) FILTER (WHERE s.hiv_result = $3),
			COUNT(*) FILTER (WHERE s.vdrl_result = $3),
			COUNT(*) FILTER (WHERE s.vdrl_result = $3 AND s.vdrl_treated),
			COUNT(*) FILTER (WHERE s.hepb_result = $3)
		FROM maternal_screening s
		WHERE s.mother_id IN (SELECT DISTINCT mother_id FROM pb)`,
		p.From, p.To, screeningPositive).
		Scan(&out.HIVPositive, &out.VDRLPositive, &out.VDRLPositiveTreated, &out.HepBPositive)
	return out, err
}

func (r *repoPG) BirthTotals(ctx context.Context, p Period) (int, int, error) {
	var total, companion int
	err := r.conn(ctx).QueryRow(ctx, `
		WITH pb AS (`+periodBirths+`)
		SELECT COUNT(*),
		       COUNT(*) FILTER (WHERE companion_labor OR companion_expulsive)
		FROM pb`,
		p.From, p.To).Scan(&total, &companion)
	return total, companion, err
}

func (r *repoPG) BirthsByDeliveryType(ctx context.Context, p Period) ([]CountByLabel, error) {
	return r.countGroups(ctx, `
		WITH pb AS (`+periodBirths+`)
		SELECT ci.value, COUNT(*)
		FROM pb JOIN catalog_item ci ON ci.id = pb.delivery_type_id
		GROUP BY ci.value
		ORDER BY ci.value`, p)
}

func (r *repoPG) BirthsByRobsonGroup(ctx context.Context, p Period) ([]CountByLabel, error) {
	return r.countGroups(ctx, `
		WITH pb AS (`+periodBirths+`)
		SELECT rc.robson_group, COUNT(*)
		FROM pb JOIN robson_classification rc ON rc.birth_id = pb.id
		GROUP BY rc.robson_group
		ORDER BY LENGTH(rc.robson_group), rc.robson_group`, p)
}

func (r *repoPG) countGroups(ctx context.Context, q string, p Period) ([]CountByLabel, error) {
	rows, err := r.conn(ctx).Query(ctx, q, p.From, p.To)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []CountByLabel
	for rows.Next() {
		var c CountByLabel
		if err := rows.Scan(&c.Label, &c.Count); err != nil {
			return nil, err
		}
		out = append(out, c)
	}
	return out, rows.Err()
}

func (r *repoPG) NewbornTotals(ctx context.Context, p Period) (REMA24, error) {
	var out REMA24
	err := r.conn(ctx).QueryRow(ctx, `
		WITH pb AS (`+periodBirths+`)
		SELECT
			COUNT(*),
			COUNT(*) FILTER (WHERE n.breastfed_within_60min),
			COUNT(*) FILTER (WHERE n.weight_grams < 2500),
			COUNT(*) FILTER (WHERE n.apgar5 < 7),
			COUNT(*) FILTER (WHERE n.basic_resuscitation OR n.advanced_resuscitation)
		FROM newborn n
		WHERE n.active AND n.birth_id IN (SELECT id FROM pb)`,
		p.From, p.To).
		Scan(&out.TotalNewborns, &out.BreastfedWithin60, &out.LowWeight,
			&out.LowApgar5, &out.Resuscitated)
	return out, err
}

func (r *repoPG) ProphylaxisCount(ctx context.Context, p Period, code string) (int, error) {
	var n int
	err := r.conn(ctx).QueryRow(ctx, `
		WITH pb AS (`+periodBirths+`)
		SELECT COUNT(*)
		FROM newborn_prophylaxis np
		JOIN newborn n ON n.id = np.newborn_id
		JOIN catalog_item ci ON ci.id = np.kind_id
		WHERE n.active AND n.birth_id IN (SELECT id FROM pb)
		  AND ci.value LIKE $3 || '%'`,
		p.From, p.To, code).Scan(&n)
	return n, err
}

func (r *repoPG) VerticalDeliveries(ctx context.Context, p Period) (int, error) {
	var n int
	err := r.conn(ctx).QueryRow(ctx, `
		WITH pb AS (`+periodBirths+`)
		SELECT COUNT(*)
		FROM attention_model a
		WHERE a.birth_id IN (SELECT id FROM pb)
		  AND LOWER(a.expulsive_position) = 'vertical'`,
		p.From, p.To).Scan(&n)
	return n, err
}

func (r *repoPG) CesareanCounts(ctx context.Context, p Period) (int, int, error) {
	var elective, emergency int
	err := r.conn(ctx).QueryRow(ctx, `
		WITH pb AS (`+periodBirths+`)
		SELECT
			COUNT(*) FILTER (WHERE rc.elective_cesarean),
			COUNT(*) FILTER (WHERE rc.emergency_cesarean)
		FROM robson_classification rc
		WHERE rc.birth_id IN (SELECT id FROM pb)`,
		p.From, p.To).Scan(&elective, &emergency)
	return elective, emergency, err
}

func (r *repoPG) BirthsPerMonth(ctx context.Context, p Period) (map[int]int, error) {
	rows, err := r.conn(ctx).Query(ctx, `
		WITH pb AS (`+periodBirths+`)
		SELECT EXTRACT(MONTH FROM date)::int, COUNT(*)
		FROM pb
		GROUP BY 1`,
		p.From, p.To)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := make(map[int]int)
	for rows.Next() {
		var month, count int
		if err := rows.Scan(&month, &count); err != nil {
			return nil, err
		}
		out[month] = count
	}
	return out, rows.Err()
}

func (r *repoPG) MaternalAgeBands(ctx context.Context, p Period) (AgeBands, error) {
	var out AgeBands
	err := r.conn(ctx).QueryRow(ctx, `
		WITH pb AS (`+periodBirths+`),
		ages AS (
			SELECT EXTRACT(YEAR FROM pb.date)::int -
			       EXTRACT(YEAR FROM m.birth_date)::int AS age
			FROM pb JOIN mother m ON m.id = pb.mother_id
		)
		SELECT
			COUNT(*) FILTER (WHERE age < 15),
			COUNT(*) FILTER (WHERE age BETWEEN 15 AND 19),
			COUNT(*) FILTER (WHERE age BETWEEN 20 AND 34),
			COUNT(*) FILTER (WHERE age >= 35)
		FROM ages`,
		p.From, p.To).
		Scan(&out.Under15, &out.From15To19, &out.From20To34, &out.Over35)
	return out, err
}

func (r *repoPG) QualityCounts(ctx context.Context) (QualityCounts, error) {
	var out QualityCounts
	err := r.conn(ctx).QueryRow(ctx, `
		SELECT
			(SELECT COUNT(*) FROM mother m
			 WHERE m.active AND NOT EXISTS
			   (SELECT 1 FROM birth b WHERE b.mother_id = m.id)),
			(SELECT COUNT(*) FROM birth b
			 WHERE b.active AND NOT EXISTS
			   (SELECT 1 FROM newborn n WHERE n.birth_id = b.id)),
			(SELECT COUNT(*) FROM maternal_screening s
			 WHERE s.vdrl_result = $1 AND NOT s.vdrl_treated),
			(SELECT COUNT(*) FROM newborn n
			 WHERE n.apgar1 NOT BETWEEN 0 AND 10
			    OR n.apgar5 NOT BETWEEN 0 AND 10)`,
		screeningPositive).
		Scan(&out.MothersWithoutBirths, &out.BirthsWithoutNewborn,
			&out.VDRLUntreated, &out.ApgarOutOfRange)
	return out, err
}
