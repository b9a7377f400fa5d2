package reporting

import (
	"context"
	"time"
)

// Period is a half-open date range [From, To) over birth dates. Screening
// aggregates follow the original reporting rule: they cover the mothers who
// gave birth inside the period, not the screening dates themselves.
type Period struct {
	From time.Time
	To   time.Time
}

// MonthPeriod covers one calendar month.
func MonthPeriod(year, month int) Period {
	from := time.Date(year, time.Month(month), 1, 0, 0, 0, 0, time.UTC)
	return Period{From: from, To: from.AddDate(0, 1, 0)}
}

// QuarterPeriod covers one calendar quarter (1..4).
func QuarterPeriod(year, quarter int) Period {
	from := time.Date(year, time.Month((quarter-1)*3+1), 1, 0, 0, 0, 0, time.UTC)
	return Period{From: from, To: from.AddDate(0, 3, 0)}
}

// QualityCounts are the raw tallies behind the consistency-check battery.
type QualityCounts struct {
	MothersWithoutBirths int
	BirthsWithoutNewborn int
	VDRLUntreated        int
	ApgarOutOfRange      int
}

// Repository exposes the read-only aggregates the reports are built from.
// Every method only considers active rows.
type Repository interface {
	ScreeningPositives(ctx context.Context, p Period) (REMA11, error)
	BirthTotals(ctx context.Context, p Period) (total, withCompanion int, err error)
	BirthsByDeliveryType(ctx context.Context, p Period) ([]CountByLabel, error)
	BirthsByRobsonGroup(ctx context.Context, p Period) ([]CountByLabel, error)
	NewbornTotals(ctx context.Context, p Period) (REMA24, error)
	ProphylaxisCount(ctx context.Context, p Period, code string) (int, error)
	VerticalDeliveries(ctx context.Context, p Period) (int, error)
	CesareanCounts(ctx context.Context, p Period) (elective, emergency int, err error)
	BirthsPerMonth(ctx context.Context, p Period) (map[int]int, error)
	MaternalAgeBands(ctx context.Context, p Period) (AgeBands, error)
	QualityCounts(ctx context.Context) (QualityCounts, error)
}
