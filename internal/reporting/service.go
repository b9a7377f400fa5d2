package reporting

import (
	"context"
	"errors"
	"fmt"
	"math"
)

var ErrBadPeriod = errors.New("periodo inválido")

var monthLabels = [13]string{"", "Ene", "Feb", "Mar", "Abr", "May", "Jun",
	"Jul", "Ago", "Sep", "Oct", "Nov", "Dic"}

type Service struct {
	repo Repository
}

func NewService(repo Repository) *Service {
	return &Service{repo: repo}
}

// REM builds the consolidated monthly report. Everything is recomputed from
// the live tables on each call, so two calls over unchanged data return the
// same report.
func (s *Service) REM(ctx context.Context, year, month int) (*REMReport, error) {
	if year < 1900 || month < 1 || month > 12 {
		return nil, ErrBadPeriod
	}
	p := MonthPeriod(year, month)

	rep := &REMReport{
		Period: fmt.Sprintf("%02d-%d", month, year),
		Year:   year,
		Month:  month,
	}

	var err error
	if rep.A11, err = s.repo.ScreeningPositives(ctx, p); err != nil {
		return nil, fmt.Errorf("screening aggregates: %w", err)
	}
	if rep.A21.TotalBirths, rep.A21.WithCompanion, err = s.repo.BirthTotals(ctx, p); err != nil {
		return nil, fmt.Errorf("birth totals: %w", err)
	}
	if rep.A21.ByDeliveryType, err = s.repo.BirthsByDeliveryType(ctx, p); err != nil {
		return nil, fmt.Errorf("delivery type breakdown: %w", err)
	}
	groups, err := s.repo.BirthsByRobsonGroup(ctx, p)
	if err != nil {
		return nil, fmt.Errorf("robson breakdown: %w", err)
	}
	for _, g := range groups {
		rep.A21.ByRobsonGroup = append(rep.A21.ByRobsonGroup,
			CountByLabel{Label: "Grupo " + g.Label, Count: g.Count})
	}

	if rep.A24, err = s.repo.NewbornTotals(ctx, p); err != nil {
		return nil, fmt.Errorf("newborn totals: %w", err)
	}
	if rep.A24.VitaminK, err = s.repo.ProphylaxisCount(ctx, p, ProphylaxisVitaminK); err != nil {
		return nil, fmt.Errorf("vitamin k count: %w", err)
	}
	if rep.A24.OcularProphylaxis, err = s.repo.ProphylaxisCount(ctx, p, ProphylaxisOcular); err != nil {
		return nil, fmt.Errorf("ocular prophylaxis count: %w", err)
	}

	if rep.Indicators.VerticalDeliveries, err = s.repo.VerticalDeliveries(ctx, p); err != nil {
		return nil, fmt.Errorf("vertical deliveries: %w", err)
	}
	if rep.Indicators.ElectiveCesareans, rep.Indicators.EmergencyCesareans, err = s.repo.CesareanCounts(ctx, p); err != nil {
		return nil, fmt.Errorf("cesarean counts: %w", err)
	}
	return rep, nil
}

// HealthService builds the quarterly summary for the regional health service.
func (s *Service) HealthService(ctx context.Context, year, quarter int) (*QuarterlyReport, error) {
	if year < 1900 || quarter < 1 || quarter > 4 {
		return nil, ErrBadPeriod
	}
	p := QuarterPeriod(year, quarter)

	rep := &QuarterlyReport{
		Period:  fmt.Sprintf("Trimestre %d - %d", quarter, year),
		Year:    year,
		Quarter: quarter,
	}

	var err error
	if rep.TotalBirths, _, err = s.repo.BirthTotals(ctx, p); err != nil {
		return nil, fmt.Errorf("birth totals: %w", err)
	}

	totals, err := s.repo.NewbornTotals(ctx, p)
	if err != nil {
		return nil, fmt.Errorf("newborn totals: %w", err)
	}
	hepb, err := s.repo.ProphylaxisCount(ctx, p, ProphylaxisHepB)
	if err != nil {
		return nil, fmt.Errorf("hepb prophylaxis count: %w", err)
	}
	if totals.TotalNewborns > 0 {
		pct := float64(hepb) / float64(totals.TotalNewborns) * 100
		rep.HepBCompliancePct = math.Round(pct*10) / 10
	}

	perMonth, err := s.repo.BirthsPerMonth(ctx, p)
	if err != nil {
		return nil, fmt.Errorf("births per month: %w", err)
	}
	first := (quarter-1)*3 + 1
	for m := first; m < first+3; m++ {
		rep.BirthsPerMonth = append(rep.BirthsPerMonth,
			MonthCount{Month: m, Label: monthLabels[m], Count: perMonth[m]})
	}

	if rep.MaternalAgeBands, err = s.repo.MaternalAgeBands(ctx, p); err != nil {
		return nil, fmt.Errorf("maternal age bands: %w", err)
	}
	return rep, nil
}

// Quality runs the consistency-check battery over the whole dataset. Checks
// that find nothing are left out of the list but the battery is fixed, so the
// same data always yields the same report.
func (s *Service) Quality(ctx context.Context) (*QualityReport, error) {
	counts, err := s.repo.QualityCounts(ctx)
	if err != nil {
		return nil, fmt.Errorf("quality counts: %w", err)
	}

	rep := &QualityReport{Checks: []Check{}}
	add := func(id, format, severity string, count int) {
		if count == 0 {
			return
		}
		rep.Checks = append(rep.Checks, Check{
			ID:          id,
			Description: fmt.Sprintf(format, count),
			Count:       count,
			Severity:    severity,
		})
		switch severity {
		case SeverityWarning:
			rep.TotalWarnings += count
		default:
			rep.TotalErrors += count
		}
	}

	add("M-001", "Encontradas %d madres activas sin parto asociado.",
		SeverityWarning, counts.MothersWithoutBirths)
	add("P-005", "Encontrados %d partos sin recién nacido asociado.",
		SeverityError, counts.BirthsWithoutNewborn)
	add("T-003", "Encontrados %d tamizajes VDRL positivo sin tratamiento.",
		SeverityCritical, counts.VDRLUntreated)
	add("RN-002", "Encontrados %d recién nacidos con Apgar fuera de rango (0-10).",
		SeverityError, counts.ApgarOutOfRange)
	return rep, nil
}
