package periods

import (
	"context"
	"errors"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/meridian-erp/meridian-erp/internal/ledger"
)

type Repository interface {
	FindOpenByDate(ctx context.Context, orgID int64, date time.Time) (Period, error)
	LastEndedOpen(ctx context.Context, orgID int64, before time.Time) (Period, error)
	FiscalYearByDate(ctx context.Context, orgID int64, date time.Time) (FiscalYear, error)
}

type repository struct {
	db *pgxpool.Pool
}

func NewRepository(db *pgxpool.Pool) Repository {
	return &repository{db: db}
}

const periodColumns = `id, org_id, fiscal_year_id, code, start_date, end_date, status, created_at, updated_at`

func scanPeriod(row pgx.Row) (Period, error) {
	var p Period
	err := row.Scan(&p.ID, &p.OrgID, &p.FiscalYearID, &p.Code, &p.StartDate, &p.EndDate, &p.Status, &p.CreatedAt, &p.UpdatedAt)
	return p, err
}

// FindOpenByDate returns the open period covering the supplied date.
func (r *repository) FindOpenByDate(ctx context.Context, orgID int64, date time.Time) (Period, error) {
	row := r.db.QueryRow(ctx, `SELECT `+periodColumns+`
FROM accounting_periods WHERE org_id=$1 AND status='OPEN' AND $2 BETWEEN start_date AND end_date ORDER BY start_date LIMIT 1`, orgID, date)
	p, err := scanPeriod(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return Period{}, ledger.E(ledger.KindPeriod, "no open period covers %s", date.Format("2006-01-02"))
		}
		return Period{}, err
	}
	return p, nil
}

// LastEndedOpen returns the most recently ended open period before the
// supplied instant. Used to keep month-end closing usable after rollover.
func (r *repository) LastEndedOpen(ctx context.Context, orgID int64, before time.Time) (Period, error) {
	row := r.db.QueryRow(ctx, `SELECT `+periodColumns+`
FROM accounting_periods WHERE org_id=$1 AND status='OPEN' AND end_date < $2 ORDER BY end_date DESC LIMIT 1`, orgID, before)
	p, err := scanPeriod(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return Period{}, ledger.E(ledger.KindPeriod, "no open period for organization %d", orgID)
		}
		return Period{}, err
	}
	return p, nil
}

func (r *repository) FiscalYearByDate(ctx context.Context, orgID int64, date time.Time) (FiscalYear, error) {
	var fy FiscalYear
	err := r.db.QueryRow(ctx, `SELECT id, org_id, code, start_date, end_date, created_at, updated_at
FROM fiscal_years WHERE org_id=$1 AND $2 BETWEEN start_date AND end_date LIMIT 1`, orgID, date).
		Scan(&fy.ID, &fy.OrgID, &fy.Code, &fy.StartDate, &fy.EndDate, &fy.CreatedAt, &fy.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return FiscalYear{}, ledger.E(ledger.KindPeriod, "no fiscal year covers %s", date.Format("2006-01-02"))
		}
		return FiscalYear{}, err
	}
	return fy, nil
}
