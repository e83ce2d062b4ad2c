package gl

import (
	"context"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shopspring/decimal"
)

// Repository reads projected GL rows; inserts run inside the voucher
// transaction via InsertRowsTx.
type Repository struct {
	db *pgxpool.Pool
}

func NewRepository(db *pgxpool.Pool) *Repository {
	return &Repository{db: db}
}

// InsertRowsTx appends rows within the supplied transaction.
func InsertRowsTx(ctx context.Context, tx pgx.Tx, rows []Row) error {
	for _, r := range rows {
		if _, err := tx.Exec(ctx, `INSERT INTO gl_rows (org_id, journal_id, journal_line_id, account_id, period_id, date,
currency, exchange_rate, debit, credit, base_debit, base_credit, department_id, project_id, cost_center_id,
source_module, source_reference, created_at)
VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,$13,$14,$15,$16,$17,$18)`,
			r.OrgID, r.JournalID, r.JournalLineID, r.AccountID, r.PeriodID, r.Date,
			r.Currency, r.ExchangeRate, r.Debit, r.Credit, r.BaseDebit, r.BaseCredit,
			r.DepartmentID, r.ProjectID, r.CostCenterID, r.SourceModule, r.SourceReference, r.CreatedAt); err != nil {
			return err
		}
	}
	return nil
}

// ListByJournal returns the rows projected from one journal.
func (r *Repository) ListByJournal(ctx context.Context, orgID, journalID int64) ([]Row, error) {
	rows, err := r.db.Query(ctx, `SELECT id, org_id, journal_id, journal_line_id, account_id, period_id, date,
currency, exchange_rate, debit, credit, base_debit, base_credit, department_id, project_id, cost_center_id,
source_module, source_reference, created_at
FROM gl_rows WHERE org_id=$1 AND journal_id=$2 ORDER BY journal_line_id`, orgID, journalID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []Row
	for rows.Next() {
		var row Row
		if err := rows.Scan(&row.ID, &row.OrgID, &row.JournalID, &row.JournalLineID, &row.AccountID, &row.PeriodID, &row.Date,
			&row.Currency, &row.ExchangeRate, &row.Debit, &row.Credit, &row.BaseDebit, &row.BaseCredit,
			&row.DepartmentID, &row.ProjectID, &row.CostCenterID, &row.SourceModule, &row.SourceReference, &row.CreatedAt); err != nil {
			return nil, err
		}
		out = append(out, row)
	}
	return out, rows.Err()
}

// ImbalancedJournal summarises a balance-invariant violation.
type ImbalancedJournal struct {
	JournalID int64
	OrgID     int64
	Debit     decimal.Decimal
	Credit    decimal.Decimal
}

// FindImbalanced scans posted journals whose projected debit and credit
// totals diverge. Used by the integrity job; an empty result is normal.
func (r *Repository) FindImbalanced(ctx context.Context) ([]ImbalancedJournal, error) {
	rows, err := r.db.Query(ctx, `SELECT journal_id, org_id, SUM(base_debit), SUM(base_credit)
FROM gl_rows GROUP BY journal_id, org_id HAVING SUM(base_debit) <> SUM(base_credit)`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []ImbalancedJournal
	for rows.Next() {
		var ij ImbalancedJournal
		if err := rows.Scan(&ij.JournalID, &ij.OrgID, &ij.Debit, &ij.Credit); err != nil {
			return nil, err
		}
		out = append(out, ij)
	}
	return out, rows.Err()
}
