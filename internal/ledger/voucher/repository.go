package voucher

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/meridian-erp/meridian-erp/internal/ledger"
	"github.com/meridian-erp/meridian-erp/internal/ledger/accounts"
	"github.com/meridian-erp/meridian-erp/internal/ledger/gl"
	"github.com/meridian-erp/meridian-erp/internal/ledger/inventory"
	"github.com/meridian-erp/meridian-erp/internal/ledger/periods"
	"github.com/meridian-erp/meridian-erp/internal/ledger/sequence"
	"github.com/meridian-erp/meridian-erp/internal/platform/db"
)

// Repository encapsulates DB operations for vouchers.
type Repository interface {
	WithTx(ctx context.Context, fn func(context.Context, TxRepository) error) error
	Get(ctx context.Context, orgID, id int64) (Journal, error)
	List(ctx context.Context, orgID int64, limit int) ([]Journal, error)
	// DeleteShell removes a journal out-of-band; used only by the
	// documented post-failure compensation path.
	DeleteShell(ctx context.Context, orgID, id int64) error
}

// TxRepository exposes every operation the orchestrator needs inside
// one transaction. Period, sequence, account and catalog reads live
// here too so the whole submission shares one transactional view.
type TxRepository interface {
	accounts.Lookup
	inventory.Catalog
	sequence.Tx

	GetDocType(ctx context.Context, orgID, id int64) (DocTypeConfig, error)
	FindByIdempotencyKeyForUpdate(ctx context.Context, orgID int64, key string) (Journal, bool, error)
	FindOpenPeriodByDate(ctx context.Context, orgID int64, date time.Time) (periods.Period, error)
	FiscalYearByDate(ctx context.Context, orgID int64, date time.Time) (periods.FiscalYear, error)
	OrgBaseCurrency(ctx context.Context, orgID int64) (string, error)
	NumberExists(ctx context.Context, orgID, docTypeID int64, number string) (bool, error)

	GetJournalWithLines(ctx context.Context, orgID, id int64) (Journal, error)
	InsertJournal(ctx context.Context, j *Journal) error
	UpdateJournal(ctx context.Context, j *Journal) error
	DeleteLines(ctx context.Context, journalID int64) error
	InsertLines(ctx context.Context, journalID int64, lines []Line) ([]Line, error)
	UpdatePendingInventory(ctx context.Context, journalID int64, pending []inventory.PendingTransaction) error
	UpdateStatus(ctx context.Context, journalID int64, status JournalStatus, postedAt *time.Time) error
	InsertGLRows(ctx context.Context, rows []gl.Row) error
}

type repository struct {
	db *pgxpool.Pool
}

func NewRepository(db *pgxpool.Pool) Repository {
	return &repository{db: db}
}

func (r *repository) WithTx(ctx context.Context, fn func(context.Context, TxRepository) error) error {
	tx, err := r.db.BeginTx(ctx, pgx.TxOptions{IsoLevel: pgx.RepeatableRead})
	if err != nil {
		return err
	}
	wrapper := &txRepository{tx: tx, PgTx: sequence.PgTx{Tx: tx}}
	if err := fn(ctx, wrapper); err != nil {
		_ = tx.Rollback(ctx)
		return err
	}
	return tx.Commit(ctx)
}

const journalColumns = `id, org_id, doc_type_id, period_id, number, date, currency, exchange_rate, reference, description,
total_debit, total_credit, status, idempotency_key, source_module, source_ref, pending_inventory, reversal_of_id,
created_by, posted_at, created_at, updated_at`

func scanJournal(row pgx.Row) (Journal, error) {
	var j Journal
	var pending []byte
	err := row.Scan(&j.ID, &j.OrgID, &j.DocTypeID, &j.PeriodID, &j.Number, &j.Date, &j.Currency, &j.ExchangeRate,
		&j.Reference, &j.Description, &j.TotalDebit, &j.TotalCredit, &j.Status, &j.IdempotencyKey,
		&j.SourceModule, &j.SourceRef, &pending, &j.ReversalOfID, &j.CreatedBy, &j.PostedAt, &j.CreatedAt, &j.UpdatedAt)
	if err != nil {
		return Journal{}, err
	}
	if len(pending) > 0 {
		if err := json.Unmarshal(pending, &j.PendingInventory); err != nil {
			return Journal{}, err
		}
	}
	return j, nil
}

func (r *repository) Get(ctx context.Context, orgID, id int64) (Journal, error) {
	j, err := scanJournal(r.db.QueryRow(ctx, `SELECT `+journalColumns+` FROM journals WHERE org_id=$1 AND id=$2`, orgID, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return Journal{}, ledger.E(ledger.KindNotFound, "journal %d not found", id)
		}
		return Journal{}, err
	}
	lines, err := queryLines(ctx, r.db, id)
	if err != nil {
		return Journal{}, err
	}
	j.Lines = lines
	return j, nil
}

func (r *repository) List(ctx context.Context, orgID int64, limit int) ([]Journal, error) {
	if limit <= 0 {
		limit = 50
	}
	rows, err := r.db.Query(ctx, `SELECT `+journalColumns+` FROM journals WHERE org_id=$1 ORDER BY id DESC LIMIT $2`, orgID, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []Journal
	for rows.Next() {
		j, err := scanJournal(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, j)
	}
	return out, rows.Err()
}

// DeleteShell removes a just-committed journal and everything projected
// from it. It runs only on the post-finalization compensation path, so
// the GL rows inserted in the committed transaction go too.
func (r *repository) DeleteShell(ctx context.Context, orgID, id int64) error {
	return db.WithTx(ctx, r.db, func(tx pgx.Tx) error {
		if _, err := tx.Exec(ctx, `DELETE FROM gl_rows WHERE journal_id=$1`, id); err != nil {
			return err
		}
		if _, err := tx.Exec(ctx, `DELETE FROM journal_lines WHERE journal_id=$1`, id); err != nil {
			return err
		}
		_, err := tx.Exec(ctx, `DELETE FROM journals WHERE org_id=$1 AND id=$2`, orgID, id)
		return err
	})
}

type querier interface {
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
}

const lineColumns = `id, journal_id, line_number, account_id, debit, credit, description,
department_id, project_id, cost_center_id, tax_code_id, tax_amount, txn_amount, txn_rate, created_at, updated_at`

func queryLines(ctx context.Context, q querier, journalID int64) ([]Line, error) {
	rows, err := q.Query(ctx, `SELECT `+lineColumns+` FROM journal_lines WHERE journal_id=$1 ORDER BY line_number`, journalID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []Line
	for rows.Next() {
		var l Line
		if err := rows.Scan(&l.ID, &l.JournalID, &l.LineNumber, &l.AccountID, &l.Debit, &l.Credit, &l.Description,
			&l.DepartmentID, &l.ProjectID, &l.CostCenterID, &l.TaxCodeID, &l.TaxAmount, &l.TxnAmount, &l.TxnRate,
			&l.CreatedAt, &l.UpdatedAt); err != nil {
			return nil, err
		}
		out = append(out, l)
	}
	return out, rows.Err()
}

type txRepository struct {
	tx pgx.Tx
	sequence.PgTx
}

func (r *txRepository) GetDocType(ctx context.Context, orgID, id int64) (DocTypeConfig, error) {
	var c DocTypeConfig
	err := r.tx.QueryRow(ctx, `SELECT id, org_id, code, name, sequence_config_id, source_module, entry_mode,
affects_inventory, grir_account_id, cogs_account_id, created_at, updated_at
FROM doc_type_configs WHERE org_id=$1 AND id=$2`, orgID, id).
		Scan(&c.ID, &c.OrgID, &c.Code, &c.Name, &c.SequenceConfigID, &c.SourceModule, &c.EntryMode,
			&c.AffectsInventory, &c.GRIRAccountID, &c.COGSAccountID, &c.CreatedAt, &c.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return DocTypeConfig{}, ledger.E(ledger.KindConfig, "document type %d not found for organization %d", id, orgID)
		}
		return DocTypeConfig{}, err
	}
	return c, nil
}

// FindByIdempotencyKeyForUpdate locks the matching journal row so two
// concurrent retries of the same logical request serialize here.
func (r *txRepository) FindByIdempotencyKeyForUpdate(ctx context.Context, orgID int64, key string) (Journal, bool, error) {
	j, err := scanJournal(r.tx.QueryRow(ctx, `SELECT `+journalColumns+`
FROM journals WHERE org_id=$1 AND idempotency_key=$2 FOR UPDATE`, orgID, key))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return Journal{}, false, nil
		}
		return Journal{}, false, err
	}
	lines, err := queryLines(ctx, r.tx, j.ID)
	if err != nil {
		return Journal{}, false, err
	}
	j.Lines = lines
	return j, true, nil
}

func (r *txRepository) FindOpenPeriodByDate(ctx context.Context, orgID int64, date time.Time) (periods.Period, error) {
	var p periods.Period
	err := r.tx.QueryRow(ctx, `SELECT id, org_id, fiscal_year_id, code, start_date, end_date, status, created_at, updated_at
FROM accounting_periods WHERE org_id=$1 AND status='OPEN' AND $2 BETWEEN start_date AND end_date ORDER BY start_date LIMIT 1`, orgID, date).
		Scan(&p.ID, &p.OrgID, &p.FiscalYearID, &p.Code, &p.StartDate, &p.EndDate, &p.Status, &p.CreatedAt, &p.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return periods.Period{}, ledger.E(ledger.KindPeriod, "no open period covers %s", date.Format("2006-01-02"))
		}
		return periods.Period{}, err
	}
	return p, nil
}

func (r *txRepository) FiscalYearByDate(ctx context.Context, orgID int64, date time.Time) (periods.FiscalYear, error) {
	var fy periods.FiscalYear
	err := r.tx.QueryRow(ctx, `SELECT id, org_id, code, start_date, end_date, created_at, updated_at
FROM fiscal_years WHERE org_id=$1 AND $2 BETWEEN start_date AND end_date LIMIT 1`, orgID, date).
		Scan(&fy.ID, &fy.OrgID, &fy.Code, &fy.StartDate, &fy.EndDate, &fy.CreatedAt, &fy.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return periods.FiscalYear{}, ledger.E(ledger.KindPeriod, "no fiscal year covers %s", date.Format("2006-01-02"))
		}
		return periods.FiscalYear{}, err
	}
	return fy, nil
}

func (r *txRepository) OrgBaseCurrency(ctx context.Context, orgID int64) (string, error) {
	var cur string
	err := r.tx.QueryRow(ctx, `SELECT base_currency FROM organizations WHERE id=$1`, orgID).Scan(&cur)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return "", ledger.E(ledger.KindConfig, "organization %d not found", orgID)
		}
		return "", err
	}
	return cur, nil
}

func (r *txRepository) NumberExists(ctx context.Context, orgID, docTypeID int64, number string) (bool, error) {
	var exists bool
	err := r.tx.QueryRow(ctx, `SELECT EXISTS(SELECT 1 FROM journals WHERE org_id=$1 AND doc_type_id=$2 AND number=$3)`,
		orgID, docTypeID, number).Scan(&exists)
	return exists, err
}

func (r *txRepository) GetJournalWithLines(ctx context.Context, orgID, id int64) (Journal, error) {
	j, err := scanJournal(r.tx.QueryRow(ctx, `SELECT `+journalColumns+` FROM journals WHERE org_id=$1 AND id=$2 FOR UPDATE`, orgID, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return Journal{}, ledger.E(ledger.KindNotFound, "journal %d not found", id)
		}
		return Journal{}, err
	}
	lines, err := queryLines(ctx, r.tx, id)
	if err != nil {
		return Journal{}, err
	}
	j.Lines = lines
	return j, nil
}

func (r *txRepository) InsertJournal(ctx context.Context, j *Journal) error {
	pending, err := json.Marshal(j.PendingInventory)
	if err != nil {
		return err
	}
	row := r.tx.QueryRow(ctx, `INSERT INTO journals (org_id, doc_type_id, period_id, number, date, currency, exchange_rate,
reference, description, total_debit, total_credit, status, idempotency_key, source_module, source_ref,
pending_inventory, reversal_of_id, created_by, posted_at)
VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,$13,$14,$15,$16,$17,$18,$19)
RETURNING id, created_at, updated_at`,
		j.OrgID, j.DocTypeID, j.PeriodID, j.Number, j.Date, j.Currency, j.ExchangeRate,
		j.Reference, j.Description, j.TotalDebit, j.TotalCredit, j.Status, j.IdempotencyKey,
		j.SourceModule, j.SourceRef, pending, j.ReversalOfID, j.CreatedBy, j.PostedAt)
	return row.Scan(&j.ID, &j.CreatedAt, &j.UpdatedAt)
}

func (r *txRepository) UpdateJournal(ctx context.Context, j *Journal) error {
	pending, err := json.Marshal(j.PendingInventory)
	if err != nil {
		return err
	}
	cmd, err := r.tx.Exec(ctx, `UPDATE journals SET period_id=$2, date=$3, currency=$4, exchange_rate=$5, reference=$6,
description=$7, total_debit=$8, total_credit=$9, status=$10, pending_inventory=$11, updated_at=NOW()
WHERE id=$1`, j.ID, j.PeriodID, j.Date, j.Currency, j.ExchangeRate, j.Reference,
		j.Description, j.TotalDebit, j.TotalCredit, j.Status, pending)
	if err != nil {
		return err
	}
	if cmd.RowsAffected() == 0 {
		return ledger.E(ledger.KindNotFound, "journal %d not found", j.ID)
	}
	return nil
}

func (r *txRepository) DeleteLines(ctx context.Context, journalID int64) error {
	_, err := r.tx.Exec(ctx, `DELETE FROM journal_lines WHERE journal_id=$1`, journalID)
	return err
}

func (r *txRepository) InsertLines(ctx context.Context, journalID int64, lines []Line) ([]Line, error) {
	out := make([]Line, 0, len(lines))
	for _, l := range lines {
		l.JournalID = journalID
		err := r.tx.QueryRow(ctx, `INSERT INTO journal_lines (journal_id, line_number, account_id, debit, credit, description,
department_id, project_id, cost_center_id, tax_code_id, tax_amount, txn_amount, txn_rate)
VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,$13) RETURNING id, created_at, updated_at`,
			journalID, l.LineNumber, l.AccountID, l.Debit, l.Credit, l.Description,
			l.DepartmentID, l.ProjectID, l.CostCenterID, l.TaxCodeID, l.TaxAmount, l.TxnAmount, l.TxnRate).
			Scan(&l.ID, &l.CreatedAt, &l.UpdatedAt)
		if err != nil {
			return nil, err
		}
		out = append(out, l)
	}
	return out, nil
}

func (r *txRepository) UpdatePendingInventory(ctx context.Context, journalID int64, pending []inventory.PendingTransaction) error {
	payload, err := json.Marshal(pending)
	if err != nil {
		return err
	}
	_, err = r.tx.Exec(ctx, `UPDATE journals SET pending_inventory=$2, updated_at=NOW() WHERE id=$1`, journalID, payload)
	return err
}

func (r *txRepository) UpdateStatus(ctx context.Context, journalID int64, status JournalStatus, postedAt *time.Time) error {
	cmd, err := r.tx.Exec(ctx, `UPDATE journals SET status=$2, posted_at=COALESCE($3, posted_at), updated_at=NOW() WHERE id=$1`,
		journalID, status, postedAt)
	if err != nil {
		return err
	}
	if cmd.RowsAffected() == 0 {
		return ledger.E(ledger.KindNotFound, "journal %d not found", journalID)
	}
	return nil
}

func (r *txRepository) InsertGLRows(ctx context.Context, rows []gl.Row) error {
	return gl.InsertRowsTx(ctx, r.tx, rows)
}

// Account / dimension lookups share the transaction so resolution sees
// in-flight data.

func (r *txRepository) AccountByID(ctx context.Context, orgID, id int64) (accounts.Account, error) {
	return scanTxAccount(r.tx.QueryRow(ctx, `SELECT `+txAccountColumns+` FROM accounts WHERE org_id=$1 AND id=$2`, orgID, id))
}

func (r *txRepository) AccountByCode(ctx context.Context, orgID int64, code string) (accounts.Account, error) {
	return scanTxAccount(r.tx.QueryRow(ctx, `SELECT `+txAccountColumns+` FROM accounts WHERE org_id=$1 AND code=$2`, orgID, code))
}

func (r *txRepository) AccountByName(ctx context.Context, orgID int64, name string) (accounts.Account, error) {
	return scanTxAccount(r.tx.QueryRow(ctx, `SELECT `+txAccountColumns+` FROM accounts WHERE org_id=$1 AND name ILIKE $2 ORDER BY code LIMIT 1`, orgID, name))
}

const txAccountColumns = `id, org_id, code, name, type, parent_id, is_active, require_department, require_project, require_cost_center, created_at, updated_at`

func scanTxAccount(row pgx.Row) (accounts.Account, error) {
	var a accounts.Account
	err := row.Scan(&a.ID, &a.OrgID, &a.Code, &a.Name, &a.Type, &a.ParentID, &a.IsActive,
		&a.RequireDepartment, &a.RequireProject, &a.RequireCostCenter, &a.CreatedAt, &a.UpdatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return accounts.Account{}, ledger.E(ledger.KindNotFound, "account not found")
	}
	return a, err
}

func (r *txRepository) DimensionByID(ctx context.Context, orgID int64, kind accounts.DimensionKind, id int64) (accounts.Dimension, error) {
	return scanTxDimension(r.tx.QueryRow(ctx, `SELECT id, org_id, kind, code, name, is_active FROM dimensions WHERE org_id=$1 AND kind=$2 AND id=$3`, orgID, kind, id))
}

func (r *txRepository) DimensionByCode(ctx context.Context, orgID int64, kind accounts.DimensionKind, code string) (accounts.Dimension, error) {
	return scanTxDimension(r.tx.QueryRow(ctx, `SELECT id, org_id, kind, code, name, is_active FROM dimensions WHERE org_id=$1 AND kind=$2 AND code=$3`, orgID, kind, code))
}

func (r *txRepository) DimensionByName(ctx context.Context, orgID int64, kind accounts.DimensionKind, name string) (accounts.Dimension, error) {
	return scanTxDimension(r.tx.QueryRow(ctx, `SELECT id, org_id, kind, code, name, is_active FROM dimensions WHERE org_id=$1 AND kind=$2 AND name ILIKE $3 ORDER BY code LIMIT 1`, orgID, kind, name))
}

func scanTxDimension(row pgx.Row) (accounts.Dimension, error) {
	var d accounts.Dimension
	err := row.Scan(&d.ID, &d.OrgID, &d.Kind, &d.Code, &d.Name, &d.IsActive)
	if errors.Is(err, pgx.ErrNoRows) {
		return accounts.Dimension{}, ledger.E(ledger.KindNotFound, "dimension not found")
	}
	return d, err
}

// Catalog lookups for inventory preparation.

func (r *txRepository) ProductByID(ctx context.Context, orgID, id int64) (inventory.Product, error) {
	var p inventory.Product
	err := r.tx.QueryRow(ctx, `SELECT id, org_id, code, is_inventory_item, uom_id, expense_account_id
FROM products WHERE org_id=$1 AND id=$2`, orgID, id).
		Scan(&p.ID, &p.OrgID, &p.Code, &p.IsInventoryItem, &p.UOMID, &p.ExpenseAccountID)
	if errors.Is(err, pgx.ErrNoRows) {
		return inventory.Product{}, ledger.E(ledger.KindNotFound, "product %d not found", id)
	}
	return p, err
}

func (r *txRepository) WarehouseByID(ctx context.Context, orgID, id int64) (inventory.Warehouse, error) {
	var w inventory.Warehouse
	err := r.tx.QueryRow(ctx, `SELECT id, org_id, code FROM warehouses WHERE org_id=$1 AND id=$2`, orgID, id).
		Scan(&w.ID, &w.OrgID, &w.Code)
	if errors.Is(err, pgx.ErrNoRows) {
		return inventory.Warehouse{}, ledger.E(ledger.KindNotFound, "warehouse %d not found", id)
	}
	return w, err
}

func (r *txRepository) LocationByID(ctx context.Context, id int64) (inventory.Location, error) {
	var l inventory.Location
	err := r.tx.QueryRow(ctx, `SELECT id, warehouse_id, code FROM warehouse_locations WHERE id=$1`, id).
		Scan(&l.ID, &l.WarehouseID, &l.Code)
	if errors.Is(err, pgx.ErrNoRows) {
		return inventory.Location{}, ledger.E(ledger.KindNotFound, "location %d not found", id)
	}
	return l, err
}

func (r *txRepository) BatchByID(ctx context.Context, id int64) (inventory.Batch, error) {
	var b inventory.Batch
	err := r.tx.QueryRow(ctx, `SELECT id, product_id, code FROM product_batches WHERE id=$1`, id).
		Scan(&b.ID, &b.ProductID, &b.Code)
	if errors.Is(err, pgx.ErrNoRows) {
		return inventory.Batch{}, ledger.E(ledger.KindNotFound, "batch %d not found", id)
	}
	return b, err
}
