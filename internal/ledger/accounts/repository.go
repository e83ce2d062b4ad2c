package accounts

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/meridian-erp/meridian-erp/internal/ledger"
)

type Repository interface {
	Lookup
	List(ctx context.Context, orgID int64) ([]Account, error)
}

type repository struct {
	db *pgxpool.Pool
}

func NewRepository(db *pgxpool.Pool) Repository {
	return &repository{db: db}
}

const accountColumns = `id, org_id, code, name, type, parent_id, is_active, require_department, require_project, require_cost_center, created_at, updated_at`

func scanAccount(row pgx.Row) (Account, error) {
	var a Account
	err := row.Scan(&a.ID, &a.OrgID, &a.Code, &a.Name, &a.Type, &a.ParentID, &a.IsActive,
		&a.RequireDepartment, &a.RequireProject, &a.RequireCostCenter, &a.CreatedAt, &a.UpdatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return Account{}, ledger.E(ledger.KindNotFound, "account not found")
	}
	return a, err
}

func (r *repository) List(ctx context.Context, orgID int64) ([]Account, error) {
	rows, err := r.db.Query(ctx, `SELECT `+accountColumns+` FROM accounts WHERE org_id=$1 ORDER BY code`, orgID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []Account
	for rows.Next() {
		a, err := scanAccount(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, a)
	}
	return out, rows.Err()
}

func (r *repository) AccountByID(ctx context.Context, orgID, id int64) (Account, error) {
	return scanAccount(r.db.QueryRow(ctx, `SELECT `+accountColumns+` FROM accounts WHERE org_id=$1 AND id=$2`, orgID, id))
}

func (r *repository) AccountByCode(ctx context.Context, orgID int64, code string) (Account, error) {
	return scanAccount(r.db.QueryRow(ctx, `SELECT `+accountColumns+` FROM accounts WHERE org_id=$1 AND code=$2`, orgID, code))
}

func (r *repository) AccountByName(ctx context.Context, orgID int64, name string) (Account, error) {
	return scanAccount(r.db.QueryRow(ctx, `SELECT `+accountColumns+` FROM accounts WHERE org_id=$1 AND name ILIKE $2 ORDER BY code LIMIT 1`, orgID, name))
}

func scanDimension(row pgx.Row) (Dimension, error) {
	var d Dimension
	err := row.Scan(&d.ID, &d.OrgID, &d.Kind, &d.Code, &d.Name, &d.IsActive)
	if errors.Is(err, pgx.ErrNoRows) {
		return Dimension{}, ledger.E(ledger.KindNotFound, "dimension not found")
	}
	return d, err
}

const dimensionColumns = `id, org_id, kind, code, name, is_active`

func (r *repository) DimensionByID(ctx context.Context, orgID int64, kind DimensionKind, id int64) (Dimension, error) {
	return scanDimension(r.db.QueryRow(ctx, `SELECT `+dimensionColumns+` FROM dimensions WHERE org_id=$1 AND kind=$2 AND id=$3`, orgID, kind, id))
}

func (r *repository) DimensionByCode(ctx context.Context, orgID int64, kind DimensionKind, code string) (Dimension, error) {
	return scanDimension(r.db.QueryRow(ctx, `SELECT `+dimensionColumns+` FROM dimensions WHERE org_id=$1 AND kind=$2 AND code=$3`, orgID, kind, code))
}

func (r *repository) DimensionByName(ctx context.Context, orgID int64, kind DimensionKind, name string) (Dimension, error) {
	return scanDimension(r.db.QueryRow(ctx, `SELECT `+dimensionColumns+` FROM dimensions WHERE org_id=$1 AND kind=$2 AND name ILIKE $3 ORDER BY code LIMIT 1`, orgID, kind, name))
}
