package landedcost

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/meridian-erp/meridian-erp/internal/ledger"
	"github.com/meridian-erp/meridian-erp/internal/platform/db"
)

// Repository loads landed cost documents and records applications.
type Repository interface {
	Get(ctx context.Context, orgID, id int64) (Document, error)
	Apply(ctx context.Context, orgID, docID, journalID int64, allocations []Allocation) error
}

type pgRepository struct {
	pool *pgxpool.Pool
}

func NewRepository(pool *pgxpool.Pool) Repository {
	return &pgRepository{pool: pool}
}

func (r *pgRepository) Get(ctx context.Context, orgID, id int64) (Document, error) {
	var doc Document
	err := r.pool.QueryRow(ctx, `
		SELECT id, org_id, number, purchase_invoice_id, doc_type_id, basis,
		       credit_account_id, currency, document_date, is_applied,
		       applied_journal_id, created_at, updated_at
		FROM landed_cost_documents
		WHERE org_id = $1 AND id = $2`, orgID, id).Scan(
		&doc.ID, &doc.OrgID, &doc.Number, &doc.PurchaseInvoiceID, &doc.DocTypeID, &doc.Basis,
		&doc.CreditAccountID, &doc.Currency, &doc.Date, &doc.IsApplied,
		&doc.AppliedJournalID, &doc.CreatedAt, &doc.UpdatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return Document{}, ledger.E(ledger.KindNotFound, "landed cost document %d not found", id)
	}
	if err != nil {
		return Document{}, err
	}

	rows, err := r.pool.Query(ctx, `
		SELECT id, description, amount
		FROM landed_cost_lines
		WHERE document_id = $1
		ORDER BY id`, doc.ID)
	if err != nil {
		return Document{}, err
	}
	defer rows.Close()
	for rows.Next() {
		var l CostLine
		if err := rows.Scan(&l.ID, &l.Description, &l.Amount); err != nil {
			return Document{}, err
		}
		doc.CostLines = append(doc.CostLines, l)
	}
	if err := rows.Err(); err != nil {
		return Document{}, err
	}

	targets, err := r.pool.Query(ctx, `
		SELECT id, account_id, extended_cost, quantity, COALESCE(weight, 0)
		FROM purchase_invoice_lines
		WHERE invoice_id = $1
		ORDER BY line_number`, doc.PurchaseInvoiceID)
	if err != nil {
		return Document{}, err
	}
	defer targets.Close()
	for targets.Next() {
		var t TargetLine
		if err := targets.Scan(&t.ID, &t.AccountID, &t.ExtendedCost, &t.Quantity, &t.Weight); err != nil {
			return Document{}, err
		}
		doc.Targets = append(doc.Targets, t)
	}
	if err := targets.Err(); err != nil {
		return Document{}, err
	}

	allocs, err := r.pool.Query(ctx, `
		SELECT id, document_id, target_line_id, account_id, amount, created_at
		FROM landed_cost_allocations
		WHERE document_id = $1
		ORDER BY id`, doc.ID)
	if err != nil {
		return Document{}, err
	}
	defer allocs.Close()
	for allocs.Next() {
		var a Allocation
		if err := allocs.Scan(&a.ID, &a.DocumentID, &a.TargetLineID, &a.AccountID, &a.Amount, &a.CreatedAt); err != nil {
			return Document{}, err
		}
		doc.Allocations = append(doc.Allocations, a)
	}
	return doc, allocs.Err()
}

// Apply persists the derived allocations and links the posted journal
// in one transaction. The guarded update keeps a concurrent second
// apply from overwriting the first.
func (r *pgRepository) Apply(ctx context.Context, orgID, docID, journalID int64, allocations []Allocation) error {
	return db.WithTx(ctx, r.pool, func(tx pgx.Tx) error {
		tag, err := tx.Exec(ctx, `
			UPDATE landed_cost_documents
			SET is_applied = TRUE, applied_journal_id = $3, updated_at = NOW()
			WHERE org_id = $1 AND id = $2 AND is_applied = FALSE`, orgID, docID, journalID)
		if err != nil {
			return err
		}
		if tag.RowsAffected() == 0 {
			return ledger.E(ledger.KindLandedCost, "landed cost document %d already applied", docID)
		}
		for _, a := range allocations {
			if _, err := tx.Exec(ctx, `
				INSERT INTO landed_cost_allocations (document_id, target_line_id, account_id, amount, created_at)
				VALUES ($1, $2, $3, $4, NOW())`,
				docID, a.TargetLineID, a.AccountID, a.Amount); err != nil {
				return err
			}
		}
		return nil
	})
}
