// Package landedcost distributes ancillary acquisition costs (freight,
// duty) across purchase lines and posts the result as a journal.
package landedcost

import (
	"time"

	"github.com/shopspring/decimal"

	"github.com/meridian-erp/meridian-erp/internal/ledger"
)

// Basis selects how allocations are weighted across target lines.
type Basis string

const (
	BasisValue    Basis = "VALUE"
	BasisQuantity Basis = "QUANTITY"
	BasisWeight   Basis = "WEIGHT"
)

// Document groups ancillary costs against one purchase invoice.
// Allocations are derived records, immutable once the document is
// applied.
type Document struct {
	ID                int64        `json:"id"`
	OrgID             int64        `json:"org_id"`
	Number            string       `json:"number"`
	PurchaseInvoiceID int64        `json:"purchase_invoice_id"`
	DocTypeID         int64        `json:"doc_type_id"`
	Basis             Basis        `json:"basis"`
	CreditAccountID   int64        `json:"credit_account_id"`
	Currency          string       `json:"currency"`
	Date              time.Time    `json:"date"`
	IsApplied         bool         `json:"is_applied"`
	AppliedJournalID  *int64       `json:"applied_journal_id,omitempty"`
	CostLines         []CostLine   `json:"cost_lines,omitempty"`
	Targets           []TargetLine `json:"targets,omitempty"`
	Allocations       []Allocation `json:"allocations,omitempty"`
	CreatedAt         time.Time    `json:"created_at"`
	UpdatedAt         time.Time    `json:"updated_at"`
}

func (d Document) EntityKind() ledger.EntityKind { return ledger.EntityLandedCost }
func (d Document) EntityID() int64               { return d.ID }

// TotalCost sums the document's cost lines.
func (d Document) TotalCost() decimal.Decimal {
	total := decimal.Zero
	for _, l := range d.CostLines {
		total = total.Add(l.Amount)
	}
	return total
}

// CostLine is one ancillary cost amount on the document.
type CostLine struct {
	ID          int64           `json:"id"`
	Description string          `json:"description"`
	Amount      decimal.Decimal `json:"amount"`
}

// TargetLine is a snapshot of one purchase line the cost is spread
// over, carrying every candidate weighting measure.
type TargetLine struct {
	ID           int64           `json:"id"`
	AccountID    int64           `json:"account_id"`
	ExtendedCost decimal.Decimal `json:"extended_cost"`
	Quantity     decimal.Decimal `json:"quantity"`
	Weight       decimal.Decimal `json:"weight"`
}

// Allocation is one derived per-target share.
type Allocation struct {
	ID           int64           `json:"id"`
	DocumentID   int64           `json:"document_id"`
	TargetLineID int64           `json:"target_line_id"`
	AccountID    int64           `json:"account_id"`
	Amount       decimal.Decimal `json:"amount"`
	CreatedAt    time.Time       `json:"created_at"`
}
