// Package inventory prepares the structured pending transactions the
// posting engine hands to the external inventory component. The engine
// never mutates stock itself: the journal is durably saved first, then
// the inventory component consumes the pending list exactly once.
package inventory

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// TxnType enumerates the movements the engine prepares.
type TxnType string

const (
	TxnTypeReceipt TxnType = "RECEIPT"
	TxnTypeIssue   TxnType = "ISSUE"
)

// PendingTransaction is one durable, inspectable handoff record,
// stamped with the generated journal line id after persistence.
type PendingTransaction struct {
	Ref             uuid.UUID        `json:"ref"`
	TxnType         TxnType          `json:"txn_type"`
	ProductID       int64            `json:"product_id"`
	WarehouseID     int64            `json:"warehouse_id"`
	UOMID           int64            `json:"uom_id"`
	Quantity        decimal.Decimal  `json:"quantity"`
	UnitCost        *decimal.Decimal `json:"unit_cost,omitempty"`
	LocationID      *int64           `json:"location_id,omitempty"`
	BatchID         *int64           `json:"batch_id,omitempty"`
	DebitAccountID  int64            `json:"debit_account_id"`
	CreditAccountID int64            `json:"credit_account_id"`
	JournalLineID   int64            `json:"journal_line_id"`
	PreparedAt      time.Time        `json:"prepared_at"`
}

// Product is the catalog snapshot the engine validates against.
type Product struct {
	ID               int64
	OrgID            int64
	Code             string
	IsInventoryItem  bool
	UOMID            int64
	ExpenseAccountID *int64
}

// Warehouse ownership is validated against the posting organization.
type Warehouse struct {
	ID    int64
	OrgID int64
	Code  string
}

// Location belongs to exactly one warehouse.
type Location struct {
	ID          int64
	WarehouseID int64
	Code        string
}

// Batch belongs to exactly one product.
type Batch struct {
	ID        int64
	ProductID int64
	Code      string
}
