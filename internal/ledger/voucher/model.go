package voucher

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/meridian-erp/meridian-erp/internal/ledger"
	"github.com/meridian-erp/meridian-erp/internal/ledger/inventory"
)

// JournalStatus enumerates the voucher lifecycle.
type JournalStatus string

const (
	StatusDraft            JournalStatus = "DRAFT"
	StatusAwaitingApproval JournalStatus = "AWAITING_APPROVAL"
	StatusApproved         JournalStatus = "APPROVED"
	StatusPosted           JournalStatus = "POSTED"
	StatusReversed         JournalStatus = "REVERSED"
	StatusRejected         JournalStatus = "REJECTED"
)

// transitions is the allowed edge set of the state machine.
var transitions = map[JournalStatus][]JournalStatus{
	StatusDraft:            {StatusAwaitingApproval, StatusPosted},
	StatusAwaitingApproval: {StatusApproved, StatusRejected, StatusDraft},
	StatusApproved:         {StatusPosted},
	StatusPosted:           {StatusReversed},
}

// CanTransition reports whether the status change is allowed.
func CanTransition(from, to JournalStatus) bool {
	for _, t := range transitions[from] {
		if t == to {
			return true
		}
	}
	return false
}

// Mutable reports whether lines may still be rewritten.
func (s JournalStatus) Mutable() bool {
	return s == StatusDraft
}

// DocTypeConfig is the static, strongly-typed per-document-type
// configuration the engine consumes.
type DocTypeConfig struct {
	ID               int64
	OrgID            int64
	Code             string
	Name             string
	SequenceConfigID int64
	SourceModule     string
	EntryMode        string
	AffectsInventory bool
	GRIRAccountID    *int64
	COGSAccountID    *int64
	CreatedAt        time.Time
	UpdatedAt        time.Time
}

// Journal is the persisted voucher header. TotalDebit/TotalCredit may
// diverge only while the journal is a draft.
type Journal struct {
	ID               int64                          `json:"id"`
	OrgID            int64                          `json:"org_id"`
	DocTypeID        int64                          `json:"doc_type_id"`
	PeriodID         int64                          `json:"period_id"`
	Number           string                         `json:"number"`
	Date             time.Time                      `json:"date"`
	Currency         string                         `json:"currency"`
	ExchangeRate     decimal.Decimal                `json:"exchange_rate"`
	Reference        string                         `json:"reference,omitempty"`
	Description      string                         `json:"description,omitempty"`
	TotalDebit       decimal.Decimal                `json:"total_debit"`
	TotalCredit      decimal.Decimal                `json:"total_credit"`
	Status           JournalStatus                  `json:"status"`
	IdempotencyKey   *string                        `json:"-"`
	SourceModule     string                         `json:"source_module"`
	SourceRef        uuid.UUID                      `json:"source_ref"`
	PendingInventory []inventory.PendingTransaction `json:"pending_inventory,omitempty"`
	ReversalOfID     *int64                         `json:"reversal_of_id,omitempty"`
	CreatedBy        int64                          `json:"created_by"`
	PostedAt         *time.Time                     `json:"posted_at,omitempty"`
	CreatedAt        time.Time                      `json:"created_at"`
	UpdatedAt        time.Time                      `json:"updated_at"`
	Lines            []Line                         `json:"lines,omitempty"`
}

func (j Journal) EntityKind() ledger.EntityKind { return ledger.EntityJournal }
func (j Journal) EntityID() int64               { return j.ID }

// Balanced reports whether debit and credit totals match exactly.
func (j Journal) Balanced() bool {
	return j.TotalDebit.Equal(j.TotalCredit)
}

// Line is one debit-or-credit leg. Exactly one of Debit/Credit is
// non-zero, never both, never neither.
type Line struct {
	ID           int64            `json:"id"`
	JournalID    int64            `json:"journal_id"`
	LineNumber   int              `json:"line_number"`
	AccountID    int64            `json:"account_id"`
	Debit        decimal.Decimal  `json:"debit"`
	Credit       decimal.Decimal  `json:"credit"`
	Description  string           `json:"description,omitempty"`
	DepartmentID *int64           `json:"department_id,omitempty"`
	ProjectID    *int64           `json:"project_id,omitempty"`
	CostCenterID *int64           `json:"cost_center_id,omitempty"`
	TaxCodeID    *int64           `json:"tax_code_id,omitempty"`
	TaxAmount    decimal.Decimal  `json:"tax_amount"`
	TxnAmount    *decimal.Decimal `json:"txn_amount,omitempty"`
	TxnRate      *decimal.Decimal `json:"txn_rate,omitempty"`
	CreatedAt    time.Time        `json:"created_at"`
	UpdatedAt    time.Time        `json:"updated_at"`
}
