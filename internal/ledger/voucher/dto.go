package voucher

import (
	"time"

	"github.com/shopspring/decimal"

	"github.com/meridian-erp/meridian-erp/internal/ledger"
	"github.com/meridian-erp/meridian-erp/internal/ledger/inventory"
)

// CommitType selects how far the submission advances the document.
type CommitType string

const (
	CommitSave   CommitType = "save"
	CommitSubmit CommitType = "submit"
	CommitPost   CommitType = "post"
)

// HeaderInput groups the voucher header fields. The date aliases exist
// because upstream forms disagree on the field name; the first
// populated one wins, then "now".
type HeaderInput struct {
	Date            *time.Time
	DocumentDate    *time.Time
	TransactionDate *time.Time
	Reference       string
	Description     string
	Currency        string
	ExchangeRate    *decimal.Decimal
}

// EffectiveDate picks the transaction date from the aliases.
func (h HeaderInput) EffectiveDate(now time.Time) time.Time {
	for _, d := range []*time.Time{h.Date, h.DocumentDate, h.TransactionDate} {
		if d != nil {
			return *d
		}
	}
	return now
}

// LineInput is one requested voucher line before resolution.
type LineInput struct {
	Deleted       bool
	AccountRef    string
	Debit         decimal.Decimal
	Credit        decimal.Decimal
	Description   string
	DepartmentRef string
	ProjectRef    string
	CostCenterRef string
	TaxCodeID     *int64
	TxnAmount     *decimal.Decimal
	TxnRate       *decimal.Decimal

	// Inventory fields, honoured only when the document type flags
	// affects_inventory.
	TxnType     inventory.TxnType
	ProductID   int64
	WarehouseID int64
	Quantity    decimal.Decimal
	UnitCost    *decimal.Decimal
	LocationID  *int64
	BatchID     *int64
}

// blank reports whether the line carries nothing worth persisting.
func (l LineInput) blank() bool {
	return l.AccountRef == "" && l.Debit.IsZero() && l.Credit.IsZero()
}

// SubmitInput groups the arguments of one voucher submission.
type SubmitInput struct {
	DocTypeID      int64
	JournalID      int64
	Header         HeaderInput
	Lines          []LineInput
	Commit         CommitType
	IdempotencyKey string
}

// Validate checks request shape before any transactional work.
func (in SubmitInput) Validate() error {
	if in.DocTypeID == 0 {
		return ledger.E(ledger.KindConfig, "document type required")
	}
	switch in.Commit {
	case CommitSave, CommitSubmit, CommitPost:
	default:
		return ledger.E(ledger.KindLine, "unknown commit type %q", in.Commit)
	}
	kept := 0
	for _, l := range in.Lines {
		if !l.Deleted && !l.blank() {
			kept++
		}
	}
	if kept == 0 {
		return ledger.E(ledger.KindLine, "voucher requires at least one line")
	}
	return nil
}
