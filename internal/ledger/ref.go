package ledger

// EntityKind tags the concrete types the audit trail can point at.
// A narrow interface replaces generic any-entity polymorphism.
type EntityKind string

const (
	EntityJournal    EntityKind = "journal"
	EntityLandedCost EntityKind = "landed_cost_document"
	EntityPeriod     EntityKind = "accounting_period"
	EntitySequence   EntityKind = "document_sequence"
)

// Referable is implemented by every entity the audit log may attach to.
type Referable interface {
	EntityKind() EntityKind
	EntityID() int64
}
