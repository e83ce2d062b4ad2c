package inventory

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/meridian-erp/meridian-erp/internal/ledger"
)

// Catalog is the read surface preparation validates against. The
// voucher transaction repository implements it.
type Catalog interface {
	ProductByID(ctx context.Context, orgID, id int64) (Product, error)
	WarehouseByID(ctx context.Context, orgID, id int64) (Warehouse, error)
	LocationByID(ctx context.Context, id int64) (Location, error)
	BatchByID(ctx context.Context, id int64) (Batch, error)
}

// LineRequest carries the inventory-bearing fields of one voucher line.
type LineRequest struct {
	TxnType     TxnType
	ProductID   int64
	WarehouseID int64
	Quantity    decimal.Decimal
	UnitCost    *decimal.Decimal
	LocationID  *int64
	BatchID     *int64
	// Resolved by the orchestrator before preparation.
	LineAccountID int64
	GRIRAccountID int64
	COGSAccountID int64
}

// Prepare validates one line's inventory preconditions and builds the
// pending transaction. Nothing is applied to stock here.
func Prepare(ctx context.Context, cat Catalog, orgID int64, req LineRequest, now time.Time) (PendingTransaction, error) {
	if req.Quantity.Sign() <= 0 {
		return PendingTransaction{}, ledger.E(ledger.KindInventory, "quantity must be positive")
	}
	product, err := cat.ProductByID(ctx, orgID, req.ProductID)
	if err != nil {
		return PendingTransaction{}, ledger.E(ledger.KindInventory, "product %d not found", req.ProductID)
	}
	if product.OrgID != orgID {
		return PendingTransaction{}, ledger.E(ledger.KindInventory, "product %d belongs to another organization", req.ProductID)
	}
	if !product.IsInventoryItem {
		return PendingTransaction{}, ledger.E(ledger.KindInventory, "product %s is not inventory-tracked", product.Code)
	}
	if product.UOMID == 0 {
		return PendingTransaction{}, ledger.E(ledger.KindInventory, "product %s has no unit of measure", product.Code)
	}
	warehouse, err := cat.WarehouseByID(ctx, orgID, req.WarehouseID)
	if err != nil {
		return PendingTransaction{}, ledger.E(ledger.KindInventory, "warehouse %d not found", req.WarehouseID)
	}
	if warehouse.OrgID != orgID {
		return PendingTransaction{}, ledger.E(ledger.KindInventory, "warehouse %s belongs to another organization", warehouse.Code)
	}

	pending := PendingTransaction{
		Ref:         uuid.New(),
		TxnType:     req.TxnType,
		ProductID:   product.ID,
		WarehouseID: warehouse.ID,
		UOMID:       product.UOMID,
		Quantity:    req.Quantity,
		UnitCost:    req.UnitCost,
		LocationID:  req.LocationID,
		BatchID:     req.BatchID,
		PreparedAt:  now,
	}

	switch req.TxnType {
	case TxnTypeReceipt:
		if req.UnitCost == nil || req.UnitCost.Sign() <= 0 {
			return PendingTransaction{}, ledger.E(ledger.KindInventory, "receipt requires a positive unit cost")
		}
		if req.GRIRAccountID == 0 {
			return PendingTransaction{}, ledger.E(ledger.KindInventory, "receipt requires a GR/IR clearing account")
		}
		pending.DebitAccountID = req.LineAccountID
		pending.CreditAccountID = req.GRIRAccountID
	case TxnTypeIssue:
		cogs := req.COGSAccountID
		if cogs == 0 && product.ExpenseAccountID != nil {
			cogs = *product.ExpenseAccountID
		}
		if cogs == 0 {
			return PendingTransaction{}, ledger.E(ledger.KindInventory, "issue requires a COGS account for product %s", product.Code)
		}
		pending.DebitAccountID = cogs
		pending.CreditAccountID = req.LineAccountID
	default:
		return PendingTransaction{}, ledger.E(ledger.KindInventory, "unsupported inventory transaction type %q", req.TxnType)
	}

	if req.LocationID != nil {
		loc, err := cat.LocationByID(ctx, *req.LocationID)
		if err != nil {
			return PendingTransaction{}, ledger.E(ledger.KindInventory, "location %d not found", *req.LocationID)
		}
		if loc.WarehouseID != warehouse.ID {
			return PendingTransaction{}, ledger.E(ledger.KindInventory, "location %s is not in warehouse %s", loc.Code, warehouse.Code)
		}
	}
	if req.BatchID != nil {
		batch, err := cat.BatchByID(ctx, *req.BatchID)
		if err != nil {
			return PendingTransaction{}, ledger.E(ledger.KindInventory, "batch %d not found", *req.BatchID)
		}
		if batch.ProductID != product.ID {
			return PendingTransaction{}, ledger.E(ledger.KindInventory, "batch %s does not belong to product %s", batch.Code, product.Code)
		}
	}
	return pending, nil
}
