package accounts

import "time"

// AccountType enumerates CoA categories.
type AccountType string

const (
	AccountTypeAsset     AccountType = "ASSET"
	AccountTypeLiability AccountType = "LIABILITY"
	AccountTypeEquity    AccountType = "EQUITY"
	AccountTypeRevenue   AccountType = "REVENUE"
	AccountTypeExpense   AccountType = "EXPENSE"
)

// Account models a chart of accounts node. The Require* flags make the
// matching dimension mandatory on every line hitting the account.
type Account struct {
	ID                int64
	OrgID             int64
	Code              string
	Name              string
	Type              AccountType
	ParentID          *int64
	IsActive          bool
	RequireDepartment bool
	RequireProject    bool
	RequireCostCenter bool
	CreatedAt         time.Time
	UpdatedAt         time.Time
}

// DimensionKind tags the dimension tables lines can reference.
type DimensionKind string

const (
	DimensionDepartment DimensionKind = "DEPARTMENT"
	DimensionProject    DimensionKind = "PROJECT"
	DimensionCostCenter DimensionKind = "COST_CENTER"
)

// Dimension is a department, project or cost center reference row.
type Dimension struct {
	ID       int64
	OrgID    int64
	Kind     DimensionKind
	Code     string
	Name     string
	IsActive bool
}
