package tax

import (
	"context"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
)

// Repository loads effective tax reference data. Rules and codes are
// edited out-of-band; the engine only reads date-filtered subsets.
type Repository struct {
	db *pgxpool.Pool
}

func NewRepository(db *pgxpool.Pool) *Repository {
	return &Repository{db: db}
}

// RuleSet loads active rules whose effective window contains the date,
// together with every referenced code.
func (r *Repository) RuleSet(ctx context.Context, orgID int64, date time.Time) (RuleSet, error) {
	set := RuleSet{Codes: make(map[int64]Code)}

	rows, err := r.db.Query(ctx, `SELECT id, org_id, priority, is_active, entry_mode, country_code, state_code, city,
category, customer_type, vendor_type, industry_code, effective_from, effective_to
FROM tax_rules
WHERE org_id=$1 AND is_active AND effective_from <= $2 AND (effective_to IS NULL OR effective_to >= $2)
ORDER BY priority, id`, orgID, date)
	if err != nil {
		return RuleSet{}, err
	}
	defer rows.Close()
	ruleIdx := make(map[int64]int)
	for rows.Next() {
		var rule Rule
		if err := rows.Scan(&rule.ID, &rule.OrgID, &rule.Priority, &rule.IsActive, &rule.EntryMode, &rule.CountryCode,
			&rule.StateCode, &rule.City, &rule.Category, &rule.CustomerType, &rule.VendorType, &rule.IndustryCode,
			&rule.EffectiveFrom, &rule.EffectiveTo); err != nil {
			return RuleSet{}, err
		}
		ruleIdx[rule.ID] = len(set.Rules)
		set.Rules = append(set.Rules, rule)
	}
	if err := rows.Err(); err != nil {
		return RuleSet{}, err
	}

	// Direct code attachments, ordered per rule.
	linkRows, err := r.db.Query(ctx, `SELECT rule_id, code_id, via_group FROM tax_rule_codes
WHERE rule_id = ANY(SELECT id FROM tax_rules WHERE org_id=$1 AND is_active) ORDER BY rule_id, position`, orgID)
	if err != nil {
		return RuleSet{}, err
	}
	defer linkRows.Close()
	for linkRows.Next() {
		var ruleID, codeID int64
		var viaGroup bool
		if err := linkRows.Scan(&ruleID, &codeID, &viaGroup); err != nil {
			return RuleSet{}, err
		}
		idx, ok := ruleIdx[ruleID]
		if !ok {
			continue
		}
		if viaGroup {
			set.Rules[idx].GroupCodeIDs = append(set.Rules[idx].GroupCodeIDs, codeID)
		} else {
			set.Rules[idx].CodeIDs = append(set.Rules[idx].CodeIDs, codeID)
		}
	}
	if err := linkRows.Err(); err != nil {
		return RuleSet{}, err
	}

	codeRows, err := r.db.Query(ctx, `SELECT id, org_id, code, name, rate, is_compound, effective_from, effective_to
FROM tax_codes WHERE org_id=$1`, orgID)
	if err != nil {
		return RuleSet{}, err
	}
	defer codeRows.Close()
	for codeRows.Next() {
		var c Code
		if err := codeRows.Scan(&c.ID, &c.OrgID, &c.Code, &c.Name, &c.Rate, &c.IsCompound, &c.EffectiveFrom, &c.EffectiveTo); err != nil {
			return RuleSet{}, err
		}
		set.Codes[c.ID] = c
	}
	return set, codeRows.Err()
}
