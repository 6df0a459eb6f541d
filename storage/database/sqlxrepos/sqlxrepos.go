// Package sqlxrepos provides PostgreSQL-backed repositories for the core
// domain services. Queries are hand-written; rows are scanned into private
// structs and converted to domain types at the boundary.
package sqlxrepos

import (
	"strings"

	"github.com/darasahq/darasa/core"
)

func whereClause(conds []string) string {
	if len(conds) == 0 {
		return ""
	}
	return " WHERE " + strings.Join(conds, " AND ")
}

// orderClause renders an ORDER BY clause. Fields are interpolated as-is:
// the API layer filters them against per-domain sortable sets before they
// get here (Ordering.Bind drops anything else).
func orderClause(ordering []core.DBOrdering) string {
	if len(ordering) == 0 {
		return ""
	}
	return " ORDER BY " + core.OrderingsToSQL(ordering)
}

func joinClauses(clauses []string) string {
	return strings.Join(clauses, ", ")
}
