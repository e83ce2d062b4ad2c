package httpx

import (
	"net/http"

	"github.com/meridian-erp/meridian-erp/internal/ledger"
)

// statusFor maps the ledger error taxonomy onto HTTP status codes.
func statusFor(kind ledger.Kind) int {
	switch kind {
	case ledger.KindNotFound:
		return http.StatusNotFound
	case ledger.KindIdempotency:
		return http.StatusConflict
	case ledger.KindConfig, ledger.KindPeriod, ledger.KindLine,
		ledger.KindBalance, ledger.KindInventory, ledger.KindLandedCost:
		return http.StatusUnprocessableEntity
	case ledger.KindState:
		return http.StatusConflict
	case ledger.KindNumbering:
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}

// RespondError maps ledger errors to HTTP responses using RFC7807. The
// user-facing message comes from the typed error only; wrapped internal
// causes are never leaked.
func RespondError(w http.ResponseWriter, err error) {
	kind := ledger.KindOf(err)
	detail := ""
	if ledger.UserFacing(err) {
		detail = ledger.Message(err)
	}
	Problem(w, statusFor(kind), string(kind), detail)
}
