package app

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/meridian-erp/meridian-erp/internal/ledger/landedcost"
	"github.com/meridian-erp/meridian-erp/internal/ledger/periods"
	"github.com/meridian-erp/meridian-erp/internal/ledger/tax"
	"github.com/meridian-erp/meridian-erp/internal/ledger/voucher"
	"github.com/meridian-erp/meridian-erp/internal/platform/httpx"
)

// RouterParams groups dependencies for building the HTTP router.
type RouterParams struct {
	Logger            *slog.Logger
	Config            *Config
	VoucherHandler    *voucher.Handler
	LandedCostHandler *landedcost.Handler
	TaxHandler        *tax.Handler
	PeriodHandler     *periods.Handler
}

// NewRouter constructs the chi.Router with Meridian defaults.
func NewRouter(params RouterParams) http.Handler {
	r := chi.NewRouter()

	for _, mw := range MiddlewareStack(MiddlewareConfig{
		Logger: params.Logger,
		Config: params.Config,
	}) {
		r.Use(mw)
	}

	r.Get("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		httpx.JSON(w, http.StatusOK, map[string]string{"status": "ok"})
	})

	r.Route("/api/v1", func(api chi.Router) {
		api.Use(ActorMiddleware)
		params.VoucherHandler.MountRoutes(api)
		params.LandedCostHandler.MountRoutes(api)
		params.TaxHandler.MountRoutes(api)
		params.PeriodHandler.MountRoutes(api)
	})

	return r
}
