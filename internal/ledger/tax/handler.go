package tax

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"
	"github.com/shopspring/decimal"

	"github.com/meridian-erp/meridian-erp/internal/platform/httpx"
	"github.com/meridian-erp/meridian-erp/internal/shared"
)

// Handler exposes the tax resolution preview endpoint.
type Handler struct {
	logger   *slog.Logger
	engine   *Engine
	validate *validator.Validate
}

// NewHandler builds Handler instance.
func NewHandler(logger *slog.Logger, engine *Engine) *Handler {
	return &Handler{logger: logger, engine: engine, validate: validator.New()}
}

// MountRoutes registers tax routes.
func (h *Handler) MountRoutes(r chi.Router) {
	r.Post("/tax/resolve", h.handleResolve)
}

type resolveRequest struct {
	EntryMode    string           `json:"entry_mode"`
	CountryCode  string           `json:"country_code"`
	StateCode    string           `json:"state_code"`
	City         string           `json:"city"`
	Category     string           `json:"category"`
	CustomerType string           `json:"customer_type"`
	VendorType   string           `json:"vendor_type"`
	IndustryCode string           `json:"industry_code"`
	Date         *time.Time       `json:"date"`
	Base         *decimal.Decimal `json:"base" validate:"omitempty"`
}

type resolveResponse struct {
	Codes     []Code    `json:"codes"`
	Breakdown []LineTax `json:"breakdown,omitempty"`
}

func (h *Handler) handleResolve(w http.ResponseWriter, r *http.Request) {
	var req resolveRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Bad Request", "malformed JSON body")
		return
	}
	if err := h.validate.Struct(req); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", err.Error())
		return
	}
	actor := shared.ActorFromContext(r.Context())
	date := time.Now()
	if req.Date != nil {
		date = *req.Date
	}
	tc := Context{
		OrgID:        actor.OrgID,
		EntryMode:    req.EntryMode,
		CountryCode:  req.CountryCode,
		StateCode:    req.StateCode,
		City:         req.City,
		Category:     req.Category,
		CustomerType: req.CustomerType,
		VendorType:   req.VendorType,
		IndustryCode: req.IndustryCode,
		Date:         date,
	}
	codes, err := h.engine.ResolveApplicableTaxes(r.Context(), tc)
	if err != nil {
		h.logger.Error("resolve taxes", slog.Any("error", err))
		httpx.RespondError(w, err)
		return
	}
	resp := resolveResponse{Codes: codes}
	if req.Base != nil {
		resp.Breakdown = h.engine.CalculateLineTaxes(*req.Base, codes, date)
	}
	httpx.JSON(w, http.StatusOK, resp)
}
