package voucher

import (
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"
	"github.com/shopspring/decimal"

	"github.com/meridian-erp/meridian-erp/internal/ledger"
	"github.com/meridian-erp/meridian-erp/internal/ledger/inventory"
	"github.com/meridian-erp/meridian-erp/internal/platform/httpx"
	"github.com/meridian-erp/meridian-erp/internal/shared"
)

// Handler manages voucher endpoints.
type Handler struct {
	logger   *slog.Logger
	service  *Service
	validate *validator.Validate
}

// NewHandler builds Handler instance.
func NewHandler(logger *slog.Logger, service *Service) *Handler {
	return &Handler{logger: logger, service: service, validate: validator.New()}
}

// MountRoutes registers voucher routes.
func (h *Handler) MountRoutes(r chi.Router) {
	r.Get("/vouchers", h.handleList)
	r.Get("/vouchers/{id}", h.handleGet)
	r.Post("/vouchers", h.handleSubmit)
	r.Post("/vouchers/{id}/approve", h.handleApprove)
	r.Post("/vouchers/{id}/reject", h.handleReject)
	r.Post("/vouchers/{id}/withdraw", h.handleWithdraw)
	r.Post("/vouchers/{id}/post", h.handlePost)
	r.Post("/vouchers/{id}/reverse", h.handleReverse)
}

type lineRequest struct {
	Deleted     bool             `json:"deleted"`
	Account     string           `json:"account"`
	Debit       decimal.Decimal  `json:"debit"`
	Credit      decimal.Decimal  `json:"credit"`
	Description string           `json:"description"`
	Department  string           `json:"department"`
	Project     string           `json:"project"`
	CostCenter  string           `json:"cost_center"`
	TaxCodeID   *int64           `json:"tax_code_id"`
	TxnAmount   *decimal.Decimal `json:"txn_amount"`
	TxnRate     *decimal.Decimal `json:"txn_rate"`

	TxnType     string           `json:"txn_type" validate:"omitempty,oneof=RECEIPT ISSUE"`
	ProductID   int64            `json:"product_id"`
	WarehouseID int64            `json:"warehouse_id"`
	Quantity    decimal.Decimal  `json:"quantity"`
	UnitCost    *decimal.Decimal `json:"unit_cost"`
	LocationID  *int64           `json:"location_id"`
	BatchID     *int64           `json:"batch_id"`
}

type submitRequest struct {
	DocTypeID       int64            `json:"doc_type_id" validate:"required"`
	JournalID       int64            `json:"journal_id"`
	Date            *time.Time       `json:"date"`
	DocumentDate    *time.Time       `json:"document_date"`
	TransactionDate *time.Time       `json:"transaction_date"`
	Reference       string           `json:"reference"`
	Description     string           `json:"description"`
	Currency        string           `json:"currency" validate:"omitempty,len=3"`
	ExchangeRate    *decimal.Decimal `json:"exchange_rate"`
	Commit          string           `json:"commit" validate:"required,oneof=save submit post"`
	IdempotencyKey  string           `json:"idempotency_key"`
	Lines           []lineRequest    `json:"lines" validate:"required,min=1,dive"`
}

func (h *Handler) handleSubmit(w http.ResponseWriter, r *http.Request) {
	var req submitRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Bad Request", "malformed JSON body")
		return
	}
	if err := h.validate.Struct(req); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", err.Error())
		return
	}
	key := req.IdempotencyKey
	if key == "" {
		key = r.Header.Get("Idempotency-Key")
	}
	in := SubmitInput{
		DocTypeID: req.DocTypeID,
		JournalID: req.JournalID,
		Header: HeaderInput{
			Date:            req.Date,
			DocumentDate:    req.DocumentDate,
			TransactionDate: req.TransactionDate,
			Reference:       req.Reference,
			Description:     req.Description,
			Currency:        req.Currency,
			ExchangeRate:    req.ExchangeRate,
		},
		Commit:         CommitType(req.Commit),
		IdempotencyKey: key,
	}
	for _, l := range req.Lines {
		in.Lines = append(in.Lines, LineInput{
			Deleted:       l.Deleted,
			AccountRef:    l.Account,
			Debit:         l.Debit,
			Credit:        l.Credit,
			Description:   l.Description,
			DepartmentRef: l.Department,
			ProjectRef:    l.Project,
			CostCenterRef: l.CostCenter,
			TaxCodeID:     l.TaxCodeID,
			TxnAmount:     l.TxnAmount,
			TxnRate:       l.TxnRate,
			TxnType:       inventory.TxnType(l.TxnType),
			ProductID:     l.ProductID,
			WarehouseID:   l.WarehouseID,
			Quantity:      l.Quantity,
			UnitCost:      l.UnitCost,
			LocationID:    l.LocationID,
			BatchID:       l.BatchID,
		})
	}
	actor := shared.ActorFromContext(r.Context())
	journal, err := h.service.Submit(r.Context(), actor, in)
	if err != nil {
		h.respondError(w, "submit voucher", err)
		return
	}
	status := http.StatusCreated
	if req.JournalID != 0 {
		status = http.StatusOK
	}
	httpx.JSON(w, status, journal)
}

func (h *Handler) handleList(w http.ResponseWriter, r *http.Request) {
	limit, _ := strconv.Atoi(r.URL.Query().Get("limit"))
	if limit <= 0 || limit > 200 {
		limit = 50
	}
	actor := shared.ActorFromContext(r.Context())
	journals, err := h.service.List(r.Context(), actor, limit)
	if err != nil {
		h.respondError(w, "list vouchers", err)
		return
	}
	httpx.JSON(w, http.StatusOK, journals)
}

func (h *Handler) handleGet(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Bad Request", "invalid voucher id")
		return
	}
	actor := shared.ActorFromContext(r.Context())
	journal, err := h.service.Get(r.Context(), actor, id)
	if err != nil {
		h.respondError(w, "get voucher", err)
		return
	}
	httpx.JSON(w, http.StatusOK, journal)
}

func (h *Handler) handleApprove(w http.ResponseWriter, r *http.Request) {
	h.statusChange(w, r, "approve voucher", func(actor shared.Actor, id int64) (Journal, error) {
		return h.service.Approve(r.Context(), actor, id)
	})
}

func (h *Handler) handleReject(w http.ResponseWriter, r *http.Request) {
	var body struct {
		Reason string `json:"reason"`
	}
	_ = httpx.DecodeJSON(r, &body)
	h.statusChange(w, r, "reject voucher", func(actor shared.Actor, id int64) (Journal, error) {
		return h.service.Reject(r.Context(), actor, id, body.Reason)
	})
}

func (h *Handler) handleWithdraw(w http.ResponseWriter, r *http.Request) {
	h.statusChange(w, r, "withdraw voucher", func(actor shared.Actor, id int64) (Journal, error) {
		return h.service.Withdraw(r.Context(), actor, id)
	})
}

func (h *Handler) handlePost(w http.ResponseWriter, r *http.Request) {
	h.statusChange(w, r, "post voucher", func(actor shared.Actor, id int64) (Journal, error) {
		return h.service.Post(r.Context(), actor, id)
	})
}

func (h *Handler) handleReverse(w http.ResponseWriter, r *http.Request) {
	var body struct {
		Memo string `json:"memo"`
	}
	_ = httpx.DecodeJSON(r, &body)
	h.statusChange(w, r, "reverse voucher", func(actor shared.Actor, id int64) (Journal, error) {
		return h.service.Reverse(r.Context(), actor, id, body.Memo)
	})
}

func (h *Handler) statusChange(w http.ResponseWriter, r *http.Request, what string, fn func(shared.Actor, int64) (Journal, error)) {
	id, err := pathID(r)
	if err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Bad Request", "invalid voucher id")
		return
	}
	actor := shared.ActorFromContext(r.Context())
	journal, err := fn(actor, id)
	if err != nil {
		h.respondError(w, what, err)
		return
	}
	httpx.JSON(w, http.StatusOK, journal)
}

func (h *Handler) respondError(w http.ResponseWriter, what string, err error) {
	if !ledger.UserFacing(err) {
		h.logger.Error(what, slog.Any("error", err))
	}
	httpx.RespondError(w, err)
}

func pathID(r *http.Request) (int64, error) {
	return strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
}
