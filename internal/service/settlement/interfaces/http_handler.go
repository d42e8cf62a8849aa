package interfaces

import (
	"encoding/json"
	"net/http"
	"strconv"

	"github.com/pkg/errors"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/propagation"

	"bazaar/internal/pkg/logger"
	commissiondomain "bazaar/internal/service/commission/domain"
	"bazaar/internal/service/settlement/application"
	"bazaar/internal/service/settlement/domain"
)

// SettlementHandler 封装了 settlement 服务的 HTTP 处理器
type SettlementHandler struct {
	service *application.SettlementService
}

// NewSettlementHandler 创建一个新的 HTTP 处理器实例
func NewSettlementHandler(service *application.SettlementService) *SettlementHandler {
	return &SettlementHandler{service: service}
}

// RegisterRoutes 在 ServeMux 上注册所有路由
func (h *SettlementHandler) RegisterRoutes(mux *http.ServeMux) {
	mux.HandleFunc("/wallets/get", h.handleGetWallet)
	mux.HandleFunc("/wallets/transactions", h.handleListTransactions)
	mux.HandleFunc("/wallets/withdraw", h.handleWithdraw)
	mux.HandleFunc("/payouts/create", h.handleCreatePayout)
	mux.HandleFunc("/payouts/list", h.handleListPayouts)
	mux.HandleFunc("/payouts/get", h.handleGetPayout)
	mux.HandleFunc("/payouts/process", h.handleProcessPayout)
	mux.HandleFunc("/payouts/cancel", h.handleCancelPayout)
	mux.HandleFunc("/healthz", h.handleHealthz)
}

func extractContext(r *http.Request) *http.Request {
	propagator := otel.GetTextMapPropagator()
	ctx := propagator.Extract(r.Context(), propagation.HeaderCarrier(r.Header))
	return r.WithContext(ctx)
}

func (h *SettlementHandler) handleGetWallet(w http.ResponseWriter, r *http.Request) {
	r = extractContext(r)

	vendorID := r.URL.Query().Get("vendor_id")
	if vendorID == "" {
		http.Error(w, "Missing vendor_id", http.StatusBadRequest)
		return
	}

	resp, err := h.service.GetWallet(r.Context(), vendorID)
	if err != nil {
		writeSettlementError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, resp)
}

func (h *SettlementHandler) handleListTransactions(w http.ResponseWriter, r *http.Request) {
	r = extractContext(r)

	vendorID := r.URL.Query().Get("vendor_id")
	if vendorID == "" {
		http.Error(w, "Missing vendor_id", http.StatusBadRequest)
		return
	}
	page, _ := strconv.Atoi(r.URL.Query().Get("page"))
	limit, _ := strconv.Atoi(r.URL.Query().Get("limit"))

	resp, err := h.service.ListTransactions(r.Context(), vendorID, page, limit)
	if err != nil {
		writeSettlementError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, resp)
}

func (h *SettlementHandler) handleWithdraw(w http.ResponseWriter, r *http.Request) {
	r = extractContext(r)

	var req application.WithdrawRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "Invalid request body", http.StatusBadRequest)
		return
	}

	resp, err := h.service.RequestWithdrawal(r.Context(), &req)
	if err != nil {
		writeSettlementError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, resp)
}

func (h *SettlementHandler) handleCreatePayout(w http.ResponseWriter, r *http.Request) {
	r = extractContext(r)

	var req application.CreatePayoutRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "Invalid request body", http.StatusBadRequest)
		return
	}

	resp, err := h.service.CreatePayout(r.Context(), &req)
	if err != nil {
		writeSettlementError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, resp)
}

func (h *SettlementHandler) handleListPayouts(w http.ResponseWriter, r *http.Request) {
	r = extractContext(r)

	vendorID := r.URL.Query().Get("vendor_id")
	if vendorID == "" {
		http.Error(w, "Missing vendor_id", http.StatusBadRequest)
		return
	}
	page, _ := strconv.Atoi(r.URL.Query().Get("page"))
	limit, _ := strconv.Atoi(r.URL.Query().Get("limit"))

	resp, err := h.service.ListPayouts(r.Context(), vendorID, page, limit)
	if err != nil {
		writeSettlementError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, resp)
}

func (h *SettlementHandler) handleGetPayout(w http.ResponseWriter, r *http.Request) {
	r = extractContext(r)

	id, err := strconv.ParseInt(r.URL.Query().Get("id"), 10, 64)
	if err != nil {
		http.Error(w, "Invalid payout id", http.StatusBadRequest)
		return
	}

	resp, err := h.service.GetPayout(r.Context(), id)
	if err != nil {
		writeSettlementError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, resp)
}

func (h *SettlementHandler) handleProcessPayout(w http.ResponseWriter, r *http.Request) {
	r = extractContext(r)

	id, err := strconv.ParseInt(r.URL.Query().Get("id"), 10, 64)
	if err != nil {
		http.Error(w, "Invalid payout id", http.StatusBadRequest)
		return
	}

	resp, err := h.service.ProcessPayout(r.Context(), id)
	if err != nil {
		writeSettlementError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, resp)
}

func (h *SettlementHandler) handleCancelPayout(w http.ResponseWriter, r *http.Request) {
	r = extractContext(r)

	id, err := strconv.ParseInt(r.URL.Query().Get("id"), 10, 64)
	if err != nil {
		http.Error(w, "Invalid payout id", http.StatusBadRequest)
		return
	}

	resp, err := h.service.CancelPayout(r.Context(), id)
	if err != nil {
		writeSettlementError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, resp)
}

func (h *SettlementHandler) handleHealthz(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// writeSettlementError 根据领域错误类型映射 HTTP 状态码
func writeSettlementError(w http.ResponseWriter, r *http.Request, err error) {
	var statusCode int
	switch {
	case errors.Is(err, domain.ErrWalletNotFound),
		errors.Is(err, domain.ErrPayoutNotFound),
		errors.Is(err, commissiondomain.ErrNoApplicableRule):
		statusCode = http.StatusNotFound
	case errors.Is(err, domain.ErrInvalidAmount),
		errors.Is(err, domain.ErrInvalidPayoutPeriod):
		statusCode = http.StatusBadRequest
	case errors.Is(err, domain.ErrInsufficientBalance),
		errors.Is(err, domain.ErrPayoutStateInvalid),
		errors.Is(err, domain.ErrDuplicateBooking):
		statusCode = http.StatusConflict
	default:
		statusCode = http.StatusInternalServerError
		logger.Ctx(r.Context()).Error().Err(err).Str("path", r.URL.Path).Msg("request failed")
	}
	http.Error(w, err.Error(), statusCode)
}

func writeJSON(w http.ResponseWriter, status int, body interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(body)
}
