package interfaces

import (
	"encoding/json"
	"net/http"
	"strconv"
	"time"

	"github.com/pkg/errors"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/propagation"

	"bazaar/internal/pkg/logger"
	"bazaar/internal/service/commission/application"
	"bazaar/internal/service/commission/domain"
)

// CommissionHandler 封装了 commission 服务的 HTTP 处理器
type CommissionHandler struct {
	service *application.CommissionService
}

// NewCommissionHandler 创建一个新的 HTTP 处理器实例
func NewCommissionHandler(service *application.CommissionService) *CommissionHandler {
	return &CommissionHandler{service: service}
}

// RegisterRoutes 在 ServeMux 上注册所有路由
func (h *CommissionHandler) RegisterRoutes(mux *http.ServeMux) {
	mux.HandleFunc("/commissions/create", h.handleCreateRule)
	mux.HandleFunc("/commissions/update", h.handleUpdateRule)
	mux.HandleFunc("/commissions/delete", h.handleDeleteRule)
	mux.HandleFunc("/commissions/get", h.handleGetRule)
	mux.HandleFunc("/commissions/list", h.handleListRules)
	mux.HandleFunc("/commissions/calculate", h.handleCalculate)
	mux.HandleFunc("/commissions/stats", h.handleStats)
	mux.HandleFunc("/healthz", h.handleHealthz)
}

func extractContext(r *http.Request) *http.Request {
	propagator := otel.GetTextMapPropagator()
	ctx := propagator.Extract(r.Context(), propagation.HeaderCarrier(r.Header))
	return r.WithContext(ctx)
}

func (h *CommissionHandler) handleCreateRule(w http.ResponseWriter, r *http.Request) {
	r = extractContext(r)

	var req application.RuleInput
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "Invalid request body", http.StatusBadRequest)
		return
	}

	resp, err := h.service.CreateRule(r.Context(), &req)
	if err != nil {
		writeRuleError(w, r, err)
		return
	}

	writeJSON(w, http.StatusCreated, resp)
}

func (h *CommissionHandler) handleUpdateRule(w http.ResponseWriter, r *http.Request) {
	r = extractContext(r)

	var req application.UpdateRuleRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "Invalid request body", http.StatusBadRequest)
		return
	}

	resp, err := h.service.UpdateRule(r.Context(), &req)
	if err != nil {
		writeRuleError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, resp)
}

func (h *CommissionHandler) handleDeleteRule(w http.ResponseWriter, r *http.Request) {
	r = extractContext(r)

	id, err := strconv.ParseInt(r.URL.Query().Get("id"), 10, 64)
	if err != nil {
		http.Error(w, "Invalid rule id", http.StatusBadRequest)
		return
	}

	if err := h.service.DeleteRule(r.Context(), id); err != nil {
		writeRuleError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]interface{}{
		"success": true,
		"message": "Commission rule deleted.",
	})
}

func (h *CommissionHandler) handleGetRule(w http.ResponseWriter, r *http.Request) {
	r = extractContext(r)

	id, err := strconv.ParseInt(r.URL.Query().Get("id"), 10, 64)
	if err != nil {
		http.Error(w, "Invalid rule id", http.StatusBadRequest)
		return
	}

	resp, err := h.service.GetRule(r.Context(), id)
	if err != nil {
		writeRuleError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, resp)
}

func (h *CommissionHandler) handleListRules(w http.ResponseWriter, r *http.Request) {
	r = extractContext(r)

	filter, err := parseListFilter(r)
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	resp, err := h.service.ListRules(r.Context(), filter)
	if err != nil {
		writeRuleError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, resp)
}

func (h *CommissionHandler) handleCalculate(w http.ResponseWriter, r *http.Request) {
	r = extractContext(r)

	var req application.CalculateRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "Invalid request body", http.StatusBadRequest)
		return
	}

	resp, err := h.service.Calculate(r.Context(), &req)
	if err != nil {
		writeRuleError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, resp)
}

func (h *CommissionHandler) handleStats(w http.ResponseWriter, r *http.Request) {
	r = extractContext(r)

	resp, err := h.service.Stats(r.Context())
	if err != nil {
		writeRuleError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, resp)
}

func (h *CommissionHandler) handleHealthz(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// writeRuleError 根据领域错误类型映射 HTTP 状态码
func writeRuleError(w http.ResponseWriter, r *http.Request, err error) {
	var statusCode int
	switch {
	case errors.Is(err, domain.ErrRuleNotFound),
		errors.Is(err, domain.ErrNoApplicableRule):
		statusCode = http.StatusNotFound
	case errors.Is(err, domain.ErrInvalidScope),
		errors.Is(err, domain.ErrInvalidRuleValue),
		errors.Is(err, domain.ErrInvalidDateRange),
		errors.Is(err, domain.ErrInvalidOrderValueRange),
		errors.Is(err, domain.ErrRuleNotCurrentlyActive),
		errors.Is(err, domain.ErrOrderValueBelowMinimum),
		errors.Is(err, domain.ErrOrderValueAboveMaximum):
		statusCode = http.StatusBadRequest
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

func parseListFilter(r *http.Request) (domain.ListFilter, error) {
	q := r.URL.Query()
	filter := domain.ListFilter{
		SortBy:    q.Get("sort_by"),
		SortOrder: q.Get("sort_order"),
		TargetID:  q.Get("target_id"),
	}

	if v := q.Get("page"); v != "" {
		page, err := strconv.Atoi(v)
		if err != nil {
			return filter, errors.New("invalid page parameter")
		}
		filter.Page = page
	}
	if v := q.Get("limit"); v != "" {
		limit, err := strconv.Atoi(v)
		if err != nil {
			return filter, errors.New("invalid limit parameter")
		}
		filter.Limit = limit
	}
	if v := q.Get("scope_kind"); v != "" {
		kind := domain.ScopeKind(v)
		filter.ScopeKind = &kind
	}
	if v := q.Get("type"); v != "" {
		ruleType := domain.RuleType(v)
		filter.Type = &ruleType
	}
	if v := q.Get("is_active"); v != "" {
		isActive := v == "true"
		filter.IsActive = &isActive
	}
	if v := q.Get("is_default"); v != "" {
		isDefault := v == "true"
		filter.IsDefault = &isDefault
	}
	if v := q.Get("created_from"); v != "" {
		t, err := time.Parse(time.RFC3339, v)
		if err != nil {
			return filter, errors.New("invalid created_from parameter, expected RFC3339")
		}
		filter.CreatedFrom = &t
	}
	if v := q.Get("created_to"); v != "" {
		t, err := time.Parse(time.RFC3339, v)
		if err != nil {
			return filter, errors.New("invalid created_to parameter, expected RFC3339")
		}
		filter.CreatedTo = &t
	}
	return filter, nil
}
