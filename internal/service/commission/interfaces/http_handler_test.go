package interfaces

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel"

	"bazaar/internal/service/commission/application"
	"bazaar/internal/service/commission/domain"
)

// stubRuleRepository 只实现 handler 测试需要的最小行为
type stubRuleRepository struct {
	rules map[int64]*domain.CommissionRule
}

func newStubRuleRepository() *stubRuleRepository {
	return &stubRuleRepository{rules: make(map[int64]*domain.CommissionRule)}
}

func (s *stubRuleRepository) Create(ctx context.Context, rule *domain.CommissionRule) error {
	rule.ID = int64(len(s.rules) + 1)
	s.rules[rule.ID] = rule
	return nil
}

func (s *stubRuleRepository) Update(ctx context.Context, rule *domain.CommissionRule) error {
	if _, ok := s.rules[rule.ID]; !ok {
		return domain.ErrRuleNotFound
	}
	s.rules[rule.ID] = rule
	return nil
}

func (s *stubRuleRepository) Delete(ctx context.Context, id int64) error {
	if _, ok := s.rules[id]; !ok {
		return domain.ErrRuleNotFound
	}
	delete(s.rules, id)
	return nil
}

func (s *stubRuleRepository) FindByID(ctx context.Context, id int64) (*domain.CommissionRule, error) {
	rule, ok := s.rules[id]
	if !ok {
		return nil, domain.ErrRuleNotFound
	}
	return rule, nil
}

func (s *stubRuleRepository) List(ctx context.Context, filter domain.ListFilter) ([]*domain.CommissionRule, int64, error) {
	var all []*domain.CommissionRule
	for _, rule := range s.rules {
		all = append(all, rule)
	}
	return all, int64(len(all)), nil
}

func (s *stubRuleRepository) FindActiveByScope(ctx context.Context, scope domain.Scope) ([]*domain.CommissionRule, error) {
	var active []*domain.CommissionRule
	for _, rule := range s.rules {
		if rule.IsActive && rule.Scope.Key() == scope.Key() {
			active = append(active, rule)
		}
	}
	return active, nil
}

func (s *stubRuleRepository) FindGlobalDefault(ctx context.Context) (*domain.CommissionRule, error) {
	return nil, domain.ErrRuleNotFound
}

func (s *stubRuleRepository) Stats(ctx context.Context) (*domain.RuleStats, error) {
	return &domain.RuleStats{
		ByScope: make(map[domain.ScopeKind]int64),
		ByType:  make(map[domain.RuleType]int64),
	}, nil
}

func newTestMux(t *testing.T) (*http.ServeMux, *stubRuleRepository) {
	t.Helper()
	repo := newStubRuleRepository()
	svc := application.NewCommissionService(repo, nil, otel.Tracer("test"))
	mux := http.NewServeMux()
	NewCommissionHandler(svc).RegisterRoutes(mux)
	return mux, repo
}

func postJSON(t *testing.T, mux *http.ServeMux, path string, body interface{}) *httptest.ResponseRecorder {
	t.Helper()
	payload, err := json.Marshal(body)
	require.NoError(t, err)
	req := httptest.NewRequest(http.MethodPost, path, bytes.NewReader(payload))
	rec := httptest.NewRecorder()
	mux.ServeHTTP(rec, req)
	return rec
}

func TestCreateRuleEndpoint(t *testing.T) {
	mux, _ := newTestMux(t)

	rec := postJSON(t, mux, "/commissions/create", map[string]interface{}{
		"name":      "vendor special",
		"type":      "PERCENTAGE",
		"value":     7.5,
		"scope":     "VENDOR",
		"vendor_id": "v-1",
	})
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())

	var resp application.RuleResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.NotZero(t, resp.ID)
	assert.Equal(t, "v-1", resp.VendorID)
}

func TestCreateRuleEndpoint_InvalidScope(t *testing.T) {
	mux, _ := newTestMux(t)

	rec := postJSON(t, mux, "/commissions/create", map[string]interface{}{
		"name":       "bad",
		"type":       "PERCENTAGE",
		"value":      5,
		"scope":      "VENDOR",
		"product_id": "p-1",
		"vendor_id":  "v-1",
	})
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestGetRuleEndpoint_NotFound(t *testing.T) {
	mux, _ := newTestMux(t)

	req := httptest.NewRequest(http.MethodGet, "/commissions/get?id=42", nil)
	rec := httptest.NewRecorder()
	mux.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestCalculateEndpoint(t *testing.T) {
	mux, _ := newTestMux(t)

	rec := postJSON(t, mux, "/commissions/create", map[string]interface{}{
		"name":      "vendor rule",
		"type":      "PERCENTAGE",
		"value":     10,
		"scope":     "VENDOR",
		"vendor_id": "v-1",
	})
	require.Equal(t, http.StatusCreated, rec.Code)

	rec = postJSON(t, mux, "/commissions/calculate", map[string]interface{}{
		"vendor_id":   "v-1",
		"order_value": 250,
	})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	var resp application.CalculateResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.InDelta(t, 25.0, resp.Amount, 1e-9)
	assert.Equal(t, "vendor rule", resp.Commission.Name)
}

func TestCalculateEndpoint_RuleNotYetActive(t *testing.T) {
	mux, _ := newTestMux(t)

	rec := postJSON(t, mux, "/commissions/create", map[string]interface{}{
		"name":       "starts next week",
		"type":       "PERCENTAGE",
		"value":      10,
		"scope":      "VENDOR",
		"vendor_id":  "v-1",
		"start_date": time.Now().Add(7 * 24 * time.Hour),
	})
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())

	rec = postJSON(t, mux, "/commissions/calculate", map[string]interface{}{
		"vendor_id":   "v-1",
		"order_value": 100,
	})
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestCalculateEndpoint_NoApplicableRule(t *testing.T) {
	mux, _ := newTestMux(t)

	rec := postJSON(t, mux, "/commissions/calculate", map[string]interface{}{
		"vendor_id":   "v-404",
		"order_value": 100,
	})
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestDeleteRuleEndpoint(t *testing.T) {
	mux, repo := newTestMux(t)

	rec := postJSON(t, mux, "/commissions/create", map[string]interface{}{
		"name":  "to delete",
		"type":  "FLAT",
		"value": 5,
		"scope": "GLOBAL",
	})
	require.Equal(t, http.StatusCreated, rec.Code)

	req := httptest.NewRequest(http.MethodPost, "/commissions/delete?id=1", nil)
	del := httptest.NewRecorder()
	mux.ServeHTTP(del, req)
	assert.Equal(t, http.StatusOK, del.Code)
	assert.Empty(t, repo.rules)
}

func TestHealthzEndpoint(t *testing.T) {
	mux, _ := newTestMux(t)

	req := httptest.NewRequest(http.MethodGet, "/healthz", nil)
	rec := httptest.NewRecorder()
	mux.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusOK, rec.Code)
}
