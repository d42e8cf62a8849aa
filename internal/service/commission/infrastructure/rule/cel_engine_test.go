package rule

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"bazaar/internal/service/commission/domain"
)

func TestCELEngineAdapter_Evaluate(t *testing.T) {
	engine, err := NewCELEngineAdapter()
	require.NoError(t, err)

	fact := domain.Fact{
		OrderValue: 600,
		VendorID:   "v-1",
		CategoryID: "cat-1",
		ProductID:  "p-1",
	}

	tests := []struct {
		name      string
		condition string
		want      bool
		wantErr   bool
	}{
		{name: "order value comparison", condition: "order_value > 500.0", want: true},
		{name: "order value comparison false", condition: "order_value > 1000.0", want: false},
		{name: "string equality", condition: "vendor_id == 'v-1'", want: true},
		{name: "compound expression", condition: "order_value >= 100.0 && category_id == 'cat-1'", want: true},
		{name: "syntax error", condition: "order_value >>> 5", wantErr: true},
		{name: "unknown variable", condition: "customer_tier == 'gold'", wantErr: true},
		{name: "non boolean result", condition: "order_value + 1.0", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := engine.Evaluate(tt.condition, fact)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestCELEngineAdapter_ProgramCacheReuse(t *testing.T) {
	engine, err := NewCELEngineAdapter()
	require.NoError(t, err)

	const condition = "order_value > 100.0"
	_, err = engine.Evaluate(condition, domain.Fact{OrderValue: 150})
	require.NoError(t, err)
	require.Contains(t, engine.programs, condition)

	// 第二次求值复用缓存的程序
	got, err := engine.Evaluate(condition, domain.Fact{OrderValue: 50})
	require.NoError(t, err)
	assert.False(t, got)
}
