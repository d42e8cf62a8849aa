package domain

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestScope_Validate(t *testing.T) {
	tests := []struct {
		name    string
		scope   Scope
		wantErr bool
	}{
		{name: "global", scope: GlobalScope()},
		{name: "category", scope: CategoryScope("cat-1")},
		{name: "vendor", scope: VendorScope("v-1")},
		{name: "product", scope: ProductScope("p-1")},
		{name: "global with target id", scope: Scope{Kind: ScopeGlobal, TargetID: "x"}, wantErr: true},
		{name: "vendor without target id", scope: Scope{Kind: ScopeVendor}, wantErr: true},
		{name: "unknown kind", scope: Scope{Kind: "REGION", TargetID: "eu"}, wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.scope.Validate()
			if tt.wantErr {
				assert.ErrorIs(t, err, ErrInvalidScope)
				return
			}
			assert.NoError(t, err)
		})
	}
}

func TestScope_Key(t *testing.T) {
	assert.Equal(t, "GLOBAL", GlobalScope().Key())
	assert.Equal(t, "CATEGORY:cat-1", CategoryScope("cat-1").Key())
	assert.Equal(t, "VENDOR:v-1", VendorScope("v-1").Key())
	assert.Equal(t, "PRODUCT:p-1", ProductScope("p-1").Key())
}
