// internal/notify/render_test.go
package notify

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestRender(t *testing.T) {
	tests := []struct {
		name     string
		tmpl     string
		data     map[string]interface{}
		expected string
	}{
		{
			name:     "replaces string placeholders",
			tmpl:     "Quittance {{period}} pour {{tenantName}}",
			data:     map[string]interface{}{"period": "2025-03", "tenantName": "Marie Dupont"},
			expected: "Quittance 2025-03 pour Marie Dupont",
		},
		{
			name:     "replaces numeric placeholders",
			tmpl:     "Jour limite: {{deadlineDay}}",
			data:     map[string]interface{}{"deadlineDay": 5},
			expected: "Jour limite: 5",
		},
		{
			name:     "removes missing placeholders",
			tmpl:     "Bonjour {{tenantName}}, reference {{missing}}.",
			data:     map[string]interface{}{"tenantName": "Marie"},
			expected: "Bonjour Marie, reference .",
		},
		{
			name:     "nil value renders empty",
			tmpl:     "x{{v}}y",
			data:     map[string]interface{}{"v": nil},
			expected: "xy",
		},
		{
			name:     "no placeholders",
			tmpl:     "plain text",
			data:     map[string]interface{}{"period": "2025-03"},
			expected: "plain text",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, Render(tt.tmpl, tt.data))
		})
	}
}
