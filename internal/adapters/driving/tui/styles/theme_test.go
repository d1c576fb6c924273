package styles

import (
	"testing"

	"github.com/charmbracelet/lipgloss"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/custodia-labs/policyqa/internal/core/domain"
)

func TestDefaultTheme(t *testing.T) {
	theme := DefaultTheme()

	require.NotNil(t, theme)
	seen := make(map[string]bool)
	for _, c := range []string{
		string(theme.Primary), string(theme.Secondary), string(theme.Success),
		string(theme.Warning), string(theme.Error),
	} {
		assert.NotEmpty(t, c)
		assert.False(t, seen[c], "duplicate colour %s", c)
		seen[c] = true
	}
}

func TestNewStyles_NilTheme(t *testing.T) {
	s := NewStyles(nil)

	require.NotNil(t, s)
	assert.NotNil(t, s.Theme())
}

func TestStyles_Decision(t *testing.T) {
	s := DefaultStyles()
	theme := s.Theme()

	tests := []struct {
		name    string
		verdict domain.Verdict
		want    lipgloss.Color
	}{
		{"approved", domain.Verdict{Status: domain.VerdictSufficient, Decision: domain.DecisionApproved}, theme.Success},
		{"not approved", domain.Verdict{Status: domain.VerdictSufficient, Decision: domain.DecisionNotApproved}, theme.Error},
		{"insufficient", domain.Verdict{Status: domain.VerdictInsufficient, Decision: domain.DecisionInsufficient}, theme.Warning},
		{"error", domain.ErrorVerdict(nil), theme.Error},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			style := s.Decision(tt.verdict)
			assert.Equal(t, tt.want, style.GetForeground())
			assert.True(t, style.GetBold())
		})
	}
}
