package status

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/custodia-labs/policyqa/internal/adapters/driving/tui/keymap"
	"github.com/custodia-labs/policyqa/internal/core/domain"
)

func TestNewBar(t *testing.T) {
	bar := NewBar(nil, nil)

	require.NotNil(t, bar)
	assert.NotNil(t, bar.styles)
	assert.Equal(t, StateReady, bar.State())
	assert.Empty(t, bar.Message())
	assert.Equal(t, 80, bar.Width())
}

func TestBar_View(t *testing.T) {
	tests := []struct {
		name  string
		setup func(b *Bar)
		want  []string
	}{
		{"ready", func(_ *Bar) {}, []string{"Ready", "enter: send"}},
		{"opening", func(b *Bar) { b.SetDocument("policy.pdf"); b.SetState(StateOpening) }, []string{"policy.pdf", "Indexing..."}},
		{"thinking", func(b *Bar) { b.SetState(StateThinking) }, []string{"Thinking..."}},
		{"error", func(b *Bar) { b.SetState(StateError); b.SetMessage("no such file") }, []string{"Error: no such file"}},
		{"clarification", func(b *Bar) { b.SetPhase(domain.PhaseAwaitingClarification) }, []string{"awaiting clarification"}},
		{"message", func(b *Bar) { b.SetMessage("42 passages") }, []string{"42 passages"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			bar := NewBar(nil, keymap.DefaultKeyMap().PickerHelp())
			bar.SetWidth(200)
			tt.setup(bar)

			view := bar.View()
			for _, w := range tt.want {
				assert.Contains(t, view, w)
			}
		})
	}
}

func TestBar_Clear(t *testing.T) {
	bar := NewBar(nil, nil)
	bar.SetState(StateError)
	bar.SetMessage("boom")
	bar.SetDocument("policy.pdf")
	bar.SetPhase(domain.PhaseAwaitingClarification)

	bar.Clear()

	assert.Equal(t, StateReady, bar.State())
	assert.Empty(t, bar.Message())
	assert.Contains(t, bar.View(), "Ready")
}
