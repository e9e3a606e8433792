package components

import (
	"strings"
	"testing"

	"github.com/charmbracelet/lipgloss"
	"github.com/stretchr/testify/assert"
)

func TestSparklineScrolls(t *testing.T) {
	s := NewSparkline(3, 1, "RPS", lipgloss.NewStyle())
	for _, v := range []uint64{1, 2, 3, 8} {
		s.Add(v)
	}
	assert.Equal(t, []uint64{2, 3, 8}, s.Data)
	assert.Equal(t, uint64(8), s.Max())
}

func TestSparklineView(t *testing.T) {
	s := NewSparkline(4, 1, "RPS", lipgloss.NewStyle())
	s.Add(0)
	s.Add(8)

	lines := strings.Split(s.View(), "\n")
	assert.Equal(t, "RPS 8 (max 8)", lines[0])
	assert.True(t, strings.HasPrefix(lines[1], " █"), "graph %q", lines[1])
}

func TestSparklineZeroWidth(t *testing.T) {
	s := NewSparkline(0, 1, "RPS", lipgloss.NewStyle())
	assert.Empty(t, s.View())
}
