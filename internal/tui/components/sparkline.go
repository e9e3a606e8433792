package components

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss"
)

var levels = []rune(" ▁▂▃▄▅▆▇█")

// Sparkline is a one-row scrolling chart of the last Width samples.
type Sparkline struct {
	Data  []uint64
	Width int
	Style lipgloss.Style
	Label string
}

func NewSparkline(width, _ int, label string, style lipgloss.Style) Sparkline {
	return Sparkline{
		Width: width,
		Label: label,
		Style: style,
		Data:  make([]uint64, 0, width),
	}
}

func (s *Sparkline) Add(val uint64) {
	s.Data = append(s.Data, val)
	if s.Width > 0 && len(s.Data) > s.Width {
		s.Data = s.Data[len(s.Data)-s.Width:]
	}
}

// Max is the largest visible sample.
func (s Sparkline) Max() uint64 {
	var m uint64
	for _, v := range s.Data {
		if v > m {
			m = v
		}
	}
	return m
}

func (s Sparkline) View() string {
	if s.Width <= 0 {
		return ""
	}

	label := s.Label
	if n := len(s.Data); n > 0 {
		label = fmt.Sprintf("%s %d (max %d)", s.Label, s.Data[n-1], s.Max())
	}

	data := s.Data
	if len(data) > s.Width {
		data = data[len(data)-s.Width:]
	}

	top := s.Max()
	var graph strings.Builder
	for _, v := range data {
		idx := 0
		if top > 0 {
			idx = int(float64(v) / float64(top) * float64(len(levels)-1))
		}
		graph.WriteRune(levels[idx])
	}
	if pad := s.Width - len(data); pad > 0 {
		graph.WriteString(strings.Repeat(" ", pad))
	}

	return s.Style.Render(label) + "\n" + s.Style.Render(graph.String())
}
