package cli

import (
	"context"
	"fmt"
	"path"
	"strings"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/heyharoon/vpo/pkg/frames"
	"github.com/heyharoon/vpo/pkg/loader"
)

// loadLogSize is how many per-frame results the load view keeps.
const loadLogSize = 10

const barWidth = 32

var (
	barFullStyle  = lipgloss.NewStyle().Foreground(colorCyan)
	barEmptyStyle = lipgloss.NewStyle().Foreground(colorDim)
)

// =============================================================================
// Messages
// =============================================================================

type (
	frameMsg    struct{ slot frames.Slot }
	progressMsg struct{ loaded, total int }
	loadDoneMsg struct {
		res *loader.Result
		err error
	}
	spinMsg struct{}
)

// =============================================================================
// LoadModel - Live frame load progress
// =============================================================================

// LoadModel is the bubbletea model shown while a scene loads: a progress
// bar, counts and the last few per-frame results.
type LoadModel struct {
	Scene string
	Spec  frames.Spec

	Loaded int
	Total  int
	Failed int
	Log    []string

	Result  *loader.Result
	Err     error
	Aborted bool

	start  time.Time
	spin   int
	cancel context.CancelFunc
	done   bool
}

// NewLoadModel creates the view for loading spec. cancel aborts the load
// when the user quits.
func NewLoadModel(scene string, spec frames.Spec, cancel context.CancelFunc) LoadModel {
	return LoadModel{
		Scene:  scene,
		Spec:   spec,
		Total:  spec.Count(),
		start:  time.Now(),
		cancel: cancel,
	}
}

func (m LoadModel) Init() tea.Cmd {
	return spin()
}

func spin() tea.Cmd {
	return tea.Tick(80*time.Millisecond, func(time.Time) tea.Msg { return spinMsg{} })
}

func (m LoadModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		switch msg.String() {
		case "q", "ctrl+c", "esc":
			m.Aborted = true
			if m.cancel != nil {
				m.cancel()
			}
			return m, tea.Quit
		}
	case frameMsg:
		if msg.slot.State == frames.SlotAbsent {
			m.Failed++
		}
		m.Log = append(m.Log, loadLogLine(m.Spec, msg.slot))
		if len(m.Log) > loadLogSize {
			m.Log = m.Log[len(m.Log)-loadLogSize:]
		}
	case progressMsg:
		m.Loaded, m.Total = msg.loaded, msg.total
	case loadDoneMsg:
		m.Result, m.Err, m.done = msg.res, msg.err, true
		return m, tea.Quit
	case spinMsg:
		if m.done {
			return m, nil
		}
		m.spin++
		return m, spin()
	}
	return m, nil
}

func (m LoadModel) View() string {
	var b strings.Builder

	b.WriteString(StyleTitle.Render("Loading " + m.Scene))
	b.WriteString("\n\n")

	pct := 0.0
	if m.Total > 0 {
		pct = float64(m.Loaded) / float64(m.Total)
	}
	full := int(pct * barWidth)
	b.WriteString(barFullStyle.Render(strings.Repeat("█", full)))
	b.WriteString(barEmptyStyle.Render(strings.Repeat("░", barWidth-full)))
	b.WriteString(fmt.Sprintf(" %3.0f%%  ", pct*100))
	b.WriteString(StyleDim.Render(fmt.Sprintf("%d/%d", m.Loaded, m.Total)))
	if m.Failed > 0 {
		b.WriteString("  " + StyleWarning.Render(fmt.Sprintf("%d failed", m.Failed)))
	}
	b.WriteString("\n\n")

	for _, line := range m.Log {
		b.WriteString("  " + line + "\n")
	}
	if !m.done {
		b.WriteString("\n" + StyleDim.Render(fmt.Sprintf("%s  q quit", time.Since(m.start).Round(100*time.Millisecond))))
	}
	b.WriteString("\n")
	return b.String()
}

// loadLogLine is one entry of the load log, e.g. "✓ Loaded frame12.jpg".
func loadLogLine(spec frames.Spec, slot frames.Slot) string {
	name := path.Base(spec.URL(slot.Number))
	if slot.State == frames.SlotAbsent {
		return styleIconError.Render(iconError) + " Failed " + name
	}
	return styleIconSuccess.Render(iconSuccess) + " Loaded " + name
}
