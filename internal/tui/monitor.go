// SPDX-License-Identifier: MIT
package tui

import (
	"fmt"
	"math"
	"strings"
	"sync"

	"pulse/internal/analysis"
	"pulse/internal/render"
	"pulse/internal/transport"

	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/progress"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
)

const recentEvents = 8

var labelStyle = lipgloss.NewStyle().
	Foreground(lipgloss.Color("#7D7D7D")).
	Width(10)

type stateMsg render.State

type eventMsg analysis.Event

// MonitorModel shows the live render state.
type MonitorModel struct {
	state   render.State
	events  []string
	volume  progress.Model
	lens    progress.Model
	source  string
	waiting bool
}

// NewMonitorModel creates a monitor titled with source.
func NewMonitorModel(source string) MonitorModel {
	return MonitorModel{
		source:  source,
		volume:  progress.New(progress.WithDefaultGradient(), progress.WithWidth(40)),
		lens:    progress.New(progress.WithSolidFill("#25A065"), progress.WithWidth(40), progress.WithoutPercentage()),
		waiting: true,
	}
}

// Init implements tea.Model.
func (m MonitorModel) Init() tea.Cmd {
	return nil
}

// Update implements tea.Model.
func (m MonitorModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		if key.Matches(msg, key.NewBinding(key.WithKeys("q", "ctrl+c", "esc"))) {
			return m, tea.Quit
		}

	case tea.WindowSizeMsg:
		w := max(10, min(msg.Width-14, 60))
		m.volume.Width = w
		m.lens.Width = w

	case stateMsg:
		m.state = render.State(msg)
		m.waiting = false

	case eventMsg:
		m.events = append(m.events, analysis.Event(msg).String())
		if len(m.events) > recentEvents {
			m.events = m.events[len(m.events)-recentEvents:]
		}
	}
	return m, nil
}

// View implements tea.Model.
func (m MonitorModel) View() string {
	var sb strings.Builder
	sb.WriteString(titleStyle.Render("pulse monitor"))
	if m.source != "" {
		sb.WriteString(" " + infoStyle.Render(m.source))
	}
	sb.WriteString("\n\n")

	if m.waiting {
		sb.WriteString("Waiting for audio...\n")
	}

	s := m.state
	fmt.Fprintf(&sb, "%s%6.1f bpm  (target %.1f, accuracy %3.0f%%)\n",
		labelStyle.Render("Tempo"), s.BPM, s.TargetBPM, s.Accuracy*100)
	fmt.Fprintf(&sb, "%s%s\n", labelStyle.Render("Volume"), m.volume.ViewAs(clamp01(s.Volume)))
	fmt.Fprintf(&sb, "%s%s\n", labelStyle.Render("Lens"), m.lens.ViewAs(clamp01(s.Lens)))

	dir := "↻"
	if s.Sign < 0 {
		dir = "↺"
	}
	fmt.Fprintf(&sb, "%s%s %5.1f°\n", labelStyle.Render("Rotation"), dir, s.Theta*180/math.Pi)

	fmt.Fprintf(&sb, "%s%d\n\n", labelStyle.Render("Resets"), s.Resets)

	for _, e := range m.events {
		sb.WriteString(infoStyle.Render("  "+e) + "\n")
	}

	sb.WriteString("\n" + infoStyle.Render("q: Quit"))
	return sb.String()
}

func clamp01(v float64) float64 {
	return math.Max(0, math.Min(1, v))
}

// MessageSender is the part of *tea.Program the monitor transport uses.
type MessageSender interface {
	Send(msg tea.Msg)
}

// MonitorTransport forwards render states and events into a running
// bubbletea program without blocking the renderer.
type MonitorTransport struct {
	program MessageSender
	queue   chan tea.Msg
	done    chan struct{}
	once    sync.Once
	wg      sync.WaitGroup
}

// NewMonitorTransport starts forwarding to p.
func NewMonitorTransport(p MessageSender) *MonitorTransport {
	mt := &MonitorTransport{
		program: p,
		queue:   make(chan tea.Msg, 64),
		done:    make(chan struct{}),
	}
	mt.wg.Add(1)
	go mt.forward()
	return mt
}

func (mt *MonitorTransport) forward() {
	defer mt.wg.Done()
	for {
		select {
		case <-mt.done:
			return
		case msg := <-mt.queue:
			mt.program.Send(msg)
		}
	}
}

// Send queues a render.State or analysis.Event; other payloads are
// ignored. A full queue drops the payload.
func (mt *MonitorTransport) Send(data any) error {
	var msg tea.Msg
	switch v := data.(type) {
	case render.State:
		msg = stateMsg(v)
	case analysis.Event:
		msg = eventMsg(v)
	default:
		return nil
	}

	select {
	case <-mt.done:
		return transport.ErrClosed
	default:
	}
	select {
	case mt.queue <- msg:
	default:
	}
	return nil
}

// Close stops forwarding. It does not quit the program.
func (mt *MonitorTransport) Close() error {
	mt.once.Do(func() { close(mt.done) })
	mt.wg.Wait()
	return nil
}

var _ transport.Transport = (*MonitorTransport)(nil)
