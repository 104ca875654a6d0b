// SPDX-License-Identifier: MIT
package tui

import (
	"fmt"
	"math"
	"strings"

	"pulse/internal/audio"

	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
)

// captureRates are the sample rates offered for an input device.
var captureRates = []int{8000, 16000, 22050, 44100, 48000, 88200, 96000}

var (
	headerStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#FFFDF5")).
			Background(lipgloss.Color("#25A065")).
			Padding(0, 1).
			Bold(true)
	hintStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("#7D7D7D"))
	cursorStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("#25A065")).Bold(true)
)

type pickerKeys struct {
	Up, Down, Choose, Back, Quit key.Binding
}

var keys = pickerKeys{
	Up:     key.NewBinding(key.WithKeys("up", "k")),
	Down:   key.NewBinding(key.WithKeys("down", "j")),
	Choose: key.NewBinding(key.WithKeys("enter")),
	Back:   key.NewBinding(key.WithKeys("esc")),
	Quit:   key.NewBinding(key.WithKeys("q", "ctrl+c")),
}

// pickerStep is the question the browser is asking.
type pickerStep int

const (
	pickDevice pickerStep = iota
	pickRate
)

// Selection is the device and sample rate confirmed by the user.
type Selection struct {
	DeviceID   int
	Name       string
	SampleRate int
}

type devicesMsg []audio.Device

type errMsg struct{ err error }

// DeviceListModel lets the user pick a capture device and then its
// sample rate. The result is read with Selection once the program quits.
type DeviceListModel struct {
	list    func() ([]audio.Device, error)
	devices []audio.Device
	err     error

	step      pickerStep
	device    int // cursor in devices
	rate      int // cursor in captureRates
	body      viewport.Model
	sized     bool
	selection *Selection
}

// NewDeviceListModel creates a device browser fed by list, usually
// audio.InputDevices.
func NewDeviceListModel(list func() ([]audio.Device, error)) DeviceListModel {
	return DeviceListModel{list: list}
}

// Init loads the device list.
func (m DeviceListModel) Init() tea.Cmd {
	list := m.list
	return func() tea.Msg {
		devices, err := list()
		if err != nil {
			return errMsg{err}
		}
		return devicesMsg(devices)
	}
}

// Update implements tea.Model.
func (m DeviceListModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		if !m.sized {
			m.body = viewport.New(msg.Width, msg.Height-4)
			m.sized = true
		} else {
			m.body.Width, m.body.Height = msg.Width, msg.Height-4
		}

	case devicesMsg:
		m.devices = msg

	case errMsg:
		m.err = msg.err

	case tea.KeyMsg:
		if key.Matches(msg, keys.Quit) {
			return m, tea.Quit
		}
		if len(m.devices) == 0 {
			break
		}
		switch m.step {
		case pickDevice:
			m.device = moveCursor(msg, m.device, len(m.devices))
			if key.Matches(msg, keys.Choose) {
				m.step = pickRate
				m.rate = nearestRate(m.devices[m.device].DefaultSampleRate)
			}
		case pickRate:
			m.rate = moveCursor(msg, m.rate, len(captureRates))
			switch {
			case key.Matches(msg, keys.Back):
				m.step = pickDevice
			case key.Matches(msg, keys.Choose):
				d := m.devices[m.device]
				m.selection = &Selection{DeviceID: d.ID, Name: d.Name, SampleRate: captureRates[m.rate]}
				return m, tea.Quit
			}
		}
	}

	m.body.SetContent(m.content())
	if _, ok := msg.(tea.KeyMsg); ok {
		// Keys move the cursor, not the viewport.
		return m, nil
	}
	var cmd tea.Cmd
	m.body, cmd = m.body.Update(msg)
	return m, cmd
}

// moveCursor applies up and down keys to a cursor over n items.
func moveCursor(msg tea.KeyMsg, cursor, n int) int {
	switch {
	case key.Matches(msg, keys.Up) && cursor > 0:
		return cursor - 1
	case key.Matches(msg, keys.Down) && cursor < n-1:
		return cursor + 1
	}
	return cursor
}

// nearestRate returns the index of the offered rate closest to hz.
func nearestRate(hz float64) int {
	best := 0
	for i, r := range captureRates {
		if math.Abs(float64(r)-hz) < math.Abs(float64(captureRates[best])-hz) {
			best = i
		}
	}
	return best
}

// View implements tea.Model.
func (m DeviceListModel) View() string {
	if !m.sized {
		return "Initializing..."
	}
	if m.err != nil {
		return fmt.Sprintf("Error: %v\n\nPress q to exit.", m.err)
	}

	header, hint := "Input Devices", "↑/↓ move • enter choose • q quit"
	if m.step == pickRate {
		header, hint = "Sample Rate", "↑/↓ move • enter use • esc back • q quit"
	}
	return headerStyle.Render(header) + "\n\n" + m.body.View() + "\n\n" + hintStyle.Render(hint)
}

func (m DeviceListModel) content() string {
	if len(m.devices) == 0 {
		return "No input devices found."
	}

	var sb strings.Builder
	if m.step == pickRate {
		fmt.Fprintf(&sb, "Configure Device: %s\n\n", m.devices[m.device].Name)
		for i, r := range captureRates {
			sb.WriteString(row(i == m.rate, fmt.Sprintf("%d Hz", r)))
		}
		return sb.String()
	}

	for i, d := range m.devices {
		line := fmt.Sprintf("[%d] %s (%s)\n      %d in / %d out, %.0f Hz default\n",
			d.ID, d.Name, direction(d), d.MaxInputChannels, d.MaxOutputChannels, d.DefaultSampleRate)
		sb.WriteString(row(i == m.device, line))
	}
	return sb.String()
}

func row(selected bool, text string) string {
	if !strings.HasSuffix(text, "\n") {
		text += "\n"
	}
	if selected {
		return cursorStyle.Render("▶ " + text)
	}
	return "  " + text
}

func direction(d audio.Device) string {
	switch {
	case d.MaxInputChannels > 0 && d.MaxOutputChannels > 0:
		return "Input/Output"
	case d.MaxInputChannels > 0:
		return "Input"
	default:
		return "Output"
	}
}

// Selection returns the confirmed choice, or false if the user quit.
func (m DeviceListModel) Selection() (Selection, bool) {
	if m.selection == nil {
		return Selection{}, false
	}
	return *m.selection, true
}

// StartDeviceListUI runs the device browser. PortAudio must be
// initialized.
func StartDeviceListUI() (Selection, bool, error) {
	final, err := tea.NewProgram(NewDeviceListModel(audio.InputDevices), tea.WithAltScreen()).Run()
	if err != nil {
		return Selection{}, false, err
	}
	sel, ok := final.(DeviceListModel).Selection()
	return sel, ok, nil
}
