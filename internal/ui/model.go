// Package ui is the interactive terminal front end. It forwards edits and
// key presses to the query coordinator and renders the snapshots it
// publishes.
package ui

import (
	"fmt"
	"math"
	"math/rand"
	"strings"

	"github.com/charmbracelet/bubbles/help"
	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/spinner"
	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/pkg/browser"

	"github.com/cloo-solutions/semantrics/internal/coordinator"
	"github.com/cloo-solutions/semantrics/internal/domain"
	"github.com/cloo-solutions/semantrics/internal/logger"
)

const (
	appTitle       = "Semantrics Demo App"
	placeholder    = "Search NPM Packages"
	loadingText    = "Loading..."
	defaultConvert = "purchase"
)

// Controller is the slice of the coordinator the UI drives.
type Controller interface {
	SetQueryText(text string)
	Search(query string) *coordinator.Task
	ClickShown(query string, shown domain.ResultRecord) (domain.ResultRecord, error)
	Convert(eventName string, eventValue float64) error
	State() coordinator.State
}

// IdentityResetter mints a new session identity.
type IdentityResetter interface {
	Reset() string
}

// Options tune a Model. Zero values select the defaults.
type Options struct {
	// Opener opens a clicked result. Defaults to the system browser.
	Opener func(url string) error
	// ConversionName is the event name sent by the convert key.
	ConversionName string
	// Rand returns a value in [0,1) used for simulated conversion values.
	Rand   func() float64
	Logger logger.Logger
}

type focus int

const (
	focusInput focus = iota
	focusList
)

// Model is the bubbletea model for the search screen.
type Model struct {
	ctrl   Controller
	ids    IdentityResetter
	logger logger.Logger

	opener         func(string) error
	conversionName string
	rand           func() float64

	input   textinput.Model
	spinner spinner.Model
	help    help.Model
	keys    keyMap
	styles  Styles

	state     coordinator.State
	focus     focus
	cursor    int
	offset    int
	status    string
	statusErr bool
	width     int
	height    int
}

// NewModel returns a model bound to ctrl.
func NewModel(ctrl Controller, ids IdentityResetter, opts Options) *Model {
	if opts.Opener == nil {
		opts.Opener = browser.OpenURL
	}
	if opts.ConversionName == "" {
		opts.ConversionName = defaultConvert
	}
	if opts.Rand == nil {
		opts.Rand = rand.Float64
	}
	if opts.Logger == nil {
		opts.Logger = logger.NewNop()
	}

	ti := textinput.New()
	ti.Placeholder = placeholder
	ti.Prompt = "🔍 "
	ti.CharLimit = 256
	ti.Width = 48
	ti.Focus()

	sp := spinner.New()
	sp.Spinner = spinner.Dot

	return &Model{
		ctrl:           ctrl,
		ids:            ids,
		logger:         opts.Logger.With(logger.String("component", "ui")),
		opener:         opts.Opener,
		conversionName: opts.ConversionName,
		rand:           opts.Rand,
		input:          ti,
		spinner:        sp,
		help:           help.New(),
		keys:           defaultKeyMap(),
		styles:         NewStyles(),
		state:          ctrl.State(),
	}
}

// Init starts the cursor blink and the spinner.
func (m *Model) Init() tea.Cmd {
	return tea.Batch(textinput.Blink, m.spinner.Tick)
}

// Update handles messages.
func (m *Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		m.help.Width = msg.Width
		return m, nil

	case StateMsg:
		m.apply(msg.State)
		return m, nil

	case spinner.TickMsg:
		var cmd tea.Cmd
		m.spinner, cmd = m.spinner.Update(msg)
		return m, cmd

	case openedMsg:
		if msg.err != nil {
			m.logger.Warn("open result failed", logger.String("url", msg.url), logger.Error(msg.err))
			m.setError(fmt.Sprintf("could not open %s", msg.url))
		} else {
			m.setStatus("opened " + msg.url)
		}
		return m, nil

	case tea.KeyMsg:
		return m.handleKey(msg)
	}

	var cmd tea.Cmd
	m.input, cmd = m.input.Update(msg)
	return m, cmd
}

func (m *Model) handleKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch {
	case key.Matches(msg, m.keys.Quit):
		return m, tea.Quit
	case key.Matches(msg, m.keys.Convert):
		m.convert()
		return m, nil
	case key.Matches(msg, m.keys.Reset):
		id := m.ids.Reset()
		m.logger.Info("identity reset", logger.String("user_id", id))
		m.setStatus("new identity " + id)
		return m, nil
	case key.Matches(msg, m.keys.Focus):
		if m.focus == focusList {
			m.focusInput()
		} else {
			m.focusList()
		}
		return m, nil
	}

	if m.focus == focusList {
		return m.handleListKey(msg)
	}
	return m.handleInputKey(msg)
}

func (m *Model) handleInputKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch {
	case key.Matches(msg, m.keys.Enter):
		m.ctrl.Search(m.input.Value())
		m.refresh()
		return m, nil
	case key.Matches(msg, m.keys.Down):
		m.focusList()
		return m, nil
	}

	before := m.input.Value()
	var cmd tea.Cmd
	m.input, cmd = m.input.Update(msg)
	if after := m.input.Value(); after != before {
		m.ctrl.SetQueryText(after)
		m.refresh()
	}
	return m, cmd
}

func (m *Model) handleListKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch {
	case key.Matches(msg, m.keys.Up):
		if m.cursor == 0 {
			m.focusInput()
		} else {
			m.cursor--
		}
		m.scroll()
		return m, nil
	case key.Matches(msg, m.keys.Down):
		if m.cursor < len(m.state.Results)-1 {
			m.cursor++
		}
		m.scroll()
		return m, nil
	case key.Matches(msg, m.keys.Enter):
		return m, m.click()
	}

	// Typing while the list is focused edits the query.
	m.focusInput()
	return m.handleInputKey(msg)
}

func (m *Model) click() tea.Cmd {
	shown, ok := domain.FindRank(m.state.Results, m.cursor)
	if !ok {
		return nil
	}
	rec, err := m.ctrl.ClickShown(m.state.Query, shown)
	if err != nil {
		m.logger.Debug("click ignored", logger.Int("rank", m.cursor), logger.Error(err))
		m.refresh()
		return nil
	}
	if rec.TargetURL == "" {
		m.setError(rec.Title + " has no link")
		return nil
	}

	url, open := rec.TargetURL, m.opener
	return func() tea.Msg {
		return openedMsg{url: url, err: open(url)}
	}
}

func (m *Model) convert() {
	value := math.Round(m.rand()*10000) / 100
	if err := m.ctrl.Convert(m.conversionName, value); err != nil {
		m.setError(err.Error())
		return
	}
	m.setStatus(fmt.Sprintf("conversion %q logged (%.2f)", m.conversionName, value))
}

// refresh pulls the latest snapshot after a synchronous call into the
// coordinator so the screen never waits for the forwarder.
func (m *Model) refresh() {
	m.apply(m.ctrl.State())
}

func (m *Model) apply(s coordinator.State) {
	if s.Version < m.state.Version {
		return
	}
	m.state = s
	if m.cursor >= len(s.Results) {
		m.cursor = max(len(s.Results)-1, 0)
	}
	if len(s.Results) == 0 && m.focus == focusList {
		m.focusInput()
	}
	m.scroll()
}

func (m *Model) focusInput() {
	m.focus = focusInput
	m.input.Focus()
}

func (m *Model) focusList() {
	if len(m.state.Results) == 0 {
		return
	}
	m.focus = focusList
	m.input.Blur()
}

func (m *Model) setStatus(s string) {
	m.status = s
	m.statusErr = false
}

func (m *Model) setError(s string) {
	m.status = s
	m.statusErr = true
}

// visibleRows is how many results fit on screen.
func (m *Model) visibleRows() int {
	if m.height == 0 {
		return 10
	}
	// Each result takes two lines; the chrome around the list takes about ten.
	return max((m.height-10)/2, 1)
}

func (m *Model) scroll() {
	rows := m.visibleRows()
	if m.cursor < m.offset {
		m.offset = m.cursor
	}
	if m.cursor >= m.offset+rows {
		m.offset = m.cursor - rows + 1
	}
	if m.offset > len(m.state.Results)-rows {
		m.offset = max(len(m.state.Results)-rows, 0)
	}
}

// View renders the screen.
func (m *Model) View() string {
	var b strings.Builder

	b.WriteString(m.styles.Title.Render(appTitle))
	b.WriteString("\n")
	b.WriteString(m.styles.Input.Render(m.input.View()))
	b.WriteString("\n\n")

	switch {
	case m.state.Loading:
		b.WriteString(m.spinner.View() + " " + m.styles.Loading.Render(loadingText))
		b.WriteString("\n")
	case len(m.state.Results) > 0:
		m.renderResults(&b)
	case m.state.Query != "":
		b.WriteString(m.styles.Dim.Render("No results"))
		b.WriteString("\n")
	}

	if m.status != "" {
		style := m.styles.Status
		if m.statusErr {
			style = m.styles.StatusError
		}
		b.WriteString(style.Render(m.status))
		b.WriteString("\n")
	}

	b.WriteString(m.styles.Help.Render(m.help.View(m.keys)))
	return b.String()
}

func (m *Model) renderResults(b *strings.Builder) {
	end := min(m.offset+m.visibleRows(), len(m.state.Results))
	for _, r := range m.state.Results[m.offset:end] {
		line := FormatRow(r)
		if m.focus == focusList && r.Rank == m.cursor {
			b.WriteString(m.styles.Selected.Render(line))
		} else {
			b.WriteString(m.styles.Row.Render(line))
		}
		b.WriteString("\n")
		if r.Description != "" {
			b.WriteString(m.styles.Description.Render(r.Description))
			b.WriteString("\n")
		}
	}
	if hidden := len(m.state.Results) - end; hidden > 0 {
		b.WriteString(m.styles.Dim.Render(fmt.Sprintf("… %d more", hidden)))
		b.WriteString("\n")
	}
}

// FormatRow renders a result heading as "N. title: version" with a 1-based N.
func FormatRow(r domain.ResultRecord) string {
	if r.Version == "" {
		return fmt.Sprintf("%d. %s", r.Rank+1, r.Title)
	}
	return fmt.Sprintf("%d. %s: %s", r.Rank+1, r.Title, r.Version)
}
