/*
 * Copyright 2025 Carver Automation Corporation.
 *
 * Licensed under the Apache License, Version 2.0 (the "License");
 * you may not use this file except in compliance with the License.
 * You may obtain a copy of the License at
 *
 *     http://www.apache.org/licenses/LICENSE-2.0
 *
 * Unless required by applicable law or agreed to in writing, software
 * distributed under the License is distributed on an "AS IS" BASIS,
 * WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
 * See the License for the specific language governing permissions and
 * limitations under the License.
 */

package agentconfig

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/sgich/assetradar/pkg/credentials"
)

// Dracula theme colors.
const (
	draculaForeground = "#F8F8F2"
	draculaCyan       = "#8BE9FD"
	draculaGreen      = "#50FA7B"
	draculaPink       = "#FF79C6"
	draculaPurple     = "#BD93F9"
	draculaRed        = "#FF5555"
	draculaYellow     = "#F1FA8C"
	draculaComment    = "#6272A4"

	inputWidth = 48
	appPadding = 2
)

var (
	ErrWizardCancelled = errors.New("configuration wizard cancelled")
	errEmptyPassword   = errors.New("password is required")
	errNotANumber      = errors.New("intervals must be whole minutes")
)

const (
	fieldURL = iota
	fieldDB
	fieldUsername
	fieldPassword
	fieldPrincipal
	fieldRetry
	fieldCount
)

var fieldLabels = [fieldCount]string{
	"Server URL:",
	"Database:",
	"Username:",
	"Password / API key:",
	"Main interval (minutes):",
	"Retry interval (minutes):",
}

type wizardStyles struct {
	title, label, help, success, error, app lipgloss.Style
}

func newWizardStyles() wizardStyles {
	return wizardStyles{
		title: lipgloss.NewStyle().
			Foreground(lipgloss.Color(draculaPink)).
			Bold(true),
		label: lipgloss.NewStyle().
			Foreground(lipgloss.Color(draculaYellow)),
		help: lipgloss.NewStyle().
			Foreground(lipgloss.Color(draculaComment)),
		success: lipgloss.NewStyle().
			Foreground(lipgloss.Color(draculaGreen)),
		error: lipgloss.NewStyle().
			Foreground(lipgloss.Color(draculaRed)).
			Bold(true),
		app: lipgloss.NewStyle().
			Padding(1, appPadding).
			Border(lipgloss.DoubleBorder()).
			BorderForeground(lipgloss.Color(draculaCyan)).
			Foreground(lipgloss.Color(draculaForeground)),
	}
}

// wizardModel is the bubbletea model of the first-run wizard.
type wizardModel struct {
	inputs    [fieldCount]textinput.Model
	focused   int
	cancelled bool
	done      bool
	result    *Config
	password  string
	err       error
	styles    wizardStyles
}

func newInput(placeholder, value string) textinput.Model {
	in := textinput.New()
	in.Placeholder = placeholder
	in.Width = inputWidth
	in.PromptStyle = lipgloss.NewStyle().Foreground(lipgloss.Color(draculaCyan))
	in.TextStyle = lipgloss.NewStyle().Foreground(lipgloss.Color(draculaForeground))
	in.PlaceholderStyle = lipgloss.NewStyle().Foreground(lipgloss.Color(draculaComment))
	in.SetValue(value)

	return in
}

func newWizardModel(initial *Config) *wizardModel {
	cfg := Config{}
	if initial != nil {
		cfg = *initial
	}

	cfg.ApplyDefaults()

	m := &wizardModel{styles: newWizardStyles()}

	m.inputs[fieldURL] = newInput("https://odoo.example.com", cfg.Server.URL)
	m.inputs[fieldDB] = newInput("database name", cfg.Server.DB)
	m.inputs[fieldUsername] = newInput("login", cfg.Server.Username)
	m.inputs[fieldPassword] = newInput("stored in the system vault", "")
	m.inputs[fieldPassword].EchoMode = textinput.EchoPassword
	m.inputs[fieldPassword].EchoCharacter = '*'
	m.inputs[fieldPrincipal] = newInput("60", strconv.Itoa(cfg.IntervaloPrincipalMin))
	m.inputs[fieldRetry] = newInput("5", strconv.Itoa(cfg.IntervaloReintentoMin))

	m.inputs[fieldURL].Focus()

	return m
}

func (*wizardModel) Init() tea.Cmd {
	return textinput.Blink
}

func (m *wizardModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	if keyMsg, ok := msg.(tea.KeyMsg); ok {
		//nolint:exhaustive // remaining keys go to the focused input
		switch keyMsg.Type {
		case tea.KeyCtrlC, tea.KeyEsc:
			m.cancelled = true
			return m, tea.Quit
		case tea.KeyEnter:
			if m.focused == fieldCount-1 {
				return m.submit()
			}

			return m, m.focus(m.focused + 1)
		case tea.KeyTab, tea.KeyDown:
			return m, m.focus((m.focused + 1) % fieldCount)
		case tea.KeyShiftTab, tea.KeyUp:
			return m, m.focus((m.focused + fieldCount - 1) % fieldCount)
		}
	}

	var cmd tea.Cmd

	m.inputs[m.focused], cmd = m.inputs[m.focused].Update(msg)

	return m, cmd
}

func (m *wizardModel) focus(i int) tea.Cmd {
	m.inputs[m.focused].Blur()
	m.focused = i

	return m.inputs[i].Focus()
}

func (m *wizardModel) value(i int) string {
	return strings.TrimSpace(m.inputs[i].Value())
}

func (m *wizardModel) submit() (tea.Model, tea.Cmd) {
	principal, err1 := strconv.Atoi(m.value(fieldPrincipal))
	retry, err2 := strconv.Atoi(m.value(fieldRetry))

	if err1 != nil || err2 != nil {
		m.err = errNotANumber
		return m, nil
	}

	cfg := &Config{
		IntervaloPrincipalMin: principal,
		IntervaloReintentoMin: retry,
		Server: ServerConfig{
			URL:      m.value(fieldURL),
			DB:       m.value(fieldDB),
			Username: m.value(fieldUsername),
		},
	}

	cfg.ApplyDefaults()

	if err := cfg.Validate(); err != nil {
		m.err = err
		return m, nil
	}

	password := m.inputs[fieldPassword].Value()
	if strings.TrimSpace(password) == "" {
		m.err = errEmptyPassword
		return m, m.focus(fieldPassword)
	}

	m.result, m.password, m.err, m.done = cfg, password, nil, true

	return m, tea.Quit
}

func (m *wizardModel) View() string {
	var content strings.Builder

	content.WriteString(m.styles.title.Render("SGICH scan agent setup") + "\n\n")

	for i := range m.inputs {
		content.WriteString(lipgloss.JoinVertical(lipgloss.Left,
			m.styles.label.Render(fieldLabels[i]),
			m.inputs[i].View(),
		))
		content.WriteString("\n\n")
	}

	if m.done {
		content.WriteString(m.styles.success.Render("Configuration saved."))
	} else {
		content.WriteString(m.styles.help.Render("Enter -> next field | Tab/Shift+Tab -> move | Ctrl+C/Esc -> quit"))
	}

	if m.err != nil {
		content.WriteString("\n\n")
		content.WriteString(m.styles.error.Render(fmt.Sprintf("Error: %v", m.err)))
	}

	return m.styles.app.Align(lipgloss.Left).Render(content.String())
}

// RunWizard asks for the agent settings on the terminal, stores the
// password in vault and writes the configuration to path. initial, when
// not nil, pre-fills the form.
func RunWizard(ctx context.Context, path string, initial *Config, vault credentials.Store) (*Config, error) {
	m := newWizardModel(initial)

	final, err := tea.NewProgram(m, tea.WithContext(ctx)).Run()
	if err != nil {
		return nil, fmt.Errorf("run wizard: %w", err)
	}

	wm, ok := final.(*wizardModel)
	if !ok || wm.cancelled || !wm.done {
		return nil, ErrWizardCancelled
	}

	return wm.result, persist(path, wm.result, wm.password, vault)
}

func persist(path string, cfg *Config, password string, vault credentials.Store) error {
	if err := vault.Set(cfg.Server.Username, password); err != nil {
		return err
	}

	return Save(path, cfg)
}
