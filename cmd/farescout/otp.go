package main

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
)

var (
	otpTitleStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#A8E6CF")). // soft mint green
			Bold(true)

	otpHintStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#6B7280")) // muted gray
)

// terminalOTP satisfies uber.OTPProvider by prompting the operator on
// the terminal while the login flow waits for the SMS challenge.
type terminalOTP struct{}

func (terminalOTP) OTP(ctx context.Context) (string, error) {
	program := tea.NewProgram(newOTPModel(), tea.WithContext(ctx))
	final, err := program.Run()
	if err != nil {
		return "", fmt.Errorf("otp prompt failed: %w", err)
	}

	m, ok := final.(otpModel)
	if !ok || m.canceled {
		return "", errors.New("otp entry canceled")
	}
	return m.code, nil
}

// otpModel is the single-field prompt shown for SMS verification.
type otpModel struct {
	input    textinput.Model
	code     string
	canceled bool
}

func newOTPModel() otpModel {
	ti := textinput.New()
	ti.Placeholder = "123456"
	ti.Prompt = "> "
	ti.CharLimit = 8
	ti.Width = 12
	ti.Focus()
	return otpModel{input: ti}
}

func (m otpModel) Init() tea.Cmd {
	return textinput.Blink
}

func (m otpModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	if keyMsg, ok := msg.(tea.KeyMsg); ok {
		switch keyMsg.Type {
		case tea.KeyEnter:
			code := strings.TrimSpace(m.input.Value())
			if code == "" {
				return m, nil
			}
			m.code = code
			return m, tea.Quit
		case tea.KeyCtrlC, tea.KeyEsc:
			m.canceled = true
			return m, tea.Quit
		}
	}

	var cmd tea.Cmd
	m.input, cmd = m.input.Update(msg)
	return m, cmd
}

func (m otpModel) View() string {
	var b strings.Builder
	b.WriteString(otpTitleStyle.Render("Enter the SMS verification code"))
	b.WriteString("\n\n")
	b.WriteString(m.input.View())
	b.WriteString("\n\n")
	b.WriteString(otpHintStyle.Render("enter to submit, esc to cancel"))
	b.WriteString("\n")
	return b.String()
}
