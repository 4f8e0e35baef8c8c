package main

import (
	"context"
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/wippyai/wasm-gojs/runtime"
)

var (
	titleStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("#FAFAFA")).
			Background(lipgloss.Color("#7D56F4")).
			Padding(0, 1)

	funcStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#98FB98"))

	typeStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#87CEEB"))

	selectedStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#FAFAFA")).
			Background(lipgloss.Color("#7D56F4"))

	resultStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#90EE90"))

	errorStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#FF6B6B"))

	helpStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#666666"))
)

type interactiveModel struct {
	ctx      context.Context
	err      error
	instance *runtime.Instance
	module   *runtime.Module
	filename string
	result   string
	funcs    []funcInfo
	inputs   []textinput.Model
	selected int
	focusIdx int
	state    modelState
	loaded   bool
	exited   bool
}

// funcInfo is a callable global. sig is nil when no signature was declared;
// the function then takes one free-form comma-separated input.
type funcInfo struct {
	name string
	sig  *runtime.Signature
}

type modelState int

const (
	stateSelectFunc modelState = iota
	stateInputArgs
	stateShowResult
)

func newInteractiveModel(ctx context.Context, filename string, mod *runtime.Module, inst *runtime.Instance) *interactiveModel {
	return &interactiveModel{
		ctx:      ctx,
		filename: filename,
		module:   mod,
		instance: inst,
		state:    stateSelectFunc,
	}
}

type globalsMsg struct {
	err   error
	funcs []funcInfo
}

type callResultMsg struct {
	err    error
	result string
}

type exitedMsg struct{}

func (m *interactiveModel) Init() tea.Cmd {
	return tea.Batch(m.loadGlobals, m.waitExit)
}

func (m *interactiveModel) loadGlobals() tea.Msg {
	names, err := m.instance.Globals(m.ctx)
	if err != nil {
		return globalsMsg{err: err}
	}
	funcs := make([]funcInfo, len(names))
	for i, name := range names {
		funcs[i] = funcInfo{name: name}
		if sig, err := m.module.Signature(name); err == nil {
			funcs[i].sig = sig
		}
	}
	return globalsMsg{funcs: funcs}
}

func (m *interactiveModel) waitExit() tea.Msg {
	select {
	case <-m.instance.Done():
	case <-m.ctx.Done():
	}
	return exitedMsg{}
}

func (m *interactiveModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		switch msg.String() {
		case "ctrl+c", "q":
			if m.state != stateInputArgs || msg.String() == "ctrl+c" {
				return m, tea.Quit
			}

		case "r":
			if m.state == stateSelectFunc {
				return m, m.loadGlobals
			}

		case "up", "k":
			if m.state == stateSelectFunc && m.selected > 0 {
				m.selected--
			}

		case "down", "j":
			if m.state == stateSelectFunc && m.selected < len(m.funcs)-1 {
				m.selected++
			}

		case "enter":
			switch m.state {
			case stateSelectFunc:
				if len(m.funcs) == 0 || m.exited {
					return m, nil
				}
				m.prepareInputs()
				if len(m.inputs) == 0 {
					return m, m.callFunction
				}
				m.state = stateInputArgs

			case stateInputArgs:
				return m, m.callFunction

			case stateShowResult:
				m.state = stateSelectFunc
				m.result = ""
				m.err = nil
			}

		case "tab":
			if m.state == stateInputArgs && len(m.inputs) > 1 {
				m.inputs[m.focusIdx].Blur()
				m.focusIdx = (m.focusIdx + 1) % len(m.inputs)
				m.inputs[m.focusIdx].Focus()
			}

		case "esc":
			switch m.state {
			case stateInputArgs:
				m.state = stateSelectFunc
				m.inputs = nil
			case stateShowResult:
				m.state = stateSelectFunc
				m.result = ""
				m.err = nil
			}
		}

	case globalsMsg:
		m.loaded = true
		m.err = msg.err
		m.funcs = msg.funcs
		if m.selected >= len(m.funcs) {
			m.selected = 0
		}

	case exitedMsg:
		m.exited = true

	case callResultMsg:
		m.result = msg.result
		m.err = msg.err
		m.state = stateShowResult
	}

	if m.state == stateInputArgs {
		var cmds []tea.Cmd
		for i := range m.inputs {
			var cmd tea.Cmd
			m.inputs[i], cmd = m.inputs[i].Update(msg)
			cmds = append(cmds, cmd)
		}
		return m, tea.Batch(cmds...)
	}

	return m, nil
}

func (m *interactiveModel) prepareInputs() {
	f := m.funcs[m.selected]
	if f.sig == nil {
		ti := textinput.New()
		ti.Placeholder = "comma-separated arguments"
		ti.Prompt = "args: "
		ti.Width = 40
		ti.Focus()
		m.inputs = []textinput.Model{ti}
		m.focusIdx = 0
		return
	}
	m.inputs = make([]textinput.Model, len(f.sig.Params))
	for i, p := range f.sig.Params {
		ti := textinput.New()
		ti.Placeholder = p.Kind.String()
		ti.Prompt = p.Name + ": "
		ti.Width = 40
		if i == 0 {
			ti.Focus()
		}
		m.inputs[i] = ti
	}
	m.focusIdx = 0
}

func (m *interactiveModel) callFunction() tea.Msg {
	f := m.funcs[m.selected]

	var args []string
	if f.sig == nil {
		if len(m.inputs) > 0 {
			args = splitArgs(m.inputs[0].Value())
		}
	} else {
		for _, input := range m.inputs {
			args = append(args, input.Value())
		}
	}

	result, err := callFunction(m.ctx, m.module, m.instance, f.name, args)
	if err != nil {
		return callResultMsg{err: err}
	}
	return callResultMsg{result: fmt.Sprintf("%v", result)}
}

func (m *interactiveModel) View() string {
	if m.err != nil && m.state != stateShowResult {
		return errorStyle.Render(fmt.Sprintf("Error: %v\n\nPress q to quit.", m.err))
	}

	if !m.loaded {
		return "Running guest..."
	}

	var b strings.Builder

	b.WriteString(titleStyle.Render("GOOS=js Runner"))
	b.WriteString(" ")
	b.WriteString(m.filename)
	if m.exited {
		b.WriteString(" ")
		b.WriteString(errorStyle.Render(fmt.Sprintf("(exited with code %d)", m.instance.ExitCode())))
	}
	b.WriteString("\n\n")

	switch m.state {
	case stateSelectFunc:
		if len(m.funcs) == 0 {
			b.WriteString("The guest has not published any functions.\n")
		} else {
			b.WriteString("Select a function to call:\n\n")
		}
		for i, f := range m.funcs {
			cursor := "  "
			if i == m.selected {
				cursor = "> "
				b.WriteString(selectedStyle.Render(cursor + m.formatFunc(f)))
			} else {
				b.WriteString(cursor + m.formatFunc(f))
			}
			b.WriteString("\n")
		}
		b.WriteString("\n")
		b.WriteString(helpStyle.Render("↑/↓ select • enter call • r refresh • q quit"))

	case stateInputArgs:
		f := m.funcs[m.selected]
		b.WriteString(fmt.Sprintf("Calling %s\n\n", funcStyle.Render(f.name)))
		for _, input := range m.inputs {
			b.WriteString(input.View())
			b.WriteString("\n")
		}
		b.WriteString("\n")
		b.WriteString(helpStyle.Render("tab next field • enter call • esc back"))

	case stateShowResult:
		f := m.funcs[m.selected]
		b.WriteString(fmt.Sprintf("Result of %s:\n\n", funcStyle.Render(f.name)))
		if m.err != nil {
			b.WriteString(errorStyle.Render(fmt.Sprintf("Error: %v", m.err)))
		} else {
			b.WriteString(resultStyle.Render(m.result))
		}
		b.WriteString("\n\n")
		b.WriteString(helpStyle.Render("enter continue • q quit"))
	}

	return b.String()
}

func (m *interactiveModel) formatFunc(f funcInfo) string {
	if f.sig == nil {
		return funcStyle.Render(f.name) + "(" + typeStyle.Render("...") + ")"
	}
	var params []string
	for _, p := range f.sig.Params {
		params = append(params, p.Name+": "+typeStyle.Render(p.Kind.String()))
	}
	result := ""
	if len(f.sig.Results) > 0 {
		result = " -> " + typeStyle.Render(f.sig.Results[0].String())
	}
	return funcStyle.Render(f.name) + "(" + strings.Join(params, ", ") + ")" + result
}

func runInteractive(ctx context.Context, filename string, mod *runtime.Module, inst *runtime.Instance) error {
	p := tea.NewProgram(newInteractiveModel(ctx, filename, mod, inst), tea.WithAltScreen(), tea.WithContext(ctx))
	_, err := p.Run()
	return err
}
