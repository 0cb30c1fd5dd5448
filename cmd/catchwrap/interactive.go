package main

import (
	"fmt"
	"os"
	"sort"
	"strings"

	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/poccariswet/wasm-bindgen-sub000/catch"
	"github.com/poccariswet/wasm-bindgen-sub000/ir"
	"github.com/poccariswet/wasm-bindgen-sub000/wasm"
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

	errorStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#FF6B6B"))

	helpStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#666666"))
)

type importInfo struct {
	name      catch.ImportName
	signature string
	checked   bool
}

type modelState int

const (
	stateSelect modelState = iota
	stateDone
)

type interactiveModel struct {
	err     error
	data    []byte
	opts    options
	report  string
	imports []importInfo
	filter  textinput.Model
	cursor  int
	state   modelState
}

type loadedMsg struct {
	err     error
	data    []byte
	imports []importInfo
}

type transformedMsg struct {
	err    error
	report string
}

func newInteractiveModel(opts options) *interactiveModel {
	ti := textinput.New()
	ti.Placeholder = "filter imports"
	ti.Prompt = "/ "
	ti.Width = 40
	ti.Focus()
	return &interactiveModel{opts: opts, filter: ti, state: stateSelect}
}

func (m *interactiveModel) Init() tea.Cmd {
	return tea.Batch(m.loadModule, textinput.Blink)
}

func (m *interactiveModel) loadModule() tea.Msg {
	data, err := os.ReadFile(m.opts.in)
	if err != nil {
		return loadedMsg{err: err}
	}
	mod, err := ir.Parse(data)
	if err != nil {
		return loadedMsg{err: err}
	}
	return loadedMsg{data: data, imports: functionImports(mod)}
}

// functionImports lists the function imports, preselecting those matched by
// the -catch patterns.
func functionImports(mod *ir.Module) []importInfo {
	var out []importInfo
	for _, imp := range mod.Imports.All() {
		if imp.Kind != wasm.KindFunc {
			continue
		}
		out = append(out, importInfo{
			name:      catch.ImportName{Module: imp.Module, Name: imp.Name},
			signature: mod.Types.Get(mod.Funcs.Get(imp.Func).Type).String(),
		})
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].name.String() < out[j].name.String() })
	return out
}

// visible returns indexes into m.imports matching the filter.
func (m *interactiveModel) visible() []int {
	q := strings.ToLower(m.filter.Value())
	var idx []int
	for i, imp := range m.imports {
		if q == "" || strings.Contains(strings.ToLower(imp.name.String()), q) {
			idx = append(idx, i)
		}
	}
	return idx
}

func (m *interactiveModel) selection() []catch.ImportName {
	var out []catch.ImportName
	for _, imp := range m.imports {
		if imp.checked {
			out = append(out, imp.name)
		}
	}
	return out
}

func (m *interactiveModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		switch msg.String() {
		case "ctrl+c", "esc":
			return m, tea.Quit

		case "up":
			if m.cursor > 0 {
				m.cursor--
			}
			return m, nil

		case "down":
			if m.cursor < len(m.visible())-1 {
				m.cursor++
			}
			return m, nil

		case " ":
			if m.state == stateSelect {
				if vis := m.visible(); m.cursor < len(vis) {
					m.imports[vis[m.cursor]].checked = !m.imports[vis[m.cursor]].checked
				}
				return m, nil
			}

		case "enter":
			switch m.state {
			case stateSelect:
				if len(m.selection()) > 0 {
					return m, m.transform
				}
				return m, nil
			case stateDone:
				return m, tea.Quit
			}
		}

	case loadedMsg:
		if msg.err != nil {
			m.err = msg.err
			return m, nil
		}
		m.data = msg.data
		m.imports = msg.imports
		if m.imports == nil {
			m.imports = []importInfo{}
		}
		if m.opts.patterns != "" {
			pre := catch.ParsePatterns(m.opts.patterns)
			for i := range m.imports {
				m.imports[i].checked = pre.Match(m.imports[i].name.Module, m.imports[i].name.Name)
			}
		}
		return m, nil

	case transformedMsg:
		m.err = msg.err
		m.report = msg.report
		m.state = stateDone
		return m, nil
	}

	if m.state == stateSelect {
		var cmd tea.Cmd
		m.filter, cmd = m.filter.Update(msg)
		if n := len(m.visible()); m.cursor >= n {
			m.cursor = max(n-1, 0)
		}
		return m, cmd
	}
	return m, nil
}

func (m *interactiveModel) transform() tea.Msg {
	out, report, err := transform(m.data, m.opts, catch.NewNameSetMatcher(m.selection()...))
	if err != nil {
		return transformedMsg{err: err}
	}
	if err := os.WriteFile(m.opts.out, out, 0o644); err != nil {
		return transformedMsg{err: fmt.Errorf("write %s: %w", m.opts.out, err)}
	}
	return transformedMsg{report: formatReport(m.opts, report, styles(true))}
}

func (m *interactiveModel) View() string {
	if m.err != nil {
		return errorStyle.Render(fmt.Sprintf("Error: %v\n\nPress esc to quit.", m.err))
	}
	if m.state == stateDone {
		return m.report + "\n" + helpStyle.Render("enter quit")
	}
	if m.imports == nil {
		return "Loading module..."
	}

	var b strings.Builder
	b.WriteString(titleStyle.Render("catchwrap"))
	b.WriteString(" ")
	b.WriteString(m.opts.in)
	b.WriteString("\n\n")
	b.WriteString(m.filter.View())
	b.WriteString("\n\n")
	for i, idx := range m.visible() {
		imp := m.imports[idx]
		box := "[ ] "
		if imp.checked {
			box = "[x] "
		}
		line := box + funcStyle.Render(imp.name.String()) + " " + typeStyle.Render(imp.signature)
		if i == m.cursor {
			b.WriteString(selectedStyle.Render("> " + box + imp.name.String() + " " + imp.signature))
		} else {
			b.WriteString("  " + line)
		}
		b.WriteString("\n")
	}
	b.WriteString("\n")
	fmt.Fprintf(&b, "%d selected\n", len(m.selection()))
	b.WriteString(helpStyle.Render("↑/↓ move • space toggle • type to filter • enter wrap • esc quit"))
	return b.String()
}

func runInteractive(opts options) error {
	p := tea.NewProgram(newInteractiveModel(opts), tea.WithAltScreen())
	_, err := p.Run()
	return err
}
