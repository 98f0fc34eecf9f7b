package ui

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/textarea"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
)

// Decision is what the user chose in the preview dialog
type Decision int

const (
	DecisionCancel Decision = iota
	DecisionAccept
	DecisionRegenerate
)

func (d Decision) String() string {
	switch d {
	case DecisionAccept:
		return "accept"
	case DecisionRegenerate:
		return "regenerate"
	default:
		return "cancel"
	}
}

// PreviewKeyMap defines the preview dialog key bindings
type PreviewKeyMap struct {
	Accept     key.Binding
	Edit       key.Binding
	Regenerate key.Binding
	Cancel     key.Binding
	Save       key.Binding
	StopEdit   key.Binding
}

var previewKeys = PreviewKeyMap{
	Accept: key.NewBinding(
		key.WithKeys("enter", "a"),
		key.WithHelp("Enter/a", "insert"),
	),
	Edit: key.NewBinding(
		key.WithKeys("e"),
		key.WithHelp("e", "edit"),
	),
	Regenerate: key.NewBinding(
		key.WithKeys("r"),
		key.WithHelp("r", "regenerate"),
	),
	Cancel: key.NewBinding(
		key.WithKeys("esc", "q", "ctrl+c"),
		key.WithHelp("Esc/q", "cancel"),
	),
	Save: key.NewBinding(
		key.WithKeys("ctrl+s"),
		key.WithHelp("Ctrl+s", "insert"),
	),
	StopEdit: key.NewBinding(
		key.WithKeys("esc"),
		key.WithHelp("Esc", "stop editing"),
	),
}

const editingHint = "Edits are inserted exactly as written"

// PreviewModel shows generated metadata and lets the user accept, edit,
// regenerate or cancel it
type PreviewModel struct {
	document string
	template string
	editor   textarea.Model
	editing  bool
	decision Decision
	done     bool

	width  int
	height int
}

// NewPreviewModel creates the dialog for metadata generated for document
func NewPreviewModel(document, templateName, metadata string) PreviewModel {
	ta := textarea.New()
	ta.CharLimit = 0
	ta.MaxHeight = 0
	ta.ShowLineNumbers = false
	ta.SetWidth(80)
	ta.SetHeight(12)
	ta.SetValue(strings.TrimRight(metadata, "\n"))
	ta.Blur()

	return PreviewModel{
		document: document,
		template: templateName,
		editor:   ta,
	}
}

func (m PreviewModel) Init() tea.Cmd {
	return nil
}

func (m PreviewModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width, m.height = msg.Width, msg.Height
		m.editor.SetWidth(max(msg.Width-8, 20))
		m.editor.SetHeight(max(msg.Height-10, 5))
		return m, nil

	case tea.KeyMsg:
		if m.editing {
			switch {
			case key.Matches(msg, previewKeys.Save):
				return m.finish(DecisionAccept)
			case key.Matches(msg, previewKeys.StopEdit):
				m.editing = false
				m.editor.Blur()
				return m, nil
			}
			var cmd tea.Cmd
			m.editor, cmd = m.editor.Update(msg)
			return m, cmd
		}

		switch {
		case key.Matches(msg, previewKeys.Accept), key.Matches(msg, previewKeys.Save):
			return m.finish(DecisionAccept)
		case key.Matches(msg, previewKeys.Regenerate):
			return m.finish(DecisionRegenerate)
		case key.Matches(msg, previewKeys.Cancel):
			return m.finish(DecisionCancel)
		case key.Matches(msg, previewKeys.Edit):
			m.editing = true
			return m, m.editor.Focus()
		}
	}
	return m, nil
}

func (m PreviewModel) finish(d Decision) (tea.Model, tea.Cmd) {
	m.decision = d
	m.done = true
	m.editing = false
	m.editor.Blur()
	return m, tea.Quit
}

func (m PreviewModel) View() string {
	if m.done {
		return ""
	}

	header := CreateMainHeader("Generated metadata")
	meta := CreateMetadata(fmt.Sprintf("%s • template: %s", m.document, m.template))

	box := StyleContentContainer
	hints := []string{
		previewKeys.Accept.Help().Key + " " + previewKeys.Accept.Help().Desc,
		previewKeys.Edit.Help().Key + " " + previewKeys.Edit.Help().Desc,
		previewKeys.Regenerate.Help().Key + " " + previewKeys.Regenerate.Help().Desc,
		previewKeys.Cancel.Help().Key + " " + previewKeys.Cancel.Help().Desc,
	}
	if m.editing {
		box = StyleEditing
		hints = []string{
			previewKeys.Save.Help().Key + " " + previewKeys.Save.Help().Desc,
			previewKeys.StopEdit.Help().Key + " " + previewKeys.StopEdit.Help().Desc,
		}
	}

	sections := []string{header, meta, box.Render(m.editor.View())}
	if m.editing {
		sections = append(sections, CreateHelp(editingHint))
	}
	sections = append(sections, CreateKeyHelp(m.width, hints...))
	return lipgloss.JoinVertical(lipgloss.Left, sections...)
}

// Decision returns the user's choice once the program has exited
func (m PreviewModel) Decision() Decision {
	return m.decision
}

// Metadata returns the possibly edited metadata
func (m PreviewModel) Metadata() string {
	return m.editor.Value()
}

// PreviewResult is the outcome of RunPreview
type PreviewResult struct {
	Decision Decision
	Metadata string
}

// RunPreview shows the dialog in the alternate screen and blocks until the
// user decides
func RunPreview(document, templateName, metadata string) (PreviewResult, error) {
	final, err := tea.NewProgram(NewPreviewModel(document, templateName, metadata), tea.WithAltScreen()).Run()
	if err != nil {
		return PreviewResult{}, fmt.Errorf("preview failed: %w", err)
	}
	m := final.(PreviewModel)
	return PreviewResult{Decision: m.Decision(), Metadata: m.Metadata()}, nil
}
