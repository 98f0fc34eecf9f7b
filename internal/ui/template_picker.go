package ui

import (
	"fmt"
	"io"

	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/list"
	tea "github.com/charmbracelet/bubbletea"

	"github.com/dpshade/pocket-meta/internal/models"
)

// templateItem implements list.Item for template selection
type templateItem struct {
	template   models.Template
	confidence float64
	reason     string
}

func (t templateItem) FilterValue() string {
	return t.template.Name + " " + t.template.ID
}

func (t templateItem) Title() string {
	if t.confidence > 0 {
		return fmt.Sprintf("%s (%.0f%%)", t.template.Name, t.confidence*100)
	}
	return t.template.Name
}

func (t templateItem) Description() string {
	if t.reason != "" {
		return t.reason
	}
	return t.template.Description
}

// templateItemDelegate renders one template per two lines
type templateItemDelegate struct{}

func (d templateItemDelegate) Height() int                               { return 2 }
func (d templateItemDelegate) Spacing() int                              { return 1 }
func (d templateItemDelegate) Update(msg tea.Msg, m *list.Model) tea.Cmd { return nil }
func (d templateItemDelegate) Render(w io.Writer, m list.Model, index int, listItem list.Item) {
	item, ok := listItem.(templateItem)
	if !ok {
		return
	}
	lines := CreateOption(item.Title(), item.Description(), index == m.Index())
	for i, line := range lines {
		if i > 0 {
			fmt.Fprint(w, "\n")
		}
		fmt.Fprint(w, line)
	}
	if len(lines) == 1 {
		fmt.Fprint(w, "\n")
	}
}

// TemplatePicker lets the user choose a template, suggested ones first
type TemplatePicker struct {
	list     list.Model
	chosen   *models.Template
	quitting bool
}

// NewTemplatePicker lists suggestions by confidence followed by every other
// template in all
func NewTemplatePicker(document string, suggestions []models.TemplateSuggestion, all []models.Template) TemplatePicker {
	items := make([]list.Item, 0, len(all))
	seen := make(map[string]bool, len(all))
	for _, s := range suggestions {
		items = append(items, templateItem{template: s.Template, confidence: s.Confidence, reason: s.Reason})
		seen[s.Template.ID] = true
	}
	for _, t := range all {
		if !seen[t.ID] {
			items = append(items, templateItem{template: t})
		}
	}

	l := list.New(items, templateItemDelegate{}, 70, 20)
	l.Title = fmt.Sprintf("Choose a template for %s", document)
	l.Styles.Title = StyleTitle
	l.SetShowStatusBar(false)
	l.SetShowHelp(true)

	keyMap := list.DefaultKeyMap()
	keyMap.ShowFullHelp = key.NewBinding(
		key.WithKeys("ctrl+h"),
		key.WithHelp("Ctrl+h", "toggle help"),
	)
	l.KeyMap = keyMap

	return TemplatePicker{list: l}
}

func (p TemplatePicker) Init() tea.Cmd {
	return nil
}

func (p TemplatePicker) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		p.list.SetSize(min(msg.Width-4, 90), msg.Height-2)
		return p, nil
	case tea.KeyMsg:
		if p.list.FilterState() == list.Filtering {
			break
		}
		switch msg.String() {
		case "enter":
			if item, ok := p.list.SelectedItem().(templateItem); ok {
				tmpl := item.template
				p.chosen = &tmpl
			}
			return p, tea.Quit
		case "esc", "q", "ctrl+c":
			p.quitting = true
			return p, tea.Quit
		}
	}

	var cmd tea.Cmd
	p.list, cmd = p.list.Update(msg)
	return p, cmd
}

func (p TemplatePicker) View() string {
	if p.chosen != nil || p.quitting {
		return ""
	}
	return p.list.View()
}

// Chosen returns the selected template, if any
func (p TemplatePicker) Chosen() (models.Template, bool) {
	if p.chosen == nil {
		return models.Template{}, false
	}
	return *p.chosen, true
}

// RunTemplatePicker blocks until a template is chosen or the user cancels
func RunTemplatePicker(document string, suggestions []models.TemplateSuggestion, all []models.Template) (models.Template, bool, error) {
	final, err := tea.NewProgram(NewTemplatePicker(document, suggestions, all), tea.WithAltScreen()).Run()
	if err != nil {
		return models.Template{}, false, fmt.Errorf("template picker failed: %w", err)
	}
	tmpl, ok := final.(TemplatePicker).Chosen()
	return tmpl, ok, nil
}
