package tui

import (
	"fmt"
	"sort"
	"strings"

	"github.com/charmbracelet/lipgloss"

	"github.com/fentz26/rtcheck/internal/analyzers"
)

var (
	dropdownStyle = lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(primaryColor).
			Padding(0, 1)

	candidateStyle         = lipgloss.NewStyle().Foreground(fgColor)
	candidateSelectedStyle = lipgloss.NewStyle().Foreground(fgColor).Background(primaryColor).Bold(true)
	candidateHintStyle     = lipgloss.NewStyle().Foreground(mutedColor).Italic(true)
)

// dropdownRows is how many candidates are shown at once.
const dropdownRows = 5

// Suggestions completes the word under the cursor of the command bar:
// command names, family names after "family", analyzer names after "@".
type Suggestions struct {
	analyzers []SuggestionItem
	filtered  []SuggestionItem
	selected  int
	visible   bool
	// prefix is the input before the word being completed.
	prefix string
}

// SuggestionItem is one completion candidate.
type SuggestionItem struct {
	Text        string
	Description string
	Kind        string // "command", "family" or "analyzer"
}

var commandSuggestions = []SuggestionItem{
	{Text: "family", Description: "List the analyzers of another family", Kind: "command"},
	{Text: "processors", Description: "Set the processor count", Kind: "command"},
	{Text: "model", Description: "Set the resource interface: budget period [concurrency]", Kind: "command"},
	{Text: "run", Description: "Re-run the analyzers", Kind: "command"},
}

func familySuggestions() []SuggestionItem {
	items := make([]SuggestionItem, len(analyzers.Families))
	for i, f := range analyzers.Families {
		desc := "flat platform"
		if f.Hierarchical() {
			desc = "needs a resource model"
		}
		items[i] = SuggestionItem{Text: string(f), Description: desc, Kind: "family"}
	}
	return items
}

// NewSuggestions creates an empty completer.
func NewSuggestions() *Suggestions {
	return &Suggestions{}
}

// SetAnalyzers sets the names offered after "@".
func (s *Suggestions) SetAnalyzers(list []analyzers.Analyzer) {
	s.analyzers = make([]SuggestionItem, len(list))
	for i, a := range list {
		s.analyzers[i] = SuggestionItem{Text: a.Name, Description: a.Title, Kind: "analyzer"}
	}
}

// Update recomputes the candidates for input. Nothing is offered once the
// word being completed is followed by a space, except for the family
// argument.
func (s *Suggestions) Update(input string) {
	s.visible, s.filtered, s.prefix, s.selected = false, nil, "", 0

	fields := strings.Fields(input)
	if len(fields) == 0 {
		return
	}
	open := !strings.HasSuffix(input, " ")

	var pool []SuggestionItem
	word := ""
	switch {
	case strings.HasPrefix(input, "@"):
		pool, word, s.prefix = s.analyzers, strings.TrimPrefix(input, "@"), "@"
	case len(fields) == 1 && open:
		pool, word = commandSuggestions, fields[0]
	case isFamilyCommand(fields[0]) && (len(fields) == 1 || len(fields) == 2 && open):
		pool, s.prefix = familySuggestions(), fields[0]+" "
		if len(fields) == 2 {
			word = fields[1]
		}
	default:
		return
	}
	s.filtered = rank(pool, word)
	s.visible = true
}

func isFamilyCommand(word string) bool { return word == "family" || word == "f" }

// rank keeps the candidates containing word, those starting with it first.
func rank(pool []SuggestionItem, word string) []SuggestionItem {
	word = strings.ToLower(word)
	out := []SuggestionItem{}
	for _, item := range pool {
		if strings.Contains(strings.ToLower(item.Text), word) {
			out = append(out, item)
		}
	}
	sort.SliceStable(out, func(i, j int) bool {
		return strings.HasPrefix(strings.ToLower(out[i].Text), word) &&
			!strings.HasPrefix(strings.ToLower(out[j].Text), word)
	})
	return out
}

// Next selects the following candidate, wrapping around.
func (s *Suggestions) Next() { s.move(1) }

// Prev selects the preceding candidate, wrapping around.
func (s *Suggestions) Prev() { s.move(-1) }

func (s *Suggestions) move(delta int) {
	if n := len(s.filtered); n > 0 {
		s.selected = ((s.selected+delta)%n + n) % n
	}
}

// Selected returns the highlighted candidate, or nil.
func (s *Suggestions) Selected() *SuggestionItem {
	if !s.IsVisible() {
		return nil
	}
	return &s.filtered[s.selected]
}

// Complete returns the input with the selected suggestion accepted.
func (s *Suggestions) Complete() (string, bool) {
	sel := s.Selected()
	if sel == nil {
		return "", false
	}
	return s.prefix + sel.Text + " ", true
}

// IsVisible reports whether there is anything to offer.
func (s *Suggestions) IsVisible() bool {
	return s.visible && len(s.filtered) > 0
}

// Render draws a window of candidates around the selection.
func (s *Suggestions) Render(width int) string {
	if !s.IsVisible() {
		return ""
	}

	first := max(0, s.selected-dropdownRows+1)
	last := min(len(s.filtered), first+dropdownRows)

	rows := make([]string, 0, dropdownRows+1)
	for i := first; i < last; i++ {
		item := s.filtered[i]
		if i == s.selected {
			rows = append(rows, candidateSelectedStyle.Render("▶ "+item.Text+"  "+item.Description))
			continue
		}
		rows = append(rows, candidateStyle.Render("  "+item.Text)+"  "+candidateHintStyle.Render(item.Description))
	}
	if hidden := len(s.filtered) - (last - first); hidden > 0 {
		rows = append(rows, candidateHintStyle.Render(fmt.Sprintf("  %d of %d", s.selected+1, len(s.filtered))))
	}
	return dropdownStyle.Width(max(width-4, 20)).Render(strings.Join(rows, "\n"))
}
