package repl

import (
	"strings"
	"unicode/utf8"

	"github.com/charmbracelet/lipgloss"
	"github.com/sahilm/fuzzy"
	"golang.org/x/net/html/atom"
)

// ctrlCommands are the available control-mode commands.
var ctrlCommands = []string{
	"help", "json", "yaml", "delims", "sanitize", "strip", "edit", "clear", "quit",
}

// mustacheKeywords complete the word following an opening delimiter.
var mustacheKeywords = []string{
	"#if", "#each", "#with", "#unless", "else",
	"/if", "/each", "/with", "/unless",
	"@index", "@key", "this",
}

// tagNames complete the word following "<" or "</".
var tagNames = func() []string {
	atoms := []atom.Atom{
		atom.A, atom.Abbr, atom.Article, atom.Aside, atom.B, atom.Blockquote,
		atom.Br, atom.Button, atom.Caption, atom.Code, atom.Dd, atom.Details,
		atom.Div, atom.Dl, atom.Dt, atom.Em, atom.Fieldset, atom.Figure,
		atom.Footer, atom.Form, atom.H1, atom.H2, atom.H3, atom.Header, atom.Hr,
		atom.I, atom.Img, atom.Input, atom.Label, atom.Li, atom.Main, atom.Nav,
		atom.Ol, atom.Option, atom.P, atom.Pre, atom.Script, atom.Section,
		atom.Select, atom.Small, atom.Span, atom.Strong, atom.Style,
		atom.Summary, atom.Table, atom.Tbody, atom.Td, atom.Textarea,
		atom.Th, atom.Thead, atom.Tr, atom.Ul,
	}

	names := make([]string, len(atoms))
	for i, a := range atoms {
		names[i] = a.String()
	}

	return names
}()

// completion identifies what the word at the cursor could be.
type completion int

const (
	completeNone completion = iota
	completeMustache
	completeTag
	completeCommand
)

// isWordBoundary reports whether r separates completion words in template
// text. Sigils that begin mustache keywords and closing tags ('#', '/', '@')
// belong to the word.
func isWordBoundary(r rune) bool {
	switch r {
	case ' ', '\t', '\n',
		'<', '>', '{', '}', '(', ')', '[', ']',
		'=', '"', '\'', ',', ':', ';', '!', '&', '^':
		return true
	}

	return false
}

// wordBounds returns the word at cursor and its byte boundaries within input.
// The word is empty when the cursor sits on a boundary.
func wordBounds(input string, cursor int) (word string, start, end int) {
	cursor = min(cursor, len(input))

	start = cursor

	for start > 0 {
		r, size := utf8.DecodeLastRuneInString(input[:start])
		if isWordBoundary(r) {
			break
		}

		start -= size
	}

	end = cursor

	for end < len(input) {
		r, size := utf8.DecodeRuneInString(input[end:])
		if isWordBoundary(r) {
			break
		}

		end += size
	}

	return input[start:end], start, end
}

// completionAt classifies the word beginning at wordStart by the text that
// precedes it. open is the active opening delimiter.
func completionAt(input string, wordStart int, open string) completion {
	prefix := strings.TrimRight(input[:wordStart], " \t")

	switch {
	case open != "" && strings.HasSuffix(prefix, open):
		return completeMustache
	case strings.HasSuffix(input[:wordStart], "<"):
		return completeTag
	default:
		return completeNone
	}
}

// candidatesFor returns the completion list for kind.
func candidatesFor(kind completion, word string) []string {
	switch kind {
	case completeCommand:
		return ctrlCommands
	case completeMustache:
		return mustacheKeywords
	case completeTag:
		if strings.HasPrefix(word, "/") {
			closers := make([]string, len(tagNames))
			for i, name := range tagNames {
				closers[i] = "/" + name
			}

			return closers
		}

		return tagNames
	default:
		return nil
	}
}

// computeMatches calculates the fuzzy match results for the word at the
// cursor. An empty word lists every candidate in a mustache or tag position
// and nothing elsewhere, leaving room for the hint line.
func (m model) computeMatches() (
	matches fuzzy.Matches,
	candidates []string,
	wordStart, wordEnd int,
) {
	input := m.input.Value()

	word, wordStart, wordEnd := wordBounds(input, m.input.Position())

	kind := completeCommand
	if m.mode == modeTemplate {
		kind = completionAt(input, wordStart, m.openDelimiter())
	}

	candidates = candidatesFor(kind, word)
	if len(candidates) == 0 {
		return nil, nil, wordStart, wordEnd
	}

	if word == "" {
		if kind == completeCommand {
			return nil, nil, wordStart, wordEnd
		}

		matches = make(fuzzy.Matches, len(candidates))
		for i, c := range candidates {
			matches[i] = fuzzy.Match{Str: c, Index: i}
		}

		return matches, candidates, wordStart, wordEnd
	}

	return fuzzy.Find(word, candidates), candidates, wordStart, wordEnd
}

// renderCandidateBar builds the single-line completion bar, ellipsized to fit
// within width. The selected candidate is highlighted while tab-cycling.
func renderCandidateBar(
	matches fuzzy.Matches,
	suggIdx int,
	tabActive bool,
	width int,
) string {
	if len(matches) == 0 || width <= 0 {
		return ""
	}

	const sep = "  "

	sepWidth := lipgloss.Width(sep)
	ellipsis := hintStyle.Render("...")
	ellipsisWidth := lipgloss.Width(ellipsis)

	var b strings.Builder

	used := 0

	for i, match := range matches {
		rendered := renderCandidate(match, tabActive && i == suggIdx)

		entryWidth := lipgloss.Width(rendered)
		if i > 0 {
			entryWidth += sepWidth
		}

		if i > 0 && used+entryWidth+ellipsisWidth > width {
			b.WriteString(sep)
			b.WriteString(ellipsis)

			break
		}

		if i > 0 {
			b.WriteString(sep)
		}

		b.WriteString(rendered)

		used += entryWidth
	}

	return b.String()
}

// renderCandidate renders a candidate with its matched characters in bold.
func renderCandidate(match fuzzy.Match, selected bool) string {
	base := suggestionStyle
	if selected {
		base = selectedStyle
	}

	highlight := base.Bold(true)

	matched := make(map[int]bool, len(match.MatchedIndexes))
	for _, idx := range match.MatchedIndexes {
		matched[idx] = true
	}

	var b strings.Builder

	for i, r := range match.Str {
		if matched[i] {
			b.WriteString(highlight.Render(string(r)))
		} else {
			b.WriteString(base.Render(string(r)))
		}
	}

	return b.String()
}
