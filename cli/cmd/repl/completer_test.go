package repl

import (
	"context"
	"slices"
	"testing"
)

// TestWordBounds verifies word extraction around the cursor.
func TestWordBounds(t *testing.T) {
	tests := []struct {
		name      string
		input     string
		cursor    int
		wantWord  string
		wantStart int
		wantEnd   int
	}{
		{"simple", "foo", 3, "foo", 0, 3},
		{"section keyword", "{{#ea", 5, "#ea", 2, 5},
		{"closing keyword", "a{{/ea", 6, "/ea", 3, 6},
		{"index ref", "{{@in", 5, "@in", 2, 5},
		{"keypath", "{{user.na", 9, "user.na", 2, 9},
		{"tag", "<di", 3, "di", 1, 3},
		{"closing tag", "x</di", 5, "/di", 2, 5},
		{"attribute value", `<a href="ur`, 11, "ur", 9, 11},
		{"mid word", "foobar", 3, "foobar", 0, 6},
		{"at start", "foo", 0, "foo", 0, 3},
		{"empty after delimiter", "{{", 2, "", 2, 2},
		{"cursor past end", "ab", 9, "ab", 0, 2},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			word, start, end := wordBounds(tt.input, tt.cursor)
			if word != tt.wantWord || start != tt.wantStart || end != tt.wantEnd {
				t.Errorf("wordBounds(%q, %d) = (%q, %d, %d), want (%q, %d, %d)",
					tt.input, tt.cursor, word, start, end,
					tt.wantWord, tt.wantStart, tt.wantEnd)
			}
		})
	}
}

// TestCompletionAt verifies classification of completion positions.
func TestCompletionAt(t *testing.T) {
	tests := []struct {
		name      string
		input     string
		wordStart int
		open      string
		want      completion
	}{
		{"after delimiter", "{{#e", 2, "{{", completeMustache},
		{"after delimiter and space", "{{ #e", 3, "{{", completeMustache},
		{"after triple", "{{{r", 3, "{{", completeMustache},
		{"custom delimiter", "[[#e", 2, "[[", completeMustache},
		{"default delimiter when custom", "{{#e", 2, "[[", completeNone},
		{"after angle", "<d", 1, "{{", completeTag},
		{"text", "hello w", 6, "{{", completeNone},
		{"start", "d", 0, "{{", completeNone},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := completionAt(tt.input, tt.wordStart, tt.open); got != tt.want {
				t.Errorf("completionAt(%q, %d, %q) = %d, want %d",
					tt.input, tt.wordStart, tt.open, got, tt.want)
			}
		})
	}
}

// TestCandidatesFor verifies candidate lists for each position.
func TestCandidatesFor(t *testing.T) {
	tests := []struct {
		name string
		kind completion
		word string
		want string
	}{
		{"command", completeCommand, "sa", "sanitize"},
		{"keyword", completeMustache, "#e", "#each"},
		{"closer", completeMustache, "/", "/unless"},
		{"tag", completeTag, "d", "div"},
		{"closing tag", completeTag, "/u", "/ul"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := candidatesFor(tt.kind, tt.word); !slices.Contains(got, tt.want) {
				t.Errorf("candidatesFor(%d, %q) missing %q", tt.kind, tt.word, tt.want)
			}
		})
	}

	if got := candidatesFor(completeNone, "x"); got != nil {
		t.Errorf("candidatesFor(completeNone) = %v, want nil", got)
	}
}

// TestModel_ComputeMatches verifies fuzzy matching at the cursor.
func TestModel_ComputeMatches(t *testing.T) {
	tests := []struct {
		name  string
		mode  inputMode
		input string
		want  string // best match; empty means no matches
	}{
		{"section", modeTemplate, "{{#ea", "#each"},
		{"closer", modeTemplate, "{{/unl", "/unless"},
		{"tag", modeTemplate, "<tex", "textarea"},
		{"closing tag", modeTemplate, "<p>x</p", "/p"},
		{"plain text", modeTemplate, "hello", ""},
		{"command", modeCtrl, "yam", "yaml"},
		{"empty command", modeCtrl, "", ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			m := newTestModel(t)
			m = m.switchToMode(tt.mode)
			m.input.SetValue(tt.input)
			m.input.SetCursor(len(tt.input))

			matches, _, _, _ := m.computeMatches()

			switch {
			case tt.want == "" && len(matches) != 0:
				t.Errorf("matches = %v, want none", matches)
			case tt.want != "" && (len(matches) == 0 || matches[0].Str != tt.want):
				t.Errorf("matches = %v, want first %q", matches, tt.want)
			}
		})
	}
}

// TestModel_ComputeMatchesEmptyWord verifies that an empty word after a
// delimiter lists every keyword.
func TestModel_ComputeMatchesEmptyWord(t *testing.T) {
	m := newTestModel(t)
	m.input.SetValue("a {{")
	m.input.SetCursor(4)

	matches, _, start, end := m.computeMatches()
	if len(matches) != len(mustacheKeywords) || start != 4 || end != 4 {
		t.Errorf("computeMatches = %d matches at [%d,%d], want %d at [4,4]",
			len(matches), start, end, len(mustacheKeywords))
	}
}

func newTestModel(t *testing.T) model {
	t.Helper()

	return newModel(context.Background(), Config{StripComments: true},
		NewHistory(t.TempDir()+"/history"))
}
