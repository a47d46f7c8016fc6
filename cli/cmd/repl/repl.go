package repl

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"log/slog"
	"slices"
	"strconv"
	"strings"

	"github.com/charmbracelet/bubbles/textinput"
	"github.com/charmbracelet/lipgloss"
	"github.com/sahilm/fuzzy"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/ardnew/stache/log"
	"github.com/ardnew/stache/tmpl"
)

// Config holds the starting state of a REPL session.
type Config struct {
	// Options are applied to every compile before the session toggles.
	Options []tmpl.Option
	// Delimiters are the starting interpolator delimiters, if not default.
	Delimiters    []string
	Sanitize      bool
	StripComments bool
	// Format is "json" or "yaml".
	Format      string
	HistoryPath string
	Logger      log.Logger
}

// editDoneMsg is sent when an edited template compiled.
type editDoneMsg struct {
	source string
	result *tmpl.Result
}

// editCancelledMsg is sent when the user cleared the editor content.
type editCancelledMsg struct{}

// editDeclinedMsg is sent when the user declined to re-edit after a compile
// error.
type editDeclinedMsg struct{}

// editErrorMsg is sent when the edit process fails for any other reason.
type editErrorMsg struct{ err error }

const (
	tmplPrompt = "➜ "
	ctrlPrompt = " :"

	// ctrlSigil runs the rest of a template-mode line as a command.
	ctrlSigil = ":"
)

func helpMessage() string {
	return `
: Commands (press Esc to toggle mode, or prefix a template line with ':'):

  help               Print this cruft
  json | yaml        Select the output format
  delims [OPEN CLOSE] Set interpolator delimiters (no arguments resets)
  sanitize [on|off]  Drop unsafe elements and event attributes
  strip [on|off]     Discard HTML comments
  edit               Edit the last template in $EDITOR
  clear              Clear screen
  quit               Exit REPL

Usage:
  Type a template to compile it
  Completions appear after an opening delimiter or '<'
  Press Tab / Shift-Tab to cycle through candidates
  Press Esc to toggle between template and command modes
  Use Up/Down arrows for history navigation (mode switches automatically)
  Use Shift+Up/Shift+Down for history navigation within current mode only
  Use Alt+Up/Alt+Down to navigate command history
  Press Ctrl+C on empty line or Ctrl+D to exit
`
}

// inputMode represents the current input mode.
type inputMode int

const (
	modeTemplate inputMode = iota
	modeCtrl
)

// Styles.
var (
	promptStyle     = lipgloss.NewStyle().Foreground(lipgloss.Color("6")).Bold(true)
	ctrlPromptStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("5")).Bold(true)
	inputStyle      = lipgloss.NewStyle().Foreground(lipgloss.Color("15"))
	resultStyle     = lipgloss.NewStyle().Foreground(lipgloss.Color("2"))
	errorStyle      = lipgloss.NewStyle().Foreground(lipgloss.Color("1"))
	hintStyle       = lipgloss.NewStyle().Foreground(lipgloss.Color("8"))
	suggestionStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("4"))
	selectedStyle   = lipgloss.NewStyle().
			Foreground(lipgloss.Color("0")).
			Background(lipgloss.Color("4"))
)

// echo formats a submitted line with its prompt.
func echo(mode inputMode, input string) string {
	if mode == modeCtrl {
		return ctrlPromptStyle.Render(ctrlPrompt) + inputStyle.Render(input)
	}

	return promptStyle.Render(tmplPrompt) + inputStyle.Render(input)
}

// model is the Bubble Tea model for the REPL.
type model struct {
	ctxFunc    func() context.Context
	input      textinput.Model
	cfg        Config
	logger     log.Logger
	history    *History
	historyIdx int

	// Session settings changed by commands.
	delims   []string
	sanitize bool
	strip    bool
	format   string
	last     string // most recently compiled template

	matches      fuzzy.Matches // current fuzzy match results
	candidates   []string      // backing candidate list
	wordStart    int           // byte offset of current word start
	wordEnd      int           // byte offset of current word end
	suggIdx      int           // selected candidate index
	tabActive    bool          // whether user is tab-cycling
	preTabText   string        // input text before tab-cycling began
	preTabCursor int           // cursor position before tab-cycling began

	altNavActive     bool      // whether user is in Alt+Up/Down navigation
	altNavOrigMode   inputMode // original mode before Alt navigation
	altNavOrigText   string    // original text before Alt navigation
	altNavOrigCursor int       // original cursor position before Alt navigation

	width    int // terminal width for ellipsization
	quitting bool
	mode     inputMode
	saved    [2]struct {
		text   string
		cursor int
	} // input of the inactive mode, indexed by inputMode
}

// Run starts an interactive session.
func Run(ctx context.Context, cfg Config) (err error) {
	ctx, cancel := context.WithCancelCause(ctx)

	defer func(err *error) { cancel(*err) }(&err)

	cfg.Logger.TraceContext(ctx, "repl start",
		slog.String("history", cfg.HistoryPath),
		slog.String("format", cfg.Format),
	)

	history := NewHistory(cfg.HistoryPath)
	if err := history.Load(); err != nil {
		log.WarnContext(ctx, "could not load history",
			slog.String("path", cfg.HistoryPath),
			slog.String("error", err.Error()),
		)
	}

	cfg.Logger.TraceContext(ctx, "repl history loaded",
		slog.Int("entries", history.Len()),
	)

	_, err = tea.NewProgram(newModel(ctx, cfg, history), tea.WithContext(ctx)).Run()

	return err
}

const defaultWidth = 80

func newModel(ctx context.Context, cfg Config, history *History) model {
	ti := textinput.New()
	ti.Prompt = promptStyle.Render(tmplPrompt)
	ti.Focus()
	ti.CharLimit = 4096
	ti.Width = defaultWidth

	format := cfg.Format
	if format == "" {
		format = formatJSON
	}

	return model{
		ctxFunc:    func() context.Context { return ctx },
		input:      ti,
		cfg:        cfg,
		logger:     cfg.Logger,
		history:    history,
		historyIdx: history.Len(),
		delims:     slices.Clone(cfg.Delimiters),
		sanitize:   cfg.Sanitize,
		strip:      cfg.StripComments,
		format:     format,
		suggIdx:    -1,
		width:      defaultWidth,
		mode:       modeTemplate,
	}
}

const (
	formatJSON = "json"
	formatYAML = "yaml"
)

// openDelimiter returns the opening interpolator delimiter in effect.
func (m model) openDelimiter() string {
	if len(m.delims) == 2 {
		return m.delims[0]
	}

	return "{{"
}

// options returns the compile options for the current session settings.
func (m model) options() []tmpl.Option {
	opts := slices.Clone(m.cfg.Options)

	switch {
	case len(m.delims) == 2:
		opts = append(opts, tmpl.WithDelimiters(m.delims[0], m.delims[1]))
	case len(m.cfg.Delimiters) != 0:
		opts = append(opts, tmpl.WithDelimiters("{{", "}}"))
	}

	if m.sanitize != m.cfg.Sanitize {
		var s tmpl.Sanitize
		if m.sanitize {
			s = tmpl.SanitizeDefault()
		}

		opts = append(opts, tmpl.WithSanitize(s))
	}

	if m.strip != m.cfg.StripComments {
		opts = append(opts, tmpl.WithStripComments(m.strip))
	}

	return append(opts, tmpl.WithLogger(m.logger))
}

func (m model) compile(ctx context.Context, source string) (*tmpl.Result, error) {
	return tmpl.Parse(ctx, source, m.options()...)
}

// render formats a compiled result in the selected output format.
func (m model) render(r *tmpl.Result) string {
	var (
		buf bytes.Buffer
		err error
	)

	if m.format == formatYAML {
		err = r.FormatYAML(m.ctxFunc(), &buf, tmpl.DefaultIndent)
	} else {
		err = r.FormatJSON(&buf, 0)
	}

	if err != nil {
		return errorStyle.Render("error: " + err.Error())
	}

	return resultStyle.Render(strings.TrimRight(buf.String(), "\n"))
}

// renderError formats a compile error with a snippet of source marking the
// failure position.
func renderError(source string, err error) string {
	lines := strings.Split(strings.TrimRight(tmpl.FormatError(source, err), "\n"), "\n")

	for i, line := range lines {
		switch {
		case i == 0, i == len(lines)-1 && strings.TrimSpace(line) == "^":
			lines[i] = errorStyle.Render(line)
		default:
			lines[i] = hintStyle.Render(line)
		}
	}

	return strings.Join(lines, "\n")
}

// status summarizes the session settings.
func (m model) status() string {
	onOff := map[bool]string{true: "on", false: "off"}

	delims := "{{ }}"
	if len(m.delims) == 2 {
		delims = m.delims[0] + " " + m.delims[1]
	}

	return fmt.Sprintf("%s  delims %s  sanitize %s  strip %s",
		m.format, delims, onOff[m.sanitize], onOff[m.strip])
}

func (m model) Init() tea.Cmd {
	return textinput.Blink
}

func (m model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		return m.handleKey(msg)

	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.input.Width = msg.Width - len(tmplPrompt) - 2

		return m, nil

	case editDoneMsg:
		m.last = msg.source

		m.logger.TraceContext(m.ctxFunc(), "repl edit complete",
			slog.Int("length", len(msg.source)),
		)

		return m, tea.Println(m.render(msg.result))

	case editCancelledMsg:
		return m, tea.Println(hintStyle.Render("edit cancelled"))

	case editDeclinedMsg:
		m.quitting = true

		return m, tea.Quit

	case editErrorMsg:
		return m, tea.Println(errorStyle.Render("error: " + msg.err.Error()))
	}

	var cmd tea.Cmd

	m.input, cmd = m.input.Update(msg)

	return m, cmd
}

func (m model) View() string {
	if m.quitting {
		return ""
	}

	var b strings.Builder

	b.WriteString(m.input.View())
	b.WriteString("\n")

	switch input := m.input.Value(); {
	case m.historyIdx < m.history.Len():
		b.WriteString(hintStyle.Render(fmt.Sprintf("%s/%d",
			lipgloss.NewStyle().Bold(true).Render(strconv.Itoa(m.historyIdx+1)),
			m.history.Len())))

	case strings.TrimSpace(input) == "":
		hint := "Type a template or press Esc for commands  [" + m.status() + "]"
		if m.mode == modeCtrl {
			hint = "Type: " + strings.Join(ctrlCommands, ", ") + " (press Esc to return)"
		}

		b.WriteString(hintStyle.Render(hint))

	case len(m.matches) > 0:
		b.WriteString(renderCandidateBar(m.matches, m.suggIdx, m.tabActive, m.width))
	}

	b.WriteString("\n")

	return b.String()
}

func (m model) handleKey(msg tea.KeyMsg) (model, tea.Cmd) {
	m.logger.TraceContext(m.ctxFunc(), "repl keypress",
		slog.String("key", msg.String()),
		slog.Int("type", int(msg.Type)),
	)

	switch msg.Type {
	case tea.KeyCtrlC:
		if m.input.Value() == "" {
			m.quitting = true

			return m, tea.Quit
		}

		m.input.SetValue("")
		m.tabActive = false
		m.altNavActive = false
		m.historyIdx = m.history.Len()
		refreshMatches(&m, false)

		return m, nil

	case tea.KeyCtrlD:
		if m.input.Value() == "" {
			m.quitting = true

			return m, tea.Quit
		}

		return m, nil

	case tea.KeyEnter:
		m.altNavActive = false

		if !m.tabActive || len(m.matches) == 0 {
			return m.executeInput()
		}

		// Lock in the current tab candidate without executing.
		m.tabActive = false
		refreshMatches(&m, true)

		return m, nil

	case tea.KeyTab:
		return m.cycle(1), nil

	case tea.KeyShiftTab:
		return m.cycle(-1), nil

	case tea.KeyUp:
		if msg.Alt {
			return m.historyCtrl(-1), nil
		}

		return m.historyStep(-1, false), nil

	case tea.KeyDown:
		if msg.Alt {
			return m.historyCtrl(1), nil
		}

		return m.historyStep(1, false), nil

	case tea.KeyShiftUp:
		return m.historyStep(-1, true), nil

	case tea.KeyShiftDown:
		return m.historyStep(1, true), nil

	case tea.KeyEsc:
		if m.tabActive {
			m.tabActive = false
			m.input.SetValue(m.preTabText)
			m.input.SetCursor(m.preTabCursor)
			refreshMatches(&m, false)

			return m, nil
		}

		m.altNavActive = false

		return m.switchToMode(1 - m.mode), nil

	case tea.KeyRunes, tea.KeySpace:
		// Space ends tab-cycling and keeps the selected candidate.
		if m.tabActive && msg.String() == " " {
			m.tabActive = false
		}

		var cmd tea.Cmd

		m.historyIdx = m.history.Len()
		m.input, cmd = m.input.Update(msg)
		refreshMatches(&m, true)

		return m, cmd
	}

	// Any other key edits or moves without auto-confirming a completion.
	var cmd tea.Cmd

	m.tabActive = false
	m.altNavActive = false
	m.historyIdx = m.history.Len()
	m.input, cmd = m.input.Update(msg)
	refreshMatches(&m, false)

	return m, cmd
}

// cycle moves the tab selection by step, wrapping at either end. A single
// candidate is completed immediately.
func (m model) cycle(step int) model {
	n := len(m.matches)
	if n == 0 {
		return m
	}

	if n == 1 {
		replaceCurrentWord(&m, m.matches[0].Str)
		m.tabActive = false
		m.suggIdx = -1
		m.matches = nil

		return m
	}

	if m.tabActive {
		m.suggIdx = (m.suggIdx + step + n) % n
	} else {
		m.tabActive = true
		m.preTabText = m.input.Value()
		m.preTabCursor = m.input.Position()

		m.suggIdx = 0
		if step < 0 {
			m.suggIdx = n - 1
		}
	}

	replaceCurrentWord(&m, m.matches[m.suggIdx].Str)

	return m
}

// replaceCurrentWord replaces the current word in the input with replacement
// and places the cursor after it.
func replaceCurrentWord(m *model, replacement string) {
	input := m.input.Value()
	cursor := m.wordStart + len(replacement)

	m.input.SetValue(input[:m.wordStart] + replacement + input[m.wordEnd:])
	m.input.SetCursor(cursor)

	m.wordEnd = cursor
}

// refreshMatches recomputes fuzzy matches for the current input. With
// autoConfirm, a word that already equals its only candidate is accepted.
// Deletions and cursor motion pass false so editing never completes
// unexpectedly.
func refreshMatches(m *model, autoConfirm bool) {
	m.matches, m.candidates, m.wordStart, m.wordEnd = m.computeMatches()

	if !m.tabActive {
		m.suggIdx = -1
	}

	if !autoConfirm || len(m.matches) != 1 {
		return
	}

	if m.input.Value()[m.wordStart:m.wordEnd] == m.matches[0].Str {
		m.tabActive = false
		m.suggIdx = -1
		m.matches = nil
	}
}

func (m model) executeInput() (model, tea.Cmd) {
	input := strings.TrimSpace(m.input.Value())
	if input == "" {
		return m, nil
	}

	mode := m.mode
	if s, ok := strings.CutPrefix(input, ctrlSigil); ok && mode == modeTemplate {
		input, mode = strings.TrimSpace(s), modeCtrl
	}

	m.saved = [2]struct {
		text   string
		cursor int
	}{}
	m.input.SetValue("")
	refreshMatches(&m, false)

	if err := m.history.Add(input, mode); err != nil {
		m.logger.TraceContext(m.ctxFunc(), "repl history write",
			slog.String("error", err.Error()))
	}

	m.historyIdx = m.history.Len()

	if mode == modeCtrl {
		return m.executeCommand(input)
	}

	m.last = input

	r, err := m.compile(m.ctxFunc(), input)

	m.logger.TraceContext(m.ctxFunc(), "repl compile",
		slog.String("input", input),
		slog.Bool("success", err == nil),
	)

	if err != nil {
		return m, tea.Sequence(
			tea.Println(echo(mode, input)),
			tea.Println(renderError(input, err)),
		)
	}

	return m, tea.Sequence(
		tea.Println(echo(mode, input)),
		tea.Println(m.render(r)),
	)
}

// setting parses an optional on/off argument. No argument toggles current.
func setting(current bool, args []string) (bool, error) {
	if len(args) == 0 {
		return !current, nil
	}

	switch strings.ToLower(args[0]) {
	case "on", "true", "yes", "1":
		return true, nil
	case "off", "false", "no", "0":
		return false, nil
	}

	return current, fmt.Errorf("%w: expected on or off, got %q", ErrUsage, args[0])
}

func (m model) executeCommand(input string) (model, tea.Cmd) {
	parts := strings.Fields(input)
	if len(parts) == 0 {
		return m, nil
	}

	echoCmd := tea.Println(echo(modeCtrl, input))
	cmd, args := parts[0], parts[1:]

	m.logger.TraceContext(m.ctxFunc(), "repl exec command",
		slog.String("command", cmd),
		slog.Any("args", args),
	)

	report := func(err error) (model, tea.Cmd) {
		if err != nil {
			return m, tea.Sequence(echoCmd, tea.Println(errorStyle.Render("error: "+err.Error())))
		}

		return m, tea.Sequence(echoCmd, tea.Println(hintStyle.Render(m.status())))
	}

	switch cmd {
	case "q", "quit", "exit":
		m.quitting = true

		return m, tea.Sequence(echoCmd, tea.Quit)

	case "h", "help":
		return m, tea.Sequence(echoCmd, tea.Println(helpMessage()))

	case formatJSON, formatYAML:
		m.format = cmd

		return report(nil)

	case "delims":
		switch len(args) {
		case 0:
			m.delims = nil
		case 2:
			m.delims = args
		default:
			return report(fmt.Errorf("%w: delims OPEN CLOSE", ErrUsage))
		}

		return report(nil)

	case "sanitize":
		v, err := setting(m.sanitize, args)
		m.sanitize = v

		return report(err)

	case "strip":
		v, err := setting(m.strip, args)
		m.strip = v

		return report(err)

	case "c", "clear":
		return m, tea.ClearScreen

	case "e", "edit":
		return m, tea.Sequence(echoCmd, m.edit())

	default:
		return m, tea.Println(
			errorStyle.Render("Unknown command: " + cmd + " (try 'help')"),
		)
	}
}

// edit opens the most recent template in the user's editor.
func (m model) edit() tea.Cmd {
	cmd := &editCommand{
		source:  m.last,
		compile: m.compile,
		ctxFunc: m.ctxFunc,
		logger:  m.logger,
	}

	return tea.Exec(cmd, func(err error) tea.Msg {
		switch {
		case errors.Is(err, ErrEditDeclined):
			return editDeclinedMsg{}
		case err != nil:
			return editErrorMsg{err: err}
		case cmd.result == nil:
			return editCancelledMsg{}
		default:
			return editDoneMsg{source: cmd.edited, result: cmd.result}
		}
	})
}

// seek returns the index of the nearest entry from m.historyIdx in direction
// step that satisfies keep.
func (m model) seek(step int, keep func(HistoryEntry) bool) (int, HistoryEntry, bool) {
	for i := m.historyIdx + step; i >= 0 && i < m.history.Len(); i += step {
		if entry, err := m.history.Entry(i); err == nil && keep(entry) {
			return i, entry, true
		}
	}

	return 0, HistoryEntry{}, false
}

func (m model) recall(i int, entry HistoryEntry) model {
	if m.mode != entry.Mode {
		m = m.switchToMode(entry.Mode)
	}

	m.historyIdx = i
	m.input.SetValue(entry.Line)
	m.input.SetCursor(len(entry.Line))
	refreshMatches(&m, false)

	return m
}

// historyStep moves through history by step. With sameMode, entries from the
// other mode are skipped. Moving past the newest entry clears the input.
func (m model) historyStep(step int, sameMode bool) model {
	mode := m.mode

	i, entry, ok := m.seek(step, func(e HistoryEntry) bool {
		return !sameMode || e.Mode == mode
	})
	if ok {
		return m.recall(i, entry)
	}

	if step > 0 && m.historyIdx < m.history.Len() {
		m.historyIdx = m.history.Len()
		m.input.SetValue("")
		refreshMatches(&m, false)
	}

	return m
}

// historyCtrl moves through command history only. The first move saves the
// current input, which is restored once either end is passed.
func (m model) historyCtrl(step int) model {
	if !m.altNavActive {
		m.altNavActive = true
		m.altNavOrigMode = m.mode
		m.altNavOrigText = m.input.Value()
		m.altNavOrigCursor = m.input.Position()
		m = m.switchToMode(modeCtrl)
	}

	i, entry, ok := m.seek(step, func(e HistoryEntry) bool { return e.Mode == modeCtrl })
	if ok {
		return m.recall(i, entry)
	}

	m.altNavActive = false
	m = m.switchToMode(m.altNavOrigMode)
	m.input.SetValue(m.altNavOrigText)
	m.input.SetCursor(m.altNavOrigCursor)
	m.historyIdx = m.history.Len()
	refreshMatches(&m, false)

	return m
}

// switchToMode changes the input mode, saving the input of the current mode
// and restoring that of the target.
func (m model) switchToMode(mode inputMode) model {
	if mode == m.mode {
		return m
	}

	m.saved[m.mode].text = m.input.Value()
	m.saved[m.mode].cursor = m.input.Position()

	m.mode = mode

	if mode == modeTemplate {
		m.input.Prompt = promptStyle.Render(tmplPrompt)
	} else {
		m.input.Prompt = ctrlPromptStyle.Render(ctrlPrompt)
	}

	m.input.SetValue(m.saved[mode].text)
	m.input.SetCursor(m.saved[mode].cursor)
	refreshMatches(&m, false)

	return m
}
