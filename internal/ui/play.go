package ui

import (
	"context"
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"charm.land/bubbles/v2/help"
	"charm.land/bubbles/v2/key"
	"charm.land/bubbles/v2/progress"
	"charm.land/bubbles/v2/spinner"
	"charm.land/bubbles/v2/textarea"
	tea "charm.land/bubbletea/v2"
	"charm.land/lipgloss/v2"
	"github.com/charmbracelet/glamour"
	clog "github.com/charmbracelet/log"

	"pydojo/internal/app"
	"pydojo/internal/grading"
	"pydojo/internal/state"
)

type playKeyMap struct {
	Run    key.Binding
	Reveal key.Binding
	Reset  key.Binding
	Next   key.Binding
	Quit   key.Binding
}

func (k playKeyMap) ShortHelp() []key.Binding {
	return []key.Binding{k.Run, k.Reveal, k.Reset, k.Next, k.Quit}
}

func (k playKeyMap) FullHelp() [][]key.Binding {
	return [][]key.Binding{{k.Run, k.Reveal, k.Reset}, {k.Next, k.Quit}}
}

type (
	submitDoneMsg struct {
		sub app.Submission
		err error
	}
	revealDoneMsg struct {
		solution string
		err      error
	}
	resetDoneMsg struct {
		code string
		err  error
	}
	lessonOpenedMsg struct {
		view app.LessonView
		err  error
	}
	autosaveMsg struct{ seq int }
	savedMsg    struct{ err error }
	readyMsg    struct{}
	pollMsg     time.Time
)

type Options struct {
	StyleVariant string
	ASCIIOnly    bool
	Debounce     time.Duration
	Debug        bool
}

// Root is the play screen: one lesson, an editor, and the mentor's verdict.
type Root struct {
	ctrl   Controller
	ctx    context.Context
	theme  Theme
	logger *clog.Logger

	cols   int
	rows   int
	layout LayoutMode

	lesson    app.LessonView
	concept   string
	profile   state.Profile
	editor    textarea.Model
	lastSaved string
	editSeq   int
	debounce  time.Duration

	running   bool
	ready     bool
	readyErr  string
	outcome   grading.Outcome
	output    string
	errText   string
	verdict   string
	mentor    string
	solution  string
	canReveal bool
	passed    bool
	status    string

	help     help.Model
	keymap   playKeyMap
	goalBar  progress.Model
	spin     spinner.Model
	markdown *glamour.TermRenderer
}

func New(ctx context.Context, ctrl Controller, view app.LessonView, opts Options) *Root {
	logger := clog.NewWithOptions(os.Stderr, clog.Options{Prefix: "pydojo-ui", Level: clog.WarnLevel})
	if opts.Debug {
		logger.SetLevel(clog.DebugLevel)
	}
	theme := ThemeForVariant(opts.StyleVariant)
	if opts.ASCIIOnly {
		theme = theme.asciiSafe()
	}
	if opts.Debounce <= 0 {
		opts.Debounce = 800 * time.Millisecond
	}

	renderer, err := glamour.NewTermRenderer(
		glamour.WithStandardStyle("dark"),
		glamour.WithWordWrap(72),
	)
	if err != nil {
		logger.Warn("markdown renderer unavailable", "err", err)
		renderer = nil
	}

	h := help.New()
	h.Styles = help.DefaultDarkStyles()

	editor := textarea.New()
	editor.ShowLineNumbers = true
	editor.Placeholder = "# write your Python here"
	editor.CharLimit = 0
	editor.MaxHeight = 0

	r := &Root{
		ctrl:     ctrl,
		ctx:      ctx,
		theme:    theme,
		logger:   logger,
		cols:     120,
		rows:     36,
		layout:   LayoutWide,
		editor:   editor,
		debounce: opts.Debounce,
		help:     h,
		goalBar: progress.New(
			progress.WithWidth(24),
			progress.WithColors(lipgloss.Color("#5EC2FF"), lipgloss.Color("#79E6A6"), lipgloss.Color("#F2D16B")),
			progress.WithScaled(true),
		),
		spin: spinner.New(
			spinner.WithSpinner(spinner.MiniDot),
			spinner.WithStyle(theme.Accent),
		),
		markdown: renderer,
		keymap: playKeyMap{
			Run:    key.NewBinding(key.WithKeys("ctrl+r"), key.WithHelp("ctrl+r", "run")),
			Reveal: key.NewBinding(key.WithKeys("ctrl+s"), key.WithHelp("ctrl+s", "solution")),
			Reset:  key.NewBinding(key.WithKeys("ctrl+t"), key.WithHelp("ctrl+t", "reset")),
			Next:   key.NewBinding(key.WithKeys("ctrl+n"), key.WithHelp("ctrl+n", "next lesson")),
			Quit:   key.NewBinding(key.WithKeys("esc", "ctrl+c"), key.WithHelp("esc", "quit")),
		},
	}
	r.ready = ctrl.Readiness().Ready || !ctrl.Readiness().Started
	r.setLesson(view)
	return r
}

func (r *Root) setLesson(view app.LessonView) {
	r.lesson = view
	r.profile = view.Profile
	r.editor.SetValue(view.Code)
	r.lastSaved = view.Code
	r.outcome = ""
	r.output = ""
	r.errText = ""
	r.verdict = ""
	r.mentor = ""
	r.solution = ""
	r.canReveal = false
	r.passed = false
	r.concept = r.renderConcept(view.Lesson.ConceptMD)
	r.syncKeys()
	if view.FromDraft {
		r.status = "Restored your saved draft"
	}
}

func (r *Root) renderConcept(md string) string {
	if r.markdown == nil {
		return md
	}
	out, err := r.markdown.Render(md)
	if err != nil {
		r.logger.Debug("concept render failed", "err", err)
		return md
	}
	return strings.Trim(out, "\n")
}

func (r *Root) syncKeys() {
	r.keymap.Reveal.SetEnabled(r.canReveal)
	r.keymap.Next.SetEnabled(r.passed && !r.running)
	r.keymap.Run.SetEnabled(!r.running)
}

func (r *Root) Init() tea.Cmd {
	cmds := []tea.Cmd{r.editor.Focus(), spinnerTickCmd(r.spin)}
	if !r.ready {
		cmds = append(cmds, waitReadyCmd(r.ctrl.ReadyC()), pollCmd())
	}
	return tea.Batch(cmds...)
}

func (r *Root) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		r.resize(msg.Width, msg.Height)
		return r, nil
	case readyMsg:
		r.ready = true
		r.readyErr = ""
		r.status = "Python is ready"
		return r, nil
	case pollMsg:
		if r.ready {
			return r, nil
		}
		if s := r.ctrl.Readiness(); s.Failed {
			r.readyErr = "Python could not start"
			if s.Err != nil {
				r.readyErr += ": " + s.Err.Error()
			}
			return r, nil
		}
		return r, pollCmd()
	case spinner.TickMsg:
		var cmd tea.Cmd
		r.spin, cmd = r.spin.Update(msg)
		return r, cmd
	case submitDoneMsg:
		r.onSubmitted(msg)
		return r, nil
	case revealDoneMsg:
		if msg.err != nil {
			r.status = msg.err.Error()
			return r, nil
		}
		r.solution = msg.solution
		r.canReveal = false
		r.mentor = app.RevealMessage
		r.syncKeys()
		return r, nil
	case resetDoneMsg:
		if msg.err != nil {
			r.status = msg.err.Error()
			return r, nil
		}
		r.editor.SetValue(msg.code)
		r.lastSaved = msg.code
		r.status = "Code reset to the starter"
		return r, nil
	case lessonOpenedMsg:
		if msg.err != nil {
			r.status = msg.err.Error()
			return r, nil
		}
		r.setLesson(msg.view)
		r.resize(r.cols, r.rows)
		return r, nil
	case autosaveMsg:
		if msg.seq != r.editSeq || r.editor.Value() == r.lastSaved {
			return r, nil
		}
		return r, r.saveCmd(r.editor.Value())
	case savedMsg:
		if msg.err != nil {
			r.status = "Autosave failed: " + msg.err.Error()
		}
		return r, nil
	case tea.KeyPressMsg:
		return r.handleKey(msg)
	}

	var cmd tea.Cmd
	r.editor, cmd = r.editor.Update(msg)
	return r, cmd
}

func (r *Root) handleKey(msg tea.KeyPressMsg) (tea.Model, tea.Cmd) {
	switch {
	case key.Matches(msg, r.keymap.Quit):
		code := r.editor.Value()
		if code == r.lastSaved {
			return r, tea.Quit
		}
		return r, tea.Sequence(r.saveCmd(code), tea.Quit)
	case key.Matches(msg, r.keymap.Run):
		if !r.ready {
			r.status = "Python is still warming up, one moment"
			if r.readyErr != "" {
				r.status = r.readyErr
			}
			return r, nil
		}
		r.running = true
		r.status = ""
		r.syncKeys()
		return r, tea.Batch(spinnerTickCmd(r.spin), r.submitCmd(r.editor.Value()))
	case key.Matches(msg, r.keymap.Reveal):
		return r, r.revealCmd()
	case key.Matches(msg, r.keymap.Reset):
		return r, r.resetCmd()
	case key.Matches(msg, r.keymap.Next):
		return r, r.nextLessonCmd()
	}

	before := r.editor.Value()
	var cmd tea.Cmd
	r.editor, cmd = r.editor.Update(msg)
	if r.editor.Value() == before {
		return r, cmd
	}
	r.editSeq++
	seq := r.editSeq
	return r, tea.Batch(cmd, tea.Tick(r.debounce, func(time.Time) tea.Msg { return autosaveMsg{seq: seq} }))
}

func (r *Root) onSubmitted(msg submitDoneMsg) {
	r.running = false
	defer r.syncKeys()
	if msg.err != nil {
		switch {
		case errors.Is(msg.err, grading.ErrBusy):
			r.status = "Still running your last submission"
		case errors.Is(msg.err, grading.ErrRuntimeUnavailable):
			r.status = "Python is not ready yet. Try again in a moment."
		default:
			r.status = msg.err.Error()
		}
		return
	}
	sub := msg.sub
	if sub.Stale {
		return
	}
	res := sub.Result
	r.outcome = res.Outcome
	r.output = res.Output
	r.errText = res.Error
	r.verdict = sub.Message
	r.mentor = sub.Advice
	r.canReveal = sub.CanReveal
	r.profile = sub.Profile
	if res.Passed() {
		r.passed = true
		r.mentor = ""
		if sub.Credit != nil && sub.Credit.XPAwarded > 0 {
			r.status = fmt.Sprintf("+%d XP", sub.Credit.XPAwarded)
		}
	}
}

func (r *Root) submitCmd(code string) tea.Cmd {
	ctrl, ctx := r.ctrl, r.ctx
	return func() tea.Msg {
		sub, err := ctrl.Submit(ctx, code)
		return submitDoneMsg{sub: sub, err: err}
	}
}

func (r *Root) revealCmd() tea.Cmd {
	ctrl, ctx := r.ctrl, r.ctx
	return func() tea.Msg {
		solution, err := ctrl.RevealSolution(ctx)
		return revealDoneMsg{solution: solution, err: err}
	}
}

func (r *Root) resetCmd() tea.Cmd {
	ctrl, ctx := r.ctrl, r.ctx
	return func() tea.Msg {
		code, err := ctrl.ResetCode(ctx)
		return resetDoneMsg{code: code, err: err}
	}
}

func (r *Root) saveCmd(code string) tea.Cmd {
	r.lastSaved = code
	ctrl, ctx := r.ctrl, r.ctx
	return func() tea.Msg {
		return savedMsg{err: ctrl.SaveDraft(ctx, code)}
	}
}

func (r *Root) nextLessonCmd() tea.Cmd {
	ctrl, ctx, current := r.ctrl, r.ctx, r.lesson.Lesson.LessonID
	return func() tea.Msg {
		list, err := ctrl.Lessons(ctx)
		if err != nil {
			return lessonOpenedMsg{err: err}
		}
		next := nextLessonID(list, current)
		if next == "" {
			return lessonOpenedMsg{err: errors.New("no lessons left after this one")}
		}
		view, err := ctrl.OpenLesson(ctx, next)
		return lessonOpenedMsg{view: view, err: err}
	}
}

// nextLessonID prefers the first unfinished lesson after current, then the
// plain successor.
func nextLessonID(list []app.LessonSummary, current string) string {
	at := -1
	for i, l := range list {
		if l.LessonID == current {
			at = i
			break
		}
	}
	for _, l := range list[at+1:] {
		if !l.Completed {
			return l.LessonID
		}
	}
	if at >= 0 && at+1 < len(list) {
		return list[at+1].LessonID
	}
	return ""
}

func (r *Root) resize(cols, rows int) {
	r.cols, r.rows = cols, rows
	r.layout = DetermineLayoutMode(cols, rows)
	editorWidth := cols - 4
	if r.layout == LayoutWide {
		left, _ := splitWidth(cols)
		editorWidth = left - 4
	}
	r.editor.SetWidth(max(20, editorWidth))
	r.editor.SetHeight(max(5, rows/3))
}

func (r *Root) View() tea.View {
	var body string
	if r.layout == LayoutTooSmall {
		body = r.theme.Fail.Render(fmt.Sprintf("Terminal too small (%dx%d). Resize to at least 60x20.", r.cols, r.rows))
	} else {
		body = r.render()
	}
	v := tea.NewView(body)
	v.AltScreen = true
	return v
}

func (r *Root) render() string {
	sections := []string{r.headerText(), r.lessonText()}
	editor := r.theme.box(r.theme.EditorBorder, "Your code", r.editor.View(), r.editorWidth())
	side := r.sideText()
	if r.layout == LayoutWide {
		_, right := splitWidth(r.cols)
		sections = append(sections, lipgloss.JoinHorizontal(lipgloss.Top, editor, r.theme.box(r.theme.PanelBorder, "Output", side, right)))
	} else {
		sections = append(sections, editor, r.theme.box(r.theme.PanelBorder, "Output", side, r.cols))
	}
	if r.mentor != "" {
		sections = append(sections, r.theme.Bubble.Width(max(20, r.cols-4)).Render(r.theme.BubbleTitle.Render("Kofi says")+"\n"+r.mentor))
	}
	if r.solution != "" {
		sections = append(sections, r.theme.box(r.theme.PanelBorder, "Solution", r.solution, r.cols))
	}
	sections = append(sections, r.goalText(), r.statusText())
	return lipgloss.JoinVertical(lipgloss.Left, sections...)
}

func (r *Root) editorWidth() int {
	if r.layout == LayoutWide {
		left, _ := splitWidth(r.cols)
		return left
	}
	return r.cols
}

func (r *Root) headerText() string {
	l := r.lesson.Lesson
	txt := fmt.Sprintf("PyDojo | %s | %s", l.Region, l.Title)
	if r.lesson.Completed || r.passed {
		txt += " [done]"
	}
	txt += fmt.Sprintf(" | Lv %d | %d XP | streak %d", r.profile.Level, r.profile.XP, r.profile.Streak)
	return r.theme.Header.Width(max(1, r.cols)).Render(txt)
}

func (r *Root) lessonText() string {
	l := r.lesson.Lesson
	var b strings.Builder
	if r.concept != "" {
		b.WriteString(r.concept)
		b.WriteString("\n")
	}
	if l.Example != "" {
		b.WriteString(r.theme.Muted.Render(strings.TrimRight(l.Example, "\n")))
		b.WriteString("\n\n")
	}
	b.WriteString(r.theme.Accent.Render("Challenge: "))
	b.WriteString(l.Challenge)
	return b.String()
}

func (r *Root) sideText() string {
	switch {
	case r.running:
		return r.theme.Pending.Render(strings.TrimSpace(r.spin.View()) + " Running...")
	case r.outcome == "":
		return r.theme.Muted.Render("Press ctrl+r to run your code.")
	}
	var b strings.Builder
	switch r.outcome {
	case grading.OutcomePass:
		b.WriteString(r.theme.Pass.Render(r.verdict))
	default:
		b.WriteString(r.theme.Fail.Render(r.verdict))
	}
	if r.output != "" {
		b.WriteString("\n\n")
		b.WriteString(r.theme.PanelBody.Render(strings.TrimRight(r.output, "\n")))
	}
	if r.errText != "" && r.errText != r.verdict {
		b.WriteString("\n\n")
		b.WriteString(r.theme.Fail.Render(r.errText))
	}
	if r.canReveal {
		b.WriteString("\n\n")
		b.WriteString(r.theme.Info.Render("Stuck? Press ctrl+s to see the solution."))
	}
	return b.String()
}

func (r *Root) goalText() string {
	p := r.profile
	pct := 0.0
	if p.DailyGoal > 0 {
		pct = min(1, float64(p.TodayCount)/float64(p.DailyGoal))
	}
	return fmt.Sprintf("Today %d/%d %s %s", p.TodayCount, p.DailyGoal, r.goalBar.ViewAs(pct), r.theme.Muted.Render(app.GoalMessage(p)))
}

func (r *Root) statusText() string {
	txt := r.help.View(r.keymap)
	if !r.ready {
		if r.readyErr != "" {
			txt += " | " + r.theme.Fail.Render(r.readyErr)
		} else {
			txt += " | " + r.theme.Pending.Render(strings.TrimSpace(r.spin.View())+" Warming up Python...")
		}
	}
	if r.status != "" {
		txt += " | " + r.status
	}
	return r.theme.Status.Width(max(1, r.cols)).Render(txt)
}

// Run starts the full-screen program and blocks until the learner quits.
func (r *Root) Run() error {
	_, err := tea.NewProgram(r).Run()
	return err
}

func spinnerTickCmd(model spinner.Model) tea.Cmd {
	return func() tea.Msg {
		return model.Tick()
	}
}

func waitReadyCmd(ch <-chan struct{}) tea.Cmd {
	return func() tea.Msg {
		<-ch
		return readyMsg{}
	}
}

func pollCmd() tea.Cmd {
	return tea.Tick(app.PollInterval, func(t time.Time) tea.Msg { return pollMsg(t) })
}
