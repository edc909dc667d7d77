package cli

import (
	"fmt"
	"os"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/mattn/go-isatty"
)

// runProgressModel is a bubbletea model that animates a spinner with an
// elapsed timer while a run is in flight, replacing itself with a final
// summary line once the run's result (or error) arrives on done.
type runProgressModel struct {
	frame   int
	start   time.Time
	label   string
	done    <-chan runOutcome
	outcome *runOutcome
}

// runOutcome is what the run goroutine reports back to the TUI.
type runOutcome struct {
	summary string
	err     error
}

type tickMsg time.Time

func newRunProgressModel(label string, done <-chan runOutcome) runProgressModel {
	return runProgressModel{start: time.Now(), label: label, done: done}
}

func (m runProgressModel) Init() tea.Cmd {
	return tea.Batch(waitForOutcome(m.done), tickEvery())
}

func tickEvery() tea.Cmd {
	return tea.Tick(80*time.Millisecond, func(t time.Time) tea.Msg { return tickMsg(t) })
}

func waitForOutcome(done <-chan runOutcome) tea.Cmd {
	return func() tea.Msg {
		return <-done
	}
}

func (m runProgressModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		if msg.String() == "ctrl+c" {
			return m, tea.Quit
		}
	case tickMsg:
		if m.outcome != nil {
			return m, nil
		}
		m.frame++
		return m, tickEvery()
	case runOutcome:
		m.outcome = &msg
		return m, tea.Quit
	}
	return m, nil
}

var spinnerFrames = []string{"⠋", "⠙", "⠹", "⠸", "⠼", "⠴", "⠦", "⠧", "⠇", "⠏"}

func (m runProgressModel) View() string {
	elapsed := time.Since(m.start).Round(100 * time.Millisecond)
	if m.outcome != nil {
		if m.outcome.err != nil {
			return styleIconError.Render("✗") + " " + m.outcome.err.Error() + "\n"
		}
		return styleIconSuccess.Render("✓") + " " + m.outcome.summary + StyleDim.Render(fmt.Sprintf(" (%s)", elapsed)) + "\n"
	}
	frame := spinnerFrames[m.frame%len(spinnerFrames)]
	return styleIconSpinner.Render(frame) + " " + StyleDim.Render(m.label) + StyleDim.Render(fmt.Sprintf(" (%s)", elapsed))
}

// runWithProgress drives work in a goroutine behind a bubbletea spinner when
// stdout is a terminal; otherwise it just calls work synchronously so piped
// or test invocations never block on a TUI event loop.
func runWithProgress(label string, work func() (string, error)) error {
	if !isatty.IsTerminal(os.Stdout.Fd()) {
		_, err := work()
		return err
	}

	done := make(chan runOutcome, 1)
	go func() {
		summary, err := work()
		done <- runOutcome{summary: summary, err: err}
	}()

	program := tea.NewProgram(newRunProgressModel(label, done))
	finalModel, err := program.Run()
	if err != nil {
		return err
	}
	if m, ok := finalModel.(runProgressModel); ok && m.outcome != nil {
		return m.outcome.err
	}
	return nil
}
