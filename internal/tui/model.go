// Package tui is the terminal front end. It drives the same Studio as the
// web server.
package tui

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	tea "github.com/charmbracelet/bubbletea"

	"studyhelper/internal/service/study"
	"studyhelper/internal/studio"
)

// Model is the root bubbletea model.
type Model struct {
	studio   *studio.Studio
	readFile func(string) ([]byte, error)

	// Path entry
	entering bool
	input    string
	initial  string

	// Snapshot of the studio after the last action
	view studio.View

	// Generation in flight
	busy   bool
	events chan tea.Msg

	status string
	width  int
	height int
}

// New builds a model over s. When path is non-empty it is uploaded on start.
func New(s *studio.Studio, path string) Model {
	return Model{
		studio:   s,
		readFile: os.ReadFile,
		entering: path == "",
		initial:  path,
		view:     s.View(),
	}
}

func (m Model) Init() tea.Cmd {
	if m.initial != "" {
		return uploadCmd(m.studio, m.readFile, m.initial)
	}
	return nil
}

// uploadCmd reads path from disk and hands it to the studio.
func uploadCmd(s *studio.Studio, readFile func(string) ([]byte, error), path string) tea.Cmd {
	return func() tea.Msg {
		data, err := readFile(path)
		if err != nil {
			return UploadDoneMsg{Err: err}
		}
		return UploadDoneMsg{Err: s.Upload(context.Background(), filepath.Base(path), data)}
	}
}

// generateCmd starts a cycle in the background. Progress and the final
// result arrive on events, read one at a time by waitEventCmd.
func generateCmd(s *studio.Studio, events chan tea.Msg) tea.Cmd {
	go func() {
		session, err := s.Generate(context.Background(), func(stage study.Stage) {
			events <- StageMsg{Stage: stage}
		})
		events <- GenerateDoneMsg{Session: session, Err: err}
	}()
	return waitEventCmd(events)
}

func waitEventCmd(events chan tea.Msg) tea.Cmd {
	return func() tea.Msg {
		return <-events
	}
}

func historyCmd(s *studio.Studio) tea.Cmd {
	return func() tea.Msg {
		entries, err := s.ShowHistory(context.Background())
		return HistoryLoadedMsg{Entries: entries, Err: err}
	}
}

func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {

	case tea.KeyMsg:
		return m.handleKey(msg)

	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		return m, nil

	case UploadDoneMsg:
		m.view = m.studio.View()
		if msg.Err != nil {
			m.entering = true
			m.status = ""
			m.view.Error = msg.Err.Error()
			return m, nil
		}
		m.entering = false
		m.input = ""
		m.status = "Extracted " + m.view.Filename
		return m, nil

	case StageMsg:
		m.view = m.studio.View()
		m.status = string(msg.Stage)
		return m, waitEventCmd(m.events)

	case GenerateDoneMsg:
		m.busy = false
		m.events = nil
		m.view = m.studio.View()
		if msg.Err != nil {
			m.status = ""
			m.view.Error = msg.Err.Error()
			return m, nil
		}
		m.status = fmt.Sprintf("Saved session #%d", msg.Session.ID)
		return m, nil

	case HistoryLoadedMsg:
		m.view = m.studio.View()
		m.view.HistoryOpen = true
		m.view.History = msg.Entries
		if msg.Err != nil {
			m.view.HistoryError = msg.Err.Error()
			m.status = ""
			return m, nil
		}
		m.status = fmt.Sprintf("%d past sessions", len(msg.Entries))
		return m, nil
	}
	return m, nil
}

func (m Model) handleKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	key := msg.String()
	if key == KeyCtrlC {
		return m, tea.Quit
	}
	if m.entering {
		return m.handleInput(msg)
	}

	switch key {
	case KeyQuit:
		return m, tea.Quit

	case KeyGenerate:
		if m.busy || !m.view.GenerationEnabled {
			return m, nil
		}
		if m.view.State != studio.Previewing && m.view.State != studio.Results {
			return m, nil
		}
		m.busy = true
		m.events = make(chan tea.Msg, 4)
		m.status = "Starting generation..."
		return m, generateCmd(m.studio, m.events)

	case KeyHistory:
		if m.view.HistoryOpen {
			m.studio.HideHistory()
			m.view = m.studio.View()
			return m, nil
		}
		return m, historyCmd(m.studio)

	case KeyUpload:
		if m.busy {
			return m, nil
		}
		m.studio.Reset(context.Background())
		m.view = m.studio.View()
		m.entering = true
		m.input = ""
		return m, nil
	}
	return m, nil
}

func (m Model) handleInput(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.Type {
	case tea.KeyEnter:
		path := strings.TrimSpace(m.input)
		if path == "" {
			return m, nil
		}
		m.status = string(study.StageExtracting)
		return m, uploadCmd(m.studio, m.readFile, path)
	case tea.KeyBackspace:
		if r := []rune(m.input); len(r) > 0 {
			m.input = string(r[:len(r)-1])
		}
		return m, nil
	case tea.KeyEsc:
		if m.view.State != studio.Idle {
			m.entering = false
		}
		return m, nil
	case tea.KeyRunes, tea.KeySpace:
		m.input += string(msg.Runes)
		return m, nil
	}
	return m, nil
}

func (m Model) View() string {
	var sections []string
	sections = append(sections, titleStyle.Render("AI STUDY HELPER"))

	if m.view.Warning != "" {
		sections = append(sections, warningStyle.Render(m.view.Warning))
	}
	if m.view.Error != "" {
		sections = append(sections, errorStyle.Render("Error: ")+m.view.Error)
	}

	if m.entering {
		sections = append(sections, "PDF path: "+m.input+"█")
	}

	if len(m.view.Stages) > 0 {
		sections = append(sections, m.renderStages())
	}

	switch m.view.State {
	case studio.Previewing, studio.Generating:
		sections = append(sections,
			headingStyle.Render("Extracted Text Preview: "+m.view.Filename),
			m.box(m.view.Preview))
	case studio.Results:
		if s := m.view.Session; s != nil {
			for _, n := range m.view.Notices {
				sections = append(sections, noticeStyle.Render(n))
			}
			sections = append(sections,
				headingStyle.Render("Summary"), m.box(s.Summary),
				headingStyle.Render("Flashcards"), m.box(s.Flashcards),
				headingStyle.Render("Quiz"), m.box(s.Quiz))
		}
	}

	if m.view.HistoryOpen {
		sections = append(sections, m.renderHistory())
	}
	if m.status != "" {
		sections = append(sections, dimStyle.Render(m.status))
	}
	sections = append(sections, m.renderFooter())
	return strings.Join(sections, "\n")
}

func (m Model) renderStages() string {
	lines := make([]string, len(m.view.Stages))
	for i, s := range m.view.Stages {
		if i == len(m.view.Stages)-1 && (m.busy || m.view.State == studio.Generating) {
			lines[i] = activeStageStyle.Render("▸ " + string(s))
			continue
		}
		lines[i] = stageStyle.Render("✓ " + string(s))
	}
	return strings.Join(lines, "\n")
}

func (m Model) renderHistory() string {
	var b strings.Builder
	b.WriteString(headingStyle.Render("Your Study Progress"))
	if m.view.HistoryError != "" {
		b.WriteString("\n" + errorStyle.Render(m.view.HistoryError))
	}
	if len(m.view.History) == 0 && m.view.HistoryError == "" {
		b.WriteString("\n" + dimStyle.Render("No past sessions yet."))
	}
	for _, e := range m.view.History {
		b.WriteString("\n" + titleStyle.Render(e.Filename) + "\n" + e.Preview)
	}
	return m.box(b.String())
}

func (m Model) renderFooter() string {
	var parts []string
	if m.entering {
		parts = append(parts, footerKeyStyle.Render("Enter")+footerDescStyle.Render(" Upload"))
		if m.view.State != studio.Idle {
			parts = append(parts, footerKeyStyle.Render("Esc")+footerDescStyle.Render(" Cancel"))
		}
		parts = append(parts, footerKeyStyle.Render("Ctrl+C")+footerDescStyle.Render(" Quit"))
		return strings.Join(parts, "  ")
	}
	if m.view.GenerationEnabled && !m.busy {
		parts = append(parts, footerKeyStyle.Render(KeyGenerate)+footerDescStyle.Render(" Generate"))
	}
	parts = append(parts,
		footerKeyStyle.Render(KeyHistory)+footerDescStyle.Render(" History"),
		footerKeyStyle.Render(KeyUpload)+footerDescStyle.Render(" New upload"),
		footerKeyStyle.Render(KeyQuit)+footerDescStyle.Render(" Quit"))
	return strings.Join(parts, "  ")
}

func (m Model) box(s string) string {
	style := boxStyle
	if m.width > 4 {
		style = style.Width(m.width - 4)
	}
	return style.Render(s)
}
