// Package studio holds the interaction state shared by the web and terminal
// front ends: what has been uploaded, what is being generated and what the
// user sees.
package studio

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"studyhelper/internal/apperr"
	"studyhelper/internal/drafts"
	"studyhelper/internal/logger"
	"studyhelper/internal/models"
	"studyhelper/internal/service/study"
)

const (
	PreviewLimit        = 1500
	HistoryPreviewLimit = 200
	ellipsis            = "..."

	NoticeGenerated = "Study materials generated!"
	NoticeSaved     = "Progress saved to local database!"
)

// State is the phase of the upload and generate workflow.
type State int

const (
	Idle State = iota
	Previewing
	Generating
	Results
)

func (s State) String() string {
	switch s {
	case Idle:
		return "idle"
	case Previewing:
		return "previewing"
	case Generating:
		return "generating"
	case Results:
		return "results"
	default:
		return fmt.Sprintf("state(%d)", int(s))
	}
}

// Extractor turns an uploaded document into text.
type Extractor interface {
	Extract(ctx context.Context, data []byte) (string, error)
}

// Generator runs one generation cycle and persists its result.
type Generator interface {
	Run(ctx context.Context, filename, text string, progress func(study.Stage)) (*models.StudySession, error)
}

// History reads stored sessions.
type History interface {
	ListAll(ctx context.Context) ([]models.SessionPreview, error)
	Get(ctx context.Context, id int64) (*models.StudySession, error)
}

// Deps are the collaborators of a Studio. Generator may be nil, in which case
// generation is disabled and Warning is shown instead.
type Deps struct {
	Extractor Extractor
	Generator Generator
	History   History
	Drafts    drafts.Store
	Logger    *logger.Logger
	Warning   string
}

// HistoryEntry is one line of the past sessions sidebar.
type HistoryEntry struct {
	ID       int64  `json:"id"`
	Filename string `json:"filename"`
	Preview  string `json:"preview"`
}

// View is a snapshot of everything a front end renders.
type View struct {
	State             State                `json:"-"`
	StateName         string               `json:"state"`
	Filename          string               `json:"filename,omitempty"`
	Preview           string               `json:"preview,omitempty"`
	Stage             study.Stage          `json:"stage,omitempty"`
	Stages            []study.Stage        `json:"stages,omitempty"`
	Session           *models.StudySession `json:"session,omitempty"`
	Notices           []string             `json:"notices,omitempty"`
	Warning           string               `json:"warning,omitempty"`
	Error             string               `json:"error,omitempty"`
	GenerationEnabled bool                 `json:"generation_enabled"`
	HistoryOpen       bool                 `json:"history_open"`
	History           []HistoryEntry       `json:"history,omitempty"`
	HistoryError      string               `json:"history_error,omitempty"`
}

// Studio is a single-user state machine. Actions are serialised; View may be
// called at any time, including while an action runs.
type Studio struct {
	extractor Extractor
	generator Generator
	history   History
	drafts    drafts.Store
	logger    *logger.Logger
	warning   string

	actionMu sync.Mutex

	mu          sync.RWMutex
	state       State
	draftID     string
	filename    string
	preview     string
	stage       study.Stage
	stages      []study.Stage
	session     *models.StudySession
	notices     []string
	err         error
	historyOpen bool
	entries     []HistoryEntry
	historyErr  error
}

func New(deps Deps) *Studio {
	log := deps.Logger
	if log == nil {
		log = logger.Nop()
	}
	return &Studio{
		extractor: deps.Extractor,
		generator: deps.Generator,
		history:   deps.History,
		drafts:    deps.Drafts,
		logger:    log,
		warning:   deps.Warning,
	}
}

// GenerationEnabled reports whether a model client is configured.
func (s *Studio) GenerationEnabled() bool {
	return s.generator != nil
}

// Upload extracts filename's text and moves to Previewing. On failure the
// studio returns to Idle with the error and no preview.
func (s *Studio) Upload(ctx context.Context, filename string, data []byte) error {
	s.actionMu.Lock()
	defer s.actionMu.Unlock()

	s.mu.Lock()
	oldDraft := s.draftID
	s.resetLocked()
	s.filename = filename
	s.stage = study.StageExtracting
	s.stages = []study.Stage{study.StageExtracting}
	s.mu.Unlock()
	s.dropDraft(ctx, oldDraft)

	text, err := s.extractor.Extract(ctx, data)
	if err != nil {
		s.logger.Warn("extraction failed", "file", filename, "error", err)
		s.fail(Idle, err)
		return err
	}

	d := drafts.New(filename, text)
	if err := s.drafts.Put(ctx, d); err != nil {
		s.logger.Error("cache draft failed", "file", filename, "error", err)
		s.fail(Idle, err)
		return err
	}

	s.mu.Lock()
	s.state = Previewing
	s.draftID = d.ID
	s.preview = Truncate(text, PreviewLimit)
	s.stage = ""
	s.mu.Unlock()
	s.logger.Info("document uploaded", "file", filename, "draft", d.ID, "chars", len([]rune(text)))
	return nil
}

// Generate runs a generation cycle over the cached text of the current
// upload. observe, when non-nil, sees each progress stage as it starts.
func (s *Studio) Generate(ctx context.Context, observe func(study.Stage)) (*models.StudySession, error) {
	s.actionMu.Lock()
	defer s.actionMu.Unlock()

	if s.generator == nil {
		s.setErr(apperr.ErrGenerationDisabled)
		return nil, apperr.ErrGenerationDisabled
	}

	s.mu.RLock()
	draftID, prev := s.draftID, s.state
	s.mu.RUnlock()
	if draftID == "" {
		s.setErr(apperr.ErrNothingToGenerate)
		return nil, apperr.ErrNothingToGenerate
	}

	d, err := s.drafts.Get(ctx, draftID)
	if err != nil {
		if errors.Is(err, drafts.ErrNotFound) {
			err = fmt.Errorf("%w: the uploaded document expired", apperr.ErrNothingToGenerate)
			s.mu.Lock()
			s.resetLocked()
			s.err = err
			s.mu.Unlock()
			return nil, err
		}
		s.fail(prev, err)
		return nil, err
	}

	s.mu.Lock()
	s.state = Generating
	s.session = nil
	s.notices = nil
	s.err = nil
	s.stages = nil
	s.mu.Unlock()

	session, err := s.generator.Run(ctx, d.Filename, d.Text, func(stage study.Stage) {
		s.mu.Lock()
		s.stage = stage
		s.stages = append(s.stages, stage)
		s.mu.Unlock()
		if observe != nil {
			observe(stage)
		}
	})
	if err != nil {
		s.fail(Previewing, err)
		return nil, err
	}

	s.mu.Lock()
	s.state = Results
	s.stage = ""
	s.session = session
	s.notices = []string{NoticeGenerated, NoticeSaved}
	s.mu.Unlock()
	return session, nil
}

// Reset discards the current upload and returns to Idle.
func (s *Studio) Reset(ctx context.Context) {
	s.actionMu.Lock()
	defer s.actionMu.Unlock()
	s.mu.Lock()
	draftID := s.draftID
	s.resetLocked()
	s.mu.Unlock()
	s.dropDraft(ctx, draftID)
}

// ShowHistory loads every stored session into the sidebar.
func (s *Studio) ShowHistory(ctx context.Context) ([]HistoryEntry, error) {
	s.actionMu.Lock()
	defer s.actionMu.Unlock()

	sessions, err := s.history.ListAll(ctx)
	s.mu.Lock()
	defer s.mu.Unlock()
	s.historyOpen = true
	if err != nil {
		s.logger.Error("list sessions failed", "error", err)
		s.entries = nil
		s.historyErr = err
		return nil, err
	}
	s.entries = HistoryEntries(sessions)
	s.historyErr = nil
	return s.entries, nil
}

// HideHistory closes the sidebar.
func (s *Studio) HideHistory() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.historyOpen = false
	s.entries = nil
	s.historyErr = nil
}

// Session loads one stored session.
func (s *Studio) Session(ctx context.Context, id int64) (*models.StudySession, error) {
	return s.history.Get(ctx, id)
}

// ListSessions returns every stored session without touching the sidebar.
func (s *Studio) ListSessions(ctx context.Context) ([]models.SessionPreview, error) {
	return s.history.ListAll(ctx)
}

// View returns a copy of the current state.
func (s *Studio) View() View {
	s.mu.RLock()
	defer s.mu.RUnlock()
	v := View{
		State:             s.state,
		StateName:         s.state.String(),
		Filename:          s.filename,
		Preview:           s.preview,
		Stage:             s.stage,
		Stages:            append([]study.Stage(nil), s.stages...),
		Notices:           append([]string(nil), s.notices...),
		GenerationEnabled: s.generator != nil,
		HistoryOpen:       s.historyOpen,
		History:           append([]HistoryEntry(nil), s.entries...),
	}
	if s.session != nil {
		sess := *s.session
		v.Session = &sess
	}
	if s.generator == nil {
		v.Warning = s.warning
	}
	if s.err != nil {
		v.Error = s.err.Error()
	}
	if s.historyErr != nil {
		v.HistoryError = s.historyErr.Error()
	}
	return v
}

// HistoryEntries projects stored sessions into sidebar lines.
func HistoryEntries(sessions []models.SessionPreview) []HistoryEntry {
	entries := make([]HistoryEntry, 0, len(sessions))
	for _, p := range sessions {
		entries = append(entries, HistoryEntry{
			ID:       p.ID,
			Filename: p.Filename,
			Preview:  Truncate(p.Summary, HistoryPreviewLimit),
		})
	}
	return entries
}

// Truncate keeps the first limit characters of s and appends "..." when
// anything was cut.
func Truncate(s string, limit int) string {
	runes := []rune(s)
	if len(runes) <= limit {
		return s
	}
	return string(runes[:limit]) + ellipsis
}

func (s *Studio) resetLocked() {
	s.state = Idle
	s.draftID = ""
	s.filename = ""
	s.preview = ""
	s.stage = ""
	s.stages = nil
	s.session = nil
	s.notices = nil
	s.err = nil
}

func (s *Studio) fail(state State, err error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if state == Idle {
		s.resetLocked()
	}
	s.state = state
	s.stage = ""
	s.err = err
}

func (s *Studio) setErr(err error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.err = err
}

func (s *Studio) dropDraft(ctx context.Context, id string) {
	if id == "" {
		return
	}
	if err := s.drafts.Delete(ctx, id); err != nil {
		s.logger.Warn("drop draft failed", "draft", id, "error", err)
	}
}
