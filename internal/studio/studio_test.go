package studio

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"
	"time"

	"studyhelper/internal/apperr"
	"studyhelper/internal/config"
	"studyhelper/internal/drafts"
	"studyhelper/internal/service/study"
	"studyhelper/internal/storage"
)

type fakeExtractor struct {
	text string
	err  error
}

func (f fakeExtractor) Extract(ctx context.Context, data []byte) (string, error) {
	if f.err != nil {
		return "", f.err
	}
	if f.text != "" {
		return f.text, nil
	}
	return string(data), nil
}

type echoModel struct {
	mu    sync.Mutex
	calls int
	fail  bool
	block chan struct{}
}

func (m *echoModel) Complete(ctx context.Context, prompt string) (string, error) {
	if m.block != nil {
		<-m.block
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.calls++
	if m.fail {
		return "", &apperr.ModelInvocationError{Err: errors.New("upstream 500")}
	}
	switch {
	case strings.Contains(prompt, "Summarize"):
		return "summary text", nil
	case strings.Contains(prompt, "flashcards"):
		return "Q: q\nA: a", nil
	default:
		return "Q: q\nA) 1\nB) 2\nC) 3\nD) 4\nCorrect Answer: A", nil
	}
}

type fixture struct {
	studio *Studio
	store  *study.Store
	model  *echoModel
	drafts *drafts.MemoryStore
}

func newFixture(t *testing.T, ex Extractor, withModel bool) *fixture {
	t.Helper()
	cfg := &config.Config{
		Databases: map[string]config.DatabaseConfig{
			"sqlite3": {DSN: ":memory:"},
		},
	}
	db, err := storage.Open("sqlite3", cfg)
	if err != nil {
		t.Fatalf("open db: %v", err)
	}
	t.Cleanup(func() { db.Close() })
	store := study.NewStore(db, "sqlite3")
	if err := store.Initialize(context.Background()); err != nil {
		t.Fatalf("initialize: %v", err)
	}
	f := &fixture{store: store, model: &echoModel{}, drafts: drafts.NewMemoryStore(time.Hour)}
	deps := Deps{
		Extractor: ex,
		History:   store,
		Drafts:    f.drafts,
		Warning:   "add your API key",
	}
	if withModel {
		deps.Generator = study.NewGenerator(f.model, store, nil)
	}
	f.studio = New(deps)
	return f
}

func TestTruncate(t *testing.T) {
	cases := []struct {
		in    string
		limit int
		want  string
	}{
		{"short", 10, "short"},
		{"exactly10!", 10, "exactly10!"},
		{"eleven char", 10, "eleven cha..."},
		{"ümlaut ünïcode", 6, "ümlaut..."},
		{"", 5, ""},
	}
	for _, tc := range cases {
		if got := Truncate(tc.in, tc.limit); got != tc.want {
			t.Fatalf("Truncate(%q, %d) = %q, want %q", tc.in, tc.limit, got, tc.want)
		}
	}
}

func TestUploadShowsPreview(t *testing.T) {
	f := newFixture(t, fakeExtractor{}, true)
	const text = "Cell division occurs in two phases."
	if err := f.studio.Upload(context.Background(), "bio.pdf", []byte(text)); err != nil {
		t.Fatalf("upload: %v", err)
	}
	v := f.studio.View()
	if v.State != Previewing {
		t.Fatalf("expected previewing, got %s", v.State)
	}
	if v.Preview != text || v.Filename != "bio.pdf" {
		t.Fatalf("unexpected view %+v", v)
	}
	if len(v.Stages) != 1 || v.Stages[0] != study.StageExtracting {
		t.Fatalf("expected extracting stage recorded, got %v", v.Stages)
	}
	if f.drafts.Len() != 1 {
		t.Fatalf("expected one cached draft, got %d", f.drafts.Len())
	}
}

func TestUploadTruncatesLongPreview(t *testing.T) {
	long := strings.Repeat("a", PreviewLimit+10)
	f := newFixture(t, fakeExtractor{text: long}, true)
	if err := f.studio.Upload(context.Background(), "long.pdf", nil); err != nil {
		t.Fatalf("upload: %v", err)
	}
	v := f.studio.View()
	if v.Preview != strings.Repeat("a", PreviewLimit)+"..." {
		t.Fatalf("unexpected preview length %d", len(v.Preview))
	}
}

func TestUploadFailureStaysIdle(t *testing.T) {
	parseErr := &apperr.DocumentParseError{Err: errors.New("not a pdf")}
	f := newFixture(t, fakeExtractor{err: parseErr}, true)
	err := f.studio.Upload(context.Background(), "bad.pdf", []byte("junk"))
	if !errors.As(err, &parseErr) {
		t.Fatalf("expected parse error, got %v", err)
	}
	v := f.studio.View()
	if v.State != Idle || v.Preview != "" || v.Error == "" {
		t.Fatalf("expected idle view with error, got %+v", v)
	}
	if _, err := f.studio.Generate(context.Background(), nil); !errors.Is(err, apperr.ErrNothingToGenerate) {
		t.Fatalf("expected ErrNothingToGenerate, got %v", err)
	}
}

func TestGenerateProducesResults(t *testing.T) {
	f := newFixture(t, fakeExtractor{}, true)
	ctx := context.Background()
	if err := f.studio.Upload(ctx, "bio.pdf", []byte("Mitosis")); err != nil {
		t.Fatalf("upload: %v", err)
	}
	var observed []study.Stage
	session, err := f.studio.Generate(ctx, func(s study.Stage) { observed = append(observed, s) })
	if err != nil {
		t.Fatalf("generate: %v", err)
	}
	if len(observed) != 3 || observed[0] != study.StageSummary || observed[2] != study.StageQuiz {
		t.Fatalf("unexpected stages %v", observed)
	}
	v := f.studio.View()
	if v.State != Results || v.Session == nil || v.Session.ID != session.ID {
		t.Fatalf("expected results view, got %+v", v)
	}
	if v.Session.Summary != "summary text" {
		t.Fatalf("unexpected summary %q", v.Session.Summary)
	}
	if len(v.Notices) != 2 || v.Notices[0] != NoticeGenerated || v.Notices[1] != NoticeSaved {
		t.Fatalf("unexpected notices %v", v.Notices)
	}

	// a second generate reuses the cached text and appends a new row
	if _, err := f.studio.Generate(ctx, nil); err != nil {
		t.Fatalf("regenerate: %v", err)
	}
	list, err := f.store.ListAll(ctx)
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(list) != 2 || list[0].Filename != "bio.pdf" || list[1].Filename != "bio.pdf" {
		t.Fatalf("expected two rows for bio.pdf, got %+v", list)
	}
}

func TestGenerateFailureReturnsToPreview(t *testing.T) {
	f := newFixture(t, fakeExtractor{}, true)
	f.model.fail = true
	ctx := context.Background()
	if err := f.studio.Upload(ctx, "bio.pdf", []byte("Mitosis")); err != nil {
		t.Fatalf("upload: %v", err)
	}
	_, err := f.studio.Generate(ctx, nil)
	var mie *apperr.ModelInvocationError
	if !errors.As(err, &mie) || mie.Artifact != "summary" {
		t.Fatalf("expected summary model error, got %v", err)
	}
	v := f.studio.View()
	if v.State != Previewing || v.Preview != "Mitosis" || v.Session != nil || v.Error == "" {
		t.Fatalf("expected preview with error, got %+v", v)
	}
	list, _ := f.store.ListAll(ctx)
	if len(list) != 0 {
		t.Fatalf("expected nothing persisted, got %d rows", len(list))
	}
}

func TestGenerateSaveFailureReturnsToPreview(t *testing.T) {
	f := newFixture(t, fakeExtractor{}, false)
	broken, err := storage.Open("sqlite3", &config.Config{
		Databases: map[string]config.DatabaseConfig{"sqlite3": {DSN: ":memory:"}},
	})
	if err != nil {
		t.Fatalf("open db: %v", err)
	}
	broken.Close()
	f.studio = New(Deps{
		Extractor: fakeExtractor{},
		Generator: study.NewGenerator(f.model, study.NewStore(broken, "sqlite3"), nil),
		History:   f.store,
		Drafts:    f.drafts,
	})

	ctx := context.Background()
	if err := f.studio.Upload(ctx, "bio.pdf", []byte("Mitosis")); err != nil {
		t.Fatalf("upload: %v", err)
	}
	_, err = f.studio.Generate(ctx, nil)
	var storageErr *apperr.StorageError
	if !errors.As(err, &storageErr) || storageErr.Op != "save" {
		t.Fatalf("expected save StorageError, got %v", err)
	}
	if f.model.calls != 3 {
		t.Fatalf("expected all 3 model calls before saving, got %d", f.model.calls)
	}
	v := f.studio.View()
	if v.State != Previewing || v.Preview != "Mitosis" || v.Session != nil || v.Error == "" || len(v.Notices) != 0 {
		t.Fatalf("expected preview with storage error, got %+v", v)
	}
	list, _ := f.store.ListAll(ctx)
	if len(list) != 0 {
		t.Fatalf("expected nothing persisted, got %d rows", len(list))
	}
}

func TestMissingCredentialDisablesGenerationOnly(t *testing.T) {
	f := newFixture(t, fakeExtractor{}, false)
	ctx := context.Background()
	if err := f.studio.Upload(ctx, "bio.pdf", []byte("Mitosis")); err != nil {
		t.Fatalf("upload should work without credential: %v", err)
	}
	v := f.studio.View()
	if v.State != Previewing || v.GenerationEnabled || v.Warning != "add your API key" {
		t.Fatalf("unexpected view %+v", v)
	}
	if _, err := f.studio.Generate(ctx, nil); !errors.Is(err, apperr.ErrGenerationDisabled) {
		t.Fatalf("expected ErrGenerationDisabled, got %v", err)
	}
	if f.studio.View().State != Previewing {
		t.Fatalf("disabled generate should not change state")
	}
}

func TestGenerateAfterDraftExpired(t *testing.T) {
	f := newFixture(t, fakeExtractor{}, true)
	ctx := context.Background()
	if err := f.studio.Upload(ctx, "bio.pdf", []byte("Mitosis")); err != nil {
		t.Fatalf("upload: %v", err)
	}
	id := f.studio.draftID
	if err := f.drafts.Delete(ctx, id); err != nil {
		t.Fatalf("delete draft: %v", err)
	}
	if _, err := f.studio.Generate(ctx, nil); !errors.Is(err, apperr.ErrNothingToGenerate) {
		t.Fatalf("expected ErrNothingToGenerate, got %v", err)
	}
	if f.studio.View().State != Idle {
		t.Fatalf("expected idle after expiry")
	}
}

func TestNewUploadDropsPreviousDraft(t *testing.T) {
	f := newFixture(t, fakeExtractor{}, true)
	ctx := context.Background()
	for _, name := range []string{"a.pdf", "b.pdf", "c.pdf"} {
		if err := f.studio.Upload(ctx, name, []byte("text "+name)); err != nil {
			t.Fatalf("upload %s: %v", name, err)
		}
	}
	if f.drafts.Len() != 1 {
		t.Fatalf("expected one live draft, got %d", f.drafts.Len())
	}
	f.studio.Reset(ctx)
	if f.drafts.Len() != 0 || f.studio.View().State != Idle {
		t.Fatalf("reset should clear draft and state")
	}
}

func TestShowHistoryTruncatesSummaries(t *testing.T) {
	f := newFixture(t, fakeExtractor{}, true)
	ctx := context.Background()
	long := strings.Repeat("b", HistoryPreviewLimit+1)
	if _, err := f.store.Save(ctx, "long.pdf", long, "f", "q"); err != nil {
		t.Fatalf("save: %v", err)
	}
	if _, err := f.store.Save(ctx, "short.pdf", "brief", "f", "q"); err != nil {
		t.Fatalf("save: %v", err)
	}
	entries, err := f.studio.ShowHistory(ctx)
	if err != nil {
		t.Fatalf("show history: %v", err)
	}
	if len(entries) != 2 {
		t.Fatalf("expected 2 entries, got %d", len(entries))
	}
	if entries[0].Preview != strings.Repeat("b", HistoryPreviewLimit)+"..." {
		t.Fatalf("long summary not truncated: %d chars", len(entries[0].Preview))
	}
	if entries[1].Preview != "brief" {
		t.Fatalf("short summary changed: %q", entries[1].Preview)
	}
	if v := f.studio.View(); !v.HistoryOpen || len(v.History) != 2 {
		t.Fatalf("expected sidebar open, got %+v", v)
	}
	f.studio.HideHistory()
	if f.studio.View().HistoryOpen {
		t.Fatalf("expected sidebar closed")
	}
}

func TestViewDoesNotBlockDuringGeneration(t *testing.T) {
	f := newFixture(t, fakeExtractor{}, true)
	f.model.block = make(chan struct{})
	ctx := context.Background()
	if err := f.studio.Upload(ctx, "bio.pdf", []byte("Mitosis")); err != nil {
		t.Fatalf("upload: %v", err)
	}

	started := make(chan struct{})
	done := make(chan error, 1)
	go func() {
		_, err := f.studio.Generate(ctx, func(s study.Stage) {
			if s == study.StageSummary {
				close(started)
			}
		})
		done <- err
	}()

	<-started
	v := f.studio.View()
	if v.State != Generating || v.Stage != study.StageSummary {
		t.Fatalf("expected generating summary, got %s %q", v.State, v.Stage)
	}
	close(f.model.block)
	if err := <-done; err != nil {
		t.Fatalf("generate: %v", err)
	}
	if f.studio.View().State != Results {
		t.Fatalf("expected results")
	}
}
