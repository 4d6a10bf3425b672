package extract

import (
	"bytes"
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"studyhelper/internal/apperr"
	"studyhelper/internal/service/extract/extracttest"
)

func newTestExtractor(t *testing.T) *Extractor {
	t.Helper()
	ex, err := New(context.Background())
	if err != nil {
		t.Fatalf("new extractor: %v", err)
	}
	return ex
}

func TestExtractSinglePage(t *testing.T) {
	ex := newTestExtractor(t)
	data := extracttest.BuildPDF([]string{"Cell division occurs in two phases."})

	got, err := ex.Extract(context.Background(), data)
	if err != nil {
		t.Fatalf("extract: %v", err)
	}
	if got != "Cell division occurs in two phases." {
		t.Fatalf("unexpected text %q", got)
	}
}

func TestExtractJoinsPagesInOrder(t *testing.T) {
	ex := newTestExtractor(t)
	data := extracttest.BuildPDF(
		[]string{"Mitosis", "Prophase first"},
		[]string{"Meiosis"},
	)

	got, err := ex.Extract(context.Background(), data)
	if err != nil {
		t.Fatalf("extract: %v", err)
	}
	want := "Mitosis\nProphase first\nMeiosis"
	if got != want {
		t.Fatalf("expected %q, got %q", want, got)
	}
}

func TestExtractTrimsBlankPages(t *testing.T) {
	ex := newTestExtractor(t)
	data := extracttest.BuildPDF(nil, []string{"Only content"}, nil)

	got, err := ex.Extract(context.Background(), data)
	if err != nil {
		t.Fatalf("extract: %v", err)
	}
	if got != "Only content" {
		t.Fatalf("expected trimmed text, got %q", got)
	}
}

func TestExtractZeroPages(t *testing.T) {
	ex := newTestExtractor(t)
	_, err := ex.Extract(context.Background(), extracttest.BuildPDF())
	var parseErr *apperr.DocumentParseError
	if !errors.As(err, &parseErr) {
		t.Fatalf("expected DocumentParseError, got %v", err)
	}
}

func TestExtractNoTextLayer(t *testing.T) {
	ex := newTestExtractor(t)
	_, err := ex.Extract(context.Background(), extracttest.BuildPDF(nil))
	var parseErr *apperr.DocumentParseError
	if !errors.As(err, &parseErr) || !errors.Is(err, errNoText) {
		t.Fatalf("expected no-text parse error, got %v", err)
	}
}

func TestExtractRejectsNonPDF(t *testing.T) {
	ex := newTestExtractor(t)
	for name, data := range map[string][]byte{
		"empty":     nil,
		"text":      []byte("these are plain lecture notes, not a pdf document at all"),
		"truncated": extracttest.BuildPDF([]string{"cut"})[:60],
	} {
		_, err := ex.Extract(context.Background(), data)
		var parseErr *apperr.DocumentParseError
		if !errors.As(err, &parseErr) {
			t.Fatalf("%s: expected DocumentParseError, got %v", name, err)
		}
	}
}

func TestExtractFile(t *testing.T) {
	ex := newTestExtractor(t)
	path := filepath.Join(t.TempDir(), "notes.pdf")
	if err := os.WriteFile(path, extracttest.BuildPDF([]string{"Photosynthesis"}, []string{"Respiration"}), 0o600); err != nil {
		t.Fatalf("write pdf: %v", err)
	}

	got, err := ex.ExtractFile(context.Background(), path)
	if err != nil {
		t.Fatalf("extract file: %v", err)
	}
	if got != "Photosynthesis\nRespiration" {
		t.Fatalf("unexpected text %q", got)
	}
}

func TestExtractFileMissing(t *testing.T) {
	ex := newTestExtractor(t)
	_, err := ex.ExtractFile(context.Background(), filepath.Join(t.TempDir(), "absent.pdf"))
	var parseErr *apperr.DocumentParseError
	if !errors.As(err, &parseErr) {
		t.Fatalf("expected DocumentParseError, got %v", err)
	}
}

func TestParserAttachesPageMetadata(t *testing.T) {
	docs, err := PDFParser{}.Parse(context.Background(),
		bytes.NewReader(extracttest.BuildPDF([]string{"one"}, []string{"two"})))
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	if len(docs) != 2 {
		t.Fatalf("expected 2 documents, got %d", len(docs))
	}
	for i, doc := range docs {
		if doc.MetaData[MetaPage] != i+1 {
			t.Fatalf("doc %d has page meta %v", i, doc.MetaData[MetaPage])
		}
	}
}
