// Package extract converts uploaded PDF documents into plain text.
package extract

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/cloudwego/eino-ext/components/document/loader/file"
	"github.com/cloudwego/eino/components/document"
	"github.com/cloudwego/eino/components/document/parser"
	"github.com/cloudwego/eino/schema"

	"studyhelper/internal/apperr"
)

var errNoText = errors.New("document has no extractable text")

// Extractor produces the text layer of a PDF from memory or from disk.
type Extractor struct {
	parser parser.Parser
	loader *file.FileLoader
}

// New wires the PDF parser behind an extension-routing parser and a file
// loader.
func New(ctx context.Context) (*Extractor, error) {
	pdfParser := PDFParser{}
	extParser, err := parser.NewExtParser(ctx, &parser.ExtParserConfig{
		Parsers:        map[string]parser.Parser{".pdf": pdfParser},
		FallbackParser: pdfParser,
	})
	if err != nil {
		return nil, fmt.Errorf("init ext parser: %w", err)
	}
	loader, err := file.NewFileLoader(ctx, &file.FileLoaderConfig{
		UseNameAsID: true,
		Parser:      extParser,
	})
	if err != nil {
		return nil, fmt.Errorf("init file loader: %w", err)
	}
	return &Extractor{parser: extParser, loader: loader}, nil
}

// Extract returns the trimmed text of every page of data, in page order.
func (e *Extractor) Extract(ctx context.Context, data []byte) (string, error) {
	docs, err := e.parser.Parse(ctx, bytes.NewReader(data), parser.WithURI("upload.pdf"))
	if err != nil {
		return "", &apperr.DocumentParseError{Err: err}
	}
	return joinPages(docs)
}

// ExtractFile is Extract for a document on disk.
func (e *Extractor) ExtractFile(ctx context.Context, path string) (string, error) {
	docs, err := e.loader.Load(ctx, document.Source{URI: path})
	if err != nil {
		return "", &apperr.DocumentParseError{Err: err}
	}
	return joinPages(docs)
}

func joinPages(docs []*schema.Document) (string, error) {
	if len(docs) == 0 {
		return "", &apperr.DocumentParseError{Err: errNoPages}
	}
	var b strings.Builder
	for _, doc := range docs {
		b.WriteString(doc.Content)
		b.WriteString("\n")
	}
	text := strings.TrimSpace(b.String())
	if text == "" {
		return "", &apperr.DocumentParseError{Err: errNoText}
	}
	return text, nil
}
