package extract

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"math"
	"strings"

	"github.com/cloudwego/eino/components/document/parser"
	"github.com/cloudwego/eino/schema"
	"rsc.io/pdf"
)

// MetaPage is the document metadata key holding the 1-based page number.
const MetaPage = "page"

var errNoPages = errors.New("document has no pages")

// PDFParser turns a PDF byte stream into one schema.Document per page.
type PDFParser struct{}

var _ parser.Parser = PDFParser{}

// Parse reads the whole stream and extracts the text layer of each page.
// Pages without a text layer yield an empty document.
func (PDFParser) Parse(ctx context.Context, reader io.Reader, opts ...parser.Option) (docs []*schema.Document, err error) {
	options := parser.GetCommonOptions(&parser.Options{}, opts...)

	data, err := io.ReadAll(reader)
	if err != nil {
		return nil, fmt.Errorf("read pdf: %w", err)
	}

	// rsc.io/pdf panics on some malformed inputs.
	defer func() {
		if r := recover(); r != nil {
			docs = nil
			err = fmt.Errorf("malformed pdf: %v", r)
		}
	}()

	rd, err := pdf.NewReader(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		return nil, err
	}
	n := rd.NumPage()
	if n == 0 {
		return nil, errNoPages
	}

	docs = make([]*schema.Document, 0, n)
	for i := 1; i <= n; i++ {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		page := rd.Page(i)
		text := ""
		if !page.V.IsNull() {
			text = pageText(page.Content().Text)
		}
		meta := map[string]any{MetaPage: i}
		for k, v := range options.ExtraMeta {
			meta[k] = v
		}
		docs = append(docs, &schema.Document{
			ID:       fmt.Sprintf("%s#%d", options.URI, i),
			Content:  text,
			MetaData: meta,
		})
	}
	return docs, nil
}

// pageText reassembles positioned glyph runs into lines. A change in baseline
// starts a new line; a horizontal gap wider than a fraction of the font size
// becomes a space.
func pageText(runs []pdf.Text) string {
	var (
		b       strings.Builder
		lastY   float64
		lastEnd float64
		started bool
	)
	for _, t := range runs {
		if t.S == "" {
			continue
		}
		if started {
			switch {
			case math.Abs(t.Y-lastY) > 1:
				b.WriteByte('\n')
			case t.X-lastEnd > t.FontSize*0.2:
				b.WriteByte(' ')
			}
		}
		b.WriteString(t.S)
		lastY = t.Y
		lastEnd = t.X + t.W
		started = true
	}
	return b.String()
}
