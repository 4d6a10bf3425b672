// Package extracttest builds small PDF documents for tests.
package extracttest

import (
	"bytes"
	"fmt"
	"strings"
)

// BuildPDF returns a PDF with one page per entry. Each page holds its lines
// in Helvetica 12pt, one line per baseline. Lines must not contain
// parentheses or backslashes. BuildPDF() yields a valid document with zero
// pages.
func BuildPDF(pages ...[]string) []byte {
	var objects []string

	kids := make([]string, len(pages))
	for i := range pages {
		kids[i] = fmt.Sprintf("%d 0 R", 4+2*i)
	}
	objects = append(objects,
		"<< /Type /Catalog /Pages 2 0 R >>",
		fmt.Sprintf("<< /Type /Pages /Kids [%s] /Count %d >>", strings.Join(kids, " "), len(pages)),
		fontObject(),
	)
	for i, lines := range pages {
		objects = append(objects,
			fmt.Sprintf("<< /Type /Page /Parent 2 0 R /MediaBox [0 0 612 792] "+
				"/Resources << /Font << /F1 3 0 R >> >> /Contents %d 0 R >>", 5+2*i),
			contentStream(lines),
		)
	}

	var buf bytes.Buffer
	buf.WriteString("%PDF-1.4\n")
	offsets := make([]int, len(objects))
	for i, obj := range objects {
		offsets[i] = buf.Len()
		fmt.Fprintf(&buf, "%d 0 obj\n%s\nendobj\n", i+1, obj)
	}
	xref := buf.Len()
	fmt.Fprintf(&buf, "xref\n0 %d\n", len(objects)+1)
	buf.WriteString("0000000000 65535 f \n")
	for _, off := range offsets {
		fmt.Fprintf(&buf, "%010d 00000 n \n", off)
	}
	fmt.Fprintf(&buf, "trailer\n<< /Size %d /Root 1 0 R >>\nstartxref\n%d\n%%%%EOF\n", len(objects)+1, xref)
	return buf.Bytes()
}

func fontObject() string {
	widths := make([]string, 126-32+1)
	for i := range widths {
		widths[i] = "500"
	}
	return "<< /Type /Font /Subtype /Type1 /BaseFont /Helvetica /Encoding /WinAnsiEncoding " +
		"/FirstChar 32 /LastChar 126 /Widths [" + strings.Join(widths, " ") + "] >>"
}

func contentStream(lines []string) string {
	var content strings.Builder
	content.WriteString("BT /F1 12 Tf 72 720 Td")
	for i, line := range lines {
		if i > 0 {
			content.WriteString(" 0 -14 Td")
		}
		fmt.Fprintf(&content, " (%s) Tj", line)
	}
	content.WriteString(" ET")
	body := content.String()
	return fmt.Sprintf("<< /Length %d >>\nstream\n%s\nendstream", len(body), body)
}
