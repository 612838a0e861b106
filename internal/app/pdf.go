package app

import (
	"fmt"
	"io"
	"regexp"
	"strings"
	"time"

	"github.com/jung-kurt/gofpdf"
)

var urlRe = regexp.MustCompile(`https?://[^\s"'<>]+`)

// writeItemsPDF renders a simple A4 document listing every item as a
// numbered paragraph. URLs inside items become clickable links. This does not
// attempt HTML layout; markup is printed as text.
func writeItemsPDF(w io.Writer, items []any, meta OutputMeta) error {
	pdf := gofpdf.New("P", "mm", "A4", "")
	pdf.SetTitle("pagecollect: "+meta.StartURL, true)
	pdf.SetCreator("pagecollect "+BuildVersion, true)
	tr := pdf.UnicodeTranslatorFromDescriptor("")
	pdf.SetFont("Helvetica", "", 11)
	pdf.AddPage()

	pdf.SetFont("Helvetica", "B", 14)
	pdf.CellFormat(0, 8, "Collected items", "", 1, "L", false, 0, "")
	pdf.SetFont("Helvetica", "", 9)
	header := fmt.Sprintf("%d items from %d pages, %s", len(items), meta.Pages, time.Now().UTC().Format(time.RFC3339))
	pdf.CellFormat(0, 5, tr(header), "", 1, "L", false, 0, "")
	if meta.StartURL != "" {
		pdf.WriteLinkString(5, tr(meta.StartURL), meta.StartURL)
		pdf.Ln(6)
	}
	pdf.Ln(3)
	pdf.SetFont("Helvetica", "", 11)

	for i, it := range items {
		s := strings.TrimSpace(textOf(it))
		pdf.SetFont("Helvetica", "B", 11)
		pdf.Write(5, fmt.Sprintf("%d. ", i+1))
		pdf.SetFont("Helvetica", "", 11)
		writeLinkedText(pdf, tr, s)
		pdf.Ln(7)
	}

	if err := pdf.Error(); err != nil {
		return err
	}
	return pdf.Output(w)
}

// writeLinkedText writes s, turning bare URLs into links.
func writeLinkedText(pdf *gofpdf.Fpdf, tr func(string) string, s string) {
	pos := 0
	for _, m := range urlRe.FindAllStringIndex(s, -1) {
		if m[0] > pos {
			pdf.Write(5, tr(s[pos:m[0]]))
		}
		u := s[m[0]:m[1]]
		pdf.WriteLinkString(5, tr(u), u)
		pos = m[1]
	}
	if pos < len(s) {
		pdf.Write(5, tr(s[pos:]))
	}
}
