package export

import (
	"fmt"
	"io"
	"log/slog"
	"os"

	"github.com/go-pdf/fpdf"
)

const (
	fallbackFont = "Helvetica"
	customFont   = "custom"
)

// PDFOptions tunes report rendering.
type PDFOptions struct {
	// FontPath is a TrueType font used for the whole document. Required for
	// Hangul and other non-Latin text; when empty or unreadable the core
	// Helvetica font is used.
	FontPath string
}

// WritePDF renders a one-section report: a centered "Report: {title}"
// heading followed by body as wrapped paragraphs.
func WritePDF(w io.Writer, title, body string, opts PDFOptions) error {
	pdf := fpdf.New("P", "mm", "A4", "")
	pdf.SetTitle(title, true)

	family := fallbackFont
	translate := pdf.UnicodeTranslatorFromDescriptor("")
	if opts.FontPath != "" {
		ttf, err := os.ReadFile(opts.FontPath)
		if err != nil {
			slog.Warn("export: pdf font unavailable, using core font", "path", opts.FontPath, "err", err)
		} else {
			pdf.AddUTF8FontFromBytes(customFont, "", ttf)
			family = customFont
			translate = func(s string) string { return s }
		}
	}

	pdf.AddPage()
	pdf.SetFont(family, "", 16)
	pdf.CellFormat(0, 10, translate("Report: "+title), "", 1, "C", false, 0, "")
	pdf.Ln(10)

	pdf.SetFontSize(11)
	pdf.MultiCell(0, 8, translate(body), "", "L", false)

	if err := pdf.Error(); err != nil {
		return fmt.Errorf("export: render pdf: %w", err)
	}
	if err := pdf.Output(w); err != nil {
		return fmt.Errorf("export: write pdf: %w", err)
	}
	return nil
}
