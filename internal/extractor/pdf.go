package extractor

import (
	"fmt"
	"os/exec"
	"strconv"
	"strings"
	"unicode"

	"github.com/ledongthuc/pdf"
)

// PDFSource reads the text of every page of a PDF statement. The returned
// slice always has one entry per page, so page indexes stay aligned with the
// document; a page whose text cannot be decoded is an empty string.
type PDFSource struct {
	// Poppler enables the pdftotext fallback for files the Go library cannot open.
	Poppler bool
}

// Pages implements the pipeline text source.
func (s PDFSource) Pages(filePath string) ([]string, error) {
	pages, libErr := extractWithLibrary(filePath)
	if libErr == nil {
		return pages, nil
	}

	if s.Poppler {
		popplerPages, popplerErr := extractWithPdftotext(filePath)
		if popplerErr == nil {
			return popplerPages, nil
		}
	}
	return nil, fmt.Errorf("extract %s: %w", filePath, libErr)
}

// extractWithLibrary uses the ledongthuc/pdf library. Each page tries the
// font-mapped plain text first and falls back to row reconstruction when
// that yields little readable text.
func extractWithLibrary(filePath string) (pages []string, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("PDF library crashed: %v", r)
		}
	}()

	f, r, openErr := pdf.Open(filePath)
	if openErr != nil {
		return nil, openErr
	}
	defer f.Close()

	numPages := r.NumPage()
	if numPages == 0 {
		return nil, fmt.Errorf("PDF has no pages")
	}

	pages = make([]string, numPages)
	for i := 1; i <= numPages; i++ {
		pages[i-1] = pageText(r, i)
	}
	return pages, nil
}

func pageText(r *pdf.Reader, n int) (text string) {
	defer func() {
		if rec := recover(); rec != nil {
			text = ""
		}
	}()

	page := r.Page(n)
	if page.V.IsNull() {
		return ""
	}

	plain := plainText(page)
	if textQuality(plain) > 0.8 {
		return plain
	}
	rows := rowText(page)
	if textQuality(rows) > textQuality(plain) {
		return rows
	}
	return plain
}

// plainText uses Page.GetPlainText with the page's font map.
func plainText(page pdf.Page) string {
	fonts := make(map[string]*pdf.Font)
	for _, name := range page.Fonts() {
		f := page.Font(name)
		fonts[name] = &f
	}

	text, err := page.GetPlainText(fonts)
	if err != nil {
		return ""
	}
	return strings.TrimSpace(text)
}

// rowText joins the words of each text row, one row per line.
func rowText(page pdf.Page) string {
	rows, err := page.GetTextByRow()
	if err != nil {
		return ""
	}
	var lines []string
	for _, row := range rows {
		parts := make([]string, 0, len(row.Content))
		for _, word := range row.Content {
			parts = append(parts, word.S)
		}
		if line := strings.TrimSpace(strings.Join(parts, " ")); line != "" {
			lines = append(lines, line)
		}
	}
	return strings.Join(lines, "\n")
}

// textQuality returns the share of letters, digits, whitespace and common
// statement punctuation in s, from 0 to 1. Accented Portuguese letters count
// as readable.
func textQuality(s string) float64 {
	total, readable := 0, 0
	for _, r := range s {
		total++
		if unicode.IsLetter(r) || unicode.IsDigit(r) || unicode.IsSpace(r) ||
			strings.ContainsRune(".,-/:;()'\"$%&*+R", r) {
			readable++
		}
	}
	if total == 0 {
		return 0
	}
	return float64(readable) / float64(total)
}

// extractWithPdftotext runs pdftotext (poppler-utils) page by page so that
// page boundaries survive.
func extractWithPdftotext(filePath string) ([]string, error) {
	if _, err := exec.LookPath("pdftotext"); err != nil {
		return nil, fmt.Errorf("pdftotext not available: %v", err)
	}

	info, err := exec.Command("pdfinfo", filePath).Output()
	if err != nil {
		return nil, fmt.Errorf("pdfinfo failed: %v", err)
	}
	numPages := 0
	for _, line := range strings.Split(string(info), "\n") {
		if rest, ok := strings.CutPrefix(line, "Pages:"); ok {
			numPages, _ = strconv.Atoi(strings.TrimSpace(rest))
		}
	}
	if numPages <= 0 {
		return nil, fmt.Errorf("pdfinfo reported no pages")
	}

	pages := make([]string, numPages)
	for i := 1; i <= numPages; i++ {
		n := strconv.Itoa(i)
		out, err := exec.Command("pdftotext", "-layout", "-f", n, "-l", n, filePath, "-").Output()
		if err != nil {
			continue
		}
		pages[i-1] = strings.TrimSpace(string(out))
	}
	return pages, nil
}
