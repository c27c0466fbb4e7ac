package ocr

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"unicode/utf8"

	"github.com/brmlabs/renewal-calendar/internal/metrics"
)

// MinEmbeddedChars is the embedded-text threshold below which a page is
// treated as image-only and re-rendered for OCR. Pages with a real text
// layer must never be forced through the slower OCR path.
const MinEmbeddedChars = 20

type Config struct {
	Pdftotext string // binary name or absolute path; if empty -> "pdftotext"
	Pdftoppm  string // binary name or absolute path; if empty -> "pdftoppm"
	Tesseract string // binary name or absolute path; if empty -> "tesseract"

	TesseractLang string // default "eng"
	DPI           int    // rasterization DPI for image-only pages, default 300
	MaxPages      int    // 0 = no limit
}

// Extractor pulls the embedded text layer out of a PDF and falls back to
// per-page OCR where the layer is missing or too thin.
type Extractor struct {
	cfg    Config
	runner Runner
	logger *slog.Logger
}

func NewExtractor(cfg Config, logger *slog.Logger) *Extractor {
	if logger == nil {
		logger = slog.Default()
	}
	if cfg.Pdftotext == "" {
		cfg.Pdftotext = "pdftotext"
	}
	if cfg.Pdftoppm == "" {
		cfg.Pdftoppm = "pdftoppm"
	}
	if cfg.Tesseract == "" {
		cfg.Tesseract = "tesseract"
	}
	if cfg.TesseractLang == "" {
		cfg.TesseractLang = "eng"
	}
	if cfg.DPI <= 0 {
		cfg.DPI = 300
	}
	return &Extractor{cfg: cfg, runner: execRunner{logger: logger}, logger: logger}
}

// ExtractText returns the concatenated per-page text of the document, pages
// joined by newline with outer whitespace trimmed. Extraction failure is
// signaled by an empty string; the method never returns an error to the
// caller. Per-page OCR faults are swallowed and that page keeps whatever
// embedded text existed.
func (e *Extractor) ExtractText(ctx context.Context, path string) string {
	pages, err := e.embeddedPages(ctx, path)
	if err != nil {
		e.logger.Error("ocr.embedded_text_failed", "path", path, "error", err)
		return ""
	}
	if e.cfg.MaxPages > 0 && len(pages) > e.cfg.MaxPages {
		pages = pages[:e.cfg.MaxPages]
	}

	for i, text := range pages {
		// Characters, not bytes: a dozen CJK characters is a thin text
		// layer even at three bytes apiece.
		if utf8.RuneCountInString(strings.TrimSpace(text)) >= MinEmbeddedChars {
			continue
		}
		// Page looks image-only: render and OCR it, keeping the short
		// embedded text when OCR yields nothing.
		metrics.OCRFallbackPages.Inc()
		ocrText, err := e.ocrPage(ctx, path, i+1)
		if err != nil {
			e.logger.Warn("ocr.page_fallback_failed", "path", path, "page", i+1, "error", err)
			continue
		}
		if strings.TrimSpace(ocrText) != "" {
			pages[i] = ocrText
		}
	}

	return strings.TrimSpace(strings.Join(pages, "\n"))
}

// embeddedPages runs pdftotext once and splits the output into pages on the
// form-feed separator it emits.
func (e *Extractor) embeddedPages(ctx context.Context, path string) ([]string, error) {
	out, errb, err := e.runner.Run(ctx, e.cfg.Pdftotext,
		"-layout", "-enc", "UTF-8", "-eol", "unix", path, "-")
	if err != nil {
		return nil, fmt.Errorf("pdftotext: %w (%s)", err, truncate(string(errb), 512))
	}
	return strings.Split(string(out), "\f"), nil
}

// ocrPage renders a single page at the configured DPI and runs tesseract on
// it, configured for a single uniform block of text.
func (e *Extractor) ocrPage(ctx context.Context, path string, page int) (string, error) {
	tmpDir, err := os.MkdirTemp("", "rc-ocr-*")
	if err != nil {
		return "", err
	}
	defer func() {
		if rmErr := os.RemoveAll(tmpDir); rmErr != nil {
			e.logger.Warn("ocr.tmpdir_cleanup_failed", "dir", tmpDir, "error", rmErr)
		}
	}()

	prefix := filepath.Join(tmpDir, "page")
	pageArg := fmt.Sprintf("%d", page)
	// pdftoppm -f N -l N -r 300 -png <in.pdf> <tmp/page>
	_, errb, err := e.runner.Run(ctx, e.cfg.Pdftoppm,
		"-f", pageArg, "-l", pageArg, "-r", fmt.Sprintf("%d", e.cfg.DPI), "-png", path, prefix)
	if err != nil {
		return "", fmt.Errorf("pdftoppm: %w (%s)", err, truncate(string(errb), 512))
	}

	matches, _ := filepath.Glob(prefix + "-*.png")
	sort.Strings(matches)
	if len(matches) == 0 {
		return "", fmt.Errorf("pdftoppm produced no image for page %d", page)
	}

	// tesseract <img> stdout -l eng --oem 1 --psm 6
	out, errb, err := e.runner.Run(ctx, e.cfg.Tesseract,
		matches[0], "stdout", "-l", e.cfg.TesseractLang, "--oem", "1", "--psm", "6")
	if err != nil {
		return "", fmt.Errorf("tesseract: %w (%s)", err, truncate(string(errb), 512))
	}
	return string(out), nil
}

// WithRunner swaps the command runner; used by tests to stub the external
// binaries.
func (e *Extractor) WithRunner(r Runner) *Extractor {
	e.runner = r
	return e
}
