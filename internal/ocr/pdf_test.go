package ocr

import (
	"context"
	"errors"
	"os"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"
)

// fakeRunner scripts the three external binaries. When pdftoppm is invoked
// it drops a placeholder image next to the requested prefix so the page
// glob finds something.
type fakeRunner struct {
	embeddedText string
	embeddedErr  error
	ocrText      string
	ocrErr       error

	calls []string
}

func (f *fakeRunner) Run(_ context.Context, name string, args ...string) ([]byte, []byte, error) {
	f.calls = append(f.calls, name)
	switch {
	case strings.Contains(name, "pdftotext"):
		return []byte(f.embeddedText), nil, f.embeddedErr
	case strings.Contains(name, "pdftoppm"):
		prefix := args[len(args)-1]
		if err := os.WriteFile(prefix+"-1.png", []byte("png"), 0o644); err != nil {
			return nil, nil, err
		}
		return nil, nil, nil
	case strings.Contains(name, "tesseract"):
		return []byte(f.ocrText), nil, f.ocrErr
	}
	return nil, nil, errors.New("unexpected command: " + name)
}

func (f *fakeRunner) called(name string) bool {
	for _, c := range f.calls {
		if strings.Contains(c, name) {
			return true
		}
	}
	return false
}

func newTestExtractor(r *fakeRunner) *Extractor {
	return NewExtractor(Config{}, nil).WithRunner(r)
}

func TestExtractTextEmbeddedLayerSufficient(t *testing.T) {
	runner := &fakeRunner{
		embeddedText: "This page carries a full embedded text layer.\fSecond page also has plenty of text here.",
	}
	text := newTestExtractor(runner).ExtractText(context.Background(), "contract.pdf")

	require.Equal(t, "This page carries a full embedded text layer.\nSecond page also has plenty of text here.", text)
	require.False(t, runner.called("pdftoppm"))
	require.False(t, runner.called("tesseract"))
}

func TestExtractTextFallsBackPerPage(t *testing.T) {
	runner := &fakeRunner{
		embeddedText: "This first page has enough embedded characters.\fx",
		ocrText:      "Recovered by optical recognition.",
	}
	text := newTestExtractor(runner).ExtractText(context.Background(), "contract.pdf")

	require.True(t, runner.called("pdftoppm"))
	require.True(t, runner.called("tesseract"))
	require.Contains(t, text, "This first page has enough embedded characters.")
	require.Contains(t, text, "Recovered by optical recognition.")
}

func TestExtractTextKeepsShortTextWhenOCREmpty(t *testing.T) {
	runner := &fakeRunner{
		embeddedText: "stub page",
		ocrText:      "   ",
	}
	text := newTestExtractor(runner).ExtractText(context.Background(), "contract.pdf")

	require.True(t, runner.called("tesseract"))
	require.Equal(t, "stub page", text)
}

func TestExtractTextSwallowsPageOCRFailure(t *testing.T) {
	runner := &fakeRunner{
		embeddedText: "short\fThis page has a complete embedded text layer instead.",
		ocrErr:       errors.New("tesseract crashed"),
	}
	text := newTestExtractor(runner).ExtractText(context.Background(), "contract.pdf")

	require.Equal(t, "short\nThis page has a complete embedded text layer instead.", text)
}

func TestExtractTextEmptyOnPdftotextFailure(t *testing.T) {
	runner := &fakeRunner{embeddedErr: errors.New("broken pdf")}
	text := newTestExtractor(runner).ExtractText(context.Background(), "contract.pdf")

	require.Equal(t, "", text)
	require.False(t, runner.called("pdftoppm"))
}

func TestExtractTextThresholdCountsCharacters(t *testing.T) {
	// 12 CJK characters are 36 bytes; still under the 20-character
	// threshold, so the page must go through OCR.
	runner := &fakeRunner{
		embeddedText: "契約書の条項は以下の通り",
		ocrText:      "契約書の条項は以下の通りに定めるものとする。",
	}
	text := newTestExtractor(runner).ExtractText(context.Background(), "contract.pdf")

	require.True(t, runner.called("tesseract"))
	require.Equal(t, "契約書の条項は以下の通りに定めるものとする。", text)
}

func TestExtractTextMaxPages(t *testing.T) {
	runner := &fakeRunner{
		embeddedText: "Page one has a sufficient amount of text.\fPage two has a sufficient amount of text.\fPage three has a sufficient amount of text.",
	}
	e := NewExtractor(Config{MaxPages: 2}, nil).WithRunner(runner)
	text := e.ExtractText(context.Background(), "contract.pdf")

	require.NotContains(t, text, "Page three")
	require.Contains(t, text, "Page two")
}
