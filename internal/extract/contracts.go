package extract

import "context"

// TextExtractor is the seam the ingestion pipeline depends on for document
// text. An empty string signals unrecoverable extraction failure.
type TextExtractor interface {
	ExtractText(ctx context.Context, path string) string
}
