package extract

import (
	"context"

	"github.com/transmeralda/fleetdocs/constants"
)

// DocumentFields is the raw key/value output of field extraction for a
// single document. Values are strings, numbers, or lists depending on
// the category schema.
type DocumentFields map[string]any

// ExtractedDocument is the extraction outcome for one document.
// FailedToParse marks a document whose model output never became valid
// JSON; Fields then holds the category's empty skeleton and downstream
// steps treat the document as contributing no evidence.
type ExtractedDocument struct {
	Category      constants.Category
	Fields        DocumentFields
	FailedToParse bool
	Raw           []byte
}

// FieldExtractor turns recognized document text into structured fields.
type FieldExtractor interface {
	Extract(ctx context.Context, ocrText string, category constants.Category) (ExtractedDocument, error)
}
