// Package export serializes a dataset to JSON in one of the supported
// schema versions and reads exported files back into the canonical model.
package export

import (
	"fmt"

	"github.com/nvandessel/socialgen/internal/constants"
	"github.com/nvandessel/socialgen/internal/models"
)

// indent is the per-level indentation of exported documents.
const indent = "  "

// Encoder converts between the canonical dataset and one schema version.
type Encoder interface {
	// Schema returns the schema this encoder produces.
	Schema() constants.Schema

	// Encode renders ds as an indented JSON document.
	Encode(ds *models.Dataset) ([]byte, error)

	// Decode parses a document of this schema back into a dataset.
	Decode(data []byte) (*models.Dataset, error)
}

// EncoderFor returns the encoder for schema.
func EncoderFor(schema constants.Schema) (Encoder, error) {
	switch schema {
	case constants.SchemaFlat:
		return FlatEncoder{}, nil
	case constants.SchemaNested:
		return NestedEncoder{}, nil
	default:
		return nil, fmt.Errorf("unsupported schema %q (use 'flat' or 'nested')", schema)
	}
}

// nonNil keeps empty id lists encoding as [] rather than null.
func nonNil(ids []int) []int {
	if ids == nil {
		return []int{}
	}
	return ids
}
