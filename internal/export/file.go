package export

import (
	"bytes"
	"fmt"
	"os"

	"github.com/nvandessel/socialgen/internal/constants"
	"github.com/nvandessel/socialgen/internal/models"
)

// WriteFile encodes ds with the given schema and writes it to path,
// replacing any existing file. Filesystem errors are returned unmodified.
func WriteFile(path string, ds *models.Dataset, schema constants.Schema) error {
	enc, err := EncoderFor(schema)
	if err != nil {
		return err
	}
	data, err := enc.Encode(ds)
	if err != nil {
		return err
	}
	data = append(data, '\n')
	return os.WriteFile(path, data, 0644)
}

// ReadFile loads an exported dataset, detecting its schema from the
// document shape. It returns the detected schema alongside the dataset.
func ReadFile(path string) (*models.Dataset, constants.Schema, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, "", err
	}
	return Decode(data)
}

// Decode detects the schema of data and decodes it.
func Decode(data []byte) (*models.Dataset, constants.Schema, error) {
	schema, err := DetectSchema(data)
	if err != nil {
		return nil, "", err
	}
	enc, err := EncoderFor(schema)
	if err != nil {
		return nil, "", err
	}
	ds, err := enc.Decode(data)
	if err != nil {
		return nil, schema, err
	}
	return ds, schema, nil
}

// DetectSchema inspects the first non-whitespace byte: an object is the
// flat schema, an array is the nested schema.
func DetectSchema(data []byte) (constants.Schema, error) {
	trimmed := bytes.TrimLeft(data, " \t\r\n")
	if len(trimmed) == 0 {
		return "", fmt.Errorf("detecting schema: empty document")
	}
	switch trimmed[0] {
	case '{':
		return constants.SchemaFlat, nil
	case '[':
		return constants.SchemaNested, nil
	default:
		return "", fmt.Errorf("detecting schema: unexpected leading byte %q", trimmed[0])
	}
}
