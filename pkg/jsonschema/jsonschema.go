package jsonschema

import (
	"fmt"
	"strings"

	"github.com/xeipuuv/gojsonschema"
)

// Validator validates documents against a schema compiled once up front.
// It is safe for concurrent use.
type Validator struct {
	schema *gojsonschema.Schema
}

// Compile parses schema and fails fast if it is not a valid JSON schema.
func Compile(schema string) (*Validator, error) {
	s, err := gojsonschema.NewSchema(gojsonschema.NewStringLoader(schema))
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidSchema, err)
	}
	return &Validator{schema: s}, nil
}

// Validate checks doc and returns nil when it conforms.
func (v *Validator) Validate(doc []byte) error {
	res, err := v.schema.Validate(gojsonschema.NewBytesLoader(doc))
	return FormatErrors(res, err)
}

// FormatErrors turns a gojsonschema result into a single-line error.
func FormatErrors(result *gojsonschema.Result, err error) error {
	if err != nil {
		return fmt.Errorf("%w: %v", ErrSchemaValidationSystem, err)
	}
	if result.Valid() {
		return nil
	}
	descs := make([]string, 0, len(result.Errors()))
	for _, desc := range result.Errors() {
		descs = append(descs, desc.String())
	}
	return fmt.Errorf("%w: %s", ErrSchemaValidationFailed, strings.Join(descs, "; "))
}
