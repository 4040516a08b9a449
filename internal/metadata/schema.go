package metadata

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	jsonschema "github.com/santhosh-tekuri/jsonschema/v5"

	"github.com/starford/coleus/internal/apperr"
)

// CategorySchema describes the metadata object of a category page.
const CategorySchema = `{
	"type": "object",
	"required": ["title"],
	"properties": {
		"title":   {"type": "string", "minLength": 1},
		"icon":    {"type": "string"},
		"ordinal": {"type": "integer", "minimum": 0, "maximum": 4294967295},
		"parent":  {"type": "string"}
	}
}`

// EntrySchema describes the metadata object of an entry page.
const EntrySchema = `{
	"type": "object",
	"required": ["title"],
	"properties": {
		"title":    {"type": "string", "minLength": 1},
		"icon":     {"type": "string"},
		"ordinal":  {"type": "integer", "minimum": 0, "maximum": 4294967295},
		"category": {"type": "string"}
	}
}`

var (
	categorySchema = validator{schema: jsonschema.MustCompileString("category.json", CategorySchema)}
	entrySchema    = validator{schema: jsonschema.MustCompileString("entry.json", EntrySchema)}
)

type validator struct {
	schema *jsonschema.Schema
}

// validate decodes raw as JSON and checks it against the schema. Both
// failures are reported as ErrMetadataInvalid.
func (v validator) validate(raw []byte) error {
	dec := json.NewDecoder(bytes.NewReader(raw))
	dec.UseNumber()
	var doc any
	if err := dec.Decode(&doc); err != nil {
		return fmt.Errorf("%w: %v", apperr.ErrMetadataInvalid, err)
	}
	if dec.More() {
		return fmt.Errorf("%w: trailing data after metadata object", apperr.ErrMetadataInvalid)
	}
	if err := v.schema.Validate(doc); err != nil {
		return fmt.Errorf("%w: %s", apperr.ErrMetadataInvalid, describe(err))
	}
	return nil
}

// describe flattens a schema validation error into "location: message" leaves.
func describe(err error) string {
	var verr *jsonschema.ValidationError
	if !errors.As(err, &verr) {
		return err.Error()
	}
	var parts []string
	var walk func(e *jsonschema.ValidationError)
	walk = func(e *jsonschema.ValidationError) {
		if len(e.Causes) == 0 {
			loc := e.InstanceLocation
			if loc == "" {
				loc = "#"
			}
			parts = append(parts, fmt.Sprintf("%s: %s", loc, e.Message))
			return
		}
		for _, c := range e.Causes {
			walk(c)
		}
	}
	walk(verr)
	return strings.Join(parts, "; ")
}
