package manifest

import (
	"encoding/json"
	"fmt"
	"reflect"
	"time"

	"github.com/invopop/jsonschema"
)

var durationType = reflect.TypeOf(time.Duration(0))

// Schema returns the JSON Schema (Draft 2020-12) describing tape.toml, for
// editors that validate TOML against JSON Schema.
func Schema() ([]byte, error) {
	reflector := jsonschema.Reflector{
		FieldNameTag:               "toml",
		ExpandedStruct:             true,
		RequiredFromJSONSchemaTags: true,
		Mapper: func(t reflect.Type) *jsonschema.Schema {
			if t == durationType {
				return &jsonschema.Schema{
					Type:        "string",
					Description: "Go duration, e.g. \"30s\" or \"1m30s\"",
				}
			}
			return nil
		},
	}
	schema := reflector.Reflect(&Manifest{})
	schema.Title = FileName

	data, err := json.MarshalIndent(schema, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("failed to marshal schema: %w", err)
	}
	return data, nil
}
