package advisory

import (
	"encoding/json"

	"github.com/invopop/jsonschema"
)

// ResponseSchema returns the JSON schema of Response, suitable for a system prompt.
func ResponseSchema() (string, error) {
	r := new(jsonschema.Reflector)
	r.DoNotReference = true
	r.ExpandedStruct = true

	schema := r.Reflect(&Response{}) //nolint:exhaustruct

	data, err := json.MarshalIndent(schema, "", "  ")
	if err != nil {
		return "", err
	}

	return string(data), nil
}
