package phpboot

import (
	"context"
	"encoding/json"
	"fmt"
	"sort"
	"strings"

	"github.com/invopop/jsonschema"
	qjsonschema "github.com/qri-io/jsonschema"
	"gopkg.in/yaml.v3"
)

const schemaID = "https://pmsm.github.io/phpboot/phpboot.schema.json"

// JSONSchema returns the json schema for config files.
func JSONSchema() *jsonschema.Schema {
	r := &jsonschema.Reflector{
		ExpandedStruct: true,
	}
	schema := r.Reflect(&Config{})
	schema.ID = schemaID
	return schema
}

// validateConfig checks whether cfg meets the json schema.
func validateConfig(ctx context.Context, cfg []byte) error {
	cfgJSON, err := yaml2json(cfg)
	if err != nil {
		return fmt.Errorf("config is not valid yaml (or json)")
	}
	schemaText, err := json.Marshal(JSONSchema())
	if err != nil {
		return err
	}
	var schema qjsonschema.Schema
	err = json.Unmarshal(schemaText, &schema)
	if err != nil {
		return err
	}
	validationErrs, err := schema.ValidateBytes(ctx, cfgJSON)
	if err != nil {
		return fmt.Errorf("unexpected error running jsonSchema.ValidateBytes: %v", err)
	}
	if len(validationErrs) == 0 {
		return nil
	}
	sort.Slice(validationErrs, func(i, j int) bool {
		return validationErrs[i].Error() < validationErrs[j].Error()
	})
	msgs := make([]string, len(validationErrs))
	for i, validationErr := range validationErrs {
		msgs[i] = validationErr.Error()
	}
	return fmt.Errorf("invalid config:\n%s", strings.Join(msgs, "\n"))
}

func yaml2json(y []byte) ([]byte, error) {
	var data any
	err := yaml.Unmarshal(y, &data)
	if err != nil {
		return nil, err
	}
	if data == nil {
		data = map[string]any{}
	}
	return json.Marshal(data)
}
