package llm

import (
	_ "embed"
	"strings"
	"sync"

	"github.com/santhosh-tekuri/jsonschema/v5"
)

//go:embed decision.schema.json
var decisionSchemaJSON string

var (
	schemaOnce sync.Once
	schema     *jsonschema.Schema
	schemaErr  error
)

func decisionSchema() (*jsonschema.Schema, error) {
	schemaOnce.Do(func() {
		compiler := jsonschema.NewCompiler()
		if err := compiler.AddResource("decision.schema.json", strings.NewReader(decisionSchemaJSON)); err != nil {
			schemaErr = err
			return
		}
		schema, schemaErr = compiler.Compile("decision.schema.json")
	})
	return schema, schemaErr
}

// numericActionFields are coerced from strings before validation. Models
// sometimes quote numbers ("3000" instead of 3000).
var numericActionFields = []string{"size", "leverage", "target_price", "stop_loss"}

func coerceActionNumbers(doc map[string]any) {
	actions, ok := doc["actions"].([]any)
	if !ok {
		return
	}
	for _, item := range actions {
		act, ok := item.(map[string]any)
		if !ok {
			continue
		}
		for _, k := range numericActionFields {
			if s, ok := act[k].(string); ok {
				if f, ok := parseNumber(s); ok {
					act[k] = f
				}
			}
		}
	}
}
