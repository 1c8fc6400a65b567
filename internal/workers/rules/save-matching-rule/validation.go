// internal/workers/rules/save-matching-rule/validation.go
package savematchingrule

import (
	"fmt"

	"github.com/xeipuuv/gojsonschema"
)

// ruleSchema describes the payload shape. Semantic checks (negative amounts,
// deadline range) live in the matching package.
var ruleSchema = map[string]interface{}{
	"type":     "object",
	"required": []interface{}{"connectionId", "tenantId", "landlordId", "expectedAmount"},
	"properties": map[string]interface{}{
		"id":                  map[string]interface{}{"type": "string"},
		"connectionId":        map[string]interface{}{"type": "string", "minLength": 1},
		"tenantId":            map[string]interface{}{"type": "string", "minLength": 1},
		"landlordId":          map[string]interface{}{"type": "string", "minLength": 1},
		"expectedAmount":      map[string]interface{}{"type": []interface{}{"string", "number"}},
		"toleranceAmount":     map[string]interface{}{"type": []interface{}{"string", "number"}},
		"senderName":          map[string]interface{}{"type": "string"},
		"senderIban":          map[string]interface{}{"type": "string"},
		"descriptionContains": map[string]interface{}{"type": "string"},
		"deadlineDay":         map[string]interface{}{"type": "integer"},
		"active":              map[string]interface{}{"type": "boolean"},
	},
	"additionalProperties": false,
}

func validatePayload(payload map[string]interface{}) error {
	schemaLoader := gojsonschema.NewGoLoader(ruleSchema)
	documentLoader := gojsonschema.NewGoLoader(payload)

	result, err := gojsonschema.Validate(schemaLoader, documentLoader)
	if err != nil {
		return fmt.Errorf("validation error: %w", err)
	}

	if !result.Valid() {
		errs := make([]string, len(result.Errors()))
		for i, desc := range result.Errors() {
			errs[i] = desc.String()
		}
		return fmt.Errorf("rule validation failed: %v", errs)
	}

	return nil
}
