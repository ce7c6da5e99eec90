// internal/decision/validate.go
package decision

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/xeipuuv/gojsonschema"
)

// resultSchema constrains serialized decision results before they are
// written to downstream consumers.
const resultSchema = `{
  "type": "object",
  "required": ["verdict", "confidence", "reason"],
  "properties": {
    "verdict": {
      "type": "string",
      "enum": ["CONFIRM", "CORRECT", "REVIEW", "NON_DEFECT"]
    },
    "final_ata": {
      "type": "string",
      "pattern": "^([0-9]{2}-[0-9]{2})?$"
    },
    "confidence": {
      "type": "number",
      "minimum": 0,
      "maximum": 1
    },
    "reason": {
      "type": "string",
      "minLength": 1
    }
  }
}`

var compiledResultSchema = gojsonschema.NewStringLoader(resultSchema)

// ValidateResult checks a decision result against the output schema and
// returns a descriptive error listing every violated constraint.
func ValidateResult(r Result) error {
	doc, err := json.Marshal(r)
	if err != nil {
		return fmt.Errorf("marshaling decision result: %w", err)
	}

	res, err := gojsonschema.Validate(compiledResultSchema, gojsonschema.NewBytesLoader(doc))
	if err != nil {
		return fmt.Errorf("validating decision result: %w", err)
	}
	if res.Valid() {
		return nil
	}

	var msgs []string
	for _, desc := range res.Errors() {
		msgs = append(msgs, desc.String())
	}
	return fmt.Errorf("invalid decision result: %s", strings.Join(msgs, "; "))
}
