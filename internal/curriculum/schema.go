package curriculum

import (
	"fmt"
	"strings"

	"github.com/xeipuuv/gojsonschema"
	"gopkg.in/yaml.v3"
)

// documentSchema describes one curriculum YAML document.
const documentSchema = `{
  "$schema": "http://json-schema.org/draft-07/schema#",
  "type": "object",
  "required": ["id", "name", "levels"],
  "properties": {
    "id": {"type": "string", "pattern": "^[a-z][a-z0-9_-]*$"},
    "name": {"type": "string", "minLength": 1},
    "description": {"type": "string"},
    "color": {"type": "string"},
    "levels": {
      "type": "array",
      "minItems": 1,
      "items": {
        "type": "object",
        "required": ["id", "name", "modules"],
        "properties": {
          "id": {"type": "string", "pattern": "^[a-z][a-z0-9_-]*$"},
          "name": {"type": "string", "minLength": 1},
          "duration": {"type": "string"},
          "badge": {
            "type": "object",
            "required": ["name"],
            "properties": {
              "name": {"type": "string", "minLength": 1},
              "icon": {"type": "string"},
              "description": {"type": "string"},
              "title": {"type": "string"}
            }
          },
          "modules": {
            "type": "array",
            "minItems": 1,
            "items": {
              "type": "object",
              "required": ["id", "title", "quiz"],
              "properties": {
                "id": {"type": "string", "minLength": 1},
                "title": {"type": "string", "minLength": 1},
                "description": {"type": "string"},
                "tools": {"type": "array", "items": {"type": "string"}},
                "project": {"type": "string"},
                "duration": {"type": "string"},
                "quiz": {
                  "type": "array",
                  "minItems": 1,
                  "items": {
                    "type": "object",
                    "required": ["question", "options", "correct"],
                    "properties": {
                      "question": {"type": "string", "minLength": 1},
                      "options": {
                        "type": "array",
                        "minItems": 4,
                        "maxItems": 4,
                        "items": {"type": "string"}
                      },
                      "correct": {"type": "integer", "minimum": 0, "maximum": 3},
                      "explanation": {"type": "string"}
                    }
                  }
                },
                "videos": {
                  "type": "array",
                  "items": {
                    "type": "object",
                    "required": ["title", "url"],
                    "properties": {
                      "title": {"type": "string"},
                      "url": {"type": "string"},
                      "duration": {"type": "string"}
                    }
                  }
                }
              }
            }
          }
        }
      }
    }
  }
}`

var schemaLoader = gojsonschema.NewStringLoader(documentSchema)

// ValidateDocument checks a raw YAML curriculum document against the schema.
func ValidateDocument(data []byte) error {
	var doc any
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return fmt.Errorf("parsing document: %w", err)
	}
	if doc == nil {
		return fmt.Errorf("empty document")
	}

	result, err := gojsonschema.Validate(schemaLoader, gojsonschema.NewGoLoader(doc))
	if err != nil {
		return fmt.Errorf("validating document: %w", err)
	}
	if result.Valid() {
		return nil
	}

	msgs := make([]string, 0, len(result.Errors()))
	for _, e := range result.Errors() {
		msgs = append(msgs, e.String())
	}
	return fmt.Errorf("invalid curriculum document: %s", strings.Join(msgs, "; "))
}
