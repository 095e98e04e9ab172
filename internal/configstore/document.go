package configstore

import (
	"encoding/json"
	"fmt"
	"sync"

	"github.com/google/jsonschema-go/jsonschema"
)

// documentSchema describes {"entries":[{"name": "...", "<Prop>": ...}]}. Property values are not
// constrained here; values other than a string or a string list are dropped per property.
const documentSchema = `{
  "type": "object",
  "required": ["entries"],
  "properties": {
    "entries": {
      "type": "array",
      "items": {
        "type": "object",
        "required": ["name"],
        "properties": {
          "name": {"type": "string", "minLength": 1}
        }
      }
    }
  }
}`

var (
	resolvedSchemaOnce sync.Once
	resolvedSchema     *jsonschema.Resolved
	resolvedSchemaErr  error
)

func documentValidator() (*jsonschema.Resolved, error) {
	resolvedSchemaOnce.Do(func() {
		var schema jsonschema.Schema
		if err := json.Unmarshal([]byte(documentSchema), &schema); err != nil {
			resolvedSchemaErr = fmt.Errorf("failed to unmarshal into jsonschema.Schema: %w", err)
			return
		}
		resolvedSchema, resolvedSchemaErr = schema.Resolve(&jsonschema.ResolveOptions{})
		if resolvedSchemaErr != nil {
			resolvedSchemaErr = fmt.Errorf("failed to resolve JSON schema: %w", resolvedSchemaErr)
		}
	})
	return resolvedSchema, resolvedSchemaErr
}

type document struct {
	Entries []map[string]any `json:"entries"`
}

// DecodeJSONDocument validates data and builds a node at nodePath. Entry order follows the document.
func DecodeJSONDocument(nodePath string, data []byte) (*Node, error) {
	var raw any
	if err := json.Unmarshal(data, &raw); err != nil {
		return nil, fmt.Errorf("failed to unmarshal JSON document: %w", err)
	}

	validator, err := documentValidator()
	if err != nil {
		return nil, err
	}
	if err := validator.Validate(raw); err != nil {
		return nil, fmt.Errorf("JSON validation failed: %w", err)
	}

	var doc document
	if err := json.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("failed to decode JSON document: %w", err)
	}

	node := NewNode(nodePath)
	for _, item := range doc.Entries {
		name, _ := item["name"].(string)
		props := make(map[string]any, len(item))
		for k, v := range item {
			if k != "name" {
				props[k] = v
			}
		}
		if err := node.Add(name, props); err != nil {
			return nil, err
		}
	}
	return node, nil
}

// EncodeJSONDocument renders node in the format read by DecodeJSONDocument.
func EncodeJSONDocument(node *Node) ([]byte, error) {
	doc := document{Entries: make([]map[string]any, 0, node.Len())}
	for _, e := range node.Entries() {
		item := make(map[string]any, len(e.Properties)+1)
		for k, v := range e.Properties {
			item[k] = v
		}
		item["name"] = e.Name
		doc.Entries = append(doc.Entries, item)
	}
	return json.MarshalIndent(doc, "", "  ")
}
