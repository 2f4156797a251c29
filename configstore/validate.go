package configstore

import (
	"bytes"
	"fmt"
	"strings"
	"sync"

	"github.com/santhosh-tekuri/jsonschema/v6"
)

// documentSchema constrains the GET envelope before decoding. The
// store offers no server-side validation; a session that crashed
// mid-write can leave arbitrarily shaped documents behind.
const documentSchema = `{
  "$schema": "https://json-schema.org/draft/2020-12/schema",
  "type": "object",
  "required": ["config"],
  "properties": {
    "name": {"type": "string"},
    "updatedAt": {"type": "string"},
    "config": {
      "type": "object",
      "properties": {
        "tabs": {
          "type": "array",
          "items": {
            "type": "object",
            "properties": {
              "id": {"type": "string"},
              "name": {"type": "string"},
              "componentRef": {"type": "string"},
              "kind": {"type": "string"},
              "closable": {"type": "boolean"},
              "gridEnabled": {"type": "boolean"},
              "editMode": {"type": "boolean"},
              "memoryStrategy": {"type": "string"},
              "components": {
                "type": "array",
                "items": {
                  "type": "object",
                  "properties": {
                    "id": {"type": "string"},
                    "type": {"type": "string"},
                    "position": {
                      "type": "object",
                      "properties": {
                        "x": {"type": "integer"},
                        "y": {"type": "integer"},
                        "w": {"type": "integer"},
                        "h": {"type": "integer"}
                      }
                    },
                    "props": {"type": "object"},
                    "zIndex": {"type": "integer"}
                  }
                }
              }
            }
          }
        },
        "layouts": {"type": "array"}
      }
    }
  }
}`

var (
	compiledSchema     *jsonschema.Schema
	compileSchemaOnce  sync.Once
	compileSchemaError error
)

func compiledDocumentSchema() (*jsonschema.Schema, error) {
	compileSchemaOnce.Do(func() {
		doc, err := jsonschema.UnmarshalJSON(strings.NewReader(documentSchema))
		if err != nil {
			compileSchemaError = err
			return
		}
		compiler := jsonschema.NewCompiler()
		if err := compiler.AddResource("device-config.json", doc); err != nil {
			compileSchemaError = err
			return
		}
		compiledSchema, compileSchemaError = compiler.Compile("device-config.json")
	})
	return compiledSchema, compileSchemaError
}

func validateDocument(body []byte) error {
	sch, err := compiledDocumentSchema()
	if err != nil {
		return fmt.Errorf("compile document schema: %w", err)
	}
	instance, err := jsonschema.UnmarshalJSON(bytes.NewReader(body))
	if err != nil {
		return err
	}
	return sch.Validate(instance)
}
