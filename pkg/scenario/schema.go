// Copyright 2026 The gVisor Authors.
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package scenario

import (
	"fmt"
	"strings"

	"github.com/xeipuuv/gojsonschema"
)

const scenarioSchemaJSON = `{
	"$schema": "http://json-schema.org/draft-07/schema#",
	"type": "object",
	"additionalProperties": false,
	"required": ["threads"],
	"properties": {
		"name": {"type": "string"},
		"threads": {"type": "integer", "minimum": 1},
		"detect": {"type": "boolean"},
		"mutexes": {"type": "array", "items": {"enum": ["blocking", "spin"]}},
		"semaphores": {"type": "array", "items": {"type": "integer", "minimum": 0}},
		"condvars": {"type": "integer", "minimum": 0},
		"steps": {"type": "array", "items": {"$ref": "#/definitions/step"}}
	},
	"definitions": {
		"step": {
			"type": "object",
			"additionalProperties": false,
			"required": ["op"],
			"properties": {
				"thread": {"type": "integer", "minimum": 0},
				"op": {"enum": ["lock", "unlock", "down", "up", "signal", "wait", "enable",
					"create-mutex", "create-semaphore", "create-condvar", "vacate"]},
				"id": {"type": "integer"},
				"mutex": {"type": "integer"},
				"flag": {"type": "integer"},
				"blocking": {"type": "boolean"},
				"count": {"type": "integer", "minimum": 0},
				"kind": {"enum": ["mutex", "semaphore", "condvar"]},
				"expect": {"enum": ["ok", "deadlock", "einval", "blocked", "waiting"]},
				"result": {"type": "integer"}
			},
			"if": {"properties": {"op": {"const": "vacate"}}},
			"then": {"required": ["kind"]}
		}
	}
}`

const snapshotSchemaJSON = `{
	"$schema": "http://json-schema.org/draft-07/schema#",
	"type": "object",
	"additionalProperties": false,
	"required": ["kind", "threads"],
	"properties": {
		"kind": {"enum": ["mutex", "semaphore"]},
		"threads": {"type": "integer", "minimum": 0},
		"request": {"$ref": "#/definitions/table"},
		"allocation": {"$ref": "#/definitions/table"},
		"remain": {"type": "array", "items": {"type": "integer"}}
	},
	"definitions": {
		"table": {
			"type": "array",
			"items": {"type": "array", "items": {"type": "integer"}}
		}
	}
}`

var (
	scenarioSchema = mustSchema(scenarioSchemaJSON)
	snapshotSchema = mustSchema(snapshotSchemaJSON)
)

func mustSchema(s string) *gojsonschema.Schema {
	schema, err := gojsonschema.NewSchema(gojsonschema.NewStringLoader(s))
	if err != nil {
		panic(fmt.Sprintf("invalid schema: %v", err))
	}
	return schema
}

// checkSchema validates the generic document doc, decoded from path,
// against schema.
func checkSchema(path string, schema *gojsonschema.Schema, doc any) error {
	res, err := schema.Validate(gojsonschema.NewGoLoader(doc))
	if err != nil {
		return fmt.Errorf("validating %s: %w", path, err)
	}
	if res.Valid() {
		return nil
	}
	errs := make([]string, 0, len(res.Errors()))
	for _, e := range res.Errors() {
		errs = append(errs, e.String())
	}
	return fmt.Errorf("%s: %s", path, strings.Join(errs, "; "))
}
