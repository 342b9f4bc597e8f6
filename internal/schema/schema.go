// Package schema はJSON Schemaでリクエストボディを検証し、検証済みの入力に変換します。
package schema

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/santhosh-tekuri/jsonschema/v5"

	"go-todo-api/internal/models"
)

const todoProperties = `{
	"text":      {"type": "string", "minLength": 1, "pattern": "\\S"},
	"completed": {"type": "boolean"},
	"priority":  {"enum": ["low", "medium", "high", null]},
	"dueDate":   {"type": ["string", "null"], "format": "date-time"}
}`

var (
	createSchema = mustCompile("todo-create.json", `{
		"$schema": "http://json-schema.org/draft-07/schema#",
		"type": "object",
		"required": ["text"],
		"properties": `+todoProperties+`
	}`)
	updateSchema = mustCompile("todo-update.json", `{
		"$schema": "http://json-schema.org/draft-07/schema#",
		"type": "object",
		"properties": `+todoProperties+`
	}`)
)

func mustCompile(name, src string) *jsonschema.Schema {
	compiler := jsonschema.NewCompiler()
	compiler.AssertFormat = true
	if err := compiler.AddResource(name, strings.NewReader(src)); err != nil {
		panic(fmt.Sprintf("schema %s: %v", name, err))
	}
	return compiler.MustCompile(name)
}

// todoBody はスキーマ検証済みのボディです。
// userId / id / createdAt / updatedAt はサーバー側で管理するため読み取りません。
type todoBody struct {
	Text      *string         `json:"text"`
	Completed *bool           `json:"completed"`
	Priority  json.RawMessage `json:"priority"`
	DueDate   json.RawMessage `json:"dueDate"`
}

// ParseCreate は作成リクエストのボディを検証して TodoInput を返します。
func ParseCreate(body []byte) (models.TodoInput, error) {
	var in models.TodoInput
	b, err := decode(createSchema, body)
	if err != nil {
		return in, err
	}
	in.Text = *b.Text
	if b.Completed != nil {
		in.Completed = *b.Completed
	}
	if p, set, _ := priority(b.Priority); set {
		in.Priority = p
	}
	if d, set, err := dueDate(b.DueDate); err != nil {
		return in, err
	} else if set {
		in.DueDate = d
	}
	return in, nil
}

// ParseUpdate は更新リクエストのボディを検証して TodoPatch を返します。
// null は値の削除、キーの省略は変更なしを意味します。
func ParseUpdate(body []byte) (models.TodoPatch, error) {
	var patch models.TodoPatch
	b, err := decode(updateSchema, body)
	if err != nil {
		return patch, err
	}
	patch.Text = b.Text
	patch.Completed = b.Completed
	if p, set, null := priority(b.Priority); null {
		patch.ClearPriority = true
	} else if set {
		patch.Priority = &p
	}
	d, set, err := dueDate(b.DueDate)
	if err != nil {
		return patch, err
	}
	if set && d == nil {
		patch.ClearDueDate = true
	} else if set {
		patch.DueDate = d
	}
	return patch, nil
}

func decode(s *jsonschema.Schema, body []byte) (*todoBody, error) {
	if len(bytes.TrimSpace(body)) == 0 {
		return nil, &models.ValidationError{Message: "request body is required"}
	}

	dec := json.NewDecoder(bytes.NewReader(body))
	dec.UseNumber()
	var doc interface{}
	if err := dec.Decode(&doc); err != nil {
		return nil, &models.ValidationError{Message: "malformed JSON: " + err.Error()}
	}
	if err := s.Validate(doc); err != nil {
		return nil, toValidationError(err)
	}

	var b todoBody
	if err := json.Unmarshal(body, &b); err != nil {
		return nil, &models.ValidationError{Message: "malformed JSON: " + err.Error()}
	}
	return &b, nil
}

// priority は値・キーの有無・null かどうかを返します。
func priority(raw json.RawMessage) (p models.Priority, set bool, null bool) {
	if raw == nil {
		return "", false, false
	}
	if string(raw) == "null" {
		return "", true, true
	}
	var s string
	_ = json.Unmarshal(raw, &s)
	return models.Priority(s), true, false
}

func dueDate(raw json.RawMessage) (*time.Time, bool, error) {
	if raw == nil {
		return nil, false, nil
	}
	if string(raw) == "null" {
		return nil, true, nil
	}
	var s string
	if err := json.Unmarshal(raw, &s); err != nil {
		return nil, true, &models.ValidationError{Field: "dueDate", Message: "must be a string"}
	}
	t, err := time.Parse(time.RFC3339Nano, s)
	if err != nil {
		return nil, true, &models.ValidationError{Field: "dueDate", Message: "must be an RFC 3339 timestamp"}
	}
	t = t.UTC()
	return &t, true, nil
}

func toValidationError(err error) error {
	var ve *jsonschema.ValidationError
	if !errors.As(err, &ve) {
		return &models.ValidationError{Message: err.Error()}
	}
	leaf := firstLeaf(ve)
	field := strings.TrimPrefix(strings.TrimPrefix(leaf.InstanceLocation, "#"), "/")
	msg := leaf.Message
	if field == "" && strings.Contains(msg, "missing properties") {
		field = "text"
		msg = "is required"
	}
	return &models.ValidationError{Field: field, Message: msg}
}

func firstLeaf(ve *jsonschema.ValidationError) *jsonschema.ValidationError {
	for len(ve.Causes) > 0 {
		ve = ve.Causes[0]
	}
	return ve
}
