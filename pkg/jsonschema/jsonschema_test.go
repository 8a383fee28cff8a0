package jsonschema

import (
	"errors"
	"testing"
)

const nameSchema = `{"$schema":"http://json-schema.org/draft-07/schema#","type":"object","properties":{"name":{"type":"string"}},"required":["name"]}`

func TestCompile_Valid(t *testing.T) {
	if _, err := Compile(nameSchema); err != nil {
		t.Fatalf("expected valid schema, got error: %v", err)
	}
}

func TestCompile_Invalid(t *testing.T) {
	invalid := `{"$schema":"http://json-schema.org/draft-07/schema#","type":"object","properties":{name:{"type":"string"}}}`
	_, err := Compile(invalid)
	if err == nil {
		t.Fatalf("expected schema creation error, got nil")
	}
	if !errors.Is(err, ErrInvalidSchema) {
		t.Fatalf("expected error to wrap ErrInvalidSchema, got: %v", err)
	}
}

func TestValidator_ValidDocument(t *testing.T) {
	v, err := Compile(nameSchema)
	if err != nil {
		t.Fatalf("schema should be valid: %v", err)
	}
	if err := v.Validate([]byte(`{"name":"miku"}`)); err != nil {
		t.Fatalf("expected document to be valid, got: %v", err)
	}
}

func TestValidator_InvalidDocument(t *testing.T) {
	v, err := Compile(`{"$schema":"http://json-schema.org/draft-07/schema#","type":"object","properties":{"age":{"type":"integer"}},"required":["age"]}`)
	if err != nil {
		t.Fatalf("schema should be valid: %v", err)
	}
	err = v.Validate([]byte(`{"age":"not-integer"}`))
	if err == nil {
		t.Fatalf("expected document to be invalid")
	}
	if !errors.Is(err, ErrSchemaValidationFailed) {
		t.Fatalf("expected error to wrap ErrSchemaValidationFailed, got: %v", err)
	}
}

func TestValidator_MalformedDocument(t *testing.T) {
	v, err := Compile(nameSchema)
	if err != nil {
		t.Fatalf("schema should be valid: %v", err)
	}
	err = v.Validate([]byte(`{"name":`))
	if !errors.Is(err, ErrSchemaValidationSystem) {
		t.Fatalf("expected error to wrap ErrSchemaValidationSystem, got: %v", err)
	}
}

func TestFormatErrors_SystemError(t *testing.T) {
	sysErr := FormatErrors(nil, assertError{})
	if sysErr == nil {
		t.Fatalf("expected non-nil error for system error")
	}
	if !errors.Is(sysErr, ErrSchemaValidationSystem) {
		t.Fatalf("expected error to wrap ErrSchemaValidationSystem, got: %v", sysErr)
	}
}

type assertError struct{}

func (assertError) Error() string { return "system boom" }
