package vecstore

import (
	"errors"
	"fmt"
	"reflect"
)

var (
	// ErrMapping signals an entity type that cannot be described.
	ErrMapping = errors.New("vecstore: mapping error")
	// ErrConversion signals an embedding that does not fit its target representation.
	ErrConversion = errors.New("vecstore: conversion error")
	// ErrSchemaInit signals a fatal schema initialization failure.
	ErrSchemaInit = errors.New("vecstore: schema initialization failed")
	// ErrDimensionMismatch signals a provider vector of unexpected length.
	ErrDimensionMismatch = errors.New("vecstore: embedding dimension mismatch")
	// ErrInvalidRequest signals a search request that fails validation.
	ErrInvalidRequest = errors.New("vecstore: invalid request")
	// ErrEmbedderRequired signals a client built without an embedder.
	ErrEmbedderRequired = errors.New("vecstore: embedder not configured (use WithEmbedder)")
)

// MappingError reports why an entity type cannot be mapped.
type MappingError struct {
	Type   reflect.Type
	Field  string
	Reason string
}

func (e *MappingError) Error() string {
	if e.Field != "" {
		return fmt.Sprintf("vecstore: type %s field %s: %s", e.Type, e.Field, e.Reason)
	}
	return fmt.Sprintf("vecstore: type %s: %s", e.Type, e.Reason)
}

func (e *MappingError) Unwrap() error { return ErrMapping }

// ConversionError reports an embedding value that cannot be converted.
type ConversionError struct {
	Field  string
	Index  int // element index, -1 for whole-vector problems
	Reason string
}

func (e *ConversionError) Error() string {
	if e.Index >= 0 {
		return fmt.Sprintf("vecstore: convert %s[%d]: %s", e.Field, e.Index, e.Reason)
	}
	return fmt.Sprintf("vecstore: convert %s: %s", e.Field, e.Reason)
}

func (e *ConversionError) Unwrap() error { return ErrConversion }

// SchemaInitError reports the schema step that failed.
type SchemaInitError struct {
	Step string
	Err  error
}

func (e *SchemaInitError) Error() string {
	return fmt.Sprintf("vecstore: schema init %s: %v", e.Step, e.Err)
}

// Unwrap exposes both ErrSchemaInit and the collaborator failure.
func (e *SchemaInitError) Unwrap() []error { return []error{ErrSchemaInit, e.Err} }
