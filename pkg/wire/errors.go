package wire

import (
	"errors"
	"fmt"
)

// ErrUnknownKind reports a message kind with no declared schema.
var ErrUnknownKind = errors.New("wire: unknown message kind")

// SchemaError reports a declared field missing from the supplied values.
// Always a caller bug; never retried.
type SchemaError struct {
	Kind  Kind
	Field string
}

func (e *SchemaError) Error() string {
	return fmt.Sprintf("wire: %s message is missing field %q", e.Kind, e.Field)
}

// TypeMismatchError reports a field value whose type does not match the
// declared field type.
type TypeMismatchError struct {
	Kind  Kind
	Field string
	Want  FieldType
	Got   string
}

func (e *TypeMismatchError) Error() string {
	return fmt.Sprintf("wire: %s field %q wants %s, got %s", e.Kind, e.Field, e.Want, e.Got)
}

// DecodeError reports wire bytes that are not a well-formed message body.
// Field-level problems inside well-formed bytes surface as SchemaError or
// TypeMismatchError instead, the same taxonomy Make uses.
type DecodeError struct {
	Kind Kind
	Err  error
}

func (e *DecodeError) Error() string {
	return fmt.Sprintf("wire: failed to decode %s message: %v", e.Kind, e.Err)
}

func (e *DecodeError) Unwrap() error { return e.Err }

// UnknownSignatureError reports a signature name not declared for the kind.
type UnknownSignatureError struct {
	Kind Kind
	Name string
}

func (e *UnknownSignatureError) Error() string {
	return fmt.Sprintf("wire: %s has no signature format %q", e.Kind, e.Name)
}

// MissingSignatureFieldError reports a value required by a signature format
// that was not supplied to Sign or Verify.
type MissingSignatureFieldError struct {
	Kind  Kind
	Name  string
	Field string
}

func (e *MissingSignatureFieldError) Error() string {
	return fmt.Sprintf("wire: %s signature %q requires field %q", e.Kind, e.Name, e.Field)
}
