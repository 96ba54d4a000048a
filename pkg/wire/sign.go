package wire

import (
	"encoding/base64"
	"fmt"
	"strconv"

	"github.com/aussiebroadwan/uome/pkg/cryptox"
)

// SignatureInput concatenates the string form of each field named by the
// signature format, in declared order. Integers are decimal text and bytes
// are base64 text so that both parties derive identical input without
// transmitting the order or any framing.
func SignatureInput(kind Kind, name string, values Values) ([]byte, error) {
	schema, err := SchemaFor(kind)
	if err != nil {
		return nil, err
	}
	format, ok := schema.Signatures[name]
	if !ok {
		return nil, &UnknownSignatureError{Kind: kind, Name: name}
	}

	var input []byte
	for _, field := range format {
		v, ok := values[field]
		if !ok {
			return nil, &MissingSignatureFieldError{Kind: kind, Name: name, Field: field}
		}
		s, err := stringForm(v)
		if err != nil {
			return nil, fmt.Errorf("wire: %s signature %q field %q: %w", kind, name, field, err)
		}
		input = append(input, s...)
	}
	return input, nil
}

func stringForm(v any) (string, error) {
	switch t := v.(type) {
	case string:
		return t, nil
	case cryptox.Identity:
		return string(t), nil
	case int64:
		return strconv.FormatInt(t, 10), nil
	case []byte:
		return base64.StdEncoding.EncodeToString(t), nil
	default:
		return "", fmt.Errorf("value of type %T cannot be signed", v)
	}
}

// Sign produces the named signature over values using the signer's key.
func Sign(signer cryptox.Signer, kind Kind, name string, values Values) ([]byte, error) {
	input, err := SignatureInput(kind, name, values)
	if err != nil {
		return nil, err
	}
	return signer.Sign(input), nil
}

// Verify checks the named signature over values against an identity's
// public key. Fails with cryptox.ErrInvalidSignature on mismatch, with
// MissingSignatureFieldError if a value the format requires is absent.
func Verify(id cryptox.Identity, kind Kind, name string, sig []byte, values Values) error {
	input, err := SignatureInput(kind, name, values)
	if err != nil {
		return err
	}
	return cryptox.Verify(id, sig, input)
}
