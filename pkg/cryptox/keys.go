package cryptox

import (
	"crypto/ed25519"
	"crypto/rand"
	"crypto/x509"
	"encoding/base64"
	"encoding/pem"
	"errors"
	"fmt"
	"os"
)

var (
	// ErrInvalidSignature reports a signature that does not verify against
	// the given identity and data. All verification failures map to this
	// single error so callers never branch on the cause.
	ErrInvalidSignature = errors.New("cryptox: invalid signature")

	// ErrInvalidIdentity reports an identity string that does not decode to
	// an Ed25519 public key.
	ErrInvalidIdentity = errors.New("cryptox: invalid identity")
)

// Identity is the public identifier of a member, group authority or ledger
// authority: the base64url encoding of an Ed25519 public key. It is the only
// user-visible identifier in the protocol; there are no separate numeric ids.
type Identity string

func (id Identity) String() string { return string(id) }

// PublicKey decodes the identity back into its Ed25519 public key.
func (id Identity) PublicKey() (ed25519.PublicKey, error) {
	raw, err := base64.RawURLEncoding.DecodeString(string(id))
	if err != nil || len(raw) != ed25519.PublicKeySize {
		return nil, ErrInvalidIdentity
	}
	return ed25519.PublicKey(raw), nil
}

// IdentityFromPublicKey encodes an Ed25519 public key as an Identity.
func IdentityFromPublicKey(pub ed25519.PublicKey) Identity {
	return Identity(base64.RawURLEncoding.EncodeToString(pub))
}

// Signer is the capability required to author protocol signatures. The
// message framework only ever needs an identity and a way to sign bytes;
// key storage and unlocking stay behind this interface.
type Signer interface {
	Identity() Identity
	Sign(chunks ...[]byte) []byte
}

// KeyPair is the file-backed Signer used by the services and the SDK.
type KeyPair struct {
	priv ed25519.PrivateKey
	id   Identity
}

// GenerateKeyPair creates a fresh Ed25519 key pair.
func GenerateKeyPair() (*KeyPair, error) {
	pub, priv, err := ed25519.GenerateKey(rand.Reader)
	if err != nil {
		return nil, fmt.Errorf("cryptox: failed to generate key pair: %w", err)
	}
	return &KeyPair{priv: priv, id: IdentityFromPublicKey(pub)}, nil
}

func (k *KeyPair) Identity() Identity { return k.id }

// Sign signs the concatenation of chunks. The caller is responsible for an
// unambiguous chunk encoding; the wire package concatenates the string form
// of each signature-format field in declared order.
func (k *KeyPair) Sign(chunks ...[]byte) []byte {
	return ed25519.Sign(k.priv, joinChunks(chunks))
}

// Verify checks sig over the concatenation of chunks against the identity's
// public key. Returns ErrInvalidSignature on any mismatch and
// ErrInvalidIdentity if the identity itself does not decode.
func Verify(id Identity, sig []byte, chunks ...[]byte) error {
	pub, err := id.PublicKey()
	if err != nil {
		return err
	}
	if !ed25519.Verify(pub, joinChunks(chunks), sig) {
		return ErrInvalidSignature
	}
	return nil
}

func joinChunks(chunks [][]byte) []byte {
	n := 0
	for _, c := range chunks {
		n += len(c)
	}
	out := make([]byte, 0, n)
	for _, c := range chunks {
		out = append(out, c...)
	}
	return out
}

// EncodePrivateKeyPEM marshals the private key as a PKCS8 PEM block.
func EncodePrivateKeyPEM(k *KeyPair) ([]byte, error) {
	der, err := x509.MarshalPKCS8PrivateKey(k.priv)
	if err != nil {
		return nil, fmt.Errorf("cryptox: failed to marshal PKCS8 key: %w", err)
	}
	return pem.EncodeToMemory(&pem.Block{Type: "PRIVATE KEY", Bytes: der}), nil
}

// DecodePrivateKeyPEM parses a PKCS8 PEM block into a KeyPair.
func DecodePrivateKeyPEM(data []byte) (*KeyPair, error) {
	block, _ := pem.Decode(data)
	if block == nil || block.Type != "PRIVATE KEY" {
		return nil, errors.New("cryptox: no PRIVATE KEY block found")
	}
	keyAny, err := x509.ParsePKCS8PrivateKey(block.Bytes)
	if err != nil {
		return nil, fmt.Errorf("cryptox: failed to parse PKCS8 key: %w", err)
	}
	priv, ok := keyAny.(ed25519.PrivateKey)
	if !ok {
		return nil, errors.New("cryptox: key is not Ed25519")
	}
	pub := priv.Public().(ed25519.PublicKey)
	return &KeyPair{priv: priv, id: IdentityFromPublicKey(pub)}, nil
}

// LoadOrCreateKeyPair reads the key pair at path, generating and writing a
// new one if the file does not exist. Used by both service binaries so a
// fresh deployment has a stable authority identity across restarts.
func LoadOrCreateKeyPair(path string) (*KeyPair, error) {
	data, err := os.ReadFile(path)
	if err == nil {
		return DecodePrivateKeyPEM(data)
	}
	if !errors.Is(err, os.ErrNotExist) {
		return nil, fmt.Errorf("cryptox: failed to read key file: %w", err)
	}

	kp, err := GenerateKeyPair()
	if err != nil {
		return nil, err
	}
	pemBytes, err := EncodePrivateKeyPEM(kp)
	if err != nil {
		return nil, err
	}
	if err := os.WriteFile(path, pemBytes, 0o600); err != nil {
		return nil, fmt.Errorf("cryptox: failed to write key file: %w", err)
	}
	return kp, nil
}
