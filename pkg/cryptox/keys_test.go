package cryptox_test

import (
	"testing"

	"github.com/aussiebroadwan/uome/pkg/cryptox"
	"github.com/stretchr/testify/require"
)

func TestSignAndVerify(t *testing.T) {
	t.Parallel()

	kp, err := cryptox.GenerateKeyPair()
	require.NoError(t, err)

	sig := kp.Sign([]byte("group-1"), []byte("alice"), []byte("1000"))

	t.Run("round trip succeeds", func(t *testing.T) {
		err := cryptox.Verify(kp.Identity(), sig, []byte("group-1"), []byte("alice"), []byte("1000"))
		require.NoError(t, err)
	})

	t.Run("mutated data fails", func(t *testing.T) {
		err := cryptox.Verify(kp.Identity(), sig, []byte("group-1"), []byte("alice"), []byte("1001"))
		require.ErrorIs(t, err, cryptox.ErrInvalidSignature)
	})

	t.Run("other keypair fails", func(t *testing.T) {
		other, err := cryptox.GenerateKeyPair()
		require.NoError(t, err)

		err = cryptox.Verify(other.Identity(), sig, []byte("group-1"), []byte("alice"), []byte("1000"))
		require.ErrorIs(t, err, cryptox.ErrInvalidSignature)
	})

	t.Run("garbage identity fails", func(t *testing.T) {
		err := cryptox.Verify(cryptox.Identity("not a key"), sig, []byte("group-1"))
		require.ErrorIs(t, err, cryptox.ErrInvalidIdentity)
	})
}

func TestPEMRoundTrip(t *testing.T) {
	t.Parallel()

	kp, err := cryptox.GenerateKeyPair()
	require.NoError(t, err)

	pemBytes, err := cryptox.EncodePrivateKeyPEM(kp)
	require.NoError(t, err)
	require.NotEmpty(t, pemBytes)

	loaded, err := cryptox.DecodePrivateKeyPEM(pemBytes)
	require.NoError(t, err)
	require.Equal(t, kp.Identity(), loaded.Identity())

	// The loaded key must produce signatures the original identity accepts.
	sig := loaded.Sign([]byte("payload"))
	require.NoError(t, cryptox.Verify(kp.Identity(), sig, []byte("payload")))
}

func TestLoadOrCreateKeyPair(t *testing.T) {
	t.Parallel()

	path := t.TempDir() + "/authority.pem"

	first, err := cryptox.LoadOrCreateKeyPair(path)
	require.NoError(t, err)

	second, err := cryptox.LoadOrCreateKeyPair(path)
	require.NoError(t, err)
	require.Equal(t, first.Identity(), second.Identity())
}

func TestSecretHashing(t *testing.T) {
	t.Parallel()

	secret := cryptox.MustGenerateToken(cryptox.TokenSize256)

	hash, err := cryptox.HashSecret(secret)
	require.NoError(t, err)
	require.Contains(t, hash, "$argon2id$")

	require.NoError(t, cryptox.VerifySecret(secret, hash))
	require.Error(t, cryptox.VerifySecret("wrong-code", hash))
	require.Error(t, cryptox.VerifySecret(secret, "not-a-hash"))
}

func TestGenerateToken(t *testing.T) {
	t.Parallel()

	tok, err := cryptox.GenerateToken(cryptox.TokenSize128)
	require.NoError(t, err)
	require.Len(t, tok, 22)

	_, err = cryptox.GenerateToken(0)
	require.Error(t, err)

	// Two tokens should never collide.
	other, err := cryptox.GenerateToken(cryptox.TokenSize128)
	require.NoError(t, err)
	require.NotEqual(t, tok, other)
}
