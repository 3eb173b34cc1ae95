package pickup_test

import (
	"crypto/aes"
	"encoding/base64"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"brewhub/internal/pickup"
)

func TestGenerateEncryptedQRProducesPNG(t *testing.T) {
	gen := pickup.NewQRGenerator("test-secret")

	png, err := gen.GenerateEncryptedQR(pickup.Pass{
		OrderID:    "order-1",
		PickupName: "Alex",
		PickupCode: "XY34ZQ",
		IssuedAt:   time.Now().UTC(),
	})
	require.NoError(t, err)
	require.NotEmpty(t, png)

	assert.Equal(t, []byte{0x89, 0x50, 0x4E, 0x47}, png[:4], "expected PNG magic bytes")
}

func TestDecryptPassRoundTrip(t *testing.T) {
	gen := pickup.NewQRGenerator("test-secret")

	issued := time.Date(2026, 3, 14, 9, 30, 0, 0, time.UTC)
	original := pickup.Pass{
		OrderID:    "order-1",
		PickupName: "Alex",
		PickupCode: "XY34ZQ",
		IssuedAt:   issued,
	}

	// Reading the rendered QR back would need a scanner, so the test
	// covers the payload encrypt/decrypt pair instead.
	encoded, err := gen.EncryptPass(original)
	require.NoError(t, err)

	decoded, err := gen.DecryptPass(encoded)
	require.NoError(t, err)
	assert.Equal(t, original.OrderID, decoded.OrderID)
	assert.Equal(t, original.PickupName, decoded.PickupName)
	assert.Equal(t, original.PickupCode, decoded.PickupCode)
	assert.True(t, original.IssuedAt.Equal(decoded.IssuedAt))
}

func TestDecryptPassRejectsWrongSecret(t *testing.T) {
	gen := pickup.NewQRGenerator("test-secret")
	other := pickup.NewQRGenerator("other-secret")

	encoded, err := gen.EncryptPass(pickup.Pass{OrderID: "order-1", PickupCode: "XY34ZQ"})
	require.NoError(t, err)

	decoded, err := other.DecryptPass(encoded)
	if err == nil {
		// CFB decryption with the wrong key yields garbage rather than
		// an error; the JSON layer is what rejects it.
		assert.NotEqual(t, "order-1", decoded.OrderID)
	}
}

func TestDecryptPassRejectsShortCiphertext(t *testing.T) {
	gen := pickup.NewQRGenerator("test-secret")

	short := base64.URLEncoding.EncodeToString(make([]byte, aes.BlockSize-1))
	_, err := gen.DecryptPass(short)
	assert.Error(t, err)
}

func TestDecryptPassRejectsBadBase64(t *testing.T) {
	gen := pickup.NewQRGenerator("test-secret")

	_, err := gen.DecryptPass("not base64 at all!!!")
	assert.Error(t, err)
}
