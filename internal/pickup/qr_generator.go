package pickup

import (
	"crypto/aes"
	"crypto/cipher"
	"crypto/rand"
	"crypto/sha256"
	"encoding/base64"
	"encoding/json"
	"errors"
	"io"
	"time"

	"github.com/skip2/go-qrcode"
)

// Pass is the payload embedded in a pickup QR code, shown by the
// customer and scanned at the counter.
type Pass struct {
	OrderID    string    `json:"order_id"`
	PickupName string    `json:"pickup_name"`
	PickupCode string    `json:"pickup_code"`
	IssuedAt   time.Time `json:"issued_at"`
}

type QRGenerator struct {
	secret []byte
}

func NewQRGenerator(secret string) *QRGenerator {
	hashed := sha256.Sum256([]byte(secret)) // normalize to 32 bytes
	return &QRGenerator{secret: hashed[:]}
}

// EncryptPass serializes and encrypts a pass into the opaque string
// carried by the QR code.
func (q *QRGenerator) EncryptPass(pass Pass) (string, error) {
	data, err := json.Marshal(pass)
	if err != nil {
		return "", err
	}
	return encryptAES(data, q.secret)
}

// GenerateEncryptedQR renders the pass as a 256x256 QR PNG with an
// AES-encrypted payload.
func (q *QRGenerator) GenerateEncryptedQR(pass Pass) ([]byte, error) {
	encrypted, err := q.EncryptPass(pass)
	if err != nil {
		return nil, err
	}

	return qrcode.Encode(encrypted, qrcode.Medium, 256)
}

// DecryptPass reverses GenerateEncryptedQR's payload encryption; the
// counter-side scanner uses it to verify a scanned code.
func (q *QRGenerator) DecryptPass(encoded string) (*Pass, error) {
	data, err := decryptAES(encoded, q.secret)
	if err != nil {
		return nil, err
	}

	var pass Pass
	if err := json.Unmarshal(data, &pass); err != nil {
		return nil, err
	}
	return &pass, nil
}

func encryptAES(data []byte, key []byte) (string, error) {
	block, err := aes.NewCipher(key)
	if err != nil {
		return "", err
	}

	ciphertext := make([]byte, aes.BlockSize+len(data))
	iv := ciphertext[:aes.BlockSize]

	if _, err := io.ReadFull(rand.Reader, iv); err != nil {
		return "", err
	}

	stream := cipher.NewCFBEncrypter(block, iv)
	stream.XORKeyStream(ciphertext[aes.BlockSize:], data)

	return base64.URLEncoding.EncodeToString(ciphertext), nil
}

func decryptAES(encoded string, key []byte) ([]byte, error) {
	ciphertext, err := base64.URLEncoding.DecodeString(encoded)
	if err != nil {
		return nil, err
	}
	if len(ciphertext) < aes.BlockSize {
		return nil, errors.New("ciphertext too short")
	}

	block, err := aes.NewCipher(key)
	if err != nil {
		return nil, err
	}

	iv := ciphertext[:aes.BlockSize]
	data := make([]byte, len(ciphertext)-aes.BlockSize)

	stream := cipher.NewCFBDecrypter(block, iv)
	stream.XORKeyStream(data, ciphertext[aes.BlockSize:])

	return data, nil
}
