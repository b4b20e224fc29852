package auth

import (
	"crypto/aes"
	"crypto/cipher"
	"crypto/rand"
	"crypto/sha256"
	"encoding/base64"
	"encoding/hex"
	"fmt"
	"strings"

	"golang.org/x/crypto/bcrypt"
)

// CredentialEncoder is the pluggable password encoding strategy. The legacy
// reversible variant exists only for compatibility with records imported from
// the previous system and can be retired without touching call sites.
type CredentialEncoder interface {
	Encode(plain string) (string, error)
	Matches(encoded, plain string) bool
}

const ivLength = 16

// LegacyEncoder stores passwords as AES-256-CBC "ivhex:cipherhex" strings so
// they can be shown back to administrators, matching the previous system.
type LegacyEncoder struct {
	key []byte
}

func NewLegacyEncoder(secret string) *LegacyEncoder {
	sum := sha256.Sum256([]byte(secret))
	key := []byte(base64.StdEncoding.EncodeToString(sum[:]))[:32]
	return &LegacyEncoder{key: key}
}

func (e *LegacyEncoder) Encode(plain string) (string, error) {
	if plain == "" {
		return plain, nil
	}

	block, err := aes.NewCipher(e.key)
	if err != nil {
		return "", err
	}

	iv := make([]byte, ivLength)
	if _, err := rand.Read(iv); err != nil {
		return "", err
	}

	padded := pkcs7Pad([]byte(plain), aes.BlockSize)
	encrypted := make([]byte, len(padded))
	cipher.NewCBCEncrypter(block, iv).CryptBlocks(encrypted, padded)

	return hex.EncodeToString(iv) + ":" + hex.EncodeToString(encrypted), nil
}

// Decode returns the input unchanged when it is not in the encrypted form,
// mirroring the tolerant behavior of the previous system.
func (e *LegacyEncoder) Decode(encoded string) string {
	parts := strings.SplitN(encoded, ":", 2)
	if len(parts) < 2 {
		return encoded
	}

	iv, err := hex.DecodeString(parts[0])
	if err != nil || len(iv) != ivLength {
		return encoded
	}
	encrypted, err := hex.DecodeString(parts[1])
	if err != nil || len(encrypted) == 0 || len(encrypted)%aes.BlockSize != 0 {
		return encoded
	}

	block, err := aes.NewCipher(e.key)
	if err != nil {
		return encoded
	}

	decrypted := make([]byte, len(encrypted))
	cipher.NewCBCDecrypter(block, iv).CryptBlocks(decrypted, encrypted)

	plain, err := pkcs7Unpad(decrypted, aes.BlockSize)
	if err != nil {
		return encoded
	}
	return string(plain)
}

func (e *LegacyEncoder) Matches(encoded, plain string) bool {
	return e.Decode(encoded) == plain
}

// BcryptEncoder is the one-way variant.
type BcryptEncoder struct{}

func (BcryptEncoder) Encode(plain string) (string, error) {
	hash, err := bcrypt.GenerateFromPassword([]byte(plain), bcrypt.DefaultCost)
	if err != nil {
		return "", err
	}
	return string(hash), nil
}

func (BcryptEncoder) Matches(encoded, plain string) bool {
	return bcrypt.CompareHashAndPassword([]byte(encoded), []byte(plain)) == nil
}

// MatchPassword dispatches on the stored form: bcrypt hashes keep working
// next to legacy-encrypted values.
func MatchPassword(legacy *LegacyEncoder, stored, plain string) bool {
	if strings.HasPrefix(stored, "$2a$") || strings.HasPrefix(stored, "$2b$") {
		return BcryptEncoder{}.Matches(stored, plain)
	}
	return legacy.Matches(stored, plain)
}

// EnsureEncoded leaves already-encoded values alone so updates do not wrap a
// stored password twice.
func EnsureEncoded(legacy *LegacyEncoder, password string) (string, error) {
	if strings.Contains(password, ":") || strings.HasPrefix(password, "$2a$") || strings.HasPrefix(password, "$2b$") {
		return password, nil
	}
	return legacy.Encode(password)
}

func pkcs7Pad(data []byte, blockSize int) []byte {
	padding := blockSize - len(data)%blockSize
	padded := make([]byte, len(data)+padding)
	copy(padded, data)
	for i := len(data); i < len(padded); i++ {
		padded[i] = byte(padding)
	}
	return padded
}

func pkcs7Unpad(data []byte, blockSize int) ([]byte, error) {
	if len(data) == 0 || len(data)%blockSize != 0 {
		return nil, fmt.Errorf("invalid padded length %d", len(data))
	}
	padding := int(data[len(data)-1])
	if padding == 0 || padding > blockSize {
		return nil, fmt.Errorf("invalid padding byte %d", padding)
	}
	for _, b := range data[len(data)-padding:] {
		if int(b) != padding {
			return nil, fmt.Errorf("inconsistent padding")
		}
	}
	return data[:len(data)-padding], nil
}
