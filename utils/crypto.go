package utils

import (
	"crypto/aes"
	"crypto/cipher"
	"crypto/hmac"
	"crypto/rand"
	"crypto/sha256"
	"encoding/base64"
	"encoding/hex"
	"errors"
	"io"
	"os"
	"strings"
	"sync"

	"github.com/grtshw/wedding-invitation/whatsapp"
	"github.com/pocketbase/pocketbase/core"
)

const encPrefix = "enc:"

var (
	ErrNoKey         = errors.New("ENCRYPTION_KEY environment variable not set")
	ErrDecryptFailed = errors.New("decryption failed")
)

var (
	keyMu         sync.RWMutex
	encryptionKey []byte
	previousKey   []byte
	keyLoaded     bool
)

// GuestPIIFields are encrypted at rest on guest records.
var GuestPIIFields = []string{FieldPhone}

// InitEncryption derives the AES key from secret. An empty secret disables
// encryption. previous, when set, is still accepted for decryption so
// rotate-keys can move old ciphertext onto the new key.
func InitEncryption(secret, previous string) {
	keyMu.Lock()
	defer keyMu.Unlock()
	keyLoaded = true
	encryptionKey = deriveKey(secret)
	previousKey = deriveKey(previous)
	if encryptionKey == nil {
		Logger("crypto").Warn().Msg("ENCRYPTION_KEY not set, guest phone numbers stored in plain text")
	}
}

func deriveKey(secret string) []byte {
	if secret == "" {
		return nil
	}
	hash := sha256.Sum256([]byte(secret))
	return hash[:]
}

func currentKey() []byte {
	keyMu.RLock()
	if keyLoaded {
		defer keyMu.RUnlock()
		return encryptionKey
	}
	keyMu.RUnlock()
	InitEncryption(os.Getenv("ENCRYPTION_KEY"), os.Getenv("ENCRYPTION_KEY_PREVIOUS"))
	return currentKey()
}

func oldKey() []byte {
	currentKey()
	keyMu.RLock()
	defer keyMu.RUnlock()
	return previousKey
}

// IsEncryptionEnabled reports whether a key is configured.
func IsEncryptionEnabled() bool {
	return currentKey() != nil
}

// IsEncrypted reports whether value carries the ciphertext prefix.
func IsEncrypted(value string) bool {
	return strings.HasPrefix(value, encPrefix)
}

// Encrypt seals plaintext with AES-256-GCM and returns "enc:" + base64(nonce|ciphertext).
// Without a key the plaintext is returned unchanged.
func Encrypt(plaintext string) (string, error) {
	key := currentKey()
	if plaintext == "" || key == nil {
		return plaintext, nil
	}

	gcm, err := newGCM(key)
	if err != nil {
		return "", err
	}
	nonce := make([]byte, gcm.NonceSize())
	if _, err := io.ReadFull(rand.Reader, nonce); err != nil {
		return "", err
	}
	sealed := gcm.Seal(nonce, nonce, []byte(plaintext), nil)
	return encPrefix + base64.StdEncoding.EncodeToString(sealed), nil
}

// Decrypt reverses Encrypt. Values without the prefix are legacy plain text
// and come back as-is.
func Decrypt(value string) (string, error) {
	if !IsEncrypted(value) {
		return value, nil
	}
	key := currentKey()
	if key == nil {
		return value, ErrNoKey
	}

	data, err := base64.StdEncoding.DecodeString(strings.TrimPrefix(value, encPrefix))
	if err != nil {
		return value, err
	}
	plain, err := open(key, data)
	if errors.Is(err, ErrDecryptFailed) {
		if prev := oldKey(); prev != nil {
			plain, err = open(prev, data)
		}
	}
	if err != nil {
		return value, err
	}
	return plain, nil
}

func open(key, data []byte) (string, error) {
	gcm, err := newGCM(key)
	if err != nil {
		return "", err
	}
	if len(data) < gcm.NonceSize() {
		return "", ErrDecryptFailed
	}
	nonce, sealed := data[:gcm.NonceSize()], data[gcm.NonceSize():]
	plain, err := gcm.Open(nil, nonce, sealed, nil)
	if err != nil {
		return "", ErrDecryptFailed
	}
	return string(plain), nil
}

func newGCM(key []byte) (cipher.AEAD, error) {
	block, err := aes.NewCipher(key)
	if err != nil {
		return nil, err
	}
	return cipher.NewGCM(block)
}

// DecryptField decrypts value, returning it unchanged on failure.
func DecryptField(value string) string {
	plain, err := Decrypt(value)
	if err != nil {
		return value
	}
	return plain
}

// BlindIndex is a keyed HMAC-SHA256 of the already-normalized value, used
// for equality lookups on encrypted columns.
func BlindIndex(normalized string) string {
	key := currentKey()
	if normalized == "" || key == nil {
		return ""
	}
	mac := hmac.New(sha256.New, key)
	mac.Write([]byte(normalized))
	return hex.EncodeToString(mac.Sum(nil))
}

// PhoneIndex is the lookup key for a guest phone number. Without
// encryption the normalized number itself is the index.
func PhoneIndex(phone string) string {
	normalized := whatsapp.NormalizePhone(DecryptField(phone))
	if normalized == "" {
		return ""
	}
	if !IsEncryptionEnabled() {
		return normalized
	}
	return BlindIndex(normalized)
}

// EncryptGuestPII encrypts plain-text PII fields on a guest record in place
// and refreshes the phone index. It reports whether anything changed.
func EncryptGuestPII(record *core.Record) (bool, error) {
	changed := false
	if IsEncryptionEnabled() {
		for _, field := range GuestPIIFields {
			val := record.GetString(field)
			if val == "" || IsEncrypted(val) {
				continue
			}
			enc, err := Encrypt(val)
			if err != nil {
				return changed, err
			}
			record.Set(field, enc)
			changed = true
		}
	}

	index := PhoneIndex(record.GetString(FieldPhone))
	if record.GetString(FieldPhoneIndex) != index {
		record.Set(FieldPhoneIndex, index)
		changed = true
	}
	return changed, nil
}

// ReencryptGuestPII decrypts with the current key and encrypts again,
// recomputing the phone index. Used for key rotation.
func ReencryptGuestPII(record *core.Record) error {
	for _, field := range GuestPIIFields {
		plain, err := Decrypt(record.GetString(field))
		if err != nil {
			return err
		}
		record.Set(field, plain)
	}
	_, err := EncryptGuestPII(record)
	return err
}
