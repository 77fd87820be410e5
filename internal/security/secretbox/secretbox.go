// Package secretbox seals small secrets (provider access tokens, phone
// numbers) before they leave the process for the vault.
package secretbox

import (
	"crypto/rand"
	"encoding/base64"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"
	"sync"

	"golang.org/x/crypto/nacl/secretbox"
)

const (
	secretBoxEnvVar   = "SECRETBOX_MASTER_KEY"
	requiredKeyLength = 32
	nonceSize         = 24
	sep               = "|" // nonce|ciphertext (ambos en base64)
)

var (
	masterKey     *[32]byte
	masterKeyOnce sync.Once
	loadErr       error
	mu            sync.RWMutex
)

// GenerateMasterKey devuelve una clave maestra nueva en base64 (32 bytes).
func GenerateMasterKey() (string, error) {
	k := make([]byte, requiredKeyLength)
	if _, err := io.ReadFull(rand.Reader, k); err != nil {
		return "", err
	}
	return base64.StdEncoding.EncodeToString(k), nil
}

// ensureLoaded carga la clave maestra desde SECRETBOX_MASTER_KEY (base64) una sola vez.
func ensureLoaded() error {
	masterKeyOnce.Do(func() {
		kb64 := strings.TrimSpace(os.Getenv(secretBoxEnvVar))
		if kb64 == "" {
			loadErr = fmt.Errorf("%s no seteada; genere una clave con: openssl rand -base64 32", secretBoxEnvVar)
			return
		}
		k, err := base64.StdEncoding.DecodeString(kb64)
		if err != nil {
			loadErr = fmt.Errorf("decode %s: %w", secretBoxEnvVar, err)
			return
		}
		if len(k) != requiredKeyLength {
			loadErr = fmt.Errorf("%s debe decodificar a %d bytes, obtuvo %d", secretBoxEnvVar, requiredKeyLength, len(k))
			return
		}
		mu.Lock()
		masterKey = new([32]byte)
		copy(masterKey[:], k)
		mu.Unlock()
	})
	return loadErr
}

// EnsureLoaded fuerza la carga de la clave maestra desde el env y devuelve
// el error de carga. Usar en el boot cuando el vault está habilitado.
func EnsureLoaded() error {
	return ensureLoaded()
}

// Ready expone si la clave está cargada (útil para healthchecks/config print).
func Ready() bool {
	mu.RLock()
	defer mu.RUnlock()
	return masterKey != nil
}

// SetKeyForTest inyecta una clave en tests sin pasar por el env.
func SetKeyForTest(k []byte) error {
	if len(k) != requiredKeyLength {
		return fmt.Errorf("key must be %d bytes", requiredKeyLength)
	}
	masterKeyOnce.Do(func() {})
	mu.Lock()
	masterKey = new([32]byte)
	copy(masterKey[:], k)
	loadErr = nil
	mu.Unlock()
	return nil
}

// Encrypt cifra plainText y devuelve base64(nonce)|base64(ciphertext).
func Encrypt(plainText string) (string, error) {
	if err := ensureLoaded(); err != nil {
		return "", err
	}
	mu.RLock()
	key := *masterKey
	mu.RUnlock()

	var nonce [nonceSize]byte
	if _, err := io.ReadFull(rand.Reader, nonce[:]); err != nil {
		return "", fmt.Errorf("nonce random: %w", err)
	}
	ct := secretbox.Seal(nil, []byte(plainText), &nonce, &key)

	return base64.StdEncoding.EncodeToString(nonce[:]) + sep +
		base64.StdEncoding.EncodeToString(ct), nil
}

// Decrypt revierte Encrypt.
func Decrypt(sealed string) (string, error) {
	if err := ensureLoaded(); err != nil {
		return "", err
	}
	mu.RLock()
	key := *masterKey
	mu.RUnlock()

	nonceB64, ctB64, ok := strings.Cut(sealed, sep)
	if !ok {
		return "", errors.New("secretbox: formato inválido")
	}
	nb, err := base64.StdEncoding.DecodeString(nonceB64)
	if err != nil || len(nb) != nonceSize {
		return "", errors.New("secretbox: nonce inválido")
	}
	ct, err := base64.StdEncoding.DecodeString(ctB64)
	if err != nil {
		return "", errors.New("secretbox: ciphertext inválido")
	}
	var nonce [nonceSize]byte
	copy(nonce[:], nb)
	pt, ok := secretbox.Open(nil, ct, &nonce, &key)
	if !ok {
		return "", errors.New("secretbox: open falló")
	}
	return string(pt), nil
}
