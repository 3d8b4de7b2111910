// Package seal encrypts note bodies with a passphrase.
//
// Keys are derived with argon2id and payloads are sealed with
// XChaCha20-Poly1305. A sealed value is a single printable line:
//
//	mtr1$m=65536,t=3,p=1$<salt>$<nonce|ciphertext>
//
// so it can live in a Markdown file, a JSON document or a text column.
package seal

import (
	"crypto/rand"
	"encoding/base64"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"sync"

	"golang.org/x/crypto/argon2"
	"golang.org/x/crypto/chacha20poly1305"
)

// Prefix marks a sealed value.
const Prefix = "mtr1$"

const (
	defaultMemory     = 64 * 1024
	defaultIterations = 3
	defaultThreads    = 1
	defaultSaltLength = 16
	keyLength         = chacha20poly1305.KeySize
)

var (
	// ErrMalformed is returned for values that are not in the sealed format.
	ErrMalformed = errors.New("malformed sealed value")
	// ErrDecrypt is returned when the passphrase is wrong or the data was altered.
	ErrDecrypt = errors.New("cannot decrypt sealed value")
)

// Params are the argon2id cost parameters.
type Params struct {
	Memory     uint32
	Iterations uint32
	Threads    uint8
}

// DefaultParams returns the recommended cost.
func DefaultParams() Params {
	return Params{Memory: defaultMemory, Iterations: defaultIterations, Threads: defaultThreads}
}

// Sealer seals and opens values with one passphrase. It is safe for concurrent use.
type Sealer struct {
	passphrase []byte
	params     Params
	salt       []byte

	mu   sync.Mutex
	keys map[string][]byte // salt+params -> key
}

// New returns a Sealer using DefaultParams.
func New(passphrase string) (*Sealer, error) {
	return NewWithParams(passphrase, DefaultParams())
}

// NewWithParams returns a Sealer with explicit cost parameters.
func NewWithParams(passphrase string, p Params) (*Sealer, error) {
	if passphrase == "" {
		return nil, errors.New("passphrase must not be empty")
	}
	if p.Memory == 0 || p.Iterations == 0 || p.Threads == 0 {
		return nil, errors.New("invalid argon2id params")
	}
	salt := make([]byte, defaultSaltLength)
	if _, err := rand.Read(salt); err != nil {
		return nil, fmt.Errorf("generate salt: %w", err)
	}
	return &Sealer{
		passphrase: []byte(passphrase),
		params:     p,
		salt:       salt,
		keys:       make(map[string][]byte),
	}, nil
}

// IsSealed reports whether s looks like a sealed value.
func IsSealed(s string) bool {
	return strings.HasPrefix(s, Prefix)
}

// Seal encrypts plaintext.
func (s *Sealer) Seal(plaintext []byte) (string, error) {
	aead, err := chacha20poly1305.NewX(s.key(s.salt, s.params))
	if err != nil {
		return "", err
	}
	nonce := make([]byte, aead.NonceSize(), aead.NonceSize()+len(plaintext)+aead.Overhead())
	if _, err := rand.Read(nonce); err != nil {
		return "", fmt.Errorf("generate nonce: %w", err)
	}
	payload := aead.Seal(nonce, nonce, plaintext, []byte(Prefix))

	return fmt.Sprintf("%sm=%d,t=%d,p=%d$%s$%s",
		Prefix,
		s.params.Memory,
		s.params.Iterations,
		s.params.Threads,
		base64.RawStdEncoding.EncodeToString(s.salt),
		base64.RawStdEncoding.EncodeToString(payload),
	), nil
}

// SealString is Seal for text.
func (s *Sealer) SealString(plaintext string) (string, error) {
	return s.Seal([]byte(plaintext))
}

// Open decrypts a value produced by Seal.
func (s *Sealer) Open(sealed string) ([]byte, error) {
	p, salt, payload, err := parse(sealed)
	if err != nil {
		return nil, err
	}
	aead, err := chacha20poly1305.NewX(s.key(salt, p))
	if err != nil {
		return nil, err
	}
	if len(payload) < aead.NonceSize()+aead.Overhead() {
		return nil, fmt.Errorf("%w: payload too short", ErrMalformed)
	}
	nonce, ct := payload[:aead.NonceSize()], payload[aead.NonceSize():]
	plain, err := aead.Open(nil, nonce, ct, []byte(Prefix))
	if err != nil {
		return nil, ErrDecrypt
	}
	return plain, nil
}

// OpenString is Open for text.
func (s *Sealer) OpenString(sealed string) (string, error) {
	b, err := s.Open(sealed)
	return string(b), err
}

func (s *Sealer) key(salt []byte, p Params) []byte {
	id := fmt.Sprintf("%x/%d/%d/%d", salt, p.Memory, p.Iterations, p.Threads)

	s.mu.Lock()
	defer s.mu.Unlock()
	if k, ok := s.keys[id]; ok {
		return k
	}
	k := argon2.IDKey(s.passphrase, salt, p.Iterations, p.Memory, p.Threads, keyLength)
	s.keys[id] = k
	return k
}

func parse(sealed string) (Params, []byte, []byte, error) {
	var p Params
	if !IsSealed(sealed) {
		return p, nil, nil, ErrMalformed
	}
	parts := strings.Split(strings.TrimPrefix(strings.TrimSpace(sealed), Prefix), "$")
	if len(parts) != 3 {
		return p, nil, nil, ErrMalformed
	}

	for _, param := range strings.Split(parts[0], ",") {
		k, v, ok := strings.Cut(param, "=")
		if !ok {
			return p, nil, nil, fmt.Errorf("%w: params", ErrMalformed)
		}
		n, err := strconv.ParseUint(v, 10, 32)
		if err != nil {
			return p, nil, nil, fmt.Errorf("%w: param %s", ErrMalformed, k)
		}
		switch k {
		case "m":
			p.Memory = uint32(n)
		case "t":
			p.Iterations = uint32(n)
		case "p":
			if n > 255 {
				return p, nil, nil, fmt.Errorf("%w: param p", ErrMalformed)
			}
			p.Threads = uint8(n)
		default:
			return p, nil, nil, fmt.Errorf("%w: unknown param %s", ErrMalformed, k)
		}
	}
	if p.Memory == 0 || p.Iterations == 0 || p.Threads == 0 {
		return p, nil, nil, fmt.Errorf("%w: params", ErrMalformed)
	}

	salt, err := base64.RawStdEncoding.DecodeString(parts[1])
	if err != nil {
		return p, nil, nil, fmt.Errorf("%w: salt", ErrMalformed)
	}
	payload, err := base64.RawStdEncoding.DecodeString(parts[2])
	if err != nil {
		return p, nil, nil, fmt.Errorf("%w: payload", ErrMalformed)
	}
	return p, salt, payload, nil
}
