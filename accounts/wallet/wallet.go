// Package wallet holds ed25519 controller keys. A wallet signs bundles and
// also acts as the deterministic signer that confidential key material is
// derived from.
package wallet

import (
	"crypto/ed25519"
	"crypto/hmac"
	"crypto/rand"
	"crypto/sha512"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/btcsuite/btcd/btcutil/base58"
	"github.com/google/uuid"
	"github.com/tos-network/ctoken/common"
	"github.com/tyler-smith/go-bip39"
)

const (
	DefaultMnemonicBits = 128
	DefaultHDPath       = "m/44'/501'/0'/0'"

	keyfileVersion = 1
)

var (
	ErrInvalidKey     = errors.New("wallet: invalid private key")
	ErrInvalidHDPath  = errors.New("wallet: invalid derivation path")
	ErrInvalidKeyfile = errors.New("wallet: invalid keyfile")
)

// Wallet is an ed25519 keypair.
type Wallet struct {
	priv ed25519.PrivateKey
	addr common.Address
}

// New generates a random wallet.
func New() (*Wallet, error) {
	_, priv, err := ed25519.GenerateKey(rand.Reader)
	if err != nil {
		return nil, err
	}
	return fromPrivate(priv), nil
}

// FromSeed builds a wallet from a 32-byte ed25519 seed.
func FromSeed(seed []byte) (*Wallet, error) {
	if len(seed) != ed25519.SeedSize {
		return nil, ErrInvalidKey
	}
	return fromPrivate(ed25519.NewKeyFromSeed(seed)), nil
}

// FromBase58 restores a wallet from the base58 encoding of its 64-byte
// expanded private key.
func FromBase58(s string) (*Wallet, error) {
	raw := base58.Decode(strings.TrimSpace(s))
	if len(raw) != ed25519.PrivateKeySize {
		return nil, ErrInvalidKey
	}
	priv := ed25519.PrivateKey(raw)
	w := fromPrivate(priv)
	// The trailing half must be the public key of the leading seed.
	if !ed25519.PublicKey(raw[32:]).Equal(ed25519.NewKeyFromSeed(raw[:32]).Public()) {
		return nil, ErrInvalidKey
	}
	return w, nil
}

// GenerateMnemonic returns a fresh BIP-39 phrase.
func GenerateMnemonic(bits int) (string, error) {
	switch bits {
	case 128, 160, 192, 224, 256:
	default:
		return "", fmt.Errorf("invalid mnemonic bits %d (allowed: 128,160,192,224,256)", bits)
	}
	entropy, err := bip39.NewEntropy(bits)
	if err != nil {
		return "", err
	}
	return bip39.NewMnemonic(entropy)
}

// FromMnemonic derives a wallet from a BIP-39 phrase along a hardened path.
func FromMnemonic(mnemonic, passphrase, path string) (*Wallet, error) {
	seed, err := bip39.NewSeedWithErrorChecking(mnemonic, passphrase)
	if err != nil {
		return nil, err
	}
	indices, err := parseHardenedPath(path)
	if err != nil {
		return nil, err
	}
	key, chain := slip10Master(seed)
	for _, idx := range indices {
		key, chain = slip10Child(key, chain, idx)
	}
	return FromSeed(key)
}

func fromPrivate(priv ed25519.PrivateKey) *Wallet {
	w := &Wallet{priv: priv}
	copy(w.addr[:], priv.Public().(ed25519.PublicKey))
	return w
}

// PublicKey returns the wallet address.
func (w *Wallet) PublicKey() common.Address { return w.addr }

// SignMessage signs msg. Ed25519 signatures are deterministic, so signing the
// same message twice yields the same bytes.
func (w *Wallet) SignMessage(msg []byte) (common.Signature, error) {
	var sig common.Signature
	copy(sig[:], ed25519.Sign(w.priv, msg))
	return sig, nil
}

// Base58 returns the base58 encoding of the expanded private key.
func (w *Wallet) Base58() string {
	return base58.Encode(w.priv)
}

// Verify checks sig over msg against the public key addr.
func Verify(addr common.Address, msg []byte, sig common.Signature) bool {
	return ed25519.Verify(ed25519.PublicKey(addr[:]), msg, sig[:])
}

type keyfileJSON struct {
	ID         string `json:"id"`
	Address    string `json:"address"`
	PrivateKey string `json:"privateKey"`
	Version    int    `json:"version"`
}

// Load reads a keyfile written by Save. The caller names the path; there is
// no implicit default location.
func Load(path string) (*Wallet, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	var kf keyfileJSON
	if err := json.Unmarshal(raw, &kf); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidKeyfile, err)
	}
	if kf.Version != keyfileVersion {
		return nil, fmt.Errorf("%w: unsupported version %d", ErrInvalidKeyfile, kf.Version)
	}
	if _, err := uuid.Parse(kf.ID); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidKeyfile, err)
	}
	w, err := FromBase58(kf.PrivateKey)
	if err != nil {
		return nil, err
	}
	if w.PublicKey().String() != kf.Address {
		return nil, fmt.Errorf("%w: address mismatch", ErrInvalidKeyfile)
	}
	return w, nil
}

// Save writes the wallet to path with owner-only permissions.
func Save(path string, w *Wallet) error {
	id, err := uuid.NewRandom()
	if err != nil {
		return err
	}
	raw, err := json.MarshalIndent(keyfileJSON{
		ID:         id.String(),
		Address:    w.PublicKey().String(),
		PrivateKey: w.Base58(),
		Version:    keyfileVersion,
	}, "", "  ")
	if err != nil {
		return err
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o700); err != nil {
		return err
	}
	tmp := path + ".tmp"
	if err := os.WriteFile(tmp, raw, 0o600); err != nil {
		return err
	}
	return os.Rename(tmp, path)
}

const hardenedOffset = uint32(0x80000000)

func parseHardenedPath(path string) ([]uint32, error) {
	parts := strings.Split(strings.TrimSpace(path), "/")
	if len(parts) < 2 || parts[0] != "m" {
		return nil, fmt.Errorf("%w: %q", ErrInvalidHDPath, path)
	}
	out := make([]uint32, 0, len(parts)-1)
	for _, p := range parts[1:] {
		if !strings.HasSuffix(p, "'") {
			return nil, fmt.Errorf("%w: ed25519 supports hardened indices only (%q)", ErrInvalidHDPath, p)
		}
		var idx uint32
		if _, err := fmt.Sscanf(strings.TrimSuffix(p, "'"), "%d", &idx); err != nil || idx >= hardenedOffset {
			return nil, fmt.Errorf("%w: %q", ErrInvalidHDPath, p)
		}
		out = append(out, idx+hardenedOffset)
	}
	return out, nil
}

func slip10Master(seed []byte) (key, chain []byte) {
	mac := hmac.New(sha512.New, []byte("ed25519 seed"))
	mac.Write(seed)
	sum := mac.Sum(nil)
	return sum[:32], sum[32:]
}

func slip10Child(key, chain []byte, index uint32) ([]byte, []byte) {
	mac := hmac.New(sha512.New, chain)
	mac.Write([]byte{0})
	mac.Write(key)
	mac.Write([]byte{byte(index >> 24), byte(index >> 16), byte(index >> 8), byte(index)})
	sum := mac.Sum(nil)
	return sum[:32], sum[32:]
}
