// Package cardanokey implements the Icarus flavour of BIP32-Ed25519 used by
// Shelley wallets: root key generation, hardened and soft child derivation,
// key hashes, base addresses and signing with an extended private key.
package cardanokey

import (
	"crypto/hmac"
	"crypto/sha512"
	"encoding/binary"
	"encoding/hex"
	"errors"
	"fmt"
	"strings"

	"filippo.io/edwards25519"
	"github.com/btcsuite/btcd/btcutil/bech32"
	"golang.org/x/crypto/blake2b"
	"golang.org/x/crypto/pbkdf2"
)

const (
	// MainnetNetworkID is the Shelley network tag for mainnet.
	MainnetNetworkID byte = 1

	// KeyHashSize is the size of a blake2b-224 key hash.
	KeyHashSize = 28

	// PrivateKeySize is the size of the extended private scalar pair kL||kR.
	PrivateKeySize = 64

	rootIterations = 4096
	addressHRP     = "addr"
	hardenedOffset = 0x80000000
)

// ExtendedKey is a BIP32-Ed25519 extended private key.
type ExtendedKey struct {
	kL        [32]byte
	kR        [32]byte
	chainCode [32]byte
	pub       [32]byte
}

// FromBIP39Entropy builds the Icarus root key: PBKDF2-HMAC-SHA512 over the
// entropy with password as the secret, then the clamping of the left half.
func FromBIP39Entropy(entropy, password []byte) (*ExtendedKey, error) {
	if len(entropy) == 0 {
		return nil, errors.New("cardanokey: empty entropy")
	}
	raw := pbkdf2.Key(password, entropy, rootIterations, 96, sha512.New)
	defer wipe(raw)

	raw[0] &= 0xf8
	raw[31] &= 0x1f
	raw[31] |= 0x40

	k := &ExtendedKey{}
	copy(k.kL[:], raw[:32])
	copy(k.kR[:], raw[32:64])
	copy(k.chainCode[:], raw[64:])
	k.pub = publicKey(&k.kL)
	return k, nil
}

// FromPrivateKey rebuilds a signing-only key from kL||kR. The chain code is
// unknown, so the result must not be used for further derivation.
func FromPrivateKey(raw []byte) (*ExtendedKey, error) {
	if len(raw) != PrivateKeySize {
		return nil, fmt.Errorf("cardanokey: private key must be %d bytes, got %d", PrivateKeySize, len(raw))
	}
	k := &ExtendedKey{}
	copy(k.kL[:], raw[:32])
	copy(k.kR[:], raw[32:])
	k.pub = publicKey(&k.kL)
	return k, nil
}

// FromPrivateKeyHex is FromPrivateKey for a hex string.
func FromPrivateKeyHex(s string) (*ExtendedKey, error) {
	raw, err := hex.DecodeString(strings.TrimPrefix(strings.TrimSpace(s), "0x"))
	if err != nil {
		return nil, fmt.Errorf("cardanokey: decode private key: %w", err)
	}
	defer wipe(raw)
	return FromPrivateKey(raw)
}

// Derive returns the child at index. Indices at or above 2^31 use the
// hardened (private) branch, the rest the soft (public) branch.
func (k *ExtendedKey) Derive(index uint32) *ExtendedKey {
	var idx [4]byte
	binary.LittleEndian.PutUint32(idx[:], index)

	zMac := hmac.New(sha512.New, k.chainCode[:])
	cMac := hmac.New(sha512.New, k.chainCode[:])
	if index >= hardenedOffset {
		zMac.Write([]byte{0x00})
		zMac.Write(k.kL[:])
		zMac.Write(k.kR[:])
		cMac.Write([]byte{0x01})
		cMac.Write(k.kL[:])
		cMac.Write(k.kR[:])
	} else {
		zMac.Write([]byte{0x02})
		zMac.Write(k.pub[:])
		cMac.Write([]byte{0x03})
		cMac.Write(k.pub[:])
	}
	zMac.Write(idx[:])
	cMac.Write(idx[:])
	z := zMac.Sum(nil)
	c := cMac.Sum(nil)
	defer wipe(z)

	child := &ExtendedKey{
		kL: add28Mul8(&k.kL, z[:32]),
		kR: add256(&k.kR, z[32:]),
	}
	copy(child.chainCode[:], c[32:])
	child.pub = publicKey(&child.kL)
	return child
}

// DerivePath applies Derive for each index in order.
func (k *ExtendedKey) DerivePath(indices ...uint32) *ExtendedKey {
	node := k
	for _, i := range indices {
		node = node.Derive(i)
	}
	return node
}

// PublicKey returns the 32-byte ed25519 public key.
func (k *ExtendedKey) PublicKey() []byte {
	out := make([]byte, 32)
	copy(out, k.pub[:])
	return out
}

// KeyHash returns blake2b-224 of the public key.
func (k *ExtendedKey) KeyHash() []byte {
	return KeyHash(k.pub[:])
}

// PrivateKey returns kL||kR.
func (k *ExtendedKey) PrivateKey() []byte {
	out := make([]byte, 0, PrivateKeySize)
	out = append(out, k.kL[:]...)
	return append(out, k.kR[:]...)
}

// Sign produces an ed25519 signature over msg that verifies against PublicKey.
// The nonce is taken from kR instead of a hashed seed.
func (k *ExtendedKey) Sign(msg []byte) []byte {
	h := sha512.New()
	h.Write(k.kR[:])
	h.Write(msg)
	r, _ := edwards25519.NewScalar().SetUniformBytes(h.Sum(nil))
	R := new(edwards25519.Point).ScalarBaseMult(r).Bytes()

	h.Reset()
	h.Write(R)
	h.Write(k.pub[:])
	h.Write(msg)
	hram, _ := edwards25519.NewScalar().SetUniformBytes(h.Sum(nil))

	s := edwards25519.NewScalar().MultiplyAdd(hram, scalarFromKL(&k.kL), r)

	sig := make([]byte, 0, 64)
	sig = append(sig, R...)
	return append(sig, s.Bytes()...)
}

// Wipe zeroes the private halves and the chain code.
func (k *ExtendedKey) Wipe() {
	wipe(k.kL[:])
	wipe(k.kR[:])
	wipe(k.chainCode[:])
}

// KeyHash returns blake2b-224 of pub.
func KeyHash(pub []byte) []byte {
	h, _ := blake2b.New(KeyHashSize, nil)
	h.Write(pub)
	return h.Sum(nil)
}

// BaseAddress encodes a key-hash/key-hash base address as bech32.
func BaseAddress(networkID byte, paymentHash, stakeHash []byte) (string, error) {
	if len(paymentHash) != KeyHashSize || len(stakeHash) != KeyHashSize {
		return "", fmt.Errorf("cardanokey: key hashes must be %d bytes", KeyHashSize)
	}
	raw := make([]byte, 0, 1+2*KeyHashSize)
	raw = append(raw, networkID&0x0f)
	raw = append(raw, paymentHash...)
	raw = append(raw, stakeHash...)
	return bech32.EncodeFromBase256(hrpFor(networkID), raw)
}

// DecodeAddress returns the raw header and payload bytes of a bech32 address.
// Shelley addresses exceed the 90 character bech32 limit, so no length check is applied.
func DecodeAddress(addr string) ([]byte, error) {
	hrp, data, err := bech32.DecodeNoLimit(addr)
	if err != nil {
		return nil, err
	}
	if !strings.HasPrefix(hrp, addressHRP) {
		return nil, fmt.Errorf("cardanokey: unexpected prefix %q", hrp)
	}
	return bech32.ConvertBits(data, 5, 8, false)
}

// ValidateAddress reports whether addr is a well-formed mainnet base address.
func ValidateAddress(addr string) bool {
	if !strings.HasPrefix(addr, addressHRP+"1") {
		return false
	}
	raw, err := DecodeAddress(addr)
	if err != nil || len(raw) != 1+2*KeyHashSize {
		return false
	}
	return raw[0]&0x0f == MainnetNetworkID
}

func hrpFor(networkID byte) string {
	if networkID == MainnetNetworkID {
		return addressHRP
	}
	return addressHRP + "_test"
}

func scalarFromKL(kL *[32]byte) *edwards25519.Scalar {
	var wide [64]byte
	copy(wide[:], kL[:])
	s, _ := edwards25519.NewScalar().SetUniformBytes(wide[:])
	wipe(wide[:])
	return s
}

func publicKey(kL *[32]byte) [32]byte {
	var out [32]byte
	copy(out[:], new(edwards25519.Point).ScalarBaseMult(scalarFromKL(kL)).Bytes())
	return out
}

// add28Mul8 computes x + 8*y[:28] as little-endian integers mod 2^256.
func add28Mul8(x *[32]byte, y []byte) [32]byte {
	var out [32]byte
	var carry uint16
	for i := 0; i < 28; i++ {
		r := uint16(x[i]) + uint16(y[i])<<3 + carry
		out[i] = byte(r)
		carry = r >> 8
	}
	for i := 28; i < 32; i++ {
		r := uint16(x[i]) + carry
		out[i] = byte(r)
		carry = r >> 8
	}
	return out
}

// add256 computes x + y as little-endian integers mod 2^256.
func add256(x *[32]byte, y []byte) [32]byte {
	var out [32]byte
	var carry uint16
	for i := 0; i < 32; i++ {
		r := uint16(x[i]) + uint16(y[i]) + carry
		out[i] = byte(r)
		carry = r >> 8
	}
	return out
}

func wipe(b []byte) {
	for i := range b {
		b[i] = 0
	}
}
