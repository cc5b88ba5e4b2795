package service

import (
	"crypto/ecdsa"
	"crypto/ed25519"
	"encoding/hex"
	"fmt"
	"regexp"
	"strings"

	"github.com/btcsuite/btcd/btcec/v2"
	"github.com/btcsuite/btcd/btcutil"
	"github.com/btcsuite/btcd/btcutil/hdkeychain"
	"github.com/btcsuite/btcd/chaincfg"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/crypto"
	"github.com/gagliardetto/solana-go"

	"multichain_wallet/internal/domain/entity"
	"multichain_wallet/internal/pkg/cardanokey"
	"multichain_wallet/internal/pkg/hdpath"
)

var (
	bitcoinAddressPattern = regexp.MustCompile(`^[13][a-km-zA-HJ-NP-Z1-9]{25,34}$`)
	cardanoAddressPattern = regexp.MustCompile(`^addr1[a-z0-9]{98}$`)
)

// ValidateAddress checks address against the grammar of kind.
func ValidateAddress(kind entity.ChainKind, address string) bool {
	//exhaustive:enforce
	switch kind {
	case entity.KindEVM:
		return common.IsHexAddress(address)
	case entity.KindBitcoin:
		if !bitcoinAddressPattern.MatchString(address) {
			return false
		}
		_, err := btcutil.DecodeAddress(address, &chaincfg.MainNetParams)
		return err == nil
	case entity.KindSolana:
		_, err := solana.PublicKeyFromBase58(address)
		return err == nil
	case entity.KindCardano:
		return cardanoAddressPattern.MatchString(address) && cardanokey.ValidateAddress(address)
	default:
		return false
	}
}

func invalidKey(op string, kind entity.ChainKind, err error) error {
	return entity.NewError(entity.CodeInvalidKeyMaterial, op, kind, err)
}

// keyErr keeps typed errors such as a bad path segment and classifies the rest
// as invalid key material.
func keyErr(kind entity.ChainKind, err error) error {
	if entity.CodeOf(err) != "" {
		return err
	}
	return invalidKey("derive", kind, err)
}

// secp256k1Node walks path from the master node of seed.
func secp256k1Node(seed []byte, path string) (*btcec.PrivateKey, error) {
	indices, err := hdpath.Parse(path)
	if err != nil {
		return nil, err
	}
	node, err := hdkeychain.NewMaster(seed, &chaincfg.MainNetParams)
	if err != nil {
		return nil, fmt.Errorf("master key: %w", err)
	}
	for _, idx := range indices {
		node, err = node.Derive(idx)
		if err != nil {
			return nil, fmt.Errorf("derive %s: %w", hdpath.String(indices), err)
		}
	}
	return node.ECPrivKey()
}

// deriveEVM returns the checksummed address and the hex private key.
func deriveEVM(seed []byte, path string) (string, string, error) {
	node, err := secp256k1Node(seed, path)
	if err != nil {
		return "", "", keyErr(entity.KindEVM, err)
	}
	raw := node.Serialize()
	defer wipe(raw)
	key, err := crypto.ToECDSA(raw)
	if err != nil {
		return "", "", invalidKey("derive", entity.KindEVM, err)
	}
	return crypto.PubkeyToAddress(key.PublicKey).Hex(), hex.EncodeToString(raw), nil
}

// deriveBitcoin returns the compressed P2PKH address and the hex private key.
func deriveBitcoin(seed []byte, path string) (string, string, error) {
	node, err := secp256k1Node(seed, path)
	if err != nil {
		return "", "", keyErr(entity.KindBitcoin, err)
	}
	addr, err := btcutil.NewAddressPubKeyHash(btcutil.Hash160(node.PubKey().SerializeCompressed()), &chaincfg.MainNetParams)
	if err != nil {
		return "", "", invalidKey("derive", entity.KindBitcoin, err)
	}
	raw := node.Serialize()
	defer wipe(raw)
	return addr.EncodeAddress(), hex.EncodeToString(raw), nil
}

// deriveSolana uses the node scalar as an ed25519 seed. The key is the 64-byte
// secret in base58.
func deriveSolana(seed []byte, path string) (string, string, error) {
	node, err := secp256k1Node(seed, path)
	if err != nil {
		return "", "", keyErr(entity.KindSolana, err)
	}
	raw := node.Serialize()
	defer wipe(raw)
	priv := solana.PrivateKey(ed25519.NewKeyFromSeed(raw))
	return priv.PublicKey().String(), priv.String(), nil
}

// deriveCardano builds the base address from the payment (0/0) and stake (2/0)
// keys under the account node. The key is hex(kL||kR) of the payment key.
func deriveCardano(seed []byte, path string) (string, string, error) {
	indices, err := hdpath.Parse(path)
	if err != nil {
		return "", "", err
	}
	if len(indices) < 3 {
		return "", "", invalidKey("derive", entity.KindCardano, fmt.Errorf("path %s has no account level", path))
	}
	root, err := cardanokey.FromBIP39Entropy(seed, nil)
	if err != nil {
		return "", "", invalidKey("derive", entity.KindCardano, err)
	}
	account := root.DerivePath(indices[:3]...)
	payment := account.DerivePath(0, 0)
	stake := account.DerivePath(2, 0)
	defer func() {
		root.Wipe()
		account.Wipe()
		payment.Wipe()
		stake.Wipe()
	}()

	addr, err := cardanokey.BaseAddress(cardanokey.MainnetNetworkID, payment.KeyHash(), stake.KeyHash())
	if err != nil {
		return "", "", invalidKey("derive", entity.KindCardano, err)
	}
	raw := payment.PrivateKey()
	defer wipe(raw)
	return addr, hex.EncodeToString(raw), nil
}

func parseEVMKey(s string) (*ecdsa.PrivateKey, error) {
	key, err := crypto.HexToECDSA(strings.TrimPrefix(strings.TrimSpace(s), "0x"))
	if err != nil {
		return nil, invalidKey("parse key", entity.KindEVM, err)
	}
	return key, nil
}

func parseBitcoinKey(s string) (*btcec.PrivateKey, error) {
	raw, err := hex.DecodeString(strings.TrimSpace(s))
	if err != nil || len(raw) != 32 {
		return nil, invalidKey("parse key", entity.KindBitcoin, fmt.Errorf("expected 32 hex encoded bytes"))
	}
	defer wipe(raw)
	priv, _ := btcec.PrivKeyFromBytes(raw)
	return priv, nil
}

// parseSolanaKey accepts a base58 secret or a JSON byte array as written by solana-keygen.
func parseSolanaKey(s string) (solana.PrivateKey, error) {
	s = strings.TrimSpace(s)
	var (
		key solana.PrivateKey
		err error
	)
	if strings.HasPrefix(s, "[") {
		key, err = solana.PrivateKeyFromSolanaKeygenFileBytes([]byte(s))
	} else {
		key, err = solana.PrivateKeyFromBase58(s)
	}
	if err != nil {
		return nil, invalidKey("parse key", entity.KindSolana, err)
	}
	return key, nil
}

func parseCardanoKey(s string) (*cardanokey.ExtendedKey, error) {
	key, err := cardanokey.FromPrivateKeyHex(s)
	if err != nil {
		return nil, invalidKey("parse key", entity.KindCardano, err)
	}
	return key, nil
}

func wipe(b []byte) {
	for i := range b {
		b[i] = 0
	}
}
