package entity

import "fmt"

// ChainKind is the account model a chain follows. The set is closed: every
// dispatch over ChainKind must handle all values listed in AllChainKinds.
type ChainKind uint8

const (
	// KindEVM is an account-balance chain with secp256k1 keys and keccak addresses.
	KindEVM ChainKind = iota + 1
	// KindBitcoin is a UTXO chain with P2PKH addresses.
	KindBitcoin
	// KindSolana is an ed25519 account chain.
	KindSolana
	// KindCardano is an extended-UTXO chain with BIP32-Ed25519 stake-credential addresses.
	KindCardano
)

// AllChainKinds lists every supported kind in declaration order.
var AllChainKinds = []ChainKind{KindEVM, KindBitcoin, KindSolana, KindCardano}

func (k ChainKind) String() string {
	switch k {
	case KindEVM:
		return "evm"
	case KindBitcoin:
		return "bitcoin"
	case KindSolana:
		return "solana"
	case KindCardano:
		return "cardano"
	default:
		return fmt.Sprintf("unknown(%d)", uint8(k))
	}
}

// ParseChainKind maps the textual tag used in configuration files to a ChainKind.
func ParseChainKind(s string) (ChainKind, error) {
	for _, k := range AllChainKinds {
		if k.String() == s {
			return k, nil
		}
	}
	return 0, NewError(CodeUnsupportedChainKind, "parse chain kind", 0, fmt.Errorf("unknown chain kind %q", s))
}

// MarshalText implements encoding.TextMarshaler.
func (k ChainKind) MarshalText() ([]byte, error) {
	return []byte(k.String()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (k *ChainKind) UnmarshalText(b []byte) error {
	parsed, err := ParseChainKind(string(b))
	if err != nil {
		return err
	}
	*k = parsed
	return nil
}

// NativeCurrency describes the coin a chain pays fees in.
type NativeCurrency struct {
	Name     string `json:"name" yaml:"name"`
	Symbol   string `json:"symbol" yaml:"symbol"`
	Decimals int32  `json:"decimals" yaml:"decimals"`
}

// SmartAccountConfig enables counterfactual smart-account addresses on an EVM chain.
type SmartAccountConfig struct {
	FactoryAddress string `json:"factoryAddress" yaml:"factoryAddress"`
	Salt           uint64 `json:"salt" yaml:"salt"`
}

// ChainConfig holds the static description of a supported chain.
// ID is the join key used everywhere else; it never changes for a chain.
type ChainConfig struct {
	ID           string              `json:"id" yaml:"id"`
	Name         string              `json:"name" yaml:"name"`
	Kind         ChainKind           `json:"kind" yaml:"kind"`
	RPC          string              `json:"rpc" yaml:"rpc"`
	Path         string              `json:"path" yaml:"path"`
	ChainID      uint64              `json:"chainId" yaml:"chainId"` // only meaningful for KindEVM
	Native       NativeCurrency      `json:"nativeCurrency" yaml:"nativeCurrency"`
	Tokens       []TokenInfo         `json:"tokens,omitempty" yaml:"tokens,omitempty"`
	SmartAccount *SmartAccountConfig `json:"smartAccount,omitempty" yaml:"smartAccount,omitempty"`
}

// TokenBySymbol returns the configured token with the given symbol.
func (c ChainConfig) TokenBySymbol(symbol string) (TokenInfo, bool) {
	for _, t := range c.Tokens {
		if t.Symbol == symbol {
			return t, true
		}
	}
	return TokenInfo{}, false
}

// IsNativeSymbol reports whether symbol refers to the chain's own coin.
// An empty symbol means native.
func (c ChainConfig) IsNativeSymbol(symbol string) bool {
	return symbol == "" || symbol == c.Native.Symbol
}
