package networkdefinition

import (
	"fmt"
	"strings"

	"multichain_wallet/internal/app/port"
	"multichain_wallet/internal/domain/entity"
	"multichain_wallet/internal/pkg/hdpath"
)

// Override adjusts one built-in chain.
type Override struct {
	ID           string
	RPC          string
	Disabled     bool
	ExtraTokens  []entity.TokenInfo
	SmartAccount *entity.SmartAccountConfig
}

// ChainRegistry is the immutable catalogue of active chains.
type ChainRegistry struct {
	chains []entity.ChainConfig
	byID   map[string]int
}

var _ port.ChainRegistry = (*ChainRegistry)(nil)

// NewChainRegistry builds the registry from the built-in chains with overrides
// applied. Unknown override IDs and chains with an unparsable path are logged and skipped.
func NewChainRegistry(log port.Logger, overrides []Override) *ChainRegistry {
	byOverride := make(map[string]Override, len(overrides))
	known := make(map[string]struct{})
	for _, c := range allKnownDefinitions() {
		known[c.ID] = struct{}{}
	}
	for _, o := range overrides {
		id := strings.ToLower(strings.TrimSpace(o.ID))
		if _, ok := known[id]; !ok {
			log.Warn(fmt.Sprintf("Override for unknown chain '%s'. Skipping.", o.ID))
			continue
		}
		byOverride[id] = o
	}

	r := &ChainRegistry{byID: make(map[string]int)}
	for _, def := range allKnownDefinitions() {
		o, hasOverride := byOverride[def.ID]
		if hasOverride {
			if o.Disabled {
				log.Info("Chain disabled by configuration", "chain", def.ID)
				continue
			}
			def = applyOverride(log, def, o)
		} else {
			def.Tokens = append([]entity.TokenInfo(nil), def.Tokens...)
		}

		if _, err := hdpath.Parse(def.Path); err != nil {
			log.Error("Chain has an invalid derivation path. Skipping.", "chain", def.ID, "path", def.Path, "error", err)
			continue
		}

		r.byID[def.ID] = len(r.chains)
		r.chains = append(r.chains, def)
	}

	log.Info(fmt.Sprintf("ChainRegistry initialized. Active chains: %d", len(r.chains)))
	for _, c := range r.chains {
		log.Debug(fmt.Sprintf("  - Active chain: %s (ID: %s, kind: %s, tokens: %d)", c.Name, c.ID, c.Kind, len(c.Tokens)))
	}
	return r
}

func applyOverride(log port.Logger, def entity.ChainConfig, o Override) entity.ChainConfig {
	if o.RPC != "" {
		def.RPC = o.RPC
	}

	tokens := append([]entity.TokenInfo(nil), def.Tokens...)
	seen := make(map[string]struct{}, len(tokens))
	for _, t := range tokens {
		seen[strings.ToLower(t.Address)] = struct{}{}
	}
	for _, t := range o.ExtraTokens {
		if def.Kind != entity.KindEVM {
			log.Warn("Tokens are only supported on evm chains. Skipping token.", "chain", def.ID, "symbol", t.Symbol)
			continue
		}
		if _, dup := seen[strings.ToLower(t.Address)]; dup {
			continue
		}
		seen[strings.ToLower(t.Address)] = struct{}{}
		tokens = append(tokens, t)
	}
	def.Tokens = tokens

	if o.SmartAccount != nil {
		if def.Kind != entity.KindEVM {
			log.Warn("Smart accounts are only supported on evm chains", "chain", def.ID)
		} else {
			sa := *o.SmartAccount
			if sa.FactoryAddress == "" {
				sa.FactoryAddress = DefaultSafeFactory
			}
			def.SmartAccount = &sa
		}
	}
	return def
}

// All returns the active chains in registry order.
func (r *ChainRegistry) All() []entity.ChainConfig {
	if r == nil {
		return []entity.ChainConfig{}
	}
	out := make([]entity.ChainConfig, len(r.chains))
	copy(out, r.chains)
	return out
}

// ByID returns the active chain with the given id.
func (r *ChainRegistry) ByID(id string) (entity.ChainConfig, bool) {
	if r == nil {
		return entity.ChainConfig{}, false
	}
	i, ok := r.byID[strings.ToLower(id)]
	if !ok {
		return entity.ChainConfig{}, false
	}
	return r.chains[i], true
}
