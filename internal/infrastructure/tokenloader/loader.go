package tokenloader

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/ethereum/go-ethereum/common"

	"multichain_wallet/internal/app/port"
	"multichain_wallet/internal/domain/entity"
	"multichain_wallet/internal/pkg/utils"
)

// LoadTokens reads one JSON token list per EVM chain and validates it.
// The file for a chain is files[chain.ID] when set, otherwise <dir>/<chain.ID>.json.
// A missing file is not an error. A file that cannot be parsed is.
// Tokens with a mismatched chainId or a malformed address are skipped.
func LoadTokens(dir string, files map[string]string, chains []entity.ChainConfig, log port.Logger) (map[string][]entity.TokenInfo, error) {
	tokensByChainID := make(map[string][]entity.TokenInfo)

	for _, chain := range chains {
		if chain.Kind != entity.KindEVM {
			continue
		}
		filePath := files[chain.ID]
		if filePath == "" {
			if dir == "" {
				continue
			}
			filePath = filepath.Join(dir, chain.ID+".json")
		}

		tokensInFile, err := utils.ReadJSONFile[[]entity.TokenInfo](filePath)
		if err != nil {
			if os.IsNotExist(err) {
				log.Debug("No token file for chain", "chain", chain.ID, "path", filePath)
				continue
			}
			return nil, fmt.Errorf("failed to load token file %s: %w", filePath, err)
		}

		valid := make([]entity.TokenInfo, 0, len(tokensInFile))
		for _, token := range tokensInFile {
			if token.ChainID != 0 && token.ChainID != chain.ChainID {
				log.Warn("Token has mismatched ChainID in file, skipping token.",
					"file", filePath, "token_symbol", token.Symbol, "token_address", token.Address,
					"token_chain_id", token.ChainID, "expected_chain_id", chain.ChainID)
				continue
			}
			if !common.IsHexAddress(token.Address) || strings.TrimSpace(token.Symbol) == "" {
				log.Warn("Token entry is malformed, skipping token.", "file", filePath, "token_symbol", token.Symbol, "token_address", token.Address)
				continue
			}
			if token.Decimals < 0 || token.Decimals > 36 {
				log.Warn("Token decimals out of range, skipping token.", "file", filePath, "token_symbol", token.Symbol, "decimals", token.Decimals)
				continue
			}
			token.ChainID = chain.ChainID
			valid = append(valid, token)
		}

		if len(valid) > 0 {
			tokensByChainID[chain.ID] = valid
			log.Info("Loaded tokens for chain from file", "chain", chain.ID, "file", filePath, "count", len(valid))
		}
	}
	return tokensByChainID, nil
}
