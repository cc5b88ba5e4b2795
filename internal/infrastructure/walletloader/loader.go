package walletloader

import (
	"bufio"
	"fmt"
	"os"
	"strings"

	"multichain_wallet/internal/domain/entity"
)

// LoadWatchList reads "<chainId> <address>" lines from filePath.
// Blank lines and lines starting with # are ignored.
func LoadWatchList(filePath string) ([]entity.WatchedAddress, error) {
	file, err := os.Open(filePath)
	if err != nil {
		return nil, fmt.Errorf("failed to open watch list %s: %w", filePath, err)
	}
	defer file.Close()

	var out []entity.WatchedAddress
	scanner := bufio.NewScanner(file)
	lineNum := 0
	for scanner.Scan() {
		lineNum++
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		fields := strings.Fields(line)
		if len(fields) != 2 {
			return nil, fmt.Errorf("%s:%d: expected \"<chainId> <address>\", got %q", filePath, lineNum, line)
		}
		out = append(out, entity.WatchedAddress{ChainID: strings.ToLower(fields[0]), Address: fields[1]})
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("error scanning watch list %s: %w", filePath, err)
	}
	return out, nil
}
