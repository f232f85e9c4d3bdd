package config

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"
)

// Errors.
var (
	ErrConfig         = errors.New("config error")
	ErrConfigNotFound = fmt.Errorf("%w: source not found", ErrConfig)
	ErrConfigEmpty    = fmt.Errorf("%w: no valid entries", ErrConfig)
)

// Recognised chain block keys.
const (
	chainKeyName        = "name"
	chainKeyRPCURL      = "RPC_URL"
	chainKeyChainID     = "CHAIN_ID"
	chainKeyExplorerKey = "ETHERSCAN_API_KEY"
	chainKeyExplorerURL = "ETHERSCAN_API_URL"
	chainKeyVerifierURL = "VERIFIER_URL"
)

// LoadKeys reads label=secret lines from path. Later labels overwrite earlier ones.
func LoadKeys(path string) (map[string]KeyEntry, error) {
	f, err := openSource(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	keys, err := ParseKeys(f)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return keys, nil
}

// ParseKeys parses a key source. Each line is split on its first '=' and
// taken verbatim; blank lines, # comments and lines without '=' are ignored.
func ParseKeys(r io.Reader) (map[string]KeyEntry, error) {
	lines, err := readLines(r)
	if err != nil {
		return nil, err
	}

	keys := make(map[string]KeyEntry)
	for _, line := range lines {
		if skipLine(line) {
			continue
		}
		label, secret, ok := splitPair(line)
		if !ok || secret == "" {
			continue
		}
		keys[label] = KeyEntry{Label: label, Secret: secret}
	}
	if len(keys) == 0 {
		return nil, ErrConfigEmpty
	}
	return keys, nil
}

// LoadChains reads blank-line separated chain blocks from path.
func LoadChains(path string) (map[string]ChainConfig, error) {
	f, err := openSource(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	chains, err := ParseChains(f)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return chains, nil
}

// ParseChains parses a chain source. A block ends at a blank line, a comment
// line or EOF; blocks without a name are dropped.
func ParseChains(r io.Reader) (map[string]ChainConfig, error) {
	lines, err := readLines(r)
	if err != nil {
		return nil, err
	}

	chains := make(map[string]ChainConfig)
	fields := make(map[string]string)

	commit := func() error {
		defer clear(fields)
		name := fields[chainKeyName]
		if name == "" {
			return nil
		}
		c, err := chainFromFields(name, fields)
		if err != nil {
			return err
		}
		chains[name] = c
		return nil
	}

	for _, line := range lines {
		if skipLine(line) {
			if err := commit(); err != nil {
				return nil, err
			}
			continue
		}
		if key, value, ok := splitPair(line); ok {
			fields[key] = value
		}
	}
	if err := commit(); err != nil {
		return nil, err
	}

	if len(chains) == 0 {
		return nil, ErrConfigEmpty
	}
	return chains, nil
}

func chainFromFields(name string, fields map[string]string) (ChainConfig, error) {
	c := ChainConfig{
		Name:            name,
		RPCURL:          fields[chainKeyRPCURL],
		EtherscanAPIKey: fields[chainKeyExplorerKey],
		EtherscanAPIURL: fields[chainKeyExplorerURL],
		VerifierURL:     fields[chainKeyVerifierURL],
		Extra:           make(map[string]string),
	}
	if c.RPCURL == "" {
		return ChainConfig{}, fmt.Errorf("%w: chain %q: missing %s", ErrConfig, name, chainKeyRPCURL)
	}
	raw := fields[chainKeyChainID]
	if raw == "" {
		return ChainConfig{}, fmt.Errorf("%w: chain %q: missing %s", ErrConfig, name, chainKeyChainID)
	}
	id, err := strconv.ParseInt(raw, 10, 64)
	if err != nil || id <= 0 {
		return ChainConfig{}, fmt.Errorf("%w: chain %q: invalid %s %q", ErrConfig, name, chainKeyChainID, raw)
	}
	c.ChainID = id
	for k, v := range fields {
		switch k {
		case chainKeyName, chainKeyRPCURL, chainKeyChainID, chainKeyExplorerKey, chainKeyExplorerURL, chainKeyVerifierURL:
		default:
			c.Extra[k] = v
		}
	}
	return c, nil
}

// --- helpers ---

func openSource(path string) (*os.File, error) {
	f, err := os.Open(path)
	if errors.Is(err, os.ErrNotExist) {
		return nil, fmt.Errorf("%w: %s", ErrConfigNotFound, path)
	}
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrConfig, err)
	}
	return f, nil
}

func readLines(r io.Reader) ([]string, error) {
	var lines []string
	sc := bufio.NewScanner(r)
	for sc.Scan() {
		lines = append(lines, strings.TrimSpace(sc.Text()))
	}
	if err := sc.Err(); err != nil {
		return nil, fmt.Errorf("%w: reading source: %v", ErrConfig, err)
	}
	return lines, nil
}

// splitPair splits on the first '='. Keys and values are trimmed but not
// otherwise interpreted.
func splitPair(line string) (string, string, bool) {
	key, value, ok := strings.Cut(line, "=")
	key = strings.TrimSpace(key)
	if !ok || key == "" {
		return "", "", false
	}
	return key, strings.TrimSpace(value), true
}

func skipLine(line string) bool {
	return line == "" || strings.HasPrefix(line, "#")
}
