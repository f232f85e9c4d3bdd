package config

import (
	"errors"
	"fmt"
	"io/fs"
	"math/big"
	"os"
	"path/filepath"
	"strings"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

const (
	envPrefix = "TOKENFORGE"

	keysFile     = "keys.txt"
	chainsFile   = "chains.txt"
	registryFile = "tokens.csv"
)

// LoadSettings resolves operator settings. envFile (default ".env") is loaded
// into the process environment first when it exists, then TOKENFORGE_* vars
// are read on top of the defaults.
func LoadSettings(envFile string) (*Settings, error) {
	if envFile == "" {
		envFile = ".env"
	}
	if err := godotenv.Load(envFile); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("loading %s: %w", envFile, err)
	}

	home, err := defaultHome()
	if err != nil {
		return nil, err
	}

	v := viper.New()
	v.SetEnvPrefix(envPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	v.AutomaticEnv()

	v.SetDefault("home", home)
	v.SetDefault("keys_file", "")
	v.SetDefault("chains_file", "")
	v.SetDefault("registry_file", "")
	v.SetDefault("project_dir", ".")
	v.SetDefault("contracts_dir", "contracts")
	v.SetDefault("forge_bin", "forge")
	v.SetDefault("legacy_chain", "default")
	v.SetDefault("max_fee_gwei", DefaultMaxFeeGwei)
	v.SetDefault("priority_fee_gwei", DefaultPriorityFeeGwei)
	v.SetDefault("log_level", "warn")

	var s Settings
	if err := v.Unmarshal(&s); err != nil {
		return nil, fmt.Errorf("parsing settings: %w", err)
	}

	if s.KeysFile == "" {
		s.KeysFile = filepath.Join(s.Home, keysFile)
	}
	if s.ChainsFile == "" {
		s.ChainsFile = filepath.Join(s.Home, chainsFile)
	}
	if s.RegistryFile == "" {
		s.RegistryFile = filepath.Join(s.Home, registryFile)
	}
	if s.MaxFeeGwei < s.PriorityFeeGwei {
		return nil, fmt.Errorf("max fee (%d gwei) is below priority fee (%d gwei)", s.MaxFeeGwei, s.PriorityFeeGwei)
	}

	return &s, nil
}

// EnsureHome creates the settings home directory.
func (s *Settings) EnsureHome() error {
	if err := os.MkdirAll(s.Home, 0o700); err != nil {
		return fmt.Errorf("could not create home dir: %w", err)
	}
	return nil
}

// ContractsPath returns the directory generated sources are written to.
func (s *Settings) ContractsPath() string {
	if filepath.IsAbs(s.ContractsDir) {
		return s.ContractsDir
	}
	return filepath.Join(s.ProjectDir, s.ContractsDir)
}

// MaxFeePerGas returns the configured fee cap in wei.
func (s *Settings) MaxFeePerGas() *big.Int { return gweiToWei(s.MaxFeeGwei) }

// MaxPriorityFeePerGas returns the configured tip cap in wei.
func (s *Settings) MaxPriorityFeePerGas() *big.Int { return gweiToWei(s.PriorityFeeGwei) }

// --- helpers ---

func defaultHome() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("could not determine home dir: %w", err)
	}
	return filepath.Join(home, ".tokenforge"), nil
}

func gweiToWei(gwei int64) *big.Int {
	return new(big.Int).Mul(big.NewInt(gwei), big.NewInt(1_000_000_000))
}
