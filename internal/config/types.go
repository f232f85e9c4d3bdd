package config

// KeyEntry is one signing key from the keys file.
// Secret is either a hex private key or a "keyring:<ref>" reference.
type KeyEntry struct {
	Label  string
	Secret string
}

// ChainConfig is one chain block from the chains file.
type ChainConfig struct {
	Name            string
	RPCURL          string
	ChainID         int64
	EtherscanAPIKey string // optional
	EtherscanAPIURL string // optional
	VerifierURL     string // optional

	// Extra keeps every other key declared in the block.
	Extra map[string]string
}

// HasExplorer reports whether the chain carries enough metadata to attempt
// source verification.
func (c ChainConfig) HasExplorer() bool {
	return c.EtherscanAPIKey != "" || c.VerifierURL != ""
}

// Settings holds operator settings resolved from .env and TOKENFORGE_* vars.
type Settings struct {
	Home         string `mapstructure:"home"`
	KeysFile     string `mapstructure:"keys_file"`
	ChainsFile   string `mapstructure:"chains_file"`
	RegistryFile string `mapstructure:"registry_file"`

	// ProjectDir is the forge project root; ContractsDir may be relative to it.
	ProjectDir   string `mapstructure:"project_dir"`
	ContractsDir string `mapstructure:"contracts_dir"`
	ForgeBin     string `mapstructure:"forge_bin"`

	// LegacyChain is assigned to registry lines written before the chain column.
	LegacyChain string `mapstructure:"legacy_chain"`

	MaxFeeGwei      int64  `mapstructure:"max_fee_gwei"`
	PriorityFeeGwei int64  `mapstructure:"priority_fee_gwei"`
	LogLevel        string `mapstructure:"log_level"`
}
