package cmd

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/Mohsinsiddi/tokenforge/internal/chain"
	"github.com/Mohsinsiddi/tokenforge/internal/config"
	"github.com/Mohsinsiddi/tokenforge/internal/contract"
	"github.com/Mohsinsiddi/tokenforge/internal/deploy"
	"github.com/Mohsinsiddi/tokenforge/internal/logging"
	"github.com/Mohsinsiddi/tokenforge/internal/registry"
	"github.com/Mohsinsiddi/tokenforge/internal/session"
	"github.com/Mohsinsiddi/tokenforge/internal/ui"
	"github.com/Mohsinsiddi/tokenforge/internal/wallet"
	"github.com/samber/lo"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

// Version is the current release. Overridable via build ldflags:
//
//	go build -ldflags "-X github.com/Mohsinsiddi/tokenforge/cmd.Version=1.2.3" .
var Version = "1.0.0"

var (
	envFile string
	verbose bool
)

// rootCmd runs the interactive session.
var rootCmd = &cobra.Command{
	Use:   "tokenforge",
	Short: "Deploy, verify and manage ERC-20 tokens",
	Long: `tokenforge generates an ERC-20 contract, deploys it with forge, records it
in a local registry, verifies it on a block explorer and sends mint, burn,
transfer and renounce transactions.

Keys and chains are read from flat files in the tokenforge home directory
(default ~/.tokenforge, override with TOKENFORGE_HOME). Every prompt accepts
"b" or "back"; going back from the first menu exits.`,
	Version:       Version,
	SilenceUsage:  true,
	SilenceErrors: true,
	Args:          cobra.NoArgs,
	RunE:          runSession,
}

// Execute runs the root command.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, ui.Err(err.Error()))
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentFlags().StringVar(&envFile, "env", ".env", "dotenv file loaded before TOKENFORGE_* variables")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "debug logging")

	rootCmd.AddCommand(keyCmd, tokensCmd, chainsCmd)
}

// app bundles what every command needs.
type app struct {
	settings *config.Settings
	log      *zap.Logger
	registry *registry.Registry
}

func loadApp(cmd *cobra.Command) (*app, error) {
	settings, err := config.LoadSettings(envFile)
	if err != nil {
		return nil, err
	}
	if verbose {
		settings.LogLevel = "debug"
	}
	log, err := logging.New(settings.LogLevel)
	if err != nil {
		return nil, fmt.Errorf("creating logger: %w", err)
	}
	if err := settings.EnsureHome(); err != nil {
		return nil, err
	}

	stderr := cmd.ErrOrStderr()
	reg := registry.New(settings.RegistryFile,
		registry.WithLegacyChain(settings.LegacyChain),
		registry.WithLogger(log),
		registry.WithWarningHandler(func(ce *registry.CorruptionError) {
			fmt.Fprintln(stderr, ui.Warn(ce.Error()))
		}))

	n, err := reg.Migrate()
	if err != nil {
		return nil, err
	}
	if n > 0 {
		fmt.Fprintln(cmd.OutOrStdout(), ui.Success(fmt.Sprintf("Registry upgraded to the current format (%d records)", n)))
	}
	return &app{settings: settings, log: log, registry: reg}, nil
}

func runSession(cmd *cobra.Command, _ []string) error {
	a, err := loadApp(cmd)
	if err != nil {
		return err
	}
	defer a.log.Sync() //nolint:errcheck

	keys, err := config.LoadKeys(a.settings.KeysFile)
	if err != nil {
		return err
	}
	chains, err := config.LoadChains(a.settings.ChainsFile)
	if err != nil {
		return err
	}

	out := cmd.OutOrStdout()
	forge := deploy.NewForge(a.settings.ForgeBin, a.settings.ProjectDir, a.log)
	orch := deploy.New(forge, a.registry, a.settings.ProjectDir, a.settings.ContractsPath(),
		deploy.WithOutput(out),
		deploy.WithLogger(a.log))

	var keystore wallet.Backend
	if lo.SomeBy(lo.Values(keys), func(k config.KeyEntry) bool {
		return strings.HasPrefix(k.Secret, wallet.KeyringPrefix)
	}) {
		keystore = wallet.DefaultKeystore()
	}

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	fmt.Fprintln(out, ui.Banner("v"+Version))
	s := session.New(session.Config{
		Keys:     keys,
		Chains:   chains,
		Tokens:   a.registry,
		Deployer: orch,
		Dial:     dialRPC,
		Keystore: keystore,
		Prompter: ui.NewPrompter(os.Stdin, out),
		Out:      out,
		Gas: contract.GasPolicy{
			MaxFeePerGas:         a.settings.MaxFeePerGas(),
			MaxPriorityFeePerGas: a.settings.MaxPriorityFeePerGas(),
		},
		Log: a.log,
	})

	err = s.Run(ctx)
	if errors.Is(err, context.Canceled) {
		fmt.Fprintln(out)
		return nil
	}
	return err
}

func dialRPC(ctx context.Context, url string) (chain.Client, error) {
	c, err := chain.Dial(ctx, url)
	if err != nil {
		return nil, err
	}
	return c, nil
}
