package deploy

import (
	"context"
	"fmt"
	"os/exec"
	"regexp"
	"strconv"
	"strings"

	"go.uber.org/zap"
)

// CreateArgs are the inputs to a contract creation.
type CreateArgs struct {
	RPCURL     string
	PrivateKey string
	Target     string // path.sol:Name, relative to the project dir
}

// VerifyArgs are the inputs to explorer source verification.
type VerifyArgs struct {
	Address         string
	Target          string
	ChainID         int64
	EtherscanAPIKey string
	VerifierURL     string
}

// Toolchain compiles, deploys and verifies contracts. Every method returns
// the tool's combined output even when it fails.
type Toolchain interface {
	Install(ctx context.Context) (string, error)
	Build(ctx context.Context) (string, error)
	Create(ctx context.Context, args CreateArgs) (string, error)
	Verify(ctx context.Context, args VerifyArgs) (string, error)
}

// Forge drives the Foundry forge binary.
type Forge struct {
	bin         string
	projectRoot string
	log         *zap.Logger
}

// NewForge creates a Forge running bin inside projectRoot.
func NewForge(bin, projectRoot string, log *zap.Logger) *Forge {
	if bin == "" {
		bin = "forge"
	}
	if log == nil {
		log = zap.NewNop()
	}
	return &Forge{bin: bin, projectRoot: projectRoot, log: log}
}

// Install runs forge install.
func (f *Forge) Install(ctx context.Context) (string, error) {
	return f.run(ctx, "install")
}

// Build runs forge build.
func (f *Forge) Build(ctx context.Context) (string, error) {
	return f.run(ctx, "build")
}

// Create runs forge create and broadcasts the deployment.
func (f *Forge) Create(ctx context.Context, args CreateArgs) (string, error) {
	return f.run(ctx, "create",
		"--rpc-url", args.RPCURL,
		"--private-key", args.PrivateKey,
		"--broadcast",
		"--force",
		args.Target)
}

// Verify runs forge verify-contract and waits for the explorer's verdict.
func (f *Forge) Verify(ctx context.Context, args VerifyArgs) (string, error) {
	cmdArgs := []string{"verify-contract", "--watch"}
	if args.ChainID != 0 {
		cmdArgs = append(cmdArgs, "--chain-id", strconv.FormatInt(args.ChainID, 10))
	}
	if args.EtherscanAPIKey != "" {
		cmdArgs = append(cmdArgs, "--etherscan-api-key", args.EtherscanAPIKey)
	}
	if args.VerifierURL != "" {
		cmdArgs = append(cmdArgs, "--verifier-url", args.VerifierURL)
	}
	cmdArgs = append(cmdArgs, args.Address, args.Target)
	return f.run(ctx, cmdArgs...)
}

func (f *Forge) run(ctx context.Context, args ...string) (string, error) {
	cmd := exec.CommandContext(ctx, f.bin, args...)
	cmd.Dir = f.projectRoot

	f.log.Debug("running forge", zap.String("subcommand", args[0]), zap.String("dir", f.projectRoot))
	out, err := cmd.CombinedOutput()
	output := string(out)
	if err != nil {
		if ctx.Err() != nil {
			return output, fmt.Errorf("forge %s: %w", args[0], ctx.Err())
		}
		return output, fmt.Errorf("forge %s: %w", args[0], parseForgeError(err, output))
	}
	return output, nil
}

var (
	revertRe   = regexp.MustCompile(`reverted with reason string '([^']+)'`)
	forgeErrRe = regexp.MustCompile(`Error:\s+(.+)`)
)

// parseForgeError maps well-known forge failures to short messages.
func parseForgeError(err error, output string) error {
	switch {
	case strings.Contains(output, "insufficient funds"):
		return fmt.Errorf("insufficient funds for deployment")
	case strings.Contains(output, "nonce too low"):
		return fmt.Errorf("nonce too low - transaction may have already been sent")
	case strings.Contains(output, "replacement transaction underpriced"):
		return fmt.Errorf("replacement transaction underpriced")
	}

	if match := revertRe.FindStringSubmatch(output); len(match) > 1 {
		return fmt.Errorf("transaction reverted: %s", match[1])
	}
	if match := forgeErrRe.FindStringSubmatch(output); len(match) > 1 {
		return fmt.Errorf("%s", strings.TrimSpace(match[1]))
	}

	if len(output) > 500 {
		return fmt.Errorf("%v\nOutput (last 500 chars): ...%s", err, output[len(output)-500:])
	}
	return fmt.Errorf("%v\nOutput: %s", err, output)
}
