// Package deploy turns token parameters into a deployed, registered and
// optionally verified ERC-20 contract.
package deploy

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"regexp"
	"strings"

	"github.com/Mohsinsiddi/tokenforge/internal/config"
	"github.com/Mohsinsiddi/tokenforge/internal/registry"
	"go.uber.org/zap"
)

// requirementsFile marks a forge project whose dependencies must be
// installed before the first build.
const requirementsFile = "requirements.forge"

// Errors.
var (
	ErrDeployFailed       = errors.New("deployment failed")
	ErrVerificationFailed = errors.New("verification failed")
)

var deployedToRe = regexp.MustCompile(`Deployed to:\s*(0x[0-9a-fA-F]{40})`)

// Stage is a step of a deployment.
type Stage string

const (
	StageGenerate Stage = "generate-source"
	StageInstall  Stage = "install"
	StageCompile  Stage = "compile"
	StageSubmit   Stage = "submit"
	StageRecord   Stage = "record"
)

// DeployError reports a failed deployment. No record is written.
type DeployError struct {
	Stage  Stage
	Output string
	Err    error
}

func (e *DeployError) Error() string {
	return fmt.Sprintf("deployment failed at %s: %v", e.Stage, e.Err)
}

func (e *DeployError) Unwrap() []error { return []error{ErrDeployFailed, e.Err} }

// VerificationError reports a failed verification. The record stays unverified.
type VerificationError struct {
	Token  string
	Output string
	Err    error
}

func (e *VerificationError) Error() string {
	return fmt.Sprintf("verification failed for %s: %v", e.Token, e.Err)
}

func (e *VerificationError) Unwrap() []error { return []error{ErrVerificationFailed, e.Err} }

// RecordStore is the part of the registry the orchestrator writes to.
type RecordStore interface {
	Append(rec registry.Record) error
	UpdateStatus(chain, token, address, deployer string, status registry.Status) error
}

// Request describes a token to deploy.
type Request struct {
	Chain    config.ChainConfig
	Key      string // hex private key handed to forge
	Deployer string // address derived from Key
	Name     string
	Symbol   string
	Supply   string // whole tokens
}

// Orchestrator runs the generate, compile, submit sequence.
type Orchestrator struct {
	tools        Toolchain
	store        RecordStore
	projectDir   string
	contractsDir string
	out          io.Writer
	log          *zap.Logger

	installed bool
}

// Option configures an Orchestrator.
type Option func(*Orchestrator)

// WithOutput echoes every tool's output to w.
func WithOutput(w io.Writer) Option {
	return func(o *Orchestrator) { o.out = w }
}

// WithLogger sets the logger.
func WithLogger(l *zap.Logger) Option {
	return func(o *Orchestrator) { o.log = l }
}

// New creates an Orchestrator. contractsDir is where sources are written
// (see config.Settings.ContractsPath) and must lie inside projectDir.
func New(tools Toolchain, store RecordStore, projectDir, contractsDir string, opts ...Option) *Orchestrator {
	// forge targets are projectDir-relative; Rel needs both sides in one form.
	if filepath.IsAbs(projectDir) != filepath.IsAbs(contractsDir) {
		projectDir, contractsDir = absPath(projectDir), absPath(contractsDir)
	}
	o := &Orchestrator{
		tools:        tools,
		store:        store,
		projectDir:   projectDir,
		contractsDir: contractsDir,
		out:          io.Discard,
		log:          zap.NewNop(),
	}
	for _, opt := range opts {
		opt(o)
	}
	return o
}

// Deploy generates, compiles and submits the token described by req. The
// returned record has already been appended to the registry as unverified.
func (o *Orchestrator) Deploy(ctx context.Context, req Request) (*registry.Record, error) {
	src := Source{Name: SanitizeName(req.Name), Symbol: strings.TrimSpace(req.Symbol), Supply: strings.TrimSpace(req.Supply)}
	if src.Supply == "" {
		src.Supply = config.DefaultSupply
	}

	ctx, cancel := context.WithTimeout(ctx, config.ForgeTimeout)
	defer cancel()

	path, err := WriteSource(o.contractsDir, src)
	if err != nil {
		return nil, &DeployError{Stage: StageGenerate, Err: err}
	}
	o.log.Info("contract source generated", zap.String("path", path))

	if err := o.installOnce(ctx); err != nil {
		return nil, err
	}

	out, err := o.tools.Build(ctx)
	o.echo(out)
	if err != nil {
		return nil, &DeployError{Stage: StageCompile, Output: out, Err: err}
	}

	target, err := o.target(path, src.Name)
	if err != nil {
		return nil, &DeployError{Stage: StageSubmit, Err: err}
	}
	out, err = o.tools.Create(ctx, CreateArgs{RPCURL: req.Chain.RPCURL, PrivateKey: req.Key, Target: target})
	o.echo(out)
	if err != nil {
		return nil, &DeployError{Stage: StageSubmit, Output: out, Err: err}
	}

	address, ok := DeployedAddress(out)
	if !ok {
		return nil, &DeployError{Stage: StageSubmit, Output: out, Err: errors.New(`output did not include "Deployed to:"`)}
	}

	rec := registry.Record{
		Chain:    req.Chain.Name,
		Token:    src.Name,
		Address:  address,
		Status:   registry.StatusUnverified,
		Deployer: req.Deployer,
	}
	if err := o.store.Append(rec); err != nil {
		return nil, &DeployError{Stage: StageRecord, Output: out, Err: fmt.Errorf("contract live at %s but not recorded: %w", address, err)}
	}

	o.log.Info("token deployed",
		zap.String("chain", rec.Chain),
		zap.String("token", rec.Token),
		zap.String("address", rec.Address))
	return &rec, nil
}

// Verify submits rec's source to the chain's explorer and marks it verified
// on success. Verifying an already verified record is a no-op.
func (o *Orchestrator) Verify(ctx context.Context, chain config.ChainConfig, rec registry.Record) error {
	if rec.Verified() {
		return nil
	}
	if !chain.HasExplorer() {
		return &VerificationError{Token: rec.Token, Err: fmt.Errorf("chain %q has no explorer configured", chain.Name)}
	}

	ctx, cancel := context.WithTimeout(ctx, config.VerifyTimeout)
	defer cancel()

	// Sources are keyed by name only; a redeploy of the same name replaces
	// the file an earlier deployment was compiled from.
	src := filepath.Join(o.contractsDir, rec.Token+".sol")
	if _, err := os.Stat(src); err != nil {
		return &VerificationError{Token: rec.Token, Err: fmt.Errorf("generated source missing: %w", err)}
	}
	target, err := o.target(src, rec.Token)
	if err != nil {
		return &VerificationError{Token: rec.Token, Err: err}
	}

	verifier := chain.VerifierURL
	if verifier == "" {
		verifier = chain.EtherscanAPIURL
	}
	out, err := o.tools.Verify(ctx, VerifyArgs{
		Address:         rec.Address,
		Target:          target,
		ChainID:         chain.ChainID,
		EtherscanAPIKey: chain.EtherscanAPIKey,
		VerifierURL:     verifier,
	})
	o.echo(out)
	if !Verified(out) {
		if err == nil {
			err = errors.New("explorer did not confirm verification")
		}
		return &VerificationError{Token: rec.Token, Output: out, Err: err}
	}

	if err := o.store.UpdateStatus(rec.Chain, rec.Token, rec.Address, rec.Deployer, registry.StatusVerified); err != nil {
		return fmt.Errorf("recording verification: %w", err)
	}
	o.log.Info("token verified", zap.String("chain", rec.Chain), zap.String("token", rec.Token))
	return nil
}

// DeployedAddress extracts the contract address from forge create output.
func DeployedAddress(output string) (string, bool) {
	m := deployedToRe.FindStringSubmatch(output)
	if len(m) < 2 {
		return "", false
	}
	return m[1], true
}

// Verified reports whether verify-contract output confirms the source is
// verified, including when it already was.
func Verified(output string) bool {
	lower := strings.ToLower(output)
	return strings.Contains(lower, "successfully verified") ||
		strings.Contains(lower, "already verified") ||
		strings.Contains(lower, "pass - verified")
}

func (o *Orchestrator) installOnce(ctx context.Context) error {
	if o.installed {
		return nil
	}
	if _, err := os.Stat(filepath.Join(o.projectDir, requirementsFile)); err != nil {
		if errors.Is(err, os.ErrNotExist) {
			o.installed = true
			return nil
		}
		return &DeployError{Stage: StageInstall, Err: err}
	}

	out, err := o.tools.Install(ctx)
	o.echo(out)
	if err != nil {
		return &DeployError{Stage: StageInstall, Output: out, Err: err}
	}
	o.installed = true
	return nil
}

func (o *Orchestrator) target(path, name string) (string, error) {
	rel, err := filepath.Rel(o.projectDir, path)
	if err != nil {
		return "", fmt.Errorf("contract path: %w", err)
	}
	return filepath.ToSlash(rel) + ":" + name, nil
}

func absPath(p string) string {
	if abs, err := filepath.Abs(p); err == nil {
		return abs
	}
	return p
}

func (o *Orchestrator) echo(output string) {
	if output == "" {
		return
	}
	fmt.Fprint(o.out, output)
	if !strings.HasSuffix(output, "\n") {
		fmt.Fprintln(o.out)
	}
}
