// Package session runs the interactive key → chain → token → action loop.
//
// Every level keeps the selections made above it in a Selection value.
// Going back from a level releases only what that level bound: backing out of
// the token menu closes the RPC client but keeps the key.
package session

import (
	"context"
	"errors"
	"fmt"
	"io"
	"sort"

	"github.com/Mohsinsiddi/tokenforge/internal/chain"
	"github.com/Mohsinsiddi/tokenforge/internal/config"
	"github.com/Mohsinsiddi/tokenforge/internal/contract"
	"github.com/Mohsinsiddi/tokenforge/internal/deploy"
	"github.com/Mohsinsiddi/tokenforge/internal/logging"
	"github.com/Mohsinsiddi/tokenforge/internal/registry"
	"github.com/Mohsinsiddi/tokenforge/internal/ui"
	"github.com/Mohsinsiddi/tokenforge/internal/wallet"
	"github.com/samber/lo"
	"go.uber.org/zap"
)

// State is a level of the session.
type State int

const (
	KeySelect State = iota
	ChainSelect
	TokenMenu
	PostActions
	Exit
)

func (s State) String() string {
	switch s {
	case KeySelect:
		return "key-select"
	case ChainSelect:
		return "chain-select"
	case TokenMenu:
		return "token-menu"
	case PostActions:
		return "post-actions"
	case Exit:
		return "exit"
	}
	return fmt.Sprintf("state(%d)", int(s))
}

// Selection holds everything bound so far.
type Selection struct {
	Key    *config.KeyEntry
	Signer *wallet.Signer
	Chain  *config.ChainConfig
	Client chain.Client
	Token  *registry.Record
}

// Deployer returns the bound key's address, or "".
func (sel Selection) Deployer() string {
	if sel.Signer == nil {
		return ""
	}
	return sel.Signer.Address().Hex()
}

// TokenStore lists recorded tokens.
type TokenStore interface {
	Query(chain, deployer string) ([]registry.Record, error)
}

// Deployer deploys and verifies tokens.
type Deployer interface {
	Deploy(ctx context.Context, req deploy.Request) (*registry.Record, error)
	Verify(ctx context.Context, chain config.ChainConfig, rec registry.Record) error
}

// Dialer connects to an RPC endpoint.
type Dialer func(ctx context.Context, url string) (chain.Client, error)

// Config carries the session's collaborators.
type Config struct {
	Keys     map[string]config.KeyEntry
	Chains   map[string]config.ChainConfig
	Tokens   TokenStore
	Deployer Deployer
	Dial     Dialer
	Keystore wallet.Backend
	Prompter ui.Prompter
	Out      io.Writer
	Gas      contract.GasPolicy
	Log      *zap.Logger
}

// Session is the interactive state machine. It is not safe for concurrent use.
type Session struct {
	cfg     Config
	builder *contract.Builder
	log     *zap.Logger

	keyLabels  []string
	chainNames []string

	state State
	sel   Selection
}

// New creates a session starting at KeySelect.
func New(cfg Config) *Session {
	if cfg.Out == nil {
		cfg.Out = io.Discard
	}
	cfg.Log = logging.OrNop(cfg.Log)
	labels := lo.Keys(cfg.Keys)
	sort.Strings(labels)
	names := lo.Keys(cfg.Chains)
	sort.Strings(names)

	return &Session{
		cfg:        cfg,
		builder:    contract.NewBuilder(cfg.Gas),
		log:        cfg.Log,
		keyLabels:  labels,
		chainNames: names,
		state:      KeySelect,
	}
}

// State returns the current level.
func (s *Session) State() State { return s.state }

// Selection returns a copy of the current bindings.
func (s *Session) Selection() Selection { return s.sel }

// Run steps the session until it exits, input ends or ctx is cancelled.
func (s *Session) Run(ctx context.Context) error {
	defer s.unbindChain()

	for s.state != Exit {
		if err := ctx.Err(); err != nil {
			return err
		}
		if err := s.Step(ctx); err != nil {
			if errors.Is(err, ui.ErrAborted) {
				s.state = Exit
				return nil
			}
			return err
		}
	}
	return nil
}

// Step handles one prompt at the current level and moves to the next state.
func (s *Session) Step(ctx context.Context) error {
	from := s.state
	var err error
	switch s.state {
	case KeySelect:
		err = s.selectKey()
	case ChainSelect:
		err = s.selectChain(ctx)
	case TokenMenu:
		err = s.tokenMenu(ctx)
	case PostActions:
		err = s.postActions(ctx)
	case Exit:
		return nil
	}
	if from != s.state {
		s.log.Debug("session transition", zap.Stringer("from", from), zap.Stringer("to", s.state))
	}
	return err
}

func (s *Session) println(a ...any) {
	fmt.Fprintln(s.cfg.Out, a...)
}

// report shows a non-fatal error to the operator.
func (s *Session) report(err error) {
	s.println(ui.Err(err.Error()))
}
