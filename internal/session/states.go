package session

import (
	"context"
	"errors"
	"fmt"

	"github.com/Mohsinsiddi/tokenforge/internal/chain"
	"github.com/Mohsinsiddi/tokenforge/internal/registry"
	"github.com/Mohsinsiddi/tokenforge/internal/ui"
	"github.com/Mohsinsiddi/tokenforge/internal/wallet"
	"github.com/samber/lo"
	"go.uber.org/zap"
)

func (s *Session) selectKey() error {
	items := lo.Map(s.keyLabels, func(label string, _ int) ui.Item {
		return ui.Item{Label: label}
	})
	idx, err := s.cfg.Prompter.Select(ui.Menu{Title: "Select a deployer key", Items: items})
	if errors.Is(err, ui.ErrBack) {
		s.state = Exit
		return nil
	}
	if err != nil {
		return err
	}
	if idx < 0 || idx >= len(s.keyLabels) {
		return nil
	}

	entry := s.cfg.Keys[s.keyLabels[idx]]
	signer, err := wallet.Unlock(entry, s.cfg.Keystore)
	if err != nil {
		s.report(err)
		return nil
	}

	s.sel.Key = &entry
	s.sel.Signer = signer
	s.state = ChainSelect
	s.println(ui.Success("Using key " + entry.Label + " " + ui.Addr(signer.Address().Hex())))
	return nil
}

func (s *Session) selectChain(ctx context.Context) error {
	items := lo.Map(s.chainNames, func(name string, _ int) ui.Item {
		return ui.Item{Label: name, SubLabel: fmt.Sprintf("chain id %d", s.cfg.Chains[name].ChainID)}
	})
	idx, err := s.cfg.Prompter.Select(ui.Menu{Title: "Select a chain", Items: items})
	if errors.Is(err, ui.ErrBack) {
		s.sel.Key = nil
		s.sel.Signer = nil
		s.state = KeySelect
		return nil
	}
	if err != nil {
		return err
	}
	if idx < 0 || idx >= len(s.chainNames) {
		return nil
	}

	cfg := s.cfg.Chains[s.chainNames[idx]]
	client, err := s.cfg.Dial(ctx, cfg.RPCURL)
	if err != nil {
		s.report(err)
		return nil
	}
	if err := chain.CheckChainID(ctx, client, cfg.ChainID); err != nil {
		if errors.Is(err, chain.ErrChainMismatch) {
			s.println(ui.Warn(err.Error()))
		} else {
			s.log.Warn("chain id check skipped", zap.String("chain", cfg.Name), zap.Error(err))
		}
	}

	s.sel.Chain = &cfg
	s.sel.Client = client
	s.state = TokenMenu
	return nil
}

func (s *Session) tokenMenu(ctx context.Context) error {
	chainName, deployer := s.sel.Chain.Name, s.sel.Deployer()
	records, err := s.cfg.Tokens.Query(chainName, deployer)
	if err != nil {
		return fmt.Errorf("querying registry: %w", err)
	}

	s.showHeader(ctx, records)

	items := lo.Map(records, func(rec registry.Record, _ int) ui.Item {
		return ui.Item{Label: rec.Token, SubLabel: rec.Address + "  " + string(rec.Status)}
	})
	idx, err := s.cfg.Prompter.Select(ui.Menu{
		Title:      "Tokens on " + chainName,
		Items:      items,
		EmptyLabel: "deploy a new token",
	})
	switch {
	case errors.Is(err, ui.ErrBack):
		s.unbindChain()
		s.state = ChainSelect
		return nil
	case err != nil:
		return err
	case idx == ui.EmptyChoice:
		return s.deployWizard(ctx)
	case idx < 0 || idx >= len(records):
		return nil
	}

	rec := records[idx]
	if !rec.Verified() {
		s.verify(ctx, &rec)
	}
	s.sel.Token = &rec
	s.state = PostActions
	return nil
}

func (s *Session) showHeader(ctx context.Context, records []registry.Record) {
	pairs := [][2]string{
		{"Key", s.sel.Key.Label},
		{"Deployer", s.sel.Deployer()},
		{"Chain", fmt.Sprintf("%s (%d)", s.sel.Chain.Name, s.sel.Chain.ChainID)},
	}
	if wei, err := s.sel.Client.Balance(ctx, s.sel.Signer.Address()); err == nil {
		pairs = append(pairs, [2]string{"Balance", chain.WeiToETH(wei)})
	} else {
		s.log.Debug("balance unavailable", zap.Error(err))
	}
	s.println(ui.KeyValueBlock("", pairs))

	if len(records) == 0 {
		s.println(ui.Meta("No tokens deployed on this chain with this key yet."))
		return
	}
	rows := lo.Map(records, func(rec registry.Record, i int) []string {
		return []string{fmt.Sprint(i + 1), rec.Token, rec.Address, string(rec.Status)}
	})
	s.println(ui.RenderTable([]string{"#", "Token", "Address", "Status"}, rows))
}

// verify runs explorer verification for rec, updating it in place on success.
// Failures are reported and leave rec unverified.
func (s *Session) verify(ctx context.Context, rec *registry.Record) {
	if rec.Verified() {
		s.println(ui.Meta(rec.Token + " is already verified."))
		return
	}
	if !s.sel.Chain.HasExplorer() {
		s.println(ui.Warn(rec.Token + " is unverified; no explorer is configured for " + s.sel.Chain.Name))
		return
	}

	s.println(ui.Info("Verifying " + rec.Token + " at " + rec.Address))
	if err := s.cfg.Deployer.Verify(ctx, *s.sel.Chain, *rec); err != nil {
		s.report(err)
		return
	}
	rec.Status = registry.StatusVerified
	s.println(ui.Success(rec.Token + " verified"))
}

func (s *Session) unbindChain() {
	if s.sel.Client != nil {
		s.sel.Client.Close()
	}
	s.sel.Client = nil
	s.sel.Chain = nil
	s.sel.Token = nil
}
