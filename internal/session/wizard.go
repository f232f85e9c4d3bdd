package session

import (
	"context"
	"errors"

	"github.com/Mohsinsiddi/tokenforge/internal/config"
	"github.com/Mohsinsiddi/tokenforge/internal/contract"
	"github.com/Mohsinsiddi/tokenforge/internal/deploy"
	"github.com/Mohsinsiddi/tokenforge/internal/ui"
)

// deployWizard collects token parameters, deploys, and offers verification.
// Backing out of any prompt returns to the token menu.
func (s *Session) deployWizard(ctx context.Context) error {
	name, err := s.cfg.Prompter.Input("Token name", "", deploy.ValidateName)
	if err != nil {
		return backToMenu(err)
	}
	symbol, err := s.cfg.Prompter.Input("Token symbol", "", deploy.ValidateSymbol)
	if err != nil {
		return backToMenu(err)
	}
	supply, err := s.cfg.Prompter.Input("Initial supply (whole tokens)", config.DefaultSupply, func(v string) error {
		_, err := contract.ParseAmount(v)
		return err
	})
	if err != nil {
		return backToMenu(err)
	}

	s.println(ui.Info("Deploying " + deploy.SanitizeName(name) + " to " + s.sel.Chain.Name))
	rec, err := s.cfg.Deployer.Deploy(ctx, deploy.Request{
		Chain:    *s.sel.Chain,
		Key:      s.sel.Signer.PrivateKeyHex(),
		Deployer: s.sel.Deployer(),
		Name:     name,
		Symbol:   symbol,
		Supply:   supply,
	})
	if err != nil {
		s.report(err)
		return nil
	}
	s.println(ui.Success(rec.Token + " deployed at " + ui.Addr(rec.Address)))

	ok, err := s.cfg.Prompter.Confirm("Verify " + rec.Token + " now?")
	switch {
	case errors.Is(err, ui.ErrAborted):
		return err
	case err == nil && ok:
		s.verify(ctx, rec)
	default:
		s.println(ui.Meta("Verification skipped; select the token later to retry."))
	}

	s.sel.Token = rec
	s.state = PostActions
	return nil
}

// backToMenu swallows ErrBack so the caller stays on its menu.
func backToMenu(err error) error {
	if errors.Is(err, ui.ErrBack) {
		return nil
	}
	return err
}
