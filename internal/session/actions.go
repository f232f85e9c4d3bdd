package session

import (
	"context"
	"errors"
	"fmt"

	"github.com/Mohsinsiddi/tokenforge/internal/contract"
	"github.com/Mohsinsiddi/tokenforge/internal/ui"
)

type action int

const (
	actionMint action = iota
	actionBurn
	actionTransfer
	actionRenounce
	actionVerify
)

var actionItems = []ui.Item{
	{Label: "mint", SubLabel: "create whole tokens for an address"},
	{Label: "burn", SubLabel: "destroy whole tokens held by the deployer"},
	{Label: "transfer", SubLabel: "send base units to an address"},
	{Label: "renounce", SubLabel: "give up ownership (irreversible)"},
	{Label: "verify", SubLabel: "submit source to the explorer"},
}

func (s *Session) postActions(ctx context.Context) error {
	tok := s.sel.Token
	idx, err := s.cfg.Prompter.Select(ui.Menu{
		Title: fmt.Sprintf("%s  %s  %s", tok.Token, tok.Address, tok.Status),
		Items: actionItems,
	})
	if errors.Is(err, ui.ErrBack) {
		s.sel.Token = nil
		s.state = TokenMenu
		return nil
	}
	if err != nil {
		return err
	}

	var op contract.Operation
	switch action(idx) {
	case actionMint:
		op, err = s.promptMint()
	case actionBurn:
		op, err = s.promptBurn()
	case actionTransfer:
		op, err = s.promptTransfer()
	case actionRenounce:
		op, err = s.promptRenounce()
	case actionVerify:
		s.verify(ctx, tok)
		return nil
	default:
		return nil
	}
	if errors.Is(err, errCancelled) {
		s.println(ui.Meta("Cancelled."))
		return nil
	}
	if err != nil {
		return backToMenu(err)
	}

	s.send(ctx, op)
	return nil
}

var errCancelled = errors.New("cancelled")

func (s *Session) promptMint() (contract.Operation, error) {
	to, err := s.promptAddress("Recipient", s.sel.Deployer())
	if err != nil {
		return contract.Operation{}, err
	}
	amount, err := s.promptAmount("Amount (whole tokens)")
	if err != nil {
		return contract.Operation{}, err
	}
	return contract.Mint(to, amount), nil
}

func (s *Session) promptBurn() (contract.Operation, error) {
	amount, err := s.promptAmount("Amount (whole tokens)")
	if err != nil {
		return contract.Operation{}, err
	}
	return contract.Burn(amount), nil
}

func (s *Session) promptTransfer() (contract.Operation, error) {
	to, err := s.promptAddress("Recipient", "")
	if err != nil {
		return contract.Operation{}, err
	}
	amount, err := s.promptAmount("Amount (base units)")
	if err != nil {
		return contract.Operation{}, err
	}
	return contract.Transfer(to, amount), nil
}

func (s *Session) promptRenounce() (contract.Operation, error) {
	ok, err := s.cfg.Prompter.Confirm("Renounce ownership of " + s.sel.Token.Token + "? Minting will no longer be possible")
	if err != nil {
		return contract.Operation{}, err
	}
	if !ok {
		return contract.Operation{}, errCancelled
	}
	return contract.Renounce(), nil
}

func (s *Session) promptAddress(label, def string) (string, error) {
	return s.cfg.Prompter.Input(label, def, func(v string) error {
		_, err := contract.ParseAddress(v)
		return err
	})
}

func (s *Session) promptAmount(label string) (string, error) {
	return s.cfg.Prompter.Input(label, "", func(v string) error {
		_, err := contract.ParseAmount(v)
		return err
	})
}

// send signs and broadcasts op against the selected token. Failures are
// reported, never retried.
func (s *Session) send(ctx context.Context, op contract.Operation) {
	sender := contract.NewSender(s.sel.Client, s.sel.Signer, s.builder, s.sel.Chain.ChainID, s.log)

	spin := ui.NewSpinner("Sending "+op.Kind.String()+" transaction", s.cfg.Out)
	spin.Start()
	hash, err := sender.Send(ctx, op, s.sel.Token.Address)
	if err != nil {
		spin.Stop()
		s.report(err)
		return
	}
	spin.StopWithMsg(ui.Success(op.Kind.String() + " sent: " + ui.Addr(hash.Hex())))
}
