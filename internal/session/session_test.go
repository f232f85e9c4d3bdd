package session

import (
	"bytes"
	"context"
	"errors"
	"math/big"
	"path/filepath"
	"strings"
	"testing"

	"github.com/Mohsinsiddi/tokenforge/internal/chain"
	"github.com/Mohsinsiddi/tokenforge/internal/config"
	"github.com/Mohsinsiddi/tokenforge/internal/contract"
	"github.com/Mohsinsiddi/tokenforge/internal/deploy"
	"github.com/Mohsinsiddi/tokenforge/internal/registry"
	"github.com/Mohsinsiddi/tokenforge/internal/ui"
	"github.com/Mohsinsiddi/tokenforge/internal/wallet"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const (
	testKeyHex   = "ac0974bec39a17e36ba4a6b4d238ff944bacb478cbed5efcae784d7bf4f2ff80"
	testDeployer = "0xf39Fd6e51aad88F6F4ce6aB8827279cffFb92266"
	testToken    = "0x5FbDB2315678afecb367f032d93F642f64180aa3"
)

// ---------------------------------------------------------------------------
// fakes
// ---------------------------------------------------------------------------

type fakeClient struct {
	chainID int64
	nonce   uint64
	sent    []*types.Transaction
	closed  bool
}

func (f *fakeClient) PendingNonce(context.Context, common.Address) (uint64, error) {
	return f.nonce, nil
}

func (f *fakeClient) Broadcast(_ context.Context, tx *types.Transaction) (common.Hash, error) {
	f.sent = append(f.sent, tx)
	f.nonce++
	return tx.Hash(), nil
}

func (f *fakeClient) ChainID(context.Context) (*big.Int, error) { return big.NewInt(f.chainID), nil }

func (f *fakeClient) Balance(context.Context, common.Address) (*big.Int, error) {
	return new(big.Int).Exp(big.NewInt(10), big.NewInt(18), nil), nil
}

func (f *fakeClient) Close() { f.closed = true }

type fakeToolchain struct {
	createOut string
	verifyOut string
	calls     []string
}

func (f *fakeToolchain) Install(context.Context) (string, error) {
	f.calls = append(f.calls, "install")
	return "", nil
}

func (f *fakeToolchain) Build(context.Context) (string, error) {
	f.calls = append(f.calls, "build")
	return "Compiler run successful!\n", nil
}

func (f *fakeToolchain) Create(context.Context, deploy.CreateArgs) (string, error) {
	f.calls = append(f.calls, "create")
	return f.createOut, nil
}

func (f *fakeToolchain) Verify(context.Context, deploy.VerifyArgs) (string, error) {
	f.calls = append(f.calls, "verify")
	return f.verifyOut, nil
}

type harness struct {
	session *Session
	reg     *registry.Registry
	tools   *fakeToolchain
	client  *fakeClient
	dials   int
	out     *bytes.Buffer
	dir     string
}

func sepolia() config.ChainConfig {
	return config.ChainConfig{
		Name:            "sepolia",
		RPCURL:          "https://rpc.sepolia.org",
		ChainID:         11155111,
		EtherscanAPIKey: "KEY",
	}
}

func newHarness(t *testing.T, input string, keys map[string]config.KeyEntry) *harness {
	t.Helper()
	dir := t.TempDir()
	h := &harness{
		reg: registry.New(filepath.Join(dir, "tokens.csv")),
		tools: &fakeToolchain{
			createOut: "Deployer: " + testDeployer + "\nDeployed to: " + testToken + "\n",
			verifyOut: "Contract successfully verified\n",
		},
		client: &fakeClient{chainID: 11155111},
		out:    &bytes.Buffer{},
		dir:    dir,
	}
	if keys == nil {
		keys = map[string]config.KeyEntry{"main": {Label: "main", Secret: testKeyHex}}
	}
	orch := deploy.New(h.tools, h.reg, dir, filepath.Join(dir, "contracts"), deploy.WithOutput(h.out))

	h.session = New(Config{
		Keys:     keys,
		Chains:   map[string]config.ChainConfig{"sepolia": sepolia()},
		Tokens:   h.reg,
		Deployer: orch,
		Dial: func(context.Context, string) (chain.Client, error) {
			h.dials++
			return h.client, nil
		},
		Keystore: wallet.NewInMemoryKeystore(),
		Prompter: ui.NewLinePrompter(strings.NewReader(input), h.out),
		Out:      h.out,
		Gas: contract.GasPolicy{
			MaxFeePerGas:         big.NewInt(50_000_000_000),
			MaxPriorityFeePerGas: big.NewInt(2_000_000_000),
		},
	})
	return h
}

func steps(t *testing.T, s *Session, n int) {
	t.Helper()
	for i := 0; i < n; i++ {
		require.NoError(t, s.Step(context.Background()))
	}
}

// seed records a deployed Foo token and writes the source it was built from.
func seed(t *testing.T, h *harness, status registry.Status) registry.Record {
	t.Helper()
	_, err := deploy.WriteSource(filepath.Join(h.dir, "contracts"), deploy.Source{Name: "Foo", Symbol: "FOO", Supply: "1"})
	require.NoError(t, err)
	rec := registry.Record{Chain: "sepolia", Token: "Foo", Address: testToken, Status: status, Deployer: testDeployer}
	require.NoError(t, h.reg.Append(rec))
	return rec
}

// ---------------------------------------------------------------------------
// navigation
// ---------------------------------------------------------------------------

func TestBackFromTokenMenuKeepsKey(t *testing.T) {
	h := newHarness(t, "1\n1\nb\n", nil)
	s := h.session

	steps(t, s, 2)
	assert.Equal(t, TokenMenu, s.State())
	require.NotNil(t, s.Selection().Chain)

	steps(t, s, 1)
	assert.Equal(t, ChainSelect, s.State())
	sel := s.Selection()
	require.NotNil(t, sel.Key)
	assert.Equal(t, "main", sel.Key.Label)
	assert.Equal(t, testDeployer, sel.Deployer())
	assert.Nil(t, sel.Chain)
	assert.Nil(t, sel.Client)
	assert.True(t, h.client.closed)
}

func TestBackFromChainSelectUnbindsKey(t *testing.T) {
	h := newHarness(t, "1\nb\n", nil)
	steps(t, h.session, 2)
	assert.Equal(t, KeySelect, h.session.State())
	assert.Nil(t, h.session.Selection().Key)
	assert.Nil(t, h.session.Selection().Signer)
}

func TestBackAtTopLevelExits(t *testing.T) {
	h := newHarness(t, "b\n", nil)
	require.NoError(t, h.session.Run(context.Background()))
	assert.Equal(t, Exit, h.session.State())
}

func TestEndOfInputExits(t *testing.T) {
	h := newHarness(t, "1\n", nil)
	require.NoError(t, h.session.Run(context.Background()))
	assert.Equal(t, Exit, h.session.State())
}

func TestCancelledContextStops(t *testing.T) {
	h := newHarness(t, "1\n1\n", nil)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	err := h.session.Run(ctx)
	assert.ErrorIs(t, err, context.Canceled)
}

func TestUnlockFailureStaysOnKeySelect(t *testing.T) {
	keys := map[string]config.KeyEntry{
		"broken": {Label: "broken", Secret: "0x1234"},
		"main":   {Label: "main", Secret: testKeyHex},
	}
	h := newHarness(t, "1\n2\n", keys)

	steps(t, h.session, 1)
	assert.Equal(t, KeySelect, h.session.State())
	assert.Contains(t, h.out.String(), "invalid private key")

	steps(t, h.session, 1)
	assert.Equal(t, ChainSelect, h.session.State())
	assert.Equal(t, "main", h.session.Selection().Key.Label)
}

func TestTokenMenuRequeriesOnReentry(t *testing.T) {
	h := newHarness(t, "1\n1\n1\nb\n", nil)
	seed(t, h, registry.StatusVerified)

	steps(t, h.session, 3)
	assert.Equal(t, PostActions, h.session.State())
	assert.Equal(t, "Foo", h.session.Selection().Token.Token)

	// A record appended while in PostActions shows up after going back.
	bar := registry.Record{Chain: "sepolia", Token: "Bar", Address: "0xe7f1725E7734CE288F8367e1Bb143E90bb3F0512", Status: registry.StatusVerified, Deployer: testDeployer}
	require.NoError(t, h.reg.Append(bar))

	steps(t, h.session, 1)
	assert.Equal(t, TokenMenu, h.session.State())
	assert.Nil(t, h.session.Selection().Token)

	h.out.Reset()
	_ = h.session.Step(context.Background()) // input exhausted; menu still rendered
	assert.Contains(t, h.out.String(), "Bar")
}

// ---------------------------------------------------------------------------
// deploy + verify
// ---------------------------------------------------------------------------

func TestDeployThenVerifyEndToEnd(t *testing.T) {
	input := strings.Join([]string{
		"1",   // key
		"1",   // chain
		"",    // empty: deploy wizard
		"Foo", // name
		"FOO", // symbol
		"",    // supply: default
		"y",   // verify now
		"b",   // post actions -> token menu
		"b",   // token menu -> chain select
		"b",   // chain select -> key select
		"b",   // exit
	}, "\n") + "\n"
	h := newHarness(t, input, nil)

	require.NoError(t, h.session.Run(context.Background()))
	assert.Equal(t, Exit, h.session.State())
	assert.Equal(t, []string{"build", "create", "verify"}, h.tools.calls)

	all, err := h.reg.All()
	require.NoError(t, err)
	require.Len(t, all, 1)
	assert.Equal(t, registry.Record{
		Chain:    "sepolia",
		Token:    "Foo",
		Address:  testToken,
		Status:   registry.StatusVerified,
		Deployer: testDeployer,
	}, all[0])
	assert.Contains(t, h.out.String(), "Deployed to:")
}

func TestDeployFailureStaysOnTokenMenu(t *testing.T) {
	h := newHarness(t, "1\n1\n\nFoo\nFOO\n\n", nil)
	h.tools.createOut = "Error: insufficient funds\n"

	steps(t, h.session, 3)
	assert.Equal(t, TokenMenu, h.session.State())
	assert.Contains(t, h.out.String(), "deployment failed")

	all, err := h.reg.All()
	require.NoError(t, err)
	assert.Empty(t, all)
}

func TestDeployWizardRepromptsInvalidName(t *testing.T) {
	h := newHarness(t, "1\n1\n\n1bad\nMy Token\nMT\n5\nn\n", nil)

	steps(t, h.session, 3)
	assert.Equal(t, PostActions, h.session.State())
	assert.Equal(t, "My_Token", h.session.Selection().Token.Token)
	assert.Contains(t, h.out.String(), "not a valid contract identifier")
	assert.NotContains(t, h.tools.calls, "verify")
}

func TestDeployWizardBackReturnsToMenu(t *testing.T) {
	h := newHarness(t, "1\n1\n\nFoo\nb\n", nil)
	steps(t, h.session, 3)
	assert.Equal(t, TokenMenu, h.session.State())
	assert.Empty(t, h.tools.calls)
}

func TestSelectingUnverifiedTokenVerifiesInline(t *testing.T) {
	h := newHarness(t, "1\n1\n1\n", nil)
	seed(t, h, registry.StatusUnverified)

	steps(t, h.session, 3)
	assert.Equal(t, PostActions, h.session.State())
	assert.True(t, h.session.Selection().Token.Verified())
	assert.Equal(t, []string{"verify"}, h.tools.calls)

	got, err := h.reg.Query("sepolia", testDeployer)
	require.NoError(t, err)
	assert.True(t, got[0].Verified())
}

func TestInlineVerificationFailureStillEntersActions(t *testing.T) {
	h := newHarness(t, "1\n1\n1\n", nil)
	h.tools.verifyOut = "Error: Invalid API Key\n"
	seed(t, h, registry.StatusUnverified)

	steps(t, h.session, 3)
	assert.Equal(t, PostActions, h.session.State())
	assert.False(t, h.session.Selection().Token.Verified())
	assert.Contains(t, h.out.String(), "verification failed")
}

// ---------------------------------------------------------------------------
// post actions
// ---------------------------------------------------------------------------

func TestMintDefaultsRecipientAndRepromptsAmount(t *testing.T) {
	h := newHarness(t, "1\n1\n1\n1\n\n1.5\n100\n", nil)
	seed(t, h, registry.StatusVerified)

	steps(t, h.session, 4)
	assert.Equal(t, PostActions, h.session.State())
	require.Len(t, h.client.sent, 1)

	tx := h.client.sent[0]
	assert.Equal(t, testToken, tx.To().Hex())
	assert.Equal(t, contract.SelectorHex("mint(address,uint256)")[2:], common.Bytes2Hex(tx.Data()[:4]))
	assert.Equal(t, strings.ToLower(testDeployer[2:]), common.Bytes2Hex(tx.Data()[16:36]))
	assert.Equal(t, int64(100), new(big.Int).SetBytes(tx.Data()[36:]).Int64())
	assert.Equal(t, config.GasLimitMint, tx.Gas())
	assert.Contains(t, h.out.String(), "invalid amount")
	assert.Contains(t, h.out.String(), "mint sent")
}

func TestTransferRepromptsBadAddress(t *testing.T) {
	h := newHarness(t, "1\n1\n1\n3\n0x1234\n0x000000000000000000000000000000000000dEaD\n7\n", nil)
	seed(t, h, registry.StatusVerified)

	steps(t, h.session, 4)
	require.Len(t, h.client.sent, 1)
	assert.Contains(t, h.out.String(), "invalid address")
	assert.Equal(t, contract.SelectorHex("transfer(address,uint256)")[2:], common.Bytes2Hex(h.client.sent[0].Data()[:4]))
}

func TestRenounceRequiresConfirmation(t *testing.T) {
	h := newHarness(t, "1\n1\n1\n4\nn\n4\ny\n", nil)
	seed(t, h, registry.StatusVerified)

	steps(t, h.session, 4)
	assert.Empty(t, h.client.sent)
	assert.Contains(t, h.out.String(), "Cancelled.")

	steps(t, h.session, 1)
	require.Len(t, h.client.sent, 1)
	assert.Len(t, h.client.sent[0].Data(), 4)
}

func TestBurnUsesFreshNonce(t *testing.T) {
	h := newHarness(t, "1\n1\n1\n2\n1\n2\n1\n", nil)
	h.client.nonce = 5
	seed(t, h, registry.StatusVerified)

	steps(t, h.session, 5)
	require.Len(t, h.client.sent, 2)
	assert.Equal(t, uint64(5), h.client.sent[0].Nonce())
	assert.Equal(t, uint64(6), h.client.sent[1].Nonce())
}

func TestActionBackReturnsToActions(t *testing.T) {
	h := newHarness(t, "1\n1\n1\n1\nb\n", nil)
	seed(t, h, registry.StatusVerified)

	steps(t, h.session, 4)
	assert.Equal(t, PostActions, h.session.State())
	assert.Empty(t, h.client.sent)
}

func TestStateString(t *testing.T) {
	assert.Equal(t, "token-menu", TokenMenu.String())
	assert.Equal(t, "state(9)", State(9).String())
}

func TestDialFailureStaysOnChainSelect(t *testing.T) {
	h := newHarness(t, "1\n1\n", nil)
	h.session.cfg.Dial = func(context.Context, string) (chain.Client, error) {
		return nil, errors.New("dial tcp: connection refused")
	}
	steps(t, h.session, 2)
	assert.Equal(t, ChainSelect, h.session.State())
	assert.Contains(t, h.out.String(), "connection refused")
}
