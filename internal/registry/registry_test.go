package registry_test

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/Mohsinsiddi/tokenforge/internal/registry"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const (
	deployerA = "0x8ba1f109551bD432803012645Ac136ddd64DBA72"
	deployerB = "0xAb5801a7D398351b8bE11C439e05C5B3259aeC9B"
)

func newRegistry(t *testing.T, opts ...registry.Option) *registry.Registry {
	t.Helper()
	return registry.New(filepath.Join(t.TempDir(), "tokens.csv"), opts...)
}

func fooRecord() registry.Record {
	return registry.Record{
		Chain:    "sepolia",
		Token:    "Foo",
		Address:  "0xAbCd000000000000000000000000000000000001",
		Status:   registry.StatusUnverified,
		Deployer: deployerA,
	}
}

func readFile(t *testing.T, path string) string {
	t.Helper()
	data, err := os.ReadFile(path)
	require.NoError(t, err)
	return string(data)
}

func TestQueryEmptyRegistry(t *testing.T) {
	reg := newRegistry(t)
	got, err := reg.Query("sepolia", deployerA)
	require.NoError(t, err)
	assert.Empty(t, got)
}

func TestAppendQueryRoundTrip(t *testing.T) {
	reg := newRegistry(t)
	rec := fooRecord()
	require.NoError(t, reg.Append(rec))

	got, err := reg.Query("sepolia", deployerA)
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, rec, got[0])

	assert.True(t, strings.HasPrefix(readFile(t, reg.Path()), registry.Header+"\n"))
}

func TestAppendRoundTripQuotedName(t *testing.T) {
	reg := newRegistry(t)
	rec := fooRecord()
	rec.Token = `Foo, "the token"`
	require.NoError(t, reg.Append(rec))

	got, err := reg.Query("sepolia", deployerA)
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, rec.Token, got[0].Token)
}

func TestQueryDeployerCaseInsensitive(t *testing.T) {
	reg := newRegistry(t)
	require.NoError(t, reg.Append(fooRecord()))

	got, err := reg.Query("sepolia", strings.ToLower(deployerA))
	require.NoError(t, err)
	assert.Len(t, got, 1)
}

func TestQueryChainExact(t *testing.T) {
	reg := newRegistry(t)
	require.NoError(t, reg.Append(fooRecord()))

	got, err := reg.Query("Sepolia", deployerA)
	require.NoError(t, err)
	assert.Empty(t, got)
}

func TestQueryFiltersByDeployerAndChain(t *testing.T) {
	reg := newRegistry(t)
	a := fooRecord()
	b := fooRecord()
	b.Deployer = deployerB
	c := fooRecord()
	c.Chain = "base"
	for _, rec := range []registry.Record{a, b, c} {
		require.NoError(t, reg.Append(rec))
	}

	got, err := reg.Query("sepolia", deployerA)
	require.NoError(t, err)
	assert.Equal(t, []registry.Record{a}, got)
}

func TestAppendNeverDeduplicates(t *testing.T) {
	reg := newRegistry(t)
	require.NoError(t, reg.Append(fooRecord()))
	second := fooRecord()
	second.Address = "0xAbCd000000000000000000000000000000000002"
	require.NoError(t, reg.Append(second))

	got, err := reg.Query("sepolia", deployerA)
	require.NoError(t, err)
	assert.Len(t, got, 2)
}

func TestAppendRejectsInvalid(t *testing.T) {
	reg := newRegistry(t)
	rec := fooRecord()
	rec.Status = "pending"
	assert.ErrorIs(t, reg.Append(rec), registry.ErrInvalidRecord)

	rec = fooRecord()
	rec.Address = ""
	assert.ErrorIs(t, reg.Append(rec), registry.ErrInvalidRecord)
}

func TestAppendAfterMissingTrailingNewline(t *testing.T) {
	path := filepath.Join(t.TempDir(), "tokens.csv")
	content := registry.Header + "\nsepolia,Old,0x01,verified," + deployerA
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))

	reg := registry.New(path)
	require.NoError(t, reg.Append(fooRecord()))

	all, err := reg.All()
	require.NoError(t, err)
	assert.Len(t, all, 2)
}

func TestUpdateStatusIdempotent(t *testing.T) {
	reg := newRegistry(t)
	rec := fooRecord()
	require.NoError(t, reg.Append(rec))

	require.NoError(t, reg.UpdateStatus(rec.Chain, rec.Token, rec.Address, rec.Deployer, registry.StatusVerified))
	after1 := readFile(t, reg.Path())

	require.NoError(t, reg.UpdateStatus(rec.Chain, rec.Token, rec.Address, rec.Deployer, registry.StatusVerified))
	after2 := readFile(t, reg.Path())

	assert.Equal(t, after1, after2)
	got, err := reg.Query(rec.Chain, rec.Deployer)
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, registry.StatusVerified, got[0].Status)
}

func TestUpdateStatusCaseInsensitiveAddress(t *testing.T) {
	reg := newRegistry(t)
	rec := fooRecord()
	require.NoError(t, reg.Append(rec))

	err := reg.UpdateStatus(rec.Chain, rec.Token, strings.ToLower(rec.Address), strings.ToUpper(rec.Deployer[2:]), registry.StatusVerified)
	// Deployer without 0x prefix does not match.
	assert.ErrorIs(t, err, registry.ErrRecordNotFound)

	err = reg.UpdateStatus(rec.Chain, rec.Token, strings.ToLower(rec.Address), strings.ToLower(rec.Deployer), registry.StatusVerified)
	require.NoError(t, err)
}

func TestUpdateStatusLeavesOthersUntouched(t *testing.T) {
	reg := newRegistry(t)
	target := fooRecord()
	other := fooRecord()
	other.Token = "Bar"
	other.Address = "0x0000000000000000000000000000000000000bar"
	require.NoError(t, reg.Append(target))
	require.NoError(t, reg.Append(other))

	require.NoError(t, reg.UpdateStatus(target.Chain, target.Token, target.Address, target.Deployer, registry.StatusVerified))

	all, err := reg.All()
	require.NoError(t, err)
	require.Len(t, all, 2)
	assert.Equal(t, registry.StatusVerified, all[0].Status)
	assert.Equal(t, other, all[1])
}

func TestUpdateStatusNotFound(t *testing.T) {
	reg := newRegistry(t)
	require.NoError(t, reg.Append(fooRecord()))
	err := reg.UpdateStatus("sepolia", "Nope", "0x01", deployerA, registry.StatusVerified)
	assert.ErrorIs(t, err, registry.ErrRecordNotFound)
}

func TestUpdateStatusRejectsRegression(t *testing.T) {
	reg := newRegistry(t)
	rec := fooRecord()
	rec.Status = registry.StatusVerified
	require.NoError(t, reg.Append(rec))

	err := reg.UpdateStatus(rec.Chain, rec.Token, rec.Address, rec.Deployer, registry.StatusUnverified)
	assert.ErrorIs(t, err, registry.ErrStatusRegression)
}

func TestCorruptLinesWarnedAndDroppedOnRewrite(t *testing.T) {
	path := filepath.Join(t.TempDir(), "tokens.csv")
	rec := fooRecord()
	content := registry.Header + "\n" +
		"sepolia,Foo," + rec.Address + ",unverified," + deployerA + "\n" +
		"garbage,line\n" +
		"sepolia,Bad,0x02,maybe," + deployerA + "\n"
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))

	var warnings []*registry.CorruptionError
	reg := registry.New(path, registry.WithWarningHandler(func(ce *registry.CorruptionError) {
		warnings = append(warnings, ce)
	}))

	got, err := reg.Query("sepolia", deployerA)
	require.NoError(t, err)
	assert.Len(t, got, 1)
	require.Len(t, warnings, 2)
	assert.Equal(t, 3, warnings[0].Line)
	assert.Equal(t, 4, warnings[1].Line)
	assert.ErrorIs(t, warnings[0], registry.ErrRegistryCorruption)

	require.NoError(t, reg.UpdateStatus("sepolia", "Foo", rec.Address, deployerA, registry.StatusVerified))
	after := readFile(t, path)
	assert.NotContains(t, after, "garbage")
	assert.NotContains(t, after, "maybe")
}

func TestMigrateLegacyShapes(t *testing.T) {
	path := filepath.Join(t.TempDir(), "tokens.csv")
	legacy := strings.Join([]string{
		"Old,0x0000000000000000000000000000000000000001",
		"Mid,0x0000000000000000000000000000000000000002," + deployerA,
		"Late,0x0000000000000000000000000000000000000003,verified," + deployerA,
		"base,New,0x0000000000000000000000000000000000000004,unverified," + deployerA,
		"one,two,three,four,five,six",
	}, "\n") + "\n"
	require.NoError(t, os.WriteFile(path, []byte(legacy), 0o600))

	var warnings int
	reg := registry.New(path,
		registry.WithLegacyChain("sepolia"),
		registry.WithWarningHandler(func(*registry.CorruptionError) { warnings++ }))

	n, err := reg.Migrate()
	require.NoError(t, err)
	assert.Equal(t, 4, n)
	assert.Equal(t, 1, warnings)

	all, err := reg.All()
	require.NoError(t, err)
	require.Len(t, all, 4)

	assert.Equal(t, registry.Record{Chain: "sepolia", Token: "Old", Address: "0x0000000000000000000000000000000000000001", Status: registry.StatusUnverified}, all[0])
	assert.Equal(t, deployerA, all[1].Deployer)
	assert.Equal(t, registry.StatusVerified, all[2].Status)
	assert.Equal(t, "base", all[3].Chain)

	assert.True(t, strings.HasPrefix(readFile(t, path), registry.Header))

	// Second run is a no-op.
	n, err = reg.Migrate()
	require.NoError(t, err)
	assert.Zero(t, n)
}

func TestMigrateUnsupportedVersion(t *testing.T) {
	path := filepath.Join(t.TempDir(), "tokens.csv")
	require.NoError(t, os.WriteFile(path, []byte("# tokenforge-registry v9\n"), 0o600))

	_, err := registry.New(path).All()
	assert.ErrorIs(t, err, registry.ErrUnsupportedVersion)
}

func TestAppendToLegacyFileMigratesFirst(t *testing.T) {
	path := filepath.Join(t.TempDir(), "tokens.csv")
	require.NoError(t, os.WriteFile(path, []byte("Old,0x01\n"), 0o600))

	reg := registry.New(path, registry.WithLegacyChain("sepolia"))
	require.NoError(t, reg.Append(fooRecord()))

	all, err := reg.All()
	require.NoError(t, err)
	require.Len(t, all, 2)
	assert.Equal(t, "Old", all[0].Token)
	assert.Equal(t, "Foo", all[1].Token)
}
