package cmd

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"os"
	"regexp"
	"sort"
	"strings"

	"github.com/Mohsinsiddi/tokenforge/internal/config"
	"github.com/Mohsinsiddi/tokenforge/internal/ui"
	"github.com/Mohsinsiddi/tokenforge/internal/wallet"
	"github.com/samber/lo"
	"github.com/spf13/cobra"
	"golang.org/x/term"
)

// Key labels also name keychain entries, so they stay shell and URL safe.
var labelRe = regexp.MustCompile(`^[A-Za-z0-9_.-]+$`)

var keyCmd = &cobra.Command{
	Use:   "key",
	Short: "Manage deployer keys",
}

var keyImportCmd = &cobra.Command{
	Use:   "import <label>",
	Short: "Store a private key in the OS keychain and reference it from the keys file",
	Long: `Reads a hex private key from the terminal (hidden) or stdin, stores it in the
OS keychain and appends "<label>=keyring:tokenforge.<label>" to the keys file.`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		label := args[0]
		if !labelRe.MatchString(label) {
			return fmt.Errorf("invalid label %q: use letters, digits, '_', '.' or '-'", label)
		}

		a, err := loadApp(cmd)
		if err != nil {
			return err
		}
		defer a.log.Sync() //nolint:errcheck

		hexKey, err := readSecret(cmd.InOrStdin(), cmd.ErrOrStderr())
		if err != nil {
			return err
		}
		signer, err := wallet.NewSigner(label, hexKey)
		if err != nil {
			return err
		}

		ref, err := wallet.DefaultKeystore().Store(label, hexKey)
		if err != nil {
			return err
		}
		if err := appendKeyLine(a.settings.KeysFile, label, wallet.KeyringSecret(ref)); err != nil {
			return err
		}
		fmt.Fprintln(cmd.OutOrStdout(), ui.Success(fmt.Sprintf("Key %q imported: %s", label, ui.Addr(signer.Address().Hex()))))
		return nil
	},
}

var keyListCmd = &cobra.Command{
	Use:   "list",
	Short: "List key labels from the keys file",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, _ []string) error {
		a, err := loadApp(cmd)
		if err != nil {
			return err
		}
		defer a.log.Sync() //nolint:errcheck

		keys, err := config.LoadKeys(a.settings.KeysFile)
		if err != nil {
			return err
		}
		labels := lo.Keys(keys)
		sort.Strings(labels)

		rows := lo.Map(labels, func(label string, _ int) []string {
			entry := keys[label]
			if strings.HasPrefix(entry.Secret, wallet.KeyringPrefix) {
				return []string{label, "keychain", "-"}
			}
			addr := "invalid key"
			if s, err := wallet.NewSigner(label, entry.Secret); err == nil {
				addr = s.Address().Hex()
			}
			return []string{label, "keys file", addr}
		})
		fmt.Fprintln(cmd.OutOrStdout(), ui.RenderTable([]string{"Label", "Source", "Address"}, rows))
		return nil
	},
}

func init() {
	keyCmd.AddCommand(keyImportCmd, keyListCmd)
}

// readSecret reads one line, without echo when in is a terminal.
func readSecret(in io.Reader, prompt io.Writer) (string, error) {
	if f, ok := in.(*os.File); ok && term.IsTerminal(int(f.Fd())) {
		fmt.Fprint(prompt, "Private key: ")
		b, err := term.ReadPassword(int(f.Fd()))
		fmt.Fprintln(prompt)
		if err != nil {
			return "", fmt.Errorf("reading key: %w", err)
		}
		return strings.TrimSpace(string(b)), nil
	}

	line, err := bufio.NewReader(in).ReadString('\n')
	if err != nil && !errors.Is(err, io.EOF) {
		return "", fmt.Errorf("reading key: %w", err)
	}
	line = strings.TrimSpace(line)
	if line == "" {
		return "", errors.New("no private key given")
	}
	return line, nil
}

// appendKeyLine adds label=secret to the keys file, creating it if needed.
func appendKeyLine(path, label, secret string) error {
	f, err := os.OpenFile(path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o600)
	if err != nil {
		return fmt.Errorf("opening keys file: %w", err)
	}
	defer f.Close()

	info, err := f.Stat()
	if err != nil {
		return fmt.Errorf("stat keys file: %w", err)
	}
	line := label + "=" + secret + "\n"
	if info.Size() > 0 {
		line = "\n" + line
	}
	if _, err := f.WriteString(line); err != nil {
		return fmt.Errorf("writing keys file: %w", err)
	}
	return nil
}
