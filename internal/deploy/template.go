package deploy

import (
	"bytes"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"strings"
	"text/template"

	"github.com/Mohsinsiddi/tokenforge/internal/contract"
)

// ErrInvalidToken is returned for names, symbols or supplies that cannot be
// rendered into a compilable contract.
var ErrInvalidToken = errors.New("invalid token parameters")

var identRe = regexp.MustCompile(`^[A-Za-z_][A-Za-z0-9_]*$`)

var tokenTemplate = template.Must(template.New("token").Parse(`// SPDX-License-Identifier: MIT
pragma solidity ^0.8.19;

import "@openzeppelin/contracts/token/ERC20/ERC20.sol";
import "@openzeppelin/contracts/access/Ownable.sol";

contract {{.Name}} is ERC20, Ownable {
    constructor() ERC20("{{.Name}}", "{{.Symbol}}") Ownable(msg.sender) {
        _mint(msg.sender, {{.Supply}} * 10 ** decimals());
    }

    function mint(address to, uint256 amount) public onlyOwner {
        _mint(to, amount * 10 ** decimals());
    }

    function burn(uint256 amount) public {
        _burn(msg.sender, amount * 10 ** decimals());
    }

    function renounce() public onlyOwner {
        renounceOwnership();
    }
}
`))

// Source holds the values substituted into the token template.
type Source struct {
	Name   string
	Symbol string
	Supply string // whole tokens
}

// SanitizeName trims name and replaces spaces with underscores.
func SanitizeName(name string) string {
	return strings.ReplaceAll(strings.TrimSpace(name), " ", "_")
}

// ValidateName checks that name, once sanitized, is a Solidity identifier.
func ValidateName(name string) error {
	if !identRe.MatchString(SanitizeName(name)) {
		return fmt.Errorf("%w: name %q is not a valid contract identifier", ErrInvalidToken, name)
	}
	return nil
}

// ValidateSymbol rejects symbols that would break the rendered string literal.
func ValidateSymbol(symbol string) error {
	if strings.TrimSpace(symbol) == "" || strings.ContainsAny(symbol, "\"\\\n") {
		return fmt.Errorf("%w: symbol %q", ErrInvalidToken, symbol)
	}
	return nil
}

// Validate checks that src renders into a compilable contract.
func (src Source) Validate() error {
	if !identRe.MatchString(src.Name) {
		return fmt.Errorf("%w: name %q is not a valid contract identifier", ErrInvalidToken, src.Name)
	}
	if err := ValidateSymbol(src.Symbol); err != nil {
		return err
	}
	if _, err := contract.ParseAmount(src.Supply); err != nil {
		return fmt.Errorf("%w: supply: %v", ErrInvalidToken, err)
	}
	return nil
}

// Render returns the Solidity source for src.
func Render(src Source) ([]byte, error) {
	if err := src.Validate(); err != nil {
		return nil, err
	}
	var buf bytes.Buffer
	if err := tokenTemplate.Execute(&buf, src); err != nil {
		return nil, fmt.Errorf("rendering template: %w", err)
	}
	return buf.Bytes(), nil
}

// WriteSource renders src into dir/<Name>.sol and returns the file path.
func WriteSource(dir string, src Source) (string, error) {
	code, err := Render(src)
	if err != nil {
		return "", err
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", fmt.Errorf("creating contracts dir: %w", err)
	}
	path := filepath.Join(dir, src.Name+".sol")
	if err := os.WriteFile(path, code, 0o644); err != nil {
		return "", fmt.Errorf("writing %s: %w", path, err)
	}
	return path, nil
}
