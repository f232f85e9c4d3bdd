package registry

import (
	"encoding/csv"
	"errors"
	"fmt"
	"os"
	"strings"

	"go.uber.org/zap"
)

const headerPrefix = "# tokenforge-registry"

// ErrUnsupportedVersion is returned for a registry written by a newer release.
var ErrUnsupportedVersion = errors.New("unsupported registry version")

// Migrate upconverts a header-less legacy registry to the current format and
// returns how many records were converted. Current-format and missing files
// are left untouched.
//
// Legacy line shapes, oldest first:
//
//	token,address
//	token,address,deployer
//	token,address,status,deployer
//	chain,token,address,status,deployer
func (r *Registry) Migrate() (int, error) {
	data, err := os.ReadFile(r.path)
	if errors.Is(err, os.ErrNotExist) {
		return 0, nil
	}
	if err != nil {
		return 0, fmt.Errorf("reading registry: %w", err)
	}

	lines := splitLines(data)
	if len(lines) == 0 {
		return 0, nil
	}
	if first := strings.TrimSpace(lines[0]); strings.HasPrefix(first, headerPrefix) {
		if first != Header {
			return 0, fmt.Errorf("%w: %q", ErrUnsupportedVersion, first)
		}
		return 0, nil
	}

	var records []Record
	for i, line := range lines {
		if strings.TrimSpace(line) == "" {
			continue
		}
		rec, reason := r.upconvert(line)
		if reason != "" {
			r.report(&CorruptionError{Path: r.path, Line: i + 1, Raw: line, Reason: reason})
			continue
		}
		records = append(records, rec)
	}

	if err := r.rewrite(records); err != nil {
		return 0, fmt.Errorf("migrating registry: %w", err)
	}
	r.log.Info("registry migrated", zap.String("path", r.path), zap.Int("records", len(records)))
	return len(records), nil
}

func (r *Registry) upconvert(line string) (Record, string) {
	fields, err := csv.NewReader(strings.NewReader(line)).Read()
	if err != nil {
		return Record{}, "unparseable line: " + err.Error()
	}
	for i := range fields {
		fields[i] = strings.TrimSpace(fields[i])
	}

	rec := Record{Chain: r.legacyChain, Status: StatusUnverified}
	switch len(fields) {
	case 2:
		rec.Token, rec.Address = fields[0], fields[1]
	case 3:
		rec.Token, rec.Address, rec.Deployer = fields[0], fields[1], fields[2]
	case 4:
		rec.Token, rec.Address, rec.Status, rec.Deployer = fields[0], fields[1], Status(fields[2]), fields[3]
	case 5:
		rec.Chain, rec.Token, rec.Address, rec.Status, rec.Deployer = fields[0], fields[1], fields[2], Status(fields[3]), fields[4]
	default:
		return Record{}, fmt.Sprintf("legacy line has %d fields", len(fields))
	}
	if err := validate(rec); err != nil {
		return Record{}, err.Error()
	}
	return rec, ""
}
