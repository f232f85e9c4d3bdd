// Package registry persists deployed-token records in a versioned CSV file.
//
// The file starts with a version header followed by one record per line:
//
//	# tokenforge-registry v2
//	chain,token,address,status,deployer
//
// Files written by older releases have no header and fewer fields; they are
// upconverted once by Migrate (called implicitly by every operation).
package registry

import (
	"bytes"
	"encoding/csv"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/samber/lo"
	"go.uber.org/zap"
)

// Header is the first line of a current-format registry file.
const Header = "# tokenforge-registry v2"

// Status is a token's explorer verification state.
type Status string

const (
	StatusUnverified Status = "unverified"
	StatusVerified   Status = "verified"
)

// Valid reports whether s is a known status.
func (s Status) Valid() bool {
	return s == StatusUnverified || s == StatusVerified
}

// Errors.
var (
	ErrRecordNotFound     = errors.New("token record not found")
	ErrStatusRegression   = errors.New("verification status cannot go from verified to unverified")
	ErrInvalidRecord      = errors.New("invalid token record")
	ErrRegistryCorruption = errors.New("registry corruption")
)

// Record is one deployed token.
type Record struct {
	Chain    string
	Token    string
	Address  string
	Status   Status
	Deployer string
}

// Verified reports whether the record has been verified on an explorer.
func (r Record) Verified() bool { return r.Status == StatusVerified }

// CorruptionError describes a registry line that could not be parsed. It is a
// warning: the line is skipped on read and dropped on the next rewrite.
type CorruptionError struct {
	Path   string
	Line   int
	Raw    string
	Reason string
}

func (e *CorruptionError) Error() string {
	return fmt.Sprintf("%s:%d: %s (line %q skipped)", e.Path, e.Line, e.Reason, e.Raw)
}

func (e *CorruptionError) Unwrap() error { return ErrRegistryCorruption }

// Registry stores token records in a single file. It assumes a single writer.
type Registry struct {
	path        string
	legacyChain string
	warn        func(*CorruptionError)
	log         *zap.Logger
}

// Option configures a Registry.
type Option func(*Registry)

// WithLegacyChain sets the chain name assigned to legacy lines that predate
// the chain column.
func WithLegacyChain(name string) Option {
	return func(r *Registry) { r.legacyChain = name }
}

// WithWarningHandler receives every corrupt line found while reading.
func WithWarningHandler(fn func(*CorruptionError)) Option {
	return func(r *Registry) { r.warn = fn }
}

// WithLogger sets the logger.
func WithLogger(l *zap.Logger) Option {
	return func(r *Registry) { r.log = l }
}

// New creates a Registry backed by path. The file is created lazily.
func New(path string, opts ...Option) *Registry {
	r := &Registry{
		path:        path,
		legacyChain: "default",
		log:         zap.NewNop(),
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Path returns the backing file path.
func (r *Registry) Path() string { return r.path }

// Append adds rec to the end of the registry. It never deduplicates.
func (r *Registry) Append(rec Record) error {
	if err := validate(rec); err != nil {
		return err
	}
	if _, err := r.Migrate(); err != nil {
		return err
	}

	f, err := os.OpenFile(r.path, os.O_APPEND|os.O_CREATE|os.O_RDWR, 0o600)
	if err != nil {
		return fmt.Errorf("opening registry: %w", err)
	}
	defer f.Close()

	info, err := f.Stat()
	if err != nil {
		return fmt.Errorf("stat registry: %w", err)
	}

	var buf bytes.Buffer
	switch {
	case info.Size() == 0:
		buf.WriteString(Header + "\n")
	case !endsWithNewline(f, info.Size()):
		buf.WriteByte('\n')
	}
	if err := writeRecords(&buf, []Record{rec}); err != nil {
		return err
	}
	if _, err := f.Write(buf.Bytes()); err != nil {
		return fmt.Errorf("appending to registry: %w", err)
	}

	r.log.Debug("registry append",
		zap.String("chain", rec.Chain),
		zap.String("token", rec.Token),
		zap.String("address", rec.Address))
	return nil
}

// Query returns the records deployed on chain by deployer, in file order.
// Chain matches exactly; deployer matches case-insensitively.
func (r *Registry) Query(chain, deployer string) ([]Record, error) {
	all, err := r.All()
	if err != nil {
		return nil, err
	}
	return lo.Filter(all, func(rec Record, _ int) bool {
		return rec.Chain == chain && strings.EqualFold(rec.Deployer, deployer)
	}), nil
}

// All returns every valid record, in file order.
func (r *Registry) All() ([]Record, error) {
	if _, err := r.Migrate(); err != nil {
		return nil, err
	}
	records, _, err := r.read()
	return records, err
}

// UpdateStatus rewrites the registry with status applied to every record
// matching (chain, token, address, deployer). Addresses compare
// case-insensitively. Corrupt lines are dropped by the rewrite. Setting the
// status a record already has is a no-op.
func (r *Registry) UpdateStatus(chain, token, address, deployer string, status Status) error {
	if !status.Valid() {
		return fmt.Errorf("%w: status %q", ErrInvalidRecord, status)
	}
	if _, err := r.Migrate(); err != nil {
		return err
	}

	records, corrupt, err := r.read()
	if err != nil {
		return err
	}

	matched, changed := false, false
	for i := range records {
		rec := &records[i]
		if rec.Chain != chain || rec.Token != token ||
			!strings.EqualFold(rec.Address, address) ||
			!strings.EqualFold(rec.Deployer, deployer) {
			continue
		}
		matched = true
		if rec.Status == status {
			continue
		}
		if rec.Verified() && status == StatusUnverified {
			return fmt.Errorf("%w: %s on %s", ErrStatusRegression, token, chain)
		}
		rec.Status = status
		changed = true
	}
	if !matched {
		return fmt.Errorf("%w: %s (%s) on %s", ErrRecordNotFound, token, address, chain)
	}
	if !changed && corrupt == 0 {
		return nil
	}

	if err := r.rewrite(records); err != nil {
		return err
	}
	r.log.Info("registry status updated",
		zap.String("chain", chain),
		zap.String("token", token),
		zap.String("status", string(status)),
		zap.Int("dropped_lines", corrupt))
	return nil
}

// --- internal ---

// read parses the current-format file. Missing file yields no records.
func (r *Registry) read() ([]Record, int, error) {
	data, err := os.ReadFile(r.path)
	if errors.Is(err, os.ErrNotExist) {
		return nil, 0, nil
	}
	if err != nil {
		return nil, 0, fmt.Errorf("reading registry: %w", err)
	}

	var (
		records []Record
		corrupt int
	)
	for i, line := range splitLines(data) {
		if i == 0 && line == Header {
			continue
		}
		if strings.TrimSpace(line) == "" {
			continue
		}
		rec, reason := parseLine(line)
		if reason != "" {
			corrupt++
			r.report(&CorruptionError{Path: r.path, Line: i + 1, Raw: line, Reason: reason})
			continue
		}
		records = append(records, rec)
	}
	return records, corrupt, nil
}

func (r *Registry) report(ce *CorruptionError) {
	r.log.Warn("registry line skipped", zap.String("path", ce.Path), zap.Int("line", ce.Line), zap.String("reason", ce.Reason))
	if r.warn != nil {
		r.warn(ce)
	}
}

// rewrite atomically replaces the registry file with records.
func (r *Registry) rewrite(records []Record) error {
	var buf bytes.Buffer
	buf.WriteString(Header + "\n")
	if err := writeRecords(&buf, records); err != nil {
		return err
	}

	dir := filepath.Dir(r.path)
	tmp, err := os.CreateTemp(dir, ".tokens-*.csv")
	if err != nil {
		return fmt.Errorf("creating temp registry: %w", err)
	}
	tmpName := tmp.Name()
	defer os.Remove(tmpName) //nolint:errcheck

	if _, err := tmp.Write(buf.Bytes()); err != nil {
		tmp.Close()
		return fmt.Errorf("writing temp registry: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("closing temp registry: %w", err)
	}
	if err := os.Chmod(tmpName, 0o600); err != nil {
		return fmt.Errorf("chmod temp registry: %w", err)
	}
	if err := os.Rename(tmpName, r.path); err != nil {
		return fmt.Errorf("replacing registry: %w", err)
	}
	return nil
}

func parseLine(line string) (Record, string) {
	fields, err := csv.NewReader(strings.NewReader(line)).Read()
	if err != nil {
		return Record{}, "unparseable line: " + err.Error()
	}
	if len(fields) != 5 {
		return Record{}, fmt.Sprintf("expected 5 fields, got %d", len(fields))
	}
	rec := Record{
		Chain:    strings.TrimSpace(fields[0]),
		Token:    strings.TrimSpace(fields[1]),
		Address:  strings.TrimSpace(fields[2]),
		Status:   Status(strings.TrimSpace(fields[3])),
		Deployer: strings.TrimSpace(fields[4]),
	}
	if err := validate(rec); err != nil {
		return Record{}, err.Error()
	}
	return rec, ""
}

func validate(rec Record) error {
	switch {
	case rec.Chain == "":
		return fmt.Errorf("%w: empty chain", ErrInvalidRecord)
	case rec.Token == "":
		return fmt.Errorf("%w: empty token name", ErrInvalidRecord)
	case rec.Address == "":
		return fmt.Errorf("%w: empty address", ErrInvalidRecord)
	case !rec.Status.Valid():
		return fmt.Errorf("%w: unknown status %q", ErrInvalidRecord, rec.Status)
	}
	return nil
}

func writeRecords(buf *bytes.Buffer, records []Record) error {
	w := csv.NewWriter(buf)
	for _, rec := range records {
		if err := w.Write([]string{rec.Chain, rec.Token, rec.Address, string(rec.Status), rec.Deployer}); err != nil {
			return fmt.Errorf("encoding record: %w", err)
		}
	}
	w.Flush()
	return w.Error()
}

func splitLines(data []byte) []string {
	s := strings.ReplaceAll(string(data), "\r\n", "\n")
	s = strings.TrimSuffix(s, "\n")
	if s == "" {
		return nil
	}
	return strings.Split(s, "\n")
}

func endsWithNewline(f *os.File, size int64) bool {
	last := make([]byte, 1)
	if _, err := f.ReadAt(last, size-1); err != nil {
		return true
	}
	return last[0] == '\n'
}
