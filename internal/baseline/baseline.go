// Package baseline stores accepted findings so they are not reported again.
//
// A finding is identified by a fingerprint over its guideline ID, file,
// line and message. Rewording a rule's message therefore makes its
// baselined findings new again; the message distinguishes violations that
// share a location, so it stays in the fingerprint.
//
// The store takes no file locks. Concurrent updates of one baseline file
// must be serialized by the caller.
package baseline

import (
	"bytes"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"sort"
	"strconv"

	"github.com/hashicorp/go-hclog"

	"github.com/coreyt/sine/internal/findings"
	"github.com/coreyt/sine/pkg/shared/files"
)

// DocumentVersion is written to and expected in baseline files.
const DocumentVersion = 1

// Entry is one accepted finding.
type Entry struct {
	GuidelineID string `json:"guideline_id"`
	File        string `json:"file"`
	Line        int    `json:"line"`
	Hash        string `json:"hash"`
}

// Baseline is a deduplicated set of entries kept in document order.
type Baseline struct {
	Entries []Entry
}

type document struct {
	Version    int     `json:"version"`
	Violations []Entry `json:"violations"`
}

// Fingerprint returns the first 8 hex characters of the SHA-256 of
// "guideline_id|file|line|message".
func Fingerprint(f findings.Finding) string {
	key := f.GuidelineID + "|" + f.File + "|" + strconv.Itoa(f.Line) + "|" + f.Message
	sum := sha256.Sum256([]byte(key))
	return hex.EncodeToString(sum[:])[:8]
}

// EntryFor builds the baseline entry of a finding.
func EntryFor(f findings.Finding) Entry {
	return Entry{GuidelineID: f.GuidelineID, File: f.File, Line: f.Line, Hash: Fingerprint(f)}
}

// FromFindings builds a baseline accepting every finding.
func FromFindings(fs []findings.Finding) *Baseline {
	entries := make([]Entry, 0, len(fs))
	for _, f := range fs {
		entries = append(entries, EntryFor(f))
	}
	return newBaseline(entries)
}

func newBaseline(entries []Entry) *Baseline {
	seen := make(map[Entry]struct{}, len(entries))
	unique := make([]Entry, 0, len(entries))
	for _, e := range entries {
		if _, ok := seen[e]; ok {
			continue
		}
		seen[e] = struct{}{}
		unique = append(unique, e)
	}
	sort.Slice(unique, func(i, j int) bool {
		a, b := unique[i], unique[j]
		if a.GuidelineID != b.GuidelineID {
			return a.GuidelineID < b.GuidelineID
		}
		if a.File != b.File {
			return a.File < b.File
		}
		if a.Line != b.Line {
			return a.Line < b.Line
		}
		return a.Hash < b.Hash
	})
	return &Baseline{Entries: unique}
}

// Hashes returns the set of fingerprints in b.
func (b *Baseline) Hashes() map[string]struct{} {
	set := make(map[string]struct{}, len(b.Entries))
	for _, e := range b.Entries {
		set[e.Hash] = struct{}{}
	}
	return set
}

// Len returns the number of entries.
func (b *Baseline) Len() int {
	if b == nil {
		return 0
	}
	return len(b.Entries)
}

// Load reads the baseline at path. A missing file yields (nil, nil).
func Load(path string) (*Baseline, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to read baseline %q: %w", path, err)
	}

	var doc document
	if err := json.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("failed to parse baseline %q: %w", path, err)
	}
	if doc.Version != DocumentVersion {
		return nil, fmt.Errorf("baseline %q has unsupported version %d", path, doc.Version)
	}
	return newBaseline(doc.Violations), nil
}

// LoadOrNil is Load that never fails: an unreadable baseline is logged and
// treated as absent, so enforcement is never blocked by it.
func LoadOrNil(path string, logger hclog.Logger) *Baseline {
	b, err := Load(path)
	if err != nil {
		logger.Warn("ignoring unreadable baseline", "path", path, "err", err)
		return nil
	}
	return b
}

// FilterNew returns the findings whose fingerprint is not in b. A nil b means every finding is new.
func FilterNew(fs []findings.Finding, b *Baseline) []findings.Finding {
	if b == nil {
		return fs
	}
	known := b.Hashes()
	var out []findings.Finding
	for _, f := range fs {
		if _, ok := known[Fingerprint(f)]; !ok {
			out = append(out, f)
		}
	}
	return out
}

// Diff splits a run against a baseline.
type Diff struct {
	// New findings are not covered by the baseline.
	New []findings.Finding
	// Known findings are suppressed by it.
	Known []findings.Finding
	// Fixed entries matched no current finding.
	Fixed []Entry
}

// Compare computes the Diff of fs against b.
func Compare(fs []findings.Finding, b *Baseline) Diff {
	var d Diff
	if b == nil {
		d.New = fs
		return d
	}

	known := b.Hashes()
	current := make(map[string]struct{}, len(fs))
	for _, f := range fs {
		h := Fingerprint(f)
		current[h] = struct{}{}
		if _, ok := known[h]; ok {
			d.Known = append(d.Known, f)
		} else {
			d.New = append(d.New, f)
		}
	}
	for _, e := range b.Entries {
		if _, ok := current[e.Hash]; !ok {
			d.Fixed = append(d.Fixed, e)
		}
	}
	return d
}

// Marshal renders b as a baseline document: 2-space indented JSON with a trailing newline.
func Marshal(b *Baseline) ([]byte, error) {
	doc := document{Version: DocumentVersion, Violations: []Entry{}}
	if b != nil {
		doc.Violations = newBaseline(b.Entries).Entries
	}

	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	enc.SetIndent("", "  ")
	if err := enc.Encode(doc); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// Write atomically replaces the file at path with b.
func Write(path string, b *Baseline) error {
	data, err := Marshal(b)
	if err != nil {
		return fmt.Errorf("failed to encode baseline: %w", err)
	}
	if err := files.WriteFileAtomic(path, data, 0o644); err != nil {
		return fmt.Errorf("failed to write baseline %q: %w", path, err)
	}
	return nil
}

// Replace overwrites the baseline at path with exactly the given findings.
// Entries of the previous baseline are not carried over.
func Replace(path string, fs []findings.Finding) error {
	return Write(path, FromFindings(fs))
}
