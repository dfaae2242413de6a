package baseline

import (
	"crypto/sha256"
	"encoding/hex"
	"os"
	"path/filepath"
	"testing"

	"github.com/hashicorp/go-hclog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/coreyt/sine/internal/findings"
)

func finding(id, file string, line int, msg string) findings.Finding {
	return findings.Finding{GuidelineID: id, File: file, Line: line, Message: msg, Engine: findings.Engine}
}

func TestFingerprint(t *testing.T) {
	f := finding("ARCH-010", "a.py", 7, "Do not call eval.")
	sum := sha256.Sum256([]byte("ARCH-010|a.py|7|Do not call eval."))

	assert.Equal(t, hex.EncodeToString(sum[:])[:8], Fingerprint(f))
	assert.Len(t, Fingerprint(f), 8)

	reworded := f
	reworded.Message = "Never call eval."
	assert.NotEqual(t, Fingerprint(f), Fingerprint(reworded), "message is part of the fingerprint")

	// Fields outside the fingerprint do not change it.
	other := f
	other.Snippet = "eval(y)"
	other.Title = "changed"
	assert.Equal(t, Fingerprint(f), Fingerprint(other))
}

func TestFromFindingsDeduplicatesAndSorts(t *testing.T) {
	b := FromFindings([]findings.Finding{
		finding("B-1", "z.py", 1, "m"),
		finding("A-1", "b.py", 9, "m"),
		finding("A-1", "b.py", 2, "m"),
		finding("A-1", "a.py", 5, "m"),
		finding("A-1", "b.py", 2, "m"),
	})

	require.Equal(t, 4, b.Len())
	got := make([]string, 0, b.Len())
	for _, e := range b.Entries {
		got = append(got, e.GuidelineID+" "+e.File)
	}
	assert.Equal(t, []string{"A-1 a.py", "A-1 b.py", "A-1 b.py", "B-1 z.py"}, got)
	assert.Equal(t, 2, b.Entries[1].Line)
	assert.Equal(t, 9, b.Entries[2].Line)
}

func TestFilterNew(t *testing.T) {
	f1 := []findings.Finding{
		finding("ARCH-010", "a.py", 7, "m"),
		finding("ARCH-010", "b.py", 3, "m"),
	}
	x := finding("SEC-001", "c.py", 1, "n")
	f2 := append(append([]findings.Finding{}, f1...), x)

	assert.Equal(t, []findings.Finding{x}, FilterNew(f2, FromFindings(f1)))
	assert.Equal(t, f2, FilterNew(f2, nil))
	assert.Empty(t, FilterNew(f1, FromFindings(f1)))
}

func TestCompare(t *testing.T) {
	kept := finding("ARCH-010", "a.py", 7, "m")
	fixed := finding("ARCH-010", "old.py", 1, "m")
	added := finding("SEC-001", "c.py", 4, "n")

	d := Compare([]findings.Finding{kept, added}, FromFindings([]findings.Finding{kept, fixed}))
	assert.Equal(t, []findings.Finding{added}, d.New)
	assert.Equal(t, []findings.Finding{kept}, d.Known)
	assert.Equal(t, []Entry{EntryFor(fixed)}, d.Fixed)

	d = Compare([]findings.Finding{kept}, nil)
	assert.Equal(t, []findings.Finding{kept}, d.New)
	assert.Empty(t, d.Known)
	assert.Empty(t, d.Fixed)
}

func TestWriteAndLoad(t *testing.T) {
	path := filepath.Join(t.TempDir(), ".sine-baseline.json")
	fs := []findings.Finding{finding("ARCH-010", "a.py", 7, "m")}

	require.NoError(t, Replace(path, fs))

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	want := "{\n" +
		"  \"version\": 1,\n" +
		"  \"violations\": [\n" +
		"    {\n" +
		"      \"guideline_id\": \"ARCH-010\",\n" +
		"      \"file\": \"a.py\",\n" +
		"      \"line\": 7,\n" +
		"      \"hash\": \"" + Fingerprint(fs[0]) + "\"\n" +
		"    }\n" +
		"  ]\n" +
		"}\n"
	assert.Equal(t, want, string(data))

	b, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, FromFindings(fs), b)
}

func TestWriteEmptyBaseline(t *testing.T) {
	path := filepath.Join(t.TempDir(), "b.json")
	require.NoError(t, Replace(path, nil))

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, "{\n  \"version\": 1,\n  \"violations\": []\n}\n", string(data))
}

func TestReplaceIsIdempotent(t *testing.T) {
	path := filepath.Join(t.TempDir(), "b.json")
	fs := []findings.Finding{
		finding("B-1", "z.py", 1, "m"),
		finding("A-1", "a.py", 5, "<tag> & more"),
	}

	require.NoError(t, Replace(path, fs))
	first, err := os.ReadFile(path)
	require.NoError(t, err)

	require.NoError(t, Replace(path, fs))
	second, err := os.ReadFile(path)
	require.NoError(t, err)

	assert.Equal(t, first, second)
}

func TestReplaceDropsFixedEntries(t *testing.T) {
	path := filepath.Join(t.TempDir(), "b.json")
	old := finding("A-1", "a.py", 1, "m")
	current := finding("A-1", "b.py", 2, "m")

	require.NoError(t, Replace(path, []findings.Finding{old}))
	require.NoError(t, Replace(path, []findings.Finding{current}))

	b, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, []Entry{EntryFor(current)}, b.Entries)
}

func TestLoadMissing(t *testing.T) {
	b, err := Load(filepath.Join(t.TempDir(), "missing.json"))
	assert.NoError(t, err)
	assert.Nil(t, b)
}

func TestLoadCorrupt(t *testing.T) {
	dir := t.TempDir()
	corrupt := filepath.Join(dir, "corrupt.json")
	require.NoError(t, os.WriteFile(corrupt, []byte("{not json"), 0o644))
	wrongVersion := filepath.Join(dir, "v2.json")
	require.NoError(t, os.WriteFile(wrongVersion, []byte(`{"version": 2, "violations": []}`), 0o644))

	for _, path := range []string{corrupt, wrongVersion} {
		_, err := Load(path)
		assert.Error(t, err, path)
		assert.Nil(t, LoadOrNil(path, hclog.NewNullLogger()), path)
	}
}

func TestWriteSurfacesErrors(t *testing.T) {
	dir := t.TempDir()
	blocker := filepath.Join(dir, "file")
	require.NoError(t, os.WriteFile(blocker, []byte("x"), 0o644))

	err := Replace(filepath.Join(blocker, "baseline.json"), nil)
	assert.Error(t, err)
}
