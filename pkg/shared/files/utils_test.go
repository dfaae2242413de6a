package files

import (
	"os"
	"path/filepath"
	"testing"
)

func TestWriteFileAtomic(t *testing.T) {
	tmpDir := t.TempDir()

	tests := []struct {
		name    string
		path    string
		initial string
		data    string
	}{
		{
			name: "new file",
			path: filepath.Join(tmpDir, "new.json"),
			data: `{"version": 1}`,
		},
		{
			name:    "overwrite existing file",
			path:    filepath.Join(tmpDir, "existing.json"),
			initial: "old content that is longer than the new one",
			data:    "new",
		},
		{
			name: "missing parent folder",
			path: filepath.Join(tmpDir, "nested", "dir", "file.json"),
			data: "nested",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if tt.initial != "" {
				if err := os.WriteFile(tt.path, []byte(tt.initial), 0644); err != nil {
					t.Fatalf("setup failed: %v", err)
				}
			}

			if err := WriteFileAtomic(tt.path, []byte(tt.data), 0644); err != nil {
				t.Fatalf("WriteFileAtomic returned error: %v", err)
			}

			got, err := os.ReadFile(tt.path)
			if err != nil {
				t.Fatalf("reading result: %v", err)
			}
			if string(got) != tt.data {
				t.Fatalf("unexpected content: want %q, got %q", tt.data, string(got))
			}

			entries, err := os.ReadDir(filepath.Dir(tt.path))
			if err != nil {
				t.Fatalf("reading dir: %v", err)
			}
			for _, e := range entries {
				if filepath.Ext(e.Name()) != ".json" {
					t.Fatalf("temporary file left behind: %s", e.Name())
				}
			}
		})
	}
}

func TestValidateTargets(t *testing.T) {
	tmpDir := t.TempDir()
	file := filepath.Join(tmpDir, "a.py")
	if err := os.WriteFile(file, []byte("x = 1\n"), 0644); err != nil {
		t.Fatalf("setup failed: %v", err)
	}

	if err := ValidateTargets([]string{tmpDir, file}); err != nil {
		t.Fatalf("expected valid targets, got %v", err)
	}
	if err := ValidateTargets(nil); err == nil {
		t.Fatalf("expected error for empty targets")
	}
	if err := ValidateTargets([]string{filepath.Join(tmpDir, "missing")}); err == nil {
		t.Fatalf("expected error for missing target")
	}
}

func TestResolveFile(t *testing.T) {
	tmpDir := t.TempDir()
	file := filepath.Join(tmpDir, "sine.yml")
	if err := os.WriteFile(file, []byte("format: text\n"), 0644); err != nil {
		t.Fatalf("setup failed: %v", err)
	}

	got, err := ResolveFile(file)
	if err != nil {
		t.Fatalf("expected file to be valid: %v", err)
	}
	if got != file {
		t.Fatalf("expected %q, got %q", file, got)
	}
	if _, err := ResolveFile(tmpDir); err == nil {
		t.Fatalf("expected directory to be rejected")
	}
	if _, err := ResolveFile(filepath.Join(tmpDir, "missing.yml")); !os.IsNotExist(err) {
		t.Fatalf("expected not-exist error, got %v", err)
	}

	t.Setenv("HOME", tmpDir)
	got, err = ResolveFile("~/sine.yml")
	if err != nil {
		t.Fatalf("expected home-relative file to resolve: %v", err)
	}
	if got != file {
		t.Fatalf("expected %q, got %q", file, got)
	}
}

func TestExtensionFor(t *testing.T) {
	cases := map[string]string{
		"python":     ".py",
		"Python":     ".py",
		"go":         ".go",
		"typescript": ".ts",
		"unknown":    ".txt",
	}
	for lang, want := range cases {
		if got := ExtensionFor(lang); got != want {
			t.Errorf("ExtensionFor(%q) = %q, want %q", lang, got, want)
		}
	}
}

func TestExpandPath(t *testing.T) {
	home, err := os.UserHomeDir()
	if err != nil {
		t.Skip("no home directory")
	}
	got, err := ExpandPath("~/rules")
	if err != nil {
		t.Fatalf("ExpandPath returned error: %v", err)
	}
	if got != filepath.Join(home, "rules") {
		t.Fatalf("unexpected expansion: %q", got)
	}
	if got, _ := ExpandPath("rules"); got != "rules" {
		t.Fatalf("relative path changed: %q", got)
	}
}
