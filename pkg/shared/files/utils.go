package files

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

// ExpandPath resolves paths that include a tilde (~) to the user's home directory.
func ExpandPath(path string) (string, error) {
	if strings.HasPrefix(path, "~/") {
		homeDir, err := os.UserHomeDir()
		if err != nil {
			return "", err
		}
		return filepath.Join(homeDir, path[2:]), nil
	}
	return path, nil
}

// ResolveFile expands a leading ~ in path and checks that the result is a
// regular file.
func ResolveFile(path string) (string, error) {
	resolved, err := ExpandPath(path)
	if err != nil {
		return "", err
	}
	info, err := os.Stat(resolved)
	if err != nil {
		return "", err
	}
	if info.IsDir() {
		return "", fmt.Errorf("'%s' is a directory, not a file", resolved)
	}
	if !info.Mode().IsRegular() {
		return "", fmt.Errorf("'%s' is not a regular file", resolved)
	}
	return resolved, nil
}

// ValidateTargets checks that every scan target exists.
func ValidateTargets(targets []string) error {
	if len(targets) == 0 {
		return fmt.Errorf("at least one target path must be specified")
	}
	for _, target := range targets {
		if _, err := os.Stat(target); err != nil {
			if os.IsNotExist(err) {
				return fmt.Errorf("the target path does not exist: %v", target)
			}
			return fmt.Errorf("unable to check target %q: %w", target, err)
		}
	}
	return nil
}

// CreateFolderIfNotExists checks if a folder exists, and if not, creates it.
func CreateFolderIfNotExists(folder string) error {
	if _, err := os.Stat(folder); os.IsNotExist(err) {
		if err := os.MkdirAll(folder, os.ModePerm); err != nil {
			return fmt.Errorf("unable to create folder %q: %w", folder, err)
		}
	} else if err != nil {
		return fmt.Errorf("unable to check folder %q: %w", folder, err)
	}
	return nil
}

// WriteFileAtomic writes data to a temporary file next to path and renames it into place,
// so readers observe either the previous content or the new one.
func WriteFileAtomic(path string, data []byte, perm os.FileMode) error {
	dir := filepath.Dir(path)
	if err := CreateFolderIfNotExists(dir); err != nil {
		return err
	}

	tmp, err := os.CreateTemp(dir, "."+filepath.Base(path)+".tmp-*")
	if err != nil {
		return fmt.Errorf("failed creating temporary file: %w", err)
	}
	tmpName := tmp.Name()
	defer func() {
		// no-op once the rename succeeded
		_ = os.Remove(tmpName)
	}()

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return fmt.Errorf("error writing data to file: %w", err)
	}
	if err := tmp.Sync(); err != nil {
		tmp.Close()
		return fmt.Errorf("error syncing file: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("error closing file: %w", err)
	}
	if err := os.Chmod(tmpName, perm); err != nil {
		return fmt.Errorf("error setting file mode: %w", err)
	}
	if err := os.Rename(tmpName, path); err != nil {
		return fmt.Errorf("failed to move %q into place: %w", path, err)
	}
	return nil
}

// ExtensionFor returns the conventional source file extension for a language name understood by the engine.
func ExtensionFor(language string) string {
	switch strings.ToLower(strings.TrimSpace(language)) {
	case "python", "py":
		return ".py"
	case "go", "golang":
		return ".go"
	case "javascript", "js":
		return ".js"
	case "typescript", "ts":
		return ".ts"
	case "java":
		return ".java"
	case "ruby", "rb":
		return ".rb"
	case "rust":
		return ".rs"
	case "c":
		return ".c"
	case "cpp", "c++":
		return ".cpp"
	case "csharp", "c#":
		return ".cs"
	case "kotlin", "kt":
		return ".kt"
	case "php":
		return ".php"
	case "scala":
		return ".scala"
	case "swift":
		return ".swift"
	case "yaml":
		return ".yaml"
	case "json":
		return ".json"
	case "bash", "sh":
		return ".sh"
	default:
		return ".txt"
	}
}
