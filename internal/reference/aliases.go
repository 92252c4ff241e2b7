package reference

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/tailscale/hujson"

	"github.com/zjrosen/iconlens/internal/log"
)

// AliasFiles is the merged content of the configured alias files.
type AliasFiles struct {
	Aliases map[string]string
	// Files lists the files that loaded, in order.
	Files []string
}

// Contains reports whether path is one of the loaded alias files.
func (a AliasFiles) Contains(path string) bool {
	for _, f := range a.Files {
		if f == path {
			return true
		}
	}
	return false
}

// LoadAliases reads each file and flat-merges them in order; later files
// win on key collisions. Files may contain comments and trailing commas.
// Unreadable or malformed files are logged and skipped.
func LoadAliases(files []string) AliasFiles {
	out := AliasFiles{Aliases: make(map[string]string)}
	for _, file := range files {
		aliases, err := ReadAliasFile(file)
		if err != nil {
			log.Warn(log.CatCustom, "Skipping alias file", "path", file, "error", err)
			continue
		}
		for k, v := range aliases {
			out.Aliases[k] = v
		}
		out.Files = append(out.Files, file)
	}
	if len(out.Files) > 0 {
		log.Info(log.CatCustom, "Loaded custom aliases", "files", len(out.Files), "aliases", len(out.Aliases))
	}
	return out
}

// ReadAliasFile parses one alias file.
func ReadAliasFile(path string) (map[string]string, error) {
	data, err := os.ReadFile(path) //nolint:gosec // G304: path comes from user configuration
	if err != nil {
		return nil, fmt.Errorf("reading alias file: %w", err)
	}
	std, err := hujson.Standardize(data)
	if err != nil {
		return nil, fmt.Errorf("parsing alias file %s: %w", path, err)
	}
	var aliases map[string]string
	if err := json.Unmarshal(std, &aliases); err != nil {
		return nil, fmt.Errorf("decoding alias file %s: %w", path, err)
	}
	return aliases, nil
}
