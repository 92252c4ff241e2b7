// Package paths provides path resolution utilities.
package paths

import (
	"net/url"
	"os"
	"path/filepath"
	"slices"
	"strings"

	"github.com/zjrosen/iconlens/internal/log"
)

// Sources is a configured path list split by kind.
type Sources struct {
	// Local holds absolute paths of files that exist.
	Local []string
	// Remote holds http(s) URLs.
	Remote []string
}

// ResolveSources classifies configured entries:
//   - "http://..." / "https://..." -> Remote
//   - "file:///abs/path" -> Local "/abs/path"
//   - "/abs/path" -> Local
//   - "rel/path" -> Local, once per workspace folder
//
// Missing local files are logged and dropped. Both lists are deduplicated
// in first-seen order.
func ResolveSources(entries []string, folders []string) Sources {
	var local, remote []string
	for _, entry := range entries {
		entry = strings.TrimSpace(entry)
		if entry == "" {
			continue
		}
		switch {
		case IsRemote(entry):
			remote = appendUnique(remote, entry)
		case strings.HasPrefix(entry, "file://"):
			if p, ok := fileURLPath(entry); ok {
				local = appendUnique(local, p)
			}
		default:
			for _, p := range ResolveLocal(entry, folders) {
				local = appendUnique(local, p)
			}
		}
	}

	existing := local[:0]
	for _, p := range local {
		if _, err := os.Stat(p); err != nil {
			log.Warn(log.CatCustom, "Configured file does not exist", "path", p)
			continue
		}
		existing = append(existing, p)
	}
	return Sources{Local: existing, Remote: remote}
}

// ResolveLocal returns path itself when absolute, otherwise path joined to
// each workspace folder.
func ResolveLocal(path string, folders []string) []string {
	path = ExpandHome(path)
	if filepath.IsAbs(path) {
		return []string{filepath.Clean(path)}
	}
	out := make([]string, 0, len(folders))
	for _, folder := range folders {
		out = append(out, filepath.Join(folder, path))
	}
	return out
}

// IsRemote reports whether entry is an http(s) URL.
func IsRemote(entry string) bool {
	return strings.HasPrefix(entry, "http://") || strings.HasPrefix(entry, "https://")
}

// FileKey is the stable map key for a local file: its file:// URL.
func FileKey(path string) string {
	u := url.URL{Scheme: "file", Path: filepath.ToSlash(filepath.Clean(path))}
	return u.String()
}

// ExpandHome replaces a leading "~/" with the user's home directory.
func ExpandHome(path string) string {
	if path != "~" && !strings.HasPrefix(path, "~/") {
		return path
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return path
	}
	return filepath.Join(home, strings.TrimPrefix(path, "~"))
}

// DefaultCacheDB is the default durable cache location.
func DefaultCacheDB() string {
	if dir, err := os.UserCacheDir(); err == nil {
		return filepath.Join(dir, "iconlens", "cache.db")
	}
	return filepath.Join(".iconlens", "cache.db")
}

func fileURLPath(entry string) (string, bool) {
	u, err := url.Parse(entry)
	if err != nil || u.Path == "" {
		log.Warn(log.CatCustom, "Invalid file URL", "url", entry)
		return "", false
	}
	return filepath.FromSlash(u.Path), true
}

func appendUnique(list []string, s string) []string {
	if slices.Contains(list, s) {
		return list
	}
	return append(list, s)
}
