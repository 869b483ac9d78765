package webdav

import "strings"

// Defaults for the remote location of the snapshot file.
const (
	DefaultSyncPath = "/newtab-sync/"
	DefaultFilename = "newtab-data.json"
)

const (
	// mountPrefix is the absolute volume prefix some NAS WebDAV
	// servers expose their shares under.
	mountPrefix = "/vol1/1000"
	// strippableSegment is a configurable subpath segment some
	// deployed servers do not actually mount.
	strippableSegment = "/idleeyan/"
)

// containerVariants returns the plausible spellings of the sync
// directory, tried in order. Remote file stores disagree on trailing
// slashes, absolute mount prefixes and configured subpaths; rather
// than requiring exact configuration the client tries this fixed set
// and accepts the first that works. The set must be preserved for
// compatibility with already-deployed server configurations.
func containerVariants(syncPath string) []string {
	return dedupe([]string{
		syncPath,
		strings.TrimSuffix(syncPath, "/"),
		mountPrefix + syncPath,
		strings.Replace(syncPath, strippableSegment, "/", 1),
	})
}

// fileVariants returns the plausible spellings of the snapshot file
// path, same rewrites as containerVariants.
func fileVariants(syncPath, filename string) []string {
	full := syncPath + filename
	return dedupe([]string{
		full,
		strings.TrimSuffix(full, "/"),
		mountPrefix + full,
		strings.Replace(syncPath, strippableSegment, "/", 1) + filename,
	})
}

// dedupe drops repeated spellings, preserving first-seen order, so the
// client never retries an identical path.
func dedupe(paths []string) []string {
	seen := make(map[string]bool, len(paths))
	out := paths[:0]
	for _, p := range paths {
		if seen[p] {
			continue
		}
		seen[p] = true
		out = append(out, p)
	}
	return out
}
