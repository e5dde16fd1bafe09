// Package shard maps logical (category, primary, id) addresses to
// filesystem paths with an auto-expanding directory sharding scheme.
//
// Layout: {base}/{tier}/{category}/{primary}/{shard}/{id}{ext}, where shard
// is a hex prefix of the id whose length (depth) grows by one level when a
// directory's entry count exceeds the OS folder limit.
package shard

import (
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
)

const (
	// DefaultFolderLimit is the entry count a directory handles well on
	// common filesystems before lookups degrade.
	DefaultFolderLimit = 4096

	// DepthMax caps shard expansion.
	DepthMax = 8
)

// Segment returns the shard directory component for an id at the given
// depth: the first depth characters of the id, uppercased.
func Segment(id string, depth int) string {
	if depth > len(id) {
		depth = len(id)
	}
	return strings.ToUpper(id[:depth])
}

// DetectDepth infers how many shard levels an existing topic directory uses
// by inspecting its subdirectory names. Missing or flat directories report 0.
func DetectDepth(topicDir string) int {
	entries, err := os.ReadDir(topicDir)
	if err != nil {
		return 0
	}

	depth := 0
	for _, e := range entries {
		if e.IsDir() && len(e.Name()) > depth {
			depth = len(e.Name())
		}
	}
	return depth
}

// ShouldExpand reports whether dir's direct entry count exceeds limit.
func ShouldExpand(dir string, limit int) bool {
	if limit <= 0 {
		limit = DefaultFolderLimit
	}
	entries, err := os.ReadDir(dir)
	if err != nil {
		return false
	}
	return len(entries) > limit
}

// BuildAtomPath composes the path of an atom file:
// {base}/{tier}/{category}/{primary}/{shard}/{id}{ext}.
func BuildAtomPath(base, tier, category, primary, id, ext string, depth int) string {
	return filepath.Join(base, tier, category, primary, Segment(id, depth), id+ext)
}

// BuildKnowletPath composes the path of a knowlet file:
// {base}/knowlet/{category}/{primary}/{shard}/{id}{ext}.
func BuildKnowletPath(base, category, primary, id, ext string, depth int) string {
	return filepath.Join(base, "knowlet", category, primary, Segment(id, depth), id+ext)
}

// Expand rehashes every file with extension ext under topicDir into shard
// directories of the new depth. Each move is an independent os.Rename, so an
// interruption leaves files split between depths; lookups must tolerate both
// by walking the topic tree rather than computing a single candidate path.
// The new depth is returned (capped at DepthMax).
func Expand(topicDir, ext string, oldDepth int) (int, error) {
	newDepth := oldDepth + 1
	if newDepth > DepthMax {
		return oldDepth, nil
	}

	var moves []string
	err := filepath.WalkDir(topicDir, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if !d.IsDir() && filepath.Ext(path) == ext {
			moves = append(moves, path)
		}
		return nil
	})
	if err != nil {
		return oldDepth, fmt.Errorf("shard: scan %s: %w", topicDir, err)
	}

	for _, oldPath := range moves {
		name := filepath.Base(oldPath)
		id := strings.TrimSuffix(name, ext)
		newDir := filepath.Join(topicDir, Segment(id, newDepth))
		newPath := filepath.Join(newDir, name)
		if newPath == oldPath {
			continue
		}
		if err := os.MkdirAll(newDir, 0o755); err != nil {
			return newDepth, fmt.Errorf("shard: create %s: %w", newDir, err)
		}
		if err := os.Rename(oldPath, newPath); err != nil {
			return newDepth, fmt.Errorf("shard: move %s: %w", oldPath, err)
		}
	}

	pruneEmptyDirs(topicDir)
	return newDepth, nil
}

// pruneEmptyDirs removes now-empty old shard directories left behind by an
// expansion. Failures are ignored; stale empty directories are harmless.
func pruneEmptyDirs(topicDir string) {
	entries, err := os.ReadDir(topicDir)
	if err != nil {
		return
	}
	for _, e := range entries {
		if !e.IsDir() {
			continue
		}
		sub := filepath.Join(topicDir, e.Name())
		pruneEmptyDirs(sub)
		if children, err := os.ReadDir(sub); err == nil && len(children) == 0 {
			os.Remove(sub)
		}
	}
}
