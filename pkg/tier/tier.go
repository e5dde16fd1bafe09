// Package tier implements the four durability tiers of the memory store.
//
// A tier is a storage handler: it knows how to write, read, and enumerate
// atoms inside its own area of the filesystem. Deciding which tier an atom
// belongs to, and when it moves, is the memory controller's job — tiers
// never promote themselves.
package tier

import (
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/mnemo/mnemo/pkg/atom"
	"github.com/mnemo/mnemo/pkg/metrics"
	"github.com/mnemo/mnemo/pkg/shard"
)

// Fallbacks used when an atom carries no usable metadata.
const (
	fallbackCategory = "uncategorized"
	fallbackPrimary  = "general"
)

// Policy holds the retention and capacity parameters of one tier. Only
// policy differs between tiers; the storage contract is identical.
type Policy struct {
	// MaxCapacity is the atom capacity; 0 means unbounded.
	MaxCapacity int

	// StaleAfter is the age after which an atom is reported stale.
	// Zero means atoms never go stale.
	StaleAfter time.Duration

	// ExpireAfter is the age after which an atom is reported expired.
	// Zero means atoms never expire.
	ExpireAfter time.Duration

	// PromoteThreshold is the importance at or above which an atom is
	// reported promotable.
	PromoteThreshold float64
}

// Logger is the minimal logging interface the tier needs.
type Logger interface {
	Debug(msg string, args ...any)
	Info(msg string, args ...any)
	Warn(msg string, args ...any)
	Error(msg string, args ...any)
}

type nopLogger struct{}

func (nopLogger) Debug(string, ...any) {}
func (nopLogger) Info(string, ...any)  {}
func (nopLogger) Warn(string, ...any)  {}
func (nopLogger) Error(string, ...any) {}

// Tier is one durability level of the store, backed by a directory tree of
// sharded atom files: {base}/{tier}/{category}/{primary}/{shard}/{id}{ext}.
type Tier struct {
	kind        Kind
	base        string
	root        string
	ext         string
	folderLimit int
	policy      Policy
	log         Logger
	metrics     *metrics.Manager
}

// Option configures a Tier.
type Option func(*Tier)

// WithLogger sets the tier's logger.
func WithLogger(l Logger) Option {
	return func(t *Tier) {
		if l != nil {
			t.log = l
		}
	}
}

// WithMetrics sets the tier's metrics manager.
func WithMetrics(m *metrics.Manager) Option {
	return func(t *Tier) {
		if m != nil {
			t.metrics = m
		}
	}
}

// WithFolderLimit overrides the shard-expansion entry threshold.
func WithFolderLimit(limit int) Option {
	return func(t *Tier) {
		if limit > 0 {
			t.folderLimit = limit
		}
	}
}

// New creates a tier rooted at {base}/{kind} and ensures the directory
// exists. ext is the atom file extension including the dot.
func New(base string, kind Kind, ext string, policy Policy, opts ...Option) (*Tier, error) {
	t := &Tier{
		kind:        kind,
		base:        base,
		root:        filepath.Join(base, kind.String()),
		ext:         ext,
		folderLimit: shard.DefaultFolderLimit,
		policy:      policy,
		log:         nopLogger{},
		metrics:     metrics.NoOpManager(),
	}
	for _, opt := range opts {
		opt(t)
	}

	if err := os.MkdirAll(t.root, 0o755); err != nil {
		return nil, err
	}
	t.log.Debug("tier initialized", "tier", kind.String(), "root", t.root)
	return t, nil
}

// Kind returns the tier's kind.
func (t *Tier) Kind() Kind {
	return t.kind
}

// Root returns the tier's root directory.
func (t *Tier) Root() string {
	return t.root
}

// Policy returns the tier's policy.
func (t *Tier) Policy() Policy {
	return t.policy
}

// Write stores a record under the given id. Category and primary topic are
// taken from the record's metadata; the shard depth of the topic directory
// is detected per write and expanded when the target directory overflows.
func (t *Tier) Write(id string, rec atom.Record) bool {
	start := time.Now()
	name := t.kind.String()

	category, primary := t.categorize(rec)
	topicDir := filepath.Join(t.root, category, primary)

	depth := shard.DetectDepth(topicDir)
	path := shard.BuildAtomPath(t.base, name, category, primary, id, t.ext, depth)

	if depth < shard.DepthMax && shard.ShouldExpand(filepath.Dir(path), t.folderLimit) {
		newDepth, err := shard.Expand(topicDir, t.ext, depth)
		if err != nil {
			t.log.Warn("shard expansion failed", "tier", name, "dir", topicDir, "error", err)
		} else {
			depth = newDepth
			path = shard.BuildAtomPath(t.base, name, category, primary, id, t.ext, depth)
			t.metrics.RecordShardExpansion(name)
			t.log.Info("shard expanded", "tier", name, "dir", topicDir, "depth", depth)
		}
	}

	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		t.log.Error("write failed", "tier", name, "id", id, "error", err)
		t.metrics.RecordAtomWrite(name, "failure")
		return false
	}
	if err := atom.Save(path, rec); err != nil {
		t.log.Error("write failed", "tier", name, "id", id, "error", err)
		t.metrics.RecordAtomWrite(name, "failure")
		return false
	}

	t.log.Info("atom written", "tier", name, "id", id)
	t.metrics.RecordAtomWrite(name, "success")
	t.metrics.RecordWriteDuration(name, time.Since(start))
	return true
}

// Read fetches a record by id, or nil when absent. The corruption quick
// check runs before every decode; a failed check is treated like "not
// found" and logged, never returned as garbage.
func (t *Tier) Read(id string) *atom.Record {
	start := time.Now()
	name := t.kind.String()

	path := t.locate(id)
	if path == "" {
		t.log.Debug("atom not found", "tier", name, "id", id)
		t.metrics.RecordAtomRead(name, "miss")
		return nil
	}

	if !atom.QuickCheck(path) {
		t.log.Warn("atom checksum failed", "tier", name, "id", id, "path", path)
		t.metrics.RecordCorruptAtom(name)
		t.metrics.RecordAtomRead(name, "corrupt")
		return nil
	}

	rec, err := atom.Load(path)
	if err != nil {
		t.log.Error("atom read failed", "tier", name, "id", id, "error", err)
		t.metrics.RecordAtomRead(name, "failure")
		return nil
	}

	t.metrics.RecordAtomRead(name, "success")
	t.metrics.RecordReadDuration(name, time.Since(start))
	return &rec
}

// Exists reports whether an atom with the given id is stored in this tier.
func (t *Tier) Exists(id string) bool {
	return t.locate(id) != ""
}

// List returns the ids of every atom in the tier.
func (t *Tier) List() []string {
	var ids []string
	t.walk(func(id, path string) bool {
		ids = append(ids, id)
		return true
	})
	return ids
}

// Count returns the number of atoms in the tier.
func (t *Tier) Count() int {
	n := 0
	t.walk(func(string, string) bool {
		n++
		return true
	})
	return n
}

// Delete removes an atom from the tier. It reports whether a file was
// removed; on the immortal tier it always returns a *PermissionError.
func (t *Tier) Delete(id string) (bool, error) {
	name := t.kind.String()
	if err := t.guardDelete("delete"); err != nil {
		t.metrics.RecordAtomDelete(name, "denied")
		return false, err
	}

	path := t.locate(id)
	if path == "" {
		t.log.Debug("delete: atom not found", "tier", name, "id", id)
		return false, nil
	}
	if err := os.Remove(path); err != nil {
		t.log.Error("delete failed", "tier", name, "id", id, "error", err)
		t.metrics.RecordAtomDelete(name, "failure")
		return false, err
	}

	t.log.Warn("atom deleted", "tier", name, "id", id)
	t.metrics.RecordAtomDelete(name, "success")
	return true, nil
}

// Clear bulk-deletes every atom in the tier and returns how many were
// removed. The immortal restriction applies exactly as for Delete.
func (t *Tier) Clear() (int, error) {
	name := t.kind.String()
	if err := t.guardDelete("clear"); err != nil {
		t.metrics.RecordAtomDelete(name, "denied")
		return 0, err
	}

	deleted := 0
	t.walk(func(id, path string) bool {
		if err := os.Remove(path); err != nil {
			t.log.Error("clear: delete failed", "tier", name, "id", id, "error", err)
			return true
		}
		t.metrics.RecordAtomDelete(name, "success")
		deleted++
		return true
	})

	t.log.Info("tier cleared", "tier", name, "deleted", deleted)
	return deleted, nil
}

// IsFull reports whether the tier has reached a configured capacity.
// Unbounded tiers are never full.
func (t *Tier) IsFull() bool {
	if t.policy.MaxCapacity <= 0 {
		return false
	}
	return t.Count() >= t.policy.MaxCapacity
}

// ListStale returns ids of atoms older than the tier's stale window.
func (t *Tier) ListStale() []string {
	if t.policy.StaleAfter <= 0 {
		return nil
	}
	cutoff := time.Now().Add(-t.policy.StaleAfter)

	var stale []string
	t.scan(func(id string, rec atom.Record) {
		if rec.CreatedAt().Before(cutoff) {
			stale = append(stale, id)
		}
	})
	return stale
}

// ListExpired returns ids of atoms older than the tier's expiry window.
func (t *Tier) ListExpired() []string {
	if t.policy.ExpireAfter <= 0 {
		return nil
	}
	cutoff := time.Now().Add(-t.policy.ExpireAfter)

	var expired []string
	t.scan(func(id string, rec atom.Record) {
		if rec.CreatedAt().Before(cutoff) {
			expired = append(expired, id)
		}
	})
	return expired
}

// ListPromotable returns ids of atoms whose importance meets the tier's
// promotion threshold. Atoms without readable metadata are skipped.
func (t *Tier) ListPromotable() []string {
	var promotable []string
	t.scan(func(id string, rec atom.Record) {
		if len(rec.Metadata) == 0 {
			return
		}
		meta, err := atom.DecodeMetadata(rec.Metadata)
		if err != nil {
			return
		}
		if meta.Importance >= t.policy.PromoteThreshold {
			promotable = append(promotable, id)
		}
	})
	return promotable
}

// RepairCorrupt sweeps the tier for atoms failing the quick check and
// repairs them in place via aggressive auto-repair, leaving a .bak copy
// next to each. Returns how many were recovered and how many resisted
// repair; unrecoverable files are left untouched.
func (t *Tier) RepairCorrupt() (repaired, failed int) {
	name := t.kind.String()
	t.walk(func(id, path string) bool {
		if atom.QuickCheck(path) {
			return true
		}
		if !atom.AutoRepair(path, true) {
			t.log.Error("auto-repair failed", "tier", name, "id", id, "path", path)
			t.metrics.RecordRepair("aggressive", "failure")
			failed++
			return true
		}
		if info, err := os.Stat(path); err == nil {
			t.metrics.RecordRepairedBytes(int(info.Size()))
		}
		t.log.Info("atom repaired in place", "tier", name, "id", id)
		t.metrics.RecordRepair("aggressive", "success")
		repaired++
		return true
	})
	return repaired, failed
}

func (t *Tier) guardDelete(op string) error {
	if t.kind.Deletable() {
		return nil
	}
	return &PermissionError{Tier: t.kind.String(), Op: op}
}

func (t *Tier) categorize(rec atom.Record) (string, string) {
	category, primary := fallbackCategory, fallbackPrimary
	if len(rec.Metadata) == 0 {
		return category, primary
	}
	meta, err := atom.DecodeMetadata(rec.Metadata)
	if err != nil {
		return category, primary
	}
	if meta.Category != "" {
		category = meta.Category
	}
	if meta.Primary != "" {
		primary = meta.Primary
	}
	return category, primary
}

// locate resolves an id to its file path by walking the tier tree. Walking
// instead of computing a single candidate path keeps reads correct when an
// interrupted shard expansion left files at mixed depths.
func (t *Tier) locate(id string) string {
	target := id + t.ext
	found := ""
	t.walkFiles(func(path string, d fs.DirEntry) bool {
		if d.Name() == target {
			found = path
			return false
		}
		return true
	})
	return found
}

// walk visits every atom file in the tier, passing (id, path). Return false
// from fn to stop early.
func (t *Tier) walk(fn func(id, path string) bool) {
	t.walkFiles(func(path string, d fs.DirEntry) bool {
		return fn(strings.TrimSuffix(d.Name(), t.ext), path)
	})
}

func (t *Tier) walkFiles(fn func(path string, d fs.DirEntry) bool) {
	filepath.WalkDir(t.root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			// Unreadable subtrees are skipped; absence is not an error here.
			return fs.SkipDir
		}
		if d.IsDir() || !strings.HasSuffix(d.Name(), t.ext) {
			return nil
		}
		if !fn(path, d) {
			return fs.SkipAll
		}
		return nil
	})
}

// scan decodes every valid atom in the tier and invokes fn. Files failing
// the quick check are skipped with a warning; they surface through Read
// metrics when actually requested.
func (t *Tier) scan(fn func(id string, rec atom.Record)) {
	t.walk(func(id, path string) bool {
		if !atom.QuickCheck(path) {
			t.log.Warn("scan: skipping corrupt atom", "tier", t.kind.String(), "id", id)
			return true
		}
		rec, err := atom.Load(path)
		if err != nil {
			return true
		}
		fn(id, rec)
		return true
	})
}
