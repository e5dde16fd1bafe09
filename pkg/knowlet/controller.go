package knowlet

import (
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/mnemo/mnemo/pkg/atom"
	"github.com/mnemo/mnemo/pkg/metrics"
	"github.com/mnemo/mnemo/pkg/shard"
	"github.com/mnemo/mnemo/pkg/tier"
)

// DefaultMajorityRatio is the share of a tier's atoms a topic must exceed
// before it may be consolidated. A ratio of exactly the threshold fails;
// the majority is strict.
const DefaultMajorityRatio = 0.5

// fallbackConfidence stands in for atoms whose metadata carries no
// confidence value.
const fallbackConfidence = 0.5

// Logger is the minimal logging interface the controller needs.
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

// Controller manages the knowlet lifecycle: majority scanning, draft
// creation, reviewer promotion, and the sharded on-disk tree at
// {base}/knowlet/{category}/{primary}/{shard}/{id}{ext}.
type Controller struct {
	base          string
	knowletBase   string
	ext           string
	atomExt       string
	majorityRatio float64
	folderLimit   int
	log           Logger
	metrics       *metrics.Manager
}

// Option configures a Controller.
type Option func(*Controller)

// WithLogger sets the controller's logger.
func WithLogger(l Logger) Option {
	return func(c *Controller) {
		if l != nil {
			c.log = l
		}
	}
}

// WithMetrics sets the controller's metrics manager.
func WithMetrics(m *metrics.Manager) Option {
	return func(c *Controller) {
		if m != nil {
			c.metrics = m
		}
	}
}

// WithMajorityRatio overrides the strict-majority threshold.
func WithMajorityRatio(ratio float64) Option {
	return func(c *Controller) {
		if ratio > 0 {
			c.majorityRatio = ratio
		}
	}
}

// WithFolderLimit overrides the shard-expansion entry threshold.
func WithFolderLimit(limit int) Option {
	return func(c *Controller) {
		if limit > 0 {
			c.folderLimit = limit
		}
	}
}

// WithExtensions overrides the knowlet and atom file extensions.
func WithExtensions(knowletExt, atomExt string) Option {
	return func(c *Controller) {
		if knowletExt != "" {
			c.ext = knowletExt
		}
		if atomExt != "" {
			c.atomExt = atomExt
		}
	}
}

// NewController creates a controller rooted at {base}/knowlet.
func NewController(base string, opts ...Option) (*Controller, error) {
	c := &Controller{
		base:          base,
		knowletBase:   filepath.Join(base, "knowlet"),
		ext:           ".knowlet",
		atomExt:       ".atom",
		majorityRatio: DefaultMajorityRatio,
		folderLimit:   shard.DefaultFolderLimit,
		log:           nopLogger{},
		metrics:       metrics.NoOpManager(),
	}
	for _, opt := range opts {
		opt(c)
	}

	if err := os.MkdirAll(c.knowletBase, 0o755); err != nil {
		return nil, err
	}
	return c, nil
}

// TryCreate scans every atom in the tier, and creates a draft knowlet only
// when atoms matching (category, primary) form a strict majority of the
// tier's total. The total counts every atom file, including corrupt ones;
// a match additionally requires a valid decode. Returns nil (no error)
// when the majority or the confidence requirement is not met.
func (c *Controller) TryCreate(t *tier.Tier, category, primary, summary string, confidence float64) (*Record, error) {
	total := 0
	var parentIDs []string
	var scores []float64

	c.walkAtoms(t.Root(), func(id, path string) {
		total++

		if !atom.QuickCheck(path) {
			return
		}
		rec, err := atom.Load(path)
		if err != nil || len(rec.Metadata) == 0 {
			return
		}
		meta, err := atom.DecodeMetadata(rec.Metadata)
		if err != nil {
			return
		}

		if meta.Category == category && meta.Primary == primary {
			parentIDs = append(parentIDs, id)
			if meta.Confidence > 0 {
				scores = append(scores, meta.Confidence)
			} else {
				scores = append(scores, fallbackConfidence)
			}
		}
	})

	if total == 0 {
		c.log.Debug("majority scan found empty tier", "tier", t.Kind().String())
		return nil, nil
	}

	ratio := float64(len(parentIDs)) / float64(total)
	c.metrics.RecordMajorityRatio(ratio)

	if ratio <= c.majorityRatio {
		c.log.Debug("majority not reached",
			"category", category, "primary", primary,
			"matches", len(parentIDs), "total", total, "ratio", ratio)
		c.metrics.RecordKnowletCreated("no_majority")
		return nil, nil
	}

	parentConfidence := mean(scores)
	if confidence <= parentConfidence {
		c.log.Warn("confidence must exceed parent confidence",
			"confidence", confidence, "parent_confidence", parentConfidence)
		c.metrics.RecordKnowletCreated("rejected")
		return nil, nil
	}

	rec, err := New(parentIDs, category, primary, summary, confidence, parentConfidence)
	if err != nil {
		c.metrics.RecordKnowletCreated("error")
		return nil, err
	}

	if err := c.write(rec); err != nil {
		c.log.Error("knowlet write failed", "id", rec.KnowletID, "error", err)
		c.metrics.RecordKnowletCreated("error")
		return nil, err
	}

	c.log.Info("knowlet created",
		"id", rec.KnowletID, "category", category, "primary", primary,
		"parents", len(parentIDs), "ratio", ratio)
	c.metrics.RecordKnowletCreated("created")
	return rec, nil
}

// Promote marks a knowlet as reviewed. It returns a *PermissionError when
// the reviewer id is empty, nil when the knowlet does not exist, and the
// already-promoted record unchanged when called twice.
func (c *Controller) Promote(id, category, primary, reviewerID string) (*Record, error) {
	if reviewerID == "" {
		return nil, &PermissionError{Op: "promote"}
	}

	rec := c.Read(id, category, primary)
	if rec == nil {
		c.log.Warn("promote: knowlet not found", "id", id)
		return nil, nil
	}
	if rec.IsPromoted {
		c.log.Warn("promote: already promoted", "id", id, "reviewer", rec.ReviewerID)
		return rec, nil
	}

	promoted, err := rec.Promote(reviewerID)
	if err != nil {
		return nil, err
	}
	if err := c.write(promoted); err != nil {
		c.log.Error("promote: write failed", "id", id, "error", err)
		return nil, err
	}

	c.log.Info("knowlet promoted", "id", id, "reviewer", reviewerID)
	c.metrics.RecordKnowletPromoted()
	return promoted, nil
}

// Read fetches a knowlet by id within a topic, or nil when absent.
func (c *Controller) Read(id, category, primary string) *Record {
	path := c.locate(id, category, primary)
	if path == "" {
		c.log.Debug("knowlet not found", "id", id)
		return nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		c.log.Error("knowlet read failed", "id", id, "error", err)
		return nil
	}
	rec, err := Unmarshal(data)
	if err != nil {
		c.log.Error("knowlet decode failed", "id", id, "error", err)
		return nil
	}
	return rec
}

// ListDraft returns ids of unpromoted knowlets within a topic.
func (c *Controller) ListDraft(category, primary string) []string {
	return c.listByStatus(category, primary, false)
}

// ListPromoted returns ids of promoted knowlets within a topic.
func (c *Controller) ListPromoted(category, primary string) []string {
	return c.listByStatus(category, primary, true)
}

func (c *Controller) listByStatus(category, primary string, promoted bool) []string {
	var ids []string
	topicDir := filepath.Join(c.knowletBase, category, primary)
	c.walkKnowlets(topicDir, func(id, path string) {
		data, err := os.ReadFile(path)
		if err != nil {
			return
		}
		rec, err := Unmarshal(data)
		if err != nil {
			return
		}
		if rec.IsPromoted == promoted {
			ids = append(ids, rec.KnowletID)
		}
	})
	return ids
}

// write persists a record under its sharded path, expanding the shard tree
// when the target directory overflows.
func (c *Controller) write(rec *Record) error {
	topicDir := filepath.Join(c.knowletBase, rec.Category, rec.Primary)
	depth := shard.DetectDepth(topicDir)
	path := shard.BuildKnowletPath(c.base, rec.Category, rec.Primary, rec.KnowletID, c.ext, depth)

	if depth < shard.DepthMax && shard.ShouldExpand(filepath.Dir(path), c.folderLimit) {
		newDepth, err := shard.Expand(topicDir, c.ext, depth)
		if err != nil {
			c.log.Warn("knowlet shard expansion failed", "dir", topicDir, "error", err)
		} else {
			depth = newDepth
			path = shard.BuildKnowletPath(c.base, rec.Category, rec.Primary, rec.KnowletID, c.ext, depth)
			c.metrics.RecordShardExpansion("knowlet")
			c.log.Info("knowlet shard expanded", "dir", topicDir, "depth", depth)
		}
	}

	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}
	data, err := rec.Marshal()
	if err != nil {
		return err
	}
	return os.WriteFile(path, data, 0o644)
}

// locate resolves a knowlet id to its file path by walking the topic tree,
// tolerating files at mixed shard depths.
func (c *Controller) locate(id, category, primary string) string {
	target := id + c.ext
	found := ""
	topicDir := filepath.Join(c.knowletBase, category, primary)
	filepath.WalkDir(topicDir, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return fs.SkipDir
		}
		if !d.IsDir() && d.Name() == target {
			found = path
			return fs.SkipAll
		}
		return nil
	})
	return found
}

func (c *Controller) walkKnowlets(dir string, fn func(id, path string)) {
	walkExt(dir, c.ext, fn)
}

func (c *Controller) walkAtoms(dir string, fn func(id, path string)) {
	walkExt(dir, c.atomExt, fn)
}

func walkExt(dir, ext string, fn func(id, path string)) {
	filepath.WalkDir(dir, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return fs.SkipDir
		}
		if d.IsDir() || !strings.HasSuffix(d.Name(), ext) {
			return nil
		}
		fn(strings.TrimSuffix(d.Name(), ext), path)
		return nil
	})
}

func mean(values []float64) float64 {
	if len(values) == 0 {
		return fallbackConfidence
	}
	sum := 0.0
	for _, v := range values {
		sum += v
	}
	return sum / float64(len(values))
}
