package memory

import (
	"context"
	"crypto/sha256"
	"fmt"
	"hash/fnv"
	"time"

	"github.com/mnemo/mnemo/config"
	"github.com/mnemo/mnemo/pkg/atom"
	"github.com/mnemo/mnemo/pkg/eventbus"
	"github.com/mnemo/mnemo/pkg/index"
	"github.com/mnemo/mnemo/pkg/knowlet"
	"github.com/mnemo/mnemo/pkg/logger"
	"github.com/mnemo/mnemo/pkg/metrics"
	"github.com/mnemo/mnemo/pkg/tier"
	"github.com/mnemo/mnemo/pkg/topic"
)

// fallbackPrimary is used when a topic descriptor carries no keywords.
const fallbackPrimary = "unknown"

// probeOrder is the cross-tier read order: most durable first.
var probeOrder = []tier.Kind{tier.Immortal, tier.Long, tier.Middle, tier.Short}

// Controller orchestrates the tiers, the knowlet controller, and the
// optional locator index.
type Controller struct {
	cfg     config.MemoryConfig
	tiers   map[tier.Kind]*tier.Tier
	knowlet *knowlet.Controller
	locator *index.Locator
	gate    Gate
	auth    Authorizer
	log     logger.Logger
	metrics *metrics.Manager
	events  *eventbus.Publisher
}

// Option configures a Controller.
type Option func(*Controller)

// WithGate sets the access gate.
func WithGate(g Gate) Option {
	return func(c *Controller) { c.gate = g }
}

// WithAuthorizer sets the reviewer authorizer.
func WithAuthorizer(a Authorizer) Option {
	return func(c *Controller) { c.auth = a }
}

// WithLogger sets the controller's logger.
func WithLogger(l logger.Logger) Option {
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

// WithPublisher sets the lifecycle event publisher. Publish failures are
// logged, never surfaced to callers.
func WithPublisher(p *eventbus.Publisher) Option {
	return func(c *Controller) { c.events = p }
}

// WithLocator sets the locator index. Overrides cfg.IndexPath.
func WithLocator(l *index.Locator) Option {
	return func(c *Controller) { c.locator = l }
}

// NewController builds the controller and its tiers from configuration.
func NewController(cfg config.MemoryConfig, opts ...Option) (*Controller, error) {
	c := &Controller{
		cfg:     cfg,
		tiers:   make(map[tier.Kind]*tier.Tier, 4),
		log:     logger.Nop(),
		metrics: metrics.NoOpManager(),
	}
	for _, opt := range opts {
		opt(c)
	}

	policies := map[tier.Kind]config.TierConfig{
		tier.Short:    cfg.Short,
		tier.Middle:   cfg.Middle,
		tier.Long:     cfg.Long,
		tier.Immortal: cfg.Immortal,
	}
	for kind, tc := range policies {
		t, err := tier.New(cfg.BasePath, kind, cfg.AtomExtension, tier.Policy{
			MaxCapacity:      tc.MaxCapacity,
			StaleAfter:       tc.StaleAfter,
			ExpireAfter:      tc.ExpireAfter,
			PromoteThreshold: tc.PromoteThreshold,
		},
			tier.WithLogger(c.log),
			tier.WithMetrics(c.metrics),
			tier.WithFolderLimit(cfg.FolderLimit),
		)
		if err != nil {
			return nil, fmt.Errorf("memory: init %s tier: %w", kind, err)
		}
		c.tiers[kind] = t
	}

	kc, err := knowlet.NewController(cfg.BasePath,
		knowlet.WithLogger(c.log),
		knowlet.WithMetrics(c.metrics),
		knowlet.WithMajorityRatio(cfg.MajorityRatio),
		knowlet.WithFolderLimit(cfg.FolderLimit),
		knowlet.WithExtensions(cfg.KnowletExtension, cfg.AtomExtension),
	)
	if err != nil {
		return nil, fmt.Errorf("memory: init knowlet controller: %w", err)
	}
	c.knowlet = kc

	if c.locator == nil && cfg.IndexPath != "" {
		loc, err := index.New(&index.Config{Path: cfg.IndexPath})
		if err != nil {
			return nil, fmt.Errorf("memory: open locator: %w", err)
		}
		c.locator = loc
	}

	c.log.Info("memory controller initialized", "base_path", cfg.BasePath)
	return c, nil
}

// Knowlets returns the knowlet controller.
func (c *Controller) Knowlets() *knowlet.Controller {
	return c.knowlet
}

// Tier returns the handler of one durability level.
func (c *Controller) Tier(kind tier.Kind) *tier.Tier {
	return c.tiers[kind]
}

// Close releases the locator index, if one is open.
func (c *Controller) Close() error {
	if c.locator != nil {
		return c.locator.Close()
	}
	return nil
}

// WriteOption adjusts a single write.
type WriteOption func(*writeParams)

type writeParams struct {
	target tier.Kind
}

// WithTier forces the target tier instead of routing by importance.
func WithTier(kind tier.Kind) WriteOption {
	return func(p *writeParams) { p.target = kind }
}

// Write stores a record under a freshly derived content id and returns the
// id. The empty string means the write was rejected or failed: importance
// below the floor, the gate denied it, or the tier write did not succeed —
// the reason is logged, never raised.
func (c *Controller) Write(ctx context.Context, rec atom.Record, top topic.Descriptor, importance float64, opts ...WriteOption) string {
	if !c.allowed(ctx, string(rec.Payload), "write") {
		return ""
	}
	if importance < c.cfg.MinImportance {
		c.log.DebugContext(ctx, "write skipped: importance below floor",
			"importance", importance, "floor", c.cfg.MinImportance)
		return ""
	}

	var p writeParams
	for _, opt := range opts {
		opt(&p)
	}

	category := top.Label
	if !top.HasLabel() {
		category = fmt.Sprintf("cluster_%d", top.ClusterID)
	}
	primary := top.TopKeyword()
	if primary == "" {
		primary = fallbackPrimary
	}

	target := p.target
	if target == 0 {
		target = c.selectTier(importance)
	}
	dest, ok := c.tiers[target]
	if !ok {
		c.log.ErrorContext(ctx, "write rejected: unknown tier", "tier", int(target))
		return ""
	}

	id := contentID(category, primary, rec.Payload)

	meta, err := atom.EncodeMetadata(atom.Metadata{
		Category:   category,
		Primary:    primary,
		Importance: importance,
		Tier:       target.String(),
		Topic:      &top,
	})
	if err != nil {
		c.log.ErrorContext(ctx, "write failed: metadata encode", "error", err)
		return ""
	}

	enriched := rec
	enriched.Metadata = meta
	if enriched.CreatedTSMs == 0 {
		enriched.CreatedTSMs = time.Now().UnixMilli()
	}

	if !dest.Write(id, enriched) {
		return ""
	}

	c.indexPut(ctx, id, index.Location{Tier: target.String(), Category: category, Primary: primary})
	c.emit(ctx, eventbus.LifecycleEvent{
		Domain:    eventbus.DomainAtom,
		EventType: eventbus.EventAtomWritten,
		Tier:      target.String(),
		Category:  category,
		AtomID:    id,
		Payload:   map[string]any{"importance": importance, "primary": primary},
	})
	c.log.InfoContext(ctx, "atom stored",
		"id", shortID(id), "category", category, "primary", primary,
		"tier", target.String(), "importance", importance)
	return id
}

// emit publishes a lifecycle event when a publisher is configured. Memory
// operations never fail because of the event bus.
func (c *Controller) emit(ctx context.Context, event eventbus.LifecycleEvent) {
	if c.events == nil {
		return
	}
	if _, err := c.events.PublishLifecycleEvent(ctx, event); err != nil {
		c.log.WarnContext(ctx, "lifecycle event publish failed",
			"event", event.EventType, "error", err)
	}
}

// WriteText is the convenience path for callers that hold plain text and a
// context label rather than records and topic descriptors.
func (c *Controller) WriteText(ctx context.Context, text, contextLabel string, importance float64) string {
	rec := atom.NewRecord(
		[]byte(text),
		nil,
		[]byte("agent_response_"+contextLabel),
		0,
	)
	coherence := importance
	if coherence > 1 {
		coherence = 1
	}
	top := topic.New(clusterOf(contextLabel), []string{contextLabel}, coherence, contextLabel)
	return c.Write(ctx, rec, top, importance)
}

// Read fetches a record by id, probing tiers most-durable-first. The
// locator, when present, is tried first; a stale or missing entry falls
// back to the probe.
func (c *Controller) Read(ctx context.Context, id string) *atom.Record {
	if kind, ok := c.indexLookup(id); ok {
		if rec := c.tiers[kind].Read(id); rec != nil {
			return rec
		}
	}
	for _, kind := range probeOrder {
		if rec := c.tiers[kind].Read(id); rec != nil {
			return rec
		}
	}
	return nil
}

// ReadFrom fetches a record from one specific tier.
func (c *Controller) ReadFrom(ctx context.Context, kind tier.Kind, id string) *atom.Record {
	t, ok := c.tiers[kind]
	if !ok {
		return nil
	}
	return t.Read(id)
}

// Exists reports whether any tier holds the id.
func (c *Controller) Exists(ctx context.Context, id string) bool {
	for _, kind := range probeOrder {
		if c.tiers[kind].Exists(id) {
			return true
		}
	}
	return false
}

// ReadWithContext fetches a record together with its decoded metadata,
// embedded topic, and the tier it was found in.
func (c *Controller) ReadWithContext(ctx context.Context, id string) *AtomContext {
	var rec *atom.Record
	var found tier.Kind

	if kind, ok := c.indexLookup(id); ok {
		if r := c.tiers[kind].Read(id); r != nil {
			rec, found = r, kind
		}
	}
	if rec == nil {
		for _, kind := range probeOrder {
			if r := c.tiers[kind].Read(id); r != nil {
				rec, found = r, kind
				break
			}
		}
	}
	if rec == nil {
		return nil
	}

	out := &AtomContext{ID: id, Record: *rec, Tier: found}
	if len(rec.Metadata) > 0 {
		meta, err := atom.DecodeMetadata(rec.Metadata)
		if err != nil {
			c.log.WarnContext(ctx, "metadata parse error", "id", shortID(id), "error", err)
		} else {
			out.Meta = meta
			out.Topic = meta.Topic
		}
	}
	return out
}

// allowed consults the gate. A nil gate allows everything.
func (c *Controller) allowed(ctx context.Context, text, op string) bool {
	if c.gate == nil {
		return true
	}
	ok, reason := c.gate.IsMemoryAllowed(text)
	if !ok {
		c.log.WarnContext(ctx, "memory access blocked", "op", op, "reason", reason)
	}
	return ok
}

// selectTier routes by importance: >=0.9 immortal, >=0.6 long, >=0.4
// middle, else short.
func (c *Controller) selectTier(importance float64) tier.Kind {
	switch {
	case importance >= c.cfg.ImmortalBoundary:
		return tier.Immortal
	case importance >= c.cfg.LongBoundary:
		return tier.Long
	case importance >= c.cfg.MiddleBoundary:
		return tier.Middle
	default:
		return tier.Short
	}
}

func (c *Controller) indexPut(ctx context.Context, id string, loc index.Location) {
	if c.locator == nil {
		return
	}
	if err := c.locator.Put(id, loc); err != nil {
		c.log.WarnContext(ctx, "locator put failed", "id", shortID(id), "error", err)
	}
}

func (c *Controller) indexLookup(id string) (tier.Kind, bool) {
	if c.locator == nil {
		return 0, false
	}
	loc, err := c.locator.Get(id)
	if err != nil || loc == nil {
		return 0, false
	}
	kind, err := tier.ParseKind(loc.Tier)
	if err != nil {
		return 0, false
	}
	return kind, true
}

// contentID derives an atom id from the topic address, a payload preview,
// and the current time, so identical payloads written twice get distinct
// ids.
func contentID(category, primary string, payload []byte) string {
	preview := payload
	if len(preview) > 32 {
		preview = preview[:32]
	}
	raw := fmt.Sprintf("%s:%s:%s:%d", category, primary, preview, time.Now().UnixNano())
	return fmt.Sprintf("%x", sha256.Sum256([]byte(raw)))
}

// clusterOf maps a context label to a stable synthetic cluster id.
func clusterOf(label string) int {
	h := fnv.New32a()
	h.Write([]byte(label))
	return int(h.Sum32() % 10000)
}

func shortID(id string) string {
	if len(id) > 8 {
		return id[:8]
	}
	return id
}
