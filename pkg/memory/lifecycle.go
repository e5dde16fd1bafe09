package memory

import (
	"context"
	"fmt"

	"github.com/mnemo/mnemo/pkg/atom"
	"github.com/mnemo/mnemo/pkg/eventbus"
	"github.com/mnemo/mnemo/pkg/index"
	"github.com/mnemo/mnemo/pkg/knowlet"
	"github.com/mnemo/mnemo/pkg/tier"
)

// Promote moves an atom one tier up the durability order: read from the
// source, write to the target, then delete the source copy — a move, never
// a copy-and-keep. Promotion into Immortal requires a reviewer id the
// authorizer accepts; anything else is a *tier.PermissionError.
func (c *Controller) Promote(ctx context.Context, id string, from tier.Kind, reviewerID string) (bool, error) {
	if _, known := c.tiers[from]; !known {
		return false, nil
	}
	to, ok := from.Next()
	if !ok {
		return false, nil
	}

	if to == tier.Immortal {
		if reviewerID == "" {
			return false, &tier.PermissionError{
				Tier: to.String(), Op: "promote", Msg: "requires a reviewer id",
			}
		}
		if c.auth != nil && !c.auth.IsReviewerAuthorized(reviewerID) {
			return false, &tier.PermissionError{
				Tier: to.String(), Op: "promote", Msg: "reviewer " + reviewerID + " is not authorized",
			}
		}
	}

	rec := c.tiers[from].Read(id)
	if rec == nil {
		return false, nil
	}
	if !c.tiers[to].Write(id, *rec) {
		return false, nil
	}
	if _, err := c.tiers[from].Delete(id); err != nil {
		// The atom now exists in both tiers; surface it rather than hide it.
		c.log.ErrorContext(ctx, "promote: source delete failed",
			"id", shortID(id), "from", from.String(), "error", err)
		return false, err
	}

	c.indexMove(ctx, id, to, rec)
	c.metrics.RecordPromotion(from.String(), to.String())
	c.emit(ctx, eventbus.LifecycleEvent{
		Domain:    eventbus.DomainAtom,
		EventType: eventbus.EventAtomPromoted,
		Tier:      to.String(),
		AtomID:    id,
		Payload:   map[string]any{"from": from.String(), "to": to.String()},
	})
	c.log.InfoContext(ctx, "atom promoted",
		"id", shortID(id), "from", from.String(), "to", to.String(), "reviewer", reviewerID)
	return true, nil
}

// AutoPromote promotes every atom the Short and Middle tiers report as
// promotable. Promotion into Immortal always needs a reviewer, so the Long
// tier is never swept here.
func (c *Controller) AutoPromote(ctx context.Context) PromotionSummary {
	var summary PromotionSummary
	for _, id := range c.tiers[tier.Short].ListPromotable() {
		if ok, _ := c.Promote(ctx, id, tier.Short, ""); ok {
			summary.ShortToMiddle++
		}
	}
	for _, id := range c.tiers[tier.Middle].ListPromotable() {
		if ok, _ := c.Promote(ctx, id, tier.Middle, ""); ok {
			summary.MiddleToLong++
		}
	}
	return summary
}

// Cleanup removes expired Middle/Long atoms and stale Short atoms. A Short
// atom that is stale but still promotable is spared; sweeping it would
// erase something the next AutoPromote pass wants to keep.
func (c *Controller) Cleanup(ctx context.Context) CleanupSummary {
	var summary CleanupSummary

	for _, id := range c.tiers[tier.Middle].ListExpired() {
		if c.cleanupDelete(ctx, tier.Middle, id) {
			summary.Middle++
		}
	}
	for _, id := range c.tiers[tier.Long].ListExpired() {
		if c.cleanupDelete(ctx, tier.Long, id) {
			summary.Long++
		}
	}

	promotable := make(map[string]struct{})
	for _, id := range c.tiers[tier.Short].ListPromotable() {
		promotable[id] = struct{}{}
	}
	for _, id := range c.tiers[tier.Short].ListStale() {
		if _, keep := promotable[id]; keep {
			continue
		}
		if c.cleanupDelete(ctx, tier.Short, id) {
			summary.Short++
		}
	}

	c.log.InfoContext(ctx, "cleanup finished",
		"short", summary.Short, "middle", summary.Middle, "long", summary.Long)
	return summary
}

// ClearSession wipes the Short tier, the end-of-session reset. Returns the
// number of atoms removed.
func (c *Controller) ClearSession(ctx context.Context) int {
	ids := c.tiers[tier.Short].List()
	n, err := c.tiers[tier.Short].Clear()
	if err != nil {
		c.log.ErrorContext(ctx, "clear session failed", "error", err)
		return 0
	}
	for _, id := range ids {
		c.indexDelete(ctx, id)
	}
	c.emit(ctx, eventbus.LifecycleEvent{
		Domain:      eventbus.DomainAtom,
		EventType:   eventbus.EventSessionCleared,
		Tier:        tier.Short.String(),
		OrderingKey: tier.Short.String(),
		Payload:     map[string]any{"deleted": n},
	})
	c.log.InfoContext(ctx, "session cleared", "deleted", n)
	return n
}

// RepairSweep scans every tier for corrupt atoms and repairs them in place.
// Part of the maintenance cycle alongside AutoPromote and Cleanup.
func (c *Controller) RepairSweep(ctx context.Context) RepairSummary {
	var summary RepairSummary
	for _, kind := range probeOrder {
		repaired, failed := c.tiers[kind].RepairCorrupt()
		summary.Repaired += repaired
		summary.Failed += failed
	}
	if summary.Repaired > 0 || summary.Failed > 0 {
		c.log.InfoContext(ctx, "repair sweep finished",
			"repaired", summary.Repaired, "failed", summary.Failed)
	}
	return summary
}

// Consolidate attempts knowlet creation from a tier's atoms under one topic
// address. Wraps the knowlet controller so a successful consolidation also
// emits a lifecycle event.
func (c *Controller) Consolidate(ctx context.Context, kind tier.Kind, category, primary, summary string, confidence float64) (*knowlet.Record, error) {
	src, ok := c.tiers[kind]
	if !ok {
		return nil, fmt.Errorf("memory: consolidate: unknown tier %d", int(kind))
	}
	rec, err := c.knowlet.TryCreate(src, category, primary, summary, confidence)
	if err != nil || rec == nil {
		return rec, err
	}
	c.emit(ctx, eventbus.LifecycleEvent{
		Domain:    eventbus.DomainKnowlet,
		EventType: eventbus.EventKnowletCreated,
		Category:  category,
		KnowletID: rec.KnowletID,
		Payload:   map[string]any{"primary": primary, "confidence": rec.Confidence},
	})
	return rec, nil
}

// PromoteKnowlet marks a draft knowlet as promoted and emits the lifecycle
// event.
func (c *Controller) PromoteKnowlet(ctx context.Context, id, category, primary, reviewerID string) (*knowlet.Record, error) {
	rec, err := c.knowlet.Promote(id, category, primary, reviewerID)
	if err != nil || rec == nil {
		return rec, err
	}
	c.emit(ctx, eventbus.LifecycleEvent{
		Domain:    eventbus.DomainKnowlet,
		EventType: eventbus.EventKnowletPromoted,
		Category:  category,
		KnowletID: rec.KnowletID,
		Payload:   map[string]any{"reviewer": reviewerID},
	})
	return rec, nil
}

// Stats returns the per-tier atom counts and refreshes the tier gauges.
func (c *Controller) Stats() map[tier.Kind]int {
	stats := make(map[tier.Kind]int, len(c.tiers))
	for kind, t := range c.tiers {
		n := t.Count()
		stats[kind] = n
		c.metrics.SetTierCount(kind.String(), n)
	}
	return stats
}

func (c *Controller) cleanupDelete(ctx context.Context, kind tier.Kind, id string) bool {
	ok, err := c.tiers[kind].Delete(id)
	if err != nil || !ok {
		return false
	}
	c.indexDelete(ctx, id)
	c.metrics.RecordCleanupDelete(kind.String())
	c.emit(ctx, eventbus.LifecycleEvent{
		Domain:    eventbus.DomainAtom,
		EventType: eventbus.EventAtomDeleted,
		Tier:      kind.String(),
		AtomID:    id,
	})
	return true
}

func (c *Controller) indexMove(ctx context.Context, id string, to tier.Kind, rec *atom.Record) {
	if c.locator == nil {
		return
	}
	loc := index.Location{Tier: to.String()}
	if len(rec.Metadata) > 0 {
		if meta, err := atom.DecodeMetadata(rec.Metadata); err == nil {
			loc.Category = meta.Category
			loc.Primary = meta.Primary
		}
	}
	if err := c.locator.Move(id, loc); err != nil {
		c.log.WarnContext(ctx, "locator move failed", "id", shortID(id), "error", err)
	}
}

func (c *Controller) indexDelete(ctx context.Context, id string) {
	if c.locator == nil {
		return
	}
	if err := c.locator.Delete(id); err != nil {
		c.log.WarnContext(ctx, "locator delete failed", "id", shortID(id), "error", err)
	}
}
