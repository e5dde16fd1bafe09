// Package eventbus publishes memory lifecycle events (atom writes,
// promotions, deletions, knowlet consolidation) on a subject-based bus so
// agent subsystems can react to memory changes without polling the tiers.
package eventbus

import "fmt"

const (
	// SubjectPrefix is the canonical prefix for lifecycle events.
	SubjectPrefix = "mnemo.v1.lifecycle"
)

// Domain identifies lifecycle event domains.
type Domain string

const (
	DomainAtom    Domain = "atom"
	DomainKnowlet Domain = "knowlet"
)

// Atom lifecycle event types.
const (
	EventAtomWritten    = "written"
	EventAtomPromoted   = "promoted"
	EventAtomDeleted    = "deleted"
	EventSessionCleared = "session_cleared"
)

// Knowlet lifecycle event types.
const (
	EventKnowletCreated  = "created"
	EventKnowletPromoted = "promoted"
)

// AtomSubject returns the canonical atom lifecycle subject for a tier.
func AtomSubject(tier, eventType string) string {
	return fmt.Sprintf("%s.%s.%s.%s", SubjectPrefix, DomainAtom, sanitizeSegment(tier), sanitizeSegment(eventType))
}

// KnowletSubject returns the canonical knowlet lifecycle subject for a category.
func KnowletSubject(category, eventType string) string {
	return fmt.Sprintf("%s.%s.%s.%s", SubjectPrefix, DomainKnowlet, sanitizeSegment(category), sanitizeSegment(eventType))
}

// DomainWildcardSubject returns the canonical wildcard subject for a domain.
func DomainWildcardSubject(domain Domain) string {
	return fmt.Sprintf("%s.%s.>", SubjectPrefix, sanitizeSegment(string(domain)))
}

func sanitizeSegment(value string) string {
	if value == "" {
		return "unknown"
	}
	return value
}
