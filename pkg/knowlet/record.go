// Package knowlet consolidates atoms that share a topic context into
// summary records. A knowlet must always reference its parent atoms, must
// carry strictly higher confidence than they do, and is only created once
// the topic holds a strict majority of the tier it was scanned from.
package knowlet

import (
	"crypto/sha256"
	"encoding/json"
	"fmt"
	"time"
)

// IntegrityError reports an attempt to construct a knowlet that violates a
// structural rule. It is raised at construction so an invalid record can
// never exist.
type IntegrityError struct {
	Msg string
}

func (e *IntegrityError) Error() string {
	return fmt.Sprintf("knowlet: %s", e.Msg)
}

// PermissionError reports a privileged operation attempted without an
// authorized reviewer.
type PermissionError struct {
	Op string
}

func (e *PermissionError) Error() string {
	return fmt.Sprintf("knowlet: %s requires a reviewer id", e.Op)
}

// Record is a consolidated summary of several atoms with the same topic
// context.
type Record struct {
	// KnowletID is the unique hex identifier.
	KnowletID string `json:"knowlet_id"`

	// ParentIDs are the atom ids the summary was drawn from. Never empty.
	ParentIDs []string `json:"parent_ids"`

	// Category and Primary are the shared topic context of the parents.
	Category string `json:"category"`
	Primary  string `json:"primary"`

	// Summary is the consolidated conclusion text.
	Summary string `json:"summary"`

	// Confidence is strictly greater than ParentConfidence.
	Confidence float64 `json:"confidence"`

	// ParentConfidence is the mean confidence of the parent atoms.
	ParentConfidence float64 `json:"parent_confidence"`

	// IsPromoted is set once an authorized reviewer approves the record.
	IsPromoted bool `json:"is_promoted"`

	// ReviewerID identifies the approving reviewer; set only on promotion.
	ReviewerID string `json:"reviewer_id,omitempty"`

	// CreatedAt and PromotedAt are epoch milliseconds.
	CreatedAt  int64 `json:"created_at"`
	PromotedAt int64 `json:"promoted_at,omitempty"`
}

// New builds a draft Record with a generated id, enforcing the structural
// rules: at least one parent, and confidence strictly above the parents'.
func New(parentIDs []string, category, primary, summary string, confidence, parentConfidence float64) (*Record, error) {
	if len(parentIDs) == 0 {
		return nil, &IntegrityError{Msg: "must reference at least one parent atom"}
	}
	if confidence <= parentConfidence {
		return nil, &IntegrityError{
			Msg: fmt.Sprintf("confidence (%.3f) must be higher than parent confidence (%.3f)",
				confidence, parentConfidence),
		}
	}

	raw := fmt.Sprintf("%s:%s:%s:%d", category, primary, summary, time.Now().UnixNano())
	sum := sha256.Sum256([]byte(raw))
	id := fmt.Sprintf("%x", sum)[:16]

	return &Record{
		KnowletID:        id,
		ParentIDs:        parentIDs,
		Category:         category,
		Primary:          primary,
		Summary:          summary,
		Confidence:       clamp01(confidence),
		ParentConfidence: clamp01(parentConfidence),
		CreatedAt:        time.Now().UnixMilli(),
	}, nil
}

// Promote returns a promoted copy of the record. An empty reviewer id is a
// permission violation, never a silent no-op.
func (r *Record) Promote(reviewerID string) (*Record, error) {
	if reviewerID == "" {
		return nil, &PermissionError{Op: "promote"}
	}

	promoted := *r
	promoted.IsPromoted = true
	promoted.ReviewerID = reviewerID
	promoted.PromotedAt = time.Now().UnixMilli()
	return &promoted, nil
}

// Marshal serializes the record for persistence.
func (r *Record) Marshal() ([]byte, error) {
	data, err := json.Marshal(r)
	if err != nil {
		return nil, fmt.Errorf("knowlet: marshal %s: %w", r.KnowletID, err)
	}
	return data, nil
}

// Unmarshal parses a persisted record.
func Unmarshal(data []byte) (*Record, error) {
	var r Record
	if err := json.Unmarshal(data, &r); err != nil {
		return nil, fmt.Errorf("knowlet: unmarshal: %w", err)
	}
	return &r, nil
}

func clamp01(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}
