package tier

import "fmt"

// Kind identifies one of the four durability tiers, totally ordered by
// durability rank. The zero value is invalid.
type Kind int

const (
	Short Kind = iota + 1
	Middle
	Long
	Immortal
)

// Kinds returns all tier kinds in ascending durability order.
func Kinds() []Kind {
	return []Kind{Short, Middle, Long, Immortal}
}

// String returns the tier's directory and log name.
func (k Kind) String() string {
	switch k {
	case Short:
		return "short"
	case Middle:
		return "middle"
	case Long:
		return "long"
	case Immortal:
		return "immortal"
	default:
		return "unknown"
	}
}

// Rank returns the durability rank, 1 (Short) through 4 (Immortal).
func (k Kind) Rank() int {
	return int(k)
}

// Deletable reports whether atoms stored in this tier may ever be removed.
// Immortal is the only tier where this is false, and the restriction is a
// hard invariant checked by every delete path.
func (k Kind) Deletable() bool {
	return k != Immortal
}

// Next returns the tier one rank up the durability order, or false when the
// tier is already Immortal.
func (k Kind) Next() (Kind, bool) {
	if k < Short || k >= Immortal {
		return 0, false
	}
	return k + 1, true
}

// ParseKind parses a tier name as produced by String.
func ParseKind(s string) (Kind, error) {
	switch s {
	case "short":
		return Short, nil
	case "middle":
		return Middle, nil
	case "long":
		return Long, nil
	case "immortal":
		return Immortal, nil
	default:
		return 0, fmt.Errorf("tier: unknown kind %q", s)
	}
}
