package tier

import "fmt"

// PermissionError reports an operation that tier policy forbids outright,
// such as deleting from the immortal tier or promoting into it without a
// reviewer. It is always returned, never downgraded to a silent no-op.
type PermissionError struct {
	Tier string
	Op   string
	Msg  string
}

func (e *PermissionError) Error() string {
	if e.Msg != "" {
		return fmt.Sprintf("tier %s: %s: %s", e.Tier, e.Op, e.Msg)
	}
	return fmt.Sprintf("tier %s: %s is not allowed on this tier", e.Tier, e.Op)
}
