package segment

import (
	"errors"
	"fmt"
)

// ErrInvalidChain is returned for segment chains the grammar does not define.
var ErrInvalidChain = errors.New("invalid segment chain")

// Validate checks a root-to-leaf chain:
//   - parameter segments must bind a non-empty name
//   - a catch-all or optional catch-all must be the last segment
//   - a parameter name may be bound only once
func Validate(chain []Segment) error {
	seen := make(map[string]bool)
	for i, seg := range chain {
		if !seg.Kind.IsParam() {
			continue
		}
		if seg.Name == "" {
			return fmt.Errorf("%w: segment %q binds an empty parameter name", ErrInvalidChain, seg.Raw)
		}
		if seg.Kind.IsCatchAll() && i != len(chain)-1 {
			return fmt.Errorf("%w: %s segment %q must be the last segment", ErrInvalidChain, seg.Kind, seg.Raw)
		}
		if seen[seg.Name] {
			return fmt.Errorf("%w: parameter %q bound twice", ErrInvalidChain, seg.Name)
		}
		seen[seg.Name] = true
	}
	return nil
}
