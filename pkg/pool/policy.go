package pool

import (
	"fmt"
	"strings"

	"github.com/ajitpratap0/oganesson/pkg/errors"
)

// Policy selects what Acquire does when every instance is checked out.
type Policy int

const (
	// Static keeps the pool at its configured size. Acquire on an exhausted
	// pool fails with ErrDrained.
	Static Policy = iota
	// Dynamic grows the pool by one instance whenever Acquire finds no free
	// slot. It never fails with ErrDrained.
	Dynamic
)

// String returns the lowercase policy name.
func (p Policy) String() string {
	switch p {
	case Static:
		return "static"
	case Dynamic:
		return "dynamic"
	default:
		return fmt.Sprintf("policy(%d)", int(p))
	}
}

// ParsePolicy converts "static" or "dynamic" (case-insensitive) to a Policy.
// An empty string yields Static.
func ParsePolicy(s string) (Policy, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "static":
		return Static, nil
	case "dynamic":
		return Dynamic, nil
	default:
		return Static, errors.Newf(errors.ErrorTypeValidation, "unknown pool policy %q", s).
			WithDetail("policy", s)
	}
}

// MarshalText implements encoding.TextMarshaler.
func (p Policy) MarshalText() ([]byte, error) {
	if p != Static && p != Dynamic {
		return nil, errors.Newf(errors.ErrorTypeValidation, "invalid pool policy %d", int(p))
	}
	return []byte(p.String()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (p *Policy) UnmarshalText(text []byte) error {
	parsed, err := ParsePolicy(string(text))
	if err != nil {
		return err
	}
	*p = parsed
	return nil
}
