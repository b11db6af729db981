package mintcap

import (
	"encoding/json"
	"fmt"
	"strings"
)

// Segments are joined on NUL and every address keeps a trailing separator,
// so "prefix of" collapses to a plain string prefix test that can never
// match across a segment boundary.
const separator = "\x00"

// Address identifies a contribution source as an ordered path of segments,
// coarser prefixes naming broader families of contributions.
type Address string

// NewAddress builds an address from its path segments. Segments may be
// empty but must not contain the separator byte.
func NewAddress(parts ...string) (Address, error) {
	var b strings.Builder
	for i, p := range parts {
		if strings.Contains(p, separator) {
			return "", fmt.Errorf("%w: segment %d contains a NUL byte", ErrInvalidAddress, i)
		}
		b.WriteString(p)
		b.WriteString(separator)
	}
	return Address(b.String()), nil
}

// MustAddress is NewAddress for literals known to be valid. It panics on
// invalid segments.
func MustAddress(parts ...string) Address {
	a, err := NewAddress(parts...)
	if err != nil {
		panic(err)
	}
	return a
}

// Parts returns the address's path segments.
func (a Address) Parts() []string {
	if a == "" {
		return nil
	}
	split := strings.Split(string(a), separator)
	// The trailing separator leaves one empty element behind the last segment.
	return split[:len(split)-1]
}

// HasPrefix reports whether prefix names this address or one of its
// ancestors. The empty address is a prefix of everything.
func (a Address) HasPrefix(prefix Address) bool {
	return strings.HasPrefix(string(a), string(prefix))
}

// String renders the segments slash-joined for logs and error messages.
func (a Address) String() string {
	return strings.Join(a.Parts(), "/")
}

// MarshalJSON writes the address as an array of path segments.
func (a Address) MarshalJSON() ([]byte, error) {
	parts := a.Parts()
	if parts == nil {
		parts = []string{}
	}
	return json.Marshal(parts)
}

// UnmarshalJSON reads an array of path segments.
func (a *Address) UnmarshalJSON(data []byte) error {
	var parts []string
	if err := json.Unmarshal(data, &parts); err != nil {
		return fmt.Errorf("%w: want an array of segments", ErrInvalidAddress)
	}
	addr, err := NewAddress(parts...)
	if err != nil {
		return err
	}
	*a = addr
	return nil
}
