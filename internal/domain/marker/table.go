// Package marker maps semantic event names to single-byte marker codes.
//
// A Table is built once at startup and never mutated. Lookups are pure, so
// a resolved code is passed by value to the transport and no marker state
// survives between dispatches.
package marker

import (
	"fmt"
	"sort"
	"strings"
)

// Code is the single-byte value written to the recording equipment.
type Code uint8

// Table is an immutable name to code mapping for one experiment protocol.
type Table struct {
	protocol string
	codes    map[string]Code
}

// New builds a Table for protocol from entries. The map is copied.
func New(protocol string, entries map[string]Code) (*Table, error) {
	if strings.TrimSpace(protocol) == "" {
		return nil, fmt.Errorf("%w: protocol name is empty", ErrInvalidTable)
	}
	if len(entries) == 0 {
		return nil, fmt.Errorf("%w: protocol %q has no entries", ErrInvalidTable, protocol)
	}
	codes := make(map[string]Code, len(entries))
	for name, code := range entries {
		if strings.TrimSpace(name) == "" {
			return nil, fmt.Errorf("%w: protocol %q has an empty event name", ErrInvalidTable, protocol)
		}
		codes[name] = code
	}
	return &Table{protocol: protocol, codes: codes}, nil
}

// Extend returns a new Table holding t's entries plus overrides.
// Overrides win on name clashes; t itself is left untouched.
func (t *Table) Extend(overrides map[string]Code) (*Table, error) {
	merged := make(map[string]Code, len(t.codes)+len(overrides))
	for name, code := range t.codes {
		merged[name] = code
	}
	for name, code := range overrides {
		merged[name] = code
	}
	return New(t.protocol, merged)
}

// Protocol returns the protocol name the table was built for.
func (t *Table) Protocol() string { return t.protocol }

// Len returns the number of entries.
func (t *Table) Len() int { return len(t.codes) }

// Lookup resolves name. Unknown names return ErrCodeNotFound.
func (t *Table) Lookup(name string) (Code, error) {
	code, ok := t.codes[name]
	if !ok {
		return 0, fmt.Errorf("%w: %q in protocol %q", ErrCodeNotFound, name, t.protocol)
	}
	return code, nil
}

// Names returns the event names in lexical order.
func (t *Table) Names() []string {
	names := make([]string, 0, len(t.codes))
	for name := range t.codes {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Require checks that every name is present and that no two of them share
// a code. Callers pass the names that can be active within one phase.
func (t *Table) Require(names ...string) error {
	owner := make(map[Code]string, len(names))
	for _, name := range names {
		code, err := t.Lookup(name)
		if err != nil {
			return err
		}
		if prev, dup := owner[code]; dup && prev != name {
			return fmt.Errorf("%w: %q and %q both map to %d", ErrCodeCollision, prev, name, code)
		}
		owner[code] = name
	}
	return nil
}
