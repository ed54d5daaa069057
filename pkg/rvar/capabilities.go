package rvar

import "strings"

// Capabilities describe what a variable supports.
type Capabilities uint8

const (
	// CapNew means the value can change over time.
	CapNew Capabilities = 1 << iota

	// CapModify means external code may request changes. Always set
	// together with CapNew.
	CapModify

	// CapCapsChange means the capability set itself may change between
	// updates, as with a context variable whose source is replaced.
	CapCapsChange
)

// Has reports whether all flags in f are set.
func (c Capabilities) Has(f Capabilities) bool {
	return c&f == f
}

// CanModify reports whether the variable accepts modify requests right now.
func (c Capabilities) CanModify() bool {
	return c.Has(CapModify)
}

// IsAlwaysReadOnly reports whether the variable can never be modified.
func (c Capabilities) IsAlwaysReadOnly() bool {
	return !c.Has(CapModify) && !c.Has(CapCapsChange)
}

// IsAlwaysStatic reports whether the variable can never change.
func (c Capabilities) IsAlwaysStatic() bool {
	return c == 0
}

// AsReadOnly strips CapModify.
func (c Capabilities) AsReadOnly() Capabilities {
	return c &^ CapModify
}

// normalize enforces CapModify implying CapNew.
func (c Capabilities) normalize() Capabilities {
	if c.Has(CapModify) {
		c |= CapNew
	}
	return c
}

func (c Capabilities) String() string {
	if c == 0 {
		return "STATIC"
	}
	var parts []string
	if c.Has(CapNew) {
		parts = append(parts, "NEW")
	}
	if c.Has(CapModify) {
		parts = append(parts, "MODIFY")
	}
	if c.Has(CapCapsChange) {
		parts = append(parts, "CAPS_CHANGE")
	}
	return strings.Join(parts, "|")
}
