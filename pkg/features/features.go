package features

import (
	"fmt"
	"strings"
)

// Type identifies a category of work item. Premium types require a license;
// free types never do.
type Type string

const (
	PIA    Type = "PIA"
	Custom Type = "CUSTOM"
	DPIA   Type = "DPIA"
	LIA    Type = "LIA"
	TIA    Type = "TIA"
	Vendor Type = "VENDOR"

	// VendorCatalog is not a work item type. It is a catalog access flag
	// resolved through the same package and license chain as premium types.
	VendorCatalog Type = "VENDOR_CATALOG"
)

var freeTypes = []Type{PIA, Custom}

var premiumTypes = []Type{DPIA, LIA, TIA, Vendor}

var displayNames = map[Type]string{
	PIA:           "Privacy Impact Assessment",
	Custom:        "Custom Assessment",
	DPIA:          "Data Protection Impact Assessment",
	LIA:           "Legitimate Interest Assessment",
	TIA:           "Transfer Impact Assessment",
	Vendor:        "Vendor Risk Assessment",
	VendorCatalog: "Vendor Catalog",
}

// Free returns the feature types that are always entitled.
func Free() []Type {
	out := make([]Type, len(freeTypes))
	copy(out, freeTypes)
	return out
}

// Premium returns the feature types gated behind a license.
func Premium() []Type {
	out := make([]Type, len(premiumTypes))
	copy(out, premiumTypes)
	return out
}

// All returns free types followed by premium types.
func All() []Type {
	return append(Free(), premiumTypes...)
}

// IsFree reports whether t is in the free set.
func IsFree(t Type) bool {
	for _, f := range freeTypes {
		if f == t {
			return true
		}
	}
	return false
}

// IsPremium reports whether t is in the premium set.
func IsPremium(t Type) bool {
	for _, p := range premiumTypes {
		if p == t {
			return true
		}
	}
	return false
}

// DisplayName returns the human readable name of t, falling back to the raw value.
func DisplayName(t Type) string {
	if name, ok := displayNames[t]; ok {
		return name
	}
	return string(t)
}

// Parse normalizes s into a known Type.
func Parse(s string) (Type, error) {
	t := Type(strings.ToUpper(strings.TrimSpace(s)))
	if _, ok := displayNames[t]; !ok {
		return "", fmt.Errorf("unknown feature type: %q", s)
	}
	return t, nil
}

// ParseItemType is Parse restricted to work item types. Catalog flags such as
// VendorCatalog are rejected.
func ParseItemType(s string) (Type, error) {
	t, err := Parse(s)
	if err != nil {
		return "", err
	}
	if !IsFree(t) && !IsPremium(t) {
		return "", fmt.Errorf("not a work item type: %q", s)
	}
	return t, nil
}

func (t Type) String() string {
	return string(t)
}
