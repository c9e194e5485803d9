// Package restable implements the resource table: the queryable store of
// packages, types, entries, and config-qualified values built from parsed
// resource declarations, along with the typed value model those entries
// hold. All mutation is in-place and single-threaded; failures are reported
// through a diagnostics sink and leave the table in a valid state.
package restable

import (
	"fmt"
	"strings"
)

// Type is a resource kind. The set is closed: unknown kinds fail parsing.
type Type uint8

// Resource kinds.
const (
	TypeAnim Type = iota
	TypeAnimator
	TypeArray
	TypeAttr
	TypeAttrPrivate
	TypeBool
	TypeColor
	TypeDimen
	TypeDrawable
	TypeFont
	TypeFraction
	TypeID
	TypeInteger
	TypeInterpolator
	TypeLayout
	TypeMenu
	TypeMipmap
	TypePlurals
	TypeRaw
	TypeString
	TypeStyle
	TypeStyleable
	TypeTransition
	TypeXML
)

var typeNames = map[Type]string{
	TypeAnim:         "anim",
	TypeAnimator:     "animator",
	TypeArray:        "array",
	TypeAttr:         "attr",
	TypeAttrPrivate:  "^attr-private",
	TypeBool:         "bool",
	TypeColor:        "color",
	TypeDimen:        "dimen",
	TypeDrawable:     "drawable",
	TypeFont:         "font",
	TypeFraction:     "fraction",
	TypeID:           "id",
	TypeInteger:      "integer",
	TypeInterpolator: "interpolator",
	TypeLayout:       "layout",
	TypeMenu:         "menu",
	TypeMipmap:       "mipmap",
	TypePlurals:      "plurals",
	TypeRaw:          "raw",
	TypeString:       "string",
	TypeStyle:        "style",
	TypeStyleable:    "styleable",
	TypeTransition:   "transition",
	TypeXML:          "xml",
}

var typesByName = func() map[string]Type {
	m := make(map[string]Type, len(typeNames))
	for t, name := range typeNames {
		m[name] = t
	}

	return m
}()

// String returns the type's grammar name, e.g. "string" or "declare-styleable"'s
// target type "styleable".
func (t Type) String() string {
	if name, ok := typeNames[t]; ok {
		return name
	}

	return fmt.Sprintf("type(%d)", uint8(t))
}

// ParseType maps a grammar name to its resource kind.
func ParseType(s string) (Type, bool) {
	t, ok := typesByName[s]

	return t, ok
}

// Name is the (package, type, entry) triple identifying a resource. An empty
// package means the current, not-yet-named package; it is resolved during
// linking.
type Name struct {
	Package string
	Type    Type
	Entry   string
}

// String renders the name as "[package:]type/entry".
func (n Name) String() string {
	var b strings.Builder

	if n.Package != "" {
		b.WriteString(n.Package)
		b.WriteByte(':')
	}

	b.WriteString(n.Type.String())
	b.WriteByte('/')
	b.WriteString(n.Entry)

	return b.String()
}

// IsValid reports whether the name has an entry. The package may be empty.
func (n Name) IsValid() bool {
	return n.Entry != ""
}

// ID is a packed resource identifier: 8-bit package, 8-bit type, 16-bit
// entry. The zero value means "unassigned"; IDs are only meaningful once the
// package and type fields are non-zero.
type ID uint32

// MakeID packs the three identifier fields.
func MakeID(pkg uint8, typ uint8, entry uint16) ID {
	return ID(uint32(pkg)<<24 | uint32(typ)<<16 | uint32(entry))
}

// PackageID returns the 8-bit package field.
func (id ID) PackageID() uint8 {
	return uint8(id >> 24)
}

// TypeID returns the 8-bit type field.
func (id ID) TypeID() uint8 {
	return uint8(id >> 16)
}

// EntryID returns the 16-bit entry field.
func (id ID) EntryID() uint16 {
	return uint16(id)
}

// IsValid reports whether both the package and type fields are assigned.
func (id ID) IsValid() bool {
	return id.PackageID() != 0 && id.TypeID() != 0
}

// String renders the ID in the conventional 0xPPTTEEEE form.
func (id ID) String() string {
	return fmt.Sprintf("0x%08x", uint32(id))
}

// Valid characters for entry names. Compiled names allow dots, underscores
// and dashes; names re-imported from a compiled table may also carry the '$'
// mangling separator.
const (
	validNameChars        = "._-"
	validMangledNameChars = "._-$"
)

// checkName returns the first invalid rune in an entry name, or -1 if the
// name is well formed under the given extra character set.
func checkName(entry string, extraChars string) rune {
	for _, r := range entry {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9':
		case strings.ContainsRune(extraChars, r):
		default:
			return r
		}
	}

	return -1
}

// ExtractName splits "[package:][type/]entry" into its raw components
// without validating the type. It reports false when a separator is present
// but its field is empty.
func ExtractName(s string) (pkg, typ, entry string, ok bool) {
	rest := s

	if i := strings.IndexByte(rest, '/'); i >= 0 {
		typ = rest[:i]
		if j := strings.IndexByte(typ, ':'); j >= 0 {
			pkg = typ[:j]
			typ = typ[j+1:]

			if pkg == "" {
				return "", "", "", false
			}
		}

		rest = rest[i+1:]

		if typ == "" {
			return "", "", "", false
		}
	} else if i := strings.IndexByte(rest, ':'); i >= 0 {
		pkg = rest[:i]
		rest = rest[i+1:]

		if pkg == "" {
			return "", "", "", false
		}
	}

	return pkg, typ, rest, true
}

// ParseName parses "[*][package:]type/entry" as used in references and
// symbol declarations. The leading '*' marks a private reference.
func ParseName(s string) (Name, bool, bool) {
	if s == "" {
		return Name{}, false, false
	}

	private := false
	if s[0] == '*' {
		private = true
		s = s[1:]
	}

	pkg, typStr, entry, ok := ExtractName(s)
	if !ok || entry == "" {
		return Name{}, false, false
	}

	typ, ok := ParseType(typStr)
	if !ok {
		return Name{}, false, false
	}

	return Name{Package: pkg, Type: typ, Entry: entry}, private, true
}
