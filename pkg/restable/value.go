package restable

import (
	"fmt"
	"io"
	"strings"

	"github.com/kestrel-tools/resforge/pkg/stringpool"
)

// Primitive wire types, matching the binary table encoding so values survive
// a round trip through a pre-compiled source unchanged.
const (
	DataTypeNull       uint8 = 0x00
	DataTypeReference  uint8 = 0x01
	DataTypeAttribute  uint8 = 0x02
	DataTypeFloat      uint8 = 0x04
	DataTypeDimension  uint8 = 0x05
	DataTypeFraction   uint8 = 0x06
	DataTypeIntDec     uint8 = 0x10
	DataTypeIntHex     uint8 = 0x11
	DataTypeIntBool    uint8 = 0x12
	DataTypeColorARGB8 uint8 = 0x1c
	DataTypeColorRGB8  uint8 = 0x1d
	DataTypeColorARGB4 uint8 = 0x1e
	DataTypeColorRGB4  uint8 = 0x1f
)

// DataNullEmpty is the data word of an explicit @empty primitive.
const DataNullEmpty uint32 = 1

// Attribute type-mask bits. The low bits describe primitive formats; enum
// and flags live above them so an integer literal can still satisfy an
// enum/flags attribute.
const (
	MaskReference uint32 = 1 << 0
	MaskString    uint32 = 1 << 1
	MaskInteger   uint32 = 1 << 2
	MaskBoolean   uint32 = 1 << 3
	MaskColor     uint32 = 1 << 4
	MaskFloat     uint32 = 1 << 5
	MaskDimension uint32 = 1 << 6
	MaskFraction  uint32 = 1 << 7
	MaskEnum      uint32 = 1 << 16
	MaskFlags     uint32 = 1 << 17
	MaskAny       uint32 = 0x0000ffff
)

// Value is any resource value: an atomic Item or a compound Bag.
type Value interface {
	// IsWeak reports whether the value loses collisions against strong
	// values for the same (entry, config).
	IsWeak() bool
	// Equals reports whether the other value is semantically identical.
	Equals(other Value) bool
	// Clone deep-copies the value, re-interning pooled strings into pool.
	Clone(pool *stringpool.Pool) Value
	// String renders a short human-readable form for diagnostics.
	String() string
}

// Item is an atomic value that can appear inside bags.
type Item interface {
	Value
	isItem()
}

// FileHandle resolves a file-backed resource to its contents. The merger
// records handles for a deferred copy; nothing in this package reads them.
type FileHandle interface {
	Path() string
	Open() (io.ReadCloser, error)
}

// ReferenceType distinguishes @type/name resource references from
// ?attr/name theme-attribute lookups.
type ReferenceType uint8

// Reference kinds.
const (
	ReferenceResource ReferenceType = iota
	ReferenceAttribute
)

// Reference points at another resource by name and/or assigned ID.
type Reference struct {
	Name    Name
	ID      ID
	RefType ReferenceType
	Private bool
}

func (*Reference) isItem() {}

// IsWeak reports false: a reference is a strong value.
func (*Reference) IsWeak() bool { return false }

// Equals compares name, ID, kind, and visibility.
func (r *Reference) Equals(other Value) bool {
	o, ok := other.(*Reference)

	return ok && *r == *o
}

// Clone copies the reference. References hold no pooled strings.
func (r *Reference) Clone(*stringpool.Pool) Value {
	clone := *r

	return &clone
}

func (r *Reference) String() string {
	prefix := "@"
	if r.RefType == ReferenceAttribute {
		prefix = "?"
	}

	if r.Name.IsValid() {
		return prefix + r.Name.String()
	}

	return prefix + r.ID.String()
}

// Placeholder is the sentinel value of a declared-but-untyped resource
// (an <id>, or the target of @+). It carries no payload and yields to any
// other value during collision resolution.
type Placeholder struct{}

func (*Placeholder) isItem() {}

// IsWeak reports true: placeholders lose every collision.
func (*Placeholder) IsWeak() bool { return true }

// Equals reports whether other is also a placeholder.
func (*Placeholder) Equals(other Value) bool {
	_, ok := other.(*Placeholder)

	return ok
}

// Clone returns a new placeholder.
func (*Placeholder) Clone(*stringpool.Pool) Value { return &Placeholder{} }

func (*Placeholder) String() string { return "(id)" }

// Primitive is a 32-bit typed data word: integers, floats, dimensions,
// fractions, colors, booleans, and the @null/@empty sentinels.
type Primitive struct {
	DataType uint8
	Data     uint32
}

func (*Primitive) isItem() {}

// IsWeak reports false.
func (*Primitive) IsWeak() bool { return false }

// Equals compares the type tag and data word.
func (p *Primitive) Equals(other Value) bool {
	o, ok := other.(*Primitive)

	return ok && *p == *o
}

// Clone copies the primitive.
func (p *Primitive) Clone(*stringpool.Pool) Value {
	clone := *p

	return &clone
}

func (p *Primitive) String() string {
	return fmt.Sprintf("(primitive) type=0x%02x data=0x%08x", p.DataType, p.Data)
}

// String is a plain pooled string value.
type String struct {
	Ref          stringpool.Ref
	Translatable bool
}

func (*String) isItem() {}

// IsWeak reports false.
func (*String) IsWeak() bool { return false }

// Equals compares string contents; pool identity does not matter.
func (s *String) Equals(other Value) bool {
	o, ok := other.(*String)

	return ok && s.Ref.String() == o.Ref.String() && s.Translatable == o.Translatable
}

// Clone re-interns the text into pool.
func (s *String) Clone(pool *stringpool.Pool) Value {
	return &String{Ref: pool.MakeRef(s.Ref.String(), stringpool.Context{}), Translatable: s.Translatable}
}

func (s *String) String() string {
	return fmt.Sprintf("(string) %q", s.Ref.String())
}

// StyledString is a pooled string with markup spans.
type StyledString struct {
	Ref          stringpool.StyleRef
	Translatable bool
}

func (*StyledString) isItem() {}

// IsWeak reports false.
func (*StyledString) IsWeak() bool { return false }

// Equals compares the flattened text and spans.
func (s *StyledString) Equals(other Value) bool {
	o, ok := other.(*StyledString)
	if !ok || s.Translatable != o.Translatable {
		return false
	}

	a, b := s.Ref.Style(), o.Ref.Style()
	if a.Str != b.Str || len(a.Spans) != len(b.Spans) {
		return false
	}

	for i := range a.Spans {
		if a.Spans[i] != b.Spans[i] {
			return false
		}
	}

	return true
}

// Clone copies the styled string into pool.
func (s *StyledString) Clone(pool *stringpool.Pool) Value {
	style := s.Ref.Style()
	spans := make([]stringpool.Span, len(style.Spans))
	copy(spans, style.Spans)

	return &StyledString{
		Ref:          pool.MakeStyleRef(stringpool.Style{Str: style.Str, Spans: spans}, stringpool.Context{}),
		Translatable: s.Translatable,
	}
}

func (s *StyledString) String() string {
	return fmt.Sprintf("(styled string) %q", s.Ref.Style().Str)
}

// RawString is text that could not be parsed as any typed item and was kept
// verbatim for a later processing stage.
type RawString struct {
	Ref stringpool.Ref
}

func (*RawString) isItem() {}

// IsWeak reports false.
func (*RawString) IsWeak() bool { return false }

// Equals compares the raw text.
func (s *RawString) Equals(other Value) bool {
	o, ok := other.(*RawString)

	return ok && s.Ref.String() == o.Ref.String()
}

// Clone re-interns the text into pool.
func (s *RawString) Clone(pool *stringpool.Pool) Value {
	return &RawString{Ref: pool.MakeRef(s.Ref.String(), stringpool.Context{})}
}

func (s *RawString) String() string {
	return fmt.Sprintf("(raw string) %q", s.Ref.String())
}

// FileReference is a resource whose value lives in a separate file. The path
// is pooled; File is resolved lazily by the merger and may be nil.
type FileReference struct {
	PathRef stringpool.Ref
	File    FileHandle
}

func (*FileReference) isItem() {}

// IsWeak reports false.
func (*FileReference) IsWeak() bool { return false }

// Equals compares destination paths only; the backing handle is transient.
func (f *FileReference) Equals(other Value) bool {
	o, ok := other.(*FileReference)

	return ok && f.PathRef.String() == o.PathRef.String()
}

// Clone re-interns the path into pool and carries the handle over.
func (f *FileReference) Clone(pool *stringpool.Pool) Value {
	return &FileReference{PathRef: pool.MakeRef(f.PathRef.String(), stringpool.Context{}), File: f.File}
}

func (f *FileReference) String() string {
	return fmt.Sprintf("(file) %s", f.PathRef.String())
}

// AttributeSymbol is one enum or flag constant of an attribute. Symbols are
// stored as references to id/<name> resources; matching happens against the
// entry portion of the name.
type AttributeSymbol struct {
	Symbol Reference
	Value  uint32
}

// Attribute describes an attr resource: the formats it accepts, optional
// integer bounds, and its enum/flag symbol table. Attributes declared inside
// <declare-styleable> are weak and yield to a later full declaration.
type Attribute struct {
	Weak     bool
	TypeMask uint32
	Min      *int32
	Max      *int32
	Symbols  []AttributeSymbol
}

// IsWeak reports whether this declaration may be overridden.
func (a *Attribute) IsWeak() bool { return a.Weak }

// Equals compares masks, bounds, and symbol tables.
func (a *Attribute) Equals(other Value) bool {
	o, ok := other.(*Attribute)
	if !ok || a.Weak != o.Weak || a.TypeMask != o.TypeMask || len(a.Symbols) != len(o.Symbols) {
		return false
	}

	if !equalBound(a.Min, o.Min) || !equalBound(a.Max, o.Max) {
		return false
	}

	for i := range a.Symbols {
		if a.Symbols[i] != o.Symbols[i] {
			return false
		}
	}

	return true
}

func equalBound(a, b *int32) bool {
	if a == nil || b == nil {
		return a == b
	}

	return *a == *b
}

// Clone deep-copies the attribute.
func (a *Attribute) Clone(*stringpool.Pool) Value {
	clone := &Attribute{Weak: a.Weak, TypeMask: a.TypeMask}

	if a.Min != nil {
		v := *a.Min
		clone.Min = &v
	}

	if a.Max != nil {
		v := *a.Max
		clone.Max = &v
	}

	clone.Symbols = make([]AttributeSymbol, len(a.Symbols))
	copy(clone.Symbols, a.Symbols)

	return clone
}

func (a *Attribute) String() string {
	var b strings.Builder

	b.WriteString("(attr)")
	if a.Weak {
		b.WriteString(" weak")
	}

	fmt.Fprintf(&b, " mask=0x%08x", a.TypeMask)

	return b.String()
}

// StyleEntry is one key/value pair of a style. The key is always a reference
// to an attr resource.
type StyleEntry struct {
	Key   Reference
	Value Item
}

// Style is a named collection of attribute settings with an optional parent.
// The parent stays a name until a linking phase resolves it; the parent may
// legitimately not exist yet at parse time.
type Style struct {
	Parent         *Reference
	ParentInferred bool
	Entries        []StyleEntry
}

// IsWeak reports false.
func (*Style) IsWeak() bool { return false }

// Equals compares parents and entries in order.
func (s *Style) Equals(other Value) bool {
	o, ok := other.(*Style)
	if !ok || len(s.Entries) != len(o.Entries) {
		return false
	}

	if (s.Parent == nil) != (o.Parent == nil) {
		return false
	}

	if s.Parent != nil && *s.Parent != *o.Parent {
		return false
	}

	for i := range s.Entries {
		if s.Entries[i].Key != o.Entries[i].Key || !s.Entries[i].Value.Equals(o.Entries[i].Value) {
			return false
		}
	}

	return true
}

// Clone deep-copies the style into pool.
func (s *Style) Clone(pool *stringpool.Pool) Value {
	clone := &Style{ParentInferred: s.ParentInferred}

	if s.Parent != nil {
		parent := *s.Parent
		clone.Parent = &parent
	}

	clone.Entries = make([]StyleEntry, len(s.Entries))
	for i, e := range s.Entries {
		clone.Entries[i] = StyleEntry{Key: e.Key, Value: e.Value.Clone(pool).(Item)}
	}

	return clone
}

func (s *Style) String() string {
	if s.Parent != nil {
		return fmt.Sprintf("(style) parent=%s entries=%d", s.Parent, len(s.Entries))
	}

	return fmt.Sprintf("(style) entries=%d", len(s.Entries))
}

// Array is an ordered list of items.
type Array struct {
	Items        []Item
	Translatable bool
}

// IsWeak reports false.
func (*Array) IsWeak() bool { return false }

// Equals compares items in order.
func (a *Array) Equals(other Value) bool {
	o, ok := other.(*Array)
	if !ok || a.Translatable != o.Translatable || len(a.Items) != len(o.Items) {
		return false
	}

	for i := range a.Items {
		if !a.Items[i].Equals(o.Items[i]) {
			return false
		}
	}

	return true
}

// Clone deep-copies the array into pool.
func (a *Array) Clone(pool *stringpool.Pool) Value {
	clone := &Array{Translatable: a.Translatable, Items: make([]Item, len(a.Items))}
	for i, item := range a.Items {
		clone.Items[i] = item.Clone(pool).(Item)
	}

	return clone
}

func (a *Array) String() string {
	return fmt.Sprintf("(array) items=%d", len(a.Items))
}

// Plural quantity slots.
const (
	PluralZero = iota
	PluralOne
	PluralTwo
	PluralFew
	PluralMany
	PluralOther
	PluralCount
)

// Plural holds one value per grammatical quantity. Unset slots are nil.
type Plural struct {
	Values [PluralCount]Item
}

// IsWeak reports false.
func (*Plural) IsWeak() bool { return false }

// Equals compares each quantity slot.
func (p *Plural) Equals(other Value) bool {
	o, ok := other.(*Plural)
	if !ok {
		return false
	}

	for i := range p.Values {
		a, b := p.Values[i], o.Values[i]
		if (a == nil) != (b == nil) {
			return false
		}

		if a != nil && !a.Equals(b) {
			return false
		}
	}

	return true
}

// Clone deep-copies the plural into pool.
func (p *Plural) Clone(pool *stringpool.Pool) Value {
	clone := &Plural{}

	for i, v := range p.Values {
		if v != nil {
			clone.Values[i] = v.Clone(pool).(Item)
		}
	}

	return clone
}

func (p *Plural) String() string {
	set := 0

	for _, v := range p.Values {
		if v != nil {
			set++
		}
	}

	return fmt.Sprintf("(plurals) quantities=%d", set)
}

// Styleable is an ordered list of attribute references grouped for code
// generation. It only exists in the default configuration.
type Styleable struct {
	Entries []Reference
}

// IsWeak reports false.
func (*Styleable) IsWeak() bool { return false }

// Equals compares the attribute references in order.
func (s *Styleable) Equals(other Value) bool {
	o, ok := other.(*Styleable)
	if !ok || len(s.Entries) != len(o.Entries) {
		return false
	}

	for i := range s.Entries {
		if s.Entries[i] != o.Entries[i] {
			return false
		}
	}

	return true
}

// Clone copies the styleable.
func (s *Styleable) Clone(*stringpool.Pool) Value {
	clone := &Styleable{Entries: make([]Reference, len(s.Entries))}
	copy(clone.Entries, s.Entries)

	return clone
}

func (s *Styleable) String() string {
	return fmt.Sprintf("(styleable) attrs=%d", len(s.Entries))
}
