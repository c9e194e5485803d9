package restable

import (
	"sort"

	"github.com/kestrel-tools/resforge/pkg/configdesc"
	"github.com/kestrel-tools/resforge/pkg/diag"
	"github.com/kestrel-tools/resforge/pkg/stringpool"
)

// SymbolState is the visibility of a resource name. Visibility is monotonic:
// once Public it never regresses.
type SymbolState uint8

// Symbol states, in increasing visibility.
const (
	SymbolUndefined SymbolState = iota
	SymbolPrivate
	SymbolPublic
)

// String returns the display name of the state.
func (s SymbolState) String() string {
	switch s {
	case SymbolPrivate:
		return "private"
	case SymbolPublic:
		return "public"
	default:
		return "undefined"
	}
}

// Symbol records the visibility of a resource along with where and why it
// was declared.
type Symbol struct {
	State   SymbolState
	Source  diag.Source
	Comment string
}

// ConfigValue is a resource value under one configuration.
type ConfigValue struct {
	Config  configdesc.Config
	Source  diag.Source
	Comment string
	Value   Value
}

// Entry is one resource: an immutable name, an optional assigned entry ID,
// visibility, and at most one value per distinct configuration, kept sorted
// by configuration for deterministic iteration.
type Entry struct {
	Name   string
	ID     *uint16
	Symbol Symbol
	Values []ConfigValue
}

// FindValue returns the value for an exact configuration, or nil.
func (e *Entry) FindValue(config configdesc.Config) *ConfigValue {
	i := sort.Search(len(e.Values), func(i int) bool {
		return e.Values[i].Config.Compare(config) >= 0
	})

	if i < len(e.Values) && e.Values[i].Config == config {
		return &e.Values[i]
	}

	return nil
}

// FindOrCreateValue returns the value slot for config, inserting an empty
// one in sorted position if absent.
func (e *Entry) FindOrCreateValue(config configdesc.Config) *ConfigValue {
	i := sort.Search(len(e.Values), func(i int) bool {
		return e.Values[i].Config.Compare(config) >= 0
	})

	if i < len(e.Values) && e.Values[i].Config == config {
		return &e.Values[i]
	}

	e.Values = append(e.Values, ConfigValue{})
	copy(e.Values[i+1:], e.Values[i:])
	e.Values[i] = ConfigValue{Config: config}

	return &e.Values[i]
}

// TableType groups the entries of one resource kind within a package.
// Entries stay sorted by name for binary search.
type TableType struct {
	Type    Type
	ID      *uint8
	Symbol  Symbol
	Entries []*Entry
}

// FindEntry returns the entry with the given name, or nil.
func (t *TableType) FindEntry(name string) *Entry {
	i := sort.Search(len(t.Entries), func(i int) bool {
		return t.Entries[i].Name >= name
	})

	if i < len(t.Entries) && t.Entries[i].Name == name {
		return t.Entries[i]
	}

	return nil
}

// FindOrCreateEntry returns the named entry, creating it in sorted position
// if absent.
func (t *TableType) FindOrCreateEntry(name string) *Entry {
	i := sort.Search(len(t.Entries), func(i int) bool {
		return t.Entries[i].Name >= name
	})

	if i < len(t.Entries) && t.Entries[i].Name == name {
		return t.Entries[i]
	}

	entry := &Entry{Name: name}
	t.Entries = append(t.Entries, nil)
	copy(t.Entries[i+1:], t.Entries[i:])
	t.Entries[i] = entry

	return entry
}

// PackageKind classifies where a package comes from.
type PackageKind uint8

// Package kinds.
const (
	PackageApp PackageKind = iota
	PackageSystem
	PackageVendor
	PackageDynamic
)

// Package is a named set of resource types.
type Package struct {
	Kind  PackageKind
	Name  string
	ID    *uint8
	Types []*TableType
}

// FindType returns the type list for a resource kind, or nil.
func (p *Package) FindType(typ Type) *TableType {
	for _, t := range p.Types {
		if t.Type == typ {
			return t
		}
	}

	return nil
}

// FindOrCreateType returns the type list for a resource kind, creating it if
// absent.
func (p *Package) FindOrCreateType(typ Type) *TableType {
	if t := p.FindType(typ); t != nil {
		return t
	}

	t := &TableType{Type: typ}
	p.Types = append(p.Types, t)

	return t
}

// Table is the container and index for all resources of a compilation. It
// owns the string pool every contained value references; the pool must
// outlive the values, which it does by construction since both are dropped
// together.
type Table struct {
	StringPool *stringpool.Pool
	// Packages, sorted by name. The empty name sorts first and stands for
	// the current package before it is named.
	Packages []*Package
}

// New returns an empty table with its own string pool.
func New() *Table {
	return &Table{StringPool: &stringpool.Pool{}}
}

// SearchResult is the exact-match result of FindResource.
type SearchResult struct {
	Package *Package
	Type    *TableType
	Entry   *Entry
}

// FindResource looks up a resource by exact name. No configuration
// resolution happens here; that is a runtime concern outside this table.
func (t *Table) FindResource(name Name) (SearchResult, bool) {
	pkg := t.FindPackage(name.Package)
	if pkg == nil {
		return SearchResult{}, false
	}

	typ := pkg.FindType(name.Type)
	if typ == nil {
		return SearchResult{}, false
	}

	entry := typ.FindEntry(name.Entry)
	if entry == nil {
		return SearchResult{}, false
	}

	return SearchResult{Package: pkg, Type: typ, Entry: entry}, true
}

// FindPackage returns the package with the given name, or nil. The empty
// string is a valid package name for the current package.
func (t *Table) FindPackage(name string) *Package {
	i := sort.Search(len(t.Packages), func(i int) bool {
		return t.Packages[i].Name >= name
	})

	if i < len(t.Packages) && t.Packages[i].Name == name {
		return t.Packages[i]
	}

	return nil
}

// FindPackageByID returns the package with the assigned numeric ID, or nil.
func (t *Table) FindPackageByID(id uint8) *Package {
	for _, pkg := range t.Packages {
		if pkg.ID != nil && *pkg.ID == id {
			return pkg
		}
	}

	return nil
}

// CreatePackage finds or creates the named package. A non-nil id is only
// applied when the package has no ID yet; it returns nil if the package
// exists under a conflicting ID.
func (t *Table) CreatePackage(name string, id *uint8) *Package {
	pkg := t.findOrCreatePackage(name)

	if id != nil {
		if pkg.ID == nil {
			v := *id
			pkg.ID = &v
		} else if *pkg.ID != *id {
			return nil
		}
	}

	return pkg
}

func (t *Table) findOrCreatePackage(name string) *Package {
	i := sort.Search(len(t.Packages), func(i int) bool {
		return t.Packages[i].Name >= name
	})

	if i < len(t.Packages) && t.Packages[i].Name == name {
		return t.Packages[i]
	}

	pkg := &Package{Name: name}
	t.Packages = append(t.Packages, nil)
	copy(t.Packages[i+1:], t.Packages[i:])
	t.Packages[i] = pkg

	return pkg
}

// CollisionResult is the outcome of comparing two values for one
// (entry, config) slot.
type CollisionResult int

// Collision outcomes.
const (
	// CollisionKeepExisting keeps the value already in the table.
	CollisionKeepExisting CollisionResult = -1
	// CollisionConflict means neither value may silently win.
	CollisionConflict CollisionResult = 0
	// CollisionTakeIncoming replaces the existing value.
	CollisionTakeIncoming CollisionResult = 1
)

// ResolveValueCollision decides which of two values for the same
// (entry, config) survives. The order is deterministic and symmetric in the
// identity case:
//
//  1. semantically identical values merge silently, keeping the existing one;
//  2. a placeholder yields to any typed value, in either direction;
//  3. a weak attribute yields to a strong value;
//  4. between two weak attributes, a constrained type mask beats MaskAny,
//     and ties keep the existing declaration;
//  5. everything else is a conflict.
func ResolveValueCollision(existing, incoming Value) CollisionResult {
	if existing.Equals(incoming) {
		return CollisionKeepExisting
	}

	if _, ok := incoming.(*Placeholder); ok {
		return CollisionKeepExisting
	}

	if _, ok := existing.(*Placeholder); ok {
		return CollisionTakeIncoming
	}

	existingAttr, existingIsAttr := existing.(*Attribute)
	incomingAttr, incomingIsAttr := incoming.(*Attribute)

	if existingIsAttr && incomingIsAttr {
		switch {
		case existingAttr.Weak && !incomingAttr.Weak:
			return CollisionTakeIncoming
		case !existingAttr.Weak && incomingAttr.Weak:
			return CollisionKeepExisting
		case existingAttr.Weak && incomingAttr.Weak:
			// Both declared inside styleables. Prefer the one that states
			// a concrete format; ties keep the first declaration.
			if existingAttr.TypeMask == MaskAny && incomingAttr.TypeMask != MaskAny {
				return CollisionTakeIncoming
			}

			return CollisionKeepExisting
		}
	}

	if existing.IsWeak() && !incoming.IsWeak() {
		return CollisionTakeIncoming
	}

	if !existing.IsWeak() && incoming.IsWeak() {
		return CollisionKeepExisting
	}

	return CollisionConflict
}

// AddResource inserts value for (name, config), creating the package, type,
// and entry as needed. A collision with an existing value for the exact
// configuration is resolved by ResolveValueCollision; conflicts are reported
// to r and leave the table unchanged for that slot.
func (t *Table) AddResource(name Name, config configdesc.Config, source diag.Source, value Value, r diag.Reporter) bool {
	return t.addResourceImpl(name, 0, config, source, value, validNameChars, r)
}

// AddResourceWithID is AddResource for declarations that carry a resource ID
// (such as <public> entries). The ID fields, where set, must not contradict
// IDs already assigned.
func (t *Table) AddResourceWithID(name Name, id ID, config configdesc.Config, source diag.Source, value Value, r diag.Reporter) bool {
	return t.addResourceImpl(name, id, config, source, value, validNameChars, r)
}

// AddFileReference records a file-backed resource whose bytes live at path.
// The file handle may be nil; the merger resolves handles lazily.
func (t *Table) AddFileReference(name Name, config configdesc.Config, source diag.Source, path string, file FileHandle, r diag.Reporter) bool {
	ref := &FileReference{
		PathRef: t.StringPool.MakeRef(path, stringpool.Context{Config: config}),
		File:    file,
	}

	return t.addResourceImpl(name, 0, config, source, ref, validNameChars, r)
}

// AddResourceAllowMangled is AddResource without entry-name validation,
// for names re-imported from a compiled table that may contain the mangling
// separator.
func (t *Table) AddResourceAllowMangled(name Name, config configdesc.Config, source diag.Source, value Value, r diag.Reporter) bool {
	return t.addResourceImpl(name, 0, config, source, value, validMangledNameChars, r)
}

// AddResourceWithIDAllowMangled combines AddResourceWithID and
// AddResourceAllowMangled.
func (t *Table) AddResourceWithIDAllowMangled(name Name, id ID, config configdesc.Config, source diag.Source, value Value, r diag.Reporter) bool {
	return t.addResourceImpl(name, id, config, source, value, validMangledNameChars, r)
}

func (t *Table) addResourceImpl(name Name, id ID, config configdesc.Config, source diag.Source, value Value, validChars string, r diag.Reporter) bool {
	if value == nil {
		diag.Errorf(r, source, "resource '%s' has no value", name)

		return false
	}

	if bad := checkName(name.Entry, validChars); bad != -1 {
		diag.Errorf(r, source, "resource '%s' has invalid entry name '%s': invalid character '%c'",
			name, name.Entry, bad)

		return false
	}

	pkg := t.findOrCreatePackage(name.Package)
	if id.IsValid() && pkg.ID != nil && *pkg.ID != id.PackageID() {
		diag.Errorf(r, source, "trying to add resource '%s' with ID %s but package '%s' already has ID 0x%02x",
			name, id, pkg.Name, *pkg.ID)

		return false
	}

	typ := pkg.FindOrCreateType(name.Type)
	if id.IsValid() && typ.ID != nil && *typ.ID != id.TypeID() {
		diag.Errorf(r, source, "trying to add resource '%s' with ID %s but type '%s' already has ID 0x%02x",
			name, id, typ.Type, *typ.ID)

		return false
	}

	entry := typ.FindOrCreateEntry(name.Entry)
	if id.IsValid() && entry.ID != nil && *entry.ID != id.EntryID() {
		diag.Errorf(r, source, "trying to add resource '%s' with ID %s but resource already has entry ID 0x%04x",
			name, id, *entry.ID)

		return false
	}

	slot := entry.FindOrCreateValue(config)
	switch {
	case slot.Value == nil:
		slot.Source = source
		slot.Value = value

	default:
		switch ResolveValueCollision(slot.Value, value) {
		case CollisionTakeIncoming:
			slot.Source = source
			slot.Value = value

		case CollisionKeepExisting:

		case CollisionConflict:
			diag.Errorf(r, source, "duplicate value for resource '%s' with config '%s'", name, config)
			diag.Notef(r, slot.Source, "resource previously defined here")

			return false
		}
	}

	if id.IsValid() {
		setPackedID(pkg, typ, entry, id)
	}

	return true
}

// SetSymbolState sets the visibility of a resource, creating it if absent.
// Downgrading a Public symbol fails; equal or upgraded states succeed.
func (t *Table) SetSymbolState(name Name, id ID, source diag.Source, state SymbolState, r diag.Reporter) bool {
	return t.setSymbolStateImpl(name, id, source, state, validNameChars, r)
}

// SetSymbolStateAllowMangled is SetSymbolState without entry-name
// validation.
func (t *Table) SetSymbolStateAllowMangled(name Name, id ID, source diag.Source, state SymbolState, r diag.Reporter) bool {
	return t.setSymbolStateImpl(name, id, source, state, validMangledNameChars, r)
}

func (t *Table) setSymbolStateImpl(name Name, id ID, source diag.Source, state SymbolState, validChars string, r diag.Reporter) bool {
	if bad := checkName(name.Entry, validChars); bad != -1 {
		diag.Errorf(r, source, "symbol '%s' has invalid entry name '%s': invalid character '%c'",
			name, name.Entry, bad)

		return false
	}

	pkg := t.findOrCreatePackage(name.Package)
	typ := pkg.FindOrCreateType(name.Type)
	entry := typ.FindOrCreateEntry(name.Entry)

	if id.IsValid() {
		if pkg.ID != nil && *pkg.ID != id.PackageID() ||
			typ.ID != nil && *typ.ID != id.TypeID() ||
			entry.ID != nil && *entry.ID != id.EntryID() {
			diag.Errorf(r, source, "cannot set symbol state of '%s': ID %s conflicts with assigned IDs", name, id)

			return false
		}
	}

	// Visibility only moves forward. A Public symbol carries an externally
	// visible ID and must never become private or undefined again.
	if entry.Symbol.State == SymbolPublic && state != SymbolPublic {
		diag.Errorf(r, source, "cannot change symbol '%s' from public to %s", name, state)

		return false
	}

	if state == SymbolPublic {
		typ.Symbol.State = SymbolPublic
	}

	if state >= entry.Symbol.State {
		entry.Symbol = Symbol{State: state, Source: source}
	}

	if id.IsValid() {
		setPackedID(pkg, typ, entry, id)
	}

	return true
}

func setPackedID(pkg *Package, typ *TableType, entry *Entry, id ID) {
	if pkg.ID == nil {
		v := id.PackageID()
		pkg.ID = &v
	}

	if typ.ID == nil {
		v := id.TypeID()
		typ.ID = &v
	}

	if entry.ID == nil {
		v := id.EntryID()
		entry.ID = &v
	}
}
