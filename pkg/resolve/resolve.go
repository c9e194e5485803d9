// Package resolve answers symbol queries against a resource table under
// construction, falling back to precompiled dependency tables for anything
// the local table does not define.
package resolve

import (
	"github.com/kestrel-tools/resforge/pkg/configdesc"
	"github.com/kestrel-tools/resforge/pkg/restable"
)

// Source supplies symbols from outside the table being built, typically a
// dependency's compiled resource table.
type Source interface {
	// IDForName returns the resource ID assigned to name.
	IDForName(name restable.Name) (restable.ID, bool)
	// NameForID is the reverse lookup.
	NameForID(id restable.ID) (restable.Name, bool)
	// Bag returns the map entries of a bag resource (attribute definitions
	// and their enum or flag symbols).
	Bag(id restable.ID) (*Bag, bool)
}

// BagEntry is one key/value pair of a bag resource.
type BagEntry struct {
	Key   restable.ID
	Value restable.Primitive
}

// Bag is the flattened form of a complex resource in a compiled table.
type Bag struct {
	ParentID restable.ID
	Entries  []BagEntry
}

// Keys identifying the attribute-definition entries of an attr bag.
const (
	bagKeyAttrType uint32 = 0x01000000
	bagKeyAttrMin  uint32 = 0x01000001
	bagKeyAttrMax  uint32 = 0x01000002
)

// Entry is a resolved symbol: its ID, and for attributes, the attribute
// definition needed to parse values against it.
type Entry struct {
	ID        restable.ID
	Attribute *restable.Attribute
}

// Resolver looks up symbols first in the local table, then in the fallback
// sources in order. Results, including misses, are cached for the lifetime
// of the resolver; it assumes the table's assigned IDs no longer change.
type Resolver struct {
	table   *restable.Table
	sources []Source
	cache   map[restable.Name]*Entry
}

// New returns a resolver over table with the given fallback sources.
func New(table *restable.Table, sources ...Source) *Resolver {
	return &Resolver{
		table:   table,
		sources: sources,
		cache:   make(map[restable.Name]*Entry),
	}
}

// FindID resolves a name to its assigned resource ID.
func (r *Resolver) FindID(name restable.Name) (restable.ID, bool) {
	entry := r.find(name)
	if entry == nil {
		return 0, false
	}

	return entry.ID, true
}

// FindAttribute resolves a name to an attribute definition. It fails if the
// name resolves to something other than an attribute.
func (r *Resolver) FindAttribute(name restable.Name) (*Entry, bool) {
	entry := r.find(name)
	if entry == nil || entry.Attribute == nil {
		return nil, false
	}

	return entry, true
}

// FindName reverse-resolves an ID, consulting fallback sources only.
func (r *Resolver) FindName(id restable.ID) (restable.Name, bool) {
	if pkg := r.table.FindPackageByID(id.PackageID()); pkg != nil {
		for _, typ := range pkg.Types {
			if typ.ID == nil || *typ.ID != id.TypeID() {
				continue
			}

			for _, entry := range typ.Entries {
				if entry.ID != nil && *entry.ID == id.EntryID() {
					return restable.Name{Package: pkg.Name, Type: typ.Type, Entry: entry.Name}, true
				}
			}
		}
	}

	for _, src := range r.sources {
		if name, ok := src.NameForID(id); ok {
			return name, true
		}
	}

	return restable.Name{}, false
}

func (r *Resolver) find(name restable.Name) *Entry {
	if cached, ok := r.cache[name]; ok {
		return cached
	}

	entry := r.findLocal(name)
	if entry == nil {
		entry = r.findInSources(name)
	}

	r.cache[name] = entry

	return entry
}

func (r *Resolver) findLocal(name restable.Name) *Entry {
	result, ok := r.table.FindResource(name)
	if !ok {
		return nil
	}

	// Only fully assigned resources have a usable ID.
	if result.Package.ID == nil || result.Type.ID == nil || result.Entry.ID == nil {
		return nil
	}

	entry := &Entry{
		ID: restable.MakeID(*result.Package.ID, *result.Type.ID, *result.Entry.ID),
	}

	if name.Type == restable.TypeAttr || name.Type == restable.TypeAttrPrivate {
		if cv := result.Entry.FindValue(configdesc.Default()); cv != nil {
			if attr, ok := cv.Value.(*restable.Attribute); ok {
				entry.Attribute = attr
			}
		}
	}

	return entry
}

func (r *Resolver) findInSources(name restable.Name) *Entry {
	for _, src := range r.sources {
		id, ok := src.IDForName(name)
		if !ok {
			continue
		}

		entry := &Entry{ID: id}

		if name.Type == restable.TypeAttr || name.Type == restable.TypeAttrPrivate {
			if bag, ok := src.Bag(id); ok {
				entry.Attribute = r.attributeFromBag(src, bag)
			}
		}

		return entry
	}

	return nil
}

// attributeFromBag reconstructs an attribute definition from its compiled
// bag form. Enum and flag symbols are reverse-resolved to names so values
// can be matched by token.
func (r *Resolver) attributeFromBag(src Source, bag *Bag) *restable.Attribute {
	attr := &restable.Attribute{TypeMask: restable.MaskAny}

	for _, be := range bag.Entries {
		switch uint32(be.Key) {
		case bagKeyAttrType:
			attr.TypeMask = be.Value.Data

		case bagKeyAttrMin:
			v := int32(be.Value.Data)
			attr.Min = &v

		case bagKeyAttrMax:
			v := int32(be.Value.Data)
			attr.Max = &v

		default:
			symbolName, ok := src.NameForID(be.Key)
			if !ok {
				// An unresolvable symbol id; keep the raw reference.
				symbolName = restable.Name{}
			}

			attr.Symbols = append(attr.Symbols, restable.AttributeSymbol{
				Symbol: restable.Reference{Name: symbolName, ID: be.Key},
				Value:  be.Value.Data,
			})
		}
	}

	return attr
}
