package link

import (
	"github.com/kestrel-tools/resforge/pkg/diag"
	"github.com/kestrel-tools/resforge/pkg/levenshtein"
	"github.com/kestrel-tools/resforge/pkg/merge"
	"github.com/kestrel-tools/resforge/pkg/resolve"
	"github.com/kestrel-tools/resforge/pkg/resparse"
	"github.com/kestrel-tools/resforge/pkg/restable"
)

// maxSuggestionDistance bounds how far a candidate entry name may be from
// the misspelled one before it stops being a plausible typo.
const maxSuggestionDistance = 2

// ReferenceLinker resolves every symbolic reference in a table to its
// numeric ID. Style entries whose values could not be typed at parse time
// are re-parsed here against the attribute definition their key resolves to.
type ReferenceLinker struct {
	reporter diag.Reporter
	resolver *resolve.Resolver

	// localPackage qualifies references whose package is unspecified.
	localPackage string
	// mangledPackages are library packages folded into the local one; a
	// reference to them is rewritten to the mangled local name first.
	mangledPackages map[string]bool

	// table is the table being linked, kept so unresolved references can be
	// matched against its entry names for typo suggestions.
	table *restable.Table
}

// NewReferenceLinker returns a linker resolving against resolver. The
// mangledPackages set usually comes from the merger's MergedPackages.
func NewReferenceLinker(reporter diag.Reporter, resolver *resolve.Resolver, localPackage string, mangledPackages map[string]bool) *ReferenceLinker {
	return &ReferenceLinker{
		reporter:        reporter,
		resolver:        resolver,
		localPackage:    localPackage,
		mangledPackages: mangledPackages,
	}
}

// Link walks every value in the table. It returns false if any reference
// stayed unresolved; resolution continues past failures so one run reports
// them all.
func (l *ReferenceLinker) Link(table *restable.Table) bool {
	ok := true

	l.table = table

	for _, pkg := range table.Packages {
		for _, typ := range pkg.Types {
			for _, entry := range typ.Entries {
				for _, cv := range entry.Values {
					if !l.linkValue(cv.Value, cv.Source) {
						ok = false
					}
				}
			}
		}
	}

	return ok
}

func (l *ReferenceLinker) linkValue(value restable.Value, source diag.Source) bool {
	switch v := value.(type) {
	case *restable.Reference:
		return l.linkReference(v, source)

	case *restable.Style:
		return l.linkStyle(v, source)

	case *restable.Attribute:
		ok := true

		for i := range v.Symbols {
			if !l.linkReference(&v.Symbols[i].Symbol, source) {
				ok = false
			}
		}

		return ok

	case *restable.Styleable:
		ok := true

		for i := range v.Entries {
			if !l.linkReference(&v.Entries[i], source) {
				ok = false
			}
		}

		return ok

	case *restable.Array:
		ok := true

		for _, item := range v.Items {
			if !l.linkValue(item, source) {
				ok = false
			}
		}

		return ok

	case *restable.Plural:
		ok := true

		for _, item := range v.Values {
			if item != nil && !l.linkValue(item, source) {
				ok = false
			}
		}

		return ok
	}

	return true
}

func (l *ReferenceLinker) linkStyle(style *restable.Style, source diag.Source) bool {
	ok := true

	if style.Parent != nil {
		if style.ParentInferred && style.Parent.Name.Entry != "" {
			// An inferred parent that does not exist is not an error; the
			// dotted name was only a guess.
			l.qualifyReference(style.Parent)

			if id, found := l.resolver.FindID(style.Parent.Name); found {
				style.Parent.ID = id
			} else {
				style.Parent = nil
			}
		} else if !l.linkReference(style.Parent, source) {
			ok = false
		}
	}

	for i := range style.Entries {
		se := &style.Entries[i]

		l.qualifyReference(&se.Key)

		attrEntry, found := l.resolver.FindAttribute(se.Key.Name)
		if !found {
			diag.Errorf(l.reporter, source, "style attribute '%s' not found", se.Key.Name)

			ok = false

			continue
		}

		se.Key.ID = attrEntry.ID

		// Values that parsed as raw strings get a second chance now that the
		// attribute's accepted types are known.
		if raw, isRaw := se.Value.(*restable.RawString); isRaw {
			item := resparse.ParseItemForFullAttribute(raw.Ref.String(), attrEntry.Attribute, nil)
			if item == nil {
				diag.Errorf(l.reporter, source, "'%s' is not a valid value for attribute '%s'",
					raw.Ref.String(), se.Key.Name)

				ok = false

				continue
			}

			se.Value = item
		}

		if !l.linkValue(se.Value, source) {
			ok = false
		}
	}

	return ok
}

// qualifyReference pins down the package of a by-name reference: empty
// packages become the local one, and references into statically merged
// library packages are renamed to the mangled local entry.
func (l *ReferenceLinker) qualifyReference(ref *restable.Reference) {
	if ref.Name.Entry == "" {
		return
	}

	switch {
	case ref.Name.Package == "":
		ref.Name.Package = l.localPackage

	case l.mangledPackages[ref.Name.Package]:
		ref.Name = restable.Name{
			Package: l.localPackage,
			Type:    ref.Name.Type,
			Entry:   merge.MangleEntry(ref.Name.Package, ref.Name.Entry),
		}
	}
}

func (l *ReferenceLinker) linkReference(ref *restable.Reference, source diag.Source) bool {
	if ref.Name.Entry == "" {
		// Already a by-ID reference.
		if ref.ID.IsValid() {
			return true
		}

		diag.Errorf(l.reporter, source, "reference has neither name nor ID")

		return false
	}

	l.qualifyReference(ref)

	id, found := l.resolver.FindID(ref.Name)
	if !found {
		if suggestion := l.suggestEntry(ref.Name); suggestion != "" {
			diag.Errorf(l.reporter, source, "resource '%s' not found; did you mean '%s'?",
				ref.Name, suggestion)
		} else {
			diag.Errorf(l.reporter, source, "resource '%s' not found", ref.Name)
		}

		return false
	}

	ref.ID = id

	return true
}

// suggestEntry finds the entry of the same package and type whose name is
// closest to the unresolved one, or "" when nothing is plausibly a typo.
func (l *ReferenceLinker) suggestEntry(name restable.Name) string {
	if l.table == nil {
		return ""
	}

	pkg := l.table.FindPackage(name.Package)
	if pkg == nil && name.Package == l.localPackage {
		pkg = l.table.FindPackage("")
	}

	if pkg == nil {
		return ""
	}

	typ := pkg.FindType(name.Type)
	if typ == nil {
		return ""
	}

	var ctx levenshtein.Context

	best := ""
	bestDistance := maxSuggestionDistance + 1

	for _, entry := range typ.Entries {
		if entry.Name == name.Entry {
			continue
		}

		if distance := ctx.Distance(name.Entry, entry.Name); distance < bestDistance {
			best = entry.Name
			bestDistance = distance
		}
	}

	return best
}
