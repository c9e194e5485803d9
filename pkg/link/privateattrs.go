// Package link holds the passes run over a fully merged table before its
// final serialization: splitting private attributes, assigning resource IDs,
// and resolving symbolic references.
package link

import (
	"github.com/kestrel-tools/resforge/pkg/restable"
)

// MovePrivateAttributes splits non-public attributes out of a package's attr
// type into the synthetic ^attr-private type. The split happens only when
// the attr type carries public entries; an all-private attr type stays
// untouched since nothing forces its ID space to be stable.
func MovePrivateAttributes(table *restable.Table) {
	for _, pkg := range table.Packages {
		attrType := pkg.FindType(restable.TypeAttr)
		if attrType == nil {
			continue
		}

		if attrType.Symbol.State != restable.SymbolPublic {
			continue
		}

		privType := pkg.FindOrCreateType(restable.TypeAttrPrivate)

		kept := attrType.Entries[:0]

		for _, entry := range attrType.Entries {
			if entry.Symbol.State != restable.SymbolPublic {
				privType.Entries = append(privType.Entries, entry)
			} else {
				kept = append(kept, entry)
			}
		}

		attrType.Entries = kept
	}
}
