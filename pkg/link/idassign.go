package link

import (
	"github.com/kestrel-tools/resforge/pkg/diag"
	"github.com/kestrel-tools/resforge/pkg/restable"
)

// AssignIDs gives every package, type, and entry in the table a numeric ID.
// IDs assigned earlier, by <public> declarations or a previous build, are
// kept; new IDs fill the gaps in iteration order so output is reproducible.
// Conflicting pre-assigned IDs are reported and fail the pass.
func AssignIDs(table *restable.Table, packageID uint8, r diag.Reporter) bool {
	ok := true

	for _, pkg := range table.Packages {
		if pkg.ID == nil {
			id := packageID
			pkg.ID = &id
		}

		if !assignTypeIDs(pkg, r) {
			ok = false
		}
	}

	return ok
}

func assignTypeIDs(pkg *restable.Package, r diag.Reporter) bool {
	takenTypes := make(map[uint8]*restable.TableType)

	for _, typ := range pkg.Types {
		if typ.ID == nil {
			continue
		}

		if other, taken := takenTypes[*typ.ID]; taken {
			diag.Errorf(r, diag.Source{}, "types '%s' and '%s' in package '%s' both assigned ID 0x%02x",
				other.Type, typ.Type, pkg.Name, *typ.ID)

			return false
		}

		takenTypes[*typ.ID] = typ
	}

	ok := true
	nextType := uint8(1)

	for _, typ := range pkg.Types {
		if typ.ID == nil {
			for takenTypes[nextType] != nil {
				nextType++
			}

			id := nextType
			typ.ID = &id
			takenTypes[id] = typ
			nextType++
		}

		if !assignEntryIDs(pkg, typ, r) {
			ok = false
		}
	}

	return ok
}

func assignEntryIDs(pkg *restable.Package, typ *restable.TableType, r diag.Reporter) bool {
	takenEntries := make(map[uint16]*restable.Entry)

	for _, entry := range typ.Entries {
		if entry.ID == nil {
			continue
		}

		if other, taken := takenEntries[*entry.ID]; taken {
			diag.Errorf(r, diag.Source{}, "resources '%s/%s' and '%s/%s' in package '%s' both assigned ID 0x%04x",
				typ.Type, other.Name, typ.Type, entry.Name, pkg.Name, *entry.ID)

			return false
		}

		takenEntries[*entry.ID] = entry
	}

	var nextEntry uint16

	for _, entry := range typ.Entries {
		if entry.ID != nil {
			continue
		}

		for takenEntries[nextEntry] != nil {
			nextEntry++
		}

		id := nextEntry
		entry.ID = &id
		takenEntries[id] = entry
		nextEntry++
	}

	return true
}
