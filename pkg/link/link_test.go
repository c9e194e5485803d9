package link_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kestrel-tools/resforge/pkg/configdesc"
	"github.com/kestrel-tools/resforge/pkg/diag"
	"github.com/kestrel-tools/resforge/pkg/link"
	"github.com/kestrel-tools/resforge/pkg/resolve"
	"github.com/kestrel-tools/resforge/pkg/restable"
	"github.com/kestrel-tools/resforge/pkg/stringpool"
)

func mustName(t *testing.T, s string) restable.Name {
	t.Helper()

	name, _, ok := restable.ParseName(s)
	require.True(t, ok, "bad test name %q", s)

	return name
}

func add(t *testing.T, table *restable.Table, name string, value restable.Value) {
	t.Helper()

	rec := &diag.Recorder{}
	ok := table.AddResource(mustName(t, name), configdesc.Default(), diag.Source{Path: "test"}, value, rec)
	require.True(t, ok, "%v", rec.Messages)
}

func assignedID(t *testing.T, table *restable.Table, name string) restable.ID {
	t.Helper()

	result, ok := table.FindResource(mustName(t, name))
	require.True(t, ok)
	require.NotNil(t, result.Package.ID)
	require.NotNil(t, result.Type.ID)
	require.NotNil(t, result.Entry.ID)

	return restable.MakeID(*result.Package.ID, *result.Type.ID, *result.Entry.ID)
}

func TestAssignIDs_FillsGapsAroundPreassigned(t *testing.T) {
	t.Parallel()

	table := restable.New()
	rec := &diag.Recorder{}

	add(t, table, "com.app:string/a", &restable.Primitive{DataType: restable.DataTypeIntDec})
	add(t, table, "com.app:string/b", &restable.Primitive{DataType: restable.DataTypeIntDec})
	add(t, table, "com.app:string/c", &restable.Primitive{DataType: restable.DataTypeIntDec})

	// Pin "b" to entry 0 the way a <public> declaration would.
	require.True(t, table.SetSymbolState(mustName(t, "com.app:string/b"),
		restable.MakeID(0x7f, 0x01, 0x0000), diag.Source{}, restable.SymbolPublic, rec))

	require.True(t, link.AssignIDs(table, 0x7f, rec))
	assert.Zero(t, rec.ErrorCount())

	assert.Equal(t, restable.MakeID(0x7f, 0x01, 0x0000), assignedID(t, table, "com.app:string/b"))

	// Entries are sorted by name; a and c fill the remaining slots.
	assert.Equal(t, restable.MakeID(0x7f, 0x01, 0x0001), assignedID(t, table, "com.app:string/a"))
	assert.Equal(t, restable.MakeID(0x7f, 0x01, 0x0002), assignedID(t, table, "com.app:string/c"))
}

func TestAssignIDs_ConflictFails(t *testing.T) {
	t.Parallel()

	table := restable.New()
	rec := &diag.Recorder{}

	add(t, table, "com.app:string/a", &restable.Primitive{DataType: restable.DataTypeIntDec})
	add(t, table, "com.app:string/b", &restable.Primitive{DataType: restable.DataTypeIntDec})

	result, _ := table.FindResource(mustName(t, "com.app:string/a"))
	idA := uint16(3)
	result.Entry.ID = &idA

	result, _ = table.FindResource(mustName(t, "com.app:string/b"))
	idB := uint16(3)
	result.Entry.ID = &idB

	assert.False(t, link.AssignIDs(table, 0x7f, rec))
	assert.NotZero(t, rec.ErrorCount())
}

func TestMovePrivateAttributes(t *testing.T) {
	t.Parallel()

	table := restable.New()
	rec := &diag.Recorder{}

	add(t, table, "com.app:attr/pub", &restable.Attribute{TypeMask: restable.MaskAny})
	add(t, table, "com.app:attr/priv", &restable.Attribute{TypeMask: restable.MaskAny})
	require.True(t, table.SetSymbolState(mustName(t, "com.app:attr/pub"), 0,
		diag.Source{}, restable.SymbolPublic, rec))

	link.MovePrivateAttributes(table)

	pkg := table.FindPackage("com.app")
	attrType := pkg.FindType(restable.TypeAttr)
	require.NotNil(t, attrType)
	require.Len(t, attrType.Entries, 1)
	assert.Equal(t, "pub", attrType.Entries[0].Name)

	privType := pkg.FindType(restable.TypeAttrPrivate)
	require.NotNil(t, privType)
	require.Len(t, privType.Entries, 1)
	assert.Equal(t, "priv", privType.Entries[0].Name)
}

func TestMovePrivateAttributes_AllPrivateStaysPut(t *testing.T) {
	t.Parallel()

	table := restable.New()

	add(t, table, "com.app:attr/a", &restable.Attribute{TypeMask: restable.MaskAny})
	add(t, table, "com.app:attr/b", &restable.Attribute{TypeMask: restable.MaskAny})

	link.MovePrivateAttributes(table)

	pkg := table.FindPackage("com.app")
	assert.Len(t, pkg.FindType(restable.TypeAttr).Entries, 2)
	assert.Nil(t, pkg.FindType(restable.TypeAttrPrivate))
}

func TestMovePrivateAttributes_VisitsEveryPackage(t *testing.T) {
	t.Parallel()

	table := restable.New()
	rec := &diag.Recorder{}

	// An all-private attr type in an earlier package must not stop the
	// split from running in later ones.
	add(t, table, "aaa:attr/internal", &restable.Attribute{TypeMask: restable.MaskAny})
	add(t, table, "bbb:attr/pub", &restable.Attribute{TypeMask: restable.MaskAny})
	add(t, table, "bbb:attr/hidden", &restable.Attribute{TypeMask: restable.MaskAny})
	require.True(t, table.SetSymbolState(mustName(t, "bbb:attr/pub"), 0,
		diag.Source{}, restable.SymbolPublic, rec))

	link.MovePrivateAttributes(table)

	first := table.FindPackage("aaa")
	assert.Len(t, first.FindType(restable.TypeAttr).Entries, 1)
	assert.Nil(t, first.FindType(restable.TypeAttrPrivate))

	second := table.FindPackage("bbb")
	require.Len(t, second.FindType(restable.TypeAttr).Entries, 1)
	assert.Equal(t, "pub", second.FindType(restable.TypeAttr).Entries[0].Name)

	privType := second.FindType(restable.TypeAttrPrivate)
	require.NotNil(t, privType)
	require.Len(t, privType.Entries, 1)
	assert.Equal(t, "hidden", privType.Entries[0].Name)
}

// linkedTable builds a table with assigned IDs, ready for reference linking.
func linkedTable(t *testing.T) *restable.Table {
	t.Helper()

	table := restable.New()

	add(t, table, "com.app:string/target", &restable.Primitive{DataType: restable.DataTypeIntDec})
	add(t, table, "com.app:attr/size", &restable.Attribute{TypeMask: restable.MaskDimension})

	rec := &diag.Recorder{}
	require.True(t, link.AssignIDs(table, 0x7f, rec))

	return table
}

func TestReferenceLinker_ResolvesLocalNames(t *testing.T) {
	t.Parallel()

	table := linkedTable(t)
	add(t, table, "com.app:string/alias", &restable.Reference{Name: mustName(t, "string/target")})

	rec := &diag.Recorder{}
	require.True(t, link.AssignIDs(table, 0x7f, rec))

	linker := link.NewReferenceLinker(rec, resolve.New(table), "com.app", nil)
	require.True(t, linker.Link(table), "%v", rec.Messages)

	result, _ := table.FindResource(mustName(t, "com.app:string/alias"))
	ref := result.Entry.Values[0].Value.(*restable.Reference)
	assert.Equal(t, "com.app", ref.Name.Package)
	assert.Equal(t, assignedID(t, table, "com.app:string/target"), ref.ID)
}

func TestReferenceLinker_MissingTargetFails(t *testing.T) {
	t.Parallel()

	table := linkedTable(t)
	add(t, table, "com.app:string/alias", &restable.Reference{Name: mustName(t, "string/nowhere")})

	rec := &diag.Recorder{}
	require.True(t, link.AssignIDs(table, 0x7f, rec))

	linker := link.NewReferenceLinker(rec, resolve.New(table), "com.app", nil)
	assert.False(t, linker.Link(table))
	require.NotEmpty(t, rec.Messages)
	assert.Contains(t, rec.Messages[0].Text, "not found")
}

func TestReferenceLinker_MissingTargetSuggestsTypo(t *testing.T) {
	t.Parallel()

	table := linkedTable(t)
	add(t, table, "com.app:string/alias", &restable.Reference{Name: mustName(t, "string/targte")})

	rec := &diag.Recorder{}
	require.True(t, link.AssignIDs(table, 0x7f, rec))

	linker := link.NewReferenceLinker(rec, resolve.New(table), "com.app", nil)
	assert.False(t, linker.Link(table))
	require.NotEmpty(t, rec.Messages)
	assert.Contains(t, rec.Messages[0].Text, "did you mean 'target'")
}

func TestReferenceLinker_MangledPackageRewrite(t *testing.T) {
	t.Parallel()

	table := restable.New()
	rec := &diag.Recorder{}

	// The statically merged library entry, already mangled.
	ok := table.AddResourceAllowMangled(
		restable.Name{Package: "com.app", Type: restable.TypeString, Entry: "com.lib$title"},
		configdesc.Default(), diag.Source{},
		&restable.Primitive{DataType: restable.DataTypeIntDec}, rec)
	require.True(t, ok)

	add(t, table, "com.app:string/alias", &restable.Reference{Name: mustName(t, "com.lib:string/title")})

	require.True(t, link.AssignIDs(table, 0x7f, rec))

	linker := link.NewReferenceLinker(rec, resolve.New(table), "com.app", map[string]bool{"com.lib": true})
	require.True(t, linker.Link(table), "%v", rec.Messages)

	result, _ := table.FindResource(mustName(t, "com.app:string/alias"))
	ref := result.Entry.Values[0].Value.(*restable.Reference)
	assert.Equal(t, "com.app", ref.Name.Package)
	assert.Equal(t, "com.lib$title", ref.Name.Entry)
	assert.True(t, ref.ID.IsValid())
}

func TestReferenceLinker_StyleEntriesReparse(t *testing.T) {
	t.Parallel()

	table := linkedTable(t)

	style := &restable.Style{
		Entries: []restable.StyleEntry{{
			Key:   restable.Reference{Name: mustName(t, "attr/size")},
			Value: &restable.RawString{Ref: table.StringPool.MakeRef("16dp", stringpool.Context{})},
		}},
	}
	add(t, table, "com.app:style/Box", style)

	rec := &diag.Recorder{}
	require.True(t, link.AssignIDs(table, 0x7f, rec))

	linker := link.NewReferenceLinker(rec, resolve.New(table), "com.app", nil)
	require.True(t, linker.Link(table), "%v", rec.Messages)

	assert.True(t, style.Entries[0].Key.ID.IsValid())

	prim, isPrim := style.Entries[0].Value.(*restable.Primitive)
	require.True(t, isPrim, "raw string should have been re-parsed against the attribute")
	assert.Equal(t, restable.DataTypeDimension, prim.DataType)
}

func TestReferenceLinker_StyleEntryBadValueFails(t *testing.T) {
	t.Parallel()

	table := linkedTable(t)

	style := &restable.Style{
		Entries: []restable.StyleEntry{{
			Key:   restable.Reference{Name: mustName(t, "attr/size")},
			Value: &restable.RawString{Ref: table.StringPool.MakeRef("not a size", stringpool.Context{})},
		}},
	}
	add(t, table, "com.app:style/Box", style)

	rec := &diag.Recorder{}
	require.True(t, link.AssignIDs(table, 0x7f, rec))

	linker := link.NewReferenceLinker(rec, resolve.New(table), "com.app", nil)
	assert.False(t, linker.Link(table))
	require.NotEmpty(t, rec.Messages)
	assert.Contains(t, rec.Messages[0].Text, "not a valid value for attribute")
}

func TestReferenceLinker_InferredParentMissIsNotAnError(t *testing.T) {
	t.Parallel()

	table := linkedTable(t)

	style := &restable.Style{
		ParentInferred: true,
		Parent:         &restable.Reference{Name: mustName(t, "style/Does.Not.Exist")},
	}
	add(t, table, "com.app:style/Does.Not.Exist.Child", style)

	rec := &diag.Recorder{}
	require.True(t, link.AssignIDs(table, 0x7f, rec))

	linker := link.NewReferenceLinker(rec, resolve.New(table), "com.app", nil)
	assert.True(t, linker.Link(table))
	assert.Zero(t, rec.ErrorCount())
	assert.Nil(t, style.Parent)
}
