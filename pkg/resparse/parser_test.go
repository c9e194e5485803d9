package resparse_test

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kestrel-tools/resforge/pkg/configdesc"
	"github.com/kestrel-tools/resforge/pkg/diag"
	"github.com/kestrel-tools/resforge/pkg/resparse"
	"github.com/kestrel-tools/resforge/pkg/restable"
	"github.com/kestrel-tools/resforge/pkg/xmlpull"
)

func parseValues(t *testing.T, body string, options resparse.Options) (*restable.Table, *diag.Recorder, bool) {
	t.Helper()

	table := restable.New()
	rec := &diag.Recorder{}

	parser := resparse.New(rec, table, diag.Source{Path: "res/values/test.xml"}, configdesc.Default(), options)
	ok := parser.Parse(xmlpull.NewFromBytes([]byte("<resources>" + body + "</resources>")))

	return table, rec, ok
}

func mustParseValues(t *testing.T, body string) *restable.Table {
	t.Helper()

	table, rec, ok := parseValues(t, body, resparse.Options{})
	require.True(t, ok, "parse failed: %v", rec.Messages)

	return table
}

func resourceValue(t *testing.T, table *restable.Table, name string) restable.Value {
	t.Helper()

	parsed, _, ok := restable.ParseName(name)
	require.True(t, ok)

	result, found := table.FindResource(parsed)
	require.True(t, found, "resource %q not in table", name)

	cv := result.Entry.FindValue(configdesc.Default())
	require.NotNil(t, cv)

	return cv.Value
}

func TestParse_String(t *testing.T) {
	t.Parallel()

	table := mustParseValues(t, `<string name="hello">  Hello World  </string>`)

	str, ok := resourceValue(t, table, "string/hello").(*restable.String)
	require.True(t, ok)
	assert.Equal(t, "Hello World", str.Ref.String())
}

func TestParse_StringTranslatable(t *testing.T) {
	t.Parallel()

	table, rec, ok := parseValues(t,
		`<string name="app_name" translatable="false">resforge</string>`,
		resparse.Options{DefaultTranslatable: true})
	require.True(t, ok, "%v", rec.Messages)

	str, isString := resourceValue(t, table, "string/app_name").(*restable.String)
	require.True(t, isString)
	assert.False(t, str.Translatable)
}

func TestParse_StyledString(t *testing.T) {
	t.Parallel()

	table := mustParseValues(t, `<string name="styled">Hello <b>bold</b> world</string>`)

	styled, ok := resourceValue(t, table, "string/styled").(*restable.StyledString)
	require.True(t, ok)

	style := styled.Ref.Style()
	assert.Equal(t, "Hello bold world", style.Str)
	require.Len(t, style.Spans, 1)
	assert.Equal(t, "b", style.Spans[0].Name)
	assert.Equal(t, uint32(6), style.Spans[0].FirstChar)
	assert.Equal(t, uint32(9), style.Spans[0].LastChar)
}

func TestParse_StringXliffPassesTextThrough(t *testing.T) {
	t.Parallel()

	table := mustParseValues(t,
		`<string name="x" xmlns:xliff="urn:oasis:names:tc:xliff:document:1.2">count: <xliff:g id="n">%1$d</xliff:g></string>`)

	str, ok := resourceValue(t, table, "string/x").(*restable.String)
	require.True(t, ok)
	assert.Equal(t, "count: %1$d", str.Ref.String())
}

func TestParse_StringFormatAmbiguity(t *testing.T) {
	t.Parallel()

	const body = `<string name="bad">%s ate %d</string>`

	// The check only applies to formatted, translatable strings.
	_, rec, ok := parseValues(t, body, resparse.Options{
		DefaultTranslatable:        true,
		ErrorOnPositionalArguments: true,
	})
	assert.False(t, ok)
	assert.Equal(t, 1, rec.ErrorCount())

	// Legacy mode downgrades the ambiguity to a warning.
	_, rec, ok = parseValues(t, body, resparse.Options{DefaultTranslatable: true})
	assert.True(t, ok)
	assert.Zero(t, rec.ErrorCount())
	require.Len(t, rec.Messages, 1)
	assert.Equal(t, diag.SeverityWarn, rec.Messages[0].Severity)
}

func TestParse_TypedItems(t *testing.T) {
	t.Parallel()

	table := mustParseValues(t, `
		<bool name="flag">true</bool>
		<color name="accent">#1abc</color>
		<dimen name="margin">16dp</dimen>
		<integer name="count">0x10</integer>`)

	prim, ok := resourceValue(t, table, "color/accent").(*restable.Primitive)
	require.True(t, ok)
	assert.Equal(t, restable.DataTypeColorARGB4, prim.DataType)
	assert.Equal(t, uint32(0x11aabbcc), prim.Data)

	prim, ok = resourceValue(t, table, "integer/count").(*restable.Primitive)
	require.True(t, ok)
	assert.Equal(t, uint32(0x10), prim.Data)
}

func TestParse_ItemFormatMayNarrowNotWiden(t *testing.T) {
	t.Parallel()

	// integer narrowed out of the string item's accepted set.
	_, rec, ok := parseValues(t, `<item type="string" name="x" format="integer">5</item>`, resparse.Options{})
	assert.False(t, ok)
	require.NotEmpty(t, rec.Messages)
	assert.Contains(t, rec.Messages[0].Text, "not accepted for resource type")

	// Narrowing within the accepted set works.
	table := mustParseValues(t, `<item type="dimen" name="pad" format="dimension">16dp</item>`)
	prim, isPrim := resourceValue(t, table, "dimen/pad").(*restable.Primitive)
	require.True(t, isPrim)
	assert.Equal(t, restable.DataTypeDimension, prim.DataType)
}

func TestParse_IDAndCreateReference(t *testing.T) {
	t.Parallel()

	table := mustParseValues(t, `
		<id name="top"/>
		<dimen name="pad">@+id/created</dimen>`)

	_, ok := resourceValue(t, table, "id/top").(*restable.Placeholder)
	assert.True(t, ok)

	// The @+ reference declared the id as a side effect.
	_, ok = resourceValue(t, table, "id/created").(*restable.Placeholder)
	assert.True(t, ok)
}

func TestParse_AttrWithFlags(t *testing.T) {
	t.Parallel()

	table := mustParseValues(t, `
		<attr name="gravity">
			<flag name="left" value="0x1"/>
			<flag name="right" value="0x2"/>
		</attr>`)

	attr, ok := resourceValue(t, table, "attr/gravity").(*restable.Attribute)
	require.True(t, ok)
	assert.NotZero(t, attr.TypeMask&restable.MaskFlags)
	require.Len(t, attr.Symbols, 2)
	assert.Equal(t, "left", attr.Symbols[0].Symbol.Name.Entry)
	assert.Equal(t, uint32(0x1), attr.Symbols[0].Value)

	// Each symbol also registers its id resource.
	_, found := table.FindResource(restable.Name{Type: restable.TypeID, Entry: "left"})
	assert.True(t, found)
}

func TestParse_AttrDuplicateSymbol(t *testing.T) {
	t.Parallel()

	_, rec, ok := parseValues(t, `
		<attr name="gravity">
			<enum name="left" value="0"/>
			<enum name="left" value="1"/>
		</attr>`, resparse.Options{})
	assert.False(t, ok)
	require.NotEmpty(t, rec.Messages)
	assert.Contains(t, rec.Messages[0].Text, "duplicate symbol 'left'")

	// The note points at the first declaration.
	require.GreaterOrEqual(t, len(rec.Messages), 2)
	assert.Equal(t, diag.SeverityNote, rec.Messages[1].Severity)
}

func TestParse_AttrEnumFlagMutuallyExclusive(t *testing.T) {
	t.Parallel()

	_, rec, ok := parseValues(t, `
		<attr name="mixed">
			<enum name="a" value="0"/>
			<flag name="b" value="1"/>
		</attr>`, resparse.Options{})
	assert.False(t, ok)
	assert.NotZero(t, rec.ErrorCount())
}

func TestParse_AttrBoundsRequireInteger(t *testing.T) {
	t.Parallel()

	_, rec, ok := parseValues(t, `<attr name="alpha" format="float" min="0"/>`, resparse.Options{})
	assert.False(t, ok)
	require.NotEmpty(t, rec.Messages)
	assert.Contains(t, rec.Messages[0].Text, "'min' and 'max'")

	table := mustParseValues(t, `<attr name="count" format="integer" min="0" max="10"/>`)
	attr := resourceValue(t, table, "attr/count").(*restable.Attribute)
	require.NotNil(t, attr.Min)
	require.NotNil(t, attr.Max)
	assert.Equal(t, int32(0), *attr.Min)
	assert.Equal(t, int32(10), *attr.Max)
}

func TestParse_AttrEmptyFormatMeansAny(t *testing.T) {
	t.Parallel()

	table := mustParseValues(t, `<attr name="anything"/>`)
	attr := resourceValue(t, table, "attr/anything").(*restable.Attribute)
	assert.Equal(t, restable.MaskAny, attr.TypeMask)
}

func TestParse_StyleWithExplicitParent(t *testing.T) {
	t.Parallel()

	table := mustParseValues(t, `
		<style name="Child" parent="@android:style/Widget.Button">
			<item name="android:textColor">#ff0000</item>
		</style>`)

	style, ok := resourceValue(t, table, "style/Child").(*restable.Style)
	require.True(t, ok)
	require.NotNil(t, style.Parent)
	assert.False(t, style.ParentInferred)
	assert.Equal(t, "android", style.Parent.Name.Package)
	assert.Equal(t, "Widget.Button", style.Parent.Name.Entry)

	require.Len(t, style.Entries, 1)
	assert.Equal(t, restable.Name{Package: "android", Type: restable.TypeAttr, Entry: "textColor"},
		style.Entries[0].Key.Name)
}

func TestParse_StyleParentInference(t *testing.T) {
	t.Parallel()

	table := mustParseValues(t, `<style name="Widget.Button.Big"/>`)

	style := resourceValue(t, table, "style/Widget.Button.Big").(*restable.Style)
	require.NotNil(t, style.Parent)
	assert.True(t, style.ParentInferred)
	assert.Equal(t, "Widget.Button", style.Parent.Name.Entry)

	// An explicitly empty parent disables inference.
	table = mustParseValues(t, `<style name="Widget.Plain" parent=""/>`)
	style = resourceValue(t, table, "style/Widget.Plain").(*restable.Style)
	assert.Nil(t, style.Parent)
}

func TestParse_StyleBadParent(t *testing.T) {
	t.Parallel()

	_, rec, ok := parseValues(t, `<style name="S" parent="@layout/main"/>`, resparse.Options{})
	assert.False(t, ok)
	require.NotEmpty(t, rec.Messages)
	assert.Contains(t, rec.Messages[0].Text, "parent of style")
}

func TestParse_Plurals(t *testing.T) {
	t.Parallel()

	table := mustParseValues(t, `
		<plurals name="apples">
			<item quantity="one">an apple</item>
			<item quantity="other">%d apples</item>
		</plurals>`)

	plural := resourceValue(t, table, "plurals/apples").(*restable.Plural)
	assert.NotNil(t, plural.Values[restable.PluralOne])
	assert.NotNil(t, plural.Values[restable.PluralOther])
	assert.Nil(t, plural.Values[restable.PluralZero])
}

func TestParse_PluralsDuplicateQuantity(t *testing.T) {
	t.Parallel()

	_, rec, ok := parseValues(t, `
		<plurals name="apples">
			<item quantity="one">x</item>
			<item quantity="one">y</item>
		</plurals>`, resparse.Options{})
	assert.False(t, ok)
	require.NotEmpty(t, rec.Messages)
	assert.Contains(t, rec.Messages[0].Text, "duplicate quantity 'one'")
}

func TestParse_Arrays(t *testing.T) {
	t.Parallel()

	table := mustParseValues(t, `
		<string-array name="names">
			<item>alpha</item>
			<item>beta</item>
		</string-array>
		<integer-array name="counts">
			<item>1</item>
			<item>2</item>
		</integer-array>`)

	arr := resourceValue(t, table, "array/names").(*restable.Array)
	require.Len(t, arr.Items, 2)
	_, isString := arr.Items[0].(*restable.String)
	assert.True(t, isString)

	arr = resourceValue(t, table, "array/counts").(*restable.Array)
	require.Len(t, arr.Items, 2)
	_, isPrim := arr.Items[0].(*restable.Primitive)
	assert.True(t, isPrim)
}

func TestParse_IntegerArrayRejectsText(t *testing.T) {
	t.Parallel()

	_, rec, ok := parseValues(t, `
		<integer-array name="counts">
			<item>one</item>
		</integer-array>`, resparse.Options{})
	assert.False(t, ok)
	assert.NotZero(t, rec.ErrorCount())
}

func TestParse_PublicSetsVisibilityAndID(t *testing.T) {
	t.Parallel()

	table := mustParseValues(t, `<public type="string" name="title" id="0x7f020000"/>`)

	result, found := table.FindResource(restable.Name{Type: restable.TypeString, Entry: "title"})
	require.True(t, found)
	assert.Equal(t, restable.SymbolPublic, result.Entry.Symbol.State)
	require.NotNil(t, result.Entry.ID)
	assert.Equal(t, uint16(0), *result.Entry.ID)
	require.NotNil(t, result.Type.ID)
	assert.Equal(t, uint8(0x02), *result.Type.ID)
}

func TestParse_PublicGroupAssignsSequentialIDs(t *testing.T) {
	t.Parallel()

	table := mustParseValues(t, `
		<public-group type="string" first-id="0x7f020000">
			<public name="a"/>
			<public name="b"/>
		</public-group>`)

	resultA, _ := table.FindResource(restable.Name{Type: restable.TypeString, Entry: "a"})
	resultB, _ := table.FindResource(restable.Name{Type: restable.TypeString, Entry: "b"})
	require.NotNil(t, resultA.Entry.ID)
	require.NotNil(t, resultB.Entry.ID)
	assert.Equal(t, uint16(0), *resultA.Entry.ID)
	assert.Equal(t, uint16(1), *resultB.Entry.ID)
	assert.Equal(t, restable.SymbolPublic, resultA.Entry.Symbol.State)
}

func TestParse_SymbolDeclarations(t *testing.T) {
	t.Parallel()

	table := mustParseValues(t, `
		<java-symbol type="string" name="internal"/>
		<add-resource type="string" name="later"/>`)

	result, _ := table.FindResource(restable.Name{Type: restable.TypeString, Entry: "internal"})
	assert.Equal(t, restable.SymbolPrivate, result.Entry.Symbol.State)

	result, _ = table.FindResource(restable.Name{Type: restable.TypeString, Entry: "later"})
	assert.Equal(t, restable.SymbolUndefined, result.Entry.Symbol.State)
}

func TestParse_DeclareStyleable(t *testing.T) {
	t.Parallel()

	table := mustParseValues(t, `
		<declare-styleable name="MyView">
			<attr name="myColor" format="color"/>
			<attr name="android:text"/>
		</declare-styleable>`)

	result, found := table.FindResource(restable.Name{Type: restable.TypeStyleable, Entry: "MyView"})
	require.True(t, found)
	assert.Equal(t, restable.SymbolPublic, result.Entry.Symbol.State)

	styleable := result.Entry.Values[0].Value.(*restable.Styleable)
	require.Len(t, styleable.Entries, 2)
	assert.Equal(t, "android", styleable.Entries[1].Name.Package)

	// Local child attrs land in the table as weak attributes.
	attr, ok := resourceValue(t, table, "attr/myColor").(*restable.Attribute)
	require.True(t, ok)
	assert.True(t, attr.Weak)
	assert.Equal(t, restable.MaskColor, attr.TypeMask)
}

func TestParse_UnknownTypeWarnsAndFails(t *testing.T) {
	t.Parallel()

	_, rec, ok := parseValues(t, `<blueprint name="x">y</blueprint>`, resparse.Options{})
	assert.False(t, ok)
	require.NotEmpty(t, rec.Messages)
	assert.Contains(t, rec.Messages[0].Text, "unknown resource type")
}

func TestParse_EatCommentDiscardsComment(t *testing.T) {
	t.Parallel()

	table := mustParseValues(t, `
		<!-- swallowed -->
		<eat-comment/>
		<string name="x">y</string>`)

	result, _ := table.FindResource(restable.Name{Type: restable.TypeString, Entry: "x"})
	assert.Empty(t, result.Entry.Values[0].Comment)
}

func TestParse_CommentAttachesToValue(t *testing.T) {
	t.Parallel()

	table := mustParseValues(t, `
		<!-- The application title. -->
		<string name="title">resforge</string>`)

	result, _ := table.FindResource(restable.Name{Type: restable.TypeString, Entry: "title"})
	assert.Equal(t, "The application title.", result.Entry.Values[0].Comment)
}

func TestParse_RequiresResourcesRoot(t *testing.T) {
	t.Parallel()

	table := restable.New()
	rec := &diag.Recorder{}
	parser := resparse.New(rec, table, diag.Source{Path: "test.xml"}, configdesc.Default(), resparse.Options{})

	ok := parser.Parse(xmlpull.NewFromBytes([]byte(`<wrong/>`)))
	assert.False(t, ok)
	require.NotEmpty(t, rec.Messages)
	assert.True(t, strings.Contains(rec.Messages[0].Text, "<resources>"))
}
