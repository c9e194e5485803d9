package restable_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kestrel-tools/resforge/pkg/restable"
)

func TestParseName(t *testing.T) {
	t.Parallel()

	name, private, ok := restable.ParseName("com.app:string/title")
	require.True(t, ok)
	assert.False(t, private)
	assert.Equal(t, restable.Name{Package: "com.app", Type: restable.TypeString, Entry: "title"}, name)

	name, private, ok = restable.ParseName("*android:attr/textColor")
	require.True(t, ok)
	assert.True(t, private)
	assert.Equal(t, "android", name.Package)
	assert.Equal(t, restable.TypeAttr, name.Type)

	name, _, ok = restable.ParseName("layout/main")
	require.True(t, ok)
	assert.Empty(t, name.Package)
	assert.Equal(t, "layout/main", name.String())

	for _, bad := range []string{"", "frobnicator/x", "string/", ":string/x", "/x"} {
		_, _, ok := restable.ParseName(bad)
		assert.False(t, ok, "%q should not parse", bad)
	}
}

func TestExtractName(t *testing.T) {
	t.Parallel()

	pkg, typ, entry, ok := restable.ExtractName("android:style/Widget.Button")
	require.True(t, ok)
	assert.Equal(t, "android", pkg)
	assert.Equal(t, "style", typ)
	assert.Equal(t, "Widget.Button", entry)

	// A bare "package:entry" form is used by style items.
	pkg, typ, entry, ok = restable.ExtractName("android:textColor")
	require.True(t, ok)
	assert.Equal(t, "android", pkg)
	assert.Empty(t, typ)
	assert.Equal(t, "textColor", entry)
}

func TestIDPacking(t *testing.T) {
	t.Parallel()

	id := restable.MakeID(0x7f, 0x02, 0x0010)
	assert.Equal(t, uint8(0x7f), id.PackageID())
	assert.Equal(t, uint8(0x02), id.TypeID())
	assert.Equal(t, uint16(0x0010), id.EntryID())
	assert.Equal(t, "0x7f020010", id.String())
	assert.True(t, id.IsValid())

	assert.False(t, restable.ID(0).IsValid())
	assert.False(t, restable.MakeID(0x7f, 0, 1).IsValid())
}

func TestParseType(t *testing.T) {
	t.Parallel()

	typ, ok := restable.ParseType("drawable")
	require.True(t, ok)
	assert.Equal(t, restable.TypeDrawable, typ)
	assert.Equal(t, "drawable", typ.String())

	_, ok = restable.ParseType("blueprint")
	assert.False(t, ok)
}
