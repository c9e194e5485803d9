package resparse_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kestrel-tools/resforge/pkg/resparse"
	"github.com/kestrel-tools/resforge/pkg/restable"
)

func TestTryParseColor(t *testing.T) {
	t.Parallel()

	cases := []struct {
		text     string
		dataType uint8
		data     uint32
	}{
		{"#abc", restable.DataTypeColorRGB4, 0xffaabbcc},
		{"#1abc", restable.DataTypeColorARGB4, 0x11aabbcc},
		{"#112233", restable.DataTypeColorRGB8, 0xff112233},
		{"#11223344", restable.DataTypeColorARGB8, 0x11223344},
		{"  #FF0000  ", restable.DataTypeColorRGB8, 0xffff0000},
	}

	for _, tc := range cases {
		prim := resparse.TryParseColor(tc.text)
		require.NotNil(t, prim, "%q should parse", tc.text)
		assert.Equal(t, tc.dataType, prim.DataType, tc.text)
		assert.Equal(t, tc.data, prim.Data, tc.text)
	}

	for _, bad := range []string{"", "abc", "#", "#ab", "#abcde", "#aabbccddee", "#12g4"} {
		assert.Nil(t, resparse.TryParseColor(bad), "%q should not parse", bad)
	}
}

func TestTryParseBool(t *testing.T) {
	t.Parallel()

	prim := resparse.TryParseBool("true")
	require.NotNil(t, prim)
	assert.Equal(t, uint8(restable.DataTypeIntBool), prim.DataType)
	assert.Equal(t, uint32(0xffffffff), prim.Data)

	prim = resparse.TryParseBool(" FALSE ")
	require.NotNil(t, prim)
	assert.Equal(t, uint32(0), prim.Data)

	assert.Nil(t, resparse.TryParseBool("yes"))
	assert.Nil(t, resparse.TryParseBool("1"))
}

func TestTryParseInt(t *testing.T) {
	t.Parallel()

	prim := resparse.TryParseInt("42")
	require.NotNil(t, prim)
	assert.Equal(t, uint8(restable.DataTypeIntDec), prim.DataType)
	assert.Equal(t, uint32(42), prim.Data)

	prim = resparse.TryParseInt("-7")
	require.NotNil(t, prim)
	assert.Equal(t, uint32(0xfffffff9), prim.Data)

	prim = resparse.TryParseInt("0x7f020001")
	require.NotNil(t, prim)
	assert.Equal(t, uint8(restable.DataTypeIntHex), prim.DataType)
	assert.Equal(t, uint32(0x7f020001), prim.Data)

	for _, bad := range []string{"", "-", "0x", "12a", "4294967296", "1.5"} {
		assert.Nil(t, resparse.TryParseInt(bad), "%q should not parse", bad)
	}
}

func TestTryParseFloat(t *testing.T) {
	t.Parallel()

	prim := resparse.TryParseFloat("1.5")
	require.NotNil(t, prim)
	assert.Equal(t, uint8(restable.DataTypeFloat), prim.DataType)

	prim = resparse.TryParseFloat("16dp")
	require.NotNil(t, prim)
	assert.Equal(t, uint8(restable.DataTypeDimension), prim.DataType)

	prim = resparse.TryParseFloat("25%p")
	require.NotNil(t, prim)
	assert.Equal(t, uint8(restable.DataTypeFraction), prim.DataType)

	assert.Nil(t, resparse.TryParseFloat("1.5meters"))
	assert.Nil(t, resparse.TryParseFloat("dp"))
}

func TestTryParseReference(t *testing.T) {
	t.Parallel()

	ref, create, ok := resparse.TryParseReference("@string/hello")
	require.True(t, ok)
	assert.False(t, create)
	assert.Equal(t, restable.ReferenceResource, ref.RefType)
	assert.Equal(t, restable.Name{Type: restable.TypeString, Entry: "hello"}, ref.Name)

	ref, create, ok = resparse.TryParseReference("@+id/below")
	require.True(t, ok)
	assert.True(t, create)
	assert.Equal(t, restable.TypeID, ref.Name.Type)

	ref, _, ok = resparse.TryParseReference("?android:attr/textColor")
	require.True(t, ok)
	assert.Equal(t, restable.ReferenceAttribute, ref.RefType)
	assert.Equal(t, "android", ref.Name.Package)

	ref, _, ok = resparse.TryParseReference("@*android:string/ok")
	require.True(t, ok)
	assert.True(t, ref.Private)

	_, _, ok = resparse.TryParseReference("string/hello")
	assert.False(t, ok)
}

func TestTryParseNullOrEmpty(t *testing.T) {
	t.Parallel()

	prim := resparse.TryParseNullOrEmpty("@null")
	require.NotNil(t, prim)
	assert.Equal(t, uint8(restable.DataTypeReference), prim.DataType)
	assert.Equal(t, uint32(0), prim.Data)

	prim = resparse.TryParseNullOrEmpty("@empty")
	require.NotNil(t, prim)
	assert.Equal(t, uint8(restable.DataTypeNull), prim.DataType)
	assert.Equal(t, restable.DataNullEmpty, prim.Data)

	assert.Nil(t, resparse.TryParseNullOrEmpty("@string/x"))
}

func enumAttr(mask uint32) *restable.Attribute {
	return &restable.Attribute{
		TypeMask: mask,
		Symbols: []restable.AttributeSymbol{
			{Symbol: restable.Reference{Name: restable.Name{Type: restable.TypeID, Entry: "flagA"}}, Value: 0x1},
			{Symbol: restable.Reference{Name: restable.Name{Type: restable.TypeID, Entry: "flagB"}}, Value: 0x2},
		},
	}
}

func TestTryParseFlagSymbol(t *testing.T) {
	t.Parallel()

	attr := enumAttr(restable.MaskFlags)

	prim := resparse.TryParseFlagSymbol(attr, "flagA|flagB")
	require.NotNil(t, prim)
	assert.Equal(t, uint8(restable.DataTypeIntHex), prim.DataType)
	assert.Equal(t, uint32(0x3), prim.Data)

	prim = resparse.TryParseFlagSymbol(attr, " flagB ")
	require.NotNil(t, prim)
	assert.Equal(t, uint32(0x2), prim.Data)

	// All-whitespace is the empty flag set.
	prim = resparse.TryParseFlagSymbol(attr, "   ")
	require.NotNil(t, prim)
	assert.Equal(t, uint32(0x0), prim.Data)

	assert.Nil(t, resparse.TryParseFlagSymbol(attr, "flagA|flagX"))
}

func TestTryParseEnumSymbol(t *testing.T) {
	t.Parallel()

	attr := enumAttr(restable.MaskEnum)

	prim := resparse.TryParseEnumSymbol(attr, "flagB")
	require.NotNil(t, prim)
	assert.Equal(t, uint8(restable.DataTypeIntDec), prim.DataType)
	assert.Equal(t, uint32(0x2), prim.Data)

	assert.Nil(t, resparse.TryParseEnumSymbol(attr, "flagc"))
}

func TestParseItemForAttribute_MaskGating(t *testing.T) {
	t.Parallel()

	// "true" is a boolean only when the mask admits booleans.
	item := resparse.ParseItemForAttribute("true", restable.MaskBoolean, nil)
	require.NotNil(t, item)

	assert.Nil(t, resparse.ParseItemForAttribute("true", restable.MaskInteger, nil))

	// References are accepted under any mask.
	item = resparse.ParseItemForAttribute("@string/x", restable.MaskInteger, nil)
	_, isRef := item.(*restable.Reference)
	assert.True(t, isRef)

	// A dimension literal is rejected when only plain floats are allowed.
	assert.Nil(t, resparse.ParseItemForAttribute("16dp", restable.MaskFloat, nil))
	assert.NotNil(t, resparse.ParseItemForAttribute("16dp", restable.MaskDimension, nil))
}

func TestParseItemForAttribute_CreateCallback(t *testing.T) {
	t.Parallel()

	var created []restable.Name

	item := resparse.ParseItemForAttribute("@+id/below", restable.MaskReference, func(name restable.Name) {
		created = append(created, name)
	})
	require.NotNil(t, item)
	require.Len(t, created, 1)
	assert.Equal(t, restable.Name{Type: restable.TypeID, Entry: "below"}, created[0])
}

func TestVerifyStringFormat(t *testing.T) {
	t.Parallel()

	assert.True(t, resparse.VerifyStringFormat("Hello %s"))
	assert.True(t, resparse.VerifyStringFormat("%1$s ate %2$d apples"))
	assert.True(t, resparse.VerifyStringFormat("100%% done"))
	assert.False(t, resparse.VerifyStringFormat("%s ate %d apples"))
}
