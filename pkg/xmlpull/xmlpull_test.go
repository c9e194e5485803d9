package xmlpull_test

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kestrel-tools/resforge/pkg/xmlpull"
)

const doc = `<?xml version="1.0" encoding="utf-8"?>
<resources xmlns:android="http://schemas.android.com/apk/res/android">
    <!-- greeting -->
    <string name="hello">Hello</string>
    <item type="id" name="below"/>
</resources>`

func TestNext_EventSequence(t *testing.T) {
	t.Parallel()

	p := xmlpull.NewFromBytes([]byte(doc))

	var kinds []xmlpull.EventKind

	for xmlpull.IsGoodEvent(p.Next()) {
		kinds = append(kinds, p.Kind())
	}

	require.NoError(t, p.Err())
	assert.Equal(t, xmlpull.EventEndDocument, p.Kind())

	// One start and end per element, a comment, and the text payloads
	// including inter-element whitespace.
	starts, ends, comments := 0, 0, 0

	for _, k := range kinds {
		switch k {
		case xmlpull.EventStartElement:
			starts++
		case xmlpull.EventEndElement:
			ends++
		case xmlpull.EventComment:
			comments++
		case xmlpull.EventStartDocument, xmlpull.EventText,
			xmlpull.EventEndDocument, xmlpull.EventBadDocument:
		}
	}

	assert.Equal(t, 3, starts)
	assert.Equal(t, 3, ends)
	assert.Equal(t, 1, comments)
}

func TestDepthAndLineNumbers(t *testing.T) {
	t.Parallel()

	p := xmlpull.NewFromBytes([]byte(doc))

	for xmlpull.IsGoodEvent(p.Next()) {
		if p.Kind() == xmlpull.EventStartElement && p.Name() == "string" {
			assert.Equal(t, 2, p.Depth())
			assert.Equal(t, 4, p.LineNumber())

			require.Equal(t, xmlpull.EventText, p.Next())
			assert.Equal(t, "Hello", p.Text())
			assert.Equal(t, 3, p.Depth())

			return
		}
	}

	t.Fatal("string element not found")
}

func TestNextChildNode_VisitsDirectChildrenOnly(t *testing.T) {
	t.Parallel()

	const nested = `<resources><style name="A"><item name="x">1</item></style><string name="b">B</string></resources>`

	p := xmlpull.NewFromBytes([]byte(nested))
	require.Equal(t, xmlpull.EventStartElement, p.Next())
	require.Equal(t, "resources", p.Name())

	var children []string

	depth := p.Depth()
	for p.NextChildNode(depth) {
		if p.Kind() == xmlpull.EventStartElement {
			children = append(children, p.Name())
		}
	}

	// The nested <item> is skipped; only direct children surface.
	assert.Equal(t, []string{"style", "string"}, children)
	assert.Equal(t, xmlpull.EventEndElement, p.Kind())
}

func TestAttributes(t *testing.T) {
	t.Parallel()

	const el = `<string xmlns:tools="http://example.com/tools" name="hello" tools:ignore="x" formatted=""/>`

	p := xmlpull.NewFromBytes([]byte(el))
	require.Equal(t, xmlpull.EventStartElement, p.Next())

	v, ok := p.Attribute("name")
	require.True(t, ok)
	assert.Equal(t, "hello", v)

	// Namespaced attributes are not visible through the plain lookup.
	_, ok = p.Attribute("ignore")
	assert.False(t, ok)

	_, ok = p.NonEmptyAttribute("formatted")
	assert.False(t, ok)

	_, ok = p.Attribute("missing")
	assert.False(t, ok)
}

func TestBadDocument(t *testing.T) {
	t.Parallel()

	p := xmlpull.NewFromBytes([]byte(`<resources><string></resources>`))

	for xmlpull.IsGoodEvent(p.Next()) {
	}

	assert.Equal(t, xmlpull.EventBadDocument, p.Kind())
	require.Error(t, p.Err())
	assert.True(t, strings.Contains(p.Err().Error(), "string"))
}
