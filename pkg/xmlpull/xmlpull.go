// Package xmlpull adapts encoding/xml into the pull-style event stream the
// resource parsers consume: a cursor over {start-element, end-element, text,
// comment} events carrying element names, namespaces, attributes, line
// numbers, and nesting depth.
package xmlpull

import (
	"bytes"
	"encoding/xml"
	"errors"
	"io"
	"sort"
)

// EventKind identifies the event the parser is positioned on.
type EventKind int

// Event kinds. BadDocument means the underlying document failed to parse;
// the cursor stays on it permanently.
const (
	EventStartDocument EventKind = iota
	EventStartElement
	EventEndElement
	EventText
	EventComment
	EventEndDocument
	EventBadDocument
)

// Attr is a single element attribute.
type Attr struct {
	Namespace string
	Name      string
	Value     string
}

// Parser walks an XML document one event at a time. Depth counts open
// elements: the root element has depth 1, its children depth 2, and text or
// comment nodes report the depth of the element that would contain them plus
// one, so they rank as children of the enclosing element.
type Parser struct {
	dec       *xml.Decoder
	lineIndex []int64

	kind      EventKind
	namespace string
	name      string
	attrs     []Attr
	text      string
	comment   string
	depth     int
	line      int
	err       error
}

// New reads the whole document from r and returns a parser positioned before
// the first event.
func New(r io.Reader) (*Parser, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, err
	}

	return NewFromBytes(data), nil
}

// NewFromBytes returns a parser over an in-memory document.
func NewFromBytes(data []byte) *Parser {
	index := []int64{0}

	for i, b := range data {
		if b == '\n' {
			index = append(index, int64(i)+1)
		}
	}

	return &Parser{
		dec:       xml.NewDecoder(bytes.NewReader(data)),
		lineIndex: index,
		kind:      EventStartDocument,
	}
}

// IsGoodEvent reports whether the cursor can still advance past kind.
func IsGoodEvent(kind EventKind) bool {
	return kind != EventEndDocument && kind != EventBadDocument
}

// Next advances to the next event and returns its kind.
func (p *Parser) Next() EventKind {
	if !IsGoodEvent(p.kind) {
		return p.kind
	}

	if p.kind == EventEndElement {
		p.depth--
	}

	tok, err := p.dec.Token()
	p.line = p.lineAtOffset(p.dec.InputOffset())

	if err != nil {
		if errors.Is(err, io.EOF) {
			p.kind = EventEndDocument
		} else {
			p.kind = EventBadDocument
			p.err = err
		}

		return p.kind
	}

	switch t := tok.(type) {
	case xml.StartElement:
		p.depth++
		p.kind = EventStartElement
		p.namespace = t.Name.Space
		p.name = t.Name.Local
		p.attrs = p.attrs[:0]

		for _, a := range t.Attr {
			if a.Name.Space == "xmlns" || (a.Name.Space == "" && a.Name.Local == "xmlns") {
				continue
			}

			p.attrs = append(p.attrs, Attr{Namespace: a.Name.Space, Name: a.Name.Local, Value: a.Value})
		}

		sort.Slice(p.attrs, func(i, j int) bool {
			if p.attrs[i].Namespace != p.attrs[j].Namespace {
				return p.attrs[i].Namespace < p.attrs[j].Namespace
			}

			return p.attrs[i].Name < p.attrs[j].Name
		})

	case xml.EndElement:
		// Depth is decremented on the following Next call so the event
		// still reports the depth of the element being closed.
		p.kind = EventEndElement
		p.namespace = t.Name.Space
		p.name = t.Name.Local

	case xml.CharData:
		p.kind = EventText
		p.text = string(t)

	case xml.Comment:
		p.kind = EventComment
		p.comment = string(t)

	case xml.ProcInst, xml.Directive:
		return p.Next()
	}

	return p.kind
}

func (p *Parser) lineAtOffset(off int64) int {
	i := sort.Search(len(p.lineIndex), func(i int) bool {
		return p.lineIndex[i] > off
	})

	return i
}

// Kind returns the current event kind.
func (p *Parser) Kind() EventKind {
	return p.kind
}

// Namespace returns the current element's namespace URI, if any.
func (p *Parser) Namespace() string {
	return p.namespace
}

// Name returns the current element's local name.
func (p *Parser) Name() string {
	return p.name
}

// Text returns the character data of a text event.
func (p *Parser) Text() string {
	return p.text
}

// Comment returns the body of a comment event.
func (p *Parser) Comment() string {
	return p.comment
}

// Depth returns the node depth of the current event.
func (p *Parser) Depth() int {
	switch p.kind {
	case EventText, EventComment:
		return p.depth + 1
	default:
		return p.depth
	}
}

// LineNumber returns the 1-based input line of the current event.
func (p *Parser) LineNumber() int {
	return p.line
}

// Err returns the document error after a BadDocument event.
func (p *Parser) Err() error {
	return p.err
}

// Attrs returns the current start element's attributes, namespace-sorted.
func (p *Parser) Attrs() []Attr {
	return p.attrs
}

// Attribute returns the value of the named attribute in the empty namespace.
func (p *Parser) Attribute(name string) (string, bool) {
	for _, a := range p.attrs {
		if a.Namespace == "" && a.Name == name {
			return a.Value, true
		}
	}

	return "", false
}

// NonEmptyAttribute is Attribute but treats an empty value as absent.
func (p *Parser) NonEmptyAttribute(name string) (string, bool) {
	v, ok := p.Attribute(name)
	if !ok || v == "" {
		return "", false
	}

	return v, true
}

// NextChildNode advances to the next direct child node (start element, text,
// or comment) of the element at startDepth. It returns false once that
// element ends, leaving nested events of unvisited children consumed.
func (p *Parser) NextChildNode(startDepth int) bool {
	for IsGoodEvent(p.Next()) {
		if p.kind == EventEndElement && p.depth <= startDepth {
			return false
		}

		if p.Depth() != startDepth+1 {
			continue
		}

		switch p.kind {
		case EventStartElement, EventText, EventComment:
			return true
		case EventStartDocument, EventEndElement, EventEndDocument, EventBadDocument:
		}
	}

	return false
}
