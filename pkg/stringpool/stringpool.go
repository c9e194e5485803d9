// Package stringpool implements a deduplicating interner for the strings a
// resource table owns. Values hold stable Ref handles into the pool instead
// of owning copies; the pool lives exactly as long as its table, so handles
// never dangle. Styled strings carry span annotations alongside the text and
// are never deduplicated, since their spans are position dependent.
package stringpool

import "github.com/kestrel-tools/resforge/pkg/configdesc"

// Span marks a styling tag over a range of a styled string. Offsets index
// the flattened text; LastChar is inclusive. Name holds the tag name plus
// any attributes in "tag;attr=value;..." form.
type Span struct {
	Name      string
	FirstChar uint32
	LastChar  uint32
}

// Style is a flattened styled string: plain text plus its spans.
type Style struct {
	Str   string
	Spans []Span
}

// Context records what part of the table a string is used by. Strings used
// from more configurations or higher-priority contexts sort earlier when the
// pool is flattened; the pool keeps the lowest priority seen for a string.
type Context struct {
	Priority uint32
	Config   configdesc.Config
}

type entry struct {
	value   string
	context Context
}

type styleEntry struct {
	value   Style
	context Context
}

// Pool interns plain and styled strings and hands out stable handles.
// The zero value is ready to use. A Pool must only be mutated by the
// goroutine owning its table.
type Pool struct {
	strings []entry
	styles  []styleEntry
	index   map[string]int
}

// Ref is a stable handle to a plain string in a Pool.
type Ref struct {
	pool  *Pool
	index int
}

// String returns the referenced text. The zero Ref returns "".
func (r Ref) String() string {
	if r.pool == nil {
		return ""
	}

	return r.pool.strings[r.index].value
}

// Index returns the position of the referenced string within the pool.
func (r Ref) Index() int {
	return r.index
}

// IsValid reports whether the handle points into a pool.
func (r Ref) IsValid() bool {
	return r.pool != nil
}

// StyleRef is a stable handle to a styled string in a Pool.
type StyleRef struct {
	pool  *Pool
	index int
}

// Style returns the referenced styled string. The zero StyleRef returns an
// empty Style.
func (r StyleRef) Style() Style {
	if r.pool == nil {
		return Style{}
	}

	return r.pool.styles[r.index].value
}

// IsValid reports whether the handle points into a pool.
func (r StyleRef) IsValid() bool {
	return r.pool != nil
}

// MakeRef interns s and returns its handle. Repeated calls with the same
// text return a handle to the same pool slot; the kept context is the one
// with the lowest priority seen.
func (p *Pool) MakeRef(s string, ctx Context) Ref {
	if p.index == nil {
		p.index = make(map[string]int)
	}

	if i, ok := p.index[s]; ok {
		if ctx.Priority < p.strings[i].context.Priority {
			p.strings[i].context = ctx
		}

		return Ref{pool: p, index: i}
	}

	i := len(p.strings)
	p.strings = append(p.strings, entry{value: s, context: ctx})
	p.index[s] = i

	return Ref{pool: p, index: i}
}

// MakeStyleRef adds a styled string and returns its handle. Styled strings
// are not deduplicated.
func (p *Pool) MakeStyleRef(style Style, ctx Context) StyleRef {
	i := len(p.styles)
	p.styles = append(p.styles, styleEntry{value: style, context: ctx})

	return StyleRef{pool: p, index: i}
}

// Len returns the number of distinct plain strings in the pool.
func (p *Pool) Len() int {
	return len(p.strings)
}

// StyleLen returns the number of styled strings in the pool.
func (p *Pool) StyleLen() int {
	return len(p.styles)
}

// Strings returns the pooled plain strings in insertion order.
func (p *Pool) Strings() []string {
	out := make([]string, len(p.strings))
	for i, e := range p.strings {
		out[i] = e.value
	}

	return out
}
