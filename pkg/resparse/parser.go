package resparse

import (
	"strings"

	"github.com/kestrel-tools/resforge/pkg/configdesc"
	"github.com/kestrel-tools/resforge/pkg/diag"
	"github.com/kestrel-tools/resforge/pkg/restable"
	"github.com/kestrel-tools/resforge/pkg/stringpool"
	"github.com/kestrel-tools/resforge/pkg/xmlpull"
)

// xliffNamespaceURI is the one foreign namespace whose inline elements still
// contribute text to a flattened string.
const xliffNamespaceURI = "urn:oasis:names:tc:xliff:document:1.2"

// Options tune policy decisions that differ between strict and legacy
// compiles.
type Options struct {
	// DefaultTranslatable is the translatable= default for strings that do
	// not state it. Drivers commonly disable it for files whose logical name
	// contains "donottranslate".
	DefaultTranslatable bool
	// ErrorOnPositionalArguments upgrades the multiple-non-positional-
	// substitution warning to a hard error.
	ErrorOnPositionalArguments bool
}

// Parser builds resource table contents from one resource description XML
// document. It keeps no state across top-level elements beyond the
// destination table.
type Parser struct {
	reporter diag.Reporter
	table    *restable.Table
	source   diag.Source
	config   configdesc.Config
	options  Options
}

// New returns a parser that merges everything it parses into table,
// attributing values to the given source file and configuration.
func New(reporter diag.Reporter, table *restable.Table, source diag.Source, config configdesc.Config, options Options) *Parser {
	return &Parser{
		reporter: reporter,
		table:    table,
		source:   source,
		config:   config,
		options:  options,
	}
}

// parsedResource is one parsed element, possibly with child declarations,
// buffered so a subtree is only inserted into the table after it parses
// completely.
type parsedResource struct {
	name        restable.Name
	id          restable.ID
	config      configdesc.Config
	source      diag.Source
	comment     string
	symbolState *restable.SymbolState
	value       restable.Value
	children    []*parsedResource
}

// Parse consumes the document and merges its declarations into the table.
// It returns false if any diagnostic of error severity was reported; the
// table still contains every subtree that parsed cleanly.
func (p *Parser) Parse(x *xmlpull.Parser) bool {
	sawRoot := false
	hadError := false

	for x.NextChildNode(0) {
		if x.Kind() != xmlpull.EventStartElement {
			continue
		}

		if x.Namespace() != "" || x.Name() != "resources" {
			diag.Errorf(p.reporter, p.source.WithLine(x.LineNumber()), "root element must be <resources>")

			return false
		}

		sawRoot = true

		if !p.parseResources(x) {
			hadError = true
		}

		break
	}

	if x.Kind() == xmlpull.EventBadDocument {
		diag.Errorf(p.reporter, p.source.WithLine(x.LineNumber()), "xml parse error: %v", x.Err())

		return false
	}

	if !sawRoot {
		diag.Errorf(p.reporter, p.source, "no <resources> root element found")

		return false
	}

	return !hadError
}

func (p *Parser) parseResources(x *xmlpull.Parser) bool {
	hadError := false
	comment := ""
	depth := x.Depth()

	for x.NextChildNode(depth) {
		switch x.Kind() {
		case xmlpull.EventComment:
			comment = x.Comment()

			continue

		case xmlpull.EventText:
			if strings.TrimSpace(x.Text()) != "" {
				diag.Errorf(p.reporter, p.source.WithLine(x.LineNumber()), "plain text not allowed here")

				hadError = true
			}

			continue

		case xmlpull.EventStartElement:

		case xmlpull.EventStartDocument, xmlpull.EventEndElement,
			xmlpull.EventEndDocument, xmlpull.EventBadDocument:
			continue
		}

		if x.Namespace() != "" {
			// Elements in foreign namespaces are skipped with a warning.
			diag.Warnf(p.reporter, p.source.WithLine(x.LineNumber()),
				"skipping element '%s' with unknown namespace '%s'", x.Name(), x.Namespace())

			continue
		}

		if x.Name() == "skip" || x.Name() == "eat-comment" {
			comment = ""

			continue
		}

		res := &parsedResource{
			config:  p.config,
			source:  p.source.WithLine(x.LineNumber()),
			comment: comment,
		}
		comment = ""

		if !p.parseResource(x, res) {
			hadError = true

			continue
		}

		if !p.addToTable(res) {
			hadError = true
		}
	}

	return !hadError
}

// addToTable inserts a parsed subtree depth first, parent before children.
func (p *Parser) addToTable(res *parsedResource) bool {
	res.comment = strings.TrimSpace(res.comment)

	if res.symbolState != nil {
		if !p.table.SetSymbolState(res.name, res.id, res.source, *res.symbolState, p.reporter) {
			return false
		}
	}

	if res.value != nil {
		if !p.table.AddResourceWithID(res.name, res.id, res.config, res.source, res.value, p.reporter) {
			return false
		}

		if found, ok := p.table.FindResource(res.name); ok {
			if cv := found.Entry.FindValue(res.config); cv != nil && cv.Comment == "" {
				cv.Comment = res.comment
			}
		}
	}

	ok := true
	for _, child := range res.children {
		if !p.addToTable(child) {
			ok = false
		}
	}

	return ok
}

// elementKind is the closed set of grammar elements dispatched at the top
// level of <resources>. Anything else is either a resource type name
// (accepted as a reference-valued item) or unknown.
type elementKind uint8

const (
	kindUnknown elementKind = iota
	kindItemTyped
	kindID
	kindAttr
	kindDeclareStyleable
	kindStyle
	kindArray
	kindIntegerArray
	kindStringArray
	kindPlurals
	kindPublic
	kindPublicGroup
	kindSymbol
	kindJavaSymbol
	kindAddResource
)

// itemTypeFormats maps shorthand item elements to their resource type and
// implicit accepted-type mask.
var itemTypeFormats = map[string]struct {
	typ  restable.Type
	mask uint32
}{
	"bool":     {restable.TypeBool, restable.MaskBoolean},
	"color":    {restable.TypeColor, restable.MaskColor},
	"dimen":    {restable.TypeDimen, restable.MaskFloat | restable.MaskFraction | restable.MaskDimension},
	"drawable": {restable.TypeDrawable, restable.MaskColor},
	"fraction": {restable.TypeFraction, restable.MaskFloat | restable.MaskFraction | restable.MaskDimension},
	"integer":  {restable.TypeInteger, restable.MaskInteger},
	"string":   {restable.TypeString, restable.MaskString},
}

func lookupElementKind(name string) elementKind {
	switch name {
	case "bool", "color", "dimen", "drawable", "fraction", "integer", "string":
		return kindItemTyped
	case "id":
		return kindID
	case "attr":
		return kindAttr
	case "declare-styleable":
		return kindDeclareStyleable
	case "style":
		return kindStyle
	case "array":
		return kindArray
	case "integer-array":
		return kindIntegerArray
	case "string-array":
		return kindStringArray
	case "plurals":
		return kindPlurals
	case "public":
		return kindPublic
	case "public-group":
		return kindPublicGroup
	case "symbol":
		return kindSymbol
	case "java-symbol":
		return kindJavaSymbol
	case "add-resource":
		return kindAddResource
	case "item":
		// <item> resolves to the kind named by its type attribute.
		return kindUnknown
	default:
		return kindUnknown
	}
}

func parseFormatToken(s string) uint32 {
	switch s {
	case "reference":
		return restable.MaskReference
	case "string":
		return restable.MaskString
	case "integer":
		return restable.MaskInteger
	case "boolean":
		return restable.MaskBoolean
	case "color":
		return restable.MaskColor
	case "float":
		return restable.MaskFloat
	case "dimension":
		return restable.MaskDimension
	case "fraction":
		return restable.MaskFraction
	case "enum":
		return restable.MaskEnum
	case "flags":
		return restable.MaskFlags
	default:
		return 0
	}
}

func parseFormatAttribute(s string) uint32 {
	var mask uint32

	for _, part := range strings.Split(s, "|") {
		bits := parseFormatToken(strings.TrimSpace(part))
		if bits == 0 {
			return 0
		}

		mask |= bits
	}

	return mask
}

func shouldIgnoreElement(namespace, name string) bool {
	return namespace == "" && (name == "skip" || name == "eat-comment")
}

func (p *Parser) parseResource(x *xmlpull.Parser, res *parsedResource) bool {
	elementName := x.Name()
	var explicitFormat uint32

	if elementName == "item" {
		typeAttr, ok := x.NonEmptyAttribute("type")
		if !ok {
			diag.Errorf(p.reporter, res.source, "<item> must have a 'type' attribute")

			return false
		}

		elementName = typeAttr

		if formatAttr, ok := x.NonEmptyAttribute("format"); ok {
			explicitFormat = parseFormatToken(formatAttr)
			if explicitFormat == 0 {
				diag.Errorf(p.reporter, res.source, "'%s' is an invalid format", formatAttr)

				return false
			}
		}
	}

	name, hasName := x.NonEmptyAttribute("name")

	requireName := func() bool {
		if !hasName {
			diag.Errorf(p.reporter, res.source, "<%s> missing 'name' attribute", x.Name())

			return false
		}

		return true
	}

	if elementName == "id" {
		if !requireName() {
			return false
		}

		res.name = restable.Name{Type: restable.TypeID, Entry: name}
		res.value = &restable.Placeholder{}

		return true
	}

	if itemFormat, ok := itemTypeFormats[elementName]; ok {
		if !requireName() {
			return false
		}

		res.name = restable.Name{Type: itemFormat.typ, Entry: name}

		mask := itemFormat.mask
		if explicitFormat != 0 {
			// An explicit format may narrow the accepted types, never widen.
			if explicitFormat&^itemFormat.mask != 0 {
				diag.Errorf(p.reporter, res.source,
					"format '%s' is not accepted for resource type '%s'", formatMaskName(explicitFormat), elementName)

				return false
			}

			mask = explicitFormat
		}

		return p.parseItem(x, res, mask)
	}

	kind := lookupElementKind(elementName)
	if kind != kindUnknown {
		if kind != kindPublicGroup {
			if !requireName() {
				return false
			}

			res.name.Entry = name
		}

		switch kind {
		case kindAttr:
			return p.parseAttr(x, res, false)
		case kindDeclareStyleable:
			return p.parseDeclareStyleable(x, res)
		case kindStyle:
			return p.parseStyle(x, res)
		case kindArray:
			return p.parseArray(x, res, restable.MaskAny)
		case kindIntegerArray:
			return p.parseArray(x, res, restable.MaskInteger)
		case kindStringArray:
			return p.parseArray(x, res, restable.MaskString)
		case kindPlurals:
			return p.parsePlurals(x, res)
		case kindPublic:
			return p.parsePublic(x, res)
		case kindPublicGroup:
			return p.parsePublicGroup(x, res)
		case kindSymbol, kindJavaSymbol:
			return p.parseSymbol(x, res, restable.SymbolPrivate)
		case kindAddResource:
			return p.parseSymbol(x, res, restable.SymbolUndefined)
		case kindUnknown, kindItemTyped, kindID:
		}
	}

	// Any other known resource type name (layout, xml, ...) is accepted
	// only as a reference-valued item.
	if typ, ok := restable.ParseType(elementName); ok {
		if !requireName() {
			return false
		}

		res.name = restable.Name{Type: typ, Entry: name}
		res.value = p.parseXML(x, restable.MaskReference, false)

		if res.value == nil {
			diag.Errorf(p.reporter, res.source, "invalid value for type '%s': expected a reference", typ)

			return false
		}

		return true
	}

	diag.Warnf(p.reporter, res.source, "unknown resource type '%s'", x.Name())

	return false
}

func formatMaskName(mask uint32) string {
	names := []struct {
		bit  uint32
		name string
	}{
		{restable.MaskReference, "reference"},
		{restable.MaskString, "string"},
		{restable.MaskInteger, "integer"},
		{restable.MaskBoolean, "boolean"},
		{restable.MaskColor, "color"},
		{restable.MaskFloat, "float"},
		{restable.MaskDimension, "dimension"},
		{restable.MaskFraction, "fraction"},
		{restable.MaskEnum, "enum"},
		{restable.MaskFlags, "flags"},
	}

	var parts []string

	for _, n := range names {
		if mask&n.bit != 0 {
			parts = append(parts, n.name)
		}
	}

	return strings.Join(parts, "|")
}

func (p *Parser) parseItem(x *xmlpull.Parser, res *parsedResource, mask uint32) bool {
	if mask == restable.MaskString {
		return p.parseString(x, res)
	}

	res.value = p.parseXML(x, mask, false)
	if res.value == nil {
		diag.Errorf(p.reporter, res.source, "invalid %s", res.name.Type)

		return false
	}

	return true
}

// flattenSubtree reads the current element's content, flattening nested
// markup into plain text plus spans. Elements in unknown namespaces are
// warned and dropped along with their text; the xliff namespace passes its
// text through without producing a span.
func (p *Parser) flattenSubtree(x *xmlpull.Parser) (stringpool.Style, bool) {
	var spanStack []stringpool.Span
	var builder strings.Builder
	var spans []stringpool.Span

	ok := true
	depth := 1

	for xmlpull.IsGoodEvent(x.Next()) {
		switch x.Kind() {
		case xmlpull.EventEndElement:
			if x.Namespace() != "" {
				// The start element was already warned about and skipped.
				continue
			}

			depth--
			if depth == 0 {
				return stringpool.Style{Str: builder.String(), Spans: spans}, ok
			}

			span := spanStack[len(spanStack)-1]
			spanStack = spanStack[:len(spanStack)-1]

			if builder.Len() > 0 {
				span.LastChar = uint32(builder.Len() - 1)
			}

			spans = append(spans, span)

		case xmlpull.EventText:
			builder.WriteString(x.Text())

		case xmlpull.EventStartElement:
			if x.Namespace() != "" {
				if x.Namespace() != xliffNamespaceURI {
					diag.Warnf(p.reporter, p.source.WithLine(x.LineNumber()),
						"skipping element '%s' with unknown namespace '%s'", x.Name(), x.Namespace())

					p.skipElement(x)
				}

				continue
			}

			depth++

			spanName := x.Name()
			for _, a := range x.Attrs() {
				spanName += ";" + a.Name + "=" + a.Value
			}

			spanStack = append(spanStack, stringpool.Span{Name: spanName, FirstChar: uint32(builder.Len())})

		case xmlpull.EventComment:

		case xmlpull.EventStartDocument, xmlpull.EventEndDocument, xmlpull.EventBadDocument:
		}
	}

	return stringpool.Style{}, false
}

// skipElement consumes the current foreign-namespace element entirely,
// discarding its text.
func (p *Parser) skipElement(x *xmlpull.Parser) {
	depth := 1

	for depth > 0 && xmlpull.IsGoodEvent(x.Next()) {
		switch x.Kind() {
		case xmlpull.EventStartElement:
			depth++
		case xmlpull.EventEndElement:
			depth--
		case xmlpull.EventStartDocument, xmlpull.EventText,
			xmlpull.EventComment, xmlpull.EventEndDocument, xmlpull.EventBadDocument:
		}
	}
}

// parseXML reads the element's subtree and interprets it as an Item under
// the type mask. With allowRaw, unparseable content degrades to a RawString
// instead of failing.
func (p *Parser) parseXML(x *xmlpull.Parser, typeMask uint32, allowRaw bool) restable.Item {
	beginLine := x.LineNumber()

	style, ok := p.flattenSubtree(x)
	if !ok {
		return nil
	}

	if len(style.Spans) > 0 {
		// Markup inside the value: this can only be a styled string.
		ref := p.table.StringPool.MakeStyleRef(style, stringpool.Context{Priority: 1, Config: p.config})

		return &restable.StyledString{Ref: ref, Translatable: p.options.DefaultTranslatable}
	}

	onCreateReference := func(name restable.Name) {
		// The name's package may be empty; it resolves to the table's own
		// package at link time.
		p.table.AddResource(name, configdesc.Default(), p.source.WithLine(beginLine), &restable.Placeholder{}, p.reporter)
	}

	raw := style.Str

	if item := ParseItemForAttribute(strings.TrimSpace(raw), typeMask, onCreateReference); item != nil {
		return item
	}

	if typeMask&restable.MaskString != 0 {
		ref := p.table.StringPool.MakeRef(strings.TrimSpace(raw), stringpool.Context{Priority: 1, Config: p.config})

		return &restable.String{Ref: ref, Translatable: p.options.DefaultTranslatable}
	}

	if allowRaw {
		ref := p.table.StringPool.MakeRef(raw, stringpool.Context{Priority: 1, Config: p.config})

		return &restable.RawString{Ref: ref}
	}

	return nil
}

func (p *Parser) parseString(x *xmlpull.Parser, res *parsedResource) bool {
	formatted := true
	if v, ok := x.Attribute("formatted"); ok {
		b, parsed := ParseBool(v)
		if !parsed {
			diag.Errorf(p.reporter, res.source, "invalid value for 'formatted': must be a boolean")

			return false
		}

		formatted = b
	}

	translatable := p.options.DefaultTranslatable
	if v, ok := x.Attribute("translatable"); ok {
		b, parsed := ParseBool(v)
		if !parsed {
			diag.Errorf(p.reporter, res.source, "invalid value for 'translatable': must be a boolean")

			return false
		}

		translatable = b
	}

	res.value = p.parseXML(x, restable.MaskString, false)
	if res.value == nil {
		diag.Errorf(p.reporter, res.source, "not a valid string")

		return false
	}

	switch v := res.value.(type) {
	case *restable.String:
		v.Translatable = translatable

		if formatted && translatable && !VerifyStringFormat(v.Ref.String()) {
			text := "multiple substitutions specified in non-positional format; " +
				"did you mean to add the formatted=\"false\" attribute?"

			if p.options.ErrorOnPositionalArguments {
				diag.Errorf(p.reporter, res.source, "%s", text)

				return false
			}

			diag.Warnf(p.reporter, res.source, "%s", text)
		}

	case *restable.StyledString:
		v.Translatable = translatable
	}

	return true
}

func (p *Parser) parsePublic(x *xmlpull.Parser, res *parsedResource) bool {
	typeAttr, ok := x.NonEmptyAttribute("type")
	if !ok {
		diag.Errorf(p.reporter, res.source, "<public> must have a 'type' attribute")

		return false
	}

	typ, ok := restable.ParseType(typeAttr)
	if !ok {
		diag.Errorf(p.reporter, res.source, "invalid resource type '%s' in <public>", typeAttr)

		return false
	}

	res.name.Type = typ

	if idStr, ok := x.NonEmptyAttribute("id"); ok {
		id, parsed := parseResourceID(idStr)
		if !parsed {
			diag.Errorf(p.reporter, res.source, "invalid resource ID '%s' in <public>", idStr)

			return false
		}

		res.id = id
	}

	if typ == restable.TypeID {
		// A public id is also its definition.
		res.value = &restable.Placeholder{}
	}

	state := restable.SymbolPublic
	res.symbolState = &state

	return true
}

func (p *Parser) parsePublicGroup(x *xmlpull.Parser, res *parsedResource) bool {
	typeAttr, ok := x.NonEmptyAttribute("type")
	if !ok {
		diag.Errorf(p.reporter, res.source, "<public-group> must have a 'type' attribute")

		return false
	}

	typ, ok := restable.ParseType(typeAttr)
	if !ok {
		diag.Errorf(p.reporter, res.source, "invalid resource type '%s' in <public-group>", typeAttr)

		return false
	}

	idStr, ok := x.NonEmptyAttribute("first-id")
	if !ok {
		diag.Errorf(p.reporter, res.source, "<public-group> must have a 'first-id' attribute")

		return false
	}

	nextID, parsed := parseResourceID(idStr)
	if !parsed {
		diag.Errorf(p.reporter, res.source, "invalid resource ID '%s' in <public-group>", idStr)

		return false
	}

	hadError := false
	comment := ""
	depth := x.Depth()

	for x.NextChildNode(depth) {
		switch x.Kind() {
		case xmlpull.EventComment:
			comment = strings.TrimSpace(x.Comment())

			continue

		case xmlpull.EventStartElement:

		case xmlpull.EventStartDocument, xmlpull.EventText, xmlpull.EventEndElement,
			xmlpull.EventEndDocument, xmlpull.EventBadDocument:
			continue
		}

		itemSource := p.source.WithLine(x.LineNumber())

		if x.Namespace() == "" && x.Name() == "public" {
			name, ok := x.NonEmptyAttribute("name")
			if !ok {
				diag.Errorf(p.reporter, itemSource, "<public> must have a 'name' attribute")

				hadError = true

				continue
			}

			if _, present := x.NonEmptyAttribute("id"); present {
				diag.Errorf(p.reporter, itemSource, "'id' is ignored within <public-group>")

				hadError = true

				continue
			}

			if _, present := x.NonEmptyAttribute("type"); present {
				diag.Errorf(p.reporter, itemSource, "'type' is ignored within <public-group>")

				hadError = true

				continue
			}

			state := restable.SymbolPublic
			child := &parsedResource{
				name:        restable.Name{Type: typ, Entry: name},
				id:          nextID,
				config:      configdesc.Default(),
				source:      itemSource,
				comment:     comment,
				symbolState: &state,
			}
			comment = ""

			if typ == restable.TypeID {
				child.value = &restable.Placeholder{}
			}

			res.children = append(res.children, child)
			nextID++
		} else if !shouldIgnoreElement(x.Namespace(), x.Name()) {
			diag.Errorf(p.reporter, itemSource, "unknown tag <%s>", x.Name())

			hadError = true
		}
	}

	return !hadError
}

func (p *Parser) parseSymbol(x *xmlpull.Parser, res *parsedResource, state restable.SymbolState) bool {
	typeAttr, ok := x.NonEmptyAttribute("type")
	if !ok {
		diag.Errorf(p.reporter, res.source, "<%s> must have a 'type' attribute", x.Name())

		return false
	}

	typ, ok := restable.ParseType(typeAttr)
	if !ok {
		diag.Errorf(p.reporter, res.source, "invalid resource type '%s' in <%s>", typeAttr, x.Name())

		return false
	}

	res.name.Type = typ
	res.symbolState = &state

	return true
}

func parseResourceID(s string) (restable.ID, bool) {
	prim := TryParseInt(s)
	if prim == nil || prim.DataType != restable.DataTypeIntHex {
		return 0, false
	}

	id := restable.ID(prim.Data)
	if !id.IsValid() {
		return 0, false
	}

	return id, true
}

func (p *Parser) parseAttr(x *xmlpull.Parser, res *parsedResource, weak bool) bool {
	res.name.Type = restable.TypeAttr

	// Attributes only exist in the default configuration.
	if !res.config.IsDefault() {
		diag.Warnf(p.reporter, res.source, "ignoring configuration '%s' for attribute %s", res.config, res.name)

		res.config = configdesc.Default()
	}

	var typeMask uint32

	if formatAttr, ok := x.Attribute("format"); ok {
		typeMask = parseFormatAttribute(formatAttr)
		if typeMask == 0 {
			diag.Errorf(p.reporter, res.source, "invalid attribute format '%s'", formatAttr)

			return false
		}
	}

	parseBound := func(attrName string) (*int32, bool) {
		v, ok := x.Attribute(attrName)
		if !ok {
			return nil, true
		}

		prim := TryParseInt(v)
		if prim == nil {
			diag.Errorf(p.reporter, res.source, "invalid '%s' value '%s'", attrName, v)

			return nil, false
		}

		bound := int32(prim.Data)

		return &bound, true
	}

	minBound, ok := parseBound("min")
	if !ok {
		return false
	}

	maxBound, ok := parseBound("max")
	if !ok {
		return false
	}

	if (minBound != nil || maxBound != nil) && typeMask&restable.MaskInteger == 0 {
		diag.Errorf(p.reporter, res.source, "'min' and 'max' can only be used when format='integer'")

		return false
	}

	var symbols []restable.AttributeSymbol
	seen := make(map[string]diag.Source)

	hadError := false
	depth := x.Depth()

	for x.NextChildNode(depth) {
		switch x.Kind() {
		case xmlpull.EventStartElement:

		case xmlpull.EventStartDocument, xmlpull.EventText, xmlpull.EventComment,
			xmlpull.EventEndElement, xmlpull.EventEndDocument, xmlpull.EventBadDocument:
			continue
		}

		itemSource := p.source.WithLine(x.LineNumber())
		elementName := x.Name()

		if x.Namespace() == "" && (elementName == "enum" || elementName == "flag") {
			if elementName == "enum" {
				if typeMask&restable.MaskFlags != 0 {
					diag.Errorf(p.reporter, itemSource, "can not define an <enum>; already defined a <flag>")

					hadError = true

					continue
				}

				typeMask |= restable.MaskEnum
			} else {
				if typeMask&restable.MaskEnum != 0 {
					diag.Errorf(p.reporter, itemSource, "can not define a <flag>; already defined an <enum>")

					hadError = true

					continue
				}

				typeMask |= restable.MaskFlags
			}

			symbol, ok := p.parseEnumOrFlagItem(x, elementName)
			if !ok {
				hadError = true

				continue
			}

			if first, dup := seen[symbol.Symbol.Name.Entry]; dup {
				diag.Errorf(p.reporter, itemSource, "duplicate symbol '%s'", symbol.Symbol.Name.Entry)
				diag.Notef(p.reporter, first, "first defined here")

				hadError = true

				continue
			}

			seen[symbol.Symbol.Name.Entry] = itemSource

			// Each symbol also declares the id resource it references.
			res.children = append(res.children, &parsedResource{
				name:   symbol.Symbol.Name,
				config: configdesc.Default(),
				source: itemSource,
				value:  &restable.Placeholder{},
			})

			symbols = append(symbols, symbol)
		} else if !shouldIgnoreElement(x.Namespace(), elementName) {
			diag.Errorf(p.reporter, itemSource, "unknown tag <%s>", elementName)

			hadError = true
		}
	}

	if hadError {
		return false
	}

	attr := &restable.Attribute{Weak: weak, Min: minBound, Max: maxBound}

	attr.TypeMask = typeMask
	if typeMask == 0 {
		attr.TypeMask = restable.MaskAny
	}

	attr.Symbols = symbols

	res.value = attr

	return true
}

func (p *Parser) parseEnumOrFlagItem(x *xmlpull.Parser, tag string) (restable.AttributeSymbol, bool) {
	source := p.source.WithLine(x.LineNumber())

	name, ok := x.NonEmptyAttribute("name")
	if !ok {
		diag.Errorf(p.reporter, source, "no attribute 'name' found for tag <%s>", tag)

		return restable.AttributeSymbol{}, false
	}

	valueStr, ok := x.NonEmptyAttribute("value")
	if !ok {
		diag.Errorf(p.reporter, source, "no attribute 'value' found for tag <%s>", tag)

		return restable.AttributeSymbol{}, false
	}

	prim := TryParseInt(valueStr)
	if prim == nil {
		diag.Errorf(p.reporter, source, "invalid value '%s' for <%s>; must be an integer", valueStr, tag)

		return restable.AttributeSymbol{}, false
	}

	return restable.AttributeSymbol{
		Symbol: restable.Reference{Name: restable.Name{Type: restable.TypeID, Entry: name}},
		Value:  prim.Data,
	}, true
}

// parseXMLAttributeName splits an optionally package-qualified attribute
// name like "android:text" into an attr reference.
func parseXMLAttributeName(s string) restable.Reference {
	s = strings.TrimSpace(s)

	ref := restable.Reference{}
	if strings.HasPrefix(s, "*") {
		ref.Private = true
		s = s[1:]
	}

	pkg := ""
	name := s

	if i := strings.IndexByte(s, ':'); i >= 0 {
		pkg = s[:i]
		name = s[i+1:]
	}

	ref.Name = restable.Name{Package: pkg, Type: restable.TypeAttr, Entry: name}

	return ref
}

// ParseStyleParentReference parses the forms a style parent may take:
// @[[*]pkg:][style/]name, ?[[*]pkg:]style/name, pkg:name, or pkg:style/name.
func ParseStyleParentReference(s string) (*restable.Reference, string) {
	if s == "" {
		return nil, ""
	}

	name := s
	hasLeadingIdentifiers := false
	private := false

	if name[0] == '@' || name[0] == '?' {
		hasLeadingIdentifiers = true
		name = name[1:]
	}

	if strings.HasPrefix(name, "*") {
		private = true
		name = name[1:]
	}

	pkg, typStr, entry, ok := restable.ExtractName(name)
	if !ok || entry == "" {
		return nil, "invalid parent reference '" + s + "'"
	}

	if typStr != "" {
		typ, parsed := restable.ParseType(typStr)
		if !parsed || typ != restable.TypeStyle {
			return nil, "invalid resource type '" + typStr + "' for parent of style"
		}
	}

	if !hasLeadingIdentifiers && pkg == "" && typStr != "" {
		return nil, "invalid parent reference '" + s + "'"
	}

	return &restable.Reference{
		Name:    restable.Name{Package: pkg, Type: restable.TypeStyle, Entry: entry},
		Private: private,
	}, ""
}

func (p *Parser) parseStyleItem(x *xmlpull.Parser, style *restable.Style) bool {
	source := p.source.WithLine(x.LineNumber())

	name, ok := x.NonEmptyAttribute("name")
	if !ok {
		diag.Errorf(p.reporter, source, "<item> must have a 'name' attribute")

		return false
	}

	key := parseXMLAttributeName(name)

	value := p.parseXML(x, 0, true)
	if value == nil {
		diag.Errorf(p.reporter, source, "could not parse style item")

		return false
	}

	style.Entries = append(style.Entries, restable.StyleEntry{Key: key, Value: value})

	return true
}

func (p *Parser) parseStyle(x *xmlpull.Parser, res *parsedResource) bool {
	res.name.Type = restable.TypeStyle

	style := &restable.Style{}

	if parentAttr, ok := x.Attribute("parent"); ok {
		// An empty parent means "no parent", and also disables inference.
		if parentAttr != "" {
			parent, errText := ParseStyleParentReference(parentAttr)
			if parent == nil {
				diag.Errorf(p.reporter, res.source, "%s", errText)

				return false
			}

			style.Parent = parent
		}
	} else if i := strings.LastIndexByte(res.name.Entry, '.'); i >= 0 {
		// Infer the parent from a dotted style name.
		style.ParentInferred = true
		style.Parent = &restable.Reference{
			Name: restable.Name{Type: restable.TypeStyle, Entry: res.name.Entry[:i]},
		}
	}

	hadError := false
	depth := x.Depth()

	for x.NextChildNode(depth) {
		if x.Kind() != xmlpull.EventStartElement {
			continue
		}

		if x.Namespace() == "" && x.Name() == "item" {
			if !p.parseStyleItem(x, style) {
				hadError = true
			}
		} else if !shouldIgnoreElement(x.Namespace(), x.Name()) {
			diag.Errorf(p.reporter, p.source.WithLine(x.LineNumber()), "unknown tag <%s>", x.Name())

			hadError = true
		}
	}

	if hadError {
		return false
	}

	res.value = style

	return true
}

func (p *Parser) parseArray(x *xmlpull.Parser, res *parsedResource, typeMask uint32) bool {
	res.name.Type = restable.TypeArray

	array := &restable.Array{Translatable: p.options.DefaultTranslatable}

	if v, ok := x.Attribute("translatable"); ok {
		b, parsed := ParseBool(v)
		if !parsed {
			diag.Errorf(p.reporter, res.source, "invalid value for 'translatable': must be a boolean")

			return false
		}

		array.Translatable = b
	}

	hadError := false
	depth := x.Depth()

	for x.NextChildNode(depth) {
		if x.Kind() != xmlpull.EventStartElement {
			continue
		}

		itemSource := p.source.WithLine(x.LineNumber())

		if x.Namespace() == "" && x.Name() == "item" {
			item := p.parseXML(x, typeMask, false)
			if item == nil {
				diag.Errorf(p.reporter, itemSource, "could not parse array item")

				hadError = true

				continue
			}

			array.Items = append(array.Items, item)
		} else if !shouldIgnoreElement(x.Namespace(), x.Name()) {
			diag.Errorf(p.reporter, itemSource, "unknown tag <%s:%s>", x.Namespace(), x.Name())

			hadError = true
		}
	}

	if hadError {
		return false
	}

	res.value = array

	return true
}

func (p *Parser) parsePlurals(x *xmlpull.Parser, res *parsedResource) bool {
	res.name.Type = restable.TypePlurals

	plural := &restable.Plural{}

	hadError := false
	depth := x.Depth()

	for x.NextChildNode(depth) {
		if x.Kind() != xmlpull.EventStartElement {
			continue
		}

		itemSource := p.source.WithLine(x.LineNumber())

		if x.Namespace() == "" && x.Name() == "item" {
			quantity, ok := x.NonEmptyAttribute("quantity")
			if !ok {
				diag.Errorf(p.reporter, itemSource, "<item> in <plurals> requires attribute 'quantity'")

				hadError = true

				continue
			}

			index := -1

			switch strings.TrimSpace(quantity) {
			case "zero":
				index = restable.PluralZero
			case "one":
				index = restable.PluralOne
			case "two":
				index = restable.PluralTwo
			case "few":
				index = restable.PluralFew
			case "many":
				index = restable.PluralMany
			case "other":
				index = restable.PluralOther
			}

			if index == -1 {
				diag.Errorf(p.reporter, itemSource,
					"<item> in <plurals> has invalid value '%s' for attribute 'quantity'", strings.TrimSpace(quantity))

				hadError = true

				continue
			}

			if plural.Values[index] != nil {
				diag.Errorf(p.reporter, itemSource, "duplicate quantity '%s'", strings.TrimSpace(quantity))

				hadError = true

				continue
			}

			item := p.parseXML(x, restable.MaskString, false)
			if item == nil {
				hadError = true

				continue
			}

			plural.Values[index] = item
		} else if !shouldIgnoreElement(x.Namespace(), x.Name()) {
			diag.Errorf(p.reporter, itemSource, "unknown tag <%s:%s>", x.Namespace(), x.Name())

			hadError = true
		}
	}

	if hadError {
		return false
	}

	res.value = plural

	return true
}

func (p *Parser) parseDeclareStyleable(x *xmlpull.Parser, res *parsedResource) bool {
	res.name.Type = restable.TypeStyleable

	// Styleables exist for code generation only and are implicitly public.
	state := restable.SymbolPublic
	res.symbolState = &state

	if !res.config.IsDefault() {
		diag.Warnf(p.reporter, res.source, "ignoring configuration '%s' for styleable %s", res.config, res.name.Entry)

		res.config = configdesc.Default()
	}

	styleable := &restable.Styleable{}

	hadError := false
	comment := ""
	depth := x.Depth()

	for x.NextChildNode(depth) {
		switch x.Kind() {
		case xmlpull.EventComment:
			comment = strings.TrimSpace(x.Comment())

			continue

		case xmlpull.EventStartElement:

		case xmlpull.EventStartDocument, xmlpull.EventText, xmlpull.EventEndElement,
			xmlpull.EventEndDocument, xmlpull.EventBadDocument:
			continue
		}

		itemSource := p.source.WithLine(x.LineNumber())

		if x.Namespace() == "" && x.Name() == "attr" {
			name, ok := x.NonEmptyAttribute("name")
			if !ok {
				diag.Errorf(p.reporter, itemSource, "<attr> tag must have a 'name' attribute")

				hadError = true

				continue
			}

			// The name may carry a package, as in <attr name="android:text">.
			childRef := parseXMLAttributeName(name)

			child := &parsedResource{
				name:    childRef.Name,
				config:  res.config,
				source:  itemSource,
				comment: comment,
			}
			comment = ""

			if !p.parseAttr(x, child, true) {
				hadError = true

				continue
			}

			styleable.Entries = append(styleable.Entries, childRef)
			res.children = append(res.children, child)
		} else if !shouldIgnoreElement(x.Namespace(), x.Name()) {
			diag.Errorf(p.reporter, itemSource, "unknown tag <%s:%s>", x.Namespace(), x.Name())

			hadError = true
		}
	}

	if hadError {
		return false
	}

	res.value = styleable

	return true
}
