// Package resparse turns resource description text and XML into resource
// table contents: a typed-value parser for attribute text, a grammar-driven
// parser for resource XML documents, and the input path convention.
package resparse

import (
	"math"
	"strconv"
	"strings"

	"github.com/kestrel-tools/resforge/pkg/restable"
)

// TryParseNullOrEmpty matches the @null and @empty sentinels. @null encodes
// as a zero reference because a zero-data null word reads as an error at
// runtime; @empty is a null word with the explicit empty marker.
func TryParseNullOrEmpty(s string) *restable.Primitive {
	switch strings.TrimSpace(s) {
	case "@null":
		return &restable.Primitive{DataType: restable.DataTypeReference}
	case "@empty":
		return &restable.Primitive{DataType: restable.DataTypeNull, Data: restable.DataNullEmpty}
	default:
		return nil
	}
}

// ParseReferenceName parses "@[+][*]pkg:type/name" reference text. create
// reports a leading '+', which is only legal for id resources and never
// together with the private marker.
func ParseReferenceName(s string) (name restable.Name, create, private, ok bool) {
	s = strings.TrimSpace(s)
	if len(s) < 2 || s[0] != '@' {
		return restable.Name{}, false, false, false
	}

	rest := s[1:]
	if rest[0] == '+' {
		create = true
		rest = rest[1:]
	}

	name, private, ok = restable.ParseName(rest)
	if !ok {
		return restable.Name{}, false, false, false
	}

	if create && (private || name.Type != restable.TypeID) {
		return restable.Name{}, false, false, false
	}

	return name, create, private, true
}

// ParseAttributeReferenceName parses "?[pkg:][attr/]name" theme-attribute
// lookup text.
func ParseAttributeReferenceName(s string) (restable.Name, bool) {
	s = strings.TrimSpace(s)
	if len(s) < 2 || s[0] != '?' {
		return restable.Name{}, false
	}

	pkg, typ, entry, ok := restable.ExtractName(s[1:])
	if !ok || entry == "" {
		return restable.Name{}, false
	}

	if typ != "" && typ != "attr" {
		return restable.Name{}, false
	}

	return restable.Name{Package: pkg, Type: restable.TypeAttr, Entry: entry}, true
}

// TryParseReference interprets s as a resource or attribute reference.
// create reports the @+ marker.
func TryParseReference(s string) (ref *restable.Reference, create bool, ok bool) {
	if name, create, private, ok := ParseReferenceName(s); ok {
		return &restable.Reference{Name: name, Private: private}, create, true
	}

	if name, ok := ParseAttributeReferenceName(s); ok {
		return &restable.Reference{Name: name, RefType: restable.ReferenceAttribute}, false, true
	}

	return nil, false, false
}

func hexDigit(c byte) (uint32, bool) {
	switch {
	case c >= '0' && c <= '9':
		return uint32(c - '0'), true
	case c >= 'a' && c <= 'f':
		return uint32(c-'a') + 0xa, true
	case c >= 'A' && c <= 'F':
		return uint32(c-'A') + 0xa, true
	default:
		return 0, false
	}
}

// TryParseColor parses #-prefixed hex colors in the four supported widths:
// RGB, ARGB, RRGGBB, AARRGGBB. Alpha defaults to 0xff when omitted.
func TryParseColor(s string) *restable.Primitive {
	s = strings.TrimSpace(s)
	if s == "" || s[0] != '#' {
		return nil
	}

	digits := s[1:]
	nibbles := make([]uint32, len(digits))

	for i := 0; i < len(digits); i++ {
		d, ok := hexDigit(digits[i])
		if !ok {
			return nil
		}

		nibbles[i] = d
	}

	expand := func(n uint32) uint32 { return n<<4 | n }

	switch len(nibbles) {
	case 3:
		return &restable.Primitive{
			DataType: restable.DataTypeColorRGB4,
			Data: 0xff000000 |
				expand(nibbles[0])<<16 |
				expand(nibbles[1])<<8 |
				expand(nibbles[2]),
		}
	case 4:
		return &restable.Primitive{
			DataType: restable.DataTypeColorARGB4,
			Data: expand(nibbles[0])<<24 |
				expand(nibbles[1])<<16 |
				expand(nibbles[2])<<8 |
				expand(nibbles[3]),
		}
	case 6:
		return &restable.Primitive{
			DataType: restable.DataTypeColorRGB8,
			Data: 0xff000000 |
				nibbles[0]<<20 | nibbles[1]<<16 |
				nibbles[2]<<12 | nibbles[3]<<8 |
				nibbles[4]<<4 | nibbles[5],
		}
	case 8:
		return &restable.Primitive{
			DataType: restable.DataTypeColorARGB8,
			Data: nibbles[0]<<28 | nibbles[1]<<24 |
				nibbles[2]<<20 | nibbles[3]<<16 |
				nibbles[4]<<12 | nibbles[5]<<8 |
				nibbles[6]<<4 | nibbles[7],
		}
	default:
		return nil
	}
}

// ParseBool parses the accepted boolean spellings.
func ParseBool(s string) (bool, bool) {
	switch strings.TrimSpace(s) {
	case "true", "TRUE", "True":
		return true, true
	case "false", "FALSE", "False":
		return false, true
	default:
		return false, false
	}
}

// TryParseBool parses a boolean into its primitive encoding: all bits set
// for true, zero for false.
func TryParseBool(s string) *restable.Primitive {
	b, ok := ParseBool(s)
	if !ok {
		return nil
	}

	data := uint32(0)
	if b {
		data = 0xffffffff
	}

	return &restable.Primitive{DataType: restable.DataTypeIntBool, Data: data}
}

// TryParseInt parses a platform integer literal: optional sign, decimal or
// 0x-prefixed hex. The primitive keeps the spelling's radix in its type tag.
func TryParseInt(s string) *restable.Primitive {
	s = strings.TrimSpace(s)
	if s == "" {
		return nil
	}

	neg := false
	rest := s

	if rest[0] == '-' {
		neg = true
		rest = rest[1:]
	}

	if rest == "" {
		return nil
	}

	if strings.HasPrefix(rest, "0x") || strings.HasPrefix(rest, "0X") {
		digits := rest[2:]
		if digits == "" {
			return nil
		}

		var value uint64

		for i := 0; i < len(digits); i++ {
			d, ok := hexDigit(digits[i])
			if !ok {
				return nil
			}

			value = value<<4 | uint64(d)
			if value > math.MaxUint32 {
				return nil
			}
		}

		data := uint32(value)
		if neg {
			data = uint32(-int32(data))
		}

		return &restable.Primitive{DataType: restable.DataTypeIntHex, Data: data}
	}

	var value uint64

	for i := 0; i < len(rest); i++ {
		c := rest[i]
		if c < '0' || c > '9' {
			return nil
		}

		value = value*10 + uint64(c-'0')
		if value > math.MaxUint32 {
			return nil
		}
	}

	if neg && value > uint64(math.MaxInt32)+1 {
		return nil
	}

	data := uint32(value)
	if neg {
		data = uint32(-int64(value))
	}

	return &restable.Primitive{DataType: restable.DataTypeIntDec, Data: data}
}

// Complex-value radix tags for dimension and fraction encoding.
const (
	radix23p0 = 0
	radix16p7 = 1
	radix8p15 = 2
	radix0p23 = 3
)

// Dimension units.
const (
	unitPX  = 0
	unitDIP = 1
	unitSP  = 2
	unitPT  = 3
	unitIN  = 4
	unitMM  = 5
)

// Fraction units.
const (
	unitFraction       = 0
	unitFractionParent = 1
)

func packComplex(f float64, unit uint32) uint32 {
	neg := f < 0
	if neg {
		f = -f
	}

	bits := uint64(f*float64(1<<23) + 0.5)

	var radix, shift uint32

	switch {
	case bits&0x7fffff == 0:
		radix, shift = radix23p0, 23
	case bits&^uint64(0x7fffff) == 0:
		radix, shift = radix0p23, 0
	case bits&^uint64(0x7fffffff) == 0:
		radix, shift = radix8p15, 8
	case bits&^uint64(0x7fffffffff) == 0:
		radix, shift = radix16p7, 16
	default:
		radix, shift = radix23p0, 23
	}

	mantissa := int32(bits>>shift) & 0xffffff
	if neg {
		mantissa = -mantissa & 0xffffff
	}

	return uint32(mantissa)<<8 | radix<<4 | unit
}

// TryParseFloat parses a numeric literal with an optional unit suffix into a
// float, dimension, or fraction primitive.
func TryParseFloat(s string) *restable.Primitive {
	s = strings.TrimSpace(s)
	if s == "" {
		return nil
	}

	type suffix struct {
		text     string
		dataType uint8
		unit     uint32
	}

	// Longest suffixes first so "%p" wins over "%" and "dip" over nothing.
	suffixes := []suffix{
		{"dip", restable.DataTypeDimension, unitDIP},
		{"dp", restable.DataTypeDimension, unitDIP},
		{"px", restable.DataTypeDimension, unitPX},
		{"sp", restable.DataTypeDimension, unitSP},
		{"pt", restable.DataTypeDimension, unitPT},
		{"in", restable.DataTypeDimension, unitIN},
		{"mm", restable.DataTypeDimension, unitMM},
		{"%p", restable.DataTypeFraction, unitFractionParent},
		{"%", restable.DataTypeFraction, unitFraction},
	}

	for _, suf := range suffixes {
		if !strings.HasSuffix(s, suf.text) {
			continue
		}

		numText := strings.TrimSpace(strings.TrimSuffix(s, suf.text))

		f, ok := parsePlainFloat(numText)
		if !ok {
			return nil
		}

		if suf.dataType == restable.DataTypeFraction {
			f /= 100
		}

		return &restable.Primitive{DataType: suf.dataType, Data: packComplex(f, suf.unit)}
	}

	f, ok := parsePlainFloat(s)
	if !ok {
		return nil
	}

	return &restable.Primitive{DataType: restable.DataTypeFloat, Data: math.Float32bits(float32(f))}
}

func parsePlainFloat(s string) (float64, bool) {
	if s == "" {
		return 0, false
	}

	// Reject spellings strconv accepts but the resource grammar does not.
	for _, r := range s {
		switch {
		case r >= '0' && r <= '9':
		case r == '.' || r == '-' || r == '+' || r == 'e' || r == 'E':
		default:
			return 0, false
		}
	}

	f, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return 0, false
	}

	return f, true
}

// AttributeTypeMask maps a primitive's wire type to the attribute format
// bits it satisfies.
func AttributeTypeMask(dataType uint8) uint32 {
	switch dataType {
	case restable.DataTypeNull, restable.DataTypeReference, restable.DataTypeAttribute:
		return restable.MaskReference
	case restable.DataTypeFloat:
		return restable.MaskFloat
	case restable.DataTypeDimension:
		return restable.MaskDimension
	case restable.DataTypeFraction:
		return restable.MaskFraction
	case restable.DataTypeIntDec, restable.DataTypeIntHex:
		return restable.MaskInteger | restable.MaskEnum | restable.MaskFlags
	case restable.DataTypeIntBool:
		return restable.MaskBoolean
	case restable.DataTypeColorARGB8, restable.DataTypeColorRGB8,
		restable.DataTypeColorARGB4, restable.DataTypeColorRGB4:
		return restable.MaskColor
	default:
		return 0
	}
}

// TryParseEnumSymbol matches s against the attribute's enum symbols by the
// entry portion of each symbol name, case sensitively.
func TryParseEnumSymbol(attr *restable.Attribute, s string) *restable.Primitive {
	s = strings.TrimSpace(s)

	for _, sym := range attr.Symbols {
		if s == sym.Symbol.Name.Entry {
			return &restable.Primitive{DataType: restable.DataTypeIntDec, Data: sym.Value}
		}
	}

	return nil
}

// TryParseFlagSymbol matches |-separated flag tokens against the attribute's
// symbols and ORs their values. All-whitespace text is the valid empty flag
// set; any unknown token fails the whole parse.
func TryParseFlagSymbol(attr *restable.Attribute, s string) *restable.Primitive {
	result := &restable.Primitive{DataType: restable.DataTypeIntHex}

	if strings.TrimSpace(s) == "" {
		return result
	}

	for _, part := range strings.Split(s, "|") {
		part = strings.TrimSpace(part)

		matched := false
		for _, sym := range attr.Symbols {
			if part == sym.Symbol.Name.Entry {
				result.Data |= sym.Value
				matched = true

				break
			}
		}

		if !matched {
			return nil
		}
	}

	return result
}

// CreateReferenceFunc is invoked when @+ reference text is parsed so the
// caller can pre-register a placeholder for the named resource.
type CreateReferenceFunc func(name restable.Name)

// ParseItemForAttribute interprets text as a typed item under the accepted
// type mask. Cases are tried in fixed priority order: sentinels, references,
// then mask-gated color, boolean, integer, and float family parses. It
// returns nil when nothing matches; no fallback silently succeeds.
func ParseItemForAttribute(text string, typeMask uint32, onCreateReference CreateReferenceFunc) restable.Item {
	if nullOrEmpty := TryParseNullOrEmpty(text); nullOrEmpty != nil {
		return nullOrEmpty
	}

	if ref, create, ok := TryParseReference(text); ok {
		if create && onCreateReference != nil {
			onCreateReference(ref.Name)
		}

		return ref
	}

	if typeMask&restable.MaskColor != 0 {
		if color := TryParseColor(text); color != nil {
			return color
		}
	}

	if typeMask&restable.MaskBoolean != 0 {
		if boolean := TryParseBool(text); boolean != nil {
			return boolean
		}
	}

	if typeMask&restable.MaskInteger != 0 {
		if integer := TryParseInt(text); integer != nil {
			return integer
		}
	}

	floatMask := restable.MaskFloat | restable.MaskDimension | restable.MaskFraction
	if typeMask&floatMask != 0 {
		if fp := TryParseFloat(text); fp != nil {
			// The literal decides its own concrete type; accept it only if
			// that type is still within the mask.
			if typeMask&AttributeTypeMask(fp.DataType) != 0 {
				return fp
			}
		}
	}

	return nil
}

// ParseItemForFullAttribute additionally tries the attribute's enum and flag
// symbol tables after the primitive cases.
func ParseItemForFullAttribute(text string, attr *restable.Attribute, onCreateReference CreateReferenceFunc) restable.Item {
	if item := ParseItemForAttribute(text, attr.TypeMask, onCreateReference); item != nil {
		return item
	}

	if attr.TypeMask&restable.MaskEnum != 0 {
		if enum := TryParseEnumSymbol(attr, text); enum != nil {
			return enum
		}
	}

	if attr.TypeMask&restable.MaskFlags != 0 {
		if flags := TryParseFlagSymbol(attr, text); flags != nil {
			return flags
		}
	}

	return nil
}

// VerifyStringFormat reports false when a string uses more than one
// non-positional %-substitution, which is ambiguous for translators.
func VerifyStringFormat(s string) bool {
	nonPositional := 0

	for i := 0; i < len(s); i++ {
		if s[i] != '%' || i+1 >= len(s) {
			continue
		}

		next := s[i+1]
		if next == '%' {
			i++

			continue
		}

		// A digit followed by '$' marks a positional argument.
		j := i + 1
		for j < len(s) && s[j] >= '0' && s[j] <= '9' {
			j++
		}

		if j > i+1 && j < len(s) && s[j] == '$' {
			continue
		}

		nonPositional++
	}

	return nonPositional <= 1
}
