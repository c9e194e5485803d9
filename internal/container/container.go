// Package container reads and writes the intermediate compiled-resource
// format: a msgpack snapshot of a resource table inside an LZ4 frame. It is
// the handoff between the compile and link phases; the final binary table
// format is produced by a later stage.
package container

import (
	"bytes"
	"fmt"
	"io"

	"github.com/pierrec/lz4/v4"
	"github.com/vmihailenco/msgpack/v5"

	"github.com/kestrel-tools/resforge/pkg/configdesc"
	"github.com/kestrel-tools/resforge/pkg/diag"
	"github.com/kestrel-tools/resforge/pkg/restable"
	"github.com/kestrel-tools/resforge/pkg/stringpool"
)

// magic identifies the container format, versioned by its last byte.
var magic = []byte{'R', 'F', 'T', '1'}

// Encode writes the table to w.
func Encode(w io.Writer, table *restable.Table) error {
	snap, err := snapshotTable(table)
	if err != nil {
		return err
	}

	payload, err := msgpack.Marshal(snap)
	if err != nil {
		return fmt.Errorf("encoding table: %w", err)
	}

	if _, err := w.Write(magic); err != nil {
		return err
	}

	zw := lz4.NewWriter(w)

	if _, err := zw.Write(payload); err != nil {
		return fmt.Errorf("compressing table: %w", err)
	}

	return zw.Close()
}

// Decode reads a table previously written by Encode.
func Decode(r io.Reader) (*restable.Table, error) {
	header := make([]byte, len(magic))
	if _, err := io.ReadFull(r, header); err != nil {
		return nil, fmt.Errorf("reading container header: %w", err)
	}

	if !bytes.Equal(header, magic) {
		return nil, fmt.Errorf("not a compiled resource container: bad magic %q", header)
	}

	payload, err := io.ReadAll(lz4.NewReader(r))
	if err != nil {
		return nil, fmt.Errorf("decompressing table: %w", err)
	}

	var snap tableSnapshot
	if err := msgpack.Unmarshal(payload, &snap); err != nil {
		return nil, fmt.Errorf("decoding table: %w", err)
	}

	return restoreTable(&snap)
}

// Value kinds of the encoded form.
const (
	kindReference uint8 = iota + 1
	kindPlaceholder
	kindPrimitive
	kindString
	kindStyledString
	kindRawString
	kindFileReference
	kindAttribute
	kindStyle
	kindArray
	kindPlural
	kindStyleable
)

type tableSnapshot struct {
	Packages []packageRecord
}

type packageRecord struct {
	Name  string
	ID    *uint8
	Types []typeRecord
}

type typeRecord struct {
	Type       string
	ID         *uint8
	Visibility uint8
	Entries    []entryRecord
}

type entryRecord struct {
	Name       string
	ID         *uint16
	Visibility uint8
	Source     sourceRecord
	Comment    string
	Values     []configValueRecord
}

type sourceRecord struct {
	Path string
	Line int
}

type configValueRecord struct {
	Config  string
	Source  sourceRecord
	Comment string
	Value   valueRecord
}

type spanRecord struct {
	Name  string
	First uint32
	Last  uint32
}

type symbolRecord struct {
	Name  string
	ID    uint32
	Value uint32
}

type styleEntryRecord struct {
	Key   valueRecord
	Value valueRecord
}

// valueRecord is the encoded form of every value variant, discriminated by
// Kind. Unused fields stay at their zero value and cost nothing on the wire
// thanks to msgpack's omitempty.
type valueRecord struct {
	Kind uint8

	DataType uint8  `msgpack:",omitempty"`
	Data     uint32 `msgpack:",omitempty"`

	Str   string       `msgpack:",omitempty"`
	Spans []spanRecord `msgpack:",omitempty"`

	RefName    string `msgpack:",omitempty"`
	RefID      uint32 `msgpack:",omitempty"`
	RefType    uint8  `msgpack:",omitempty"`
	RefPrivate bool   `msgpack:",omitempty"`

	Translatable bool `msgpack:",omitempty"`

	Weak     bool           `msgpack:",omitempty"`
	TypeMask uint32         `msgpack:",omitempty"`
	Min      *int32         `msgpack:",omitempty"`
	Max      *int32         `msgpack:",omitempty"`
	Symbols  []symbolRecord `msgpack:",omitempty"`

	Parent         *valueRecord       `msgpack:",omitempty"`
	ParentInferred bool               `msgpack:",omitempty"`
	StyleEntries   []styleEntryRecord `msgpack:",omitempty"`

	Items []valueRecord `msgpack:",omitempty"`

	Plurals []*valueRecord `msgpack:",omitempty"`
}

func snapshotTable(table *restable.Table) (*tableSnapshot, error) {
	snap := &tableSnapshot{}

	for _, pkg := range table.Packages {
		pr := packageRecord{Name: pkg.Name, ID: pkg.ID}

		for _, typ := range pkg.Types {
			tr := typeRecord{
				Type:       typ.Type.String(),
				ID:         typ.ID,
				Visibility: uint8(typ.Symbol.State),
			}

			for _, entry := range typ.Entries {
				er := entryRecord{
					Name:       entry.Name,
					ID:         entry.ID,
					Visibility: uint8(entry.Symbol.State),
					Source:     sourceRecord{Path: entry.Symbol.Source.Path, Line: entry.Symbol.Source.Line},
					Comment:    entry.Symbol.Comment,
				}

				for _, cv := range entry.Values {
					value, err := snapshotValue(cv.Value)
					if err != nil {
						return nil, fmt.Errorf("resource '%s/%s': %w", typ.Type, entry.Name, err)
					}

					er.Values = append(er.Values, configValueRecord{
						Config:  cv.Config.String(),
						Source:  sourceRecord{Path: cv.Source.Path, Line: cv.Source.Line},
						Comment: cv.Comment,
						Value:   *value,
					})
				}

				tr.Entries = append(tr.Entries, er)
			}

			pr.Types = append(pr.Types, tr)
		}

		snap.Packages = append(snap.Packages, pr)
	}

	return snap, nil
}

func snapshotValue(value restable.Value) (*valueRecord, error) {
	switch v := value.(type) {
	case *restable.Reference:
		return snapshotReference(v), nil

	case *restable.Placeholder:
		return &valueRecord{Kind: kindPlaceholder}, nil

	case *restable.Primitive:
		return &valueRecord{Kind: kindPrimitive, DataType: v.DataType, Data: v.Data}, nil

	case *restable.String:
		return &valueRecord{Kind: kindString, Str: v.Ref.String(), Translatable: v.Translatable}, nil

	case *restable.StyledString:
		style := v.Ref.Style()

		rec := &valueRecord{Kind: kindStyledString, Str: style.Str, Translatable: v.Translatable}
		for _, span := range style.Spans {
			rec.Spans = append(rec.Spans, spanRecord{Name: span.Name, First: span.FirstChar, Last: span.LastChar})
		}

		return rec, nil

	case *restable.RawString:
		return &valueRecord{Kind: kindRawString, Str: v.Ref.String()}, nil

	case *restable.FileReference:
		// The file handle is compile-local; only the path travels.
		return &valueRecord{Kind: kindFileReference, Str: v.PathRef.String()}, nil

	case *restable.Attribute:
		rec := &valueRecord{Kind: kindAttribute, Weak: v.Weak, TypeMask: v.TypeMask, Min: v.Min, Max: v.Max}
		for _, sym := range v.Symbols {
			rec.Symbols = append(rec.Symbols, symbolRecord{
				Name:  sym.Symbol.Name.String(),
				ID:    uint32(sym.Symbol.ID),
				Value: sym.Value,
			})
		}

		return rec, nil

	case *restable.Style:
		rec := &valueRecord{Kind: kindStyle, ParentInferred: v.ParentInferred}

		if v.Parent != nil {
			rec.Parent = snapshotReference(v.Parent)
		}

		for _, se := range v.Entries {
			valueRec, err := snapshotValue(se.Value)
			if err != nil {
				return nil, err
			}

			rec.StyleEntries = append(rec.StyleEntries, styleEntryRecord{
				Key:   *snapshotReference(&se.Key),
				Value: *valueRec,
			})
		}

		return rec, nil

	case *restable.Array:
		rec := &valueRecord{Kind: kindArray, Translatable: v.Translatable}

		for _, item := range v.Items {
			itemRec, err := snapshotValue(item)
			if err != nil {
				return nil, err
			}

			rec.Items = append(rec.Items, *itemRec)
		}

		return rec, nil

	case *restable.Plural:
		rec := &valueRecord{Kind: kindPlural, Plurals: make([]*valueRecord, restable.PluralCount)}

		for i, item := range v.Values {
			if item == nil {
				continue
			}

			itemRec, err := snapshotValue(item)
			if err != nil {
				return nil, err
			}

			rec.Plurals[i] = itemRec
		}

		return rec, nil

	case *restable.Styleable:
		rec := &valueRecord{Kind: kindStyleable}

		for i := range v.Entries {
			rec.Items = append(rec.Items, *snapshotReference(&v.Entries[i]))
		}

		return rec, nil
	}

	return nil, fmt.Errorf("unencodable value type %T", value)
}

func snapshotReference(ref *restable.Reference) *valueRecord {
	rec := &valueRecord{
		Kind:       kindReference,
		RefID:      uint32(ref.ID),
		RefType:    uint8(ref.RefType),
		RefPrivate: ref.Private,
	}

	// ID-only references carry no name.
	if ref.Name.Entry != "" {
		rec.RefName = ref.Name.String()
	}

	return rec
}

func restoreTable(snap *tableSnapshot) (*restable.Table, error) {
	table := restable.New()

	for _, pr := range snap.Packages {
		pkg := table.CreatePackage(pr.Name, pr.ID)

		for _, tr := range pr.Types {
			typeName, ok := restable.ParseType(tr.Type)
			if !ok {
				return nil, fmt.Errorf("unknown resource type '%s'", tr.Type)
			}

			typ := pkg.FindOrCreateType(typeName)
			typ.ID = tr.ID
			typ.Symbol.State = restable.SymbolState(tr.Visibility)

			for _, er := range tr.Entries {
				entry := typ.FindOrCreateEntry(er.Name)
				entry.ID = er.ID
				entry.Symbol = restable.Symbol{
					State:   restable.SymbolState(er.Visibility),
					Source:  diag.Source{Path: er.Source.Path, Line: er.Source.Line},
					Comment: er.Comment,
				}

				for _, cvr := range er.Values {
					config, err := configdesc.Parse(cvr.Config)
					if err != nil {
						return nil, fmt.Errorf("resource '%s/%s': %w", tr.Type, er.Name, err)
					}

					value, err := restoreValue(&cvr.Value, table.StringPool, config)
					if err != nil {
						return nil, fmt.Errorf("resource '%s/%s': %w", tr.Type, er.Name, err)
					}

					cv := entry.FindOrCreateValue(config)
					cv.Source = diag.Source{Path: cvr.Source.Path, Line: cvr.Source.Line}
					cv.Comment = cvr.Comment
					cv.Value = value
				}
			}
		}
	}

	return table, nil
}

func restoreValue(rec *valueRecord, pool *stringpool.Pool, config configdesc.Config) (restable.Value, error) {
	ctx := stringpool.Context{Priority: 1, Config: config}

	switch rec.Kind {
	case kindReference:
		return restoreReference(rec)

	case kindPlaceholder:
		return &restable.Placeholder{}, nil

	case kindPrimitive:
		return &restable.Primitive{DataType: rec.DataType, Data: rec.Data}, nil

	case kindString:
		return &restable.String{Ref: pool.MakeRef(rec.Str, ctx), Translatable: rec.Translatable}, nil

	case kindStyledString:
		style := stringpool.Style{Str: rec.Str}
		for _, span := range rec.Spans {
			style.Spans = append(style.Spans, stringpool.Span{Name: span.Name, FirstChar: span.First, LastChar: span.Last})
		}

		return &restable.StyledString{Ref: pool.MakeStyleRef(style, ctx), Translatable: rec.Translatable}, nil

	case kindRawString:
		return &restable.RawString{Ref: pool.MakeRef(rec.Str, ctx)}, nil

	case kindFileReference:
		return &restable.FileReference{PathRef: pool.MakeRef(rec.Str, ctx)}, nil

	case kindAttribute:
		attr := &restable.Attribute{Weak: rec.Weak, TypeMask: rec.TypeMask, Min: rec.Min, Max: rec.Max}

		for _, sym := range rec.Symbols {
			name, _, ok := restable.ParseName(sym.Name)
			if !ok {
				return nil, fmt.Errorf("bad symbol name '%s'", sym.Name)
			}

			attr.Symbols = append(attr.Symbols, restable.AttributeSymbol{
				Symbol: restable.Reference{Name: name, ID: restable.ID(sym.ID)},
				Value:  sym.Value,
			})
		}

		return attr, nil

	case kindStyle:
		style := &restable.Style{ParentInferred: rec.ParentInferred}

		if rec.Parent != nil {
			parent, err := restoreReference(rec.Parent)
			if err != nil {
				return nil, err
			}

			style.Parent = parent
		}

		for i := range rec.StyleEntries {
			key, err := restoreReference(&rec.StyleEntries[i].Key)
			if err != nil {
				return nil, err
			}

			value, err := restoreValue(&rec.StyleEntries[i].Value, pool, config)
			if err != nil {
				return nil, err
			}

			item, ok := value.(restable.Item)
			if !ok {
				return nil, fmt.Errorf("style entry value is not an item")
			}

			style.Entries = append(style.Entries, restable.StyleEntry{Key: *key, Value: item})
		}

		return style, nil

	case kindArray:
		array := &restable.Array{Translatable: rec.Translatable}

		for i := range rec.Items {
			value, err := restoreValue(&rec.Items[i], pool, config)
			if err != nil {
				return nil, err
			}

			item, ok := value.(restable.Item)
			if !ok {
				return nil, fmt.Errorf("array item is not an item")
			}

			array.Items = append(array.Items, item)
		}

		return array, nil

	case kindPlural:
		plural := &restable.Plural{}

		for i, itemRec := range rec.Plurals {
			if itemRec == nil || i >= restable.PluralCount {
				continue
			}

			value, err := restoreValue(itemRec, pool, config)
			if err != nil {
				return nil, err
			}

			item, ok := value.(restable.Item)
			if !ok {
				return nil, fmt.Errorf("plural item is not an item")
			}

			plural.Values[i] = item
		}

		return plural, nil

	case kindStyleable:
		styleable := &restable.Styleable{}

		for i := range rec.Items {
			ref, err := restoreReference(&rec.Items[i])
			if err != nil {
				return nil, err
			}

			styleable.Entries = append(styleable.Entries, *ref)
		}

		return styleable, nil
	}

	return nil, fmt.Errorf("unknown value kind %d", rec.Kind)
}

func restoreReference(rec *valueRecord) (*restable.Reference, error) {
	ref := &restable.Reference{
		ID:      restable.ID(rec.RefID),
		RefType: restable.ReferenceType(rec.RefType),
		Private: rec.RefPrivate,
	}

	if rec.RefName != "" {
		name, _, ok := restable.ParseName(rec.RefName)
		if !ok {
			return nil, fmt.Errorf("bad reference name '%s'", rec.RefName)
		}

		ref.Name = name
	}

	return ref, nil
}
