package resolve

import (
	"encoding/binary"
	"fmt"
	"unicode/utf16"

	"github.com/kestrel-tools/resforge/pkg/restable"
)

// Chunk types of the compiled table format.
const (
	chunkStringPool uint16 = 0x0001
	chunkTable      uint16 = 0x0002
	chunkPackage    uint16 = 0x0200
	chunkType       uint16 = 0x0201
	chunkTypeSpec   uint16 = 0x0202
)

const (
	stringPoolUTF8Flag uint32 = 0x0100

	entryFlagComplex uint16 = 0x0001

	noEntry uint32 = 0xffffffff
)

// BinaryTable indexes a compiled resource table so it can serve as a
// fallback Source. The whole table is decoded up front; lookups are map
// reads.
type BinaryTable struct {
	idsByName map[restable.Name]restable.ID
	namesByID map[restable.ID]restable.Name
	bags      map[restable.ID]*Bag
}

var _ Source = (*BinaryTable)(nil)

// NewBinaryTable decodes a compiled resource table from data.
func NewBinaryTable(data []byte) (*BinaryTable, error) {
	t := &BinaryTable{
		idsByName: make(map[restable.Name]restable.ID),
		namesByID: make(map[restable.ID]restable.Name),
		bags:      make(map[restable.ID]*Bag),
	}

	c := &cursor{data: data}

	chunkType, headerSize, size, err := c.chunkHeader()
	if err != nil {
		return nil, err
	}

	if chunkType != chunkTable {
		return nil, fmt.Errorf("not a resource table: unexpected chunk type 0x%04x", chunkType)
	}

	if size > uint32(len(data)) {
		return nil, fmt.Errorf("resource table truncated: chunk claims %d bytes, have %d", size, len(data))
	}

	packageCount, err := c.uint32()
	if err != nil {
		return nil, err
	}

	c.pos = int(headerSize)

	packagesSeen := 0

	for c.pos < int(size) {
		chunkStart := c.pos

		subType, _, subSize, err := c.chunkHeader()
		if err != nil {
			return nil, err
		}

		switch subType {
		case chunkStringPool:
			// The global value pool; nothing here is needed for symbol
			// lookups.

		case chunkPackage:
			if err := t.decodePackage(data[chunkStart : chunkStart+int(subSize)]); err != nil {
				return nil, err
			}

			packagesSeen++

		default:
			return nil, fmt.Errorf("unexpected chunk type 0x%04x at offset %d", subType, chunkStart)
		}

		c.pos = chunkStart + int(subSize)
	}

	if uint32(packagesSeen) != packageCount {
		return nil, fmt.Errorf("resource table declares %d packages, found %d", packageCount, packagesSeen)
	}

	return t, nil
}

// IDForName implements Source.
func (t *BinaryTable) IDForName(name restable.Name) (restable.ID, bool) {
	id, ok := t.idsByName[name]

	return id, ok
}

// NameForID implements Source.
func (t *BinaryTable) NameForID(id restable.ID) (restable.Name, bool) {
	name, ok := t.namesByID[id]

	return name, ok
}

// Bag implements Source.
func (t *BinaryTable) Bag(id restable.ID) (*Bag, bool) {
	bag, ok := t.bags[id]

	return bag, ok
}

func (t *BinaryTable) decodePackage(chunk []byte) error {
	c := &cursor{data: chunk}

	_, headerSize, _, err := c.chunkHeader()
	if err != nil {
		return err
	}

	pkgID, err := c.uint32()
	if err != nil {
		return err
	}

	nameBytes, err := c.bytes(256)
	if err != nil {
		return fmt.Errorf("package chunk truncated: %w", err)
	}

	pkgName := decodePackageName(nameBytes)

	var typeStrings, keyStrings []string

	c.pos = int(headerSize)

	for c.pos < len(chunk) {
		chunkStart := c.pos

		subType, _, subSize, err := c.chunkHeader()
		if err != nil {
			return err
		}

		sub := chunk[chunkStart : chunkStart+int(subSize)]

		switch subType {
		case chunkStringPool:
			// Type strings come first, key strings second.
			pool, err := decodeStringPool(sub)
			if err != nil {
				return err
			}

			if typeStrings == nil {
				typeStrings = pool
			} else if keyStrings == nil {
				keyStrings = pool
			}

		case chunkTypeSpec:
			// Configuration-change masks; irrelevant for symbol lookup.

		case chunkType:
			if err := t.decodeTypeChunk(sub, uint8(pkgID), pkgName, typeStrings, keyStrings); err != nil {
				return err
			}

		default:
			return fmt.Errorf("unexpected chunk type 0x%04x inside package '%s'", subType, pkgName)
		}

		c.pos = chunkStart + int(subSize)
	}

	return nil
}

func (t *BinaryTable) decodeTypeChunk(chunk []byte, pkgID uint8, pkgName string, typeStrings, keyStrings []string) error {
	c := &cursor{data: chunk}

	if _, _, _, err := c.chunkHeader(); err != nil {
		return err
	}

	typeID, err := c.uint8()
	if err != nil {
		return err
	}

	if err := c.skip(3); err != nil {
		return err
	}

	entryCount, err := c.uint32()
	if err != nil {
		return err
	}

	entriesStart, err := c.uint32()
	if err != nil {
		return err
	}

	// The configuration block is size-prefixed; its contents do not affect
	// symbol identity.
	configSize, err := c.uint32()
	if err != nil {
		return err
	}

	if err := c.skip(int(configSize) - 4); err != nil {
		return err
	}

	offsets := make([]uint32, entryCount)
	for i := range offsets {
		offsets[i], err = c.uint32()
		if err != nil {
			return err
		}
	}

	// Type IDs are 1-based indexes into the type string pool.
	if typeID == 0 || int(typeID) > len(typeStrings) {
		return fmt.Errorf("type id 0x%02x has no name in the type string pool", typeID)
	}

	typ, ok := restable.ParseType(typeStrings[typeID-1])
	if !ok {
		// Not a type this tool models; its symbols cannot be referenced.
		return nil
	}

	for i, offset := range offsets {
		if offset == noEntry {
			continue
		}

		ec := &cursor{data: chunk, pos: int(entriesStart) + int(offset)}

		if err := ec.skip(2); err != nil {
			return err
		}

		flags, err := ec.uint16()
		if err != nil {
			return err
		}

		keyIndex, err := ec.uint32()
		if err != nil {
			return err
		}

		if int(keyIndex) >= len(keyStrings) {
			return fmt.Errorf("entry key index %d out of range", keyIndex)
		}

		name := restable.Name{Package: pkgName, Type: typ, Entry: keyStrings[keyIndex]}
		id := restable.MakeID(pkgID, typeID, uint16(i))

		t.idsByName[name] = id
		t.namesByID[id] = name

		if flags&entryFlagComplex == 0 {
			continue
		}

		bag, err := decodeBag(ec)
		if err != nil {
			return fmt.Errorf("bad bag for %s: %w", name, err)
		}

		t.bags[id] = bag
	}

	return nil
}

func decodeBag(c *cursor) (*Bag, error) {
	parent, err := c.uint32()
	if err != nil {
		return nil, err
	}

	count, err := c.uint32()
	if err != nil {
		return nil, err
	}

	bag := &Bag{ParentID: restable.ID(parent)}

	for i := uint32(0); i < count; i++ {
		key, err := c.uint32()
		if err != nil {
			return nil, err
		}

		// Res_value: size, res0, dataType, data.
		if err := c.skip(3); err != nil {
			return nil, err
		}

		dataType, err := c.uint8()
		if err != nil {
			return nil, err
		}

		data, err := c.uint32()
		if err != nil {
			return nil, err
		}

		bag.Entries = append(bag.Entries, BagEntry{
			Key:   restable.ID(key),
			Value: restable.Primitive{DataType: dataType, Data: data},
		})
	}

	return bag, nil
}

func decodeStringPool(chunk []byte) ([]string, error) {
	c := &cursor{data: chunk}

	chunkType, _, _, err := c.chunkHeader()
	if err != nil {
		return nil, err
	}

	if chunkType != chunkStringPool {
		return nil, fmt.Errorf("expected string pool chunk, got 0x%04x", chunkType)
	}

	stringCount, err := c.uint32()
	if err != nil {
		return nil, err
	}

	if err := c.skip(4); err != nil { // style count
		return nil, err
	}

	flags, err := c.uint32()
	if err != nil {
		return nil, err
	}

	stringsStart, err := c.uint32()
	if err != nil {
		return nil, err
	}

	if err := c.skip(4); err != nil { // styles start
		return nil, err
	}

	utf8 := flags&stringPoolUTF8Flag != 0

	strs := make([]string, stringCount)

	for i := range strs {
		offset, err := c.uint32()
		if err != nil {
			return nil, err
		}

		sc := &cursor{data: chunk, pos: int(stringsStart) + int(offset)}

		if utf8 {
			strs[i], err = sc.utf8String()
		} else {
			strs[i], err = sc.utf16String()
		}

		if err != nil {
			return nil, fmt.Errorf("bad string at pool index %d: %w", i, err)
		}
	}

	return strs, nil
}

// decodePackageName trims the fixed 256-byte UTF-16 package name field.
func decodePackageName(raw []byte) string {
	units := make([]uint16, 0, 128)

	for i := 0; i+1 < len(raw); i += 2 {
		u := binary.LittleEndian.Uint16(raw[i:])
		if u == 0 {
			break
		}

		units = append(units, u)
	}

	return string(utf16.Decode(units))
}

// cursor is a bounds-checked little-endian reader over a chunk.
type cursor struct {
	data []byte
	pos  int
}

func (c *cursor) bytes(n int) ([]byte, error) {
	if n < 0 || c.pos+n > len(c.data) {
		return nil, fmt.Errorf("read of %d bytes at offset %d exceeds chunk size %d", n, c.pos, len(c.data))
	}

	b := c.data[c.pos : c.pos+n]
	c.pos += n

	return b, nil
}

func (c *cursor) skip(n int) error {
	_, err := c.bytes(n)

	return err
}

func (c *cursor) uint8() (uint8, error) {
	b, err := c.bytes(1)
	if err != nil {
		return 0, err
	}

	return b[0], nil
}

func (c *cursor) uint16() (uint16, error) {
	b, err := c.bytes(2)
	if err != nil {
		return 0, err
	}

	return binary.LittleEndian.Uint16(b), nil
}

func (c *cursor) uint32() (uint32, error) {
	b, err := c.bytes(4)
	if err != nil {
		return 0, err
	}

	return binary.LittleEndian.Uint32(b), nil
}

func (c *cursor) chunkHeader() (chunkType, headerSize uint16, size uint32, err error) {
	if chunkType, err = c.uint16(); err != nil {
		return 0, 0, 0, err
	}

	if headerSize, err = c.uint16(); err != nil {
		return 0, 0, 0, err
	}

	if size, err = c.uint32(); err != nil {
		return 0, 0, 0, err
	}

	return chunkType, headerSize, size, nil
}

// utf8String reads a length-prefixed UTF-8 pool string. Lengths of 0x80 or
// more are encoded in two bytes, high byte first.
func (c *cursor) utf8String() (string, error) {
	// The first length is in UTF-16 units and is skipped.
	n, err := c.uint8()
	if err != nil {
		return "", err
	}

	if n&0x80 != 0 {
		if err := c.skip(1); err != nil {
			return "", err
		}
	}

	n, err = c.uint8()
	if err != nil {
		return "", err
	}

	length := int(n)

	if n&0x80 != 0 {
		low, err := c.uint8()
		if err != nil {
			return "", err
		}

		length = int(n&0x7f)<<8 | int(low)
	}

	b, err := c.bytes(length)
	if err != nil {
		return "", err
	}

	return string(b), nil
}

// utf16String reads a length-prefixed UTF-16LE pool string. Lengths of
// 0x8000 or more are encoded in two uint16s, high word first.
func (c *cursor) utf16String() (string, error) {
	n, err := c.uint16()
	if err != nil {
		return "", err
	}

	length := int(n)

	if n&0x8000 != 0 {
		low, err := c.uint16()
		if err != nil {
			return "", err
		}

		length = int(n&0x7fff)<<16 | int(low)
	}

	units := make([]uint16, length)

	for i := range units {
		units[i], err = c.uint16()
		if err != nil {
			return "", err
		}
	}

	return string(utf16.Decode(units)), nil
}
