package hive

import (
	"bytes"
	"encoding/binary"
	"fmt"
)

// Encoder writes the chain's little-endian binary serialization.
type Encoder struct {
	buf bytes.Buffer
}

func (e *Encoder) Bytes() []byte {
	return e.buf.Bytes()
}

func (e *Encoder) Uvarint(v uint64) {
	var b [binary.MaxVarintLen64]byte
	n := binary.PutUvarint(b[:], v)
	e.buf.Write(b[:n])
}

func (e *Encoder) Uint8(v uint8) {
	e.buf.WriteByte(v)
}

func (e *Encoder) Bool(v bool) {
	if v {
		e.buf.WriteByte(1)
		return
	}
	e.buf.WriteByte(0)
}

func (e *Encoder) Uint16(v uint16) {
	var b [2]byte
	binary.LittleEndian.PutUint16(b[:], v)
	e.buf.Write(b[:])
}

func (e *Encoder) Int16(v int16) {
	e.Uint16(uint16(v))
}

func (e *Encoder) Uint32(v uint32) {
	var b [4]byte
	binary.LittleEndian.PutUint32(b[:], v)
	e.buf.Write(b[:])
}

func (e *Encoder) Int64(v int64) {
	var b [8]byte
	binary.LittleEndian.PutUint64(b[:], uint64(v))
	e.buf.Write(b[:])
}

func (e *Encoder) String(s string) {
	e.Uvarint(uint64(len(s)))
	e.buf.WriteString(s)
}

func (e *Encoder) Strings(ss []string) {
	e.Uvarint(uint64(len(ss)))
	for _, s := range ss {
		e.String(s)
	}
}

func (e *Encoder) Asset(a Asset) error {
	symbol := a.wireSymbol()
	if len(symbol) > 7 {
		return fmt.Errorf("asset symbol %q too long", symbol)
	}
	e.Int64(a.Amount)
	e.Uint8(a.Precision)
	var sym [7]byte
	copy(sym[:], symbol)
	e.buf.Write(sym[:])
	return nil
}
