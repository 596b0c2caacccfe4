// Package serde defines the serializer collaborator interface
// (spec.md §6). No DSDL compiler or generated types are part of this
// module: a Serializable implementation is expected to come from
// generated code, one per DSDL type, outside this repository.
package serde

import "github.com/cyphalcan/transport/internal/bitstream"

// Serializable is the interface generated DSDL types implement to
// move between their in-memory representation and the wire's bit
// stream.
type Serializable interface {
	// Serialize writes the value's fields into w.
	Serialize(w *bitstream.Writer) error
	// Deserialize populates the value's fields by reading from r.
	Deserialize(r *bitstream.Reader) error
	// SizeBits returns the value's exact serialized length in bits for
	// a sealed type, or its current length for a delimited one.
	SizeBits() int
	// InBitLengthSet reports whether bits is a length this type could
	// legally serialize to.
	InBitLengthSet(bits int) bool
	// ExtentBytes distinguishes sealed (0, false) from delimited
	// (extent, true) types. The receiver's oversize check does not use
	// it; that check uses the subscription's max payload size.
	ExtentBytes() (extent int, delimited bool)
}
