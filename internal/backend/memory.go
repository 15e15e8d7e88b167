package backend

import (
	"encoding/binary"
	"fmt"
	"math"

	"fortio.org/safecast"
	"github.com/llir/llvm/ir/types"

	"ksc/internal/layout"
)

// Memory is the byte-addressed store compiled code and the host share.
// An address is segment<<32 | offset; address 0 is null.
// Every allocation is its own segment so out-of-bounds accesses trap
// instead of corrupting a neighbour.
type Memory struct {
	layout *layout.LayoutEngine
	segs   [][]byte
	free   []uint32
}

func newMemory(le *layout.LayoutEngine) *Memory {
	return &Memory{layout: le, segs: make([][]byte, 1, 64)}
}

// Alloc reserves size zeroed bytes and returns their address.
func (m *Memory) Alloc(size int) int64 {
	buf := make([]byte, size)
	if n := len(m.free); n > 0 {
		seg := m.free[n-1]
		m.free = m.free[:n-1]
		m.segs[seg] = buf
		return int64(seg) << 32
	}
	seg, err := safecast.Conv[uint32](len(m.segs))
	if err != nil || seg > math.MaxInt32 {
		panic(trapf("memory: segment table exhausted"))
	}
	m.segs = append(m.segs, buf)
	return int64(seg) << 32
}

// AllocType reserves storage for one value of t in its in-memory layout.
func (m *Memory) AllocType(t types.Type) int64 {
	return m.Alloc(m.layout.MustLayoutOf(t).Size)
}

// Free releases the segment that addr points into.
func (m *Memory) Free(addr int64) {
	seg := addr >> 32
	if seg <= 0 || int(seg) >= len(m.segs) || m.segs[seg] == nil {
		return
	}
	m.segs[seg] = nil
	m.free = append(m.free, uint32(seg)) // #nosec G115 -- checked against len(segs)
}

// Live reports how many segments are currently allocated.
func (m *Memory) Live() int {
	n := 0
	for _, s := range m.segs[1:] {
		if s != nil {
			n++
		}
	}
	return n
}

func (m *Memory) span(addr int64, n int) []byte {
	if addr == 0 {
		panic(trapf("memory: null dereference"))
	}
	seg, off := addr>>32, addr&0xffffffff
	if seg <= 0 || int(seg) >= len(m.segs) || m.segs[seg] == nil {
		panic(trapf("memory: dangling address %#x", addr))
	}
	buf := m.segs[seg]
	if int(off)+n > len(buf) {
		panic(trapf("memory: access of %d bytes at %#x overruns a %d byte block", n, addr, len(buf)))
	}
	return buf[off : int(off)+n]
}

// Bytes returns a view of n bytes at addr.
func (m *Memory) Bytes(addr int64, n int) (b []byte, err error) {
	defer recoverTrap(&err)
	return m.span(addr, n), nil
}

// Load decodes a value of type t stored at addr.
func (m *Memory) Load(addr int64, t types.Type) Val {
	l := m.layout.MustLayoutOf(t)
	return m.decode(m.span(addr, l.Size), t)
}

// Store encodes v as type t at addr.
func (m *Memory) Store(addr int64, t types.Type, v Val) {
	l := m.layout.MustLayoutOf(t)
	m.encode(m.span(addr, l.Size), t, v)
}

// Read is Load for host code: traps come back as errors.
func (m *Memory) Read(addr int64, t types.Type) (v Val, err error) {
	defer recoverTrap(&err)
	return m.Load(addr, t), nil
}

// Write is Store for host code: traps come back as errors.
func (m *Memory) Write(addr int64, t types.Type, v Val) (err error) {
	defer recoverTrap(&err)
	m.Store(addr, t, v)
	return nil
}

func (m *Memory) encode(buf []byte, t types.Type, v Val) {
	switch tt := t.(type) {
	case *types.IntType:
		switch len(buf) {
		case 1:
			buf[0] = byte(v.I)
		case 2:
			binary.LittleEndian.PutUint16(buf, uint16(v.I)) // #nosec G115 -- truncation is the store semantics
		case 4:
			binary.LittleEndian.PutUint32(buf, uint32(v.I)) // #nosec G115
		default:
			binary.LittleEndian.PutUint64(buf, uint64(v.I)) // #nosec G115
		}
	case *types.FloatType:
		if len(buf) == 8 {
			binary.LittleEndian.PutUint64(buf, math.Float64bits(v.F))
		} else {
			binary.LittleEndian.PutUint32(buf, math.Float32bits(float32(v.F)))
		}
	case *types.PointerType:
		binary.LittleEndian.PutUint64(buf, uint64(v.I)) // #nosec G115
	case *types.VectorType:
		m.encodeElems(buf, tt.ElemType, m.layout.MustLayoutOf(t).Stride, v, tt.Len)
	case *types.ArrayType:
		m.encodeElems(buf, tt.ElemType, m.layout.MustLayoutOf(t).Stride, v, tt.Len)
	case *types.StructType:
		l := m.layout.MustLayoutOf(t)
		for i, f := range tt.Fields {
			fl := m.layout.MustLayoutOf(f)
			m.encode(buf[l.FieldOffsets[i]:l.FieldOffsets[i]+fl.Size], f, v.Elems[i])
		}
	default:
		panic(trapf("memory: cannot store %s", t))
	}
}

func (m *Memory) encodeElems(buf []byte, elem types.Type, stride int, v Val, n uint64) {
	size := m.layout.MustLayoutOf(elem).Size
	if uint64(len(v.Elems)) != n {
		panic(trapf("memory: %d elements stored into %d slots", len(v.Elems), n))
	}
	for i := range v.Elems {
		m.encode(buf[i*stride:i*stride+size], elem, v.Elems[i])
	}
}

func (m *Memory) decode(buf []byte, t types.Type) Val {
	switch tt := t.(type) {
	case *types.IntType:
		var raw int64
		switch len(buf) {
		case 1:
			raw = int64(buf[0])
		case 2:
			raw = int64(binary.LittleEndian.Uint16(buf))
		case 4:
			raw = int64(binary.LittleEndian.Uint32(buf))
		default:
			raw = int64(binary.LittleEndian.Uint64(buf)) // #nosec G115
		}
		return IntVal(wrapInt(tt.BitSize)(raw))
	case *types.FloatType:
		if len(buf) == 8 {
			return Val{F: math.Float64frombits(binary.LittleEndian.Uint64(buf))}
		}
		return Val{F: float64(math.Float32frombits(binary.LittleEndian.Uint32(buf)))}
	case *types.PointerType:
		return IntVal(int64(binary.LittleEndian.Uint64(buf))) // #nosec G115
	case *types.VectorType:
		return m.decodeElems(buf, tt.ElemType, m.layout.MustLayoutOf(t).Stride, tt.Len)
	case *types.ArrayType:
		return m.decodeElems(buf, tt.ElemType, m.layout.MustLayoutOf(t).Stride, tt.Len)
	case *types.StructType:
		l := m.layout.MustLayoutOf(t)
		out := Val{Elems: make([]Val, len(tt.Fields))}
		for i, f := range tt.Fields {
			fl := m.layout.MustLayoutOf(f)
			out.Elems[i] = m.decode(buf[l.FieldOffsets[i]:l.FieldOffsets[i]+fl.Size], f)
		}
		return out
	}
	panic(trapf("memory: cannot load %s", t))
}

func (m *Memory) decodeElems(buf []byte, elem types.Type, stride int, n uint64) Val {
	size := m.layout.MustLayoutOf(elem).Size
	out := Val{Elems: make([]Val, n)}
	for i := range out.Elems {
		out.Elems[i] = m.decode(buf[i*stride:i*stride+size], elem)
	}
	return out
}

// offsetOf resolves one GEP step below an aggregate of type t.
func (m *Memory) offsetOf(t types.Type, idx int64) (int64, types.Type) {
	switch tt := t.(type) {
	case *types.ArrayType:
		return idx * int64(m.layout.MustLayoutOf(t).Stride), tt.ElemType
	case *types.VectorType:
		return idx * int64(m.layout.MustLayoutOf(t).Stride), tt.ElemType
	case *types.StructType:
		l := m.layout.MustLayoutOf(t)
		if idx < 0 || int(idx) >= len(l.FieldOffsets) {
			panic(trapf("memory: field %d of %s", idx, t))
		}
		return int64(l.FieldOffsets[idx]), tt.Fields[idx]
	}
	panic(trapf("memory: cannot index into %s", t))
}

// TrapError is a run-time fault raised while executing compiled code.
type TrapError struct {
	Msg string
}

func (e *TrapError) Error() string { return e.Msg }

func trapf(format string, args ...any) *TrapError {
	return &TrapError{Msg: fmt.Sprintf(format, args...)}
}

func recoverTrap(err *error) {
	r := recover()
	if r == nil {
		return
	}
	if te, ok := r.(*TrapError); ok {
		*err = te
		return
	}
	panic(r)
}
