package primitive

import "testing"

func TestCompareAndSwapUint32(t *testing.T) {
	var addr uint32
	fresh, swapped := CompareAndSwapUint32(&addr, 0, 2)
	if fresh != 2 || !swapped {
		t.Errorf("got %d (swapped %v), expected %d (swapped %v) from CAS of %d-value with %d to %d", fresh, swapped, 2, true, 0, 0, 2)
	}
	fresh, swapped = CompareAndSwapUint32(&addr, 1, 3)
	if fresh != 2 || swapped {
		t.Errorf("got %d (swapped %v), expected %d (swapped %v) from CAS of %d-value with %d to %d", fresh, swapped, 2, false, 2, 1, 3)
	}
}

func TestCompareAndSwapUint64(t *testing.T) {
	var addr uint64
	fresh, swapped := CompareAndSwapUint64(&addr, 0, 2)
	if fresh != 2 || !swapped {
		t.Errorf("got %d (swapped %v), expected 2 (swapped true)", fresh, swapped)
	}
	fresh, swapped = CompareAndSwapUint64(&addr, 1, 3)
	if fresh != 2 || swapped {
		t.Errorf("got %d (swapped %v), expected 2 (swapped false)", fresh, swapped)
	}
}

func TestFetchOps32(t *testing.T) {
	var v uint32 = 10
	if prior := FetchAddUint32(&v, 5); prior != 10 || v != 15 {
		t.Errorf("fetch-add: prior %d value %d, expected 10 and 15", prior, v)
	}
	if prior := FetchSubUint32(&v, 5); prior != 15 || v != 10 {
		t.Errorf("fetch-sub: prior %d value %d, expected 15 and 10", prior, v)
	}
	if prior := FetchOrUint32(&v, 0xf0); prior != 10 || v != 0xfa {
		t.Errorf("fetch-or: prior %d value %#x, expected 10 and 0xfa", prior, v)
	}
	if prior := FetchAndUint32(&v, 0x0f); prior != 0xfa || v != 0x0a {
		t.Errorf("fetch-and: prior %#x value %#x, expected 0xfa and 0xa", prior, v)
	}
	if prior := FetchXorUint32(&v, 0xff); prior != 0x0a || v != 0xf5 {
		t.Errorf("fetch-xor: prior %#x value %#x, expected 0xa and 0xf5", prior, v)
	}
	if prior := SwapUint32(&v, 7); prior != 0xf5 || v != 7 {
		t.Errorf("swap: prior %#x value %d, expected 0xf5 and 7", prior, v)
	}
}

func TestBitOps32(t *testing.T) {
	var v uint32
	if prior := BtsUint32(&v, 3); prior != 0 {
		t.Errorf("bts of clear bit returned %#x, expected 0", prior)
	}
	if v != 8 {
		t.Errorf("bts left %#x, expected 8", v)
	}
	if prior := BtsUint32(&v, 3); prior != ^uint32(0) {
		t.Errorf("bts of set bit returned %#x, expected all-ones", prior)
	}
	if prior := BtrUint32(&v, 3); prior != ^uint32(0) {
		t.Errorf("btr of set bit returned %#x, expected all-ones", prior)
	}
	if v != 0 {
		t.Errorf("btr left %#x, expected 0", v)
	}
	if prior := BtrUint32(&v, 3); prior != 0 {
		t.Errorf("btr of clear bit returned %#x, expected 0", prior)
	}
}

func TestIncDec32(t *testing.T) {
	var v uint32 = ^uint32(0)
	if IncUint32(&v) {
		t.Error("inc wrapping to zero reported nonzero")
	}
	if !IncUint32(&v) {
		t.Error("inc to 1 reported zero")
	}
	if DecUint32(&v) {
		t.Error("dec to zero reported nonzero")
	}
	if !DecUint32(&v) {
		t.Error("dec wrapping reported zero")
	}
}

// The sub-word operations must only touch their own lane of the containing
// word.
func TestSubWordNeighbors(t *testing.T) {
	var buf [4]uint8
	for i := range buf {
		buf[i] = uint8(0x10 * (i + 1))
	}

	if prior := FetchAddUint8(&buf[1], 2); prior != 0x20 {
		t.Errorf("fetch-add prior %#x, expected 0x20", prior)
	}
	if buf[0] != 0x10 || buf[1] != 0x22 || buf[2] != 0x30 || buf[3] != 0x40 {
		t.Errorf("neighbors disturbed: % x", buf)
	}

	if prior := FetchAddUint8(&buf[2], 0xff); prior != 0x30 || buf[2] != 0x2f {
		t.Errorf("wrapping add: prior %#x value %#x, expected 0x30 and 0x2f", prior, buf[2])
	}
	if buf[1] != 0x22 || buf[3] != 0x40 {
		t.Errorf("wrapping add disturbed neighbors: % x", buf)
	}
}

func TestSubWord16(t *testing.T) {
	var buf [2]uint16
	buf[0], buf[1] = 0x1111, 0x2222

	if prior := FetchAddUint16(&buf[0], 0x10); prior != 0x1111 || buf[0] != 0x1121 {
		t.Errorf("fetch-add: prior %#x value %#x", prior, buf[0])
	}
	if buf[1] != 0x2222 {
		t.Errorf("neighbor disturbed: %#x", buf[1])
	}

	fresh, swapped := CompareAndSwapUint16(&buf[1], 0x2222, 0x3333)
	if !swapped || fresh != 0x3333 || buf[1] != 0x3333 {
		t.Errorf("cas: fresh %#x swapped %v value %#x", fresh, swapped, buf[1])
	}
	fresh, swapped = CompareAndSwapUint16(&buf[1], 0x2222, 0x4444)
	if swapped || fresh != 0x3333 {
		t.Errorf("cas of stale old: fresh %#x swapped %v", fresh, swapped)
	}
	if buf[0] != 0x1121 {
		t.Errorf("cas on neighbor disturbed buf[0]: %#x", buf[0])
	}
}

func TestSubWordBits(t *testing.T) {
	var v uint8
	if prior := BtsUint8(&v, 7); prior != 0 || v != 0x80 {
		t.Errorf("bts: prior %#x value %#x", prior, v)
	}
	if prior := BtsUint8(&v, 7); prior != 0xff {
		t.Errorf("bts of set bit: prior %#x, expected 0xff", prior)
	}
	if prior := BtrUint8(&v, 7); prior != 0xff || v != 0 {
		t.Errorf("btr: prior %#x value %#x", prior, v)
	}
}

func TestNext2(t *testing.T) {
	for _, tt := range []struct{ in, out uintptr }{
		{1, 1}, {2, 2}, {3, 4}, {5, 8}, {1000, 1024}, {1024, 1024},
	} {
		if got := Next2(tt.in); got != tt.out {
			t.Errorf("Next2(%d) = %d, expected %d", tt.in, got, tt.out)
		}
	}
}

// The fences and hints have no observable effect to assert on; this just
// keeps them exercised.
func TestFencesAndHints(t *testing.T) {
	Mb()
	MbLoad()
	MbStore()
	Barrier()
	Relax()
}
