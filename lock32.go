package plock

import (
	"github.com/wtarreau/plock/primitive"
	"github.com/wtarreau/plock/wait"
)

// Lock32 is a progressive lock held in a single uint32. The zero value is
// an unlocked lock. The word packs, low bits first: 2 reserved bits (never
// touched by the lock), a 14-bit reader count, a 2-bit seeker count, and a
// 14-bit writer count.
//
// The reader and writer fields bound concurrency: at most 16383 simultaneous
// readers, and at most 13107 simultaneous write contenders before the
// writer field becomes ambiguous. Lock64 raises both bounds far beyond any
// realistic thread count.
type Lock32 struct {
	v uint32
}

const (
	rd32Shift = 2
	sk32Shift = 16
	wr32Shift = 18

	rd32One uint32 = 1 << rd32Shift // one reader
	rd32Any uint32 = 0x0000fffc     // the whole reader field
	sk32One uint32 = 1 << sk32Shift // one seeker
	sk32Any uint32 = 0x00030000     // the whole seeker field
	wr32One uint32 = 1 << wr32Shift // one writer
	wr32Any uint32 = 0xfffc0000     // the whole writer field
)

// Load returns a raw snapshot of the lock word.
func (l *Lock32) Load() uint32 {
	return primitive.LoadUint32(&l.v)
}

// RLock acquires the lock as a shared reader, spinning while any writer is
// present.
func (l *Lock32) RLock() {
	for {
		prior := primitive.FetchAddUint32(&l.v, rd32One)
		if prior&wr32Any == 0 {
			return
		}
		primitive.SubUint32(&l.v, rd32One)
		wait.Unlock32(&l.v, wr32Any)
	}
}

// TryRLock attempts to acquire the lock as a shared reader, reporting
// whether it did.
func (l *Lock32) TryRLock() bool {
	if primitive.LoadUint32(&l.v)&wr32Any != 0 {
		return false
	}
	prior := primitive.FetchAddUint32(&l.v, rd32One)
	if prior&wr32Any != 0 {
		primitive.SubUint32(&l.v, rd32One)
		return false
	}
	return true
}

// RUnlock releases a reader.
func (l *Lock32) RUnlock() {
	primitive.SubUint32(&l.v, rd32One)
}

// SLock acquires the lock as the seeker: a reader holding the exclusive
// right to later upgrade to writer with SToW. Spins while a writer or
// another seeker is present. Plain readers are unaffected.
func (l *Lock32) SLock() {
	for {
		prior := primitive.FetchAddUint32(&l.v, sk32One+rd32One)
		if prior&(wr32Any|sk32Any) == 0 {
			return
		}
		primitive.SubUint32(&l.v, sk32One+rd32One)
		wait.Unlock32(&l.v, wr32Any|sk32Any)
	}
}

// TrySLock attempts to acquire the lock as the seeker, reporting whether it
// did.
func (l *Lock32) TrySLock() bool {
	if primitive.LoadUint32(&l.v)&(wr32Any|sk32Any) != 0 {
		return false
	}
	prior := primitive.FetchAddUint32(&l.v, sk32One+rd32One)
	if prior&(wr32Any|sk32Any) != 0 {
		primitive.SubUint32(&l.v, sk32One+rd32One)
		return false
	}
	return true
}

// SUnlock releases the seeker.
func (l *Lock32) SUnlock() {
	primitive.SubUint32(&l.v, sk32One+rd32One)
}

// WLock acquires the lock as the exclusive writer. The claim is staked in
// one add; once no other writer or seeker contests it, the acquirer holds
// its claim and waits in place for the remaining readers to drain, the
// claim itself blocking new arrivals.
func (l *Lock32) WLock() {
	for {
		prior := primitive.FetchAddUint32(&l.v, wr32One+sk32One+rd32One)
		if prior&(wr32Any|sk32Any) == 0 {
			v := prior + wr32One + sk32One + rd32One
			for v&rd32Any != rd32One {
				v = wait.Change32(&l.v, v)
			}
			return
		}
		primitive.SubUint32(&l.v, wr32One+sk32One+rd32One)
		wait.Unlock32(&l.v, wr32Any|sk32Any)
	}
}

// TryWLock attempts to acquire the lock as the exclusive writer, reporting
// whether it did. On success it still waits for present readers to drain;
// refusal is only ever due to a conflicting writer or seeker.
func (l *Lock32) TryWLock() bool {
	if primitive.LoadUint32(&l.v)&(wr32Any|sk32Any) != 0 {
		return false
	}
	prior := primitive.FetchAddUint32(&l.v, wr32One+sk32One+rd32One)
	if prior&(wr32Any|sk32Any) != 0 {
		primitive.SubUint32(&l.v, wr32One+sk32One+rd32One)
		return false
	}
	v := prior + wr32One + sk32One + rd32One
	for v&rd32Any != rd32One {
		v = wait.Change32(&l.v, v)
	}
	return true
}

// WUnlock releases the exclusive writer.
func (l *Lock32) WUnlock() {
	primitive.SubUint32(&l.v, wr32One+sk32One+rd32One)
}

// ALock acquires the lock as an atomic writer. Atomic writers coexist with
// each other; a seeker (which includes any exclusive writer, whose claim
// carries the seeker bit) aborts the attempt, and present readers are
// drained while the claim blocks new ones.
func (l *Lock32) ALock() {
	for {
		prior := primitive.FetchAddUint32(&l.v, wr32One)
		if prior&sk32Any == 0 {
			v := prior + wr32One
			for v&rd32Any != 0 {
				v = wait.Change32(&l.v, v)
			}
			return
		}
		primitive.SubUint32(&l.v, wr32One)
		wait.Unlock32(&l.v, sk32Any)
	}
}

// TryALock attempts to acquire the lock as an atomic writer, reporting
// whether it did. On success it still waits for present readers to drain.
func (l *Lock32) TryALock() bool {
	if primitive.LoadUint32(&l.v)&sk32Any != 0 {
		return false
	}
	prior := primitive.FetchAddUint32(&l.v, wr32One)
	if prior&sk32Any != 0 {
		primitive.SubUint32(&l.v, wr32One)
		return false
	}
	v := prior + wr32One
	for v&rd32Any != 0 {
		v = wait.Change32(&l.v, v)
	}
	return true
}

// AUnlock releases an atomic writer.
func (l *Lock32) AUnlock() {
	primitive.SubUint32(&l.v, wr32One)
}

// SToW upgrades the seeker to exclusive writer. It cannot fail: seeker
// exclusivity was won at SLock time, so the only wait is for the other
// readers to drain down to the seeker's own read.
func (l *Lock32) SToW() {
	v := primitive.FetchAddUint32(&l.v, wr32One) + wr32One
	for v&rd32Any != rd32One {
		v = wait.Change32(&l.v, v)
	}
}

// WToS downgrades the exclusive writer back to seeker, reopening the lock
// to readers.
func (l *Lock32) WToS() {
	primitive.SubUint32(&l.v, wr32One)
}

// SToR drops the seeker claim, keeping the read.
func (l *Lock32) SToR() {
	primitive.SubUint32(&l.v, sk32One)
}

// WToR downgrades the exclusive writer to plain reader.
func (l *Lock32) WToR() {
	primitive.SubUint32(&l.v, wr32One+sk32One)
}

// TryRToS attempts to promote a held read to seeker, reporting whether it
// did. On failure the lock word is untouched on net and the caller still
// holds R; the caller must RUnlock before retrying, or it can deadlock
// against a writer draining readers.
func (l *Lock32) TryRToS() bool {
	if primitive.LoadUint32(&l.v)&(wr32Any|sk32Any) != 0 {
		return false
	}
	prior := primitive.FetchAddUint32(&l.v, sk32One)
	if prior&(wr32Any|sk32Any) != 0 {
		primitive.SubUint32(&l.v, sk32One)
		return false
	}
	return true
}

// TryRToW attempts to promote a held read directly to exclusive writer,
// reporting whether it did. On success it waits for the other readers to
// drain. The failure contract of TryRToS applies: the caller keeps R and
// must drop it before retrying.
func (l *Lock32) TryRToW() bool {
	prior := primitive.FetchAddUint32(&l.v, wr32One+sk32One)
	if prior&(wr32Any|sk32Any) != 0 {
		primitive.SubUint32(&l.v, wr32One+sk32One)
		return false
	}
	v := prior + wr32One + sk32One
	for v&rd32Any != rd32One {
		v = wait.Change32(&l.v, v)
	}
	return true
}

// TryRToA attempts to convert a held read into an atomic write, reporting
// whether it did. On success the read is consumed and the caller holds A
// after the remaining readers drain. The failure contract of TryRToS
// applies: the caller keeps R and must drop it before retrying.
func (l *Lock32) TryRToA() bool {
	if primitive.LoadUint32(&l.v)&sk32Any != 0 {
		return false
	}
	prior := primitive.FetchAddUint32(&l.v, wr32One-rd32One)
	if prior&sk32Any != 0 {
		primitive.AddUint32(&l.v, rd32One+(^wr32One+1))
		return false
	}
	v := prior + wr32One - rd32One
	for v&rd32Any != 0 {
		v = wait.Change32(&l.v, v)
	}
	return true
}

// AToR downgrades an atomic writer to plain reader, waiting for the other
// atomic writers to drain.
func (l *Lock32) AToR() {
	v := primitive.FetchAddUint32(&l.v, rd32One+(^wr32One+1)) + rd32One - wr32One
	for v&wr32Any != 0 {
		v = wait.Change32(&l.v, v)
	}
}
