package plock

import (
	"github.com/wtarreau/plock/primitive"
	"github.com/wtarreau/plock/wait"
)

// Lock64 is a progressive lock held in a single uint64. The zero value is
// an unlocked lock. The word packs, low bits first: 2 reserved bits (never
// touched by the lock), a 30-bit reader count, a 2-bit seeker count, and a
// 30-bit writer count. This is the variant to reach for by default; Lock32
// exists for words embedded in space-constrained structures.
type Lock64 struct {
	v uint64
}

const (
	rd64Shift = 2
	sk64Shift = 32
	wr64Shift = 34

	rd64One uint64 = 1 << rd64Shift // one reader
	rd64Any uint64 = 0x00000000fffffffc
	sk64One uint64 = 1 << sk64Shift // one seeker
	sk64Any uint64 = 0x0000000300000000
	wr64One uint64 = 1 << wr64Shift // one writer
	wr64Any uint64 = 0xfffffffc00000000
)

// Load returns a raw snapshot of the lock word.
func (l *Lock64) Load() uint64 {
	return primitive.LoadUint64(&l.v)
}

// RLock acquires the lock as a shared reader, spinning while any writer is
// present.
func (l *Lock64) RLock() {
	for {
		prior := primitive.FetchAddUint64(&l.v, rd64One)
		if prior&wr64Any == 0 {
			return
		}
		primitive.SubUint64(&l.v, rd64One)
		wait.Unlock64(&l.v, wr64Any)
	}
}

// TryRLock attempts to acquire the lock as a shared reader, reporting
// whether it did.
func (l *Lock64) TryRLock() bool {
	if primitive.LoadUint64(&l.v)&wr64Any != 0 {
		return false
	}
	prior := primitive.FetchAddUint64(&l.v, rd64One)
	if prior&wr64Any != 0 {
		primitive.SubUint64(&l.v, rd64One)
		return false
	}
	return true
}

// RUnlock releases a reader.
func (l *Lock64) RUnlock() {
	primitive.SubUint64(&l.v, rd64One)
}

// SLock acquires the lock as the seeker: a reader holding the exclusive
// right to later upgrade to writer with SToW. Spins while a writer or
// another seeker is present. Plain readers are unaffected.
func (l *Lock64) SLock() {
	for {
		prior := primitive.FetchAddUint64(&l.v, sk64One+rd64One)
		if prior&(wr64Any|sk64Any) == 0 {
			return
		}
		primitive.SubUint64(&l.v, sk64One+rd64One)
		wait.Unlock64(&l.v, wr64Any|sk64Any)
	}
}

// TrySLock attempts to acquire the lock as the seeker, reporting whether it
// did.
func (l *Lock64) TrySLock() bool {
	if primitive.LoadUint64(&l.v)&(wr64Any|sk64Any) != 0 {
		return false
	}
	prior := primitive.FetchAddUint64(&l.v, sk64One+rd64One)
	if prior&(wr64Any|sk64Any) != 0 {
		primitive.SubUint64(&l.v, sk64One+rd64One)
		return false
	}
	return true
}

// SUnlock releases the seeker.
func (l *Lock64) SUnlock() {
	primitive.SubUint64(&l.v, sk64One+rd64One)
}

// WLock acquires the lock as the exclusive writer. The claim is staked in
// one add; once no other writer or seeker contests it, the acquirer holds
// its claim and waits in place for the remaining readers to drain, the
// claim itself blocking new arrivals.
func (l *Lock64) WLock() {
	for {
		prior := primitive.FetchAddUint64(&l.v, wr64One+sk64One+rd64One)
		if prior&(wr64Any|sk64Any) == 0 {
			v := prior + wr64One + sk64One + rd64One
			for v&rd64Any != rd64One {
				v = wait.Change64(&l.v, v)
			}
			return
		}
		primitive.SubUint64(&l.v, wr64One+sk64One+rd64One)
		wait.Unlock64(&l.v, wr64Any|sk64Any)
	}
}

// TryWLock attempts to acquire the lock as the exclusive writer, reporting
// whether it did. On success it still waits for present readers to drain;
// refusal is only ever due to a conflicting writer or seeker.
func (l *Lock64) TryWLock() bool {
	if primitive.LoadUint64(&l.v)&(wr64Any|sk64Any) != 0 {
		return false
	}
	prior := primitive.FetchAddUint64(&l.v, wr64One+sk64One+rd64One)
	if prior&(wr64Any|sk64Any) != 0 {
		primitive.SubUint64(&l.v, wr64One+sk64One+rd64One)
		return false
	}
	v := prior + wr64One + sk64One + rd64One
	for v&rd64Any != rd64One {
		v = wait.Change64(&l.v, v)
	}
	return true
}

// WUnlock releases the exclusive writer.
func (l *Lock64) WUnlock() {
	primitive.SubUint64(&l.v, wr64One+sk64One+rd64One)
}

// ALock acquires the lock as an atomic writer. Atomic writers coexist with
// each other; a seeker (which includes any exclusive writer, whose claim
// carries the seeker bit) aborts the attempt, and present readers are
// drained while the claim blocks new ones.
func (l *Lock64) ALock() {
	for {
		prior := primitive.FetchAddUint64(&l.v, wr64One)
		if prior&sk64Any == 0 {
			v := prior + wr64One
			for v&rd64Any != 0 {
				v = wait.Change64(&l.v, v)
			}
			return
		}
		primitive.SubUint64(&l.v, wr64One)
		wait.Unlock64(&l.v, sk64Any)
	}
}

// TryALock attempts to acquire the lock as an atomic writer, reporting
// whether it did. On success it still waits for present readers to drain.
func (l *Lock64) TryALock() bool {
	if primitive.LoadUint64(&l.v)&sk64Any != 0 {
		return false
	}
	prior := primitive.FetchAddUint64(&l.v, wr64One)
	if prior&sk64Any != 0 {
		primitive.SubUint64(&l.v, wr64One)
		return false
	}
	v := prior + wr64One
	for v&rd64Any != 0 {
		v = wait.Change64(&l.v, v)
	}
	return true
}

// AUnlock releases an atomic writer.
func (l *Lock64) AUnlock() {
	primitive.SubUint64(&l.v, wr64One)
}

// SToW upgrades the seeker to exclusive writer. It cannot fail: seeker
// exclusivity was won at SLock time, so the only wait is for the other
// readers to drain down to the seeker's own read.
func (l *Lock64) SToW() {
	v := primitive.FetchAddUint64(&l.v, wr64One) + wr64One
	for v&rd64Any != rd64One {
		v = wait.Change64(&l.v, v)
	}
}

// WToS downgrades the exclusive writer back to seeker, reopening the lock
// to readers.
func (l *Lock64) WToS() {
	primitive.SubUint64(&l.v, wr64One)
}

// SToR drops the seeker claim, keeping the read.
func (l *Lock64) SToR() {
	primitive.SubUint64(&l.v, sk64One)
}

// WToR downgrades the exclusive writer to plain reader.
func (l *Lock64) WToR() {
	primitive.SubUint64(&l.v, wr64One+sk64One)
}

// TryRToS attempts to promote a held read to seeker, reporting whether it
// did. On failure the lock word is untouched on net and the caller still
// holds R; the caller must RUnlock before retrying, or it can deadlock
// against a writer draining readers.
func (l *Lock64) TryRToS() bool {
	if primitive.LoadUint64(&l.v)&(wr64Any|sk64Any) != 0 {
		return false
	}
	prior := primitive.FetchAddUint64(&l.v, sk64One)
	if prior&(wr64Any|sk64Any) != 0 {
		primitive.SubUint64(&l.v, sk64One)
		return false
	}
	return true
}

// TryRToW attempts to promote a held read directly to exclusive writer,
// reporting whether it did. On success it waits for the other readers to
// drain. The failure contract of TryRToS applies: the caller keeps R and
// must drop it before retrying.
func (l *Lock64) TryRToW() bool {
	prior := primitive.FetchAddUint64(&l.v, wr64One+sk64One)
	if prior&(wr64Any|sk64Any) != 0 {
		primitive.SubUint64(&l.v, wr64One+sk64One)
		return false
	}
	v := prior + wr64One + sk64One
	for v&rd64Any != rd64One {
		v = wait.Change64(&l.v, v)
	}
	return true
}

// TryRToA attempts to convert a held read into an atomic write, reporting
// whether it did. On success the read is consumed and the caller holds A
// after the remaining readers drain. The failure contract of TryRToS
// applies: the caller keeps R and must drop it before retrying.
func (l *Lock64) TryRToA() bool {
	if primitive.LoadUint64(&l.v)&sk64Any != 0 {
		return false
	}
	prior := primitive.FetchAddUint64(&l.v, wr64One-rd64One)
	if prior&sk64Any != 0 {
		primitive.AddUint64(&l.v, rd64One+(^wr64One+1))
		return false
	}
	v := prior + wr64One - rd64One
	for v&rd64Any != 0 {
		v = wait.Change64(&l.v, v)
	}
	return true
}

// AToR downgrades an atomic writer to plain reader, waiting for the other
// atomic writers to drain.
func (l *Lock64) AToR() {
	v := primitive.FetchAddUint64(&l.v, rd64One+(^wr64One+1)) + rd64One - wr64One
	for v&wr64Any != 0 {
		v = wait.Change64(&l.v, v)
	}
}
