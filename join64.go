package plock

import (
	"github.com/wtarreau/plock/primitive"
	"github.com/wtarreau/plock/wait"
)

func rd64Count(v uint64) uint64 { return (v & rd64Any) >> rd64Shift }
func wr64Count(v uint64) uint64 { return (v & wr64Any) >> wr64Shift }

// RToJ converts a held read into a join: the reader declares write intent
// and waits until every other reader has either joined or left (the writer
// count meets the reader count), or until some joiner has already marked
// the claim point.
func (l *Lock64) RToJ() {
	v := primitive.FetchAddUint64(&l.v, wr64One) + wr64One
	for v&sk64Any == 0 && wr64Count(v) != rd64Count(v) {
		v = wait.Change64(&l.v, v)
	}
}

// JToC marks the claim point by setting the seeker bit. The set is
// idempotent: the first joiner to get here wins, later callers observe the
// set bit and skip.
func (l *Lock64) JToC() {
	if primitive.LoadUint64(&l.v)&sk64Any == 0 {
		primitive.OrUint64(&l.v, sk64One)
	}
}

// RToC composes RToJ and JToC: the joiner that itself observes the counts
// meeting marks the claim point.
func (l *Lock64) RToC() {
	v := primitive.FetchAddUint64(&l.v, wr64One) + wr64One
	for v&sk64Any == 0 {
		if wr64Count(v) == rd64Count(v) {
			primitive.OrUint64(&l.v, sk64One)
			return
		}
		v = wait.Change64(&l.v, v)
	}
}

// CToA moves from the claim point into atomic mode, dropping the read. The
// joiner that observes the last read gone clears the claim mark for the
// group; the rest poll it away.
func (l *Lock64) CToA() {
	v := primitive.FetchSubUint64(&l.v, rd64One) - rd64One
	for v&sk64Any != 0 {
		if v&rd64Any == 0 {
			primitive.AndUint64(&l.v, ^sk64Any)
			return
		}
		v = wait.Change64(&l.v, v)
	}
}

// CUnlock releases a claim-point holder entirely. The last one out clears
// the claim mark.
func (l *Lock64) CUnlock() {
	prior := primitive.FetchSubUint64(&l.v, rd64One+wr64One)
	if (prior-(rd64One+wr64One))&rd64Any == 0 {
		primitive.AndUint64(&l.v, ^sk64Any)
	}
}

// JLock acquires a lone join from unlocked: it waits out any writer, stakes
// a joint claim, backs off if another writer or a claim mark turned up, and
// drains the readers once alone.
func (l *Lock64) JLock() {
	for {
		wait.Unlock64(&l.v, wr64Any)
		prior := primitive.FetchAddUint64(&l.v, wr64One+rd64One)
		if prior&(wr64Any|sk64Any) == 0 {
			v := prior + wr64One + rd64One
			for v&rd64Any != rd64One {
				v = wait.Change64(&l.v, v)
			}
			return
		}
		primitive.SubUint64(&l.v, wr64One+rd64One)
	}
}

// TryJLock attempts a lone join from unlocked, reporting whether it
// succeeded. On success it still waits for present readers to drain.
func (l *Lock64) TryJLock() bool {
	if primitive.LoadUint64(&l.v)&(wr64Any|sk64Any) != 0 {
		return false
	}
	prior := primitive.FetchAddUint64(&l.v, wr64One+rd64One)
	if prior&(wr64Any|sk64Any) != 0 {
		primitive.SubUint64(&l.v, wr64One+rd64One)
		return false
	}
	v := prior + wr64One + rd64One
	for v&rd64Any != rd64One {
		v = wait.Change64(&l.v, v)
	}
	return true
}

// JUnlock releases a lone join.
func (l *Lock64) JUnlock() {
	primitive.SubUint64(&l.v, wr64One+rd64One)
}

// AToJ converts an atomic writer into a joiner by re-adding a read.
func (l *Lock64) AToJ() {
	primitive.AddUint64(&l.v, rd64One)
}

// LastWriter reports, for a J, C, or A holder, whether the caller is the
// only writer left.
func (l *Lock64) LastWriter() bool {
	return wr64Count(primitive.LoadUint64(&l.v)) == 1
}
