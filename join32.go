package plock

import (
	"github.com/wtarreau/plock/primitive"
	"github.com/wtarreau/plock/wait"
)

// The join/claim pipeline lets a group of readers funnel into atomic mode
// together: each reader declares write intent (J), the group synchronizes
// when the writer and reader counts meet, one of them marks the claim point
// (C) by setting the seeker bit, and everyone proceeds to stake per-item
// claims before entering A. See the package documentation.

// rd32Count and wr32Count extract the counter fields for comparison.
func rd32Count(v uint32) uint32 { return (v & rd32Any) >> rd32Shift }
func wr32Count(v uint32) uint32 { return (v & wr32Any) >> wr32Shift }

// RToJ converts a held read into a join: the reader declares write intent
// and waits until every other reader has either joined or left (the writer
// count meets the reader count), or until some joiner has already marked
// the claim point.
func (l *Lock32) RToJ() {
	v := primitive.FetchAddUint32(&l.v, wr32One) + wr32One
	for v&sk32Any == 0 && wr32Count(v) != rd32Count(v) {
		v = wait.Change32(&l.v, v)
	}
}

// JToC marks the claim point by setting the seeker bit. The set is
// idempotent: the first joiner to get here wins, later callers observe the
// set bit and skip.
func (l *Lock32) JToC() {
	if primitive.LoadUint32(&l.v)&sk32Any == 0 {
		primitive.OrUint32(&l.v, sk32One)
	}
}

// RToC composes RToJ and JToC: the joiner that itself observes the counts
// meeting marks the claim point.
func (l *Lock32) RToC() {
	v := primitive.FetchAddUint32(&l.v, wr32One) + wr32One
	for v&sk32Any == 0 {
		if wr32Count(v) == rd32Count(v) {
			primitive.OrUint32(&l.v, sk32One)
			return
		}
		v = wait.Change32(&l.v, v)
	}
}

// CToA moves from the claim point into atomic mode, dropping the read. The
// joiner that observes the last read gone clears the claim mark for the
// group; the rest poll it away.
func (l *Lock32) CToA() {
	v := primitive.FetchSubUint32(&l.v, rd32One) - rd32One
	for v&sk32Any != 0 {
		if v&rd32Any == 0 {
			primitive.AndUint32(&l.v, ^sk32Any)
			return
		}
		v = wait.Change32(&l.v, v)
	}
}

// CUnlock releases a claim-point holder entirely. The last one out clears
// the claim mark.
func (l *Lock32) CUnlock() {
	prior := primitive.FetchSubUint32(&l.v, rd32One+wr32One)
	if (prior-(rd32One+wr32One))&rd32Any == 0 {
		primitive.AndUint32(&l.v, ^sk32Any)
	}
}

// JLock acquires a lone join from unlocked: it waits out any writer, stakes
// a joint claim, backs off if another writer or a claim mark turned up, and
// drains the readers once alone.
func (l *Lock32) JLock() {
	for {
		wait.Unlock32(&l.v, wr32Any)
		prior := primitive.FetchAddUint32(&l.v, wr32One+rd32One)
		if prior&(wr32Any|sk32Any) == 0 {
			v := prior + wr32One + rd32One
			for v&rd32Any != rd32One {
				v = wait.Change32(&l.v, v)
			}
			return
		}
		primitive.SubUint32(&l.v, wr32One+rd32One)
	}
}

// TryJLock attempts a lone join from unlocked, reporting whether it
// succeeded. On success it still waits for present readers to drain.
func (l *Lock32) TryJLock() bool {
	if primitive.LoadUint32(&l.v)&(wr32Any|sk32Any) != 0 {
		return false
	}
	prior := primitive.FetchAddUint32(&l.v, wr32One+rd32One)
	if prior&(wr32Any|sk32Any) != 0 {
		primitive.SubUint32(&l.v, wr32One+rd32One)
		return false
	}
	v := prior + wr32One + rd32One
	for v&rd32Any != rd32One {
		v = wait.Change32(&l.v, v)
	}
	return true
}

// JUnlock releases a lone join.
func (l *Lock32) JUnlock() {
	primitive.SubUint32(&l.v, wr32One+rd32One)
}

// AToJ converts an atomic writer into a joiner by re-adding a read.
func (l *Lock32) AToJ() {
	primitive.AddUint32(&l.v, rd32One)
}

// LastWriter reports, for a J, C, or A holder, whether the caller is the
// only writer left.
func (l *Lock32) LastWriter() bool {
	return wr32Count(primitive.LoadUint32(&l.v)) == 1
}
