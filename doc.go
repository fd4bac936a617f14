// Package plock implements a progressive lock: a multi-state reader/writer
// lock held entirely in one machine word, built for tree-shaped shared data
// where finding the spot to modify costs far more than modifying it.
//
// A classic reader/writer lock forces a thread that intends to write to hold
// the write side for the whole operation, serializing the long descent along
// with the short mutation. A progressive lock splits the intent: a thread
// descends as a seeker (S), coexisting with plain readers, and only upgrades
// to writer (W) for the final mutation. An additional atomic (A) state lets
// several writers run in parallel on structures that tolerate concurrent
// atomic updates.
//
// # States
//
// The lock knows five primary states, encoded as counters packed into a
// single uint32 or uint64:
//
//	U  unlocked; no holder.
//	R  shared reader; arbitrarily many may coexist.
//	S  seeker: a reader that has claimed the exclusive right to later
//	   upgrade to W. Readers may still come and go.
//	W  exclusive writer; all readers have drained.
//	A  atomic writer; other A holders may coexist, readers must drain.
//
// The word is laid out, low bits first, as 2 reserved bits the lock never
// touches (free for tagged-pointer use by the owner), a reader count, a
// 2-bit seeker count, and a writer count. Lock32 carries 14-bit reader and
// writer fields, Lock64 carries 30-bit ones.
//
// Compatibility of a newcomer against present holders:
//
//	holder:    U    R    S    W    A
//	take R     yes  yes  yes  no   no
//	take S     yes  yes  no   no   no
//	take W     yes  no*  no   no   no
//	take A     yes  no*  no   no   yes
//
// The two no* cases are not hard failures: the claim is staked immediately
// and the acquirer waits in place for the readers to drain, its claim
// blocking new incompatible arrivals.
//
// # Upgrades and the R-first-drop rule
//
// A seeker upgrades with SToW, which cannot fail: seeker exclusivity was
// already won at SLock time. The fallible upgrades from plain R — TryRToS,
// TryRToW, TryRToA — stake a claim and roll it back if a conflicting holder
// is seen. A failed try-upgrade leaves the lock word exactly as it was, with
// the caller still holding R; the caller MUST drop R before retrying.
// Retrying while still holding R can deadlock against a writer that is
// waiting for that very reader to drain. The lock does not drop R for you.
//
// # The join/claim pipeline
//
// For structures where parallel writers can stake per-item claims before
// writing, readers may funnel into atomic mode together: RToJ declares
// intent (J) and waits for the other readers to join or leave; JToC marks
// the common claim point (C) by setting the seeker bit, idempotently; CToA
// enters atomic mode. JLock/JUnlock take and release a lone J from
// unlocked, and LastWriter tells a J/C/A holder whether it is the only
// writer left.
//
// # Discipline
//
// The zero value of Lock32 and Lock64 is an unlocked lock; no constructor
// or teardown exists. Operations never return errors: blocking forms retry
// until granted, try forms report false and expect the prescribed recovery.
// Dropping a state not held, or double-dropping, corrupts the word and is a
// programming error the lock does not diagnose.
//
// Holders may touch the protected data per their state only: R and S read;
// W reads and writes; A performs atomic writes of a kind compatible with
// the other A holders (two A holders are not synchronized against each
// other); J and C touch nothing beyond data-internal claim marks.
package plock
