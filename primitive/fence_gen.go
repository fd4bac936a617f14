//go:build !amd64 && !arm64

package primitive

import "sync/atomic"

// Architectures we carry no assembly for get their fences from a
// sequentially consistent atomic operation, which the Go memory model
// guarantees to be at least as strong as any of the three.

var fenceWord uint32

// Mb is a full hardware memory fence: no load or store may cross it in
// either direction.
func Mb() {
	atomic.AddUint32(&fenceWord, 0)
}

// MbLoad is a load fence: loads before it complete before loads after it.
func MbLoad() {
	Mb()
}

// MbStore is a store fence: stores before it complete before stores after
// it.
func MbStore() {
	Mb()
}
