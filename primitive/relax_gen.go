//go:build !amd64 && !arm64

package primitive

// Relax issues a single CPU spin hint. This architecture has none we emit,
// so it does nothing beyond being a call.
//
//go:noinline
func Relax() {}
