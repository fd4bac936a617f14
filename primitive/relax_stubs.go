//go:build amd64 || arm64

package primitive

// Relax issues a single CPU spin hint (PAUSE on amd64, YIELD on arm64). It
// has no memory effect; its only purpose is to be polite to the sibling
// hyperthread and to the memory bus while polling.
func Relax()
