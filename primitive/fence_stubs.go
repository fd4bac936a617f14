//go:build amd64 || arm64

package primitive

// Mb is a full hardware memory fence: no load or store may cross it in
// either direction.
func Mb()

// MbLoad is a load fence: loads before it complete before loads after it.
func MbLoad()

// MbStore is a store fence: stores before it complete before stores after
// it.
func MbStore()
