package crypto

import "runtime"

// Wipe zeroes b in place. It is best effort: copies made elsewhere, such as
// by the garbage collector or an earlier string conversion, are not reached.
//
//go:noinline
func Wipe(b []byte) {
	clear(b)
	runtime.KeepAlive(&b)
}

// WipeAll wipes each buffer in bufs.
func WipeAll(bufs ...[]byte) {
	for _, b := range bufs {
		Wipe(b)
	}
}
