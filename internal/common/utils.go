package common

// WipeByteArray overwrites b with zeros. Used for passwords, symmetric keys
// and decoded private keys once they are no longer needed. Nil is allowed.
func WipeByteArray(b []byte) {
	for i := range b {
		b[i] = 0
	}
}
