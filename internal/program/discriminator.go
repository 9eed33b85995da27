package program

import "crypto/sha256"

// Anchor prefixes the serialized form of every account and instruction with an
// 8-byte discriminator derived from its name.

func accountDiscriminator(name string) []byte {
	sum := sha256.Sum256([]byte("account:" + name))
	return sum[:8]
}

func instructionDiscriminator(name string) []byte {
	sum := sha256.Sum256([]byte("global:" + name))
	return sum[:8]
}
