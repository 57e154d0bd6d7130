package tools

import "crypto/sha256"

// Anchor 约定：账户 discriminator = sha256("account:<Name>")[:8]，
// 指令 discriminator = sha256("global:<snake_name>")[:8]
func AccountDiscriminator(name string) [8]byte {
	return sighash("account", name)
}

func InstructionDiscriminator(name string) [8]byte {
	return sighash("global", name)
}

func sighash(namespace, name string) [8]byte {
	sum := sha256.Sum256([]byte(namespace + ":" + name))
	var out [8]byte
	copy(out[:], sum[:8])
	return out
}
