package treeservice

import (
	"crypto/sha256"

	"oraclequest/domain/interfaces"
)

var emptyRoot = interfaces.Hash(sha256.Sum256([]byte("oraclequest/v1/empty-tree")))

// merkleRoot folds leaves into a root, padding to a power of two with zero
// hashes. Leaf and node hashes are domain separated.
func merkleRoot(leaves []interfaces.Hash) interfaces.Hash {
	if len(leaves) == 0 {
		return emptyRoot
	}

	level := make([]interfaces.Hash, 0, len(leaves))
	for _, l := range leaves {
		level = append(level, hashLeaf(l))
	}
	for len(level)&(len(level)-1) != 0 {
		level = append(level, interfaces.Hash{})
	}

	for len(level) > 1 {
		next := make([]interfaces.Hash, len(level)/2)
		for i := range next {
			next[i] = hashNode(level[2*i], level[2*i+1])
		}
		level = next
	}
	return level[0]
}

func hashLeaf(l interfaces.Hash) interfaces.Hash {
	h := sha256.New()
	h.Write([]byte{0x00})
	h.Write(l[:])
	var out interfaces.Hash
	copy(out[:], h.Sum(nil))
	return out
}

func hashNode(left, right interfaces.Hash) interfaces.Hash {
	h := sha256.New()
	h.Write([]byte{0x01})
	h.Write(left[:])
	h.Write(right[:])
	var out interfaces.Hash
	copy(out[:], h.Sum(nil))
	return out
}
