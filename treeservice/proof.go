package treeservice

import (
	"crypto/hmac"
	"crypto/sha256"
	"sort"

	"oraclequest/domain/entities"
	"oraclequest/domain/interfaces"
)

// attest binds a proof body to the service key. Roots are sorted by tree so
// the attestation does not depend on map iteration order.
func attest(key []byte, roots []interfaces.TreeRoot, hashes []interfaces.Hash, addresses []entities.AccountID) interfaces.Hash {
	sorted := append([]interfaces.TreeRoot(nil), roots...)
	sortRoots(sorted)

	mac := hmac.New(sha256.New, key)
	mac.Write([]byte("oraclequest/v1/validity-proof"))
	for _, r := range sorted {
		mac.Write(r.Tree[:])
		mac.Write(r.Root[:])
	}
	mac.Write([]byte{0xFF})
	for _, h := range hashes {
		mac.Write(h[:])
	}
	mac.Write([]byte{0xFF})
	for _, a := range addresses {
		mac.Write(a[:])
	}
	var out interfaces.Hash
	copy(out[:], mac.Sum(nil))
	return out
}

func verifyAttestation(key []byte, p *interfaces.ValidityProof) bool {
	want := attest(key, p.Roots, p.LeafHashes, p.Addresses)
	return hmac.Equal(want[:], p.Attestation[:])
}

func sortRoots(roots []interfaces.TreeRoot) {
	sort.Slice(roots, func(i, j int) bool {
		return string(roots[i].Tree[:]) < string(roots[j].Tree[:])
	})
}
