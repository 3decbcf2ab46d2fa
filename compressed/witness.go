package compressed

import (
	"context"
	"errors"
	"fmt"

	"oraclequest/domain/address"
	"oraclequest/domain/entities"
	"oraclequest/domain/interfaces"
)

// Witness is everything a compressed transition needs from outside: a
// validity proof, the trees to address into and the prior state of every
// account the transition reads or mutates.
type Witness struct {
	Proof       interfaces.ValidityProof
	AddressTree entities.AccountID
	OutputTree  entities.AccountID
	Existing    []interfaces.ExistingAccount
}

// Plan lists the accounts one instruction touches
type Plan struct {
	Existing []entities.AccountID
	Created  []address.Derived
}

// PlanInitializePlayer creates the profile of signer
func PlanInitializePlayer(space address.Space, signer entities.AccountID) Plan {
	return Plan{Created: []address.Derived{address.Player(space, signer)}}
}

// PlanCreateEvent creates event eventID
func PlanCreateEvent(space address.Space, eventID uint64) Plan {
	return Plan{Created: []address.Derived{address.Event(space, eventID)}}
}

// PlanPlaceBet reads the signer profile and the event and creates the bet
func PlanPlaceBet(space address.Space, signer entities.AccountID, eventID uint64) Plan {
	return Plan{
		Existing: []entities.AccountID{
			address.Player(space, signer).Address,
			address.Event(space, eventID).Address,
		},
		Created: []address.Derived{address.Bet(space, signer, eventID)},
	}
}

// PlanResolveEvent mutates the event
func PlanResolveEvent(space address.Space, eventID uint64) Plan {
	return Plan{Existing: []entities.AccountID{address.Event(space, eventID).Address}}
}

// PlanClaimWinnings mutates the bet and signer profile and reads the event
func PlanClaimWinnings(space address.Space, signer entities.AccountID, betAddr entities.AccountID, eventID uint64) Plan {
	return Plan{Existing: []entities.AccountID{
		betAddr,
		address.Event(space, eventID).Address,
		address.Player(space, signer).Address,
	}}
}

// PlanCloseBet closes the bet and reads the event
func PlanCloseBet(space address.Space, betAddr entities.AccountID, eventID uint64) Plan {
	return Plan{Existing: []entities.AccountID{
		betAddr,
		address.Event(space, eventID).Address,
	}}
}

// Prepare fetches the current state of every planned account and a fresh
// proof covering them. Accounts the service does not know are left out, so
// the transition sees them as absent.
func Prepare(ctx context.Context, tree interfaces.TreeService, trees *interfaces.TreeInfo, plan Plan) (Witness, error) {
	w := Witness{AddressTree: trees.AddressTree, OutputTree: trees.OutputTree}

	hashes := make([]interfaces.Hash, 0, len(plan.Existing))
	for _, addr := range plan.Existing {
		acc, err := tree.GetCompressedAccount(ctx, addr)
		if errors.Is(err, entities.ErrNotFound) {
			continue
		}
		if err != nil {
			return Witness{}, fmt.Errorf("failed to fetch compressed account %s: %w", addr, err)
		}
		w.Existing = append(w.Existing, interfaces.ExistingAccount{Meta: acc.Meta, Data: acc.Data})
		hashes = append(hashes, acc.Hash)
	}

	newAddresses := make([]interfaces.NewAddress, 0, len(plan.Created))
	for _, d := range plan.Created {
		newAddresses = append(newAddresses, interfaces.NewAddress{
			Seed:        d.Seed,
			AddressTree: trees.AddressTree,
			Address:     d.Address,
		})
	}

	proof, err := tree.GetValidityProof(ctx, hashes, newAddresses)
	if err != nil {
		return Witness{}, fmt.Errorf("failed to get validity proof: %w", err)
	}
	w.Proof = *proof
	return w, nil
}
