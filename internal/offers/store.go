// Package offers keeps the state carried between the availability step and the
// confirmation step of a reservation. Offers are scoped to one user, expire, and can
// be taken only once.
package offers

import (
	"context"
	"errors"

	"parkslot/pkg/model"
)

var ErrNotFound = errors.New("offer not found or expired")

type Store interface {
	Put(ctx context.Context, userID string, offer *model.Offer) error
	// Take atomically reads and removes the offer. A second Take of the same token,
	// a Take by another user and a Take after expiry all return ErrNotFound.
	Take(ctx context.Context, userID, token string) (*model.Offer, error)
	Delete(ctx context.Context, userID, token string) error
	// Sweep drops expired offers and reports how many were removed.
	Sweep(ctx context.Context) (int, error)
}

func key(userID, token string) string {
	return userID + ":" + token
}
