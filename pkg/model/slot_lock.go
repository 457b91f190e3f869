package model

import "time"

// SlotLock is an advisory lock document serializing commits on one slot.
// Owner guards release so an expired holder cannot delete a newer lock.
type SlotLock struct {
	ID        string    `bson:"_id" json:"id"`
	SlotID    string    `bson:"slot_id" json:"slot_id"`
	Owner     string    `bson:"owner" json:"owner"`
	ExpiresAt time.Time `bson:"expires_at" json:"expires_at"`
	CreatedAt time.Time `bson:"created_at" json:"created_at"`
}

func SlotLockID(slotID string) string {
	return "slot_lock_" + slotID
}
