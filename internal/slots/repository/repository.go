package repository

import (
	"context"
	"parkslot/pkg/model"
)

// SlotRepository is the slot catalog. FindByType backs the availability engine;
// the paginated reads back the admin listing.
type SlotRepository interface {
	Create(ctx context.Context, slot *model.Slot) error
	FindByID(ctx context.Context, id string) (*model.Slot, error)
	FindByType(ctx context.Context, vehicleType model.VehicleType) ([]*model.Slot, error)
	FindAll(ctx context.Context, vehicleType model.VehicleType, limit int, offset int64) ([]*model.Slot, error)
	Count(ctx context.Context, vehicleType model.VehicleType) (int64, error)
	Update(ctx context.Context, id string, slot *model.Slot) error
	Delete(ctx context.Context, id string) error
}
