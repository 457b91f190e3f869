package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	slotserrors "parkslot/internal/slots/errors"
	"parkslot/pkg/db/postgres"
	"parkslot/pkg/model"

	"github.com/Masterminds/squirrel"
)

const TableName = "slots"

var slotColumns = []string{"id", "type", "number", "created_at"}

type postgresSlotRepository struct {
	db        *sql.DB
	txManager postgres.TransactionManager
}

func NewPostgresSlotRepository(db *sql.DB) SlotRepository {
	return &postgresSlotRepository{
		db:        db,
		txManager: postgres.NewTransactionManager(db),
	}
}

func (r *postgresSlotRepository) Create(ctx context.Context, slot *model.Slot) error {
	query, args, err := postgres.Builder.Insert(TableName).
		Columns("type", "number").
		Values(slot.Type, slot.Number).
		Suffix("RETURNING id, created_at").
		ToSql()
	if err != nil {
		return fmt.Errorf("failed to build slot insert: %w", err)
	}

	var id int64
	err = postgres.GetExecutor(ctx, r.db).QueryRowContext(ctx, query, args...).Scan(&id, &slot.CreatedAt)
	if err != nil {
		if postgres.IsUniqueViolation(err) {
			return slotserrors.ErrDuplicateNumber
		}
		return fmt.Errorf("failed to create slot: %w", err)
	}
	slot.ID = postgres.FormatID(id)
	return nil
}

func (r *postgresSlotRepository) FindByID(ctx context.Context, id string) (*model.Slot, error) {
	key, ok := postgres.ParseID(id)
	if !ok {
		return nil, fmt.Errorf("%w: %s", slotserrors.ErrInvalidID, id)
	}

	query, args, err := postgres.Builder.Select(slotColumns...).
		From(TableName).
		Where(squirrel.Eq{"id": key}).
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("failed to build slot select: %w", err)
	}

	slot, err := scanSlot(postgres.GetExecutor(ctx, r.db).QueryRowContext(ctx, query, args...))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, slotserrors.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to find slot: %w", err)
	}
	return slot, nil
}

func (r *postgresSlotRepository) FindByType(ctx context.Context, vehicleType model.VehicleType) ([]*model.Slot, error) {
	builder := postgres.Builder.Select(slotColumns...).
		From(TableName).
		Where(squirrel.Eq{"type": vehicleType}).
		OrderBy("number ASC")
	return r.list(ctx, builder)
}

func (r *postgresSlotRepository) FindAll(ctx context.Context, vehicleType model.VehicleType, limit int, offset int64) ([]*model.Slot, error) {
	builder := postgres.Builder.Select(slotColumns...).
		From(TableName).
		OrderBy("type ASC", "number ASC").
		Limit(uint64(limit)).
		Offset(uint64(offset))
	if vehicleType != "" {
		builder = builder.Where(squirrel.Eq{"type": vehicleType})
	}
	return r.list(ctx, builder)
}

func (r *postgresSlotRepository) list(ctx context.Context, builder squirrel.SelectBuilder) ([]*model.Slot, error) {
	query, args, err := builder.ToSql()
	if err != nil {
		return nil, fmt.Errorf("failed to build slot select: %w", err)
	}

	rows, err := postgres.GetExecutor(ctx, r.db).QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to find slots: %w", err)
	}
	defer rows.Close()

	slots := []*model.Slot{}
	for rows.Next() {
		slot, err := scanSlot(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan slot: %w", err)
		}
		slots = append(slots, slot)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate slots: %w", err)
	}
	return slots, nil
}

func (r *postgresSlotRepository) Count(ctx context.Context, vehicleType model.VehicleType) (int64, error) {
	builder := postgres.Builder.Select("COUNT(*)").From(TableName)
	if vehicleType != "" {
		builder = builder.Where(squirrel.Eq{"type": vehicleType})
	}
	query, args, err := builder.ToSql()
	if err != nil {
		return 0, fmt.Errorf("failed to build slot count: %w", err)
	}

	var count int64
	if err := postgres.GetExecutor(ctx, r.db).QueryRowContext(ctx, query, args...).Scan(&count); err != nil {
		return 0, fmt.Errorf("failed to count slots: %w", err)
	}
	return count, nil
}

// Update and Delete lock the slot row like a booking commit does, so the reference
// check and the write see no concurrent commit on that slot.
func (r *postgresSlotRepository) Update(ctx context.Context, id string, slot *model.Slot) error {
	key, ok := postgres.ParseID(id)
	if !ok {
		return fmt.Errorf("%w: %s", slotserrors.ErrInvalidID, id)
	}

	return r.txManager.ExecuteTransaction(ctx, func(ctx context.Context) error {
		current, err := r.lockSlot(ctx, key)
		if err != nil {
			return err
		}
		if slot.Type != current {
			if err := r.ensureUnreferenced(ctx, key); err != nil {
				return err
			}
		}

		query, args, err := postgres.Builder.Update(TableName).
			Set("type", slot.Type).
			Set("number", slot.Number).
			Where(squirrel.Eq{"id": key}).
			ToSql()
		if err != nil {
			return fmt.Errorf("failed to build slot update: %w", err)
		}

		result, err := postgres.GetExecutor(ctx, r.db).ExecContext(ctx, query, args...)
		if err != nil {
			if postgres.IsUniqueViolation(err) {
				return slotserrors.ErrDuplicateNumber
			}
			return fmt.Errorf("failed to update slot: %w", err)
		}
		return requireAffected(result)
	})
}

func (r *postgresSlotRepository) Delete(ctx context.Context, id string) error {
	key, ok := postgres.ParseID(id)
	if !ok {
		return fmt.Errorf("%w: %s", slotserrors.ErrInvalidID, id)
	}

	return r.txManager.ExecuteTransaction(ctx, func(ctx context.Context) error {
		if _, err := r.lockSlot(ctx, key); err != nil {
			return err
		}
		if err := r.ensureUnreferenced(ctx, key); err != nil {
			return err
		}

		query, args, err := postgres.Builder.Delete(TableName).Where(squirrel.Eq{"id": key}).ToSql()
		if err != nil {
			return fmt.Errorf("failed to build slot delete: %w", err)
		}

		result, err := postgres.GetExecutor(ctx, r.db).ExecContext(ctx, query, args...)
		if err != nil {
			if postgres.IsForeignKeyViolation(err) {
				return slotserrors.ErrReferenced
			}
			return fmt.Errorf("failed to delete slot: %w", err)
		}
		return requireAffected(result)
	})
}

func (r *postgresSlotRepository) lockSlot(ctx context.Context, key int64) (model.VehicleType, error) {
	query, args, err := postgres.Builder.Select("type").
		From(TableName).
		Where(squirrel.Eq{"id": key}).
		Suffix("FOR UPDATE").
		ToSql()
	if err != nil {
		return "", fmt.Errorf("failed to build slot lock query: %w", err)
	}

	var vehicleType model.VehicleType
	if err := postgres.GetExecutor(ctx, r.db).QueryRowContext(ctx, query, args...).Scan(&vehicleType); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return "", slotserrors.ErrNotFound
		}
		return "", fmt.Errorf("failed to lock slot: %w", err)
	}
	return vehicleType, nil
}

func (r *postgresSlotRepository) ensureUnreferenced(ctx context.Context, key int64) error {
	query, args, err := postgres.Builder.Select("1").
		From("bookings").
		Where(squirrel.Eq{"slot_id": key}).
		Limit(1).
		ToSql()
	if err != nil {
		return fmt.Errorf("failed to build slot reference query: %w", err)
	}

	var one int
	err = postgres.GetExecutor(ctx, r.db).QueryRowContext(ctx, query, args...).Scan(&one)
	switch {
	case errors.Is(err, sql.ErrNoRows):
		return nil
	case err != nil:
		return fmt.Errorf("failed to check slot bookings: %w", err)
	default:
		return slotserrors.ErrReferenced
	}
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanSlot(row rowScanner) (*model.Slot, error) {
	var (
		slot model.Slot
		id   int64
	)
	if err := row.Scan(&id, &slot.Type, &slot.Number, &slot.CreatedAt); err != nil {
		return nil, err
	}
	slot.ID = postgres.FormatID(id)
	return &slot, nil
}

func requireAffected(result sql.Result) error {
	n, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to read affected rows: %w", err)
	}
	if n == 0 {
		return slotserrors.ErrNotFound
	}
	return nil
}
