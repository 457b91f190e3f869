package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	bookingserrors "parkslot/internal/bookings/errors"
	"parkslot/pkg/db/postgres"
	"parkslot/pkg/model"

	"github.com/Masterminds/squirrel"
)

const TableName = "bookings"

var bookingColumns = []string{
	"id",
	"slot_id",
	"slot_number",
	"user_id",
	"vehicle_type",
	"start_time",
	"end_time",
	"bill_amount",
	"created_at",
}

type postgresBookingRepository struct {
	db        *sql.DB
	txManager postgres.TransactionManager
}

func NewPostgresBookingRepository(db *sql.DB) BookingRepository {
	return &postgresBookingRepository{
		db:        db,
		txManager: postgres.NewTransactionManager(db),
	}
}

// InsertIfNoConflict locks the slot row for the duration of the transaction, so
// concurrent commits on one slot queue behind each other while other slots proceed.
func (r *postgresBookingRepository) InsertIfNoConflict(ctx context.Context, booking *model.Booking) error {
	slotKey, ok := postgres.ParseID(booking.SlotID)
	if !ok {
		return bookingserrors.ErrSlotNotFound
	}

	return r.txManager.ExecuteTransaction(ctx, func(ctx context.Context) error {
		executor := postgres.GetExecutor(ctx, r.db)

		lockQuery, args, err := postgres.Builder.Select("type").
			From("slots").
			Where(squirrel.Eq{"id": slotKey}).
			Suffix("FOR UPDATE").
			ToSql()
		if err != nil {
			return fmt.Errorf("failed to build slot lock query: %w", err)
		}
		var slotType model.VehicleType
		if err := executor.QueryRowContext(ctx, lockQuery, args...).Scan(&slotType); err != nil {
			if errors.Is(err, sql.ErrNoRows) {
				return bookingserrors.ErrSlotNotFound
			}
			return fmt.Errorf("failed to lock slot: %w", err)
		}
		if slotType != booking.VehicleType {
			return bookingserrors.ErrSlotTypeChanged
		}

		existing, err := r.ListOverlapping(ctx, booking.SlotID, booking.Interval())
		if err != nil {
			return err
		}
		if firstConflict(booking.Interval(), existing) != nil {
			return bookingserrors.ErrSlotUnavailable
		}

		insertQuery, args, err := postgres.Builder.Insert(TableName).
			Columns("slot_id", "slot_number", "user_id", "vehicle_type", "start_time", "end_time", "bill_amount").
			Values(slotKey, booking.SlotNumber, booking.UserID, booking.VehicleType, booking.StartTime, booking.EndTime, booking.BillAmount).
			Suffix("RETURNING id, created_at").
			ToSql()
		if err != nil {
			return fmt.Errorf("failed to build booking insert: %w", err)
		}

		var id int64
		if err := executor.QueryRowContext(ctx, insertQuery, args...).Scan(&id, &booking.CreatedAt); err != nil {
			if postgres.IsForeignKeyViolation(err) {
				return bookingserrors.ErrSlotNotFound
			}
			return fmt.Errorf("failed to create booking: %w", err)
		}
		booking.ID = postgres.FormatID(id)
		return nil
	})
}

func (r *postgresBookingRepository) ListOverlapping(ctx context.Context, slotID string, interval model.Interval) ([]*model.Booking, error) {
	builder := postgres.Builder.Select(bookingColumns...).
		From(TableName).
		Where(squirrel.Lt{"start_time": interval.End}).
		Where(squirrel.Gt{"end_time": interval.Start}).
		OrderBy("start_time ASC")
	if slotID != "" {
		key, ok := postgres.ParseID(slotID)
		if !ok {
			return []*model.Booking{}, nil
		}
		builder = builder.Where(squirrel.Eq{"slot_id": key})
	}
	return r.list(ctx, builder)
}

func (r *postgresBookingRepository) FindByID(ctx context.Context, id string) (*model.Booking, error) {
	key, ok := postgres.ParseID(id)
	if !ok {
		return nil, fmt.Errorf("%w: %s", bookingserrors.ErrInvalidID, id)
	}

	query, args, err := postgres.Builder.Select(bookingColumns...).
		From(TableName).
		Where(squirrel.Eq{"id": key}).
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("failed to build booking select: %w", err)
	}

	booking, err := scanBooking(postgres.GetExecutor(ctx, r.db).QueryRowContext(ctx, query, args...))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, bookingserrors.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to find booking: %w", err)
	}
	return booking, nil
}

func (r *postgresBookingRepository) FindAll(ctx context.Context, filter Filter, limit int, offset int64) ([]*model.Booking, error) {
	builder := applyFilter(postgres.Builder.Select(bookingColumns...).From(TableName), filter).
		OrderBy("start_time DESC", "id DESC").
		Limit(uint64(limit)).
		Offset(uint64(offset))
	return r.list(ctx, builder)
}

func (r *postgresBookingRepository) Count(ctx context.Context, filter Filter) (int64, error) {
	query, args, err := applyFilter(postgres.Builder.Select("COUNT(*)").From(TableName), filter).ToSql()
	if err != nil {
		return 0, fmt.Errorf("failed to build booking count: %w", err)
	}

	var count int64
	if err := postgres.GetExecutor(ctx, r.db).QueryRowContext(ctx, query, args...).Scan(&count); err != nil {
		return 0, fmt.Errorf("failed to count bookings: %w", err)
	}
	return count, nil
}

func (r *postgresBookingRepository) CountBySlot(ctx context.Context, slotID string) (int64, error) {
	if _, ok := postgres.ParseID(slotID); !ok {
		return 0, nil
	}
	return r.Count(ctx, Filter{SlotID: slotID})
}

func (r *postgresBookingRepository) Delete(ctx context.Context, id string) error {
	key, ok := postgres.ParseID(id)
	if !ok {
		return fmt.Errorf("%w: %s", bookingserrors.ErrInvalidID, id)
	}

	query, args, err := postgres.Builder.Delete(TableName).Where(squirrel.Eq{"id": key}).ToSql()
	if err != nil {
		return fmt.Errorf("failed to build booking delete: %w", err)
	}

	result, err := postgres.GetExecutor(ctx, r.db).ExecContext(ctx, query, args...)
	if err != nil {
		return fmt.Errorf("failed to delete booking: %w", err)
	}
	n, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to read affected rows: %w", err)
	}
	if n == 0 {
		return bookingserrors.ErrNotFound
	}
	return nil
}

func (r *postgresBookingRepository) list(ctx context.Context, builder squirrel.SelectBuilder) ([]*model.Booking, error) {
	query, args, err := builder.ToSql()
	if err != nil {
		return nil, fmt.Errorf("failed to build booking select: %w", err)
	}

	rows, err := postgres.GetExecutor(ctx, r.db).QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to find bookings: %w", err)
	}
	defer rows.Close()

	bookings := []*model.Booking{}
	for rows.Next() {
		booking, err := scanBooking(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan booking: %w", err)
		}
		bookings = append(bookings, booking)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate bookings: %w", err)
	}
	return bookings, nil
}

func applyFilter(builder squirrel.SelectBuilder, f Filter) squirrel.SelectBuilder {
	if f.UserID != "" {
		builder = builder.Where(squirrel.Eq{"user_id": f.UserID})
	}
	if f.SlotID != "" {
		if key, ok := postgres.ParseID(f.SlotID); ok {
			builder = builder.Where(squirrel.Eq{"slot_id": key})
		}
	}
	if f.From != nil {
		builder = builder.Where(squirrel.Gt{"end_time": *f.From})
	}
	if f.To != nil {
		builder = builder.Where(squirrel.Lt{"start_time": *f.To})
	}
	return builder
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanBooking(row rowScanner) (*model.Booking, error) {
	var (
		b          model.Booking
		id, slotID int64
	)
	err := row.Scan(&id, &slotID, &b.SlotNumber, &b.UserID, &b.VehicleType, &b.StartTime, &b.EndTime, &b.BillAmount, &b.CreatedAt)
	if err != nil {
		return nil, err
	}
	b.ID = postgres.FormatID(id)
	b.SlotID = postgres.FormatID(slotID)
	return &b, nil
}
