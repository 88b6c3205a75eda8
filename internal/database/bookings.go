package database

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"valetcore/internal/domain"
	"valetcore/internal/models"
)

const bookingColumns = `id, short_id, customer_name, customer_email, customer_phone, vehicle,
            date, start_time, end_time, package_type, client_type, job_type,
            additional_services, status, staff, total_price, progress, tasks, invoice,
            archived, created_at, updated_at, version`

// UpsertBooking writes a booking row keyed by its canonical UUID. Repeating
// the same write is a no-op apart from the updated_at bump, which makes the
// reconciler's at-least-once delivery safe.
func (db *DB) UpsertBooking(ctx context.Context, booking *models.Booking) error {
	if booking.RemoteID == "" {
		return fmt.Errorf("booking %s has no remote id", booking.ID)
	}

	services, err := marshalJSON(booking.AdditionalServiceIDs)
	if err != nil {
		return fmt.Errorf("encode services for %s: %w", booking.ID, err)
	}
	staff, err := marshalJSON(booking.Staff)
	if err != nil {
		return fmt.Errorf("encode staff for %s: %w", booking.ID, err)
	}
	tasks, err := marshalJSON(booking.Tasks)
	if err != nil {
		return fmt.Errorf("encode tasks for %s: %w", booking.ID, err)
	}
	invoice, err := marshalJSON(booking.Invoice)
	if err != nil {
		return fmt.Errorf("encode invoice for %s: %w", booking.ID, err)
	}

	query := `INSERT INTO bookings (
                id, short_id, customer_name, customer_email, customer_phone, vehicle,
                date, start_time, end_time, package_type, client_type, job_type,
                additional_services, status, staff, total_price, progress, tasks, invoice,
                archived, created_at, updated_at, version
            ) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
            ON CONFLICT(id) DO UPDATE SET
                short_id = excluded.short_id,
                customer_name = excluded.customer_name,
                customer_email = excluded.customer_email,
                customer_phone = excluded.customer_phone,
                vehicle = excluded.vehicle,
                date = excluded.date,
                start_time = excluded.start_time,
                end_time = excluded.end_time,
                package_type = excluded.package_type,
                client_type = excluded.client_type,
                job_type = excluded.job_type,
                additional_services = excluded.additional_services,
                status = excluded.status,
                staff = excluded.staff,
                total_price = excluded.total_price,
                progress = excluded.progress,
                tasks = excluded.tasks,
                invoice = excluded.invoice,
                archived = excluded.archived,
                updated_at = excluded.updated_at,
                version = excluded.version`

	now := time.Now()
	createdAt := booking.CreatedAt
	if createdAt.IsZero() {
		createdAt = now
	}

	_, err = db.db.ExecContext(ctx, query,
		booking.RemoteID,
		booking.ID,
		booking.CustomerName,
		booking.CustomerEmail,
		booking.CustomerPhone,
		booking.Vehicle,
		booking.Date.Format("2006-01-02"),
		booking.StartTime,
		booking.EndTime,
		booking.PackageType,
		string(booking.ClientType),
		string(booking.JobType),
		services,
		string(booking.Status),
		staff,
		booking.TotalPrice,
		booking.ProgressPercentage,
		tasks,
		invoice,
		booking.Archived,
		createdAt,
		now,
		booking.Version,
	)
	if err != nil {
		return fmt.Errorf("failed to upsert booking %s: %w", booking.ID, err)
	}
	return nil
}

func (db *DB) GetBooking(ctx context.Context, remoteID string) (*models.Booking, error) {
	query := `SELECT ` + bookingColumns + ` FROM bookings WHERE id = ?`
	row := db.db.QueryRowContext(ctx, query, remoteID)
	booking, err := scanBooking(row)
	if err == sql.ErrNoRows {
		return nil, domain.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get booking %s: %w", remoteID, err)
	}
	return booking, nil
}

// GetBookingByShortID resolves a row through the human-readable id.
func (db *DB) GetBookingByShortID(ctx context.Context, shortID string) (*models.Booking, error) {
	query := `SELECT ` + bookingColumns + ` FROM bookings WHERE short_id = ?`
	row := db.db.QueryRowContext(ctx, query, shortID)
	booking, err := scanBooking(row)
	if err == sql.ErrNoRows {
		return nil, domain.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get booking by short id %s: %w", shortID, err)
	}
	return booking, nil
}

func (db *DB) ListBookings(ctx context.Context, filter domain.BookingFilter) ([]*models.Booking, error) {
	var conds []string
	var args []interface{}

	if filter.Status != "" {
		conds = append(conds, "status = ?")
		args = append(args, string(filter.Status))
	}
	if filter.Archived != nil {
		conds = append(conds, "archived = ?")
		args = append(args, *filter.Archived)
	}
	if !filter.From.IsZero() {
		conds = append(conds, "date >= ?")
		args = append(args, filter.From.Format("2006-01-02"))
	}
	if !filter.To.IsZero() {
		conds = append(conds, "date <= ?")
		args = append(args, filter.To.Format("2006-01-02"))
	}

	query := `SELECT ` + bookingColumns + ` FROM bookings`
	if len(conds) > 0 {
		query += " WHERE " + strings.Join(conds, " AND ")
	}
	query += " ORDER BY date ASC, start_time ASC"

	rows, err := db.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list bookings: %w", err)
	}
	defer rows.Close()

	var bookings []*models.Booking
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

func (db *DB) DeleteBooking(ctx context.Context, remoteID string) error {
	result, err := db.db.ExecContext(ctx, `DELETE FROM bookings WHERE id = ?`, remoteID)
	if err != nil {
		return fmt.Errorf("failed to delete booking %s: %w", remoteID, err)
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get affected rows: %w", err)
	}
	if affected == 0 {
		return domain.ErrNotFound
	}
	return nil
}

type rowScanner interface {
	Scan(dest ...interface{}) error
}

func scanBooking(row rowScanner) (*models.Booking, error) {
	var b models.Booking
	var dateStr string
	var email, phone, vehicle, endTime, services, staff, tasks, invoice sql.NullString
	var clientType, jobType string

	err := row.Scan(
		&b.RemoteID,
		&b.ID,
		&b.CustomerName,
		&email,
		&phone,
		&vehicle,
		&dateStr,
		&b.StartTime,
		&endTime,
		&b.PackageType,
		&clientType,
		&jobType,
		&services,
		&b.Status,
		&staff,
		&b.TotalPrice,
		&b.ProgressPercentage,
		&tasks,
		&invoice,
		&b.Archived,
		&b.CreatedAt,
		&b.UpdatedAt,
		&b.Version,
	)
	if err != nil {
		return nil, err
	}

	b.CustomerEmail = email.String
	b.CustomerPhone = phone.String
	b.Vehicle = vehicle.String
	b.EndTime = endTime.String
	b.ClientType = models.ClientType(clientType)
	b.JobType = models.JobType(jobType)

	if b.Date, err = parseDate(dateStr); err != nil {
		return nil, err
	}
	if err := unmarshalJSON(services, &b.AdditionalServiceIDs); err != nil {
		return nil, fmt.Errorf("decode services: %w", err)
	}
	if err := unmarshalJSON(staff, &b.Staff); err != nil {
		return nil, fmt.Errorf("decode staff: %w", err)
	}
	if err := unmarshalJSON(tasks, &b.Tasks); err != nil {
		return nil, fmt.Errorf("decode tasks: %w", err)
	}
	if err := unmarshalJSON(invoice, &b.Invoice); err != nil {
		return nil, fmt.Errorf("decode invoice: %w", err)
	}
	return &b, nil
}

func parseDate(raw string) (time.Time, error) {
	for _, layout := range []string{"2006-01-02", time.RFC3339, "2006-01-02 15:04:05-07:00", "2006-01-02T15:04:05Z"} {
		if t, err := time.Parse(layout, raw); err == nil {
			return t, nil
		}
	}
	return time.Time{}, fmt.Errorf("unparseable date: %q", raw)
}

func marshalJSON(v interface{}) (sql.NullString, error) {
	if v == nil {
		return sql.NullString{}, nil
	}
	data, err := json.Marshal(v)
	if err != nil {
		return sql.NullString{}, err
	}
	return sql.NullString{String: string(data), Valid: true}, nil
}

func unmarshalJSON(raw sql.NullString, v interface{}) error {
	if !raw.Valid || raw.String == "" || raw.String == "null" {
		return nil
	}
	return json.Unmarshal([]byte(raw.String), v)
}
