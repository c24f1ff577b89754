package appointment

import (
	"context"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/lib/pq"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRepository(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	repo := NewRepository(db)
	ctx := context.Background()
	now := time.Now()

	t.Run("Create maps slot conflict", func(t *testing.T) {
		mock.ExpectQuery(`INSERT INTO appointments`).
			WillReturnError(&pq.Error{Code: "23505", Constraint: "appointments_slot_key"})

		err := repo.Create(ctx, &Appointment{UserID: 5, Date: "2026-03-12", TimeSlot: "10:00", Status: StatusPending})
		assert.ErrorIs(t, err, ErrSlotTaken)
	})

	t.Run("GetByID formats date", func(t *testing.T) {
		mock.ExpectQuery(`FROM appointments a LEFT JOIN users u ON u.id = a.user_id WHERE a.id = \$1`).
			WithArgs(3).
			WillReturnRows(sqlmock.NewRows([]string{
				"id", "user_id", "name", "email", "service_id", "service_name", "date", "time_slot",
				"description", "status", "created_at", "updated_at",
			}).AddRow(3, 5, "Jan", "jan@example.com", nil, "", time.Date(2026, 3, 12, 0, 0, 0, 0, time.UTC),
				"10:00", "", "pending", now, now))

		a, err := repo.GetByID(ctx, 3)
		require.NoError(t, err)
		assert.Equal(t, "2026-03-12", a.Date)
		assert.Nil(t, a.ServiceID)
	})

	t.Run("UpdateStatus is guarded by current state", func(t *testing.T) {
		mock.ExpectExec(`UPDATE appointments SET status = \$3, updated_at = NOW\(\) WHERE id = \$1 AND status = \$2`).
			WithArgs(3, "pending", "confirmed").
			WillReturnResult(sqlmock.NewResult(0, 0))

		assert.ErrorIs(t, repo.UpdateStatus(ctx, 3, StatusPending, StatusConfirmed), ErrInvalidTransition)
	})

	t.Run("TakenSlots ignores cancelled", func(t *testing.T) {
		mock.ExpectQuery(`WHERE date = \$1 AND status <> 'cancelled'`).
			WithArgs("2026-03-12").
			WillReturnRows(sqlmock.NewRows([]string{"time_slot"}).AddRow("09:00"))

		slots, err := repo.TakenSlots(ctx, "2026-03-12")
		require.NoError(t, err)
		assert.Equal(t, []string{"09:00"}, slots)
	})

	assert.NoError(t, mock.ExpectationsWereMet())
}
