package repository

import (
	"context"
	"errors"
	"regexp"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

func TestPerCycleStore_SaveBatch(t *testing.T) {
	t.Run("ensures schema, inserts and closes", func(t *testing.T) {
		db, mock := newMockDB(t)
		opened := 0
		store := NewPerCycleStore(func() (*gorm.DB, error) {
			opened++
			return db, nil
		})

		records := testRecords(3)

		mock.ExpectExec(regexp.QuoteMeta("CREATE TABLE IF NOT EXISTS telemetry_legacy")).
			WillReturnResult(sqlmock.NewResult(0, 0))
		mock.ExpectExec(regexp.QuoteMeta("CREATE INDEX IF NOT EXISTS")).
			WillReturnResult(sqlmock.NewResult(0, 0))
		mock.ExpectBegin()
		for range records {
			mock.ExpectExec(insertPattern).
				WithArgs(sqlmock.AnyArg(), sqlmock.AnyArg(), sqlmock.AnyArg(), sqlmock.AnyArg(), "telemetry_20240101_000000.csv", sqlmock.AnyArg()).
				WillReturnResult(sqlmock.NewResult(1, 1))
		}
		mock.ExpectCommit()
		mock.ExpectClose()

		require.NoError(t, store.SaveBatch(context.Background(), records))
		assert.Equal(t, 1, opened)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("connection failure", func(t *testing.T) {
		refused := errors.New("dial tcp 127.0.0.1:5432: connect: connection refused")
		store := NewPerCycleStore(func() (*gorm.DB, error) {
			return nil, refused
		})

		err := store.SaveBatch(context.Background(), testRecords(1))
		assert.ErrorIs(t, err, refused)
	})

	t.Run("schema failure skips insert", func(t *testing.T) {
		db, mock := newMockDB(t)
		store := NewPerCycleStore(func() (*gorm.DB, error) { return db, nil })

		mock.ExpectExec(regexp.QuoteMeta("CREATE TABLE IF NOT EXISTS telemetry_legacy")).
			WillReturnError(assert.AnError)
		mock.ExpectClose()

		err := store.SaveBatch(context.Background(), testRecords(2))
		assert.ErrorIs(t, err, assert.AnError)
		assert.NoError(t, mock.ExpectationsWereMet())
	})
}
