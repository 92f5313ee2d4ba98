package store

import (
	"context"
	"errors"
	"regexp"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/jmoiron/sqlx"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"freightdesk/internal/audit/models"
	"freightdesk/pkg/domain"
)

func TestAppendPropagatesStoreFailure(t *testing.T) {
	raw, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer raw.Close()
	db := sqlx.NewDb(raw, "postgres")

	mock.ExpectQuery(regexp.QuoteMeta(`INSERT INTO audit_logs`)).
		WithArgs(sqlmock.AnyArg(), "booking.created", "booking", sqlmock.AnyArg(), sqlmock.AnyArg(),
			sqlmock.AnyArg(), sqlmock.AnyArg(), sqlmock.AnyArg(), sqlmock.AnyArg(), sqlmock.AnyArg(), sqlmock.AnyArg()).
		WillReturnError(errors.New("connection refused"))

	e := &models.Entry{ID: domain.NewEntryID(time.Now()), Action: models.ActionBookingCreated, EntityType: "booking", Timestamp: 1}
	err = New(db).Append(context.Background(), e)
	require.Error(t, err)
	assert.Zero(t, e.Seq)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresPurgeUsesArrayParameter(t *testing.T) {
	raw, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer raw.Close()
	db := sqlx.NewDb(raw, "postgres")

	mock.ExpectExec(regexp.QuoteMeta(`DELETE FROM audit_logs WHERE entity_id LIKE ANY($1)`)).
		WithArgs(`{"BK-TEST-%","TEST-%"}`).
		WillReturnResult(sqlmock.NewResult(0, 4))

	n, err := New(db).DeleteByEntityIDPrefixes(context.Background(), []string{"BK-TEST-", "TEST-"})
	require.NoError(t, err)
	assert.EqualValues(t, 4, n)
	assert.NoError(t, mock.ExpectationsWereMet())
}
