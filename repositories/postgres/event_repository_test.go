package postgres

import (
	"context"
	"regexp"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/epicevents/crm/models"
	"github.com/epicevents/crm/repositories"
	"github.com/lib/pq"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

var eventRowColumns = []string{
	"id", "name", "contract_id", "support_contact_id", "start_date", "end_date",
	"location", "attendees", "notes", "created_at", "updated_at",
}

func TestEventRepository_Create(t *testing.T) {
	db, mock := newMockDB(t)
	repo := NewEventRepository(db, zap.NewNop())
	start := time.Now().Add(72 * time.Hour)
	event := &models.Event{Name: "Launch", ContractID: 5, StartDate: start, EndDate: start.Add(8 * time.Hour)}

	t.Run("inserts without support contact", func(t *testing.T) {
		mock.ExpectQuery(regexp.QuoteMeta("INSERT INTO events")).
			WithArgs("Launch", int64(5), nil, sqlmock.AnyArg(), sqlmock.AnyArg(), "", 0, "", sqlmock.AnyArg(), sqlmock.AnyArg()).
			WillReturnRows(sqlmock.NewRows([]string{"id"}).AddRow(21))

		require.NoError(t, repo.Create(context.Background(), event))
		assert.Equal(t, int64(21), event.ID)
	})

	t.Run("second event on a contract is a duplicate", func(t *testing.T) {
		mock.ExpectQuery(regexp.QuoteMeta("INSERT INTO events")).
			WillReturnError(&pq.Error{Code: "23505", Constraint: "events_contract_id_key"})

		err := repo.Create(context.Background(), event)
		dup, ok := repositories.IsDuplicate(err)
		require.True(t, ok)
		assert.Equal(t, "contract_id", dup.Field)
	})
}

func TestEventRepository_GetByContractID(t *testing.T) {
	db, mock := newMockDB(t)
	repo := NewEventRepository(db, zap.NewNop())
	now := time.Now()

	mock.ExpectQuery(regexp.QuoteMeta("WHERE contract_id = $1")).
		WithArgs(int64(5)).
		WillReturnRows(sqlmock.NewRows(eventRowColumns).
			AddRow(21, "Launch", 5, nil, now, now.Add(time.Hour), "Paris", 40, "", now, now))

	event, err := repo.GetByContractID(context.Background(), 5)
	require.NoError(t, err)
	assert.Nil(t, event.SupportContactID)
	assert.Equal(t, 40, event.Attendees)

	mock.ExpectQuery(regexp.QuoteMeta("WHERE contract_id = $1")).
		WithArgs(int64(6)).
		WillReturnRows(sqlmock.NewRows(eventRowColumns))

	_, err = repo.GetByContractID(context.Background(), 6)
	assert.ErrorIs(t, err, repositories.ErrNotFound)
}

func TestEventRepository_UpdateAssignsSupport(t *testing.T) {
	db, mock := newMockDB(t)
	repo := NewEventRepository(db, zap.NewNop())
	support := int64(30)
	event := &models.Event{ID: 21, Name: "Launch", SupportContactID: &support}

	mock.ExpectExec(regexp.QuoteMeta("UPDATE events")).
		WithArgs(int64(21), "Launch", int64(30), sqlmock.AnyArg(), sqlmock.AnyArg(), "", 0, "", sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(0, 1))

	require.NoError(t, repo.Update(context.Background(), event))
}

func TestEventRepository_List(t *testing.T) {
	db, mock := newMockDB(t)
	repo := NewEventRepository(db, zap.NewNop())
	now := time.Now()

	mock.ExpectQuery(regexp.QuoteMeta("WHERE support_contact_id IS NULL ORDER BY start_date, id")).
		WillReturnRows(sqlmock.NewRows(eventRowColumns).
			AddRow(21, "Launch", 5, nil, now, now.Add(time.Hour), "", 0, "", now, now))

	events, err := repo.List(context.Background(), repositories.EventFilter{WithoutSupport: true})
	require.NoError(t, err)
	assert.Len(t, events, 1)

	mock.ExpectQuery(regexp.QuoteMeta("WHERE support_contact_id = $1")).
		WithArgs(int64(30)).
		WillReturnRows(sqlmock.NewRows(eventRowColumns).
			AddRow(22, "Gala", 6, 30, now, now.Add(time.Hour), "", 0, "", now, now))

	events, err = repo.ListBySupportContact(context.Background(), 30)
	require.NoError(t, err)
	require.Len(t, events, 1)
	require.NotNil(t, events[0].SupportContactID)
	assert.Equal(t, int64(30), *events[0].SupportContactID)
}
