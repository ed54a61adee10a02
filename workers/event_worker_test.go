package workers

import (
	"context"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEventWorker_ProcessRecordsEvent(t *testing.T) {
	db, mock, err := sqlmock.New(sqlmock.QueryMatcherOption(sqlmock.QueryMatcherRegexp))
	require.NoError(t, err)
	defer db.Close()

	mock.ExpectExec("INSERT INTO audit_events").
		WithArgs(sqlmock.AnyArg(), "project.provisioned", `{"project_id":"proj-1","creator_id":"acc-1"}`, sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(0, 1))

	w := NewEventWorker(db, nil, "atelier:events")
	w.process(context.Background(), `{"event":"project.provisioned","payload":{"project_id":"proj-1","creator_id":"acc-1"}}`)

	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestEventWorker_SkipsMalformedEvent(t *testing.T) {
	db, mock, err := sqlmock.New(sqlmock.QueryMatcherOption(sqlmock.QueryMatcherRegexp))
	require.NoError(t, err)
	defer db.Close()

	// No insert expected
	w := NewEventWorker(db, nil, "atelier:events")
	w.process(context.Background(), "not json")

	assert.NoError(t, mock.ExpectationsWereMet())
}
