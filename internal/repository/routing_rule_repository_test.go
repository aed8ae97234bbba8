package repository

import (
	"context"
	"database/sql"
	"regexp"
	"testing"
	"time"

	sqlmock "github.com/DATA-DOG/go-sqlmock"
	"github.com/jmoiron/sqlx"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/uni-portal-api/internal/models"
)

func newRoutingRepoMock(t *testing.T) (*sqlx.DB, sqlmock.Sqlmock, func()) {
	db, mock, err := sqlmock.New(sqlmock.QueryMatcherOption(sqlmock.QueryMatcherRegexp))
	require.NoError(t, err)
	return sqlx.NewDb(db, "sqlmock"), mock, func() { db.Close() }
}

func TestRoutingRuleRepositoryList(t *testing.T) {
	db, mock, cleanup := newRoutingRepoMock(t)
	defer cleanup()
	repo := NewRoutingRuleRepository(db)

	rows := sqlmock.NewRows([]string{"request_type", "destination", "updated_at"}).
		AddRow(models.RequestTypeGradeAppeal, models.DestinationInstructor, time.Now()).
		AddRow(models.RequestTypeGeneral, models.DestinationSecretary, time.Now())
	mock.ExpectQuery(regexp.QuoteMeta("SELECT request_type, destination, updated_at FROM routing_rules ORDER BY request_type ASC")).
		WillReturnRows(rows)

	rules, err := repo.List(context.Background())
	require.NoError(t, err)
	require.Len(t, rules, 2)
	require.Equal(t, models.DestinationInstructor, rules[0].Destination)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestRoutingRuleRepositoryGetNoExplicitRule(t *testing.T) {
	db, mock, cleanup := newRoutingRepoMock(t)
	defer cleanup()
	repo := NewRoutingRuleRepository(db)

	mock.ExpectQuery("SELECT (.+) FROM routing_rules WHERE request_type =").
		WithArgs("Unknown Type").
		WillReturnError(sql.ErrNoRows)

	_, err := repo.Get(context.Background(), "Unknown Type")
	require.ErrorIs(t, err, sql.ErrNoRows)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestRoutingRuleRepositoryUpsert(t *testing.T) {
	db, mock, cleanup := newRoutingRepoMock(t)
	defer cleanup()
	repo := NewRoutingRuleRepository(db)

	mock.ExpectExec("INSERT INTO routing_rules").WillReturnResult(sqlmock.NewResult(0, 1))

	rule := &models.RoutingRule{RequestType: models.RequestTypeGradeAppeal, Destination: models.DestinationInstructor}
	require.NoError(t, repo.Upsert(context.Background(), rule))
	require.False(t, rule.UpdatedAt.IsZero())
	require.NoError(t, mock.ExpectationsWereMet())
}
