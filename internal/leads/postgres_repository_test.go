package leads

import (
	"context"
	"errors"
	"testing"
	"time"

	pgx "github.com/jackc/pgx/v5"
	pgxmock "github.com/pashagolub/pgxmock/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var leadColumnNames = []string{
	"id", "name", "phone", "address", "problem", "emergency_level", "status", "preferred_contact",
	"email", "city", "state", "zip_code", "property_type", "preferred_time", "availability",
	"scheduled_time", "source", "created_at", "updated_at",
}

func newMockPostgresRepo(t *testing.T) (*PostgresRepository, pgxmock.PgxPoolIface) {
	t.Helper()
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	t.Cleanup(mock.Close)
	repo := NewPostgresRepository(mock)
	repo.deps = testDeps()
	return repo, mock
}

func leadRow(id, name, phone string, level int, status Status, created time.Time) []any {
	return []any{
		id, name, phone, "", "", level, string(status), "phone",
		"", "", "", "", "", "", "", "", "chat", created, created,
	}
}

func TestPostgresRepository_UpsertInsertsNewLead(t *testing.T) {
	repo, mock := newMockPostgresRepo(t)

	mock.ExpectQuery("SELECT .* FROM leads").
		WithArgs("+14158675309", "").
		WillReturnError(pgx.ErrNoRows)
	mock.ExpectExec("INSERT INTO leads").
		WithArgs("lead-1", "Jane Smith", "+14158675309", "", "", 1, "new", "phone",
			"", "", "", "", "", "", "", "", "", pgxmock.AnyArg(), pgxmock.AnyArg()).
		WillReturnResult(pgxmock.NewResult("INSERT", 1))

	req := &CreateLeadRequest{Name: "Jane Smith", Phone: "415 867 5309"}
	lead, created, err := repo.Upsert(context.Background(), req)
	require.NoError(t, err)
	assert.True(t, created)
	assert.Equal(t, "lead-1", lead.ID)
	assert.Equal(t, "415 867 5309", req.Phone)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresRepository_UpsertMergesExistingCustomer(t *testing.T) {
	repo, mock := newMockPostgresRepo(t)
	created := time.Date(2024, 5, 1, 9, 0, 0, 0, time.UTC)

	mock.ExpectQuery("SELECT .* FROM leads").
		WithArgs("+14158675309", "").
		WillReturnRows(pgxmock.NewRows(leadColumnNames).
			AddRow(leadRow("existing", "Jane Smith", "+14158675309", 1, StatusNew, created)...))
	mock.ExpectExec("UPDATE leads SET").
		WithArgs("existing", "Jane Smith", "+14158675309", "", "Shingles blew off in the storm last night", 4, "new", "phone",
			"", "", "", "", "", "", "", "", "chat", pgxmock.AnyArg()).
		WillReturnResult(pgxmock.NewResult("UPDATE", 1))

	lead, wasCreated, err := repo.Upsert(context.Background(), &CreateLeadRequest{
		Name:           "Jane Smith",
		Phone:          "4158675309",
		Problem:        "Shingles blew off in the storm last night",
		EmergencyLevel: 4,
	})
	require.NoError(t, err)
	assert.False(t, wasCreated)
	assert.Equal(t, "existing", lead.ID)
	assert.Equal(t, 4, lead.EmergencyLevel)
	assert.True(t, lead.CreatedAt.Equal(created))
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresRepository_GetByIDNotFound(t *testing.T) {
	repo, mock := newMockPostgresRepo(t)
	mock.ExpectQuery("SELECT .* FROM leads WHERE id = \\$1").
		WithArgs("missing").
		WillReturnError(pgx.ErrNoRows)

	_, err := repo.GetByID(context.Background(), "missing")
	assert.ErrorIs(t, err, ErrLeadNotFound)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresRepository_ListBuildsFilters(t *testing.T) {
	repo, mock := newMockPostgresRepo(t)
	now := time.Date(2024, 6, 1, 12, 0, 0, 0, time.UTC)

	mock.ExpectQuery("FROM leads WHERE status = \\$1 ORDER BY created_at DESC LIMIT \\$2 OFFSET \\$3").
		WithArgs("scheduled", 10, 20).
		WillReturnRows(pgxmock.NewRows(leadColumnNames).
			AddRow(leadRow("a", "Ann Lee", "+14158675309", 3, StatusScheduled, now)...))

	leads, err := repo.List(context.Background(), ListLeadsFilter{Status: StatusScheduled, Limit: 10, Offset: 20})
	require.NoError(t, err)
	require.Len(t, leads, 1)
	assert.Equal(t, StatusScheduled, leads[0].Status)
	assert.Equal(t, ContactPhone, leads[0].PreferredContact)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresRepository_ListEmptyIsNotNil(t *testing.T) {
	repo, mock := newMockPostgresRepo(t)
	mock.ExpectQuery("FROM leads ORDER BY created_at DESC").
		WillReturnRows(pgxmock.NewRows(leadColumnNames))

	leads, err := repo.List(context.Background(), ListLeadsFilter{})
	require.NoError(t, err)
	assert.NotNil(t, leads)
	assert.Empty(t, leads)
}

func TestPostgresRepository_DeleteMissing(t *testing.T) {
	repo, mock := newMockPostgresRepo(t)
	mock.ExpectExec("DELETE FROM leads").
		WithArgs("missing").
		WillReturnResult(pgxmock.NewResult("DELETE", 0))

	assert.ErrorIs(t, repo.Delete(context.Background(), "missing"), ErrLeadNotFound)
}

func TestPostgresRepository_WrapsDriverErrors(t *testing.T) {
	repo, mock := newMockPostgresRepo(t)
	mock.ExpectExec("DELETE FROM leads").
		WithArgs("x").
		WillReturnError(errors.New("connection reset"))

	err := repo.Delete(context.Background(), "x")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "leads: delete failed")
	assert.NotErrorIs(t, err, ErrLeadNotFound)
}
