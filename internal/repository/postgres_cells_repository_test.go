package repository

import (
	"context"
	"errors"
	"regexp"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"SafeRoute-App/internal/domain/helper"
	"SafeRoute-App/internal/domain/model"
	"SafeRoute-App/internal/infrastructure/database"
)

func newMockCellsRepo(t *testing.T, monitorPings bool) (*PostgresCellsRepository, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New(sqlmock.MonitorPingsOption(monitorPings))
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })

	repo := NewPostgresCellsRepository(database.NewPostgreSQLClientFromDB(db)).(*PostgresCellsRepository)
	return repo, mock
}

var cellColumns = []string{"id", "score", "factors", "nearest_police", "last_updated"}

func TestPostgresCellsRepository_BatchGet(t *testing.T) {
	repo, mock := newMockCellsRepo(t, false)
	ts := time.Date(2024, 5, 1, 0, 0, 0, 0, time.UTC)

	mock.ExpectQuery(regexp.QuoteMeta(`FROM safety_cells WHERE id = ANY($1)`)).
		WithArgs(sqlmock.AnyArg()).
		WillReturnRows(sqlmock.NewRows(cellColumns).
			AddRow("xn0x12b", 6.25, []byte(`{"lighting":5,"crowd":5,"police":10,"incidents":5,"accidents":5}`),
				[]byte(`{"place_id":"p1","distance_meters":180.5}`), ts).
			AddRow("xn0x12c", 5.0, []byte(`{"lighting":5,"crowd":5,"police":5,"incidents":5,"accidents":5}`), nil, ts))

	cells, err := repo.BatchGet(context.Background(), []string{"xn0x12b", "xn0x12c", "xn0x12f"})
	require.NoError(t, err)
	require.Len(t, cells, 2)
	assert.Equal(t, 10.0, cells["xn0x12b"].Factors.Police)
	assert.Equal(t, &model.NearestPolice{PlaceID: "p1", DistanceMeters: 180.5}, cells["xn0x12b"].NearestPolice)
	assert.Nil(t, cells["xn0x12c"].NearestPolice)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresCellsRepository_InsertIfAbsent(t *testing.T) {
	repo, mock := newMockCellsRepo(t, false)

	mock.ExpectExec(regexp.QuoteMeta(`ON CONFLICT (id) DO NOTHING`)).
		WithArgs(sqlmock.AnyArg(), 5.0, sqlmock.AnyArg(), sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(0, 2))

	created, err := repo.InsertIfAbsent(context.Background(), []string{"xn0x12b", "xn0x12c", "xn0x12f"}, helper.DefaultFactors())
	require.NoError(t, err)
	assert.Equal(t, 2, created)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresCellsRepository_InsertIfAbsentChunks(t *testing.T) {
	repo, mock := newMockCellsRepo(t, false)
	ids := make([]string, 250)
	for i := range ids {
		ids[i] = "id"
	}

	mock.ExpectExec(regexp.QuoteMeta(`INSERT INTO safety_cells`)).WillReturnResult(sqlmock.NewResult(0, 200))
	mock.ExpectExec(regexp.QuoteMeta(`INSERT INTO safety_cells`)).WillReturnResult(sqlmock.NewResult(0, 50))

	created, err := repo.InsertIfAbsent(context.Background(), ids, helper.DefaultFactors())
	require.NoError(t, err)
	assert.Equal(t, 250, created)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresCellsRepository_BulkPartialUpdate(t *testing.T) {
	repo, mock := newMockCellsRepo(t, false)
	mock.MatchExpectationsInOrder(false)
	ts := time.Date(2024, 5, 1, 0, 0, 0, 0, time.UTC)

	mock.ExpectExec(regexp.QuoteMeta(`UPDATE safety_cells`)).
		WithArgs("xn0x12b", `{"police":10}`, 6.25, sqlmock.AnyArg(), ts).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec(regexp.QuoteMeta(`UPDATE safety_cells`)).
		WithArgs("xn0x12c", `{"police":8}`, 5.75, sqlmock.AnyArg(), ts).
		WillReturnResult(sqlmock.NewResult(0, 0))

	res, err := repo.BulkPartialUpdate(context.Background(), []model.CellPatch{
		{ID: "xn0x12b", Factors: model.PartialFactors{Police: model.Float64(10)}, Score: 6.25, LastUpdated: ts,
			NearestPolice: &model.NearestPolice{PlaceID: "p1", DistanceMeters: 100}},
		{ID: "xn0x12c", Factors: model.PartialFactors{Police: model.Float64(8)}, Score: 5.75, LastUpdated: ts},
	})
	require.NoError(t, err)
	assert.Equal(t, 1, res.Updated)
	assert.Equal(t, 1, res.Failed)
	require.Len(t, res.Errors, 1)
	assert.Equal(t, "xn0x12c", res.Errors[0].CellID)
	assert.ErrorIs(t, res.Errors[0], errCellNotFound)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresCellsRepository_BulkPartialUpdateUnreachable(t *testing.T) {
	repo, mock := newMockCellsRepo(t, true)
	mock.ExpectPing().WillReturnError(errors.New("connection refused"))

	_, err := repo.BulkPartialUpdate(context.Background(), []model.CellPatch{{ID: "xn0x12b"}})
	assert.Error(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresCellsRepository_Scan(t *testing.T) {
	repo, mock := newMockCellsRepo(t, false)
	ts := time.Now()

	mock.ExpectQuery(regexp.QuoteMeta(`ORDER BY id LIMIT $1`)).
		WithArgs(2).
		WillReturnRows(sqlmock.NewRows(cellColumns).
			AddRow("xn0x12b", 5.0, []byte(`{"lighting":5,"crowd":5,"police":5,"incidents":5,"accidents":5}`), nil, ts))

	cells, err := repo.Scan(context.Background(), 2)
	require.NoError(t, err)
	require.Len(t, cells, 1)
	assert.Equal(t, "xn0x12b", cells[0].ID)
}
