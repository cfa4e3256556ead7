package repository

import (
	"context"
	"database/sql"
	"regexp"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"SafeRoute-App/internal/domain/model"
	"SafeRoute-App/internal/infrastructure/database"
)

func TestPostgresPOIsRepository_NearestPolice(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()
	repo := NewPostgresPOIsRepository(database.NewPostgreSQLClientFromDB(db))
	point := model.LatLng{Lat: 35.0, Lng: 135.75}

	t.Run("最寄りの1件を返す", func(t *testing.T) {
		mock.ExpectQuery(regexp.QuoteMeta(`ORDER BY p.location::geography <->`)).
			WithArgs(35.0, 135.75, `["police"]`).
			WillReturnRows(sqlmock.NewRows([]string{"id", "location", "distance_meters"}).
				AddRow("kyoto-koban", `{"type":"Point","coordinates":[135.752,35.001]}`, 210.4))

		nearest, err := repo.NearestPolice(context.Background(), point)
		require.NoError(t, err)
		require.NotNil(t, nearest)
		assert.Equal(t, "kyoto-koban", nearest.POI.PlaceID)
		assert.Equal(t, model.LatLng{Lat: 35.001, Lng: 135.752}, nearest.POI.ToLatLng())
		assert.Equal(t, 210.4, nearest.DistanceMeters)
	})

	t.Run("見つからない場合はnil", func(t *testing.T) {
		mock.ExpectQuery(regexp.QuoteMeta(`FROM pois p`)).WillReturnError(sql.ErrNoRows)

		nearest, err := repo.NearestPolice(context.Background(), point)
		require.NoError(t, err)
		assert.Nil(t, nearest)
	})

	assert.NoError(t, mock.ExpectationsWereMet())
}
