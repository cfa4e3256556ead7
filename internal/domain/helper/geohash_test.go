package helper

import (
	"errors"
	"testing"

	"github.com/paulmach/orb"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"SafeRoute-App/internal/domain/model"
)

func TestEncodeCell(t *testing.T) {
	t.Run("既知の座標を7桁のgeohashに変換できる", func(t *testing.T) {
		// 京都駅付近
		id, err := EncodeCell(34.9858, 135.7588)
		require.NoError(t, err)
		assert.Len(t, id, CellPrecision)
		assert.Equal(t, "xn0x12b", id)
	})

	t.Run("同じ座標は常に同じIDになる", func(t *testing.T) {
		a, err := EncodeCell(35.0116, 135.7681)
		require.NoError(t, err)
		b, err := EncodeCell(35.0116, 135.7681)
		require.NoError(t, err)
		assert.Equal(t, a, b)
	})

	t.Run("範囲外の座標はRangeError", func(t *testing.T) {
		cases := []struct{ lat, lng float64 }{
			{90.1, 0}, {-90.1, 0}, {0, 180.1}, {0, -180.1},
		}
		for _, c := range cases {
			_, err := EncodeCell(c.lat, c.lng)
			var rangeErr *model.RangeError
			assert.True(t, errors.As(err, &rangeErr), "lat=%f lng=%f", c.lat, c.lng)
		}
	})

	t.Run("境界値は有効", func(t *testing.T) {
		for _, c := range []struct{ lat, lng float64 }{{90, 180}, {-90, -180}, {0, 0}} {
			_, err := EncodeCell(c.lat, c.lng)
			assert.NoError(t, err)
		}
	})
}

func TestDecodeCellBoundsContainsPoint(t *testing.T) {
	points := []struct{ lat, lng float64 }{
		{34.9858, 135.7588},
		{-33.8688, 151.2093},
		{40.7128, -74.0060},
		{51.5074, -0.1278},
		{0.00001, -0.00001},
		{-89.9999, 179.9999},
		{89.9999, -179.9999},
	}
	for _, p := range points {
		id, err := EncodeCell(p.lat, p.lng)
		require.NoError(t, err)

		bound, err := DecodeCellBounds(id)
		require.NoError(t, err)
		assert.True(t, bound.Contains(orb.Point{p.lng, p.lat}), "cell %s must contain (%f, %f)", id, p.lat, p.lng)

		// 7桁のセルはおおよそ150m四方
		width := HaversineMeters(model.LatLng{Lat: bound.Min.Lat(), Lng: bound.Min.Lon()}, model.LatLng{Lat: bound.Min.Lat(), Lng: bound.Max.Lon()})
		height := HaversineMeters(model.LatLng{Lat: bound.Min.Lat(), Lng: bound.Min.Lon()}, model.LatLng{Lat: bound.Max.Lat(), Lng: bound.Min.Lon()})
		assert.LessOrEqual(t, width, 160.0)
		assert.InDelta(t, 152.7, height, 1.0)
	}
}

func TestDecodeCell(t *testing.T) {
	id, err := EncodeCell(35.0116, 135.7681)
	require.NoError(t, err)

	lat, lng, err := DecodeCell(id)
	require.NoError(t, err)
	assert.InDelta(t, 35.0116, lat, 0.001)
	assert.InDelta(t, 135.7681, lng, 0.001)

	again, err := EncodeCell(lat, lng)
	require.NoError(t, err)
	assert.Equal(t, id, again, "中心点は同じセルに戻る")
}

func TestValidateCellID(t *testing.T) {
	assert.NoError(t, ValidateCellID("xn0x12b"))

	for _, id := range []string{"", "xn0x1", "xn0x12b0", "XN0X12B", "xn0x12a", "xn0x12i"} {
		err := ValidateCellID(id)
		var inputErr *model.InputError
		assert.True(t, errors.As(err, &inputErr), "id=%q", id)
	}
}

func TestCellPolygon(t *testing.T) {
	polygon, err := CellPolygon("xn0x12b")
	require.NoError(t, err)
	require.Len(t, polygon, 1)

	ring := polygon[0]
	assert.True(t, ring.Closed())
	assert.Len(t, ring, 5)
}

func TestCellsForPoints(t *testing.T) {
	origin := model.LatLng{Lat: 35.0, Lng: 135.75}
	points := []orb.Point{
		origin.ToPoint(),
		OffsetLatLng(origin, 5, 5).ToPoint(), // 同じセル
		OffsetLatLng(origin, 600, 0).ToPoint(),
		origin.ToPoint(),
		{200, 100}, // 範囲外は無視
	}

	ids := CellsForPoints(points)
	require.Len(t, ids, 2)

	first, _ := EncodeCell(origin.Lat, origin.Lng)
	assert.Equal(t, first, ids[0])
	assert.Empty(t, CellsForPoints(nil))
}
