package helper

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"SafeRoute-App/internal/domain/model"
)

func TestHaversineMeters(t *testing.T) {
	kyotoStation := model.LatLng{Lat: 34.9858, Lng: 135.7588}

	assert.Equal(t, 0.0, HaversineMeters(kyotoStation, kyotoStation))

	// 緯度1度 ≒ 111.19km (R = 6,371,000m)
	d := HaversineMeters(model.LatLng{Lat: 0, Lng: 0}, model.LatLng{Lat: 1, Lng: 0})
	assert.InDelta(t, 111194.9, d, 1.0)

	north := OffsetLatLng(kyotoStation, 300, 0)
	assert.InDelta(t, 300, HaversineMeters(kyotoStation, north), 0.5)

	east := OffsetLatLng(kyotoStation, 0, 3000)
	assert.InDelta(t, 3000, HaversineMeters(kyotoStation, east), 5)
}
