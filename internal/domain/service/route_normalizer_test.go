package service

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func raws(docs ...string) []json.RawMessage {
	out := make([]json.RawMessage, 0, len(docs))
	for _, d := range docs {
		out = append(out, json.RawMessage(d))
	}
	return out
}

func TestRouteNormalizer_Directions(t *testing.T) {
	n := NewRouteNormalizer(0, nil)

	routes := n.Normalize(raws(`{
		"overview_polyline": {"points": "_p~iF~ps|U_ulLnnqC_mqNvxq` + "`" + `@"},
		"legs": [
			{"distance": {"text": "1.2 km", "value": 1200}, "duration": {"text": "15 mins", "value": 900}}
		]
	}`))

	require.Len(t, routes, 1)
	r := routes[0]
	assert.NotEmpty(t, r.ID)
	assert.Equal(t, "_p~iF~ps|U_ulLnnqC_mqNvxq`@", r.Polyline)
	assert.Equal(t, 1200, r.Distance.Meters)
	assert.Equal(t, "1.2 km", r.Distance.Text)
	assert.True(t, r.Distance.Known)
	assert.Equal(t, 900, r.Duration.Seconds)
	assert.Equal(t, "15 mins", r.Duration.Text)
	assert.False(t, r.Duration.Approximate)
	assert.NotNil(t, r.Tags)
}

func TestRouteNormalizer_DirectionsMultiLeg(t *testing.T) {
	n := NewRouteNormalizer(0, nil)

	routes := n.Normalize(raws(`{
		"overview_polyline": {"points": "abc"},
		"legs": [
			{"distance": {"text": "800 m", "value": 800}, "duration": {"text": "10 mins", "value": 600}},
			{"distance": {"text": "1.5 km", "value": 1500}, "duration": {"text": "20 mins", "value": 1200}}
		]
	}`))

	require.Len(t, routes, 1)
	assert.Equal(t, 2300, routes[0].Distance.Meters)
	assert.Equal(t, "2.3 km", routes[0].Distance.Text)
	assert.Equal(t, 1800, routes[0].Duration.Seconds)
	assert.Equal(t, "30 mins", routes[0].Duration.Text)
}

func TestRouteNormalizer_RoutesV2(t *testing.T) {
	n := NewRouteNormalizer(0, nil)

	routes := n.Normalize(raws(`{
		"polyline": {"encodedPolyline": "xyz"},
		"distanceMeters": 4321,
		"duration": "1234s",
		"localizedValues": {"distance": {"text": "4.3 km"}, "duration": {"text": "21 mins"}}
	}`))

	require.Len(t, routes, 1)
	r := routes[0]
	assert.Equal(t, "xyz", r.Polyline)
	assert.Equal(t, 4321, r.Distance.Meters)
	assert.Equal(t, "4.3 km", r.Distance.Text)
	assert.Equal(t, 1234, r.Duration.Seconds)
	assert.Equal(t, "21 mins", r.Duration.Text)
}

func TestRouteNormalizer_MissingFields(t *testing.T) {
	t.Run("所要時間がなければ距離と平均速度から推定", func(t *testing.T) {
		n := NewRouteNormalizer(30, nil)
		routes := n.Normalize(raws(`{"polyline": {"encodedPolyline": "xyz"}, "distanceMeters": 3000}`))

		require.Len(t, routes, 1)
		d := routes[0].Duration
		assert.Equal(t, 360, d.Seconds) // 3000m / (30km/h)
		assert.Equal(t, "~6 mins", d.Text)
		assert.True(t, d.Approximate)
		assert.True(t, d.Known)
	})

	t.Run("距離がなければ不明のまま残す", func(t *testing.T) {
		n := NewRouteNormalizer(30, nil)
		routes := n.Normalize(raws(`{"polyline": {"encodedPolyline": "xyz"}}`))

		require.Len(t, routes, 1)
		assert.False(t, routes[0].Distance.Known)
		assert.False(t, routes[0].Duration.Known)
	})

	t.Run("ポリラインがなければ除外", func(t *testing.T) {
		n := NewRouteNormalizer(30, nil)
		routes := n.Normalize(raws(
			`{"distanceMeters": 100}`,
			`not json`,
			`{"polyline": {"encodedPolyline": "keep"}}`,
		))

		require.Len(t, routes, 1)
		assert.Equal(t, "keep", routes[0].Polyline)
	})
}
