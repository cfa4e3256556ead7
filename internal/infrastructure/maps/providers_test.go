package maps

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tidwall/gjson"

	"SafeRoute-App/internal/domain/model"
)

func TestGoogleDirectionsProvider_FetchRoutes(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		q := r.URL.Query()
		assert.Equal(t, "京都駅", q.Get("origin"))
		assert.Equal(t, "35.0,135.75", q.Get("destination"))
		assert.Equal(t, "walking", q.Get("mode"))
		assert.Equal(t, "true", q.Get("alternatives"))
		assert.Equal(t, "test-key", q.Get("key"))
		_, _ = w.Write([]byte(`{"status":"OK","routes":[{"overview_polyline":{"points":"a"}},{"overview_polyline":{"points":"b"}}]}`))
	}))
	defer srv.Close()

	p := NewGoogleDirectionsProvider("test-key", 0, 0)
	p.baseURL = srv.URL

	routes, err := p.FetchRoutes(context.Background(), "京都駅", "35.0,135.75", "")
	require.NoError(t, err)
	require.Len(t, routes, 2)
	assert.Equal(t, "b", gjson.GetBytes(routes[1], "overview_polyline.points").String())
}

func TestGoogleDirectionsProvider_Errors(t *testing.T) {
	t.Run("ZERO_RESULTSは0件", func(t *testing.T) {
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			_, _ = w.Write([]byte(`{"status":"ZERO_RESULTS","routes":[]}`))
		}))
		defer srv.Close()
		p := NewGoogleDirectionsProvider("k", 0, 0)
		p.baseURL = srv.URL

		routes, err := p.FetchRoutes(context.Background(), "a", "b", "walking")
		require.NoError(t, err)
		assert.Empty(t, routes)
	})

	t.Run("REQUEST_DENIEDはProviderError", func(t *testing.T) {
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			_, _ = w.Write([]byte(`{"status":"REQUEST_DENIED","error_message":"invalid key"}`))
		}))
		defer srv.Close()
		p := NewGoogleDirectionsProvider("k", 0, 0)
		p.baseURL = srv.URL

		_, err := p.FetchRoutes(context.Background(), "a", "b", "walking")
		var providerErr *model.ProviderError
		require.ErrorAs(t, err, &providerErr)
		assert.Equal(t, "google_directions", providerErr.Provider)
	})

	t.Run("接続できない場合はProviderError", func(t *testing.T) {
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
		p := NewGoogleDirectionsProvider("k", 0, 0)
		p.baseURL = srv.URL
		srv.Close()

		_, err := p.FetchRoutes(context.Background(), "a", "b", "walking")
		var providerErr *model.ProviderError
		assert.ErrorAs(t, err, &providerErr)
	})
}

func TestGoogleRoutesProvider_FetchRoutes(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "test-key", r.Header.Get("X-Goog-Api-Key"))
		assert.Equal(t, routesFieldMask, r.Header.Get("X-Goog-FieldMask"))

		body, _ := io.ReadAll(r.Body)
		assert.Equal(t, "京都駅", gjson.GetBytes(body, "origin.address").String())
		assert.Equal(t, 35.0, gjson.GetBytes(body, "destination.location.latLng.latitude").Float())
		assert.Equal(t, "DRIVE", gjson.GetBytes(body, "travelMode").String())
		assert.True(t, gjson.GetBytes(body, "computeAlternativeRoutes").Bool())

		_, _ = w.Write([]byte(`{"routes":[{"polyline":{"encodedPolyline":"abc"},"distanceMeters":1200,"duration":"300s"}]}`))
	}))
	defer srv.Close()

	p := NewGoogleRoutesProvider("test-key", 0, 0)
	p.baseURL = srv.URL

	routes, err := p.FetchRoutes(context.Background(), "京都駅", "35.0, 135.75", "driving")
	require.NoError(t, err)
	require.Len(t, routes, 1)

	var decoded map[string]any
	require.NoError(t, json.Unmarshal(routes[0], &decoded))
	assert.Equal(t, "300s", decoded["duration"])
}

func TestGoogleRoutesProvider_ErrorStatus(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, `{"error":{"code":403}}`, http.StatusForbidden)
	}))
	defer srv.Close()
	p := NewGoogleRoutesProvider("k", 0, 0)
	p.baseURL = srv.URL

	_, err := p.FetchRoutes(context.Background(), "a", "b", "")
	var providerErr *model.ProviderError
	require.ErrorAs(t, err, &providerErr)
	assert.Equal(t, "google_routes", providerErr.Provider)
}

func TestParseLatLng(t *testing.T) {
	lat, lng, ok := parseLatLng(" 34.9858 , 135.7588 ")
	assert.True(t, ok)
	assert.Equal(t, 34.9858, lat)
	assert.Equal(t, 135.7588, lng)

	_, _, ok = parseLatLng("京都市下京区")
	assert.False(t, ok)
	_, _, ok = parseLatLng("1,2,3")
	assert.False(t, ok)
}
