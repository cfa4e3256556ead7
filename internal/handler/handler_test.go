package handler

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tidwall/gjson"
	polyline "github.com/twpayne/go-polyline"
	"go.uber.org/zap"

	"SafeRoute-App/internal/domain/model"
	"SafeRoute-App/internal/domain/service"
	"SafeRoute-App/internal/infrastructure/metrics"
	"SafeRoute-App/internal/repository"
	"SafeRoute-App/internal/usecase"
)

type stubProvider struct {
	routes []json.RawMessage
	err    error
}

func (s *stubProvider) Name() string { return "stub" }

func (s *stubProvider) FetchRoutes(ctx context.Context, origin, destination, travelMode string) ([]json.RawMessage, error) {
	return s.routes, s.err
}

type noPOIs struct{}

func (noPOIs) NearestPolice(ctx context.Context, point model.LatLng) (*model.NearestPOI, error) {
	return nil, nil
}

type testServer struct {
	engine *gin.Engine
	cells  *repository.MemoryCellsRepository
}

func newTestServer(t *testing.T, provider *stubProvider) *testServer {
	t.Helper()
	gin.SetMode(gin.TestMode)

	logger := zap.NewNop()
	m := metrics.New()
	cells := repository.NewMemoryCellsRepository()

	compare := usecase.NewRouteCompareUseCase(
		provider,
		service.NewRouteNormalizer(service.DefaultAverageSpeedKmh, logger),
		service.NewRouteScorer(cells, 0, logger),
		m,
		logger,
	)
	mapper := service.NewPoliceProximityMapper(cells, noPOIs{}, service.PoliceMapperOptions{}, logger)

	engine := NewRouter(RouterDeps{
		RouteCompare:   NewRouteCompareHandler(compare),
		PoliceMap:      NewPoliceMapHandler(usecase.NewPoliceMappingUseCase(mapper, m)),
		Cells:          NewCellsHandler(usecase.NewCellsUseCase(cells, m, logger)),
		Cooldown:       repository.NewMemoryCooldownRepository(),
		PoliceCooldown: time.Minute,
		Metrics:        m,
		Logger:         logger,
	})
	return &testServer{engine: engine, cells: cells}
}

func (s *testServer) do(method, path, body string) *httptest.ResponseRecorder {
	var req *http.Request
	if body == "" {
		req = httptest.NewRequest(method, path, nil)
	} else {
		req = httptest.NewRequest(method, path, strings.NewReader(body))
		req.Header.Set("Content-Type", "application/json")
	}
	w := httptest.NewRecorder()
	s.engine.ServeHTTP(w, req)
	return w
}

func directionsRoute(coords [][]float64, meters, seconds int) json.RawMessage {
	b, _ := json.Marshal(map[string]any{
		"overview_polyline": map[string]any{"points": string(polyline.EncodeCoords(coords))},
		"legs": []any{map[string]any{
			"distance": map[string]any{"text": "", "value": meters},
			"duration": map[string]any{"text": "", "value": seconds},
		}},
	})
	return b
}

func TestHealth(t *testing.T) {
	s := newTestServer(t, &stubProvider{})
	w := s.do(http.MethodGet, "/api/health", "")

	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "healthy", gjson.Get(w.Body.String(), "status").String())
	assert.NotEmpty(t, w.Header().Get(requestIDHeader))
}

func TestPostCompareRoutes(t *testing.T) {
	t.Run("正常系", func(t *testing.T) {
		s := newTestServer(t, &stubProvider{routes: []json.RawMessage{
			directionsRoute([][]float64{{35.0, 135.75}, {35.004, 135.75}}, 900, 600),
			directionsRoute([][]float64{{35.02, 135.78}, {35.024, 135.78}}, 1400, 1000),
		}})
		w := s.do(http.MethodPost, "/api/routes/compare", `{"origin":"京都駅","destination":"清水寺"}`)

		require.Equal(t, http.StatusOK, w.Code, w.Body.String())
		body := w.Body.String()
		assert.Equal(t, int64(2), gjson.Get(body, "routes.#").Int())
		// 新規セルはすべて既定値なのでスコアは中立
		assert.Equal(t, 5.0, gjson.Get(body, "routes.0.safety_score").Float())
		assert.Equal(t, model.ColorYellow, gjson.Get(body, "routes.0.color").String())
		assert.Greater(t, gjson.Get(body, "summary.cells_created").Int(), int64(0))
	})

	t.Run("デコードできない経路はno data", func(t *testing.T) {
		raw, _ := json.Marshal(map[string]any{"overview_polyline": map[string]any{"points": "!!!"}})
		s := newTestServer(t, &stubProvider{routes: []json.RawMessage{raw}})
		w := s.do(http.MethodPost, "/api/routes/compare", `{"origin":"a","destination":"b"}`)

		require.Equal(t, http.StatusOK, w.Code)
		assert.Equal(t, model.NoDataLabel, gjson.Get(w.Body.String(), "routes.0.safety_score").String())
	})

	cases := []struct {
		name     string
		provider *stubProvider
		body     string
		status   int
	}{
		{"JSONが壊れている", &stubProvider{}, `{"origin":`, http.StatusBadRequest},
		{"目的地なし", &stubProvider{}, `{"origin":"a"}`, http.StatusBadRequest},
		{"範囲外の座標", &stubProvider{}, `{"origin":"35,200","destination":"b"}`, http.StatusBadRequest},
		{"プロバイダ障害", &stubProvider{err: errors.New("boom")}, `{"origin":"a","destination":"b"}`, http.StatusBadGateway},
		{"経路なし", &stubProvider{routes: []json.RawMessage{}}, `{"origin":"a","destination":"b"}`, http.StatusNotFound},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			s := newTestServer(t, tc.provider)
			w := s.do(http.MethodPost, "/api/routes/compare", tc.body)

			assert.Equal(t, tc.status, w.Code)
			assert.NotEmpty(t, gjson.Get(w.Body.String(), "error").String())
			assert.NotEmpty(t, gjson.Get(w.Body.String(), "details").String())
		})
	}
}

func TestPostMapPolice_Cooldown(t *testing.T) {
	s := newTestServer(t, &stubProvider{})

	w := s.do(http.MethodPost, "/api/police/map", "")
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	w = s.do(http.MethodPost, "/api/police/map", `{"dry_run":true}`)
	assert.Equal(t, http.StatusTooManyRequests, w.Code)
	assert.Equal(t, "60", w.Header().Get("Retry-After"))
}

func TestPostMapPolice_InvalidLimit(t *testing.T) {
	s := newTestServer(t, &stubProvider{})
	w := s.do(http.MethodPost, "/api/police/map", `{"limit":-1}`)

	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, "バリデーションエラー", gjson.Get(w.Body.String(), "error").String())
}

func TestCellsEndpoints(t *testing.T) {
	s := newTestServer(t, &stubProvider{})

	t.Run("GETで未作成セルが作られる", func(t *testing.T) {
		w := s.do(http.MethodGet, "/api/cells/xn0x12b", "")
		require.Equal(t, http.StatusOK, w.Code)
		assert.Equal(t, "xn0x12b", gjson.Get(w.Body.String(), "id").String())
		assert.Equal(t, 1, s.cells.Len())
	})

	t.Run("因子の部分更新", func(t *testing.T) {
		w := s.do(http.MethodPut, "/api/cells/xn0x12b/factors", `{"lighting":9}`)
		require.Equal(t, http.StatusOK, w.Code, w.Body.String())
		body := w.Body.String()
		assert.Equal(t, 9.0, gjson.Get(body, "factors.lighting").Float())
		assert.Equal(t, 5.0, gjson.Get(body, "factors.crowd").Float())
		assert.Greater(t, gjson.Get(body, "score").Float(), 5.0)
	})

	t.Run("範囲外の因子は400", func(t *testing.T) {
		w := s.do(http.MethodPut, "/api/cells/xn0x12b/factors", `{"police":11}`)
		assert.Equal(t, http.StatusBadRequest, w.Code)
	})

	t.Run("不正なセルidは400", func(t *testing.T) {
		w := s.do(http.MethodGet, "/api/cells/abc", "")
		assert.Equal(t, http.StatusBadRequest, w.Code)
	})

	t.Run("GeoJSON", func(t *testing.T) {
		w := s.do(http.MethodGet, "/api/cells/geojson?ids=xn0x12b,xn0x12c", "")
		require.Equal(t, http.StatusOK, w.Code, w.Body.String())
		assert.Equal(t, "application/geo+json", w.Header().Get("Content-Type"))

		body := w.Body.String()
		assert.Equal(t, "FeatureCollection", gjson.Get(body, "type").String())
		assert.Equal(t, int64(2), gjson.Get(body, "features.#").Int())
		assert.Equal(t, "Polygon", gjson.Get(body, "features.0.geometry.type").String())
		assert.Equal(t, model.NoDataLabel, gjson.Get(body, "features.1.properties.score").String())
		assert.Equal(t, 1, s.cells.Len(), "GeoJSONではセルを作成しない")
	})

	t.Run("idsなしは400", func(t *testing.T) {
		w := s.do(http.MethodGet, "/api/cells/geojson", "")
		assert.Equal(t, http.StatusBadRequest, w.Code)
	})
}

func TestMetricsEndpoint(t *testing.T) {
	s := newTestServer(t, &stubProvider{})
	w := s.do(http.MethodGet, "/metrics", "")

	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "saferoute_compare_duration_seconds")
}
