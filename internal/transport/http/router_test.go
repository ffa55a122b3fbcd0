package httptransport

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"trustcheck/internal/fusion/models"
	"trustcheck/internal/fusion/service"
	"trustcheck/internal/fusion/store"
	"trustcheck/internal/risk"
	"trustcheck/pkg/domain"
)

const adminKey = "test-admin-key"

type fakeResolver struct {
	lastID    domain.BusinessID
	lastOpts  service.Options
	profile   *models.BusinessProfile
	err       error
	refreshed int
	stats     store.Stats
}

func (f *fakeResolver) Resolve(_ context.Context, id domain.BusinessID, opts service.Options) (*models.BusinessProfile, error) {
	f.lastID = id
	f.lastOpts = opts
	if f.err != nil {
		return nil, f.err
	}
	return f.profile, nil
}

func (f *fakeResolver) CacheStats(_ context.Context, _ domain.Source) (store.Stats, error) {
	return f.stats, nil
}

func (f *fakeResolver) BulkRefreshStale(_ context.Context, _ domain.Source, _ int) (int, error) {
	return f.refreshed, nil
}

func newTestRouter(t *testing.T, resolver *fakeResolver) http.Handler {
	t.Helper()
	if resolver.profile == nil {
		resolver.profile = &models.BusinessProfile{
			BusinessID: "512345678",
			Identity:   &models.Identity{LegalName: "Acme Ltd", Status: models.StatusActive},
			Provenance: models.Provenance{DataSource: domain.SourceCompaniesRegistry},
		}
	}
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	engine := risk.NewEngine(risk.DefaultWeights())
	return NewRouter(RouterConfig{
		Profiles:    NewProfileHandler(resolver, engine, logger),
		Risk:        NewRiskHandler(engine, logger),
		Admin:       NewAdminHandler(resolver, logger),
		AdminJWTKey: adminKey,
	})
}

func adminToken(t *testing.T, key string) string {
	t.Helper()
	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{
		"sub": "ops",
		"exp": time.Now().Add(time.Hour).Unix(),
	}).SignedString([]byte(key))
	require.NoError(t, err)
	return token
}

func TestGetProfile(t *testing.T) {
	resolver := &fakeResolver{}
	router := newTestRouter(t, resolver)

	t.Run("returns the resolved profile", func(t *testing.T) {
		w := httptest.NewRecorder()
		router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/v1/profiles/512345678", nil))

		require.Equal(t, http.StatusOK, w.Code)
		var profile models.BusinessProfile
		require.NoError(t, json.NewDecoder(w.Body).Decode(&profile))
		assert.Equal(t, domain.BusinessID("512345678"), profile.BusinessID)
		assert.Equal(t, "Acme Ltd", profile.Identity.LegalName)
		assert.NotEmpty(t, w.Header().Get("X-Request-ID"))
	})

	t.Run("query flags map to resolver options", func(t *testing.T) {
		w := httptest.NewRecorder()
		router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/v1/profiles/512345678?refresh=true&extended=true", nil))

		require.Equal(t, http.StatusOK, w.Code)
		assert.True(t, resolver.lastOpts.ForceRefresh)
		assert.True(t, resolver.lastOpts.IncludeExtended)
	})

	t.Run("invalid identifier is a 400", func(t *testing.T) {
		w := httptest.NewRecorder()
		router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/v1/profiles/12345", nil))

		assert.Equal(t, http.StatusBadRequest, w.Code)
		var body map[string]string
		require.NoError(t, json.NewDecoder(w.Body).Decode(&body))
		assert.Equal(t, "invalid_input", body["error"])
	})

	t.Run("resolution failure is a 503", func(t *testing.T) {
		broken := &fakeResolver{err: errors.New("everything is down")}
		brokenRouter := newTestRouter(t, broken)
		w := httptest.NewRecorder()
		brokenRouter.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/v1/profiles/512345678", nil))
		assert.Equal(t, http.StatusServiceUnavailable, w.Code)
	})
}

func TestGetProfileRisk(t *testing.T) {
	resolver := &fakeResolver{profile: &models.BusinessProfile{
		BusinessID: "512345678",
		Identity:   &models.Identity{LegalName: "Acme Ltd", Status: models.StatusActive, Violating: true},
		FactProvenance: map[domain.FactType]models.Provenance{
			domain.FactIdentity: {DataSource: domain.SourceCompaniesRegistry},
		},
	}}
	router := newTestRouter(t, resolver)

	w := httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/v1/profiles/512345678/risk", nil))

	require.Equal(t, http.StatusOK, w.Code)
	assert.True(t, resolver.lastOpts.IncludeExtended, "risk scoring always resolves the full profile")

	var resp struct {
		Profile    models.BusinessProfile `json:"profile"`
		Assessment risk.Assessment        `json:"assessment"`
	}
	require.NoError(t, json.NewDecoder(w.Body).Decode(&resp))
	assert.Equal(t, 40, resp.Assessment.Score, "violating entity alone scores its weight")
	require.Len(t, resp.Assessment.Factors, 1)
	assert.Equal(t, "violations", resp.Assessment.Factors[0].Name)
}

func TestPostRiskScore(t *testing.T) {
	router := newTestRouter(t, &fakeResolver{})

	t.Run("scores a raw signal bag", func(t *testing.T) {
		body, err := json.Marshal(map[string]any{
			"violations":                   true,
			"active_legal_cases":           3,
			"active_execution_proceedings": 2,
			"total_debt_nis":               150000,
		})
		require.NoError(t, err)

		w := httptest.NewRecorder()
		router.ServeHTTP(w, httptest.NewRequest(http.MethodPost, "/v1/risk/score", bytes.NewReader(body)))

		require.Equal(t, http.StatusOK, w.Code)
		var assessment risk.Assessment
		require.NoError(t, json.NewDecoder(w.Body).Decode(&assessment))
		assert.Equal(t, 95, assessment.Score)
		assert.Equal(t, risk.LevelCritical, assessment.Level)
		assert.Equal(t, 40, assessment.ConfidencePercent)
	})

	t.Run("malformed body is a 400", func(t *testing.T) {
		w := httptest.NewRecorder()
		router.ServeHTTP(w, httptest.NewRequest(http.MethodPost, "/v1/risk/score", bytes.NewReader([]byte("{"))))
		assert.Equal(t, http.StatusBadRequest, w.Code)
	})
}

func TestAdminEndpoints(t *testing.T) {
	resolver := &fakeResolver{refreshed: 7, stats: store.Stats{Total: 3, Fresh: 2, Stale: 1}}
	router := newTestRouter(t, resolver)

	t.Run("missing token is a 401", func(t *testing.T) {
		w := httptest.NewRecorder()
		router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/v1/cache/stats?source=companies_registry", nil))
		assert.Equal(t, http.StatusUnauthorized, w.Code)
	})

	t.Run("token signed with the wrong key is a 401", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/v1/cache/stats?source=companies_registry", nil)
		req.Header.Set("Authorization", "Bearer "+adminToken(t, "wrong-key"))
		w := httptest.NewRecorder()
		router.ServeHTTP(w, req)
		assert.Equal(t, http.StatusUnauthorized, w.Code)
	})

	t.Run("stats with a valid token", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/v1/cache/stats?source=companies_registry", nil)
		req.Header.Set("Authorization", "Bearer "+adminToken(t, adminKey))
		w := httptest.NewRecorder()
		router.ServeHTTP(w, req)

		require.Equal(t, http.StatusOK, w.Code)
		var stats store.Stats
		require.NoError(t, json.NewDecoder(w.Body).Decode(&stats))
		assert.Equal(t, 3, stats.Total)
	})

	t.Run("stats for an unknown source is a 400", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/v1/cache/stats?source=bogus", nil)
		req.Header.Set("Authorization", "Bearer "+adminToken(t, adminKey))
		w := httptest.NewRecorder()
		router.ServeHTTP(w, req)
		assert.Equal(t, http.StatusBadRequest, w.Code)
	})

	t.Run("bulk refresh", func(t *testing.T) {
		body := bytes.NewReader([]byte(`{"source":"vat_dealer_registry","limit":50}`))
		req := httptest.NewRequest(http.MethodPost, "/v1/cache/refresh", body)
		req.Header.Set("Authorization", "Bearer "+adminToken(t, adminKey))
		w := httptest.NewRecorder()
		router.ServeHTTP(w, req)

		require.Equal(t, http.StatusOK, w.Code)
		var resp map[string]any
		require.NoError(t, json.NewDecoder(w.Body).Decode(&resp))
		assert.EqualValues(t, 7, resp["refreshed"])
	})

	t.Run("bulk refresh rejects a zero limit", func(t *testing.T) {
		body := bytes.NewReader([]byte(`{"source":"vat_dealer_registry","limit":0}`))
		req := httptest.NewRequest(http.MethodPost, "/v1/cache/refresh", body)
		req.Header.Set("Authorization", "Bearer "+adminToken(t, adminKey))
		w := httptest.NewRecorder()
		router.ServeHTTP(w, req)
		assert.Equal(t, http.StatusBadRequest, w.Code)
	})
}

func TestHealthz(t *testing.T) {
	resolver := &fakeResolver{}
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	engine := risk.NewEngine(risk.DefaultWeights())

	newRouterWithChecks := func(checks map[string]HealthCheck) http.Handler {
		resolver.profile = &models.BusinessProfile{BusinessID: "512345678"}
		return NewRouter(RouterConfig{
			Profiles:     NewProfileHandler(resolver, engine, logger),
			Risk:         NewRiskHandler(engine, logger),
			Admin:        NewAdminHandler(resolver, logger),
			AdminJWTKey:  adminKey,
			HealthChecks: checks,
		})
	}

	t.Run("healthy", func(t *testing.T) {
		router := newRouterWithChecks(map[string]HealthCheck{
			"cache": func(context.Context) error { return nil },
		})
		w := httptest.NewRecorder()
		router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/healthz", nil))
		assert.Equal(t, http.StatusOK, w.Code)
	})

	t.Run("degraded dependency reports 503", func(t *testing.T) {
		router := newRouterWithChecks(map[string]HealthCheck{
			"cache": func(context.Context) error { return errors.New("connection refused") },
		})
		w := httptest.NewRecorder()
		router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/healthz", nil))
		assert.Equal(t, http.StatusServiceUnavailable, w.Code)
	})
}
