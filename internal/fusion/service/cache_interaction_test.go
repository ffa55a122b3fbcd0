package service

//go:generate mockgen -source=../store/store.go -destination=../store/mocks/mocks.go -package=mocks Cache

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/stretchr/testify/suite"
	"go.uber.org/mock/gomock"

	"trustcheck/internal/fusion/sources"
	"trustcheck/internal/fusion/store"
	"trustcheck/internal/fusion/store/mocks"
	"trustcheck/internal/platform/config"
	"trustcheck/internal/resilience"
	"trustcheck/pkg/domain"
)

// CacheInteractionSuite pins the cache protocol: write-back only after a
// successful fetch, failure recording never touching payloads, fresh hits
// never reaching the adapter.
type CacheInteractionSuite struct {
	suite.Suite
	ctrl    *gomock.Controller
	cache   *mocks.MockCache
	adapter *fakeAdapter
	svc     *Service
	now     time.Time
}

func TestCacheInteractionSuite(t *testing.T) {
	suite.Run(t, new(CacheInteractionSuite))
}

func (s *CacheInteractionSuite) SetupTest() {
	s.ctrl = gomock.NewController(s.T())
	s.cache = mocks.NewMockCache(s.ctrl)
	s.adapter = &fakeAdapter{
		source:  domain.SourceCompaniesRegistry,
		payload: json.RawMessage(`{"legal_name":"Acme Ltd","status":"active"}`),
	}
	s.now = time.Now()

	registry := sources.NewRegistry()
	s.Require().NoError(registry.Register(s.adapter))

	s.svc = New(
		s.cache,
		registry,
		resilience.NewLimiterRegistry(nil),
		config.DefaultSources(),
		config.RetryConfig{MaxRetries: 0, InitialDelay: time.Millisecond},
		WithLogger(slog.New(slog.NewTextHandler(io.Discard, nil))),
		WithClock(func() time.Time { return s.now }),
	)
}

func (s *CacheInteractionSuite) TearDownTest() {
	s.ctrl.Finish()
}

func (s *CacheInteractionSuite) TestSuccessfulFetchWritesBack() {
	source := domain.SourceCompaniesRegistry
	id := domain.BusinessID("512345678")

	s.cache.EXPECT().Get(gomock.Any(), source, id).Return(nil, store.ErrNotFound)
	s.cache.EXPECT().Upsert(gomock.Any(), source, id, gomock.Any()).Return(nil)

	_, prov, err := s.svc.resolvePayload(context.Background(), "resolve", domain.FactIdentity, id, false)
	s.NoError(err)
	s.Equal(source, prov.DataSource)
	s.Equal(1, s.adapter.callCount())
}

func (s *CacheInteractionSuite) TestFreshHitNeverFetches() {
	source := domain.SourceCompaniesRegistry
	id := domain.BusinessID("512345678")

	s.cache.EXPECT().Get(gomock.Any(), source, id).Return(&store.Entry{
		Source:      source,
		BusinessID:  id,
		Payload:     s.adapter.payload,
		UpdatedAt:   s.now.Add(-time.Hour),
		LastFetchOK: true,
	}, nil)

	payload, prov, err := s.svc.resolvePayload(context.Background(), "resolve", domain.FactIdentity, id, false)
	s.NoError(err)
	s.JSONEq(string(s.adapter.payload), string(payload))
	s.True(prov.CacheHit)
	s.Zero(s.adapter.callCount(), "fresh cache entry short-circuits the fetch")
}

func (s *CacheInteractionSuite) TestFetchFailureRecordsButNeverUpserts() {
	source := domain.SourceCompaniesRegistry
	id := domain.BusinessID("512345678")
	s.adapter.err = sources.NewSourceError(sources.ErrorTransient, source.String(), "down", nil)

	s.cache.EXPECT().Get(gomock.Any(), source, id).Return(nil, store.ErrNotFound)
	s.cache.EXPECT().RecordFailure(gomock.Any(), source, id).Return(nil)

	_, _, err := s.svc.resolvePayload(context.Background(), "resolve", domain.FactIdentity, id, false)
	s.Error(err)
}

func (s *CacheInteractionSuite) TestNoRecordAnswerIsNotAFailure() {
	source := domain.SourceCompaniesRegistry
	id := domain.BusinessID("512345678")
	s.adapter.err = sources.NewSourceError(sources.ErrorNotFound, source.String(), "no record", nil)

	// No RecordFailure, no Upsert: the source answered definitively.
	s.cache.EXPECT().Get(gomock.Any(), source, id).Return(nil, store.ErrNotFound)

	_, _, err := s.svc.resolvePayload(context.Background(), "resolve", domain.FactIdentity, id, false)
	s.ErrorIs(err, errNoRecord)
}
