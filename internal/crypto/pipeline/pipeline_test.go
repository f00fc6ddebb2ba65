package pipeline

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"cryptoetl/internal/crypto/model"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"
)

// MockFetcher implements Fetcher for testing
type MockFetcher struct {
	mock.Mock
}

func (m *MockFetcher) GetSimplePrice(ctx context.Context, assetID, currency string) (model.RawPriceSnapshot, error) {
	args := m.Called(ctx, assetID, currency)
	raw, _ := args.Get(0).(model.RawPriceSnapshot)
	return raw, args.Error(1)
}

// MockLoader implements Loader for testing
type MockLoader struct {
	mock.Mock
}

func (m *MockLoader) InsertPriceRecord(ctx context.Context, rec model.PriceRecord) error {
	args := m.Called(ctx, rec)
	return args.Error(0)
}

var testOptions = Options{AssetID: "bitcoin", Currency: "usd", RunTimeout: 5 * time.Second}

func newTestPipeline(f Fetcher, l Loader) (*Pipeline, *observer.ObservedLogs) {
	core, logs := observer.New(zapcore.DebugLevel)
	return New(testOptions, f, l, zap.New(core)), logs
}

func snapshot(fields map[string]any) model.RawPriceSnapshot {
	return model.RawPriceSnapshot{"bitcoin": fields}
}

func states(logs *observer.ObservedLogs) []string {
	var out []string
	for _, entry := range logs.All() {
		if s, ok := entry.ContextMap()["state"].(string); ok {
			out = append(out, s)
		}
	}
	return out
}

// go test -v --run TestRunOnceLoadsRecord
func TestRunOnceLoadsRecord(t *testing.T) {
	fetcher := new(MockFetcher)
	loader := new(MockLoader)

	fetcher.On("GetSimplePrice", mock.Anything, "bitcoin", "usd").Return(snapshot(map[string]any{
		"usd":            json.Number("65000.5"),
		"usd_market_cap": json.Number("1.28e12"),
		"usd_24h_vol":    json.Number("3.1e10"),
	}), nil).Once()

	want := model.PriceRecord{AssetID: "bitcoin", PriceUSD: 65000.5, MarketCapUSD: 1.28e12, Volume24hUSD: 3.1e10}
	loader.On("InsertPriceRecord", mock.Anything, want).Return(nil).Once()

	p, logs := newTestPipeline(fetcher, loader)
	require.NoError(t, p.RunOnce(context.Background()))

	fetcher.AssertExpectations(t)
	loader.AssertExpectations(t)
	assert.Equal(t, []string{"PENDING", "FETCHED", "TRANSFORMED", "LOADED"}, states(logs))
}

// go test -v --run TestRunOnceFetchFailure
func TestRunOnceFetchFailure(t *testing.T) {
	fetcher := new(MockFetcher)
	loader := new(MockLoader)

	fetcher.On("GetSimplePrice", mock.Anything, "bitcoin", "usd").
		Return(nil, &model.FetchError{Cause: model.FetchCauseStatus, StatusCode: 429, Endpoint: "http://api/simple/price"}).Once()

	p, logs := newTestPipeline(fetcher, loader)
	err := p.RunOnce(context.Background())

	var fe *model.FetchError
	require.True(t, errors.As(err, &fe))
	assert.Equal(t, 429, fe.StatusCode)
	loader.AssertNotCalled(t, "InsertPriceRecord", mock.Anything, mock.Anything)

	failed := logs.FilterMessage("run failed").All()
	require.Len(t, failed, 1)
	assert.Equal(t, "PENDING", failed[0].ContextMap()["from"])
	assert.Equal(t, "fetch", failed[0].ContextMap()["stage"])
	assert.Equal(t, []string{"PENDING", "FAILED"}, states(logs))
}

// go test -v --run TestRunOnceSchemaFailure
func TestRunOnceSchemaFailure(t *testing.T) {
	fetcher := new(MockFetcher)
	loader := new(MockLoader)

	fetcher.On("GetSimplePrice", mock.Anything, "bitcoin", "usd").Return(snapshot(map[string]any{
		"usd":            json.Number("65000.5"),
		"usd_market_cap": json.Number("1.28e12"),
	}), nil).Once()

	p, logs := newTestPipeline(fetcher, loader)
	err := p.RunOnce(context.Background())

	var se *model.SchemaError
	require.True(t, errors.As(err, &se))
	assert.Equal(t, model.SchemaMissing, se.Kind)
	assert.Equal(t, "usd_24h_vol", se.Field)
	loader.AssertNotCalled(t, "InsertPriceRecord", mock.Anything, mock.Anything)
	assert.Equal(t, []string{"PENDING", "FETCHED", "FAILED"}, states(logs))
}

func TestRunOnceLoadFailure(t *testing.T) {
	fetcher := new(MockFetcher)
	loader := new(MockLoader)

	fetcher.On("GetSimplePrice", mock.Anything, "bitcoin", "usd").Return(snapshot(map[string]any{
		"usd": 1.0, "usd_market_cap": 2.0, "usd_24h_vol": 3.0,
	}), nil).Once()
	loader.On("InsertPriceRecord", mock.Anything, mock.Anything).
		Return(&model.LoadError{Stage: model.LoadStageCommit, Err: errors.New("connection reset")}).Once()

	p, logs := newTestPipeline(fetcher, loader)
	err := p.RunOnce(context.Background())

	var le *model.LoadError
	require.True(t, errors.As(err, &le))
	assert.Equal(t, model.LoadStageCommit, le.Stage)
	assert.Equal(t, []string{"PENDING", "FETCHED", "TRANSFORMED", "FAILED"}, states(logs))
}

func TestRunOnceCancelledBeforeLoad(t *testing.T) {
	fetcher := new(MockFetcher)
	loader := new(MockLoader)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	fetcher.On("GetSimplePrice", mock.Anything, "bitcoin", "usd").
		Run(func(mock.Arguments) { cancel() }).
		Return(snapshot(map[string]any{"usd": 1.0, "usd_market_cap": 2.0, "usd_24h_vol": 3.0}), nil).Once()

	p, _ := newTestPipeline(fetcher, loader)
	err := p.RunOnce(ctx)

	assert.ErrorIs(t, err, context.Canceled)
	loader.AssertNotCalled(t, "InsertPriceRecord", mock.Anything, mock.Anything)
}

func TestRunOnceAppliesRunTimeout(t *testing.T) {
	fetcher := new(MockFetcher)
	loader := new(MockLoader)

	fetcher.On("GetSimplePrice", mock.MatchedBy(func(ctx context.Context) bool {
		_, ok := ctx.Deadline()
		return ok
	}), "bitcoin", "usd").Return(nil, &model.FetchError{Cause: model.FetchCauseTransport}).Once()

	p, _ := newTestPipeline(fetcher, loader)
	require.Error(t, p.RunOnce(context.Background()))
	fetcher.AssertExpectations(t)
}

func TestRunOnceKeepsNoStateBetweenRuns(t *testing.T) {
	fetcher := new(MockFetcher)
	loader := new(MockLoader)

	fetcher.On("GetSimplePrice", mock.Anything, "bitcoin", "usd").
		Return(snapshot(map[string]any{"usd": 1.0, "usd_market_cap": 2.0, "usd_24h_vol": 3.0}), nil).Once()
	fetcher.On("GetSimplePrice", mock.Anything, "bitcoin", "usd").
		Return(nil, &model.FetchError{Cause: model.FetchCauseStatus, StatusCode: 500}).Once()
	loader.On("InsertPriceRecord", mock.Anything, mock.Anything).Return(nil).Once()

	p, logs := newTestPipeline(fetcher, loader)
	require.NoError(t, p.RunOnce(context.Background()))
	require.Error(t, p.RunOnce(context.Background()))

	loader.AssertNumberOfCalls(t, "InsertPriceRecord", 1)
	runs := map[uint64]bool{}
	for _, entry := range logs.FilterMessage("run started").All() {
		runs[entry.ContextMap()["run"].(uint64)] = true
	}
	assert.Equal(t, map[uint64]bool{1: true, 2: true}, runs)
}
