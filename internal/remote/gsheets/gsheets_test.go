package gsheets

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"

	"github.com/dmitrijs2005/delegsync/internal/common"
	"github.com/dmitrijs2005/delegsync/internal/remote"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"google.golang.org/api/googleapi"
	"google.golang.org/api/option"
	"google.golang.org/api/sheets/v4"
)

type fakeSheets struct {
	mu       sync.Mutex
	requests []string
	bodies   map[string]string
}

func (f *fakeSheets) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	body, _ := io.ReadAll(r.Body)
	f.mu.Lock()
	key := r.Method + " " + r.URL.Path
	f.requests = append(f.requests, key)
	f.bodies[key] = string(body)
	f.mu.Unlock()

	w.Header().Set("Content-Type", "application/json")
	switch {
	case r.Method == http.MethodGet && r.URL.Path == "/v4/spreadsheets/sid":
		_, _ = io.WriteString(w, `{"sheets":[{"properties":{"title":"requests"}},{"properties":{"title":"config"}}]}`)
	case r.Method == http.MethodGet && r.URL.Path == "/v4/spreadsheets/sid/values/'requests'":
		_, _ = io.WriteString(w, `{"range":"requests!A1:C3","majorDimension":"ROWS","values":[["uuid","date","total"],["","2025-01-15",480],["r-2"]]}`)
	case r.Method == http.MethodGet && r.URL.Path == "/v4/spreadsheets/sid/values/'missing'":
		w.WriteHeader(http.StatusBadRequest)
		_, _ = io.WriteString(w, `{"error":{"code":400,"message":"Unable to parse range: 'missing'","status":"INVALID_ARGUMENT"}}`)
	case r.Method == http.MethodGet && r.URL.Path == "/v4/spreadsheets/throttled":
		w.WriteHeader(http.StatusTooManyRequests)
		_, _ = io.WriteString(w, `{"error":{"code":429,"message":"Quota exceeded","status":"RESOURCE_EXHAUSTED"}}`)
	default:
		_, _ = io.WriteString(w, `{}`)
	}
}

func newTestBackend(t *testing.T, id string) (*Backend, *fakeSheets) {
	t.Helper()
	fake := &fakeSheets{bodies: map[string]string{}}
	srv := httptest.NewServer(fake)
	t.Cleanup(srv.Close)

	b, err := New(context.Background(), id, "",
		option.WithEndpoint(srv.URL+"/"),
		option.WithoutAuthentication(),
		option.WithHTTPClient(srv.Client()),
	)
	require.NoError(t, err)
	return b, fake
}

func TestNew_RequiresSpreadsheetID(t *testing.T) {
	_, err := New(context.Background(), " ", "")
	kind, ok := common.ConfigKind(err)
	require.True(t, ok)
	assert.Equal(t, common.ConfigMissingDataset, kind)
}

func TestNew_ServiceError(t *testing.T) {
	orig := newService
	t.Cleanup(func() { newService = orig })
	newService = func(ctx context.Context, opts ...option.ClientOption) (*sheets.Service, error) {
		return nil, errors.New("no credentials")
	}

	_, err := New(context.Background(), "sid", "/nope.json")
	kind, ok := common.ConfigKind(err)
	require.True(t, ok)
	assert.Equal(t, common.ConfigInvalidCredentials, kind)
}

func TestListAndRead(t *testing.T) {
	b, _ := newTestBackend(t, "sid")
	ctx := context.Background()

	names, err := b.ListSheets(ctx)
	require.NoError(t, err)
	assert.Equal(t, []string{"requests", "config"}, names)

	values, err := b.ReadSheet(ctx, "requests")
	require.NoError(t, err)
	assert.Equal(t, [][]string{{"uuid", "date", "total"}, {"", "2025-01-15", "480"}, {"r-2"}}, values)
}

func TestReadMissingSheet(t *testing.T) {
	b, _ := newTestBackend(t, "sid")
	_, err := b.ReadSheet(context.Background(), "missing")
	kind, ok := common.ConfigKind(err)
	require.True(t, ok)
	assert.Equal(t, common.ConfigNotFound, kind)
}

func TestThrottledIsTransient(t *testing.T) {
	b, _ := newTestBackend(t, "throttled")
	_, err := b.ListSheets(context.Background())
	require.ErrorIs(t, err, common.ErrRateLimited)
}

func TestWrites(t *testing.T) {
	b, fake := newTestBackend(t, "sid")
	ctx := context.Background()

	require.NoError(t, b.CreateSheet(ctx, "delegates", []string{"uuid", "name"}))
	require.NoError(t, b.AppendRows(ctx, "requests", [][]string{{"r-3", "2025-01-17"}}))
	require.NoError(t, b.UpdateCells(ctx, "requests", []remote.Cell{{Row: 1, Col: 0, Value: "r-1"}, {Row: 0, Col: 27, Value: "note"}}))

	fake.mu.Lock()
	defer fake.mu.Unlock()
	require.Equal(t, []string{
		"POST /v4/spreadsheets/sid:batchUpdate",
		"PUT /v4/spreadsheets/sid/values/'delegates'!A1",
		"POST /v4/spreadsheets/sid/values/'requests'!A1:append",
		"POST /v4/spreadsheets/sid/values:batchUpdate",
	}, fake.requests)

	assert.Contains(t, fake.bodies["POST /v4/spreadsheets/sid:batchUpdate"], `"title":"delegates"`)

	var batch struct {
		Data []struct {
			Range  string     `json:"range"`
			Values [][]string `json:"values"`
		} `json:"data"`
		ValueInputOption string `json:"valueInputOption"`
	}
	require.NoError(t, json.Unmarshal([]byte(fake.bodies["POST /v4/spreadsheets/sid/values:batchUpdate"]), &batch))
	assert.Equal(t, "RAW", batch.ValueInputOption)
	require.Len(t, batch.Data, 2)
	assert.Equal(t, "'requests'!A2", batch.Data[0].Range)
	assert.Equal(t, "'requests'!AB1", batch.Data[1].Range)
	assert.Equal(t, [][]string{{"note"}}, batch.Data[1].Values)
}

func TestColumnLetters(t *testing.T) {
	cases := map[int]string{0: "A", 1: "B", 25: "Z", 26: "AA", 27: "AB", 51: "AZ", 52: "BA", 701: "ZZ", 702: "AAA"}
	for in, want := range cases {
		assert.Equal(t, want, ColumnLetters(in), "col %d", in)
	}
	assert.Equal(t, "C10", A1(9, 2))
}

func TestMapError(t *testing.T) {
	kindOf := func(err error) common.ConfigErrorKind {
		k, _ := common.ConfigKind(err)
		return k
	}

	assert.Nil(t, mapError(nil))
	plain := errors.New("dial tcp: refused")
	assert.Equal(t, plain, mapError(plain))

	assert.ErrorIs(t, mapError(&googleapi.Error{Code: 429}), common.ErrRateLimited)
	assert.ErrorIs(t, mapError(&googleapi.Error{Code: 403, Errors: []googleapi.ErrorItem{{Reason: "userRateLimitExceeded"}}}), common.ErrRateLimited)
	assert.ErrorIs(t, mapError(&googleapi.Error{Code: 503}), common.ErrRemoteBusy)

	assert.Equal(t, common.ConfigInvalidCredentials, kindOf(mapError(&googleapi.Error{Code: 401})))
	assert.Equal(t, common.ConfigAPIDisabled, kindOf(mapError(&googleapi.Error{
		Code: 403, Message: "Google Sheets API has not been used in project 42 before or it is disabled."})))
	assert.Equal(t, common.ConfigAPIDisabled, kindOf(mapError(&googleapi.Error{
		Code: 403, Errors: []googleapi.ErrorItem{{Reason: "accessNotConfigured"}}})))
	assert.Equal(t, common.ConfigPermissionDenied, kindOf(mapError(&googleapi.Error{
		Code: 403, Message: "The caller does not have permission"})))
	assert.Equal(t, common.ConfigNotFound, kindOf(mapError(&googleapi.Error{Code: 404})))

	other := &googleapi.Error{Code: 400, Message: "Invalid value"}
	assert.False(t, strings.Contains(mapError(other).Error(), "configuration"))
}
