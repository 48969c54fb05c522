package postgrest

import (
	"bytes"
	"context"
	"errors"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"halya/internal/core"
	"halya/internal/log"
	"halya/internal/store"
)

func newTestClient(t *testing.T, h http.HandlerFunc) *Client {
	t.Helper()
	srv := httptest.NewServer(h)
	t.Cleanup(srv.Close)
	c, err := NewClient(ClientConfig{BaseURL: srv.URL, APIKey: "anon-key"})
	require.NoError(t, err)
	return c
}

func TestNewClientRequiresConfig(t *testing.T) {
	_, err := NewClient(ClientConfig{BaseURL: "https://example.supabase.co"})
	assert.ErrorIs(t, err, store.ErrNotConfigured)

	_, err = NewClient(ClientConfig{BaseURL: "not a url", APIKey: "k"})
	assert.Error(t, err)
}

func TestEncode(t *testing.T) {
	q := Encode(store.PaymentsByResidentQuery("A001"))
	assert.Equal(t, "id,resident_id,description,amount,year,payment_date,sheet_name", q.Get("select"))
	assert.Equal(t, "eq.A001", q.Get("resident_id"))
	assert.Equal(t, "year.desc.nullslast,description.asc", q.Get("order"))

	q = Encode(store.AlleysQuery())
	assert.Equal(t, "alley", q.Get("select"))
	assert.Equal(t, "alley.asc", q.Get("order"))

	q = Encode(store.Query{Table: "residents"})
	assert.Equal(t, "*", q.Get("select"))
}

func TestAlleyValues(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/rest/v1/residents", r.URL.Path)
		assert.Equal(t, "anon-key", r.Header.Get("apikey"))
		assert.Equal(t, "Bearer anon-key", r.Header.Get("Authorization"))
		assert.NotEmpty(t, r.Header.Get("X-Request-Id"))
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`[{"alley":"A"},{"alley":null},{"alley":"A"},{"alley":"B"},{"alley":""}]`))
	})

	got, err := c.AlleyValues(context.Background())
	require.NoError(t, err)
	assert.Equal(t, []string{"A", "A", "B", ""}, got)
	assert.Equal(t, []string{"A", "B"}, core.DistinctAlleys(got))
}

func TestResidentsByAlley(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "eq.A", r.URL.Query().Get("alley"))
		assert.Equal(t, "house_number.asc,resident_id.asc", r.URL.Query().Get("order"))
		_, _ = w.Write([]byte(`[{"resident_id":"A001","resident_name":"Ali","alley":"A","house_number":1},{"resident_id":"A002","resident_name":"Siti","alley":"A","house_number":2}]`))
	})

	got, err := c.ResidentsByAlley(context.Background(), "A")
	require.NoError(t, err)
	require.Len(t, got, 2)
	assert.Equal(t, "A001", got[0].ResidentID)
	assert.Equal(t, 2, got[1].HouseNumber)
}

func TestPaymentsByResident(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/rest/v1/payments", r.URL.Path)
		_, _ = w.Write([]byte(`[
			{"id":1,"resident_id":"R1","description":"Annual Fee 2024","amount":50.00,"year":2024,"payment_date":null},
			{"id":2,"resident_id":"R1","description":"Guard Fee","amount":"30.00","year":2023,"payment_date":"2023-05-01"}
		]`))
	})

	got, err := c.PaymentsByResident(context.Background(), "R1")
	require.NoError(t, err)
	require.Len(t, got, 2)
	s := core.ComputeSummary(got)
	assert.True(t, s.Total.Equal(decimal.NewFromInt(80)))
	assert.True(t, s.Average.Equal(decimal.NewFromInt(40)))
}

func TestEmptyResultIsNotNil(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`[]`))
	})
	got, err := c.PaymentsByResident(context.Background(), "nobody")
	require.NoError(t, err)
	assert.NotNil(t, got)
	assert.Empty(t, got)

	_, err = c.Resident(context.Background(), "nobody")
	assert.ErrorIs(t, err, core.ErrResidentNotFound)
}

func TestAPIError(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadRequest)
		_, _ = w.Write([]byte(`{"code":"42703","message":"column residents.alley does not exist","details":null,"hint":null}`))
	})

	_, err := c.AlleyValues(context.Background())
	require.Error(t, err)
	assert.True(t, IsAPIError(err, http.StatusBadRequest))
	var apiErr *APIError
	require.True(t, errors.As(err, &apiErr))
	assert.Equal(t, "42703", apiErr.Code)
	assert.Contains(t, err.Error(), "does not exist")
}

func TestNonJSONError(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "upstream down", http.StatusBadGateway)
	})
	_, err := c.ResidentsByAlley(context.Background(), "A")
	assert.True(t, IsAPIError(err, http.StatusBadGateway))
	assert.Contains(t, err.Error(), "upstream down")
}

func TestContextTimeout(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-r.Context().Done():
		case <-time.After(2 * time.Second):
		}
	})
	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	_, err := c.AlleyValues(ctx)
	assert.ErrorIs(t, err, context.DeadlineExceeded)
}

func TestParseContentRange(t *testing.T) {
	tests := []struct {
		header   string
		returned int
		total    int
		ok       bool
	}{
		{"0-999/1500", 1000, 1500, true},
		{"0-2/3", 3, 3, true},
		{"*/0", 0, 0, true},
		{"0-2/*", 0, 0, false},
		{"", 0, 0, false},
		{"garbage", 0, 0, false},
		{"5-1/10", 0, 0, false},
	}
	for _, tt := range tests {
		returned, total, ok := ParseContentRange(tt.header)
		assert.Equal(t, tt.ok, ok, tt.header)
		assert.Equal(t, tt.returned, returned, tt.header)
		assert.Equal(t, tt.total, total, tt.header)
	}
}

func TestAlleyValuesWarnsWhenRowLimitTruncates(t *testing.T) {
	var logs bytes.Buffer
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "count=exact", r.Header.Get("Prefer"))
		w.Header().Set("Content-Type", "application/json")
		w.Header().Set("Content-Range", "0-1/1500")
		_, _ = w.Write([]byte(`[{"alley":"A"},{"alley":"B"}]`))
	}))
	t.Cleanup(srv.Close)
	c, err := NewClient(ClientConfig{
		BaseURL: srv.URL,
		APIKey:  "anon-key",
		Logger:  log.New(log.Config{Level: slog.LevelInfo, Format: "json", Output: &logs}),
	})
	require.NoError(t, err)

	got, err := c.AlleyValues(context.Background())

	require.NoError(t, err)
	assert.Equal(t, []string{"A", "B"}, got)
	assert.Contains(t, logs.String(), "Result truncated by server row limit")
	assert.Contains(t, logs.String(), `"total":1500`)
}

func TestCompleteResultDoesNotWarn(t *testing.T) {
	var logs bytes.Buffer
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Range", "0-1/2")
		_, _ = w.Write([]byte(`[{"alley":"A"},{"alley":"B"}]`))
	}))
	t.Cleanup(srv.Close)
	c, err := NewClient(ClientConfig{
		BaseURL: srv.URL,
		APIKey:  "anon-key",
		Logger:  log.New(log.Config{Level: slog.LevelInfo, Format: "json", Output: &logs}),
	})
	require.NoError(t, err)

	_, err = c.AlleyValues(context.Background())

	require.NoError(t, err)
	assert.Empty(t, logs.String())
}
