package sheets

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestServer(t *testing.T, handler http.HandlerFunc) (*httptest.Server, *Client) {
	t.Helper()
	mux := http.NewServeMux()
	mux.HandleFunc("/token", func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(map[string]any{
			"access_token": "test-token",
			"expires_in":   3600,
		})
	})
	mux.HandleFunc("/", handler)
	server := httptest.NewServer(mux)
	t.Cleanup(server.Close)
	return server, NewClientWithBase(server.URL, server.URL+"/token", nil)
}

func TestBatchGetParsesRaggedRows(t *testing.T) {
	_, client := newTestServer(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "Bearer test-token", r.Header.Get("Authorization"))
		assert.Contains(t, r.URL.RawQuery, "ranges=")
		json.NewEncoder(w).Encode(map[string]any{
			"valueRanges": []map[string]any{
				{"values": [][]any{{"1200"}, {}, {"300.5"}}},
				{"values": [][]any{{"Alpha", "extra"}}},
			},
		})
	})

	blocks, err := client.BatchGet(context.Background(), "sheet-id", "DengiBot", []string{"B3:B1000", "D3:D1000"})
	require.NoError(t, err)
	require.Len(t, blocks, 2)
	assert.Equal(t, RangeBlock{{"1200"}, {}, {"300.5"}}, blocks[0])
	assert.Equal(t, RangeBlock{{"Alpha", "extra"}}, blocks[1])
}

func TestBatchGetPadsMissingValueRanges(t *testing.T) {
	_, client := newTestServer(t, func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(map[string]any{
			"valueRanges": []map[string]any{
				{"values": [][]any{{"x"}}},
			},
		})
	})

	blocks, err := client.BatchGet(context.Background(), "sheet-id", "S", []string{"A1:A2", "B1:B2", "C1:C2"})
	require.NoError(t, err)
	require.Len(t, blocks, 3)
	assert.Equal(t, RangeBlock{{"x"}}, blocks[0])
	assert.Empty(t, blocks[1])
	assert.Empty(t, blocks[2])
}

func TestGetCellEmptyWhenNoValues(t *testing.T) {
	_, client := newTestServer(t, func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(map[string]any{"valueRanges": []map[string]any{{}}})
	})

	value, err := client.GetCell(context.Background(), "sheet-id", "DengiBot", "D6")
	require.NoError(t, err)
	assert.Equal(t, "", value)
}

func TestNotFoundMapsToNotFoundError(t *testing.T) {
	_, client := newTestServer(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
	})

	_, err := client.GetRange(context.Background(), "missing-id", "S", "A1:B2")
	require.Error(t, err)
	assert.True(t, IsNotFound(err))
	assert.False(t, IsTransient(err))
}

func TestServerErrorMapsToTransient(t *testing.T) {
	_, client := newTestServer(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
	})

	_, err := client.GetRange(context.Background(), "sheet-id", "S", "A1:B2")
	require.Error(t, err)
	assert.True(t, IsTransient(err))
}

func TestAuthRejectionDropsCachedToken(t *testing.T) {
	var calls atomic.Int64
	_, client := newTestServer(t, func(w http.ResponseWriter, r *http.Request) {
		if calls.Add(1) == 1 {
			w.WriteHeader(http.StatusUnauthorized)
			return
		}
		json.NewEncoder(w).Encode(map[string]any{
			"valueRanges": []map[string]any{{"values": [][]any{{"ok"}}}},
		})
	})

	_, err := client.GetRange(context.Background(), "sheet-id", "S", "A1")
	require.Error(t, err)
	assert.True(t, IsTransient(err))

	// The retry mints a new token and succeeds.
	value, err := client.GetCell(context.Background(), "sheet-id", "S", "A1")
	require.NoError(t, err)
	assert.Equal(t, "ok", value)
}

func TestUpdateCellSendsUserEnteredValue(t *testing.T) {
	var gotBody map[string]any
	var gotQuery string
	_, client := newTestServer(t, func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, http.MethodPut, r.Method)
		gotQuery = r.URL.RawQuery
		require.NoError(t, json.NewDecoder(r.Body).Decode(&gotBody))
		w.WriteHeader(http.StatusOK)
		w.Write([]byte("{}"))
	})

	err := client.UpdateCell(context.Background(), "sheet-id", "DengiBot", "F1", "01.09.2025")
	require.NoError(t, err)
	assert.Contains(t, gotQuery, "valueInputOption=USER_ENTERED")
	assert.Equal(t, map[string]any{"values": []any{[]any{"01.09.2025"}}}, gotBody)
}

func TestRetryStopsOnPermanentError(t *testing.T) {
	var attempts int
	err := Retry(context.Background(), func() error {
		attempts++
		return &NotFoundError{Resource: "spreadsheet x"}
	})
	require.Error(t, err)
	assert.True(t, IsNotFound(err))
	assert.Equal(t, 1, attempts)
}

func TestRetryRecoversFromTransientError(t *testing.T) {
	var attempts int
	err := Retry(context.Background(), func() error {
		attempts++
		if attempts < 3 {
			return &TransientError{Op: "get", Err: errors.New("connection reset")}
		}
		return nil
	})
	require.NoError(t, err)
	assert.Equal(t, 3, attempts)
}

func TestRangeRefQuotesSheetName(t *testing.T) {
	assert.Equal(t, "'DengiBot'!B3:B1000", rangeRef("DengiBot", "B3:B1000"))
	assert.Equal(t, "'It''s'!A1", rangeRef("It's", "A1"))
	assert.Equal(t, "A1", rangeRef("", "A1"))
}

func TestToRangeBlockCoercesNonStrings(t *testing.T) {
	block := toRangeBlock([][]any{{"a", float64(12), nil}})
	require.Len(t, block, 1)
	assert.Equal(t, []string{"a", "12", ""}, block[0])
}

func TestTransientErrorWrapping(t *testing.T) {
	inner := errors.New("boom")
	err := fmt.Errorf("context: %w", &TransientError{Op: "get", Err: inner})
	assert.True(t, IsTransient(err))
	assert.True(t, errors.Is(err, inner))
}
