package scryfall

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testClient(baseURL string) *Client {
	config := DefaultConfig()
	config.BaseURL = baseURL
	config.RequestsPerSec = 0
	config.InitialBackoff = time.Millisecond
	config.MaxBackoff = 5 * time.Millisecond
	return NewClient(config)
}

func TestCardsByName_Batches(t *testing.T) {
	var requests atomic.Int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		requests.Add(1)
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "/cards/collection", r.URL.Path)
		assert.Equal(t, "application/json", r.Header.Get("Content-Type"))

		var req collectionRequest
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		assert.LessOrEqual(t, len(req.Identifiers), MaxBatchSize)

		resp := map[string]any{"data": []any{}, "not_found": []any{}}
		data := []map[string]any{}
		notFound := []map[string]string{}
		for _, id := range req.Identifiers {
			if id.Name == "Missing Card" {
				notFound = append(notFound, map[string]string{"name": id.Name})
				continue
			}
			data = append(data, map[string]any{
				"id": "id-" + id.Name, "name": id.Name, "cmc": 2.0,
				"type_line": "Instant", "oracle_text": "Draw a card.",
				"color_identity": []string{"U"},
			})
		}
		resp["data"] = data
		resp["not_found"] = notFound
		_ = json.NewEncoder(w).Encode(resp)
	}))
	defer server.Close()

	names := make([]string, 0, 80)
	for i := 0; i < 79; i++ {
		names = append(names, fmt.Sprintf("Card %d", i))
	}
	names = append(names, "Missing Card")

	found, notFound, err := testClient(server.URL).CardsByName(context.Background(), names)
	require.NoError(t, err)
	assert.Equal(t, int32(2), requests.Load())
	assert.Len(t, found, 79)
	assert.Equal(t, []string{"Missing Card"}, notFound)
	assert.Equal(t, "Card 0", found[0].Name)
	assert.Equal(t, 2, found[0].CMC())
	assert.Equal(t, []string{"U"}, found[0].ColorIdentity)
}

func TestCardsByName_Empty(t *testing.T) {
	found, notFound, err := testClient("http://127.0.0.1:0").CardsByName(context.Background(), nil)
	require.NoError(t, err)
	assert.Empty(t, found)
	assert.Empty(t, notFound)
}

func TestBulkDownload(t *testing.T) {
	mux := http.NewServeMux()
	server := httptest.NewServer(mux)
	defer server.Close()

	mux.HandleFunc("/bulk-data", func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprintf(w, `{"data": [
			{"type": "default_cards", "download_uri": "%[1]s/files/default.json"},
			{"type": "oracle_cards", "download_uri": "%[1]s/files/oracle.json"}
		]}`, server.URL)
	})
	mux.HandleFunc("/files/oracle.json", func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, `[
			{"id": "a", "name": "Llanowar Elves", "cmc": 1, "type_line": "Creature — Elf Druid",
			 "oracle_text": "{T}: Add {G}.", "color_identity": ["G"]},
			{"id": "b", "name": "Forest", "cmc": 0, "type_line": "Basic Land — Forest", "color_identity": ["G"]}
		]`)
	})

	client := testClient(server.URL)
	bulk, err := client.BulkDataByType(context.Background(), "oracle_cards")
	require.NoError(t, err)
	assert.Equal(t, server.URL+"/files/oracle.json", bulk.DownloadURI)

	loaded, err := client.DownloadBulk(context.Background(), bulk.DownloadURI)
	require.NoError(t, err)
	require.Len(t, loaded, 2)
	assert.Equal(t, "Llanowar Elves", loaded[0].Name)
	assert.True(t, loaded[1].IsBasicLand())

	_, err = client.BulkDataByType(context.Background(), "rulings")
	assert.Error(t, err)
}

func TestDoJSON_RetriesServerErrors(t *testing.T) {
	var attempts atomic.Int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch attempts.Add(1) {
		case 1:
			w.WriteHeader(http.StatusServiceUnavailable)
		case 2:
			w.WriteHeader(http.StatusTooManyRequests)
		default:
			fmt.Fprint(w, `{"data": [{"type": "oracle_cards", "download_uri": "x"}]}`)
		}
	}))
	defer server.Close()

	bulk, err := testClient(server.URL).BulkDataByType(context.Background(), "oracle_cards")
	require.NoError(t, err)
	assert.Equal(t, "x", bulk.DownloadURI)
	assert.Equal(t, int32(3), attempts.Load())
}

func TestDoJSON_GivesUp(t *testing.T) {
	var attempts atomic.Int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		attempts.Add(1)
		w.WriteHeader(http.StatusBadGateway)
	}))
	defer server.Close()

	_, err := testClient(server.URL).BulkDataByType(context.Background(), "oracle_cards")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "max retries exceeded")
	assert.Equal(t, int32(4), attempts.Load(), "one attempt plus three retries")
}

func TestDoJSON_ClientErrors(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("/bulk-data", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
	})
	mux.HandleFunc("/cards/collection", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadRequest)
		fmt.Fprint(w, `{"object": "error", "status": 400, "code": "bad_request", "details": "too many identifiers"}`)
	})
	server := httptest.NewServer(mux)
	defer server.Close()

	client := testClient(server.URL)

	_, err := client.BulkDataByType(context.Background(), "oracle_cards")
	var notFound *NotFoundError
	assert.True(t, errors.As(err, &notFound))

	_, _, err = client.CardsByName(context.Background(), []string{"Opt"})
	var apiErr *APIError
	require.True(t, errors.As(err, &apiErr))
	assert.Equal(t, "bad_request", apiErr.Code)
}

func TestDoJSON_CanceledContext(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusServiceUnavailable)
	}))
	defer server.Close()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := testClient(server.URL).BulkDataByType(ctx, "oracle_cards")
	assert.ErrorIs(t, err, context.Canceled)
}
