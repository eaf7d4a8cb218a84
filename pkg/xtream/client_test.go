package xtream

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"net/url"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// panel fakes player_api.php and xmltv.php, recording the last query.
type panel struct {
	t        *testing.T
	lastQ    url.Values
	agent    string
	handlers map[string]any
}

func newPanel(t *testing.T) (*panel, *httptest.Server) {
	t.Helper()
	p := &panel{t: t, handlers: map[string]any{}}

	mux := http.NewServeMux()
	mux.HandleFunc("/player_api.php", func(w http.ResponseWriter, r *http.Request) {
		p.lastQ = r.URL.Query()
		p.agent = r.UserAgent()
		if p.lastQ.Get("username") != "alice" || p.lastQ.Get("password") != "s3cret" {
			http.Error(w, "Invalid credentials", http.StatusUnauthorized)
			return
		}
		body, ok := p.handlers[p.lastQ.Get("action")]
		if !ok {
			http.NotFound(w, r)
			return
		}
		_ = json.NewEncoder(w).Encode(body)
	})
	mux.HandleFunc("/xmltv.php", func(w http.ResponseWriter, r *http.Request) {
		p.lastQ = r.URL.Query()
		_, _ = io.WriteString(w, "<tv></tv>")
	})

	server := httptest.NewServer(mux)
	t.Cleanup(server.Close)
	return p, server
}

func TestNewClient(t *testing.T) {
	client := NewClient("http://primestreams.tv:826/", "alice", "s3cret")

	assert.Equal(t, "http://primestreams.tv:826", client.BaseURL)
	assert.Equal(t, "alice", client.Username)
	assert.NotNil(t, client.HTTPClient)
	assert.NotEmpty(t, client.UserAgent)

	custom := &http.Client{}
	client = NewClient("http://h", "u", "p", WithHTTPClient(custom), WithUserAgent("tvee-test"))
	assert.Same(t, custom, client.HTTPClient)
	assert.Equal(t, "tvee-test", client.UserAgent)
}

func TestClient_GetLiveCategories(t *testing.T) {
	p, server := newPanel(t)
	p.handlers["get_live_categories"] = []map[string]any{
		{"category_id": "1", "category_name": "USA | News"},
		{"category_id": 2, "category_name": "sports"},
	}

	categories, err := NewClient(server.URL, "alice", "s3cret", WithUserAgent("tvee-test")).
		GetLiveCategories(context.Background())
	require.NoError(t, err)

	require.Len(t, categories, 2)
	assert.Equal(t, "USA | News", categories[0].CategoryName)
	assert.Equal(t, "2", categories[1].CategoryID.String())
	assert.Equal(t, "tvee-test", p.agent)
}

func TestClient_GetLiveStreams(t *testing.T) {
	p, server := newPanel(t)
	p.handlers["get_live_streams"] = []map[string]any{
		{"num": 1, "name": "USA CNN", "stream_id": 501, "epg_channel_id": "CNN.us", "category_id": "1"},
	}
	client := NewClient(server.URL, "alice", "s3cret")

	streams, err := client.GetLiveStreams(context.Background(), "")
	require.NoError(t, err)
	require.Len(t, streams, 1)
	assert.Equal(t, int64(501), streams[0].StreamID.Int())
	assert.False(t, p.lastQ.Has("category_id"))

	_, err = client.GetLiveStreams(context.Background(), "5")
	require.NoError(t, err)
	assert.Equal(t, "5", p.lastQ.Get("category_id"))
}

func TestClient_GetShortEPG(t *testing.T) {
	p, server := newPanel(t)
	p.handlers["get_short_epg"] = map[string]any{
		"epg_listings": []map[string]any{
			{"title": "TmV3cyBhdCBOaW5l", "start_timestamp": "1772395200", "stop_timestamp": "1772398800"},
		},
	}
	client := NewClient(server.URL, "alice", "s3cret")

	listings, err := client.GetShortEPG(context.Background(), 501, 4)
	require.NoError(t, err)
	require.Len(t, listings, 1)
	assert.Equal(t, "News at Nine", listings[0].DecodedTitle())
	assert.Equal(t, "501", p.lastQ.Get("stream_id"))
	assert.Equal(t, "4", p.lastQ.Get("limit"))

	_, err = client.GetShortEPG(context.Background(), 501, 0)
	require.NoError(t, err)
	assert.False(t, p.lastQ.Has("limit"), "zero limit uses the panel default")
}

func TestClient_GetXMLTVReader(t *testing.T) {
	p, server := newPanel(t)

	rc, err := NewClient(server.URL, "alice", "s3cret").GetXMLTVReader(context.Background())
	require.NoError(t, err)
	defer rc.Close()

	body, err := io.ReadAll(rc)
	require.NoError(t, err)
	assert.Equal(t, "<tv></tv>", string(body))
	assert.Equal(t, "alice", p.lastQ.Get("username"))
}

func TestClient_Errors(t *testing.T) {
	_, server := newPanel(t)

	_, err := NewClient(server.URL, "alice", "wrong").GetLiveCategories(context.Background())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "401")
	assert.Contains(t, err.Error(), "Invalid credentials")

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err = NewClient(server.URL, "alice", "s3cret").GetLiveStreams(ctx, "")
	assert.ErrorIs(t, err, context.Canceled)
}

func TestStreamURLs(t *testing.T) {
	client := NewClient("http://primestreams.tv:826", "alice", "s3cret")

	tests := []struct {
		name     string
		got      string
		expected string
	}{
		{"hls", client.LiveStreamURL(501, ExtensionHLS), "http://primestreams.tv:826/live/alice/s3cret/501.m3u8"},
		{"ts", client.LiveStreamURL(501, ExtensionTS), "http://primestreams.tv:826/live/alice/s3cret/501.ts"},
		{"default extension", client.LiveStreamURL(501, ""), "http://primestreams.tv:826/live/alice/s3cret/501.ts"},
		{"escaped credentials", LiveStreamURL("http://h:1/", "a b", "p/w", 7, ExtensionHLS), "http://h:1/live/a%20b/p%2Fw/7.m3u8"},
		{"xmltv", client.XMLTVURL(), "http://primestreams.tv:826/xmltv.php?password=s3cret&username=alice"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, tt.got)
		})
	}
}
