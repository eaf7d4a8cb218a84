package liveness

import (
	"context"
	"encoding/base64"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jmylchreest/tvee/internal/playback"
)

func tokenServer(t *testing.T, body string, hits *atomic.Int32) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		if hits != nil {
			hits.Add(1)
		}
		_, _ = w.Write([]byte(body))
	}))
	t.Cleanup(srv.Close)
	return srv
}

func encode(s string) string {
	return base64.StdEncoding.EncodeToString([]byte(s))
}

const primaryURL = "http://primestreams.tv:826/live/alice/secret/501/xtrm.m3u8"

func TestVerifier_AcceptsMatchingToken(t *testing.T) {
	srv := tokenServer(t, encode("xtrm.m3u8")+"\n", nil)
	v := NewVerifier(map[playback.CandidateKind]Probe{
		playback.KindPrimary: {Endpoint: "primary", TokenSource: srv.URL},
	}, time.Second)

	ok := v.Verify(context.Background(), playback.Candidate{
		Kind:                 playback.KindPrimary,
		URL:                  primaryURL,
		RequiresVerification: true,
	})
	assert.True(t, ok)
}

func TestVerifier_Rejects(t *testing.T) {
	tests := []struct {
		name    string
		handler http.HandlerFunc
	}{
		{"token not in url", func(w http.ResponseWriter, _ *http.Request) {
			_, _ = w.Write([]byte(encode("relay-only")))
		}},
		{"not base64", func(w http.ResponseWriter, _ *http.Request) {
			_, _ = w.Write([]byte("%%%not-base64%%%"))
		}},
		{"empty token", func(w http.ResponseWriter, _ *http.Request) {
			_, _ = w.Write([]byte(encode("   ")))
		}},
		{"server error", func(w http.ResponseWriter, _ *http.Request) {
			w.WriteHeader(http.StatusInternalServerError)
		}},
		{"timeout", func(w http.ResponseWriter, r *http.Request) {
			select {
			case <-r.Context().Done():
			case <-time.After(2 * time.Second):
			}
			_, _ = w.Write([]byte(encode("xtrm.m3u8")))
		}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			srv := httptest.NewServer(tt.handler)
			defer srv.Close()

			v := NewVerifier(map[playback.CandidateKind]Probe{
				playback.KindPrimary: {Endpoint: "primary", TokenSource: srv.URL},
			}, 100*time.Millisecond)

			ok := v.Verify(context.Background(), playback.Candidate{
				Kind:                 playback.KindPrimary,
				URL:                  primaryURL,
				RequiresVerification: true,
			})
			assert.False(t, ok)
		})
	}
}

func TestVerifier_UnreachableProbe(t *testing.T) {
	v := NewVerifier(map[playback.CandidateKind]Probe{
		playback.KindPrimary: {Endpoint: "primary", TokenSource: "http://127.0.0.1:1/token"},
	}, 200*time.Millisecond)

	assert.False(t, v.Verify(context.Background(), playback.Candidate{
		Kind: playback.KindPrimary, URL: primaryURL, RequiresVerification: true,
	}))
}

func TestVerifier_NoProbeForKind(t *testing.T) {
	v := NewVerifier(nil, time.Second)

	assert.False(t, v.Verify(context.Background(), playback.Candidate{
		Kind: playback.KindBackupRelay, URL: "http://x/relay/1.m3u8", RequiresVerification: true,
	}))
}

func TestVerifier_SkipsUnverifiedCandidates(t *testing.T) {
	var hits atomic.Int32
	srv := tokenServer(t, encode("nope"), &hits)
	v := NewVerifier(map[playback.CandidateKind]Probe{
		playback.KindCastingRoute: {TokenSource: srv.URL},
	}, time.Second)

	assert.True(t, v.Verify(context.Background(), playback.Candidate{
		Kind: playback.KindCastingRoute, URL: "http://x/1.ts",
	}))
	assert.Zero(t, hits.Load())
}

func TestVerifier_RefetchesEveryCall(t *testing.T) {
	var hits atomic.Int32
	srv := tokenServer(t, encode("xtrm"), &hits)
	v := NewVerifier(map[playback.CandidateKind]Probe{
		playback.KindPrimary: {TokenSource: srv.URL},
	}, time.Second)

	c := playback.Candidate{Kind: playback.KindPrimary, URL: primaryURL, RequiresVerification: true}
	assert.True(t, v.Verify(context.Background(), c))
	assert.True(t, v.Verify(context.Background(), c))
	assert.Equal(t, int32(2), hits.Load())
}

func TestVerifier_Token(t *testing.T) {
	srv := tokenServer(t, "  "+encode("xtrm.m3u8")+"  ", nil)
	v := NewVerifier(nil, time.Second)

	token, err := v.Token(context.Background(), Probe{TokenSource: srv.URL})
	require.NoError(t, err)
	assert.Equal(t, "xtrm.m3u8", token)
}
