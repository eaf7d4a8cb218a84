// Package liveness decides whether a stream candidate is currently live by
// comparing a token advertised by a probe endpoint with the candidate URL.
//
// The check is not cryptographic. Any failure to obtain or decode the token
// rejects the candidate, so a broken probe and a down stream look the same
// to callers.
package liveness

import (
	"bytes"
	"context"
	"encoding/base64"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/jmylchreest/tvee/internal/playback"
	"github.com/jmylchreest/tvee/pkg/httpclient"
)

// ErrEmptyToken is returned when a probe advertises an empty token.
var ErrEmptyToken = errors.New("probe token is empty")

// Probe is a verification endpoint for one candidate kind.
type Probe struct {
	// Endpoint identifies the probe in logs.
	Endpoint string
	// TokenSource returns a base64 encoded token.
	TokenSource string
}

// BodyFetcher fetches a URL body. *httpclient.Client implements it.
type BodyFetcher interface {
	GetBody(ctx context.Context, url string) ([]byte, error)
}

// Verifier implements playback.Verifier.
type Verifier struct {
	probes  map[playback.CandidateKind]Probe
	fetcher BodyFetcher
	timeout time.Duration
	logger  *slog.Logger
}

// NewVerifier creates a verifier that fetches tokens through a single-shot
// probe client with the given timeout.
func NewVerifier(probes map[playback.CandidateKind]Probe, timeout time.Duration) *Verifier {
	return NewVerifierWithFetcher(probes, httpclient.New(httpclient.ProbeConfig(timeout)), timeout)
}

// NewVerifierWithFetcher creates a verifier using fetcher.
func NewVerifierWithFetcher(probes map[playback.CandidateKind]Probe, fetcher BodyFetcher, timeout time.Duration) *Verifier {
	return &Verifier{
		probes:  probes,
		fetcher: fetcher,
		timeout: timeout,
		logger:  slog.Default(),
	}
}

// WithLogger sets the logger.
func (v *Verifier) WithLogger(logger *slog.Logger) *Verifier {
	if logger != nil {
		v.logger = logger.With(slog.String("component", "liveness"))
	}
	return v
}

// Verify reports whether candidate may be played. Candidates that need no
// verification pass immediately. Every call fetches the token again.
func (v *Verifier) Verify(ctx context.Context, candidate playback.Candidate) bool {
	if !candidate.RequiresVerification {
		return true
	}

	probe, ok := v.probes[candidate.Kind]
	if !ok {
		v.logger.Debug("no probe for candidate kind", slog.String("kind", string(candidate.Kind)))
		return false
	}

	token, err := v.Token(ctx, probe)
	if err != nil {
		v.logger.Debug("liveness probe failed",
			slog.String("kind", string(candidate.Kind)),
			slog.String("probe", probe.Endpoint),
			slog.String("error", err.Error()),
		)
		return false
	}

	live := strings.Contains(candidate.URL, token)
	v.logger.Debug("liveness probe checked",
		slog.String("kind", string(candidate.Kind)),
		slog.Bool("live", live),
	)
	return live
}

// Token fetches and decodes the token advertised by probe.
func (v *Verifier) Token(ctx context.Context, probe Probe) (string, error) {
	if v.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, v.timeout)
		defer cancel()
	}

	body, err := v.fetcher.GetBody(ctx, probe.TokenSource)
	if err != nil {
		return "", fmt.Errorf("fetching token: %w", err)
	}

	encoded := bytes.TrimSpace(body)
	decoded := make([]byte, base64.StdEncoding.DecodedLen(len(encoded)))
	n, err := base64.StdEncoding.Decode(decoded, encoded)
	if err != nil {
		return "", fmt.Errorf("decoding token: %w", err)
	}

	token := strings.TrimSpace(string(decoded[:n]))
	if token == "" {
		return "", ErrEmptyToken
	}
	return token, nil
}

var _ playback.Verifier = (*Verifier)(nil)
