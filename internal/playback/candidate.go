package playback

import (
	"strconv"

	"github.com/jmylchreest/tvee/internal/urlutil"
	"github.com/jmylchreest/tvee/pkg/xtream"
)

// CandidateKind identifies a delivery path for a channel.
type CandidateKind string

// Candidate kinds in default priority order.
const (
	KindPrimary      CandidateKind = "primary"
	KindBackupRelay  CandidateKind = "backup_relay"
	KindCastingRoute CandidateKind = "casting_route"
)

// Candidate is one delivery endpoint for a channel. Values are never mutated
// after the builder returns them.
type Candidate struct {
	Kind                 CandidateKind `json:"kind"`
	URL                  string        `json:"url"`
	RequiresVerification bool          `json:"requires_verification"`
}

// Account holds the provider credentials used to build stream URLs.
type Account struct {
	// BaseURL is the provider origin including scheme and port.
	BaseURL  string
	Username string
	Password string
}

// CandidateSource produces the ordered candidate list for a channel.
type CandidateSource interface {
	Candidates(channelID int, isCasting bool) []Candidate
}

// CandidateSourceFunc adapts a function to CandidateSource.
type CandidateSourceFunc func(channelID int, isCasting bool) []Candidate

// Candidates implements CandidateSource.
func (f CandidateSourceFunc) Candidates(channelID int, isCasting bool) []Candidate {
	return f(channelID, isCasting)
}

// CandidateBuilder builds the three delivery candidates for a channel.
type CandidateBuilder struct {
	account      Account
	relayBaseURL string
}

// NewCandidateBuilder creates a builder. relayBaseURL is this server's public
// base URL, which hosts the relay playlist.
func NewCandidateBuilder(account Account, relayBaseURL string) *CandidateBuilder {
	return &CandidateBuilder{
		account:      account,
		relayBaseURL: urlutil.NormalizeBaseURL(relayBaseURL),
	}
}

// Candidates returns Primary, BackupRelay and CastingRoute in that order.
// When isCasting is true the CastingRoute moves to the front.
// Building never fails: a malformed account yields URLs that fail verification.
func (b *CandidateBuilder) Candidates(channelID int, isCasting bool) []Candidate {
	primary := Candidate{
		Kind:                 KindPrimary,
		URL:                  xtream.LiveStreamURL(b.account.BaseURL, b.account.Username, b.account.Password, channelID, xtream.ExtensionHLS),
		RequiresVerification: true,
	}
	relay := Candidate{
		Kind:                 KindBackupRelay,
		URL:                  RelayURL(b.relayBaseURL, channelID),
		RequiresVerification: true,
	}
	casting := Candidate{
		Kind: KindCastingRoute,
		URL:  xtream.LiveStreamURL(b.account.BaseURL, b.account.Username, b.account.Password, channelID, xtream.ExtensionHLS),
	}

	if isCasting {
		return []Candidate{casting, primary, relay}
	}
	return []Candidate{primary, relay, casting}
}

// RelayURL returns the relay playlist URL for a channel on the given server.
func RelayURL(baseURL string, channelID int) string {
	return urlutil.JoinPath(baseURL, "/relay/"+strconv.Itoa(channelID)+".m3u8")
}
