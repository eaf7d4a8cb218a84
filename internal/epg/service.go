// Package epg keeps the program guide used for "now playing" text and
// short per-channel listings.
package epg

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"sort"
	"sync"
	"time"

	"github.com/jmylchreest/tvee/internal/events"
	"github.com/jmylchreest/tvee/internal/observability"
	"github.com/jmylchreest/tvee/pkg/xmltv"
	"github.com/jmylchreest/tvee/pkg/xtream"
)

// minDescriptionLength is the shortest description worth showing; panels
// pad empty descriptions with filler such as "N/A".
const minDescriptionLength = 4

// Source is the part of the Xtream API the guide reads from.
type Source interface {
	GetXMLTVReader(ctx context.Context) (io.ReadCloser, error)
	GetShortEPG(ctx context.Context, streamID int, limit int) ([]xtream.EPGListing, error)
}

// Listing is one decoded short-EPG entry.
type Listing struct {
	Title       string    `json:"title"`
	Description string    `json:"description"`
	Start       time.Time `json:"start"`
	End         time.Time `json:"end"`
}

// Update is published whenever the now-playing snapshot is recomputed.
type Update struct {
	Time time.Time `json:"time"`
	// Reloaded is set when the XMLTV document itself was fetched again.
	Reloaded bool `json:"reloaded"`
	// Channels is the number of channels with something airing.
	Channels int `json:"channels"`
	// Changed is the number of channels whose programme changed since the last snapshot.
	Changed int `json:"changed"`
}

// Service holds the in-memory XMLTV index.
type Service struct {
	source Source
	logger *slog.Logger
	bus    *events.Bus[Update]
	now    func() time.Time

	mu         sync.RWMutex
	index      map[string][]*xmltv.Programme
	snapshot   map[string]*xmltv.Programme
	loadedAt   time.Time
	programmes int

	// Serializes XMLTV reloads.
	loadMu sync.Mutex
}

// NewService creates a guide backed by source. A nil logger uses slog.Default.
func NewService(source Source, logger *slog.Logger) *Service {
	if logger == nil {
		logger = slog.Default()
	}
	return &Service{
		source:   source,
		logger:   observability.WithComponent(logger, "epg"),
		bus:      events.NewBus[Update]("epg", logger),
		now:      time.Now,
		index:    make(map[string][]*xmltv.Programme),
		snapshot: make(map[string]*xmltv.Programme),
	}
}

// WithClock overrides the time source.
func (s *Service) WithClock(now func() time.Time) *Service {
	s.now = now
	return s
}

// Load fetches and indexes the XMLTV document, then recomputes the snapshot.
// Programmes that already ended are dropped.
func (s *Service) Load(ctx context.Context) (err error) {
	s.loadMu.Lock()
	defer s.loadMu.Unlock()

	done := observability.TimedOperationWithError(ctx, s.logger, "load_xmltv", &err)
	defer done()

	body, err := s.source.GetXMLTVReader(ctx)
	if err != nil {
		return fmt.Errorf("fetching xmltv: %w", err)
	}
	defer body.Close()

	cutoff := s.now()
	index := make(map[string][]*xmltv.Programme)
	count := 0
	skipped := 0

	parser := &xmltv.Parser{
		OnProgramme: func(p *xmltv.Programme) error {
			if err := ctx.Err(); err != nil {
				return err
			}
			if !p.Stop.After(cutoff) {
				return nil
			}
			index[p.Channel] = append(index[p.Channel], p)
			count++
			return nil
		},
		OnError: func(error) { skipped++ },
	}
	if err := parser.ParseCompressed(body); err != nil {
		return fmt.Errorf("parsing xmltv: %w", err)
	}

	for _, list := range index {
		sort.Slice(list, func(i, j int) bool { return list[i].Start.Before(list[j].Start) })
	}

	s.mu.Lock()
	s.index = index
	s.loadedAt = cutoff
	s.programmes = count
	s.mu.Unlock()

	s.logger.InfoContext(ctx, "xmltv loaded",
		slog.Int("channels", len(index)),
		slog.Int("programmes", count),
		slog.Int("skipped", skipped))

	s.recompute(true)
	return nil
}

// Refresh reloads the guide on demand, for example when the app returns to
// the foreground.
func (s *Service) Refresh(ctx context.Context) error {
	return s.Load(ctx)
}

// Run recomputes the now-playing snapshot every interval until ctx is done.
func (s *Service) Run(ctx context.Context, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			s.recompute(false)
		}
	}
}

// Tick recomputes the snapshot once and publishes the result.
func (s *Service) Tick() Update {
	return s.recompute(false)
}

func (s *Service) recompute(reloaded bool) Update {
	now := s.now()

	s.mu.Lock()
	next := make(map[string]*xmltv.Programme, len(s.index))
	changed := 0
	for channel, list := range s.index {
		p := airing(list, now)
		if p == nil {
			continue
		}
		next[channel] = p
		if s.snapshot[channel] != p {
			changed++
		}
	}
	for channel := range s.snapshot {
		if _, ok := next[channel]; !ok {
			changed++
		}
	}
	s.snapshot = next
	s.mu.Unlock()

	update := Update{Time: now, Reloaded: reloaded, Channels: len(next), Changed: changed}
	s.bus.Publish(update)
	return update
}

// airing returns the programme in list whose [start, stop) holds t. list is
// sorted by start.
func airing(list []*xmltv.Programme, t time.Time) *xmltv.Programme {
	i := sort.Search(len(list), func(i int) bool { return list[i].Start.After(t) })
	for j := i - 1; j >= 0; j-- {
		if list[j].AiringAt(t) {
			return list[j]
		}
	}
	return nil
}

// NowPlaying returns the programme airing now on epgChannelID.
func (s *Service) NowPlaying(epgChannelID string) (*xmltv.Programme, bool) {
	if epgChannelID == "" {
		return nil, false
	}

	s.mu.RLock()
	list := s.index[epgChannelID]
	s.mu.RUnlock()

	p := airing(list, s.now())
	return p, p != nil
}

// NowPlayingTitle returns the title airing on epgChannelID, or "".
func (s *Service) NowPlayingTitle(epgChannelID string) string {
	if p, ok := s.NowPlaying(epgChannelID); ok {
		return p.Title
	}
	return ""
}

// ShortEPG returns the next limit listings for a stream with titles and
// descriptions decoded. Descriptions too short to be meaningful are blanked.
func (s *Service) ShortEPG(ctx context.Context, streamID, limit int) ([]Listing, error) {
	raw, err := s.source.GetShortEPG(ctx, streamID, limit)
	if err != nil {
		return nil, fmt.Errorf("fetching short epg for stream %d: %w", streamID, err)
	}

	listings := make([]Listing, 0, len(raw))
	for i := range raw {
		desc := raw[i].DecodedDescription()
		if len([]rune(desc)) < minDescriptionLength {
			desc = ""
		}
		listings = append(listings, Listing{
			Title:       raw[i].DecodedTitle(),
			Description: desc,
			Start:       raw[i].StartTime(),
			End:         raw[i].EndTime(),
		})
	}
	return listings, nil
}

// Stats describes the loaded guide.
type Stats struct {
	LoadedAt   time.Time `json:"loaded_at,omitzero"`
	Channels   int       `json:"channels"`
	Programmes int       `json:"programmes"`
	Airing     int       `json:"airing"`
}

// Stats returns a summary of the loaded guide.
func (s *Service) Stats() Stats {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return Stats{
		LoadedAt:   s.loadedAt,
		Channels:   len(s.index),
		Programmes: s.programmes,
		Airing:     len(s.snapshot),
	}
}

// Subscribe registers an update listener.
func (s *Service) Subscribe(buffer int) *events.Subscriber[Update] {
	return s.bus.Subscribe(buffer)
}

// Unsubscribe removes an update listener.
func (s *Service) Unsubscribe(id string) {
	s.bus.Unsubscribe(id)
}

// Close closes all listener channels.
func (s *Service) Close() {
	s.bus.Close()
}
