// Package directory serves the live TV category and channel lists, shaped
// for browsing: favorites first, US categories next, search across channel
// number, name and what is airing.
package directory

import (
	"context"
	"fmt"
	"log/slog"
	"slices"
	"strings"
	"sync"
	"time"

	"github.com/samber/lo"
	"golang.org/x/text/cases"
	"golang.org/x/text/language"

	"github.com/jmylchreest/tvee/internal/observability"
	"github.com/jmylchreest/tvee/pkg/xtream"
)

// FavoritesCategoryID is the ID of the favorites pseudo-category.
const FavoritesCategoryID = "favorites"

const (
	usaKey          = "usa"
	usaPrefix       = "USA "
	titleCaseMinLen = 6
)

// categoryAliases fixes provider naming that reads badly once capitalized.
var categoryAliases = map[string]string{
	"USA Movies Channels": "USA Movie Channels",
}

// Source is the part of the Xtream API the directory reads from.
type Source interface {
	GetLiveCategories(ctx context.Context) ([]xtream.Category, error)
	GetLiveStreams(ctx context.Context, categoryID string) ([]xtream.Stream, error)
}

// Favorites reports which streams are favorites.
type Favorites interface {
	Set(ctx context.Context) (map[int]struct{}, error)
}

// Guide supplies the title airing on an EPG channel.
type Guide interface {
	NowPlayingTitle(epgChannelID string) string
}

// Category is a browsable category.
type Category struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}

// Channel is a live stream as listed to the user.
type Channel struct {
	StreamID     int    `json:"stream_id"`
	Num          int    `json:"num"`
	Name         string `json:"name"`
	DisplayName  string `json:"display_name"`
	Icon         string `json:"icon,omitempty"`
	EPGChannelID string `json:"epg_channel_id,omitempty"`
	CategoryID   string `json:"category_id"`
	NowPlaying   string `json:"now_playing,omitempty"`
	Favorite     bool   `json:"favorite"`
}

// Service caches the provider directory in memory.
type Service struct {
	source    Source
	favorites Favorites
	guide     Guide
	logger    *slog.Logger

	mu         sync.RWMutex
	categories []Category
	channels   []Channel
	loadedAt   time.Time

	refreshMu sync.Mutex
}

// NewService creates a directory. favorites and guide may be nil.
func NewService(source Source, favorites Favorites, guide Guide, logger *slog.Logger) *Service {
	if logger == nil {
		logger = slog.Default()
	}
	return &Service{
		source:    source,
		favorites: favorites,
		guide:     guide,
		logger:    observability.WithComponent(logger, "directory"),
	}
}

// Refresh reloads categories and channels from the provider.
func (s *Service) Refresh(ctx context.Context) (err error) {
	s.refreshMu.Lock()
	defer s.refreshMu.Unlock()

	done := observability.TimedOperationWithError(ctx, s.logger, "refresh_directory", &err)
	defer done()

	rawCats, err := s.source.GetLiveCategories(ctx)
	if err != nil {
		return fmt.Errorf("fetching categories: %w", err)
	}
	streams, err := s.source.GetLiveStreams(ctx, "")
	if err != nil {
		return fmt.Errorf("fetching streams: %w", err)
	}

	// The provider always appends a catch-all category.
	rawCats = lo.DropRight(rawCats, 1)
	categories := lo.Map(rawCats, func(c xtream.Category, _ int) Category {
		return Category{ID: c.CategoryID.String(), Name: DisplayCategoryName(c.CategoryName)}
	})

	channels := lo.Map(streams, func(st xtream.Stream, _ int) Channel {
		return Channel{
			StreamID:     int(st.StreamID.Int()),
			Num:          int(st.Num.Int()),
			Name:         st.Name,
			DisplayName:  strings.TrimPrefix(st.Name, usaPrefix),
			Icon:         st.StreamIcon,
			EPGChannelID: st.EPGChannelID,
			CategoryID:   st.CategoryID.String(),
		}
	})

	s.mu.Lock()
	s.categories = categories
	s.channels = channels
	s.loadedAt = time.Now()
	s.mu.Unlock()

	s.logger.InfoContext(ctx, "directory refreshed",
		slog.Int("categories", len(categories)),
		slog.Int("channels", len(channels)))
	return nil
}

// DisplayCategoryName title-cases words longer than five characters and
// leaves shorter ones (USA, NEWS, kids) as the provider wrote them.
func DisplayCategoryName(name string) string {
	caser := cases.Title(language.English)
	words := strings.Split(name, " ")
	for i, w := range words {
		if len([]rune(w)) >= titleCaseMinLen {
			words[i] = caser.String(w)
		}
	}
	display := strings.Join(words, " ")
	if alias, ok := categoryAliases[display]; ok {
		return alias
	}
	return display
}

func (s *Service) ensureLoaded(ctx context.Context) error {
	s.mu.RLock()
	loaded := !s.loadedAt.IsZero()
	s.mu.RUnlock()
	if loaded {
		return nil
	}
	return s.Refresh(ctx)
}

// ListCategories returns the provider categories in provider order.
func (s *Service) ListCategories(ctx context.Context) ([]Category, error) {
	if err := s.ensureLoaded(ctx); err != nil {
		return nil, err
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	return slices.Clone(s.categories), nil
}

// ListChannels returns every live channel in provider order.
func (s *Service) ListChannels(ctx context.Context) ([]Channel, error) {
	if err := s.ensureLoaded(ctx); err != nil {
		return nil, err
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	return slices.Clone(s.channels), nil
}

// Channel returns a single channel by stream ID.
func (s *Service) Channel(ctx context.Context, streamID int) (Channel, bool, error) {
	channels, err := s.ListChannels(ctx)
	if err != nil {
		return Channel{}, false, err
	}
	ch, ok := lo.Find(channels, func(c Channel) bool { return c.StreamID == streamID })
	return ch, ok, nil
}

// LoadedAt returns when the directory was last refreshed.
func (s *Service) LoadedAt() time.Time {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.loadedAt
}

func (s *Service) favoriteSet(ctx context.Context) (map[int]struct{}, error) {
	if s.favorites == nil {
		return map[int]struct{}{}, nil
	}
	set, err := s.favorites.Set(ctx)
	if err != nil {
		return nil, fmt.Errorf("loading favorites: %w", err)
	}
	return set, nil
}

// FavoritesCategoryName is the label of the favorites pseudo-category.
func FavoritesCategoryName(n int) string {
	return fmt.Sprintf("⭐ Favorites (%d)", n)
}

// BrowseCategories returns categories matching search. Without a search the
// favorites pseudo-category leads when there are favorites; then come US
// categories, then everything else, each group sorted case-insensitively.
func (s *Service) BrowseCategories(ctx context.Context, search string) ([]Category, error) {
	categories, err := s.ListCategories(ctx)
	if err != nil {
		return nil, err
	}

	needle := strings.ToLower(search)
	matches := lo.Filter(categories, func(c Category, _ int) bool {
		return needle == "" || strings.Contains(strings.ToLower(c.Name), needle)
	})
	slices.SortStableFunc(matches, func(a, b Category) int {
		return strings.Compare(strings.ToLower(a.Name), strings.ToLower(b.Name))
	})

	isUSA := func(c Category, _ int) bool { return strings.HasPrefix(strings.ToLower(c.Name), usaKey) }
	usa := lo.Filter(matches, isUSA)
	other := lo.Reject(matches, isUSA)

	out := make([]Category, 0, len(matches)+1)
	if search == "" {
		set, err := s.favoriteSet(ctx)
		if err != nil {
			return nil, err
		}
		if len(set) > 0 {
			out = append(out, Category{ID: FavoritesCategoryID, Name: FavoritesCategoryName(len(set))})
		}
	}
	out = append(out, usa...)
	return append(out, other...), nil
}

// BrowseChannels returns the channels of categoryID (or the favorites when
// categoryID is FavoritesCategoryID) whose number, name and current
// programme match search, sorted by channel number.
func (s *Service) BrowseChannels(ctx context.Context, categoryID, search string) ([]Channel, error) {
	channels, err := s.ListChannels(ctx)
	if err != nil {
		return nil, err
	}
	set, err := s.favoriteSet(ctx)
	if err != nil {
		return nil, err
	}

	needle := strings.ToLower(search)
	out := lo.FilterMap(channels, func(ch Channel, _ int) (Channel, bool) {
		_, ch.Favorite = set[ch.StreamID]
		if categoryID == FavoritesCategoryID {
			if !ch.Favorite {
				return ch, false
			}
		} else if categoryID != "" && ch.CategoryID != categoryID {
			return ch, false
		}

		if s.guide != nil {
			ch.NowPlaying = s.guide.NowPlayingTitle(ch.EPGChannelID)
		}
		if needle != "" {
			haystack := strings.ToLower(fmt.Sprintf("%d%s%s", ch.Num, ch.Name, ch.NowPlaying))
			if !strings.Contains(haystack, needle) {
				return ch, false
			}
		}
		return ch, true
	})

	slices.SortStableFunc(out, func(a, b Channel) int { return a.Num - b.Num })
	return out, nil
}
