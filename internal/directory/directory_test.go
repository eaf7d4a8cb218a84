package directory

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jmylchreest/tvee/internal/testutil"
	"github.com/jmylchreest/tvee/pkg/xtream"
)

type fakeSource struct {
	categories []xtream.Category
	streams    []xtream.Stream
	err        error
	calls      int
}

func (f *fakeSource) GetLiveCategories(context.Context) ([]xtream.Category, error) {
	f.calls++
	return f.categories, f.err
}

func (f *fakeSource) GetLiveStreams(context.Context, string) ([]xtream.Stream, error) {
	return f.streams, f.err
}

type fakeFavorites map[int]struct{}

func (f fakeFavorites) Set(context.Context) (map[int]struct{}, error) { return f, nil }

type fakeGuide map[string]string

func (g fakeGuide) NowPlayingTitle(id string) string { return g[id] }

func sampleSource() *fakeSource {
	gen := testutil.NewSampleDataGeneratorWithSeed(42)
	return &fakeSource{
		categories: testutil.SampleCategories(),
		streams:    gen.GenerateStreams(2),
	}
}

func TestDisplayCategoryName(t *testing.T) {
	tests := []struct {
		in, want string
	}{
		{"ENTERTAINMENT", "Entertainment"},
		{"USA NEWS", "USA NEWS"},
		{"USA SPORTS", "USA Sports"},
		{"kids", "kids"},
		{"MOVIES", "Movies"},
		{"USA MOVIES CHANNELS", "USA Movie Channels"},
		{"UK DOCUMENTARY", "UK Documentary"},
	}

	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			assert.Equal(t, tt.want, DisplayCategoryName(tt.in))
		})
	}
}

func TestService_ListCategoriesDropsCatchAll(t *testing.T) {
	src := sampleSource()
	svc := NewService(src, nil, nil, nil)

	cats, err := svc.ListCategories(context.Background())
	require.NoError(t, err)
	require.Len(t, cats, 5)
	for _, c := range cats {
		assert.NotEqual(t, "99", c.ID)
	}

	// Cached after the first load.
	_, err = svc.ListCategories(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 1, src.calls)
	assert.False(t, svc.LoadedAt().IsZero())

	require.NoError(t, svc.Refresh(context.Background()))
	assert.Equal(t, 2, src.calls)
}

func TestService_BrowseCategoriesOrder(t *testing.T) {
	svc := NewService(sampleSource(), fakeFavorites{501: {}, 503: {}}, nil, nil)

	cats, err := svc.BrowseCategories(context.Background(), "")
	require.NoError(t, err)

	names := make([]string, 0, len(cats))
	for _, c := range cats {
		names = append(names, c.Name)
	}
	assert.Equal(t, []string{
		"⭐ Favorites (2)",
		"USA NEWS",
		"USA Sports",
		"Entertainment",
		"kids",
		"Movies",
	}, names)
	assert.Equal(t, FavoritesCategoryID, cats[0].ID)
}

func TestService_BrowseCategoriesNoFavorites(t *testing.T) {
	svc := NewService(sampleSource(), fakeFavorites{}, nil, nil)

	cats, err := svc.BrowseCategories(context.Background(), "")
	require.NoError(t, err)
	require.NotEmpty(t, cats)
	assert.NotEqual(t, FavoritesCategoryID, cats[0].ID)
}

func TestService_BrowseCategoriesSearch(t *testing.T) {
	svc := NewService(sampleSource(), fakeFavorites{501: {}}, nil, nil)

	cats, err := svc.BrowseCategories(context.Background(), "usa")
	require.NoError(t, err)
	require.Len(t, cats, 2, "favorites are hidden while searching")
	assert.Equal(t, "USA NEWS", cats[0].Name)
	assert.Equal(t, "USA Sports", cats[1].Name)
}

func TestService_BrowseChannelsByCategory(t *testing.T) {
	svc := NewService(sampleSource(), nil, nil, nil)

	// Category "2" is USA NEWS; its streams carry a "USA " prefix.
	chans, err := svc.BrowseChannels(context.Background(), "2", "")
	require.NoError(t, err)
	require.Len(t, chans, 2)
	for i, ch := range chans {
		assert.Equal(t, "2", ch.CategoryID)
		assert.NotContains(t, ch.DisplayName, "USA ")
		assert.Contains(t, ch.Name, "USA ")
		if i > 0 {
			assert.Less(t, chans[i-1].Num, ch.Num)
		}
	}
}

func TestService_BrowseChannelsFavorites(t *testing.T) {
	svc := NewService(sampleSource(), fakeFavorites{504: {}, 501: {}}, nil, nil)

	chans, err := svc.BrowseChannels(context.Background(), FavoritesCategoryID, "")
	require.NoError(t, err)
	require.Len(t, chans, 2)
	assert.Equal(t, 501, chans[0].StreamID)
	assert.Equal(t, 504, chans[1].StreamID)
	assert.True(t, chans[0].Favorite)
}

func TestService_BrowseChannelsSearch(t *testing.T) {
	src := &fakeSource{
		categories: []xtream.Category{{CategoryID: "1", CategoryName: "NEWS"}, {CategoryID: "99", CategoryName: "ALL"}},
		streams: []xtream.Stream{
			{Num: 12, StreamID: 612, Name: "USA NewsFirst HD", CategoryID: "1", EPGChannelID: "nf.us"},
			{Num: 3, StreamID: 603, Name: "ViewMedia Local", CategoryID: "1", EPGChannelID: "vm.us"},
			{Num: 7, StreamID: 607, Name: "AeroVision", CategoryID: "1"},
		},
	}
	guide := fakeGuide{"nf.us": "Evening Edition", "vm.us": "Weather Hour"}
	svc := NewService(src, nil, guide, nil)
	ctx := context.Background()

	tests := []struct {
		search string
		want   []int
	}{
		{"", []int{603, 607, 612}},
		{"newsfirst", []int{612}},
		{"weather", []int{603}},
		{"12usa", []int{612}},
		{"7", []int{607}},
		{"nothing", []int{}},
	}

	for _, tt := range tests {
		t.Run(tt.search, func(t *testing.T) {
			chans, err := svc.BrowseChannels(ctx, "1", tt.search)
			require.NoError(t, err)
			got := make([]int, 0, len(chans))
			for _, ch := range chans {
				got = append(got, ch.StreamID)
			}
			assert.Equal(t, tt.want, got)
		})
	}

	chans, err := svc.BrowseChannels(ctx, "1", "evening")
	require.NoError(t, err)
	require.Len(t, chans, 1)
	assert.Equal(t, "Evening Edition", chans[0].NowPlaying)
	assert.Equal(t, "NewsFirst HD", chans[0].DisplayName)
}

func TestService_Channel(t *testing.T) {
	svc := NewService(sampleSource(), nil, nil, nil)

	ch, ok, err := svc.Channel(context.Background(), 501)
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, 501, ch.StreamID)

	_, ok, err = svc.Channel(context.Background(), 1)
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestService_RefreshError(t *testing.T) {
	svc := NewService(&fakeSource{err: errors.New("401")}, nil, nil, nil)

	_, err := svc.ListChannels(context.Background())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "fetching categories")
	assert.True(t, svc.LoadedAt().IsZero())
}
