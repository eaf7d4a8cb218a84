// Package testutil provides test utilities including sample provider data and
// a scripted playback engine.
package testutil

import (
	"fmt"
	"math/rand"
	"strings"
	"time"

	"github.com/jmylchreest/tvee/pkg/xtream"
)

// Standard fictional broadcasters for test data.
// NEVER use real brand names.
var (
	Broadcasters = []string{
		"StreamCast",
		"ViewMedia",
		"AeroVision",
		"GlobalStream",
		"NationalNet",
		"SportsCentral",
		"CinemaMax",
		"NewsFirst",
	}

	// Categories maps a provider category name to channel name suffixes.
	Categories = map[string][]string{
		"USA NEWS":      {"News", "News HD", "World News", "Local News"},
		"USA SPORTS":    {"Sports", "Sports HD", "Racing HD", "Football HD"},
		"ENTERTAINMENT": {"Entertainment", "Comedy", "Drama"},
		"MOVIES":        {"Movies", "Action Movies HD", "Classic Movies"},
		"kids":          {"Kids", "Cartoons", "Family"},
	}

	// ProgramTitles are fictional programme titles.
	ProgramTitles = []string{
		"Morning Report",
		"Evening Edition",
		"Match Day",
		"City Hospital",
		"Nature World",
		"Cartoon Time",
	}
)

// SampleDataGenerator generates fictional provider data for testing.
type SampleDataGenerator struct {
	rng *rand.Rand
}

// NewSampleDataGenerator creates a new sample data generator with a random seed.
func NewSampleDataGenerator() *SampleDataGenerator {
	return &SampleDataGenerator{
		rng: rand.New(rand.NewSource(rand.Int63())),
	}
}

// NewSampleDataGeneratorWithSeed creates a new generator with a fixed seed for reproducibility.
func NewSampleDataGeneratorWithSeed(seed int64) *SampleDataGenerator {
	return &SampleDataGenerator{
		rng: rand.New(rand.NewSource(seed)),
	}
}

// RandomBroadcaster returns a random broadcaster name.
func (g *SampleDataGenerator) RandomBroadcaster() string {
	return Broadcasters[g.rng.Intn(len(Broadcasters))]
}

// GenerateChannelName generates a channel name for a category.
func (g *SampleDataGenerator) GenerateChannelName(category string) string {
	suffixes, ok := Categories[category]
	if !ok {
		suffixes = Categories["ENTERTAINMENT"]
	}
	name := fmt.Sprintf("%s %s", g.RandomBroadcaster(), suffixes[g.rng.Intn(len(suffixes))])
	if strings.HasPrefix(category, "USA ") {
		name = "USA " + name
	}
	return name
}

// SampleCategories returns provider categories with stable IDs, in the order
// the provider lists them, followed by a trailing catch-all category.
func SampleCategories() []xtream.Category {
	names := []string{"ENTERTAINMENT", "USA NEWS", "kids", "MOVIES", "USA SPORTS"}
	cats := make([]xtream.Category, 0, len(names)+1)
	for i, name := range names {
		cats = append(cats, xtream.Category{
			CategoryID:   xtream.FlexString(fmt.Sprintf("%d", i+1)),
			CategoryName: name,
		})
	}
	return append(cats, xtream.Category{CategoryID: "99", CategoryName: "UNCATEGORIZED"})
}

// GenerateStreams generates perChannel live streams for every sample category.
// Stream IDs start at 501 and numbers at 1.
func (g *SampleDataGenerator) GenerateStreams(perCategory int) []xtream.Stream {
	var streams []xtream.Stream
	id := 501
	for _, cat := range SampleCategories() {
		for i := 0; i < perCategory; i++ {
			streams = append(streams, xtream.Stream{
				Num:          xtream.FlexInt(id - 500),
				Name:         g.GenerateChannelName(cat.CategoryName),
				StreamType:   "live",
				StreamID:     xtream.FlexInt(id),
				StreamIcon:   fmt.Sprintf("https://logos.example.com/%d.png", id),
				EPGChannelID: fmt.Sprintf("ch%d.example", id),
				CategoryID:   cat.CategoryID,
			})
			id++
		}
	}
	return streams
}

// SampleXMLTV returns an XMLTV document with one programme airing at now
// for each EPG channel ID.
func (g *SampleDataGenerator) SampleXMLTV(now time.Time, epgChannelIDs ...string) string {
	const layout = "20060102150405 -0700"

	var b strings.Builder
	b.WriteString(`<?xml version="1.0" encoding="UTF-8"?>` + "\n<tv>\n")
	for _, id := range epgChannelIDs {
		fmt.Fprintf(&b, "  <channel id=%q><display-name>%s</display-name></channel>\n", id, id)
	}
	for _, id := range epgChannelIDs {
		start := now.Add(-10 * time.Minute).UTC()
		stop := start.Add(time.Hour)
		fmt.Fprintf(&b, "  <programme start=%q stop=%q channel=%q><title>%s</title><desc>Fictional programme.</desc></programme>\n",
			start.Format(layout), stop.Format(layout), id, ProgramTitles[g.rng.Intn(len(ProgramTitles))])
	}
	b.WriteString("</tv>\n")
	return b.String()
}
