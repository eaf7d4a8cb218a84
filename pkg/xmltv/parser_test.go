package xmltv

import (
	"bytes"
	"compress/gzip"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/ulikunitz/xz"
)

const sampleXMLTV = `<?xml version="1.0" encoding="UTF-8"?>
<tv generator-info-name="test">
  <channel id="channel1.tv">
    <display-name>Channel One</display-name>
    <display-name>C1</display-name>
    <icon src="http://example.com/logo1.png"/>
    <url>http://example.com/channel1</url>
  </channel>
  <channel id="channel2.tv">
    <display-name>Channel Two</display-name>
  </channel>
  <programme start="20240115180000 +0000" stop="20240115190000 +0000" channel="channel1.tv">
    <title>News at Six</title>
    <sub-title>Evening Edition</sub-title>
    <desc>The latest news and weather.</desc>
    <category>News</category>
    <category>Weather</category>
    <icon src="http://example.com/news.png"/>
    <episode-num system="onscreen">S01E05</episode-num>
    <credits>
      <presenter>John Smith</presenter>
    </credits>
  </programme>
  <programme start="20240115190000 +0000" stop="20240115200000 +0000" channel="channel1.tv">
    <title>Evening Drama</title>
    <desc>A dramatic story unfolds.</desc>
  </programme>
</tv>`

func TestParser_ParseChannels(t *testing.T) {
	var channels []*Channel
	p := &Parser{
		OnChannel: func(ch *Channel) error {
			channels = append(channels, ch)
			return nil
		},
	}

	if err := p.Parse(strings.NewReader(sampleXMLTV)); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if len(channels) != 2 {
		t.Fatalf("expected 2 channels, got %d", len(channels))
	}

	ch1 := channels[0]
	if ch1.ID != "channel1.tv" {
		t.Errorf("expected ID 'channel1.tv', got %q", ch1.ID)
	}
	if ch1.DisplayName != "Channel One" {
		t.Errorf("expected first display name to win, got %q", ch1.DisplayName)
	}
	if ch1.Icon != "http://example.com/logo1.png" {
		t.Errorf("expected Icon URL, got %q", ch1.Icon)
	}
	if channels[1].Icon != "" {
		t.Errorf("expected empty icon, got %q", channels[1].Icon)
	}
}

func TestParser_ParseProgrammes(t *testing.T) {
	var programmes []*Programme
	p := &Parser{
		OnProgramme: func(prog *Programme) error {
			programmes = append(programmes, prog)
			return nil
		},
	}

	if err := p.Parse(strings.NewReader(sampleXMLTV)); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if len(programmes) != 2 {
		t.Fatalf("expected 2 programmes, got %d", len(programmes))
	}

	prog := programmes[0]
	expectedStart := time.Date(2024, 1, 15, 18, 0, 0, 0, time.UTC)
	if !prog.Start.Equal(expectedStart) {
		t.Errorf("expected start %v, got %v", expectedStart, prog.Start)
	}
	if prog.Channel != "channel1.tv" {
		t.Errorf("expected channel 'channel1.tv', got %q", prog.Channel)
	}
	if prog.Title != "News at Six" {
		t.Errorf("expected title 'News at Six', got %q", prog.Title)
	}
	if prog.SubTitle != "Evening Edition" {
		t.Errorf("expected sub-title, got %q", prog.SubTitle)
	}
	if prog.Description != "The latest news and weather." {
		t.Errorf("expected description, got %q", prog.Description)
	}
	if prog.Category != "News" {
		t.Errorf("expected first category 'News', got %q", prog.Category)
	}
	if prog.Icon != "http://example.com/news.png" {
		t.Errorf("expected icon, got %q", prog.Icon)
	}
}

func TestParser_SkipsProgrammeWithoutTimes(t *testing.T) {
	doc := `<tv>
  <programme channel="a"><title>No times</title></programme>
  <programme start="20240115180000 +0000" stop="20240115190000 +0000" channel="a"><title>Ok</title></programme>
</tv>`

	var titles []string
	var errs []error
	p := &Parser{
		OnProgramme: func(prog *Programme) error {
			titles = append(titles, prog.Title)
			return nil
		},
		OnError: func(err error) { errs = append(errs, err) },
	}

	if err := p.Parse(strings.NewReader(doc)); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(titles) != 1 || titles[0] != "Ok" {
		t.Errorf("expected only the valid programme, got %v", titles)
	}
	if len(errs) != 1 {
		t.Errorf("expected one recoverable error, got %d", len(errs))
	}
}

func TestParser_CallbackError(t *testing.T) {
	expectedErr := errors.New("stop parsing")
	p := &Parser{
		OnProgramme: func(_ *Programme) error {
			return expectedErr
		},
	}

	err := p.Parse(strings.NewReader(sampleXMLTV))
	if !errors.Is(err, expectedErr) {
		t.Errorf("expected callback error, got %v", err)
	}
}

func TestParser_ChannelCallbackError(t *testing.T) {
	expectedErr := errors.New("channel error")
	p := &Parser{
		OnChannel: func(_ *Channel) error {
			return expectedErr
		},
	}

	err := p.Parse(strings.NewReader(sampleXMLTV))
	if !errors.Is(err, expectedErr) {
		t.Errorf("expected channel callback error, got %v", err)
	}
}

func countProgrammes(t *testing.T, data []byte) int {
	t.Helper()
	var count int
	p := &Parser{
		OnProgramme: func(_ *Programme) error {
			count++
			return nil
		},
	}
	if err := p.ParseCompressed(bytes.NewReader(data)); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	return count
}

func TestParser_ParseCompressed_Gzip(t *testing.T) {
	var buf bytes.Buffer
	gzw := gzip.NewWriter(&buf)
	if _, err := gzw.Write([]byte(sampleXMLTV)); err != nil {
		t.Fatalf("failed to write gzip: %v", err)
	}
	if err := gzw.Close(); err != nil {
		t.Fatalf("failed to close gzip: %v", err)
	}

	if got := countProgrammes(t, buf.Bytes()); got != 2 {
		t.Errorf("expected 2 programmes, got %d", got)
	}
}

func TestParser_ParseCompressed_XZ(t *testing.T) {
	var buf bytes.Buffer
	xzw, err := xz.NewWriter(&buf)
	if err != nil {
		t.Fatalf("failed to create xz writer: %v", err)
	}
	if _, err := xzw.Write([]byte(sampleXMLTV)); err != nil {
		t.Fatalf("failed to write xz: %v", err)
	}
	if err := xzw.Close(); err != nil {
		t.Fatalf("failed to close xz: %v", err)
	}

	if got := countProgrammes(t, buf.Bytes()); got != 2 {
		t.Errorf("expected 2 programmes, got %d", got)
	}
}

func TestParser_ParseCompressed_Uncompressed(t *testing.T) {
	if got := countProgrammes(t, []byte(sampleXMLTV)); got != 2 {
		t.Errorf("expected 2 programmes, got %d", got)
	}
}

func TestParseXMLTVTime(t *testing.T) {
	tests := []struct {
		input    string
		expected time.Time
		wantErr  bool
	}{
		{"20240115180000 +0000", time.Date(2024, 1, 15, 18, 0, 0, 0, time.UTC), false},
		{"20240115180000 +0100", time.Date(2024, 1, 15, 17, 0, 0, 0, time.UTC), false},
		{"20240115180000", time.Date(2024, 1, 15, 18, 0, 0, 0, time.UTC), false},
		{"202401151800", time.Date(2024, 1, 15, 18, 0, 0, 0, time.UTC), false},
		{"", time.Time{}, true},
		{"invalid", time.Time{}, true},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			result, err := parseXMLTVTime(tt.input)
			if tt.wantErr {
				if err == nil {
					t.Error("expected error")
				}
				return
			}
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if !result.Equal(tt.expected) {
				t.Errorf("expected %v, got %v", tt.expected, result)
			}
		})
	}
}

func TestProgramme_AiringAt(t *testing.T) {
	start := time.Date(2024, 1, 15, 18, 0, 0, 0, time.UTC)
	prog := &Programme{Start: start, Stop: start.Add(time.Hour)}

	if !prog.AiringAt(start) {
		t.Error("expected programme to be airing at its start")
	}
	if !prog.AiringAt(start.Add(30 * time.Minute)) {
		t.Error("expected programme to be airing mid-slot")
	}
	if prog.AiringAt(start.Add(time.Hour)) {
		t.Error("expected programme to have ended at its stop")
	}
	if prog.AiringAt(start.Add(-time.Second)) {
		t.Error("expected programme not yet airing")
	}
}
