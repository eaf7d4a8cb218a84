package xtream

import (
	"bytes"
	"encoding/base64"
	"encoding/json"
	"strconv"
	"strings"
	"time"
)

// epgTimeLayout is the panel's local "start"/"end" format, used when the
// unix timestamps are missing.
const epgTimeLayout = "2006-01-02 15:04:05"

// Category is a live category from get_live_categories.
type Category struct {
	CategoryID   FlexString `json:"category_id"`
	CategoryName string     `json:"category_name"`
	ParentID     FlexInt    `json:"parent_id"`
}

// Stream is a live channel from get_live_streams.
type Stream struct {
	Num          FlexInt    `json:"num"`
	Name         string     `json:"name"`
	StreamType   string     `json:"stream_type"`
	StreamID     FlexInt    `json:"stream_id"`
	StreamIcon   string     `json:"stream_icon"`
	EPGChannelID string     `json:"epg_channel_id"`
	CategoryID   FlexString `json:"category_id"`
	TVArchive    FlexInt    `json:"tv_archive"`
}

// EPGResponse is the get_short_epg envelope.
type EPGResponse struct {
	EPGListings []EPGListing `json:"epg_listings"`
}

// EPGListing is one short-EPG programme. Title and Description arrive
// base64 encoded.
type EPGListing struct {
	ID             FlexString `json:"id"`
	EPGID          FlexString `json:"epg_id"`
	Title          string     `json:"title"`
	Lang           string     `json:"lang"`
	Start          string     `json:"start"`
	End            string     `json:"end"`
	Description    string     `json:"description"`
	ChannelID      string     `json:"channel_id"`
	StartTimestamp FlexInt    `json:"start_timestamp"`
	StopTimestamp  FlexInt    `json:"stop_timestamp"`
}

// StartTime returns when the programme starts, or the zero time.
func (e *EPGListing) StartTime() time.Time {
	return listingTime(e.StartTimestamp, e.Start)
}

// EndTime returns when the programme ends, or the zero time.
func (e *EPGListing) EndTime() time.Time {
	return listingTime(e.StopTimestamp, e.End)
}

func listingTime(ts FlexInt, text string) time.Time {
	if ts > 0 {
		return time.Unix(ts.Int(), 0)
	}
	t, err := time.Parse(epgTimeLayout, text)
	if err != nil {
		return time.Time{}
	}
	return t
}

// DecodedTitle returns the title text. Values that are not valid base64 are
// returned as sent.
func (e *EPGListing) DecodedTitle() string {
	return decodeBase64Text(e.Title)
}

// DecodedDescription returns the description text, decoded like DecodedTitle.
func (e *EPGListing) DecodedDescription() string {
	return decodeBase64Text(e.Description)
}

func decodeBase64Text(s string) string {
	s = strings.TrimSpace(s)
	if s == "" {
		return ""
	}
	decoded, err := base64.StdEncoding.DecodeString(s)
	if err != nil {
		return s
	}
	return string(decoded)
}

// FlexInt decodes numbers that panels send either as JSON numbers or as
// strings. Anything unparseable decodes to 0.
type FlexInt int64

// Int returns the value as int64.
func (f FlexInt) Int() int64 {
	return int64(f)
}

// UnmarshalJSON accepts 42, "42", "" and null.
func (f *FlexInt) UnmarshalJSON(data []byte) error {
	*f = 0
	raw := string(bytes.Trim(data, `"`))
	if raw == "" || raw == "null" {
		return nil
	}
	if n, err := strconv.ParseInt(raw, 10, 64); err == nil {
		*f = FlexInt(n)
		return nil
	}
	if n, err := strconv.ParseFloat(raw, 64); err == nil {
		*f = FlexInt(n)
	}
	return nil
}

// FlexString decodes identifiers that panels send either as strings or as
// numbers.
type FlexString string

// String returns the value.
func (f FlexString) String() string {
	return string(f)
}

// UnmarshalJSON accepts "7", 7 and null.
func (f *FlexString) UnmarshalJSON(data []byte) error {
	var s string
	if err := json.Unmarshal(data, &s); err == nil {
		*f = FlexString(s)
		return nil
	}
	var n json.Number
	if err := json.Unmarshal(data, &n); err == nil {
		*f = FlexString(n.String())
		return nil
	}
	*f = ""
	return nil
}
