package hlsprobe

import (
	"bytes"
	"fmt"

	"github.com/bluenviron/mediacommon/v2/pkg/formats/mpegts"

	"github.com/jmylchreest/tvee/internal/playback"
)

// demuxTracks reads the PAT/PMT of an MPEG-TS segment and lists its
// elementary streams.
func demuxTracks(segment []byte) ([]playback.Track, error) {
	reader := &mpegts.Reader{R: bytes.NewReader(segment)}
	if err := reader.Initialize(); err != nil {
		return nil, fmt.Errorf("reading segment tables: %w", err)
	}

	tracks := make([]playback.Track, 0, len(reader.Tracks()))
	for _, t := range reader.Tracks() {
		tracks = append(tracks, classify(t.Codec))
	}
	return tracks, nil
}

func classify(c mpegts.Codec) playback.Track {
	switch c.(type) {
	case *mpegts.CodecH264:
		return playback.Track{Kind: playback.TrackVideo, Codec: "h264"}
	case *mpegts.CodecH265:
		return playback.Track{Kind: playback.TrackVideo, Codec: "h265"}
	case *mpegts.CodecMPEG1Video:
		return playback.Track{Kind: playback.TrackVideo, Codec: "mpeg1video"}
	case *mpegts.CodecMPEG4Video:
		return playback.Track{Kind: playback.TrackVideo, Codec: "mpeg4video"}
	case *mpegts.CodecMPEG4Audio:
		return playback.Track{Kind: playback.TrackAudio, Codec: "aac"}
	case *mpegts.CodecMPEG1Audio:
		return playback.Track{Kind: playback.TrackAudio, Codec: "mp3"}
	case *mpegts.CodecAC3:
		return playback.Track{Kind: playback.TrackAudio, Codec: "ac3"}
	case *mpegts.CodecEAC3:
		return playback.Track{Kind: playback.TrackAudio, Codec: "eac3"}
	case *mpegts.CodecOpus:
		return playback.Track{Kind: playback.TrackAudio, Codec: "opus"}
	default:
		return playback.Track{Kind: playback.TrackOther, Codec: fmt.Sprintf("%T", c)}
	}
}
