package hlsprobe

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"time"

	"github.com/bluenviron/gohlslib/v2/pkg/playlist"

	"github.com/jmylchreest/tvee/internal/urlutil"
)

var errEmptyPlaylist = errors.New("media playlist has no segments")

// mediaPlaylist is a fetched media playlist and the URL it was served from
// after redirects, which its segment URIs are relative to.
type mediaPlaylist struct {
	url   string
	media *playlist.Media
}

// fetchMedia fetches url. A multivariant playlist is resolved to one of its
// variants: the first listed when firstEligible is set, otherwise the one
// with the highest bandwidth.
func (e *Engine) fetchMedia(ctx context.Context, url string, firstEligible bool) (*mediaPlaylist, error) {
	body, servedURL, err := e.fetcher.GetBodyURL(ctx, url)
	if err != nil {
		return nil, fmt.Errorf("fetching playlist: %w", err)
	}

	pl, err := playlist.Unmarshal(body)
	if err != nil {
		return nil, fmt.Errorf("parsing playlist: %w", err)
	}

	switch p := pl.(type) {
	case *playlist.Media:
		if len(p.Segments) == 0 {
			return nil, errEmptyPlaylist
		}
		return &mediaPlaylist{url: servedURL, media: p}, nil

	case *playlist.Multivariant:
		variant := chooseVariant(p.Variants, firstEligible)
		if variant == nil {
			return nil, fmt.Errorf("multivariant playlist has no variants")
		}
		body, variantURL, err := e.fetcher.GetBodyURL(ctx, urlutil.Absolutize(servedURL, variant.URI))
		if err != nil {
			return nil, fmt.Errorf("fetching variant: %w", err)
		}
		vpl, err := playlist.Unmarshal(body)
		if err != nil {
			return nil, fmt.Errorf("parsing variant: %w", err)
		}
		media, ok := vpl.(*playlist.Media)
		if !ok {
			return nil, fmt.Errorf("variant %s is not a media playlist", variant.URI)
		}
		if len(media.Segments) == 0 {
			return nil, errEmptyPlaylist
		}
		return &mediaPlaylist{url: variantURL, media: media}, nil

	default:
		return nil, fmt.Errorf("unsupported playlist type %T", pl)
	}
}

func chooseVariant(variants []*playlist.MultivariantVariant, firstEligible bool) *playlist.MultivariantVariant {
	if len(variants) == 0 {
		return nil
	}
	if firstEligible {
		return variants[0]
	}
	return slices.MaxFunc(variants, func(a, b *playlist.MultivariantVariant) int {
		return a.Bandwidth - b.Bandwidth
	})
}

// position locates the segment offset behind the live edge. It returns the
// segment index, the media duration from that segment to the edge, and the
// total duration the playlist holds.
func position(segments []*playlist.MediaSegment, offset time.Duration) (idx int, ahead, total time.Duration) {
	for _, s := range segments {
		total += s.Duration
	}

	idx = 0
	for i := len(segments) - 1; i >= 0; i-- {
		ahead += segments[i].Duration
		if ahead >= offset {
			return i, ahead, total
		}
	}
	return idx, ahead, total
}

// pollInterval is half the target duration, never below floor.
func pollInterval(media *playlist.Media, floor time.Duration) time.Duration {
	interval := time.Duration(media.TargetDuration) * time.Second / 2
	return max(interval, floor)
}
