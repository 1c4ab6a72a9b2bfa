package state

import (
	"errors"
	"fmt"
	"math"
	"time"

	"github.com/samber/lo"

	"github.com/five82/tidalbridge/internal/tidal"
)

// RepeatUnset is reported until the first sync delivers a repeat mode.
const RepeatUnset tidal.RepeatMode = ""

// PlayerState is an immutable view of the store at one instant.
type PlayerState struct {
	Track      *Track // nil when nothing is loaded
	Playing    bool
	PositionMs int64
	Volume     int
	HasVolume  bool
	Repeat     tidal.RepeatMode
	Shuffle    bool
	HasShuffle bool
	Seeking    bool
	UpdatedAt  time.Time
}

// Track describes the loaded track.
type Track struct {
	ID         string
	Title      string
	DurationMs int64
	Album      Album
	Artists    []Artist
}

// Album of a Track.
type Album struct {
	ID     string
	Title  string
	ArtURL string
}

// Artist of a Track.
type Artist struct {
	ID   string
	Name string
}

// ArtistNames returns the artist names in order.
func (t Track) ArtistNames() []string {
	return lo.Map(t.Artists, func(a Artist, _ int) string { return a.Name })
}

func (t *Track) clone() *Track {
	dup := *t
	if len(t.Artists) > 0 {
		dup.Artists = make([]Artist, len(t.Artists))
		copy(dup.Artists, t.Artists)
	}
	return &dup
}

// ErrMalformedSnapshot is returned by ApplySnapshot for payloads that cannot
// be applied.
var ErrMalformedSnapshot = errors.New("malformed snapshot")

type parsedSnapshot struct {
	track      *Track
	playing    bool
	positionMs int64
	volume     *int
	repeat     *tidal.RepeatMode
	shuffle    *bool
}

func parseSnapshot(np *tidal.NowPlaying) (parsedSnapshot, error) {
	if np == nil {
		return parsedSnapshot{}, fmt.Errorf("%w: empty payload", ErrMalformedSnapshot)
	}

	out := parsedSnapshot{playing: !np.Paused}

	if np.Position != nil {
		if *np.Position < 0 || math.IsNaN(*np.Position) {
			return parsedSnapshot{}, fmt.Errorf("%w: position %v", ErrMalformedSnapshot, *np.Position)
		}
		out.positionMs = secondsToMs(*np.Position)
	}

	if np.Volume != nil {
		v := int(math.Round(*np.Volume))
		if v < 0 || v > 100 {
			return parsedSnapshot{}, fmt.Errorf("%w: volume %v", ErrMalformedSnapshot, *np.Volume)
		}
		out.volume = &v
	}

	if np.Repeat != nil {
		if mode, ok := tidal.RepeatFromCode(*np.Repeat); ok {
			out.repeat = &mode
		}
	}

	if np.Shuffle != nil {
		shuffle := *np.Shuffle
		out.shuffle = &shuffle
	}

	if np.Item != nil {
		track, err := parseTrack(np.Item, np.AlbumArt)
		if err != nil {
			return parsedSnapshot{}, err
		}
		out.track = track
	}

	return out, nil
}

func parseTrack(item *tidal.Item, artURL string) (*Track, error) {
	if item.Duration < 0 || math.IsNaN(item.Duration) {
		return nil, fmt.Errorf("%w: duration %v", ErrMalformedSnapshot, item.Duration)
	}
	track := &Track{
		ID:         string(item.ID),
		Title:      item.Title,
		DurationMs: secondsToMs(item.Duration),
		Album:      Album{ArtURL: artURL},
		Artists: lo.Map(item.Artists, func(a tidal.Artist, _ int) Artist {
			return Artist{ID: string(a.ID), Name: a.Name}
		}),
	}
	if item.Album != nil {
		track.Album.ID = string(item.Album.ID)
		track.Album.Title = item.Album.Title
	}
	return track, nil
}

func secondsToMs(seconds float64) int64 {
	return int64(math.Round(seconds * 1000))
}
