package tidal

import (
	"encoding/json"
	"fmt"
	"strings"
)

// NowPlaying mirrors the payload returned by GET /now-playing.
type NowPlaying struct {
	Item     *Item           `json:"item"`
	Paused   bool            `json:"paused"`
	Position *float64        `json:"position"` // seconds
	Volume   *float64        `json:"volume"`
	Repeat   *int            `json:"repeat"`
	Shuffle  *bool           `json:"shuffle"`
	AlbumArt string          `json:"albumArt"`
	Error    json.RawMessage `json:"error"`
}

// Item is the track currently loaded in the player.
type Item struct {
	ID       ID       `json:"id"`
	Title    string   `json:"title"`
	Duration float64  `json:"duration"` // seconds
	Album    *Album   `json:"album"`
	Artists  []Artist `json:"artists"`
}

// Album identifies the album of an Item.
type Album struct {
	ID    ID     `json:"id"`
	Title string `json:"title"`
}

// Artist identifies one performer of an Item.
type Artist struct {
	ID   ID     `json:"id"`
	Name string `json:"name"`
}

// ID accepts both JSON strings and numbers; Tidal uses numeric ids while
// other bridges send strings.
type ID string

// UnmarshalJSON implements json.Unmarshaler.
func (id *ID) UnmarshalJSON(data []byte) error {
	trimmed := strings.TrimSpace(string(data))
	if trimmed == "" || trimmed == "null" {
		*id = ""
		return nil
	}
	if strings.HasPrefix(trimmed, `"`) {
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return fmt.Errorf("decode id: %w", err)
		}
		*id = ID(s)
		return nil
	}
	var n json.Number
	if err := json.Unmarshal(data, &n); err != nil {
		return fmt.Errorf("decode id: %w", err)
	}
	*id = ID(n.String())
	return nil
}

// ErrorMessage reports the payload's error field when it carries a truthy
// value. A missing field, null, false, any zero number or an empty string
// mean no error.
func (n NowPlaying) ErrorMessage() (string, bool) {
	raw := strings.TrimSpace(string(n.Error))
	if raw == "" {
		return "", false
	}
	var v any
	if err := json.Unmarshal(n.Error, &v); err != nil {
		return raw, true
	}
	switch v := v.(type) {
	case nil:
		return "", false
	case bool:
		if !v {
			return "", false
		}
	case float64:
		if v == 0 {
			return "", false
		}
	case string:
		if v == "" {
			return "", false
		}
		return v, true
	}
	return raw, true
}

// RepeatMode is the player's repeat setting.
type RepeatMode string

const (
	RepeatOff     RepeatMode = "off"
	RepeatTrack   RepeatMode = "track"
	RepeatContext RepeatMode = "context"
)

// RepeatFromCode maps the integer code reported by /now-playing. Unknown codes
// return false.
func RepeatFromCode(code int) (RepeatMode, bool) {
	switch code {
	case 0:
		return RepeatOff, true
	case 1:
		return RepeatContext, true
	case 2:
		return RepeatTrack, true
	default:
		return "", false
	}
}

// Valid reports whether r is one of the known modes.
func (r RepeatMode) Valid() bool {
	switch r {
	case RepeatOff, RepeatTrack, RepeatContext:
		return true
	}
	return false
}
