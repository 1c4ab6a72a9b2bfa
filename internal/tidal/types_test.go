package tidal

import (
	"encoding/json"
	"testing"
)

func TestIDAcceptsStringsAndNumbers(t *testing.T) {
	var item Item
	if err := json.Unmarshal([]byte(`{"id": 12345678, "album": {"id": "a1"}, "artists": [{"id": 7, "name": "X"}]}`), &item); err != nil {
		t.Fatalf("Unmarshal returned error: %v", err)
	}
	if item.ID != "12345678" {
		t.Fatalf("item id = %q, want 12345678", item.ID)
	}
	if item.Album == nil || item.Album.ID != "a1" {
		t.Fatalf("album = %#v, want id a1", item.Album)
	}
	if len(item.Artists) != 1 || item.Artists[0].ID != "7" {
		t.Fatalf("artists = %#v, want one artist id 7", item.Artists)
	}

	var id ID
	if err := json.Unmarshal([]byte(`null`), &id); err != nil || id != "" {
		t.Fatalf("null id = %q, %v; want empty, nil", id, err)
	}
	if err := json.Unmarshal([]byte(`{}`), &id); err == nil {
		t.Fatalf("object id returned nil error, want error")
	}
}

func TestErrorMessage(t *testing.T) {
	cases := []struct {
		name    string
		raw     string
		want    string
		wantErr bool
	}{
		{"missing", ``, "", false},
		{"null", `null`, "", false},
		{"false", `false`, "", false},
		{"empty string", `""`, "", false},
		{"zero", `0`, "", false},
		{"float zero", `0.0`, "", false},
		{"negative zero", `-0`, "", false},
		{"exponent zero", `0e10`, "", false},
		{"number", `2`, "2", true},
		{"string", `"player not ready"`, "player not ready", true},
		{"true", `true`, "true", true},
		{"object", `{"code":1}`, `{"code":1}`, true},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			np := NowPlaying{Error: json.RawMessage(tc.raw)}
			got, ok := np.ErrorMessage()
			if ok != tc.wantErr || got != tc.want {
				t.Fatalf("ErrorMessage() = %q, %v; want %q, %v", got, ok, tc.want, tc.wantErr)
			}
		})
	}
}

func TestRepeatFromCode(t *testing.T) {
	cases := []struct {
		code int
		want RepeatMode
		ok   bool
	}{
		{0, RepeatOff, true},
		{1, RepeatContext, true},
		{2, RepeatTrack, true},
		{3, "", false},
		{-1, "", false},
	}
	for _, tc := range cases {
		got, ok := RepeatFromCode(tc.code)
		if got != tc.want || ok != tc.ok {
			t.Fatalf("RepeatFromCode(%d) = %q, %v; want %q, %v", tc.code, got, ok, tc.want, tc.ok)
		}
	}
	if RepeatMode("all").Valid() {
		t.Fatalf("Valid() = true for unknown mode")
	}
}
