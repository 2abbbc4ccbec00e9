/*
Copyright © 2026 Seednode <seednode@seedno.de>
*/

// Package validate sanitizes untrusted client input. Every function returns
// either a clean value or a zero value with ok == false; nothing here panics
// or returns input verbatim.
package validate

import (
	"encoding/json"
	"math"
	"regexp"
	"strconv"
	"strings"
	"unicode/utf8"

	"github.com/Seednode/quizbox/internal/session"
)

const (
	MaxNameLength    = 20
	MaxListLength    = 100
	MaxTextLength    = 200
	MaxURLLength     = 2048
	MaxResponseMilli = 60000
	MaxConnIDLength  = 64
)

var (
	namePattern   = regexp.MustCompile(`^[\p{L}\p{N}\s\-'_]+$`)
	gameIDPattern = regexp.MustCompile(`^[A-Z0-9]{6}$`)
	connIDPattern = regexp.MustCompile(`^[A-Za-z0-9_-]+$`)
)

// Text trims s and truncates it to limit runes.
func Text(s string, limit int) string {
	s = strings.TrimSpace(s)
	if utf8.RuneCountInString(s) <= limit {
		return s
	}
	return strings.TrimSpace(string([]rune(s)[:limit]))
}

// String decodes a JSON string and sanitizes it; anything else becomes "".
func String(raw json.RawMessage, limit int) string {
	var s string
	if err := json.Unmarshal(raw, &s); err != nil {
		return ""
	}
	return Text(s, limit)
}

func isNull(raw json.RawMessage) bool {
	return len(raw) == 0 || strings.TrimSpace(string(raw)) == "null"
}

// Bool accepts only a JSON boolean.
func Bool(raw json.RawMessage) (bool, bool) {
	if isNull(raw) {
		return false, false
	}
	var b bool
	if err := json.Unmarshal(raw, &b); err != nil {
		return false, false
	}
	return b, true
}

// Number accepts a JSON number or a numeric string.
func Number(raw json.RawMessage) (float64, bool) {
	if isNull(raw) {
		return 0, false
	}

	var f float64
	if err := json.Unmarshal(raw, &f); err != nil {
		var s string
		if err := json.Unmarshal(raw, &s); err != nil {
			return 0, false
		}
		f, err = strconv.ParseFloat(strings.TrimSpace(s), 64)
		if err != nil {
			return 0, false
		}
	}

	if math.IsNaN(f) || math.IsInf(f, 0) {
		return 0, false
	}
	return f, true
}

// Integer is Number truncated toward zero.
func Integer(raw json.RawMessage) (int, bool) {
	f, ok := Number(raw)
	if !ok || math.Abs(f) > math.MaxInt32 {
		return 0, false
	}
	return int(math.Trunc(f)), true
}

func clampInt(raw json.RawMessage, lo, hi, fallback int) int {
	n, ok := Integer(raw)
	if !ok {
		return fallback
	}
	return min(max(n, lo), hi)
}

func PlayerName(name string) (string, bool) {
	name = strings.TrimSpace(name)
	if name == "" || utf8.RuneCountInString(name) > MaxNameLength {
		return "", false
	}
	if !namePattern.MatchString(name) {
		return "", false
	}
	return name, true
}

func GameID(id string) (string, bool) {
	id = strings.ToUpper(strings.TrimSpace(id))
	if !gameIDPattern.MatchString(id) {
		return "", false
	}
	return id, true
}

func ConnectionID(id string) (string, bool) {
	id = strings.TrimSpace(id)
	if id == "" || len(id) > MaxConnIDLength || !connIDPattern.MatchString(id) {
		return "", false
	}
	return id, true
}

func SongIndex(raw json.RawMessage) (int, bool) {
	n, ok := Integer(raw)
	if !ok || n < 0 || n >= MaxListLength {
		return 0, false
	}
	return n, true
}

func OptionIndex(raw json.RawMessage) (int, bool) {
	n, ok := Integer(raw)
	if !ok || n < 0 || n > 3 {
		return 0, false
	}
	return n, true
}

func SongsCount(raw json.RawMessage, fallback int) int {
	return clampInt(raw, session.MinSongsCount, session.MaxSongsCount, fallback)
}

func ClipDuration(raw json.RawMessage, fallback int) int {
	return clampInt(raw, session.MinClipDuration, session.MaxClipDuration, fallback)
}

func AnswerTime(raw json.RawMessage, fallback int) int {
	return clampInt(raw, session.MinAnswerTime, session.MaxAnswerTime, fallback)
}

func MaxPlayers(raw json.RawMessage, fallback int) int {
	return clampInt(raw, session.MinMaxPlayers, session.MaxMaxPlayers, fallback)
}

func Autoplay(raw json.RawMessage, fallback bool) bool {
	b, ok := Bool(raw)
	if !ok {
		return fallback
	}
	return b
}

// GameSettings clamps each field on its own; a broken blob yields defaults.
func GameSettings(raw json.RawMessage) session.Settings {
	def := session.DefaultSettings()

	var fields map[string]json.RawMessage
	if err := json.Unmarshal(raw, &fields); err != nil {
		return def
	}

	return session.Settings{
		SongsCount:      SongsCount(fields["songsCount"], def.SongsCount),
		ClipDuration:    ClipDuration(fields["clipDuration"], def.ClipDuration),
		AnswerTime:      AnswerTime(fields["answerTime"], def.AnswerTime),
		MaxPlayers:      MaxPlayers(fields["maxPlayers"], def.MaxPlayers),
		AutoplayEnabled: Autoplay(fields["autoplayEnabled"], def.AutoplayEnabled),
	}
}

type Answer struct {
	Index               int
	ResponseTime        float64
	ResponseTimeSeconds float64
}

func AnswerSubmission(answerIndex, responseTime json.RawMessage) (Answer, bool) {
	idx, ok := OptionIndex(answerIndex)
	if !ok {
		return Answer{}, false
	}

	rt, ok := Number(responseTime)
	if !ok || rt < 0 || rt > MaxResponseMilli {
		return Answer{}, false
	}

	return Answer{
		Index:               idx,
		ResponseTime:        rt,
		ResponseTimeSeconds: min(max(rt/1000, 0), 60),
	}, true
}

// URL keeps http(s) and root-relative URLs only.
func URL(raw json.RawMessage) string {
	u := String(raw, MaxURLLength)
	lower := strings.ToLower(u)
	if strings.HasPrefix(lower, "http://") || strings.HasPrefix(lower, "https://") ||
		(strings.HasPrefix(u, "/") && !strings.HasPrefix(u, "//")) {
		return u
	}
	return ""
}

// SongsMetadata keeps at most MaxListLength entries and drops anything that
// is not an object.
func SongsMetadata(raw json.RawMessage) []session.Song {
	var entries []json.RawMessage
	if err := json.Unmarshal(raw, &entries); err != nil {
		return nil
	}
	if len(entries) > MaxListLength {
		entries = entries[:MaxListLength]
	}

	songs := make([]session.Song, 0, len(entries))
	for _, entry := range entries {
		var fields map[string]json.RawMessage
		if err := json.Unmarshal(entry, &fields); err != nil || fields == nil {
			continue
		}

		year := String(fields["year"], 10)
		if year == "" {
			if n, ok := Integer(fields["year"]); ok && n > 0 {
				year = strconv.Itoa(n)
			}
		}

		songs = append(songs, session.Song{
			Title:    String(fields["title"], MaxTextLength),
			Artist:   String(fields["artist"], MaxTextLength),
			Album:    String(fields["album"], MaxTextLength),
			Year:     year,
			AudioURL: URL(fields["audioUrl"]),
			CoverURL: URL(fields["coverUrl"]),
		})
	}
	return songs
}

// KahootOption validates one four-choice question.
func KahootOption(options, correctIndex json.RawMessage) (session.KahootOption, bool) {
	var raw []json.RawMessage
	if err := json.Unmarshal(options, &raw); err != nil || len(raw) != 4 {
		return session.KahootOption{}, false
	}

	idx, ok := OptionIndex(correctIndex)
	if !ok {
		return session.KahootOption{}, false
	}

	out := session.KahootOption{CorrectIndex: idx}
	for i, r := range raw {
		var s string
		if err := json.Unmarshal(r, &s); err != nil {
			return session.KahootOption{}, false
		}
		out.Options[i] = Text(s, MaxTextLength)
	}
	return out, true
}

// KahootOptions accepts either an object keyed by song index or an array
// indexed by position. Bad entries are dropped individually.
func KahootOptions(raw json.RawMessage) map[int]session.KahootOption {
	out := make(map[int]session.KahootOption)

	entries := make(map[int]json.RawMessage)
	var keyed map[string]json.RawMessage
	var listed []json.RawMessage
	switch {
	case json.Unmarshal(raw, &keyed) == nil:
		for k, v := range keyed {
			idx, err := strconv.Atoi(strings.TrimSpace(k))
			if err != nil || idx < 0 || idx >= MaxListLength {
				continue
			}
			entries[idx] = v
		}
	case json.Unmarshal(raw, &listed) == nil:
		for i, v := range listed {
			if i >= MaxListLength {
				break
			}
			entries[i] = v
		}
	default:
		return out
	}

	for idx, entry := range entries {
		var fields struct {
			Options      json.RawMessage `json:"options"`
			CorrectIndex json.RawMessage `json:"correctIndex"`
		}
		if err := json.Unmarshal(entry, &fields); err != nil {
			continue
		}
		opt, ok := KahootOption(fields.Options, fields.CorrectIndex)
		if !ok {
			continue
		}
		out[idx] = opt
	}
	return out
}
