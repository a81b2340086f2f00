package domain

import (
	"bytes"
	"encoding/json"
	"fmt"
	"math"
	"slices"
	"strconv"
	"strings"
	"unicode"
)

// UnknownAirSeason is shown when a post has no air season.
const UnknownAirSeason = "Unknown"

// Post represents a catalog entry (one anime title)
type Post struct {
	ID         int      // Sequential identifier, 0 = not yet assigned
	Title      string   // Display title
	Year       string   // Release year as published ("2025")
	Season     string   // Season label ("Season 1")
	Poster     string   // Poster image URL
	Categories []string // Genre-like tags ("Action", "Drama")
	Labels     []string // Badge tags ("Popular", "Telugu Dub")
	AirSeason  string   // Broadcast season ("Summer")

	// Extra carries every other field (rating, synopsis, crew, cast,
	// platforms, trailers, ...) verbatim. It is never interpreted.
	Extra map[string]json.RawMessage

	// present holds the typed keys that were decoded or marked set, with
	// their decoded JSON. A nil value means set but never decoded.
	present map[string]json.RawMessage
}

// JSON keys of the typed Post fields
const (
	FieldID         = "id"
	FieldTitle      = "title"
	FieldYear       = "year"
	FieldSeason     = "season"
	FieldPoster     = "poster"
	FieldCategories = "categories"
	FieldLabels     = "labels"
	FieldAirSeason  = "airSeason"
)

// MarkSet records typed fields as present even when they hold their zero
// value, so a patch built in code can clear them ("title" to "").
func (p *Post) MarkSet(keys ...string) {
	if p.present == nil {
		p.present = make(map[string]json.RawMessage, len(keys))
	}
	for _, k := range keys {
		if _, ok := p.present[k]; !ok {
			p.present[k] = nil
		}
	}
}

// MarshalJSON writes the present typed fields plus all extra fields. A typed
// field that was decoded and not changed since is written back as decoded
// (2025 stays a number). Absent fields with a zero value are omitted, so a
// Post can also act as a partial update.
func (p Post) MarshalJSON() ([]byte, error) {
	fields, err := p.fields()
	if err != nil {
		return nil, err
	}
	return json.Marshal(fields)
}

func (p Post) fields() (map[string]json.RawMessage, error) {
	fields := make(map[string]json.RawMessage, len(p.Extra)+8)
	for k, v := range p.Extra {
		fields[k] = v
	}

	emit := func(key string, v any, zero bool, unchanged func(json.RawMessage) bool) error {
		raw, ok := p.present[key]
		if !ok && zero {
			return nil
		}
		if raw != nil && unchanged(raw) {
			fields[key] = raw
			return nil
		}
		data, err := json.Marshal(v)
		if err != nil {
			return fmt.Errorf("encode %s: %w", key, err)
		}
		fields[key] = data
		return nil
	}

	if err := emit(FieldID, p.ID, p.ID == 0, func(raw json.RawMessage) bool {
		id, err := decodeID(raw)
		return err == nil && id == p.ID
	}); err != nil {
		return nil, err
	}

	for _, f := range []struct {
		key string
		v   string
	}{
		{FieldTitle, p.Title},
		{FieldYear, p.Year},
		{FieldSeason, p.Season},
		{FieldPoster, p.Poster},
		{FieldAirSeason, p.AirSeason},
	} {
		if err := emit(f.key, f.v, f.v == "", func(raw json.RawMessage) bool {
			s, err := decodeText(raw)
			return err == nil && s == f.v
		}); err != nil {
			return nil, err
		}
	}

	for _, f := range []struct {
		key string
		v   []string
	}{
		{FieldCategories, p.Categories},
		{FieldLabels, p.Labels},
	} {
		if err := emit(f.key, f.v, f.v == nil, func(raw json.RawMessage) bool {
			tags, err := decodeTags(raw)
			return err == nil && slices.Equal(tags, f.v) && (tags == nil) == (f.v == nil)
		}); err != nil {
			return nil, err
		}
	}
	return fields, nil
}

// UnmarshalJSON reads the typed fields and keeps everything else in Extra.
func (p *Post) UnmarshalJSON(data []byte) error {
	var fields map[string]json.RawMessage
	if err := json.Unmarshal(data, &fields); err != nil {
		return err
	}
	if fields == nil {
		return fmt.Errorf("post must be a JSON object")
	}
	return p.setFields(fields)
}

func (p *Post) setFields(fields map[string]json.RawMessage) error {
	*p = Post{}
	var err error
	for key, raw := range fields {
		switch key {
		case FieldID:
			p.ID, err = decodeID(raw)
		case FieldTitle:
			p.Title, err = decodeText(raw)
		case FieldYear:
			p.Year, err = decodeText(raw)
		case FieldSeason:
			p.Season, err = decodeText(raw)
		case FieldPoster:
			p.Poster, err = decodeText(raw)
		case FieldAirSeason:
			p.AirSeason, err = decodeText(raw)
		case FieldCategories:
			p.Categories, err = decodeTags(raw)
		case FieldLabels:
			p.Labels, err = decodeTags(raw)
		default:
			if p.Extra == nil {
				p.Extra = make(map[string]json.RawMessage)
			}
			p.Extra[key] = append(json.RawMessage(nil), raw...)
			continue
		}
		if err != nil {
			return fmt.Errorf("decode %s: %w", key, err)
		}
		if p.present == nil {
			p.present = make(map[string]json.RawMessage)
		}
		p.present[key] = append(json.RawMessage(nil), raw...)
	}
	return nil
}

// Merge returns p with every field present in patch applied on top,
// including fields the patch sets to an empty value. The id of p is
// always kept.
func (p Post) Merge(patch Post) (Post, error) {
	base, err := p.fields()
	if err != nil {
		return Post{}, err
	}
	over, err := patch.fields()
	if err != nil {
		return Post{}, err
	}
	for k, v := range over {
		if k == FieldID {
			continue
		}
		base[k] = v
	}

	var merged Post
	if err := merged.setFields(base); err != nil {
		return Post{}, err
	}
	merged.ID = p.ID
	return merged, nil
}

// Clone returns a deep copy of the post
func (p Post) Clone() Post {
	c := p
	if p.Categories != nil {
		c.Categories = append([]string{}, p.Categories...)
	}
	if p.Labels != nil {
		c.Labels = append([]string{}, p.Labels...)
	}
	c.Extra = cloneRaw(p.Extra)
	c.present = cloneRaw(p.present)
	return c
}

// Index returns the summary shape used by list views
func (p Post) Index() IndexPost {
	idx := IndexPost{
		ID:         p.ID,
		Title:      p.Title,
		Year:       p.Year,
		Season:     p.Season,
		Poster:     p.Poster,
		Categories: append([]string{}, p.Categories...),
		Labels:     append([]string{}, p.Labels...),
		AirSeason:  p.AirSeason,
	}
	if idx.AirSeason == "" {
		idx.AirSeason = UnknownAirSeason
	}
	return idx
}

// IndexPost is the reduced post shape for list/summary display.
// Categories and Labels are never nil.
type IndexPost struct {
	ID         int      `json:"id"`
	Title      string   `json:"title"`
	Year       string   `json:"year"`
	Season     string   `json:"season"`
	Poster     string   `json:"poster"`
	Categories []string `json:"categories"`
	Labels     []string `json:"labels"`
	AirSeason  string   `json:"airSeason"`
}

// ParsePostID reads the leading integer of s, ignoring surrounding
// whitespace ("12", " 12 ", "12abc" all yield 12).
func ParsePostID(s string) (int, error) {
	s = strings.TrimLeftFunc(s, unicode.IsSpace)
	end := 0
	if end < len(s) && (s[end] == '-' || s[end] == '+') {
		end++
	}
	start := end
	for end < len(s) && s[end] >= '0' && s[end] <= '9' {
		end++
	}
	if end == start {
		return 0, fmt.Errorf("invalid post id %q", s)
	}
	id, err := strconv.Atoi(s[:end])
	if err != nil {
		return 0, fmt.Errorf("invalid post id %q: %w", s, err)
	}
	return id, nil
}

func decodeID(raw json.RawMessage) (int, error) {
	raw = bytes.TrimSpace(raw)
	if isNull(raw) {
		return 0, nil
	}
	if raw[0] == '"' {
		var s string
		if err := json.Unmarshal(raw, &s); err != nil {
			return 0, err
		}
		return ParsePostID(s)
	}
	var n json.Number
	if err := json.Unmarshal(raw, &n); err != nil {
		return 0, err
	}
	if id, err := n.Int64(); err == nil {
		if id > math.MaxInt || id < math.MinInt {
			return 0, fmt.Errorf("id %s out of range", n)
		}
		return int(id), nil
	}
	f, err := n.Float64()
	if err != nil {
		return 0, err
	}
	// float64(math.MaxInt) rounds up past the range, so >= excludes it
	if f >= float64(math.MaxInt) || f < float64(math.MinInt) {
		return 0, fmt.Errorf("id %s out of range", n)
	}
	return int(f), nil
}

// decodeText accepts a JSON string or a bare number ("2025" or 2025).
func decodeText(raw json.RawMessage) (string, error) {
	raw = bytes.TrimSpace(raw)
	if isNull(raw) {
		return "", nil
	}
	if raw[0] == '"' {
		var s string
		err := json.Unmarshal(raw, &s)
		return s, err
	}
	var n json.Number
	if err := json.Unmarshal(raw, &n); err != nil {
		return "", err
	}
	return n.String(), nil
}

func decodeTags(raw json.RawMessage) ([]string, error) {
	if isNull(bytes.TrimSpace(raw)) {
		return nil, nil
	}
	var tags []string
	err := json.Unmarshal(raw, &tags)
	return tags, err
}

func isNull(raw json.RawMessage) bool {
	return len(raw) == 0 || bytes.Equal(raw, []byte("null"))
}

func cloneRaw(m map[string]json.RawMessage) map[string]json.RawMessage {
	if m == nil {
		return nil
	}
	out := make(map[string]json.RawMessage, len(m))
	for k, v := range m {
		if v == nil {
			out[k] = nil
			continue
		}
		out[k] = append(json.RawMessage(nil), v...)
	}
	return out
}
