package feed

import (
	"bytes"
	"encoding/json"
	"io"
	"strconv"
)

// OutputRecord is one entry of the emitted feed.
type OutputRecord struct {
	Title     string
	ID        string
	PosterURL string
	IDKey     string
}

// MarshalJSON writes title, the feed's id key and poster_url in that order.
// Numeric TVDB ids are written as numbers.
func (r OutputRecord) MarshalJSON() ([]byte, error) {
	var buf bytes.Buffer
	buf.WriteByte('{')
	if err := writeField(&buf, "title", r.Title, false); err != nil {
		return nil, err
	}
	key := r.IDKey
	if key == "" {
		key = IDKeyIMDb
	}
	var id any = r.ID
	if key == IDKeyTVDB {
		if n, err := strconv.ParseInt(r.ID, 10, 64); err == nil {
			id = n
		}
	}
	if err := writeField(&buf, key, id, true); err != nil {
		return nil, err
	}
	if err := writeField(&buf, "poster_url", r.PosterURL, true); err != nil {
		return nil, err
	}
	buf.WriteByte('}')
	return buf.Bytes(), nil
}

func writeField(buf *bytes.Buffer, key string, value any, comma bool) error {
	if comma {
		buf.WriteByte(',')
	}
	if err := appendJSON(buf, key); err != nil {
		return err
	}
	buf.WriteByte(':')
	return appendJSON(buf, value)
}

func appendJSON(buf *bytes.Buffer, value any) error {
	enc := json.NewEncoder(buf)
	enc.SetEscapeHTML(false)
	if err := enc.Encode(value); err != nil {
		return err
	}
	buf.Truncate(buf.Len() - 1)
	return nil
}

// Encode writes records as a JSON array indented by four spaces.
func Encode(w io.Writer, records []OutputRecord) error {
	if records == nil {
		records = []OutputRecord{}
	}
	enc := json.NewEncoder(w)
	enc.SetIndent("", "    ")
	enc.SetEscapeHTML(false)
	return enc.Encode(records)
}
