// Package cache implements reading and writing of the dashboard's JSON
// data caches.
//
// Two files make up the cache. The tweet capture, written by the upstream
// collector and never modified here:
//
//	{
//	    "tweets": [
//	        { "id": 1, "text": "hello", "lang": "en", ... },
//	        ...
//	    ]
//	}
//
// And the analysis output, which dashkit patches in place:
//
//	{
//	    "items": [
//	        { "id": 1, "sentiment": "positive", "translation": "你好", ... },
//	        ...
//	    ]
//	}
//
// Analysis items carry arbitrary fields produced by the analysis pipeline.
// Only the "translation" field is ever written by dashkit; everything else
// round-trips byte for byte, in its original order, so rewrites diff
// cleanly against the pipeline's own output. An absent translation or the
// empty string means "not yet translated"; null or any non-string value
// counts as present and is left alone.
package cache

import (
	"bytes"
	"encoding/json"
	"fmt"
	"os"
)

// ---------------------------------------------------------------------------
// Identifiers
// ---------------------------------------------------------------------------

// ID is a record identifier in its raw JSON form (a string or number
// token, e.g. `42` or `"a1b2"`). Identifiers from both cache files are
// compared as compact tokens, so `42` matches `42` but not `"42"`.
type ID string

// idFromRaw normalizes a raw JSON value into an ID.
func idFromRaw(raw json.RawMessage) ID {
	var buf bytes.Buffer
	if err := json.Compact(&buf, raw); err != nil {
		return ID(bytes.TrimSpace(raw))
	}
	return ID(buf.String())
}

// String renders the identifier for logs, without JSON string quotes.
func (id ID) String() string {
	if len(id) >= 2 && id[0] == '"' {
		var s string
		if err := json.Unmarshal([]byte(id), &s); err == nil {
			return s
		}
	}
	return string(id)
}

// ---------------------------------------------------------------------------
// Tweet capture
// ---------------------------------------------------------------------------

// Tweet is one record from the tweet capture.
type Tweet struct {
	ID   ID
	Text string
	Lang string
}

// TweetFile holds the parsed tweet capture in stored order.
type TweetFile struct {
	Tweets []Tweet
}

// ParseTweets parses the tweet capture. Every record must carry id, text
// and lang; the top-level "tweets" array must be present.
func ParseTweets(data []byte) (*TweetFile, error) {
	var doc struct {
		Tweets json.RawMessage `json:"tweets"`
	}
	if err := json.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("parsing JSON: %w", err)
	}
	if len(doc.Tweets) == 0 || string(doc.Tweets) == "null" {
		return nil, fmt.Errorf(`missing "tweets" array`)
	}

	var raws []struct {
		ID   json.RawMessage `json:"id"`
		Text *string         `json:"text"`
		Lang *string         `json:"lang"`
	}
	if err := json.Unmarshal(doc.Tweets, &raws); err != nil {
		return nil, fmt.Errorf("parsing tweets: %w", err)
	}

	f := &TweetFile{Tweets: make([]Tweet, 0, len(raws))}
	for i, r := range raws {
		if len(r.ID) == 0 {
			return nil, fmt.Errorf(`tweet #%d: missing "id"`, i+1)
		}
		if r.Text == nil {
			return nil, fmt.Errorf(`tweet #%d: missing "text"`, i+1)
		}
		if r.Lang == nil {
			return nil, fmt.Errorf(`tweet #%d: missing "lang"`, i+1)
		}
		f.Tweets = append(f.Tweets, Tweet{ID: idFromRaw(r.ID), Text: *r.Text, Lang: *r.Lang})
	}
	return f, nil
}

// ParseTweetsFile reads and parses the tweet capture from disk.
func ParseTweetsFile(path string) (*TweetFile, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading %s: %w", path, err)
	}
	f, err := ParseTweets(data)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return f, nil
}

// LangCounts returns tweet counts per language tag.
func (f *TweetFile) LangCounts() map[string]int {
	counts := make(map[string]int)
	for _, t := range f.Tweets {
		counts[t.Lang]++
	}
	return counts
}

// ---------------------------------------------------------------------------
// Analysis output
// ---------------------------------------------------------------------------

// AnalysisFile holds the parsed analysis output. Top-level fields other
// than "items" are preserved as raw JSON in their original positions.
type AnalysisFile struct {
	fields []docField
	Items  []*Item
}

// docField is one top-level field. The live "items" field has nil raw.
type docField struct {
	name string
	raw  json.RawMessage
}

// Item is one analysis record: an ordered list of fields kept as raw JSON.
type Item struct {
	fields []itemField
	id     ID
}

type itemField struct {
	name string
	raw  json.RawMessage
}

// ParseAnalysis parses the analysis output, preserving top-level and
// per-item field order. The top-level "items" array must be present and
// every item must carry an "id".
func ParseAnalysis(data []byte) (*AnalysisFile, error) {
	fields, err := parseOrderedObject(json.NewDecoder(bytes.NewReader(data)))
	if err != nil {
		return nil, fmt.Errorf("parsing JSON: %w", err)
	}

	f := &AnalysisFile{fields: fields}

	// The last "items" field wins, matching JSON object value semantics.
	itemsIdx := -1
	for i, fld := range f.fields {
		if fld.name == "items" {
			itemsIdx = i
		}
	}
	if itemsIdx < 0 || string(bytes.TrimSpace(f.fields[itemsIdx].raw)) == "null" {
		return nil, fmt.Errorf(`missing "items" array`)
	}

	items, err := parseItems(f.fields[itemsIdx].raw)
	if err != nil {
		return nil, err
	}
	f.Items = items
	f.fields[itemsIdx].raw = nil
	return f, nil
}

// ParseAnalysisFile reads and parses the analysis output from disk.
func ParseAnalysisFile(path string) (*AnalysisFile, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading %s: %w", path, err)
	}
	f, err := ParseAnalysis(data)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return f, nil
}

// parseOrderedObject consumes one JSON object from dec, keeping field
// order. Values are captured raw, not walked.
func parseOrderedObject(dec *json.Decoder) ([]docField, error) {
	t, err := dec.Token()
	if err != nil {
		return nil, err
	}
	if delim, ok := t.(json.Delim); !ok || delim != '{' {
		return nil, fmt.Errorf("expected {, got %v", t)
	}

	var fields []docField
	for dec.More() {
		kt, err := dec.Token()
		if err != nil {
			return nil, err
		}
		key, ok := kt.(string)
		if !ok {
			return nil, fmt.Errorf("expected string key, got %T", kt)
		}

		var raw json.RawMessage
		if err := dec.Decode(&raw); err != nil {
			return nil, fmt.Errorf("reading value of %q: %w", key, err)
		}
		fields = append(fields, docField{name: key, raw: raw})
	}

	if _, err := dec.Token(); err != nil {
		return nil, err
	}
	return fields, nil
}

// parseItems parses the "items" array into ordered Items.
func parseItems(raw json.RawMessage) ([]*Item, error) {
	dec := json.NewDecoder(bytes.NewReader(raw))

	t, err := dec.Token()
	if err != nil {
		return nil, fmt.Errorf("parsing items: %w", err)
	}
	if delim, ok := t.(json.Delim); !ok || delim != '[' {
		return nil, fmt.Errorf("items: expected [, got %v", t)
	}

	var items []*Item
	for dec.More() {
		fields, err := parseOrderedObject(dec)
		if err != nil {
			return nil, fmt.Errorf("items[%d]: %w", len(items), err)
		}

		it := &Item{}
		for _, fld := range fields {
			it.fields = append(it.fields, itemField{name: fld.name, raw: fld.raw})
			if fld.name == "id" && it.id == "" {
				it.id = idFromRaw(fld.raw)
			}
		}
		if it.id == "" {
			return nil, fmt.Errorf(`items[%d]: missing "id"`, len(items))
		}
		items = append(items, it)
	}

	if _, err := dec.Token(); err != nil {
		return nil, err
	}
	return items, nil
}

// ---------------------------------------------------------------------------
// Item access
// ---------------------------------------------------------------------------

// ID returns the item's identifier.
func (it *Item) ID() ID {
	return it.id
}

// field returns the raw value of a named field.
func (it *Item) field(name string) (json.RawMessage, bool) {
	for _, fld := range it.fields {
		if fld.name == name {
			return fld.raw, true
		}
	}
	return nil, false
}

// NeedsTranslation reports whether the item has no usable translation:
// the field is absent or holds the empty string. Null and non-string
// values count as present.
func (it *Item) NeedsTranslation() bool {
	raw, ok := it.field("translation")
	if !ok {
		return true
	}
	return string(bytes.TrimSpace(raw)) == `""`
}

// Translation returns the translation string, or "" when the field is
// absent or not a string.
func (it *Item) Translation() string {
	raw, ok := it.field("translation")
	if !ok {
		return ""
	}
	var s string
	if err := json.Unmarshal(raw, &s); err != nil {
		return ""
	}
	return s
}

// SetTranslation sets the translation field. An existing field keeps its
// position; a new one is appended after the item's last field.
func (it *Item) SetTranslation(s string) {
	raw := encodeJSONString(s)
	for i := range it.fields {
		if it.fields[i].name == "translation" {
			it.fields[i].raw = raw
			return
		}
	}
	it.fields = append(it.fields, itemField{name: "translation", raw: raw})
}

// ---------------------------------------------------------------------------
// Lookups
// ---------------------------------------------------------------------------

// Index returns an id → item map. Later duplicates win.
func (f *AnalysisFile) Index() map[ID]*Item {
	idx := make(map[ID]*Item, len(f.Items))
	for _, it := range f.Items {
		idx[it.id] = it
	}
	return idx
}

// First returns the first item with the given id, scanning in stored
// order, or nil when none matches.
func (f *AnalysisFile) First(id ID) *Item {
	for _, it := range f.Items {
		if it.id == id {
			return it
		}
	}
	return nil
}

// ---------------------------------------------------------------------------
// Writing
// ---------------------------------------------------------------------------

// Marshal renders the document with 2-space indentation, preserving field
// order and the raw bytes of every value dashkit did not touch. Non-ASCII
// text in written values stays literal. No trailing newline, matching the
// analysis pipeline's own writer.
func (f *AnalysisFile) Marshal() ([]byte, error) {
	var b bytes.Buffer
	b.WriteString("{\n")
	for i, fld := range f.fields {
		b.WriteString("  ")
		b.Write(encodeJSONString(fld.name))
		b.WriteString(": ")
		if fld.raw == nil {
			if err := f.writeItems(&b); err != nil {
				return nil, err
			}
		} else if err := json.Indent(&b, fld.raw, "  ", "  "); err != nil {
			return nil, fmt.Errorf("field %q: %w", fld.name, err)
		}
		if i < len(f.fields)-1 {
			b.WriteByte(',')
		}
		b.WriteByte('\n')
	}
	b.WriteString("}")
	return b.Bytes(), nil
}

func (f *AnalysisFile) writeItems(b *bytes.Buffer) error {
	if len(f.Items) == 0 {
		b.WriteString("[]")
		return nil
	}
	b.WriteString("[\n")
	for i, it := range f.Items {
		b.WriteString("    {\n")
		for j, fld := range it.fields {
			b.WriteString("      ")
			b.Write(encodeJSONString(fld.name))
			b.WriteString(": ")
			if err := json.Indent(b, fld.raw, "      ", "  "); err != nil {
				return fmt.Errorf("items[%d].%s: %w", i, fld.name, err)
			}
			if j < len(it.fields)-1 {
				b.WriteByte(',')
			}
			b.WriteByte('\n')
		}
		b.WriteString("    }")
		if i < len(f.Items)-1 {
			b.WriteByte(',')
		}
		b.WriteByte('\n')
	}
	b.WriteString("  ]")
	return nil
}

// WriteFile writes the document back to disk.
func (f *AnalysisFile) WriteFile(path string) error {
	data, err := f.Marshal()
	if err != nil {
		return err
	}
	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("writing %s: %w", path, err)
	}
	return nil
}

// encodeJSONString encodes s as a JSON string without escaping HTML
// characters or non-ASCII text.
func encodeJSONString(s string) json.RawMessage {
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	_ = enc.Encode(s) // cannot fail for a plain string
	return json.RawMessage(bytes.TrimRight(buf.Bytes(), "\n"))
}
