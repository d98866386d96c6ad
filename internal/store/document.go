package store

import (
	"bytes"
	"encoding/json"
	"fmt"
	"regexp"
	"sort"
	"time"
)

const (
	// TimestampLayout is the persisted quote time format (UTC, "u" style).
	TimestampLayout = "2006-01-02 15:04:05Z"

	defaultAuthorName  = "Unknown Author"
	defaultChannelName = "Unknown Channel"
)

var macroIDPattern = regexp.MustCompile(`^[A-Za-z0-9_-]+$`)

// ValidMacroID reports whether id is usable as a macro identifier.
func ValidMacroID(id string) bool {
	return macroIDPattern.MatchString(id)
}

// Document is the persisted shape of one tenant.
type Document struct {
	QuoteID int     `json:"QuoteId"`
	Macros  []Macro `json:"Macros"`
	Quotes  []Quote `json:"Quotes"`
}

// Macro is a named reply template. Template holds the template fields
// ("content", "embed", ...) exactly as stored; the identifier is kept apart
// and merged back as "Id" when serialized.
type Macro struct {
	ID       string
	Template map[string]json.RawMessage
}

// Valid reports whether the macro has an identifier and a renderable field.
func (m Macro) Valid() bool {
	if m.ID == "" {
		return false
	}
	_, content := m.Template["content"]
	_, embed := m.Template["embed"]
	return content || embed
}

func (m Macro) MarshalJSON() ([]byte, error) {
	fields := make(map[string]json.RawMessage, len(m.Template)+1)
	for k, v := range m.Template {
		fields[k] = v
	}
	id, err := json.Marshal(m.ID)
	if err != nil {
		return nil, err
	}
	fields["Id"] = id

	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	if err := enc.Encode(fields); err != nil {
		return nil, err
	}
	return bytes.TrimRight(buf.Bytes(), "\n"), nil
}

func (m *Macro) UnmarshalJSON(data []byte) error {
	var fields map[string]json.RawMessage
	if err := json.Unmarshal(data, &fields); err != nil {
		return err
	}
	var id string
	if raw, ok := fields["Id"]; ok {
		if err := json.Unmarshal(raw, &id); err != nil {
			return fmt.Errorf("macro Id: %w", err)
		}
		delete(fields, "Id")
	}
	m.ID = id
	m.Template = fields
	return nil
}

// Quote is an archived message.
type Quote struct {
	ID          int       `json:"Id"`
	MessageID   uint64    `json:"MessageId"`
	ChannelName string    `json:"ChannelName"`
	Content     string    `json:"Content"`
	ImageURL    string    `json:"ImageURL"`
	AuthorID    uint64    `json:"AuthorId"`
	AuthorName  string    `json:"AuthorName"`
	Timestamp   Timestamp `json:"TimeStamp"`
	ChannelID   uint64    `json:"ChannelId"`
	GuildID     uint64    `json:"GuildId"`
}

// Timestamp is a time persisted in TimestampLayout.
type Timestamp struct {
	time.Time
}

func (t Timestamp) MarshalJSON() ([]byte, error) {
	return json.Marshal(t.UTC().Format(TimestampLayout))
}

func (t *Timestamp) UnmarshalJSON(data []byte) error {
	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		return err
	}
	parsed, err := time.Parse(TimestampLayout, s)
	if err != nil {
		if parsed, err = time.Parse(time.RFC3339, s); err != nil {
			return fmt.Errorf("timestamp %q: %w", s, err)
		}
	}
	t.Time = parsed.UTC()
	return nil
}

// quoteFields lists the keys a stored quote cannot be loaded without.
var quoteFields = []string{"Id", "Content", "TimeStamp", "GuildId"}

// DecodeDocument parses a persisted tenant document. Macros without an
// identifier or template and quotes missing a required field are dropped;
// skipped reports how many entries were dropped.
func DecodeDocument(data []byte) (doc *Document, skipped int, err error) {
	var raw struct {
		QuoteID *int              `json:"QuoteId"`
		Macros  []json.RawMessage `json:"Macros"`
		Quotes  []json.RawMessage `json:"Quotes"`
	}
	if err := json.Unmarshal(data, &raw); err != nil {
		return nil, 0, fmt.Errorf("decode document: %w", err)
	}
	if raw.QuoteID == nil {
		return nil, 0, fmt.Errorf("decode document: missing QuoteId")
	}

	doc = &Document{QuoteID: *raw.QuoteID}
	for _, r := range raw.Macros {
		var m Macro
		if err := json.Unmarshal(r, &m); err != nil || !m.Valid() {
			skipped++
			continue
		}
		doc.Macros = append(doc.Macros, m)
	}
	for _, r := range raw.Quotes {
		q, ok := decodeQuote(r)
		if !ok {
			skipped++
			continue
		}
		doc.Quotes = append(doc.Quotes, q)
	}
	return doc, skipped, nil
}

func decodeQuote(r json.RawMessage) (Quote, bool) {
	var present map[string]json.RawMessage
	if err := json.Unmarshal(r, &present); err != nil {
		return Quote{}, false
	}
	for _, k := range quoteFields {
		if _, ok := present[k]; !ok {
			return Quote{}, false
		}
	}
	var q Quote
	if err := json.Unmarshal(r, &q); err != nil {
		return Quote{}, false
	}
	if q.AuthorName == "" {
		q.AuthorName = defaultAuthorName
	}
	if q.ChannelName == "" {
		q.ChannelName = defaultChannelName
	}
	return q, true
}

// EncodeDocument serializes doc with macros ordered by identifier and quotes
// by id, so equal tenants produce equal bytes.
func EncodeDocument(doc *Document) ([]byte, error) {
	out := Document{
		QuoteID: doc.QuoteID,
		Macros:  append([]Macro{}, doc.Macros...),
		Quotes:  append([]Quote{}, doc.Quotes...),
	}
	sort.Slice(out.Macros, func(i, j int) bool { return out.Macros[i].ID < out.Macros[j].ID })
	sort.Slice(out.Quotes, func(i, j int) bool { return out.Quotes[i].ID < out.Quotes[j].ID })

	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	enc.SetIndent("", "  ")
	if err := enc.Encode(out); err != nil {
		return nil, fmt.Errorf("encode document: %w", err)
	}
	return buf.Bytes(), nil
}
