// Package subtitle reconciles persisted, cached and embedded subtitle state
// into the single subtitle a playback session has attached.
package subtitle

import (
	"strconv"
	"strings"
	"time"

	"github.com/samber/mo"
)

// legacySentinel is the text older store versions wrote for "no value"
const legacySentinel = "null"

// Record is the subtitle part of a continue-watching entry
type Record struct {
	FileName mo.Option[string]
	Language mo.Option[string]
	Label    mo.Option[string]
	OffsetMs mo.Option[int64]
}

// NormalizeText maps blank values and the legacy "null" sentinel to None
func NormalizeText(raw string) mo.Option[string] {
	v := strings.TrimSpace(raw)
	if v == "" || strings.EqualFold(v, legacySentinel) {
		return mo.None[string]()
	}
	return mo.Some(v)
}

// NormalizeTextPtr is NormalizeText for nullable columns
func NormalizeTextPtr(raw *string) mo.Option[string] {
	if raw == nil {
		return mo.None[string]()
	}
	return NormalizeText(*raw)
}

// ParseOffset reads an offset stored as text. Blank, sentinel and malformed
// values are absent.
func ParseOffset(raw string) mo.Option[int64] {
	v, ok := NormalizeText(raw).Get()
	if !ok {
		return mo.None[int64]()
	}
	ms, err := strconv.ParseInt(v, 10, 64)
	if err != nil {
		return mo.None[int64]()
	}
	return normalizeOffset(mo.Some(ms))
}

// normalizeOffset treats a zero offset as unset
func normalizeOffset(o mo.Option[int64]) mo.Option[int64] {
	if v, ok := o.Get(); ok && v != 0 {
		return o
	}
	return mo.None[int64]()
}

func normalizeOption(o mo.Option[string]) mo.Option[string] {
	if v, ok := o.Get(); ok {
		return NormalizeText(v)
	}
	return o
}

// Normalize returns the record with every field individually normalized
func (r Record) Normalize() Record {
	return Record{
		FileName: normalizeOption(r.FileName),
		Language: normalizeOption(r.Language),
		Label:    normalizeOption(r.Label),
		OffsetMs: normalizeOffset(r.OffsetMs),
	}
}

// HasAny reports whether any field carries a non-default value
func (r Record) HasAny() bool {
	n := r.Normalize()
	return n.FileName.IsPresent() || n.Language.IsPresent() || n.Label.IsPresent() || n.OffsetMs.IsPresent()
}

// IsEmpty is the negation of HasAny
func (r Record) IsEmpty() bool {
	return !r.HasAny()
}

// Selection is what a session produced for the record: the candidate fields
// and whether the user explicitly removed the subtitle.
type Selection struct {
	Record
	Cleared bool
}

// DeriveRecord computes the record to write back at the end of a session.
//
// A selection with any value overwrites the record. An explicit clear writes an
// empty record. Otherwise the prior entry is carried over unchanged so sessions
// that never touched subtitles keep earlier choices.
func DeriveRecord(sel Selection, prior mo.Option[Record]) Record {
	if sel.HasAny() {
		return sel.Normalize()
	}
	if sel.Cleared {
		return Record{}
	}
	if p, ok := prior.Get(); ok {
		return p.Normalize()
	}
	return Record{}
}

// Active is the subtitle attached to a running session. It is replaced
// wholesale on every selection.
type Active struct {
	URI      string
	Language string
	Label    string
	FileName mo.Option[string]
}

// Record converts the active subtitle into its persisted form
func (a Active) Record(offsetMs int64) Record {
	return Record{
		FileName: normalizeOption(a.FileName),
		Language: NormalizeText(a.Language),
		Label:    NormalizeText(a.Label),
		OffsetMs: normalizeOffset(mo.Some(offsetMs)),
	}.Normalize()
}

// Cached is a subtitle file present in the local cache
type Cached struct {
	URI       string
	Language  string
	FileName  string
	Size      int64
	CreatedAt time.Time
}

// Active builds the attachable subtitle for a cached file
func (c Cached) Active(label mo.Option[string]) Active {
	return Active{
		URI:      c.URI,
		Language: c.Language,
		Label:    label.OrElse(DisplayLabel(c.Language, c.FileName)),
		FileName: NormalizeText(c.FileName),
	}
}

// Candidate is a remote subtitle returned by a search
type Candidate struct {
	ID              string
	FileName        string
	Language        string
	Release         string
	Downloads       int
	HearingImpaired bool
}

// DisplayLabel picks a label from the language, falling back to the file name
func DisplayLabel(language, fileName string) string {
	if lang, ok := NormalizeText(language).Get(); ok {
		return strings.ToUpper(lang)
	}
	if name, ok := NormalizeText(fileName).Get(); ok {
		return name
	}
	return "External"
}
