// Package wireenc canonicalizes a point — an unordered set of (tag,value)
// string pairs — into the packed byte sequence the hash set indexes, and
// optionally into the human-readable "tag=value,tag=value" string the
// embedding uses as a cache key of its own.
package wireenc

import (
	"errors"
	"sort"
	"strings"

	"github.com/davidvgalbraith/dedupcache/strtab"
	"github.com/davidvgalbraith/dedupcache/varint"
)

// PrettyLimit is the hard cap on the rendered "tag=value,..." string. A
// point that would produce a longer string is rejected with ErrTooBig
// before either the packed encoding or the pretty string is returned.
const PrettyLimit = 16 << 10

// ErrTooBig is returned by Encode when the point's pretty attribute string
// would exceed PrettyLimit.
var ErrTooBig = errors.New("wireenc: encoded attribute string too big")

// Pair is one (tag,value) string pair of a point.
type Pair struct {
	Tag   string
	Value string
}

// IgnoreFunc reports whether tag should be dropped from the encoding
// entirely (e.g. timestamps, raw sample values the embedding never wants
// deduplicated on).
type IgnoreFunc func(tag string) bool

type token struct {
	tag, value     string
	tagID, valueID uint32
}

// Encoder turns points into canonical encodings against one strings table.
// An Encoder is not safe for concurrent use — it owns a scratch token slice
// reused (and grown, never shrunk) across calls, matching this cache's
// single-mutator model.
type Encoder struct {
	strings *strtab.Table
	tokens  []token
}

// NewEncoder creates an Encoder backed by the given strings table.
func NewEncoder(strings *strtab.Table) *Encoder {
	return &Encoder{strings: strings}
}

// Result is the outcome of a single Encode call.
type Result struct {
	// Encoded is the canonical packed byte sequence. It reuses the backing
	// array of the buf passed to Encode when that has room, so it is
	// overwritten by the next Encode call given the same buf.
	Encoded []byte
	// Pretty is the "tag=value,..." rendering, populated only if Encode was
	// asked for it.
	Pretty string
	// AllFound is true iff every (tag,value) pair encoded was already known
	// to the strings table before this call. It is a fast-path hint only:
	// AllFound==true does not mean the point itself is a duplicate, since
	// the same known strings can combine into a new point.
	AllFound bool
}

// Encode canonicalizes point into buf (reusing its backing array, like
// append) and, if wantPretty is set, also renders the sorted
// "tag=value,..." string. Pairs whose tag satisfies ignore are dropped
// before encoding. Ties in tag ordering break on the value string, giving
// every point a single well-defined canonical byte sequence even if the
// caller passes duplicate tags (which a well-formed embedding never does).
//
// Encode always computes the pretty string's length — even when wantPretty
// is false — so that ErrTooBig is raised consistently on both the lookup
// and the remove path; only the materialization of the string itself is
// skipped when it isn't needed.
func (e *Encoder) Encode(point []Pair, ignore IgnoreFunc, buf []byte, wantPretty bool) (Result, error) {
	e.tokens = e.tokens[:0]
	allFound := true

	for _, p := range point {
		if ignore != nil && ignore(p.Tag) {
			continue
		}
		tagID, valID, both := e.strings.CheckAndAdd(p.Tag, p.Value)
		allFound = allFound && both
		e.tokens = append(e.tokens, token{tag: p.Tag, value: p.Value, tagID: tagID, valueID: valID})
	}

	sort.Slice(e.tokens, func(i, j int) bool {
		a, b := e.tokens[i], e.tokens[j]
		if a.tag != b.tag {
			return a.tag < b.tag
		}
		return a.value < b.value
	})

	buf = buf[:0]
	buf = varint.Encode(buf, uint32(len(e.tokens)))

	prettyLen := 0
	for i, tok := range e.tokens {
		buf = varint.Encode(buf, tok.tagID)
		buf = varint.Encode(buf, tok.valueID)

		prettyLen += len(tok.tag) + 1 + len(tok.value) // "tag=value"
		if i != 0 {
			prettyLen++ // separating comma
		}
	}

	if prettyLen > PrettyLimit {
		return Result{}, ErrTooBig
	}

	res := Result{Encoded: buf, AllFound: allFound}
	if wantPretty {
		var b strings.Builder
		b.Grow(prettyLen)
		for i, tok := range e.tokens {
			if i != 0 {
				b.WriteByte(',')
			}
			b.WriteString(tok.tag)
			b.WriteByte('=')
			b.WriteString(tok.value)
		}
		res.Pretty = b.String()
	}

	return res, nil
}
