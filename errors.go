package dedupcache

import (
	"errors"

	"github.com/davidvgalbraith/dedupcache/wireenc"
)

// ErrTooBig is returned by LookupPoint and RemovePoint when a point's
// rendered "tag=value,..." string would exceed wireenc.PrettyLimit. Neither
// call adds or removes a point when this is returned; the point's strings
// are still interned into the shared strings table, and LookupPoint still
// creates the bucket if it did not exist.
var ErrTooBig = wireenc.ErrTooBig

// ErrBadConfig is returned by New when a Config fails validation — today,
// only when strict mode is requested and no ignored attributes were
// configured.
var ErrBadConfig = errors.New("dedupcache: bad config")

// ErrBadBucketID is returned whenever a bucket id does not match the
// "<space>@<decimal-generation>" grammar.
var ErrBadBucketID = errors.New("dedupcache: bad bucket id")
