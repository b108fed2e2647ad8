package storage

import (
	"regexp"
	"time"

	"gosupermarket_api/internal/feed/models"
)

// Feed object keys follow
// providers/<provider>/<branch>/<feedType>_<YYYYMMDDHHMM|ISO8601>.gz.
var keyPattern = regexp.MustCompile(
	`^providers/(?P<provider>[^/]+)/(?P<branch>[^/]+)/(?P<type>pricesFull|promoFull)_(?P<ts>[^/]+)\.gz$`)

// ParseObjectKey reads provider, branch, feed type and the filename-encoded
// timestamp out of an object key. ok is false for keys outside the feed
// layout, which the extractor silently ignores.
func ParseObjectKey(meta ObjectMeta) (models.RawFeedObject, bool) {
	m := keyPattern.FindStringSubmatch(meta.Key)
	if m == nil {
		return models.RawFeedObject{}, false
	}
	obj := models.RawFeedObject{
		Provider:    m[1],
		Branch:      m[2],
		FeedType:    models.FeedType(m[3]),
		ObjectKey:   meta.Key,
		ContentHash: meta.ETag,
		ObservedAt:  meta.LastModified,
	}
	if t, ok := models.ParseFeedTimestamp(m[4]); ok {
		obj.Timestamp = t
	} else {
		obj.Timestamp = time.Now().UTC()
	}
	return obj, true
}
