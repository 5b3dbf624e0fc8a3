package usecase

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"strconv"
)

// searchFingerprint derives the query cache key from a query and its
// resolved options. Fields are serialized in a fixed order with the
// defaults already applied, so semantically identical calls always map to
// the same key regardless of which options the caller spelled out.
func searchFingerprint(userID, query string, opts resolvedSearchOptions) string {
	h := sha256.New()
	fmt.Fprintf(h, "query=%s\x00user=%s\x00type=%s\x00limit=%d\x00minScore=%s\x00includeRecent=%t",
		query,
		userID,
		opts.memType,
		opts.limit,
		strconv.FormatFloat(opts.minScore, 'g', -1, 64),
		opts.includeRecent,
	)
	return hex.EncodeToString(h.Sum(nil))
}
