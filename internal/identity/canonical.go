package identity

import (
	"crypto/sha256"
	"encoding/base64"
	"encoding/json"
	"sort"
)

// Version tracks the hashing mechanism (algorithm + canonical content).
// It prefixes every stamp hash so the scheme can be rotated later.
const Version = "v0.0.0"

// SortedPairs transforms a string-keyed record into [key, value] pairs ordered
// by byte-wise key comparison. The ordering is total and locale-independent,
// so the same record always canonicalizes identically regardless of map
// iteration order.
func SortedPairs(record map[string]string) [][2]string {
	keys := make([]string, 0, len(record))
	for k := range record {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	pairs := make([][2]string, 0, len(keys))
	for _, k := range keys {
		pairs = append(pairs, [2]string{k, record[k]})
	}
	return pairs
}

// canonicalJSON is the hashing input form: the JSON encoding of the sorted
// pair sequence. An empty record encodes as "[]".
func canonicalJSON(record map[string]string) []byte {
	// Marshal of [][2]string cannot fail.
	out, _ := json.Marshal(SortedPairs(record))
	return out
}

// RecordHash computes base64(sha256(key || canonicalJSON(record))). Prepending
// the issuer key bytes makes the hash unforgeable without the key while never
// exposing the raw record values.
func RecordHash(key string, record map[string]string) string {
	h := sha256.New()
	h.Write([]byte(key))
	h.Write(canonicalJSON(record))
	return base64.StdEncoding.EncodeToString(h.Sum(nil))
}

// VersionedHash is the stamp subject hash field: "<version>:<record hash>".
func VersionedHash(key string, record map[string]string) string {
	return Version + ":" + RecordHash(key, record)
}
