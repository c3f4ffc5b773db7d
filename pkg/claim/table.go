package claim

import (
	"crypto/sha256"
	"encoding/hex"
	"sort"
	"strings"
)

// AnonymizeID returns a stable pseudonym for a patient identity: the first
// 12 hex characters of its SHA-256 digest. Leading and trailing whitespace
// is ignored so that "0123" and " 0123" map to the same pseudonym.
func AnonymizeID(id string) string {
	sum := sha256.Sum256([]byte(strings.TrimSpace(id)))
	return hex.EncodeToString(sum[:])[:12]
}

// Split divides a labeled table into a training part and an evaluation part
// holding the last holdout rows. A holdout larger than the table puts every
// row in the evaluation part. The returned slices share the input's backing
// array.
func Split(records []Record, holdout int) (training, evaluation []Record) {
	if holdout <= 0 {
		return records, nil
	}
	if holdout >= len(records) {
		return nil, records
	}
	cut := len(records) - holdout
	return records[:cut], records[cut:]
}

// SortByClaimDate orders records by claim date, keeping input order among
// claims on the same date. This is the order labeled tables are persisted in.
func SortByClaimDate(records []Record) {
	sort.SliceStable(records, func(i, j int) bool {
		return records[i].ClaimDate.Before(records[j].ClaimDate)
	})
}
