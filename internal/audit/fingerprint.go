// Package audit finds orders that were probably submitted twice.
//
// Checkout carries no idempotency key, so a retry after a lost response can
// store the same cart twice. Such orders share the user, the items and the
// total and are created within a short time of each other. The audit
// exports all orders into gzip NDJSON shards keyed by user and then scans
// each shard in two passes: bloom filters find fingerprints that may repeat,
// and an exact pass groups those candidates by creation time.
package audit

import (
	"hash/fnv"
	"slices"
	"strconv"
	"strings"
	"time"

	"github.com/xenking/healthybite/internal/orderapi"
)

// DefaultBucket is the largest gap between two equal orders for them to
// count as duplicates.
const DefaultBucket = time.Minute

// Fingerprint returns the key under which duplicates of o collide: the
// user, the total and the item lines in a canonical order. Creation time is
// not part of it; Scan compares timestamps within a fingerprint.
func Fingerprint(o *orderapi.Order) string {
	lines := make([]string, len(o.Items))
	for i, it := range o.Items {
		lines[i] = it.ProductID + "*" + strconv.Itoa(it.Qty) + "@" + it.Price.String()
	}
	slices.Sort(lines)

	var b strings.Builder
	b.WriteString(o.UserID)
	b.WriteByte('|')
	b.WriteString(o.TotalAmount.String())
	b.WriteByte('|')
	b.WriteString(strings.Join(lines, ","))
	return b.String()
}

// ShardOf maps a user to one of n shards. All orders of a user land in the
// same shard, so duplicates never span shards.
func ShardOf(userID string, n int) int {
	h := fnv.New32a()
	_, _ = h.Write([]byte(userID))
	return int(h.Sum32() % uint32(n))
}
