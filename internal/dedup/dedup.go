package dedup

import "strings"

// keyLength is the number of leading characters of the normalized title
// that form the deduplication key.
const keyLength = 50

// trailingJunk is stripped from the end of a key so headlines differing
// only in closing punctuation still collapse.
const trailingJunk = " .,:;!?\"'…-–"

// Key normalizes a title into its deduplication key: case-folded, trimmed,
// truncated to the first 50 characters (rune-safe), trailing punctuation
// removed.
func Key(title string) string {
	k := strings.ToLower(strings.TrimSpace(title))
	runes := []rune(k)
	if len(runes) > keyLength {
		k = string(runes[:keyLength])
	}
	return strings.TrimRight(k, trailingJunk)
}

// Collapse drops later items whose key matches an earlier one's. The pass is
// stable: input order is preserved and the first occurrence of each key wins,
// which is why callers must merge sources in a fixed order.
func Collapse[T any](items []T, key func(T) string) []T {
	seen := make(map[string]struct{}, len(items))
	out := make([]T, 0, len(items))

	for _, item := range items {
		k := key(item)
		if _, dup := seen[k]; dup {
			continue
		}
		seen[k] = struct{}{}
		out = append(out, item)
	}

	return out
}
