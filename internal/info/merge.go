package info

import "strconv"

// MergePolicy decides how one field reported by several nodes is combined.
type MergePolicy int

const (
	// PolicyFirst keeps the value of the first node that reported the key.
	PolicyFirst MergePolicy = iota
	// PolicySum adds the integer values of every reporting node.
	PolicySum
	// PolicyMin keeps the smallest integer value.
	PolicyMin
)

// KeySet is a set of field keys.
type KeySet map[string]struct{}

// Keys builds a KeySet.
func Keys(keys ...string) KeySet {
	s := make(KeySet, len(keys))
	for _, k := range keys {
		s[k] = struct{}{}
	}
	return s
}

// Has reports whether k is in the set. A nil set is empty.
func (s KeySet) Has(k string) bool {
	_, ok := s[k]
	return ok
}

// PolicyFor returns the merge policy for key. Sum wins over Min if a key was
// put in both sets.
func PolicyFor(key string, sumKeys, minKeys KeySet) MergePolicy {
	switch {
	case sumKeys.Has(key):
		return PolicySum
	case minKeys.Has(key):
		return PolicyMin
	default:
		return PolicyFirst
	}
}

// MergeNodes folds the flat-pair payloads of every successful response into
// one map. Keys in sumKeys are summed, keys in minKeys keep the minimum, and
// every other key keeps the value of the first node that reported it.
// Failed responses are skipped; no successful response gives an empty map.
func MergeNodes(responses []NodeResponse, sumKeys, minKeys KeySet) map[string]string {
	merged := make(map[string]string)
	sums := make(map[string]int64)
	mins := make(map[string]int64)

	for _, r := range responses {
		if !r.OK() {
			continue
		}
		for k, v := range ParseFlatPairs(r.Payload, DefaultFieldSep) {
			switch PolicyFor(k, sumKeys, minKeys) {
			case PolicySum:
				sums[k] += ToInt(v, 0)
			case PolicyMin:
				n := ToInt(v, 0)
				if cur, seen := mins[k]; !seen || n < cur {
					mins[k] = n
				}
			default:
				if _, seen := merged[k]; !seen {
					merged[k] = v
				}
			}
		}
	}

	for k, total := range sums {
		merged[k] = strconv.FormatInt(total, 10)
	}
	for k, low := range mins {
		merged[k] = strconv.FormatInt(low, 10)
	}
	return merged
}
