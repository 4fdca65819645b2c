package commands

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
)

// maxRangeSpan caps how many ids one range reference may expand to.
const maxRangeSpan = 100

// ErrTaskRefRequired indicates no task reference was provided.
var ErrTaskRefRequired = errors.New("task reference required")

// ParseTaskRefs parses task ids from args.
//
// Parsing rules:
//  1. Arguments are split on commas; empty parts are ignored
//  2. "<n>-<m>" with n <= m expands to n..m (at most 100 ids)
//  3. Anything else is taken as an item id verbatim
//  4. Duplicates are dropped, first occurrence wins
func ParseTaskRefs(args []string) ([]string, error) {
	var ids []string
	seen := make(map[string]bool)
	add := func(id string) {
		if !seen[id] {
			seen[id] = true
			ids = append(ids, id)
		}
	}

	for _, arg := range args {
		for _, part := range strings.Split(arg, ",") {
			part = strings.TrimSpace(part)
			if part == "" {
				continue
			}
			lo, hi, isRange := strings.Cut(part, "-")
			if !isRange || !isAllDigits(lo) || !isAllDigits(hi) {
				add(part)
				continue
			}
			from, err1 := strconv.Atoi(lo)
			to, err2 := strconv.Atoi(hi)
			if err1 != nil || err2 != nil || from < 1 || from > to {
				return nil, fmt.Errorf("invalid task range: %s", part)
			}
			if to-from+1 > maxRangeSpan {
				return nil, fmt.Errorf("task range too large: %s", part)
			}
			for n := from; n <= to; n++ {
				add(strconv.Itoa(n))
			}
		}
	}

	if len(ids) == 0 {
		return nil, ErrTaskRefRequired
	}
	return ids, nil
}

// isAllDigits returns true if s is non-empty and contains only ASCII digits.
func isAllDigits(s string) bool {
	if s == "" {
		return false
	}
	for _, r := range s {
		if r < '0' || r > '9' {
			return false
		}
	}
	return true
}
