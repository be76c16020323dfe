// Package headers strips secret-bearing request headers before they can
// reach arbitrary fetch targets or influence cache keys.
package headers

import (
	"sort"
	"strings"
)

// denied is the fixed deny-list of request headers that carry caller
// secrets. Matching is case-insensitive.
var denied = map[string]struct{}{
	"authorization":       {},
	"cookie":              {},
	"proxy-authorization": {},
}

// Sanitize returns a copy of headers with secret-bearing entries
// removed, plus the original names of everything dropped (names only,
// never values, so the list is safe to surface to callers). With
// allowUnsafe set the input passes through untouched.
func Sanitize(hdrs map[string]string, allowUnsafe bool) (map[string]string, []string) {
	if len(hdrs) == 0 {
		return map[string]string{}, nil
	}
	safe := make(map[string]string, len(hdrs))
	var dropped []string
	for name, value := range hdrs {
		if !allowUnsafe && isDenied(name) {
			dropped = append(dropped, name)
			continue
		}
		safe[name] = value
	}
	sort.Strings(dropped)
	return safe, dropped
}

func isDenied(name string) bool {
	_, ok := denied[strings.ToLower(strings.TrimSpace(name))]
	return ok
}
