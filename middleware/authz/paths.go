package authz

import "strings"

// ExactPaths libera apenas os paths informados, sem prefixo nem substring.
// "/login" não libera "/api/login-history".
func ExactPaths(paths ...string) func(path string) bool {
	set := make(map[string]struct{}, len(paths))
	for _, p := range paths {
		if p = strings.TrimSpace(p); p != "" {
			set[p] = struct{}{}
		}
	}
	return func(path string) bool {
		_, ok := set[path]
		return ok
	}
}
