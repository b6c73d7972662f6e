// Package glob provides simple wildcard string matching with '*', '?' and
// character classes, used for logger name patterns.
package glob

import "path"

// Match returns true when the string matches the pattern. Returns an error
// when the pattern is invalid.
func Match(pattern, str string) (matched bool, err error) {
	return path.Match(pattern, str)
}

// IsGlob returns true when the pattern is a valid glob
func IsGlob(pattern string) bool {
	for i := 0; i < len(pattern); i++ {
		switch pattern[i] {
		case '[', '*', '?':
			_, err := Match(pattern, "whatever")
			return err == nil
		}
	}
	return false
}
