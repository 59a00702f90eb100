package stashbox

import (
	"regexp"
	"strings"
	"unicode/utf8"

	"golang.org/x/text/unicode/norm"
)

var unsafeFilenameChars = regexp.MustCompile(`[^A-Za-z0-9_.-]`)

// SanitizeFilename turns an uploaded filename into a storage key.
// It folds the name to ASCII, replaces path separators and whitespace runs
// with a single underscore, drops every character outside [A-Za-z0-9_.-] and
// trims leading and trailing dots and underscores. The result may be empty.
//
//	SanitizeFilename("My cool movie.mov")     // "My_cool_movie.mov"
//	SanitizeFilename("../../../etc/passwd")   // "etc_passwd"
//	SanitizeFilename("i contain cool ümläuts.txt") // "i_contain_cool_umlauts.txt"
func SanitizeFilename(name string) string {
	name = norm.NFKD.String(name)

	var b strings.Builder
	b.Grow(len(name))
	for _, r := range name {
		if r < utf8.RuneSelf {
			b.WriteRune(r)
		}
	}
	name = b.String()

	name = strings.NewReplacer("/", " ", `\`, " ").Replace(name)
	name = strings.Join(strings.Fields(name), "_")
	name = unsafeFilenameChars.ReplaceAllString(name, "")

	return strings.Trim(name, "._")
}

// IsValidKey validates a key received from a client before it is passed to
// the store. It checks that the key:
//   - is not empty, "." or ".."
//   - contains no path separators (/ or \)
//   - is valid UTF-8
//   - contains no null bytes, control characters (< 0x20) or DEL (0x7f)
//
// Every key produced by SanitizeFilename passes. Keys written to the bucket
// by other tools may carry characters SanitizeFilename would have dropped.
func IsValidKey(key string) bool {
	if key == "" || key == "." || key == ".." {
		return false
	}

	if strings.ContainsAny(key, `/\`) {
		return false
	}

	if !utf8.ValidString(key) {
		return false
	}

	for _, r := range key {
		if r < 0x20 || r == 0x7f {
			return false
		}
	}

	return true
}
