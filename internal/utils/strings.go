package utils

import "strings"

// Plural turns an entity noun such as "movie" into "movies". Nouns already
// ending in "s", like "series", are returned unchanged.
func Plural(noun string) string {
	if noun == "" || strings.HasSuffix(noun, "s") {
		return noun
	}
	return noun + "s"
}
