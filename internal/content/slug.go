package content

import "regexp"

var slugRe = regexp.MustCompile(`^[A-Za-z0-9][A-Za-z0-9._-]{0,199}$`)

// ValidSlug reports whether s can name a content file. It rejects path
// separators and hidden names.
func ValidSlug(s string) bool {
	return slugRe.MatchString(s)
}
