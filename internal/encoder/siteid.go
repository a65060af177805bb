package encoder

import (
	"strings"

	"github.com/google/uuid"
)

// SiteIDLength is the number of hex characters in a site identifier
const SiteIDLength = 8

// NewSiteID returns a short random identifier: the first eight hex
// characters of a v4 UUID.
func NewSiteID() string {
	return strings.ReplaceAll(uuid.NewString(), "-", "")[:SiteIDLength]
}

// IsSiteID reports whether s has the shape of an identifier produced by NewSiteID
func IsSiteID(s string) bool {
	if len(s) != SiteIDLength {
		return false
	}
	for i := 0; i < len(s); i++ {
		c := s[i]
		if !('0' <= c && c <= '9' || 'a' <= c && c <= 'f') {
			return false
		}
	}
	return true
}
