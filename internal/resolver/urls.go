// urls.go - Catalog image URL correction

package resolver

import "strings"

// Known typos in the public product image export, applied in order. Each
// fix runs on the output of the previous one so a URL carrying both is
// fully repaired.
var imageURLFixes = [][2]string{
	{"hacccp.or.kr", "haccp.or.kr"},
	{".krr", ".kr"},
}

// CleanImageURL removes embedded whitespace and fixes the first occurrence
// of each known misspelled host. It does not validate the URL.
func CleanImageURL(raw string) string {
	if raw == "" {
		return ""
	}
	url := strings.Join(strings.Fields(raw), "")
	for _, fix := range imageURLFixes {
		url = strings.Replace(url, fix[0], fix[1], 1)
	}
	return url
}
