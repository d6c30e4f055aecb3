package download

import (
	"fmt"
	"strings"
)

// DefaultBaseURL is the store section the download endpoints live under.
const DefaultBaseURL = "https://www.dlsite.com/maniax"

// ResolveFileURLs returns the download URLs of a product with fileCount files
// using DefaultBaseURL. See ResolveFileURLsFrom.
func ResolveFileURLs(productID string, fileCount int) []string {
	return ResolveFileURLsFrom(DefaultBaseURL, productID, fileCount)
}

// ResolveFileURLsFrom maps a product id and file count to the ordered list of
// download URLs. A single-file product has one URL without a file number;
// split products get one URL per file numbered from 1. URL i belongs to
// manifest entry i, so callers must keep both in the same order.
func ResolveFileURLsFrom(baseURL, productID string, fileCount int) []string {
	base := strings.TrimRight(baseURL, "/")

	switch {
	case fileCount <= 0:
		return []string{}
	case fileCount == 1:
		return []string{fmt.Sprintf("%s/download/=/product_id/%s.html", base, productID)}
	}

	urls := make([]string, 0, fileCount)
	for i := 1; i <= fileCount; i++ {
		urls = append(urls, fmt.Sprintf("%s/download/=/number/%d/product_id/%s.html", base, i, productID))
	}
	return urls
}
