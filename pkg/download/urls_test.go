package download

import (
	"fmt"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestResolveFileURLs(t *testing.T) {
	tests := []struct {
		name      string
		productID string
		count     int
		want      []string
	}{
		{
			name:      "no files",
			productID: "RJ123456",
			count:     0,
			want:      []string{},
		},
		{
			name:      "negative count",
			productID: "RJ123456",
			count:     -2,
			want:      []string{},
		},
		{
			name:      "single file",
			productID: "RJ123456",
			count:     1,
			want:      []string{"https://www.dlsite.com/maniax/download/=/product_id/RJ123456.html"},
		},
		{
			name:      "split product",
			productID: "RJ01234567",
			count:     3,
			want: []string{
				"https://www.dlsite.com/maniax/download/=/number/1/product_id/RJ01234567.html",
				"https://www.dlsite.com/maniax/download/=/number/2/product_id/RJ01234567.html",
				"https://www.dlsite.com/maniax/download/=/number/3/product_id/RJ01234567.html",
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, ResolveFileURLs(tt.productID, tt.count))
		})
	}
}

func TestResolveFileURLsFrom_Properties(t *testing.T) {
	for count := 2; count <= 12; count++ {
		urls := ResolveFileURLsFrom("http://mirror.test/base/", "VJ000042", count)
		assert.Len(t, urls, count)

		seen := map[string]bool{}
		for i, u := range urls {
			assert.True(t, strings.HasPrefix(u, "http://mirror.test/base/download/"), u)
			assert.Contains(t, u, fmt.Sprintf("/number/%d/", i+1))
			assert.True(t, strings.HasSuffix(u, "/product_id/VJ000042.html"), u)
			assert.False(t, seen[u], "duplicate url %s", u)
			seen[u] = true
		}
	}
}
