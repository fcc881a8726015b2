package basecamp

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"bcload/internal/service"
)

// DefaultMaxPages caps FetchAll when the server keeps returning next links.
const DefaultMaxPages = 100

// FetchAll collects every page of a collection endpoint, following
// rel="next" links from the Link header. Pages are concatenated in response
// order. If maxPages pages were read and another is still linked, the items
// so far are returned with service.ErrPageLimit. maxPages <= 0 means
// DefaultMaxPages.
func FetchAll[T any](ctx context.Context, t *Transport, endpoint string, maxPages int) ([]T, error) {
	if maxPages <= 0 {
		maxPages = DefaultMaxPages
	}

	var all []T
	next := endpoint
	for page := 1; ; page++ {
		resp, err := t.Send(ctx, next, nil)
		if err != nil {
			return all, err
		}

		var batch []T
		err = json.NewDecoder(resp.Body).Decode(&batch)
		link := resp.Header.Get("Link")
		resp.Body.Close()
		if err != nil {
			return all, fmt.Errorf("decode %s: %w", next, err)
		}
		all = append(all, batch...)

		nextURL, ok := NextLink(link)
		if !ok {
			return all, nil
		}
		if page >= maxPages {
			return all, fmt.Errorf("%s: %w (%d)", endpoint, service.ErrPageLimit, maxPages)
		}
		next = t.relative(nextURL)
	}
}

// NextLink extracts the rel="next" target from a Link header such as
//
//	<https://3.basecampapi.com/999/projects.json?page=2>; rel="next"
func NextLink(header string) (string, bool) {
	for _, part := range strings.Split(header, ",") {
		segments := strings.Split(part, ";")
		if len(segments) < 2 {
			continue
		}
		target := strings.TrimSpace(segments[0])
		if !strings.HasPrefix(target, "<") || !strings.HasSuffix(target, ">") {
			continue
		}
		for _, param := range segments[1:] {
			key, value, found := strings.Cut(strings.TrimSpace(param), "=")
			if !found || !strings.EqualFold(strings.TrimSpace(key), "rel") {
				continue
			}
			for _, rel := range strings.Fields(strings.Trim(strings.TrimSpace(value), `"`)) {
				if rel == "next" {
					return target[1 : len(target)-1], true
				}
			}
		}
	}
	return "", false
}
