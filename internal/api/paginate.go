package api

import (
	"net/http"
	"strconv"

	"github.com/joestump/newswire/internal/store"
)

const maxPerPage = 50

// parsePagination reads page and per_page from the query string.
// per_page defaults to store.DefaultPageSize and is silently capped at 50.
func parsePagination(r *http.Request) store.PageRequest {
	req := store.PageRequest{Number: 1, Size: store.DefaultPageSize}
	if p, err := strconv.Atoi(r.URL.Query().Get("page")); err == nil && p > 0 {
		req.Number = p
	}
	if n, err := strconv.Atoi(r.URL.Query().Get("per_page")); err == nil && n > 0 {
		req.Size = n
	}
	if req.Size > maxPerPage {
		req.Size = maxPerPage
	}
	return req
}
