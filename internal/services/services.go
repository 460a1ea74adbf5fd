package services

import (
	"context"
	"encoding/json"
	"net/url"
)

// Service is the part of the Spotify Web API needed to dump a library.
type Service interface {
	// Get fetches pathOrURL with params merged into its query and decodes the JSON body into out.
	Get(ctx context.Context, pathOrURL string, params url.Values, out any) error

	// Iterate walks a paging object starting at pathOrURL.
	Iterate(ctx context.Context, pathOrURL string, params url.Values) *Pages
}

// Page is one paging object.
type Page struct {
	Items []json.RawMessage `json:"items"`
	Total int               `json:"total"`
	Next  *string           `json:"next"`
}

// Pages iterates a paginated endpoint by following next links.
type Pages struct {
	ctx    context.Context
	svc    Service
	url    string
	params url.Values

	page    *Page
	err     error
	started bool
	done    bool
}

func newPages(ctx context.Context, svc Service, pathOrURL string, params url.Values) *Pages {
	return &Pages{ctx: ctx, svc: svc, url: pathOrURL, params: params}
}

// Next fetches the next page. It returns false once the last page has been consumed or a request failed.
func (p *Pages) Next() bool {
	if p.done {
		return false
	}

	if p.started {
		if p.page.Next == nil || *p.page.Next == "" {
			p.done = true
			return false
		}
		// next already carries the query of the original request
		p.url, p.params = *p.page.Next, nil
	}
	p.started = true

	var page Page
	if err := p.svc.Get(p.ctx, p.url, p.params, &page); err != nil {
		p.err, p.done, p.page = err, true, nil
		return false
	}
	p.page = &page
	return true
}

// Page returns the current page. Valid only after Next returned true.
func (p *Pages) Page() *Page {
	return p.page
}

// Err returns the error that stopped iteration, if any.
func (p *Pages) Err() error {
	return p.err
}

// Collect drains pages and concatenates their items. each, if non-nil, is called after every page with
// the running count and the reported total.
func Collect(pages *Pages, each func(fetched, total int)) ([]json.RawMessage, error) {
	items := []json.RawMessage{}
	for pages.Next() {
		page := pages.Page()
		items = append(items, page.Items...)
		if each != nil {
			each(len(items), page.Total)
		}
	}
	if err := pages.Err(); err != nil {
		return nil, err
	}
	return items, nil
}
