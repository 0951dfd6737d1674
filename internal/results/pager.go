package results

import (
	"context"

	"k8s.io/apimachinery/pkg/apis/meta/v1/unstructured"
)

// Pager walks forward through a records listing by following
// NextPageToken. Pages are never cached.
type Pager struct {
	fetcher   *Fetcher
	namespace string
	dataType  DataType
	filter    string
	opts      *Options

	token string
	done  bool
	pages int
}

// NewPager starts a walk at the first page.
func (f *Fetcher) NewPager(namespace string, dataType DataType, rawFilter string, opts *Options) *Pager {
	return &Pager{
		fetcher:   f,
		namespace: namespace,
		dataType:  dataType,
		filter:    rawFilter,
		opts:      opts,
	}
}

// Done reports whether the last page has been read.
func (p *Pager) Done() bool {
	return p.done
}

// NextPageToken returns the token of the page Next would read; "" once the
// walk is done.
func (p *Pager) NextPageToken() string {
	return p.token
}

// Pages returns how many pages have been read.
func (p *Pager) Pages() int {
	return p.pages
}

// Next fetches the following page. After the last page it returns an empty
// Result and Done reports true.
func (p *Pager) Next(ctx context.Context) (Result, error) {
	if p.done {
		return emptyPage(), nil
	}
	result, err := p.fetcher.GetFilteredRecord(ctx, p.namespace, p.dataType, p.filter, p.opts, p.token, "")
	if err != nil {
		return Result{}, err
	}
	p.pages++
	p.token = result.List.NextPageToken
	if p.token == "" {
		p.done = true
	}
	return result, nil
}

// All reads pages until the listing is exhausted or maxPages pages have
// been read (no bound when maxPages <= 0) and returns every decoded item.
func (p *Pager) All(ctx context.Context, maxPages int) ([]*unstructured.Unstructured, error) {
	var items []*unstructured.Unstructured
	for !p.done && (maxPages <= 0 || p.pages < maxPages) {
		if err := ctx.Err(); err != nil {
			return items, err
		}
		result, err := p.Next(ctx)
		if err != nil {
			return items, err
		}
		items = append(items, result.Items...)
	}
	return items, nil
}
