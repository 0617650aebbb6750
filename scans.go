package cxone

import (
	"context"
	"iter"
	"net/http"
	"strconv"
	"time"

	"github.com/tphakala/go-cxone/internal/api"
)

const (
	scanPageSize = 100

	// maxSinceDays bounds the from-date filter to one leap year back.
	maxSinceDays = 366
)

// ScanFilter defines search criteria for scans.
type ScanFilter struct {
	// Statuses filters by scan status; omitted from the query when empty.
	Statuses []ScanStatus `url:"statuses,comma,omitempty"`

	// SinceDays restricts results to scans created within the last N days.
	// Zero means no date filter; non-zero values must be in 1..366.
	SinceDays int `url:"-"`
}

// validate rejects an out-of-range days-back filter before any request.
func (f *ScanFilter) validate() error {
	if f == nil {
		return nil
	}
	if f.SinceDays < 0 || f.SinceDays > maxSinceDays {
		return newValidationError("SinceDays must be in 1..%d (or 0 for no date filter), got %d", maxSinceDays, f.SinceDays)
	}
	return nil
}

// ScanService provides operations on Checkmarx One scans.
type ScanService interface {
	// List returns an iterator over all scans matching the filter.
	// The iterator fetches pages lazily as you iterate.
	List(ctx context.Context, filter *ScanFilter, opts ...RequestOption) iter.Seq2[*Scan, error]

	// ListPage returns a single page of scans.
	// Use this for manual pagination control.
	ListPage(ctx context.Context, filter *ScanFilter, page *PageOptions, opts ...RequestOption) (*ScanPage, error)
}

// scanService implements ScanService.
type scanService struct {
	transport *api.Transport
}

func newScanService(transport *api.Transport) *scanService {
	return &scanService{transport: transport}
}

// List returns an iterator over all scans matching the filter.
func (s *scanService) List(ctx context.Context, filter *ScanFilter, opts ...RequestOption) iter.Seq2[*Scan, error] {
	return func(yield func(*Scan, error) bool) {
		offset := 0

		for {
			page, err := s.ListPage(ctx, filter, &PageOptions{
				Offset: offset,
				Limit:  scanPageSize,
			}, opts...)

			if err != nil {
				yield(nil, err)
				return
			}

			for _, scan := range page.Scans {
				if err := ctx.Err(); err != nil {
					yield(nil, err)
					return
				}
				if !yield(scan, nil) {
					return
				}
			}

			if !page.HasMore() {
				return
			}

			offset = page.NextOffset()
		}
	}
}

// ListPage returns a single page of scans.
func (s *scanService) ListPage(ctx context.Context, filter *ScanFilter, page *PageOptions, opts ...RequestOption) (*ScanPage, error) {
	if err := filter.validate(); err != nil {
		return nil, err
	}

	reqCfg := newRequestConfig()
	reqCfg.apply(opts...)

	if page == nil {
		page = &PageOptions{}
	}
	if page.Limit <= 0 {
		page.Limit = scanPageSize
	}

	q, err := filterValues(filter)
	if err != nil {
		return nil, err
	}
	if filter != nil && filter.SinceDays > 0 {
		from := time.Now().UTC().AddDate(0, 0, -filter.SinceDays)
		q.Set("from-date", from.Format(time.RFC3339))
	}
	q.Set("offset", strconv.Itoa(page.Offset))
	q.Set("limit", strconv.Itoa(page.Limit))

	var result ScanPage
	resp, err := s.transport.DoJSON(ctx, &api.Request{
		Method:  http.MethodGet,
		Path:    "/api/scans/",
		Query:   q,
		Headers: reqCfg.headers,
	}, &result)

	if err != nil {
		return nil, err
	}

	if resp.StatusCode >= http.StatusBadRequest {
		return nil, parseError(resp.StatusCode, resp.Body)
	}

	result.Offset = page.Offset
	result.Limit = page.Limit
	return &result, nil
}
