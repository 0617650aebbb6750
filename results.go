package cxone

import (
	"context"
	"iter"
	"net/http"
	"net/url"
	"strconv"

	"github.com/tphakala/go-cxone/internal/api"
)

// The results endpoint pages are smaller than the other collections.
const resultPageSize = 20

// ResultService provides operations on scan findings.
type ResultService interface {
	// List returns an iterator over all findings of one scan.
	// The iterator fetches pages lazily as you iterate.
	List(ctx context.Context, scanID string, opts ...RequestOption) iter.Seq2[*Result, error]

	// ListPage returns a single page of findings.
	// Use this for manual pagination control.
	ListPage(ctx context.Context, scanID string, page *PageOptions, opts ...RequestOption) (*ResultPage, error)
}

// resultService implements ResultService.
type resultService struct {
	transport *api.Transport
}

func newResultService(transport *api.Transport) *resultService {
	return &resultService{transport: transport}
}

// List returns an iterator over all findings of one scan.
func (s *resultService) List(ctx context.Context, scanID string, opts ...RequestOption) iter.Seq2[*Result, error] {
	return func(yield func(*Result, error) bool) {
		offset := 0

		for {
			page, err := s.ListPage(ctx, scanID, &PageOptions{
				Offset: offset,
				Limit:  resultPageSize,
			}, opts...)

			if err != nil {
				yield(nil, err)
				return
			}

			for _, result := range page.Results {
				if err := ctx.Err(); err != nil {
					yield(nil, err)
					return
				}
				if !yield(result, nil) {
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

// ListPage returns a single page of findings.
func (s *resultService) ListPage(ctx context.Context, scanID string, page *PageOptions, opts ...RequestOption) (*ResultPage, error) {
	if scanID == "" {
		return nil, newValidationError("scan ID cannot be empty")
	}

	reqCfg := newRequestConfig()
	reqCfg.apply(opts...)

	if page == nil {
		page = &PageOptions{}
	}
	if page.Limit <= 0 {
		page.Limit = resultPageSize
	}

	q := url.Values{}
	q.Set("scan-id", scanID)
	q.Set("offset", strconv.Itoa(page.Offset))
	q.Set("limit", strconv.Itoa(page.Limit))

	var result ResultPage
	resp, err := s.transport.DoJSON(ctx, &api.Request{
		Method:  http.MethodGet,
		Path:    "/api/results/",
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
