package cxone

import (
	"context"
	"iter"
	"net/http"
	"net/url"
	"strconv"

	"github.com/google/go-querystring/query"

	"github.com/tphakala/go-cxone/internal/api"
)

const (
	projectPageSize = 100
	branchPageSize  = 100
)

// ProjectFilter defines search criteria for projects. Names and IDs are
// mutually exclusive; passing both yields an empty result set server-side, so
// the client rejects the combination up front.
type ProjectFilter struct {
	// Names filters by exact project names.
	Names []string `url:"names,omitempty"`

	// IDs filters by project IDs.
	IDs []string `url:"ids,omitempty"`
}

// LastScanOptions controls how the most recent completed scan is resolved
// per project.
type LastScanOptions struct {
	// UseMainBranch constrains resolution to each project's main branch.
	UseMainBranch bool

	// BranchMap constrains resolution to a per-project branch, keyed by
	// project name. Ignored when UseMainBranch is set. Projects without a
	// mapping are resolved without a branch constraint.
	BranchMap BranchMap
}

// ProjectService provides operations on Checkmarx One projects.
type ProjectService interface {
	// List returns an iterator over all projects matching the filter.
	// The iterator fetches pages lazily as you iterate.
	List(ctx context.Context, filter *ProjectFilter, opts ...RequestOption) iter.Seq2[*Project, error]

	// ListPage returns a single page of projects.
	// Use this for manual pagination control.
	ListPage(ctx context.Context, filter *ProjectFilter, page *PageOptions, opts ...RequestOption) (*ProjectPage, error)

	// Branches returns an iterator over the branch names of one project.
	Branches(ctx context.Context, projectID string, opts ...RequestOption) iter.Seq2[string, error]

	// EnrichBranches populates Branches on each given project, one project
	// at a time in list order.
	EnrichBranches(ctx context.Context, projects []*Project, opts ...RequestOption) error

	// LastScans resolves the most recent completed scan for each given
	// project, one request per project. Projects without a completed scan
	// contribute nothing to the result.
	LastScans(ctx context.Context, projects []*Project, lastScan *LastScanOptions, opts ...RequestOption) ([]*Scan, error)
}

// projectService implements ProjectService.
type projectService struct {
	transport *api.Transport
}

func newProjectService(transport *api.Transport) *projectService {
	return &projectService{transport: transport}
}

// List returns an iterator over all projects matching the filter.
func (s *projectService) List(ctx context.Context, filter *ProjectFilter, opts ...RequestOption) iter.Seq2[*Project, error] {
	return func(yield func(*Project, error) bool) {
		offset := 0

		for {
			page, err := s.ListPage(ctx, filter, &PageOptions{
				Offset: offset,
				Limit:  projectPageSize,
			}, opts...)

			if err != nil {
				yield(nil, err)
				return
			}

			for _, project := range page.Projects {
				if err := ctx.Err(); err != nil {
					yield(nil, err)
					return
				}
				if !yield(project, nil) {
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

// ListPage returns a single page of projects.
func (s *projectService) ListPage(ctx context.Context, filter *ProjectFilter, page *PageOptions, opts ...RequestOption) (*ProjectPage, error) {
	if filter != nil && len(filter.Names) > 0 && len(filter.IDs) > 0 {
		return nil, newValidationError("names and ids filters are mutually exclusive")
	}

	reqCfg := newRequestConfig()
	reqCfg.apply(opts...)

	if page == nil {
		page = &PageOptions{}
	}
	if page.Limit <= 0 {
		page.Limit = projectPageSize
	}

	q, err := filterValues(filter)
	if err != nil {
		return nil, err
	}
	q.Set("offset", strconv.Itoa(page.Offset))
	q.Set("limit", strconv.Itoa(page.Limit))

	var result ProjectPage
	resp, err := s.transport.DoJSON(ctx, &api.Request{
		Method:  http.MethodGet,
		Path:    "/api/projects/",
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

// Branches returns an iterator over the branch names of one project. The
// branches endpoint reports no total count; an empty or null page signals the
// end of the walk and no request is issued after it.
func (s *projectService) Branches(ctx context.Context, projectID string, opts ...RequestOption) iter.Seq2[string, error] {
	return func(yield func(string, error) bool) {
		if projectID == "" {
			yield("", newValidationError("project ID cannot be empty"))
			return
		}

		reqCfg := newRequestConfig()
		reqCfg.apply(opts...)

		offset := 0

		for {
			q := url.Values{}
			q.Set("project-id", projectID)
			q.Set("offset", strconv.Itoa(offset))
			q.Set("limit", strconv.Itoa(branchPageSize))

			var names []string
			resp, err := s.transport.DoJSON(ctx, &api.Request{
				Method:  http.MethodGet,
				Path:    "/api/projects/branches",
				Query:   q,
				Headers: reqCfg.headers,
			}, &names)

			if err != nil {
				yield("", err)
				return
			}
			if resp.StatusCode >= http.StatusBadRequest {
				yield("", parseError(resp.StatusCode, resp.Body))
				return
			}

			if len(names) == 0 {
				return
			}

			for _, name := range names {
				if err := ctx.Err(); err != nil {
					yield("", err)
					return
				}
				if !yield(name, nil) {
					return
				}
			}

			offset += branchPageSize
		}
	}
}

// EnrichBranches populates Branches on each project.
func (s *projectService) EnrichBranches(ctx context.Context, projects []*Project, opts ...RequestOption) error {
	for _, project := range projects {
		branches, err := Collect(s.Branches(ctx, project.ID, opts...))
		if err != nil {
			return err
		}
		project.Branches = append(project.Branches, branches...)
	}
	return nil
}

// LastScans resolves the most recent completed scan for each project. The
// response is keyed by project ID and carries at most one scan per project;
// projectId and projectName are injected before mapping since the endpoint
// omits them.
func (s *projectService) LastScans(ctx context.Context, projects []*Project, lastScan *LastScanOptions, opts ...RequestOption) ([]*Scan, error) {
	if lastScan == nil {
		lastScan = &LastScanOptions{}
	}

	reqCfg := newRequestConfig()
	reqCfg.apply(opts...)

	scans := make([]*Scan, 0, len(projects))

	for _, project := range projects {
		q := url.Values{}
		q.Set("project-ids", project.ID)
		q.Set("scan-status", string(StatusCompleted))
		q.Set("use-main-branch", strconv.FormatBool(lastScan.UseMainBranch))

		if !lastScan.UseMainBranch {
			if branch := lastScan.BranchMap[project.Name]; branch != "" {
				q.Set("branch", branch)
			}
		}

		var envelope map[string]payload
		resp, err := s.transport.DoJSON(ctx, &api.Request{
			Method:  http.MethodGet,
			Path:    "/api/projects/last-scan",
			Query:   q,
			Headers: reqCfg.headers,
		}, &envelope)

		if err != nil {
			return nil, err
		}
		if resp.StatusCode >= http.StatusBadRequest {
			return nil, parseError(resp.StatusCode, resp.Body)
		}

		raw, ok := envelope[project.ID]
		if !ok || raw == nil {
			continue
		}

		raw["projectId"] = project.ID
		raw["projectName"] = project.Name
		scans = append(scans, scanFromPayload(raw))
	}

	return scans, nil
}

// filterValues encodes a url-tagged filter struct into query values.
func filterValues(filter any) (url.Values, error) {
	v, err := query.Values(filter)
	if err != nil {
		return nil, newValidationError("encoding filter: %v", err)
	}
	return v, nil
}
