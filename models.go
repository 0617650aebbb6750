package cxone

import (
	"sort"
	"strings"
	"time"
)

// flatSep joins flattened list and tag representations.
const flatSep = ";"

// ScanStatus represents the lifecycle state of a scan.
type ScanStatus string

const (
	StatusQueued    ScanStatus = "Queued"
	StatusRunning   ScanStatus = "Running"
	StatusCompleted ScanStatus = "Completed"
	StatusFailed    ScanStatus = "Failed"
	StatusPartial   ScanStatus = "Partial"
	StatusCanceled  ScanStatus = "Canceled"
)

// Tags is a key/value label mapping; values may be empty.
type Tags map[string]string

// Flatten renders tags for display: an entry with an empty value renders as
// just the key, otherwise key:value, joined by semicolons. Keys are emitted
// in sorted order so the result is deterministic.
func (t Tags) Flatten() string {
	if len(t) == 0 {
		return ""
	}
	keys := make([]string, 0, len(t))
	for k := range t {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	entries := make([]string, 0, len(keys))
	for _, k := range keys {
		if v := t[k]; v != "" {
			entries = append(entries, k+":"+v)
		} else {
			entries = append(entries, k)
		}
	}
	return strings.Join(entries, flatSep)
}

// Project is a Checkmarx One project. Branches starts empty and is populated
// by ProjectService.EnrichBranches.
//
// Fields absent or mistyped in the source payload are left at their zero
// value; a single bad field never discards the rest of the record.
type Project struct {
	ID       string
	Name     string
	TenantID string

	CreatedAt time.Time
	UpdatedAt time.Time

	Groups     []string
	RepoURL    string
	MainBranch string
	Origin     string
	Tags       Tags

	Criticality         int
	PrivatePackage      bool
	ImportedProjectName string

	Branches []string
}

// GroupsString returns the groups flattened into a semicolon-joined string.
func (p *Project) GroupsString() string {
	return strings.Join(p.Groups, flatSep)
}

// TagsString returns the tags flattened for display.
func (p *Project) TagsString() string {
	return p.Tags.Flatten()
}

// BranchesString returns the enriched branches flattened into a
// semicolon-joined string.
func (p *Project) BranchesString() string {
	return strings.Join(p.Branches, flatSep)
}

// Scan is a single scan of a project.
type Scan struct {
	ID          string
	ProjectID   string
	ProjectName string
	Status      ScanStatus
	Branch      string

	CreatedAt time.Time
	UpdatedAt time.Time

	Engines   []string
	UserAgent string
	Initiator string
	Tags      Tags

	SourceType   string
	SourceOrigin string
}

// EnginesString returns the engines flattened into a semicolon-joined string.
func (s *Scan) EnginesString() string {
	return strings.Join(s.Engines, flatSep)
}

// TagsString returns the tags flattened for display.
func (s *Scan) TagsString() string {
	return s.Tags.Flatten()
}

// Result is one finding from a scan. Results are read-only snapshots; the
// owning scan ID is supplied by the caller and not stored on the record.
type Result struct {
	Type         string
	SimilarityID string
	Status       string
	State        string
	Severity     string

	Created      time.Time
	FirstFoundAt time.Time
	FoundAt      time.Time

	Description  string
	QueryName    string
	Group        string
	LanguageName string
	CweID        int
	Comments     string
}

// PageOptions configures manual pagination.
type PageOptions struct {
	Offset int
	Limit  int
}

// ProjectPage is one page of project results.
type ProjectPage struct {
	TotalCount         int        `json:"totalCount"`
	FilteredTotalCount int        `json:"filteredTotalCount"`
	Projects           []*Project `json:"projects"`

	// Offset and Limit echo the request; the API does not return them.
	Offset int `json:"-"`
	Limit  int `json:"-"`
}

// HasMore reports whether another page exists past this one. The stop bound
// is the server-reported count of items matching the current filters.
func (p *ProjectPage) HasMore() bool {
	return p.Offset+p.Limit < p.FilteredTotalCount
}

// NextOffset returns the offset for the next page.
func (p *ProjectPage) NextOffset() int {
	return p.Offset + p.Limit
}

// ScanPage is one page of scan results.
type ScanPage struct {
	TotalCount         int     `json:"totalCount"`
	FilteredTotalCount int     `json:"filteredTotalCount"`
	Scans              []*Scan `json:"scans"`

	Offset int `json:"-"`
	Limit  int `json:"-"`
}

// HasMore reports whether another page exists past this one.
func (p *ScanPage) HasMore() bool {
	return p.Offset+p.Limit < p.FilteredTotalCount
}

// NextOffset returns the offset for the next page.
func (p *ScanPage) NextOffset() int {
	return p.Offset + p.Limit
}

// ResultPage is one page of finding results. The results endpoint has no
// filtered count; totalCount is the stop bound.
type ResultPage struct {
	TotalCount int       `json:"totalCount"`
	Results    []*Result `json:"results"`

	Offset int `json:"-"`
	Limit  int `json:"-"`
}

// HasMore reports whether another page exists past this one.
func (p *ResultPage) HasMore() bool {
	return p.Offset+p.Limit < p.TotalCount
}

// NextOffset returns the offset for the next page.
func (p *ResultPage) NextOffset() int {
	return p.Offset + p.Limit
}
