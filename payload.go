package cxone

import (
	"encoding/json"
	"strconv"
	"time"
)

// payload is a loosely-typed API object. Each accessor attempts one field
// extraction and yields the zero value on a missing key or type mismatch, so
// partial upstream data populates a partial record instead of failing it.
type payload map[string]any

func (p payload) str(key string) string {
	s, _ := p[key].(string)
	return s
}

// identifier reads a field that some engines emit as a JSON number and
// others as a string.
func (p payload) identifier(key string) string {
	switch v := p[key].(type) {
	case string:
		return v
	case float64:
		return strconv.FormatInt(int64(v), 10)
	}
	return ""
}

func (p payload) integer(key string) int {
	switch v := p[key].(type) {
	case float64:
		return int(v)
	case string:
		if n, err := strconv.Atoi(v); err == nil {
			return n
		}
	}
	return 0
}

func (p payload) boolean(key string) bool {
	b, _ := p[key].(bool)
	return b
}

func (p payload) timestamp(key string) time.Time {
	s, ok := p[key].(string)
	if !ok {
		return time.Time{}
	}
	t, err := time.Parse(time.RFC3339, s)
	if err != nil {
		return time.Time{}
	}
	return t.UTC()
}

func (p payload) strs(key string) []string {
	items, ok := p[key].([]any)
	if !ok {
		return nil
	}
	out := make([]string, 0, len(items))
	for _, item := range items {
		if s, ok := item.(string); ok {
			out = append(out, s)
		}
	}
	return out
}

func (p payload) tags(key string) Tags {
	raw, ok := p[key].(map[string]any)
	if !ok {
		return nil
	}
	t := make(Tags, len(raw))
	for k, v := range raw {
		s, _ := v.(string)
		t[k] = s
	}
	return t
}

func (p payload) sub(key string) payload {
	m, _ := p[key].(map[string]any)
	return payload(m)
}

// projectFromPayload maps one loosely-typed project object to a record.
func projectFromPayload(p payload) *Project {
	return &Project{
		ID:                  p.str("id"),
		Name:                p.str("name"),
		TenantID:            p.str("tenantId"),
		CreatedAt:           p.timestamp("createdAt"),
		UpdatedAt:           p.timestamp("updatedAt"),
		Groups:              p.strs("groups"),
		RepoURL:             p.str("repoUrl"),
		MainBranch:          p.str("mainBranch"),
		Origin:              p.str("origin"),
		Tags:                p.tags("tags"),
		Criticality:         p.integer("criticality"),
		PrivatePackage:      p.boolean("privatePackage"),
		ImportedProjectName: p.str("importedProjName"),
	}
}

// scanFromPayload maps one loosely-typed scan object to a record.
func scanFromPayload(p payload) *Scan {
	return &Scan{
		ID:           p.str("id"),
		ProjectID:    p.str("projectId"),
		ProjectName:  p.str("projectName"),
		Status:       ScanStatus(p.str("status")),
		Branch:       p.str("branch"),
		CreatedAt:    p.timestamp("createdAt"),
		UpdatedAt:    p.timestamp("updatedAt"),
		Engines:      p.strs("engines"),
		UserAgent:    p.str("userAgent"),
		Initiator:    p.str("initiator"),
		Tags:         p.tags("tags"),
		SourceType:   p.str("sourceType"),
		SourceOrigin: p.str("sourceOrigin"),
	}
}

// resultFromPayload maps one loosely-typed finding object to a record.
// Query metadata lives in the nested data and vulnerabilityDetails objects
// for engine results but is also accepted at the top level.
func resultFromPayload(p payload) *Result {
	data := p.sub("data")
	vuln := p.sub("vulnerabilityDetails")

	r := &Result{
		Type:         p.str("type"),
		SimilarityID: p.identifier("similarityId"),
		Status:       p.str("status"),
		State:        p.str("state"),
		Severity:     p.str("severity"),
		Created:      p.timestamp("created"),
		FirstFoundAt: p.timestamp("firstFoundAt"),
		FoundAt:      p.timestamp("foundAt"),
		Description:  p.str("description"),
		QueryName:    p.str("queryName"),
		Group:        p.str("group"),
		LanguageName: p.str("languageName"),
		CweID:        p.integer("cweId"),
		Comments:     p.str("comments"),
	}

	if r.QueryName == "" {
		r.QueryName = data.str("queryName")
	}
	if r.Group == "" {
		r.Group = data.str("group")
	}
	if r.LanguageName == "" {
		r.LanguageName = data.str("languageName")
	}
	if r.CweID == 0 {
		r.CweID = vuln.integer("cweId")
	}

	return r
}

// UnmarshalJSON builds the record field-by-field from a dynamic object.
func (p *Project) UnmarshalJSON(data []byte) error {
	var raw payload
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	*p = *projectFromPayload(raw)
	return nil
}

// UnmarshalJSON builds the record field-by-field from a dynamic object.
func (s *Scan) UnmarshalJSON(data []byte) error {
	var raw payload
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	*s = *scanFromPayload(raw)
	return nil
}

// UnmarshalJSON builds the record field-by-field from a dynamic object.
func (r *Result) UnmarshalJSON(data []byte) error {
	var raw payload
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	*r = *resultFromPayload(raw)
	return nil
}
