package cxone

import (
	"encoding/csv"
	"fmt"
	"io"
	"os"
	"strings"
)

// BranchMap maps project names to the branch last-scan resolution should be
// constrained to. It is typically loaded from a two-column CSV file.
type BranchMap map[string]string

// LoadBranchMap parses a branch-mapping CSV with header Projects,Branches and
// one project/branch pair per row. A file carrying more than one row for the
// same project is rejected with a ConfigurationError, before any API request
// can be issued against it.
func LoadBranchMap(r io.Reader) (BranchMap, error) {
	reader := csv.NewReader(r)
	reader.FieldsPerRecord = 2
	reader.TrimLeadingSpace = true

	header, err := reader.Read()
	if err == io.EOF {
		return nil, &ConfigurationError{Message: "branch mapping is empty"}
	}
	if err != nil {
		return nil, &ConfigurationError{Message: fmt.Sprintf("reading branch mapping header: %v", err)}
	}
	if !strings.EqualFold(header[0], "Projects") || !strings.EqualFold(header[1], "Branches") {
		return nil, &ConfigurationError{Message: fmt.Sprintf("branch mapping header must be Projects,Branches, got %s,%s", header[0], header[1])}
	}

	mapping := make(BranchMap)
	for {
		row, err := reader.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, &ConfigurationError{Message: fmt.Sprintf("reading branch mapping: %v", err)}
		}

		project := strings.TrimSpace(row[0])
		if project == "" {
			continue
		}
		if _, ok := mapping[project]; ok {
			return nil, &ConfigurationError{Message: fmt.Sprintf("branch mapping must contain at most one row per project, %q appears more than once", project)}
		}
		mapping[project] = strings.TrimSpace(row[1])
	}

	return mapping, nil
}

// LoadBranchMapFile loads a branch mapping from a CSV file on disk.
func LoadBranchMapFile(path string) (BranchMap, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("cxone: opening branch mapping: %w", err)
	}
	defer func() { _ = f.Close() }()

	return LoadBranchMap(f)
}
