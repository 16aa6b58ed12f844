package output

import (
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/iwvelando/procurement-planner/internal/catalog"
	"github.com/iwvelando/procurement-planner/internal/results"
	"go.uber.org/multierr"
)

// Export file names written by ExportCSV.
const (
	CandidatesFile = "candidates.csv"
	ResultsFile    = "results.csv"
)

// ExportCSV writes the candidate list and the purchase plan as CSV files in
// dir, creating it when needed. It returns the paths written.
func ExportCSV(dir string, candidates []catalog.Candidate, plan results.Results) ([]string, error) {
	if dir == "" {
		return nil, fmt.Errorf("export directory cannot be empty")
	}
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create export directory %s: %w", dir, err)
	}

	candidatesPath := filepath.Join(dir, CandidatesFile)
	if err := writeFile(candidatesPath, func(w io.Writer) error {
		return WriteCandidatesCSV(w, candidates)
	}); err != nil {
		return nil, err
	}

	resultsPath := filepath.Join(dir, ResultsFile)
	if err := writeFile(resultsPath, func(w io.Writer) error {
		return WriteResultsCSV(w, plan)
	}); err != nil {
		return []string{candidatesPath}, err
	}

	return []string{candidatesPath, resultsPath}, nil
}

func writeFile(path string, write func(io.Writer) error) (err error) {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("failed to create %s: %w", path, err)
	}
	defer func() {
		err = multierr.Append(err, f.Close())
	}()

	if err := write(f); err != nil {
		return fmt.Errorf("failed to write %s: %w", path, err)
	}
	return nil
}
