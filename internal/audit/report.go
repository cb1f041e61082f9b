package audit

import (
	"encoding/csv"
	"fmt"
	"io"
	"os"
)

// Header is the column layout of audit reports. The status column is blank
// unless a cross-check against an inventory ran.
var Header = []string{"repository", "workflow_file", "kind", "name", "status"}

// WriteFile writes the audit table to a CSV file, creating or truncating it.
func WriteFile(path string, references, gaps []Reference) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("failed to create audit file: %w", err)
	}

	if err := WriteReferences(f, references, gaps); err != nil {
		f.Close()
		return err
	}
	return f.Close()
}

// WriteReferences writes references as a CSV table. The gaps slice marks
// rows missing from the inventory; pass nil when no cross-check ran.
func WriteReferences(w io.Writer, references, gaps []Reference) error {
	gapSet := make(map[Reference]bool, len(gaps))
	for _, gap := range gaps {
		gapSet[gap] = true
	}

	writer := csv.NewWriter(w)
	if err := writer.Write(Header); err != nil {
		return fmt.Errorf("failed to write CSV header: %w", err)
	}

	for i := range references {
		ref := &references[i]
		status := ""
		if gaps != nil {
			status = "present"
			if gapSet[*ref] {
				status = "missing"
			}
		}

		record := []string{ref.Repository, ref.WorkflowFile, string(ref.Kind), ref.Name, status}
		if err := writer.Write(record); err != nil {
			return fmt.Errorf("failed to write CSV row %d: %w", i+2, err)
		}
	}

	writer.Flush()
	if err := writer.Error(); err != nil {
		return fmt.Errorf("failed to flush CSV writer: %w", err)
	}
	return nil
}
