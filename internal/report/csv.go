package report

import (
	"bytes"
	"encoding/csv"
	"fmt"

	dErrors "streetwatch/pkg/domain-errors"
)

var csvHeader = []string{
	"id", "title", "description", "category", "status", "priority",
	"reporter", "assigned_agent", "region", "sub_region",
	"created_at", "resolved_at", "citizen_feedback",
}

func renderCSV(snap Snapshot) ([]byte, error) {
	resolvedAt := ""
	if snap.ResolvedAt != nil {
		resolvedAt = snap.ResolvedAt.Format(dateLayout)
	}

	var buf bytes.Buffer
	w := csv.NewWriter(&buf)
	if err := w.Write(csvHeader); err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to render csv")
	}
	record := []string{
		snap.ID, snap.Title, snap.Description, snap.Category, snap.Status,
		snap.Priority, snap.Reporter, snap.Agent, snap.Region, snap.SubRegion,
		snap.CreatedAt.Format(dateLayout), resolvedAt, snap.Feedback,
	}
	if err := w.Write(record); err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to render csv")
	}
	w.Flush()
	if err := w.Error(); err != nil {
		return nil, fmt.Errorf("flush csv: %w", err)
	}
	return buf.Bytes(), nil
}
