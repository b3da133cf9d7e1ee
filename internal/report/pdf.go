package report

import (
	"bytes"
	"fmt"

	"github.com/go-pdf/fpdf"

	dErrors "streetwatch/pkg/domain-errors"
)

const dateLayout = "2006-01-02 15:04"

func renderPDF(snap Snapshot) ([]byte, error) {
	pdf := fpdf.New("P", "mm", "A4", "")
	pdf.SetTitle("Incident Report", false)
	pdf.AddPage()

	pdf.SetFont("Helvetica", "B", 16)
	pdf.CellFormat(0, 10, "Incident Report", "", 1, "C", false, 0, "")
	pdf.SetFont("Helvetica", "", 9)
	pdf.CellFormat(0, 6, snap.ID, "", 1, "C", false, 0, "")
	pdf.Ln(4)

	row := func(label, value string) {
		if value == "" {
			return
		}
		pdf.SetFont("Helvetica", "B", 11)
		pdf.CellFormat(45, 8, label, "", 0, "L", false, 0, "")
		pdf.SetFont("Helvetica", "", 11)
		pdf.MultiCell(0, 8, value, "", "L", false)
	}

	row("Title", snap.Title)
	row("Description", snap.Description)
	row("Category", snap.Category)
	row("Status", snap.Status)
	row("Priority", snap.Priority)
	row("Reporter", snap.Reporter)
	row("Assigned agent", snap.Agent)
	if snap.Region != "" || snap.SubRegion != "" {
		row("Location", fmt.Sprintf("%s / %s", snap.Region, snap.SubRegion))
	}
	row("Reported at", snap.CreatedAt.Format(dateLayout))
	if snap.ResolvedAt != nil {
		row("Resolved at", snap.ResolvedAt.Format(dateLayout))
	}
	row("Citizen feedback", snap.Feedback)

	var buf bytes.Buffer
	if err := pdf.Output(&buf); err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to render pdf")
	}
	return buf.Bytes(), nil
}
