// Package pdf renders an approved NFA as a printable A4 document.
package pdf

import (
	"bytes"
	"fmt"

	"github.com/jung-kurt/gofpdf"
)

// SummaryRow is one line of the approval summary table: the supervisor stage
// followed by each chain approver.
type SummaryRow struct {
	Role       string
	Name       string
	Decision   string
	ActionTime string
	Comment    string
}

// Document carries everything the renderer needs; all values are already
// display-formatted ("NA" for absent).
type Document struct {
	ID             string
	InitiatorName  string
	SupervisorName string
	Subject        string
	Description    string
	Area           string
	Project        string
	Tower          string
	Department     string
	References     string
	Priority       string
	Summary        []SummaryRow
}

// Render produces the PDF bytes for an approved NFA.
func Render(doc Document) ([]byte, error) {
	f := gofpdf.New("P", "mm", "A4", "")
	f.SetMargins(15, 20, 15)
	f.AddPage()
	pageWidth, _ := f.GetPageSize()
	usable := pageWidth - 30

	f.SetFont("Helvetica", "B", 18)
	f.CellFormat(usable, 10, "Jaypee Infratech Limited", "", 1, "C", false, 0, "")
	f.SetLineWidth(0.4)
	f.Line(15, f.GetY()+2, pageWidth-15, f.GetY()+2)
	f.Ln(8)

	f.SetFont("Helvetica", "B", 12)
	f.CellFormat(usable, 7, "NFA No. "+doc.ID, "", 1, "L", false, 0, "")
	f.CellFormat(usable, 7, "Initiator: "+doc.InitiatorName, "", 1, "L", false, 0, "")
	f.CellFormat(usable, 7, "Recommendor: "+doc.SupervisorName, "", 1, "L", false, 0, "")
	f.CellFormat(usable, 7, "Subject: "+doc.Subject, "", 1, "L", false, 0, "")
	f.CellFormat(usable, 7, "Description:", "", 1, "L", false, 0, "")
	f.SetFont("Helvetica", "", 12)
	f.MultiCell(usable, 6, doc.Description, "", "L", false)
	f.Ln(2)

	f.SetFont("Helvetica", "B", 12)
	half := usable / 2
	f.CellFormat(half, 7, "Area: "+doc.Area, "", 0, "L", false, 0, "")
	f.CellFormat(half, 7, "Project: "+doc.Project, "", 1, "L", false, 0, "")
	f.CellFormat(half, 7, "Tower: "+doc.Tower, "", 0, "L", false, 0, "")
	f.CellFormat(half, 7, "Department: "+doc.Department, "", 1, "L", false, 0, "")
	f.CellFormat(half, 7, "Reference: "+doc.References, "", 0, "L", false, 0, "")
	f.CellFormat(half, 7, "Priority: "+doc.Priority, "", 1, "L", false, 0, "")
	f.Ln(4)

	f.Line(15, f.GetY(), pageWidth-15, f.GetY())
	f.Ln(4)
	f.SetFont("Helvetica", "B", 16)
	f.CellFormat(usable, 9, "NFA Approval Summary", "", 1, "C", false, 0, "")
	f.Line(15, f.GetY(), pageWidth-15, f.GetY())
	f.Ln(4)

	f.SetFont("Helvetica", "B", 10)
	cols := []float64{28, 45, 28, 34, usable - 135}
	headers := []string{"Role", "Name", "Decision", "Action Time", "Comment"}
	for i, h := range headers {
		f.CellFormat(cols[i], 7, h, "1", 0, "L", false, 0, "")
	}
	f.Ln(-1)
	f.SetFont("Helvetica", "", 10)
	for _, row := range doc.Summary {
		values := []string{row.Role, row.Name, row.Decision, row.ActionTime, row.Comment}
		for i, v := range values {
			f.CellFormat(cols[i], 7, v, "1", 0, "L", false, 0, "")
		}
		f.Ln(-1)
	}

	f.SetY(-25)
	f.SetFont("Helvetica", "I", 12)
	f.CellFormat(usable, 7, "This is a system generated Approved NFA, does not require signature.", "", 1, "C", false, 0, "")

	var buf bytes.Buffer
	if err := f.Output(&buf); err != nil {
		return nil, fmt.Errorf("failed to render PDF: %w", err)
	}
	return buf.Bytes(), nil
}
