package overview

import (
	"bufio"
	"fmt"
	"io"
	"math"
	"strings"

	"github.com/ronappleton/studioflow/internal/workflow"
)

var exportHeader = []string{"School", "Session Type", "Template", "Date", "Status", "Progress"}

// WriteCSV writes one row per workflow with one trailing column per
// distinct step title. Every value is quoted.
func (e *Engine) WriteCSV(w io.Writer, workflows []workflow.Instance) error {
	m := e.Matrix(workflows)
	bw := bufio.NewWriter(w)
	if err := writeQuotedRow(bw, append(append([]string(nil), exportHeader...), m.Columns...)); err != nil {
		return err
	}
	for i, inst := range workflows {
		row := []string{
			e.schoolName(inst),
			e.sessionType(inst),
			e.templateName(inst),
			e.date(inst),
			string(inst.Status),
			fmt.Sprintf("%d%%", int(math.Round(e.progress(inst)))),
		}
		cells := m.Rows[i].Cells
		for _, col := range m.Columns {
			row = append(row, string(cells[col]))
		}
		if err := writeQuotedRow(bw, row); err != nil {
			return err
		}
	}
	return bw.Flush()
}

func writeQuotedRow(w *bufio.Writer, values []string) error {
	for i, v := range values {
		if i > 0 {
			if err := w.WriteByte(','); err != nil {
				return err
			}
		}
		if _, err := w.WriteString(`"` + strings.ReplaceAll(v, `"`, `""`) + `"`); err != nil {
			return err
		}
	}
	_, err := w.WriteString("\r\n")
	return err
}
