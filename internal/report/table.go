package report

import (
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/olekukonko/tablewriter"
)

// RenderTable writes one row per open port followed by a summary line.
func (r *Report) RenderTable(w io.Writer) error {
	table := tablewriter.NewWriter(w)
	table.Header("PORT", "STATE", "SERVICE")

	for _, res := range r.OpenResults() {
		port := strconv.Itoa(int(res.Port)) + "/" + strings.ToLower(res.Protocol)
		if err := table.Append([]string{port, "open", res.ServiceName()}); err != nil {
			return fmt.Errorf("failed to add table row: %w", err)
		}
	}

	if err := table.Render(); err != nil {
		return fmt.Errorf("failed to render table: %w", err)
	}

	_, err := fmt.Fprintf(w, "\nScanned %d ports on %s in %.2fs, %d open\n",
		r.Stats.TotalPorts, r.Stats.Target, r.Stats.Duration.Seconds(), r.Stats.OpenPorts)
	return err
}
