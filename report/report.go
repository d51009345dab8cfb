// Package report renders benchmark outcomes for humans and machines.
// Rows are emitted in the order the engine produced them, which is
// already deterministic, so two runs over the same images render
// byte-identical reports.
package report

import (
	"encoding/json"
	"fmt"
	"io"
	"text/tabwriter"

	"github.com/pkg/errors"

	"github.com/dropset/cubench/bench"
)

// Render writes a plain-text table of outcomes. Failed cases render a
// row with the error in place of numbers, so a partial run is still
// readable end to end.
func Render(w io.Writer, outcomes []bench.Outcome) error {
	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "PROGRAM\tOPERATION\tN\tVARIANT\tTOTAL CU\tCU/ITEM")
	for _, o := range outcomes {
		if o.Failed() {
			fmt.Fprintf(tw, "%s\t%s\t%d\t%s\tFAILED\t%v\n",
				o.Program, o.Kind, o.BatchSize, o.Variant, o.Err)
			continue
		}
		fmt.Fprintf(tw, "%s\t%s\t%d\t%s\t%d\t%d\n",
			o.Program, o.Kind, o.BatchSize, o.Variant, o.TotalCU, o.PerItemCU)
	}
	return errors.Wrap(tw.Flush(), "render report")
}

// row is the JSON shape of one outcome.
type row struct {
	Program   string `json:"program"`
	Operation string `json:"operation"`
	BatchSize int    `json:"batch_size"`
	Variant   string `json:"variant"`
	TotalCU   uint64 `json:"total_cu,omitempty"`
	PerItemCU uint64 `json:"per_item_cu,omitempty"`
	Error     string `json:"error,omitempty"`
}

// RenderJSON writes outcomes as a JSON array, one object per case.
func RenderJSON(w io.Writer, outcomes []bench.Outcome) error {
	rows := make([]row, len(outcomes))
	for i, o := range outcomes {
		rows[i] = row{
			Program:   o.Program,
			Operation: string(o.Kind),
			BatchSize: o.BatchSize,
			Variant:   string(o.Variant),
			TotalCU:   o.TotalCU,
			PerItemCU: o.PerItemCU,
		}
		if o.Err != nil {
			rows[i].Error = o.Err.Error()
		}
	}
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return errors.Wrap(enc.Encode(rows), "render json report")
}
