package submit

import (
	"fmt"
	"io"
	"strconv"
	"strings"
	"text/tabwriter"
)

// placeholder marks an absent optional field so it cannot be confused
// with an empty or zero value.
const placeholder = "—"

// TableRenderer writes the scanned value and detail view as plain
// tables. Every ShowDetail call writes a complete fresh view.
type TableRenderer struct {
	out io.Writer
}

// NewTableRenderer creates a renderer writing to out.
func NewTableRenderer(out io.Writer) *TableRenderer {
	return &TableRenderer{out: out}
}

// ShowScanned displays the last scanned text. An absent text renders
// as the placeholder, never as a blank that reads as a value.
func (r *TableRenderer) ShowScanned(text string) {
	fmt.Fprintf(r.out, "Last scanned: %s\n", orPlaceholder(text))
}

// ShowDetail renders the full structured record, in the backend's
// item order.
func (r *TableRenderer) ShowDetail(detail *ScanDetail) {
	tw := tabwriter.NewWriter(r.out, 0, 4, 2, ' ', 0)
	fmt.Fprintf(tw, "Store:\t%s\n", orPlaceholder(detail.Scan.StoreName))
	fmt.Fprintf(tw, "CNPJ:\t%s\n", orPlaceholder(detail.Scan.CNPJ))
	fmt.Fprintf(tw, "Date:\t%s\n", orPlaceholder(detail.Scan.PurchaseDate))
	fmt.Fprintln(tw)
	fmt.Fprintln(tw, "Item\tQty\tUnit\tTotal")
	for _, item := range detail.Items {
		fmt.Fprintf(tw, "%s\t%s\t%s\t%s\n",
			orPlaceholder(item.Name),
			formatAmount(item.Qty),
			formatAmount(item.UnitPrice),
			formatAmount(item.TotalPrice),
		)
	}
	tw.Flush()
}

// ShowHistory renders the scan history listing, newest first.
func (r *TableRenderer) ShowHistory(list *ScanList) {
	tw := tabwriter.NewWriter(r.out, 0, 4, 2, ' ', 0)
	fmt.Fprintf(tw, "%d scans\n", list.Count)
	fmt.Fprintln(tw, "ID\tTime\tSource\tText")
	for _, record := range list.Items {
		fmt.Fprintf(tw, "%d\t%s\t%s\t%s\n",
			record.ID,
			orPlaceholder(record.Timestamp),
			orPlaceholder(record.Source),
			record.DataRaw,
		)
	}
	tw.Flush()
}

func orPlaceholder(s string) string {
	if strings.TrimSpace(s) == "" {
		return placeholder
	}
	return s
}

func formatAmount(v *float64) string {
	if v == nil {
		return placeholder
	}
	return strconv.FormatFloat(*v, 'f', -1, 64)
}
