package main

import (
	"encoding/json"
	"fmt"
	"io"
	"strconv"
	"strings"
	"text/tabwriter"

	"github.com/pathconvert/pathconvert/client"
)

// Output formats accepted by --format.
const (
	formatJSON  = "json"
	formatTable = "table"
	formatQuiet = "quiet"
)

func validateFormat(f string) error {
	switch f {
	case formatJSON, formatTable, formatQuiet:
		return nil
	default:
		return fmt.Errorf("unknown --format %q (use json, table or quiet)", f)
	}
}

// view is a command result that knows its table and quiet renderings. JSON
// always encodes the wrapped API value.
type view interface {
	value() any
	columns() []string
	rows() [][]string
	// keys are printed one per line in quiet mode.
	keys() []string
}

func render(w io.Writer, format string, v view) error {
	switch format {
	case formatTable:
		return writeTable(w, v.columns(), v.rows())
	case formatQuiet:
		for _, k := range v.keys() {
			if _, err := fmt.Fprintln(w, k); err != nil {
				return err
			}
		}

		return nil
	default:
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")

		return enc.Encode(v.value())
	}
}

func writeTable(w io.Writer, columns []string, rows [][]string) error {
	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)

	fmt.Fprintln(tw, strings.Join(columns, "\t"))

	for _, row := range rows {
		fmt.Fprintln(tw, strings.Join(row, "\t"))
	}

	return tw.Flush()
}

type jobView struct{ job *client.Job }

func (v jobView) value() any { return v.job }
func (v jobView) keys() []string { return []string{v.job.ID} }
func (v jobView) columns() []string { return []string{"ID", "TYPE", "STATUS", "PROGRESS", "STEP", "ERROR"} }
func (v jobView) rows() [][]string {
	j := v.job

	return [][]string{{j.ID, j.Type, j.Status, strconv.Itoa(j.Progress) + "%", j.Step, dash(j.Error)}}
}

type collectionsView []client.Collection

func (v collectionsView) value() any { return []client.Collection(v) }

func (v collectionsView) columns() []string {
	return []string{"ID", "HANDLE", "CATEGORY", "STATE", "EMBEDDED", "RECS"}
}

func (v collectionsView) rows() [][]string {
	rows := make([][]string, 0, len(v))
	for _, c := range v {
		rows = append(rows, []string{
			c.ID, c.Handle, c.Category, collectionState(c), yesNo(c.HasEmbedding), strconv.Itoa(c.RecommendationCount),
		})
	}

	return rows
}

func (v collectionsView) keys() []string {
	ids := make([]string, 0, len(v))
	for _, c := range v {
		ids = append(ids, c.ID)
	}

	return ids
}

// collectionState folds the two flags that keep a collection out of the graph.
func collectionState(c client.Collection) string {
	switch {
	case c.ExcludedSale:
		return "sale"
	case c.Enabled:
		return "enabled"
	default:
		return "disabled"
	}
}

type recommendationsView []client.Recommendation

func (v recommendationsView) value() any { return []client.Recommendation(v) }
func (v recommendationsView) columns() []string { return []string{"RANK", "TITLE", "URL", "SCORE"} }

func (v recommendationsView) rows() [][]string {
	rows := make([][]string, 0, len(v))
	for _, r := range v {
		rows = append(rows, []string{strconv.Itoa(r.Rank), r.Title, r.URL, strconv.FormatFloat(r.Score, 'f', 3, 64)})
	}

	return rows
}

func (v recommendationsView) keys() []string {
	urls := make([]string, 0, len(v))
	for _, r := range v {
		urls = append(urls, r.URL)
	}

	return urls
}

type settingsView struct{ s *client.Settings }

func (v settingsView) value() any { return v.s }
func (v settingsView) columns() []string { return []string{"MAX_BUTTONS", "ALIGNMENT"} }
func (v settingsView) rows() [][]string { return [][]string{{strconv.Itoa(v.s.MaxButtons), v.s.Alignment}} }
func (v settingsView) keys() []string { return []string{strconv.Itoa(v.s.MaxButtons)} }

type updatedView struct {
	Updated int `json:"updated"`
}

func (v updatedView) value() any { return v }
func (v updatedView) columns() []string { return []string{"UPDATED"} }
func (v updatedView) rows() [][]string { return [][]string{{strconv.Itoa(v.Updated)}} }
func (v updatedView) keys() []string { return []string{strconv.Itoa(v.Updated)} }

func yesNo(b bool) string {
	if b {
		return "yes"
	}

	return "no"
}

func dash(s string) string {
	if s == "" {
		return "-"
	}

	return s
}
