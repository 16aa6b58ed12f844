// Package output provides utilities for formatting and displaying planning results.
package output

import (
	"bytes"
	"encoding/csv"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"

	"github.com/iwvelando/procurement-planner/internal/catalog"
	"github.com/iwvelando/procurement-planner/internal/models"
	"github.com/iwvelando/procurement-planner/internal/results"
	"github.com/iwvelando/procurement-planner/pkg/format"
	"github.com/iwvelando/procurement-planner/pkg/optimization"
	"golang.org/x/text/language"
	"golang.org/x/text/message"
)

// ResultColumns is the header of the results CSV.
var ResultColumns = []string{
	"id", "quantity", "periods", "price", "size", "demand", "logistics", "markup",
	"stock", "transit", "unit_score", "total_score", "cost", "revenue", "margin",
}

// CandidateColumns is the header of the candidates CSV.
var CandidateColumns = []string{
	"id", "price", "size", "demand", "markup", "logistics", "transit",
	"transit_capacity", "transit_cost", "stock",
}

// PrettyFormat outputs a human-readable rather than machine-readable table.
func PrettyFormat(plan results.Results, summary optimization.Summary) {
	WritePretty(os.Stdout, plan, summary)
}

// WritePretty writes the human-readable report to w.
func WritePretty(w io.Writer, plan results.Results, summary optimization.Summary) {
	p := message.NewPrinter(language.English)

	_, _ = fmt.Fprintf(w, "--- Purchase plan (%s) ---\n", plan.Status)
	_, _ = p.Fprintf(w, "Objective: %.4f | Candidates: %d | Considered: %d | Dropped: %d\n",
		plan.ObjectiveValue, summary.Candidates, summary.Considered, summary.Dropped)
	if summary.Total > 0 {
		_, _ = fmt.Fprintf(w, "Timing: generation %s | solve %s | total %s\n",
			summary.Generation, summary.Solve, summary.Total)
	}
	if summary.RunID != "" {
		_, _ = fmt.Fprintf(w, "Run: %s\n", summary.RunID)
	}
	if plan.Message != "" {
		_, _ = fmt.Fprintf(w, "Note: %s\n", plan.Message)
	}

	if len(plan.Entries) == 0 {
		_, _ = fmt.Fprintf(w, "No products selected.\n")
		return
	}

	_, _ = fmt.Fprintf(w, "\nID      | Qty    | Price      | Transit   | Unit Score | Total Score | Cost         | Margin\n")
	_, _ = fmt.Fprintf(w, "__      | ___    | _____      | _______   | __________ | ___________ | ____         | ______\n")
	for _, e := range plan.Entries {
		_, _ = p.Fprintf(w, "%s | %6d | %10s | %-9s | %10.4f | %11.4f | %12s | %s\n",
			e.ID, e.Quantity, format.Currency(e.Price), e.Transit, e.UnitScore, e.TotalScore,
			format.Money(e.Cost), format.Money(e.Margin))
	}

	_, _ = p.Fprintf(w, "\nUnits: %d | Cost: %s | Revenue: %s | Margin: %s\n",
		plan.TotalUnits,
		format.Money(plan.TotalCost),
		format.Money(plan.TotalRevenue),
		format.Money(plan.TotalMargin))

	if len(plan.TransitUnits) > 0 {
		_, _ = fmt.Fprintf(w, "Transit units:")
		for _, mode := range models.TransitModes {
			if units, ok := plan.TransitUnits[mode]; ok {
				_, _ = fmt.Fprintf(w, " %s=%s", mode, joinInts(units, "/"))
			}
		}
		_, _ = fmt.Fprintf(w, "\n")
	}
}

// CsvFormat outputs the purchase plan in comma-separated value format.
func CsvFormat(plan results.Results) {
	_ = WriteResultsCSV(os.Stdout, plan)
}

// CsvString returns the purchase plan CSV as a string.
func CsvString(plan results.Results) string {
	var buf bytes.Buffer
	_ = WriteResultsCSV(&buf, plan)
	return buf.String()
}

// WriteResultsCSV writes one row per plan entry in report order.
func WriteResultsCSV(w io.Writer, plan results.Results) error {
	cw := csv.NewWriter(w)
	if err := cw.Write(ResultColumns); err != nil {
		return err
	}
	for _, e := range plan.Entries {
		record := []string{
			e.ID,
			strconv.Itoa(e.Quantity),
			joinInts(e.Periods, ";"),
			formatFloat(e.Price),
			formatFloat(e.Size),
			formatFloat(e.Demand),
			formatFloat(e.Logistics),
			formatFloat(e.Markup),
			e.Stock.String(),
			e.Transit.String(),
			formatFloat(e.UnitScore),
			formatFloat(e.TotalScore),
			e.Cost.StringFixed(2),
			e.Revenue.StringFixed(2),
			e.Margin.StringFixed(2),
		}
		if err := cw.Write(record); err != nil {
			return err
		}
	}
	cw.Flush()
	return cw.Error()
}

// WriteCandidatesCSV writes the generated candidate list.
func WriteCandidatesCSV(w io.Writer, candidates []catalog.Candidate) error {
	cw := csv.NewWriter(w)
	if err := cw.Write(CandidateColumns); err != nil {
		return err
	}
	for _, c := range candidates {
		record := []string{
			c.ID,
			formatFloat(c.Price),
			formatFloat(c.Size),
			formatFloat(c.Demand),
			formatFloat(c.Markup),
			formatFloat(c.Logistics),
			c.Transit.String(),
			formatFloat(c.TransitCapacity),
			formatFloat(c.TransitCost),
			c.Stock.String(),
		}
		if err := cw.Write(record); err != nil {
			return err
		}
	}
	cw.Flush()
	return cw.Error()
}

// Report is the JSON document written by the json output format.
type Report struct {
	Summary optimization.Summary `json:"summary"`
	Results results.Results      `json:"results"`
}

// JSONFormat outputs the report as indented JSON.
func JSONFormat(plan results.Results, summary optimization.Summary) {
	_ = WriteJSON(os.Stdout, plan, summary)
}

// WriteJSON writes the report as indented JSON to w.
func WriteJSON(w io.Writer, plan results.Results, summary optimization.Summary) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(Report{Summary: summary, Results: plan})
}

func formatFloat(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}

func joinInts(values []int, sep string) string {
	parts := make([]string, len(values))
	for i, v := range values {
		parts[i] = strconv.Itoa(v)
	}
	return strings.Join(parts, sep)
}
