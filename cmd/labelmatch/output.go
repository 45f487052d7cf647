package main

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/bosocmputer/product_label_matcher/internal/processor"
	"github.com/bosocmputer/product_label_matcher/internal/resolver"
	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/jedib0t/go-pretty/v6/text"
	"github.com/mattn/go-isatty"
	"github.com/spf13/cobra"
)

type columnAlignment int

const (
	alignLeft columnAlignment = iota
	alignRight
)

// writeJSON encodes v as indented JSON to the command's stdout.
func writeJSON(cmd *cobra.Command, v any) error {
	enc := json.NewEncoder(cmd.OutOrStdout())
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

// wantsTable is true for an interactive terminal unless --json was given.
func wantsTable(w io.Writer, forceJSON bool) bool {
	if forceJSON {
		return false
	}
	file, ok := w.(*os.File)
	if !ok {
		return false
	}
	fd := file.Fd()
	return isatty.IsTerminal(fd) || isatty.IsCygwinTerminal(fd)
}

func renderTable(headers []string, rows [][]string, aligns []columnAlignment) string {
	columns := len(headers)
	if columns == 0 {
		return ""
	}

	tw := table.NewWriter()
	tw.SetStyle(table.StyleRounded)

	header := make(table.Row, columns)
	for i, h := range headers {
		header[i] = h
	}
	tw.AppendHeader(header)

	for _, row := range rows {
		r := make(table.Row, columns)
		for i := 0; i < columns; i++ {
			if i < len(row) {
				r[i] = row[i]
			} else {
				r[i] = ""
			}
		}
		tw.AppendRow(r)
	}

	columnConfigs := make([]table.ColumnConfig, 0, columns)
	for i := 0; i < columns; i++ {
		align := text.AlignLeft
		if i < len(aligns) && aligns[i] == alignRight {
			align = text.AlignRight
		}
		columnConfigs = append(columnConfigs, table.ColumnConfig{Number: i + 1, Align: align, AlignHeader: text.AlignLeft})
	}
	tw.SetColumnConfigs(columnConfigs)

	return tw.Render()
}

func matchTable(matches []processor.MatchCandidate) string {
	rows := make([][]string, 0, len(matches))
	for i, m := range matches {
		rows = append(rows, []string{
			fmt.Sprintf("%d", i+1),
			m.MatchedName,
			m.AliasUsed,
			m.SourceLine,
			fmt.Sprintf("%.3f", m.Score),
			allergenText(m.Allergens),
		})
	}
	return renderTable(
		[]string{"#", "Product", "Matched on", "Source line", "Score", "Allergens"},
		rows,
		[]columnAlignment{alignRight, alignLeft, alignLeft, alignLeft, alignRight, alignLeft},
	)
}

func resolutionTable(resolutions []resolver.Resolution) string {
	rows := make([][]string, 0, len(resolutions))
	for _, res := range resolutions {
		product, allergens := "-", "-"
		if res.Record != nil {
			product = res.Record.PrimaryName
			allergens = allergenText(res.Record.Allergens)
		}
		state := string(res.State)
		if res.GuessedBy != "" {
			state += " (" + res.GuessedBy + ")"
		}
		rows = append(rows, []string{
			res.Product.Name(),
			state,
			product,
			allergens,
			res.ImageURL,
			fmt.Sprintf("%d/%d", len(res.Comparisons), len(res.Candidates)),
		})
	}
	return renderTable(
		[]string{"Detected", "State", "Product", "Allergens", "Image", "Compared"},
		rows,
		[]columnAlignment{alignLeft, alignLeft, alignLeft, alignLeft, alignLeft, alignRight},
	)
}

func allergenText(allergens []string) string {
	if len(allergens) == 0 {
		return "정보 없음"
	}
	return strings.Join(allergens, ", ")
}
