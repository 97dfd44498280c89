package main

import (
	"fmt"
	"io"
	"text/tabwriter"
)

func renderReport(w io.Writer, results []testResult) (failed int) {
	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "MODEL\tTURN\tRESULT\tSTATUS\tCHUNKS\tDURATION\tDETAIL")
	for _, res := range results {
		outcome, detail := "PASS", truncate(res.Reply, 60)
		if !res.Success {
			outcome, detail = "FAIL", res.Error
			failed++
		}
		fmt.Fprintf(tw, "%s\t%d\t%s\t%d\t%d\t%s\t%s\n",
			res.Model, res.Turn, outcome, res.StatusCode, res.Chunks, res.Duration.Round(1e6), detail)
	}
	_ = tw.Flush()
	fmt.Fprintf(w, "\n%d/%d streams passed\n", len(results)-failed, len(results))
	return failed
}

func truncate(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n]) + "..."
}
