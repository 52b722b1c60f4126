package main

import (
	"fmt"
	"io"
	"strings"

	"github.com/dvloznov/statement-analyzer/internal/analyzer"
	"github.com/dvloznov/statement-analyzer/internal/domain"
	infraBQ "github.com/dvloznov/statement-analyzer/internal/infra/bigquery"
	"github.com/dvloznov/statement-analyzer/internal/pipeline"
)

func printResult(w io.Writer, r *analyzer.Result) {
	if !r.Success {
		fmt.Fprintf(w, "Analysis failed: %s\n", r.Error)
		return
	}

	fmt.Fprintln(w, "\n=== Analysis ===")
	fmt.Fprintf(w, "Run ID:     %s\n", r.RunID)
	fmt.Fprintf(w, "Source:     %s\n", r.Source)
	if d := r.Diagnostics; d != nil {
		fmt.Fprintf(w, "Parsed:     %d of %d lines (%.1f%%, %s mode)\n",
			d.SuccessfullyParsed, d.LinesFound, d.ParseSuccessRate, d.Mode)
	}

	if rep := r.Analysis; rep != nil {
		s := rep.Summary
		fmt.Fprintln(w, "\n=== Summary ===")
		fmt.Fprintf(w, "Transactions:  %d (%d debits, %d credits)\n", s.TotalTransactions, s.DebitCount, s.CreditCount)
		fmt.Fprintf(w, "Total spent:   $%.2f\n", s.TotalSpent)
		fmt.Fprintf(w, "Total income:  $%.2f\n", s.TotalIncome)
		fmt.Fprintf(w, "Net change:    $%.2f\n", s.NetChange)
		fmt.Fprintf(w, "Daily average: $%.2f\n", s.AverageDailySpending)

		if len(rep.CategoryBreakdown) > 0 {
			fmt.Fprintln(w, "\n=== Spending by category ===")
			for _, c := range rep.CategoryBreakdown {
				fmt.Fprintf(w, "%-16s $%10.2f  %5.1f%%  (%d)\n", c.Category, c.Total, c.Percentage, c.TransactionCount)
			}
		}

		insights := append(append([]string{}, rep.BasicInsights...), rep.AIInsights...)
		if len(insights) > 0 {
			fmt.Fprintln(w, "\n=== Insights ===")
			for _, line := range insights {
				fmt.Fprintf(w, "- %s\n", line)
			}
		}
	}

	m := r.SystemMetrics
	fmt.Fprintln(w, "\n=== Usage ===")
	fmt.Fprintf(w, "LLM calls:      %d (categorization %d, insights %d)\n", m.TotalCalls, m.CategorizationCalls, m.InsightCalls)
	fmt.Fprintf(w, "Estimated cost: $%.3f\n", m.EstimatedCost)
}

func printRun(w io.Writer, run *infraBQ.AnalysisRunRow, rows []*infraBQ.TransactionRow) {
	fmt.Fprintln(w, "\n=== Analysis Run ===")
	fmt.Fprintf(w, "ID:       %s\n", run.RunID)
	fmt.Fprintf(w, "Source:   %s\n", run.Source)
	fmt.Fprintf(w, "Started:  %s\n", run.StartedTS)
	fmt.Fprintf(w, "Status:   %s\n", run.Status)
	if run.ErrorMessage.Valid {
		fmt.Fprintf(w, "Error:    %s\n", run.ErrorMessage.StringVal)
	}
	if run.LLMCalls.Valid {
		fmt.Fprintf(w, "LLM calls: %d ($%.3f)\n", run.LLMCalls.Int64, run.EstimatedCost.Float64)
	}

	fmt.Fprintf(w, "\n=== Transactions (%d) ===\n", len(rows))
	for i, tx := range rows {
		fmt.Fprintf(w, "\n%d. %s\n", i+1, tx.RawDescription)
		fmt.Fprintf(w, "   Date:     %s\n", tx.TransactionDate)
		if tx.Amount != nil {
			fmt.Fprintf(w, "   Amount:   %s (%s)\n", tx.Amount.FloatString(2), tx.Direction)
		}
		fmt.Fprintf(w, "   Category: %s (%.2f, %s)\n", tx.CategoryName, tx.Confidence, tx.CategorySource)
		if tx.BalanceAfter != nil {
			fmt.Fprintf(w, "   Balance:  %s\n", tx.BalanceAfter.FloatString(2))
		}
	}
	fmt.Fprintln(w)
}

func printCategories(w io.Writer, vocab []domain.VocabularyEntry, rules []pipeline.CategoryRule) {
	fmt.Fprintln(w, "=== Categories ===")
	for _, v := range vocab {
		fmt.Fprintf(w, "%-16s %s\n", v.Name, v.Description)
	}

	fmt.Fprintln(w, "\n=== Keyword rules (first match wins) ===")
	for _, r := range rules {
		fmt.Fprintf(w, "%-16s %s\n", r.Category, strings.Join(r.Keywords, ", "))
	}
}
