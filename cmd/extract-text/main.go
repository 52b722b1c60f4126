// Command extract-text shows what the document pipeline sees in a statement
// PDF: the extracted text, the candidate lines and how each line parsed.
// It never calls a model.
package main

import (
	"context"
	"flag"
	"fmt"
	"io"
	"os"

	"github.com/dvloznov/statement-analyzer/internal/extractor"
	"github.com/dvloznov/statement-analyzer/internal/logger"
	"github.com/dvloznov/statement-analyzer/internal/pipeline"
)

func main() {
	log := logger.New()

	filePath := flag.String("file", "", "Path to a local statement PDF (required)")
	strict := flag.Bool("strict", false, "Parse in strict mode")
	showText := flag.Bool("text", true, "Print the extracted text blob")
	flag.Parse()

	if *filePath == "" {
		log.Fatal().Msg("Error: --file is required")
	}

	data, err := os.ReadFile(*filePath)
	if err != nil {
		log.Fatal().Err(err).Str("file", *filePath).Msg("Failed to read PDF")
	}

	ctx := logger.WithContext(context.Background(), log)

	text, err := extractor.New().Extract(ctx, data)
	if err != nil {
		log.Fatal().Err(err).Msg("Extraction failed")
	}

	mode := pipeline.Lenient
	if *strict {
		mode = pipeline.Strict
	}

	lines := pipeline.NewLineFilter().Filter(text)
	report := pipeline.NewTransactionParser(nil, mode).ParseLines(lines)
	categorized := pipeline.NewCategorizer(nil).CategorizeAll(report.Transactions)

	if *showText {
		fmt.Println("=== Extracted text ===")
		fmt.Println(text)
	}
	printReport(os.Stdout, report)

	fmt.Printf("\n=== Transactions (%d) ===\n", len(categorized))
	for _, tx := range categorized {
		fmt.Printf("%-7s %s  %-40s %10.2f %-6s %-15s %.2f\n",
			tx.ID, tx.Date, tx.Description, tx.Amount, tx.Direction(), tx.Category, tx.Confidence)
	}
}

func printReport(w io.Writer, report pipeline.ParseReport) {
	fmt.Fprintf(w, "\n=== Candidate lines (%d) ===\n", report.LinesFound)
	for i, res := range report.Lines {
		fmt.Fprintf(w, "%3d  %-9s  %s\n", i+1, res.Outcome, res.Line)
		if res.Pattern != "" {
			fmt.Fprintf(w, "     pattern: %s\n", res.Pattern)
		}
		if res.Reason != "" {
			fmt.Fprintf(w, "     reason:  %s\n", res.Reason)
		}
	}
	fmt.Fprintf(w, "\nParsed %d, no match %d, skipped %d (%s mode)\n",
		report.Parsed, report.NoMatch, report.Skipped, report.Mode)
}
