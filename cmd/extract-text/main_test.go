package main

import (
	"bytes"
	"testing"

	"github.com/dvloznov/statement-analyzer/internal/pipeline"
	"github.com/stretchr/testify/assert"
)

func TestPrintReport(t *testing.T) {
	lines := []string{
		"02/01/2024 DUNKIN DONUTS 8901 -$4.50 $1,851.92",
		"PAGE TOTAL $12.00",
	}
	report := pipeline.NewTransactionParser(nil, pipeline.Strict).ParseLines(lines)

	var buf bytes.Buffer
	printReport(&buf, report)

	out := buf.String()
	assert.Contains(t, out, "Candidate lines (2)")
	assert.Contains(t, out, "parsed     02/01/2024 DUNKIN DONUTS")
	assert.Contains(t, out, "(strict mode)")
}
