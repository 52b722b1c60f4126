package analyzer

import (
	"errors"
	"fmt"
)

var (
	// ErrNoTransactions is returned when a readable document yields no transactions.
	ErrNoTransactions = errors.New("no transactions found in document")
	// ErrTooManyTransactions is returned when a document exceeds limits.max_transactions.
	ErrTooManyTransactions = errors.New("too many transactions")
	// ErrRunNotFound is returned by Lookup for unknown or evicted run IDs.
	ErrRunNotFound = errors.New("analysis run not found")
)

// User-facing failure messages carried in Result.Error.
const (
	msgNoTransactions  = "No transactions found in document"
	msgTooMany         = "Too many transactions - please split file"
	msgDocumentFailure = "Document processing failed: %s"
)

// InputError reports a document rejected before any processing.
type InputError struct {
	Source string
	Reason string
}

func (e *InputError) Error() string {
	return e.Reason
}

func errFileNotFound(path string) *InputError {
	return &InputError{Source: path, Reason: fmt.Sprintf("File not found: %s", path)}
}

func errNotPDF(path string) *InputError {
	return &InputError{Source: path, Reason: "Only PDF files are supported"}
}

func errTooLarge(path string, max int64) *InputError {
	return &InputError{Source: path, Reason: fmt.Sprintf("File too large (>%s)", formatSize(max))}
}

// formatSize renders a byte limit in the largest whole unit that keeps it nonzero.
func formatSize(n int64) string {
	switch {
	case n >= 1024*1024:
		return fmt.Sprintf("%dMB", n/(1024*1024))
	case n >= 1024:
		return fmt.Sprintf("%dKB", n/1024)
	default:
		return fmt.Sprintf("%d bytes", n)
	}
}

func errEmpty(path string) *InputError {
	return &InputError{Source: path, Reason: "File is empty"}
}

func errUnreadable(path string, err error) *InputError {
	return &InputError{Source: path, Reason: fmt.Sprintf("Cannot access file: %v", err)}
}
