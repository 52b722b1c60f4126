package notionsync

import (
	"time"

	"github.com/dvloznov/statement-analyzer/internal/infra/bigquery"
	"github.com/jomei/notionapi"
)

// Property names of the transactions database.
const (
	PropDescription   = "Description"
	PropTransactionID = "Transaction ID"
	PropDate          = "Date"
	PropAmount        = "Amount"
	PropDirection     = "Direction"
	PropCategory      = "Category"
	PropConfidence    = "Confidence"
	PropSource        = "Source"
	PropReasoning     = "Reasoning"
)

// TransactionToNotionProperties converts a stored TransactionRow to Notion properties.
// The page title is the raw description.
func TransactionToNotionProperties(tx *bigquery.TransactionRow) notionapi.Properties {
	props := notionapi.Properties{
		PropDescription: notionapi.TitleProperty{
			Title: richText(tx.RawDescription),
		},
		PropTransactionID: notionapi.RichTextProperty{
			RichText: richText(tx.TransactionID),
		},
		PropDate: notionapi.DateProperty{
			Date: &notionapi.DateObject{
				Start: func() *notionapi.Date {
					d := notionapi.Date(time.Date(
						tx.TransactionDate.Year,
						tx.TransactionDate.Month,
						tx.TransactionDate.Day,
						0, 0, 0, 0, time.UTC,
					))
					return &d
				}(),
			},
		},
		PropDirection: notionapi.SelectProperty{
			Select: notionapi.Option{Name: tx.Direction},
		},
		PropConfidence: notionapi.NumberProperty{
			Number: tx.Confidence,
		},
	}

	if tx.Amount != nil {
		amount, _ := tx.Amount.Float64()
		props[PropAmount] = notionapi.NumberProperty{Number: amount}
	}

	if tx.CategoryName != "" {
		props[PropCategory] = notionapi.SelectProperty{
			Select: notionapi.Option{Name: tx.CategoryName},
		}
	}

	if tx.CategorySource != "" {
		props[PropSource] = notionapi.SelectProperty{
			Select: notionapi.Option{Name: tx.CategorySource},
		}
	}

	if tx.Reasoning.Valid {
		props[PropReasoning] = notionapi.RichTextProperty{
			RichText: richText(tx.Reasoning.StringVal),
		}
	}

	return props
}

func richText(content string) []notionapi.RichText {
	return []notionapi.RichText{
		{
			Type: notionapi.ObjectTypeText,
			Text: &notionapi.Text{
				Content: content,
			},
		},
	}
}

// extractTransactionID extracts the transaction ID from a Notion page's properties.
// Returns empty string if not found.
func extractTransactionID(page notionapi.Page) string {
	if prop, ok := page.Properties[PropTransactionID]; ok {
		if rt, ok := prop.(*notionapi.RichTextProperty); ok {
			if len(rt.RichText) > 0 {
				return rt.RichText[0].PlainText
			}
		}
	}
	return ""
}
