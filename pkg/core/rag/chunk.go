// Package rag resolves line items and answers questions from embedded
// financial-statement text.
package rag

import (
	"fmt"
	"regexp"
	"strings"

	"fsi_kpi/pkg/core/kpi"
	"fsi_kpi/pkg/core/lineitem"
)

// Document is one embedded chunk.
type Document struct {
	ID        string            `json:"id"`
	Text      string            `json:"text"`
	Metadata  map[string]string `json:"metadata,omitempty"`
	Embedding []float32         `json:"embedding"`
}

// Chunk is the structured content of a statement chunk.
type Chunk struct {
	Company   string
	Statement string
	LineItem  string
	lineitem.Record
}

// FormatChunk renders a line item in the indexed chunk format:
// "<company> | <statement> | <line item> | FY24 = <num>, FY23 = <num>".
func FormatChunk(company string, statement lineitem.Statement, row lineitem.Row) string {
	return fmt.Sprintf("%s | %s | %s | FY24 = %s, FY23 = %s",
		company, statement, row.LineItem, formatCell(row.FY2024), formatCell(row.FY2023))
}

func formatCell(v lineitem.Value) string {
	if f, ok := v.Float64(); ok {
		return kpi.FormatFloat(f)
	}
	if v.IsNull() {
		return "NA"
	}
	return fmt.Sprint(v.Raw())
}

var (
	fy24Pattern = regexp.MustCompile(`(?i)FY\s*2024\s*:\s*(-?\d[\d,]*\.?\d*)`)
	fy23Pattern = regexp.MustCompile(`(?i)FY\s*2023\s*:\s*(-?\d[\d,]*\.?\d*)`)
	yearKey     = regexp.MustCompile(`(?i)FY\s*(\d{2,4})\s*=`)
)

// ParseChunk reads a chunk in the pipe format, falling back to free text of
// the form "FY2024: 12,345.6". ok is false when the text carries neither.
func ParseChunk(text string) (Chunk, bool) {
	parts := strings.Split(text, "|")
	if len(parts) >= 4 {
		for i := range parts {
			parts[i] = strings.TrimSpace(parts[i])
		}
		c := Chunk{Company: parts[0], Statement: parts[1], LineItem: parts[2]}
		values := strings.Join(parts[3:], "|")
		keys := yearKey.FindAllStringSubmatchIndex(values, -1)
		for i, k := range keys {
			end := len(values)
			if i+1 < len(keys) {
				end = keys[i+1][0]
			}
			raw := strings.TrimRight(strings.TrimSpace(values[k[1]:end]), ",;")
			switch values[k[2]:k[3]] {
			case "24", "2024":
				c.FY2024 = lineitem.ParseAmount(raw)
			case "23", "2023":
				c.FY2023 = lineitem.ParseAmount(raw)
			}
		}
		return c, true
	}

	m24 := fy24Pattern.FindStringSubmatch(text)
	m23 := fy23Pattern.FindStringSubmatch(text)
	if m24 == nil && m23 == nil {
		return Chunk{}, false
	}
	var c Chunk
	if m24 != nil {
		c.FY2024 = lineitem.ParseAmount(m24[1])
	}
	if m23 != nil {
		c.FY2023 = lineitem.ParseAmount(m23[1])
	}
	return c, true
}
