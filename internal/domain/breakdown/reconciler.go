// Package breakdown reconciles the ragged cash-flow breakdown columns into
// aligned rows and applies search and pagination over them.
package breakdown

import "strings"

// Row is one reconciled breakdown entry.
type Row struct {
	Amount       string `json:"amount"`
	Article      string `json:"article"`
	Counterparty string `json:"counterparty"`
	Purpose      string `json:"purpose"`
}

// Page is one slice of filtered breakdown rows plus the pre-slice total.
type Page struct {
	Total int   `json:"total"`
	Rows  []Row `json:"data"`
}

const (
	// DefaultLimit is the page size when the client does not name one.
	DefaultLimit = 100
	// MaxLimit caps page size regardless of what the client asks for.
	MaxLimit = 500
)

// cleanCell trims a cell and collapses the non-breaking spaces the sheet's
// number formatting leaves behind.
func cleanCell(raw string) string {
	return strings.TrimSpace(strings.ReplaceAll(raw, " ", " "))
}

// cellAt reads column values at row index i, tolerating short or empty rows.
func cellAt(column [][]string, i int) string {
	if i >= len(column) || len(column[i]) == 0 {
		return ""
	}
	return cleanCell(column[i][0])
}

// Reconcile aligns the four sparse breakdown columns by row index. Columns
// may have different lengths; missing cells read as empty. A row survives
// when its amount or its article is non-empty after trimming.
func Reconcile(amounts, counterparties, purposes, articles [][]string) []Row {
	maxLen := len(amounts)
	for _, column := range [][][]string{counterparties, purposes, articles} {
		if len(column) > maxLen {
			maxLen = len(column)
		}
	}

	rows := make([]Row, 0, maxLen)
	for i := 0; i < maxLen; i++ {
		amount := cellAt(amounts, i)
		article := cellAt(articles, i)
		if amount == "" && article == "" {
			continue
		}
		rows = append(rows, Row{
			Amount:       amount,
			Article:      article,
			Counterparty: cellAt(counterparties, i),
			Purpose:      cellAt(purposes, i),
		})
	}
	return rows
}

// Filter keeps rows whose counterparty, purpose, or article contains the
// query, case-insensitively. An empty query keeps everything.
func Filter(rows []Row, query string) []Row {
	query = strings.ToLower(strings.TrimSpace(query))
	if query == "" {
		return rows
	}

	matched := make([]Row, 0, len(rows))
	for _, row := range rows {
		if strings.Contains(strings.ToLower(row.Counterparty), query) ||
			strings.Contains(strings.ToLower(row.Purpose), query) ||
			strings.Contains(strings.ToLower(row.Article), query) {
			matched = append(matched, row)
		}
	}
	return matched
}

// Paginate slices rows into a 1-based page. Page numbers below 1 clamp to 1
// and limit clamps into [1, MaxLimit]; a page past the end yields no rows
// but still reports the total.
func Paginate(rows []Row, page, limit int) Page {
	if page < 1 {
		page = 1
	}
	if limit < 1 {
		limit = 1
	}
	if limit > MaxLimit {
		limit = MaxLimit
	}

	total := len(rows)
	start := (page - 1) * limit
	if start >= total {
		return Page{Total: total, Rows: []Row{}}
	}

	end := start + limit
	if end > total {
		end = total
	}
	return Page{Total: total, Rows: rows[start:end]}
}
