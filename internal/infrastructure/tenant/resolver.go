// Package tenant resolves a branch identity into the spreadsheet and
// worksheet coordinates its data lives at.
package tenant

import "strings"

// Branch identifies one school branch. The set is closed; anything else
// normalizes to BranchPrivate.
type Branch string

const (
	BranchPrivate    Branch = "Private"
	BranchHighschool Branch = "Highschool"
	BranchAcademy    Branch = "Academy"
)

// Branches lists every known branch in stable order.
var Branches = []Branch{BranchPrivate, BranchHighschool, BranchAcademy}

// Normalize maps a raw branch string onto the closed set, case-insensitively.
// Unknown or empty input falls back to BranchPrivate so a misconfigured
// client still sees data instead of an error.
func Normalize(raw string) Branch {
	switch strings.ToLower(strings.TrimSpace(raw)) {
	case "highschool":
		return BranchHighschool
	case "academy":
		return BranchAcademy
	default:
		return BranchPrivate
	}
}

// Worksheets names the per-branch tabs inside the main workbook.
type Worksheets struct {
	Money    string
	Students string
	Staff    string
}

// LedgerSource locates a branch's cash-flow workbook.
type LedgerSource struct {
	SpreadsheetID string
	Sheet         string
}

var worksheetNames = map[Branch]Worksheets{
	BranchPrivate:    {Money: "DengiBotPrivate", Students: "UchenikiBotPrivate", Staff: "SotrudnikiBotPrivate"},
	BranchHighschool: {Money: "DengiBotHighschool", Students: "UchenikiBotHighschool", Staff: "SotrudnikiBotHighschool"},
	BranchAcademy:    {Money: "DengiBotAcademy", Students: "UchenikiBotAcademy", Staff: "SotrudnikiBotAcademy"},
}

var ledgerSources = map[Branch]LedgerSource{
	BranchPrivate:    {SpreadsheetID: "1FIBAlCkUL2qT9ztd3gfH5kOd3eHLKE53eYKLJzD75dw", Sheet: "TelegramBotPrivate"},
	BranchHighschool: {SpreadsheetID: "1N_8nASKsuLaQPbs8BuonLGn5tkjM803X--JyC2_OUt8", Sheet: "TelegramBotHighschool"},
	BranchAcademy:    {SpreadsheetID: "1NkomZvK6mw-QBa7PWW8MhnFN7DdJ_r2a9PSfg095L4Y", Sheet: "TelegramBotAcademy"},
}

// WorksheetsFor returns the branch's worksheet names in the main workbook.
func WorksheetsFor(branch Branch) Worksheets {
	if ws, ok := worksheetNames[branch]; ok {
		return ws
	}
	return worksheetNames[BranchPrivate]
}

// LedgerSourceFor returns the branch's cash-flow workbook coordinates.
func LedgerSourceFor(branch Branch) LedgerSource {
	if src, ok := ledgerSources[branch]; ok {
		return src
	}
	return ledgerSources[BranchPrivate]
}

// Mode selects which time slice of the ledger summary to read.
type Mode string

const (
	ModeCurrent Mode = "current"
	ModeDate    Mode = "date"
	ModeMonth   Mode = "month"
)

var summaryRanges = map[Mode][]string{
	ModeCurrent: {"A3:B15", "A17:B21", "A23:B25"},
	ModeDate:    {"E3:F15", "E17:F21", "E23:F25"},
	ModeMonth:   {"G3:H15", "G17:H21", "G23:H25"},
}

// NormalizeMode maps a raw mode string onto the closed set. The Russian
// aliases are what the original Telegram clients still send.
func NormalizeMode(raw string) (Mode, bool) {
	switch strings.ToLower(strings.TrimSpace(raw)) {
	case "", "current", "текущий":
		return ModeCurrent, true
	case "date", "дата":
		return ModeDate, true
	case "month", "месяц":
		return ModeMonth, true
	default:
		return "", false
	}
}

// SummaryRangesFor returns the ledger summary cell ranges for a mode.
func SummaryRangesFor(mode Mode) []string {
	if ranges, ok := summaryRanges[mode]; ok {
		return ranges
	}
	return summaryRanges[ModeCurrent]
}

var breakdownSheets = map[Mode]string{
	ModeCurrent: "Расшифровка ДДС сегодня",
	ModeMonth:   "Расшифровка ДДС на месяц",
	ModeDate:    "Расшифровка ДДС на дату",
}

// BreakdownSheetFor names the breakdown worksheet backing a mode.
func BreakdownSheetFor(mode Mode) string {
	if sheet, ok := breakdownSheets[mode]; ok {
		return sheet
	}
	return breakdownSheets[ModeCurrent]
}

// CalendarRanges locates a branch's column group on the shared payment
// calendar worksheet.
type CalendarRanges struct {
	Header string
	Table  string
}

var calendarRanges = map[Branch]CalendarRanges{
	BranchPrivate:    {Header: "A1:B3", Table: "A4:C63"},
	BranchHighschool: {Header: "F1:G3", Table: "F4:H63"},
	BranchAcademy:    {Header: "K1:L3", Table: "K4:M63"},
}

// CalendarRangesFor returns the calendar cell ranges for a branch.
func CalendarRangesFor(branch Branch) CalendarRanges {
	if r, ok := calendarRanges[branch]; ok {
		return r
	}
	return calendarRanges[BranchPrivate]
}
