package importer

import (
	"math"
	"strconv"
	"strings"
	"time"

	"github.com/xuri/excelize/v2"
)

// dateLayouts are tried in order. Day-first layouts follow the ISO ones so a
// value like 2025-03-01 is never read as day-first.
var dateLayouts = []string{
	"2006-01-02",
	time.RFC3339,
	time.RFC3339Nano,
	"2006-01-02T15:04:05",
	"2006-01-02 15:04:05",
	"2006-01-02 15:04",
	"2006/01/02",
	"02-01-2006",
	"02/01/2006",
	"2-1-2006",
	"2/1/2006",
	"02.01.2006",
}

// Serial bounds accepted as spreadsheet dates: 1900-01-01 .. 9999-12-31.
const (
	minDateSerial = 1
	maxDateSerial = 2958465
)

// ParseDate reads an ISO (YYYY-MM-DD), Latin (DD-MM-YYYY or DD/MM/YYYY) or raw
// spreadsheet serial date. The result is a UTC calendar date; ok is false for
// anything else.
func ParseDate(raw string) (time.Time, bool) {
	return parseDate(raw, false)
}

func parseDate(raw string, date1904 bool) (time.Time, bool) {
	value := strings.TrimSpace(raw)
	if value == "" {
		return time.Time{}, false
	}

	for _, layout := range dateLayouts {
		if ts, err := time.Parse(layout, value); err == nil {
			return calendarDate(ts), true
		}
	}

	serial, err := strconv.ParseFloat(value, 64)
	if err != nil || math.IsNaN(serial) || math.IsInf(serial, 0) {
		return time.Time{}, false
	}
	if serial < minDateSerial || serial > maxDateSerial {
		return time.Time{}, false
	}
	ts, err := excelize.ExcelDateToTime(serial, date1904)
	if err != nil {
		return time.Time{}, false
	}
	return calendarDate(ts), true
}

func calendarDate(ts time.Time) time.Time {
	y, m, d := ts.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}
