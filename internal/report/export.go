// Package report exports status logs as an attendance workbook.
package report

import (
	"io"
	"sort"
	"strconv"

	"github.com/xuri/excelize/v2"
	"gitlab.com/tozd/go/errors"

	"github.com/example/attend/internal/ports/primary"
)

const (
	logsSheet  = "Status logs"
	daysSheet  = "Daily summary"
	dateLength = len("2006-01-02")
)

var logsHeader = []string{"id", "timestamp", "device_id", "network_id", "latitude", "longitude", "subject_phone", "sync_state", "trigger", "last_error"}

var daysHeader = []string{"date", "first_seen", "last_seen", "records", "sent", "failed", "pending"}

// DaySummary aggregates the records observed on one UTC date.
type DaySummary struct {
	Date      string
	FirstSeen string
	LastSeen  string
	Records   int
	Sent      int
	Failed    int
	Pending   int
}

// Summarize groups logs by observation date, oldest date first.
func Summarize(logs []*primary.StatusLog) []DaySummary {
	byDate := map[string]*DaySummary{}
	for _, l := range logs {
		if len(l.Timestamp) < dateLength {
			continue
		}
		date := l.Timestamp[:dateLength]
		d, ok := byDate[date]
		if !ok {
			d = &DaySummary{Date: date, FirstSeen: l.Timestamp, LastSeen: l.Timestamp}
			byDate[date] = d
		}
		if l.Timestamp < d.FirstSeen {
			d.FirstSeen = l.Timestamp
		}
		if l.Timestamp > d.LastSeen {
			d.LastSeen = l.Timestamp
		}
		d.Records++
		switch l.SyncState {
		case "SENT":
			d.Sent++
		case "FAILED":
			d.Failed++
		default:
			d.Pending++
		}
	}

	days := make([]DaySummary, 0, len(byDate))
	for _, d := range byDate {
		days = append(days, *d)
	}
	sort.Slice(days, func(i, j int) bool { return days[i].Date < days[j].Date })
	return days
}

// WriteXLSX writes logs and their daily summary to w.
func WriteXLSX(w io.Writer, logs []*primary.StatusLog) error {
	xl := excelize.NewFile()
	defer func() { _ = xl.Close() }()

	if err := xl.SetSheetName(xl.GetSheetName(0), logsSheet); err != nil {
		return errors.Errorf("failed to name sheet: %w", err)
	}
	if err := xl.SetSheetRow(logsSheet, "A1", &logsHeader); err != nil {
		return errors.Errorf("failed to write header: %w", err)
	}
	for i, l := range logs {
		row := []string{
			strconv.FormatInt(l.ID, 10),
			l.Timestamp,
			l.DeviceID,
			l.NetworkID,
			l.Latitude,
			l.Longitude,
			l.SubjectPhone,
			l.SyncState,
			l.Trigger,
			l.LastError,
		}
		cell, _ := excelize.CoordinatesToCellName(1, i+2)
		if err := xl.SetSheetRow(logsSheet, cell, &row); err != nil {
			return errors.Errorf("failed to write row %d: %w", i+2, err)
		}
	}

	if _, err := xl.NewSheet(daysSheet); err != nil {
		return errors.Errorf("failed to create sheet: %w", err)
	}
	if err := xl.SetSheetRow(daysSheet, "A1", &daysHeader); err != nil {
		return errors.Errorf("failed to write header: %w", err)
	}
	for i, d := range Summarize(logs) {
		row := []any{d.Date, d.FirstSeen, d.LastSeen, d.Records, d.Sent, d.Failed, d.Pending}
		cell, _ := excelize.CoordinatesToCellName(1, i+2)
		if err := xl.SetSheetRow(daysSheet, cell, &row); err != nil {
			return errors.Errorf("failed to write row %d: %w", i+2, err)
		}
	}

	if _, err := xl.WriteTo(w); err != nil {
		return errors.Errorf("failed to write workbook: %w", err)
	}
	return nil
}
