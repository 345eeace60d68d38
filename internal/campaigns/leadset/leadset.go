// Package leadset turns raw tabular input into the normalized call targets a
// campaign dispatch operates on.
package leadset

import (
	"encoding/csv"
	"fmt"
	"io"
	"strings"

	"callops_backend/platform/apperr"
	"callops_backend/platform/phone"
)

// RawRow is one unvalidated input row.
type RawRow struct {
	Name  string
	Phone string
	Email string
}

// Lead is one validated call target. Leads are immutable once built and are
// discarded after the dispatch that consumed them.
type Lead struct {
	Name      string
	PhoneE164 string
	Email     string
}

// Build filters and normalizes raw rows. A row without a usable phone number
// is dropped silently so trailing blank lines and junk rows never abort an
// upload; a missing name defaults to "Unknown". Output order follows input
// order. Returns a validation error only when zero rows survive.
func Build(rows []RawRow) ([]Lead, error) {
	leads := make([]Lead, 0, len(rows))
	for _, row := range rows {
		raw := strings.TrimSpace(row.Phone)
		if raw == "" || !phone.IsValidE164(raw) {
			continue
		}

		name := strings.TrimSpace(row.Name)
		if name == "" {
			name = "Unknown"
		}

		leads = append(leads, Lead{
			Name:      name,
			PhoneE164: phone.NormalizeE164(raw),
			Email:     strings.TrimSpace(row.Email),
		})
	}

	if len(leads) == 0 {
		return nil, apperr.Validation("lead set is empty: no rows with a valid phone number")
	}
	return leads, nil
}

// ParseCSV reads an uploaded lead file. The first record is treated as a
// header when it names a phone column (case-insensitive); otherwise columns
// are taken positionally as name, phone, email.
func ParseCSV(r io.Reader) ([]RawRow, error) {
	reader := csv.NewReader(r)
	reader.FieldsPerRecord = -1
	reader.TrimLeadingSpace = true

	records, err := reader.ReadAll()
	if err != nil {
		return nil, apperr.Validation(fmt.Sprintf("malformed CSV: %v", err))
	}
	if len(records) == 0 {
		return nil, apperr.Validation("empty file")
	}

	nameIdx, phoneIdx, emailIdx := 0, 1, 2
	start := 0
	if idx := columnIndex(records[0], "phone", "phonenumber", "phone_number", "number"); idx >= 0 {
		phoneIdx = idx
		if idx := columnIndex(records[0], "name", "fullname", "full_name"); idx >= 0 {
			nameIdx = idx
		} else {
			nameIdx = -1
		}
		if idx := columnIndex(records[0], "email", "e-mail"); idx >= 0 {
			emailIdx = idx
		} else {
			emailIdx = -1
		}
		start = 1
	}

	rows := make([]RawRow, 0, len(records)-start)
	for _, record := range records[start:] {
		rows = append(rows, RawRow{
			Name:  field(record, nameIdx),
			Phone: field(record, phoneIdx),
			Email: field(record, emailIdx),
		})
	}
	return rows, nil
}

func columnIndex(header []string, names ...string) int {
	for i, col := range header {
		normalized := strings.ToLower(strings.TrimSpace(col))
		for _, name := range names {
			if normalized == name {
				return i
			}
		}
	}
	return -1
}

func field(record []string, idx int) string {
	if idx < 0 || idx >= len(record) {
		return ""
	}
	return record[idx]
}
