// SWAB Mentor Sync - Jotform/Givebutter Volunteer Data Pipeline
// Copyright 2026 SWAB Mentor Program
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/swab-program/mentorsync

// Package gbcsv reads and writes Givebutter's fixed-column contact CSV
// formats. Export produces the import-template shape Givebutter accepts;
// Read consumes the contact export Givebutter produces.
package gbcsv

import (
	"encoding/csv"
	"fmt"
	"io"
	"strings"

	"github.com/swab-program/mentorsync/internal/models"
)

// ImportColumns is Givebutter's contact import template header, in order.
// Custom field columns carry the program's own tracking data.
var ImportColumns = []string{
	"Prefix",
	"First Name",
	"Middle Name",
	"Last Name",
	"Suffix",
	"Email",
	"Phone",
	"Address Line 1",
	"Address Line 2",
	"City",
	"State",
	"Zip",
	"Country",
	"Tags",
	"Custom Field: mn_id",
	"Custom Field: status_category",
	"Custom Field: text_instructions",
}

// Write renders import rows as a Givebutter import-template CSV.
func Write(w io.Writer, rows []models.GBImportRow) error {
	cw := csv.NewWriter(w)
	if err := cw.Write(ImportColumns); err != nil {
		return fmt.Errorf("failed to write csv header: %w", err)
	}
	for _, r := range rows {
		record := []string{
			"", // prefix
			r.FirstName,
			"", // middle
			r.LastName,
			"", // suffix
			r.Email,
			r.Phone,
			"", "", "", "", "", "", // address block, not tracked
			r.Tags,
			r.MnID,
			r.StatusCategory,
			r.TextInstructions,
		}
		if err := cw.Write(record); err != nil {
			return fmt.Errorf("failed to write csv row %s: %w", r.MnID, err)
		}
	}
	cw.Flush()
	return cw.Error()
}

// headerAliases maps the column names seen across Givebutter contact
// exports to canonical keys. Exports have renamed columns between
// dashboard versions.
var headerAliases = map[string]string{
	"contact id":            "contact_id",
	"givebutter contact id": "contact_id",
	"first name":            "first_name",
	"last name":             "last_name",
	"email":                 "email",
	"primary email":         "email",
	"phone":                 "phone",
	"primary phone":         "phone",
	"phone number":          "phone",
	"tags":                  "tags",
}

// Read parses a Givebutter contact export CSV into raw contact mirrors.
// Unknown columns are ignored; rows without a contact id are skipped and
// counted in the returned skip count.
func Read(r io.Reader) ([]models.RawContact, int, error) {
	cr := csv.NewReader(r)
	cr.FieldsPerRecord = -1

	header, err := cr.Read()
	if err != nil {
		return nil, 0, fmt.Errorf("failed to read csv header: %w", err)
	}

	index := make(map[string]int)
	for i, col := range header {
		key := strings.ToLower(strings.TrimSpace(strings.TrimPrefix(col, "\uFEFF")))
		if canonical, ok := headerAliases[key]; ok {
			if _, dup := index[canonical]; !dup {
				index[canonical] = i
			}
		}
	}
	if _, ok := index["contact_id"]; !ok {
		return nil, 0, fmt.Errorf("csv has no contact id column (header: %s)", strings.Join(header, ", "))
	}

	field := func(record []string, key string) string {
		i, ok := index[key]
		if !ok || i >= len(record) {
			return ""
		}
		return strings.TrimSpace(record[i])
	}

	var contacts []models.RawContact
	skipped := 0
	for {
		record, err := cr.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, skipped, fmt.Errorf("failed to read csv row: %w", err)
		}
		id := field(record, "contact_id")
		if id == "" {
			skipped++
			continue
		}
		c := models.RawContact{
			ContactID: id,
			FirstName: field(record, "first_name"),
			LastName:  field(record, "last_name"),
			Email:     field(record, "email"),
			Phone:     field(record, "phone"),
		}
		if tags := field(record, "tags"); tags != "" {
			for _, t := range strings.Split(tags, ",") {
				if t = strings.TrimSpace(t); t != "" {
					c.Tags = append(c.Tags, t)
				}
			}
		}
		contacts = append(contacts, c)
	}
	return contacts, skipped, nil
}
