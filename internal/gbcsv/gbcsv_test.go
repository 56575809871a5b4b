// SWAB Mentor Sync - Jotform/Givebutter Volunteer Data Pipeline
// Copyright 2026 SWAB Mentor Program
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/swab-program/mentorsync

package gbcsv

import (
	"bytes"
	"encoding/csv"
	"strings"
	"testing"

	"github.com/swab-program/mentorsync/internal/models"
)

func TestWriteProducesImportTemplate(t *testing.T) {
	var buf bytes.Buffer
	rows := []models.GBImportRow{
		{
			MnID:             "s1",
			FirstName:        "Ada",
			LastName:         "Lovelace",
			Email:            "ada@example.com",
			Phone:            "+15551112222",
			Tags:             "swab-mentor,needs_setup",
			StatusCategory:   "needs_setup",
			TextInstructions: "Finish your fundraising page setup form.",
		},
	}
	if err := Write(&buf, rows); err != nil {
		t.Fatalf("Write() error: %v", err)
	}

	records, err := csv.NewReader(&buf).ReadAll()
	if err != nil {
		t.Fatalf("output not valid csv: %v", err)
	}
	if len(records) != 2 {
		t.Fatalf("got %d records, want header + 1 row", len(records))
	}
	if len(records[0]) != len(ImportColumns) {
		t.Fatalf("header has %d columns, want %d", len(records[0]), len(ImportColumns))
	}
	row := records[1]
	if row[1] != "Ada" || row[3] != "Lovelace" {
		t.Errorf("name columns = %q %q", row[1], row[3])
	}
	if row[len(row)-3] != "s1" || row[len(row)-2] != "needs_setup" {
		t.Errorf("custom field columns wrong: %v", row)
	}
}

func TestReadContactExport(t *testing.T) {
	input := strings.Join([]string{
		`Contact ID,First Name,Last Name,Primary Email,Primary Phone,Tags`,
		`c1,Ada,Lovelace,ada@example.com,+15551112222,"swab-mentor, needs_setup"`,
		`c2,Grace,Hopper,grace@example.com,,`,
		`,Missing,ID,missing@example.com,,`,
	}, "\n")

	contacts, skipped, err := Read(strings.NewReader(input))
	if err != nil {
		t.Fatalf("Read() error: %v", err)
	}
	if skipped != 1 {
		t.Errorf("skipped = %d, want 1", skipped)
	}
	if len(contacts) != 2 {
		t.Fatalf("got %d contacts, want 2", len(contacts))
	}

	c1 := contacts[0]
	if c1.ContactID != "c1" || c1.Email != "ada@example.com" {
		t.Errorf("c1 = %+v", c1)
	}
	if len(c1.Tags) != 2 || c1.Tags[0] != "swab-mentor" || c1.Tags[1] != "needs_setup" {
		t.Errorf("c1 tags = %v", c1.Tags)
	}
	if contacts[1].Phone != "" {
		t.Errorf("c2 phone = %q, want empty", contacts[1].Phone)
	}
}

func TestReadHeaderAliases(t *testing.T) {
	input := "Givebutter Contact ID,First Name,Last Name,Email,Phone Number,Tags\n" +
		"c9,Joan,Clarke,joan@example.com,5551112222,\n"

	contacts, _, err := Read(strings.NewReader(input))
	if err != nil {
		t.Fatalf("Read() error: %v", err)
	}
	if len(contacts) != 1 || contacts[0].ContactID != "c9" {
		t.Fatalf("contacts = %+v", contacts)
	}
}

func TestReadRejectsMissingIDColumn(t *testing.T) {
	input := "First Name,Last Name\nAda,Lovelace\n"
	if _, _, err := Read(strings.NewReader(input)); err == nil {
		t.Fatal("expected error for missing contact id column")
	}
}

func TestReadStripsByteOrderMark(t *testing.T) {
	// Excel prepends a UTF-8 BOM to exported CSVs; the first header cell
	// must still match its alias.
	input := "\uFEFF" + "Contact ID,First Name,Last Name,Email,Phone,Tags\n" +
		"c1,Ada,Lovelace,ada@example.org,+15551112222,\n"

	contacts, skipped, err := Read(strings.NewReader(input))
	if err != nil {
		t.Fatalf("Read() error: %v", err)
	}
	if skipped != 0 {
		t.Errorf("skipped = %d, want 0", skipped)
	}
	if len(contacts) != 1 || contacts[0].ContactID != "c1" {
		t.Fatalf("contacts = %+v", contacts)
	}
}
