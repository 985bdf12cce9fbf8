// Pitwall - Formula SAE Team Dashboard Server
// Copyright 2026 Pitwall Contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/pitwall-fsae/pitwall

// Package ldx watches a directory for MoTeC LDX log index files and
// injects the currently stored form values into each newly observed
// file, exactly once per file content.
package ldx

import (
	"github.com/beevik/etree"

	"github.com/pitwall-fsae/pitwall/internal/apperrors"
	"github.com/pitwall-fsae/pitwall/internal/models"
)

// Entry is one value destined for a file's <detail> block.
type Entry struct {
	ID        string
	Value     string
	WasUpdate bool
}

// InjectEntries parses an LDX document, appends one
// <entry id="ID">VALUE</entry> child per entry to the first <detail>
// element (created under the root when absent), and returns the
// serialized document plus the injection log rows. Existing children of
// <detail> are preserved.
func InjectEntries(data []byte, entries []Entry) ([]byte, []models.InjectionRow, error) {
	doc := etree.NewDocument()
	doc.ReadSettings.Permissive = false
	if err := doc.ReadFromBytes(data); err != nil {
		return nil, nil, apperrors.Wrap(apperrors.Unprocessable, err, "parse ldx xml")
	}
	root := doc.Root()
	if root == nil {
		return nil, nil, apperrors.E(apperrors.Unprocessable, "ldx file has no root element")
	}

	detail := doc.FindElement("//detail")
	if detail == nil {
		detail = root.CreateElement("detail")
	}

	rows := make([]models.InjectionRow, 0, len(entries))
	for _, e := range entries {
		el := detail.CreateElement("entry")
		el.CreateAttr("id", e.ID)
		el.SetText(e.Value)
		rows = append(rows, models.InjectionRow{
			FieldID:   e.ID,
			Value:     e.Value,
			WasUpdate: e.WasUpdate,
		})
	}

	out, err := doc.WriteToBytes()
	if err != nil {
		return nil, nil, apperrors.Wrap(apperrors.Internal, err, "serialize ldx xml")
	}
	return out, rows, nil
}
