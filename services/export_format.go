package services

import (
	"archive/zip"
	"bytes"
	"encoding/csv"
	"encoding/json"
	"fmt"
	"sort"

	"github.com/blogem/promptforge/models"
)

// serializeExport renders the document in the requested format
func serializeExport(doc *models.ExportDocument) ([]byte, error) {
	switch doc.Metadata.Format {
	case models.ExportFormatJSON:
		return json.MarshalIndent(doc, "", "  ")
	case models.ExportFormatCSV:
		return exportCSV(doc)
	case models.ExportFormatZIP:
		return exportZIP(doc)
	}
	return nil, fmt.Errorf("unsupported export format %q", doc.Metadata.Format)
}

// exportCSV writes one row per record: category, id, created_at and the record as JSON
func exportCSV(doc *models.ExportDocument) ([]byte, error) {
	var buf bytes.Buffer
	w := csv.NewWriter(&buf)

	if err := w.Write([]string{"category", "id", "created_at", "data"}); err != nil {
		return nil, err
	}

	for _, category := range doc.Metadata.IncludedData {
		rows, err := csvRows(doc, category)
		if err != nil {
			return nil, err
		}
		if err := w.WriteAll(rows); err != nil {
			return nil, err
		}
	}

	w.Flush()
	if err := w.Error(); err != nil {
		return nil, fmt.Errorf("failed to write csv: %w", err)
	}

	return buf.Bytes(), nil
}

func csvRows(doc *models.ExportDocument, category models.Category) ([][]string, error) {
	var rows [][]string
	add := func(id string, createdAt string, record interface{}) error {
		data, err := json.Marshal(record)
		if err != nil {
			return fmt.Errorf("failed to encode %s record: %w", category, err)
		}
		rows = append(rows, []string{string(category), id, createdAt, string(data)})
		return nil
	}

	var err error
	switch category {
	case models.CategoryPrompts:
		for _, p := range doc.Prompts {
			if err = add(p.ID, models.FormatDateTime(p.CreatedAt), p); err != nil {
				return nil, err
			}
		}
	case models.CategoryCollections:
		for _, c := range doc.Collections {
			if err = add(c.ID, models.FormatDateTime(c.CreatedAt), c); err != nil {
				return nil, err
			}
		}
	case models.CategoryEvaluations:
		for _, e := range doc.Evaluations {
			if err = add(e.ID, models.FormatDateTime(e.CreatedAt), e); err != nil {
				return nil, err
			}
		}
	case models.CategorySettings:
		keys := make([]string, 0, len(doc.Settings))
		for key := range doc.Settings {
			keys = append(keys, key)
		}
		sort.Strings(keys)
		for _, key := range keys {
			if err = add(key, "", doc.Settings[key]); err != nil {
				return nil, err
			}
		}
	case models.CategoryActivity:
		for _, a := range doc.Activity {
			if err = add(a.ID, models.FormatDateTime(a.CreatedAt), a); err != nil {
				return nil, err
			}
		}
	default:
		return nil, fmt.Errorf("unknown export category %q", category)
	}

	return rows, nil
}

// exportZIP packs the full document as export.json plus one file per category
func exportZIP(doc *models.ExportDocument) ([]byte, error) {
	var buf bytes.Buffer
	zw := zip.NewWriter(&buf)

	write := func(name string, v interface{}) error {
		f, err := zw.Create(name)
		if err != nil {
			return err
		}
		enc := json.NewEncoder(f)
		enc.SetIndent("", "  ")
		return enc.Encode(v)
	}

	if err := write("export.json", doc); err != nil {
		return nil, fmt.Errorf("failed to write export.json: %w", err)
	}

	for _, category := range doc.Metadata.IncludedData {
		section, err := doc.Section(category)
		if err != nil {
			return nil, err
		}
		if err := write(string(category)+".json", section); err != nil {
			return nil, fmt.Errorf("failed to write %s.json: %w", category, err)
		}
	}

	if err := zw.Close(); err != nil {
		return nil, fmt.Errorf("failed to finish zip: %w", err)
	}

	return buf.Bytes(), nil
}
