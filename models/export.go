package models

import (
	"encoding/json"
	"fmt"
	"time"
)

// ExportTTL is the fixed lifetime of an export, measured from the request time
const ExportTTL = 7 * 24 * time.Hour

// ExportType selects which data categories are packaged
type ExportType string

const (
	ExportTypeFull        ExportType = "full"
	ExportTypePrompts     ExportType = "prompts"
	ExportTypeEvaluations ExportType = "evaluations"
	ExportTypeSettings    ExportType = "settings"
	ExportTypeActivity    ExportType = "activity"
)

// ExportFormat is the artifact serialization
type ExportFormat string

const (
	ExportFormatJSON ExportFormat = "json"
	ExportFormatCSV  ExportFormat = "csv"
	ExportFormatZIP  ExportFormat = "zip"
)

// ExportStatus tracks the export lifecycle
type ExportStatus string

const (
	ExportStatusPending    ExportStatus = "pending"
	ExportStatusProcessing ExportStatus = "processing"
	ExportStatusCompleted  ExportStatus = "completed"
	ExportStatusFailed     ExportStatus = "failed"
	ExportStatusExpired    ExportStatus = "expired"
)

// IsTerminal reports whether no further job transitions are possible
func (s ExportStatus) IsTerminal() bool {
	return s == ExportStatusCompleted || s == ExportStatusFailed || s == ExportStatusExpired
}

// Category is one kind of tenant data that can be exported or deleted
type Category string

const (
	CategoryPrompts     Category = "prompts"
	CategoryCollections Category = "collections"
	CategoryEvaluations Category = "evaluations"
	CategorySettings    Category = "settings"
	CategoryActivity    Category = "activity"
)

// AllCategories is the fixed order in which a full export walks the data
var AllCategories = []Category{
	CategoryPrompts,
	CategoryCollections,
	CategoryEvaluations,
	CategorySettings,
	CategoryActivity,
}

// ValidExportTypes lists accepted export types
var ValidExportTypes = []ExportType{
	ExportTypeFull,
	ExportTypePrompts,
	ExportTypeEvaluations,
	ExportTypeSettings,
	ExportTypeActivity,
}

// IsValid reports whether t is a known export type
func (t ExportType) IsValid() bool {
	for _, v := range ValidExportTypes {
		if v == t {
			return true
		}
	}
	return false
}

// Categories returns the categories included in the export type
func (t ExportType) Categories() []Category {
	switch t {
	case ExportTypeFull:
		out := make([]Category, len(AllCategories))
		copy(out, AllCategories)
		return out
	case ExportTypePrompts:
		return []Category{CategoryPrompts}
	case ExportTypeEvaluations:
		return []Category{CategoryEvaluations}
	case ExportTypeSettings:
		return []Category{CategorySettings}
	case ExportTypeActivity:
		return []Category{CategoryActivity}
	}
	return nil
}

// IsValid reports whether f is a known export format
func (f ExportFormat) IsValid() bool {
	return f == ExportFormatJSON || f == ExportFormatCSV || f == ExportFormatZIP
}

// ContentType returns the MIME type of an unencrypted artifact
func (f ExportFormat) ContentType() string {
	switch f {
	case ExportFormatCSV:
		return "text/csv"
	case ExportFormatZIP:
		return "application/zip"
	}
	return "application/json"
}

// ExportRequest is a unit of work that packages a subset of a tenant's data
type ExportRequest struct {
	ID                 string       `json:"id" db:"id"`
	OwnerID            string       `json:"owner_id" db:"owner_id"`
	ExportType         ExportType   `json:"export_type" db:"export_type"`
	Format             ExportFormat `json:"format" db:"format"`
	Status             ExportStatus `json:"status" db:"status"`
	Progress           int          `json:"progress" db:"progress"`
	FileURL            string       `json:"-" db:"file_url"`
	FileSize           int64        `json:"file_size" db:"file_size"`
	Encrypted          bool         `json:"encrypted" db:"encrypted"`
	IncludedCategories StringList   `json:"included_categories" db:"included_categories"`
	ErrorMessage       string       `json:"error_message,omitempty" db:"error_message"`
	RequestedAt        time.Time    `json:"requested_at" db:"requested_at"`
	StartedAt          *time.Time   `json:"started_at,omitempty" db:"started_at"`
	CompletedAt        *time.Time   `json:"completed_at,omitempty" db:"completed_at"`
	ExpiresAt          time.Time    `json:"expires_at" db:"expires_at"`
}

// BlobKey is the storage key of the export artifact
func (r *ExportRequest) BlobKey() string {
	return fmt.Sprintf("%s/%s", r.OwnerID, r.ID)
}

// IsExpired reports whether now is past the export's expiry
func (r *ExportRequest) IsExpired(now time.Time) bool {
	return now.After(r.ExpiresAt)
}

// FileName is the suggested download name for the artifact
func (r *ExportRequest) FileName() string {
	ext := string(r.Format)
	if r.Encrypted {
		ext += ".enc"
	}
	return fmt.Sprintf("promptforge-%s-%s.%s", r.ExportType, r.RequestedAt.UTC().Format("20060102"), ext)
}

// ExportForm represents a request to create an export
type ExportForm struct {
	ExportType ExportType   `json:"export_type"`
	Format     ExportFormat `json:"format"`
	Password   string       `json:"password,omitempty"`
}

// Validate validates the export form data
func (f *ExportForm) Validate() []string {
	var errors []string

	if !f.ExportType.IsValid() {
		errors = append(errors, "Export type must be one of full, prompts, evaluations, settings, activity")
	}

	if !f.Format.IsValid() {
		errors = append(errors, "Format must be one of json, csv, zip")
	}

	return errors
}

// ExportMetadata describes an export artifact
type ExportMetadata struct {
	ExportDate   time.Time    `json:"exportDate"`
	ExportType   ExportType   `json:"exportType"`
	Format       ExportFormat `json:"format"`
	IncludedData []Category   `json:"includedData"`
	OwnerID      string       `json:"ownerId"`
	Version      int          `json:"version"`
}

// ExportDocument is the artifact body: metadata plus one typed section per category.
// Only the categories listed in Metadata.IncludedData are serialized.
type ExportDocument struct {
	Metadata    ExportMetadata    `json:"metadata"`
	Prompts     []Prompt          `json:"prompts"`
	Collections []Collection      `json:"collections"`
	Evaluations []Evaluation      `json:"evaluations"`
	Settings    map[string]string `json:"settings"`
	Activity    []ActivityEntry   `json:"activity"`
}

// MarshalJSON emits metadata plus exactly the included sections; an included category
// with no records is written as an empty collection rather than dropped.
func (doc ExportDocument) MarshalJSON() ([]byte, error) {
	out := make(map[string]interface{}, len(doc.Metadata.IncludedData)+1)
	out["metadata"] = doc.Metadata

	for _, category := range doc.Metadata.IncludedData {
		section, err := doc.Section(category)
		if err != nil {
			return nil, err
		}
		out[string(category)] = section
	}

	return json.Marshal(out)
}

// Section returns the records of one category, never nil
func (doc *ExportDocument) Section(category Category) (interface{}, error) {
	switch category {
	case CategoryPrompts:
		return nonNil(doc.Prompts), nil
	case CategoryCollections:
		return nonNil(doc.Collections), nil
	case CategoryEvaluations:
		return nonNil(doc.Evaluations), nil
	case CategorySettings:
		if doc.Settings == nil {
			return map[string]string{}, nil
		}
		return doc.Settings, nil
	case CategoryActivity:
		return nonNil(doc.Activity), nil
	}
	return nil, fmt.Errorf("unknown export category %q", category)
}

// CategoryData is a loaded category section
type CategoryData struct {
	Category    Category
	Prompts     []Prompt
	Collections []Collection
	Evaluations []Evaluation
	Settings    map[string]string
	Activity    []ActivityEntry
}

// Len returns the number of records in the section
func (d *CategoryData) Len() int {
	switch d.Category {
	case CategoryPrompts:
		return len(d.Prompts)
	case CategoryCollections:
		return len(d.Collections)
	case CategoryEvaluations:
		return len(d.Evaluations)
	case CategorySettings:
		return len(d.Settings)
	case CategoryActivity:
		return len(d.Activity)
	}
	return 0
}

// Add places a loaded section into the document
func (doc *ExportDocument) Add(data *CategoryData) error {
	switch data.Category {
	case CategoryPrompts:
		doc.Prompts = data.Prompts
	case CategoryCollections:
		doc.Collections = data.Collections
	case CategoryEvaluations:
		doc.Evaluations = data.Evaluations
	case CategorySettings:
		doc.Settings = data.Settings
	case CategoryActivity:
		doc.Activity = data.Activity
	default:
		return fmt.Errorf("unknown export category %q", data.Category)
	}
	return nil
}

func nonNil[T any](in []T) []T {
	if in == nil {
		return []T{}
	}
	return in
}

// DataSummary counts an owner's records per category
type DataSummary struct {
	Counts map[Category]int `json:"counts"`
	Total  int              `json:"total"`
}

// ExportBlob is a stored export artifact
type ExportBlob struct {
	Key         string    `db:"key"`
	OwnerID     string    `db:"owner_id"`
	ContentType string    `db:"content_type"`
	Content     []byte    `db:"content"`
	Size        int64     `db:"size"`
	CreatedAt   time.Time `db:"created_at"`
}
