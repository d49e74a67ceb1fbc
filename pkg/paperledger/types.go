package paperledger

import (
	"time"
)

// BatchState is the lifecycle state of an ingestion batch.
type BatchState string

const (
	BatchStateUploading BatchState = "uploading"
	BatchStateRecording BatchState = "recording"
	BatchStateLinking   BatchState = "linking"
	BatchStateDone      BatchState = "done"
)

// Pipeline names stamped on provenance rows.
const (
	PipelineDocumentUpload     = "Document Upload"
	PipelineOddpubAnalysis     = "Oddpub Analysis"
	PipelineRTransparentUpload = "RTransparent Data Upload"
	PipelineDocumentRepair     = "Document Repair"
)

// Document is a uniquely content-identified file and its storage location.
type Document struct {
	ID           int64     `json:"id"`
	HashData     string    `json:"hash_data"`
	S3URI        string    `json:"s3uri"`
	CreatedAt    time.Time `json:"created_at"`
	ProvenanceID *int64    `json:"provenance_id,omitempty"`
	WorkID       *int64    `json:"work_id,omitempty"`
}

// Work groups one or more documents that represent a single scholarly output.
//
// InitialDocumentID never changes after the work is created. Works loaded
// from metrics files that have no source PDF carry no document ids at all.
type Work struct {
	ID                int64     `json:"id"`
	CreatedAt         time.Time `json:"created_at"`
	ModifiedAt        time.Time `json:"modified_at"`
	InitialDocumentID *int64    `json:"initial_document_id,omitempty"`
	PrimaryDocumentID *int64    `json:"primary_document_id,omitempty"`
	ProvenanceID      *int64    `json:"provenance_id,omitempty"`
}

// Provenance is an immutable audit record of one pipeline run.
type Provenance struct {
	ID           int64     `json:"id"`
	PipelineName string    `json:"pipeline_name"`
	Version      string    `json:"version"`
	Compute      string    `json:"compute"`
	Personnel    string    `json:"personnel"`
	Comment      string    `json:"comment,omitempty"`
	CreatedAt    time.Time `json:"created_at"`
}

// OddpubResult is the analyzer payload for a single PDF.
type OddpubResult struct {
	Article            string `json:"article"`
	IsOpenData         bool   `json:"is_open_data"`
	OpenDataCategory   string `json:"open_data_category"`
	IsReuse            bool   `json:"is_reuse"`
	IsOpenCode         bool   `json:"is_open_code"`
	IsOpenDataDAS      bool   `json:"is_open_data_das"`
	IsOpenCodeCAS      bool   `json:"is_open_code_cas"`
	DAS                string `json:"das"`
	OpenDataStatements string `json:"open_data_statements"`
	CAS                string `json:"cas"`
	OpenCodeStatements string `json:"open_code_statements"`
}

// OddpubMetrics is an analyzer result attached to a work, document and provenance.
type OddpubMetrics struct {
	ID int64 `json:"id"`
	OddpubResult
	WorkID       *int64 `json:"work_id,omitempty"`
	ProvenanceID *int64 `json:"provenance_id,omitempty"`
	DocumentID   *int64 `json:"document_id,omitempty"`
}

// InsertResult reports whether an insert-or-get created a row.
type InsertResult int

const (
	InsertCreated InsertResult = iota
	InsertExisting
)

func (r InsertResult) String() string {
	switch r {
	case InsertCreated:
		return "created"
	case InsertExisting:
		return "existing"
	default:
		return "unknown"
	}
}

// BatchSummary reports the outcome of an ingestion batch.
type BatchSummary struct {
	Uploaded          int        `json:"uploaded"`
	NewDocuments      int        `json:"new_documents"`
	DuplicatesSkipped int        `json:"duplicates_skipped"`
	Failed            int        `json:"failed"`
	ProvenanceID      *int64     `json:"provenance_id,omitempty"`
	DocumentIDs       []int64    `json:"document_ids,omitempty"`
	WorkIDs           []int64    `json:"work_ids,omitempty"`
	FailedFiles       []string   `json:"failed_files,omitempty"`
	State             BatchState `json:"state"`
}

// RepairSummary reports what a repair run stamped and linked.
type RepairSummary struct {
	Incomplete   int     `json:"incomplete"`
	Stamped      int     `json:"stamped"`
	WorksCreated int     `json:"works_created"`
	ProvenanceID *int64  `json:"provenance_id,omitempty"`
	DocumentIDs  []int64 `json:"document_ids,omitempty"`
	WorkIDs      []int64 `json:"work_ids,omitempty"`
}

// RelinkResult reports how many documents moved to the target work.
type RelinkResult struct {
	TargetWorkID int64 `json:"target_work_id"`
	Requested    int   `json:"requested"`
	Changed      int   `json:"changed"`
}

// AnalysisSummary reports the outcome of an analyzer run over a directory.
type AnalysisSummary struct {
	Analyzed      int      `json:"analyzed"`
	AlreadyScored int      `json:"already_scored"`
	Unknown       int      `json:"unknown"`
	Failed        int      `json:"failed"`
	ProvenanceID  *int64   `json:"provenance_id,omitempty"`
	FailedFiles   []string `json:"failed_files,omitempty"`
}

// LoadSummary reports the outcome of a publication metrics load.
type LoadSummary struct {
	Rows         int    `json:"rows"`
	Inserted     int    `json:"inserted"`
	Chunks       int    `json:"chunks"`
	WorksCreated int    `json:"works_created"`
	ProvenanceID *int64 `json:"provenance_id,omitempty"`
}

// Int64Ptr returns a pointer to v.
func Int64Ptr(v int64) *int64 {
	return &v
}
