package models

// ImportMetadata aggregates counters for one import batch.
type ImportMetadata struct {
	TotalFilesProcessed int            `json:"total_files_processed"`
	SuccessfulImports   int            `json:"successful_imports"`
	FailedImports       int            `json:"failed_imports"`
	TotalConversations  int            `json:"total_conversations"`
	TotalMessages       int            `json:"total_messages"`
	ProcessingTimeMS    int64          `json:"processing_time_ms"`
	DetectedFormats     map[string]int `json:"detected_formats"`
	ParserFallbacks     int            `json:"parser_fallbacks"`
}

// ImportReport is the batch result handed back to the import orchestration
// collaborator. It always reflects partial success: a failed file adds an
// error string without aborting the batch.
type ImportReport struct {
	BatchID       string         `json:"batch_id"`
	Conversations []Conversation `json:"conversations"`
	Messages      []ChatMessage  `json:"messages"`
	Errors        []string       `json:"errors"`
	Warnings      []string       `json:"warnings"`
	Metadata      ImportMetadata `json:"metadata"`
}

// NewImportReport creates an empty report with initialized counters.
func NewImportReport(batchID string) *ImportReport {
	return &ImportReport{
		BatchID: batchID,
		Metadata: ImportMetadata{
			DetectedFormats: make(map[string]int),
		},
	}
}
