package model

import "time"

// BuildEventType identifies the kind of lifecycle event recorded for a build.
type BuildEventType string

const (
	EventBuildCreated            BuildEventType = "BUILD_CREATED"
	EventBuildFailedToConstruct  BuildEventType = "BUILD_FAILED_TO_CONSTRUCT"
	EventBuildQueued             BuildEventType = "BUILD_QUEUED"
	EventBuildProcessing         BuildEventType = "BUILD_PROCESSING"
	EventBuildProcessed          BuildEventType = "BUILD_PROCESSED"
	EventBuildFailedToProcess    BuildEventType = "BUILD_FAILED_TO_PROCESS"
	EventBuildExpired            BuildEventType = "BUILD_EXPIRED"
	EventBuildDownloadURLUpdated BuildEventType = "BUILD_DOWNLOAD_URL_UPDATED"
)

// BuildEvent is one immutable entry in a build's lifecycle history. Events are
// stored as JSONB rows keyed by (product_code, build_full_number, event_number);
// only the fields relevant to the event type carry values.
type BuildEvent struct {
	EventNumber           int                   `json:"event_number"`
	CreatedAt             time.Time             `json:"created_at"`
	Type                  BuildEventType        `json:"type"`
	DownloadURL           string                `json:"download_url,omitempty"`
	ReleaseDate           *time.Time            `json:"release_date,omitempty"`
	MissingURLReason      MissingURLReason      `json:"missing_url_reason,omitempty"`
	TargetFileContents    string                `json:"target_file_contents,omitempty"`
	FailedToProcessReason FailedToProcessReason `json:"failed_to_process_reason,omitempty"`
}
