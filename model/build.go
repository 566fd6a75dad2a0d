package model

import (
	"fmt"
	"sort"
	"time"
)

// BuildStatus represents the lifecycle status of a build, derived entirely
// from the build's event history.
type BuildStatus string

const (
	StatusEmpty              BuildStatus = "EMPTY"
	StatusCreated            BuildStatus = "CREATED"
	StatusFailedToConstruct  BuildStatus = "FAILED_TO_CONSTRUCT"
	StatusQueued             BuildStatus = "QUEUED"
	StatusProcessing         BuildStatus = "PROCESSING"
	StatusProcessed          BuildStatus = "PROCESSED"
	StatusFailedToProcess    BuildStatus = "FAILED_TO_PROCESS"
	StatusExpired            BuildStatus = "EXPIRED"
	StatusDownloadURLUpdated BuildStatus = "DOWNLOAD_URL_UPDATED"
)

// MissingURLReason records why a build could not be constructed with a
// usable download URL.
type MissingURLReason string

const (
	FailedToFindAssociatedVersion MissingURLReason = "FAILED_TO_FIND_ASSOCIATED_VERSION"
	NoLinuxDistribution           MissingURLReason = "NO_LINUX_DISTRIBUTION"
)

// FailedToProcessReason classifies a processing failure and drives the
// queue's acknowledge-vs-redeliver decision.
type FailedToProcessReason string

const (
	ReasonTargetFileNotFound        FailedToProcessReason = "TARGET_FILE_NOT_FOUND"
	ReasonDistributionNotFoundByURL FailedToProcessReason = "DISTRIBUTION_NOT_FOUND_BY_URL"
	ReasonDistributionDownloadError FailedToProcessReason = "DISTRIBUTION_DOWNLOAD_ERROR"
	ReasonResultsAreNotActual       FailedToProcessReason = "BUILD_PROCESS_RESULTS_ARE_NOT_ACTUAL"
	ReasonIOError                   FailedToProcessReason = "IO_ERROR"
	ReasonInternalError             FailedToProcessReason = "INTERNAL_ERROR"
)

// ShouldRetry reports whether a failure with this reason is transient and the
// build is worth another processing attempt.
func (r FailedToProcessReason) ShouldRetry() bool {
	switch r {
	case ReasonDistributionDownloadError, ReasonIOError:
		return true
	default:
		return false
	}
}

// BuildInProcessExpireParams holds the staleness thresholds that control
// re-queueing of builds stuck in non-terminal statuses.
type BuildInProcessExpireParams struct {
	QueuedExpireMinutes          int
	ProcessingExpireMinutes      int
	FailedToProcessExpireMinutes int
}

// BuildInProcess is the event-sourced aggregate for one build of one product.
// Its observable state is a pure fold over its ordered event history; fields
// are only ever assigned inside apply. The (ProductCode, BuildFullNumber)
// pair is the immutable identity.
type BuildInProcess struct {
	ProductCode     string
	BuildFullNumber string

	events        []BuildEvent // already persisted
	eventsToStore []BuildEvent // pending, not yet persisted

	status                BuildStatus
	downloadURL           string
	missingURLReason      MissingURLReason
	releaseDate           *time.Time
	targetFileContents    string
	failedToProcessReason FailedToProcessReason
	updatedAt             time.Time

	clock func() time.Time
}

// NewBuildInProcess returns a fresh aggregate in the Empty status.
func NewBuildInProcess(productCode, buildFullNumber string) *BuildInProcess {
	return &BuildInProcess{
		ProductCode:     productCode,
		BuildFullNumber: buildFullNumber,
		status:          StatusEmpty,
		clock:           time.Now,
	}
}

// NewBuildInProcessWithClock is NewBuildInProcess with an injectable clock,
// used by tests that need deterministic event timestamps.
func NewBuildInProcessWithClock(productCode, buildFullNumber string, clock func() time.Time) *BuildInProcess {
	b := NewBuildInProcess(productCode, buildFullNumber)
	b.clock = clock
	return b
}

// BuildInProcessFromEvents reconstructs an aggregate by folding its stored
// events. Storage order is not guaranteed, so events are sorted by event
// number before replay.
func BuildInProcessFromEvents(productCode, buildFullNumber string, events []BuildEvent) *BuildInProcess {
	b := NewBuildInProcess(productCode, buildFullNumber)
	sorted := make([]BuildEvent, len(events))
	copy(sorted, events)
	sort.Slice(sorted, func(i, j int) bool {
		return sorted[i].EventNumber < sorted[j].EventNumber
	})
	b.events = sorted
	for _, event := range sorted {
		b.apply(event)
	}
	return b
}

// ID returns the identity key used for de-duplication and queue task keys.
func (b *BuildInProcess) ID() string {
	return fmt.Sprintf("%s:%s", b.ProductCode, b.BuildFullNumber)
}

func (b *BuildInProcess) Status() BuildStatus                        { return b.status }
func (b *BuildInProcess) DownloadURL() string                        { return b.downloadURL }
func (b *BuildInProcess) MissingURLReason() MissingURLReason         { return b.missingURLReason }
func (b *BuildInProcess) ReleaseDate() *time.Time                    { return b.releaseDate }
func (b *BuildInProcess) TargetFileContents() string                 { return b.targetFileContents }
func (b *BuildInProcess) FailedToProcessReason() FailedToProcessReason {
	return b.failedToProcessReason
}
func (b *BuildInProcess) UpdatedAt() time.Time { return b.updatedAt }

// Events returns the already-persisted event history.
func (b *BuildInProcess) Events() []BuildEvent { return b.events }

// EventsToStore returns pending events that have not been persisted yet.
func (b *BuildInProcess) EventsToStore() []BuildEvent { return b.eventsToStore }

// AllEvents returns persisted followed by pending events.
func (b *BuildInProcess) AllEvents() []BuildEvent {
	all := make([]BuildEvent, 0, len(b.events)+len(b.eventsToStore))
	all = append(all, b.events...)
	all = append(all, b.eventsToStore...)
	return all
}

// ApplyEventsSaved marks all pending events as persisted, without renumbering.
func (b *BuildInProcess) ApplyEventsSaved() {
	b.events = append(b.events, b.eventsToStore...)
	b.eventsToStore = nil
}

func (b *BuildInProcess) nextEventNumber() int {
	return len(b.events) + len(b.eventsToStore)
}

// ShouldRequeue reports whether the orchestrator should expire and re-queue
// this build given the current wall-clock time. FailedToConstruct builds are
// never re-queued automatically: only a download URL observed in a later
// reconciliation revives them.
func (b *BuildInProcess) ShouldRequeue(params BuildInProcessExpireParams) bool {
	switch b.status {
	case StatusEmpty, StatusCreated:
		return true
	case StatusFailedToConstruct:
		return false
	case StatusDownloadURLUpdated, StatusQueued:
		return b.expired(params.QueuedExpireMinutes)
	case StatusProcessing:
		return b.expired(params.ProcessingExpireMinutes)
	case StatusProcessed:
		return false
	case StatusFailedToProcess:
		return b.failedToProcessReason.ShouldRetry() && b.expired(params.FailedToProcessExpireMinutes)
	case StatusExpired:
		return false
	default:
		return false
	}
}

func (b *BuildInProcess) expired(minutes int) bool {
	return b.clock().Sub(b.updatedAt) > time.Duration(minutes)*time.Minute
}

// ToCreated records a normal construction outcome with a usable download URL.
func (b *BuildInProcess) ToCreated(downloadURL string, releaseDate time.Time) {
	b.applyNew(BuildEvent{
		Type:        EventBuildCreated,
		DownloadURL: downloadURL,
		ReleaseDate: &releaseDate,
	})
}

// ToFailedToConstruct records that reconciliation could not produce a usable build.
func (b *BuildInProcess) ToFailedToConstruct(reason MissingURLReason) {
	b.applyNew(BuildEvent{
		Type:             EventBuildFailedToConstruct,
		MissingURLReason: reason,
	})
}

// ToQueued records the orchestrator's decision to publish this build for processing.
func (b *BuildInProcess) ToQueued() {
	b.applyNew(BuildEvent{Type: EventBuildQueued})
}

// ToExpired marks a stale attempt as abandoned so a fresh cycle can re-queue it.
func (b *BuildInProcess) ToExpired() {
	b.applyNew(BuildEvent{Type: EventBuildExpired})
}

// ToDownloadURLUpdated revives a FailedToConstruct build whose download URL
// became available in a later reconciliation, preserving prior history.
func (b *BuildInProcess) ToDownloadURLUpdated(downloadURL string) {
	b.applyNew(BuildEvent{
		Type:        EventBuildDownloadURLUpdated,
		DownloadURL: downloadURL,
	})
}

// ToProcessing records that a worker claimed the task.
func (b *BuildInProcess) ToProcessing() {
	b.applyNew(BuildEvent{Type: EventBuildProcessing})
}

// ToProcessed records terminal success with the extracted artifact contents.
func (b *BuildInProcess) ToProcessed(targetFileContents string) {
	b.applyNew(BuildEvent{
		Type:               EventBuildProcessed,
		TargetFileContents: targetFileContents,
	})
}

// ToFailedToProcess records a classified processing failure.
func (b *BuildInProcess) ToFailedToProcess(reason FailedToProcessReason) {
	b.applyNew(BuildEvent{
		Type:                  EventBuildFailedToProcess,
		FailedToProcessReason: reason,
	})
}

func (b *BuildInProcess) applyNew(event BuildEvent) {
	event.EventNumber = b.nextEventNumber()
	event.CreatedAt = b.clock()
	b.eventsToStore = append(b.eventsToStore, event)
	b.apply(event)
}

// apply is the single fold step. Every state field of the aggregate is
// assigned here and nowhere else.
func (b *BuildInProcess) apply(event BuildEvent) {
	b.updatedAt = event.CreatedAt

	switch event.Type {
	case EventBuildCreated:
		b.status = StatusCreated
		b.downloadURL = event.DownloadURL
		b.releaseDate = event.ReleaseDate
	case EventBuildFailedToConstruct:
		b.status = StatusFailedToConstruct
		b.missingURLReason = event.MissingURLReason
	case EventBuildQueued:
		b.status = StatusQueued
	case EventBuildProcessing:
		b.status = StatusProcessing
	case EventBuildProcessed:
		b.status = StatusProcessed
		b.targetFileContents = event.TargetFileContents
	case EventBuildFailedToProcess:
		b.status = StatusFailedToProcess
		b.failedToProcessReason = event.FailedToProcessReason
	case EventBuildExpired:
		b.status = StatusExpired
	case EventBuildDownloadURLUpdated:
		b.status = StatusDownloadURLUpdated
		b.downloadURL = event.DownloadURL
		b.missingURLReason = ""
	}
}

func (b *BuildInProcess) String() string {
	return fmt.Sprintf("BuildInProcess(productCode=%s, buildFullNumber=%s, status=%s, updatedAt=%s)",
		b.ProductCode, b.BuildFullNumber, b.status, b.updatedAt.Format(time.RFC3339))
}
