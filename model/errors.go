package model

import "fmt"

// ProductNotFoundError is returned when a product-scoped query matched no
// reconciled product.
type ProductNotFoundError struct {
	ProductCode ProductCode
}

func (e *ProductNotFoundError) Error() string {
	return fmt.Sprintf("product not found by product code %s, maybe it has only old builds", e.ProductCode)
}

func (e *ProductNotFoundError) ErrorCode() string { return "ProductNotFound" }

// BuildNotFoundError is returned when no events exist for a build identity.
type BuildNotFoundError struct {
	ProductCode     ProductCode
	BuildFullNumber string
}

func (e *BuildNotFoundError) Error() string {
	return fmt.Sprintf("build not found by productCode %s and buildFullNumber %s", e.ProductCode, e.BuildFullNumber)
}

func (e *BuildNotFoundError) ErrorCode() string { return "BuildNotFound" }

// WrongBuildStatusError is returned when an operation requires a status the
// build does not have, such as fetching the artifact of an unprocessed build.
type WrongBuildStatusError struct {
	ProductCode     ProductCode
	BuildFullNumber string
	Status          BuildStatus
}

func (e *WrongBuildStatusError) Error() string {
	return fmt.Sprintf("build for productCode %s, buildFullNumber %s has status %s", e.ProductCode, e.BuildFullNumber, e.Status)
}

func (e *WrongBuildStatusError) ErrorCode() string { return "WrongBuildProcessingStatus" }

// ProcessingError is a classified build-processing failure. Every error that
// escapes a processing step is converted into exactly one ProcessingError and
// recorded as a FailedToProcess event with its reason.
type ProcessingError struct {
	Reason  FailedToProcessReason
	Message string
}

func (e *ProcessingError) Error() string { return e.Message }

func (e *ProcessingError) ErrorCode() string { return string(e.Reason) }

// ShouldRetry reports whether the queue should redeliver the task.
func (e *ProcessingError) ShouldRetry() bool { return e.Reason.ShouldRetry() }

// NewDistributionNotFoundError signals a 404 from the distribution host; the
// recorded URL is considered stale and the failure is not retryable.
func NewDistributionNotFoundError(productCode, buildFullNumber, url string) *ProcessingError {
	return &ProcessingError{
		Reason:  ReasonDistributionNotFoundByURL,
		Message: fmt.Sprintf("distribution for product %s buildFullNumber %s not found by url %s", productCode, buildFullNumber, url),
	}
}

// NewDistributionDownloadError signals a transient transport or server fault
// while downloading; the failure is retryable.
func NewDistributionDownloadError(build *BuildInProcess, detail string) *ProcessingError {
	return &ProcessingError{
		Reason:  ReasonDistributionDownloadError,
		Message: fmt.Sprintf("error occurred while downloading the distribution (%s), build: %s", detail, build),
	}
}

// NewTargetFileNotFoundError signals the archive was exhausted without the
// target artifact.
func NewTargetFileNotFoundError(targetFileName string, build *BuildInProcess) *ProcessingError {
	return &ProcessingError{
		Reason:  ReasonTargetFileNotFound,
		Message: fmt.Sprintf("file %s not found in distribution of build %s", targetFileName, build),
	}
}

// NewResultsNotActualError signals that the build left the Processing status
// while this attempt was running; a newer attempt has superseded it.
func NewResultsNotActualError(build *BuildInProcess) *ProcessingError {
	return &ProcessingError{
		Reason:  ReasonResultsAreNotActual,
		Message: fmt.Sprintf("expected Processing status, but stored build has status %s", build.Status()),
	}
}
