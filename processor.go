package jbproducts

import (
	"context"
	"fmt"
	"os"

	"github.com/sirupsen/logrus"

	"github.com/Volodya262/jb-products-info/config"
	"github.com/Volodya262/jb-products-info/model"
)

// ProcessBuild handles one delivered task. It returns whether the task should
// be acknowledged: true on success and on non-retryable failures, false when
// the failure is transient and the queue should redeliver.
//
// Delivery is at least once and two deliveries of the same key may race. The
// initial status check and the final re-read guard against that instead of a
// distributed lock: a duplicate sees a non-Queued status and acks, a
// superseded run fails with a results-not-actual reason.
func (p *ProductsInfo) ProcessBuild(ctx context.Context, productCode model.ProductCode, buildFullNumber string) (bool, error) {
	logrus.Infof("Preparing to process build (productCode: %s, buildFullNumber: %s)", productCode, buildFullNumber)

	build, err := p.datasource.GetBuild(ctx, productCode, buildFullNumber)
	if err != nil {
		return false, err
	}

	if build.Status() != model.StatusQueued {
		logrus.Infof("Skipping build. Expected %s but got %s. %s", model.StatusQueued, build.Status(), build)
		return true, nil
	}

	build.ToProcessing()
	if err := p.saveEvents(ctx, build); err != nil {
		return false, err
	}

	targetFileContents, processingErr := p.runProcessing(ctx, build)
	if processingErr != nil {
		logrus.Errorf("Failed to process build %s: %v", build, processingErr)
		build.ToFailedToProcess(processingErr.Reason)
		if err := p.saveEvents(ctx, build); err != nil {
			return false, err
		}
		SendWebhook(build)
		return !processingErr.ShouldRetry(), nil
	}

	build.ToProcessed(targetFileContents)
	if err := p.saveEvents(ctx, build); err != nil {
		return false, err
	}
	logrus.Infof("Build processed. %s", build)
	return true, nil
}

// runProcessing downloads the distribution, extracts the target artifact and
// re-checks that this attempt is still the current one. Every failure comes
// back classified as a ProcessingError.
func (p *ProductsInfo) runProcessing(ctx context.Context, build *model.BuildInProcess) (string, *model.ProcessingError) {
	cfg, err := config.Fetch()
	if err != nil {
		return "", &model.ProcessingError{Reason: model.ReasonInternalError, Message: err.Error()}
	}

	logrus.Infof("Started processing build %s", build)

	tempFile, err := os.CreateTemp("", fmt.Sprintf("download-%s-%s-*.tar.gz", build.ProductCode, build.BuildFullNumber))
	if err != nil {
		return "", &model.ProcessingError{Reason: model.ReasonIOError, Message: err.Error()}
	}
	defer func() {
		tempFile.Close()
		if err := os.Remove(tempFile.Name()); err != nil {
			logrus.Errorf("Failed to delete temp file %s: %v", tempFile.Name(), err)
		}
	}()

	if err := p.downloader.DownloadDistribution(ctx, build, tempFile); err != nil {
		return "", classifyProcessingError(err)
	}
	if _, err := tempFile.Seek(0, 0); err != nil {
		return "", &model.ProcessingError{Reason: model.ReasonIOError, Message: err.Error()}
	}

	targetFileContents, err := findFileContentsInTarGz(tempFile, cfg.Processing.TargetFileName, build)
	if err != nil {
		return "", classifyProcessingError(err)
	}
	logrus.Infof("Found file contents for build %s", build)

	// The download can take many minutes. Another cycle may have expired and
	// requeued this build meanwhile, making these results stale.
	storedBuild, err := p.datasource.GetBuild(ctx, build.ProductCode, build.BuildFullNumber)
	if err != nil {
		return "", classifyProcessingError(err)
	}
	if storedBuild.Status() != model.StatusProcessing {
		return "", model.NewResultsNotActualError(storedBuild)
	}

	return targetFileContents, nil
}

func classifyProcessingError(err error) *model.ProcessingError {
	if processingErr, ok := err.(*model.ProcessingError); ok {
		return processingErr
	}
	return &model.ProcessingError{Reason: model.ReasonInternalError, Message: err.Error()}
}

func (p *ProductsInfo) saveEvents(ctx context.Context, build *model.BuildInProcess) error {
	if err := p.datasource.SaveBuildEvents(ctx, build); err != nil {
		return err
	}
	build.ApplyEventsSaved()
	return nil
}
