package jbproducts

import (
	"context"
	"net/http"
	"testing"

	"github.com/jarcoal/httpmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"

	"github.com/Volodya262/jb-products-info/config"
	"github.com/Volodya262/jb-products-info/database/mocks"
	"github.com/Volodya262/jb-products-info/model"
)

const distributionURL = "https://download.example.com/goland-2023.1.tar.gz"

func newQueuedBuild() *model.BuildInProcess {
	build := model.NewBuildInProcess("GO", "231.100.50")
	build.ToCreated(distributionURL, date(2023, 3, 1))
	build.ToQueued()
	build.ApplyEventsSaved()
	return build
}

func newProcessorFixture(t *testing.T) (*ProductsInfo, *mocks.MockDataSource) {
	t.Helper()
	config.MockConfig(&config.Configuration{
		Processing: config.ProcessingConfig{TargetFileName: "product-info.json"},
	})

	client := &http.Client{}
	httpmock.ActivateNonDefault(client)

	datasource := new(mocks.MockDataSource)
	service := &ProductsInfo{
		datasource: datasource,
		downloader: &DistributionDownloader{client: client},
	}
	return service, datasource
}

func TestProcessBuild_Success(t *testing.T) {
	service, datasource := newProcessorFixture(t)
	defer httpmock.DeactivateAndReset()

	archive := makeTarGz(t, map[string]string{
		"GoLand-2023.1/product-info.json": `{"name": "GoLand"}`,
	})
	httpmock.RegisterResponder("GET", distributionURL,
		httpmock.NewBytesResponder(200, archive))

	build := newQueuedBuild()
	stored := newQueuedBuild()
	stored.ToProcessing()

	datasource.On("GetBuild", mock.Anything, "GO", "231.100.50").Return(build, nil).Once()
	datasource.On("GetBuild", mock.Anything, "GO", "231.100.50").Return(stored, nil).Once()
	datasource.On("SaveBuildEvents", mock.Anything, build).Return(nil)

	ack, err := service.ProcessBuild(context.Background(), "GO", "231.100.50")
	assert.NoError(t, err)
	assert.True(t, ack)
	assert.Equal(t, model.StatusProcessed, build.Status())
	assert.Equal(t, `{"name": "GoLand"}`, build.TargetFileContents())
	assert.Empty(t, build.EventsToStore())
	datasource.AssertNumberOfCalls(t, "SaveBuildEvents", 2)
}

func TestProcessBuild_SkipsNonQueuedBuild(t *testing.T) {
	service, datasource := newProcessorFixture(t)
	defer httpmock.DeactivateAndReset()

	build := newQueuedBuild()
	build.ToProcessing()
	build.ToProcessed(`{"name": "GoLand"}`)
	build.ApplyEventsSaved()

	datasource.On("GetBuild", mock.Anything, "GO", "231.100.50").Return(build, nil).Once()

	ack, err := service.ProcessBuild(context.Background(), "GO", "231.100.50")
	assert.NoError(t, err)
	assert.True(t, ack, "duplicate delivery must be acknowledged, not retried")
	datasource.AssertNotCalled(t, "SaveBuildEvents", mock.Anything, mock.Anything)
}

func TestProcessBuild_StaleURLNotRetryable(t *testing.T) {
	service, datasource := newProcessorFixture(t)
	defer httpmock.DeactivateAndReset()

	httpmock.RegisterResponder("GET", distributionURL,
		httpmock.NewStringResponder(404, "gone"))

	build := newQueuedBuild()
	datasource.On("GetBuild", mock.Anything, "GO", "231.100.50").Return(build, nil).Once()
	datasource.On("SaveBuildEvents", mock.Anything, build).Return(nil)

	ack, err := service.ProcessBuild(context.Background(), "GO", "231.100.50")
	assert.NoError(t, err)
	assert.True(t, ack)
	assert.Equal(t, model.StatusFailedToProcess, build.Status())
	assert.Equal(t, model.ReasonDistributionNotFoundByURL, build.FailedToProcessReason())
}

func TestProcessBuild_TransientDownloadFailureRetries(t *testing.T) {
	service, datasource := newProcessorFixture(t)
	defer httpmock.DeactivateAndReset()

	httpmock.RegisterResponder("GET", distributionURL,
		httpmock.NewStringResponder(503, "unavailable"))

	build := newQueuedBuild()
	datasource.On("GetBuild", mock.Anything, "GO", "231.100.50").Return(build, nil).Once()
	datasource.On("SaveBuildEvents", mock.Anything, build).Return(nil)

	ack, err := service.ProcessBuild(context.Background(), "GO", "231.100.50")
	assert.NoError(t, err)
	assert.False(t, ack, "transient failures must be redelivered")
	assert.Equal(t, model.StatusFailedToProcess, build.Status())
	assert.Equal(t, model.ReasonDistributionDownloadError, build.FailedToProcessReason())
}

func TestProcessBuild_TargetFileMissing(t *testing.T) {
	service, datasource := newProcessorFixture(t)
	defer httpmock.DeactivateAndReset()

	archive := makeTarGz(t, map[string]string{
		"GoLand-2023.1/bin/goland.sh": "#!/bin/sh",
	})
	httpmock.RegisterResponder("GET", distributionURL,
		httpmock.NewBytesResponder(200, archive))

	build := newQueuedBuild()
	datasource.On("GetBuild", mock.Anything, "GO", "231.100.50").Return(build, nil).Once()
	datasource.On("SaveBuildEvents", mock.Anything, build).Return(nil)

	ack, err := service.ProcessBuild(context.Background(), "GO", "231.100.50")
	assert.NoError(t, err)
	assert.True(t, ack)
	assert.Equal(t, model.ReasonTargetFileNotFound, build.FailedToProcessReason())
}

func TestProcessBuild_SupersededRunFails(t *testing.T) {
	service, datasource := newProcessorFixture(t)
	defer httpmock.DeactivateAndReset()

	archive := makeTarGz(t, map[string]string{
		"GoLand-2023.1/product-info.json": `{"name": "GoLand"}`,
	})
	httpmock.RegisterResponder("GET", distributionURL,
		httpmock.NewBytesResponder(200, archive))

	build := newQueuedBuild()
	// another orchestrator cycle expired and requeued the build meanwhile
	superseded := newQueuedBuild()
	superseded.ToProcessing()
	superseded.ToExpired()
	superseded.ToQueued()

	datasource.On("GetBuild", mock.Anything, "GO", "231.100.50").Return(build, nil).Once()
	datasource.On("GetBuild", mock.Anything, "GO", "231.100.50").Return(superseded, nil).Once()
	datasource.On("SaveBuildEvents", mock.Anything, build).Return(nil)

	ack, err := service.ProcessBuild(context.Background(), "GO", "231.100.50")
	assert.NoError(t, err)
	assert.True(t, ack)
	assert.Equal(t, model.StatusFailedToProcess, build.Status())
	assert.Equal(t, model.ReasonResultsAreNotActual, build.FailedToProcessReason())
}

func TestProcessBuild_BuildMissing(t *testing.T) {
	service, datasource := newProcessorFixture(t)
	defer httpmock.DeactivateAndReset()

	datasource.On("GetBuild", mock.Anything, "GO", "999.0.0").
		Return(nil, &model.BuildNotFoundError{ProductCode: "GO", BuildFullNumber: "999.0.0"}).Once()

	_, err := service.ProcessBuild(context.Background(), "GO", "999.0.0")
	assert.Error(t, err)
}
