package jbproducts

import (
	"context"
	"io"
	"net/http"
	"os"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/Volodya262/jb-products-info/config"
	"github.com/Volodya262/jb-products-info/model"
)

// DistributionDownloader fetches distribution archives from the hosting CDN.
// Archives run to hundreds of megabytes, so the body is streamed straight to
// a file and never buffered in memory.
type DistributionDownloader struct {
	client *http.Client
}

func NewDistributionDownloader(conf *config.Configuration) *DistributionDownloader {
	return &DistributionDownloader{
		client: &http.Client{Timeout: time.Duration(conf.Processing.DownloadTimeoutSec) * time.Second},
	}
}

// DownloadDistribution downloads the build's distribution to dst. A 404 means
// the recorded URL went stale (not retryable); any other failure is treated
// as a transient download error.
func (d *DistributionDownloader) DownloadDistribution(ctx context.Context, build *model.BuildInProcess, dst *os.File) error {
	logrus.Infof("Started downloading file for build %s", build)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, build.DownloadURL(), nil)
	if err != nil {
		return model.NewDistributionDownloadError(build, err.Error())
	}

	resp, err := d.client.Do(req)
	if err != nil {
		logrus.Errorf("Failed to download file for build %s: %v", build, err)
		return model.NewDistributionDownloadError(build, err.Error())
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusNotFound {
		return model.NewDistributionNotFoundError(build.ProductCode, build.BuildFullNumber, build.DownloadURL())
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return model.NewDistributionDownloadError(build, resp.Status)
	}

	if _, err := io.Copy(dst, resp.Body); err != nil {
		logrus.Errorf("Failed to download file for build %s: %v", build, err)
		return model.NewDistributionDownloadError(build, err.Error())
	}

	logrus.Infof("Downloaded file for build %s", build)
	return nil
}
