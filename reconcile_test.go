package jbproducts

import (
	"context"
	"net/http"
	"testing"
	"time"

	"github.com/jarcoal/httpmock"
	"github.com/stretchr/testify/assert"

	"github.com/Volodya262/jb-products-info/model"
)

func date(year int, month time.Month, day int) time.Time {
	return time.Date(year, month, day, 0, 0, 0, 0, time.UTC)
}

func TestMergeFamilyBuilds(t *testing.T) {
	familyBuilds := []model.BuildInfo{
		{ProductCode: "GO", BuildFullNumber: "231.100.50", BuildVersion: "2023.1", ReleaseDate: date(2023, 3, 1)},
		{ProductCode: "GO", BuildFullNumber: "223.50.10", BuildVersion: "2022.3.2", ReleaseDate: date(2023, 1, 10)},
		{ProductCode: "GO", BuildFullNumber: "222.1.1", BuildVersion: "2022.2", ReleaseDate: date(2022, 8, 1)},
	}
	releases := []model.ProductRelease{
		{ProductCode: "GO", BuildFullNumber: "231.100.50", ReleaseDate: date(2023, 3, 1), DownloadURL: "https://download.example.com/goland-2023.1.tar.gz"},
		{ProductCode: "GO", BuildFullNumber: "223.50.10", ReleaseDate: date(2023, 1, 10)},
	}

	builds := mergeFamilyBuilds(familyBuilds, releases, "GO")
	assert.Len(t, builds, 3)

	assert.Equal(t, model.StatusCreated, builds[0].Status())
	assert.Equal(t, "https://download.example.com/goland-2023.1.tar.gz", builds[0].DownloadURL())
	assert.Equal(t, date(2023, 3, 1), *builds[0].ReleaseDate())

	assert.Equal(t, model.StatusFailedToConstruct, builds[1].Status())
	assert.Equal(t, model.NoLinuxDistribution, builds[1].MissingURLReason())

	assert.Equal(t, model.StatusFailedToConstruct, builds[2].Status())
	assert.Equal(t, model.FailedToFindAssociatedVersion, builds[2].MissingURLReason())
}

func newTestFeedsService() *ProductsInfo {
	client := &http.Client{}
	httpmock.ActivateNonDefault(client)
	return &ProductsInfo{
		releases: &ReleasesClient{baseURL: "https://data.example.com", client: client},
		updates:  &UpdatesClient{baseURL: "https://updates.example.com", client: client},
	}
}

func TestFetchRemoteBuilds(t *testing.T) {
	service := newTestFeedsService()
	defer httpmock.DeactivateAndReset()

	httpmock.RegisterResponder("GET", "https://data.example.com/products",
		httpmock.NewStringResponder(200, dataServicesFixture))
	httpmock.RegisterResponder("GET", "https://updates.example.com/updates.xml",
		httpmock.NewStringResponder(200, updatesFixture))

	cutoff := date(2023, 1, 1)
	products, buildsByProduct, err := service.fetchRemoteBuilds(context.Background(), cutoff, "")
	assert.NoError(t, err)

	// only GoLand exists in both feeds; the legacy product has no family group
	assert.Len(t, products, 1)
	assert.Equal(t, "GO", products[0].ProductCode)

	builds := buildsByProduct["GO"]
	assert.Len(t, builds, 2)
	assert.Equal(t, model.StatusCreated, builds[0].Status())
	assert.Equal(t, model.StatusFailedToConstruct, builds[1].Status())
	assert.Equal(t, model.NoLinuxDistribution, builds[1].MissingURLReason())
}

func TestFetchRemoteBuilds_ScopedToUnknownProduct(t *testing.T) {
	service := newTestFeedsService()
	defer httpmock.DeactivateAndReset()

	httpmock.RegisterResponder("GET", "https://data.example.com/products",
		httpmock.NewStringResponder(200, dataServicesFixture))
	httpmock.RegisterResponder("GET", "https://updates.example.com/updates.xml",
		httpmock.NewStringResponder(200, updatesFixture))

	_, _, err := service.fetchRemoteBuilds(context.Background(), date(2023, 1, 1), "XX")
	var notFound *model.ProductNotFoundError
	assert.ErrorAs(t, err, &notFound)
	assert.Equal(t, model.ProductCode("XX"), notFound.ProductCode)
}
