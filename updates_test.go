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

const updatesFixture = `<?xml version="1.0" encoding="UTF-8"?>
<products>
  <product name="GoLand">
    <code>GO</code>
    <channel id="GO-RELEASE" status="release">
      <build fullNumber="231.100.50" number="231.100" version="2023.1" releaseDate="20230301"/>
      <build number="223.50.10" version="2022.3.2" releaseDate="20230110"/>
      <build fullNumber="222.1.1" version="2022.2"/>
    </channel>
    <channel id="GO-EAP" status="eap">
      <build fullNumber="232.1.1" number="232.1" version="2023.2 EAP" releaseDate="20230401"/>
    </channel>
  </product>
  <product name="IntelliJ IDEA">
    <code>IC</code>
    <code>IU</code>
    <channel id="IDEA-RELEASE" status="release">
      <build fullNumber="231.200.20" number="231.200" version="2023.1" releaseDate="20230315"/>
    </channel>
  </product>
</products>`

func newTestUpdatesClient() *UpdatesClient {
	client := &http.Client{}
	httpmock.ActivateNonDefault(client)
	return &UpdatesClient{baseURL: "https://updates.example.com", client: client}
}

func TestGetBuilds(t *testing.T) {
	client := newTestUpdatesClient()
	defer httpmock.DeactivateAndReset()

	httpmock.RegisterResponder("GET", "https://updates.example.com/updates.xml",
		httpmock.NewStringResponder(200, updatesFixture))

	cutoff := time.Date(2023, 1, 1, 0, 0, 0, 0, time.UTC)
	groups, err := client.GetBuilds(context.Background(), cutoff)
	assert.NoError(t, err)
	assert.Len(t, groups, 2)

	goland := groups[0]
	assert.Equal(t, "GoLand", goland.FamilyGroupName)
	assert.Equal(t, []model.ProductCode{"GO"}, goland.RelatedProductCodes)
	// eap channel excluded, build without releaseDate dropped
	assert.Len(t, goland.Builds, 2)
	assert.Equal(t, "231.100.50", goland.Builds[0].BuildFullNumber)
	// fullNumber falls back to number
	assert.Equal(t, "223.50.10", goland.Builds[1].BuildFullNumber)
	assert.Equal(t, time.Date(2023, 1, 10, 0, 0, 0, 0, time.UTC), goland.Builds[1].ReleaseDate)

	idea := groups[1]
	assert.Equal(t, []model.ProductCode{"IC", "IU"}, idea.RelatedProductCodes)
	assert.True(t, idea.HasProductCode("IU"))
	assert.Len(t, idea.Builds, 1)
	// builds are attributed to the first declared code of the family
	assert.Equal(t, model.ProductCode("IC"), idea.Builds[0].ProductCode)
}

func TestGetBuilds_CutoffDropsOldBuilds(t *testing.T) {
	client := newTestUpdatesClient()
	defer httpmock.DeactivateAndReset()

	httpmock.RegisterResponder("GET", "https://updates.example.com/updates.xml",
		httpmock.NewStringResponder(200, updatesFixture))

	cutoff := time.Date(2023, 3, 10, 0, 0, 0, 0, time.UTC)
	groups, err := client.GetBuilds(context.Background(), cutoff)
	assert.NoError(t, err)

	assert.Empty(t, groups[0].Builds)
	assert.Len(t, groups[1].Builds, 1)
}

func TestGetBuilds_UpstreamError(t *testing.T) {
	client := newTestUpdatesClient()
	defer httpmock.DeactivateAndReset()

	httpmock.RegisterResponder("GET", "https://updates.example.com/updates.xml",
		httpmock.NewStringResponder(500, "oops"))

	_, err := client.GetBuilds(context.Background(), time.Time{})
	assert.Error(t, err)
}
