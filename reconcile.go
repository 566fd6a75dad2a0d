package jbproducts

import (
	"context"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/Volodya262/jb-products-info/model"
)

// fetchRemoteBuilds runs one reconciliation pass over both feeds: products
// come from the data-services feed, released builds from the updates feed,
// and each build of a matched product is merged into a fresh in-memory
// aggregate. Products without a family group in the updates feed are skipped
// entirely.
func (p *ProductsInfo) fetchRemoteBuilds(ctx context.Context, releasedAfter time.Time, filterProductCode model.ProductCode) ([]model.Product, map[model.ProductCode][]*model.BuildInProcess, error) {
	productsAndReleases, err := p.releases.GetProductsAndReleases(ctx, releasedAfter, filterProductCode)
	if err != nil {
		return nil, nil, err
	}
	familyGroups, err := p.updates.GetBuilds(ctx, releasedAfter)
	if err != nil {
		return nil, nil, err
	}

	var products []model.Product
	buildsByProduct := make(map[model.ProductCode][]*model.BuildInProcess)

	for _, par := range productsAndReleases {
		group := findFamilyGroup(familyGroups, par.Product.ProductCode)
		if group == nil {
			continue
		}

		products = append(products, par.Product)
		builds := mergeFamilyBuilds(group.Builds, par.Releases, par.Product.ProductCode)
		buildsByProduct[par.Product.ProductCode] = builds
		logrus.Infof("Found %d builds for product %s", len(builds), par.Product.ProductCode)
	}

	if filterProductCode != "" && len(products) == 0 {
		return nil, nil, &model.ProductNotFoundError{ProductCode: filterProductCode}
	}
	return products, buildsByProduct, nil
}

func findFamilyGroup(groups []model.FamilyGroupBuilds, code model.ProductCode) *model.FamilyGroupBuilds {
	for i := range groups {
		if groups[i].HasProductCode(code) {
			return &groups[i]
		}
	}
	return nil
}

// mergeFamilyBuilds joins the released builds of one family group against the
// product's release download info. Every released build yields exactly one
// outcome: Created when a Linux download URL is known, FailedToConstruct
// otherwise with the reason recorded.
func mergeFamilyBuilds(familyBuilds []model.BuildInfo, releases []model.ProductRelease, productCode model.ProductCode) []*model.BuildInProcess {
	releaseByFullNumber := make(map[string]model.ProductRelease, len(releases))
	for _, release := range releases {
		releaseByFullNumber[release.BuildFullNumber] = release
	}

	builds := make([]*model.BuildInProcess, 0, len(familyBuilds))
	for _, familyBuild := range familyBuilds {
		build := model.NewBuildInProcess(productCode, familyBuild.BuildFullNumber)

		release, found := releaseByFullNumber[familyBuild.BuildFullNumber]
		switch {
		case !found:
			build.ToFailedToConstruct(model.FailedToFindAssociatedVersion)
		case release.DownloadURL == "":
			build.ToFailedToConstruct(model.NoLinuxDistribution)
		default:
			build.ToCreated(release.DownloadURL, familyBuild.ReleaseDate)
		}
		builds = append(builds, build)
	}
	return builds
}
