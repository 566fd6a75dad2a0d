package jbproducts

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"sort"
	"time"

	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"

	"github.com/Volodya262/jb-products-info/config"
	"github.com/Volodya262/jb-products-info/model"
)

// ReleasesClient reads the data-services feed: a JSON array of products, each
// carrying its release history with per-platform download links.
type ReleasesClient struct {
	baseURL string
	client  *http.Client
}

func NewReleasesClient(conf *config.Configuration) *ReleasesClient {
	return &ReleasesClient{
		baseURL: conf.Feeds.DataServicesURL,
		client:  &http.Client{Timeout: time.Duration(conf.Feeds.TimeoutSec) * time.Second},
	}
}

type productInfoDTO struct {
	Code                string                  `json:"code"`
	IntellijProductCode string                  `json:"intellijProductCode"`
	AlternativeCodes    []string                `json:"alternativeCodes"`
	Name                string                  `json:"name"`
	Releases            []productInfoReleaseDTO `json:"releases"`
}

type productInfoReleaseDTO struct {
	Date      string `json:"date"`
	Version   string `json:"version"`
	Build     string `json:"build"`
	Downloads *struct {
		Linux *struct {
			Link string `json:"link"`
		} `json:"linux"`
	} `json:"downloads"`
}

// canonicalCode is the code builds are tracked under. The updates feed knows
// products by their IDE code, which the data-services feed exposes as
// intellijProductCode.
func (d productInfoDTO) canonicalCode() model.ProductCode {
	if d.IntellijProductCode != "" {
		return d.IntellijProductCode
	}
	return d.Code
}

// alternativeCodes is every other code the product is known by, canonical
// code excluded.
func (d productInfoDTO) alternativeCodes() []model.ProductCode {
	canonical := d.canonicalCode()
	seen := make(map[model.ProductCode]bool)
	var codes []model.ProductCode
	for _, code := range append(append([]string{}, d.AlternativeCodes...), d.Code) {
		if code == "" || code == canonical || seen[code] {
			continue
		}
		seen[code] = true
		codes = append(codes, code)
	}
	sort.Strings(codes)
	return codes
}

// matchesCode matches against the full code set, aliases included.
func (d productInfoDTO) matchesCode(code model.ProductCode) bool {
	if code == d.Code || code == d.IntellijProductCode {
		return true
	}
	for _, alternative := range d.AlternativeCodes {
		if code == alternative {
			return true
		}
	}
	return false
}

// GetProductsAndReleases fetches the feed and returns products with their
// releases. Releases without a build number or released on or before the
// cutoff are dropped. When filterProductCode is non-empty only products whose
// code set contains it are returned.
func (c *ReleasesClient) GetProductsAndReleases(ctx context.Context, releasedAfter time.Time, filterProductCode model.ProductCode) ([]model.ProductAndReleases, error) {
	url := fmt.Sprintf("%s/products", c.baseURL)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, errors.Wrap(err, "failed to build data-services request")
	}

	resp, err := c.client.Do(req)
	if err != nil {
		return nil, errors.Wrap(err, "failed to fetch data-services products")
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, errors.Errorf("data-services feed returned status %d", resp.StatusCode)
	}

	var dtos []productInfoDTO
	if err := json.NewDecoder(resp.Body).Decode(&dtos); err != nil {
		return nil, errors.Wrap(err, "failed to decode data-services products")
	}

	var result []model.ProductAndReleases
	for _, dto := range dtos {
		if filterProductCode != "" && !dto.matchesCode(filterProductCode) {
			continue
		}

		product := model.Product{
			ProductCode:      dto.canonicalCode(),
			ProductName:      dto.Name,
			AlternativeCodes: dto.alternativeCodes(),
		}

		var releases []model.ProductRelease
		for _, release := range dto.Releases {
			if release.Build == "" {
				continue
			}
			date, err := time.Parse("2006-01-02", release.Date)
			if err != nil {
				logrus.Warnf("Skipping release %s of product %s: bad date %q", release.Build, product.ProductCode, release.Date)
				continue
			}
			if !date.After(releasedAfter) {
				continue
			}

			var downloadURL string
			if release.Downloads != nil && release.Downloads.Linux != nil {
				downloadURL = release.Downloads.Linux.Link
			}
			releases = append(releases, model.ProductRelease{
				ProductCode:     product.ProductCode,
				BuildFullNumber: release.Build,
				BuildVersion:    release.Version,
				ReleaseDate:     date,
				DownloadURL:     downloadURL,
			})
		}

		result = append(result, model.ProductAndReleases{Product: product, Releases: releases})
	}
	return result, nil
}
