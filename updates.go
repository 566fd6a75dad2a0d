package jbproducts

import (
	"context"
	"encoding/xml"
	"fmt"
	"net/http"
	"time"

	"github.com/pkg/errors"

	"github.com/Volodya262/jb-products-info/config"
	"github.com/Volodya262/jb-products-info/model"
)

// UpdatesClient reads the updates feed: an XML document of products, each
// with one or more update channels carrying released build entries.
type UpdatesClient struct {
	baseURL string
	client  *http.Client
}

func NewUpdatesClient(conf *config.Configuration) *UpdatesClient {
	return &UpdatesClient{
		baseURL: conf.Feeds.UpdatesURL,
		client:  &http.Client{Timeout: time.Duration(conf.Feeds.TimeoutSec) * time.Second},
	}
}

type productsXML struct {
	XMLName  xml.Name     `xml:"products"`
	Products []productXML `xml:"product"`
}

type productXML struct {
	Name     string       `xml:"name,attr"`
	Codes    []string     `xml:"code"`
	Channels []channelXML `xml:"channel"`
}

type channelXML struct {
	ID     string     `xml:"id,attr"`
	Status string     `xml:"status,attr"`
	Builds []buildXML `xml:"build"`
}

type buildXML struct {
	FullNumber  string `xml:"fullNumber,attr"`
	Number      string `xml:"number,attr"`
	Version     string `xml:"version,attr"`
	ReleaseDate string `xml:"releaseDate,attr"`
}

const updatesFeedDateFormat = "20060102"

// GetBuilds fetches the feed and groups released builds by product family.
// Only channels with status "release" count; entries missing a number,
// version or release date are dropped, as are builds released on or before
// the cutoff. fullNumber falls back to number when absent.
func (c *UpdatesClient) GetBuilds(ctx context.Context, releasedAfter time.Time) ([]model.FamilyGroupBuilds, error) {
	url := fmt.Sprintf("%s/updates.xml", c.baseURL)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, errors.Wrap(err, "failed to build updates request")
	}

	resp, err := c.client.Do(req)
	if err != nil {
		return nil, errors.Wrap(err, "failed to fetch updates feed")
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, errors.Errorf("updates feed returned status %d", resp.StatusCode)
	}

	var feed productsXML
	if err := xml.NewDecoder(resp.Body).Decode(&feed); err != nil {
		return nil, errors.Wrap(err, "failed to decode updates feed")
	}

	var groups []model.FamilyGroupBuilds
	for _, product := range feed.Products {
		if len(product.Codes) == 0 {
			continue
		}
		productCode := product.Codes[0]

		var builds []model.BuildInfo
		for _, channel := range product.Channels {
			if channel.Status != "release" {
				continue
			}
			for _, build := range channel.Builds {
				fullNumber := build.FullNumber
				if fullNumber == "" {
					fullNumber = build.Number
				}
				if fullNumber == "" || build.Version == "" || build.ReleaseDate == "" {
					continue
				}
				releaseDate, err := time.Parse(updatesFeedDateFormat, build.ReleaseDate)
				if err != nil {
					continue
				}
				if !releaseDate.After(releasedAfter) {
					continue
				}
				builds = append(builds, model.BuildInfo{
					ProductCode:     productCode,
					BuildFullNumber: fullNumber,
					BuildVersion:    build.Version,
					ReleaseDate:     releaseDate,
				})
			}
		}

		groups = append(groups, model.FamilyGroupBuilds{
			RelatedProductCodes: dedupeCodes(product.Codes),
			FamilyGroupName:     product.Name,
			Builds:              builds,
		})
	}
	return groups, nil
}

func dedupeCodes(codes []string) []model.ProductCode {
	seen := make(map[string]bool, len(codes))
	result := make([]model.ProductCode, 0, len(codes))
	for _, code := range codes {
		if code == "" || seen[code] {
			continue
		}
		seen[code] = true
		result = append(result, code)
	}
	return result
}
