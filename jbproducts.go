/*
Copyright 2024 JB Products Info Authors.

Licensed under the Apache License, Version 2.0 (the "License");
you may not use this file except in compliance with the License.
You may obtain a copy of the License at

	http://www.apache.org/licenses/LICENSE-2.0

Unless required by applicable law or agreed to in writing, software
distributed under the License is distributed on an "AS IS" BASIS,
WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
See the License for the specific language governing permissions and
limitations under the License.
*/

package jbproducts

import (
	"context"
	"embed"
	"fmt"

	"github.com/redis/go-redis/v9"

	"github.com/Volodya262/jb-products-info/config"
	"github.com/Volodya262/jb-products-info/database"
	redis_db "github.com/Volodya262/jb-products-info/internal/redis-db"
	"github.com/Volodya262/jb-products-info/model"
)

//go:embed sql/*.sql
var SQLFiles embed.FS

// ProductsInfo is the main service struct. It ties the feed clients, the
// event store, the queue and the processing pipeline together.
type ProductsInfo struct {
	queue      BuildsPublisher
	redis      redis.UniversalClient
	datasource database.IDataSource
	releases   *ReleasesClient
	updates    *UpdatesClient
	downloader *DistributionDownloader
}

// NewProductsInfo initializes a new service instance around the provided
// datasource. Feed clients, Redis and the queue are built from the global
// configuration.
func NewProductsInfo(db database.IDataSource) (*ProductsInfo, error) {
	configuration, err := config.Fetch()
	if err != nil {
		return nil, err
	}
	redisClient, err := redis_db.NewRedisClient(fmt.Sprintf("redis://%s", configuration.Redis.Dns))
	if err != nil {
		return nil, err
	}
	newQueue := NewQueue(configuration)

	return NewProductsInfoWithDependencies(
		db,
		newQueue,
		redisClient.Client(),
		NewReleasesClient(configuration),
		NewUpdatesClient(configuration),
		NewDistributionDownloader(configuration),
	), nil
}

// NewProductsInfoWithDependencies wires a service instance from explicit
// dependencies. NewProductsInfo builds them from configuration; callers that
// already hold their own clients (or substitutes) use this directly.
func NewProductsInfoWithDependencies(
	db database.IDataSource,
	queue BuildsPublisher,
	redisClient redis.UniversalClient,
	releases *ReleasesClient,
	updates *UpdatesClient,
	downloader *DistributionDownloader,
) *ProductsInfo {
	return &ProductsInfo{
		queue:      queue,
		redis:      redisClient,
		datasource: db,
		releases:   releases,
		updates:    updates,
		downloader: downloader,
	}
}

// GetProducts lists every reconciled product with its alternative codes and
// last reconciliation check time.
func (p *ProductsInfo) GetProducts(ctx context.Context) ([]model.LocalProduct, error) {
	return p.datasource.GetProducts(ctx)
}

// GetProductBuilds returns every tracked build of one product. The code may
// be an alternative code; it is resolved to the canonical one first.
func (p *ProductsInfo) GetProductBuilds(ctx context.Context, code model.ProductCode) ([]*model.BuildInProcess, error) {
	resolved, err := p.datasource.ResolveProductCode(ctx, code)
	if err != nil {
		return nil, err
	}

	allBuilds, err := p.datasource.GetAllBuilds(ctx)
	if err != nil {
		return nil, err
	}

	var builds []*model.BuildInProcess
	for _, build := range allBuilds {
		if build.ProductCode == resolved {
			builds = append(builds, build)
		}
	}
	if len(builds) == 0 {
		if known, err := p.isKnownProduct(ctx, resolved); err != nil {
			return nil, err
		} else if !known {
			return nil, &model.ProductNotFoundError{ProductCode: code}
		}
	}
	return builds, nil
}

// GetTargetFileContents returns the cached artifact of one processed build.
// Returns WrongBuildStatusError when the build exists but has not reached the
// Processed status yet.
func (p *ProductsInfo) GetTargetFileContents(ctx context.Context, code model.ProductCode, buildFullNumber string) (string, error) {
	resolved, err := p.datasource.ResolveProductCode(ctx, code)
	if err != nil {
		return "", err
	}

	build, err := p.datasource.GetBuild(ctx, resolved, buildFullNumber)
	if err != nil {
		return "", err
	}
	if build.Status() != model.StatusProcessed {
		return "", &model.WrongBuildStatusError{
			ProductCode:     resolved,
			BuildFullNumber: buildFullNumber,
			Status:          build.Status(),
		}
	}
	return build.TargetFileContents(), nil
}

func (p *ProductsInfo) isKnownProduct(ctx context.Context, code model.ProductCode) (bool, error) {
	products, err := p.datasource.GetProducts(ctx)
	if err != nil {
		return false, err
	}
	for _, product := range products {
		if product.ProductCode == code {
			return true, nil
		}
	}
	return false, nil
}
