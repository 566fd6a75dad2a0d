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

package database

import (
	"context"

	"github.com/Volodya262/jb-products-info/model"
)

// IDataSource defines the interface for data source operations, grouping related functionalities.
type IDataSource interface {
	build   // Interface for build aggregate persistence
	product // Interface for product projection persistence
}

// build defines methods for persisting and reconstructing build aggregates.
type build interface {
	GetAllBuilds(ctx context.Context) ([]*model.BuildInProcess, error)                           // Reconstructs every stored aggregate from its events
	GetBuild(ctx context.Context, productCode, buildFullNumber string) (*model.BuildInProcess, error) // Reconstructs one aggregate; BuildNotFoundError when no events exist
	SaveNewBuilds(ctx context.Context, builds []*model.BuildInProcess) error                     // Upserts summary rows and appends pending events atomically
	SaveBuildEvents(ctx context.Context, build *model.BuildInProcess) error                      // Appends one aggregate's pending events atomically
	DeleteAllBuilds(ctx context.Context) error                                                   // Full reset, used by tests
}

// product defines methods for the product projection.
type product interface {
	UpdateLocalProducts(ctx context.Context, products []model.Product) error // Upserts products, alternative codes and a check-history entry
	GetProducts(ctx context.Context) ([]model.LocalProduct, error)           // Lists products with alternative codes and last update time
	ResolveProductCode(ctx context.Context, code model.ProductCode) (model.ProductCode, error) // Maps an alternative code to its canonical code
	DeleteAllProducts(ctx context.Context) error                             // Full reset, used by tests
}
