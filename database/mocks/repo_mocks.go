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
package mocks

import (
	"context"

	"github.com/Volodya262/jb-products-info/model"
	"github.com/stretchr/testify/mock"
)

// MockDataSource is a mock implementation of the IDataSource interface
type MockDataSource struct {
	mock.Mock
}

// Build methods

func (m *MockDataSource) GetAllBuilds(ctx context.Context) ([]*model.BuildInProcess, error) {
	args := m.Called(ctx)
	return args.Get(0).([]*model.BuildInProcess), args.Error(1)
}

func (m *MockDataSource) GetBuild(ctx context.Context, productCode, buildFullNumber string) (*model.BuildInProcess, error) {
	args := m.Called(ctx, productCode, buildFullNumber)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.BuildInProcess), args.Error(1)
}

func (m *MockDataSource) SaveNewBuilds(ctx context.Context, builds []*model.BuildInProcess) error {
	args := m.Called(ctx, builds)
	return args.Error(0)
}

func (m *MockDataSource) SaveBuildEvents(ctx context.Context, build *model.BuildInProcess) error {
	args := m.Called(ctx, build)
	return args.Error(0)
}

func (m *MockDataSource) DeleteAllBuilds(ctx context.Context) error {
	args := m.Called(ctx)
	return args.Error(0)
}

// Product methods

func (m *MockDataSource) UpdateLocalProducts(ctx context.Context, products []model.Product) error {
	args := m.Called(ctx, products)
	return args.Error(0)
}

func (m *MockDataSource) GetProducts(ctx context.Context) ([]model.LocalProduct, error) {
	args := m.Called(ctx)
	return args.Get(0).([]model.LocalProduct), args.Error(1)
}

func (m *MockDataSource) ResolveProductCode(ctx context.Context, code model.ProductCode) (model.ProductCode, error) {
	args := m.Called(ctx, code)
	return args.String(0), args.Error(1)
}

func (m *MockDataSource) DeleteAllProducts(ctx context.Context) error {
	args := m.Called(ctx)
	return args.Error(0)
}
