package jbproducts

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"

	"github.com/Volodya262/jb-products-info/database/mocks"
	"github.com/Volodya262/jb-products-info/model"
)

func newReadFixture() (*ProductsInfo, *mocks.MockDataSource) {
	datasource := new(mocks.MockDataSource)
	return &ProductsInfo{datasource: datasource}, datasource
}

func TestGetProductBuilds_ResolvesAlternativeCode(t *testing.T) {
	service, datasource := newReadFixture()

	golandBuild := newQueuedBuild()
	otherBuild := model.NewBuildInProcess("CL", "231.5.5")
	otherBuild.ToQueued()

	datasource.On("ResolveProductCode", mock.Anything, "GOL").Return("GO", nil)
	datasource.On("GetAllBuilds", mock.Anything).Return([]*model.BuildInProcess{golandBuild, otherBuild}, nil)

	builds, err := service.GetProductBuilds(context.Background(), "GOL")
	assert.NoError(t, err)
	assert.Len(t, builds, 1)
	assert.Equal(t, "GO", builds[0].ProductCode)
}

func TestGetProductBuilds_UnknownProduct(t *testing.T) {
	service, datasource := newReadFixture()

	datasource.On("ResolveProductCode", mock.Anything, "XX").Return("XX", nil)
	datasource.On("GetAllBuilds", mock.Anything).Return([]*model.BuildInProcess{}, nil)
	datasource.On("GetProducts", mock.Anything).Return([]model.LocalProduct{
		{ProductCode: "GO", ProductName: "GoLand", LastUpdate: time.Now()},
	}, nil)

	_, err := service.GetProductBuilds(context.Background(), "XX")
	var notFound *model.ProductNotFoundError
	assert.ErrorAs(t, err, &notFound)
}

func TestGetProductBuilds_KnownProductWithoutBuilds(t *testing.T) {
	service, datasource := newReadFixture()

	datasource.On("ResolveProductCode", mock.Anything, "GO").Return("GO", nil)
	datasource.On("GetAllBuilds", mock.Anything).Return([]*model.BuildInProcess{}, nil)
	datasource.On("GetProducts", mock.Anything).Return([]model.LocalProduct{
		{ProductCode: "GO", ProductName: "GoLand", LastUpdate: time.Now()},
	}, nil)

	builds, err := service.GetProductBuilds(context.Background(), "GO")
	assert.NoError(t, err)
	assert.Empty(t, builds)
}

func TestGetTargetFileContents(t *testing.T) {
	service, datasource := newReadFixture()

	build := newQueuedBuild()
	build.ToProcessing()
	build.ToProcessed(`{"name": "GoLand"}`)

	datasource.On("ResolveProductCode", mock.Anything, "GO").Return("GO", nil)
	datasource.On("GetBuild", mock.Anything, "GO", "231.100.50").Return(build, nil)

	contents, err := service.GetTargetFileContents(context.Background(), "GO", "231.100.50")
	assert.NoError(t, err)
	assert.Equal(t, `{"name": "GoLand"}`, contents)
}

func TestGetTargetFileContents_WrongStatus(t *testing.T) {
	service, datasource := newReadFixture()

	build := newQueuedBuild()

	datasource.On("ResolveProductCode", mock.Anything, "GO").Return("GO", nil)
	datasource.On("GetBuild", mock.Anything, "GO", "231.100.50").Return(build, nil)

	_, err := service.GetTargetFileContents(context.Background(), "GO", "231.100.50")
	var wrongStatus *model.WrongBuildStatusError
	assert.ErrorAs(t, err, &wrongStatus)
	assert.Equal(t, model.StatusQueued, wrongStatus.Status)
}
