package database

import (
	"context"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"

	"github.com/Volodya262/jb-products-info/model"
)

func TestUpdateLocalProducts_UpsertsProductsCodesAndHistory(t *testing.T) {
	db, mock, err := sqlmock.New()
	assert.NoError(t, err)
	defer db.Close()

	ds := Datasource{Conn: db}

	products := []model.Product{
		{ProductCode: "CL", ProductName: "CLion", AlternativeCodes: []model.ProductCode{"CLN"}},
		{ProductCode: "GO", ProductName: "GoLand"},
	}

	mock.ExpectBegin()
	mock.ExpectExec("INSERT INTO product ").
		WithArgs("CL", "CLion").
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec("INSERT INTO product_alternative_code").
		WithArgs("CLN", "CL").
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec("INSERT INTO product_update_history").
		WithArgs("CL", sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec("INSERT INTO product ").
		WithArgs("GO", "GoLand").
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec("INSERT INTO product_update_history").
		WithArgs("GO", sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()

	err = ds.UpdateLocalProducts(context.Background(), products)
	assert.NoError(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestUpdateLocalProducts_RollsBackOnFailure(t *testing.T) {
	db, mock, err := sqlmock.New()
	assert.NoError(t, err)
	defer db.Close()

	ds := Datasource{Conn: db}

	mock.ExpectBegin()
	mock.ExpectExec("INSERT INTO product ").
		WithArgs("CL", "CLion").
		WillReturnError(assert.AnError)
	mock.ExpectRollback()

	err = ds.UpdateLocalProducts(context.Background(), []model.Product{{ProductCode: "CL", ProductName: "CLion"}})
	assert.Error(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestGetProducts_MergesAlternativeCodes(t *testing.T) {
	db, mock, err := sqlmock.New()
	assert.NoError(t, err)
	defer db.Close()

	ds := Datasource{Conn: db}
	lastUpdate := time.Date(2023, 5, 1, 12, 0, 0, 0, time.UTC)

	mock.ExpectQuery("SELECT p.code, p.name, plu.last_update").
		WillReturnRows(sqlmock.NewRows([]string{"code", "name", "last_update"}).
			AddRow("CL", "CLion", lastUpdate).
			AddRow("GO", "GoLand", lastUpdate))
	mock.ExpectQuery("SELECT alternative_code, primary_code").
		WillReturnRows(sqlmock.NewRows([]string{"alternative_code", "primary_code"}).
			AddRow("CLN", "CL"))

	products, err := ds.GetProducts(context.Background())
	assert.NoError(t, err)
	assert.Len(t, products, 2)

	byCode := make(map[model.ProductCode]model.LocalProduct)
	for _, p := range products {
		byCode[p.ProductCode] = p
	}
	assert.Equal(t, []model.ProductCode{"CLN"}, byCode["CL"].AlternativeCodes)
	assert.Empty(t, byCode["GO"].AlternativeCodes)
	assert.Equal(t, lastUpdate, byCode["CL"].LastUpdate)
}

func TestResolveProductCode(t *testing.T) {
	db, mock, err := sqlmock.New()
	assert.NoError(t, err)
	defer db.Close()

	ds := Datasource{Conn: db}

	mock.ExpectQuery("SELECT primary_code").
		WithArgs("CLN").
		WillReturnRows(sqlmock.NewRows([]string{"primary_code"}).AddRow("CL"))

	resolved, err := ds.ResolveProductCode(context.Background(), "CLN")
	assert.NoError(t, err)
	assert.Equal(t, model.ProductCode("CL"), resolved)

	mock.ExpectQuery("SELECT primary_code").
		WithArgs("QQ").
		WillReturnRows(sqlmock.NewRows([]string{"primary_code"}))

	resolved, err = ds.ResolveProductCode(context.Background(), "QQ")
	assert.NoError(t, err)
	assert.Equal(t, model.ProductCode("QQ"), resolved)
}
