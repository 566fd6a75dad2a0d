package api

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	jbproducts "github.com/Volodya262/jb-products-info"
	model2 "github.com/Volodya262/jb-products-info/api/model"
	"github.com/Volodya262/jb-products-info/internal/apierror"
	"github.com/Volodya262/jb-products-info/model"
)

// GetStatus returns every reconciled product with all its tracked builds.
func (a Api) GetStatus(c *gin.Context) {
	products, err := a.info.GetProducts(c.Request.Context())
	if err != nil {
		a.handleError(c, err)
		return
	}

	statuses := make([]model2.ProductStatusResponse, 0, len(products))
	for _, product := range products {
		builds, err := a.info.GetProductBuilds(c.Request.Context(), product.ProductCode)
		if err != nil {
			a.handleError(c, err)
			return
		}
		statuses = append(statuses, model2.ProductStatusResponse{
			ProductResponse: model2.ToProductResponse(product),
			Builds:          model2.ToBuildResponses(builds),
		})
	}

	c.JSON(http.StatusOK, statuses)
}

// GetProductBuilds returns the builds of one product. The product code may be
// any of the product's known codes.
func (a Api) GetProductBuilds(c *gin.Context) {
	productCode, passed := c.Params.Get("productCode")
	if !passed {
		c.JSON(http.StatusBadRequest, gin.H{"error": "productCode is required. pass it in the route /products/:productCode/builds"})
		return
	}

	builds, err := a.info.GetProductBuilds(c.Request.Context(), productCode)
	if err != nil {
		a.handleError(c, err)
		return
	}

	c.JSON(http.StatusOK, model2.ToBuildResponses(builds))
}

// GetTargetFileContents returns the cached artifact of one processed build.
// The artifact itself is JSON, so it is served verbatim.
func (a Api) GetTargetFileContents(c *gin.Context) {
	productCode, passed := c.Params.Get("productCode")
	if !passed {
		c.JSON(http.StatusBadRequest, gin.H{"error": "productCode is required"})
		return
	}
	buildFullNumber, passed := c.Params.Get("buildFullNumber")
	if !passed {
		c.JSON(http.StatusBadRequest, gin.H{"error": "buildFullNumber is required"})
		return
	}

	contents, err := a.info.GetTargetFileContents(c.Request.Context(), productCode, buildFullNumber)
	if err != nil {
		a.handleError(c, err)
		return
	}

	c.Data(http.StatusOK, "application/json", []byte(contents))
}

// Refresh triggers one orchestrator cycle, optionally scoped to a product.
// Returns 409 when a cycle is already running.
func (a Api) Refresh(c *gin.Context) {
	productCode := c.Param("productCode")

	queued, err := a.info.RunExclusiveRefresh(c.Request.Context(), productCode)
	if err != nil {
		if errors.Is(err, jbproducts.ErrRefreshInProgress) {
			c.JSON(http.StatusConflict, gin.H{"error": err.Error()})
			return
		}
		a.handleError(c, err)
		return
	}

	c.JSON(http.StatusOK, model2.RefreshResponse{QueuedBuilds: model2.ToBuildResponses(queued)})
}

// handleError maps domain errors to HTTP statuses: unknown products and
// builds are 404, an artifact requested before processing finished is 412,
// anything else is 500.
func (a Api) handleError(c *gin.Context, err error) {
	var productNotFound *model.ProductNotFoundError
	var buildNotFound *model.BuildNotFoundError
	var wrongStatus *model.WrongBuildStatusError

	switch {
	case errors.As(err, &productNotFound):
		apiErr := apierror.NewAPIError(apierror.ErrNotFound, productNotFound.Error(), productNotFound.ErrorCode())
		c.JSON(apierror.MapErrorToHTTPStatus(apiErr), apiErr)
	case errors.As(err, &buildNotFound):
		apiErr := apierror.NewAPIError(apierror.ErrNotFound, buildNotFound.Error(), buildNotFound.ErrorCode())
		c.JSON(apierror.MapErrorToHTTPStatus(apiErr), apiErr)
	case errors.As(err, &wrongStatus):
		apiErr := apierror.NewAPIError(apierror.ErrPreconditionFailed, wrongStatus.Error(), wrongStatus.ErrorCode())
		c.JSON(apierror.MapErrorToHTTPStatus(apiErr), apiErr)
	default:
		apiErr := apierror.NewAPIError(apierror.ErrInternalServer, "internal server error", err.Error())
		c.JSON(apierror.MapErrorToHTTPStatus(apiErr), apiErr)
	}
}
