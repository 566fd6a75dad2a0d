package api

import (
	"github.com/gin-gonic/gin"

	jbproducts "github.com/Volodya262/jb-products-info"
	"github.com/Volodya262/jb-products-info/api/middleware"
	"github.com/Volodya262/jb-products-info/config"
)

type Api struct {
	info   *jbproducts.ProductsInfo
	router *gin.Engine
}

func (a Api) Router() *gin.Engine {
	router := a.router

	router.GET("/status", a.GetStatus)
	router.GET("/products/:productCode/builds", a.GetProductBuilds)
	router.GET("/products/:productCode/builds/:buildFullNumber", a.GetTargetFileContents)

	router.POST("/refresh", a.Refresh)
	router.POST("/refresh/:productCode", a.Refresh)

	return a.router
}

func NewAPI(info *jbproducts.ProductsInfo) (*Api, error) {
	gin.SetMode(gin.ReleaseMode)
	conf, err := config.Fetch()
	if err != nil {
		return nil, err
	}
	r := gin.Default()
	r.Use(middleware.RateLimitMiddleware(conf))
	if conf.Server.Secure {
		r.Use(middleware.SecretKeyAuthMiddleware())
	}

	r.GET("/", func(c *gin.Context) {
		c.JSON(200, "server running...")
	})

	return &Api{info: info, router: r}, nil
}
