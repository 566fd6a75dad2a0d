package model

import (
	"time"

	"github.com/Volodya262/jb-products-info/model"
)

// BuildResponse is the API view of one tracked build.
type BuildResponse struct {
	ProductCode           string     `json:"product_code"`
	BuildFullNumber       string     `json:"build_full_number"`
	Status                string     `json:"status"`
	DownloadURL           string     `json:"download_url,omitempty"`
	ReleaseDate           *time.Time `json:"release_date,omitempty"`
	MissingURLReason      string     `json:"missing_url_reason,omitempty"`
	FailedToProcessReason string     `json:"failed_to_process_reason,omitempty"`
	UpdatedAt             time.Time  `json:"updated_at"`
}

// ProductResponse is the API view of one reconciled product.
type ProductResponse struct {
	ProductCode      string    `json:"product_code"`
	ProductName      string    `json:"product_name"`
	AlternativeCodes []string  `json:"alternative_codes,omitempty"`
	LastUpdate       time.Time `json:"last_update"`
}

// ProductStatusResponse pairs a product with its tracked builds, used by the
// status endpoint.
type ProductStatusResponse struct {
	ProductResponse
	Builds []BuildResponse `json:"builds"`
}

// RefreshResponse reports the outcome of a manual refresh trigger.
type RefreshResponse struct {
	QueuedBuilds []BuildResponse `json:"queued_builds"`
}

func ToBuildResponse(build *model.BuildInProcess) BuildResponse {
	return BuildResponse{
		ProductCode:           build.ProductCode,
		BuildFullNumber:       build.BuildFullNumber,
		Status:                string(build.Status()),
		DownloadURL:           build.DownloadURL(),
		ReleaseDate:           build.ReleaseDate(),
		MissingURLReason:      string(build.MissingURLReason()),
		FailedToProcessReason: string(build.FailedToProcessReason()),
		UpdatedAt:             build.UpdatedAt(),
	}
}

func ToBuildResponses(builds []*model.BuildInProcess) []BuildResponse {
	responses := make([]BuildResponse, 0, len(builds))
	for _, build := range builds {
		responses = append(responses, ToBuildResponse(build))
	}
	return responses
}

func ToProductResponse(product model.LocalProduct) ProductResponse {
	return ProductResponse{
		ProductCode:      product.ProductCode,
		ProductName:      product.ProductName,
		AlternativeCodes: product.AlternativeCodes,
		LastUpdate:       product.LastUpdate,
	}
}
