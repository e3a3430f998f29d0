package http

import (
	"context"

	"strompris/internal/dataprocessing"
	"strompris/internal/services"
)

// PriceServiceInterface is the part of services.PriceService the handlers use
type PriceServiceInterface interface {
	Meta() (*services.DatasetMeta, error)
	Query(ctx context.Context, view string, req services.SelectionRequest) (*services.QueryResult, error)
	Reload(ctx context.Context, trigger string) (*dataprocessing.Dataset, error)
}

// StructValidator validates tagged request structs
type StructValidator interface {
	ValidateStruct(v interface{}) error
}
