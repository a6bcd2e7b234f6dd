package usecase

import (
	"context"
	"strings"
	"time"

	"prepaid-shop/internal/data/entity"
	"prepaid-shop/internal/data/repository"
	"prepaid-shop/internal/dto/response"
	"prepaid-shop/pkg/utils"

	"go.uber.org/zap"
)

type ProductService interface {
	// List returns the catalog, narrowed to names containing query when set
	List(ctx context.Context, query string) (*response.ProductListResponse, error)
}

type productService struct {
	productRepo repository.ProductRepository
	timeout     time.Duration
	log         *zap.Logger
}

func NewProductService(productRepo repository.ProductRepository, config *utils.Config, log *zap.Logger) ProductService {
	return &productService{
		productRepo: productRepo,
		timeout:     config.Database.QueryTimeout,
		log:         log.With(zap.String("service", "product")),
	}
}

func (s *productService) List(ctx context.Context, query string) (*response.ProductListResponse, error) {
	ctx, cancel := withTimeout(ctx, s.timeout)
	defer cancel()

	products, err := s.productRepo.FindAll(ctx)
	if err != nil {
		s.log.Error("Failed to list products", zap.Error(err))
		return nil, classifyStoreError("list products", err)
	}

	filtered := FilterProducts(products, query)

	items := make([]response.ProductResponse, len(filtered))
	for i, p := range filtered {
		items[i] = response.ProductToResponse(p)
	}

	return &response.ProductListResponse{Items: items}, nil
}

// FilterProducts keeps products whose name contains query, ignoring case.
// Order is preserved.
func FilterProducts(products []*entity.Product, query string) []*entity.Product {
	query = strings.TrimSpace(query)
	if query == "" {
		return products
	}

	var out []*entity.Product
	for _, p := range products {
		if utils.ContainsFold(p.Name, query) {
			out = append(out, p)
		}
	}
	return out
}
