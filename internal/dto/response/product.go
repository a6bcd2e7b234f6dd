package response

import "prepaid-shop/internal/data/entity"

type ProductResponse struct {
	ID    int64  `json:"id"`
	Name  string `json:"name"`
	Price int64  `json:"price"`
}

type ProductListResponse struct {
	Items []ProductResponse `json:"items"`
}

func ProductToResponse(p *entity.Product) ProductResponse {
	return ProductResponse{
		ID:    p.ID,
		Name:  p.Name,
		Price: p.Price,
	}
}
