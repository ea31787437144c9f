package repository

import (
	"context"

	"github.com/jhoicas/stock-control-api/internal/domain/entity"
)

// ProductRepository es el puerto de lectura del catálogo (productos e ingredientes).
type ProductRepository interface {
	GetByID(ctx context.Context, id string) (*entity.Product, error)
	GetByIDs(ctx context.Context, ids []string) (map[string]*entity.Product, error)
}
