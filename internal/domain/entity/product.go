package entity

import "github.com/shopspring/decimal"

// Tipos de artículo del catálogo.
const (
	ProductKindProduct    = "product"
	ProductKindIngredient = "ingredient"
)

// Product es la proyección de catálogo (solo lectura para el motor): nombre, precio y unidad
// de un producto terminado o de un ingrediente. El stock vive en StockRecord.
type Product struct {
	ID    string
	Name  string
	Kind  string // product, ingredient
	Unit  string // unidades, kg, l...
	Price decimal.Decimal
}
