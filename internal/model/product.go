package model

import "time"

// Product is a catalogue entry. The checkout core only reads it, except for
// stock which is decremented when an order is placed.
type Product struct {
	ID         string    `json:"id" db:"id"`
	Name       string    `json:"name" db:"name"`
	Price      int64     `json:"price" db:"price"`
	Stock      int       `json:"stock" db:"stock"`
	CategoryID string    `json:"categoryId" db:"category_id"`
	Image      string    `json:"image,omitempty" db:"image"`
	Variants   []Variant `json:"variants,omitempty"`
	CreatedAt  time.Time `json:"createdAt" db:"created_at"`
}

// Variant is a purchasable colour/size combination of a product with its own stock.
type Variant struct {
	ID        string `json:"id" db:"id"`
	ProductID string `json:"productId" db:"product_id"`
	Name      string `json:"name" db:"name"`
	Color     string `json:"color,omitempty" db:"color"`
	Size      string `json:"size,omitempty" db:"size"`
	Price     *int64 `json:"price,omitempty" db:"price"`
	Stock     int    `json:"stock" db:"stock"`
}

// UnitPrice returns the variant price when set, otherwise the product price.
func (p *Product) UnitPrice(v *Variant) int64 {
	if v != nil && v.Price != nil {
		return *v.Price
	}
	return p.Price
}

// Variant looks up a variant of the product by id.
func (p *Product) Variant(id string) (*Variant, bool) {
	for i := range p.Variants {
		if p.Variants[i].ID == id {
			return &p.Variants[i], true
		}
	}
	return nil, false
}

// StockKey identifies a stock bucket. An empty VariantID addresses the
// product's top-level stock.
type StockKey struct {
	ProductID string `json:"productId"`
	VariantID string `json:"variantId,omitempty"`
}

func (k StockKey) String() string {
	if k.VariantID == "" {
		return k.ProductID
	}
	return k.ProductID + "/" + k.VariantID
}
