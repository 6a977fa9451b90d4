package domain

import (
	"time"

	"github.com/google/uuid"
)

type Product struct {
	ID        uuid.UUID `json:"id"`
	SellerID  uuid.UUID `json:"seller_id"`
	Title     string    `json:"title"`
	ImageURL  *string   `json:"image_url,omitempty"`
	Price     int64     `json:"price"`
	Currency  string    `json:"currency"`
	Status    string    `json:"status"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

const (
	ProductStatusActive   = "active"
	ProductStatusReserved = "reserved"
	ProductStatusSold     = "sold"
	ProductStatusHidden   = "hidden"
)

// Purchasable — по товару можно начать диалог только пока он продается
func (p *Product) Purchasable() bool {
	return p.Status == ProductStatusActive || p.Status == ProductStatusReserved
}

// ProductSummary — краткая карточка товара для списка диалогов
type ProductSummary struct {
	ID       uuid.UUID `json:"id"`
	Title    string    `json:"title"`
	ImageURL *string   `json:"image_url,omitempty"`
	Price    int64     `json:"price"`
	Currency string    `json:"currency"`
}

func (p *Product) Summary() ProductSummary {
	return ProductSummary{
		ID:       p.ID,
		Title:    p.Title,
		ImageURL: p.ImageURL,
		Price:    p.Price,
		Currency: p.Currency,
	}
}
