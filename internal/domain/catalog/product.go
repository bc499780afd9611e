package catalog

import (
	"strings"

	"github.com/valveaudio/backend/internal/domain/shared"
)

// Product is a catalog entry. Prices are integer VND. StockQuantity is the
// number of units available for sale; reservations and cancellations adjust
// it through the repository's atomic operations.
type Product struct {
	shared.BaseAggregateRoot
	Name          string `gorm:"type:varchar(200);not null"`
	Slug          string `gorm:"type:varchar(200);not null;uniqueIndex"`
	Description   string `gorm:"type:text"`
	Brand         string `gorm:"type:varchar(100);index"`
	Price         int64  `gorm:"not null"`
	StockQuantity int    `gorm:"not null;default:0"`
	// Reservable products may be held with a deposit instead of full payment
	Reservable bool `gorm:"not null;default:false"`
	Active     bool `gorm:"not null;default:true;index"`
}

// TableName returns the table name for GORM
func (Product) TableName() string {
	return "products"
}

// NewProduct creates a new catalog entry
func NewProduct(name, slug string, price int64) (*Product, error) {
	if name == "" {
		return nil, shared.NewDomainError("INVALID_PRODUCT_NAME", "Product name cannot be empty")
	}
	if slug == "" {
		return nil, shared.NewDomainError("INVALID_SLUG", "Product slug cannot be empty")
	}
	if price < 0 {
		return nil, shared.NewDomainError("INVALID_PRICE", "Price cannot be negative")
	}

	return &Product{
		BaseAggregateRoot: shared.NewBaseAggregateRoot(),
		Name:              name,
		Slug:              strings.ToLower(slug),
		Price:             price,
		Active:            true,
	}, nil
}

// DeductStock removes quantity from stock at order creation
func (p *Product) DeductStock(quantity int) error {
	if quantity <= 0 {
		return shared.NewDomainError("INVALID_QUANTITY", "Quantity must be positive")
	}
	if p.StockQuantity < quantity {
		return shared.ErrInsufficientStock
	}

	p.StockQuantity -= quantity
	p.Touch()

	return nil
}

// RestoreStock returns quantity to stock after cancellation or expiry
func (p *Product) RestoreStock(quantity int) error {
	if quantity <= 0 {
		return shared.NewDomainError("INVALID_QUANTITY", "Quantity must be positive")
	}

	p.StockQuantity += quantity
	p.Touch()

	return nil
}

// InStock reports whether the requested quantity is available
func (p *Product) InStock(quantity int) bool {
	return p.Active && p.StockQuantity >= quantity
}

// Deactivate hides the product from the storefront
func (p *Product) Deactivate() {
	p.Active = false
	p.Touch()
}
