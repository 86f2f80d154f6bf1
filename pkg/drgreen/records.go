package drgreen

import (
	"strings"

	"github.com/shopspring/decimal"

	"github.com/angelmondragon/greengate/pkg/types"
)

// ClientRecord is the subset of an upstream client the gateway mirrors.
type ClientRecord struct {
	ID            string                 `json:"id"`
	ClientID      string                 `json:"clientId"`
	Email         string                 `json:"email"`
	FirstName     string                 `json:"firstName"`
	LastName      string                 `json:"lastName"`
	IsKYCVerified bool                   `json:"isKYCVerified"`
	AdminApproval string                 `json:"adminApproval"`
	KYCLink       string                 `json:"kycLink"`
	IsActive      *bool                  `json:"isActive"`
	Shipping      *types.ShippingAddress `json:"shipping"`
}

// UpstreamID returns the client id regardless of which field carried it.
func (c ClientRecord) UpstreamID() string {
	if id := strings.TrimSpace(c.ClientID); id != "" {
		return id
	}
	return strings.TrimSpace(c.ID)
}

// CountryCode reads the alpha-3 country from the shipping snapshot.
func (c ClientRecord) CountryCode() string {
	if c.Shipping == nil {
		return ""
	}
	return strings.ToUpper(strings.TrimSpace(c.Shipping.CountryCode))
}

// OrderLine is one upstream order line.
type OrderLine struct {
	StrainID   string          `json:"strainId"`
	StrainName string          `json:"strainName"`
	Quantity   int             `json:"quantity"`
	Price      decimal.Decimal `json:"price"`
}

// OrderRecord is the subset of an upstream order the gateway mirrors.
type OrderRecord struct {
	ID            string          `json:"id"`
	OrderID       string          `json:"orderId"`
	ClientID      string          `json:"clientId"`
	Status        string          `json:"status"`
	OrderStatus   string          `json:"orderStatus"`
	PaymentStatus string          `json:"paymentStatus"`
	TotalAmount   decimal.Decimal `json:"totalAmount"`
	Currency      string          `json:"currency"`
	Lines         []OrderLine     `json:"orderLines"`
}

// UpstreamID returns the order id regardless of which field carried it.
func (o OrderRecord) UpstreamID() string {
	if id := strings.TrimSpace(o.OrderID); id != "" {
		return id
	}
	return strings.TrimSpace(o.ID)
}

// EffectiveStatus prefers orderStatus, which newer endpoints populate.
func (o OrderRecord) EffectiveStatus() string {
	if s := strings.TrimSpace(o.OrderStatus); s != "" {
		return s
	}
	return strings.TrimSpace(o.Status)
}

// Items converts upstream lines into the local item snapshot.
func (o OrderRecord) Items() types.OrderItems {
	items := make(types.OrderItems, 0, len(o.Lines))
	for _, line := range o.Lines {
		items = append(items, types.OrderItem{
			StrainID:   line.StrainID,
			StrainName: line.StrainName,
			Quantity:   line.Quantity,
			UnitPrice:  line.Price,
		})
	}
	return items
}

// StrainRecord is one upstream catalog entry.
type StrainRecord struct {
	ID          string          `json:"id"`
	Name        string          `json:"name"`
	Description string          `json:"description"`
	Type        string          `json:"type"`
	THC         *float64        `json:"thc"`
	CBD         *float64        `json:"cbd"`
	CBG         *float64        `json:"cbg"`
	RetailPrice decimal.Decimal `json:"retailPrice"`
	Stock       int             `json:"stockQuantity"`
	ImageURL    string          `json:"imageUrl"`
	Effects     []string        `json:"feelings"`
	Terpenes    []string        `json:"flavour"`
}
