package proxy

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/datatypes"

	"github.com/angelmondragon/greengate/pkg/db/models"
	"github.com/angelmondragon/greengate/pkg/enums"
	"github.com/angelmondragon/greengate/pkg/types"
)

// OrderView is the JSON shape of a mirrored order.
type OrderView struct {
	ID             uuid.UUID           `json:"id"`
	ClientID       uuid.UUID           `json:"clientId"`
	DrGreenOrderID *string             `json:"drgreenOrderId"`
	Status         enums.OrderStatus   `json:"orderStatus"`
	PaymentStatus  enums.PaymentStatus `json:"paymentStatus"`
	SyncStatus     enums.SyncStatus    `json:"syncStatus"`
	SyncError      *string             `json:"syncError,omitempty"`
	Items          types.OrderItems    `json:"items"`
	TotalAmount    decimal.Decimal     `json:"totalAmount"`
	Currency       string              `json:"currency"`
	SyncedAt       *time.Time          `json:"syncedAt,omitempty"`
	CreatedAt      time.Time           `json:"createdAt"`
}

// NewOrderView renders a mirrored order.
func NewOrderView(o *models.Order) OrderView {
	return OrderView{
		ID:             o.ID,
		ClientID:       o.ClientID,
		DrGreenOrderID: o.DrGreenOrderID,
		Status:         o.Status,
		PaymentStatus:  o.PaymentStatus,
		SyncStatus:     o.SyncStatus,
		SyncError:      o.SyncError,
		Items:          o.Items,
		TotalAmount:    o.TotalAmount,
		Currency:       o.Currency,
		SyncedAt:       o.SyncedAt,
		CreatedAt:      o.CreatedAt,
	}
}

type walletView struct {
	WalletAddress string    `json:"walletAddress"`
	Email         string    `json:"email"`
	UserID        uuid.UUID `json:"userId"`
	LinkedAt      time.Time `json:"linkedAt"`
}

func newWalletView(m *models.WalletEmailMapping) walletView {
	return walletView{
		WalletAddress: m.WalletAddress,
		Email:         m.Email,
		UserID:        m.UserID,
		LinkedAt:      m.UpdatedAt,
	}
}

type journeyView struct {
	ID        uuid.UUID          `json:"id"`
	UserID    *uuid.UUID         `json:"userId,omitempty"`
	ClientID  *uuid.UUID         `json:"clientId,omitempty"`
	EventType enums.JourneyEvent `json:"eventType"`
	Action    string             `json:"action"`
	Metadata  datatypes.JSON     `json:"metadata,omitempty"`
	CreatedAt time.Time          `json:"createdAt"`
}

func newJourneyViews(rows []models.JourneyLog) []journeyView {
	out := make([]journeyView, 0, len(rows))
	for _, row := range rows {
		out = append(out, journeyView{
			ID:        row.ID,
			UserID:    row.UserID,
			ClientID:  row.ClientID,
			EventType: row.EventType,
			Action:    row.Action,
			Metadata:  row.Metadata,
			CreatedAt: row.CreatedAt,
		})
	}
	return out
}
