package models

// All lists every persisted model in dependency order.
func All() []any {
	return []any{
		&Client{},
		&Order{},
		&CartItem{},
		&Strain{},
		&WalletEmailMapping{},
		&JourneyLog{},
		&Notification{},
		&UserRole{},
	}
}
