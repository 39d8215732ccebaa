package models

// All lists every persisted model in dependency order, for AutoMigrate in tests and dev.
func All() []any {
	return []any{
		&User{},
		&OTPCode{},
		&Category{},
		&Product{},
		&Review{},
		&Cart{},
		&CartItem{},
		&Order{},
		&OrderItem{},
	}
}
