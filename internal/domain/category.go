package domain

// CategoryLabel returns the human-readable label for a category.
func CategoryLabel(c EventCategory) string {
	switch c {
	case CategoryCard:
		return "Pago Tarjeta"
	case CategoryCredit:
		return "Crédito"
	case CategoryService:
		return "Servicio"
	case CategoryTransfer:
		return "Transferencia"
	case CategoryIncome:
		return "Ingreso"
	}
	return string(c)
}

// DirectionLabel returns the human-readable label for a direction.
func DirectionLabel(d EventDirection) string {
	if d == DirectionIncome {
		return "Ingreso"
	}
	return "Egreso"
}

// CategoryIcon returns the presentation icon identifier for a category.
// Icons are derived deterministically from the category and are not stored
// on the event itself.
func CategoryIcon(c EventCategory) string {
	switch c {
	case CategoryCard:
		return "credit_card"
	case CategoryCredit:
		return "account_balance"
	case CategoryService:
		return "receipt_long"
	case CategoryTransfer:
		return "swap_horiz"
	case CategoryIncome:
		return "payments"
	}
	return "credit_card"
}
