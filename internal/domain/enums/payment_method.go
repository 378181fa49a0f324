package enums

type PaymentMethod string

const (
	PaymentMethodNone  PaymentMethod = "none"
	PaymentMethodStars PaymentMethod = "telegram_stars"
	PaymentMethodCard  PaymentMethod = "bank_card"
	PaymentMethodGift  PaymentMethod = "gift"
)
