package enums

// ProductType is the closed set of purchasable product kinds. It doubles
// as the discriminator of the invoice correlation payload, so the string
// values are part of the wire contract and must stay stable.
type ProductType string

const (
	ProductTypeTerm    ProductType = "term_subscription"
	ProductTypeChannel ProductType = "channel_subscription"
)

func ParseProductType(raw string) (ProductType, bool) {
	switch ProductType(raw) {
	case ProductTypeTerm, ProductTypeChannel:
		return ProductType(raw), true
	default:
		return "", false
	}
}
