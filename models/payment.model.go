package models

// PaymentDetails is the payment step of the checkout wizard. Card data is validated for
// presence and length only and is never stored on the order.
type PaymentDetails struct {
	Method     string `json:"method"` // "card"
	CardName   string `json:"card_name"`
	CardNumber string `json:"card_number"`
	Expiry     string `json:"expiry"`
	CVV        string `json:"cvv"`
}

// ShippingDetails is the shipping step of the checkout wizard.
type ShippingDetails struct {
	FullName string `json:"full_name"`
	Email    string `json:"email"`
	Phone    string `json:"phone"`
	Street   string `json:"street"`
	City     string `json:"city"`
	State    string `json:"state"`
	ZipCode  string `json:"zipcode"`
	Country  string `json:"country"`
}

func (s ShippingDetails) Address() Address {
	return Address{
		FullName: s.FullName,
		Street:   s.Street,
		City:     s.City,
		State:    s.State,
		ZipCode:  s.ZipCode,
		Country:  s.Country,
	}
}

// OnboardingLink is returned by the payment-account onboarding endpoint.
type OnboardingLink struct {
	URL string `json:"url"`
}
