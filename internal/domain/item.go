package domain

// Item is the flat field set extracted from a single listing page.
// Nil string fields mean the corresponding node was not present.
type Item struct {
	Price             *string `json:"price"`
	Currency          *string `json:"currency"`
	Title             *string `json:"title"`
	Country           *string `json:"country"`
	Latitude          *string `json:"latitude"`
	Longitude         *string `json:"longitude"`
	Locality          *string `json:"locality"`
	Region            *string `json:"region"`
	Category          *string `json:"category"`
	Description       *string `json:"description"`
	ShippingAvailable bool    `json:"shipping_available"`
	ShippingInfo      *string `json:"shipping_info"`
	SafePayEnabled    bool    `json:"safe_pay_enabled"`
	PriceNegotiable   bool    `json:"price_negotiable"`
	ImageURL          *string `json:"image_url"`
}
