package services

import "github.com/luxurytech30-cpu/meiza-font/models"

// Shopper-facing messages. Hebrew entries left empty fall back to English.
var (
	msgFullNameRequired = models.Translated("Please enter your full name", "יש להזין שם מלא")
	msgEmailRequired    = models.Translated("Email is required", "")
	msgEmailInvalid     = models.Translated("Please enter a valid email", "")
	msgPhoneRequired    = models.Translated("Please enter your phone number", "יש להזין מספר טלפון")
	msgCityRequired     = models.Translated("Please enter your city", "יש להזין עיר")
	msgStreetRequired   = models.Translated("Please enter your street address", "יש להזין כתובת מלאה")
	msgPaymentRequired  = models.Translated("Please choose a payment method", "יש לבחור אמצעי תשלום")

	msgCardUnavailable = models.Translated(
		"Card payments are not available yet. Please choose cash on delivery.",
		"תשלום בכרטיס אשראי עדיין לא זמין. אנא בחרו תשלום במזומן בעת קבלה.",
	)
	msgCheckoutFailed = models.Translated("Failed to place order", "")
)

// fieldMessages maps a ShippingForm field and failed validator tag to its message.
var fieldMessages = map[string]map[string]models.LocalizedText{
	"fullName": {"required": msgFullNameRequired},
	"email":    {"required": msgEmailRequired, "contains": msgEmailInvalid},
	"phone":    {"required": msgPhoneRequired},
	"city":     {"required": msgCityRequired},
	"street":   {"required": msgStreetRequired},
}
