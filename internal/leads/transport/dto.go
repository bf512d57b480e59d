package transport

import (
	"encoding/json"
	"strings"
	"time"

	"arrume_backend/platform/sanitize"
)

// Flag is a consent checkbox. It accepts JSON booleans and the usual form
// spellings ("on", "true", "1", "yes", "sim").
type Flag bool

func (f *Flag) UnmarshalJSON(data []byte) error {
	var b bool
	if err := json.Unmarshal(data, &b); err == nil {
		*f = Flag(b)
		return nil
	}
	var s string
	if err := json.Unmarshal(data, &s); err == nil {
		*f = Flag(sanitize.Checkbox(s))
		return nil
	}
	*f = Flag(sanitize.Checkbox(strings.Trim(string(data), `"`)))
	return nil
}

// FormValues reads a lead from url-encoded or multipart form fields.
func FormValues(get func(key string) string) SubmitLeadRequest {
	return SubmitLeadRequest{
		Name:            get("name"),
		Phone:           get("phone"),
		Email:           get("email"),
		PostalCode:      get("postalCode"),
		Street:          get("street"),
		Neighborhood:    get("neighborhood"),
		City:            get("city"),
		Region:          get("region"),
		ServiceKind:     get("serviceKind"),
		ConsentWhatsApp: Flag(sanitize.Checkbox(get("consentWhatsapp"))),
		ConsentSharing:  Flag(sanitize.Checkbox(get("consentSharing"))),
		ConsentUsage:    Flag(sanitize.Checkbox(get("consentUsage"))),
	}
}

// SubmitLeadRequest is the public lead form. Field rules are applied after
// normalization by the service, so nothing is validated here.
type SubmitLeadRequest struct {
	Name            string `json:"name"`
	Phone           string `json:"phone"`
	Email           string `json:"email"`
	PostalCode      string `json:"postalCode"`
	Street          string `json:"street"`
	Neighborhood    string `json:"neighborhood"`
	City            string `json:"city"`
	Region          string `json:"region"`
	ServiceKind     string `json:"serviceKind"`
	ConsentWhatsApp Flag   `json:"consentWhatsapp"`
	ConsentSharing  Flag   `json:"consentSharing"`
	ConsentUsage    Flag   `json:"consentUsage"`
}

// NotificationResponse is one delivery outcome.
type NotificationResponse struct {
	Audience  string `json:"audience"`
	Name      string `json:"name,omitempty"`
	Phone     string `json:"phone"`
	Status    string `json:"status"`
	MessageID string `json:"messageId,omitempty"`
}

// SubmitLeadResponse is returned with 201 Created.
type SubmitLeadResponse struct {
	LeadID           string                 `json:"leadId"`
	MatchedProviders int                    `json:"matchedProviders"`
	MatchedBy        string                 `json:"matchedBy"`
	Notifications    []NotificationResponse `json:"notifications"`
}

// LeadResponse is a stored lead as shown to operators.
type LeadResponse struct {
	ID           string          `json:"id"`
	Name         string          `json:"name"`
	Phone        string          `json:"phone"`
	Email        string          `json:"email"`
	PostalCode   string          `json:"postalCode"`
	Street       string          `json:"street,omitempty"`
	Neighborhood string          `json:"neighborhood,omitempty"`
	City         string          `json:"city"`
	Region       string          `json:"region,omitempty"`
	ServiceKind  string          `json:"serviceKind"`
	Consent      ConsentResponse `json:"consent"`
	CreatedAt    time.Time       `json:"createdAt"`
}

// ConsentResponse is the consent record stored with a lead.
type ConsentResponse struct {
	WhatsApp  bool      `json:"whatsapp"`
	Sharing   bool      `json:"sharing"`
	Usage     bool      `json:"usage"`
	At        time.Time `json:"at"`
	IP        string    `json:"ip,omitempty"`
	UserAgent string    `json:"userAgent,omitempty"`
	Version   string    `json:"version"`
}
