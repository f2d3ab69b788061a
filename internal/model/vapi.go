package model

// VapiAssistant is a voice assistant configured in the customer's Vapi
// account. Only the fields the dashboard displays are decoded.
type VapiAssistant struct {
	ID   string `json:"id"`
	Name string `json:"name,omitempty"`
}

// VapiPhoneNumber is a phone number provisioned in the customer's Vapi
// account.
type VapiPhoneNumber struct {
	ID     string `json:"id"`
	Number string `json:"number,omitempty"`
	Name   string `json:"name,omitempty"`
	Status string `json:"status,omitempty"`
}
