package models

// ErrorResponse is the envelope every failed request returns.
type ErrorResponse struct {
	Error   string `json:"error"`
	Details string `json:"details,omitempty"`
}
