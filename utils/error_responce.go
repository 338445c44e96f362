package utils

// ErrorResponse is the body of every non-2xx response.
type ErrorResponse struct {
	Message string   `json:"message"`
	Error   string   `json:"error"`
	Fields  []string `json:"fields,omitempty"`
}
