package domain

// Domain contains core models shared across packages.

// Order is the summary of a checkout order the application reports on.
type Order struct {
	ID        string `json:"id"`
	Reference string `json:"reference,omitempty"`
	Location  string `json:"location"`
	Status    string `json:"status,omitempty"`
}
