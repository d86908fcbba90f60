package model

// Owner is a legal entity that may be linked to one or more IP assets.
type Owner struct {
	ID           string `json:"id"`
	CreatedAt    string `json:"created_at"`
	LegalName    string `json:"legal_name"`
	EntityType   string `json:"entity_type"`
	Jurisdiction string `json:"jurisdiction"`
	Email        string `json:"email"`
	Address      string `json:"address"`
	Phone        string `json:"phone"`
}

// OwnerInput is the owner create form.
type OwnerInput struct {
	LegalName    string `json:"legal_name"`
	EntityType   string `json:"entity_type"`
	Jurisdiction string `json:"jurisdiction"`
	Email        string `json:"email"`
	Address      string `json:"address"`
	Phone        string `json:"phone"`
}
