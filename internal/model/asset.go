package model

// Asset is an intellectual-property record, optionally linked to an owner.
type Asset struct {
	ID          string  `json:"id"`
	CreatedAt   string  `json:"created_at"`
	Title       string  `json:"title"`
	AssetType   string  `json:"asset_type"`
	Status      string  `json:"status"`
	RegNo       string  `json:"reg_no"`
	OwnerID     *string `json:"owner_id"`
	OwnerName   string  `json:"owner_name"`
	Description string  `json:"description"`
}

// AssetInput is the asset create form. A nil OwnerID is sent as JSON null,
// which the backend reads as "unlinked".
type AssetInput struct {
	OwnerID            *string `json:"owner_id"`
	Title              string  `json:"title"`
	AssetType          string  `json:"asset_type"`
	Jurisdictions      string  `json:"jurisdictions"`
	RegNo              string  `json:"reg_no"`
	Status             string  `json:"status"`
	PriorityDate       string  `json:"priority_date"`
	Inventors          string  `json:"inventors"`
	CurrentOwnerEntity string  `json:"current_owner_entity"`
	Encumbrances       string  `json:"encumbrances"`
	Description        string  `json:"description"`
	Targets            string  `json:"targets"`
}
