package favorites

// CreateRequest is the POST /api/favorites payload.
type CreateRequest struct {
	EntityType string `json:"entity_type" validate:"required,oneof=company person industry"`
	EntityRef  string `json:"entity_ref" validate:"required,max=64"`
}

// ListResponse wraps the favorites of one user.
type ListResponse struct {
	Items []Favorite `json:"items"`
}
