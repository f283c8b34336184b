package model

type Role string

const (
	RoleGuest Role = "guest"
	RoleStaff Role = "staff"
	RoleAdmin Role = "admin"
)

// Requester is the authenticated caller of an operation.
type Requester struct {
	ID   string `json:"id"`
	Role Role   `json:"role"`
}

func (r Requester) IsAdmin() bool {
	return r.Role == RoleAdmin
}

func (r Requester) Anonymous() bool {
	return r.ID == ""
}

// CanManage reports whether the requester may act on a booking owned by ownerID.
func (r Requester) CanManage(ownerID string) bool {
	return r.IsAdmin() || (!r.Anonymous() && r.ID == ownerID)
}
