package jwt

type UserType string

const (
	Customer UserType = "customer"
	Agent    UserType = "agent"
	Admin    UserType = "admin"
)

// User is the identity carried by a relay token. ID is filled from whichever
// of id, agentId, adminId or customerId the issuer set.
type User struct {
	Type         UserType `json:"type"`
	ID           string   `json:"id"`
	Name         string   `json:"name,omitempty"`
	Email        string   `json:"email,omitempty"`
	DepartmentID string   `json:"departmentId,omitempty"`
}
