package models

// Role is assigned by the identity provider.
type Role string

const (
	RoleUser    Role = "User"
	RoleAgent   Role = "Agent"
	RoleBuilder Role = "Builder"
	RoleAdmin   Role = "Admin"
)

// Profile mirrors the identity provider's user record. This service only reads it.
type Profile struct {
	ID       string `bson:"_id" json:"id"`
	FullName string `bson:"full_name" json:"full_name"`
	Email    string `bson:"email" json:"email"`
	Phone    string `bson:"phone,omitempty" json:"phone,omitempty"`
	Role     Role   `bson:"role" json:"role"`
}
