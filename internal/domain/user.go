package domain

// User es propiedad del sistema de identidad externo; aquí solo se lee.
type User struct {
	ID        int64  `json:"user_id"`
	Username  string `json:"username"`
	FirstName string `json:"fname,omitempty"`
	LastName  string `json:"lname,omitempty"`
	Email     string `json:"email,omitempty"`
	Phone     string `json:"phone,omitempty"`
	Photo     string `json:"photo,omitempty"`
	Bio       string `json:"bio,omitempty"`
}
