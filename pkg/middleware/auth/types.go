package auth

type Role struct {
	Name string `json:"name"`
}

// User is the authenticated caller carried on the request context.
type User struct {
	Username string `json:"username"`
	Org      string `json:"org,omitempty"`
	Role     Role   `json:"role"`
}

type contextKey struct{ name string }

var userCtxKey = &contextKey{"user"}
