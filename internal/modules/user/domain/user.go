package domain

// User is the Discord user invoking a command
type User struct {
	ID       string `json:"id"`
	Username string `json:"username"`
}
