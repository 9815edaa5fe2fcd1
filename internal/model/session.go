package model

type SessionPrincipal struct {
	AccountID string   `json:"account_id"`
	Email     string   `json:"email"`
	Role      Role     `json:"role"`
	Provider  Provider `json:"provider"`
	IssuedAt  int64    `json:"issued_at"`
}
