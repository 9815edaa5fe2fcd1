package model

type Role string

const (
	RoleViewer Role = "viewer"
	RoleEditor Role = "editor"
	RoleAdmin  Role = "admin"
)

func (r Role) Valid() bool {
	switch r {
	case RoleViewer, RoleEditor, RoleAdmin:
		return true
	}
	return false
}

type Provider string

const (
	ProviderCredentials Provider = "credentials"
	ProviderFederated   Provider = "federated"
)

type Account struct {
	ID             string   `json:"id"`
	Email          string   `json:"email"`
	DisplayName    string   `json:"display_name"`
	PasswordHash   string   `json:"-"`
	Role           Role     `json:"role"`
	Provider       Provider `json:"provider"`
	VerifiedAt     int64    `json:"verified_at"`
	SessionVersion int64    `json:"-"`
	Ctime          int64    `json:"ctime"`
	Mtime          int64    `json:"mtime"`
}

func (a *Account) IsVerified() bool {
	return a != nil && a.VerifiedAt != 0
}

func (a *Account) HasPassword() bool {
	return a != nil && a.PasswordHash != ""
}
