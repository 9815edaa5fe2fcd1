package model

type Purpose string

const (
	PurposeRegister Purpose = "register"
	PurposeReset    Purpose = "reset"
)

// VerificationRecord is the single live one-time code for an email. A newer
// issuance replaces it.
type VerificationRecord struct {
	Email    string  `json:"email"`
	Purpose  Purpose `json:"purpose"`
	CodeHash string  `json:"-"`
	Token    string  `json:"-"`
	IssuedAt int64   `json:"issued_at"`
}
