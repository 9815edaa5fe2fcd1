package password

import (
	"errors"
	"sync/atomic"

	"golang.org/x/crypto/bcrypt"
)

var ErrEmptyHash = errors.New("empty password hash")

var cost atomic.Int32

func init() {
	cost.Store(int32(bcrypt.DefaultCost))
}

// SetCost changes the bcrypt work factor used by Hash. Values outside the
// bcrypt range fall back to bcrypt.DefaultCost.
func SetCost(c int) {
	if c < bcrypt.MinCost || c > bcrypt.MaxCost {
		c = bcrypt.DefaultCost
	}
	cost.Store(int32(c))
}

func Hash(plain string) (string, error) {
	hashed, err := bcrypt.GenerateFromPassword([]byte(plain), int(cost.Load()))
	if err != nil {
		return "", err
	}
	return string(hashed), nil
}

// Compare returns nil only when hash is a bcrypt hash of plain. An empty
// hash never matches.
func Compare(hash, plain string) error {
	if hash == "" {
		return ErrEmptyHash
	}
	return bcrypt.CompareHashAndPassword([]byte(hash), []byte(plain))
}

func Matches(hash, plain string) bool {
	return Compare(hash, plain) == nil
}
