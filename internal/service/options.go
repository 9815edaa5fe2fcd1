package service

import (
	"context"
	"crypto/rand"
	"fmt"
	"math/big"

	"github.com/xxxsen/idgate/internal/pkg/timeutil"
)

type CodeGenerator func(ctx context.Context) (string, error)

type options struct {
	clock   timeutil.Clock
	genCode CodeGenerator
}

type Option func(*options)

func WithClock(c timeutil.Clock) Option {
	return func(o *options) {
		o.clock = c
	}
}

func WithCodeGenerator(g CodeGenerator) Option {
	return func(o *options) {
		o.genCode = g
	}
}

func applyOptions(opts []Option) *options {
	o := &options{genCode: randomCode}
	for _, opt := range opts {
		opt(o)
	}
	return o
}

var codeSpace = big.NewInt(1000000)

func randomCode(ctx context.Context) (string, error) {
	n, err := rand.Int(rand.Reader, codeSpace)
	if err != nil {
		return "", err
	}
	return fmt.Sprintf("%06d", n.Int64()), nil
}
