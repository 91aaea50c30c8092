// Package idgenerator contains the default [domain.IDGenerator]
// implementation.
package idgenerator

import (
	"crypto/rand"
	"io"

	"github.com/google/uuid"

	"github.com/vinicius-lino-figueiredo/mqlopt/domain"
)

// IDGenerator implements [domain.IDGenerator]. Ids are version 4 UUIDs read
// from the configured source of randomness.
type IDGenerator struct {
	reader io.Reader
}

// NewIDGenerator implements [domain.IDGenerator]
func NewIDGenerator(opts ...domain.IDGeneratorOption) domain.IDGenerator {
	options := domain.IDGeneratorOptions{Reader: rand.Reader}
	for _, opt := range opts {
		opt(&options)
	}
	return &IDGenerator{reader: options.Reader}
}

// GenerateID implements [domain.IDGenerator].
func (i *IDGenerator) GenerateID() (string, error) {
	id, err := uuid.NewRandomFromReader(i.reader)
	if err != nil {
		return "", err
	}
	return id.String(), nil
}
