package application

import (
	"context"

	"github.com/google/uuid"
)

type IDGenerator interface {
	NewID(ctx context.Context) (string, error)
}

// UUIDGenerator gera identificadores UUID v4.
type UUIDGenerator struct{}

func (UUIDGenerator) NewID(_ context.Context) (string, error) {
	id, err := uuid.NewRandom()
	if err != nil {
		return "", err
	}
	return id.String(), nil
}
