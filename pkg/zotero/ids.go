package zotero

import (
	"crypto/rand"
	"encoding/hex"
	"fmt"
	"sync/atomic"

	"github.com/google/uuid"
)

// IDSource produces identifiers for items and sessions.
type IDSource interface {
	NewID() string
}

// IDSourceFunc adapts a function to IDSource.
type IDSourceFunc func() string

// NewID implements IDSource.
func (f IDSourceFunc) NewID() string { return f() }

// UUIDSource issues random (v4) UUIDs.
type UUIDSource struct{}

// NewID returns a v4 UUID, or 16 random bytes hex encoded if the UUID
// generator fails.
func (UUIDSource) NewID() string {
	id, err := uuid.NewRandom()
	if err == nil {
		return id.String()
	}
	return randomHex(16)
}

func randomHex(n int) string {
	b := make([]byte, n)
	_, _ = rand.Read(b)
	return hex.EncodeToString(b)
}

// SequenceSource issues prefix-1, prefix-2, ... and is meant for tests that
// need stable identifiers.
type SequenceSource struct {
	Prefix string
	n      atomic.Int64
}

// NewID implements IDSource.
func (s *SequenceSource) NewID() string {
	return fmt.Sprintf("%s%d", s.Prefix, s.n.Add(1))
}

// DefaultIDSource is used when a caller passes a nil IDSource.
var DefaultIDSource IDSource = UUIDSource{}

func orDefault(src IDSource) IDSource {
	if src == nil {
		return DefaultIDSource
	}
	return src
}
