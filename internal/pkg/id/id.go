package id

import (
	"crypto/rand"

	"github.com/oklog/ulid/v2"
)

// New generates a new ULID string. ULIDs sort by creation time, which keeps
// user ids usable as DynamoDB partition keys and as stable map keys in tests.
func New() string {
	return ulid.MustNew(ulid.Now(), rand.Reader).String()
}
