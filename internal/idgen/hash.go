// Package idgen generates short, prefixed task identifiers such as "ch-4k2x9q".
package idgen

import (
	"context"
	"crypto/sha256"
	"fmt"
	"math/big"
	"regexp"
	"strings"
	"time"
)

// DefaultPrefix is used when the project has no id_prefix configured.
const DefaultPrefix = "ch"

// DefaultLength is the number of base36 characters after the prefix.
const DefaultLength = 6

// maxLength bounds growth after repeated collisions.
const maxLength = 10

// attemptsPerLength is how many nonces are tried before lengthening the id.
const attemptsPerLength = 10

var prefixRe = regexp.MustCompile(`^[a-z][a-z0-9]{0,9}$`)

// ValidatePrefix checks that prefix is 1-10 lowercase letters or digits
// starting with a letter.
func ValidatePrefix(prefix string) error {
	if !prefixRe.MatchString(prefix) {
		return fmt.Errorf("invalid id prefix %q: use 1-10 lowercase letters or digits, starting with a letter", prefix)
	}
	return nil
}

// EncodeBase36 renders data as exactly length base36 digits (0-9a-z),
// zero-padded on the left and keeping the least significant digits.
func EncodeBase36(data []byte, length int) string {
	s := new(big.Int).SetBytes(data).Text(36)
	if len(s) < length {
		return strings.Repeat("0", length-len(s)) + s
	}
	return s[len(s)-length:]
}

// HashID derives an id from the task content, creator, creation time and a
// collision nonce.
func HashID(prefix, title, description, creator string, timestamp time.Time, length, nonce int) string {
	if length <= 0 {
		length = DefaultLength
	}
	content := fmt.Sprintf("%s|%s|%s|%d|%d", title, description, creator, timestamp.UnixNano(), nonce)
	sum := sha256.Sum256([]byte(content))
	// 8 bytes give 64 bits, more than 10 base36 digits need.
	return prefix + "-" + EncodeBase36(sum[:8], length)
}

// ExistsFunc reports whether id is already taken.
type ExistsFunc func(ctx context.Context, id string) (bool, error)

// Generator hands out ids that do not collide with existing tasks.
type Generator struct {
	Prefix  string
	Length  int
	Creator string
	Exists  ExistsFunc
	Now     func() time.Time
}

// Next returns a fresh id for a task with the given title and description.
// Collisions are resolved by bumping the nonce, and after
// attemptsPerLength tries at one length, by using one more character.
func (g *Generator) Next(ctx context.Context, title, description string) (string, error) {
	prefix := g.Prefix
	if prefix == "" {
		prefix = DefaultPrefix
	}
	length := g.Length
	if length <= 0 {
		length = DefaultLength
	}
	now := time.Now
	if g.Now != nil {
		now = g.Now
	}
	ts := now()

	for ; length <= maxLength; length++ {
		for nonce := 0; nonce < attemptsPerLength; nonce++ {
			id := HashID(prefix, title, description, g.Creator, ts, length, nonce)
			if g.Exists == nil {
				return id, nil
			}
			taken, err := g.Exists(ctx, id)
			if err != nil {
				return "", fmt.Errorf("failed to check id %s: %w", id, err)
			}
			if !taken {
				return id, nil
			}
		}
	}
	return "", fmt.Errorf("could not generate a unique id with prefix %q", prefix)
}
