// Package keys provides partition key generation for the DynamoDB tables.
package keys

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
)

// UniqueConstraintPK computes a hash-distributed partition key for a
// unique constraint record. Hashing spreads constraints across partitions,
// eliminating hot partition risk for popular prefixes.
func UniqueConstraintPK(entityType, field, value string) string {
	data := fmt.Sprintf("%s#%s#%s", entityType, field, value)
	h := sha256.Sum256([]byte(data))
	return hex.EncodeToString(h[:16]) // 128-bit hash as hex
}
