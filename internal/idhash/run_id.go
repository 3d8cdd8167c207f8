package idhash

import (
	"crypto/sha256"
	"fmt"

	"github.com/mr-tron/base58"
)

// ComputeRunID computes a deterministic run_id using SHA256.
// Formula: SHA256(portfolio_id|iterations|seed|submitted_at_ns)
// Returns the base58-encoded hash (roughly 44 characters), which stays
// copy-paste friendly in URLs and log lines.
func ComputeRunID(
	portfolioID string,
	iterations int,
	seed int64,
	submittedAtNs int64,
) string {
	data := fmt.Sprintf("%s|%d|%d|%d",
		portfolioID,
		iterations,
		seed,
		submittedAtNs,
	)

	hash := sha256.Sum256([]byte(data))
	return base58.Encode(hash[:])
}
