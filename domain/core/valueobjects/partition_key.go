package valueobjects

import (
	"fmt"
	"strings"
)

// KeySeparator joins key parts in store keys and may not appear inside one
const KeySeparator = "#"

// PartitionKey is the compound key that colocates every version of a prompt.
// All documents of a lineage share one PartitionKey.
type PartitionKey struct {
	UserID   string
	PromptID string
}

// ValidateKeyPart checks one component of a partition key. Components are
// non-empty and never contain the separator, so joined keys stay unambiguous.
func ValidateKeyPart(field, value string) error {
	if value == "" {
		return fmt.Errorf("%s is required", field)
	}
	if strings.Contains(value, KeySeparator) {
		return fmt.Errorf("%s must not contain %q", field, KeySeparator)
	}
	return nil
}

// String returns a store-neutral representation used in logs and errors
func (k PartitionKey) String() string {
	return fmt.Sprintf("(%s, %s)", k.UserID, k.PromptID)
}
