package tool

import "github.com/google/uuid"

// GenerateUUIDV7 returns a time-ordered id. Every ledger row uses one as its primary key.
func GenerateUUIDV7() string {
	return uuid.Must(uuid.NewV7()).String()
}

// IsUUID reports whether s is a UUID in the canonical 36 character form.
func IsUUID(s string) bool {
	if len(s) != 36 {
		return false
	}
	_, err := uuid.Parse(s)
	return err == nil
}
