package user

import (
	"time"

	"github.com/google/uuid"

	"yukifiles/internal/model/fingerprint"
)

type User struct {
	ID             uuid.UUID
	Username       string
	Email          string
	PasswordHash   string
	RegistrationIP string
	Fingerprint    *fingerprint.Device
	CreatedAt      time.Time
}

// QuotaAccount tracks consumed vs. allotted storage, 1:1 with a user.
// usedBytes <= limitBytes holds after every successful mutation; the
// conditional reserve in quotaRepo enforces it before the write.
type QuotaAccount struct {
	OwnerID    uuid.UUID
	UsedBytes  int64
	LimitBytes int64
}

// RemainingBytes is what the owner can still upload.
func (q QuotaAccount) RemainingBytes() int64 {
	if q.UsedBytes >= q.LimitBytes {
		return 0
	}
	return q.LimitBytes - q.UsedBytes
}
