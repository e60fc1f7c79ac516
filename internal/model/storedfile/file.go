package storedfile

import (
	"time"

	"github.com/google/uuid"
)

type Visibility string

const (
	VisibilityPublic  Visibility = "public"
	VisibilityPrivate Visibility = "private"
)

// File is the metadata record for one stored object. ContentHash is the
// digest of the original bytes and, together with OwnerID, the dedup key.
// SizeBytes is the pre-compression size: quota reflects what the user owns,
// not the storage savings.
type File struct {
	ID           uuid.UUID
	OwnerID      uuid.UUID
	ContentHash  string
	OriginalName string
	MimeType     string
	SizeBytes    int64
	StorageKey   string
	ShareToken   string
	Visibility   Visibility
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

func (f *File) IsPublic() bool {
	return f.Visibility == VisibilityPublic
}
