package store

import (
	"time"

	"bottle-tracking-backend/internal/model"
)

// Transfer is an ownership change to apply to a bottle.
type Transfer struct {
	BottleIndex int64
	Account     string
	Type        string
	At          time.Time // zero means now
}

// TransferResult reports the owner a transfer left active.
type TransferResult struct {
	Owner    model.Owner
	Previous *model.Owner // nil when the bottle had no owner
	Changed  bool         // false when the same owner was already active
}
