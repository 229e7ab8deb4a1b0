package domain

import (
	"math/big"
	"time"

	"github.com/google/uuid"
)

// NotificationKind tags the state change a notification describes.
type NotificationKind string

const (
	NotificationTransfer NotificationKind = "transfer"
	NotificationMint     NotificationKind = "mint"
	NotificationBurn     NotificationKind = "burn"
)

// Notification is an immutable record of a committed state change, appended
// to the host's notification channel for external observers. From/To are nil
// when the kind does not index that side (mint has no From, burn has no To).
type Notification struct {
	ID        uuid.UUID        `json:"id"`
	Kind      NotificationKind `json:"kind"`
	From      *Principal       `json:"from,omitempty"`
	To        *Principal       `json:"to,omitempty"`
	Amount    *big.Int         `json:"amount"`
	EmittedAt time.Time        `json:"emitted_at"`
}

// NewTransferNotification builds a transfer{from, to, amount} record.
func NewTransferNotification(from, to Principal, amount *big.Int) Notification {
	return Notification{
		ID:        uuid.New(),
		Kind:      NotificationTransfer,
		From:      &from,
		To:        &to,
		Amount:    CopyAmount(amount),
		EmittedAt: time.Now().UTC(),
	}
}

// NewMintNotification builds a mint{to, amount} record.
func NewMintNotification(to Principal, amount *big.Int) Notification {
	return Notification{
		ID:        uuid.New(),
		Kind:      NotificationMint,
		To:        &to,
		Amount:    CopyAmount(amount),
		EmittedAt: time.Now().UTC(),
	}
}

// NewBurnNotification builds a burn{from, amount} record.
func NewBurnNotification(from Principal, amount *big.Int) Notification {
	return Notification{
		ID:        uuid.New(),
		Kind:      NotificationBurn,
		From:      &from,
		Amount:    CopyAmount(amount),
		EmittedAt: time.Now().UTC(),
	}
}
