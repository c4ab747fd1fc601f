package domain

import (
	"fmt"
	"github.com/google/uuid"
	"time"
)

type Account struct {
	Id        uuid.UUID
	Username  string
	Publickey string
	CreatedAt time.Time
	// Bluesky link state, empty until the author connects
	BskyHandle      string
	BskyAccessJwt   string
	BskyRefreshJwt  string
	BskyPasswordEnc string
	BskyLastComm    time.Time
}

// Connected reports whether the author has linked a Bluesky account.
func (acc *Account) Connected() bool {
	return acc.BskyHandle != "" && acc.BskyAccessJwt != ""
}

func (acc *Account) ToString() string {
	return fmt.Sprintf("\n\tId: %s \n\tUsername: %s \n\tBskyHandle: %s \n\tCreatedAt: %s)", acc.Id, acc.Username, acc.BskyHandle, acc.CreatedAt)
}
