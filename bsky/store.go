package bsky

import (
	"time"

	"github.com/google/uuid"
	"github.com/quillhq/skypress/domain"
)

// Store is the slice of the database the pipeline needs. *db.DB
// implements it.
type Store interface {
	ReadAccById(id uuid.UUID) (error, *domain.Account)
	UpdateBskyCredentials(id uuid.UUID, handle, accessJwt, refreshJwt, passwordEnc string, lastComm time.Time) error
	UpdateBskyTokens(id uuid.UUID, accessJwt, refreshJwt string, lastComm time.Time) error
	UpdateBskyLastComm(id uuid.UUID, lastComm time.Time) error
	ClearBskyCredentials(id uuid.UUID) error

	ReadArticleById(id uuid.UUID) (error, *domain.Article)
	MarkPosted(id uuid.UUID) error
	SetRetryCount(id uuid.UUID, count int) error
	ClearRetryCount(id uuid.UUID) error

	EnqueueScheduledPost(item *domain.ScheduledPost) error
	ReadDueScheduledPosts(limit int) (error, *[]domain.ScheduledPost)
	DeleteScheduledPost(id uuid.UUID) error

	AppendActivity(accountId uuid.UUID, message string) error
}
