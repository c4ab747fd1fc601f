package web

import (
	"github.com/google/uuid"
	"github.com/quillhq/skypress/domain"
)

// Store is the slice of the database the HTTP layer needs. *db.DB
// implements it.
type Store interface {
	ReadAccById(id uuid.UUID) (error, *domain.Account)
	ReadAccByUsername(username string) (error, *domain.Account)
	UpsertArticle(a *domain.Article) error
	ReadActivityByAccountId(accountId uuid.UUID) (error, *[]domain.LogEntry)
}

// Sessions is the Bluesky link lifecycle the connect endpoints drive.
type Sessions interface {
	Connect(accountId uuid.UUID, handle, password string) error
	Disconnect(accountId uuid.UUID) error
}

// Publisher schedules the delayed first attempt for a published
// article.
type Publisher interface {
	Schedule(articleId uuid.UUID) error
}
