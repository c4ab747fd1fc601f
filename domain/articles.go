package domain

import (
	"fmt"
	"github.com/google/uuid"
	"time"
)

const StatusPublished = "published"

// Article is one CMS content item as reported by the publish webhook.
type Article struct {
	Id         uuid.UUID
	AccountId  uuid.UUID
	Title      string
	Url        string
	Status     string
	Revision   bool
	Posted     bool
	RetryCount int
	CreatedAt  time.Time
}

// Eligible reports whether the article qualifies for auto-posting:
// a top-level publish, status exactly "published", never posted before.
func (a *Article) Eligible() bool {
	return !a.Revision && a.Status == StatusPublished && !a.Posted
}

func (a *Article) ToString() string {
	return fmt.Sprintf("\n\tId: %s \n\tTitle: %s \n\tUrl: %s \n\tStatus: %s \n\tPosted: %t", a.Id, a.Title, a.Url, a.Status, a.Posted)
}

// ScheduledPost is one pending future invocation of the publisher.
// Each row is consumed exactly once.
type ScheduledPost struct {
	Id        uuid.UUID
	ArticleId uuid.UUID
	DueAt     time.Time
	CreatedAt time.Time
}
