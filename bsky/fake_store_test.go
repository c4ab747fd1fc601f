package bsky

import (
	"database/sql"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/quillhq/skypress/domain"
	"github.com/quillhq/skypress/util"
)

// fakeStore is an in-memory Store for pipeline tests.
type fakeStore struct {
	mu         sync.Mutex
	accounts   map[uuid.UUID]*domain.Account
	articles   map[uuid.UUID]*domain.Article
	queue      []domain.ScheduledPost
	activities map[uuid.UUID][]string
}

func newFakeStore() *fakeStore {
	return &fakeStore{
		accounts:   make(map[uuid.UUID]*domain.Account),
		articles:   make(map[uuid.UUID]*domain.Article),
		activities: make(map[uuid.UUID][]string),
	}
}

func (f *fakeStore) ReadAccById(id uuid.UUID) (error, *domain.Account) {
	f.mu.Lock()
	defer f.mu.Unlock()
	acc, ok := f.accounts[id]
	if !ok {
		return sql.ErrNoRows, nil
	}
	copied := *acc
	return nil, &copied
}

func (f *fakeStore) UpdateBskyCredentials(id uuid.UUID, handle, accessJwt, refreshJwt, passwordEnc string, lastComm time.Time) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	acc, ok := f.accounts[id]
	if !ok {
		return sql.ErrNoRows
	}
	acc.BskyHandle = handle
	acc.BskyAccessJwt = accessJwt
	acc.BskyRefreshJwt = refreshJwt
	acc.BskyPasswordEnc = passwordEnc
	acc.BskyLastComm = lastComm
	return nil
}

func (f *fakeStore) UpdateBskyTokens(id uuid.UUID, accessJwt, refreshJwt string, lastComm time.Time) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	acc, ok := f.accounts[id]
	if !ok {
		return sql.ErrNoRows
	}
	acc.BskyAccessJwt = accessJwt
	acc.BskyRefreshJwt = refreshJwt
	acc.BskyLastComm = lastComm
	return nil
}

func (f *fakeStore) UpdateBskyLastComm(id uuid.UUID, lastComm time.Time) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	acc, ok := f.accounts[id]
	if !ok {
		return sql.ErrNoRows
	}
	acc.BskyLastComm = lastComm
	return nil
}

func (f *fakeStore) ClearBskyCredentials(id uuid.UUID) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	acc, ok := f.accounts[id]
	if !ok {
		return sql.ErrNoRows
	}
	acc.BskyHandle = ""
	acc.BskyAccessJwt = ""
	acc.BskyRefreshJwt = ""
	acc.BskyPasswordEnc = ""
	acc.BskyLastComm = time.Time{}
	return nil
}

func (f *fakeStore) ReadArticleById(id uuid.UUID) (error, *domain.Article) {
	f.mu.Lock()
	defer f.mu.Unlock()
	article, ok := f.articles[id]
	if !ok {
		return sql.ErrNoRows, nil
	}
	copied := *article
	return nil, &copied
}

func (f *fakeStore) MarkPosted(id uuid.UUID) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	article, ok := f.articles[id]
	if !ok {
		return sql.ErrNoRows
	}
	article.Posted = true
	return nil
}

func (f *fakeStore) SetRetryCount(id uuid.UUID, count int) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	article, ok := f.articles[id]
	if !ok {
		return sql.ErrNoRows
	}
	article.RetryCount = count
	return nil
}

func (f *fakeStore) ClearRetryCount(id uuid.UUID) error {
	return f.SetRetryCount(id, 0)
}

func (f *fakeStore) EnqueueScheduledPost(item *domain.ScheduledPost) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.queue = append(f.queue, *item)
	return nil
}

func (f *fakeStore) ReadDueScheduledPosts(limit int) (error, *[]domain.ScheduledPost) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var due []domain.ScheduledPost
	now := time.Now()
	for _, item := range f.queue {
		if !item.DueAt.After(now) && len(due) < limit {
			due = append(due, item)
		}
	}
	return nil, &due
}

func (f *fakeStore) DeleteScheduledPost(id uuid.UUID) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	for i, item := range f.queue {
		if item.Id == id {
			f.queue = append(f.queue[:i], f.queue[i+1:]...)
			return nil
		}
	}
	return sql.ErrNoRows
}

func (f *fakeStore) AppendActivity(accountId uuid.UUID, message string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.activities[accountId] = append(f.activities[accountId], message)
	return nil
}

func (f *fakeStore) queueLen() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.queue)
}

func (f *fakeStore) account(id uuid.UUID) domain.Account {
	f.mu.Lock()
	defer f.mu.Unlock()
	return *f.accounts[id]
}

func (f *fakeStore) article(id uuid.UUID) domain.Article {
	f.mu.Lock()
	defer f.mu.Unlock()
	return *f.articles[id]
}

func (f *fakeStore) activityLog(accountId uuid.UUID) []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]string(nil), f.activities[accountId]...)
}

// testConf builds a config pointing the pipeline at a test server.
func testConf(apiBase string) *util.AppConfig {
	c := &util.AppConfig{}
	c.Conf.ApiBase = apiBase
	c.Conf.PublishDelaySec = 60
	c.Conf.StaleAfterMin = 15
	c.Conf.MaxRetries = 3
	c.Conf.AuthTimeoutSec = 5
	c.Conf.FetchTimeoutSec = 5
	c.EncryptionKey = "test-encryption-key"
	return c
}

func testVault(conf *util.AppConfig) *util.Vault {
	vault, err := util.NewVault(conf.EncryptionKey)
	if err != nil {
		panic(err)
	}
	return vault
}
