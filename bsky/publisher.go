package bsky

import (
	"bytes"
	"encoding/json"
	"fmt"
	"log"
	"net/http"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/quillhq/skypress/domain"
	"github.com/quillhq/skypress/util"
)

const (
	uploadBlobEndpoint   = "com.atproto.repo.uploadBlob"
	createRecordEndpoint = "com.atproto.repo.createRecord"
)

// Publisher drives a published article through the pipeline: preview
// scrape, image upload, record submission, and the bounded retry loop
// around all of it. One attempt per article runs at a time.
type Publisher struct {
	store    Store
	conf     *util.AppConfig
	sessions *SessionManager
	previews *PreviewExtractor
	images   *ImageTranscoder
	client   *http.Client
	inflight sync.Map
}

func NewPublisher(store Store, conf *util.AppConfig, sessions *SessionManager, previews *PreviewExtractor, images *ImageTranscoder) *Publisher {
	return &Publisher{
		store:    store,
		conf:     conf,
		sessions: sessions,
		previews: previews,
		images:   images,
		client:   &http.Client{Timeout: conf.AuthTimeout()},
	}
}

// Schedule enqueues the first delayed attempt for an article. Articles
// that are revisions, unpublished or already posted are ignored.
func (p *Publisher) Schedule(articleId uuid.UUID) error {
	err, article := p.store.ReadArticleById(articleId)
	if err != nil {
		return err
	}

	if !article.Eligible() {
		log.Printf("Publisher: Article %s not eligible, skipping", articleId)
		return nil
	}

	item := &domain.ScheduledPost{
		Id:        uuid.New(),
		ArticleId: articleId,
		DueAt:     time.Now().Add(p.conf.PublishDelay()),
		CreatedAt: time.Now(),
	}
	if err := p.store.EnqueueScheduledPost(item); err != nil {
		return err
	}

	log.Printf("Publisher: Scheduled article %s for %s", articleId, item.DueAt.Format(util.DateTimeFormat()))
	return nil
}

// Attempt runs one publish attempt for the article. Each failed attempt
// schedules at most one successor, so the queue never fans out.
func (p *Publisher) Attempt(articleId uuid.UUID) error {
	if _, loaded := p.inflight.LoadOrStore(articleId, struct{}{}); loaded {
		log.Printf("Publisher: Attempt for article %s already in flight, skipping", articleId)
		return nil
	}
	defer p.inflight.Delete(articleId)

	err, article := p.store.ReadArticleById(articleId)
	if err != nil {
		log.Printf("Publisher: Failed to read article %s: %v", articleId, err)
		return err
	}

	if !article.Eligible() {
		log.Printf("Publisher: Article %s no longer eligible, dropping attempt", articleId)
		return nil
	}

	err, acc := p.store.ReadAccById(article.AccountId)
	if err != nil {
		log.Printf("Publisher: Failed to read account %s: %v", article.AccountId, err)
		return err
	}

	if !acc.Connected() {
		log.Printf("Publisher: Account %s has no Bluesky link, dropping article %s", acc.Id, articleId)
		return nil
	}

	// A stale session is revalidated first and the attempt itself is
	// rescheduled, so the publish call never runs with tokens of
	// unknown validity.
	if p.sessions.IsStale(acc) {
		if err := p.sessions.EnsureFresh(acc); err != nil {
			log.Printf("Publisher: Session revalidation failed for account %s: %v", acc.Id, err)
			return p.retry(article, err)
		}
		log.Printf("Publisher: Session refreshed for account %s, rescheduling article %s", acc.Id, articleId)
		return p.store.EnqueueScheduledPost(&domain.ScheduledPost{
			Id:        uuid.New(),
			ArticleId: articleId,
			DueAt:     time.Now().Add(p.conf.PublishDelay()),
			CreatedAt: time.Now(),
		})
	}

	finalAttempt := article.RetryCount >= p.conf.Conf.MaxRetries

	preview := p.previews.Extract(article.Url, article.Title)
	if !preview.Ready() && !finalAttempt {
		// Caches on the blog side may still serve the page without its
		// Open Graph tags right after publishing.
		return p.retry(article, fmt.Errorf("%w: incomplete preview for %s", ErrDataNotReady, article.Url))
	}

	var thumb json.RawMessage
	if preview.ImageUrl != "" {
		imageBytes, err := p.images.Transcode(preview.ImageUrl)
		if err != nil {
			log.Printf("Publisher: Image pipeline failed for article %s, posting without thumbnail: %v", articleId, err)
		} else {
			thumb, err = p.uploadBlob(acc, imageBytes)
			if err != nil {
				log.Printf("Publisher: Blob upload failed for article %s, posting without thumbnail: %v", articleId, err)
				thumb = nil
			}
		}
	}

	record := composeRecord(article, preview, thumb)
	if err := p.createRecord(acc, record); err != nil {
		return p.retry(article, err)
	}

	// Remote confirmed the record, finish the bookkeeping.
	if err := p.store.ClearRetryCount(articleId); err != nil {
		log.Printf("Publisher: Failed to clear retry count for article %s: %v", articleId, err)
	}
	if err := p.store.UpdateBskyLastComm(acc.Id, time.Now()); err != nil {
		log.Printf("Publisher: Failed to update last communication for account %s: %v", acc.Id, err)
	}
	if err := p.store.MarkPosted(articleId); err != nil {
		log.Printf("Publisher: Failed to mark article %s as posted: %v", articleId, err)
		return err
	}
	if err := p.store.AppendActivity(acc.Id, domain.LogMessage("successfully auto-posted to Bluesky", article.Title)); err != nil {
		log.Printf("Publisher: Failed to log activity for account %s: %v", acc.Id, err)
	}

	log.Printf("Publisher: Successfully posted article %s to Bluesky for account %s", articleId, acc.Id)
	return nil
}

// retry schedules the next attempt or gives up once the bound is
// reached. The retry counter only ever moves forward here.
func (p *Publisher) retry(article *domain.Article, cause error) error {
	if article.RetryCount >= p.conf.Conf.MaxRetries {
		log.Printf("Publisher: Giving up on article %s after %d attempts: %v", article.Id, article.RetryCount, cause)
		if err := p.store.AppendActivity(article.AccountId, domain.LogMessage("failed to auto-post to Bluesky, giving up", article.Title)); err != nil {
			log.Printf("Publisher: Failed to log activity for account %s: %v", article.AccountId, err)
		}
		return cause
	}

	nextCount := article.RetryCount + 1
	if err := p.store.SetRetryCount(article.Id, nextCount); err != nil {
		return err
	}
	if err := p.store.EnqueueScheduledPost(&domain.ScheduledPost{
		Id:        uuid.New(),
		ArticleId: article.Id,
		DueAt:     time.Now().Add(p.conf.PublishDelay()),
		CreatedAt: time.Now(),
	}); err != nil {
		return err
	}

	log.Printf("Publisher: Article %s failed (attempt %d), retrying in %s: %v",
		article.Id, nextCount, p.conf.PublishDelay(), cause)
	return nil
}

// composeRecord builds the post. A complete preview becomes a link
// card with an optional thumbnail; anything less degrades to the bare
// title and URL in the text body.
func composeRecord(article *domain.Article, preview *domain.Preview, thumb json.RawMessage) *domain.PostRecord {
	record := &domain.PostRecord{
		Text:      article.Title,
		CreatedAt: time.Now().UTC().Format(util.RecordTimeFormat()),
	}

	if preview.Title != "" && preview.Url != "" {
		record.Embed = &domain.ExternalEmbed{
			Type: domain.EmbedExternalType,
			External: domain.ExternalInfo{
				Uri:         preview.Url,
				Title:       preview.Title,
				Description: preview.Description,
				Thumb:       thumb,
			},
		}
	} else {
		record.Text = article.Title + "\n\n" + article.Url
	}

	return record
}

func (p *Publisher) uploadBlob(acc *domain.Account, imageBytes []byte) (json.RawMessage, error) {
	req, err := http.NewRequest("POST", p.conf.Conf.ApiBase+uploadBlobEndpoint, bytes.NewReader(imageBytes))
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrTransport, err)
	}
	req.Header.Set("Content-Type", "image/jpeg")
	req.Header.Set("Authorization", "Bearer "+acc.BskyAccessJwt)

	resp, err := p.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrTransport, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("%w: uploadBlob returned status %d", ErrRemoteRejected, resp.StatusCode)
	}

	var blobResp domain.UploadBlobResponse
	if err := json.NewDecoder(resp.Body).Decode(&blobResp); err != nil {
		return nil, fmt.Errorf("%w: malformed uploadBlob response: %v", ErrRemoteRejected, err)
	}
	if len(blobResp.Blob) == 0 {
		return nil, fmt.Errorf("%w: uploadBlob response missing blob", ErrRemoteRejected)
	}

	return blobResp.Blob, nil
}

func (p *Publisher) createRecord(acc *domain.Account, record *domain.PostRecord) error {
	body, err := json.Marshal(domain.CreateRecordRequest{
		Repo:       acc.BskyHandle,
		Collection: domain.PostCollection,
		Record:     *record,
	})
	if err != nil {
		return fmt.Errorf("%w: %v", ErrRemoteRejected, err)
	}

	req, err := http.NewRequest("POST", p.conf.Conf.ApiBase+createRecordEndpoint, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("%w: %v", ErrTransport, err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+acc.BskyAccessJwt)

	resp, err := p.client.Do(req)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrTransport, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("%w: createRecord returned status %d", ErrRemoteRejected, resp.StatusCode)
	}

	return nil
}
