package web

import (
	"errors"
	"fmt"
	"log"
	"net/http"
	"time"

	"github.com/gin-contrib/gzip"
	"github.com/gin-gonic/gin"
	"github.com/gin-gonic/gin/render"
	"github.com/google/uuid"
	"github.com/quillhq/skypress/bsky"
	"github.com/quillhq/skypress/domain"
	"github.com/quillhq/skypress/util"
	"golang.org/x/time/rate"
)

// publishedEvent is the payload of the publish webhook.
type publishedEvent struct {
	Id       string `json:"id" binding:"required"`
	AuthorId string `json:"authorId" binding:"required"`
	Title    string `json:"title" binding:"required"`
	Url      string `json:"url" binding:"required"`
	Status   string `json:"status"`
	Revision bool   `json:"revision"`
}

type connectRequest struct {
	Handle   string `json:"handle" binding:"required"`
	Password string `json:"password" binding:"required"`
}

// NewRouter wires the HTTP API.
func NewRouter(store Store, sessions Sessions, publisher Publisher, conf *util.AppConfig) *gin.Engine {
	g := gin.Default()
	g.Use(gzip.Gzip(gzip.DefaultCompression))

	// Global rate limiter: 10 requests per second per IP, burst of 20
	globalLimiter := NewRateLimiter(rate.Limit(10), 20)
	g.Use(RateLimitMiddleware(globalLimiter))

	api := g.Group("/api", MaxBytesMiddleware(64*1024))

	api.POST("/events/published", func(c *gin.Context) {
		var event publishedEvent
		if err := c.ShouldBindJSON(&event); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid event payload"})
			return
		}

		articleId, err := uuid.Parse(event.Id)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid article ID"})
			return
		}
		authorId, err := uuid.Parse(event.AuthorId)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid author ID"})
			return
		}

		if err, _ := store.ReadAccById(authorId); err != nil {
			c.JSON(http.StatusNotFound, gin.H{"error": "Author not found"})
			return
		}

		article := &domain.Article{
			Id:        articleId,
			AccountId: authorId,
			Title:     event.Title,
			Url:       event.Url,
			Status:    event.Status,
			Revision:  event.Revision,
			CreatedAt: time.Now(),
		}
		if err := store.UpsertArticle(article); err != nil {
			log.Printf("Webhook: Failed to store article %s: %v", articleId, err)
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Could not store article"})
			return
		}

		if err := publisher.Schedule(articleId); err != nil {
			log.Printf("Webhook: Failed to schedule article %s: %v", articleId, err)
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Could not schedule article"})
			return
		}

		c.JSON(http.StatusAccepted, gin.H{"status": "accepted"})
	})

	api.POST("/authors/:id/bsky/connect", func(c *gin.Context) {
		authorId, ok := authorParam(c)
		if !ok {
			return
		}

		var req connectRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "Handle and password are required"})
			return
		}

		if err := sessions.Connect(authorId, req.Handle, req.Password); err != nil {
			if errors.Is(err, bsky.ErrAuth) {
				c.JSON(http.StatusUnauthorized, gin.H{"error": "Bluesky rejected the credentials"})
				return
			}
			log.Printf("Connect failed for author %s: %v", authorId, err)
			c.JSON(http.StatusBadGateway, gin.H{"error": "Could not reach Bluesky"})
			return
		}

		c.JSON(http.StatusOK, gin.H{"message": "Bluesky connected successfully!"})
	})

	api.POST("/authors/:id/bsky/disconnect", func(c *gin.Context) {
		authorId, ok := authorParam(c)
		if !ok {
			return
		}

		if err := sessions.Disconnect(authorId); err != nil {
			log.Printf("Disconnect failed for author %s: %v", authorId, err)
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Could not disconnect"})
			return
		}

		c.JSON(http.StatusOK, gin.H{"message": "Bluesky disconnected."})
	})

	api.GET("/authors/:id/bsky/status", func(c *gin.Context) {
		authorId, ok := authorParam(c)
		if !ok {
			return
		}

		err, acc := store.ReadAccById(authorId)
		if err != nil {
			c.JSON(http.StatusNotFound, gin.H{"error": "Author not found"})
			return
		}

		status := gin.H{
			"connected": acc.Connected(),
			"handle":    acc.BskyHandle,
		}
		if !acc.BskyLastComm.IsZero() {
			status["lastCommunication"] = acc.BskyLastComm.Format(util.DateTimeFormat())
		}
		c.JSON(http.StatusOK, status)
	})

	api.GET("/authors/:id/bsky/log", func(c *gin.Context) {
		authorId, ok := authorParam(c)
		if !ok {
			return
		}

		if err, _ := store.ReadAccById(authorId); err != nil {
			c.JSON(http.StatusNotFound, gin.H{"error": "Author not found"})
			return
		}

		err, entries := store.ReadActivityByAccountId(authorId)
		if err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Could not read activity log"})
			return
		}

		items := make([]gin.H, 0, len(*entries))
		for _, entry := range *entries {
			items = append(items, gin.H{
				"message":   entry.Message,
				"createdAt": entry.CreatedAt.Format(util.DateTimeFormat()),
			})
		}
		c.JSON(http.StatusOK, gin.H{"entries": items})
	})

	// RSS Feed of the posting activity
	g.GET("/feed", func(c *gin.Context) {
		c.Header("Content-Type", "application/xml; charset=utf-8")

		author := c.Query("author")
		if author == "" {
			c.Render(404, render.String{Format: ""})
			return
		}

		rss, err := GetActivityRSS(store, conf, author)
		if err != nil {
			c.Render(404, render.String{Format: ""})
		} else {
			c.Render(200, render.String{Format: rss})
		}
	})

	return g
}

// Router starts the HTTP server and blocks.
func Router(store Store, sessions Sessions, publisher Publisher, conf *util.AppConfig) error {
	log.Printf("Starting HTTP server on %s:%d", conf.Conf.Host, conf.Conf.HttpPort)
	g := NewRouter(store, sessions, publisher, conf)
	return g.Run(fmt.Sprintf(":%d", conf.Conf.HttpPort))
}

func authorParam(c *gin.Context) (uuid.UUID, bool) {
	authorId, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid author ID"})
		return uuid.Nil, false
	}
	return authorId, true
}
