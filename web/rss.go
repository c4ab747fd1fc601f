package web

import (
	"errors"
	"fmt"
	"log"
	"time"

	"github.com/gorilla/feeds"
	"github.com/quillhq/skypress/util"
)

// GetActivityRSS renders an author's posting activity as an RSS feed,
// newest entries last the way the log is stored.
func GetActivityRSS(store Store, conf *util.AppConfig, username string) (string, error) {
	err, acc := store.ReadAccByUsername(username)
	if err != nil {
		log.Printf("Could not find author %s: %v", username, err)
		return "", errors.New("error retrieving author")
	}

	err, entries := store.ReadActivityByAccountId(acc.Id)
	if err != nil {
		log.Printf("Could not get activity for %s: %v", username, err)
		return "", errors.New("error retrieving activity log")
	}

	link := fmt.Sprintf("http://%s:%d/feed?author=%s", conf.Conf.Host, conf.Conf.HttpPort, username)

	feed := &feeds.Feed{
		Title:       fmt.Sprintf("Skypress Activity - %s", username),
		Link:        &feeds.Link{Href: link},
		Description: "bluesky auto-posting activity",
		Author:      &feeds.Author{Name: username, Email: fmt.Sprintf("%s@skypress", username)},
		Created:     time.Now(),
	}

	var feedItems []*feeds.Item
	for _, entry := range *entries {
		feedItems = append(feedItems,
			&feeds.Item{
				Id:      entry.Id.String(),
				Title:   entry.CreatedAt.Format(util.DateTimeFormat()),
				Link:    &feeds.Link{Href: link},
				Content: entry.Message,
				Author:  &feeds.Author{Name: username, Email: fmt.Sprintf("%s@skypress", username)},
				Created: entry.CreatedAt,
			})
	}

	feed.Items = feedItems
	return feed.ToRss()
}
