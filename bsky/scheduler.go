package bsky

import (
	"log"
	"time"
)

// StartSchedulerWorker starts a background worker that fires due
// publish attempts.
func StartSchedulerWorker(store Store, publisher *Publisher) {
	log.Println("Starting publish scheduler worker...")

	ticker := time.NewTicker(10 * time.Second)
	go func() {
		for range ticker.C {
			processDueQueue(store, publisher)
		}
	}()
}

// processDueQueue fires every due queue item once. Each row is deleted
// before its attempt runs, so an attempt that schedules a retry leaves
// exactly one row behind and never duplicates itself.
func processDueQueue(store Store, publisher *Publisher) {
	err, items := store.ReadDueScheduledPosts(50)
	if err != nil {
		log.Printf("SchedulerWorker: Failed to read queue: %v", err)
		return
	}

	if items == nil || len(*items) == 0 {
		return
	}

	log.Printf("SchedulerWorker: Processing %d due posts", len(*items))

	for _, item := range *items {
		if err := store.DeleteScheduledPost(item.Id); err != nil {
			log.Printf("SchedulerWorker: Failed to delete queue item %s: %v", item.Id, err)
			continue
		}
		if err := publisher.Attempt(item.ArticleId); err != nil {
			log.Printf("SchedulerWorker: Attempt for article %s failed: %v", item.ArticleId, err)
		}
	}
}
