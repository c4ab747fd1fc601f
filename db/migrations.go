package db

import (
	"database/sql"
	"log"
)

const (
	// Schedule queue table: one row per pending future invocation
	sqlCreateScheduleQueueTable = `CREATE TABLE IF NOT EXISTS schedule_queue (
		id TEXT NOT NULL PRIMARY KEY,
		article_id TEXT NOT NULL,
		due_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP,
		created_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP
	)`

	sqlCreateScheduleQueueIndices = `
		CREATE INDEX IF NOT EXISTS idx_schedule_queue_due_at ON schedule_queue(due_at);
		CREATE INDEX IF NOT EXISTS idx_schedule_queue_article_id ON schedule_queue(article_id);
	`

	// Per-author activity log table
	sqlCreateActivityLogTable = `CREATE TABLE IF NOT EXISTS activity_log (
		id TEXT NOT NULL PRIMARY KEY,
		account_id TEXT NOT NULL,
		message TEXT NOT NULL,
		created_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP
	)`

	sqlCreateActivityLogIndices = `
		CREATE INDEX IF NOT EXISTS idx_activity_log_account_id ON activity_log(account_id);
		CREATE INDEX IF NOT EXISTS idx_activity_log_created_at ON activity_log(created_at DESC);
	`

	sqlCreateArticlesIndices = `
		CREATE INDEX IF NOT EXISTS idx_articles_account_id ON articles(account_id);
		CREATE INDEX IF NOT EXISTS idx_articles_posted ON articles(posted);
	`
)

// RunMigrations executes all database migrations
func (db *DB) RunMigrations() error {
	log.Println("Running database migrations...")
	return db.wrapTransaction(func(tx *sql.Tx) error {
		if err := db.createTableIfNotExists(tx, sqlCreateScheduleQueueTable, "schedule_queue"); err != nil {
			return err
		}
		if err := db.createTableIfNotExists(tx, sqlCreateActivityLogTable, "activity_log"); err != nil {
			return err
		}

		if _, err := tx.Exec(sqlCreateScheduleQueueIndices); err != nil {
			log.Printf("Warning: Failed to create schedule_queue indices: %v", err)
		}
		if _, err := tx.Exec(sqlCreateActivityLogIndices); err != nil {
			log.Printf("Warning: Failed to create activity_log indices: %v", err)
		}
		if _, err := tx.Exec(sqlCreateArticlesIndices); err != nil {
			log.Printf("Warning: Failed to create articles indices: %v", err)
		}

		return nil
	})
}

func (db *DB) createTableIfNotExists(tx *sql.Tx, createSQL string, tableName string) error {
	_, err := tx.Exec(createSQL)
	if err != nil {
		log.Printf("Error creating table %s: %v", tableName, err)
		return err
	}
	log.Printf("Table %s created or already exists", tableName)
	return nil
}
