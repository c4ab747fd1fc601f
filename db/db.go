package db

import (
	"context"
	"database/sql"
	"sync"

	"github.com/charmbracelet/ssh"
	"github.com/google/uuid"
	"github.com/quillhq/skypress/domain"
	"github.com/quillhq/skypress/util"
	"log"
	"modernc.org/sqlite"
	sqlitelib "modernc.org/sqlite/lib"
	"time"
)

// DB is the database struct.
type DB struct {
	db *sql.DB
}

var (
	dbInstance *DB
	dbOnce     sync.Once
)

const DbFileName = "skypress.db"

const (
	//Accounts
	sqlCreateAccountsTable = `CREATE TABLE IF NOT EXISTS accounts(
                        id uuid NOT NULL PRIMARY KEY,
                        username varchar(100) UNIQUE NOT NULL,
                        publickey varchar(1000) UNIQUE,
                        created_at timestamp default current_timestamp,
                        bsky_handle text default '',
                        bsky_access_jwt text default '',
                        bsky_refresh_jwt text default '',
                        bsky_password_enc text default '',
                        bsky_last_comm timestamp
                        )`
	sqlInsertAccount = `INSERT INTO accounts(id, username, publickey, created_at) VALUES (?, ?, ?, ?)`

	sqlSelectAccountCols = `id, username, publickey, created_at,
                        bsky_handle, bsky_access_jwt, bsky_refresh_jwt, bsky_password_enc, bsky_last_comm`

	sqlSelectAccountByPublicKey = `SELECT ` + sqlSelectAccountCols + ` FROM accounts WHERE publickey = ?`
	sqlSelectAccountById        = `SELECT ` + sqlSelectAccountCols + ` FROM accounts WHERE id = ?`
	sqlSelectAccountByUsername  = `SELECT ` + sqlSelectAccountCols + ` FROM accounts WHERE username = ?`

	sqlUpdateBskyCredentials = `UPDATE accounts SET bsky_handle = ?, bsky_access_jwt = ?, bsky_refresh_jwt = ?,
                        bsky_password_enc = ?, bsky_last_comm = ? WHERE id = ?`
	sqlUpdateBskyTokens   = `UPDATE accounts SET bsky_access_jwt = ?, bsky_refresh_jwt = ?, bsky_last_comm = ? WHERE id = ?`
	sqlUpdateBskyLastComm = `UPDATE accounts SET bsky_last_comm = ? WHERE id = ?`
	sqlClearBskyLink      = `UPDATE accounts SET bsky_handle = '', bsky_access_jwt = '', bsky_refresh_jwt = '',
                        bsky_password_enc = '', bsky_last_comm = NULL WHERE id = ?`

	//Articles
	sqlCreateArticlesTable = `CREATE TABLE IF NOT EXISTS articles(
                        id uuid NOT NULL PRIMARY KEY,
                        account_id uuid NOT NULL,
                        title varchar(1000),
                        url varchar(1000),
                        status varchar(50),
                        revision int default 0,
                        posted int default 0,
                        retry_count int default 0,
                        created_at timestamp default current_timestamp
                        )`
	sqlUpsertArticle = `INSERT INTO articles(id, account_id, title, url, status, revision, created_at)
                        VALUES (?, ?, ?, ?, ?, ?, ?)
                        ON CONFLICT(id) DO UPDATE SET title = excluded.title, url = excluded.url,
                        status = excluded.status, revision = excluded.revision`
	sqlSelectArticleById = `SELECT id, account_id, title, url, status, revision, posted, retry_count, created_at
                        FROM articles WHERE id = ?`
	sqlMarkPosted      = `UPDATE articles SET posted = 1 WHERE id = ?`
	sqlSetRetryCount   = `UPDATE articles SET retry_count = ? WHERE id = ?`
	sqlClearRetryCount = `UPDATE articles SET retry_count = 0 WHERE id = ?`
)

func (db *DB) CreateAccount(s ssh.Session, username string) (error, bool) {
	err, found := db.ReadAccBySession(s)
	if err != nil {
		log.Printf("No records for %s found, creating new user..", username)
	}

	if found != nil {
		return nil, true
	}

	err2 := db.createAccBySession(s, username)
	if err2 != nil {
		log.Println("Creating new user failed: ", err2)
		return err2, false
	}
	return nil, true
}

func (db *DB) createAccBySession(s ssh.Session, username string) error {
	return db.wrapTransaction(func(tx *sql.Tx) error {
		pkHash := util.PkToHash(util.PublicKeyToString(s.PublicKey()))
		_, err := tx.Exec(sqlInsertAccount, uuid.New(), username, pkHash, time.Now())
		return err
	})
}

func (db *DB) ReadAccBySession(s ssh.Session) (error, *domain.Account) {
	publicKeyToString := util.PublicKeyToString(s.PublicKey())
	return db.readAccount(sqlSelectAccountByPublicKey, util.PkToHash(publicKeyToString))
}

func (db *DB) ReadAccByPkHash(pkHash string) (error, *domain.Account) {
	return db.readAccount(sqlSelectAccountByPublicKey, pkHash)
}

func (db *DB) ReadAccById(id uuid.UUID) (error, *domain.Account) {
	return db.readAccount(sqlSelectAccountById, id)
}

func (db *DB) ReadAccByUsername(username string) (error, *domain.Account) {
	return db.readAccount(sqlSelectAccountByUsername, username)
}

func (db *DB) readAccount(query string, arg interface{}) (error, *domain.Account) {
	row := db.db.QueryRow(query, arg)
	var tempAcc domain.Account
	var lastComm sql.NullTime
	err := row.Scan(&tempAcc.Id, &tempAcc.Username, &tempAcc.Publickey, &tempAcc.CreatedAt,
		&tempAcc.BskyHandle, &tempAcc.BskyAccessJwt, &tempAcc.BskyRefreshJwt, &tempAcc.BskyPasswordEnc, &lastComm)
	if err == sql.ErrNoRows {
		return err, nil
	}
	if err != nil {
		return err, nil
	}
	if lastComm.Valid {
		tempAcc.BskyLastComm = lastComm.Time
	}
	return nil, &tempAcc
}

// UpdateBskyCredentials stores the full Bluesky link state after a
// successful connect: handle, token pair, encrypted password.
func (db *DB) UpdateBskyCredentials(id uuid.UUID, handle, accessJwt, refreshJwt, passwordEnc string, lastComm time.Time) error {
	return db.wrapTransaction(func(tx *sql.Tx) error {
		_, err := tx.Exec(sqlUpdateBskyCredentials, handle, accessJwt, refreshJwt, passwordEnc, lastComm, id)
		return err
	})
}

// UpdateBskyTokens stores a fresh token pair after a refresh or
// re-authentication.
func (db *DB) UpdateBskyTokens(id uuid.UUID, accessJwt, refreshJwt string, lastComm time.Time) error {
	return db.wrapTransaction(func(tx *sql.Tx) error {
		_, err := tx.Exec(sqlUpdateBskyTokens, accessJwt, refreshJwt, lastComm, id)
		return err
	})
}

func (db *DB) UpdateBskyLastComm(id uuid.UUID, lastComm time.Time) error {
	return db.wrapTransaction(func(tx *sql.Tx) error {
		_, err := tx.Exec(sqlUpdateBskyLastComm, lastComm, id)
		return err
	})
}

// ClearBskyCredentials removes the entire Bluesky link state on disconnect.
func (db *DB) ClearBskyCredentials(id uuid.UUID) error {
	return db.wrapTransaction(func(tx *sql.Tx) error {
		_, err := tx.Exec(sqlClearBskyLink, id)
		return err
	})
}

func (db *DB) UpsertArticle(a *domain.Article) error {
	return db.wrapTransaction(func(tx *sql.Tx) error {
		createdAt := a.CreatedAt
		if createdAt.IsZero() {
			createdAt = time.Now()
		}
		_, err := tx.Exec(sqlUpsertArticle, a.Id.String(), a.AccountId.String(), a.Title, a.Url, a.Status, a.Revision, createdAt)
		return err
	})
}

func (db *DB) ReadArticleById(id uuid.UUID) (error, *domain.Article) {
	row := db.db.QueryRow(sqlSelectArticleById, id.String())
	var a domain.Article
	var idStr, accountIdStr string
	err := row.Scan(&idStr, &accountIdStr, &a.Title, &a.Url, &a.Status, &a.Revision, &a.Posted, &a.RetryCount, &a.CreatedAt)
	if err == sql.ErrNoRows {
		return err, nil
	}
	if err != nil {
		return err, nil
	}
	a.Id, _ = uuid.Parse(idStr)
	a.AccountId, _ = uuid.Parse(accountIdStr)
	return nil, &a
}

// MarkPosted sets the idempotency flag. Only called after the remote
// confirmed the record with a 200.
func (db *DB) MarkPosted(id uuid.UUID) error {
	return db.wrapTransaction(func(tx *sql.Tx) error {
		_, err := tx.Exec(sqlMarkPosted, id.String())
		return err
	})
}

func (db *DB) SetRetryCount(id uuid.UUID, count int) error {
	return db.wrapTransaction(func(tx *sql.Tx) error {
		_, err := tx.Exec(sqlSetRetryCount, count, id.String())
		return err
	})
}

func (db *DB) ClearRetryCount(id uuid.UUID) error {
	return db.wrapTransaction(func(tx *sql.Tx) error {
		_, err := tx.Exec(sqlClearRetryCount, id.String())
		return err
	})
}

func GetDB() *DB {
	dbOnce.Do(func() {
		// Open database connection
		db, err := sql.Open("sqlite", util.ResolveFilePath(DbFileName))
		if err != nil {
			panic(err)
		}

		// Configure connection pool for concurrent access
		db.SetMaxOpenConns(25)
		db.SetMaxIdleConns(5)
		db.SetConnMaxLifetime(time.Hour)

		var journalMode string
		err = db.QueryRow("PRAGMA journal_mode=WAL").Scan(&journalMode)
		if err != nil {
			log.Printf("Warning: Failed to enable WAL mode: %v", err)
		} else {
			log.Printf("Database journal mode: %s", journalMode)
		}

		db.Exec("PRAGMA synchronous = NORMAL")
		db.Exec("PRAGMA temp_store = MEMORY")
		db.Exec("PRAGMA busy_timeout = 5000")
		db.Exec("PRAGMA foreign_keys = ON")

		dbInstance = &DB{db: db}

		// Run initial schema setup
		err2 := dbInstance.CreateDB()
		if err2 != nil {
			panic(err2)
		}
	})

	return dbInstance
}

// CreateDB creates the database.
func (db *DB) CreateDB() error {
	return db.wrapTransaction(func(tx *sql.Tx) error {
		if _, err := tx.Exec(sqlCreateAccountsTable); err != nil {
			return err
		}
		if _, err := tx.Exec(sqlCreateArticlesTable); err != nil {
			return err
		}
		return nil
	})
}

// wrapTransaction runs the given function within a transaction.
func (db *DB) wrapTransaction(f func(tx *sql.Tx) error) error {
	ctx, cancel := context.WithTimeout(context.Background(), time.Second*5)
	defer cancel()
	tx, err := db.db.BeginTx(ctx, nil)
	if err != nil {
		log.Printf("error starting transaction: %s", err)
		return err
	}
	for {
		err = f(tx)
		if err != nil {
			serr, ok := err.(*sqlite.Error)
			if ok && serr.Code() == sqlitelib.SQLITE_BUSY {
				continue
			}
			log.Printf("error in transaction: %s", err)
			return err
		}
		err = tx.Commit()
		if err != nil {
			log.Printf("error committing transaction: %s", err)
			return err
		}
		break
	}
	return nil
}

// Schedule queue queries
const (
	sqlInsertScheduledPost     = `INSERT INTO schedule_queue(id, article_id, due_at, created_at) VALUES (?, ?, ?, ?)`
	sqlSelectDueScheduledPosts = `SELECT id, article_id, due_at, created_at FROM schedule_queue WHERE due_at <= ? ORDER BY due_at ASC LIMIT ?`
	sqlDeleteScheduledPost     = `DELETE FROM schedule_queue WHERE id = ?`
	sqlCountScheduledByArticle = `SELECT COUNT(*) FROM schedule_queue WHERE article_id = ?`
)

func (db *DB) EnqueueScheduledPost(item *domain.ScheduledPost) error {
	return db.wrapTransaction(func(tx *sql.Tx) error {
		_, err := tx.Exec(sqlInsertScheduledPost,
			item.Id.String(),
			item.ArticleId.String(),
			item.DueAt,
			item.CreatedAt,
		)
		return err
	})
}

func (db *DB) ReadDueScheduledPosts(limit int) (error, *[]domain.ScheduledPost) {
	rows, err := db.db.Query(sqlSelectDueScheduledPosts, time.Now(), limit)
	if err != nil {
		return err, nil
	}
	defer rows.Close()

	var items []domain.ScheduledPost
	for rows.Next() {
		var item domain.ScheduledPost
		var idStr, articleIdStr string
		if err := rows.Scan(&idStr, &articleIdStr, &item.DueAt, &item.CreatedAt); err != nil {
			return err, &items
		}
		item.Id, _ = uuid.Parse(idStr)
		item.ArticleId, _ = uuid.Parse(articleIdStr)
		items = append(items, item)
	}
	if err = rows.Err(); err != nil {
		return err, &items
	}
	return nil, &items
}

func (db *DB) DeleteScheduledPost(id uuid.UUID) error {
	return db.wrapTransaction(func(tx *sql.Tx) error {
		_, err := tx.Exec(sqlDeleteScheduledPost, id.String())
		return err
	})
}

func (db *DB) CountScheduledByArticleId(articleId uuid.UUID) (error, int) {
	var count int
	err := db.db.QueryRow(sqlCountScheduledByArticle, articleId.String()).Scan(&count)
	return err, count
}

// Activity log queries
const (
	sqlInsertLogEntry = `INSERT INTO activity_log(id, account_id, message, created_at) VALUES (?, ?, ?, ?)`
	sqlTrimLog        = `DELETE FROM activity_log WHERE account_id = ? AND id NOT IN (
                        SELECT id FROM activity_log WHERE account_id = ? ORDER BY created_at DESC, id DESC LIMIT ?)`
	sqlSelectLogByAccountId = `SELECT id, account_id, message, created_at FROM activity_log
                        WHERE account_id = ? ORDER BY created_at ASC, id ASC`
)

// AppendActivity appends one entry to the author's log and trims the log
// to the most recent MaxLogEntries, oldest evicted first.
func (db *DB) AppendActivity(accountId uuid.UUID, message string) error {
	return db.wrapTransaction(func(tx *sql.Tx) error {
		if _, err := tx.Exec(sqlInsertLogEntry, uuid.New().String(), accountId.String(), message, time.Now()); err != nil {
			return err
		}
		_, err := tx.Exec(sqlTrimLog, accountId.String(), accountId.String(), domain.MaxLogEntries)
		return err
	})
}

func (db *DB) ReadActivityByAccountId(accountId uuid.UUID) (error, *[]domain.LogEntry) {
	rows, err := db.db.Query(sqlSelectLogByAccountId, accountId.String())
	if err != nil {
		return err, nil
	}
	defer rows.Close()

	var entries []domain.LogEntry
	for rows.Next() {
		var entry domain.LogEntry
		var idStr, accountIdStr string
		if err := rows.Scan(&idStr, &accountIdStr, &entry.Message, &entry.CreatedAt); err != nil {
			return err, &entries
		}
		entry.Id, _ = uuid.Parse(idStr)
		entry.AccountId, _ = uuid.Parse(accountIdStr)
		entries = append(entries, entry)
	}
	if err = rows.Err(); err != nil {
		return err, &entries
	}
	return nil, &entries
}
