package main

import (
	"context"
	"fmt"
	"github.com/charmbracelet/ssh"
	"github.com/charmbracelet/wish/logging"
	"github.com/quillhq/skypress/bsky"
	"github.com/quillhq/skypress/db"
	"github.com/quillhq/skypress/middleware"
	"github.com/quillhq/skypress/util"
	"github.com/quillhq/skypress/web"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/charmbracelet/wish"
)

func main() {

	conf, err := util.ReadConf()
	if err != nil {
		log.Fatalln(err)
	}

	fmt.Println("Configuration: ")
	fmt.Println(util.PrettyPrint(conf))

	vault, err := util.NewVault(conf.EncryptionKey)
	if err != nil {
		log.Fatalln("Set SKYPRESS_ENCRYPTION_KEY before starting:", err)
	}

	database := db.GetDB()
	if err := database.RunMigrations(); err != nil {
		log.Printf("Warning: Migration errors (may be normal if tables exist): %v", err)
	}
	log.Println("Database migrations complete")

	sessions := bsky.NewSessionManager(database, conf, vault)
	previews := bsky.NewPreviewExtractor(conf)
	images := bsky.NewImageTranscoder(conf)
	publisher := bsky.NewPublisher(database, conf, sessions, previews, images)

	bsky.StartSchedulerWorker(database, publisher)

	s, err := wish.NewServer(
		wish.WithAddress(fmt.Sprintf("%s:%d", conf.Conf.Host, conf.Conf.SshPort)),
		wish.WithHostKeyPath(".ssh/hostkey"),
		wish.WithPublicKeyAuth(publicKeyHandler),
		wish.WithMiddleware(
			middleware.MainTui(),
			middleware.AuthMiddleware(),
			logging.Middleware(), // last middleware executed first
		),
	)
	if err != nil {
		log.Fatalln(err)
	}

	startServing(s, database, sessions, publisher, conf)

}

func startServing(s *ssh.Server, database *db.DB, sessions *bsky.SessionManager, publisher *bsky.Publisher, conf *util.AppConfig) {
	done := make(chan os.Signal, 1)
	signal.Notify(done, os.Interrupt, syscall.SIGINT, syscall.SIGTERM)
	log.Printf("Starting SSH server on %s:%d", conf.Conf.Host, conf.Conf.SshPort)
	go func() {
		if err := s.ListenAndServe(); err != nil {
			log.Fatalln(err)
		}
	}()

	go func() {
		if err := web.Router(database, sessions, publisher, conf); err != nil {
			log.Fatalln(err)
		}
	}()

	<-done
	log.Println("Stopping SSH server")
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer func() { cancel() }()
	if err := s.Shutdown(ctx); err != nil {
		log.Fatalln(err)
	}
}

func publicKeyHandler(ssh.Context, ssh.PublicKey) bool {
	return true
}
