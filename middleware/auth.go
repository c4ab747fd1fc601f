package middleware

import (
	"github.com/charmbracelet/ssh"
	"github.com/charmbracelet/wish"
	"github.com/quillhq/skypress/db"
	"github.com/quillhq/skypress/util"
	"log"
)

// AuthMiddleware creates an account for unknown public keys on first
// login.
func AuthMiddleware() wish.Middleware {
	return func(h ssh.Handler) ssh.Handler {
		return func(s ssh.Session) {
			database := db.GetDB()
			_, found := database.ReadAccBySession(s)

			switch {
			case found != nil:
				util.LogPublicKey(s)
			default:
				err, created := database.CreateAccount(s, util.RandomString(10))
				if err != nil {
					log.Fatalln("Could not create a user: ", err)
				}

				if created != false {
					util.LogPublicKey(s)
				} else {
					log.Fatalln("The user is still empty!")
				}
			}
			h(s)
		}
	}
}
