package util

import (
	"crypto/sha256"
	_ "embed"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"github.com/charmbracelet/ssh"
	gossh "golang.org/x/crypto/ssh"
	"log"
	rnd "math/rand"
	"strings"
	"time"
)

//go:embed version.txt
var embeddedVersion string

func LogPublicKey(s ssh.Session) {
	log.Println(fmt.Sprintf("%s@%s opened a new ssh-session..", s.User(), s.LocalAddr()))
}

func PublicKeyToString(s ssh.PublicKey) string {
	return strings.TrimSpace(string(gossh.MarshalAuthorizedKey(s)))
}

func PkToHash(pk string) string {
	h := sha256.New()
	h.Write([]byte(pk))
	return hex.EncodeToString(h.Sum(nil))
}

func GetVersion() string {
	return strings.TrimSpace(embeddedVersion)
}

func GetNameAndVersion() string {
	return fmt.Sprintf("%s / %s", Name, GetVersion())
}

func RandomString(length int) string {
	rnd.Seed(time.Now().UnixNano())
	b := make([]byte, length)
	rnd.Read(b)
	return fmt.Sprintf("%x", b)[:length]
}

func DateTimeFormat() string {
	return "2006-01-02 15:04:05"
}

// RecordTimeFormat is the createdAt format the AT protocol expects:
// ISO-8601 UTC with second precision and a literal Z suffix.
func RecordTimeFormat() string {
	return "2006-01-02T15:04:05Z"
}

// Truncate shortens s to at most n runes.
func Truncate(s string, n int) string {
	runes := []rune(s)
	if len(runes) <= n {
		return s
	}
	return string(runes[:n])
}

// TrimHandle normalizes a Bluesky handle: whitespace and any leading @
// are stripped, so "@alice.bsky.social" and "alice.bsky.social" are the same.
func TrimHandle(handle string) string {
	return strings.TrimPrefix(strings.TrimSpace(handle), "@")
}

func PrettyPrint(i interface{}) string {
	s, _ := json.MarshalIndent(i, "", " ")
	return string(s)
}
