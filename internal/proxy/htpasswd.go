package proxy

import (
	"bufio"
	"fmt"
	"io"
	"net/http"
	"os"
	"strings"

	"golang.org/x/crypto/bcrypt"
)

// Htpasswd maps user names to bcrypt hashes.
type Htpasswd map[string][]byte

// dummyHash keeps unknown-user checks as slow as known-user ones.
var dummyHash, _ = bcrypt.GenerateFromPassword([]byte("atlas-admin"), bcrypt.MinCost)

// LoadHtpasswd reads an htpasswd file from path.
func LoadHtpasswd(path string) (Htpasswd, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("opening htpasswd: %w", err)
	}
	defer f.Close()

	h, err := ParseHtpasswd(f)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return h, nil
}

// ParseHtpasswd parses "user:hash" lines. Only bcrypt hashes are accepted;
// blank lines and # comments are skipped.
func ParseHtpasswd(r io.Reader) (Htpasswd, error) {
	h := make(Htpasswd)
	sc := bufio.NewScanner(r)
	line := 0
	for sc.Scan() {
		line++
		text := strings.TrimSpace(sc.Text())
		if text == "" || strings.HasPrefix(text, "#") {
			continue
		}
		user, hash, ok := strings.Cut(text, ":")
		if !ok || user == "" {
			return nil, fmt.Errorf("line %d: expected user:hash", line)
		}
		if _, err := bcrypt.Cost([]byte(hash)); err != nil {
			return nil, fmt.Errorf("line %d: user %q: only bcrypt hashes are supported", line, user)
		}
		h[user] = []byte(hash)
	}
	if err := sc.Err(); err != nil {
		return nil, fmt.Errorf("reading htpasswd: %w", err)
	}
	if len(h) == 0 {
		return nil, fmt.Errorf("htpasswd has no entries")
	}
	return h, nil
}

// Check reports whether password matches the entry for user.
func (h Htpasswd) Check(user, password string) bool {
	hash, ok := h[user]
	if !ok {
		bcrypt.CompareHashAndPassword(dummyHash, []byte(password))
		return false
	}
	return bcrypt.CompareHashAndPassword(hash, []byte(password)) == nil
}

// HashEntry returns an htpasswd line for user with a bcrypt hash of password.
func HashEntry(user, password string) (string, error) {
	if user == "" || strings.ContainsAny(user, ":\n") {
		return "", fmt.Errorf("invalid user name %q", user)
	}
	if password == "" {
		return "", fmt.Errorf("password must not be empty")
	}
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return "", fmt.Errorf("hashing password: %w", err)
	}
	return user + ":" + string(hash), nil
}

// BasicAuth guards next with HTTP basic authentication against h. Paths in
// open are served without credentials.
func BasicAuth(h Htpasswd, realm string, open ...string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			for _, p := range open {
				if r.URL.Path == p {
					next.ServeHTTP(w, r)
					return
				}
			}
			user, password, ok := r.BasicAuth()
			if !ok || !h.Check(user, password) {
				w.Header().Set("WWW-Authenticate", fmt.Sprintf("Basic realm=%q, charset=\"UTF-8\"", realm))
				http.Error(w, "Unauthorized", http.StatusUnauthorized)
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}
