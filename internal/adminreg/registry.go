// Package adminreg manages the set of usernames granted administrative
// privileges, persisted as a single ADMIN_USERNAMES entry in an env-style
// file.
package adminreg

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"supplydesk/internal/middleware"

	"github.com/joho/godotenv"
)

// Key is the env file entry holding the comma-joined administrator list.
const Key = "ADMIN_USERNAMES"

// Result describes the outcome of a registry mutation.
type Result int

const (
	ResultAdded Result = iota
	ResultRemoved
	ResultAlreadyMember
	ResultNotFound
)

// Registry is a file-backed set of administrator usernames. Usernames are
// stored verbatim; every comparison is case-insensitive.
type Registry struct {
	path string
	mu   sync.Mutex
}

// NewRegistry returns a Registry persisted at the given file path.
func NewRegistry(path string) *Registry {
	return &Registry{path: path}
}

// List reads the current membership. A missing file or absent entry yields
// an empty list; read errors are logged and treated as empty membership so
// permission checks fail closed rather than crashing.
func (r *Registry) List() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.read()
}

// IsAdmin reports whether username is a member, comparing case-insensitively.
func (r *Registry) IsAdmin(username string) bool {
	for _, admin := range r.List() {
		if strings.EqualFold(admin, username) {
			return true
		}
	}
	return false
}

// Add appends username to the membership and persists the new list.
// Adding an existing member is not an error; it reports ResultAlreadyMember
// and leaves the file untouched. Persist failures propagate because future
// permission checks depend on the write.
func (r *Registry) Add(username string) (Result, []string, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	admins := r.read()
	for _, admin := range admins {
		if strings.EqualFold(admin, username) {
			return ResultAlreadyMember, admins, nil
		}
	}

	admins = append(admins, username)
	if err := r.persist(admins); err != nil {
		return ResultAlreadyMember, nil, err
	}
	return ResultAdded, admins, nil
}

// Remove filters username out of the membership and persists the new list.
// Removing an absent name is not an error; it reports ResultNotFound.
func (r *Registry) Remove(username string) (Result, []string, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	admins := r.read()
	filtered := make([]string, 0, len(admins))
	for _, admin := range admins {
		if !strings.EqualFold(admin, username) {
			filtered = append(filtered, admin)
		}
	}

	if len(filtered) == len(admins) {
		return ResultNotFound, admins, nil
	}

	if err := r.persist(filtered); err != nil {
		return ResultNotFound, nil, err
	}
	return ResultRemoved, filtered, nil
}

func (r *Registry) read() []string {
	env, err := godotenv.Read(r.path)
	if err != nil {
		if !os.IsNotExist(err) {
			middleware.Logger.Warn("admin registry read failed",
				slog.String("path", r.path),
				slog.String("error", err.Error()))
		}
		return nil
	}

	raw, ok := env[Key]
	if !ok {
		return nil
	}

	var admins []string
	for _, name := range strings.Split(raw, ",") {
		if trimmed := strings.TrimSpace(name); trimmed != "" {
			admins = append(admins, trimmed)
		}
	}
	return admins
}

// persist rewrites the registry entry, preserving any other keys stored in
// the same file. The entry is created when absent.
func (r *Registry) persist(admins []string) error {
	env, err := godotenv.Read(r.path)
	if err != nil {
		if !os.IsNotExist(err) {
			return fmt.Errorf("read admin registry %s: %w", r.path, err)
		}
		env = map[string]string{}
	}

	env[Key] = strings.Join(admins, ",")

	if dir := filepath.Dir(r.path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create admin registry directory: %w", err)
		}
	}

	if err := godotenv.Write(env, r.path); err != nil {
		return fmt.Errorf("write admin registry %s: %w", r.path, err)
	}
	return nil
}
