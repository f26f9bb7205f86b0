// Package password hashes and verifies room passwords with bcrypt.
package password

import (
	"chat-relay/internal/queue"

	"golang.org/x/crypto/bcrypt"
)

const bcryptCost = 10

// Hash derives a salted bcrypt hash from a plaintext password.
func Hash(plaintext string) (string, error) {
	hashed, err := bcrypt.GenerateFromPassword([]byte(plaintext), bcryptCost)
	if err != nil {
		return "", err
	}
	return string(hashed), nil
}

// Verify reports whether plaintext matches the stored hash. An empty hash
// means the room is open and any password (including none) is accepted.
// Comparison against a real hash uses bcrypt's own constant-time check.
func Verify(plaintext, hash string) bool {
	if hash == "" {
		return true
	}
	return bcrypt.CompareHashAndPassword([]byte(hash), []byte(plaintext)) == nil
}

// Service runs bcrypt work on a bounded worker pool, so a burst of room
// creations or join attempts hashes with fixed parallelism instead of
// spiking one goroutine per connection.
type Service struct {
	jobs *queue.Manager
}

func NewService(jobs *queue.Manager) *Service {
	return &Service{jobs: jobs}
}

func (s *Service) Hash(plaintext string) (string, error) {
	var hash string
	errc := make(chan error, 1)
	s.jobs.Enqueue(queue.Job{
		Fn: func() error {
			var err error
			hash, err = Hash(plaintext)
			return err
		},
		Errc: errc,
	})
	err := <-errc
	return hash, err
}

func (s *Service) Verify(plaintext, hash string) bool {
	ok := false
	errc := make(chan error, 1)
	s.jobs.Enqueue(queue.Job{
		Fn: func() error {
			ok = Verify(plaintext, hash)
			return nil
		},
		Errc: errc,
	})
	<-errc
	return ok
}
