package password

import (
	"testing"

	"chat-relay/internal/queue"
)

func TestHashAndVerify(t *testing.T) {
	hash, err := Hash("secret")
	if err != nil {
		t.Fatalf("hash: %v", err)
	}
	if hash == "secret" || hash == "" {
		t.Fatalf("hash %q looks like plaintext", hash)
	}

	if !Verify("secret", hash) {
		t.Fatal("correct password rejected")
	}
	if Verify("wrong", hash) {
		t.Fatal("wrong password accepted")
	}
}

func TestVerifyRejectsPrefixAndSuffix(t *testing.T) {
	hash, err := Hash("secret")
	if err != nil {
		t.Fatalf("hash: %v", err)
	}

	for _, altered := range []string{"secre", "ecret", "secrets", "xsecret", ""} {
		if Verify(altered, hash) {
			t.Fatalf("altered password %q accepted", altered)
		}
	}
}

func TestVerifyOpenRoom(t *testing.T) {
	if !Verify("", "") {
		t.Fatal("open room rejected empty password")
	}
	if !Verify("anything", "") {
		t.Fatal("open room rejected a supplied password")
	}
}

func TestServiceRunsOnWorkerPool(t *testing.T) {
	jobs := queue.NewManager(4, 2)
	defer jobs.Shutdown()

	svc := NewService(jobs)
	hash, err := svc.Hash("secret")
	if err != nil {
		t.Fatalf("hash: %v", err)
	}
	if !svc.Verify("secret", hash) {
		t.Fatal("correct password rejected")
	}
	if svc.Verify("wrong", hash) {
		t.Fatal("wrong password accepted")
	}
}
