package rooms

import (
	"errors"
	"sync"
	"testing"

	"chat-relay/internal/protocol"
)

// plainVerifier stands in for the bcrypt service so registry tests do not
// pay bcrypt's deliberate slowness.
type plainVerifier struct{}

func (plainVerifier) Hash(plaintext string) (string, error) {
	return "plain:" + plaintext, nil
}

func (plainVerifier) Verify(plaintext, hash string) bool {
	if hash == "" {
		return true
	}
	return hash == "plain:"+plaintext
}

func newTestRegistry() *Registry {
	return NewRegistry(plainVerifier{})
}

func testMember(identity, username string, buffer int) (Member, chan *protocol.Envelope) {
	sink := make(chan *protocol.Envelope, buffer)
	return Member{Identity: identity, Username: username, Sink: sink}, sink
}

func expectEvent(t *testing.T, sink chan *protocol.Envelope, kind string) any {
	t.Helper()
	select {
	case env := <-sink:
		if env.Kind != kind {
			t.Fatalf("event kind = %q, want %q", env.Kind, kind)
		}
		payload, err := env.Payload()
		if err != nil {
			t.Fatalf("payload: %v", err)
		}
		return payload
	default:
		t.Fatalf("no event queued, want %q", kind)
		return nil
	}
}

func expectNoEvent(t *testing.T, sink chan *protocol.Envelope) {
	t.Helper()
	select {
	case env := <-sink:
		t.Fatalf("unexpected event %q", env.Kind)
	default:
	}
}

func TestMembershipCountsJoinsAndLeaves(t *testing.T) {
	reg := newTestRegistry()
	id, err := reg.Create("")
	if err != nil {
		t.Fatalf("create: %v", err)
	}

	names := []string{"alice", "bob", "carol"}
	for i, name := range names {
		m, _ := testMember(name+"-conn", name, 8)
		if err := reg.Join(id, "", m); err != nil {
			t.Fatalf("join %d: %v", i, err)
		}
	}
	if n, ok := reg.Members(id); !ok || n != 3 {
		t.Fatalf("members = %d,%v after 3 joins", n, ok)
	}

	reg.Leave(id, "carol-conn")
	if n, ok := reg.Members(id); !ok || n != 2 {
		t.Fatalf("members = %d,%v after 3 joins and 1 leave", n, ok)
	}

	// leaving twice is a no-op
	reg.Leave(id, "carol-conn")
	if n, _ := reg.Members(id); n != 2 {
		t.Fatalf("members = %d after duplicate leave", n)
	}
}

func TestJoinFailures(t *testing.T) {
	reg := newTestRegistry()
	id, err := reg.Create("secret")
	if err != nil {
		t.Fatalf("create: %v", err)
	}

	m, _ := testMember("c1", "alice", 8)
	if err := reg.Join("no-such-room", "secret", m); !errors.Is(err, ErrRoomNotFound) {
		t.Fatalf("join unknown room: %v, want ErrRoomNotFound", err)
	}
	if err := reg.Join(id, "wrong", m); !errors.Is(err, ErrBadPassword) {
		t.Fatalf("join with wrong password: %v, want ErrBadPassword", err)
	}
	if err := reg.Join(id, "", m); !errors.Is(err, ErrBadPassword) {
		t.Fatalf("join with missing password: %v, want ErrBadPassword", err)
	}

	if err := reg.Join(id, "secret", m); err != nil {
		t.Fatalf("join: %v", err)
	}
	dup, _ := testMember("c2", "alice", 8)
	if err := reg.Join(id, "secret", dup); !errors.Is(err, ErrUsernameTaken) {
		t.Fatalf("join with taken username: %v, want ErrUsernameTaken", err)
	}
}

func TestLastLeaveDeletesRoom(t *testing.T) {
	reg := newTestRegistry()
	id, err := reg.Create("secret")
	if err != nil {
		t.Fatalf("create: %v", err)
	}

	alice, _ := testMember("c1", "alice", 8)
	if err := reg.Join(id, "secret", alice); err != nil {
		t.Fatalf("join: %v", err)
	}
	reg.Leave(id, "c1")

	if _, ok := reg.Members(id); ok {
		t.Fatal("room still exists after last member left")
	}
	bob, _ := testMember("c2", "bob", 8)
	if err := reg.Join(id, "secret", bob); !errors.Is(err, ErrRoomNotFound) {
		t.Fatalf("join deleted room: %v, want ErrRoomNotFound", err)
	}
}

func TestSendRequiresMembership(t *testing.T) {
	reg := newTestRegistry()
	id, err := reg.Create("")
	if err != nil {
		t.Fatalf("create: %v", err)
	}

	if err := reg.Send("no-such-room", "c1", "hi"); !errors.Is(err, ErrRoomNotFound) {
		t.Fatalf("send to unknown room: %v, want ErrRoomNotFound", err)
	}

	alice, _ := testMember("c1", "alice", 8)
	if err := reg.Join(id, "", alice); err != nil {
		t.Fatalf("join: %v", err)
	}
	if err := reg.Send(id, "stranger", "hi"); !errors.Is(err, ErrNotAMember) {
		t.Fatalf("send as non-member: %v, want ErrNotAMember", err)
	}
}

func TestJoinNotifiesExistingMembersOnly(t *testing.T) {
	reg := newTestRegistry()
	id, _ := reg.Create("")

	alice, aliceSink := testMember("c1", "alice", 8)
	if err := reg.Join(id, "", alice); err != nil {
		t.Fatalf("join alice: %v", err)
	}
	expectNoEvent(t, aliceSink)

	bob, bobSink := testMember("c2", "bob", 8)
	if err := reg.Join(id, "", bob); err != nil {
		t.Fatalf("join bob: %v", err)
	}

	joined := expectEvent(t, aliceSink, protocol.KindUserJoined).(*protocol.UserJoinedEvent)
	if joined.Username != "bob" {
		t.Fatalf("user_joined for %q, want bob", joined.Username)
	}
	expectNoEvent(t, bobSink)
}

func TestLeaveNotifiesRemainingMembers(t *testing.T) {
	reg := newTestRegistry()
	id, _ := reg.Create("")

	alice, aliceSink := testMember("c1", "alice", 8)
	bob, bobSink := testMember("c2", "bob", 8)
	if err := reg.Join(id, "", alice); err != nil {
		t.Fatal(err)
	}
	if err := reg.Join(id, "", bob); err != nil {
		t.Fatal(err)
	}
	expectEvent(t, aliceSink, protocol.KindUserJoined)

	reg.Leave(id, "c2")

	left := expectEvent(t, aliceSink, protocol.KindUserLeft).(*protocol.UserLeftEvent)
	if left.Username != "bob" {
		t.Fatalf("user_left for %q, want bob", left.Username)
	}
	expectNoEvent(t, bobSink)
}

func TestSendOrderingPerRoom(t *testing.T) {
	reg := newTestRegistry()
	id, _ := reg.Create("")

	alice, aliceSink := testMember("c1", "alice", 8)
	bob, bobSink := testMember("c2", "bob", 8)
	if err := reg.Join(id, "", alice); err != nil {
		t.Fatal(err)
	}
	if err := reg.Join(id, "", bob); err != nil {
		t.Fatal(err)
	}
	expectEvent(t, aliceSink, protocol.KindUserJoined)

	if err := reg.Send(id, "c1", "m1"); err != nil {
		t.Fatalf("send m1: %v", err)
	}
	if err := reg.Send(id, "c1", "m2"); err != nil {
		t.Fatalf("send m2: %v", err)
	}

	for _, sink := range []chan *protocol.Envelope{aliceSink, bobSink} {
		first := expectEvent(t, sink, protocol.KindChat).(*protocol.ChatEvent)
		second := expectEvent(t, sink, protocol.KindChat).(*protocol.ChatEvent)
		if first.Text != "m1" || second.Text != "m2" {
			t.Fatalf("observed %q then %q, want m1 then m2", first.Text, second.Text)
		}
		if first.Username != "alice" || second.Username != "alice" {
			t.Fatalf("chat attributed to %q/%q, want alice", first.Username, second.Username)
		}
	}
}

func TestConcurrentJoinsSameUsername(t *testing.T) {
	reg := newTestRegistry()

	for i := 0; i < 50; i++ {
		id, _ := reg.Create("")
		anchor, _ := testMember("anchor", "anchor", 8)
		if err := reg.Join(id, "", anchor); err != nil {
			t.Fatal(err)
		}

		results := make(chan error, 2)
		var wg sync.WaitGroup
		for _, identity := range []string{"c1", "c2"} {
			wg.Add(1)
			go func(identity string) {
				defer wg.Done()
				m, _ := testMember(identity, "alice", 8)
				results <- reg.Join(id, "", m)
			}(identity)
		}
		wg.Wait()
		close(results)

		var ok, taken int
		for err := range results {
			switch {
			case err == nil:
				ok++
			case errors.Is(err, ErrUsernameTaken):
				taken++
			default:
				t.Fatalf("unexpected join error: %v", err)
			}
		}
		if ok != 1 || taken != 1 {
			t.Fatalf("got %d successes and %d ErrUsernameTaken, want 1 and 1", ok, taken)
		}
	}
}

func TestSlowMemberIsEvicted(t *testing.T) {
	reg := newTestRegistry()
	id, _ := reg.Create("")

	kicked := make(chan struct{})
	alice, aliceSink := testMember("c1", "alice", 8)
	bobSink := make(chan *protocol.Envelope, 1)
	bob := Member{
		Identity: "c2",
		Username: "bob",
		Sink:     bobSink,
		Kick:     func() { close(kicked) },
	}

	if err := reg.Join(id, "", alice); err != nil {
		t.Fatal(err)
	}
	if err := reg.Join(id, "", bob); err != nil {
		t.Fatal(err)
	}
	expectEvent(t, aliceSink, protocol.KindUserJoined)

	// first message fills bob's single-slot queue, second overflows it
	if err := reg.Send(id, "c1", "m1"); err != nil {
		t.Fatal(err)
	}
	if err := reg.Send(id, "c1", "m2"); err != nil {
		t.Fatal(err)
	}

	select {
	case <-kicked:
	default:
		t.Fatal("slow member was not kicked")
	}
	if n, _ := reg.Members(id); n != 1 {
		t.Fatalf("members = %d after eviction, want 1", n)
	}

	// alice keeps the full ordered stream, including bob's departure
	first := expectEvent(t, aliceSink, protocol.KindChat).(*protocol.ChatEvent)
	second := expectEvent(t, aliceSink, protocol.KindChat).(*protocol.ChatEvent)
	left := expectEvent(t, aliceSink, protocol.KindUserLeft).(*protocol.UserLeftEvent)
	if first.Text != "m1" || second.Text != "m2" || left.Username != "bob" {
		t.Fatalf("alice observed %q, %q, left=%q", first.Text, second.Text, left.Username)
	}

	// sending as the evicted member now fails
	if err := reg.Send(id, "c2", "late"); !errors.Is(err, ErrNotAMember) {
		t.Fatalf("send after eviction: %v, want ErrNotAMember", err)
	}
}
