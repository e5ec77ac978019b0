// internal/auth/session_test.go
package auth

import (
	"testing"

	"github.com/google/uuid"
	"github.com/lunaveil/seance/internal/models"
)

// TestJWTRoundTrip checks a minted token carries the full identity triple back.
func TestJWTRoundTrip(t *testing.T) {
	Init()

	want := models.Participant{
		UID:        uuid.New(),
		Username:   "medium",
		AvatarSeed: "deadbeef",
	}
	token, err := CreateJWT(want)
	if err != nil {
		t.Fatalf("failed to create JWT: %v", err)
	}

	got, err := AuthenticateJWT(token)
	if err != nil {
		t.Fatalf("failed to authenticate JWT: %v", err)
	}
	if got != want {
		t.Fatalf("identity mismatch: want %+v got %+v", want, got)
	}
}

func TestAuthenticateJWTRejectsGarbage(t *testing.T) {
	Init()
	if _, err := AuthenticateJWT("not-a-token"); err == nil {
		t.Fatalf("expected error for malformed token")
	}
}

// TestDefaultParallelismNeverZero guards the single-CPU case: argon2.IDKey
// panics when the thread count is zero.
func TestDefaultParallelismNeverZero(t *testing.T) {
	if Params.parallelism < 1 {
		t.Fatalf("default parallelism must be at least 1, got %d", Params.parallelism)
	}
}

func TestPasswordHashRoundTrip(t *testing.T) {
	hash, err := CreateHash("s3cret", Params)
	if err != nil {
		t.Fatalf("failed to hash: %v", err)
	}

	ok, err := ComparePasswordAndHash("s3cret", hash)
	if err != nil {
		t.Fatalf("compare failed: %v", err)
	}
	if !ok {
		t.Fatalf("correct password rejected")
	}

	ok, err = ComparePasswordAndHash("wrong", hash)
	if err != nil {
		t.Fatalf("compare failed: %v", err)
	}
	if ok {
		t.Fatalf("wrong password accepted")
	}
}
