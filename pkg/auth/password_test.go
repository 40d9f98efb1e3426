package auth

import "testing"

func TestHashAndCheckPassword(t *testing.T) {
	digest, err := HashPassword("correct horse battery staple")
	if err != nil {
		t.Fatalf("auth:password_test - hash: %v", err)
	}
	if digest == "correct horse battery staple" {
		t.Fatal("auth:password_test - digest must not equal the plaintext")
	}

	if !CheckPassword(digest, "correct horse battery staple") {
		t.Error("auth:password_test - correct password rejected")
	}
	if CheckPassword(digest, "wrong password") {
		t.Error("auth:password_test - wrong password accepted")
	}
}

func TestHashPassword_DistinctSalts(t *testing.T) {
	first, err := HashPassword("same password")
	if err != nil {
		t.Fatalf("auth:password_test - hash: %v", err)
	}
	second, err := HashPassword("same password")
	if err != nil {
		t.Fatalf("auth:password_test - hash: %v", err)
	}
	if first == second {
		t.Error("auth:password_test - two digests of the same password must differ")
	}
}

func TestCheckPassword_InvalidDigest(t *testing.T) {
	if CheckPassword("not-a-bcrypt-digest", "anything") {
		t.Error("auth:password_test - invalid digest accepted")
	}
}
