package auth

import "testing"

func TestSession_RequireAuth(t *testing.T) {
	prompted := 0
	s := NewSession("  ", func() bool {
		prompted++
		return false
	})

	if s.IsAuthenticated() {
		t.Fatal("blank token should not authenticate")
	}
	if s.RequireAuth() {
		t.Fatal("RequireAuth = true, want false when prompt denies")
	}
	if prompted != 1 {
		t.Fatalf("prompted = %d, want 1", prompted)
	}

	s.SetToken("tok")
	if !s.RequireAuth() {
		t.Fatal("RequireAuth = false, want true with token")
	}
	if prompted != 1 {
		t.Fatalf("prompt should not run when authenticated, prompted = %d", prompted)
	}
}

func TestSession_NilPromptDenies(t *testing.T) {
	s := NewSession("", nil)
	if s.RequireAuth() {
		t.Fatal("RequireAuth = true, want false")
	}
}
