package cryptoutil

import "testing"

func TestSHA256Hex_KnownVector(t *testing.T) {
	want := "e3b0c44298fc1c149afbf4c8996fb92427ae41e4649b934ca495991b7852b855"
	if got := SHA256Hex(nil); got != want {
		t.Fatalf("SHA256Hex(empty) = %q, want %q", got, want)
	}
}

func TestHashEqual(t *testing.T) {
	a := SHA256Hex([]byte("one"))
	if !HashEqual(a, a) {
		t.Fatal("equal hashes compared unequal")
	}
	if HashEqual(a, SHA256Hex([]byte("two"))) || HashEqual(a, "") {
		t.Fatal("different hashes compared equal")
	}
}
