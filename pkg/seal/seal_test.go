package seal

import (
	"errors"
	"strings"
	"testing"
)

var fast = Params{Memory: 1024, Iterations: 1, Threads: 1}

func newSealer(t *testing.T, pass string) *Sealer {
	t.Helper()
	s, err := NewWithParams(pass, fast)
	if err != nil {
		t.Fatalf("NewWithParams failed: %v", err)
	}
	return s
}

func TestSealOpen(t *testing.T) {
	s := newSealer(t, "correct horse")

	sealed, err := s.SealString("# secret\n- [ ] task")
	if err != nil {
		t.Fatalf("Seal failed: %v", err)
	}
	if !IsSealed(sealed) {
		t.Fatalf("expected sealed prefix, got %q", sealed)
	}
	if strings.Contains(sealed, "secret") || strings.Contains(sealed, "\n") {
		t.Errorf("sealed value leaks plaintext or spans lines: %q", sealed)
	}

	t.Run("same sealer", func(t *testing.T) {
		got, err := s.OpenString(sealed)
		if err != nil {
			t.Fatalf("Open failed: %v", err)
		}
		if got != "# secret\n- [ ] task" {
			t.Errorf("unexpected plaintext %q", got)
		}
	})

	t.Run("another sealer with the same passphrase", func(t *testing.T) {
		other := newSealer(t, "correct horse")
		if _, err := other.Open(sealed); err != nil {
			t.Errorf("Open failed: %v", err)
		}
	})

	t.Run("wrong passphrase", func(t *testing.T) {
		_, err := newSealer(t, "wrong").Open(sealed)
		if !errors.Is(err, ErrDecrypt) {
			t.Errorf("expected ErrDecrypt, got %v", err)
		}
	})

	t.Run("tampered payload", func(t *testing.T) {
		i := len(sealed) - 10
		c := byte('A')
		if sealed[i] == c {
			c = 'B'
		}
		tampered := sealed[:i] + string(c) + sealed[i+1:]
		if _, err := s.Open(tampered); err == nil {
			t.Error("expected error for tampered payload")
		}
	})

	t.Run("nonces differ", func(t *testing.T) {
		again, _ := s.SealString("# secret\n- [ ] task")
		if again == sealed {
			t.Error("sealing twice produced identical output")
		}
	})
}

func TestOpen_Malformed(t *testing.T) {
	s := newSealer(t, "pass")
	for _, in := range []string{
		"plain text",
		Prefix,
		Prefix + "m=1,t=1$x$y",
		Prefix + "m=1,t=1,p=1$!!$AAAA",
		Prefix + "m=0,t=1,p=1$AAAA$AAAA",
		Prefix + "m=1024,t=1,p=1$AAAAAAAAAAAAAAAAAAAAAA$AAAA",
	} {
		if _, err := s.Open(in); !errors.Is(err, ErrMalformed) {
			t.Errorf("Open(%q) = %v, want ErrMalformed", in, err)
		}
	}
}

func TestNew_EmptyPassphrase(t *testing.T) {
	if _, err := New(""); err == nil {
		t.Error("expected error for empty passphrase")
	}
}
