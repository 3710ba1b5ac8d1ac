package verification

import (
	"strings"
	"testing"
	"time"
)

func TestGenerate_Shape(t *testing.T) {
	seen := map[string]bool{}
	for i := 0; i < 50; i++ {
		code, err := Generate()
		if err != nil {
			t.Fatalf("Generate: %v", err)
		}
		if len(code) != 12 {
			t.Fatalf("code %q: len = %d, want 12", code, len(code))
		}
		if code != strings.ToUpper(code) {
			t.Errorf("code %q is not uppercase", code)
		}
		for _, c := range code {
			if !strings.ContainsRune("0123456789ABCDEF", c) {
				t.Fatalf("code %q contains non-hex rune %q", code, c)
			}
		}
		seen[code] = true
	}
	if len(seen) < 45 {
		t.Errorf("only %d distinct codes out of 50; randomness suspect", len(seen))
	}
}

func TestEqual(t *testing.T) {
	code, err := Generate()
	if err != nil {
		t.Fatalf("Generate: %v", err)
	}
	hash := Hash(code)
	if !Equal(code, hash) {
		t.Error("Equal should match code against its own hash")
	}
	if Equal("000000000000", hash) {
		t.Error("Equal should reject a different code")
	}
}

func TestCheck(t *testing.T) {
	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	code := "A1B2C3D4E5F6"
	hash := Hash(code)
	live := now.Add(time.Hour)
	past := now.Add(-time.Minute)

	testCases := []struct {
		name      string
		hash      string
		expiresAt *time.Time
		supplied  string
		want      Result
	}{
		{"ok", hash, &live, code, ResultOK},
		{"ok lowercase supplied", hash, &live, strings.ToLower(code), ResultOK},
		{"ok surrounding space", hash, &live, " " + code + " ", ResultOK},
		{"absent no hash", "", nil, code, ResultAbsent},
		{"absent no expiry", hash, nil, code, ResultAbsent},
		{"mismatched", hash, &live, "FFFFFFFFFFFF", ResultMismatched},
		{"expired", hash, &past, code, ResultExpired},
		{"boundary not expired", hash, &now, code, ResultOK},
	}
	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			if got := Check(tc.hash, tc.expiresAt, tc.supplied, now); got != tc.want {
				t.Errorf("Check = %v, want %v", got, tc.want)
			}
		})
	}
}

func TestIssuer_Issue(t *testing.T) {
	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	iss := Issuer{TTL: 24 * time.Hour, Now: func() time.Time { return now }}

	code, hash, expiresAt, err := iss.Issue()
	if err != nil {
		t.Fatalf("Issue: %v", err)
	}
	if Hash(code) != hash {
		t.Error("returned hash does not match returned code")
	}
	if !expiresAt.Equal(now.Add(24 * time.Hour)) {
		t.Errorf("expiresAt = %v, want now+24h", expiresAt)
	}
}

func TestIssuer_DefaultTTL(t *testing.T) {
	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	iss := Issuer{Now: func() time.Time { return now }}
	_, _, expiresAt, err := iss.Issue()
	if err != nil {
		t.Fatalf("Issue: %v", err)
	}
	if !expiresAt.Equal(now.Add(24 * time.Hour)) {
		t.Errorf("expiresAt = %v, want 24h default", expiresAt)
	}
}

func TestIssuer_ReissueSupersedes(t *testing.T) {
	iss := Issuer{TTL: time.Hour}
	code1, hash1, _, err := iss.Issue()
	if err != nil {
		t.Fatalf("Issue: %v", err)
	}
	_, hash2, _, err := iss.Issue()
	if err != nil {
		t.Fatalf("Issue: %v", err)
	}
	// After re-issue the stored hash is hash2; the old code must not validate.
	if Equal(code1, hash2) && hash1 != hash2 {
		t.Error("old code validates against the superseding hash")
	}
}
