package auth

import (
	"bytes"
	"encoding/base64"
	"errors"
	"testing"
	"time"
)

var testKey = bytes.Repeat([]byte{7}, KeySize)

type fakeClock struct{ t time.Time }

func (c *fakeClock) Now() time.Time { return c.t }

func newTestProtector(t *testing.T) (*Protector, *fakeClock) {
	t.Helper()
	clock := &fakeClock{t: time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)}
	p, err := NewProtectorWithNow(testKey, clock.Now)
	if err != nil {
		t.Fatalf("NewProtectorWithNow: %v", err)
	}
	return p, clock
}

func TestNewProtector_KeySize(t *testing.T) {
	if _, err := NewProtector([]byte("short")); !errors.Is(err, ErrKeySize) {
		t.Fatalf("expected ErrKeySize, got %v", err)
	}
	if _, err := NewProtector(testKey); err != nil {
		t.Fatalf("NewProtector: %v", err)
	}
}

func TestProtector_IssueAndVerify(t *testing.T) {
	p, _ := newTestProtector(t)

	pair, err := p.IssuePair(time.Hour)
	if err != nil {
		t.Fatalf("IssuePair: %v", err)
	}
	if pair.Token == "" || pair.Cookie == "" {
		t.Fatalf("expected non-empty pair: %+v", pair)
	}
	if err := p.VerifyCookie(pair.Cookie); err != nil {
		t.Fatalf("VerifyCookie: %v", err)
	}
	if err := p.VerifyPair(pair.Token, pair.Cookie); err != nil {
		t.Fatalf("VerifyPair: %v", err)
	}
}

func TestProtector_PairsAreUnique(t *testing.T) {
	p, _ := newTestProtector(t)
	a, err := p.IssuePair(time.Hour)
	if err != nil {
		t.Fatalf("IssuePair: %v", err)
	}
	b, err := p.IssuePair(time.Hour)
	if err != nil {
		t.Fatalf("IssuePair: %v", err)
	}
	if a.Token == b.Token || a.Cookie == b.Cookie {
		t.Fatalf("expected distinct pairs")
	}
	if err := p.VerifyPair(a.Token, b.Cookie); !errors.Is(err, ErrMismatch) {
		t.Fatalf("expected ErrMismatch, got %v", err)
	}
}

func TestProtector_Expiry(t *testing.T) {
	p, clock := newTestProtector(t)
	pair, err := p.IssuePair(10 * time.Second)
	if err != nil {
		t.Fatalf("IssuePair: %v", err)
	}

	clock.t = clock.t.Add(9 * time.Second)
	if err := p.VerifyCookie(pair.Cookie); err != nil {
		t.Fatalf("expected cookie valid before ttl, got %v", err)
	}

	clock.t = clock.t.Add(time.Second)
	if err := p.VerifyCookie(pair.Cookie); !errors.Is(err, ErrExpired) {
		t.Fatalf("expected ErrExpired, got %v", err)
	}
}

func TestProtector_InvalidTTL(t *testing.T) {
	p, _ := newTestProtector(t)
	for _, ttl := range []time.Duration{0, -time.Second} {
		if _, err := p.IssuePair(ttl); !errors.Is(err, ErrInvalidTTL) {
			t.Fatalf("ttl %s: expected ErrInvalidTTL, got %v", ttl, err)
		}
	}
}

func TestProtector_SingleByteMutationIsForged(t *testing.T) {
	p, _ := newTestProtector(t)
	pair, err := p.IssuePair(time.Hour)
	if err != nil {
		t.Fatalf("IssuePair: %v", err)
	}
	raw, err := base64.RawURLEncoding.DecodeString(pair.Cookie)
	if err != nil {
		t.Fatalf("decode: %v", err)
	}

	for i := range raw {
		mutated := append([]byte(nil), raw...)
		mutated[i] ^= 0x80
		err := p.VerifyCookie(base64.RawURLEncoding.EncodeToString(mutated))
		if !errors.Is(err, ErrForged) {
			t.Fatalf("byte %d: expected ErrForged, got %v", i, err)
		}
	}
}

func TestProtector_WrongKeyIsForged(t *testing.T) {
	p, _ := newTestProtector(t)
	pair, err := p.IssuePair(time.Hour)
	if err != nil {
		t.Fatalf("IssuePair: %v", err)
	}

	other, err := NewProtector(bytes.Repeat([]byte{9}, KeySize))
	if err != nil {
		t.Fatalf("NewProtector: %v", err)
	}
	if err := other.VerifyCookie(pair.Cookie); !errors.Is(err, ErrForged) {
		t.Fatalf("expected ErrForged, got %v", err)
	}
}

func TestProtector_Malformed(t *testing.T) {
	p, _ := newTestProtector(t)
	for _, c := range []string{"", "not base64!", base64.RawURLEncoding.EncodeToString([]byte("short"))} {
		if err := p.VerifyCookie(c); !errors.Is(err, ErrMalformed) {
			t.Fatalf("%q: expected ErrMalformed, got %v", c, err)
		}
	}
}
