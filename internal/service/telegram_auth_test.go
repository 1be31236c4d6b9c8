package service

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"net/url"
	"sort"
	"strconv"
	"strings"
	"testing"
	"time"
)

// buildInitData signs fields the way Telegram does for WebApp init_data.
func buildInitData(t *testing.T, botToken string, fields map[string]string) string {
	t.Helper()
	var parts []string
	for k, v := range fields {
		parts = append(parts, k+"="+v)
	}
	sort.Strings(parts)

	secret := hmac.New(sha256.New, []byte("WebAppData"))
	secret.Write([]byte(botToken))
	h := hmac.New(sha256.New, secret.Sum(nil))
	h.Write([]byte(strings.Join(parts, "\n")))

	vals := url.Values{}
	for k, v := range fields {
		vals.Add(k, v)
	}
	vals.Add("hash", hex.EncodeToString(h.Sum(nil)))
	return vals.Encode()
}

func TestValidateTelegramInitData_Valid(t *testing.T) {
	botToken := "test-bot-token"
	now := time.Now()
	initData := buildInitData(t, botToken, map[string]string{
		"auth_date": strconv.FormatInt(now.Unix(), 10),
		"user":      `{"id":1,"username":"u","first_name":"F","last_name":"L"}`,
	})

	profile, err := TelegramProfileFromInitData(initData, botToken, now)
	if err != nil {
		t.Fatalf("expected valid init data: %v", err)
	}
	if profile.ID != 1 || profile.Username != "u" || profile.FirstName != "F" || profile.LastName != "L" {
		t.Fatalf("profile = %+v", profile)
	}
}

func TestValidateTelegramInitData_Tampered(t *testing.T) {
	botToken := "test-bot-token"
	now := time.Now()
	initData := buildInitData(t, botToken, map[string]string{
		"auth_date": strconv.FormatInt(now.Unix(), 10),
		"user":      `{"id":1}`,
	})

	if _, ok := ValidateTelegramInitData(initData+"&x=1", botToken, now); ok {
		t.Fatalf("expected tampered init data to be invalid")
	}
	if _, ok := ValidateTelegramInitData(initData, "other-token", now); ok {
		t.Fatalf("expected wrong bot token to be rejected")
	}
}

func TestValidateTelegramInitData_Stale(t *testing.T) {
	botToken := "test-bot-token"
	now := time.Now()
	initData := buildInitData(t, botToken, map[string]string{
		"auth_date": strconv.FormatInt(now.Add(-2*time.Hour).Unix(), 10),
		"user":      `{"id":1}`,
	})

	if _, ok := ValidateTelegramInitData(initData, botToken, now); ok {
		t.Fatalf("expected stale init data to be invalid")
	}
}

func TestJWTRoundTrip(t *testing.T) {
	InitJWT("test-secret", time.Hour)
	id := mustPlayerID(t)

	token, err := GenerateJWT(id)
	if err != nil {
		t.Fatalf("generate: %v", err)
	}
	got, err := ParseJWT(token)
	if err != nil || got != id {
		t.Fatalf("parse: %v %v", got, err)
	}

	if _, err := ParseJWT(token + "x"); err == nil {
		t.Fatalf("expected tampered token to fail")
	}
}
