package service

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"net/url"
	"sort"
	"strconv"
	"strings"
	"time"

	"telegram_tapper/internal/domain"
)

const (
	initDataMaxAge   = time.Hour
	initDataMaxSkew  = 5 * time.Minute
	webAppSecretSalt = "WebAppData"
)

var ErrInvalidInitData = errors.New("invalid or stale telegram data")

// ValidateTelegramInitData verifies a Telegram WebApp init_data string: the
// hash must match HMAC-SHA256 of the sorted data-check string under the bot
// key, and auth_date must be within the last hour.
func ValidateTelegramInitData(initData, botToken string, now time.Time) (url.Values, bool) {
	values, err := url.ParseQuery(initData)
	if err != nil {
		return nil, false
	}

	hash := values.Get("hash")
	if hash == "" {
		return nil, false
	}
	values.Del("hash")

	provided, err := hex.DecodeString(hash)
	if err != nil {
		return nil, false
	}
	if !hmac.Equal(initDataHash(values, botToken), provided) {
		return nil, false
	}

	authDate, err := strconv.ParseInt(values.Get("auth_date"), 10, 64)
	if err != nil {
		return nil, false
	}
	age := now.Sub(time.Unix(authDate, 0))
	if age > initDataMaxAge || age < -initDataMaxSkew {
		return nil, false
	}

	return values, true
}

func initDataHash(values url.Values, botToken string) []byte {
	var dataCheck []string
	for k, v := range values {
		dataCheck = append(dataCheck, k+"="+strings.Join(v, ""))
	}
	sort.Strings(dataCheck)

	key := hmac.New(sha256.New, []byte(webAppSecretSalt))
	key.Write([]byte(botToken))

	h := hmac.New(sha256.New, key.Sum(nil))
	h.Write([]byte(strings.Join(dataCheck, "\n")))
	return h.Sum(nil)
}

// TelegramProfileFromInitData validates init_data and decodes its user field.
func TelegramProfileFromInitData(initData, botToken string, now time.Time) (domain.TelegramProfile, error) {
	values, ok := ValidateTelegramInitData(initData, botToken, now)
	if !ok {
		return domain.TelegramProfile{}, ErrInvalidInitData
	}
	var profile domain.TelegramProfile
	if err := json.Unmarshal([]byte(values.Get("user")), &profile); err != nil || profile.ID == 0 {
		return domain.TelegramProfile{}, ErrInvalidInitData
	}
	return profile, nil
}
