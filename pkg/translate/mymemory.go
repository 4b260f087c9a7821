package translate

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/go-resty/resty/v2"
	"github.com/tidwall/gjson"
)

const defaultMyMemoryBase = "https://api.mymemory.translated.net"

// MyMemoryBackend uses the free MyMemory API. No key is needed; an email
// raises the daily quota.
type MyMemoryBackend struct {
	client *resty.Client
	email  string
}

func NewMyMemoryBackend(apiBase, email string, timeout time.Duration) *MyMemoryBackend {
	if apiBase == "" {
		apiBase = defaultMyMemoryBase
	}
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	client := resty.New().
		SetBaseURL(apiBase).
		SetTimeout(timeout).
		SetHeader("Accept", "application/json")
	return &MyMemoryBackend{client: client, email: email}
}

func (b *MyMemoryBackend) Name() string { return "mymemory" }

func (b *MyMemoryBackend) Translate(ctx context.Context, text, source, target string) (string, error) {
	from := source
	if baseLanguage(source) == "" {
		from = "Autodetect"
	}

	params := map[string]string{
		"q":        text,
		"langpair": from + "|" + target,
	}
	if b.email != "" {
		params["de"] = b.email
	}

	resp, err := b.client.R().
		SetContext(ctx).
		SetQueryParams(params).
		Get("/get")
	if err != nil {
		return "", fmt.Errorf("mymemory request: %w", err)
	}
	if resp.IsError() {
		return "", fmt.Errorf("mymemory HTTP %d: %s", resp.StatusCode(), resp.String())
	}

	body := resp.Body()
	if !gjson.ValidBytes(body) {
		return "", errors.New("mymemory returned invalid JSON")
	}
	// responseStatus is sometimes a number and sometimes a string.
	if status := gjson.GetBytes(body, "responseStatus").Int(); status != 200 {
		return "", fmt.Errorf("mymemory status %d: %s", status, gjson.GetBytes(body, "responseDetails").String())
	}
	translated := gjson.GetBytes(body, "responseData.translatedText").String()
	if translated == "" {
		return "", errors.New("mymemory returned an empty translation")
	}
	return translated, nil
}
