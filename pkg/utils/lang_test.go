package utils

import (
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestRequestLang(t *testing.T) {
	tests := []struct {
		name   string
		target string
		accept string
		want   string
	}{
		{name: "default", target: "/", want: "en"},
		{name: "query wins", target: "/?lang=ja", accept: "ko", want: "ja"},
		{name: "query region stripped", target: "/?lang=zh-TW", want: "zh"},
		{name: "accept language", target: "/", accept: "ko-KR,ko;q=0.9,en;q=0.5", want: "ko"},
		{name: "unsupported accept falls back", target: "/", accept: "fr-FR", want: "en"},
		{name: "bad query ignored", target: "/?lang=!!", accept: "ja", want: "ja"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := httptest.NewRequest("GET", tt.target, nil)
			if tt.accept != "" {
				r.Header.Set("Accept-Language", tt.accept)
			}
			assert.Equal(t, tt.want, RequestLang(r, "en"))
		})
	}
}
