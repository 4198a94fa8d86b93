package i18n

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
)

func TestCatalogsHaveSameKeys(t *testing.T) {
	for key := range zhCNMessages {
		if _, ok := enUSMessages[key]; !ok {
			t.Fatalf("en-US catalog missing key %s", key)
		}
	}
	for key := range enUSMessages {
		if _, ok := zhCNMessages[key]; !ok {
			t.Fatalf("zh-CN catalog missing key %s", key)
		}
	}
}

func TestTFallback(t *testing.T) {
	if got := T(LocaleEN, "error.order_not_found"); got != "Order not found" {
		t.Fatalf("unexpected en message: %s", got)
	}
	if got := T("fr-FR", "error.order_not_found"); got != zhCNMessages["error.order_not_found"] {
		t.Fatalf("unknown locale should fall back to default, got %s", got)
	}
	if got := T(LocaleEN, "error.not_a_key"); got != "error.not_a_key" {
		t.Fatalf("missing key should echo key, got %s", got)
	}
	if got := Sprintf(LocaleEN, "error.rate_limited", 30); got != "Too many requests, retry in 30 seconds" {
		t.Fatalf("unexpected formatted message: %s", got)
	}
}

func TestResolveLocale(t *testing.T) {
	gin.SetMode(gin.TestMode)
	cases := []struct {
		name   string
		url    string
		header string
		want   string
	}{
		{name: "default", url: "/", want: LocaleZH},
		{name: "english header", url: "/", header: "en-GB,en;q=0.9", want: LocaleEN},
		{name: "chinese header", url: "/", header: "zh-CN,zh;q=0.9,en;q=0.5", want: LocaleZH},
		{name: "query wins", url: "/?lang=en", header: "zh-CN", want: LocaleEN},
		{name: "garbage header", url: "/", header: ";;;", want: LocaleZH},
	}
	for _, tc := range cases {
		w := httptest.NewRecorder()
		c, _ := gin.CreateTestContext(w)
		c.Request = httptest.NewRequest(http.MethodGet, tc.url, nil)
		if tc.header != "" {
			c.Request.Header.Set("Accept-Language", tc.header)
		}
		if got := ResolveLocale(c); got != tc.want {
			t.Fatalf("%s: want %s got %s", tc.name, tc.want, got)
		}
	}
}
