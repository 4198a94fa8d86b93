package response

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
)

func TestErrorMirrorsHTTPStatus(t *testing.T) {
	gin.SetMode(gin.TestMode)
	cases := []struct {
		code int
		want int
	}{
		{code: CodeBadRequest, want: http.StatusBadRequest},
		{code: CodeForbidden, want: http.StatusForbidden},
		{code: CodeConflict, want: http.StatusConflict},
		{code: CodeUnprocessableEntity, want: http.StatusUnprocessableEntity},
		{code: CodeTooManyRequests, want: http.StatusTooManyRequests},
		{code: 1001, want: http.StatusOK},
	}
	for _, tc := range cases {
		w := httptest.NewRecorder()
		c, _ := gin.CreateTestContext(w)
		c.Set("request_id", "req-1")
		Error(c, tc.code, "boom")
		if w.Code != tc.want {
			t.Fatalf("code %d: want http %d got %d", tc.code, tc.want, w.Code)
		}
		var body struct {
			StatusCode int               `json:"status_code"`
			Msg        string            `json:"msg"`
			Data       map[string]string `json:"data"`
		}
		if err := json.Unmarshal(w.Body.Bytes(), &body); err != nil {
			t.Fatalf("decode body: %v", err)
		}
		if body.StatusCode != tc.code || body.Msg != "boom" || body.Data["request_id"] != "req-1" {
			t.Fatalf("unexpected body: %+v", body)
		}
	}
}

func TestSuccessEnvelope(t *testing.T) {
	gin.SetMode(gin.TestMode)
	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)
	SuccessWithPage(c, []int{1, 2}, Pagination{Page: 1, PageSize: 2, Total: 3, TotalPage: 2})
	if w.Code != http.StatusOK {
		t.Fatalf("want 200 got %d", w.Code)
	}
	var body PageResponse
	if err := json.Unmarshal(w.Body.Bytes(), &body); err != nil {
		t.Fatalf("decode body: %v", err)
	}
	if body.StatusCode != CodeOK || body.Pagination.Total != 3 {
		t.Fatalf("unexpected body: %+v", body)
	}
}
