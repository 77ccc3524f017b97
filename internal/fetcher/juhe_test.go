package fetcher

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"

	"github.com/Lfy181/sea-daily-briefing/internal/monitor"
)

var phpPair = monitor.Pair{Base: "CNY", Quote: "PHP"}

func noopLogger() zerolog.Logger {
	return zerolog.Nop()
}

func newTestJuhe(baseURL string) *Juhe {
	return NewJuhe(JuheOptions{
		BaseURL:         baseURL,
		APIKey:          "test-key",
		Timeout:         time.Second,
		RequestsPerSec:  100,
		MaxRetryElapsed: time.Second,
	}, noopLogger())
}

func TestJuheFetchMissingAPIKey(t *testing.T) {
	j := NewJuhe(JuheOptions{}, noopLogger())
	res := j.FetchRate(context.Background(), phpPair)
	if res.OK {
		t.Fatal("未配置 key 时应为 FetchFailed 结果")
	}
	if res.Reason == "" {
		t.Fatal("应携带失败原因")
	}
}

func TestJuheFetchSuccess(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		q := r.URL.Query()
		if q.Get("from") != "CNY" || q.Get("to") != "PHP" {
			t.Fatalf("请求参数不正确: %s", r.URL.RawQuery)
		}
		if q.Get("version") != "2" {
			t.Fatalf("应使用 version=2, 实际 %s", q.Get("version"))
		}
		_ = json.NewEncoder(w).Encode(map[string]any{
			"error_code": 0,
			"reason":     "查询成功",
			"result": []map[string]string{
				{"currencyF": "CNY", "currencyT": "PHP", "exchange": "7.85", "updateTime": "2026-08-24 09:00:00"},
			},
		})
	}))
	defer srv.Close()

	res := newTestJuhe(srv.URL).FetchRate(context.Background(), phpPair)
	if !res.OK || !res.HasRate {
		t.Fatalf("成功响应应携带汇率, 实际 %+v", res)
	}
	if !res.Rate.Equal(decimal.RequireFromString("7.85")) {
		t.Fatalf("期望汇率 7.85, 实际 %s", res.Rate)
	}
	if res.UpdateTime != "2026-08-24 09:00:00" {
		t.Fatalf("应透传 updateTime, 实际 %q", res.UpdateTime)
	}
	if res.ObservedAt.IsZero() {
		t.Fatal("应记录观测时间")
	}
}

func TestJuheFetchAPIError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_ = json.NewEncoder(w).Encode(map[string]any{
			"error_code": 10012,
			"reason":     "超过每日可允许请求次数",
		})
	}))
	defer srv.Close()

	res := newTestJuhe(srv.URL).FetchRate(context.Background(), phpPair)
	if res.OK {
		t.Fatal("error_code != 0 应为 FetchFailed 结果")
	}
	if res.HasRate {
		t.Fatal("失败结果不应携带汇率")
	}
}

func TestJuheFetchEmptyResult(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_ = json.NewEncoder(w).Encode(map[string]any{
			"error_code": 0,
			"result":     []any{},
		})
	}))
	defer srv.Close()

	res := newTestJuhe(srv.URL).FetchRate(context.Background(), phpPair)
	if !res.OK {
		t.Fatal("API 正常应答时应为 OK")
	}
	if res.HasRate {
		t.Fatal("空 result 不应携带汇率")
	}
}

func TestJuheFetchMissingExchangeField(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_ = json.NewEncoder(w).Encode(map[string]any{
			"error_code": 0,
			"result": []map[string]string{
				{"currencyF": "CNY", "currencyT": "PHP", "updateTime": "2026-08-24 09:00:00"},
			},
		})
	}))
	defer srv.Close()

	res := newTestJuhe(srv.URL).FetchRate(context.Background(), phpPair)
	if !res.OK || res.HasRate {
		t.Fatalf("缺失 exchange 字段应为空数据结果, 实际 %+v", res)
	}
}

func TestJuheFetchMalformedRate(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_ = json.NewEncoder(w).Encode(map[string]any{
			"error_code": 0,
			"result": []map[string]string{
				{"exchange": "not-a-number"},
			},
		})
	}))
	defer srv.Close()

	res := newTestJuhe(srv.URL).FetchRate(context.Background(), phpPair)
	if !res.OK || res.HasRate {
		t.Fatalf("无法解析的汇率应为空数据结果, 实际 %+v", res)
	}
}

func TestJuheFetchHTTPError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusForbidden)
	}))
	defer srv.Close()

	res := newTestJuhe(srv.URL).FetchRate(context.Background(), phpPair)
	if res.OK {
		t.Fatal("HTTP 403 应为 FetchFailed 结果")
	}
}
