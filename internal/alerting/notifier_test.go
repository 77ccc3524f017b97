package alerting

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"

	"github.com/Lfy181/sea-daily-briefing/internal/monitor"
)

func testLogger() zerolog.Logger {
	return zerolog.Nop()
}

func sampleAlert() Alert {
	prev := decimal.RequireFromString("7.85")
	next := decimal.RequireFromString("8.34")
	change := decimal.RequireFromString("6.2420382165605096")
	return Alert{
		Pair:         "CNY/PHP",
		Kind:         monitor.KindExcessiveMovement,
		PrevRate:     &prev,
		NewRate:      &next,
		ChangePct:    &change,
		ThresholdPct: decimal.NewFromInt(5),
		Reason:       "汇率波动过大",
		ObservedAt:   time.Date(2026, 8, 24, 9, 0, 0, 0, time.UTC),
	}
}

func TestDingTalkNotifierSuccess(t *testing.T) {
	var received dingTalkPayload
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if err := json.NewDecoder(r.Body).Decode(&received); err != nil {
			t.Fatalf("解析请求体失败: %v", err)
		}
		_ = json.NewEncoder(w).Encode(map[string]any{"errcode": 0, "errmsg": "ok"})
	}))
	defer srv.Close()

	notifier := NewDingTalkNotifier(srv.URL, time.Second, testLogger())
	if err := notifier.Notify(context.Background(), sampleAlert()); err != nil {
		t.Fatalf("DingTalk Notify 应成功: %v", err)
	}

	if received.MsgType != "markdown" {
		t.Fatalf("msgtype 应为 markdown, 实际 %q", received.MsgType)
	}
	if !strings.Contains(received.Markdown.Title, "CNY/PHP") {
		t.Fatalf("标题应包含货币对, 实际 %q", received.Markdown.Title)
	}
	for _, want := range []string{"7.85", "8.34", "+6.24%", "5%"} {
		if !strings.Contains(received.Markdown.Text, want) {
			t.Fatalf("正文应包含 %q, 实际:\n%s", want, received.Markdown.Text)
		}
	}
}

func TestDingTalkNotifierErrCode(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_ = json.NewEncoder(w).Encode(map[string]any{"errcode": 310000, "errmsg": "keywords not in content"})
	}))
	defer srv.Close()

	notifier := NewDingTalkNotifier(srv.URL, time.Second, testLogger())
	if err := notifier.Notify(context.Background(), sampleAlert()); err == nil {
		t.Fatal("errcode != 0 应报错")
	}
}

func TestDingTalkNotifierMissingWebhook(t *testing.T) {
	notifier := NewDingTalkNotifier("", time.Second, testLogger())
	if err := notifier.Notify(context.Background(), sampleAlert()); err == nil {
		t.Fatal("未配置 webhook 应报错")
	}
}

func TestTelegramNotifierSuccess(t *testing.T) {
	received := make(map[string]string)
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if !strings.Contains(r.URL.Path, "sendMessage") {
			t.Fatalf("路径应包含 sendMessage, 实际 %s", r.URL.Path)
		}
		if err := json.NewDecoder(r.Body).Decode(&received); err != nil {
			t.Fatalf("解析请求体失败: %v", err)
		}
		_ = json.NewEncoder(w).Encode(map[string]any{"ok": true})
	}))
	defer srv.Close()

	notifier := NewTelegramNotifier("token", "chat", srv.URL, time.Second, testLogger())
	if err := notifier.Notify(context.Background(), sampleAlert()); err != nil {
		t.Fatalf("Telegram Notify 应成功: %v", err)
	}

	if received["chat_id"] != "chat" {
		t.Fatalf("chat_id 不正确: %#v", received)
	}
	if received["text"] == "" {
		t.Fatalf("text 应非空")
	}
}

func TestTelegramNotifierError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		_ = json.NewEncoder(w).Encode(map[string]any{"ok": false})
	}))
	defer srv.Close()

	notifier := NewTelegramNotifier("token", "chat", srv.URL, time.Second, testLogger())
	if err := notifier.Notify(context.Background(), sampleAlert()); err == nil {
		t.Fatal("ok=false 应报错")
	}
}

type recordingNotifier struct {
	alerts []Alert
	err    error
}

func (r *recordingNotifier) Notify(ctx context.Context, alert Alert) error {
	r.alerts = append(r.alerts, alert)
	return r.err
}

func TestFanoutDeliversToAllChannels(t *testing.T) {
	first := &recordingNotifier{}
	second := &recordingNotifier{err: errors.New("boom")}

	fanout := NewFanout()
	fanout.Register("dingtalk", first)
	fanout.Register("telegram", second)

	err := fanout.Notify(context.Background(), sampleAlert())
	if err == nil {
		t.Fatal("单个通道失败应向上汇报")
	}
	if len(first.alerts) != 1 || len(second.alerts) != 1 {
		t.Fatalf("失败通道不应阻断其余通道, 实际 %d/%d", len(first.alerts), len(second.alerts))
	}
	if got := fanout.Channels(); len(got) != 2 || got[0] != "dingtalk" || got[1] != "telegram" {
		t.Fatalf("通道顺序应为注册顺序, 实际 %v", got)
	}
}

func TestRenderMarkdownAbsentFields(t *testing.T) {
	alert := Alert{
		Pair:         "CNY/PHP",
		Kind:         monitor.KindFetchFailed,
		ThresholdPct: decimal.NewFromInt(5),
		Reason:       "汇率获取失败: request failed",
		ObservedAt:   time.Now(),
	}

	text := renderMarkdown(alert)
	for _, want := range []string{"获取失败", "无", "n/a"} {
		if !strings.Contains(text, want) {
			t.Fatalf("缺失字段应有占位符 %q, 实际:\n%s", want, text)
		}
	}
}
