package alerting

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/rs/zerolog"
)

// DingTalkNotifier 通过群机器人 webhook 推送 Markdown 告警。
type DingTalkNotifier struct {
	webhook string
	client  *http.Client
	logger  zerolog.Logger
}

// NewDingTalkNotifier 构造钉钉告警器。
func NewDingTalkNotifier(webhook string, timeout time.Duration, logger zerolog.Logger) *DingTalkNotifier {
	if timeout <= 0 {
		timeout = 10 * time.Second
	}

	return &DingTalkNotifier{
		webhook: webhook,
		client:  &http.Client{Timeout: timeout},
		logger:  logger.With().Str("component", "alert_dingtalk").Logger(),
	}
}

type dingTalkPayload struct {
	MsgType  string `json:"msgtype"`
	Markdown struct {
		Title string `json:"title"`
		Text  string `json:"text"`
	} `json:"markdown"`
}

type dingTalkResponse struct {
	ErrCode int    `json:"errcode"`
	ErrMsg  string `json:"errmsg"`
}

// Notify 调用 webhook 推送 Markdown 消息。
func (n *DingTalkNotifier) Notify(ctx context.Context, alert Alert) error {
	if n.webhook == "" {
		return errors.New("dingtalk webhook 未配置")
	}

	payload := dingTalkPayload{MsgType: "markdown"}
	payload.Markdown.Title = alert.Title()
	payload.Markdown.Text = renderMarkdown(alert)

	body, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("marshal dingtalk payload: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, n.webhook, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("create dingtalk request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := n.client.Do(req)
	if err != nil {
		return fmt.Errorf("send dingtalk request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return fmt.Errorf("dingtalk 响应码异常: %d", resp.StatusCode)
	}

	var result dingTalkResponse
	if err := json.NewDecoder(resp.Body).Decode(&result); err == nil {
		if result.ErrCode != 0 {
			msg := result.ErrMsg
			if msg == "" {
				msg = "未知错误"
			}
			return fmt.Errorf("dingtalk 返回 errcode=%d: %s", result.ErrCode, msg)
		}
	}

	n.logger.Info().
		Str("pair", alert.Pair).
		Str("kind", string(alert.Kind)).
		Msg("告警已发送 (钉钉)")
	return nil
}

var _ Notifier = (*DingTalkNotifier)(nil)
