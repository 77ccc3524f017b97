package fetcher

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"

	"github.com/Lfy181/sea-daily-briefing/internal/monitor"
	"github.com/Lfy181/sea-daily-briefing/internal/platform/httpclient"
)

const defaultJuheBaseURL = "http://op.juhe.cn/onebox/exchange/currency"

// JuheOptions parameterise the Juhe onebox currency fetcher.
type JuheOptions struct {
	BaseURL         string
	APIKey          string
	Timeout         time.Duration
	RequestsPerSec  int
	MaxRetryElapsed time.Duration
}

// Juhe 通过聚合数据 onebox 汇率接口获取即时汇率。
type Juhe struct {
	opts    JuheOptions
	logger  zerolog.Logger
	client  *httpclient.Client
	baseURL string
}

// NewJuhe builds a Juhe-backed rate fetcher.
func NewJuhe(opts JuheOptions, logger zerolog.Logger) *Juhe {
	baseURL := strings.TrimRight(opts.BaseURL, "/")
	if baseURL == "" {
		baseURL = defaultJuheBaseURL
	}

	return &Juhe{
		opts:   opts,
		logger: logger.With().Str("component", "juhe_fetcher").Logger(),
		client: httpclient.New(httpclient.Options{
			Timeout:         opts.Timeout,
			RequestsPerSec:  opts.RequestsPerSec,
			MaxRetryElapsed: opts.MaxRetryElapsed,
		}),
		baseURL: baseURL,
	}
}

type juheResponse struct {
	ErrorCode int    `json:"error_code"`
	Reason    string `json:"reason"`
	Result    []struct {
		CurrencyFrom string `json:"currencyF"`
		CurrencyTo   string `json:"currencyT"`
		Exchange     string `json:"exchange"`
		UpdateTime   string `json:"updateTime"`
	} `json:"result"`
}

// FetchRate retrieves the pair's rate. Transport and API failures come back
// as OK=false; a nominally successful answer without a usable numeric rate
// comes back as OK=true, HasRate=false.
func (j *Juhe) FetchRate(ctx context.Context, pair monitor.Pair) monitor.FetchResult {
	res := monitor.FetchResult{Pair: pair, ObservedAt: time.Now().UTC()}

	if j.opts.APIKey == "" {
		res.Reason = "JUHE_API_KEY 未配置"
		return res
	}

	params := url.Values{}
	params.Set("key", j.opts.APIKey)
	params.Set("from", pair.Base)
	params.Set("to", pair.Quote)
	params.Set("version", "2")

	endpoint := j.baseURL + "?" + params.Encode()
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		res.Reason = fmt.Sprintf("build request: %v", err)
		return res
	}

	resp, err := j.client.Do(ctx, req)
	if err != nil {
		j.logger.Warn().Err(err).Str("pair", pair.String()).Msg("汇率请求失败")
		res.Reason = fmt.Sprintf("request failed: %v", err)
		return res
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		res.Reason = fmt.Sprintf("read response: %v", err)
		return res
	}
	if resp.StatusCode != http.StatusOK {
		res.Reason = fmt.Sprintf("unexpected status %d", resp.StatusCode)
		return res
	}

	var payload juheResponse
	if err := json.Unmarshal(body, &payload); err != nil {
		res.Reason = fmt.Sprintf("decode response: %v", err)
		return res
	}

	if payload.ErrorCode != 0 {
		reason := payload.Reason
		if reason == "" {
			reason = "未知错误"
		}
		res.Reason = fmt.Sprintf("api error %d: %s", payload.ErrorCode, reason)
		return res
	}

	// The API answered; from here on a missing rate is empty data, not a
	// fetch failure.
	res.OK = true

	if len(payload.Result) == 0 {
		res.Reason = "汇率数据为空"
		return res
	}

	first := payload.Result[0]
	res.UpdateTime = first.UpdateTime

	if strings.TrimSpace(first.Exchange) == "" {
		res.Reason = "exchange 字段缺失"
		return res
	}

	rate, err := decimal.NewFromString(strings.TrimSpace(first.Exchange))
	if err != nil {
		res.Reason = fmt.Sprintf("汇率格式无效: %q", first.Exchange)
		return res
	}

	res.Rate = rate
	res.HasRate = true

	j.logger.Debug().
		Str("pair", pair.String()).
		Str("rate", rate.String()).
		Str("update_time", first.UpdateTime).
		Msg("汇率获取成功")

	return res
}

var _ RateFetcher = (*Juhe)(nil)
