package server

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"aia-port/clock"
	"aia-port/config"
	"aia-port/log"
)

// syncRetryInterval 是两次请求时间源之间的间隔
var syncRetryInterval = time.Second

// SyncClock 从HTTP时间源的Date头同步时钟
// 参数:
//   - ctx: 取消时停止等待
//   - cfg: 配置信息，包含时间源地址和等待次数
//   - clk: 要同步的时钟
//
// 返回:
//   - error: 时间源一直不可用时返回错误
func SyncClock(ctx context.Context, cfg *config.Config, clk *clock.Clock) error {
	source := cfg.Clock.TimeSource
	if source == "" {
		return nil
	}

	log.Infof("等待时间源就绪，地址: %s...", source)
	client := &http.Client{Timeout: 5 * time.Second}
	for i := 0; i < cfg.Clock.Timeout; i++ {
		now, err := fetchDate(ctx, client, source)
		if err == nil {
			clk.Set(clock.FromTime(now))
			log.Infof("时钟已同步")
			return nil
		}
		log.Debugf("请求时间源失败: %v", err)

		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(syncRetryInterval):
		}
	}
	return fmt.Errorf("时间源不可用，地址: %s", source)
}

// fetchDate 请求时间源并解析响应的Date头
func fetchDate(ctx context.Context, client *http.Client, source string) (time.Time, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodHead, source, nil)
	if err != nil {
		return time.Time{}, err
	}
	resp, err := client.Do(req)
	if err != nil {
		return time.Time{}, err
	}
	resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return time.Time{}, fmt.Errorf("时间源返回状态码: %d", resp.StatusCode)
	}
	date := resp.Header.Get("Date")
	if date == "" {
		return time.Time{}, fmt.Errorf("时间源响应缺少Date头")
	}
	return http.ParseTime(date)
}
