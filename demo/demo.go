// Package demo 按顺序演示告警表和本地存储的各项操作。
package demo

import (
	"context"
	"fmt"
	"time"

	"aia-port/alert"
	"aia-port/clock"
	"aia-port/log"
	"aia-port/model"
	"aia-port/storage"
	"aia-port/utils"
)

// Case 是一个演示用例
type Case int

const (
	CaseStoreAlert Case = iota
	CaseListAlerts
	CaseUpdateAlert
	CaseDeleteAlert
	CaseSyncTime
	CaseVolume
)

var caseNames = []string{
	CaseStoreAlert:  "store_alert",
	CaseListAlerts:  "list_alerts",
	CaseUpdateAlert: "update_alert",
	CaseDeleteAlert: "delete_alert",
	CaseSyncTime:    "sync_time",
	CaseVolume:      "volume",
}

func (c Case) String() string {
	if c >= 0 && int(c) < len(caseNames) {
		return caseNames[c]
	}
	return fmt.Sprintf("case(%d)", int(c))
}

// AllCases 返回全部用例，按默认顺序排列
func AllCases() []Case {
	cases := make([]Case, len(caseNames))
	for i := range cases {
		cases[i] = Case(i)
	}
	return cases
}

// ParseCases 将名称列表转换为用例，为空时返回全部用例
func ParseCases(names []string) ([]Case, error) {
	if len(names) == 0 {
		return AllCases(), nil
	}
	cases := make([]Case, 0, len(names))
	for _, name := range names {
		found := false
		for i, n := range caseNames {
			if n == name {
				cases = append(cases, Case(i))
				found = true
				break
			}
		}
		if !found {
			return nil, fmt.Errorf("未知的演示用例: %s", name)
		}
	}
	return cases, nil
}

// syncOffset 是sync_time用例把时钟向前调整的时间
const syncOffset = time.Hour

// Runner 依次执行演示用例
type Runner struct {
	store *alert.SyncStore
	port  *storage.Port
	clock *clock.Clock
	cases []Case
	delay time.Duration

	// token 是演示告警的令牌，在store_alert中生成
	token string
}

// NewRunner 创建演示流程
func NewRunner(store *alert.SyncStore, port *storage.Port, clk *clock.Clock, cases []Case, delay time.Duration) *Runner {
	return &Runner{
		store: store,
		port:  port,
		clock: clk,
		cases: cases,
		delay: delay,
	}
}

// Run 执行所有用例，遇到错误或ctx被取消时停止
func (r *Runner) Run(ctx context.Context) error {
	for i, c := range r.cases {
		if i > 0 {
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-time.After(r.delay):
			}
		}

		log.Infof("演示用例开始: %s", c)
		if err := r.runCase(c); err != nil {
			return fmt.Errorf("演示用例%s失败: %w", c, err)
		}
		log.Infof("演示用例完成: %s", c)
	}
	return nil
}

func (r *Runner) runCase(c Case) error {
	switch c {
	case CaseStoreAlert:
		r.token = utils.NewAlertToken(r.store.TokenChars())
		return r.store.StoreAlert(r.token, r.clock.Now()+60, 5000, model.AlertTypeTimer)
	case CaseListAlerts:
		alerts, err := r.store.Alerts()
		if err != nil {
			return err
		}
		for _, a := range alerts {
			log.Infof("告警: token(%s) type(%s) time(%s) duration(%dms)",
				a.Token, a.Type, clock.ToTime(a.ScheduledTime).Format(time.RFC3339), a.Duration)
		}
		log.Infof("共%d条告警", len(alerts))
		return nil
	case CaseUpdateAlert:
		if err := r.ensureToken(); err != nil {
			return err
		}
		return r.store.StoreAlert(r.token, r.clock.Now()+120, 10000, model.AlertTypeAlarm)
	case CaseDeleteAlert:
		if err := r.ensureToken(); err != nil {
			return err
		}
		return r.store.DeleteAlert(r.token)
	case CaseSyncTime:
		before := r.clock.Now()
		target := before + uint64(syncOffset/time.Second)
		r.clock.Set(target)
		if now := r.clock.Now(); now < target {
			return fmt.Errorf("时钟同步后时间%d早于%d", now, target)
		}
		log.Infof("时钟已从%s调整到%s", clock.ToTime(before).Format(time.RFC3339), clock.ToTime(target).Format(time.RFC3339))
		return nil
	case CaseVolume:
		if err := r.port.StoreVolume(storage.DefaultVolume + 20); err != nil {
			return err
		}
		log.Infof("当前音量: %d", r.port.LoadVolume())
		return nil
	default:
		return fmt.Errorf("未知的演示用例: %s", c)
	}
}

func (r *Runner) ensureToken() error {
	if r.token == "" {
		return fmt.Errorf("需要先执行%s", CaseStoreAlert)
	}
	return nil
}
