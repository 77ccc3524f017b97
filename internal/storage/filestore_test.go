package storage

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/shopspring/decimal"

	"github.com/Lfy181/sea-daily-briefing/internal/monitor"
)

func TestFileStoreMissingFileMeansNoHistory(t *testing.T) {
	store := NewFileStore(filepath.Join(t.TempDir(), "history.json"))

	_, ok, err := store.Get(context.Background(), monitor.Pair{Base: "CNY", Quote: "PHP"})
	if err != nil {
		t.Fatalf("缺失文件不应报错: %v", err)
	}
	if ok {
		t.Fatal("缺失文件应视为无历史")
	}

	all, err := store.All(context.Background())
	if err != nil {
		t.Fatalf("All 不应报错: %v", err)
	}
	if len(all) != 0 {
		t.Fatalf("应为空历史, 实际 %d 条", len(all))
	}
}

func TestFileStoreRoundTrip(t *testing.T) {
	store := NewFileStore(filepath.Join(t.TempDir(), "data", "history.json"))
	pair := monitor.Pair{Base: "CNY", Quote: "PHP"}

	entry := monitor.HistoryEntry{
		Rate:       decimal.RequireFromString("7.85"),
		ObservedAt: time.Date(2026, 8, 24, 9, 0, 0, 0, time.UTC),
		UpdateTime: "2026-08-24 09:00:00",
	}

	if err := store.Put(context.Background(), pair, entry); err != nil {
		t.Fatalf("Put 失败: %v", err)
	}

	got, ok, err := store.Get(context.Background(), pair)
	if err != nil {
		t.Fatalf("Get 失败: %v", err)
	}
	if !ok {
		t.Fatal("写入后应能读回")
	}
	if !got.Rate.Equal(entry.Rate) {
		t.Fatalf("rate 应精确往返, 期望 %s 实际 %s", entry.Rate, got.Rate)
	}
	if !got.ObservedAt.Equal(entry.ObservedAt) {
		t.Fatalf("observed_at 应精确往返, 期望 %s 实际 %s", entry.ObservedAt, got.ObservedAt)
	}
	if got.UpdateTime != entry.UpdateTime {
		t.Fatalf("update_time 应往返一致, 实际 %q", got.UpdateTime)
	}
}

func TestFileStorePutOverwritesSingleEntry(t *testing.T) {
	store := NewFileStore(filepath.Join(t.TempDir(), "history.json"))
	ctx := context.Background()
	pair := monitor.Pair{Base: "CNY", Quote: "PHP"}
	other := monitor.Pair{Base: "CNY", Quote: "IDR"}

	put := func(p monitor.Pair, rate string) {
		t.Helper()
		err := store.Put(ctx, p, monitor.HistoryEntry{
			Rate:       decimal.RequireFromString(rate),
			ObservedAt: time.Now().UTC(),
		})
		if err != nil {
			t.Fatalf("Put 失败: %v", err)
		}
	}

	put(pair, "7.85")
	put(other, "2300")
	put(pair, "8.34")

	all, err := store.All(ctx)
	if err != nil {
		t.Fatalf("All 失败: %v", err)
	}
	if len(all) != 2 {
		t.Fatalf("每个货币对应只有一条记录, 实际 %d", len(all))
	}
	if got := all["CNY_PHP"].Rate; !got.Equal(decimal.RequireFromString("8.34")) {
		t.Fatalf("CNY_PHP 应被覆盖为 8.34, 实际 %s", got)
	}
	if got := all["CNY_IDR"].Rate; !got.Equal(decimal.RequireFromString("2300")) {
		t.Fatalf("CNY_IDR 不应受影响, 实际 %s", got)
	}
}

func TestFileStoreWritesHumanInspectableJSON(t *testing.T) {
	path := filepath.Join(t.TempDir(), "history.json")
	store := NewFileStore(path)

	err := store.Put(context.Background(), monitor.Pair{Base: "CNY", Quote: "VND"}, monitor.HistoryEntry{
		Rate:       decimal.RequireFromString("3650.5"),
		ObservedAt: time.Now().UTC(),
	})
	if err != nil {
		t.Fatalf("Put 失败: %v", err)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("读取文件失败: %v", err)
	}
	text := string(data)
	if !strings.Contains(text, "CNY_VND") || !strings.Contains(text, "3650.5") {
		t.Fatalf("文件应为可读 JSON, 实际:\n%s", text)
	}
	if !strings.Contains(text, "\n") {
		t.Fatal("文件应带缩进换行")
	}

	// No leftover temp files after the atomic swap.
	entries, err := os.ReadDir(filepath.Dir(path))
	if err != nil {
		t.Fatalf("读取目录失败: %v", err)
	}
	for _, e := range entries {
		if strings.Contains(e.Name(), ".tmp-") {
			t.Fatalf("不应残留临时文件: %s", e.Name())
		}
	}
}

func TestFileStoreCorruptFileIsAnError(t *testing.T) {
	path := filepath.Join(t.TempDir(), "history.json")
	if err := os.WriteFile(path, []byte("{not json"), 0o644); err != nil {
		t.Fatalf("写入损坏文件失败: %v", err)
	}

	store := NewFileStore(path)
	if _, _, err := store.Get(context.Background(), monitor.Pair{Base: "CNY", Quote: "PHP"}); err == nil {
		t.Fatal("损坏的历史文件必须报错, 不得静默视为无历史")
	}
}

func TestFileStoreEmptyFileMeansNoHistory(t *testing.T) {
	path := filepath.Join(t.TempDir(), "history.json")
	if err := os.WriteFile(path, nil, 0o644); err != nil {
		t.Fatalf("写入空文件失败: %v", err)
	}

	store := NewFileStore(path)
	_, ok, err := store.Get(context.Background(), monitor.Pair{Base: "CNY", Quote: "PHP"})
	if err != nil {
		t.Fatalf("空文件不应报错: %v", err)
	}
	if ok {
		t.Fatal("空文件应视为无历史")
	}
}
