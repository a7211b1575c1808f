package dataset

import (
	"context"
	"net/http"
	"time"

	"github.com/YuminosukeSato/winetrack/pkg/errors"
)

// fetchTimeout はリモートデータセット取得のデフォルトタイムアウト
const fetchTimeout = 60 * time.Second

// Fetch はリモートURLからセミコロン区切りCSVデータセットを取得してパースする
//
// 取得・パースのいずれかに失敗した場合はDataUnavailableErrorを返す。
// このエラーは回復不能であり、呼び出し側はパイプライン全体を中断すること。
func Fetch(ctx context.Context, url string) (*Table, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, errors.NewDataUnavailableError(url, err)
	}

	client := &http.Client{Timeout: fetchTimeout}
	resp, err := client.Do(req)
	if err != nil {
		return nil, errors.NewDataUnavailableError(url, err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode != http.StatusOK {
		return nil, errors.NewDataUnavailableError(url, errors.Newf("unexpected status %s", resp.Status))
	}

	table, err := Load(resp.Body)
	if err != nil {
		return nil, errors.NewDataUnavailableError(url, err)
	}
	return table, nil
}
