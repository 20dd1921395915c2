package navigation

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/bytedance/sonic"

	"github.com/zoeyai/zoeysight/pkg/geometry"
)

// 公共寻路服务地址
const (
	DefaultDAXURL            = "https://explv-map.siisiqf.workers.dev/"
	DefaultOSRSPathfinderURL = "https://osrspathfinder.com/find-path"
)

// 请求重试策略
const (
	DefaultAttempts  = 5
	DefaultRetryWait = time.Second
)

// ErrNoPath 所有寻路方式都失败
var ErrNoPath = errors.New("没有可用的路径")

// daxMessages DAX 返回的状态码说明
var daxMessages = map[string]string{
	"UNMAPPED_REGION":         "区域未收录",
	"BLOCKED":                 "地块被阻挡",
	"EXCEEDED_SEARCH_LIMIT":   "超出搜索上限",
	"UNREACHABLE":             "地块不可达",
	"NO_WEB_PATH":             "没有路网路径",
	"INVALID_CREDENTIALS":     "凭据无效",
	"RATE_LIMIT_EXCEEDED":     "请求过于频繁",
	"NO_RESPONSE_FROM_SERVER": "服务器无响应",
	"UNKNOWN":                 "未知错误",
}

// PathServiceError 寻路服务返回失败
type PathServiceError struct {
	Service string
	// Code 服务端状态码（DAX 的 pathStatus）
	Code string
	// Status HTTP 状态码，0 表示请求未完成
	Status int
	Err    error
}

func (e *PathServiceError) Error() string {
	msg := fmt.Sprintf("%s 寻路失败", e.Service)
	if e.Code != "" {
		if desc, ok := daxMessages[e.Code]; ok {
			msg += fmt.Sprintf(": %s (%s)", desc, e.Code)
		} else {
			msg += ": " + e.Code
		}
	}
	if e.Status != 0 {
		msg += fmt.Sprintf(" [HTTP %d]", e.Status)
	}
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	return msg
}

func (e *PathServiceError) Unwrap() error {
	return e.Err
}

// PathService 远程最短路径服务
type PathService interface {
	Name() string
	// FindPath 返回从 from 到 to 的地块路径，服务明确表示无路时返回 PathServiceError
	FindPath(ctx context.Context, from, to geometry.Point) ([]geometry.Point, error)
}

// ServiceOption 服务客户端配置项
type ServiceOption func(*httpService)

// WithHTTPClient 指定 HTTP 客户端
func WithHTTPClient(c *http.Client) ServiceOption {
	return func(s *httpService) { s.client = c }
}

// WithRetry 指定请求次数与间隔
func WithRetry(attempts int, wait time.Duration) ServiceOption {
	return func(s *httpService) {
		s.attempts = max(attempts, 1)
		s.wait = wait
	}
}

// httpService JSON POST 与固定间隔重试
type httpService struct {
	name     string
	url      string
	headers  map[string]string
	client   *http.Client
	attempts int
	wait     time.Duration
}

func newHTTPService(name, url string, headers map[string]string, opts []ServiceOption) httpService {
	s := httpService{
		name:     name,
		url:      url,
		headers:  headers,
		client:   &http.Client{Timeout: 30 * time.Second},
		attempts: DefaultAttempts,
		wait:     DefaultRetryWait,
	}
	for _, opt := range opts {
		opt(&s)
	}
	return s
}

// post 发送请求并解码响应，失败时按固定间隔重试
func (s *httpService) post(ctx context.Context, payload, out any) error {
	body, err := sonic.Marshal(payload)
	if err != nil {
		return fmt.Errorf("序列化 %s 请求失败: %w", s.name, err)
	}

	var lastErr error
	for attempt := 1; attempt <= s.attempts; attempt++ {
		if attempt > 1 {
			if err := sleepCtx(ctx, s.wait); err != nil {
				return err
			}
		}
		lastErr = s.do(ctx, body, out)
		if lastErr == nil {
			return nil
		}
		if ctx.Err() != nil {
			return ctx.Err()
		}
		log.Debug("%s 请求失败 (%d/%d): %v", s.name, attempt, s.attempts, lastErr)
	}
	return lastErr
}

func (s *httpService) do(ctx context.Context, body []byte, out any) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, s.url, bytes.NewReader(body))
	if err != nil {
		return &PathServiceError{Service: s.name, Err: err}
	}
	req.Header.Set("Content-Type", "application/json")
	for k, v := range s.headers {
		req.Header.Set(k, v)
	}

	resp, err := s.client.Do(req)
	if err != nil {
		return &PathServiceError{Service: s.name, Err: err}
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return &PathServiceError{Service: s.name, Status: resp.StatusCode, Err: err}
	}
	if resp.StatusCode != http.StatusOK {
		return &PathServiceError{
			Service: s.name,
			Status:  resp.StatusCode,
			Err:     fmt.Errorf("响应: %s", truncate(string(data), 200)),
		}
	}
	if err := sonic.Unmarshal(data, out); err != nil {
		return &PathServiceError{Service: s.name, Status: resp.StatusCode, Err: fmt.Errorf("解析响应失败: %w", err)}
	}
	return nil
}

// tile 响应中的路径点，楼层字段两种服务命名不同，这里忽略
type tile struct {
	X int `json:"x"`
	Y int `json:"y"`
}

func toPoints(tiles []tile) []geometry.Point {
	out := make([]geometry.Point, len(tiles))
	for i, t := range tiles {
		out[i] = geometry.Point{X: t.X, Y: t.Y}
	}
	return out
}

// DAXClient explv-map 兼容的 DAX 寻路服务
type DAXClient struct {
	httpService
	members bool
}

// NewDAXClient 创建 DAX 客户端，url 为空时使用公共地址
func NewDAXClient(url string, opts ...ServiceOption) *DAXClient {
	if url == "" {
		url = DefaultDAXURL
	}
	headers := map[string]string{"Origin": "https://explv.github.io"}
	return &DAXClient{httpService: newHTTPService("DAX", url, headers, opts), members: true}
}

// Name 服务名
func (c *DAXClient) Name() string { return c.name }

type daxTile struct {
	X int `json:"x"`
	Y int `json:"y"`
	Z int `json:"z"`
}

type daxRequest struct {
	Start  daxTile `json:"start"`
	End    daxTile `json:"end"`
	Player struct {
		Members bool `json:"members"`
	} `json:"player"`
}

type daxResponse struct {
	Path       []tile `json:"path"`
	PathStatus string `json:"pathStatus"`
	Cost       int    `json:"cost"`
}

// FindPath 请求最短路径
func (c *DAXClient) FindPath(ctx context.Context, from, to geometry.Point) ([]geometry.Point, error) {
	req := daxRequest{
		Start: daxTile{X: from.X, Y: from.Y},
		End:   daxTile{X: to.X, Y: to.Y},
	}
	req.Player.Members = c.members

	var resp daxResponse
	if err := c.post(ctx, req, &resp); err != nil {
		return nil, err
	}
	if len(resp.Path) == 0 {
		code := resp.PathStatus
		if code == "" || code == "SUCCESS" {
			code = "UNKNOWN"
		}
		return nil, &PathServiceError{Service: c.name, Code: code}
	}
	return toPoints(resp.Path), nil
}

// OSRSPathfinderClient osrspathfinder 兼容的寻路服务
type OSRSPathfinderClient struct {
	httpService
}

// NewOSRSPathfinderClient 创建客户端，url 为空时使用公共地址
func NewOSRSPathfinderClient(url string, opts ...ServiceOption) *OSRSPathfinderClient {
	if url == "" {
		url = DefaultOSRSPathfinderURL
	}
	return &OSRSPathfinderClient{httpService: newHTTPService("OSRSPathfinder", url, nil, opts)}
}

// Name 服务名
func (c *OSRSPathfinderClient) Name() string { return c.name }

type pfEndpoint struct {
	Plane int `json:"plane"`
	X     int `json:"x"`
	Y     int `json:"y"`
}

type pfRequest struct {
	Algo  string     `json:"algo"`
	Start pfEndpoint `json:"start"`
	End   pfEndpoint `json:"end"`
}

type pfResponse struct {
	Result struct {
		PathFinderResult string `json:"pathFinderResult"`
		Steps            []struct {
			Path []tile `json:"path"`
		} `json:"steps"`
	} `json:"result"`
}

// FindPath 请求 A* 路径
func (c *OSRSPathfinderClient) FindPath(ctx context.Context, from, to geometry.Point) ([]geometry.Point, error) {
	req := pfRequest{
		Algo:  "A_STAR",
		Start: pfEndpoint{X: from.X, Y: from.Y},
		End:   pfEndpoint{X: to.X, Y: to.Y},
	}
	var resp pfResponse
	if err := c.post(ctx, req, &resp); err != nil {
		return nil, err
	}
	if len(resp.Result.Steps) == 0 || len(resp.Result.Steps[0].Path) == 0 {
		code := resp.Result.PathFinderResult
		if code == "" {
			code = "NO_PATH"
		}
		return nil, &PathServiceError{Service: c.name, Code: code}
	}
	return toPoints(resp.Result.Steps[0].Path), nil
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n] + "..."
}

// sleepCtx 可取消的休眠
func sleepCtx(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
