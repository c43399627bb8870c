package arena

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/jacl-coder/RhodesGacha-Server/internal/models"
	"github.com/jacl-coder/RhodesGacha-Server/internal/protocol"
)

// Client 竞技场服务的HTTP客户端，不重试
type Client struct {
	baseURL string
	http    *http.Client
}

// NewClient 创建竞技场客户端
func NewClient(baseURL string, timeout time.Duration) *Client {
	if timeout <= 0 {
		timeout = 5 * time.Second
	}
	return &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		http:    &http.Client{Timeout: timeout},
	}
}

func (c *Client) do(ctx context.Context, method, path, token string, body, out interface{}) error {
	var reader io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("序列化请求失败: %w", err)
		}
		reader = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reader)
	if err != nil {
		return fmt.Errorf("创建请求失败: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+token)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("请求竞技场服务失败: %w", err)
	}
	defer resp.Body.Close()

	var envelope protocol.Response
	if err := json.NewDecoder(resp.Body).Decode(&envelope); err != nil {
		return fmt.Errorf("解析竞技场响应失败 (HTTP %d): %w", resp.StatusCode, err)
	}
	if resp.StatusCode != http.StatusOK || !envelope.Success {
		return fmt.Errorf("竞技场服务返回错误 (HTTP %d): %s", resp.StatusCode, envelope.Message)
	}
	if out != nil && len(envelope.Data) > 0 {
		if err := json.Unmarshal(envelope.Data, out); err != nil {
			return fmt.Errorf("解析竞技场数据失败: %w", err)
		}
	}
	return nil
}

// Teams 获取自己的队伍
func (c *Client) Teams(ctx context.Context, token string) ([]models.ArenaTeam, error) {
	var teams []models.ArenaTeam
	err := c.do(ctx, http.MethodGet, "/arena/teams", token, nil, &teams)
	return teams, err
}

// Opponents 获取对手列表
func (c *Client) Opponents(ctx context.Context, token string) ([]models.Opponent, error) {
	var opps []models.Opponent
	err := c.do(ctx, http.MethodGet, "/arena/opponents", token, nil, &opps)
	return opps, err
}

// Opponent 获取指定对手的防守队伍
func (c *Client) Opponent(ctx context.Context, token string, opponentID int64) (*models.Opponent, error) {
	var opp models.Opponent
	if err := c.do(ctx, http.MethodGet, fmt.Sprintf("/arena/opponents/%d", opponentID), token, nil, &opp); err != nil {
		return nil, err
	}
	return &opp, nil
}

// Ladder 获取排行榜
func (c *Client) Ladder(ctx context.Context, token string) ([]models.LadderEntry, error) {
	var ladder []models.LadderEntry
	err := c.do(ctx, http.MethodGet, "/arena/ladder", token, nil, &ladder)
	return ladder, err
}

// SaveTeam 上传队伍
func (c *Client) SaveTeam(ctx context.Context, token string, team SaveTeamRequest) error {
	return c.do(ctx, http.MethodPost, "/arena/team", token, team, nil)
}

// ReportResult 上报对战结果
func (c *Client) ReportResult(ctx context.Context, token string, result models.MatchResult) (models.EloUpdate, error) {
	var update models.EloUpdate
	err := c.do(ctx, http.MethodPost, "/arena/result", token, result, &update)
	return update, err
}
