// Package gemini is the AI ranking collaborator. It sends only stable
// indices and titles, never summaries or URLs, and expects an ordered index
// list back.
package gemini

import (
	"context"
	"encoding/json"
	"fmt"
	"regexp"
	"strings"

	"github.com/google/generative-ai-go/genai"
	"google.golang.org/api/option"

	"github.com/deusflow/telecomnews/internal/logger"
)

type Client struct {
	client *genai.Client
	model  string
}

func NewClient(ctx context.Context, apiKey, model string) (*Client, error) {
	client, err := genai.NewClient(ctx, option.WithAPIKey(apiKey))
	if err != nil {
		return nil, fmt.Errorf("failed to create Gemini client: %w", err)
	}
	return &Client{client: client, model: model}, nil
}

func (c *Client) Close() {
	if c.client != nil {
		c.client.Close()
	}
}

// rankPromptTemplate mirrors the keyword taxonomy's intent: Ericsson and
// Taiwan first, then RAN/Core and emerging tech, then business, then general
// relevance.
const rankPromptTemplate = `你是專業的電信產業分析師。以下是今日新聞標題列表，每行格式為 [index] title。

【挑選規則】
1. Ericsson 相關 → 最優先
2. 台灣市場相關（Taiwan, CHT, 中華電, 台灣大, 遠傳, NCC）→ 最優先
3. 重大事件（併購、破產、禁令）→ 最優先
4. RAN / Core Network（Open RAN, vRAN, O-RAN, 5G Core, EPC）→ 高優先
5. 新技術（6G, AI-RAN, Network Slicing, MEC, RedCap, NTN）→ 高優先
6. 商業動態（財報、合作、收購）→ 中優先
7. 其餘依產業相關性排序

【輸出要求】
只輸出一個 JSON 整數陣列，由最重要到最不重要，最多 %d 個 index。
不要輸出任何其他文字。

範例輸出：
[3, 0, 7]

【新聞標題】
%s
`

// RankTitles performs one ranking call and returns the raw index order the
// model produced. Range and duplicate validation is the caller's job; this
// only fails on transport errors or an unparseable response.
func (c *Client) RankTitles(ctx context.Context, titles []string, k int) ([]int, error) {
	model := c.client.GenerativeModel(c.model)
	model.SetTemperature(0.2)
	model.SetMaxOutputTokens(1024)

	var b strings.Builder
	for i, title := range titles {
		fmt.Fprintf(&b, "[%d] %s\n", i, title)
	}
	prompt := fmt.Sprintf(rankPromptTemplate, k, b.String())

	resp, err := model.GenerateContent(ctx, genai.Text(prompt))
	if err != nil {
		return nil, fmt.Errorf("failed to generate content: %w", err)
	}

	if len(resp.Candidates) == 0 || resp.Candidates[0].Content == nil || len(resp.Candidates[0].Content.Parts) == 0 {
		return nil, fmt.Errorf("no response from Gemini")
	}

	response := fmt.Sprintf("%v", resp.Candidates[0].Content.Parts[0])
	indices, err := parseIndices(response)
	if err != nil {
		logger.Debug("unparseable ranking response", "raw", response)
		return nil, err
	}
	return indices, nil
}

var (
	fencedBlockRe = regexp.MustCompile("```(?:json)?\\s*([\\s\\S]*?)\\s*```")
	intArrayRe    = regexp.MustCompile(`\[\s*(?:-?\d+\s*(?:,\s*-?\d+\s*)*)?\]`)
)

// parseIndices extracts an integer index list from the model response. The
// model sometimes wraps the array in a code fence or an {"indices": [...]}
// object; all three shapes are accepted, anything else is an error.
func parseIndices(response string) ([]int, error) {
	candidates := []string{strings.TrimSpace(response)}

	for _, m := range fencedBlockRe.FindAllStringSubmatch(response, -1) {
		candidates = append(candidates, strings.TrimSpace(m[1]))
	}

	for _, cand := range candidates {
		if cand == "" {
			continue
		}

		var indices []int
		if err := json.Unmarshal([]byte(cand), &indices); err == nil {
			return indices, nil
		}

		var obj struct {
			Indices []int `json:"indices"`
		}
		if err := json.Unmarshal([]byte(cand), &obj); err == nil && obj.Indices != nil {
			return obj.Indices, nil
		}

		// Last resort: the first bare integer array anywhere in the text.
		if arr := intArrayRe.FindString(cand); arr != "" {
			if err := json.Unmarshal([]byte(arr), &indices); err == nil {
				return indices, nil
			}
		}
	}

	return nil, fmt.Errorf("could not parse index list from response")
}
