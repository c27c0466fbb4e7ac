package openrouter

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/kaptinlin/jsonrepair"

	"github.com/brmlabs/renewal-calendar/internal/common"
	"github.com/brmlabs/renewal-calendar/internal/llm"
)

// ExtractFields implements llm.FieldExtractor against an OpenRouter-style
// chat/completions endpoint. Every failure mode (missing credential, http
// error, non-2xx, unparsable body) wraps common.ErrNoResult so the caller
// treats it as extraction failure for this document only.
func (c *Client) ExtractFields(ctx context.Context, text string) (llm.ContractFields, []byte, error) {
	rid := uuid.New().String()
	start := time.Now()

	if c.cfg.APIKey == "" {
		c.log.Error("llm.extract.missing_api_key", "req_id", rid)
		return llm.ContractFields{}, nil, fmt.Errorf("%w: OPENROUTER_API_KEY not configured", common.ErrNoResult)
	}

	c.log.Info("llm.extract.start",
		"req_id", rid,
		"model", c.cfg.Model,
		"temp", c.cfg.Temperature,
		"text_len", len(text),
	)

	body := map[string]any{
		"model":       c.cfg.Model,
		"temperature": c.cfg.Temperature,
		"max_tokens":  c.cfg.MaxTokens,
		"messages": []map[string]any{
			{"role": "system", "content": llm.BuildSystemPrompt()},
			{"role": "user", "content": llm.BuildUserPrompt(text)},
		},
	}

	endpoint := strings.TrimRight(c.cfg.BaseURL, "/") + "/chat/completions"
	raw, httpErr := c.post(ctx, endpoint, body)
	if httpErr != nil {
		c.log.Error("llm.extract.http_error",
			"req_id", rid, "error", httpErr,
			"elapsed_ms", time.Since(start).Milliseconds(),
		)
		return llm.ContractFields{}, nil, fmt.Errorf("%w: %v", common.ErrNoResult, httpErr)
	}

	var cc struct {
		Choices []struct {
			Message struct {
				Content string `json:"content"`
			} `json:"message"`
		} `json:"choices"`
	}
	if err := json.Unmarshal(raw, &cc); err != nil {
		c.log.Error("llm.extract.decode_error",
			"req_id", rid, "error", err, "raw_bytes", len(raw),
			"elapsed_ms", time.Since(start).Milliseconds(),
		)
		return llm.ContractFields{}, raw, fmt.Errorf("%w: decode response: %v", common.ErrNoResult, err)
	}
	if len(cc.Choices) == 0 {
		c.log.Error("llm.extract.no_choices", "req_id", rid,
			"elapsed_ms", time.Since(start).Milliseconds(),
		)
		return llm.ContractFields{}, raw, fmt.Errorf("%w: no choices in response", common.ErrNoResult)
	}
	content := strings.TrimSpace(cc.Choices[0].Message.Content)
	rawContent := []byte(content)

	data, err := decodeModelJSON(content)
	if err != nil {
		c.log.Error("llm.extract.unparsable_content",
			"req_id", rid, "error", err, "content_len", len(content),
			"elapsed_ms", time.Since(start).Milliseconds(),
		)
		return llm.ContractFields{}, rawContent, fmt.Errorf("%w: parse model output: %v", common.ErrNoResult, err)
	}

	// Advisory schema check: the response shape is externally controlled,
	// so a mismatch is logged and per-field normalization carries on.
	if err := llm.ValidateJSONAgainstSchema(llm.BuildContractJSONSchema(), rawContent); err != nil {
		c.log.Warn("llm.extract.schema_mismatch", "req_id", rid, "error", err)
	}

	fields := llm.Normalize(data)
	llm.SanitizeUncertainty(data, &fields)

	c.log.Info("llm.extract.ok",
		"req_id", rid,
		"vendor", strOrEmpty(fields.VendorName),
		"needs_review", fields.NeedsReview,
		"uncertain_fields", len(fields.UncertainFields),
		"elapsed_ms", time.Since(start).Milliseconds(),
	)
	return fields, rawContent, nil
}

// decodeModelJSON parses the model output as a JSON object, attempting a
// repair pass when strict parsing fails (models occasionally fence or
// truncate their JSON).
func decodeModelJSON(content string) (map[string]any, error) {
	var data map[string]any
	if err := json.Unmarshal([]byte(content), &data); err == nil {
		return data, nil
	}
	repaired, err := jsonrepair.JSONRepair(content)
	if err != nil {
		return nil, fmt.Errorf("repair: %w", err)
	}
	if err := json.Unmarshal([]byte(repaired), &data); err != nil {
		return nil, fmt.Errorf("decode repaired: %w", err)
	}
	return data, nil
}

func (c *Client) post(ctx context.Context, url string, body map[string]any) ([]byte, error) {
	b, err := json.Marshal(body)
	if err != nil {
		return nil, fmt.Errorf("marshal request: %w", err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(b))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Authorization", "Bearer "+c.cfg.APIKey)
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("openrouter http error: %w", err)
	}
	defer func(body io.ReadCloser) {
		if err := body.Close(); err != nil {
			c.log.Warn("openrouter response body close error", "error", err)
		}
	}(resp.Body)

	buf := new(bytes.Buffer)
	_, _ = buf.ReadFrom(resp.Body)

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, fmt.Errorf("openrouter status %d: %s", resp.StatusCode, buf.String())
	}
	return buf.Bytes(), nil
}

func strOrEmpty(p *string) string {
	if p == nil {
		return ""
	}
	return *p
}
