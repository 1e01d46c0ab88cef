// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package llm

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
)

// Wire shapes for the responses protocol. The go-openai client predates
// this endpoint, so the gateway speaks it directly.

type responsesRequest struct {
	Model           string             `json:"model"`
	Input           []responsesMessage `json:"input"`
	MaxOutputTokens int                `json:"max_output_tokens"`
}

type responsesMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type responsesResponse struct {
	Output     []responsesOutput `json:"output"`
	OutputText string            `json:"output_text"`
	Usage      responsesUsage    `json:"usage"`
	Error      *responsesError   `json:"error"`
}

type responsesOutput struct {
	Content []responsesContent `json:"content"`
}

type responsesContent struct {
	Type string `json:"type"`
	Text string `json:"text"`
}

type responsesUsage struct {
	InputTokens        int `json:"input_tokens"`
	OutputTokens       int `json:"output_tokens"`
	OutputTokenDetails struct {
		ReasoningTokens int `json:"reasoning_tokens"`
	} `json:"output_tokens_details"`
}

type responsesError struct {
	Type    string `json:"type"`
	Message string `json:"message"`
}

// generateResponses sends a responses-protocol request and remaps the
// answer into the gateway's normalized shape.
func (g *Gateway) generateResponses(ctx context.Context, budget int, req GenerateRequest) (*GenerateResponse, error) {
	msgs := messagesFor(req)
	input := make([]responsesMessage, 0, len(msgs))
	for _, m := range msgs {
		input = append(input, responsesMessage{Role: m.Role, Content: m.Content})
	}

	payload := responsesRequest{
		Model:           req.Model,
		Input:           input,
		MaxOutputTokens: budget,
	}

	body, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal the responses request: %w", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, g.baseURL+"/responses", bytes.NewBuffer(body))
	if err != nil {
		return nil, fmt.Errorf("failed to create the responses request: %w", err)
	}
	httpReq.Header.Set("Authorization", "Bearer "+g.apiKey)
	httpReq.Header.Set("Content-Type", "application/json")

	g.logger.Debug("sending responses request", "model", req.Model, "budget", budget)

	resp, err := g.httpClient.Do(httpReq)
	if err != nil {
		return nil, fmt.Errorf("responses request failed: %w", err)
	}
	defer resp.Body.Close()

	bodyBytes, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read the responses body: %w", err)
	}

	if resp.StatusCode != http.StatusOK {
		return nil, &statusError{Status: resp.StatusCode, Body: strings.TrimSpace(string(bodyBytes))}
	}

	var apiResp responsesResponse
	if err := json.Unmarshal(bodyBytes, &apiResp); err != nil {
		return nil, fmt.Errorf("failed to parse the responses body: %w", err)
	}
	if apiResp.Error != nil {
		return nil, fmt.Errorf("provider error: %s - %s", apiResp.Error.Type, apiResp.Error.Message)
	}

	var sb strings.Builder
	for _, out := range apiResp.Output {
		for _, block := range out.Content {
			sb.WriteString(block.Text)
		}
	}
	text := sb.String()
	if text == "" {
		text = apiResp.OutputText
	}
	if text == "" {
		return nil, ErrEmptyResponse
	}

	return &GenerateResponse{
		Text: text,
		Usage: Usage{
			PromptTokens:     apiResp.Usage.InputTokens,
			CompletionTokens: apiResp.Usage.OutputTokens,
			ReasoningTokens:  apiResp.Usage.OutputTokenDetails.ReasoningTokens,
		},
	}, nil
}
