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
	"context"

	openai "github.com/sashabaranov/go-openai"
)

// generateChat sends a chat-completions request via the go-openai client.
//
// Reasoning-class models take max_completion_tokens and ignore temperature,
// so temperature is omitted entirely for that class rather than sent and
// silently dropped by the provider.
func (g *Gateway) generateChat(ctx context.Context, class ModelClass, budget int, req GenerateRequest) (*GenerateResponse, error) {
	msgs := messagesFor(req)
	apiMsgs := make([]openai.ChatCompletionMessage, 0, len(msgs))
	for _, m := range msgs {
		apiMsgs = append(apiMsgs, openai.ChatCompletionMessage{
			Role:    m.Role,
			Content: m.Content,
		})
	}

	apiReq := openai.ChatCompletionRequest{
		Model:    req.Model,
		Messages: apiMsgs,
	}
	if class == ClassReasoning {
		apiReq.MaxCompletionTokens = budget
	} else {
		apiReq.MaxTokens = budget
		apiReq.Temperature = req.Temperature
	}

	g.logger.Debug("sending chat completion",
		"model", req.Model, "messages", len(apiMsgs), "budget", budget)

	resp, err := g.chat.CreateChatCompletion(ctx, apiReq)
	if err != nil {
		return nil, err
	}
	if len(resp.Choices) == 0 {
		return nil, ErrEmptyResponse
	}

	usage := Usage{
		PromptTokens:     resp.Usage.PromptTokens,
		CompletionTokens: resp.Usage.CompletionTokens,
	}
	if details := resp.Usage.CompletionTokensDetails; details != nil {
		usage.ReasoningTokens = details.ReasoningTokens
	}

	return &GenerateResponse{
		Text:  resp.Choices[0].Message.Content,
		Usage: usage,
	}, nil
}
