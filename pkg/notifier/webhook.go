package notifier

import (
	"context"
	"time"

	"pipelinehealth/pkg/core/util"
)

type webhookPayload struct {
	Message   string                 `json:"message"`
	Severity  Severity               `json:"severity"`
	Timestamp string                 `json:"timestamp"`
	Metadata  map[string]interface{} `json:"metadata"`
}

func buildWebhookPayload(req Request, now time.Time) webhookPayload {
	metadata := req.Metadata
	if metadata == nil {
		metadata = map[string]interface{}{}
	}
	return webhookPayload{
		Message:   req.Message,
		Severity:  req.Severity,
		Timestamp: now.UTC().Format(time.RFC3339Nano),
		Metadata:  metadata,
	}
}

// sendWebhook 非 2xx 视为失败
func sendWebhook(ctx context.Context, url string, payload webhookPayload, timeout time.Duration) error {
	if deadline, ok := ctx.Deadline(); ok {
		if remain := time.Until(deadline); remain < timeout {
			timeout = remain
		}
	}
	h := util.NewHttp(url, payload)
	h.Timeout = timeout
	return h.Post()
}
