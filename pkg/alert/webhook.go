package alert

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"

	"github.com/oa-lab/hrdesk/dao/model"
	"github.com/oa-lab/hrdesk/pkg/config"
)

// Message is the payload the chat robot webhook expects.
type Message struct {
	Msgtype string `json:"msgtype"`
	Text    struct {
		Content string `json:"content"`
	} `json:"text"`
}

type webhookRobot struct {
	address string
}

func newWebhookRobot() alertHandlerInterface {
	return &webhookRobot{address: config.GetConfig().Robot.WebhookAddress}
}

// SendMessageTo posts the message to the group chat. The robot channel has
// no per-user addressing; the receiver is only used for the salutation
// already rendered into the body.
func (w *webhookRobot) SendMessageTo(ctx context.Context, _ *model.UserAttribute, subject, body string) error {
	msg := Message{Msgtype: "text"}
	msg.Text.Content = subject + "\n" + body

	msgBytes, err := json.Marshal(msg)
	if err != nil {
		return fmt.Errorf("failed to marshal message: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, w.address, bytes.NewBuffer(msgBytes))
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	client := &http.Client{}
	resp, err := client.Do(req)
	if err != nil {
		return fmt.Errorf("failed to send request: %w", err)
	}
	defer resp.Body.Close()

	return nil
}
