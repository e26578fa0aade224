package notification

import (
	"context"
	"encoding/json"
	"fmt"

	lark "github.com/larksuite/oapi-sdk-go/v3"
	larkcore "github.com/larksuite/oapi-sdk-go/v3/core"
	larkim "github.com/larksuite/oapi-sdk-go/v3/service/im/v1"
	"go.uber.org/zap"
)

// LarkDispatcher delivers messages through Lark IM, addressed by the
// recipient's email. Teams already living in Lark can route approval pings
// there instead of SMTP.
type LarkDispatcher struct {
	client *lark.Client
	logger *zap.Logger
}

// NewLarkDispatcher creates a Lark messenger dispatcher.
func NewLarkDispatcher(appID, appSecret string, logger *zap.Logger) *LarkDispatcher {
	client := lark.NewClient(appID, appSecret,
		lark.WithLogLevel(larkcore.LogLevelInfo),
		lark.WithEnableTokenCache(true),
	)
	return &LarkDispatcher{client: client, logger: logger}
}

// Send posts a text message to the user identified by the recipient email.
func (d *LarkDispatcher) Send(ctx context.Context, recipient string, msg Message) error {
	content, err := json.Marshal(map[string]string{
		"text": fmt.Sprintf("%s\n\n%s", msg.Subject, msg.Body),
	})
	if err != nil {
		return fmt.Errorf("failed to marshal message content: %w", err)
	}

	req := larkim.NewCreateMessageReqBuilder().
		ReceiveIdType("email").
		Body(larkim.NewCreateMessageReqBodyBuilder().
			ReceiveId(recipient).
			MsgType("text").
			Content(string(content)).
			Build()).
		Build()

	resp, err := d.client.Im.Message.Create(ctx, req)
	if err != nil {
		d.logger.Error("Failed to send Lark message",
			zap.String("recipient", recipient),
			zap.Error(err))
		return fmt.Errorf("failed to send lark message: %w", err)
	}
	if !resp.Success() {
		d.logger.Error("Lark API returned failure",
			zap.String("recipient", recipient),
			zap.Int("code", resp.Code),
			zap.String("msg", resp.Msg))
		return fmt.Errorf("lark API error: code=%d, msg=%s", resp.Code, resp.Msg)
	}

	d.logger.Info("Lark message sent", zap.String("recipient", recipient))
	return nil
}
