// Package commtools registers the built-in communication tool pack:
// email, Slack, and SMS sending plus operator notifications. Every tool
// in the pack requires confirmation and reports its message as queued;
// delivery is delegated to a Sender, with an in-memory loopback sender
// as the default so the pack works without an outbound integration.
package commtools

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"

	"github.com/google/uuid"

	"github.com/nounverse/verbs/pkg/tool"
)

// Message is a channel-agnostic outbound message handed to a Sender.
type Message struct {
	ID       string
	Channel  string
	To       string
	Subject  string
	Body     string
	Metadata map[string]string
}

// Sender delivers messages produced by the communication tools.
type Sender interface {
	Send(ctx context.Context, msg Message) error
}

// LoopbackSender records sent messages in memory.
type LoopbackSender struct {
	mu   sync.Mutex
	sent []Message
}

// NewLoopbackSender returns an empty loopback sender.
func NewLoopbackSender() *LoopbackSender {
	return &LoopbackSender{}
}

// Send records the message.
func (l *LoopbackSender) Send(ctx context.Context, msg Message) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.sent = append(l.sent, msg)
	return nil
}

// Sent returns a copy of the recorded messages in send order.
func (l *LoopbackSender) Sent() []Message {
	l.mu.Lock()
	defer l.mu.Unlock()
	out := make([]Message, len(l.sent))
	copy(out, l.sent)
	return out
}

// Options configures the communication tool pack.
type Options struct {
	// Sender delivers outbound messages. Defaults to a loopback sender.
	Sender Sender
}

func (o Options) withDefaults() Options {
	if o.Sender == nil {
		o.Sender = NewLoopbackSender()
	}
	return o
}

// Register adds the communication tool pack to the registry.
func Register(registry *tool.Registry, opts Options) error {
	if registry == nil {
		return errors.New("registry is required")
	}
	opts = opts.withDefaults()

	tools := []tool.Definition{
		emailSendTool(opts.Sender),
		slackSendTool(opts.Sender),
		smsSendTool(opts.Sender),
		notifyTool(opts.Sender),
	}

	for _, def := range tools {
		if err := registry.Register(def); err != nil {
			return fmt.Errorf("failed to register tool %s: %w", def.ID, err)
		}
	}
	return nil
}

func emailSendTool(sender Sender) tool.Definition {
	return tool.Definition{
		ID:                   "communication.email.send",
		Name:                 "Send email",
		Description:          "Queue an email for delivery. Requires confirmation before it runs.",
		Audience:             tool.AudienceBoth,
		RequiresConfirmation: true,
		Permissions:          []tool.Permission{{Resource: "communication", Action: "send"}},
		Tags:                 []string{"communication", "email"},
		Parameters: []tool.ParameterSpec{
			{Name: "to", Type: tool.TypeString, Description: "Recipient address", Required: true},
			{Name: "subject", Type: tool.TypeString, Description: "Subject line", Required: true},
			{Name: "body", Type: tool.TypeString, Description: "Message body", Required: true},
			{Name: "cc", Type: tool.TypeString, Description: "Carbon-copy address"},
		},
		Handler: func(ctx context.Context, args map[string]interface{}) (interface{}, error) {
			to, _ := args["to"].(string)
			subject, _ := args["subject"].(string)
			body, _ := args["body"].(string)

			if strings.TrimSpace(to) == "" {
				return nil, fmt.Errorf("to must not be empty")
			}

			msg := Message{
				Channel: "email",
				To:      to,
				Subject: subject,
				Body:    body,
			}
			if cc, ok := args["cc"].(string); ok && cc != "" {
				msg.Metadata = map[string]string{"cc": cc}
			}

			id, err := dispatch(ctx, sender, msg)
			if err != nil {
				return nil, err
			}
			return map[string]interface{}{
				"message_id": id,
				"channel":    "email",
				"to":         to,
				"status":     "queued",
			}, nil
		},
	}
}

func slackSendTool(sender Sender) tool.Definition {
	return tool.Definition{
		ID:                   "communication.slack.send",
		Name:                 "Send Slack message",
		Description:          "Queue a message to a Slack channel. Requires confirmation before it runs.",
		Audience:             tool.AudienceBoth,
		RequiresConfirmation: true,
		Permissions:          []tool.Permission{{Resource: "communication", Action: "send"}},
		Tags:                 []string{"communication", "slack"},
		Parameters: []tool.ParameterSpec{
			{Name: "channel", Type: tool.TypeString, Description: "Channel name or ID", Required: true},
			{Name: "text", Type: tool.TypeString, Description: "Message text", Required: true},
		},
		Handler: func(ctx context.Context, args map[string]interface{}) (interface{}, error) {
			channel, _ := args["channel"].(string)
			text, _ := args["text"].(string)

			if strings.TrimSpace(channel) == "" {
				return nil, fmt.Errorf("channel must not be empty")
			}

			id, err := dispatch(ctx, sender, Message{
				Channel: "slack",
				To:      channel,
				Body:    text,
			})
			if err != nil {
				return nil, err
			}
			return map[string]interface{}{
				"message_id": id,
				"channel":    "slack",
				"to":         channel,
				"status":     "queued",
			}, nil
		},
	}
}

func smsSendTool(sender Sender) tool.Definition {
	return tool.Definition{
		ID:                   "communication.sms.send",
		Name:                 "Send SMS",
		Description:          "Queue a text message for delivery. Requires confirmation before it runs.",
		Audience:             tool.AudienceBoth,
		RequiresConfirmation: true,
		Permissions:          []tool.Permission{{Resource: "communication", Action: "send"}},
		Tags:                 []string{"communication", "sms"},
		Parameters: []tool.ParameterSpec{
			{Name: "to", Type: tool.TypeString, Description: "Recipient phone number", Required: true},
			{Name: "text", Type: tool.TypeString, Description: "Message text", Required: true},
		},
		Handler: func(ctx context.Context, args map[string]interface{}) (interface{}, error) {
			to, _ := args["to"].(string)
			text, _ := args["text"].(string)

			if strings.TrimSpace(to) == "" {
				return nil, fmt.Errorf("to must not be empty")
			}

			id, err := dispatch(ctx, sender, Message{
				Channel: "sms",
				To:      to,
				Body:    text,
			})
			if err != nil {
				return nil, err
			}
			return map[string]interface{}{
				"message_id": id,
				"channel":    "sms",
				"to":         to,
				"status":     "queued",
			}, nil
		},
	}
}

func notifyTool(sender Sender) tool.Definition {
	return tool.Definition{
		ID:                   "communication.notify",
		Name:                 "Notify operator",
		Description:          "Raise a notification on the operator channel. Requires confirmation before it runs.",
		Audience:             tool.AudienceBoth,
		RequiresConfirmation: true,
		Permissions:          []tool.Permission{{Resource: "communication", Action: "notify"}},
		Tags:                 []string{"communication", "notify"},
		Parameters: []tool.ParameterSpec{
			{Name: "title", Type: tool.TypeString, Description: "Notification title", Required: true},
			{Name: "message", Type: tool.TypeString, Description: "Notification body", Required: true},
			{Name: "level", Type: tool.TypeString, Description: "Severity level", Default: "info",
				Enum: []interface{}{"info", "warning", "critical"}},
		},
		Handler: func(ctx context.Context, args map[string]interface{}) (interface{}, error) {
			title, _ := args["title"].(string)
			message, _ := args["message"].(string)
			level, _ := args["level"].(string)

			id, err := dispatch(ctx, sender, Message{
				Channel:  "notify",
				Subject:  title,
				Body:     message,
				Metadata: map[string]string{"level": level},
			})
			if err != nil {
				return nil, err
			}
			return map[string]interface{}{
				"message_id": id,
				"channel":    "notify",
				"level":      level,
				"status":     "queued",
			}, nil
		},
	}
}

// dispatch assigns a message id and hands the message to the sender.
func dispatch(ctx context.Context, sender Sender, msg Message) (string, error) {
	msg.ID = uuid.New().String()
	if err := sender.Send(ctx, msg); err != nil {
		return "", fmt.Errorf("send %s message: %w", msg.Channel, err)
	}
	return msg.ID, nil
}
