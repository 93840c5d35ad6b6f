package driver

import (
	"context"
	"encoding/base64"
	"fmt"
	"io"
	"sync"

	"github.com/anthropics/anthropic-sdk-go"
	"github.com/google/uuid"
	"github.com/pkg/errors"

	"github.com/studychat/backend/internal/model"
)

// DefaultModel is used when a session has no model selector configured.
const DefaultModel = string(anthropic.ModelClaude3_7SonnetLatest)

const maxOutputTokens = 8192

// AnthropicDriver implements Driver against the Anthropic Messages API.
// Uploaded attachments are held in memory under a generated reference until
// the turn that carries them is sent.
type AnthropicDriver struct {
	client *anthropic.Client

	mu      sync.Mutex
	uploads map[string]upload
}

type upload struct {
	data      []byte
	mediaType string
}

// NewAnthropicDriver returns a driver using API credentials from the env.
func NewAnthropicDriver() *AnthropicDriver {
	c := anthropic.NewClient()
	return &AnthropicDriver{
		client:  &c,
		uploads: make(map[string]upload),
	}
}

// UploadAttachment validates and stages attachment bytes, returning the
// reference a later SendTurn resolves.
func (d *AnthropicDriver) UploadAttachment(_ context.Context, data []byte, mediaType, name string) (string, error) {
	if err := ValidateAttachment(int64(len(data)), mediaType); err != nil {
		return "", err
	}

	ref := "file-" + uuid.New().String()
	d.mu.Lock()
	d.uploads[ref] = upload{data: data, mediaType: mediaType}
	d.mu.Unlock()
	return ref, nil
}

// takeUpload removes and returns a staged upload. Uploads are single-use.
func (d *AnthropicDriver) takeUpload(ref string) (upload, bool) {
	d.mu.Lock()
	defer d.mu.Unlock()
	u, ok := d.uploads[ref]
	if ok {
		delete(d.uploads, ref)
	}
	return u, ok
}

// SendTurn issues one streaming generation call.
func (d *AnthropicDriver) SendTurn(ctx context.Context, req TurnRequest) (Stream, error) {
	blocks, err := d.contentBlocks(req.Text, req.Attachments)
	if err != nil {
		return nil, err
	}

	messages := make([]anthropic.MessageParam, 0, len(req.History)+1)
	for _, turn := range req.History {
		switch turn.Role {
		case model.RoleAssistant:
			messages = append(messages, anthropic.NewAssistantMessage(anthropic.NewTextBlock(turn.Content)))
		default:
			messages = append(messages, anthropic.NewUserMessage(anthropic.NewTextBlock(turn.Content)))
		}
	}
	messages = append(messages, anthropic.NewUserMessage(blocks...))

	modelID := req.Config.Model
	if modelID == "" {
		modelID = DefaultModel
	}

	params := anthropic.MessageNewParams{
		Model:       anthropic.Model(modelID),
		MaxTokens:   int64(maxOutputTokens),
		Messages:    messages,
		Temperature: anthropic.Float(req.Config.Temperature),
		TopP:        anthropic.Float(req.Config.TopP),
	}
	if req.Config.SystemInstruction != "" {
		params.System = []anthropic.TextBlockParam{
			{Text: req.Config.SystemInstruction},
		}
	}

	stream := d.client.Messages.NewStreaming(ctx, params)
	return &anthropicStream{stream: stream}, nil
}

// contentBlocks assembles the user turn's content: the text plus one block
// per staged attachment.
func (d *AnthropicDriver) contentBlocks(text string, attachments []model.Attachment) ([]anthropic.ContentBlockParamUnion, error) {
	blocks := []anthropic.ContentBlockParamUnion{}
	if text != "" {
		blocks = append(blocks, anthropic.NewTextBlock(text))
	}

	for _, att := range attachments {
		u, ok := d.takeUpload(att.Ref)
		if !ok {
			return nil, errors.Errorf("attachment reference %s not staged", att.Ref)
		}
		if IsImageType(u.mediaType) {
			encoded := base64.StdEncoding.EncodeToString(u.data)
			blocks = append(blocks, anthropic.NewImageBlockBase64(u.mediaType, encoded))
			continue
		}
		// Text-like attachments are inlined, prefixed with the display name
		// so the backend can tell documents apart.
		blocks = append(blocks, anthropic.NewTextBlock(
			fmt.Sprintf("Attached file %q:\n%s", att.Name, string(u.data)),
		))
	}

	if len(blocks) == 0 {
		return nil, model.ErrBlankMessage
	}
	return blocks, nil
}

// anthropicStream adapts the SDK's event stream to the Stream contract,
// yielding only text deltas.
type anthropicStream struct {
	stream interface {
		Next() bool
		Current() anthropic.MessageStreamEventUnion
		Err() error
	}
}

func (s *anthropicStream) Next() (string, error) {
	for s.stream.Next() {
		event := s.stream.Current()
		switch ev := event.AsAny().(type) {
		case anthropic.ContentBlockDeltaEvent:
			switch delta := ev.Delta.AsAny().(type) {
			case anthropic.TextDelta:
				if delta.Text != "" {
					return delta.Text, nil
				}
			}
		}
	}
	if err := s.stream.Err(); err != nil {
		return "", errors.Wrap(err, "generation stream failed")
	}
	return "", io.EOF
}
