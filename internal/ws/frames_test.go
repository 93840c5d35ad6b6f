package ws

import (
	"encoding/json"
	"testing"

	"github.com/studychat/backend/internal/model"
)

func TestIntentDecoding(t *testing.T) {
	t.Run("send-turn with base64 file payload", func(t *testing.T) {
		raw := `{
			"action": "send-turn",
			"message": "what is this?",
			"files": [{"name": "a.txt", "mediaType": "text/plain", "size": 5, "data": "aGVsbG8="}]
		}`

		var intent Intent
		if err := json.Unmarshal([]byte(raw), &intent); err != nil {
			t.Fatalf("Failed to decode: %v", err)
		}
		if intent.Action != ActionSendTurn {
			t.Errorf("Expected send-turn, got '%s'", intent.Action)
		}
		if len(intent.Files) != 1 || string(intent.Files[0].Data) != "hello" {
			t.Errorf("Base64 payload not decoded: %+v", intent.Files)
		}
	})

	t.Run("customize-session with partial parameters", func(t *testing.T) {
		raw := `{"action": "customize-session", "task": "essay", "description": "d", "temperature": 0.4}`

		var intent Intent
		if err := json.Unmarshal([]byte(raw), &intent); err != nil {
			t.Fatalf("Failed to decode: %v", err)
		}
		if intent.Temperature == nil || *intent.Temperature != 0.4 {
			t.Errorf("Expected temperature 0.4, got %v", intent.Temperature)
		}
		if intent.TopP != nil {
			t.Error("Absent topP must stay nil")
		}
	})
}

func TestFrameEncoding(t *testing.T) {
	t.Run("error frame carries its kind", func(t *testing.T) {
		data, err := json.Marshal(errorFrame(model.ErrKindValidation, "bad input"))
		if err != nil {
			t.Fatalf("Failed to encode: %v", err)
		}

		var decoded map[string]interface{}
		if err := json.Unmarshal(data, &decoded); err != nil {
			t.Fatalf("Failed to decode: %v", err)
		}
		if decoded["type"] != "error" || decoded["kind"] != "validation" || decoded["message"] != "bad input" {
			t.Errorf("Unexpected error frame: %v", decoded)
		}
	})

	t.Run("empty fields are omitted", func(t *testing.T) {
		data, err := json.Marshal(Frame{Type: FrameConversationReset})
		if err != nil {
			t.Fatalf("Failed to encode: %v", err)
		}
		if string(data) != `{"type":"conversation-reset"}` {
			t.Errorf("Expected minimal frame, got %s", data)
		}
	})
}

func TestClientSendQueue(t *testing.T) {
	t.Run("frames queue in order", func(t *testing.T) {
		client := NewClient(nil, "conn-t")
		client.SendFrame(Frame{Type: FramePartial, Text: "a"})
		client.SendFrame(Frame{Type: FramePartial, Text: "b"})

		frames := drainFrames(t, client)
		if len(frames) != 2 || frames[0].Text != "a" || frames[1].Text != "b" {
			t.Errorf("Queue order broken: %+v", frames)
		}
	})

	t.Run("full queue closes the client", func(t *testing.T) {
		client := NewClient(nil, "conn-t")
		for i := 0; i < 300; i++ {
			client.Send([]byte("x"))
		}
		if !client.IsClosed() {
			t.Error("Expected client closed when the queue overflows")
		}
	})

	t.Run("send after close is a no-op", func(t *testing.T) {
		client := NewClient(nil, "conn-t")
		client.Close()
		client.Send([]byte("x"))
		client.Close()
	})
}

func TestClientManager(t *testing.T) {
	manager := NewClientManager()
	client := NewClient(nil, "conn-m")

	manager.Register(client)
	if manager.Count() != 1 {
		t.Errorf("Expected 1 client, got %d", manager.Count())
	}
	if manager.Get("conn-m") != client {
		t.Error("Expected registered client back")
	}
	if manager.Get("conn-missing") != nil {
		t.Error("Expected nil for unknown connection")
	}

	manager.Remove("conn-m")
	if manager.Count() != 0 {
		t.Errorf("Expected 0 clients, got %d", manager.Count())
	}
}
