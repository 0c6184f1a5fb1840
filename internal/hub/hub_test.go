package hub

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/rs/zerolog"

	"github.com/snoopyylion/hojo-radio-sub001/internal/models"
)

func dialHub(t *testing.T, h *Hub, userID string) (*websocket.Conn, func()) {
	t.Helper()
	upgrader := websocket.Upgrader{}
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ws, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			return
		}
		h.Attach(r.URL.Query().Get("userId"), ws)
	}))

	url := "ws" + strings.TrimPrefix(srv.URL, "http") + "/global?userId=" + userID
	conn, resp, err := websocket.DefaultDialer.Dial(url, nil)
	if err != nil {
		srv.Close()
		t.Fatalf("Dial(%s) = %v, want nil", url, err)
	}
	if resp != nil && resp.Body != nil {
		resp.Body.Close()
	}
	return conn, func() {
		conn.Close()
		srv.Close()
	}
}

func waitForConns(t *testing.T, h *Hub, userID string, want int) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for h.ConnCount(userID) != want {
		if time.Now().After(deadline) {
			t.Fatalf("ConnCount(%s) = %d, want %d", userID, h.ConnCount(userID), want)
		}
		time.Sleep(10 * time.Millisecond)
	}
}

func TestSendToUserReachesAttachedSocket(t *testing.T) {
	h := New(zerolog.Nop())
	conn, teardown := dialHub(t, h, "u1")
	defer teardown()
	waitForConns(t, h, "u1", 1)

	h.SendToUser("u1", models.WireFrame{
		Type: models.FrameNewMessage,
		Message: &models.MessageEvent{
			ID:             "m1",
			ConversationID: "c1",
			SenderID:       "u2",
			SenderName:     "bob",
			Text:           "hi",
		},
	})

	conn.SetReadDeadline(time.Now().Add(2 * time.Second))
	_, data, err := conn.ReadMessage()
	if err != nil {
		t.Fatalf("ReadMessage() = %v, want frame", err)
	}
	var frame models.WireFrame
	if err := json.Unmarshal(data, &frame); err != nil {
		t.Fatalf("Unmarshal(%s) = %v, want nil", data, err)
	}
	if frame.Type != models.FrameNewMessage || frame.Message == nil || frame.Message.ID != "m1" {
		t.Fatalf("frame = %+v, want new_message m1", frame)
	}
}

func TestSendToOtherUserIsInvisible(t *testing.T) {
	h := New(zerolog.Nop())
	conn, teardown := dialHub(t, h, "u1")
	defer teardown()
	waitForConns(t, h, "u1", 1)

	h.SendToUser("u2", models.WireFrame{Type: models.FrameConversationsUpdate})

	conn.SetReadDeadline(time.Now().Add(200 * time.Millisecond))
	if _, _, err := conn.ReadMessage(); err == nil {
		t.Fatalf("ReadMessage() succeeded, want timeout (frame was for u2)")
	}
}

func TestDisconnectUnregisters(t *testing.T) {
	h := New(zerolog.Nop())
	conn, teardown := dialHub(t, h, "u1")
	defer teardown()
	waitForConns(t, h, "u1", 1)

	conn.Close()
	waitForConns(t, h, "u1", 0)
}
