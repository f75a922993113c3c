package websocket

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/eveul/storefront/internal/events"
	"github.com/gorilla/websocket"
	"github.com/hashicorp/go-hclog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestServer(t *testing.T, origins ...string) (*httptest.Server, *events.EventBus[any]) {
	t.Helper()
	bus := events.NewEventBus[any]()
	h := NewHandler(hclog.NewNullLogger(), bus, origins)
	srv := httptest.NewServer(http.HandlerFunc(h.HandleWebSocket))
	t.Cleanup(srv.Close)
	return srv, bus
}

func dial(t *testing.T, srv *httptest.Server, header http.Header) (*websocket.Conn, *http.Response, error) {
	t.Helper()
	url := "ws" + strings.TrimPrefix(srv.URL, "http")
	return websocket.DefaultDialer.Dial(url, header)
}

func TestStreamsCatalogEvents(t *testing.T) {
	srv, bus := newTestServer(t)

	conn, _, err := dial(t, srv, nil)
	require.NoError(t, err)
	defer conn.Close()

	require.Eventually(t, func() bool { return bus.Len() == 1 }, time.Second, 5*time.Millisecond)

	bus.Publish("ignored")
	bus.Publish(events.PrimaryImageChanged{ProductID: "p1", ImageID: "i2"})

	conn.SetReadDeadline(time.Now().Add(2 * time.Second))
	_, payload, err := conn.ReadMessage()
	require.NoError(t, err)

	var msg struct {
		EventType string                     `json:"event-type"`
		Data      events.PrimaryImageChanged `json:"data"`
	}
	require.NoError(t, json.Unmarshal(payload, &msg))
	assert.Equal(t, "primary_image_changed", msg.EventType)
	assert.Equal(t, events.PrimaryImageChanged{ProductID: "p1", ImageID: "i2"}, msg.Data)
}

func TestClientDisconnectUnsubscribes(t *testing.T) {
	srv, bus := newTestServer(t)

	conn, _, err := dial(t, srv, nil)
	require.NoError(t, err)
	require.Eventually(t, func() bool { return bus.Len() == 1 }, time.Second, 5*time.Millisecond)

	conn.Close()
	assert.Eventually(t, func() bool { return bus.Len() == 0 }, 2*time.Second, 5*time.Millisecond)
}

func TestBusCloseEndsStream(t *testing.T) {
	srv, bus := newTestServer(t)

	conn, _, err := dial(t, srv, nil)
	require.NoError(t, err)
	defer conn.Close()
	require.Eventually(t, func() bool { return bus.Len() == 1 }, time.Second, 5*time.Millisecond)

	bus.Close()

	conn.SetReadDeadline(time.Now().Add(2 * time.Second))
	_, _, err = conn.ReadMessage()
	assert.True(t, websocket.IsCloseError(err, websocket.CloseGoingAway), "got %v", err)
}

func TestOriginCheck(t *testing.T) {
	srv, _ := newTestServer(t, "https://eveul.example")

	tt := []struct {
		name   string
		origin string
		ok     bool
	}{
		{"allowed", "https://eveul.example", true},
		{"foreign", "https://evil.example", false},
		{"no origin", "", true},
	}

	for _, tc := range tt {
		t.Run(tc.name, func(t *testing.T) {
			header := http.Header{}
			if tc.origin != "" {
				header.Set("Origin", tc.origin)
			}

			conn, resp, err := dial(t, srv, header)
			if tc.ok {
				require.NoError(t, err)
				conn.Close()
				return
			}
			require.Error(t, err)
			require.NotNil(t, resp)
			assert.Equal(t, http.StatusForbidden, resp.StatusCode)
		})
	}
}
