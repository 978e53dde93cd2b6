package realtime

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var testUpgrader = websocket.Upgrader{
	CheckOrigin: func(*http.Request) bool { return true },
}

// hubServer upgrades every request and registers the connection under the
// organization named in the query string.
func hubServer(t *testing.T, hub *Hub) *httptest.Server {
	t.Helper()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		conn, err := testUpgrader.Upgrade(w, r, nil)
		if err != nil {
			return
		}
		hub.Register(conn, r.URL.Query().Get("org"), r.URL.Query().Get("user"))
	}))
	t.Cleanup(srv.Close)
	return srv
}

func dial(t *testing.T, srv *httptest.Server, org, user string) *websocket.Conn {
	t.Helper()

	url := "ws" + strings.TrimPrefix(srv.URL, "http") + "/?org=" + org + "&user=" + user
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	require.NoError(t, err)
	t.Cleanup(func() { conn.Close() })
	return conn
}

func readEvent(t *testing.T, conn *websocket.Conn) Event {
	t.Helper()

	conn.SetReadDeadline(time.Now().Add(2 * time.Second))
	var event Event
	require.NoError(t, conn.ReadJSON(&event))
	return event
}

func TestHubPublish(t *testing.T) {
	hub := NewHub(nil)
	srv := hubServer(t, hub)

	orgA := dial(t, srv, "org_a", "user_1")
	orgB := dial(t, srv, "org_b", "user_2")

	require.Eventually(t, func() bool {
		return hub.RoomSize("org_a") == 1 && hub.RoomSize("org_b") == 1
	}, 2*time.Second, 10*time.Millisecond)

	t.Run("Delivers To Organization Room", func(t *testing.T) {
		hub.Publish(Event{
			Type:           EventThreadUpdated,
			OrganizationID: "org_a",
			EntityID:       "trk_1",
		})

		event := readEvent(t, orgA)
		assert.Equal(t, EventThreadUpdated, event.Type)
		assert.Equal(t, "trk_1", event.EntityID)
	})

	t.Run("Does Not Leak Across Organizations", func(t *testing.T) {
		hub.Publish(Event{Type: EventUserMessageUpdated, OrganizationID: "org_a", EntityID: "for_a"})
		hub.Publish(Event{Type: EventAssistantMessageUpdated, OrganizationID: "org_b", EntityID: "for_b"})

		// The first frame org_b sees must be its own event, proving the
		// org_a publish never entered its queue.
		event := readEvent(t, orgB)
		assert.Equal(t, "for_b", event.EntityID)

		event = readEvent(t, orgA)
		assert.Equal(t, "for_a", event.EntityID)
	})
}

func TestHubLifecycle(t *testing.T) {
	hub := NewHub(nil)
	srv := hubServer(t, hub)

	t.Run("Empty Room Publish Is A No-Op", func(t *testing.T) {
		hub.Publish(Event{Type: EventThreadUpdated, OrganizationID: "nobody_home"})
		assert.Equal(t, 0, hub.RoomSize("nobody_home"))
	})

	t.Run("Disconnect Empties The Room", func(t *testing.T) {
		conn := dial(t, srv, "org_gone", "user_1")
		require.Eventually(t, func() bool {
			return hub.RoomSize("org_gone") == 1
		}, 2*time.Second, 10*time.Millisecond)

		conn.Close()
		require.Eventually(t, func() bool {
			return hub.RoomSize("org_gone") == 0
		}, 2*time.Second, 10*time.Millisecond)
	})

	t.Run("Multiple Clients Share A Room", func(t *testing.T) {
		first := dial(t, srv, "org_multi", "user_1")
		second := dial(t, srv, "org_multi", "user_2")

		require.Eventually(t, func() bool {
			return hub.RoomSize("org_multi") == 2
		}, 2*time.Second, 10*time.Millisecond)

		hub.Publish(Event{Type: EventThreadUpdated, OrganizationID: "org_multi", EntityID: "shared"})

		assert.Equal(t, "shared", readEvent(t, first).EntityID)
		assert.Equal(t, "shared", readEvent(t, second).EntityID)
	})
}
