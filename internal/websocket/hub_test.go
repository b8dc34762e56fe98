package websocket

import (
	"context"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/hhsantos/flight-calendar/internal/models"
	"github.com/hhsantos/flight-calendar/internal/notify"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func dial(t *testing.T, srv *httptest.Server, query string) *websocket.Conn {
	t.Helper()
	url := "ws" + strings.TrimPrefix(srv.URL, "http") + "/api/ws" + query
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	require.NoError(t, err)
	t.Cleanup(func() { conn.Close() })
	return conn
}

func readEvent(t *testing.T, conn *websocket.Conn) notify.Event {
	t.Helper()
	conn.SetReadDeadline(time.Now().Add(2 * time.Second))
	var ev notify.Event
	require.NoError(t, conn.ReadJSON(&ev))
	return ev
}

func TestHub_RoutesEventsByAircraft(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	hub := NewHub()
	go hub.Run(ctx)
	srv := httptest.NewServer(hub)
	defer srv.Close()

	fleet := dial(t, srv, "")
	cessna := dial(t, srv, "?avionId=1")

	require.Eventually(t, func() bool {
		return hub.ClientCount("") == 1 && hub.ClientCount("1") == 1
	}, 2*time.Second, 10*time.Millisecond)

	require.NoError(t, hub.Publish(ctx, notify.Event{
		Type:       notify.EventAircraftStatusChanged,
		AircraftID: "3",
		Aircraft:   &models.Aircraft{ID: "3", Status: models.AircraftStatusMaintenance},
	}))
	require.NoError(t, hub.Publish(ctx, notify.Event{
		Type:        notify.EventReservationCreated,
		AircraftID:  "1",
		Reservation: &models.Reservation{ID: "r1", AircraftID: "1"},
	}))

	first := readEvent(t, fleet)
	assert.Equal(t, "3", first.AircraftID)
	second := readEvent(t, fleet)
	assert.Equal(t, notify.EventReservationCreated, second.Type)

	only := readEvent(t, cessna)
	assert.Equal(t, notify.EventReservationCreated, only.Type)
	assert.Equal(t, "r1", only.Reservation.ID)
}

func TestHub_UnregistersClosedClients(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	hub := NewHub()
	go hub.Run(ctx)
	srv := httptest.NewServer(hub)
	defer srv.Close()

	conn := dial(t, srv, "?avionId=2")
	require.Eventually(t, func() bool { return hub.ClientCount("2") == 1 }, 2*time.Second, 10*time.Millisecond)

	conn.Close()
	assert.Eventually(t, func() bool { return hub.ClientCount("2") == 0 }, 2*time.Second, 10*time.Millisecond)
}

func TestHub_PublishAfterShutdown(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	hub := NewHub()
	stopped := make(chan struct{})
	go func() {
		hub.Run(ctx)
		close(stopped)
	}()
	cancel()
	<-stopped

	for i := 0; i < 300; i++ {
		require.NoError(t, hub.Publish(context.Background(), notify.Event{Type: notify.EventReservationDeleted}))
	}
}
