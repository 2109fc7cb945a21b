package handler_test

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/quangtb/swap-engine/internal/api/dto"
	"github.com/quangtb/swap-engine/internal/bus"
	"github.com/quangtb/swap-engine/internal/domain"
	"github.com/quangtb/swap-engine/internal/store"
)

func dialStream(t *testing.T, server *httptest.Server, orderID string) (*websocket.Conn, *http.Response) {
	t.Helper()
	url := "ws" + strings.TrimPrefix(server.URL, "http") + "/api/v1/orders/" + orderID + "/stream"
	conn, resp, err := websocket.DefaultDialer.Dial(url, nil)
	if err != nil {
		return nil, resp
	}
	return conn, resp
}

func readFrame(t *testing.T, conn *websocket.Conn) dto.StreamFrame {
	t.Helper()
	require.NoError(t, conn.SetReadDeadline(time.Now().Add(2*time.Second)))
	var frame dto.StreamFrame
	require.NoError(t, conn.ReadJSON(&frame))
	return frame
}

func TestStreamReplaysHistoryThenLiveEvents(t *testing.T) {
	f := newAPIFixture(t)
	server := httptest.NewServer(f.router)
	defer server.Close()

	ctx := context.Background()
	orderID := uuid.New().String()
	require.NoError(t, f.store.Create(ctx, &domain.Order{
		ID:           orderID,
		InputToken:   "SOL",
		OutputToken:  "USDC",
		Amount:       10,
		Status:       domain.OrderStatusPending,
		ExecutionLog: []domain.LogEntry{},
	}))

	// History present before the client connects.
	_, err := f.store.Update(ctx, orderID, store.Mutation{Status: domain.OrderStatusRouting, Message: "Finding best route..."})
	require.NoError(t, err)
	_, err = f.store.Update(ctx, orderID, store.Mutation{Status: domain.OrderStatusBuilding, Message: "Quote received: Raydium @ 100.1234"})
	require.NoError(t, err)

	conn, _ := dialStream(t, server, orderID)
	require.NotNil(t, conn)
	defer conn.Close()

	first := readFrame(t, conn)
	assert.Equal(t, orderID, first.OrderID)
	assert.Equal(t, domain.OrderStatusRouting, first.Status)

	second := readFrame(t, conn)
	assert.Equal(t, domain.OrderStatusBuilding, second.Status)

	// A live event published after the replay is forwarded.
	res, err := f.store.Update(ctx, orderID, store.Mutation{Status: domain.OrderStatusSubmitted, Message: "Transaction submitted to network"})
	require.NoError(t, err)
	f.bus.Publish(ctx, bus.Event{
		OrderID:   orderID,
		Status:    res.Entry.Status,
		Message:   res.Entry.Message,
		Timestamp: res.Entry.Timestamp,
		Seq:       res.Seq,
	})

	third := readFrame(t, conn)
	assert.Equal(t, domain.OrderStatusSubmitted, third.Status)
	assert.Equal(t, "Transaction submitted to network", third.Message)
}

func TestStreamDropsAlreadyReplayedEvents(t *testing.T) {
	f := newAPIFixture(t)
	server := httptest.NewServer(f.router)
	defer server.Close()

	ctx := context.Background()
	orderID := uuid.New().String()
	require.NoError(t, f.store.Create(ctx, &domain.Order{
		ID:           orderID,
		Status:       domain.OrderStatusPending,
		ExecutionLog: []domain.LogEntry{},
	}))

	res, err := f.store.Update(ctx, orderID, store.Mutation{Status: domain.OrderStatusRouting, Message: "Finding best route..."})
	require.NoError(t, err)

	conn, _ := dialStream(t, server, orderID)
	require.NotNil(t, conn)
	defer conn.Close()

	replayed := readFrame(t, conn)
	assert.Equal(t, domain.OrderStatusRouting, replayed.Status)

	// The same transition arriving live (duplicate publish) is dropped;
	// only the genuinely new event comes through.
	f.bus.Publish(ctx, bus.Event{OrderID: orderID, Status: res.Entry.Status, Message: res.Entry.Message, Seq: res.Seq})

	next, err := f.store.Update(ctx, orderID, store.Mutation{Status: domain.OrderStatusBuilding, Message: "Quote received"})
	require.NoError(t, err)
	f.bus.Publish(ctx, bus.Event{OrderID: orderID, Status: next.Entry.Status, Message: next.Entry.Message, Seq: next.Seq})

	frame := readFrame(t, conn)
	assert.Equal(t, domain.OrderStatusBuilding, frame.Status)
}

func TestStreamUnknownOrder(t *testing.T) {
	f := newAPIFixture(t)
	server := httptest.NewServer(f.router)
	defer server.Close()

	conn, resp := dialStream(t, server, uuid.New().String())
	require.Nil(t, conn)
	require.NotNil(t, resp)
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
}

func TestStreamInvalidOrderID(t *testing.T) {
	f := newAPIFixture(t)
	server := httptest.NewServer(f.router)
	defer server.Close()

	conn, resp := dialStream(t, server, "not-a-uuid")
	require.Nil(t, conn)
	require.NotNil(t, resp)
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
}

func TestStreamConfirmedHistoryCarriesTxHash(t *testing.T) {
	f := newAPIFixture(t)
	server := httptest.NewServer(f.router)
	defer server.Close()

	ctx := context.Background()
	orderID := uuid.New().String()
	require.NoError(t, f.store.Create(ctx, &domain.Order{
		ID:           orderID,
		Status:       domain.OrderStatusPending,
		ExecutionLog: []domain.LogEntry{},
	}))

	_, err := f.store.Update(ctx, orderID, store.Mutation{
		Status:  domain.OrderStatusConfirmed,
		Message: "Swap confirmed. Final price: 100.2000",
		TxHash:  "0xabc",
	})
	require.NoError(t, err)

	conn, _ := dialStream(t, server, orderID)
	require.NotNil(t, conn)
	defer conn.Close()

	frame := readFrame(t, conn)
	assert.Equal(t, domain.OrderStatusConfirmed, frame.Status)
	assert.Equal(t, "0xabc", frame.TxHash)
}
