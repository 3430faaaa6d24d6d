//go:build integration

package integration

import (
	"encoding/json"
	"strings"
	"testing"
	"time"

	"arbibot/internal/models"

	gws "github.com/gorilla/websocket"
)

func dialWS(t *testing.T, ts *TestServer) *gws.Conn {
	t.Helper()
	url := "ws" + strings.TrimPrefix(ts.Server.URL, "http") + "/ws/stream"
	conn, _, err := gws.DefaultDialer.Dial(url, nil)
	if err != nil {
		t.Fatalf("ошибка подключения WebSocket: %v", err)
	}
	return conn
}

func TestWS_ClientReceivesTradeBroadcast(t *testing.T) {
	ts := SetupTestServer(t)
	if ts == nil {
		return
	}
	defer ts.Cleanup()

	conn := dialWS(t, ts)
	defer conn.Close()

	// Регистрация клиента в hub асинхронна
	deadline := time.Now().Add(2 * time.Second)
	for ts.Hub.ClientCount() == 0 && time.Now().Before(deadline) {
		time.Sleep(10 * time.Millisecond)
	}
	if ts.Hub.ClientCount() != 1 {
		t.Fatalf("клиент не зарегистрировался: %d", ts.Hub.ClientCount())
	}

	ts.Hub.BroadcastTrade(&models.TradeRecord{
		ID:        "ws-t1",
		Symbol:    "BTC/USDT",
		BuyVenue:  "binance",
		SellVenue: "kraken",
		ProfitUSD: 0.99,
		Status:    "COMPLETED",
	})

	conn.SetReadDeadline(time.Now().Add(3 * time.Second))
	_, data, err := conn.ReadMessage()
	if err != nil {
		t.Fatalf("ошибка чтения сообщения: %v", err)
	}

	var msg struct {
		Type string `json:"type"`
		Data struct {
			ID        string  `json:"id"`
			ProfitUSD float64 `json:"profit_usd"`
		} `json:"data"`
	}
	if err := json.Unmarshal(data, &msg); err != nil {
		t.Fatalf("ошибка декодирования: %v", err)
	}
	if msg.Type != "trade" || msg.Data.ID != "ws-t1" {
		t.Errorf("неожиданное сообщение: %s", data)
	}
}

func TestWS_ClientDisconnect(t *testing.T) {
	ts := SetupTestServer(t)
	if ts == nil {
		return
	}
	defer ts.Cleanup()

	conn := dialWS(t, ts)

	deadline := time.Now().Add(2 * time.Second)
	for ts.Hub.ClientCount() == 0 && time.Now().Before(deadline) {
		time.Sleep(10 * time.Millisecond)
	}

	conn.Close()

	deadline = time.Now().Add(2 * time.Second)
	for ts.Hub.ClientCount() != 0 && time.Now().Before(deadline) {
		time.Sleep(10 * time.Millisecond)
	}
	if ts.Hub.ClientCount() != 0 {
		t.Errorf("клиент не отключился: %d", ts.Hub.ClientCount())
	}
}
