package websocket

import (
	"context"
	"encoding/json"
	"sync"
	"time"

	"github.com/ikkim/medilens-admin/internal/app/model"
	"github.com/ikkim/medilens-admin/internal/metrics"
	"github.com/ikkim/medilens-admin/pkg/logger"
)

const (
	// Rate limiting: 최대 메시지 수 (1초당)
	maxMessagesPerSecond = 10

	sendBufferSize = 64
)

// ClientMessage 클라이언트로부터 받은 메시지
type ClientMessage struct {
	Type          string `json:"type"`           // subscribe, unsubscribe
	InstitutionID string `json:"institution_id"` // 비어 있으면 전체 이벤트 수신
}

// Client 관리자 대시보드 WebSocket 세션
type Client struct {
	Hub           *Hub
	Conn          *Conn
	ID            string
	Send          chan []byte
	institutionID string // 구독 중인 기관 (빈 값이면 전체)
	mu            sync.RWMutex
	MessageCount  int       // 최근 1초간 받은 메시지 수
	LastResetTime time.Time // 마지막 카운터 리셋 시간
	RateMu        sync.Mutex
}

func NewClient(hub *Hub, conn *Conn, id, institutionID string) *Client {
	return &Client{
		Hub:           hub,
		Conn:          conn,
		ID:            id,
		Send:          make(chan []byte, sendBufferSize),
		institutionID: institutionID,
	}
}

// Subscribed reports whether the client wants events of the given institution.
func (c *Client) Subscribed(institutionID string) bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.institutionID == "" || c.institutionID == institutionID
}

func (c *Client) setInstitution(institutionID string) {
	c.mu.Lock()
	c.institutionID = institutionID
	c.mu.Unlock()
}

// membershipChange 등록/해제 요청. 한 채널로 받아 요청 순서를 유지
type membershipChange struct {
	client *Client
	join   bool
}

// Hub 결제/라이선스 이벤트를 연결된 대시보드에 전달
type Hub struct {
	clients map[*Client]bool

	membership chan membershipChange
	broadcast  chan model.BillingEvent

	mu sync.RWMutex
}

// NewHub Hub 생성
func NewHub() *Hub {
	return &Hub{
		clients:    make(map[*Client]bool),
		membership: make(chan membershipChange, 512),
		broadcast:  make(chan model.BillingEvent, 1024),
	}
}

// Run owns client registration until ctx is canceled, then closes every session.
func (h *Hub) Run(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			h.mu.Lock()
			for client := range h.clients {
				close(client.Send)
				delete(h.clients, client)
			}
			h.mu.Unlock()
			metrics.BillingEventSubscribers.Set(0)
			return

		case change := <-h.membership:
			if change.join {
				h.addClient(change.client)
			} else {
				h.removeClient(change.client)
			}

		case event := <-h.broadcast:
			data, err := json.Marshal(event)
			if err != nil {
				logger.Error("Failed to marshal billing event", err, nil)
				continue
			}

			h.mu.RLock()
			for client := range h.clients {
				if !client.Subscribed(event.InstitutionID) {
					continue
				}
				select {
				case client.Send <- data:
				default:
					// Send 채널이 막혀있음 - 비동기로 정리
					go h.Unregister(client)
					logger.Warn("Client send buffer full, disconnecting", map[string]interface{}{
						"client_id": client.ID,
					})
				}
			}
			h.mu.RUnlock()
		}
	}
}

func (h *Hub) addClient(client *Client) {
	h.mu.Lock()
	h.clients[client] = true
	total := len(h.clients)
	h.mu.Unlock()
	metrics.BillingEventSubscribers.Set(float64(total))
	logger.Info("WebSocket client registered", map[string]interface{}{
		"client_id":      client.ID,
		"total_sessions": total,
	})
}

func (h *Hub) removeClient(client *Client) {
	h.mu.Lock()
	if _, ok := h.clients[client]; ok {
		delete(h.clients, client)
		close(client.Send)
	}
	total := len(h.clients)
	h.mu.Unlock()
	metrics.BillingEventSubscribers.Set(float64(total))
	logger.Info("WebSocket client unregistered", map[string]interface{}{
		"client_id":          client.ID,
		"remaining_sessions": total,
	})
}

// Publish queues a billing event for delivery. Events are dropped when the queue is full.
func (h *Hub) Publish(event model.BillingEvent) {
	select {
	case h.broadcast <- event:
	default:
		logger.Warn("Broadcast channel full, billing event dropped", map[string]interface{}{
			"type":      event.Type,
			"entity_id": event.EntityID,
		})
	}
}

// Register 클라이언트 등록
func (h *Hub) Register(client *Client) {
	h.membership <- membershipChange{client: client, join: true}
}

// Unregister 클라이언트 등록 해제
func (h *Hub) Unregister(client *Client) {
	h.membership <- membershipChange{client: client}
}

// ClientCount 연결된 세션 수
func (h *Hub) ClientCount() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients)
}

// HandleClientMessage 클라이언트 메시지 처리 (구독 기관 변경)
func (h *Hub) HandleClientMessage(client *Client, message []byte) {
	client.RateMu.Lock()
	now := time.Now()
	if now.Sub(client.LastResetTime) >= time.Second {
		client.MessageCount = 0
		client.LastResetTime = now
	}
	client.MessageCount++
	count := client.MessageCount
	client.RateMu.Unlock()

	if count > maxMessagesPerSecond {
		logger.Warn("Rate limit exceeded", map[string]interface{}{
			"client_id": client.ID,
			"count":     count,
		})
		return
	}

	var msg ClientMessage
	if err := json.Unmarshal(message, &msg); err != nil {
		logger.Warn("Failed to parse client message", map[string]interface{}{
			"client_id": client.ID,
			"error":     err.Error(),
		})
		return
	}

	switch msg.Type {
	case "subscribe":
		client.setInstitution(msg.InstitutionID)
	case "unsubscribe":
		client.setInstitution("")
	default:
		return
	}

	logger.Debug("Billing subscription changed", map[string]interface{}{
		"client_id":      client.ID,
		"institution_id": msg.InstitutionID,
		"type":           msg.Type,
	})
}
