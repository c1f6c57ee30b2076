package ws

import "sync"

// Hub maintains the set of active Clients and the rooms (one per session id)
// they joined. Room membership is in-memory only and dies with the process.
type Hub struct {
	// Registered Clients.
	Clients        map[*Client]bool
	ClientsRWMutex sync.RWMutex

	rooms        map[string]map[*Client]bool
	roomsRWMutex sync.RWMutex

	// Register requests from the Clients.
	Register chan *Client

	// Unregister requests from Clients.
	Unregister chan *Client
}

func NewHub() *Hub {
	return &Hub{
		Register:   make(chan *Client),
		Unregister: make(chan *Client),
		Clients:    make(map[*Client]bool),
		rooms:      make(map[string]map[*Client]bool),
	}
}

func (h *Hub) Run() {
	for {
		select {
		case client := <-h.Register:
			if client == nil {
				continue
			}
			h.ClientsRWMutex.Lock()
			h.Clients[client] = true
			h.ClientsRWMutex.Unlock()
		case client := <-h.Unregister:
			if client == nil {
				continue
			}
			h.RemoveFromAllRooms(client)
			h.ClientsRWMutex.Lock()
			if _, ok := h.Clients[client]; ok {
				delete(h.Clients, client)
				client.closeSend()
			}
			h.ClientsRWMutex.Unlock()
		}
	}
}

// JoinRoom adds client to the room for sessionID. Joining twice is a no-op.
func (h *Hub) JoinRoom(client *Client, sessionID string) {
	h.roomsRWMutex.Lock()
	defer h.roomsRWMutex.Unlock()
	room, ok := h.rooms[sessionID]
	if !ok {
		room = make(map[*Client]bool)
		h.rooms[sessionID] = room
	}
	room[client] = true
}

// LeaveRoom removes client from the room for sessionID; no-op if absent.
// The room itself is dropped once its last member leaves.
func (h *Hub) LeaveRoom(client *Client, sessionID string) {
	h.roomsRWMutex.Lock()
	defer h.roomsRWMutex.Unlock()
	room, ok := h.rooms[sessionID]
	if !ok {
		return
	}
	delete(room, client)
	if len(room) == 0 {
		delete(h.rooms, sessionID)
	}
}

// RemoveFromAllRooms is the implicit leave on disconnect.
func (h *Hub) RemoveFromAllRooms(client *Client) {
	h.roomsRWMutex.Lock()
	defer h.roomsRWMutex.Unlock()
	for sessionID, room := range h.rooms {
		delete(room, client)
		if len(room) == 0 {
			delete(h.rooms, sessionID)
		}
	}
}

// InRoom reports whether client is a member of the room for sessionID.
func (h *Hub) InRoom(client *Client, sessionID string) bool {
	h.roomsRWMutex.RLock()
	defer h.roomsRWMutex.RUnlock()
	return h.rooms[sessionID][client]
}

// RoomSize returns the current number of members in the room for sessionID.
func (h *Hub) RoomSize(sessionID string) int {
	h.roomsRWMutex.RLock()
	defer h.roomsRWMutex.RUnlock()
	return len(h.rooms[sessionID])
}

// BroadcastToRoom delivers message to every member of the room, the sender
// included if it is a member. Delivery is fire and forget.
func (h *Hub) BroadcastToRoom(sessionID string, message []byte) {
	h.roomsRWMutex.RLock()
	defer h.roomsRWMutex.RUnlock()
	for client := range h.rooms[sessionID] {
		client.deliver(message)
	}
}

// BroadcastToOthers delivers message to every member of the room except
// sender.
func (h *Hub) BroadcastToOthers(sender *Client, sessionID string, message []byte) {
	h.roomsRWMutex.RLock()
	defer h.roomsRWMutex.RUnlock()
	for client := range h.rooms[sessionID] {
		if client == sender {
			continue
		}
		client.deliver(message)
	}
}
