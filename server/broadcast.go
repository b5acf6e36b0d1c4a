package server

import (
	"time"

	"github.com/shirou/gopsutil/v3/mem"

	"github.com/teranos/floorcheck/maint"
	"github.com/teranos/floorcheck/session"
)

type sessionUpdateMessage struct {
	Type    string           `json:"type"`
	Session *session.Session `json:"session"`
}

type tasksUpdateMessage struct {
	Type  string          `json:"type"`
	Tasks []maint.DueTask `json:"tasks"`
	Count int             `json:"count"`
}

type readerStateMessage struct {
	Type  string `json:"type"`
	State string `json:"state"`
}

type dbStatusMessage struct {
	Type string `json:"type"`
	Up   bool   `json:"up"`
}

type daemonStatusMessage struct {
	Type      string                 `json:"type"`
	Ticker    map[string]interface{} `json:"ticker,omitempty"`
	MemoryMB  float64                `json:"memory_mb"`
	Clients   int                    `json:"clients"`
	Timestamp string                 `json:"timestamp"`
}

// broadcastMessage sends a message to all connected WebSocket clients.
// Slow clients are skipped rather than blocking the broadcast.
func (s *Server) broadcastMessage(msg interface{}) {
	s.mu.RLock()
	clients := make([]*Client, 0, len(s.clients))
	for client := range s.clients {
		clients = append(clients, client)
	}
	s.mu.RUnlock()

	for _, client := range clients {
		client.queue(msg)
	}
}

// SessionChanged implements session.Notifier.
func (s *Server) SessionChanged(sess *session.Session) {
	s.broadcastMessage(sessionUpdateMessage{Type: "session_update", Session: sess})
}

// TasksChanged implements session.Notifier.
func (s *Server) TasksChanged(tasks []maint.DueTask) {
	if tasks == nil {
		tasks = []maint.DueTask{}
	}
	s.broadcastMessage(tasksUpdateMessage{Type: "tasks_update", Tasks: tasks, Count: len(tasks)})
}

// ReaderState implements session.Notifier.
func (s *Server) ReaderState(state string) {
	s.broadcastMessage(readerStateMessage{Type: "reader_state", State: state})
}

// startDBStatusBroadcaster probes the database every second and pushes a
// db_status message when reachability flips.
func (s *Server) startDBStatusBroadcaster() {
	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		ticker := time.NewTicker(1 * time.Second)
		defer ticker.Stop()

		for {
			select {
			case <-s.ctx.Done():
				return
			case <-ticker.C:
				up := s.dbUp()
				if s.lastDBUp != nil && *s.lastDBUp == up {
					continue
				}
				s.lastDBUp = &up
				if !up {
					s.logger.Warnw("Database unreachable")
				}
				s.broadcastMessage(dbStatusMessage{Type: "db_status", Up: up})
			}
		}
	}()
}

// startDaemonStatusBroadcaster pushes generator and process stats to
// connected clients every 10 seconds. Nothing is sent while no kiosk
// frontend is connected.
func (s *Server) startDaemonStatusBroadcaster() {
	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		ticker := time.NewTicker(10 * time.Second)
		defer ticker.Stop()

		for {
			select {
			case <-s.ctx.Done():
				return
			case <-ticker.C:
				s.mu.RLock()
				clientCount := len(s.clients)
				s.mu.RUnlock()
				if clientCount == 0 {
					continue
				}

				msg := daemonStatusMessage{
					Type:      "daemon_status",
					Clients:   clientCount,
					Timestamp: time.Now().Format(time.RFC3339),
				}
				if s.ticker != nil {
					msg.Ticker = s.ticker.GetStats()
				}
				if vm, err := mem.VirtualMemory(); err == nil {
					msg.MemoryMB = float64(vm.Used) / 1024 / 1024
				}

				s.broadcastMessage(msg)
			}
		}
	}()
}
