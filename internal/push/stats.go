package push

// Stats is a point-in-time summary of the manager's state.
type Stats struct {
	Connections     int `json:"total_connections"`
	Users           int `json:"authenticated_users"`
	Channels        int `json:"channels"`
	ContentChannels int `json:"content_channels"`
	PresenceEntries int `json:"presence_entries"`
}

// Stats returns a snapshot of the manager's state. The connection registry,
// channel store and presence index are held together, in lock order, for
// the duration of the read, so the snapshot reflects a single instant.
func (m *Manager) Stats() Stats {
	m.conns.mu.RLock()
	defer m.conns.mu.RUnlock()

	channels, content := m.channels.counts()

	m.presence.mu.RLock()
	defer m.presence.mu.RUnlock()

	return Stats{
		Connections:     len(m.conns.byID),
		Users:           len(m.conns.byUser),
		Channels:        channels,
		ContentChannels: content,
		PresenceEntries: len(m.presence.visible),
	}
}
