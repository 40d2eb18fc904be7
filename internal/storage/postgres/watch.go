package postgres

import (
	"context"
	"fmt"
	"time"

	pq "github.com/lib/pq"

	"github.com/julianstephens/agenda/internal/logger"
)

// NotifyChannel is the channel the documents trigger publishes changed collection names on
const NotifyChannel = "agenda_documents"

const (
	listenerMinReconnect = 10 * time.Second
	listenerMaxReconnect = time.Minute
	listenerPingInterval = 90 * time.Second
)

// Changes streams collection names published by the documents trigger.
// After a reconnect every collection is reported as changed since
// notifications may have been missed.
func (s *Store) Changes(ctx context.Context) (<-chan string, error) {
	listener := pq.NewListener(s.connStr, listenerMinReconnect, listenerMaxReconnect,
		func(ev pq.ListenerEventType, err error) {
			if err != nil {
				logger.Warn("Postgres listener event", "event", ev, "error", err)
			}
		})
	if err := listener.Listen(NotifyChannel); err != nil {
		listener.Close()
		return nil, fmt.Errorf("failed to listen on %s: %w", NotifyChannel, err)
	}

	changes := make(chan string, 16)
	go func() {
		defer close(changes)
		defer listener.Close()

		ping := time.NewTicker(listenerPingInterval)
		defer ping.Stop()

		for {
			select {
			case <-ctx.Done():
				return
			case n, ok := <-listener.Notify:
				if !ok {
					return
				}
				collection := ""
				if n != nil {
					collection = n.Extra
				}
				select {
				case changes <- collection:
				case <-ctx.Done():
					return
				}
			case <-ping.C:
				go func() {
					if err := listener.Ping(); err != nil {
						logger.Debug("Postgres listener ping failed", "error", err)
					}
				}()
			}
		}
	}()

	return changes, nil
}
