package session

import (
	"sync"
	"time"
)

// DefaultKeepaliveInterval is the heartbeat period. It must stay shorter
// than the server's idle-disconnect threshold.
const DefaultKeepaliveInterval = 55 * time.Second

const keepalivePath = "/v1/keepalive"

// keepaliveSender periodically emits a heartbeat request while the session
// is connected. A send failure on a tick is logged and the task keeps
// running; transport trouble surfaces through the transport's own close
// callback instead.
type keepaliveSender struct {
	stopOnce sync.Once
	stopCh   chan struct{}
}

func startKeepalive(s *Session, interval time.Duration) *keepaliveSender {
	k := &keepaliveSender{stopCh: make(chan struct{})}
	go k.run(s, interval)
	return k
}

func (k *keepaliveSender) run(s *Session, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-k.stopCh:
			return
		case <-ticker.C:
			// A stop that raced the tick wins; never send after shutdown.
			select {
			case <-k.stopCh:
				return
			default:
			}
			s.logger.Debug().Msg("sending keepalive")
			if err := s.sendKeepalive(); err != nil {
				s.logger.Warn().Err(err).Msg("keepalive send failed")
			}
		}
	}
}

// stop halts the task. A stopped sender never fires again.
func (k *keepaliveSender) stop() {
	k.stopOnce.Do(func() { close(k.stopCh) })
}
