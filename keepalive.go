package mq

import (
	"context"
	"time"

	"github.com/gonzalop/mqisdp/internal/packets"
)

// keepAliveLoop sends PINGREQ whenever no other packet has been written
// for cfg.KeepAlive and waits up to the same interval for PINGRESP. A
// failed ping is only logged; the session is not torn down here, and
// transport failures are handled by the receive loop.
func (s *Session) keepAliveLoop() error {
	interval := s.cfg.KeepAlive
	timer := time.NewTimer(interval)
	defer timer.Stop()

	for {
		select {
		case <-s.closed:
			return nil
		case <-s.groupCtx.Done():
			return nil
		case <-s.lastActivity:
			if !timer.Stop() {
				<-timer.C
			}
			timer.Reset(interval)
		case <-timer.C:
			if err := s.ping(); err != nil {
				s.cfg.Logger.Warning("mqisdp: keep-alive ping failed: ", err)
			}
			timer.Reset(interval)
		}
	}
}

func (s *Session) ping() error {
	if err := s.send(&packets.PingreqPacket{}); err != nil {
		return err
	}
	ctx, cancel := context.WithTimeout(context.Background(), s.cfg.KeepAlive)
	defer cancel()
	_, err := s.dispatcher.AwaitMsg(ctx, packets.PINGRESP, 0)
	return err
}
