package mq

import (
	"context"
	"time"
)

// handleTransportFailure reacts to a read error observed by the receive
// loop. With no ReconnectPeriod configured it returns false, which tells
// the caller to let the receive loop (and the session) exit. Otherwise it
// empties the writer slot — blocking concurrent Publish/Subscribe calls —
// and retries Dial plus the CONNECT handshake every ReconnectPeriod until
// one succeeds, then returns true so the receive loop resumes.
func (s *Session) handleTransportFailure(cause error) bool {
	s.cfg.Logger.Warning("mqisdp: transport failure: ", cause)

	period := time.Duration(s.reconnectPeriod.Load())
	if period <= 0 {
		return false
	}

	s.transportMu.Lock()
	if s.transport != nil {
		s.transport.Close()
	}
	s.transport = nil
	s.transportMu.Unlock()

	for {
		select {
		case <-s.closed:
			return false
		case <-s.groupCtx.Done():
			return false
		default:
		}

		transport, err := s.reconnectOnce()
		if err != nil {
			s.cfg.Logger.Warning("mqisdp: reconnect attempt failed: ", err)
			select {
			case <-time.After(time.Duration(s.reconnectPeriod.Load())):
			case <-s.closed:
				return false
			}
			continue
		}

		s.transportMu.Lock()
		s.transport = transport
		s.transportCond.Broadcast()
		s.transportMu.Unlock()

		s.reconnectMu.Lock()
		callbacks := append([]func(){}, s.onReconnect...)
		s.reconnectMu.Unlock()
		go func() {
			for _, cb := range callbacks {
				cb()
			}
		}()
		return true
	}
}

func (s *Session) reconnectOnce() (Transport, error) {
	timeout := s.cfg.ConnectTimeout
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	ctx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()

	transport, err := s.cfg.Dial(ctx)
	if err != nil {
		return nil, err
	}
	if err := s.handshake(ctx, transport); err != nil {
		transport.Close()
		return nil, err
	}
	return transport, nil
}
