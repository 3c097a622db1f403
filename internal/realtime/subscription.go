package realtime

import (
	"context"
	"fmt"

	"unpod-notifier/internal/logging"
)

// subscribeAll subscribes every configured channel in order. Link errors are
// fatal to the connect attempt; a rejected subscription only parks that one
// channel in SubError.
func (s *Session) subscribeAll(ctx context.Context, link Link) error {
	for _, channel := range s.cfg.Channels {
		if err := s.subscribe(ctx, link, channel); err != nil {
			return err
		}
	}
	return nil
}

func (s *Session) subscribe(ctx context.Context, link Link, channel string) error {
	s.setSubState(channel, SubSubscribing)

	token, err := s.cfg.Tokens.ChannelToken(ctx, channel)
	if err != nil {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		// Open channels accept a blank token, so a failed fetch downgrades
		// to that instead of sinking the whole connect attempt.
		s.logger.Warn("channel token fetch failed, subscribing without token",
			logging.Field("channel", channel),
			logging.Field("error", err),
		)
		s.reportError(&TokenFetchError{Op: "subscription", Err: err})
		token = ""
	}

	id := s.nextID()
	if err := s.send(ctx, link, clientCommand{
		ID:        id,
		Subscribe: &subscribeRequest{Channel: channel, Token: token},
	}); err != nil {
		return err
	}
	reply, err := s.awaitReply(ctx, link, id)
	if err != nil {
		return err
	}
	if reply.Error != nil {
		s.logger.Warn("channel subscription rejected",
			logging.Field("channel", channel),
			logging.Field("code", reply.Error.Code),
			logging.Field("message", reply.Error.Message),
		)
		s.setSubState(channel, SubError)
		s.reportError(fmt.Errorf("subscribe %s rejected: %s (code %d)",
			channel, reply.Error.Message, reply.Error.Code))
		return nil
	}

	s.setSubState(channel, SubSubscribed)
	s.logger.Debug("channel subscribed", logging.Field("channel", channel))
	return nil
}

// resetSubscriptions returns every channel to SubUnsubscribed. Subscriptions
// never survive a dropped connection; the next connect rebuilds them.
func (s *Session) resetSubscriptions() {
	for _, channel := range s.cfg.Channels {
		s.setSubState(channel, SubUnsubscribed)
	}
}

func (s *Session) SubscriptionState(channel string) (SubState, bool) {
	sub, ok := s.subs[channel]
	if !ok {
		return SubUnsubscribed, false
	}
	return sub.current(), true
}

func (s *Session) setSubState(channel string, next SubState) {
	sub, ok := s.subs[channel]
	if !ok {
		return
	}
	prev, changed := sub.to(next)
	if !changed {
		if prev != next {
			s.logger.Debugf("ignoring subscription transition %s -> %s for %s", prev, next, channel)
		}
		return
	}
	s.logger.Debug("channel subscription state",
		logging.Field("channel", channel),
		logging.Field("from", prev),
		logging.Field("to", next),
	)
	if s.cfg.Handlers.OnSubscriptionChange != nil {
		s.cfg.Handlers.OnSubscriptionChange(channel, next)
	}
}
