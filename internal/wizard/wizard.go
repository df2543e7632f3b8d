// Package wizard implements the per-user conversation that collects a
// Cloudflare token, zone, domain and IP and creates a wildcard A record
// after explicit confirmation.
package wizard

import (
	"context"
	"strings"

	"github.com/go-logr/logr"

	"github.com/yuriy-kovalchuk/yk-wildcard-bot/internal/dns"
)

// autoTTL asks the provider to pick the TTL.
const autoTTL = 1

// DomainStore backs the /list command and remembers created records.
type DomainStore interface {
	Set(name, ip string)
	Lookup(name string) (string, bool)
	Domains() []string
}

// Metrics receives wizard events. *metrics.Recorder implements it.
type Metrics interface {
	SessionStarted()
	SessionsActive(n int)
	InputRejected(state string)
	ProviderCall(operation, outcome string)
	Outcome(outcome string)
}

// Wizard drives setup sessions. Events for a single user must be delivered
// one at a time; different users may be served concurrently.
type Wizard struct {
	DNS      dns.Provider
	Sessions *Store
	Domains  DomainStore
	Metrics  Metrics
	Log      logr.Logger
}

// Start begins a fresh session for userID, discarding any in progress.
func (w *Wizard) Start(userID int64) Reply {
	sess := newSession()
	w.Sessions.Put(userID, sess)
	w.Metrics.SessionStarted()
	w.Metrics.SessionsActive(w.Sessions.Len())
	w.Log.Info("setup started", "user", userID, "session", sess.ID)
	return text(msgSetupStarted)
}

// State reports the state of userID's session, if any.
func (w *Wizard) State(userID int64) (State, bool) {
	sess, ok := w.Sessions.Get(userID)
	return sess.State, ok
}

// HandleText feeds free text to userID's session. It reports false when the
// user has no session, in which case nothing should be sent.
func (w *Wizard) HandleText(ctx context.Context, userID int64, input string) (Reply, bool) {
	sess, ok := w.Sessions.Get(userID)
	if !ok {
		return Reply{}, false
	}
	input = strings.TrimSpace(input)

	var reply Reply
	switch sess.State {
	case StateAwaitCredential:
		reply = w.acceptCredential(ctx, userID, sess, input)
	case StateAwaitZone:
		reply = w.acceptZone(userID, sess, input)
	case StateAwaitDomain:
		reply = w.acceptDomain(userID, sess, input)
	case StateAwaitIP:
		reply = w.acceptIP(userID, sess, input)
	case StateAwaitConfirmation:
		reply = text(msgUseButtons)
	default:
		w.Log.Error(nil, "session in invalid state, discarding", "user", userID, "state", sess.State)
		w.discard(userID, sess.ID)
		return text(msgNothingPending), true
	}
	return reply, true
}

func (w *Wizard) reject(userID int64, sess Session, msg string) Reply {
	w.Metrics.InputRejected(sess.State.String())
	w.Log.V(1).Info("input rejected", "user", userID, "state", sess.State.String())
	return text(msg)
}

// advance stores sess in its next state unless the session was replaced
// meanwhile.
func (w *Wizard) advance(userID int64, sess Session, next State) bool {
	sess.State = next
	if !w.Sessions.Update(userID, sess) {
		w.Log.V(1).Info("session superseded, dropping transition", "user", userID, "session", sess.ID)
		return false
	}
	w.Log.V(1).Info("state changed", "user", userID, "state", next.String())
	return true
}

func (w *Wizard) acceptCredential(ctx context.Context, userID int64, sess Session, token string) Reply {
	if !validToken(token) {
		return w.reject(userID, sess, msgTokenTooShort)
	}

	zones, err := w.DNS.ListZones(ctx, token)
	if err == nil && len(zones) == 0 {
		err = &dns.Error{Kind: dns.KindNoZones, Op: "list_zones"}
	}
	if err != nil {
		kind := dns.KindOf(err)
		w.Metrics.ProviderCall("list_zones", outcomeOf(err))
		w.Log.Info("token verification failed", "user", userID, "kind", kind.String())
		switch kind {
		case dns.KindNoZones:
			return w.reject(userID, sess, msgNoZones)
		case dns.KindUnauthorized, dns.KindHTTPError:
			return w.reject(userID, sess, msgTokenRejected)
		default:
			return w.reject(userID, sess, transportFailureText(err))
		}
	}
	w.Metrics.ProviderCall("list_zones", "ok")

	sess.APIToken = token
	if !w.advance(userID, sess, StateAwaitZone) {
		return text(msgNothingPending)
	}
	return text(zonesText(zones))
}

func (w *Wizard) acceptZone(userID int64, sess Session, zoneID string) Reply {
	if zoneID == "" {
		return w.reject(userID, sess, msgZoneEmpty)
	}
	sess.ZoneID = zoneID
	if !w.advance(userID, sess, StateAwaitDomain) {
		return text(msgNothingPending)
	}
	return text(msgAskDomain)
}

func (w *Wizard) acceptDomain(userID int64, sess Session, domain string) Reply {
	if !validDomain(domain) {
		return w.reject(userID, sess, msgDomainInvalid)
	}
	sess.Domain = domain
	if !w.advance(userID, sess, StateAwaitIP) {
		return text(msgNothingPending)
	}
	return text(msgAskIP)
}

func (w *Wizard) acceptIP(userID int64, sess Session, ip string) Reply {
	if !validIP(ip) {
		return w.reject(userID, sess, msgIPInvalid)
	}
	sess.TargetIP = ip
	if !w.advance(userID, sess, StateAwaitConfirmation) {
		return text(msgNothingPending)
	}
	return confirmReply(sess)
}

func confirmReply(sess Session) Reply {
	return Reply{Text: confirmText(sess.Domain, sess.TargetIP), Choices: confirmChoices(sess.ID)}
}

// HandleChoice resolves the confirmation step from button callback data
// built by ChoiceData. Buttons of an earlier session are refused. The
// session is discarded before any remote call, so a repeated press cannot
// create a second record.
func (w *Wizard) HandleChoice(ctx context.Context, userID int64, data string) Reply {
	sess, ok := w.Sessions.Get(userID)
	if !ok || sess.State != StateAwaitConfirmation {
		return text(msgNothingPending)
	}
	action, sessionID := parseChoice(data)
	if sessionID != sess.ID {
		w.Log.Info("choice for a superseded session ignored", "user", userID, "session", sess.ID)
		return text(msgStaleChoice)
	}
	if action != ChoiceConfirm && action != ChoiceCancel {
		return confirmReply(sess)
	}
	if !w.discard(userID, sess.ID) {
		return text(msgNothingPending)
	}

	if action == ChoiceCancel {
		w.Metrics.Outcome("cancelled")
		w.Log.Info("setup cancelled at confirmation", "user", userID)
		return text(msgCancelled)
	}

	record := dns.Record{
		Hostname: dns.WildcardName(sess.Domain),
		Type:     "A",
		Value:    sess.TargetIP,
		TTL:      autoTTL,
		Proxied:  false,
	}
	id, err := w.DNS.CreateRecord(ctx, sess.APIToken, sess.ZoneID, record)
	if err != nil {
		w.Metrics.ProviderCall("create_record", outcomeOf(err))
		w.Metrics.Outcome("failed")
		w.Log.Info("record creation failed", "user", userID, "name", record.Hostname, "kind", dns.KindOf(err).String())
		return text(createFailedText(err))
	}
	w.Metrics.ProviderCall("create_record", "ok")
	w.Metrics.Outcome("created")
	w.Domains.Set(record.Hostname, record.Value)
	w.Log.Info("wildcard record created", "user", userID, "name", record.Hostname, "id", id)
	return text(createdText(sess.Domain, sess.TargetIP, id))
}

// Cancel discards userID's session. It is safe to call without a session.
func (w *Wizard) Cancel(userID int64) Reply {
	if !w.Sessions.Delete(userID) {
		return text(msgNothingToStop)
	}
	w.Metrics.SessionsActive(w.Sessions.Len())
	w.Metrics.Outcome("cancelled")
	w.Log.Info("setup cancelled", "user", userID)
	return text(msgCancelled)
}

func (w *Wizard) discard(userID int64, id string) bool {
	ok := w.Sessions.CompareAndDelete(userID, id)
	w.Metrics.SessionsActive(w.Sessions.Len())
	return ok
}

// List reports the configured wildcard domains.
func (w *Wizard) List() Reply {
	names := w.Domains.Domains()
	if len(names) == 0 {
		return text(msgNoDomains)
	}
	return text(domainsText(names, w.Domains.Lookup))
}

// Delete is a placeholder; records must be removed in the provider's UI.
func (w *Wizard) Delete() Reply { return text(msgDeleteNotReady) }

// Help returns the usage guide.
func (w *Wizard) Help() Reply { return text(helpText) }

// Welcome greets a user by first name.
func (w *Wizard) Welcome(name string) Reply { return text(welcomeText(name)) }

// UnknownCommand answers a command the bot does not know.
func (w *Wizard) UnknownCommand() Reply { return text(msgUnknownCommand) }

func outcomeOf(err error) string {
	if k := dns.KindOf(err); k != 0 {
		return k.String()
	}
	return "error"
}
