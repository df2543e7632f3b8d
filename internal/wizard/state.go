package wizard

// State is a step of the setup conversation. The zero value is not a valid
// state; a user without a session is idle.
type State int

const (
	StateAwaitCredential State = iota + 1
	StateAwaitZone
	StateAwaitDomain
	StateAwaitIP
	StateAwaitConfirmation
)

func (s State) String() string {
	switch s {
	case StateAwaitCredential:
		return "await_credential"
	case StateAwaitZone:
		return "await_zone"
	case StateAwaitDomain:
		return "await_domain"
	case StateAwaitIP:
		return "await_ip"
	case StateAwaitConfirmation:
		return "await_confirmation"
	default:
		return "invalid"
	}
}
