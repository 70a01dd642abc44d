package gateway

// Kind classifies how a gateway call went.
type Kind int

const (
	KindNone         Kind = iota // call succeeded, or by-id lookup found nothing
	KindTransport                // remote call failed or the reply was unreadable
	KindApplication              // remote answered success=false
	KindPartialBatch             // call succeeded but some submitted records failed
	KindInvalidID                // identifier could not be coerced to an integer
)

func (k Kind) String() string {
	switch k {
	case KindNone:
		return "ok"
	case KindTransport:
		return "transport"
	case KindApplication:
		return "application"
	case KindPartialBatch:
		return "partial_batch"
	case KindInvalidID:
		return "invalid_id"
	default:
		return "unknown"
	}
}

// Outcome is returned next to every gateway result. Messages are meant for
// the user; the gateway never delivers them itself.
type Outcome struct {
	Kind     Kind
	Messages []string
	Err      error
}

// Failed reports whether anything went wrong. A partial batch failure can
// still come with a usable record.
func (o Outcome) Failed() bool {
	return o.Kind != KindNone
}

func ok() Outcome {
	return Outcome{Kind: KindNone}
}
