package actors

import (
	"fmt"
	"time"

	"bipv-docs/internal/database"
	"bipv-docs/internal/utils"

	"github.com/asynkron/protoactor-go/actor"
	"github.com/sirupsen/logrus"
)

// ScopedMsg addresses a ledger message to one channel/chaincode namespace.
type ScopedMsg struct {
	Namespace string
	Message   any
}

// GetNamespacesMsg asks the supervisor which ledgers it has started.
type GetNamespacesMsg struct{}

// LedgerSupervisor starts one LedgerActor per namespace on first use and routes
// scoped messages to it. The reply goes straight from the ledger actor to the
// original sender.
type LedgerSupervisor struct {
	ledgers  map[string]*actor.PID
	store    database.Store
	metrics  *utils.MetricsCollector
	notifier Notifier
	timeout  time.Duration
	now      func() time.Time
}

func NewLedgerSupervisor(store database.Store, metrics *utils.MetricsCollector, notifier Notifier, timeout time.Duration) *LedgerSupervisor {
	return &LedgerSupervisor{
		ledgers:  make(map[string]*actor.PID),
		store:    store,
		metrics:  metrics,
		notifier: notifier,
		timeout:  timeout,
		now:      time.Now,
	}
}

func (s *LedgerSupervisor) Receive(context actor.Context) {
	switch msg := context.Message().(type) {
	case *actor.Started:
		logrus.Debug("LedgerSupervisor started")

	case *actor.Stopping, *actor.Stopped:

	case *ScopedMsg:
		if msg.Namespace == "" {
			context.Respond(utils.NewAppError(utils.ErrInvalidInput, "namespace is required", nil))
			return
		}
		pid := s.ledgerFor(context, msg.Namespace)
		context.RequestWithCustomSender(pid, msg.Message, context.Sender())

	case *GetNamespacesMsg:
		namespaces := make([]string, 0, len(s.ledgers))
		for ns := range s.ledgers {
			namespaces = append(namespaces, ns)
		}
		context.Respond(namespaces)

	default:
		logrus.Warnf("LedgerSupervisor: Unknown message type: %T", msg)
		if context.Sender() != nil {
			context.Respond(utils.NewAppError(utils.ErrMessageRejected, fmt.Sprintf("unsupported message %T", msg), nil))
		}
	}
}

func (s *LedgerSupervisor) ledgerFor(context actor.Context, namespace string) *actor.PID {
	if pid, ok := s.ledgers[namespace]; ok {
		return pid
	}

	props := actor.PropsFromProducer(func() actor.Actor {
		a := NewLedgerActor(namespace, s.store, s.metrics, s.notifier, s.timeout)
		a.now = s.now
		return a
	})
	pid := context.Spawn(props)
	s.ledgers[namespace] = pid

	logrus.WithField("namespace", namespace).Info("Started ledger actor")
	return pid
}
