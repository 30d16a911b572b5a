package engine

import (
	"sort"
	"time"

	"bipv-docs/internal/database"
	"bipv-docs/internal/engine/actors"
	"bipv-docs/internal/models"
	"bipv-docs/internal/utils"

	"github.com/asynkron/protoactor-go/actor"
)

// Options tunes the actors started by the engine.
type Options struct {
	BcryptCost     int
	RequestTimeout time.Duration
	Notifier       actors.Notifier
}

// Engine coordinates the top-level actors of the system
type Engine struct {
	system           *actor.ActorSystem
	ledgerSupervisor *actor.PID
	userSupervisor   *actor.PID
	metrics          *utils.MetricsCollector
	requestTimeout   time.Duration
}

func NewEngine(system *actor.ActorSystem, store database.Store, metrics *utils.MetricsCollector, organizations map[string]*models.Organization, opts Options) *Engine {
	if opts.RequestTimeout <= 0 {
		opts.RequestTimeout = 5 * time.Second
	}

	ledgerProps := actor.PropsFromProducer(func() actor.Actor {
		return actors.NewLedgerSupervisor(store, metrics, opts.Notifier, opts.RequestTimeout)
	})
	userProps := actor.PropsFromProducer(func() actor.Actor {
		return actors.NewUserSupervisor(store, organizations, opts.BcryptCost, opts.RequestTimeout)
	})

	return &Engine{
		system:           system,
		ledgerSupervisor: system.Root.Spawn(ledgerProps),
		userSupervisor:   system.Root.Spawn(userProps),
		metrics:          metrics,
		requestTimeout:   opts.RequestTimeout,
	}
}

func (e *Engine) GetLedgerSupervisor() *actor.PID {
	return e.ledgerSupervisor
}

func (e *Engine) GetUserSupervisor() *actor.PID {
	return e.userSupervisor
}

// AskLedger sends msg to the ledger of namespace and waits for the reply. An
// *utils.AppError reply is returned as the error.
func (e *Engine) AskLedger(namespace string, msg any) (any, error) {
	return e.ask(e.ledgerSupervisor, &actors.ScopedMsg{Namespace: namespace, Message: msg}, "ledger")
}

// AskUsers sends msg to the user supervisor and waits for the reply.
func (e *Engine) AskUsers(msg any) (any, error) {
	return e.ask(e.userSupervisor, msg, "user")
}

func (e *Engine) ask(pid *actor.PID, msg any, name string) (any, error) {
	result, err := e.system.Root.RequestFuture(pid, msg, e.requestTimeout).Result()
	if err != nil {
		return nil, utils.NewAppError(utils.ErrActorTimeout, "Actor communication timeout: "+name, err)
	}
	if appErr, ok := result.(*utils.AppError); ok {
		return nil, appErr
	}
	return result, nil
}

func (e *Engine) Metrics() *utils.MetricsCollector {
	return e.metrics
}

// Namespaces lists the ledgers that have been used since startup.
func (e *Engine) Namespaces() ([]string, error) {
	result, err := e.ask(e.ledgerSupervisor, &actors.GetNamespacesMsg{}, "ledger")
	if err != nil {
		return nil, err
	}
	namespaces, _ := result.([]string)
	sort.Strings(namespaces)
	return namespaces, nil
}
