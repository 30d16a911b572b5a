package actors

import (
	stdctx "context"
	"fmt"
	"sync"
	"time"

	"bipv-docs/internal/database"
	"bipv-docs/internal/models"
	"bipv-docs/internal/utils"

	"github.com/asynkron/protoactor-go/actor"
	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
	"golang.org/x/crypto/bcrypt"
)

// UserSupervisor manages all user actors
type UserSupervisor struct {
	userActors     map[uuid.UUID]*actor.PID
	usernameToID   map[string]uuid.UUID
	pending        map[string]bool
	mu             sync.RWMutex
	store          database.UserStore
	organizations  map[string]*models.Organization
	bcryptCost     int
	requestTimeout time.Duration
}

func NewUserSupervisor(store database.UserStore, organizations map[string]*models.Organization, bcryptCost int, requestTimeout time.Duration) actor.Actor {
	return &UserSupervisor{
		userActors:     make(map[uuid.UUID]*actor.PID),
		usernameToID:   make(map[string]uuid.UUID),
		pending:        make(map[string]bool),
		store:          store,
		organizations:  organizations,
		bcryptCost:     bcryptCost,
		requestTimeout: requestTimeout,
	}
}

type (
	RegisterUserMsg struct {
		Username     string
		Password     string
		Organization string
	}

	LoginMsg struct {
		Username string
		Password string
	}

	GetUserProfileMsg struct {
		Username string
	}
)

// LoginResult is the reply to LoginMsg. Token issuing happens at the HTTP layer.
type LoginResult struct {
	Success      bool
	Username     string
	Organization string
	Error        string
}

// UserState is the profile kept by a user actor
type UserState struct {
	ID           uuid.UUID  `json:"id"`
	Username     string     `json:"username"`
	Organization string     `json:"organization"`
	CreatedAt    time.Time  `json:"createdAt"`
	LastLogin    *time.Time `json:"lastLogin,omitempty"`
}

func (s *UserSupervisor) Receive(context actor.Context) {
	switch msg := context.Message().(type) {
	case *actor.Started, *actor.Stopping, *actor.Stopped:

	case *RegisterUserMsg:
		s.register(context, msg)

	case *LoginMsg:
		logrus.WithField("username", msg.Username).Debug("UserSupervisor: Processing login request")

		pid, err := s.getOrCreateUserActor(context, msg.Username)
		if err != nil {
			logrus.WithError(err).Debug("UserSupervisor: User lookup failed")
			context.Respond(&LoginResult{Success: false, Error: "Invalid credentials"})
			return
		}
		// The password check runs on the user actor, which answers the caller itself.
		context.RequestWithCustomSender(pid, msg, context.Sender())

	case *GetUserProfileMsg:
		pid, err := s.getOrCreateUserActor(context, msg.Username)
		if err != nil {
			if appErr, ok := utils.AsAppError(err); ok {
				context.Respond(appErr)
				return
			}
			context.Respond(utils.NewAppError(utils.ErrDatabase, "Failed to load user", err))
			return
		}
		context.RequestWithCustomSender(pid, msg, context.Sender())

	default:
		logrus.Warnf("UserSupervisor: Unknown message type: %T", msg)
		if context.Sender() != nil {
			context.Respond(utils.NewAppError(utils.ErrMessageRejected, fmt.Sprintf("unsupported message %T", msg), nil))
		}
	}
}

// register reserves the username, then lets the new user actor hash the password
// while the supervisor keeps serving other requests.
func (s *UserSupervisor) register(context actor.Context, msg *RegisterUserMsg) {
	if _, ok := s.organizations[msg.Organization]; !ok {
		context.Respond(utils.NewAppError(utils.ErrUnknownOrg, "Unknown organization: "+msg.Organization, nil))
		return
	}
	if s.pending[msg.Username] {
		context.Respond(utils.NewAppError(utils.ErrDuplicate, "Username already registered", nil))
		return
	}

	ctx, cancel := stdctx.WithTimeout(stdctx.Background(), s.requestTimeout)
	existing, err := s.store.GetUserByUsername(ctx, msg.Username)
	cancel()
	switch {
	case err != nil && !utils.IsErrorCode(err, utils.ErrUserNotFound):
		logrus.WithError(err).WithField("username", msg.Username).Error("Failed to look up user")
		context.Respond(utils.NewAppError(utils.ErrDatabase, "Failed to look up user", err))
		return
	case existing != nil:
		logrus.WithField("username", msg.Username).Info("Username already registered")
		context.Respond(utils.NewAppError(utils.ErrDuplicate, "Username already registered", nil))
		return
	}

	userID := uuid.New()
	props := actor.PropsFromProducer(func() actor.Actor {
		return NewUserActor(userID, s.store, s.bcryptCost, s.requestTimeout)
	})
	pid := context.Spawn(props)
	s.pending[msg.Username] = true

	sender := context.Sender()
	future := context.RequestFuture(pid, msg, s.requestTimeout)
	context.ReenterAfter(future, func(result interface{}, err error) {
		delete(s.pending, msg.Username)
		if err != nil {
			logrus.WithError(err).Error("Failed to create user")
			context.Stop(pid)
			replyTo(context, sender, utils.NewActorTimeoutError("user"))
			return
		}

		if _, failed := result.(*utils.AppError); failed {
			context.Stop(pid)
		} else {
			s.mu.Lock()
			s.userActors[userID] = pid
			s.usernameToID[msg.Username] = userID
			s.mu.Unlock()
		}
		replyTo(context, sender, result)
	})
}

func replyTo(context actor.Context, sender *actor.PID, msg interface{}) {
	if sender != nil {
		context.Send(sender, msg)
	}
}

func (s *UserSupervisor) getOrCreateUserActor(context actor.Context, username string) (*actor.PID, error) {
	s.mu.RLock()
	id, known := s.usernameToID[username]
	pid := s.userActors[id]
	s.mu.RUnlock()

	if known && pid != nil {
		return pid, nil
	}

	ctx, cancel := stdctx.WithTimeout(stdctx.Background(), s.requestTimeout)
	defer cancel()
	user, err := s.store.GetUserByUsername(ctx, username)
	if err != nil {
		return nil, err
	}

	props := actor.PropsFromProducer(func() actor.Actor {
		a := NewUserActor(user.ID, s.store, s.bcryptCost, s.requestTimeout)
		a.load(user)
		return a
	})
	pid = context.Spawn(props)

	s.mu.Lock()
	s.userActors[user.ID] = pid
	s.usernameToID[user.Username] = user.ID
	s.mu.Unlock()

	return pid, nil
}

type UserActor struct {
	id             uuid.UUID
	state          *UserState
	hashedPassword string
	store          database.UserStore
	bcryptCost     int
	requestTimeout time.Duration
}

func NewUserActor(id uuid.UUID, store database.UserStore, bcryptCost int, requestTimeout time.Duration) *UserActor {
	return &UserActor{
		id:             id,
		state:          &UserState{ID: id},
		store:          store,
		bcryptCost:     bcryptCost,
		requestTimeout: requestTimeout,
	}
}

func (a *UserActor) load(user *models.User) {
	a.state = &UserState{
		ID:           user.ID,
		Username:     user.Username,
		Organization: user.Organization,
		CreatedAt:    user.CreatedAt,
	}
	a.hashedPassword = user.HashedPassword
}

func (a *UserActor) Receive(context actor.Context) {
	switch msg := context.Message().(type) {
	case *RegisterUserMsg:
		hashedPassword, err := bcrypt.GenerateFromPassword([]byte(msg.Password), a.bcryptCost)
		if err != nil {
			context.Respond(utils.NewAppError(utils.ErrInvalidInput, "Failed to hash password", err))
			return
		}

		user := &models.User{
			ID:             a.id,
			Username:       msg.Username,
			Organization:   msg.Organization,
			HashedPassword: string(hashedPassword),
			CreatedAt:      time.Now().UTC(),
		}

		ctx, cancel := stdctx.WithTimeout(stdctx.Background(), a.requestTimeout)
		defer cancel()
		if err := a.store.SaveUser(ctx, user); err != nil {
			logrus.WithError(err).WithField("username", msg.Username).Error("Failed to save user")
			if appErr, ok := utils.AsAppError(err); ok {
				context.Respond(appErr)
				return
			}
			context.Respond(utils.NewAppError(utils.ErrDatabase, "Failed to save user", err))
			return
		}

		a.load(user)
		logrus.WithFields(logrus.Fields{"username": user.Username, "organization": user.Organization}).Info("User registered")

		profile := *a.state
		context.Respond(&profile)

	case *LoginMsg:
		if a.hashedPassword == "" || bcrypt.CompareHashAndPassword([]byte(a.hashedPassword), []byte(msg.Password)) != nil {
			logrus.WithField("username", msg.Username).Info("Login failed")
			context.Respond(&LoginResult{Success: false, Error: "Invalid credentials"})
			return
		}

		now := time.Now().UTC()
		a.state.LastLogin = &now
		context.Respond(&LoginResult{
			Success:      true,
			Username:     a.state.Username,
			Organization: a.state.Organization,
		})

	case *GetUserProfileMsg:
		profile := *a.state
		context.Respond(&profile)
	}
}
