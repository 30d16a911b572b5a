package simulator

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"math"
	"math/rand"
	"net/http"
	"sort"
	"sync"
	"time"

	"bipv-docs/internal/api"

	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"
)

type SimConfig struct {
	NumUsers       int
	Organizations  []string
	SimulationTime time.Duration
	// Per user per hour
	CreateFrequency   float64
	ReadFrequency     float64
	UpdateFrequency   float64
	TransferFrequency float64
	DeleteFrequency   float64
	ZipfS             float64
	Password          string
	EngineURL         string
}

// DefaultSimConfig spreads ten users over the five default organizations.
func DefaultSimConfig() SimConfig {
	return SimConfig{
		NumUsers:          10,
		Organizations:     []string{"org1", "org2", "org3", "org4", "org5"},
		SimulationTime:    5 * time.Minute,
		CreateFrequency:   60.0,
		ReadFrequency:     240.0,
		UpdateFrequency:   30.0,
		TransferFrequency: 20.0,
		DeleteFrequency:   10.0,
		ZipfS:             1.07,
		Password:          "simpass123",
		EngineURL:         "http://localhost:8080",
	}
}

type SimulationStats struct {
	mu               sync.RWMutex
	StartTime        time.Time
	TotalRequests    int64
	SuccessRequests  int64
	FailedRequests   int64
	DocumentsCreated int
	DocumentsRead    int
	Updates          int
	Transfers        int
	Deletes          int
	RequestLatencies []time.Duration
}

// SimulatedUser is a logged-in account driven by the simulator
type SimulatedUser struct {
	Username     string
	Organization string
	Token        string
	Channels     []string
	registered   bool
	docSeq       int
}

type EnhancedSimulator struct {
	config SimConfig
	stats  *SimulationStats
	users  []*SimulatedUser
	// Document numbers known per channel, oldest first
	documents map[string][]string
	client    *http.Client
	rng       *rand.Rand
	mu        sync.RWMutex
}

func NewEnhancedSimulator(config SimConfig) *EnhancedSimulator {
	if config.Password == "" {
		config.Password = DefaultSimConfig().Password
	}
	if len(config.Organizations) == 0 {
		config.Organizations = DefaultSimConfig().Organizations
	}
	if config.ZipfS <= 1 {
		config.ZipfS = DefaultSimConfig().ZipfS
	}
	return &EnhancedSimulator{
		config: config,
		stats: &SimulationStats{
			StartTime:        time.Now(),
			RequestLatencies: make([]time.Duration, 0),
		},
		documents: make(map[string][]string),
		client: &http.Client{
			Timeout: 10 * time.Second,
		},
		rng: rand.New(rand.NewSource(time.Now().UnixNano())),
	}
}

func (s *EnhancedSimulator) Run(ctx context.Context) error {
	logrus.Info("Starting document simulation")

	if err := s.initialize(ctx); err != nil {
		return errors.Wrap(err, "initialization failed")
	}

	var wg sync.WaitGroup

	wg.Add(1)
	go func() {
		defer wg.Done()
		s.SimulateActivities(ctx)
	}()

	wg.Add(1)
	go func() {
		defer wg.Done()
		s.collectMetrics(ctx)
	}()

	wg.Wait()
	return nil
}

func (s *EnhancedSimulator) initialize(ctx context.Context) error {
	logrus.Infof("Phase 1: Registering %d users", s.config.NumUsers)
	runID := time.Now().UnixNano() % 1_000_000

	for i := 0; i < s.config.NumUsers; i++ {
		user := &SimulatedUser{
			Username:     fmt.Sprintf("sim_%d_%d", runID, i),
			Organization: s.config.Organizations[i%len(s.config.Organizations)],
		}

		var err error
		for retries := 0; retries < 3; retries++ {
			if err = s.registerAndLogin(ctx, user); err == nil {
				break
			}
			backoff := time.Duration(math.Pow(2, float64(retries))) * 100 * time.Millisecond
			logrus.WithError(err).Warnf("Retry %d for user %s after %v", retries+1, user.Username, backoff)
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-time.After(backoff):
			}
		}
		if err != nil {
			logrus.WithError(err).Errorf("Failed to set up user %s", user.Username)
			continue
		}
		s.users = append(s.users, user)
	}

	if len(s.users) == 0 {
		return errors.New("no users could be registered")
	}

	logrus.Info("Phase 2: Initializing ledgers")
	initialized := make(map[string]bool)
	for _, user := range s.users {
		for _, channel := range user.Channels {
			if initialized[channel] {
				continue
			}
			var seeded []map[string]any
			if err := s.call(ctx, user, http.MethodPost, "/ledger/init?channel="+channel, nil, &seeded); err != nil {
				return errors.Wrapf(err, "init ledger on %s", channel)
			}
			initialized[channel] = true
			for _, asset := range seeded {
				if no, ok := asset["documentNo"].(string); ok {
					s.addDocument(channel, no)
				}
			}
		}
	}

	logrus.Infof("Initialization completed: %d users, %d channels", len(s.users), len(initialized))
	return nil
}

func (s *EnhancedSimulator) registerAndLogin(ctx context.Context, user *SimulatedUser) error {
	if !user.registered {
		err := s.call(ctx, nil, http.MethodPost, "/user/register", map[string]string{
			"username":     user.Username,
			"password":     s.config.Password,
			"organization": user.Organization,
		}, nil)
		if err != nil {
			return err
		}
		user.registered = true
	}

	var login api.LoginPayload
	if err := s.call(ctx, nil, http.MethodPost, "/user/login", map[string]string{
		"username": user.Username,
		"password": s.config.Password,
	}, &login); err != nil {
		return err
	}
	user.Token = login.Token

	var channels struct {
		Channels []string `json:"channels"`
	}
	if err := s.call(ctx, user, http.MethodGet, "/channels", nil, &channels); err != nil {
		return err
	}
	user.Channels = channels.Channels
	return nil
}

// call sends one request and decodes the envelope. A false status is an error
// carrying the server's message; otherwise the payload is decoded into out.
func (s *EnhancedSimulator) call(ctx context.Context, user *SimulatedUser, method, endpoint string, data, out any) error {
	start := time.Now()
	err := s.doCall(ctx, user, method, endpoint, data, out)
	s.recordRequestMetrics(start, err)
	return err
}

func (s *EnhancedSimulator) doCall(ctx context.Context, user *SimulatedUser, method, endpoint string, data, out any) error {
	var body io.Reader
	if data != nil {
		raw, err := json.Marshal(data)
		if err != nil {
			return errors.Wrap(err, "encode request")
		}
		body = bytes.NewReader(raw)
	}

	req, err := http.NewRequestWithContext(ctx, method, s.config.EngineURL+endpoint, body)
	if err != nil {
		return errors.Wrap(err, "build request")
	}
	req.Header.Set("Content-Type", "application/json")
	if user != nil && user.Token != "" {
		req.Header.Set("Authorization", "Bearer "+user.Token)
	}

	resp, err := s.client.Do(req)
	if err != nil {
		return errors.Wrapf(err, "%s %s", method, endpoint)
	}
	defer resp.Body.Close()

	var envelope api.Typed[json.RawMessage]
	if err := json.NewDecoder(resp.Body).Decode(&envelope); err != nil {
		return errors.Wrapf(err, "%s %s: undecodable response (HTTP %d)", method, endpoint, resp.StatusCode)
	}
	if !envelope.Status {
		return errors.Errorf("%s %s: %s (HTTP %d)", method, endpoint, envelope.Message, resp.StatusCode)
	}
	if out != nil && len(envelope.AdditionalPayload) > 0 {
		if err := json.Unmarshal(envelope.AdditionalPayload, out); err != nil {
			return errors.Wrapf(err, "%s %s: unexpected payload", method, endpoint)
		}
	}
	return nil
}

func (s *EnhancedSimulator) recordRequestMetrics(start time.Time, err error) {
	latency := time.Since(start)

	s.stats.mu.Lock()
	defer s.stats.mu.Unlock()

	s.stats.TotalRequests++
	if err != nil {
		s.stats.FailedRequests++
		logrus.WithError(err).Debug("Simulated request failed")
	} else {
		s.stats.SuccessRequests++
	}
	s.stats.RequestLatencies = append(s.stats.RequestLatencies, latency)
}

func (s *EnhancedSimulator) addDocument(channel, documentNo string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.documents[channel] = append(s.documents[channel], documentNo)
}

func (s *EnhancedSimulator) removeDocument(channel, documentNo string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	docs := s.documents[channel]
	for i, no := range docs {
		if no == documentNo {
			s.documents[channel] = append(docs[:i], docs[i+1:]...)
			return
		}
	}
}

// pickDocument chooses a known document on channel. Older documents are picked
// more often, following a Zipf distribution.
func (s *EnhancedSimulator) pickDocument(channel string) (string, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	docs := s.documents[channel]
	if len(docs) == 0 {
		return "", false
	}
	if len(docs) == 1 {
		return docs[0], true
	}
	zipf := rand.NewZipf(s.rng, s.config.ZipfS, 1, uint64(len(docs)-1))
	return docs[zipf.Uint64()], true
}

func (s *EnhancedSimulator) randomUser() *SimulatedUser {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.users[s.rng.Intn(len(s.users))]
}

func (s *EnhancedSimulator) randomChannel(user *SimulatedUser) (string, bool) {
	if len(user.Channels) == 0 {
		return "", false
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	return user.Channels[s.rng.Intn(len(user.Channels))], true
}

func (s *EnhancedSimulator) collectMetrics(ctx context.Context) {
	ticker := time.NewTicker(5 * time.Second)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			m := s.GetMetrics()
			logrus.WithFields(logrus.Fields{
				"requests":  m.TotalRequests,
				"failed":    m.FailedRequests,
				"avgLat":    m.AverageLatency,
				"created":   m.DocumentsCreated,
				"updates":   m.Updates,
				"transfers": m.Transfers,
				"deletes":   m.Deletes,
			}).Info("Simulation progress")
		}
	}
}

// SimulationMetrics is a snapshot of the simulator's counters
type SimulationMetrics struct {
	TotalUsers       int
	TotalRequests    int64
	SuccessRequests  int64
	FailedRequests   int64
	AverageLatency   time.Duration
	P95Latency       time.Duration
	DocumentsCreated int
	DocumentsRead    int
	Updates          int
	Transfers        int
	Deletes          int
	KnownDocuments   int
	Uptime           time.Duration
}

func (s *EnhancedSimulator) GetMetrics() SimulationMetrics {
	s.mu.RLock()
	known := 0
	for _, docs := range s.documents {
		known += len(docs)
	}
	users := len(s.users)
	s.mu.RUnlock()

	s.stats.mu.RLock()
	defer s.stats.mu.RUnlock()

	m := SimulationMetrics{
		TotalUsers:       users,
		TotalRequests:    s.stats.TotalRequests,
		SuccessRequests:  s.stats.SuccessRequests,
		FailedRequests:   s.stats.FailedRequests,
		DocumentsCreated: s.stats.DocumentsCreated,
		DocumentsRead:    s.stats.DocumentsRead,
		Updates:          s.stats.Updates,
		Transfers:        s.stats.Transfers,
		Deletes:          s.stats.Deletes,
		KnownDocuments:   known,
		Uptime:           time.Since(s.stats.StartTime),
	}

	if n := len(s.stats.RequestLatencies); n > 0 {
		sorted := append([]time.Duration(nil), s.stats.RequestLatencies...)
		sort.Slice(sorted, func(i, j int) bool { return sorted[i] < sorted[j] })
		var total time.Duration
		for _, l := range sorted {
			total += l
		}
		m.AverageLatency = total / time.Duration(n)
		m.P95Latency = sorted[(n*95)/100]
	}
	return m
}
