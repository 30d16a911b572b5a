package simulator

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"sync"
	"time"

	"bipv-docs/internal/models"

	"github.com/sirupsen/logrus"
)

var documentTypes = []string{"pdf", "dwg", "xlsx", "docx", "ifc"}

// SimulateActivities runs every workload until ctx is done.
func (s *EnhancedSimulator) SimulateActivities(ctx context.Context) {
	logrus.Info("Starting activities simulation")

	workloads := []struct {
		name      string
		frequency float64
		step      func(ctx context.Context)
	}{
		{"create", s.config.CreateFrequency, s.createDocument},
		{"read", s.config.ReadFrequency, s.readDocument},
		{"update", s.config.UpdateFrequency, s.updateDocument},
		{"transfer", s.config.TransferFrequency, s.transferDocument},
		{"delete", s.config.DeleteFrequency, s.deleteDocument},
	}

	var wg sync.WaitGroup
	for _, w := range workloads {
		interval := s.interval(w.frequency)
		if interval <= 0 {
			continue
		}
		wg.Add(1)
		go func(name string, step func(context.Context), interval time.Duration) {
			defer wg.Done()
			logrus.WithFields(logrus.Fields{"workload": name, "interval": interval}).Debug("Workload started")
			ticker := time.NewTicker(interval)
			defer ticker.Stop()
			for {
				select {
				case <-ctx.Done():
					return
				case <-ticker.C:
					step(ctx)
				}
			}
		}(w.name, w.step, interval)
	}
	wg.Wait()
}

// interval turns a per-user hourly frequency into the delay between two actions
// across the whole user base.
func (s *EnhancedSimulator) interval(perUserPerHour float64) time.Duration {
	total := perUserPerHour * float64(len(s.users))
	if total <= 0 {
		return 0
	}
	return time.Duration(float64(time.Hour) / total)
}

func ledgerPath(path, channel string, params ...string) string {
	q := url.Values{}
	q.Set("channel", channel)
	for i := 0; i+1 < len(params); i += 2 {
		q.Set(params[i], params[i+1])
	}
	return path + "?" + q.Encode()
}

func (s *EnhancedSimulator) createDocument(ctx context.Context) {
	user := s.randomUser()
	channel, ok := s.randomChannel(user)
	if !ok {
		return
	}

	s.mu.Lock()
	user.docSeq++
	documentNo := fmt.Sprintf("%s-%d", user.Username, user.docSeq)
	docType := documentTypes[s.rng.Intn(len(documentTypes))]
	size := 16 + s.rng.Intn(4096)
	s.mu.Unlock()

	req := map[string]string{
		"documentNo":   documentNo,
		"documentName": fmt.Sprintf("Document %s", documentNo),
		"documentType": docType,
		"documentSize": fmt.Sprintf("%d KB", size),
		"documentLink": fmt.Sprintf("https://files.example.com/%s/%s.%s", channel, documentNo, docType),
	}

	var created models.Asset
	if err := s.call(ctx, user, http.MethodPost, ledgerPath("/assets", channel), req, &created); err != nil {
		return
	}
	s.addDocument(channel, created.DocumentNo)

	s.stats.mu.Lock()
	s.stats.DocumentsCreated++
	s.stats.mu.Unlock()
}

func (s *EnhancedSimulator) readDocument(ctx context.Context) {
	user := s.randomUser()
	channel, ok := s.randomChannel(user)
	if !ok {
		return
	}
	documentNo, ok := s.pickDocument(channel)
	if !ok {
		return
	}

	var asset models.Asset
	if err := s.call(ctx, user, http.MethodGet, ledgerPath("/asset", channel, "documentNo", documentNo), nil, &asset); err != nil {
		return
	}

	s.stats.mu.Lock()
	s.stats.DocumentsRead++
	s.stats.mu.Unlock()
}

// updateDocument bumps the revision in the document link and renames it.
func (s *EnhancedSimulator) updateDocument(ctx context.Context) {
	user := s.randomUser()
	channel, ok := s.randomChannel(user)
	if !ok {
		return
	}
	documentNo, ok := s.pickDocument(channel)
	if !ok {
		return
	}

	s.mu.Lock()
	revision := 1 + s.rng.Intn(99)
	docType := documentTypes[s.rng.Intn(len(documentTypes))]
	size := 16 + s.rng.Intn(4096)
	s.mu.Unlock()

	req := map[string]string{
		"documentNo":   documentNo,
		"documentName": fmt.Sprintf("Document %s rev %d", documentNo, revision),
		"documentType": docType,
		"documentSize": fmt.Sprintf("%d KB", size),
		"documentLink": fmt.Sprintf("https://files.example.com/%s/%s-r%d.%s", channel, documentNo, revision, docType),
	}

	if err := s.call(ctx, user, http.MethodPut, ledgerPath("/asset", channel), req, nil); err != nil {
		return
	}

	s.stats.mu.Lock()
	s.stats.Updates++
	s.stats.mu.Unlock()
}

// transferDocument hands a document to another simulated user on the same channel.
func (s *EnhancedSimulator) transferDocument(ctx context.Context) {
	user := s.randomUser()
	channel, ok := s.randomChannel(user)
	if !ok {
		return
	}
	documentNo, ok := s.pickDocument(channel)
	if !ok {
		return
	}

	s.mu.Lock()
	var candidates []*SimulatedUser
	for _, other := range s.users {
		if other == user {
			continue
		}
		for _, c := range other.Channels {
			if c == channel {
				candidates = append(candidates, other)
				break
			}
		}
	}
	var target *SimulatedUser
	if len(candidates) > 0 {
		target = candidates[s.rng.Intn(len(candidates))]
	}
	s.mu.Unlock()
	if target == nil {
		return
	}

	req := map[string]string{"documentNo": documentNo, "newOwner": target.Username}
	if err := s.call(ctx, user, http.MethodPost, ledgerPath("/asset/transfer", channel), req, nil); err != nil {
		return
	}

	s.stats.mu.Lock()
	s.stats.Transfers++
	s.stats.mu.Unlock()
}

func (s *EnhancedSimulator) deleteDocument(ctx context.Context) {
	user := s.randomUser()
	channel, ok := s.randomChannel(user)
	if !ok {
		return
	}
	documentNo, ok := s.pickDocument(channel)
	if !ok {
		return
	}
	// Take it out first so no other workload picks it meanwhile.
	s.removeDocument(channel, documentNo)

	if err := s.call(ctx, user, http.MethodDelete, ledgerPath("/asset", channel, "documentNo", documentNo), nil, nil); err != nil {
		return
	}

	s.stats.mu.Lock()
	s.stats.Deletes++
	s.stats.mu.Unlock()
}
