package treeservice

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"oraclequest/domain/interfaces"

	"github.com/nats-io/nats.go"
	log "github.com/sirupsen/logrus"
)

const defaultRequestTimeout = 10 * time.Second

// Server answers tree service requests over NATS
type Server struct {
	tree          interfaces.TreeService
	timeout       time.Duration
	mu            sync.Mutex
	subscriptions []*nats.Subscription
}

// NewServer creates a server in front of tree
func NewServer(tree interfaces.TreeService) *Server {
	return &Server{tree: tree, timeout: defaultRequestTimeout}
}

// Start subscribes every subject on nc in the service queue group
func (s *Server) Start(nc *nats.Conn) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, subject := range []string{SubjectAccount, SubjectProof, SubjectTrees, SubjectApply} {
		subject := subject
		sub, err := nc.QueueSubscribe(subject, QueueGroup, func(msg *nats.Msg) {
			ctx, cancel := context.WithTimeout(context.Background(), s.timeout)
			defer cancel()

			reply := s.Handle(ctx, subject, msg.Data)
			if err := msg.Respond(reply); err != nil {
				log.WithFields(log.Fields{
					"subject": subject,
					"error":   err,
				}).Error("Failed to respond to tree request")
			}
		})
		if err != nil {
			s.unsubscribeLocked()
			return fmt.Errorf("failed to subscribe to %s: %w", subject, err)
		}
		s.subscriptions = append(s.subscriptions, sub)
		log.WithField("subject", subject).Info("Serving tree subject")
	}
	return nil
}

// Stop drops every subscription
func (s *Server) Stop() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.unsubscribeLocked()
}

func (s *Server) unsubscribeLocked() {
	for _, sub := range s.subscriptions {
		if err := sub.Unsubscribe(); err != nil {
			log.WithFields(log.Fields{
				"subject": sub.Subject,
				"error":   err,
			}).Error("Failed to unsubscribe")
		}
	}
	s.subscriptions = nil
}

// Handle processes one request payload and returns the encoded reply
func (s *Server) Handle(ctx context.Context, subject string, data []byte) []byte {
	switch subject {
	case SubjectAccount:
		var req AccountRequest
		if err := json.Unmarshal(data, &req); err != nil {
			return EncodeResponse(nil, fmt.Errorf("invalid account request: %w", err))
		}
		return EncodeResponse(s.tree.GetCompressedAccount(ctx, req.Address))

	case SubjectProof:
		var req ProofRequest
		if err := json.Unmarshal(data, &req); err != nil {
			return EncodeResponse(nil, fmt.Errorf("invalid proof request: %w", err))
		}
		return EncodeResponse(s.tree.GetValidityProof(ctx, req.Hashes, req.NewAddresses))

	case SubjectTrees:
		return EncodeResponse(s.tree.PickTrees(ctx))

	case SubjectApply:
		var batch interfaces.TreeBatch
		if err := json.Unmarshal(data, &batch); err != nil {
			return EncodeResponse(nil, fmt.Errorf("invalid batch: %w", err))
		}
		return EncodeResponse(s.tree.ApplyBatch(ctx, &batch))

	default:
		return EncodeResponse(nil, fmt.Errorf("unknown subject %q", subject))
	}
}
