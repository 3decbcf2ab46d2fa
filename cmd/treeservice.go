package cmd

import (
	"context"
	"fmt"

	"oraclequest/config"
	"oraclequest/infrastructure"
	"oraclequest/treeservice"

	log "github.com/sirupsen/logrus"
)

// RunTreeService serves the commitment tree over NATS request/reply
func RunTreeService(ctx context.Context) error {
	cfg := config.Get()
	if cfg.NATSServers == "" {
		return fmt.Errorf("NATS_SERVERS is required to run the tree service")
	}
	if len(cfg.TreeProofKey) == 0 {
		log.Warn("TREE_PROOF_KEY not set, proofs will not survive a restart")
	}

	log.WithField("path", cfg.TreeDBPath).Info("Opening tree store...")
	tree, err := treeservice.Open(ctx, cfg.TreeDBPath, treeservice.Options{
		ProofKey:   cfg.TreeProofKey,
		StateTrees: cfg.TreeStateTrees,
	})
	if err != nil {
		return fmt.Errorf("failed to open tree store: %w", err)
	}
	defer tree.Close()

	client := infrastructure.NewNATSClient(cfg.NATSServers, "oraclequest-treeservice")
	if err := client.Connect(ctx); err != nil {
		return fmt.Errorf("failed to connect to NATS: %w", err)
	}
	defer client.Close()

	server := treeservice.NewServer(tree)
	if err := server.Start(client.Conn()); err != nil {
		return fmt.Errorf("failed to start tree service: %w", err)
	}
	log.Info("Tree service is running")

	<-ctx.Done()

	log.Info("Shutting down tree service...")
	server.Stop()
	return nil
}
