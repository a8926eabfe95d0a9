// Copyright © 2024-present Lovania
// SPDX-License-Identifier: Apache-2.0

// Package supervisor implements the process-wide object described in
// SPEC_FULL.md §4.7: the session registry, the shared store client and
// gatehouse, the command catalog, and create_session glue.
package supervisor

import (
	"context"
	"fmt"
	"log"
	"net"
	"sync/atomic"

	"github.com/google/uuid"

	"github.com/Lovania-Networking-and-Software/Clousocket/internal/catalog"
	"github.com/Lovania-Networking-and-Software/Clousocket/internal/config"
	"github.com/Lovania-Networking-and-Software/Clousocket/internal/gatehouse"
	"github.com/Lovania-Networking-and-Software/Clousocket/internal/heartbeat"
	"github.com/Lovania-Networking-and-Software/Clousocket/internal/session"
	"github.com/Lovania-Networking-and-Software/Clousocket/internal/store"
)

// Supervisor holds every piece of process-wide shared state: config, the
// session registry, the instance UUID used to derive session ids, the
// store client pool, the gatehouse, and the command catalog/deserializer.
type Supervisor struct {
	cfg *config.Config

	registry     *session.Registry
	instanceID   uuid.UUID
	store        *store.Pool
	gate         *gatehouse.Gatehouse
	catalog      *catalog.Catalog
	deserializer *catalog.Deserializer
	hbCfg        heartbeat.Config

	nextSeq atomic.Uint64
}

// New wires a Supervisor from already-constructed shared components,
// with a freshly built session registry. A thin process-bootstrap layer
// (cmd/clousocketd) is responsible for building each component from cfg
// and passing it in; that wiring itself is out of scope per spec.md §1.
func New(cfg *config.Config, store *store.Pool, gate *gatehouse.Gatehouse, cat *catalog.Catalog, des *catalog.Deserializer) *Supervisor {
	return NewWithRegistry(cfg, session.NewRegistry(), store, gate, cat, des)
}

// NewWithRegistry is New, taking a caller-supplied registry. The
// gatehouse's ConnectionCapRule needs the registry's Size method before
// the gatehouse itself exists, so the bootstrap layer builds the
// registry first, wires the rule against it, then builds the
// Supervisor and gatehouse against the same registry.
func NewWithRegistry(cfg *config.Config, registry *session.Registry, store *store.Pool, gate *gatehouse.Gatehouse, cat *catalog.Catalog, des *catalog.Deserializer) *Supervisor {
	return &Supervisor{
		cfg:          cfg,
		registry:     registry,
		instanceID:   uuid.New(),
		store:        store,
		gate:         gate,
		catalog:      cat,
		deserializer: des,
		hbCfg: heartbeat.Config{
			MinIntervalMS:  cfg.Heartbeat.HBMinInterval,
			MaxIntervalMS:  cfg.Heartbeat.HBMaxInterval,
			InitIntervalMS: cfg.Heartbeat.HBInitInterval,
			TimeoutMS:      cfg.Heartbeat.HBTimeout,
		},
	}
}

// Registry exposes the session registry, e.g. for wiring a
// gatehouse.ConnectionCapRule's SizeFunc.
func (s *Supervisor) Registry() *session.Registry { return s.registry }

// CreateSession implements spec.md §4.7: admit, construct, register,
// transfer execution to the session's task scope. It blocks for the
// lifetime of the session; callers run it on its own goroutine per
// accepted connection.
func (s *Supervisor) CreateSession(ctx context.Context, conn net.Conn, addr net.Addr) {
	admitted, err := s.gate.Admit(ctx, conn, addr)
	if err != nil {
		log.Printf("supervisor: admission aborted for %s: %v", addr, err)
		_ = conn.Close()
		return
	}
	if !admitted {
		_ = conn.Close()
		return
	}

	id := s.nextSessionID()
	sess := session.New(id, conn, s.catalog, s.deserializer, s.hbCfg)
	s.registry.Insert(id, sess)
	defer s.registry.Remove(id)

	cause := sess.Run(ctx)
	log.Printf("supervisor: session %s ended: %s", id, cause)
}

// nextSessionID derives a deterministic, collision-free id from the
// instance UUID and an in-process sequence number — spec.md §3's
// "uuid3(instance_uuid, identity_string_of_session)", without a shared
// central counter beyond this supervisor's own monotonically increasing
// sequence.
func (s *Supervisor) nextSessionID() string {
	seq := s.nextSeq.Add(1)
	identity := fmt.Sprintf("session-%d", seq)
	return uuid.NewMD5(s.instanceID, []byte(identity)).String()
}

// Close shuts down the shared store client and gatehouse pools, which
// propagates end-of-stream to their workers (spec.md §4.7 "On process
// shutdown").
func (s *Supervisor) Close() {
	s.store.Close()
	s.gate.Close()
}
