package db

import (
	"fmt"
	"strings"

	"github.com/gocql/gocql"

	"github.com/acme/inbound-call-desk/internal/config"
)

// Scylla holds the session backing the lifecycle event log.
type Scylla struct {
	session *gocql.Session
}

var consistencyLevels = map[string]gocql.Consistency{
	"one":          gocql.One,
	"local_one":    gocql.LocalOne,
	"quorum":       gocql.Quorum,
	"local_quorum": gocql.LocalQuorum,
}

// NewScylla connects to the cluster. The event log is write-mostly, so a
// small retry budget on the session is enough.
func NewScylla(cfg config.ScyllaConfig) (*Scylla, error) {
	cluster := gocql.NewCluster(cfg.Hosts...)
	cluster.Port = cfg.Port
	cluster.Keyspace = cfg.Keyspace
	cluster.Timeout = cfg.Timeout
	cluster.RetryPolicy = &gocql.SimpleRetryPolicy{NumRetries: 3}

	level, ok := consistencyLevels[strings.ToLower(cfg.Consistency)]
	if !ok {
		level = gocql.Quorum
	}
	cluster.Consistency = level

	session, err := cluster.CreateSession()
	if err != nil {
		return nil, fmt.Errorf("scylla: create session: %w", err)
	}
	return &Scylla{session: session}, nil
}

// Session exposes the gocql session.
func (s *Scylla) Session() *gocql.Session {
	return s.session
}

// Close shuts down the session.
func (s *Scylla) Close() error {
	if s.session != nil {
		s.session.Close()
	}
	return nil
}
