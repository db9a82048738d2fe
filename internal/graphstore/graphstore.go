// Package graphstore is the second embedded SQL database of spec §6:
// graphs.db, holding the materialized edges internal/graphbuild projects
// from the relational model. graphbuild writes only data_flow edges; the
// call graph type appears only on the parameter_call edges the IFDS
// engine synthesizes in memory, which are never stored here. Edge rows are
// the only persisted entity here (spec §4.E: "rows of shape edges(source,
// target, type, metadata_json, graph_type)"), so unlike internal/store
// this package needs no schema registry of its own -- one table, no FKs.
// Grounded on the batch/flush/transaction shape of internal/store, and on
// the forward+reverse-in-one-call idiom of the teacher's
// graph/callgraph/core.CallGraph.AddEdge.
package graphstore

import (
	"database/sql"
	"os"
	"sync"

	_ "modernc.org/sqlite"

	"github.com/theauditor/auditor-core/internal/errs"
)

// GraphType distinguishes the two graphs multiplexed onto one edges table.
const (
	DataFlow = "data_flow"
	Call     = "call"
)

const createSQL = `
CREATE TABLE edges (
  source TEXT NOT NULL,
  target TEXT NOT NULL,
  type TEXT NOT NULL,
  metadata_json TEXT,
  graph_type TEXT NOT NULL,
  file TEXT,
  line INTEGER
);
CREATE INDEX idx_edges_target ON edges(target);
CREATE INDEX idx_edges_source ON edges(source);
CREATE INDEX idx_edges_type ON edges(graph_type, type);
`

// Edge is one row of the edges table.
type Edge struct {
	Source       string
	Target       string
	Type         string
	MetadataJSON string
	GraphType    string
	File         string
	Line         int
}

// Store batches edge inserts and flushes them inside one transaction,
// matching internal/store's batch-then-flush contract for a single table.
type Store struct {
	mu        sync.Mutex
	db        *sql.DB
	batch     []Edge
	batchSize int
}

// Open creates path fresh, matching the "regenerated fresh per run" rule
// the relational store also follows.
func Open(path string, batchSize int) (*Store, error) {
	_ = os.Remove(path)
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, errs.Wrap(errs.IOError, err, "open graph database "+path)
	}
	db.SetMaxOpenConns(1)
	if _, err := db.Exec("PRAGMA journal_mode=WAL"); err != nil {
		return nil, errs.Wrap(errs.IOError, err, "set journal_mode")
	}
	if _, err := db.Exec(createSQL); err != nil {
		return nil, errs.Wrap(errs.IOError, err, "create graph schema")
	}
	return &Store{db: db, batchSize: batchSize}, nil
}

// DB exposes the connection for the IFDS/FFR query paths.
func (s *Store) DB() *sql.DB { return s.db }

// AddEdge enqueues a forward edge. Callers that want the paired reverse
// edge (every data_flow kind per spec §4.E) call AddEdgePair instead.
func (s *Store) AddEdge(e Edge) error {
	s.mu.Lock()
	s.batch = append(s.batch, e)
	full := len(s.batch) >= s.batchSize
	s.mu.Unlock()
	if full {
		return s.Flush()
	}
	return nil
}

// AddEdgePair writes both the forward edge of kind typ and its reverse
// counterpart typ+"_reverse", the uniform pattern every data_flow edge
// kind in spec §4.E follows.
func (s *Store) AddEdgePair(source, target, typ, metadataJSON, file string, line int) error {
	if err := s.AddEdge(Edge{Source: source, Target: target, Type: typ, MetadataJSON: metadataJSON, GraphType: DataFlow, File: file, Line: line}); err != nil {
		return err
	}
	return s.AddEdge(Edge{Source: target, Target: source, Type: typ + "_reverse", MetadataJSON: metadataJSON, GraphType: DataFlow, File: file, Line: line})
}

// Flush commits every pending edge in a single transaction.
func (s *Store) Flush() error {
	s.mu.Lock()
	batch := s.batch
	s.batch = nil
	s.mu.Unlock()

	if len(batch) == 0 {
		return nil
	}
	tx, err := s.db.Begin()
	if err != nil {
		return errs.Wrap(errs.ConstraintViolation, err, "begin graph flush")
	}
	stmt, err := tx.Prepare(`INSERT INTO edges (source, target, type, metadata_json, graph_type, file, line) VALUES (?, ?, ?, ?, ?, ?, ?)`)
	if err != nil {
		tx.Rollback()
		return errs.Wrap(errs.ConstraintViolation, err, "prepare edge insert")
	}
	defer stmt.Close()
	for _, e := range batch {
		if _, err := stmt.Exec(e.Source, e.Target, e.Type, e.MetadataJSON, e.GraphType, e.File, e.Line); err != nil {
			tx.Rollback()
			return errs.Wrap(errs.ConstraintViolation, err, "insert edge").WithTable("edges", 0)
		}
	}
	if err := tx.Commit(); err != nil {
		return errs.Wrap(errs.ConstraintViolation, err, "commit graph flush")
	}
	return nil
}

// Close flushes and closes the connection.
func (s *Store) Close() error {
	if err := s.Flush(); err != nil {
		return err
	}
	return s.db.Close()
}

// Predecessors returns every edge whose target is nodeID: for data_flow
// graphs these are rows already materialized with a "_reverse" type
// suffix (so a forward lookup on the reverse type IS the predecessor
// query, per spec §4.F.2: "the data_flow edges whose type LIKE
// '%_reverse'"); for the call graph these are rows whose target is
// nodeID directly.
func (s *Store) Predecessors(nodeID string) ([]Edge, error) {
	rows, err := s.db.Query(`
		SELECT source, target, type, metadata_json, graph_type, file, line FROM edges
		WHERE target = ? AND ((graph_type = ? AND type LIKE '%_reverse') OR graph_type = ?)
		ORDER BY source, type, line`, nodeID, DataFlow, Call)
	if err != nil {
		return nil, errs.Wrap(errs.IOError, err, "query predecessors")
	}
	defer rows.Close()
	return scanEdges(rows)
}

// Successors returns forward edges from nodeID (used by the Forward Flow
// Resolver, §4.G).
func (s *Store) Successors(nodeID string) ([]Edge, error) {
	rows, err := s.db.Query(`
		SELECT source, target, type, metadata_json, graph_type, file, line FROM edges
		WHERE source = ? AND ((graph_type = ? AND type NOT LIKE '%_reverse') OR graph_type = ?)
		ORDER BY target, type, line`, nodeID, DataFlow, Call)
	if err != nil {
		return nil, errs.Wrap(errs.IOError, err, "query successors")
	}
	defer rows.Close()
	return scanEdges(rows)
}

func scanEdges(rows *sql.Rows) ([]Edge, error) {
	var out []Edge
	for rows.Next() {
		var e Edge
		var file sql.NullString
		var line sql.NullInt64
		if err := rows.Scan(&e.Source, &e.Target, &e.Type, &e.MetadataJSON, &e.GraphType, &file, &line); err != nil {
			return nil, errs.Wrap(errs.IOError, err, "scan edge")
		}
		e.File = file.String
		e.Line = int(line.Int64)
		out = append(out, e)
	}
	return out, rows.Err()
}
