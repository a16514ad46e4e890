package models

import "time"

// SnapshotVersion is the current snapshot file format version.
const SnapshotVersion = 1

// ExportFormat is the portable snapshot of the whole collection.
type ExportFormat struct {
	SchemaVersion int       `json:"schema_version"`
	NexusVersion  string    `json:"nexus_version"`
	ExportedAt    time.Time `json:"exported_at"`
	Stats         Stats     `json:"stats"`
	Nodes         []Node    `json:"nodes"`
}

// ImportResult summarises a snapshot import.
type ImportResult struct {
	NodesLoaded int `json:"nodes_loaded"`
}
