package service

import (
	"github.com/agrobazaar/marketplace/internal/port"
)

// Store is the persistence dependency shared by all services: direct reads
// in auto-commit mode plus all-or-nothing units of work.
type Store interface {
	port.Repository
	port.TxRunner
}
