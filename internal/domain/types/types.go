// Package types contains common types used across the application
package types

import (
	"github.com/meskan/granary/internal/domain/allocation"
	"github.com/meskan/granary/internal/domain/grain"
)

// Entry represents one row of the earnings board
type Entry struct {
	Rank       int                   `json:"rank"`
	IdentityID allocation.IdentityID `json:"identity_id"`
	Total      grain.Amount          `json:"total"`
}
