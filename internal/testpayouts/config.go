package testpayouts

import "time"

// Config holds configuration for the payout test
type Config struct {
	BaseURL       string        // Base URL of the service
	NumRequests   int           // Number of distribution requests to generate
	NumIdentities int           // Number of identities in the shared earner pool
	NumIntervals  int           // Number of cred intervals per identity
	NumPolicies   int           // Number of policies per request
	TopN          int           // Number of top entries to fetch
	Workers       int           // Number of concurrent workers
	Timeout       time.Duration // HTTP request timeout
	OutputFile    string        // Output file for requests
	LogFile       string        // Log file for test output
	Verbose       bool          // Enable verbose logging
}

// DistributionRequest mirrors the POST /distributions wire schema
type DistributionRequest struct {
	RequestID       string            `json:"request_id"`
	CredTimestampMs int64             `json:"cred_timestamp_ms"`
	Identities      []IdentityPayload `json:"identities"`
	Policies        []PolicyPayload   `json:"policies"`
}

// IdentityPayload is one roster row in a distribution request
type IdentityPayload struct {
	ID   string    `json:"id"`
	Cred []float64 `json:"cred"`
	Paid string    `json:"paid"`
}

// PolicyPayload is the tagged policy wire form. Optional fields are
// pointers so only the fields of the declared variant are emitted.
type PolicyPayload struct {
	PolicyType string   `json:"policyType"`
	Budget     string   `json:"budget"`
	Discount   *float64 `json:"discount,omitempty"`
	Memo       *string  `json:"memo,omitempty"`
	Recipient  *string  `json:"recipient,omitempty"`
}

// Entry represents an earnings board entry
type Entry struct {
	Rank       int    `json:"rank"`
	IdentityID string `json:"identity_id"`
	Total      string `json:"total"`
}

// AckResponse represents the response from request submission
type AckResponse struct {
	Status    string `json:"status"`
	Duplicate bool   `json:"duplicate"`
	RequestID string `json:"request_id"`
}

// DistributionResponse mirrors the GET /distributions/{id} wire schema
type DistributionResponse struct {
	RequestID    string              `json:"request_id"`
	Distribution DistributionPayload `json:"distribution"`
}

// DistributionPayload is one computed distribution
type DistributionPayload struct {
	ID              string              `json:"id"`
	CredTimestampMs int64               `json:"credTimestampMs"`
	Allocations     []AllocationPayload `json:"allocations"`
}

// AllocationPayload is one computed allocation inside a distribution
type AllocationPayload struct {
	ID       string           `json:"id"`
	Policy   PolicyPayload    `json:"policy"`
	Receipts []ReceiptPayload `json:"receipts"`
}

// ReceiptPayload is one receipt inside an allocation
type ReceiptPayload struct {
	ID     string `json:"id"`
	Amount string `json:"amount"`
}

// Stats holds test statistics
type Stats struct {
	RequestsGenerated      int
	RequestsSubmitted      int
	RequestsSuccessful     int
	RequestsDuplicate      int
	RequestsFailed         int
	DistributionsRetrieved int
	AllocationsChecked     int
	ConservationViolations int
	RanksRetrieved         int
	EarnerEntries          int
	GrainDistributed       string
	StartTime              time.Time
	EndTime                time.Time
	Duration               time.Duration
}
