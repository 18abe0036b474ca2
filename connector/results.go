package connector

import (
	"time"

	"github.com/apifeed/apifeed/pipeline"
)

// QueryResult is the envelope returned by QueryWithData. RawData and
// ProcessedData are populated only when the caller asked for them.
type QueryResult struct {
	Response      string            `json:"response"`
	Prompt        string            `json:"prompt"`
	Endpoint      string            `json:"endpoint"`
	DataSummary   *pipeline.Summary `json:"data_summary"`
	Timestamp     time.Time         `json:"timestamp"`
	RawData       any               `json:"raw_data,omitempty"`
	ProcessedData any               `json:"processed_data,omitempty"`
}

// BatchFailure records one endpoint that could not be fetched or
// transformed during a batch run.
type BatchFailure struct {
	Endpoint string `json:"endpoint"`
	Error    string `json:"error"`
}

// BatchResult is the envelope returned by BatchProcess.
type BatchResult struct {
	Analysis            string            `json:"analysis"`
	SuccessfulEndpoints int               `json:"successful_endpoints"`
	FailedEndpoints     int               `json:"failed_endpoints"`
	Failures            []BatchFailure    `json:"failures,omitempty"`
	DataSummary         *pipeline.Summary `json:"data_summary"`
	Timestamp           time.Time         `json:"timestamp"`
}

// TurnResult is the envelope returned by Converse.
type TurnResult struct {
	Response           string    `json:"response"`
	ConversationLength int       `json:"conversation_length"`
	Timestamp          time.Time `json:"timestamp"`
}
