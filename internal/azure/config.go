package azure

import "time"

const (
	defaultBaseURL = "https://dev.azure.com"
	defaultPATEnv  = "AZURE_DEVOPS_PAT"
	defaultTimeout = 30 * time.Second

	// batchSize is the most ids the work items batch endpoint accepts per call.
	batchSize = 200
)

// Config is Azure DevOps client configuration.
type Config struct {
	BaseURL      string
	Organization string
	Project      string
	PAT          string
	PATEnv       string
	// Timeout bounds each remote call.
	Timeout time.Duration
}
