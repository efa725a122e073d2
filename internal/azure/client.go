// Package azure talks to the Azure DevOps work item tracking API.
//
// It is the only package that knows about remote field names, relation type
// names and URL shapes; everything it returns is expressed in workitem types.
package azure

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"os"
	"strings"
	"sync"
	"time"

	"github.com/microsoft/azure-devops-go-api/azuredevops/v7"
	"github.com/microsoft/azure-devops-go-api/azuredevops/v7/core"
	"github.com/microsoft/azure-devops-go-api/azuredevops/v7/workitemtracking"
	"github.com/rs/zerolog/log"
)

var (
	// ErrUnauthorized is returned when the PAT is rejected.
	ErrUnauthorized = errors.New("azure devops: unauthorized")
	// ErrNotFound is returned when the organization, project or item does not exist.
	ErrNotFound = errors.New("azure devops: not found")
)

// APIError is a failed call that is neither 401 nor 404.
type APIError struct {
	StatusCode int
	Op         string
	Message    string
}

func (e *APIError) Error() string {
	if e.StatusCode == 0 {
		return fmt.Sprintf("azure devops %s: %s", e.Op, e.Message)
	}
	if e.Message == "" {
		return fmt.Sprintf("azure devops %s: status %d", e.Op, e.StatusCode)
	}
	return fmt.Sprintf("azure devops %s: status %d: %s", e.Op, e.StatusCode, e.Message)
}

// Client is an Azure DevOps client scoped to one organization and project.
//
// The SDK clients resolve their service location over the network, so they
// are created on first use rather than in NewClient.
type Client struct {
	cfg  Config
	conn *azuredevops.Connection

	mu   sync.Mutex
	wit  workitemtracking.Client
	core core.Client
}

// NewClient constructs a client. It does not contact the server.
func NewClient(cfg Config) (*Client, error) {
	cfg.Organization = strings.TrimSpace(cfg.Organization)
	cfg.Project = strings.TrimSpace(cfg.Project)
	if cfg.Organization == "" {
		return nil, fmt.Errorf("azure devops organization is required")
	}
	if cfg.Project == "" {
		return nil, fmt.Errorf("azure devops project is required")
	}

	pat := strings.TrimSpace(cfg.PAT)
	if pat == "" {
		envKey := strings.TrimSpace(cfg.PATEnv)
		if envKey == "" {
			envKey = defaultPATEnv
		}
		pat = strings.TrimSpace(os.Getenv(envKey))
	}
	if pat == "" {
		return nil, fmt.Errorf("azure devops personal access token is required (set pat or pat_env)")
	}

	cfg.BaseURL = strings.TrimRight(strings.TrimSpace(cfg.BaseURL), "/")
	if cfg.BaseURL == "" {
		cfg.BaseURL = defaultBaseURL
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = defaultTimeout
	}
	cfg.PAT = ""

	return &Client{
		cfg:  cfg,
		conn: azuredevops.NewPatConnection(cfg.orgURL(), pat),
	}, nil
}

// newClientWith builds a client around ready SDK clients.
func newClientWith(cfg Config, wit workitemtracking.Client, cc core.Client) *Client {
	if cfg.Timeout <= 0 {
		cfg.Timeout = defaultTimeout
	}
	if cfg.BaseURL == "" {
		cfg.BaseURL = defaultBaseURL
	}
	return &Client{cfg: cfg, wit: wit, core: cc}
}

func (cfg Config) orgURL() string {
	return cfg.BaseURL + "/" + url.PathEscape(cfg.Organization)
}

// Organization returns the organization the client is scoped to.
func (c *Client) Organization() string { return c.cfg.Organization }

// Project returns the project the client is scoped to.
func (c *Client) Project() string { return c.cfg.Project }

// ValidateCredentials checks that the PAT can read the project.
func (c *Client) ValidateCredentials(ctx context.Context) error {
	return c.callCore(ctx, "validate credentials", func(ctx context.Context, cc core.Client) error {
		_, err := cc.GetProject(ctx, core.GetProjectArgs{ProjectId: &c.cfg.Project})
		return err
	})
}

func (c *Client) witClient(ctx context.Context) (workitemtracking.Client, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.wit == nil {
		wit, err := workitemtracking.NewClient(ctx, c.conn)
		if err != nil {
			return nil, mapError("connect", err)
		}
		c.wit = wit
	}
	return c.wit, nil
}

func (c *Client) coreClient(ctx context.Context) (core.Client, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.core == nil {
		cc, err := core.NewClient(ctx, c.conn)
		if err != nil {
			return nil, mapError("connect", err)
		}
		c.core = cc
	}
	return c.core, nil
}

// callWIT runs one work item tracking call under the configured timeout and
// maps its error.
func (c *Client) callWIT(ctx context.Context, op string, fn func(context.Context, workitemtracking.Client) error) error {
	ctx, cancel := context.WithTimeout(ctx, c.cfg.Timeout)
	defer cancel()
	wit, err := c.witClient(ctx)
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	start := time.Now()
	err = fn(ctx, wit)
	return c.finish(op, start, err)
}

func (c *Client) callCore(ctx context.Context, op string, fn func(context.Context, core.Client) error) error {
	ctx, cancel := context.WithTimeout(ctx, c.cfg.Timeout)
	defer cancel()
	cc, err := c.coreClient(ctx)
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	start := time.Now()
	err = fn(ctx, cc)
	return c.finish(op, start, err)
}

func (c *Client) finish(op string, start time.Time, err error) error {
	log.Debug().
		Str("op", op).
		Str("org", c.cfg.Organization).
		Str("project", c.cfg.Project).
		Dur("duration", time.Since(start)).
		Err(err).
		Msg("azure devops call")
	if err != nil {
		return mapError(op, err)
	}
	return nil
}

// mapError turns SDK failures into ErrUnauthorized, ErrNotFound or *APIError.
// The SDK hands back WrappedError both by value and by pointer.
func mapError(op string, err error) error {
	var (
		status  int
		message string
	)
	var byPtr *azuredevops.WrappedError
	var byVal azuredevops.WrappedError
	switch {
	case errors.As(err, &byPtr) && byPtr != nil:
		status, message = wrappedStatus(*byPtr)
	case errors.As(err, &byVal):
		status, message = wrappedStatus(byVal)
	default:
		if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
			return fmt.Errorf("%s: %w", op, err)
		}
		return &APIError{Op: op, Message: err.Error()}
	}

	switch status {
	case http.StatusUnauthorized, http.StatusNonAuthoritativeInfo:
		return fmt.Errorf("%s: %w: %s", op, ErrUnauthorized, message)
	case http.StatusNotFound:
		return fmt.Errorf("%s: %w: %s", op, ErrNotFound, message)
	default:
		return &APIError{StatusCode: status, Op: op, Message: message}
	}
}

func wrappedStatus(e azuredevops.WrappedError) (int, string) {
	status := 0
	if e.StatusCode != nil {
		status = *e.StatusCode
	}
	message := ""
	if e.Message != nil {
		message = *e.Message
	}
	return status, message
}
